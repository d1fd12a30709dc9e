package main

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"sniptext/src/config"
	"sniptext/src/ocr"
	"sniptext/src/worker"
)

type stressOptions struct {
	n        int
	file     string
	queue    int
	deadline time.Duration
	tessdata string
	language string
}

type report struct {
	launched, ok, empty, dropped int32
	timedOut                     bool
	elapsed                      time.Duration
}

func (r report) String() string {
	return fmt.Sprintf("launched=%d ok=%d empty=%d dropped=%d timeout=%v elapsed=%s",
		r.launched, r.ok, r.empty, r.dropped, r.timedOut, r.elapsed)
}

// newRecognizer is replaced in tests.
var newRecognizer = func(dataPath, language string) (worker.Recognizer, func(), error) {
	svc := ocr.NewService()
	if !svc.Initialize(dataPath, language) {
		return nil, nil, fmt.Errorf("cannot initialize Tesseract for %q (data path %q)", language, dataPath)
	}
	return svc, svc.Close, nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	opts := &stressOptions{}
	cmd := newRootCmd(opts, os.Stdout)
	return cmd.Execute()
}

func newRootCmd(opts *stressOptions, out io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "stress-ocr",
		Short:         "Flood the OCR worker queue with captures",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithOptions(*opts, out)
		},
	}

	cmd.Flags().IntVar(&opts.n, "n", 50, "number of captures to submit")
	cmd.Flags().StringVar(&opts.file, "file", "", "PNG to recognize (blank synthetic image when empty)")
	cmd.Flags().IntVar(&opts.queue, "queue", worker.DefaultQueueSize, "worker queue size")
	cmd.Flags().DurationVar(&opts.deadline, "deadline", 60*time.Second, "overall timeout")
	cmd.Flags().StringVar(&opts.tessdata, "tessdata", "", "Tesseract data folder (overrides TESSDATA_PREFIX)")
	cmd.Flags().StringVar(&opts.language, "lang", "", "OCR language (overrides OCR_LANGUAGE)")

	return cmd
}

func runWithOptions(opts stressOptions, out io.Writer) error {
	if opts.n <= 0 {
		return errors.New("--n must be positive")
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	dataPath, language := cfg.TessdataPrefix, cfg.OCRLanguage
	if opts.tessdata != "" {
		dataPath = opts.tessdata
	}
	if opts.language != "" {
		language = opts.language
	}

	img, err := loadImage(opts.file)
	if err != nil {
		return err
	}
	rec, closeRec, err := newRecognizer(dataPath, language)
	if err != nil {
		return err
	}
	defer closeRec()

	r := stress(worker.New(rec, opts.queue), img, opts.n, opts.deadline)
	fmt.Fprintln(out, r)
	return nil
}

// stress submits n captures as fast as possible and waits for the accepted ones.
func stress(pool *worker.Pool, img *image.RGBA, n int, deadline time.Duration) report {
	var r report
	var wg sync.WaitGroup

	start := time.Now()
	for i := 0; i < n; i++ {
		r.launched++
		wg.Add(1)
		accepted := pool.Submit(img, func(text string) {
			defer wg.Done()
			if text == "" {
				atomic.AddInt32(&r.empty, 1)
				return
			}
			atomic.AddInt32(&r.ok, 1)
		})
		if !accepted {
			wg.Done()
			r.dropped++
		}
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		pool.Close()
	case <-time.After(deadline):
		r.timedOut = true
	}
	r.elapsed = time.Since(start)
	return report{
		launched: r.launched,
		ok:       atomic.LoadInt32(&r.ok),
		empty:    atomic.LoadInt32(&r.empty),
		dropped:  r.dropped,
		timedOut: r.timedOut,
		elapsed:  r.elapsed,
	}
}

func loadImage(path string) (*image.RGBA, error) {
	if path == "" {
		img := image.NewRGBA(image.Rect(0, 0, 320, 80))
		for i := range img.Pix {
			img.Pix[i] = 0xff
		}
		return img, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	src, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	b := src.Bounds()
	img := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			img.Set(x, y, src.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return img, nil
}
