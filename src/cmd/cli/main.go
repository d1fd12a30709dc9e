package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"sniptext/src/config"
	"sniptext/src/ocr"
)

const (
	maxFileSizeMB = 10
	maxFileSize   = maxFileSizeMB * 1024 * 1024
)

var pngMagic = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}

type cliOptions struct {
	filePath   string
	jsonOutput bool
	verbose    bool
	tessdata   string
	language   string
}

// recognizer is the part of ocr.Service the tool needs.
type recognizer interface {
	IsReady() bool
	ExtractText(img image.Image) string
	Close()
}

// newRecognizer is replaced in tests.
var newRecognizer = func(dataPath, language string) (recognizer, error) {
	svc := ocr.NewService()
	if !svc.Initialize(dataPath, language) {
		return nil, fmt.Errorf("cannot initialize Tesseract for %q (data path %q)", language, dataPath)
	}
	return svc, nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	return runWithArgs(normalizeLegacyArgs(os.Args), os.Stdin, os.Stdout, os.Stderr)
}

func runWithArgs(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		args = []string{"ocr-tool"}
	}

	opts := &cliOptions{}
	cmd := newRootCmd(opts, stdin, stdout, stderr)
	cmd.SetArgs(args[1:])
	return cmd.Execute()
}

func newRootCmd(opts *cliOptions, stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "ocr-tool",
		Short:         "Run OCR on PNG input",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithOptions(*opts, stdin, stdout, stderr)
		},
	}

	cmd.Flags().StringVar(&opts.filePath, "file", "", "Path to PNG file (use '-' for stdin)")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output results as JSON")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose output to stderr")
	cmd.Flags().StringVar(&opts.tessdata, "tessdata", "", "Tesseract data folder (overrides TESSDATA_PREFIX)")
	cmd.Flags().StringVar(&opts.language, "lang", "", "OCR language, e.g. eng or eng+deu (overrides OCR_LANGUAGE)")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runWithOptions(opts cliOptions, stdin io.Reader, stdout, stderr io.Writer) error {
	// Configure logging BEFORE any other operations.
	logrus.SetOutput(io.Discard)
	if opts.verbose {
		logrus.SetOutput(stderr)
		logrus.SetLevel(logrus.DebugLevel)
	}
	log := logrus.WithField("component", "ocr-tool")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	dataPath := cfg.TessdataPrefix
	if opts.tessdata != "" {
		dataPath = opts.tessdata
	}
	language := cfg.OCRLanguage
	if opts.language != "" {
		language = opts.language
	}
	log.Debugf("tessdata=%q language=%q", dataPath, language)

	img, err := readImage(opts.filePath, stdin)
	if err != nil {
		return err
	}
	log.Debugf("decoded %dx%d image", img.Bounds().Dx(), img.Bounds().Dy())

	rec, err := newRecognizer(dataPath, language)
	if err != nil {
		return err
	}
	defer rec.Close()

	start := time.Now()
	text := rec.ExtractText(img)
	elapsed := time.Since(start)
	log.Debugf("OCR completed in %v, extracted %d characters", elapsed, len(text))

	return outputResult(stdout, text, opts.filePath, elapsed, opts.jsonOutput)
}

func readImage(filePath string, stdin io.Reader) (image.Image, error) {
	var data []byte
	var err error
	if filePath == "-" {
		data, err = io.ReadAll(io.LimitReader(stdin, maxFileSize+1))
		if err != nil {
			return nil, fmt.Errorf("failed to read from stdin: %w", err)
		}
	} else {
		data, err = os.ReadFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read file %s: %w", filePath, err)
		}
	}

	if len(data) == 0 {
		return nil, errors.New("input file is empty")
	}
	if len(data) > maxFileSize {
		return nil, fmt.Errorf("input file exceeds maximum size of %d MB", maxFileSizeMB)
	}
	if len(data) < len(pngMagic) || !bytes.Equal(data[:len(pngMagic)], pngMagic) {
		return nil, errors.New("input is not a valid PNG file (invalid magic number)")
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode PNG: %w", err)
	}
	return img, nil
}

func normalizeLegacyArgs(args []string) []string {
	if len(args) == 0 {
		return args
	}

	normalized := make([]string, len(args))
	copy(normalized, args)

	for i := 1; i < len(normalized); i++ {
		arg := normalized[i]
		for _, name := range []string{"file", "json", "verbose", "tessdata", "lang"} {
			if arg == "-"+name || strings.HasPrefix(arg, "-"+name+"=") {
				normalized[i] = "-" + arg
				break
			}
		}
	}

	return normalized
}

type OCRResult struct {
	Text      string  `json:"text"`
	Source    string  `json:"source"`
	Timestamp string  `json:"timestamp"`
	Duration  float64 `json:"duration_seconds"`
	CharCount int     `json:"character_count"`
}

func outputResult(w io.Writer, text string, sourcePath string, elapsed time.Duration, jsonOutput bool) error {
	if !jsonOutput {
		_, err := fmt.Fprint(w, text)
		return err
	}

	result := OCRResult{
		Text:      text,
		Source:    sourcePath,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Duration:  elapsed.Seconds(),
		CharCount: len([]rune(text)),
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result); err != nil {
		return fmt.Errorf("failed to encode JSON output: %w", err)
	}
	return nil
}
