package worker

import (
	"image"
	"sync"

	"github.com/sirupsen/logrus"
)

// DefaultQueueSize bounds the crops waiting for recognition.
const DefaultQueueSize = 16

// Recognizer extracts text from a bitmap. Implementations need not be safe for concurrent use.
type Recognizer interface {
	ExtractText(img image.Image) string
}

// ResultCallback is invoked on OCR completion (from the worker goroutine).
// The caller should pass a closure that posts back onto the UI goroutine.
type ResultCallback func(text string)

// Pool runs recognition jobs in submission order on a single goroutine,
// so one stateful engine serves every job.
type Pool struct {
	rec  Recognizer
	log  *logrus.Entry
	mu   sync.Mutex
	jobs chan job
	wg   sync.WaitGroup
	done bool
}

type job struct {
	img *image.RGBA
	cb  ResultCallback
}

// New starts the worker. queueSize defaults to DefaultQueueSize when <= 0.
func New(rec Recognizer, queueSize int) *Pool {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	p := &Pool{
		rec:  rec,
		log:  logrus.WithField("component", "worker"),
		jobs: make(chan job, queueSize),
	}
	p.wg.Add(1)
	go p.run()
	return p
}

func (p *Pool) run() {
	defer p.wg.Done()
	for j := range p.jobs {
		b := j.img.Bounds()
		p.log.Debugf("starting OCR for %dx%d", b.Dx(), b.Dy())
		text := p.recognize(j.img)
		p.log.Debugf("OCR completed, text length=%d", len(text))
		if j.cb != nil {
			j.cb(text)
		}
	}
}

func (p *Pool) recognize(img *image.RGBA) (text string) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Errorf("panic during OCR: %v", r)
			text = ""
		}
	}()
	return p.rec.ExtractText(img)
}

// Submit enqueues a job. It returns false when the queue is full or the pool is closed.
func (p *Pool) Submit(img *image.RGBA, cb ResultCallback) bool {
	if img == nil {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done {
		return false
	}
	select {
	case p.jobs <- job{img: img, cb: cb}:
		return true
	default:
		p.log.Warn("OCR queue full, dropping capture")
		return false
	}
}

// Close stops the pool after draining queued work.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.done {
		p.mu.Unlock()
		return
	}
	p.done = true
	close(p.jobs)
	p.mu.Unlock()
	p.wg.Wait()
}
