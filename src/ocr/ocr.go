package ocr

import (
	"image"
	"strings"

	"github.com/sirupsen/logrus"
	xdraw "golang.org/x/image/draw"
)

// Engine is a stateful text-recognition engine. One instance is used
// sequentially; SetImage, Text and Clear form one recognition cycle.
type Engine interface {
	Init(dataPath, language string) error
	// SetImage takes raw pixels: bytesPerPixel bytes per sample, stride bytes per row.
	SetImage(pix []byte, width, height, bytesPerPixel, stride int) error
	Text() (string, error)
	Clear()
	End() error
}

// EngineFactory creates an engine instance that has not been initialized yet.
type EngineFactory func() Engine

// Service turns bitmaps into text. It never fails loudly: any problem yields "".
type Service struct {
	newEngine EngineFactory
	engine    Engine
	log       *logrus.Entry
}

// NewService returns a service using the Tesseract engine.
func NewService() *Service {
	return NewServiceWithEngine(NewTesseract)
}

func NewServiceWithEngine(factory EngineFactory) *Service {
	return &Service{
		newEngine: factory,
		log:       logrus.WithField("component", "ocr"),
	}
}

// Initialize replaces the engine with a new one for dataPath and language.
func (s *Service) Initialize(dataPath, language string) bool {
	s.Close()

	if s.newEngine == nil {
		return false
	}
	e := s.newEngine()
	if e == nil {
		return false
	}
	if err := e.Init(dataPath, language); err != nil {
		s.log.Errorf("engine init failed (data=%q lang=%q): %v", dataPath, language, err)
		_ = e.End()
		return false
	}
	s.engine = e
	s.log.Infof("engine ready (data=%q lang=%q)", dataPath, language)
	return true
}

func (s *Service) IsReady() bool {
	return s.engine != nil
}

// ExtractText recognizes img. It returns "" when the service is not ready or nothing was recognized.
func (s *Service) ExtractText(img image.Image) string {
	if !s.IsReady() || img == nil {
		return ""
	}

	gray := toGray(img)
	if gray == nil {
		return ""
	}
	b := gray.Bounds()
	defer s.engine.Clear()

	if err := s.engine.SetImage(gray.Pix, b.Dx(), b.Dy(), 1, gray.Stride); err != nil {
		s.log.Warnf("set image: %v", err)
		return ""
	}
	text, err := s.engine.Text()
	if err != nil {
		s.log.Warnf("recognize: %v", err)
		return ""
	}
	text = strings.TrimSpace(strings.ReplaceAll(text, "\f", ""))
	s.log.Debugf("recognized %d characters from %dx%d", len(text), b.Dx(), b.Dy())
	return text
}

// Close ends the engine. The service is not ready afterwards.
func (s *Service) Close() {
	if s.engine == nil {
		return
	}
	if err := s.engine.End(); err != nil {
		s.log.Warnf("engine end: %v", err)
	}
	s.engine = nil
}

// toGray converts img to a zero-origin 8-bit grayscale bitmap.
func toGray(img image.Image) *image.Gray {
	b := img.Bounds()
	if b.Empty() {
		return nil
	}
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Draw(gray, gray.Bounds(), img, b.Min, xdraw.Src)
	return gray
}
