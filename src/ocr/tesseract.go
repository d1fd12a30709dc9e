package ocr

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// Tesseract is the Engine backed by gosseract.
type Tesseract struct {
	client *gosseract.Client
	image  bool
}

// NewTesseract returns an uninitialized Tesseract engine.
func NewTesseract() Engine {
	return &Tesseract{}
}

// Init checks that trained data exists for every language ("eng+deu" style) and configures a client.
func (t *Tesseract) Init(dataPath, language string) error {
	if language == "" {
		return errors.New("language is required")
	}
	if dataPath != "" {
		for _, lang := range strings.Split(language, "+") {
			file := filepath.Join(dataPath, lang+".traineddata")
			if _, err := os.Stat(file); err != nil {
				return fmt.Errorf("trained data for %q: %w", lang, err)
			}
		}
	}

	client := gosseract.NewClient()
	if dataPath != "" {
		if err := client.SetTessdataPrefix(dataPath); err != nil {
			client.Close()
			return fmt.Errorf("set tessdata prefix: %w", err)
		}
	}
	if err := client.SetLanguage(strings.Split(language, "+")...); err != nil {
		client.Close()
		return fmt.Errorf("set language: %w", err)
	}
	t.client = client
	return nil
}

func (t *Tesseract) SetImage(pix []byte, width, height, bytesPerPixel, stride int) error {
	if t.client == nil {
		return errors.New("engine not initialized")
	}
	if bytesPerPixel != 1 {
		return fmt.Errorf("unsupported bytes per pixel: %d", bytesPerPixel)
	}
	gray := &image.Gray{Pix: pix, Stride: stride, Rect: image.Rect(0, 0, width, height)}

	// gosseract takes encoded images, not raw buffers.
	var buf bytes.Buffer
	if err := png.Encode(&buf, gray); err != nil {
		return fmt.Errorf("encode image: %w", err)
	}
	if err := t.client.SetImageFromBytes(buf.Bytes()); err != nil {
		return fmt.Errorf("set image: %w", err)
	}
	t.image = true
	return nil
}

func (t *Tesseract) Text() (string, error) {
	if t.client == nil {
		return "", errors.New("engine not initialized")
	}
	if !t.image {
		return "", errors.New("no image set")
	}
	return t.client.Text()
}

// Clear forgets the current image; the next cycle must call SetImage again.
func (t *Tesseract) Clear() {
	t.image = false
}

func (t *Tesseract) End() error {
	if t.client == nil {
		return nil
	}
	err := t.client.Close()
	t.client = nil
	t.image = false
	return err
}
