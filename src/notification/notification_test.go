package notification

import (
	"strings"
	"testing"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/test"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
)

func TestPreviewTruncates(t *testing.T) {
	assert.Equal(t, "short", Preview("short"))

	long := strings.Repeat("é", 250)
	got := Preview(long)
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.Len(t, []rune(got), maxPreview+3)
}

func TestLogNotifierLevels(t *testing.T) {
	hook := logtest.NewGlobal()
	defer hook.Reset()

	n := NewLog()
	n.Error("Capture", "no screen")
	n.Warning("Capture", "out of bounds")
	n.Info("Saved", "/tmp/a.png")

	entries := hook.AllEntries()
	if assert.Len(t, entries, 3) {
		assert.Equal(t, logrus.ErrorLevel, entries[0].Level)
		assert.Equal(t, "Capture: no screen", entries[0].Message)
		assert.Equal(t, logrus.WarnLevel, entries[1].Level)
		assert.Equal(t, logrus.InfoLevel, entries[2].Level)
		assert.Equal(t, "notification", entries[2].Data["component"])
	}
}

func TestFyneNotifierShowsDialogs(t *testing.T) {
	app := test.NewApp()
	defer app.Quit()
	w := app.NewWindow("main")
	defer w.Close()

	n := NewFyne(app, w)
	n.Error("Capture failed", "no screen available")
	assert.Len(t, w.Canvas().Overlays().List(), 1)
	texts := renderedTexts(w.Canvas().Overlays().Top())
	assert.Contains(t, texts, "Capture failed")
	assert.Contains(t, texts, "no screen available")

	n.Info("Copied", "hello")
}

func TestFyneNotifierWithoutWindow(t *testing.T) {
	n := NewFyne(nil, nil)
	assert.NotPanics(t, func() {
		n.Error("a", "b")
		n.Warning("a", "b")
		n.Info("a", "b")
	})
}

func renderedTexts(o fyne.CanvasObject) []string {
	var out []string
	for _, obj := range test.LaidOutObjects(o) {
		if txt, ok := obj.(*canvas.Text); ok {
			out = append(out, txt.Text)
		}
	}
	return out
}

func TestErrorDialogsKeepTheirTitle(t *testing.T) {
	app := test.NewApp()
	defer app.Quit()
	w := app.NewWindow("main")
	defer w.Close()

	n := NewFyne(app, w)
	n.Error("Save failed", "disk full")
	n.Error("Tesseract", "no eng.traineddata")

	overlays := w.Canvas().Overlays().List()
	if assert.Len(t, overlays, 2) {
		assert.Contains(t, renderedTexts(overlays[0]), "Save failed")
		assert.Contains(t, renderedTexts(overlays[1]), "Tesseract")
	}
}
