package config

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configKeys = []string{
	"HOTKEY", "OVERLAY_COLOR", "OVERLAY_BORDER_WIDTH", "CAPTURE_DELAY_MS", "MULTI_REGION",
	"SAVE_SCREENSHOT", "SAVE_DIR", "TESSDATA_PREFIX", "OCR_LANGUAGE", "ENABLE_FILE_LOGGING",
	"LOG_LEVEL", EnvFileEnvVar,
}

// clearEnv empties every key for the duration of the test; t.Setenv restores the old values.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configKeys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultHotkey, cfg.Hotkey)
	assert.Equal(t, color.RGBA{R: 255, A: 255}, cfg.OverlayColor)
	assert.Equal(t, 2, cfg.OverlayBorderWidth)
	assert.Equal(t, 180*time.Millisecond, cfg.CaptureDelay)
	assert.False(t, cfg.MultiRegion)
	assert.True(t, cfg.SaveScreenshot)
	assert.NotEmpty(t, cfg.SaveDir)
	assert.Equal(t, "eng", cfg.OCRLanguage)
	assert.False(t, cfg.EnableFileLogging)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadFromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOTKEY", "Ctrl+Shift+T")
	t.Setenv("OVERLAY_COLOR", "#00ff00")
	t.Setenv("OVERLAY_BORDER_WIDTH", "4")
	t.Setenv("CAPTURE_DELAY_MS", "250")
	t.Setenv("MULTI_REGION", "true")
	t.Setenv("SAVE_SCREENSHOT", "false")
	t.Setenv("SAVE_DIR", "/tmp/snips")
	t.Setenv("OCR_LANGUAGE", "eng+deu")
	t.Setenv("ENABLE_FILE_LOGGING", "TRUE")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "Ctrl+Shift+T", cfg.Hotkey)
	assert.Equal(t, color.RGBA{G: 255, A: 255}, cfg.OverlayColor)
	assert.Equal(t, 4, cfg.OverlayBorderWidth)
	assert.Equal(t, 250*time.Millisecond, cfg.CaptureDelay)
	assert.True(t, cfg.MultiRegion)
	assert.False(t, cfg.SaveScreenshot)
	assert.Equal(t, "/tmp/snips", cfg.SaveDir)
	assert.Equal(t, "eng+deu", cfg.OCRLanguage)
	assert.True(t, cfg.EnableFileLogging)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadOptionsOverride(t *testing.T) {
	clearEnv(t)
	t.Setenv("MULTI_REGION", "true")
	t.Setenv("CAPTURE_DELAY_MS", "500")
	t.Setenv("OVERLAY_COLOR", "blue")

	multi := false
	delay := -20
	cfg, err := LoadWithOptions(LoadOptions{
		MultiRegion:    &multi,
		CaptureDelayMS: &delay,
		OverlayColor:   "yellow",
		SaveDir:        "/data/out",
		NoSave:         true,
	})
	require.NoError(t, err)

	assert.False(t, cfg.MultiRegion)
	assert.Equal(t, time.Duration(0), cfg.CaptureDelay)
	assert.Equal(t, color.RGBA{R: 255, G: 255, A: 255}, cfg.OverlayColor)
	assert.Equal(t, "/data/out", cfg.SaveDir)
	assert.False(t, cfg.SaveScreenshot)
}

func TestLoadFromEnvFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "sniptext.env")
	require.NoError(t, os.WriteFile(path, []byte("HOTKEY=Alt+S\nOCR_LANGUAGE=fra\n"), 0o600))
	t.Setenv(EnvFileEnvVar, path)

	cfg, err := Load()
	require.NoError(t, err)
	t.Cleanup(func() {
		os.Unsetenv("HOTKEY")
		os.Unsetenv("OCR_LANGUAGE")
	})

	assert.Equal(t, path, cfg.EnvPath)
	assert.Equal(t, "Alt+S", cfg.Hotkey)
	assert.Equal(t, "fra", cfg.OCRLanguage)
}

func TestInvalidColorFails(t *testing.T) {
	clearEnv(t)
	t.Setenv("OVERLAY_COLOR", "not-a-color")

	_, err := Load()
	assert.Error(t, err)
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want color.RGBA
	}{
		{"red", color.RGBA{R: 255, A: 255}},
		{" Orange ", color.RGBA{R: 255, G: 165, A: 255}},
		{"#0000ff", color.RGBA{B: 255, A: 255}},
		{"#0f0", color.RGBA{G: 255, A: 255}},
		{"336699", color.RGBA{R: 0x33, G: 0x66, B: 0x99, A: 255}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseColor(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"", "#xyz", "chartreuse-ish", "#336699zz"} {
		_, err := ParseColor(bad)
		assert.Error(t, err, bad)
	}
}

func TestFormatColor(t *testing.T) {
	assert.Equal(t, "#ff0000", FormatColor(color.RGBA{R: 255, A: 255}))
	assert.Equal(t, "#336699", FormatColor(color.RGBA{R: 0x33, G: 0x66, B: 0x99, A: 255}))
}

func TestTranslucentColorRoundTrip(t *testing.T) {
	in := color.NRGBA{R: 0x33, G: 0x66, B: 0x99, A: 0x80}

	hex := FormatColor(in)
	assert.Equal(t, "#33669980", hex)

	got, err := ParseColor(hex)
	require.NoError(t, err)
	assert.Equal(t, in, got)

	opaque, err := ParseColor("#336699ff")
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 0x33, G: 0x66, B: 0x99, A: 255}, opaque)
}
