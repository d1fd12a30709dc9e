package config

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/lucasb-eyer/go-colorful"
)

const (
	EnvFileEnvVar       = "SNIPTEXT_ENV"
	DefaultHotkey       = "Ctrl+Alt+Q"
	DefaultColorName    = "red"
	DefaultBorderWidth  = 2
	DefaultCaptureDelay = 180 * time.Millisecond
	DefaultLanguage     = "eng"
	DefaultLogLevel     = "info"
)

// LoadOptions carries command-line overrides. Zero values leave the loaded value alone.
type LoadOptions struct {
	MultiRegion     *bool
	CaptureDelayMS  *int
	OverlayColor    string
	SaveDir         string
	NoSave          bool
	EnvPathOverride string
}

type Config struct {
	Hotkey             string
	OverlayColor       color.Color
	OverlayColorName   string
	OverlayBorderWidth int
	CaptureDelay       time.Duration
	MultiRegion        bool
	SaveScreenshot     bool
	SaveDir            string
	TessdataPrefix     string
	OCRLanguage        string
	EnableFileLogging  bool
	LogLevel           string
	EnvPath            string
}

func Load() (*Config, error) {
	return LoadWithOptions(LoadOptions{})
}

func LoadWithOptions(opts LoadOptions) (*Config, error) {
	// Sources in priority order:
	// 1) .env next to the executable
	// 2) otherwise the file named by SNIPTEXT_ENV
	envPath := strings.TrimSpace(opts.EnvPathOverride)
	if envPath == "" {
		envPath = resolveEnvPath()
	}
	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil {
			return nil, fmt.Errorf("load %s: %w", envPath, err)
		}
	}

	colorName := getEnvWithDefault("OVERLAY_COLOR", DefaultColorName)
	if override := strings.TrimSpace(opts.OverlayColor); override != "" {
		colorName = override
	}
	overlayColor, err := ParseColor(colorName)
	if err != nil {
		return nil, err
	}

	delayMS := getEnvInt("CAPTURE_DELAY_MS", int(DefaultCaptureDelay/time.Millisecond))
	if opts.CaptureDelayMS != nil {
		delayMS = *opts.CaptureDelayMS
	}
	if delayMS < 0 {
		delayMS = 0
	}

	multi := getEnvBool("MULTI_REGION", false)
	if opts.MultiRegion != nil {
		multi = *opts.MultiRegion
	}

	saveDir := strings.TrimSpace(os.Getenv("SAVE_DIR"))
	if override := strings.TrimSpace(opts.SaveDir); override != "" {
		saveDir = override
	}
	if saveDir == "" {
		saveDir = DefaultSaveDir()
	}

	border := getEnvInt("OVERLAY_BORDER_WIDTH", DefaultBorderWidth)
	if border < 1 {
		border = DefaultBorderWidth
	}

	cfg := &Config{
		Hotkey:             getEnvWithDefault("HOTKEY", DefaultHotkey),
		OverlayColor:       overlayColor,
		OverlayColorName:   colorName,
		OverlayBorderWidth: border,
		CaptureDelay:       time.Duration(delayMS) * time.Millisecond,
		MultiRegion:        multi,
		SaveScreenshot:     getEnvBool("SAVE_SCREENSHOT", true) && !opts.NoSave,
		SaveDir:            saveDir,
		TessdataPrefix:     strings.TrimSpace(os.Getenv("TESSDATA_PREFIX")),
		OCRLanguage:        getEnvWithDefault("OCR_LANGUAGE", DefaultLanguage),
		EnableFileLogging:  getEnvBool("ENABLE_FILE_LOGGING", false),
		LogLevel:           strings.ToLower(getEnvWithDefault("LOG_LEVEL", DefaultLogLevel)),
		EnvPath:            envPath,
	}

	return cfg, nil
}

func resolveEnvPath() string {
	if execPath, err := os.Executable(); err == nil {
		exeEnv := filepath.Join(filepath.Dir(execPath), ".env")
		if _, err := os.Stat(exeEnv); err == nil {
			return exeEnv
		}
	}

	if alt := os.Getenv(EnvFileEnvVar); alt != "" {
		if _, err := os.Stat(alt); err == nil {
			return alt
		}
	}

	return ""
}

// DefaultSaveDir returns the user's Desktop, else Documents, else the working directory.
func DefaultSaveDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		for _, name := range []string{"Desktop", "Documents"} {
			dir := filepath.Join(home, name)
			if st, err := os.Stat(dir); err == nil && st.IsDir() {
				return dir
			}
		}
	}
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return "."
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}

var namedColors = map[string]string{
	"red":     "#ff0000",
	"green":   "#00ff00",
	"blue":    "#0000ff",
	"yellow":  "#ffff00",
	"cyan":    "#00ffff",
	"magenta": "#ff00ff",
	"orange":  "#ffa500",
	"white":   "#ffffff",
	"black":   "#000000",
}

// ParseColor accepts a name from the small built-in table or a hex value ("#f00", "#ff0000").
func ParseColor(value string) (color.Color, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	if hex, ok := namedColors[v]; ok {
		v = hex
	}
	if v != "" && !strings.HasPrefix(v, "#") {
		v = "#" + v
	}
	alpha := uint64(255)
	if len(v) == 9 {
		a, err := strconv.ParseUint(v[7:], 16, 8)
		if err != nil {
			return nil, fmt.Errorf("invalid color %q: bad alpha: %w", value, err)
		}
		alpha, v = a, v[:7]
	}
	c, err := colorful.Hex(v)
	if err != nil {
		return nil, fmt.Errorf("invalid color %q: %w", value, err)
	}
	r, g, b := c.RGB255()
	if alpha < 255 {
		return color.NRGBA{R: r, G: g, B: b, A: uint8(alpha)}, nil
	}
	return color.RGBA{R: r, G: g, B: b, A: 255}, nil
}

// FormatColor renders c as "#rrggbb", or "#rrggbbaa" when it is not opaque.
func FormatColor(c color.Color) string {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	hex := colorful.Color{R: float64(n.R) / 255, G: float64(n.G) / 255, B: float64(n.B) / 255}.Hex()
	if n.A < 255 {
		hex += fmt.Sprintf("%02x", n.A)
	}
	return hex
}
