package main

import (
	"image/color"
	"sync/atomic"
	"testing"
	"time"

	"fyne.io/fyne/v2/test"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sniptext/src/config"
	"sniptext/src/settings"
	"sniptext/src/singleinstance"
)

func TestNormalizeLegacyArgs(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		out  []string
	}{
		{
			name: "Normalizes long single dash flags",
			in:   []string{"sniptext", "-multi-region", "-save-dir", "/tmp/snips"},
			out:  []string{"sniptext", "--multi-region", "--save-dir", "/tmp/snips"},
		},
		{
			name: "Normalizes equals form",
			in:   []string{"sniptext", "-capture-delay=250", "-color=blue"},
			out:  []string{"sniptext", "--capture-delay=250", "--color=blue"},
		},
		{
			name: "Leaves short and unknown flags unchanged",
			in:   []string{"sniptext", "-v", "--no-save", "-other"},
			out:  []string{"sniptext", "-v", "--no-save", "-other"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.out, normalizeLegacyArgs(tt.in))
		})
	}
}

func TestNewRootCmdParsesFlags(t *testing.T) {
	opts := &mainOptions{}
	cmd := newRootCmd(opts)
	require.NoError(t, cmd.ParseFlags([]string{"--multi-region", "--capture-delay", "300", "--color", "#00ff00", "--no-save", "-v"}))

	assert.True(t, opts.multiRegion)
	assert.Equal(t, 300, opts.captureDelay)
	assert.Equal(t, "#00ff00", opts.color)
	assert.True(t, opts.noSave)
	assert.True(t, opts.verbose)
}

func TestLoadOptionsOnlyCarriesChangedFlags(t *testing.T) {
	opts := &mainOptions{}
	cmd := newRootCmd(opts)
	require.NoError(t, cmd.ParseFlags([]string{"--save-dir", "/out"}))

	lo := loadOptions(cmd, opts)
	assert.Nil(t, lo.MultiRegion)
	assert.Nil(t, lo.CaptureDelayMS)
	assert.Equal(t, "/out", lo.SaveDir)

	require.NoError(t, cmd.ParseFlags([]string{"--multi-region=false", "--capture-delay", "0"}))
	lo = loadOptions(cmd, opts)
	require.NotNil(t, lo.MultiRegion)
	assert.False(t, *lo.MultiRegion)
	require.NotNil(t, lo.CaptureDelayMS)
	assert.Equal(t, 0, *lo.CaptureDelayMS)
}

type mapStore map[string]any

func (m mapStore) BoolWithFallback(k string, fb bool) bool {
	if v, ok := m[k].(bool); ok {
		return v
	}
	return fb
}
func (m mapStore) SetBool(k string, v bool) { m[k] = v }
func (m mapStore) IntWithFallback(k string, fb int) int {
	if v, ok := m[k].(int); ok {
		return v
	}
	return fb
}
func (m mapStore) SetInt(k string, v int) { m[k] = v }
func (m mapStore) StringWithFallback(k, fb string) string {
	if v, ok := m[k].(string); ok {
		return v
	}
	return fb
}
func (m mapStore) SetString(k, v string) { m[k] = v }

func TestApplyOverridesBeatsStoredSettings(t *testing.T) {
	store := mapStore{}
	base := &config.Config{OverlayColor: color.RGBA{R: 255, A: 255}, OverlayBorderWidth: 2, SaveScreenshot: true, SaveDir: "/desk"}
	stored := settings.New(store, base)
	stored.SetMultiRegion(true)
	stored.SetSaveDir("/stored")

	opts := &mainOptions{}
	cmd := newRootCmd(opts)
	require.NoError(t, cmd.ParseFlags([]string{"--multi-region=false", "--capture-delay", "50"}))
	cfg := &config.Config{OverlayColor: color.RGBA{R: 255, A: 255}, MultiRegion: false, CaptureDelay: 50 * time.Millisecond, SaveDir: "/desk", SaveScreenshot: true}

	s := settings.New(store, base)
	applyOverrides(cmd, cfg, s)

	cur := s.Current()
	assert.False(t, cur.MultiRegion)
	assert.Equal(t, 50*time.Millisecond, cur.CaptureDelay)
	assert.Equal(t, "/stored", cur.SaveDir, "unset flags keep stored values")
}

type countingTarget struct{ n atomic.Int32 }

func (c *countingTarget) Trigger() { c.n.Add(1) }
func (c *countingTarget) Show()    { c.n.Add(1) }

func TestResidentCommand(t *testing.T) {
	app := test.NewApp()
	defer app.Quit()

	loop, win := &countingTarget{}, &countingTarget{}
	require.NoError(t, residentCommand(singleinstance.CommandCapture, loop, win))
	require.NoError(t, residentCommand(singleinstance.CommandShow, loop, win))
	assert.Error(t, residentCommand(singleinstance.Command("NOPE"), loop, win))

	assert.Eventually(t, func() bool { return loop.n.Load() == 1 && win.n.Load() == 1 }, time.Second, time.Millisecond)
}
