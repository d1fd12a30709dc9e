package tray

import (
	"testing"

	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMenuItemsInvokeActions(t *testing.T) {
	app := test.NewApp()
	defer app.Quit()
	captured := 0
	shown := 0
	stored := false

	tr := New(Actions{
		Capture: func() { captured++ },
		Show:    func() { shown++ },
		ToggleMulti: func() bool {
			stored = !stored
			return stored
		},
	}, false)
	m := tr.Menu()

	require.Len(t, m.Items, 4)
	assert.Equal(t, "New Screenshot", m.Items[0].Label)
	m.Items[0].Action()
	assert.Equal(t, 1, captured)

	toggle := m.Items[1]
	assert.False(t, toggle.Checked)
	toggle.Action()
	assert.True(t, toggle.Checked)
	toggle.Action()
	assert.False(t, toggle.Checked)

	assert.True(t, m.Items[2].IsSeparator)
	m.Items[3].Action()
	assert.Equal(t, 1, shown)
}

func TestToggleFollowsStoredState(t *testing.T) {
	app := test.NewApp()
	defer app.Quit()
	stored := false
	tr := New(Actions{ToggleMulti: func() bool {
		stored = !stored
		return stored
	}}, false)
	toggle := tr.Menu().Items[1]

	// enabled elsewhere, e.g. from the main window
	stored = true
	tr.SetMulti(true)
	assert.True(t, toggle.Checked)

	toggle.Action()
	assert.False(t, stored)
	assert.False(t, toggle.Checked)
}

func TestMenuWithOnlyCapture(t *testing.T) {
	tr := New(Actions{}, true)
	require.Len(t, tr.Menu().Items, 1)
	assert.NotPanics(t, tr.Menu().Items[0].Action)
	assert.NotPanics(t, func() { tr.SetMulti(false) })
}

func TestIconIsSVG(t *testing.T) {
	assert.Equal(t, "sniptext.svg", Icon.Name())
	assert.Contains(t, string(Icon.Content()), "<svg")
}

func TestInstallWithoutTray(t *testing.T) {
	app := test.NewApp()
	defer app.Quit()
	assert.NotPanics(t, func() { Install(app, New(Actions{}, false)) })
}
