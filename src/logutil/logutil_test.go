package logutil

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRotatingWriterRotates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	w, err := NewRotatingWriter(path, 10, 2)
	require.NoError(t, err)
	defer w.Close()

	for _, chunk := range []string{"aaaaaaaa", "bbbbbbbb", "cccccccc", "dddddddd"} {
		_, err := w.Write([]byte(chunk))
		require.NoError(t, err)
	}

	read := func(p string) string {
		b, err := os.ReadFile(p)
		require.NoError(t, err)
		return string(b)
	}
	assert.Equal(t, "dddddddd", read(path))
	assert.Equal(t, "cccccccc", read(path+".1"))
	assert.Equal(t, "bbbbbbbb", read(path+".2"))
	assert.NoFileExists(t, path+".3")
}

func TestRotatingWriterRotatesOversizedFileOnOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("x", 20)), 0o644))

	w, err := NewRotatingWriter(path, 10, 3)
	require.NoError(t, err)
	defer w.Close()

	assert.FileExists(t, path+".1")
	st, err := os.Stat(path)
	require.NoError(t, err)
	assert.Zero(t, st.Size())
}

func TestSetupLevelsAndOutput(t *testing.T) {
	defer logrus.SetOutput(os.Stderr)
	defer logrus.SetLevel(logrus.InfoLevel)

	Setup(Options{Level: "debug"})
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())
	assert.Equal(t, io.Discard, logrus.StandardLogger().Out)

	Setup(Options{Level: "nonsense"})
	assert.Equal(t, logrus.InfoLevel, logrus.GetLevel())

	dir := t.TempDir()
	Setup(Options{FileLogging: true, Dir: dir, Level: "info"})
	logrus.WithField("component", "test").Info("hello")
	b, err := os.ReadFile(filepath.Join(dir, LogFileName))
	require.NoError(t, err)
	assert.Contains(t, string(b), "hello")
	assert.Contains(t, string(b), "component=test")
	if c, ok := logrus.StandardLogger().Out.(io.Closer); ok {
		c.Close()
	}
}
