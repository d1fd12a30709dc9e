package singleinstance

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// usePorts points the range at a narrow window so parallel packages do not collide.
func usePorts(t *testing.T, start, end int) {
	t.Setenv("SNIPTEXT_PORT_START", strconv.Itoa(start))
	t.Setenv("SNIPTEXT_PORT_END", strconv.Itoa(end))
}

func TestPortRange(t *testing.T) {
	usePorts(t, 70000, 80)
	start, end := getPortRange()
	assert.Equal(t, 1024, start)
	assert.Equal(t, 65535, end)

	t.Setenv("SNIPTEXT_PORT_START", "junk")
	t.Setenv("SNIPTEXT_PORT_END", "")
	start, end = getPortRange()
	assert.Equal(t, defaultPortStart, start)
	assert.Equal(t, defaultPortEnd, end)
}

func TestParseCommand(t *testing.T) {
	c, err := parseCommand("CAPTURE\n")
	require.NoError(t, err)
	assert.Equal(t, CommandCapture, c)
	_, err = parseCommand("REBOOT\n")
	assert.Error(t, err)
}

func TestNoResidentMeansNotDelegated(t *testing.T) {
	usePorts(t, 49731, 49732)
	delegated, err := Delegate(context.Background(), CommandShow)
	assert.NoError(t, err)
	assert.False(t, delegated)
}

func TestDelegateToResident(t *testing.T) {
	usePorts(t, 49741, 49743)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var mu sync.Mutex
	var got []Command
	srv := NewServer(func(cmd Command) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, cmd)
		return nil
	})
	if err := srv.Start(ctx); err != nil {
		t.Skipf("loopback unavailable in this environment: %v", err)
	}
	defer srv.Close()
	assert.NotZero(t, srv.Port())

	delegated, err := Delegate(ctx, CommandCapture)
	require.NoError(t, err)
	assert.True(t, delegated)

	mu.Lock()
	assert.Equal(t, []Command{CommandCapture}, got)
	mu.Unlock()
}

func TestResidentRejection(t *testing.T) {
	usePorts(t, 49751, 49752)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	srv := NewServer(func(Command) error { return errors.New("busy") })
	if err := srv.Start(ctx); err != nil {
		t.Skipf("loopback unavailable in this environment: %v", err)
	}
	defer srv.Close()

	delegated, err := Delegate(ctx, CommandCapture)
	assert.True(t, delegated)
	assert.ErrorIs(t, err, ErrRejected)
	assert.Contains(t, err.Error(), "busy")
}

func TestSecondServerTakesNextPort(t *testing.T) {
	usePorts(t, 49761, 49762)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first := NewServer(func(Command) error { return nil })
	if err := first.Start(ctx); err != nil {
		t.Skipf("loopback unavailable in this environment: %v", err)
	}
	defer first.Close()
	second := NewServer(func(Command) error { return nil })
	if err := second.Start(ctx); err != nil {
		t.Skipf("second port unavailable: %v", err)
	}
	defer second.Close()

	assert.NotEqual(t, first.Port(), second.Port())
	assert.NoError(t, first.Close())
	assert.NoError(t, first.Close())
}
