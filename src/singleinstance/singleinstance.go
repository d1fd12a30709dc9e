// Package singleinstance keeps one resident SnipText per user session. Later
// launches find the resident over TCP loopback and hand their command to it.
package singleinstance

import (
	"errors"
	"fmt"
	"strings"
)

// Command is what a later launch asks the resident to do.
type Command string

const (
	CommandShow    Command = "SHOW"
	CommandCapture Command = "CAPTURE"
)

const (
	residentHost = "127.0.0.1"
	pingRequest  = "PING"
	pongResponse = "PONG"
	okResponse   = "OK"
	errorPrefix  = "ERROR "
)

// ErrRejected wraps a resident's refusal, for example while it is busy.
var ErrRejected = errors.New("resident rejected command")

// Handler runs a command in the resident. It must return quickly.
type Handler func(cmd Command) error

func parseCommand(line string) (Command, error) {
	switch c := Command(strings.TrimSpace(line)); c {
	case CommandShow, CommandCapture:
		return c, nil
	default:
		return "", fmt.Errorf("unknown command %q", strings.TrimSpace(line))
	}
}
