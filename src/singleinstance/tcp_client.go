package singleinstance

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// Delegate looks for a resident and sends it cmd. It reports delegated=false,
// err=nil when no resident answers.
func Delegate(ctx context.Context, cmd Command) (delegated bool, err error) {
	timeout := 300 * time.Millisecond
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d > 0 && d < timeout {
			timeout = d
		}
	}

	start, end := getPortRange()
	for port := start; port <= end; port++ {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		addr := net.JoinHostPort(residentHost, strconv.Itoa(port))
		if reply, err := roundTrip(addr, pingRequest, timeout); err != nil || reply != pongResponse {
			continue
		}
		reply, err := roundTrip(addr, string(cmd), time.Second)
		if err != nil {
			return true, fmt.Errorf("send %s: %w", cmd, err)
		}
		if msg, ok := strings.CutPrefix(reply, errorPrefix); ok {
			return true, fmt.Errorf("%w: %s", ErrRejected, msg)
		}
		return true, nil
	}
	return false, nil
}

func roundTrip(addr, line string, timeout time.Duration) (string, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return "", err
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(timeout))
	if _, err := conn.Write([]byte(line + "\n")); err != nil {
		return "", err
	}
	reply, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(reply, "\n"), nil
}
