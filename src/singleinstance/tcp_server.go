package singleinstance

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Server is the resident's endpoint.
type Server struct {
	handler Handler
	log     *logrus.Entry

	mu   sync.Mutex
	lis  net.Listener
	port int
	wg   sync.WaitGroup
}

func NewServer(handler Handler) *Server {
	return &Server{handler: handler, log: logrus.WithField("component", "singleinstance")}
}

// Start binds the first free port of the configured range and serves until ctx ends or Close.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lis != nil {
		return nil
	}

	start, end := getPortRange()
	var lastErr error
	for port := start; port <= end; port++ {
		lis, err := net.Listen("tcp", fmt.Sprintf("%s:%d", residentHost, port))
		if err != nil {
			lastErr = err
			continue
		}
		s.lis = lis
		s.port = port
		s.log.Infof("listening on %s", lis.Addr())
		s.wg.Add(1)
		go s.acceptLoop(lis)
		go func() {
			<-ctx.Done()
			_ = s.Close()
		}()
		return nil
	}
	return fmt.Errorf("no free port in %d-%d: %w", start, end, lastErr)
}

// Port returns the bound port (0 if not started).
func (s *Server) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port
}

func (s *Server) acceptLoop(lis net.Listener) {
	defer s.wg.Done()
	for {
		c, err := lis.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				s.log.Warnf("accept: %v", err)
			}
			return
		}
		s.serve(c)
	}
}

func (s *Server) serve(c net.Conn) {
	defer c.Close()
	_ = c.SetDeadline(time.Now().Add(3 * time.Second))

	line, err := bufio.NewReader(c).ReadString('\n')
	if err != nil {
		return
	}
	reply := okResponse
	if line == pingRequest+"\n" {
		reply = pongResponse
	} else if cmd, err := parseCommand(line); err != nil {
		reply = errorPrefix + err.Error()
	} else if err := s.handler(cmd); err != nil {
		reply = errorPrefix + err.Error()
	} else {
		s.log.Infof("%s from %s", cmd, c.RemoteAddr())
	}
	_, _ = c.Write([]byte(reply + "\n"))
}

func (s *Server) Close() error {
	s.mu.Lock()
	lis := s.lis
	s.lis = nil
	s.mu.Unlock()
	if lis == nil {
		return nil
	}
	err := lis.Close()
	s.wg.Wait()
	return err
}
