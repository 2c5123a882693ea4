// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Minimal TCP listener/acceptor for examples and scenario tests. The real
// serving path lives above this library; this keeps an in-module peer for
// the connect machinery to talk to.

package tcp

import (
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/rs/zerolog"
)

// ServerConfig holds configuration for the TCP listener.
type ServerConfig struct {
	Addr        string         // TCP address to bind (e.g., "127.0.0.1:0")
	ConnHandler func(net.Conn) // Handler invoked per accepted connection
	Log         zerolog.Logger
}

// Server runs an accept loop on a bound listener.
type Server struct {
	ln      net.Listener
	log     zerolog.Logger
	closed  chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
	handler func(net.Conn)
}

// StartServer opens the listening socket and runs the accept loop in the
// background.
func StartServer(cfg *ServerConfig) (*Server, error) {
	if cfg.ConnHandler == nil {
		return nil, fmt.Errorf("tcp server: nil connection handler")
	}
	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("tcp listen failed: %w", err)
	}
	s := &Server{
		ln:      ln,
		log:     cfg.Log,
		closed:  make(chan struct{}),
		handler: cfg.ConnHandler,
	}
	s.wg.Add(1)
	go s.acceptLoop()
	return s, nil
}

// Addr returns the bound listener address.
func (s *Server) Addr() net.Addr { return s.ln.Addr() }

// Close stops the accept loop and closes the listener.
func (s *Server) Close() error {
	var err error
	s.once.Do(func() {
		close(s.closed)
		err = s.ln.Close()
		s.wg.Wait()
	})
	return err
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			select {
			case <-s.closed:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.log.Error().Err(err).Msg("accept error")
			continue
		}
		s.wg.Add(1)
		go func(c net.Conn) {
			defer s.wg.Done()
			defer func() {
				if r := recover(); r != nil {
					s.log.Error().Interface("panic", r).Msg("panic in connection handler")
				}
			}()
			s.handler(c)
		}(conn)
	}
}
