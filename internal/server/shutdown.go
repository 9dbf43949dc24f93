package server

import (
	"errors"
	"net"
	"time"
)

// Shutdown stops the server: it closes the listener and every client
// connection, joins the workers within the shutdown timeout and finally
// calls the exit action with status 0. Only the first call does anything;
// later calls return immediately. It is safe to call from a signal handler
// goroutine.
func (s *Server) Shutdown() {
	s.shutdownOnce.Do(s.shutdown)
}

func (s *Server) shutdown() {
	defer close(s.done)

	s.shuttingDown.Store(true)

	s.log.Info("action: shutdown_listener | result: in_progress")
	if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		s.log.Errorf("action: shutdown_listener | result: fail | error: %v", err)
	} else {
		s.log.Info("action: shutdown_listener | result: success")
	}
	s.waitAcceptLoop()

	conns := s.registry.Conns()
	s.log.Infof("action: shutdown_clients | result: in_progress | clients: %d", len(conns))
	for _, conn := range conns {
		if err := conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			s.log.Errorf("action: shutdown_client | result: fail | error: %v", err)
		}
	}
	s.log.Info("action: shutdown_clients | result: success")

	if stuck := s.registry.JoinAll(s.shutdownTimeout); len(stuck) > 0 {
		s.log.Warnf("action: join_workers | result: fail | timeout: %v | stuck: %v", s.shutdownTimeout, stuck)
	} else {
		s.log.Info("action: join_workers | result: success")
	}

	s.log.Info("action: exit | result: success")
	s.exit(0)
}

// waitAcceptLoop waits for a running Serve to return, so no worker starts
// after JoinAll takes its snapshot.
func (s *Server) waitAcceptLoop() {
	if !s.serving.Load() {
		return
	}
	timer := time.NewTimer(s.shutdownTimeout)
	defer timer.Stop()

	select {
	case <-s.acceptDone:
	case <-timer.C:
		s.log.Warnf("action: shutdown_listener | result: fail | error: accept loop still running after %v", s.shutdownTimeout)
	}
}
