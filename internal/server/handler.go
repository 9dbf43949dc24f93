package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"runtime/debug"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/dreamware/lotto/internal/protocol"
)

// errInternal is reported to a client whose worker panicked.
var errInternal = errors.New("internal error")

// session is the per-connection state a worker carries through the protocol.
type session struct {
	conn      net.Conn
	ctx       context.Context // Ends when conn is closed
	log       *logrus.Entry
	responded bool // A response line has been sent, or its send was attempted
}

// respond sends one response line to the client.
func (c *session) respond(line string) error {
	c.responded = true
	if _, err := protocol.SendAll(c.conn, []byte(line)); err != nil {
		return err
	}
	return nil
}

// readPayload reads the next frame and returns its trimmed text.
func (c *session) readPayload() (string, error) {
	frame, err := protocol.ReadFrame(c.conn)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(frame) {
		return "", fmt.Errorf("%w: payload is not valid UTF-8", protocol.ErrProtocol)
	}
	return strings.TrimSpace(string(frame)), nil
}

// serveConn runs the protocol for one connection and always closes and
// deregisters the connection on the way out.
func (s *Server) serveConn(ctx context.Context, id string, conn net.Conn) {
	c := &session{
		conn: conn,
		ctx:  ctx,
		log: s.log.WithFields(logrus.Fields{
			"client": clientAddr(conn),
			"conn":   id,
		}),
	}

	defer func() {
		if err := conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			c.log.Debugf("action: close_connection | result: fail | error: %v", err)
		}
		s.registry.RemoveConn(id)
		s.metrics.ConnectionClosed()
	}()

	defer func() {
		if r := recover(); r != nil {
			c.log.Errorf("action: handle_connection | result: fail | error: panic: %v\n%s", r, debug.Stack())
			s.replyError(c, errInternal)
		}
	}()

	if err := s.handle(c); err != nil {
		s.fail(c, err)
	}
}

// handle reads the first frame and dispatches on its kind.
func (s *Server) handle(c *session) error {
	payload, err := c.readPayload()
	if err != nil {
		return err
	}

	switch protocol.Classify(payload) {
	case protocol.KindFinished:
		return s.handleFinished(c, payload)
	case protocol.KindQueryWinners:
		return s.handleQueryWinners(c, payload)
	default:
		return s.handleBatch(c, payload)
	}
}

// handleBatch stores one batch and replies SUCCESS|n or FAIL|0.
func (s *Server) handleBatch(c *session, payload string) error {
	bets, err := s.ingest(payload)
	if err != nil {
		c.log.Errorf("action: apuesta_recibida | result: fail | cantidad: 0 | error: %v", err)
		s.metrics.BatchFailed()
		return c.respond(protocol.BatchResponse(false, 0))
	}

	c.log.Infof("action: apuesta_recibida | result: success | cantidad: %d", len(bets))
	s.metrics.BatchStored(len(bets))
	return c.respond(protocol.BatchResponse(true, len(bets)))
}

// handleFinished records the agency as finished, acknowledges it and then
// expects the same connection to carry the agency's winners query.
func (s *Server) handleFinished(c *session, payload string) error {
	agency, err := protocol.ParseAgency(payload)
	if err != nil {
		return err
	}

	if s.barrier.Report(agency) {
		c.log.Infof("action: sorteo | result: success | agencies: %d", s.barrier.Expected())
	}
	finished := s.barrier.Count()
	c.log.Infof("action: agency_finished | result: success | agency: %d | finished: %d/%d",
		agency, finished, s.barrier.Expected())
	s.metrics.AgencyFinished(finished, s.barrier.Released())

	if err := c.respond(protocol.AckResponse); err != nil {
		return err
	}

	if s.shuttingDown.Load() {
		return nil
	}

	next, err := c.readPayload()
	if err != nil {
		return fmt.Errorf("waiting for QUERY_WINNERS after FINISHED: %w", err)
	}
	if kind := protocol.Classify(next); kind != protocol.KindQueryWinners {
		c.log.Warnf("action: consulta_ganadores | result: fail | agency: %d | error: expected QUERY_WINNERS after FINISHED, got %s",
			agency, kind)
		return nil
	}
	return s.handleQueryWinners(c, next)
}

// handleQueryWinners waits for every agency to finish and replies with the
// documents of the requesting agency's winning bets.
func (s *Server) handleQueryWinners(c *session, payload string) error {
	agency, err := protocol.ParseAgency(payload)
	if err != nil {
		return err
	}

	if !s.barrier.Released() {
		c.log.Infof("action: consulta_ganadores | result: in_progress | agency: %d | finished: %d/%d",
			agency, s.barrier.Count(), s.barrier.Expected())
	}
	if err := s.barrier.Wait(c.ctx); err != nil {
		return fmt.Errorf("%w: connection closed while waiting for the draw: %w", protocol.ErrTransport, err)
	}

	documents, err := s.resolveWinners(agency)
	if err != nil {
		return err
	}
	if err := c.respond(protocol.WinnersResponse(documents)); err != nil {
		return err
	}

	c.log.Infof("action: consulta_ganadores | result: success | agency: %d | cant_ganadores: %d", agency, len(documents))
	s.metrics.WinnersAnswered()
	return nil
}

// fail logs a handler error and, when the client has not been answered and
// the connection still works, tries to tell it what went wrong.
func (s *Server) fail(c *session, err error) {
	if errors.Is(err, protocol.ErrFraming) || errors.Is(err, protocol.ErrTransport) {
		if s.shuttingDown.Load() {
			c.log.Debugf("action: handle_connection | result: fail | error: %v", err)
			return
		}
		c.log.Warnf("action: handle_connection | result: fail | error: %v", err)
		return
	}

	c.log.Errorf("action: handle_connection | result: fail | error: %v", err)
	s.replyError(c, err)
}

// replyError sends ERROR|<message> unless a response already went out.
func (s *Server) replyError(c *session, err error) {
	if c.responded {
		return
	}
	if sendErr := c.respond(protocol.ErrorResponse(err.Error())); sendErr != nil {
		c.log.Warnf("action: send_error | result: fail | error: %v", sendErr)
	}
}
