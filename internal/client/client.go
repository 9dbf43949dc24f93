package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dreamware/lotto/internal/lottery"
	"github.com/dreamware/lotto/internal/protocol"
)

// DefaultDialTimeout bounds how long connecting to the server may take.
const DefaultDialTimeout = 5 * time.Second

// ErrRejected means the server answered a batch with FAIL.
var ErrRejected = errors.New("batch rejected")

// Config configures an agency client.
type Config struct {
	Logger         *logrus.Logger // Defaults to logrus.StandardLogger()
	ServerAddress  string         // host:port of the lottery server
	LoopPeriod     time.Duration  // Pause between batches
	DialTimeout    time.Duration  // Defaults to DefaultDialTimeout
	ID             int            // Agency id, positive
	BatchMaxAmount int            // Most bets per batch; non-positive means no count limit
}

// Client talks to the lottery server on behalf of one agency. Every request
// uses a fresh connection; a Client holds no connection between calls and
// is safe for concurrent use.
type Client struct {
	log    *logrus.Entry
	dialer net.Dialer
	cfg    Config
}

// New validates cfg and returns a client.
func New(cfg Config) (*Client, error) {
	if cfg.ID <= 0 {
		return nil, fmt.Errorf("client: agency id must be positive, got %d", cfg.ID)
	}
	if cfg.ServerAddress == "" {
		return nil, errors.New("client: server address is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = DefaultDialTimeout
	}

	return &Client{
		cfg:    cfg,
		dialer: net.Dialer{Timeout: cfg.DialTimeout},
		log:    cfg.Logger.WithField("client_id", cfg.ID),
	}, nil
}

// Run sends every bet and then collects the agency's winners.
//
// Process:
//  1. Splits bets with CreateBatches
//  2. Sends each batch on its own connection, pausing LoopPeriod between them
//  3. Sends FINISHED and QUERY_WINNERS on one connection
//  4. Blocks until the server answers, which happens once all agencies finish
//
// Cancellation:
//   - Checked before every batch and during the pause between batches
//   - Cancelling while waiting for winners closes the connection
//
// Returns:
//   - Documents of the agency's winning bets
//   - ctx.Err() when cancelled, or the first failure otherwise
func (c *Client) Run(ctx context.Context, bets []lottery.Bet) ([]string, error) {
	batches := CreateBatches(bets, c.cfg.BatchMaxAmount)
	c.log.Infof("action: start_client_loop | result: in_progress | total_bets: %d | total_batches: %d | max_batch_size: %d",
		len(bets), len(batches), c.cfg.BatchMaxAmount)

	for i, batch := range batches {
		if err := ctx.Err(); err != nil {
			c.log.Info("action: shutdown | result: success")
			return nil, err
		}

		if _, err := c.SendBatch(ctx, batch); err != nil {
			c.log.Errorf("action: process_batch | result: fail | batch: %d/%d | error: %v", i+1, len(batches), err)
			return nil, err
		}

		if i < len(batches)-1 && c.cfg.LoopPeriod > 0 {
			timer := time.NewTimer(c.cfg.LoopPeriod)
			select {
			case <-ctx.Done():
				timer.Stop()
				c.log.Info("action: shutdown | result: success")
				return nil, ctx.Err()
			case <-timer.C:
			}
		}
	}
	c.log.Infof("action: loop_finished | result: success | total_bets_processed: %d", len(bets))

	winners, err := c.FinishAndQuery(ctx)
	if err != nil {
		c.log.Errorf("action: consulta_ganadores | result: fail | error: %v", err)
		return nil, err
	}
	c.log.Infof("action: consulta_ganadores | result: success | cant_ganadores: %d", len(winners))
	return winners, nil
}

// SendBatch sends one batch and returns the count the server acknowledged.
// A FAIL answer returns an error wrapping ErrRejected.
func (c *Client) SendBatch(ctx context.Context, bets []lottery.Bet) (int, error) {
	var n int
	err := c.exchange(ctx, func(conn net.Conn, r *bufio.Reader) error {
		if err := protocol.WriteFrame(conn, []byte(protocol.EncodeBatch(bets))); err != nil {
			return err
		}
		line, err := protocol.ReadLine(r)
		if err != nil {
			return err
		}

		success, count, err := protocol.ParseBatchResponse(line)
		if err != nil {
			return err
		}
		if !success {
			return fmt.Errorf("%w: server answered FAIL|%d for %d bets", ErrRejected, count, len(bets))
		}
		n = count
		return nil
	})
	if err != nil {
		return 0, err
	}

	c.log.Infof("action: apuesta_enviada | result: success | bets_count: %d | processed: %d", len(bets), n)
	return n, nil
}

// FinishAndQuery reports that the agency has sent all of its bets and, on
// the same connection, waits for its winners.
func (c *Client) FinishAndQuery(ctx context.Context) ([]string, error) {
	var winners []string
	err := c.exchange(ctx, func(conn net.Conn, r *bufio.Reader) error {
		if err := protocol.WriteFrame(conn, []byte(protocol.FinishedMessage(c.cfg.ID))); err != nil {
			return err
		}
		line, err := protocol.ReadLine(r)
		if err != nil {
			return err
		}
		if err := protocol.ParseAckResponse(line); err != nil {
			return err
		}
		c.log.Info("action: notify_finished | result: success")

		winners, err = c.queryWinners(conn, r)
		return err
	})
	return winners, err
}

// QueryWinners asks for the agency's winners on a fresh connection without
// reporting completion first.
func (c *Client) QueryWinners(ctx context.Context) ([]string, error) {
	var winners []string
	err := c.exchange(ctx, func(conn net.Conn, r *bufio.Reader) error {
		var err error
		winners, err = c.queryWinners(conn, r)
		return err
	})
	return winners, err
}

func (c *Client) queryWinners(conn net.Conn, r *bufio.Reader) ([]string, error) {
	if err := protocol.WriteFrame(conn, []byte(protocol.QueryWinnersMessage(c.cfg.ID))); err != nil {
		return nil, err
	}
	c.log.Debug("action: consulta_ganadores | result: in_progress")

	line, err := protocol.ReadLine(r)
	if err != nil {
		return nil, err
	}
	return protocol.ParseWinnersResponse(line)
}

// exchange dials the server, runs fn on the connection and closes it.
// Cancelling ctx closes the connection, which unblocks fn.
func (c *Client) exchange(ctx context.Context, fn func(conn net.Conn, r *bufio.Reader) error) error {
	conn, err := c.dialer.DialContext(ctx, "tcp", c.cfg.ServerAddress)
	if err != nil {
		c.log.Errorf("action: connect | result: fail | error: %v", err)
		return fmt.Errorf("%w: connecting to %s: %w", protocol.ErrTransport, c.cfg.ServerAddress, err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	if err := fn(conn, bufio.NewReader(conn)); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	return nil
}
