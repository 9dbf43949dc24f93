package client

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/lotto/internal/protocol"
)

// fakeServer answers every frame the way the lottery server would once all
// agencies have finished, and records what it received.
type fakeServer struct {
	ln      net.Listener
	frames  []string
	wg      sync.WaitGroup
	mu      sync.Mutex
	winners string        // Response line to QUERY_WINNERS
	batch   string        // Response line to batches; empty means SUCCESS|n
	hold    chan struct{} // When set, QUERY_WINNERS waits for it
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := &fakeServer{ln: ln, winners: "WINNERS|111|222\n"}
	t.Cleanup(func() {
		ln.Close()
		if s.hold != nil {
			select {
			case <-s.hold:
			default:
				close(s.hold)
			}
		}
		s.wg.Wait()
	})
	return s
}

func (s *fakeServer) start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.ln.Accept()
			if err != nil {
				return
			}
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				defer conn.Close()
				s.serve(conn)
			}()
		}
	}()
}

func (s *fakeServer) serve(conn net.Conn) {
	for {
		frame, err := protocol.ReadFrame(conn)
		if err != nil {
			return
		}
		payload := string(frame)

		s.mu.Lock()
		s.frames = append(s.frames, payload)
		s.mu.Unlock()

		switch protocol.Classify(payload) {
		case protocol.KindFinished:
			protocol.SendAll(conn, []byte(protocol.AckResponse))
		case protocol.KindQueryWinners:
			if s.hold != nil {
				<-s.hold
			}
			protocol.SendAll(conn, []byte(s.winners))
			return
		default:
			resp := s.batch
			if resp == "" {
				bets, err := protocol.DecodeBatch(strings.TrimSpace(payload))
				resp = protocol.BatchResponse(err == nil, len(bets))
			}
			protocol.SendAll(conn, []byte(resp))
			return
		}
	}
}

func (s *fakeServer) received() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.frames...)
}

func newTestClient(t *testing.T, addr string, maxAmount int) (*Client, *test.Hook) {
	t.Helper()
	logger, hook := test.NewNullLogger()
	c, err := New(Config{
		Logger:         logger,
		ServerAddress:  addr,
		ID:             1,
		BatchMaxAmount: maxAmount,
		LoopPeriod:     time.Millisecond,
	})
	require.NoError(t, err)
	return c, hook
}

func TestNewValidates(t *testing.T) {
	_, err := New(Config{ServerAddress: "localhost:1"})
	assert.Error(t, err)

	_, err = New(Config{ID: 1})
	assert.Error(t, err)
}

func TestSendBatch(t *testing.T) {
	srv := newFakeServer(t)
	srv.start()
	c, _ := newTestClient(t, srv.ln.Addr().String(), 0)

	bets := makeBets(t, 2, 3)
	n, err := c.SendBatch(context.Background(), bets)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	frames := srv.received()
	require.Len(t, frames, 1)
	assert.Equal(t, protocol.EncodeBatch(bets), frames[0])
}

func TestSendBatchRejected(t *testing.T) {
	srv := newFakeServer(t)
	srv.batch = "FAIL|0\n"
	srv.start()
	c, _ := newTestClient(t, srv.ln.Addr().String(), 0)

	_, err := c.SendBatch(context.Background(), makeBets(t, 1, 3))
	assert.ErrorIs(t, err, ErrRejected)
}

func TestFinishAndQuery(t *testing.T) {
	srv := newFakeServer(t)
	srv.start()
	c, _ := newTestClient(t, srv.ln.Addr().String(), 0)

	winners, err := c.FinishAndQuery(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"111", "222"}, winners)
	assert.Equal(t, []string{"FINISHED|1", "QUERY_WINNERS|1"}, srv.received())
}

func TestQueryWinners(t *testing.T) {
	srv := newFakeServer(t)
	srv.winners = "WINNERS|\n"
	srv.start()
	c, _ := newTestClient(t, srv.ln.Addr().String(), 0)

	winners, err := c.QueryWinners(context.Background())
	require.NoError(t, err)
	assert.Empty(t, winners)
	assert.Equal(t, []string{"QUERY_WINNERS|1"}, srv.received())
}

func TestQueryWinnersServerError(t *testing.T) {
	srv := newFakeServer(t)
	srv.winners = "ERROR|storage error: disk gone\n"
	srv.start()
	c, _ := newTestClient(t, srv.ln.Addr().String(), 0)

	_, err := c.QueryWinners(context.Background())
	assert.ErrorIs(t, err, protocol.ErrServer)
}

func TestRun(t *testing.T) {
	srv := newFakeServer(t)
	srv.start()
	c, hook := newTestClient(t, srv.ln.Addr().String(), 2)

	winners, err := c.Run(context.Background(), makeBets(t, 5, 3))
	require.NoError(t, err)
	assert.Equal(t, []string{"111", "222"}, winners)

	frames := srv.received()
	require.Len(t, frames, 5)
	for _, f := range frames[:3] {
		assert.Equal(t, protocol.KindBatch, protocol.Classify(f))
	}
	assert.Equal(t, []string{"FINISHED|1", "QUERY_WINNERS|1"}, frames[3:])

	var found bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.InfoLevel && strings.Contains(e.Message, "action: consulta_ganadores | result: success | cant_ganadores: 2") {
			found = true
		}
	}
	assert.True(t, found, "expected the winners log line")
}

func TestRunCancelled(t *testing.T) {
	srv := newFakeServer(t)
	srv.start()
	c, _ := newTestClient(t, srv.ln.Addr().String(), 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Run(ctx, makeBets(t, 3, 3))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, srv.received())
}

func TestCancelWhileWaitingForWinners(t *testing.T) {
	srv := newFakeServer(t)
	srv.hold = make(chan struct{})
	srv.start()
	c, _ := newTestClient(t, srv.ln.Addr().String(), 0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := c.FinishAndQuery(ctx)
		done <- err
	}()

	require.Eventually(t, func() bool {
		return len(srv.received()) == 2
	}, 5*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("FinishAndQuery did not return after cancel")
	}
	close(srv.hold)
}

func TestConnectFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	c, _ := newTestClient(t, addr, 0)
	_, err = c.SendBatch(context.Background(), makeBets(t, 1, 3))
	assert.ErrorIs(t, err, protocol.ErrTransport)
}
