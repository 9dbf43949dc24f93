package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/dreamware/lotto/internal/coordinator"
	"github.com/dreamware/lotto/internal/metrics"
	"github.com/dreamware/lotto/internal/storage"
)

// DefaultShutdownTimeout bounds how long Shutdown waits for workers.
const DefaultShutdownTimeout = 5 * time.Second

// Config configures a Server. Store is required.
type Config struct {
	Store            storage.BetStore
	Logger           *logrus.Logger   // Defaults to logrus.StandardLogger()
	Metrics          *metrics.Metrics // Optional
	Exit             func(code int)   // Called last during shutdown; optional
	Addr             string           // host:port to listen on
	ListenBacklog    int
	ExpectedAgencies int
	ShutdownTimeout  time.Duration // Defaults to DefaultShutdownTimeout
}

// Server is the lottery server. Create it with New, run it with Serve and
// stop it with Shutdown.
type Server struct {
	listener        net.Listener
	store           storage.BetStore
	barrier         *coordinator.Barrier
	registry        *coordinator.Registry
	metrics         *metrics.Metrics
	log             *logrus.Logger
	exit            func(code int)
	done            chan struct{} // Closed when shutdown completes
	acceptDone      chan struct{} // Closed when Serve returns
	shutdownOnce    sync.Once
	shutdownTimeout time.Duration
	serving         atomic.Bool
	shuttingDown    atomic.Bool
}

// New binds the listening socket and returns a server ready to Serve.
func New(cfg Config) (*Server, error) {
	if cfg.Store == nil {
		return nil, errors.New("server: no bet store configured")
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Exit == nil {
		cfg.Exit = func(int) {}
	}

	ln, err := listen(cfg.Addr, cfg.ListenBacklog)
	if err != nil {
		return nil, fmt.Errorf("server: listening on %s: %w", cfg.Addr, err)
	}
	cfg.Logger.Infof("action: listen | result: success | addr: %s | backlog: %d | expected_agencies: %d",
		ln.Addr(), cfg.ListenBacklog, cfg.ExpectedAgencies)

	return &Server{
		listener:        ln,
		store:           storage.Synchronize(cfg.Store),
		barrier:         coordinator.NewBarrier(cfg.ExpectedAgencies),
		registry:        coordinator.NewRegistry(),
		metrics:         cfg.Metrics,
		log:             cfg.Logger,
		exit:            cfg.Exit,
		done:            make(chan struct{}),
		acceptDone:      make(chan struct{}),
		shutdownTimeout: cfg.ShutdownTimeout,
	}, nil
}

// Serve accepts connections until Shutdown is called, handing each one to
// its own worker. It returns nil after a shutdown and an error if the
// listener fails for any other reason. Serve may only be called once.
func (s *Server) Serve() error {
	if !s.serving.CompareAndSwap(false, true) {
		return errors.New("server: already serving")
	}
	defer close(s.acceptDone)

	var tempDelay time.Duration

	for !s.shuttingDown.Load() {
		s.log.Debug("action: accept_connections | result: in_progress")

		conn, err := s.listener.Accept()
		if err != nil {
			if s.shuttingDown.Load() {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return fmt.Errorf("server: listener closed: %w", err)
			}

			// Back off on repeated failures such as running out of file descriptors.
			if tempDelay == 0 {
				tempDelay = 5 * time.Millisecond
			} else {
				tempDelay = min(2*tempDelay, time.Second)
			}
			s.log.Errorf("action: accept_connections | result: fail | error: %v | retry_in: %v", err, tempDelay)
			time.Sleep(tempDelay)
			continue
		}
		tempDelay = 0

		s.accept(conn)
	}
	return nil
}

// accept registers conn and starts its worker. A connection accepted after
// shutdown began is closed without a worker.
func (s *Server) accept(conn net.Conn) {
	id := uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())
	tracked := &trackedConn{Conn: conn, cancel: cancel}

	s.registry.AddConn(id, tracked)
	s.metrics.ConnectionOpened()
	s.log.Infof("action: accept_connections | result: success | ip: %s | conn: %s", clientAddr(conn), id)

	// Shutdown may have taken its snapshot just before AddConn.
	if s.shuttingDown.Load() {
		if err := tracked.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			s.log.Debugf("action: close_connection | result: fail | conn: %s | error: %v", id, err)
		}
		s.registry.RemoveConn(id)
		s.metrics.ConnectionClosed()
		return
	}

	s.registry.Go(id, func() {
		s.serveConn(ctx, id, tracked)
	})

	if pruned := s.registry.Prune(); pruned > 0 {
		s.log.Debugf("action: prune_workers | result: success | pruned: %d", pruned)
	}
}

// Addr returns the address the server listens on.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// FinishedAgencies returns the agencies that reported completion, ascending.
func (s *Server) FinishedAgencies() []int {
	return s.barrier.Finished()
}

// Released reports whether every expected agency has finished.
func (s *Server) Released() bool {
	return s.barrier.Released()
}

// ActiveConnections returns the number of open client connections.
func (s *Server) ActiveConnections() int {
	return s.registry.ConnCount()
}

// ShuttingDown reports whether Shutdown has been called.
func (s *Server) ShuttingDown() bool {
	return s.shuttingDown.Load()
}

// Done returns a channel closed once Shutdown has finished, exit action included.
func (s *Server) Done() <-chan struct{} {
	return s.done
}

// trackedConn ties a connection to the context its worker waits on.
// Closing the connection ends that context, which is what unblocks a
// worker parked on the barrier.
type trackedConn struct {
	net.Conn
	cancel    context.CancelFunc
	closeOnce sync.Once
	closeErr  error
}

func (c *trackedConn) Close() error {
	c.closeOnce.Do(func() {
		c.cancel()
		c.closeErr = c.Conn.Close()
	})
	return c.closeErr
}

// clientAddr renders the remote address for logs.
func clientAddr(conn net.Conn) string {
	if conn == nil {
		return "unknown"
	}
	addr := conn.RemoteAddr()
	if addr == nil {
		return "unknown"
	}
	return addr.String()
}
