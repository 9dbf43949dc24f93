// Package main implements the lottery server binary.
//
// The server accepts bet batches from a fixed set of agencies over TCP,
// stores them, and answers each agency's winners query once every agency
// has reported that it finished sending bets.
//
// Architecture:
//
//	┌──────────────────────────────────────────┐
//	│             lotto-server                 │
//	├──────────────────────────────────────────┤
//	│  TCP :port       - Agency protocol       │
//	│  HTTP metrics_addr (optional):           │
//	│    /metrics      - Prometheus metrics    │
//	│    /health       - Liveness              │
//	│    /status       - Barrier and clients   │
//	├──────────────────────────────────────────┤
//	│  Components:                             │
//	│    server.Server   - Protocol engine     │
//	│    storage.Store   - Bet persistence     │
//	│    metrics.Metrics - Collectors          │
//	└──────────────────────────────────────────┘
//
// Configuration, later sources win:
//  1. Built-in defaults
//  2. YAML file given by --config
//  3. Environment: SERVER_PORT, SERVER_LISTEN_BACKLOG, EXPECTED_AGENCIES,
//     SHUTDOWN_TIMEOUT, STORAGE_BACKEND, STORAGE_PATH, METRICS_ADDR,
//     LOGGING_LEVEL
//  4. Command-line flags
//
// Example usage:
//
//	EXPECTED_AGENCIES=5 ./lotto-server --port 12345 --metrics-addr :9090
//
// Exit codes:
//   - 0: Normal shutdown via SIGINT or SIGTERM
//   - 1: Invalid configuration, storage or listener failure
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/dreamware/lotto/internal/config"
	"github.com/dreamware/lotto/internal/metrics"
	"github.com/dreamware/lotto/internal/server"
	"github.com/dreamware/lotto/internal/storage"
)

// opsShutdownTimeout bounds the graceful stop of the metrics HTTP server.
const opsShutdownTimeout = 5 * time.Second

func main() {
	os.Exit(execute(os.Args[1:], os.Stderr))
}

// execute runs the root command with args and returns the process exit code.
func execute(args []string, stderr io.Writer) int {
	code := 0
	cmd := newRootCmd(&code)
	cmd.SetArgs(args)
	cmd.SetErr(stderr)
	cmd.SetOut(stderr)

	if err := cmd.Execute(); err != nil {
		return 1
	}
	return code
}

func newRootCmd(exitCode *int) *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:          "lotto-server",
		Short:        "Lottery server: collects agency bets and announces winners",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if err := applyFlags(cmd.Flags(), cfg); err != nil {
				return err
			}
			if err := cfg.Server.Validate(); err != nil {
				return err
			}

			logger, err := cfg.Logging.Logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			code, err := run(ctx, cfg, logger)
			*exitCode = code
			return err
		},
	}

	defaults := config.DefaultConfig()
	flags := cmd.Flags()
	flags.StringVarP(&configPath, "config", "c", "config.yaml", "path to the YAML config file")
	flags.Int("port", defaults.Server.Port, "TCP port agencies connect to")
	flags.Int("listen-backlog", defaults.Server.ListenBacklog, "pending connection queue size")
	flags.Int("expected-agencies", defaults.Server.ExpectedAgencies, "agencies that must finish before winners are announced")
	flags.Duration("shutdown-timeout", defaults.Server.ShutdownTimeout.Std(), "how long shutdown waits for client workers")
	flags.String("storage-backend", defaults.Server.Storage.Backend, "bet store: csv, sqlite or memory")
	flags.String("storage-path", defaults.Server.Storage.Path, "bet store location")
	flags.String("metrics-addr", defaults.Server.MetricsAddr, "address for /metrics, /health and /status (empty disables)")
	flags.String("log-level", defaults.Logging.Level, "DEBUG, INFO, WARN or ERROR")

	return cmd
}

// applyFlags copies explicitly set flags over cfg, so flags win over the
// file and the environment but unset flags do not reset them.
func applyFlags(flags *pflag.FlagSet, cfg *config.Config) error {
	var err error
	set := func(name string, apply func() error) {
		if err == nil && flags.Changed(name) {
			err = apply()
		}
	}

	set("port", func() (e error) { cfg.Server.Port, e = flags.GetInt("port"); return })
	set("listen-backlog", func() (e error) { cfg.Server.ListenBacklog, e = flags.GetInt("listen-backlog"); return })
	set("expected-agencies", func() (e error) { cfg.Server.ExpectedAgencies, e = flags.GetInt("expected-agencies"); return })
	set("shutdown-timeout", func() error {
		d, e := flags.GetDuration("shutdown-timeout")
		cfg.Server.ShutdownTimeout = config.Duration(d)
		return e
	})
	set("storage-backend", func() (e error) { cfg.Server.Storage.Backend, e = flags.GetString("storage-backend"); return })
	set("storage-path", func() (e error) { cfg.Server.Storage.Path, e = flags.GetString("storage-path"); return })
	set("metrics-addr", func() (e error) { cfg.Server.MetricsAddr, e = flags.GetString("metrics-addr"); return })
	set("log-level", func() (e error) { cfg.Logging.Level, e = flags.GetString("log-level"); return })

	if err != nil {
		return fmt.Errorf("reading flags: %w", err)
	}
	return nil
}

// run serves until ctx is cancelled or a component fails, then shuts the
// lottery server down and returns the code its exit action reported.
//
// Process:
//  1. Opens the configured bet store
//  2. Binds the lottery listener with the configured backlog
//  3. Starts the optional ops HTTP server
//  4. On cancellation or failure, runs the server's shutdown sequence
//
// Returns:
//   - The exit code handed to the server's exit action
//   - The first error that stopped the server, if any
func run(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (int, error) {
	store, err := storage.Open(cfg.Server.Storage.Backend, cfg.Server.Storage.Path)
	if err != nil {
		return 1, err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Errorf("action: close_storage | result: fail | error: %v", err)
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	exited := make(chan int, 1)
	srv, err := server.New(server.Config{
		Store:            store,
		Logger:           logger,
		Metrics:          metrics.New(reg),
		Exit:             func(code int) { exited <- code },
		Addr:             fmt.Sprintf(":%d", cfg.Server.Port),
		ListenBacklog:    cfg.Server.ListenBacklog,
		ExpectedAgencies: cfg.Server.ExpectedAgencies,
		ShutdownTimeout:  cfg.Server.ShutdownTimeout.Std(),
	})
	if err != nil {
		return 1, err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(srv.Serve)

	g.Go(func() error {
		<-gctx.Done()
		if ctx.Err() != nil {
			logger.Info("action: receive_signal | result: success")
		}
		srv.Shutdown()
		return nil
	})

	if cfg.Server.MetricsAddr != "" {
		ops := &http.Server{
			Addr:              cfg.Server.MetricsAddr,
			Handler:           newOpsHandler(srv, reg),
			ReadHeaderTimeout: 5 * time.Second,
		}

		g.Go(func() error {
			logger.Infof("action: serve_metrics | result: success | addr: %s", ops.Addr)
			if err := ops.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})

		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), opsShutdownTimeout)
			defer cancel()
			return ops.Shutdown(shutdownCtx)
		})
	}

	err = g.Wait()
	code := <-exited
	if err != nil {
		logger.Errorf("action: run | result: fail | error: %v", err)
		return 1, err
	}
	return code, nil
}
