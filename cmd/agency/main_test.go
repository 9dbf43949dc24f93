package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/lotto/internal/config"
	"github.com/dreamware/lotto/internal/server"
	"github.com/dreamware/lotto/internal/storage"
)

func startServer(t *testing.T, expected int) *server.Server {
	t.Helper()
	logger, _ := test.NewNullLogger()
	srv, err := server.New(server.Config{
		Store:            storage.NewMemoryStore(),
		Logger:           logger,
		Addr:             "127.0.0.1:0",
		ListenBacklog:    5,
		ExpectedAgencies: expected,
		ShutdownTimeout:  time.Second,
	})
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		srv.Serve()
	}()
	t.Cleanup(func() {
		srv.Shutdown()
		<-done
	})
	return srv
}

func writeBets(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "agency.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestApplyFlags(t *testing.T) {
	cmd := newRootCmd()
	require.NoError(t, cmd.Flags().Parse([]string{
		"--id", "4",
		"--server-address", "lotto:1",
		"--loop-period", "250ms",
		"--data-file", "/data/agency-4.csv",
	}))

	cfg := config.DefaultConfig()
	require.NoError(t, applyFlags(cmd.Flags(), cfg))

	assert.Equal(t, 4, cfg.Agency.ID)
	assert.Equal(t, "lotto:1", cfg.Agency.ServerAddress)
	assert.Equal(t, 250*time.Millisecond, cfg.Agency.LoopPeriod.Std())
	assert.Equal(t, "/data/agency-4.csv", cfg.Agency.DataFile)
	assert.Equal(t, config.DefaultConfig().Agency.BatchMaxAmount, cfg.Agency.BatchMaxAmount)
}

func TestExecute(t *testing.T) {
	srv := startServer(t, 1)
	data := writeBets(t, "Ana,Lopez,111,2000-01-01,7574\nBea,Ruiz,222,2001-02-02,1\n")

	var stderr bytes.Buffer
	code := execute([]string{
		"--config", "",
		"--id", "1",
		"--server-address", srv.Addr().String(),
		"--data-file", data,
		"--loop-period", "1ms",
	}, &stderr)

	assert.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stderr.String(), "action: consulta_ganadores | result: success | cant_ganadores: 1")
	assert.True(t, srv.Released())
}

func TestExecuteFailures(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"missing id", []string{"--id", "0"}},
		{"missing data file", []string{"--id", "1", "--data-file", "/nonexistent/agency.csv"}},
		{"bad batch size", []string{"--id", "1", "--batch-max-amount", "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stderr bytes.Buffer
			code := execute(append([]string{"--config", ""}, tt.args...), &stderr)
			assert.Equal(t, 1, code)
			assert.True(t, strings.Contains(stderr.String(), "Error"), stderr.String())
		})
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	data := writeBets(t, "Ana,Lopez,111,2000-01-01,7574\n")
	logger, hook := test.NewNullLogger()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := run(ctx, config.AgencyConfig{
		ServerAddress:  "127.0.0.1:1",
		DataFile:       data,
		ID:             1,
		BatchMaxAmount: 10,
	}, logger)
	assert.NoError(t, err)
	assert.Contains(t, hook.LastEntry().Message, "reason: signal")
}
