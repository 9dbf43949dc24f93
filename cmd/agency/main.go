// Package main implements the agency client binary.
//
// An agency reads its bets from a CSV file, sends them to the lottery
// server in batches, reports that it has finished and prints how many of
// its bets won once the server announces the draw.
//
// Configuration, later sources win:
//  1. Built-in defaults
//  2. YAML file given by --config (agency section)
//  3. Environment: CLI_ID, CLI_SERVER_ADDRESS, CLI_BATCH_MAXAMOUNT,
//     CLI_LOOP_PERIOD, CLI_DATA_FILE, LOGGING_LEVEL
//  4. Command-line flags
//
// Example usage:
//
//	CLI_ID=1 ./lotto-agency --server-address localhost:12345 --data-file agency-1.csv
//
// Exit codes:
//   - 0: Winners received, or stopped by SIGINT or SIGTERM
//   - 1: Invalid configuration, unreadable bet file or server failure
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/dreamware/lotto/internal/client"
	"github.com/dreamware/lotto/internal/config"
)

func main() {
	os.Exit(execute(os.Args[1:], os.Stderr))
}

// execute runs the root command with args and returns the process exit code.
func execute(args []string, stderr io.Writer) int {
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetErr(stderr)
	cmd.SetOut(stderr)

	if err := cmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:          "lotto-agency",
		Short:        "Agency client: submits bets and asks for the agency's winners",
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
			if err := cfg.Agency.Validate(); err != nil {
				return err
			}

			logger, err := cfg.Logging.Logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return run(ctx, cfg.Agency, logger)
		},
	}

	defaults := config.DefaultConfig()
	flags := cmd.Flags()
	flags.StringVarP(&configPath, "config", "c", "config.yaml", "path to the YAML config file")
	flags.Int("id", defaults.Agency.ID, "agency id")
	flags.String("server-address", defaults.Agency.ServerAddress, "lottery server host:port")
	flags.Int("batch-max-amount", defaults.Agency.BatchMaxAmount, "most bets per batch")
	flags.Duration("loop-period", defaults.Agency.LoopPeriod.Std(), "pause between batches")
	flags.String("data-file", defaults.Agency.DataFile, "CSV file with the agency's bets")
	flags.String("log-level", defaults.Logging.Level, "DEBUG, INFO, WARN or ERROR")

	return cmd
}

// applyFlags copies explicitly set flags over cfg.
func applyFlags(flags *pflag.FlagSet, cfg *config.Config) error {
	var err error
	set := func(name string, apply func() error) {
		if err == nil && flags.Changed(name) {
			err = apply()
		}
	}

	set("id", func() (e error) { cfg.Agency.ID, e = flags.GetInt("id"); return })
	set("server-address", func() (e error) { cfg.Agency.ServerAddress, e = flags.GetString("server-address"); return })
	set("batch-max-amount", func() (e error) { cfg.Agency.BatchMaxAmount, e = flags.GetInt("batch-max-amount"); return })
	set("loop-period", func() error {
		d, e := flags.GetDuration("loop-period")
		cfg.Agency.LoopPeriod = config.Duration(d)
		return e
	})
	set("data-file", func() (e error) { cfg.Agency.DataFile, e = flags.GetString("data-file"); return })
	set("log-level", func() (e error) { cfg.Logging.Level, e = flags.GetString("log-level"); return })

	if err != nil {
		return fmt.Errorf("reading flags: %w", err)
	}
	return nil
}

// run loads the agency's bets, submits them and waits for the winners.
// Being stopped by a signal is a clean exit.
func run(ctx context.Context, cfg config.AgencyConfig, logger *logrus.Logger) error {
	bets, err := client.LoadBets(cfg.DataFile, cfg.ID)
	if err != nil {
		logger.Errorf("action: load_bets | result: fail | client_id: %d | error: %v", cfg.ID, err)
		return err
	}
	logger.Infof("action: load_bets | result: success | client_id: %d | bets: %d", cfg.ID, len(bets))

	c, err := client.New(client.Config{
		Logger:         logger,
		ServerAddress:  cfg.ServerAddress,
		LoopPeriod:     cfg.LoopPeriod.Std(),
		ID:             cfg.ID,
		BatchMaxAmount: cfg.BatchMaxAmount,
	})
	if err != nil {
		return err
	}

	if _, err := c.Run(ctx, bets); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Infof("action: exit | result: success | client_id: %d | reason: signal", cfg.ID)
			return nil
		}
		return err
	}

	logger.Infof("action: exit | result: success | client_id: %d", cfg.ID)
	return nil
}
