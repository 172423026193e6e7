package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cimalchemist/alchemist/internal/aggregate"
	"github.com/cimalchemist/alchemist/internal/config"
	"github.com/cimalchemist/alchemist/internal/eventlog"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Open the event log and verify the chain at startup",
		Long: `Open the Alchemist event log (creating it if it doesn't exist) and,
if ChainVerifyOnStartup is set, verify the graph stream's hash chain
before accepting further work.

Example:
  alchemistctl run --db ./alchemist.db`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemonPreflight(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runDaemonPreflight(opts *RunOptions, cmd *cobra.Command) error {
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid config", err)
	}

	logger.Info("opening event log", "path", opts.Database)
	store, err := eventlog.Open(opts.Database, logger)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open event log", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			logger.Error("error closing event log", "error", closeErr)
		}
	}()

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	if cfg.ChainVerifyOnStartup {
		logger.Info("verifying chain", "stream", aggregate.GraphHandler{}.Domain())
		if err := store.Verify(ctx, aggregate.GraphHandler{}.Domain()); err != nil {
			return WrapExitError(ExitFailure, "chain verification failed", err)
		}
		logger.Info("chain verified")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	fmt.Fprintln(cmd.OutOrStdout(), "Event log ready. Press Ctrl-C to stop.")

	select {
	case sig := <-sigChan:
		logger.Info("received signal, shutting down", "signal", sig)
	case <-ctx.Done():
	}

	logger.Info("stopped gracefully")
	return nil
}
