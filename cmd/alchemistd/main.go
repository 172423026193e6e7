// Command alchemistd is the Alchemist control-plane daemon: it opens the
// durable event log, relays committed events onto the transport, and runs
// the graph-summary projection. Interactive rendering and AI-assisted
// editing (spec §6) live outside this process; alchemistd only owns the
// async, durable side.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/cimalchemist/alchemist/internal/config"
	"github.com/cimalchemist/alchemist/internal/eventlog"
	"github.com/cimalchemist/alchemist/internal/projection"
	"github.com/cimalchemist/alchemist/internal/transport"
)

func main() {
	var (
		dbPath   string
		natsURL  string
		streamNm string
		verbose  bool
	)

	cmd := &cobra.Command{
		Use:   "alchemistd",
		Short: "alchemistd - the Alchemist control-plane daemon",
		Long: `Runs the durable event log's outbox relay and the graph-summary
projection. With --nats-url unset, events are relayed over an in-process
transport suitable for single-node operation and tests.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), dbPath, natsURL, streamNm, verbose)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "path to SQLite event log (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&natsURL, "nats-url", "", "NATS server URL (empty uses an in-process transport)")
	cmd.Flags().StringVar(&streamNm, "stream", "graph", "stream to relay and project")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "alchemistd:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, dbPath, natsURL, streamName string, verbose bool) error {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	instanceID := uuid.NewString()
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})).With("instance_id", instanceID)

	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("alchemistd: invalid config: %w", err)
	}

	store, err := eventlog.Open(dbPath, log)
	if err != nil {
		return fmt.Errorf("alchemistd: open event log: %w", err)
	}
	defer store.Close()

	if cfg.ChainVerifyOnStartup {
		if err := store.Verify(ctx, streamName); err != nil {
			log.Error("chain verification failed at startup", "event", "chain_break", "stream", streamName, "error", err)
			return fmt.Errorf("alchemistd: startup chain verify: %w", err)
		}
		log.Info("chain verified at startup", "stream", streamName)
	}

	var tr transport.Transport
	if natsURL == "" {
		tr = transport.NewMemoryTransport()
		log.Info("using in-process transport")
	} else {
		nt, err := transport.Dial(natsURL, streamName, []string{"events.domain.graph.>"})
		if err != nil {
			return fmt.Errorf("alchemistd: dial nats: %w", err)
		}
		tr = nt
		log.Info("connected to NATS", "url", natsURL)
	}
	defer tr.Close()

	if err := relayPending(ctx, store, tr, streamName, log); err != nil {
		return fmt.Errorf("alchemistd: outbox relay: %w", err)
	}

	proj := projection.GraphSummary{}
	rt := projection.New(store, tr, proj, projection.Config{
		MaxApplyAttempts: cfg.MaxApplyAttempts,
		BaseBackoff:      cfg.ApplyRetryBaseBackoff,
	}, log)

	log.Info("alchemistd ready", "db", dbPath, "stream", streamName)
	if err := rt.Run(ctx); err != nil && ctx.Err() == nil {
		var halted *projection.Halted
		if errors.As(err, &halted) {
			log.Error("projection halted", "event", "projection_halted", "name", proj.Name(), "error", err)
		}
		return err
	}
	log.Info("alchemistd shutting down")
	return nil
}

// relayPending publishes any committed events whose outbox row is not yet
// marked published, resuming the crash-recovery window spec §4.2 leaves
// open between an event's commit and its confirmed publication.
func relayPending(ctx context.Context, store *eventlog.Store, tr transport.Transport, streamName string, log *slog.Logger) error {
	pending, err := store.PendingEvents(ctx, 1000)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}
	wanted := make(map[string]bool, len(pending))
	for _, pe := range pending {
		wanted[pe.CID] = true
	}

	events, err := store.Read(ctx, streamName, -1, 100000)
	if err != nil {
		return err
	}
	for _, ev := range events {
		if !wanted[ev.CID.String()] {
			continue
		}
		if err := tr.Publish(ctx, ev.Subject, ev); err != nil {
			return fmt.Errorf("publish %s: %w", ev.CID.String(), err)
		}
		if err := store.MarkPublished(ctx, ev.CID.String()); err != nil {
			return fmt.Errorf("mark published %s: %w", ev.CID.String(), err)
		}
		log.Debug("relayed pending event", "cid", ev.CID.String(), "subject", ev.Subject)
	}
	return nil
}
