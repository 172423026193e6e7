package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cimalchemist/alchemist/internal/eventlog"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database  string
	Aggregate string
}

// ReplayResult holds the replay result for one aggregate.
type ReplayResult struct {
	AggregateID   string `json:"aggregate_id"`
	EventCount    int    `json:"event_count"`
	Deterministic bool   `json:"deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay an aggregate's events twice and verify determinism",
		Long: `Re-read an aggregate's full event history twice and compare the two
reads CID-for-CID (scenario S7's determinism guarantee, applied to the
durable log itself rather than to layout).

Exit codes:
  0 - replay is deterministic
  1 - a difference was detected between the two reads
  2 - command error (database not found, etc.)

Example:
  alchemistctl replay --db ./alchemist.db --aggregate g1`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Aggregate, "aggregate", "", "aggregate id to replay (required)")
	_ = cmd.MarkFlagRequired("aggregate")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	store, err := eventlog.Open(opts.Database, nil)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open event log", err)
	}
	defer store.Close()

	first, err := store.ReadAggregate(ctx, opts.Aggregate, 0)
	if err != nil {
		return WrapExitError(ExitCommandError, "first replay failed", err)
	}
	second, err := store.ReadAggregate(ctx, opts.Aggregate, 0)
	if err != nil {
		return WrapExitError(ExitCommandError, "second replay failed", err)
	}

	result := ReplayResult{
		AggregateID:   opts.Aggregate,
		EventCount:    len(first),
		Deterministic: eventSequencesEqual(first, second),
	}

	if opts.Format == "json" {
		return outputReplayJSON(cmd, result)
	}
	return outputReplayText(cmd, result)
}

func eventSequencesEqual(a, b []eventlog.Event) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].CID.String() != b[i].CID.String() {
			return false
		}
		if a[i].Sequence != b[i].Sequence {
			return false
		}
	}
	return true
}

func outputReplayJSON(cmd *cobra.Command, result ReplayResult) error {
	response := CLIResponse{Status: "ok", Data: result}
	if !result.Deterministic {
		response.Status = "error"
		response.Error = &CLIError{Code: "E_DETERMINISM", Message: "determinism verification failed"}
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		return err
	}
	if !result.Deterministic {
		return NewExitError(ExitFailure, "determinism verification failed")
	}
	return nil
}

func outputReplayText(cmd *cobra.Command, result ReplayResult) error {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Aggregate %s: %d event(s)\n", result.AggregateID, result.EventCount)
	if result.Deterministic {
		fmt.Fprintln(w, "✓ replay is deterministic")
		return nil
	}
	fmt.Fprintln(w, "✗ replay is non-deterministic")
	return NewExitError(ExitFailure, "determinism verification failed")
}
