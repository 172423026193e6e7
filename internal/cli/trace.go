package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cimalchemist/alchemist/internal/eventlog"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database  string
	Aggregate string
}

// TraceEvent is a single event in an aggregate's timeline.
type TraceEvent struct {
	Sequence      int64  `json:"sequence"`
	Kind          string `json:"kind"`
	CID           string `json:"cid"`
	CorrelationID string `json:"correlation_id"`
	CausationID   string `json:"causation_id,omitempty"`
}

// ProvenanceEdge links a causing event to the event it caused, derived
// from matching causation_id against another event's cid.
type ProvenanceEdge struct {
	FromCID string `json:"from_cid"`
	ToCID   string `json:"to_cid"`
}

// TraceResult holds the complete trace output for one aggregate.
type TraceResult struct {
	AggregateID string           `json:"aggregate_id"`
	Timeline    []TraceEvent     `json:"timeline"`
	Provenance  []ProvenanceEdge `json:"provenance"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show an aggregate's event timeline and causal provenance",
		Long: `Show the chronological event timeline for an aggregate, and the
causal edges between events: an edge from event A to event B exists when
B's causation_id matches A's cid (spec §4.2's envelope fields).

Example:
  alchemistctl trace --db ./alchemist.db --aggregate g1`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Aggregate, "aggregate", "", "aggregate id to trace (required)")
	_ = cmd.MarkFlagRequired("aggregate")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	store, err := eventlog.Open(opts.Database, nil)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open event log", err)
	}
	defer store.Close()

	events, err := store.ReadAggregate(ctx, opts.Aggregate, 0)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read aggregate", err)
	}

	result := TraceResult{AggregateID: opts.Aggregate}
	byCID := make(map[string]eventlog.Event, len(events))
	for _, ev := range events {
		result.Timeline = append(result.Timeline, TraceEvent{
			Sequence:      ev.Sequence,
			Kind:          lastSubjectSegment(ev.Subject),
			CID:           ev.CID.String(),
			CorrelationID: ev.CorrelationID,
			CausationID:   ev.CausationID,
		})
		byCID[ev.CID.String()] = ev
	}
	for _, ev := range events {
		if ev.CausationID == "" {
			continue
		}
		if _, ok := byCID[ev.CausationID]; ok {
			result.Provenance = append(result.Provenance, ProvenanceEdge{
				FromCID: ev.CausationID,
				ToCID:   ev.CID.String(),
			})
		}
	}

	if opts.Format == "json" {
		return outputTraceJSON(cmd, result)
	}
	return outputTraceText(cmd, result)
}

func lastSubjectSegment(subject string) string {
	parts := strings.Split(subject, ".")
	return parts[len(parts)-1]
}

func outputTraceJSON(cmd *cobra.Command, result TraceResult) error {
	response := CLIResponse{Status: "ok", Data: result}
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(response)
}

func outputTraceText(cmd *cobra.Command, result TraceResult) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Trace for aggregate: %s\n\n", result.AggregateID)

	fmt.Fprintln(w, "=== Timeline ===")
	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "  (no events)")
	} else {
		for _, ev := range result.Timeline {
			fmt.Fprintf(w, "  [%d] %s  cid=%s\n", ev.Sequence, ev.Kind, truncateID(ev.CID))
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Provenance ===")
	if len(result.Provenance) == 0 {
		fmt.Fprintln(w, "  (no causal relationships)")
	} else {
		for _, edge := range result.Provenance {
			fmt.Fprintf(w, "  %s -> %s\n", truncateID(edge.FromCID), truncateID(edge.ToCID))
		}
	}

	return nil
}

// truncateID truncates a long CID for display.
func truncateID(id string) string {
	if len(id) <= 16 {
		return id
	}
	return id[:8] + "..." + id[len(id)-8:]
}
