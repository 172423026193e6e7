package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cimalchemist/alchemist/internal/eventlog"
)

// VerifyOptions holds flags for the verify command.
type VerifyOptions struct {
	*RootOptions
	Database string
	Stream   string
}

// VerifyResult holds the outcome of a chain verification pass.
type VerifyResult struct {
	Stream string `json:"stream"`
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &VerifyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Re-derive every event's CID and check the hash chain",
		Long: `Re-derive the content-address of every event committed to a stream and
check each aggregate's previous_cid chain, reporting the first break found
(spec §4.2).

Exit codes:
  0 - chain verifies
  1 - chain break detected
  2 - command error (database not found, etc.)

Example:
  alchemistctl verify --db ./alchemist.db --stream graph`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Stream, "stream", "graph", "stream to verify")

	return cmd
}

func runVerify(opts *VerifyOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	store, err := eventlog.Open(opts.Database, nil)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open event log", err)
	}
	defer store.Close()

	result := VerifyResult{Stream: opts.Stream, Valid: true}
	if err := store.Verify(ctx, opts.Stream); err != nil {
		result.Valid = false
		result.Reason = err.Error()
	}

	if opts.Format == "json" {
		return outputVerifyJSON(cmd, result)
	}
	return outputVerifyText(cmd, result)
}

func outputVerifyJSON(cmd *cobra.Command, result VerifyResult) error {
	response := CLIResponse{Status: "ok", Data: result}
	if !result.Valid {
		response.Status = "error"
		response.Error = &CLIError{Code: "E_CHAIN_BREAK", Message: result.Reason}
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		return err
	}
	if !result.Valid {
		return NewExitError(ExitFailure, "chain verification failed")
	}
	return nil
}

func outputVerifyText(cmd *cobra.Command, result VerifyResult) error {
	w := cmd.OutOrStdout()
	if result.Valid {
		fmt.Fprintf(w, "✓ stream %q verified\n", result.Stream)
		return nil
	}
	fmt.Fprintf(w, "✗ stream %q chain broken: %s\n", result.Stream, result.Reason)
	return NewExitError(ExitFailure, "chain verification failed")
}
