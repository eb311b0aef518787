package history

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/edge-sentinel/agent/cli/cmd"
	"github.com/edge-sentinel/agent/cli/helpers"
	"github.com/edge-sentinel/agent/engine/infra/sqlite"
	"github.com/edge-sentinel/agent/pkg/config"
	"github.com/spf13/cobra"
)

const messageWidth = 60

// NewHistoryCommand creates the history command listing recorded update attempts.
func NewHistoryCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "history",
		Short: "List recorded update attempts, newest first",
		Args:  cobra.NoArgs,
		RunE:  executeHistoryCommand,
	}
	c.Flags().IntP("limit", "n", sqlite.DefaultListLimit, "Maximum number of entries to show")
	return c
}

func executeHistoryCommand(cobraCmd *cobra.Command, args []string) error {
	return cmd.ExecuteCommand(cobraCmd, cmd.ModeHandlers{
		JSON: handleHistoryJSON,
		Text: handleHistoryText,
	}, args)
}

func handleHistoryJSON(ctx context.Context, cobraCmd *cobra.Command, executor *cmd.CommandExecutor, _ []string) error {
	entries, err := listEntries(ctx, cobraCmd, executor.Config())
	if err != nil {
		return err
	}
	return helpers.WriteJSON(cobraCmd.OutOrStdout(), map[string]any{
		"entries": entries,
		"count":   len(entries),
	})
}

func handleHistoryText(ctx context.Context, cobraCmd *cobra.Command, executor *cmd.CommandExecutor, _ []string) error {
	entries, err := listEntries(ctx, cobraCmd, executor.Config())
	if err != nil {
		return err
	}
	return writeTable(cobraCmd.OutOrStdout(), entries, executor.UseColor())
}

func listEntries(ctx context.Context, cobraCmd *cobra.Command, cfg *config.Config) ([]sqlite.Entry, error) {
	limit, err := cobraCmd.Flags().GetInt("limit")
	if err != nil {
		return nil, fmt.Errorf("failed to get limit flag: %w", err)
	}
	if limit <= 0 {
		return nil, helpers.NewCliError("INVALID_LIMIT", "limit must be positive", fmt.Sprintf("provided: %d", limit))
	}
	if !cfg.History.Enabled {
		return nil, helpers.NewCliError("HISTORY_DISABLED", "Update history is disabled")
	}
	db, err := sqlite.NewStore(ctx, &sqlite.Config{Path: cfg.History.Path})
	if err != nil {
		return nil, fmt.Errorf("failed to open update history: %w", err)
	}
	defer db.Close(ctx)
	return sqlite.NewHistoryRepo(db.DB(), cfg.History.Retention).List(ctx, limit)
}

func writeTable(out io.Writer, entries []sqlite.Entry, color bool) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tRESULT\tMODE\tREJECTED\tMESSAGE")
	for i := range entries {
		e := &entries[i]
		rejected := "-"
		if keys := e.Bundle.Rejected(); len(keys) > 0 {
			rejected = fmt.Sprint(keys)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			e.AttemptedAt.Local().Format(time.DateTime),
			helpers.RenderResult(e.Result, color),
			e.Mode,
			rejected,
			helpers.Truncate(e.Message, messageWidth),
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(out, "%d %s\n", len(entries), helpers.Pluralize(len(entries), "entry", "entries"))
	return err
}
