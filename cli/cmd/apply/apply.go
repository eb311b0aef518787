package apply

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/edge-sentinel/agent/cli/cmd"
	"github.com/edge-sentinel/agent/cli/helpers"
	"github.com/edge-sentinel/agent/engine/infra/sqlite"
	"github.com/edge-sentinel/agent/engine/twinconfig"
	"github.com/edge-sentinel/agent/pkg/config"
	"github.com/edge-sentinel/agent/pkg/logger"
	"github.com/spf13/cobra"
)

// NewApplyCommand creates the apply command which runs one update against a
// fresh store and reports the outcome.
func NewApplyCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "apply",
		Short: "Apply a twin document once and report the outcome",
		Long: `Apply a twin document to a fresh configuration store and print the outcome,
the per-field statuses and the reported configuration. Use "-" to read stdin.
The command fails when the document is not applied.`,
		Args: cobra.NoArgs,
		RunE: executeApplyCommand,
	}
	c.Flags().StringP("file", "f", "", "Twin document to apply, or - for stdin")
	c.Flags().String("mode", "", "Update mode (complete, patch); defaults to twin.mode")
	c.Flags().Bool("record", false, "Append the outcome to the update history")
	return c
}

func executeApplyCommand(cobraCmd *cobra.Command, args []string) error {
	if err := cmd.ValidateRequiredFlags(cobraCmd, []string{"file"}); err != nil {
		return cmd.HandleCommonErrors(cobraCmd, err, helpers.DetectMode(cobraCmd))
	}
	return cmd.ExecuteCommand(cobraCmd, cmd.ModeHandlers{
		JSON: handleApplyJSON,
		Text: handleApplyText,
	}, args)
}

// Report is what apply prints.
type Report struct {
	twinconfig.UpdateOutcome
	Mode      string              `json:"mode"`
	Applied   bool                `json:"applied"`
	Rejected  []string            `json:"rejected,omitempty"`
	Namespace string              `json:"namespace"`
	Snapshot  twinconfig.Snapshot `json:"snapshot"`
	Reported  json.RawMessage     `json:"reported,omitempty"`
	HistoryID string              `json:"history_id,omitempty"`

	updateErr error
}

func handleApplyJSON(ctx context.Context, cobraCmd *cobra.Command, executor *cmd.CommandExecutor, _ []string) error {
	report, err := runApply(ctx, cobraCmd, executor.Config())
	if err != nil {
		return err
	}
	if err := helpers.WriteJSON(cobraCmd.OutOrStdout(), report); err != nil {
		return err
	}
	return rejection(report)
}

func handleApplyText(ctx context.Context, cobraCmd *cobra.Command, executor *cmd.CommandExecutor, _ []string) error {
	report, err := runApply(ctx, cobraCmd, executor.Config())
	if err != nil {
		return err
	}
	writeText(cobraCmd.OutOrStdout(), report, executor.UseColor())
	return rejection(report)
}

func runApply(ctx context.Context, cobraCmd *cobra.Command, cfg *config.Config) (*Report, error) {
	path, err := cobraCmd.Flags().GetString("file")
	if err != nil {
		return nil, fmt.Errorf("failed to get file flag: %w", err)
	}
	mode, err := resolveMode(cobraCmd, cfg)
	if err != nil {
		return nil, err
	}
	record, err := cobraCmd.Flags().GetBool("record")
	if err != nil {
		return nil, fmt.Errorf("failed to get record flag: %w", err)
	}
	document, err := readDocument(cobraCmd.InOrStdin(), path)
	if err != nil {
		return nil, err
	}
	store, err := twinconfig.New(twinconfig.WithNamespace(cfg.Agent.ConfigurationObjectName))
	if err != nil {
		return nil, err
	}
	defer store.Close()
	updateErr := store.Update(ctx, document, mode)
	report, err := buildReport(store, mode)
	if err != nil {
		return nil, err
	}
	report.updateErr = updateErr
	logger.FromContext(ctx).Debug("Applied twin document",
		"path", path, "mode", mode.String(), "result", report.Result.String())
	if record {
		id, err := recordOutcome(ctx, cfg, report.UpdateOutcome)
		if err != nil {
			return nil, err
		}
		report.HistoryID = id
	}
	return report, nil
}

func resolveMode(cobraCmd *cobra.Command, cfg *config.Config) (twinconfig.Mode, error) {
	raw, err := cobraCmd.Flags().GetString("mode")
	if err != nil {
		return twinconfig.ModePatch, fmt.Errorf("failed to get mode flag: %w", err)
	}
	if raw == "" {
		raw = cfg.Twin.Mode
	}
	raw = strings.ToLower(strings.TrimSpace(raw))
	if err := helpers.ValidateEnum(raw, []string{"complete", "patch"}, "mode"); err != nil {
		return twinconfig.ModePatch, err
	}
	return twinconfig.ParseMode(raw), nil
}

func readDocument(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read document from stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, helpers.NewCliError("READ_ERROR", "Failed to read twin document", err.Error()).
			WithContext("path", path)
	}
	return data, nil
}

func buildReport(store *twinconfig.Store, mode twinconfig.Mode) (*Report, error) {
	outcome := store.LastUpdateOutcome()
	report := &Report{
		UpdateOutcome: outcome,
		Mode:          mode.String(),
		Applied:       outcome.Applied(),
		Rejected:      outcome.Bundle.Rejected(),
		Namespace:     store.Namespace(),
	}
	snap, err := store.Snapshot()
	if err != nil {
		return nil, err
	}
	report.Snapshot = snap
	reported, err := store.SerializedConfiguration()
	if err != nil {
		return nil, err
	}
	report.Reported = reported
	return report, nil
}

func recordOutcome(ctx context.Context, cfg *config.Config, outcome twinconfig.UpdateOutcome) (string, error) {
	if !cfg.History.Enabled {
		return "", helpers.NewCliError("HISTORY_DISABLED", "Update history is disabled",
			"enable history.enabled or drop --record")
	}
	db, err := sqlite.NewStore(ctx, &sqlite.Config{Path: cfg.History.Path})
	if err != nil {
		return "", fmt.Errorf("failed to open update history: %w", err)
	}
	defer db.Close(ctx)
	entry, err := sqlite.NewHistoryRepo(db.DB(), cfg.History.Retention).Record(ctx, outcome)
	if err != nil {
		return "", err
	}
	return entry.ID, nil
}

func rejection(report *Report) error {
	if report.updateErr == nil {
		return nil
	}
	cliErr := helpers.NewCliError("UPDATE_REJECTED",
		fmt.Sprintf("Twin document was not applied (%s)", report.Result), report.updateErr.Error())
	if len(report.Rejected) > 0 {
		cliErr.WithContext("rejected", report.Rejected)
	}
	return errors.Join(cliErr, report.updateErr)
}

func writeText(w io.Writer, report *Report, color bool) {
	fmt.Fprintf(w, "%s %s\n", helpers.RenderLabel("Result:", color), helpers.RenderResult(report.Result, color))
	fmt.Fprintf(w, "%s %s\n", helpers.RenderLabel("Mode:", color), report.Mode)
	fmt.Fprintf(w, "%s %s\n", helpers.RenderLabel("Namespace:", color), report.Namespace)
	if report.Message != "" {
		fmt.Fprintf(w, "%s %s\n", helpers.RenderLabel("Message:", color), report.Message)
	}
	if report.HistoryID != "" {
		fmt.Fprintf(w, "%s %s\n", helpers.RenderLabel("History:", color), report.HistoryID)
	}
	fmt.Fprintln(w, helpers.RenderLabel("Fields:", color))
	for _, field := range report.Bundle.Fields() {
		fmt.Fprintf(w, "  %-30s %s\n", field.Key, helpers.RenderStatus(field.Status, color))
	}
	if len(report.Reported) > 0 {
		fmt.Fprintln(w, helpers.RenderLabel("Reported:", color))
		fmt.Fprint(w, string(helpers.PrettyJSON(report.Reported, color)))
	}
}
