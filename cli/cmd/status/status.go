package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/edge-sentinel/agent/cli/api"
	"github.com/edge-sentinel/agent/cli/cmd"
	"github.com/edge-sentinel/agent/cli/helpers"
	"github.com/edge-sentinel/agent/pkg/config"
	"github.com/spf13/cobra"
)

// Report is what the status command prints.
type Report struct {
	*api.Status
	Server   string          `json:"server"`
	Reported json.RawMessage `json:"reported,omitempty"`
}

// NewStatusCommand creates the status command querying a running agent.
func NewStatusCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "status",
		Short: "Show the last update outcome of a running agent",
		Long: `Query the diagnostics server of a running agent for the outcome of its
last twin update. The agent must have been started with --server.`,
		Args: cobra.NoArgs,
		RunE: executeStatusCommand,
	}
	c.Flags().String("url", "", "API base URL of the agent (defaults to the configured server address)")
	c.Flags().Bool("reported", false, "Also fetch the reported configuration document")
	return c
}

func executeStatusCommand(cobraCmd *cobra.Command, args []string) error {
	return cmd.ExecuteCommand(cobraCmd, cmd.ModeHandlers{
		JSON: handleStatusJSON,
		Text: handleStatusText,
	}, args)
}

func handleStatusJSON(ctx context.Context, cobraCmd *cobra.Command, executor *cmd.CommandExecutor, _ []string) error {
	report, err := fetchStatus(ctx, cobraCmd, executor.Config())
	if err != nil {
		return err
	}
	return helpers.WriteJSON(cobraCmd.OutOrStdout(), report)
}

func handleStatusText(ctx context.Context, cobraCmd *cobra.Command, executor *cmd.CommandExecutor, _ []string) error {
	report, err := fetchStatus(ctx, cobraCmd, executor.Config())
	if err != nil {
		return err
	}
	writeText(cobraCmd.OutOrStdout(), report, executor.UseColor())
	return nil
}

func newClient(cobraCmd *cobra.Command, cfg *config.Config) (*api.Client, error) {
	raw, err := cobraCmd.Flags().GetString("url")
	if err != nil {
		return nil, fmt.Errorf("failed to get url flag: %w", err)
	}
	var client *api.Client
	if raw != "" {
		client, err = api.NewClientForURL(raw, cfg.Server.Timeout)
	} else {
		client, err = api.NewClient(&cfg.Server)
	}
	if err != nil {
		return nil, helpers.NewCliError("INVALID_SERVER", "Cannot build agent address", err.Error())
	}
	return client, nil
}

func fetchStatus(ctx context.Context, cobraCmd *cobra.Command, cfg *config.Config) (*Report, error) {
	client, err := newClient(cobraCmd, cfg)
	if err != nil {
		return nil, err
	}
	st, err := client.Status(ctx)
	if err != nil {
		return nil, unreachable(client, err)
	}
	report := &Report{Status: st, Server: client.BaseURL()}
	withReported, err := cobraCmd.Flags().GetBool("reported")
	if err != nil {
		return nil, fmt.Errorf("failed to get reported flag: %w", err)
	}
	if withReported {
		report.Reported, err = client.Reported(ctx)
		if err != nil {
			return nil, unreachable(client, err)
		}
	}
	return report, nil
}

func unreachable(client *api.Client, err error) error {
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		return helpers.NewCliError(apiErr.Code, apiErr.Message, apiErr.Details).
			WithContext("server", client.BaseURL())
	}
	return helpers.NewCliError("AGENT_UNREACHABLE", "Cannot reach the agent diagnostics server", err.Error()).
		WithContext("server", client.BaseURL())
}

func writeText(w io.Writer, report *Report, color bool) {
	fmt.Fprintf(w, "%s %s\n", helpers.RenderLabel("Server:", color), report.Server)
	fmt.Fprintf(w, "%s %s\n", helpers.RenderLabel("Namespace:", color), report.Namespace)
	fmt.Fprintf(w, "%s %s\n", helpers.RenderLabel("Result:", color), helpers.RenderResult(report.Result, color))
	if !report.Time.IsZero() {
		fmt.Fprintf(w, "%s %s\n", helpers.RenderLabel("Time:", color), report.Time.Local().Format(time.DateTime))
	}
	if report.Mode != "" {
		fmt.Fprintf(w, "%s %s\n", helpers.RenderLabel("Mode:", color), report.Mode)
	}
	if report.Message != "" {
		fmt.Fprintf(w, "%s %s\n", helpers.RenderLabel("Message:", color), report.Message)
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
