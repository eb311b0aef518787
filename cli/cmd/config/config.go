package config

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/edge-sentinel/agent/cli/cmd"
	"github.com/edge-sentinel/agent/cli/helpers"
	"github.com/edge-sentinel/agent/pkg/config"
	"github.com/edge-sentinel/agent/pkg/logger"
)

// NewConfigCommand creates the config command using the unified command pattern
func NewConfigCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "config",
		Short: "Configuration inspection and validation",
	}
	c.AddCommand(
		NewConfigShowCommand(),
		NewConfigValidateCommand(),
	)
	return c
}

// NewConfigShowCommand creates the config show subcommand
func NewConfigShowCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Long: `Display the effective configuration after merging defaults, environment,
the configuration file and flags. Supports json, yaml and table output.`,
		Args: cobra.NoArgs,
		RunE: executeConfigShowCommand,
	}
	c.Flags().StringP("output", "o", "table", "Output format (json, yaml, table)")
	c.Flags().Bool("sources", false, "Show where each value came from")
	return c
}

func executeConfigShowCommand(cobraCmd *cobra.Command, args []string) error {
	return cmd.ExecuteCommand(cobraCmd, cmd.ModeHandlers{
		JSON: handleConfigShow,
		Text: handleConfigShow,
	}, args)
}

func handleConfigShow(ctx context.Context, cobraCmd *cobra.Command, executor *cmd.CommandExecutor, _ []string) error {
	logger.FromContext(ctx).Debug("executing config show command")
	format, err := cobraCmd.Flags().GetString("output")
	if err != nil {
		return fmt.Errorf("failed to get output flag: %w", err)
	}
	showSources, err := cobraCmd.Flags().GetBool("sources")
	if err != nil {
		return fmt.Errorf("failed to get sources flag: %w", err)
	}
	var sources map[string]config.SourceType
	if showSources {
		sources = collectSources(config.ManagerFromContext(ctx).Service, executor.Config())
	}
	return formatConfigOutput(cobraCmd.OutOrStdout(), executor.Config(), sources, format)
}

// NewConfigValidateCommand creates the config validate subcommand
func NewConfigValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the effective configuration",
		Args:  cobra.NoArgs,
		RunE:  executeConfigValidateCommand,
	}
}

func executeConfigValidateCommand(cobraCmd *cobra.Command, args []string) error {
	return cmd.ExecuteCommand(cobraCmd, cmd.ModeHandlers{
		JSON: handleConfigValidateJSON,
		Text: handleConfigValidateText,
	}, args)
}

func handleConfigValidateJSON(ctx context.Context, cobraCmd *cobra.Command, executor *cmd.CommandExecutor, _ []string) error {
	err := config.ManagerFromContext(ctx).Service.Validate(executor.Config())
	result := map[string]any{"valid": err == nil}
	if err != nil {
		result["error"] = err.Error()
	}
	if werr := helpers.WriteJSON(cobraCmd.OutOrStdout(), result); werr != nil {
		return werr
	}
	if err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

func handleConfigValidateText(ctx context.Context, cobraCmd *cobra.Command, executor *cmd.CommandExecutor, _ []string) error {
	if err := config.ManagerFromContext(ctx).Service.Validate(executor.Config()); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	fmt.Fprintln(cobraCmd.OutOrStdout(), "Configuration is valid")
	return nil
}

// formatConfigOutput formats and outputs configuration based on requested format
func formatConfigOutput(
	w io.Writer,
	cfg *config.Config,
	sources map[string]config.SourceType,
	format string,
) error {
	switch format {
	case string(helpers.OutputFormatJSON):
		return helpers.WriteJSON(w, configDocument(cfg, sources))
	case string(helpers.OutputFormatYAML):
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(configDocument(cfg, sources)); err != nil {
			return err
		}
		return encoder.Close()
	case string(helpers.OutputFormatTable):
		return outputTable(w, cfg, sources)
	default:
		return helpers.NewCliError("INVALID_FORMAT", fmt.Sprintf("unsupported format: %s", format))
	}
}

func configDocument(cfg *config.Config, sources map[string]config.SourceType) map[string]any {
	output := map[string]any{"config": flattenConfig(cfg)}
	if len(sources) > 0 {
		output["sources"] = sources
	}
	return output
}

// outputTable outputs configuration as a table
func outputTable(out io.Writer, cfg *config.Config, sources map[string]config.SourceType) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	flatMap := flattenConfig(cfg)
	keys := make([]string, 0, len(flatMap))
	for k := range flatMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if sources != nil {
		fmt.Fprintln(w, "KEY\tVALUE\tSOURCE")
	} else {
		fmt.Fprintln(w, "KEY\tVALUE")
	}
	for _, key := range keys {
		if sources != nil {
			source := sources[key]
			if source == "" {
				source = config.SourceDefault
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", key, flatMap[key], source)
			continue
		}
		fmt.Fprintf(w, "%s\t%s\n", key, flatMap[key])
	}
	return w.Flush()
}

func collectSources(service config.Service, cfg *config.Config) map[string]config.SourceType {
	sources := make(map[string]config.SourceType)
	for key := range flattenConfig(cfg) {
		if source := service.GetSource(key); source != "" {
			sources[key] = source
		}
	}
	return sources
}

// flattenConfig converts nested config to flat key-value map
func flattenConfig(cfg *config.Config) map[string]string {
	return map[string]string{
		"agent.id":                        cfg.Agent.ID,
		"agent.configuration_object_name": cfg.Agent.ConfigurationObjectName,
		"twin.document_path":              cfg.Twin.DocumentPath,
		"twin.mode":                       cfg.Twin.Mode,
		"twin.debounce":                   cfg.Twin.Debounce.String(),
		"twin.read_retries":               strconv.Itoa(cfg.Twin.ReadRetries),
		"twin.read_retry_delay":           cfg.Twin.ReadRetryDelay.String(),
		"server.enabled":                  strconv.FormatBool(cfg.Server.Enabled),
		"server.host":                     cfg.Server.Host,
		"server.port":                     strconv.Itoa(cfg.Server.Port),
		"server.timeout":                  cfg.Server.Timeout.String(),
		"server.rate_limit":               strconv.Itoa(cfg.Server.RateLimit),
		"monitoring.enabled":              strconv.FormatBool(cfg.Monitoring.Enabled),
		"monitoring.path":                 cfg.Monitoring.Path,
		"history.enabled":                 strconv.FormatBool(cfg.History.Enabled),
		"history.path":                    cfg.History.Path,
		"history.retention":               strconv.Itoa(cfg.History.Retention),
		"runtime.log_level":               cfg.Runtime.LogLevel,
		"runtime.log_json":                strconv.FormatBool(cfg.Runtime.LogJSON),
		"runtime.log_source":              strconv.FormatBool(cfg.Runtime.LogSource),
	}
}
