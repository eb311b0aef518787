package cli

import (
	"context"
	"fmt"

	"github.com/edge-sentinel/agent/cli/cmd/apply"
	configcmd "github.com/edge-sentinel/agent/cli/cmd/config"
	"github.com/edge-sentinel/agent/cli/cmd/history"
	"github.com/edge-sentinel/agent/cli/cmd/run"
	"github.com/edge-sentinel/agent/cli/cmd/status"
	"github.com/edge-sentinel/agent/cli/helpers"
	"github.com/edge-sentinel/agent/pkg/config"
	"github.com/edge-sentinel/agent/pkg/logger"
	"github.com/spf13/cobra"
)

// DefaultConfigFile is read from the working directory when --config is not given.
const DefaultConfigFile = "edge-sentinel.yaml"

// RootCmd builds the command tree.
func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "edge-sentinel",
		Short:         "Device twin configuration agent",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := SetupGlobalConfig(cmd); err != nil {
				helpers.OutputError(cmd.ErrOrStderr(), err, helpers.DetectMode(cmd))
				return err
			}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return config.ManagerFromContext(cmd.Context()).Close(cmd.Context())
		},
	}
	flags := root.PersistentFlags()
	flags.String("config", DefaultConfigFile, "Path to the YAML configuration file")
	flags.String("env-file", ".env", "Path to the environment variables file")
	flags.String(helpers.FormatFlag, string(helpers.OutputFormatAuto), "Output format (auto, text, json)")
	flags.Bool("no-color", false, "Disable colored output")
	registerConfigFlags(flags)

	root.AddCommand(
		run.NewRunCommand(),
		apply.NewApplyCommand(),
		history.NewHistoryCommand(),
		status.NewStatusCommand(),
		configcmd.NewConfigCommand(),
	)
	return root
}

// SetupGlobalConfig loads the env file and every configuration source, sets up
// the default logger and attaches the configuration manager to the command context.
func SetupGlobalConfig(cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if _, err := loadEnvFile(cmd); err != nil {
		return err
	}
	level, logJSON, logSource, err := logger.GetLoggerConfig(cmd)
	if err != nil {
		return err
	}
	logger.SetupLogger(level, logJSON, logSource)
	format, err := cmd.Flags().GetString(helpers.FormatFlag)
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	if err := helpers.ValidateEnum(format, []string{
		string(helpers.OutputFormatAuto),
		string(helpers.OutputFormatText),
		string(helpers.OutputFormatJSON),
	}, helpers.FormatFlag); err != nil {
		return err
	}
	configFile, err := cmd.Flags().GetString("config")
	if err != nil {
		return fmt.Errorf("failed to get config flag: %w", err)
	}
	sources := []config.Source{
		config.NewDefaultProvider(),
		config.NewEnvProvider(),
	}
	if configFile != "" {
		sources = append(sources, config.NewYAMLProvider(configFile))
	}
	cliFlags := make(map[string]any)
	extractCLIFlags(cmd.Flags(), cliFlags)
	if len(cliFlags) > 0 {
		sources = append(sources, config.NewCLIProvider(cliFlags))
	}
	manager := config.NewManager(config.NewService())
	cfg, err := manager.Load(ctx, sources...)
	if err != nil {
		return err
	}
	logger.SetupLogger(cfg.Runtime.LogLevel, cfg.Runtime.LogJSON, cfg.Runtime.LogSource)
	logger.Debug("Configuration loaded", "config_file", configFile, "flags", len(cliFlags))
	cmd.SetContext(config.ContextWithManager(ctx, manager))
	return nil
}
