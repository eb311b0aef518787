package run

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/edge-sentinel/agent/cli/cmd"
	"github.com/edge-sentinel/agent/engine/agent"
	"github.com/edge-sentinel/agent/pkg/config"
	"github.com/edge-sentinel/agent/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

// NewRunCommand creates the run command that keeps the agent running in the foreground.
func NewRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "run",
		Aliases: []string{"start"},
		Short:   "Run the agent",
		Long: `Watch the twin document, apply every change to the configuration store and
serve diagnostics until interrupted.`,
		Args: cobra.NoArgs,
		RunE: executeRunCommand,
	}
}

func executeRunCommand(cobraCmd *cobra.Command, args []string) error {
	return cmd.ExecuteCommand(cobraCmd, cmd.ModeHandlers{
		JSON: handleRun,
		Text: handleRun,
	}, args)
}

func handleRun(ctx context.Context, _ *cobra.Command, executor *cmd.CommandExecutor, _ []string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	cfg := executor.Config()
	gin.SetMode(gin.ReleaseMode)
	watchRuntimeConfig(ctx)
	a, err := agent.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to start agent: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := a.Close(closeCtx); err != nil {
			logger.FromContext(ctx).Error("Failed to close agent", "error", err)
		}
	}()
	return a.Run(ctx)
}

// watchRuntimeConfig re-applies logging settings when the configuration file changes.
// Other settings take effect on restart.
func watchRuntimeConfig(ctx context.Context) {
	manager := config.ManagerFromContext(ctx)
	if manager == nil {
		return
	}
	manager.OnChange(func(next *config.Config) {
		logger.SetupLogger(next.Runtime.LogLevel, next.Runtime.LogJSON, next.Runtime.LogSource)
		logger.Info("Configuration reloaded", "log_level", next.Runtime.LogLevel)
	})
}
