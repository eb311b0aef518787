package twinsync

import (
	"time"

	"github.com/edge-sentinel/agent/engine/twinconfig"
	"github.com/edge-sentinel/agent/pkg/config"
)

// Config controls how the desired document file is read.
type Config struct {
	Path           string
	Mode           twinconfig.Mode
	Debounce       time.Duration
	ReadRetries    int
	ReadRetryDelay time.Duration
}

// ConfigFrom extracts the synchronizer settings from the agent configuration.
func ConfigFrom(app *config.Config) Config {
	return Config{
		Path:           app.Twin.DocumentPath,
		Mode:           twinconfig.ParseMode(app.Twin.Mode),
		Debounce:       app.Twin.Debounce,
		ReadRetries:    app.Twin.ReadRetries,
		ReadRetryDelay: app.Twin.ReadRetryDelay,
	}
}
