package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/edge-sentinel/agent/pkg/config/definition"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// registerConfigFlags adds one flag per registry field that declares a CLI flag.
func registerConfigFlags(flags *pflag.FlagSet) {
	registry := definition.CreateRegistry()
	for _, path := range registry.Paths() {
		field, _ := registry.GetField(path)
		if field.CLIFlag == "" || flags.Lookup(field.CLIFlag) != nil {
			continue
		}
		switch def := field.Default.(type) {
		case string:
			flags.StringP(field.CLIFlag, field.Shorthand, def, field.Help)
		case int:
			flags.IntP(field.CLIFlag, field.Shorthand, def, field.Help)
		case bool:
			flags.BoolP(field.CLIFlag, field.Shorthand, def, field.Help)
		case time.Duration:
			flags.DurationP(field.CLIFlag, field.Shorthand, def, field.Help)
		}
	}
}

// extractCLIFlags extracts command line flags into a map keyed by flag name.
// It processes only flags that have been explicitly changed by the user.
func extractCLIFlags(flags *pflag.FlagSet, out map[string]any) {
	mapping := definition.CreateRegistry().GetCLIFlagMapping()
	flags.Visit(func(f *pflag.Flag) {
		if _, ok := mapping[f.Name]; !ok {
			return
		}
		var (
			value any
			err   error
		)
		switch f.Value.Type() {
		case "string":
			value, err = flags.GetString(f.Name)
		case "int":
			value, err = flags.GetInt(f.Name)
		case "bool":
			value, err = flags.GetBool(f.Name)
		case "duration":
			value, err = flags.GetDuration(f.Name)
		default:
			return
		}
		if err == nil {
			out[f.Name] = value
		}
	})
}

// loadEnvFile loads environment variables from a file with security validation
func loadEnvFile(cmd *cobra.Command) (string, error) {
	envFile, err := cmd.Flags().GetString("env-file")
	if err != nil {
		return "", fmt.Errorf("failed to get env-file flag: %w", err)
	}
	if envFile == "" {
		return "", nil
	}
	pwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current working directory: %w", err)
	}
	if !filepath.IsAbs(envFile) {
		envFile = filepath.Join(pwd, envFile)
	}
	absPath, err := filepath.Abs(filepath.Clean(envFile))
	if err != nil {
		return "", fmt.Errorf("failed to resolve env file path: %w", err)
	}
	if !isPathWithinDirectory(absPath, pwd) {
		return "", fmt.Errorf("env file path '%s' is outside the working directory", envFile)
	}
	fileInfo, err := os.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return absPath, nil
		}
		return "", fmt.Errorf("failed to stat env file: %w", err)
	}
	if !fileInfo.Mode().IsRegular() {
		return "", fmt.Errorf("env file path '%s' is not a regular file", envFile)
	}
	if err := godotenv.Load(absPath); err != nil {
		return "", fmt.Errorf("failed to load env file %s: %w", absPath, err)
	}
	return absPath, nil
}

// isPathWithinDirectory checks if a given path is within the specified directory
func isPathWithinDirectory(path, dir string) bool {
	absPath, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return false
	}
	absDir, err := filepath.Abs(filepath.Clean(dir))
	if err != nil {
		return false
	}
	if !strings.HasSuffix(absDir, string(filepath.Separator)) {
		absDir += string(filepath.Separator)
	}
	return strings.HasPrefix(absPath, absDir) || absPath == strings.TrimSuffix(absDir, string(filepath.Separator))
}
