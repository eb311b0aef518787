package helpers

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// isRunningInCI checks if we're running in a CI/CD environment
func isRunningInCI() bool {
	if os.Getenv("CI") != "" {
		return true
	}
	ciVars := []string{
		"GITHUB_ACTIONS",
		"GITLAB_CI",
		"CIRCLECI",
		"BUILDKITE",
		"JENKINS_URL",
		"TF_BUILD", // Azure DevOps
		"CONTINUOUS_INTEGRATION",
	}
	for _, v := range ciVars {
		if os.Getenv(v) != "" {
			return true
		}
	}
	return false
}

func stdoutIsTerminal() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

// isInteractiveEnvironment checks if output goes to a person rather than a pipe
func isInteractiveEnvironment() bool {
	if isRunningInCI() {
		return false
	}
	if !stdoutIsTerminal() {
		return false
	}
	term := os.Getenv("TERM")
	return term != "dumb" && term != ""
}

// formatFromFlag returns the --format value, or auto when the flag is absent.
func formatFromFlag(cmd *cobra.Command) OutputFormat {
	if cmd == nil {
		return OutputFormatAuto
	}
	value, err := cmd.Flags().GetString(FormatFlag)
	if err != nil || value == "" {
		return OutputFormatAuto
	}
	return OutputFormat(value)
}

// DetectMode picks JSON for pipes and CI and text for terminals unless
// --format says otherwise.
func DetectMode(cmd *cobra.Command) Mode {
	switch formatFromFlag(cmd) {
	case OutputFormatJSON:
		return ModeJSON
	case OutputFormatText:
		return ModeText
	}
	if isInteractiveEnvironment() {
		return ModeText
	}
	return ModeJSON
}

// ShouldUseColor determines if colored output should be used
func ShouldUseColor(cmd *cobra.Command) bool {
	if cmd != nil {
		if noColor, err := cmd.Flags().GetBool("no-color"); err == nil && noColor {
			return false
		}
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return !isRunningInCI() && stdoutIsTerminal()
}
