package helpers

// OutputFormat represents different output formats
type OutputFormat string

const (
	OutputFormatAuto  OutputFormat = "auto"
	OutputFormatJSON  OutputFormat = "json"
	OutputFormatText  OutputFormat = "text"
	OutputFormatTable OutputFormat = "table"
	OutputFormatYAML  OutputFormat = "yaml"
)

// FormatFlag is the persistent flag selecting the output mode.
const FormatFlag = "format"

// Mode is the rendering mode of a command.
type Mode string

const (
	ModeJSON Mode = "json"
	ModeText Mode = "text"
)
