package helpers

import (
	"encoding/json"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/edge-sentinel/agent/engine/twinconfig"
	"github.com/tidwall/pretty"
)

var (
	okStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#4ECDC4")).Bold(true)
	rejectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFB347")).Bold(true)
	failedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	labelStyle    = lipgloss.NewStyle().Bold(true)
)

// RenderResult renders an outcome code, colored by severity when color is set.
func RenderResult(r twinconfig.Result, color bool) string {
	if !color {
		return r.String()
	}
	switch r {
	case twinconfig.ResultOK:
		return okStyle.Render(r.String())
	case twinconfig.ResultParseException:
		return rejectedStyle.Render(r.String())
	case twinconfig.ResultNone:
		return mutedStyle.Render(r.String())
	default:
		return failedStyle.Render(r.String())
	}
}

// RenderStatus renders a field status, highlighting rejections.
func RenderStatus(s twinconfig.FieldStatus, color bool) string {
	if !color {
		return s.String()
	}
	switch s {
	case twinconfig.StatusOK:
		return okStyle.Render(s.String())
	case twinconfig.StatusTypeMismatch:
		return rejectedStyle.Render(s.String())
	default:
		return mutedStyle.Render(s.String())
	}
}

// RenderLabel renders a section label.
func RenderLabel(label string, color bool) string {
	if !color {
		return label
	}
	return labelStyle.Render(label)
}

// PrettyJSON indents a JSON document and adds terminal colors when color is set.
func PrettyJSON(data []byte, color bool) []byte {
	out := pretty.PrettyOptions(data, &pretty.Options{Width: 80, Indent: "  "})
	if color {
		out = pretty.Color(out, nil)
	}
	return out
}

// WriteJSON encodes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
