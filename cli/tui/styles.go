// Package tui provides Bubble Tea TUI components for the skein CLI.
//
// TUI rules:
//   - TUI is opt-in only (--tui flag)
//   - TUI is read-only; it views a finished replay
//   - TUI uses same data payloads as non-TUI rendering
//   - No TUI-exclusive data allowed
package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/pithecene-io/skein/types"
)

// Color palette.
var (
	primaryColor   = lipgloss.Color("#7C3AED") // Purple
	successColor   = lipgloss.Color("#10B981") // Green
	warningColor   = lipgloss.Color("#F59E0B") // Amber
	errorColor     = lipgloss.Color("#EF4444") // Red
	mutedColor     = lipgloss.Color("#6B7280") // Gray
	highlightColor = lipgloss.Color("#3B82F6") // Blue
)

// Styles for TUI components.
var (
	// TitleStyle for headers and titles.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			MarginBottom(1)

	// LabelStyle for field labels.
	LabelStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Width(16)

	// ValueStyle for field values.
	ValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF"))

	// SuccessStyle for success states.
	SuccessStyle = lipgloss.NewStyle().
			Foreground(successColor)

	// WarningStyle for warning states.
	WarningStyle = lipgloss.NewStyle().
			Foreground(warningColor)

	// ErrorStyle for error states.
	ErrorStyle = lipgloss.NewStyle().
			Foreground(errorColor)

	// BoxStyle for bordered containers.
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor).
			Padding(1, 2)

	// HelpStyle for help text.
	HelpStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			MarginTop(1)

	// TabStyle for an unselected window tab.
	TabStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Padding(0, 1)

	// ActiveTabStyle for the selected window tab.
	ActiveTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(primaryColor).
			Padding(0, 1)

	// StatBoxStyle for stat display boxes.
	StatBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(highlightColor).
			Padding(0, 2).
			Width(20).
			Align(lipgloss.Center)

	// StatLabelStyle for stat labels.
	StatLabelStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Align(lipgloss.Center)

	// StatValueStyle for stat values.
	StatValueStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Align(lipgloss.Center)
)

// SegmentStyle returns the lipgloss style for one routed segment.
// Links are underlined.
func SegmentStyle(seg types.Segment) lipgloss.Style {
	st := lipgloss.NewStyle()
	if seg.Fg != "" {
		st = st.Foreground(lipgloss.Color(seg.Fg))
	}
	if seg.Bg != "" {
		st = st.Background(lipgloss.Color(seg.Bg))
	}
	if seg.Bold {
		st = st.Bold(true)
	}
	if seg.Link != nil {
		st = st.Underline(true)
	}
	return st
}

// RenderLine renders a styled line. With plain set the text is returned
// without escape sequences.
func RenderLine(line types.Line, plain bool) string {
	if plain {
		return line.Plain()
	}
	var b strings.Builder
	for _, seg := range line {
		b.WriteString(SegmentStyle(seg).Render(seg.Text))
	}
	return b.String()
}
