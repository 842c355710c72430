package tui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pithecene-io/skein/cli/reader"
)

// StatsModel is a Bubble Tea model for session counters.
type StatsModel struct {
	viewType string
	data     any
	width    int
	height   int
	quitting bool
}

// NewStatsModel creates a new stats model.
func NewStatsModel(viewType string, data any) StatsModel {
	return StatsModel{
		viewType: viewType,
		data:     data,
	}
}

// Init implements tea.Model.
func (m StatsModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m StatsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			return m, tea.Quit
		}
	}

	return m, nil
}

// View implements tea.Model.
func (m StatsModel) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.viewType {
	case "stats_session":
		content = m.renderStatsSession()
	default:
		content = fmt.Sprintf("Unknown view type: %s", m.viewType)
	}

	help := HelpStyle.Render("Press q or Ctrl+C to quit")
	return content + "\n" + help
}

func (m StatsModel) renderStatsSession() string {
	data, ok := m.data.(*reader.MetricsSnapshot)
	if !ok {
		return "Invalid data type for stats_session"
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Session " + data.SessionID))
	b.WriteString("\n\n")

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		m.renderStatBox("Lines", data.LinesProcessed, highlightColor),
		m.renderStatBox("Elements", data.ElementsDecoded, highlightColor),
		m.renderStatBox("Flushes", data.Flushes, highlightColor),
		m.renderStatBox("Rule Errors", data.RuleCompileErrs, CountColor(data.RuleCompileErrs)),
	))
	b.WriteString("\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		m.renderStatBox("Squelched", data.Squelched, warningColor),
		m.renderStatBox("Redirected", data.Redirected, warningColor),
		m.renderStatBox("Withheld", data.WithheldOrphan, warningColor),
		m.renderStatBox("Prompts", data.PromptsShown, successColor),
	))
	b.WriteString("\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		m.renderStatBox("Sent", data.NotificationsSent, successColor),
		m.renderStatBox("Failed", data.NotificationsFailed, CountColor(data.NotificationsFailed)),
		m.renderStatBox("Dropped", data.NotificationsDropped, CountColor(data.NotificationsDropped)),
		m.renderStatBox("Reloads", data.ConfigReloads, highlightColor),
	))
	b.WriteString("\n")

	rows := [][]string{
		{"Adapter", orNone(data.Adapter)},
		{"Archive", orNone(data.ArchiveBackend)},
		{"Archived", fmt.Sprintf("%d ok / %d failed", data.ArchiveWriteSuccess, data.ArchiveWriteFailure)},
		{"Capture Errs", fmt.Sprintf("%d", data.CaptureDecodeErrors)},
	}
	for _, row := range rows {
		b.WriteString(fmt.Sprintf("%s %s\n", LabelStyle.Render(row[0]+":"), ValueStyle.Render(row[1])))
	}

	if len(data.DroppedByKind) > 0 {
		kinds := make([]string, 0, len(data.DroppedByKind))
		for k := range data.DroppedByKind {
			kinds = append(kinds, k)
		}
		slices.Sort(kinds)
		b.WriteString("\n")
		b.WriteString(LabelStyle.Render("Dropped by kind:"))
		b.WriteString("\n")
		for _, k := range kinds {
			b.WriteString(fmt.Sprintf("  • %s %s\n", k, ErrorStyle.Render(fmt.Sprintf("%d", data.DroppedByKind[k]))))
		}
	}

	return b.String()
}

func (m StatsModel) renderStatBox(label string, value int64, color lipgloss.Color) string {
	boxStyle := StatBoxStyle.BorderForeground(color)

	valueStr := StatValueStyle.Foreground(color).Render(fmt.Sprintf("%d", value))
	labelStr := StatLabelStyle.Render(label)

	content := lipgloss.JoinVertical(lipgloss.Center, valueStr, labelStr)

	return boxStyle.Render(content)
}

// CountColor is red for nonzero failure counters, green otherwise.
func CountColor(n int64) lipgloss.Color {
	if n > 0 {
		return errorColor
	}
	return successColor
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}

// RunStatsTUI runs the stats TUI.
func RunStatsTUI(viewType string, data any) error {
	model := NewStatsModel(viewType, data)
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// RenderStatsStatic renders stats data without full TUI (for fallback).
func RenderStatsStatic(viewType string, data any) string {
	model := NewStatsModel(viewType, data)
	model.width = 80
	model.height = 24
	return lipgloss.NewStyle().Padding(1, 2).Render(model.View())
}
