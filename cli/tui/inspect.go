package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pithecene-io/skein/cli/reader"
	"github.com/pithecene-io/skein/window"
)

// InspectModel is a Bubble Tea model for browsing replayed windows.
// Tab and shift+tab switch windows; the viewport scrolls the selected one.
type InspectModel struct {
	viewType string
	windows  []*reader.WindowResponse
	selected int
	vp       viewport.Model
	ready    bool
	width    int
	height   int
	quitting bool
}

// NewInspectModel creates a new inspect model. data is either a single
// *reader.WindowResponse or a []*reader.WindowResponse.
func NewInspectModel(viewType string, data any) InspectModel {
	m := InspectModel{viewType: viewType}
	switch d := data.(type) {
	case *reader.WindowResponse:
		if d != nil {
			m.windows = []*reader.WindowResponse{d}
		}
	case []*reader.WindowResponse:
		m.windows = d
	}
	return m
}

// Init implements tea.Model.
func (m InspectModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m InspectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		// Tabs, title and help take four rows.
		h := max(msg.Height-4, 1)
		if !m.ready {
			m.vp = viewport.New(msg.Width, h)
			m.ready = true
		} else {
			m.vp.Width = msg.Width
			m.vp.Height = h
		}
		m.vp.SetContent(m.content())
		m.vp.GotoBottom()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, keys.Next):
			m = m.selectWindow(m.selected + 1)
			return m, nil
		case key.Matches(msg, keys.Prev):
			m = m.selectWindow(m.selected - 1)
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.vp, cmd = m.vp.Update(msg)
	return m, cmd
}

func (m InspectModel) selectWindow(i int) InspectModel {
	n := len(m.windows)
	if n == 0 {
		return m
	}
	m.selected = ((i % n) + n) % n
	if m.ready {
		m.vp.SetContent(m.content())
		m.vp.GotoBottom()
	}
	return m
}

// View implements tea.Model.
func (m InspectModel) View() string {
	if m.quitting {
		return ""
	}
	if len(m.windows) == 0 {
		return "No windows to show\n" + HelpStyle.Render("Press q or Ctrl+C to quit")
	}

	var b strings.Builder
	b.WriteString(m.tabs())
	b.WriteString("\n")
	if m.ready {
		b.WriteString(m.vp.View())
	} else {
		b.WriteString(m.content())
	}
	b.WriteString("\n")
	b.WriteString(HelpStyle.Render("tab/shift+tab switch window • ↑/↓ scroll • q quit"))
	return b.String()
}

func (m InspectModel) tabs() string {
	parts := make([]string, 0, len(m.windows))
	for i, w := range m.windows {
		label := w.Name
		if len(w.Lines) > 0 {
			label = fmt.Sprintf("%s (%d)", w.Name, len(w.Lines))
		}
		if i == m.selected {
			parts = append(parts, ActiveTabStyle.Render(label))
		} else {
			parts = append(parts, TabStyle.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

// content renders the selected window's body according to its kind.
func (m InspectModel) content() string {
	if len(m.windows) == 0 {
		return ""
	}
	w := m.windows[m.selected]

	var b strings.Builder
	title := w.Name
	if w.Title != "" {
		title = w.Title
	}
	b.WriteString(TitleStyle.Render(fmt.Sprintf("%s [%s]", title, w.Kind)))
	b.WriteString("\n")

	switch window.Kind(w.Kind) {
	case window.KindProgress:
		if w.Progress != nil {
			b.WriteString(fmt.Sprintf("%s %s\n",
				LabelStyle.Render("Value:"),
				ValueStyle.Render(fmt.Sprintf("%d/%d", w.Progress.Value, w.Progress.Max))))
			if w.Progress.Text != "" {
				b.WriteString(fmt.Sprintf("%s %s\n", LabelStyle.Render("Text:"), ValueStyle.Render(w.Progress.Text)))
			}
		}
	case window.KindCountdown:
		b.WriteString(fmt.Sprintf("%s %s\n",
			LabelStyle.Render("Ends At:"),
			ValueStyle.Render(fmt.Sprintf("%d", w.CountdownEnd))))
	case window.KindIndicator:
		st, label := ErrorStyle, "inactive"
		if w.Active {
			st, label = SuccessStyle, "active"
		}
		b.WriteString(fmt.Sprintf("%s %s\n", LabelStyle.Render("State:"), st.Render(label)))
	}

	for _, c := range w.Components {
		b.WriteString(ValueStyle.Render(c))
		b.WriteString("\n")
	}
	for _, line := range w.Lines {
		b.WriteString(RenderLine(line, false))
		b.WriteString("\n")
	}
	return b.String()
}

// keyMap defines key bindings.
type keyMap struct {
	Quit key.Binding
	Next key.Binding
	Prev key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
	Next: key.NewBinding(
		key.WithKeys("tab", "right", "l"),
		key.WithHelp("tab", "next window"),
	),
	Prev: key.NewBinding(
		key.WithKeys("shift+tab", "left", "h"),
		key.WithHelp("shift+tab", "previous window"),
	),
}

// RunInspectTUI runs the inspect TUI.
func RunInspectTUI(viewType string, data any) error {
	model := NewInspectModel(viewType, data)
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// RenderInspectStatic renders inspect data without full TUI (for fallback).
func RenderInspectStatic(viewType string, data any) string {
	model := NewInspectModel(viewType, data)
	model.width = 80
	model.height = 24
	return lipgloss.NewStyle().Padding(1, 2).Render(model.View())
}
