// Package window is the registry of logical output windows the router
// writes into.
//
// A window has a kind that decides which router writes it accepts, and a
// list of streams it subscribes to. The registry does no rendering; the CLI
// and TUI read it after lines have been routed.
package window

import (
	"fmt"
	"slices"
	"sort"

	"github.com/pithecene-io/skein/types"
)

// Kind is the content kind of a window.
type Kind string

// Window kinds.
const (
	KindText       Kind = "text"
	KindInventory  Kind = "inventory"
	KindRoom       Kind = "room"
	KindPerception Kind = "perception"
	KindList       Kind = "list"
	KindCountdown  Kind = "countdown"
	KindProgress   Kind = "progress"
	KindIndicator  Kind = "indicator"
	KindHand       Kind = "hand"
	KindCompass    Kind = "compass"
	KindDialog     Kind = "dialog"
)

// ParseKind parses a kind name, defaulting empty to text.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case "":
		return KindText, nil
	case KindText, KindInventory, KindRoom, KindPerception, KindList,
		KindCountdown, KindProgress, KindIndicator, KindHand, KindCompass, KindDialog:
		return k, nil
	}
	return "", fmt.Errorf("unknown window kind %q", s)
}

// DefaultMaxLines bounds text windows that do not set MaxLines.
const DefaultMaxLines = 1000

// Config declares one window.
type Config struct {
	Name  string
	Kind  Kind
	Title string
	// Streams the window subscribes to. Empty means the window's own name.
	Streams []string
	// Speech enables speech output for lines delivered here.
	Speech bool
	// MaxLines bounds scrollback for text windows. 0 uses DefaultMaxLines.
	MaxLines int
}

// Progress is the content of a progress window.
type Progress struct {
	Value int
	Max   int
	Text  string
}

// Dialog is the content of a dialog window.
type Dialog struct {
	Open    bool
	Title   string
	Buttons []types.DialogButton
	Fields  []types.DialogField
	Bars    []types.DialogBar
	Labels  []types.DialogLabel
	Images  []types.DialogImage
}

// Window is one registered window and its content.
type Window struct {
	Config

	Lines []types.Line
	// Components holds room components by id for room windows.
	Components map[string]types.Line
	// CountdownEnd is the absolute end time for countdown windows.
	CountdownEnd int64
	Progress     Progress
	Active       bool
	Dialog       Dialog

	// Revision increments on every mutation.
	Revision uint64
}

// Subscribes reports whether the window receives stream.
func (w *Window) Subscribes(stream string) bool {
	if len(w.Streams) == 0 {
		return w.Name == stream
	}
	return slices.Contains(w.Streams, stream)
}

func (w *Window) touch() {
	w.Revision++
}

// Registry maps window names to windows.
// Not safe for concurrent use; the pipeline serialises access.
type Registry struct {
	windows map[string]*Window
	order   []string
}

// NewRegistry creates a registry holding cfgs in declaration order.
// A later config with a duplicate name replaces the earlier one.
func NewRegistry(cfgs ...Config) *Registry {
	r := &Registry{windows: make(map[string]*Window)}
	for _, c := range cfgs {
		r.Add(c)
	}
	return r
}

// Add registers a window, replacing any window with the same name.
func (r *Registry) Add(c Config) *Window {
	if c.Kind == "" {
		c.Kind = KindText
	}
	if c.MaxLines <= 0 {
		c.MaxLines = DefaultMaxLines
	}
	w := &Window{Config: c}
	if _, exists := r.windows[c.Name]; !exists {
		r.order = append(r.order, c.Name)
	}
	r.windows[c.Name] = w
	return w
}

// Reconfigure replaces the layout with cfgs. A window whose name and kind
// survive keeps its content; its subscriptions and limits are updated.
// Windows not named in cfgs are removed.
func (r *Registry) Reconfigure(cfgs []Config) {
	old := r.windows
	r.windows = make(map[string]*Window, len(cfgs))
	r.order = r.order[:0]
	for _, c := range cfgs {
		w := r.Add(c)
		if prev, ok := old[c.Name]; ok && prev.Kind == w.Kind {
			prev.Config = w.Config
			if len(prev.Lines) > prev.MaxLines {
				prev.Lines = prev.Lines[len(prev.Lines)-prev.MaxLines:]
			}
			prev.touch()
			r.windows[c.Name] = prev
		}
	}
}

// Remove deletes a window. Removing an unknown name is a no-op.
func (r *Registry) Remove(name string) {
	if _, ok := r.windows[name]; !ok {
		return
	}
	delete(r.windows, name)
	r.order = slices.DeleteFunc(r.order, func(n string) bool { return n == name })
}

// Get returns the named window.
func (r *Registry) Get(name string) (*Window, bool) {
	w, ok := r.windows[name]
	return w, ok
}

// Names returns window names in declaration order.
func (r *Registry) Names() []string {
	return slices.Clone(r.order)
}

// SortedNames returns window names sorted for deterministic output.
func (r *Registry) SortedNames() []string {
	names := r.Names()
	sort.Strings(names)
	return names
}

// Subscribers returns the windows subscribed to stream, in declaration order.
func (r *Registry) Subscribers(stream string) []*Window {
	var out []*Window
	for _, name := range r.order {
		if w := r.windows[name]; w.Subscribes(stream) {
			out = append(out, w)
		}
	}
	return out
}

// HasSubscriber reports whether any window receives stream.
func (r *Registry) HasSubscriber(stream string) bool {
	for _, w := range r.windows {
		if w.Subscribes(stream) {
			return true
		}
	}
	return false
}

// Append adds a line to a window's scrollback, trimming to MaxLines.
func (r *Registry) Append(name string, line types.Line) bool {
	w, ok := r.windows[name]
	if !ok {
		return false
	}
	w.Lines = append(w.Lines, line)
	if over := len(w.Lines) - w.MaxLines; over > 0 {
		w.Lines = slices.Delete(w.Lines, 0, over)
	}
	w.touch()
	return true
}

// Replace swaps a window's entire content for lines.
func (r *Registry) Replace(name string, lines []types.Line) bool {
	w, ok := r.windows[name]
	if !ok {
		return false
	}
	w.Lines = slices.Clone(lines)
	w.touch()
	return true
}

// Clear empties a window's lines and components.
func (r *Registry) Clear(name string) bool {
	w, ok := r.windows[name]
	if !ok {
		return false
	}
	w.Lines = nil
	w.Components = nil
	w.touch()
	return true
}

// SetTitle updates a window's title.
func (r *Registry) SetTitle(name, title string) bool {
	w, ok := r.windows[name]
	if !ok {
		return false
	}
	w.Title = title
	w.touch()
	return true
}

// SetComponent stores one room component.
func (r *Registry) SetComponent(name, id string, line types.Line) bool {
	w, ok := r.windows[name]
	if !ok {
		return false
	}
	if w.Components == nil {
		w.Components = make(map[string]types.Line)
	}
	w.Components[id] = line
	w.touch()
	return true
}

// SetCountdown sets a countdown window's absolute end time.
func (r *Registry) SetCountdown(name string, end int64) bool {
	w, ok := r.windows[name]
	if !ok || w.Kind != KindCountdown {
		return false
	}
	w.CountdownEnd = end
	w.touch()
	return true
}

// SetProgress sets a progress window's value.
func (r *Registry) SetProgress(name string, p Progress) bool {
	w, ok := r.windows[name]
	if !ok || w.Kind != KindProgress {
		return false
	}
	w.Progress = p
	w.touch()
	return true
}

// SetActive sets an indicator window's state.
func (r *Registry) SetActive(name string, active bool) bool {
	w, ok := r.windows[name]
	if !ok || w.Kind != KindIndicator {
		return false
	}
	w.Active = active
	w.touch()
	return true
}

// UpdateDialog applies fn to a dialog window's content.
func (r *Registry) UpdateDialog(name string, fn func(*Dialog)) bool {
	w, ok := r.windows[name]
	if !ok || w.Kind != KindDialog {
		return false
	}
	fn(&w.Dialog)
	w.touch()
	return true
}
