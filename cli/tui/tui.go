package tui

import (
	"fmt"
	"slices"
)

// views maps each TUI view type to the program that displays it.
// Window inspection and session stats are the only interactive views.
var views = map[string]func(viewType string, data any) error{
	"inspect_window":  RunInspectTUI,
	"inspect_windows": RunInspectTUI,
	"stats_session":   RunStatsTUI,
}

// Run starts the TUI for viewType.
func Run(viewType string, data any) error {
	run, ok := views[viewType]
	if !ok {
		return fmt.Errorf("TUI mode is not supported for %s", viewType)
	}
	return run(viewType, data)
}

// IsTUISupported reports whether viewType has an interactive view.
func IsTUISupported(viewType string) bool {
	_, ok := views[viewType]
	return ok
}

// SupportedTUIViews returns the supported view types, sorted.
func SupportedTUIViews() []string {
	out := make([]string, 0, len(views))
	for v := range views {
		out = append(out, v)
	}
	slices.Sort(out)
	return out
}
