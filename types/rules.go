package types

import (
	"fmt"
	"strings"
)

// EventAction is what a matched event does to its indicator or countdown.
type EventAction string

// Event actions.
const (
	EventSet       EventAction = "set"
	EventClear     EventAction = "clear"
	EventIncrement EventAction = "increment"
)

// ParseEventAction parses an action name, defaulting empty to set.
func ParseEventAction(s string) (EventAction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "set":
		return EventSet, nil
	case "clear":
		return EventClear, nil
	case "increment", "inc":
		return EventIncrement, nil
	default:
		return "", fmt.Errorf("unknown event action %q (must be set, clear or increment)", s)
	}
}

// EventPattern is a user-supplied event trigger.
type EventPattern struct {
	Name      string      `yaml:"name" json:"name"`
	Pattern   string      `yaml:"pattern" json:"pattern"`
	EventType string      `yaml:"event_type" json:"event_type"`
	Action    EventAction `yaml:"action" json:"action"`
	// Duration is the static duration in seconds.
	Duration float64 `yaml:"duration" json:"duration"`
	// DurationCapture is the capture group holding a numeric duration; 0 disables.
	DurationCapture int `yaml:"duration_capture" json:"duration_capture"`
	// DurationMultiplier scales the captured value (e.g. rounds to seconds).
	DurationMultiplier float64 `yaml:"duration_multiplier" json:"duration_multiplier"`
	// Enabled defaults to true when omitted.
	Enabled *bool `yaml:"enabled,omitempty" json:"enabled,omitempty"`
}

// IsEnabled reports whether the pattern participates in matching.
func (p EventPattern) IsEnabled() bool {
	return p.Enabled == nil || *p.Enabled
}

// RedirectMode controls whether a redirected line still reaches its origin.
type RedirectMode string

// Redirect modes.
const (
	// RedirectOnly delivers to the target stream instead of the original.
	RedirectOnly RedirectMode = "only"
	// RedirectCopy delivers to both the target and the original stream.
	RedirectCopy RedirectMode = "copy"
)

// HighlightScope selects what a highlight style applies to.
type HighlightScope string

// Highlight scopes.
const (
	ScopeMatch HighlightScope = "match"
	ScopeLine  HighlightScope = "line"
)

// HighlightPattern is a user-supplied text filter.
type HighlightPattern struct {
	Name    string `yaml:"name" json:"name"`
	Pattern string `yaml:"pattern" json:"pattern"`
	// FastParse treats Pattern as a '|'-separated list of literals.
	FastParse    bool           `yaml:"fast_parse" json:"fast_parse"`
	Squelch      bool           `yaml:"squelch" json:"squelch"`
	RedirectTo   string         `yaml:"redirect_to" json:"redirect_to,omitempty"`
	RedirectMode RedirectMode   `yaml:"redirect_mode" json:"redirect_mode,omitempty"`
	Replace      string         `yaml:"replace" json:"replace,omitempty"`
	Scope        HighlightScope `yaml:"scope" json:"scope,omitempty"`
	Fg           string         `yaml:"fg" json:"fg,omitempty"`
	Bg           string         `yaml:"bg" json:"bg,omitempty"`
	Bold         bool           `yaml:"bold" json:"bold,omitempty"`
}

// Literals splits a fast-parse pattern into its literal alternatives.
func (h HighlightPattern) Literals() []string {
	parts := strings.Split(h.Pattern, "|")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// HasStyle reports whether the rule restyles matching text.
func (h HighlightPattern) HasStyle() bool {
	return h.Fg != "" || h.Bg != "" || h.Bold
}

// CompileError reports a rule that failed to compile and was skipped.
type CompileError struct {
	Rule    string
	Pattern string
	Err     error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("rule %q: invalid pattern %q: %v", e.Rule, e.Pattern, e.Err)
}

func (e *CompileError) Unwrap() error {
	return e.Err
}
