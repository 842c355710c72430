package markup

import (
	"regexp"
	"strconv"

	"github.com/pithecene-io/skein/types"
)

// compiledEvent is an enabled EventPattern with its regexp.
type compiledEvent struct {
	pattern types.EventPattern
	re      *regexp.Regexp
}

// EventMatcher tests text runs against event patterns in declaration order.
type EventMatcher struct {
	events []compiledEvent
}

// CompileEvents builds a matcher from patterns. Disabled patterns are
// skipped; patterns that fail to compile are skipped and reported.
func CompileEvents(patterns []types.EventPattern) (*EventMatcher, []*types.CompileError) {
	m := &EventMatcher{events: make([]compiledEvent, 0, len(patterns))}
	var errs []*types.CompileError
	for _, p := range patterns {
		if !p.IsEnabled() {
			continue
		}
		re, err := regexp.Compile(p.Pattern)
		if err != nil {
			errs = append(errs, &types.CompileError{Rule: p.Name, Pattern: p.Pattern, Err: err})
			continue
		}
		if p.Action == "" {
			p.Action = types.EventSet
		}
		m.events = append(m.events, compiledEvent{pattern: p, re: re})
	}
	return m, errs
}

// Len returns the number of active patterns.
func (m *EventMatcher) Len() int {
	if m == nil {
		return 0
	}
	return len(m.events)
}

// Match returns one Event per matching pattern, in declaration order.
// A pattern does not stop later patterns from matching.
func (m *EventMatcher) Match(text string) []types.Event {
	if m == nil || len(m.events) == 0 || text == "" {
		return nil
	}
	var out []types.Event
	for _, ev := range m.events {
		sub := ev.re.FindStringSubmatch(text)
		if sub == nil {
			continue
		}
		out = append(out, types.Event{
			Type:     ev.pattern.EventType,
			Action:   ev.pattern.Action,
			Duration: eventDuration(ev.pattern, sub),
			Text:     sub[0],
		})
	}
	return out
}

// eventDuration resolves the duration from the capture group when
// configured, falling back to the static duration.
func eventDuration(p types.EventPattern, sub []string) float64 {
	if p.DurationCapture <= 0 || p.DurationCapture >= len(sub) {
		return p.Duration
	}
	v, err := strconv.ParseFloat(sub[p.DurationCapture], 64)
	if err != nil {
		return p.Duration
	}
	mult := p.DurationMultiplier
	if mult == 0 {
		mult = 1
	}
	return v * mult
}
