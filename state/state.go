// Package state mirrors the game state carried by the markup stream:
// vitals, status indicators, hands, timers, room and active events.
//
// State is mutated only by the router inside the pipeline's critical
// section. Readers on other goroutines take a Snapshot.
package state

import (
	"maps"
	"slices"

	"github.com/pithecene-io/skein/types"
)

// Vital is one progress-style value (health, mana, ...).
type Vital struct {
	Value int    `json:"value" yaml:"value"`
	Max   int    `json:"max" yaml:"max"`
	Text  string `json:"text,omitempty" yaml:"text,omitempty"`
}

// Hand is the content of one hand slot.
type Hand struct {
	Text  string `json:"text" yaml:"text"`
	Noun  string `json:"noun,omitempty" yaml:"noun,omitempty"`
	Exist string `json:"exist,omitempty" yaml:"exist,omitempty"`
}

// Room is the current room.
type Room struct {
	ID    string   `json:"id,omitempty" yaml:"id,omitempty"`
	Title string   `json:"title,omitempty" yaml:"title,omitempty"`
	Exits []string `json:"exits,omitempty" yaml:"exits,omitempty"`
}

// ActiveEvent is an event currently in effect.
type ActiveEvent struct {
	Type string `json:"type" yaml:"type"`
	Text string `json:"text,omitempty" yaml:"text,omitempty"`
	// End is the absolute server time the event expires; 0 never expires.
	End   int64 `json:"end,omitempty" yaml:"end,omitempty"`
	Count int   `json:"count" yaml:"count"`
}

// State is the game-state mirror.
type State struct {
	Character string `json:"character,omitempty" yaml:"character,omitempty"`
	Game      string `json:"game,omitempty" yaml:"game,omitempty"`

	Vitals     map[string]Vital        `json:"vitals" yaml:"vitals"`
	Indicators map[string]bool         `json:"indicators" yaml:"indicators"`
	Hands      map[types.HandSlot]Hand `json:"hands" yaml:"hands"`
	Spell      string                  `json:"spell,omitempty" yaml:"spell,omitempty"`
	Containers map[string][]string     `json:"containers,omitempty" yaml:"containers,omitempty"`
	Events     map[string]ActiveEvent  `json:"events,omitempty" yaml:"events,omitempty"`
	Room       Room                    `json:"room" yaml:"room"`

	RoundTimeEnd int64 `json:"roundtime_end,omitempty" yaml:"roundtime_end,omitempty"`
	CastTimeEnd  int64 `json:"casttime_end,omitempty" yaml:"casttime_end,omitempty"`
	// ServerOffset is server time minus local time, in seconds, derived from
	// the most recent prompt.
	ServerOffset int64 `json:"server_offset" yaml:"server_offset"`

	LastPrompt string      `json:"last_prompt,omitempty" yaml:"last_prompt,omitempty"`
	LastMenu   *types.Menu `json:"last_menu,omitempty" yaml:"last_menu,omitempty"`
	OutputMode string      `json:"output_mode,omitempty" yaml:"output_mode,omitempty"`
}

// New returns an empty State.
func New() *State {
	return &State{
		Vitals:     make(map[string]Vital),
		Indicators: make(map[string]bool),
		Hands:      make(map[types.HandSlot]Hand),
		Containers: make(map[string][]string),
		Events:     make(map[string]ActiveEvent),
	}
}

// SetVital records a vital's value.
func (s *State) SetVital(id string, v Vital) {
	s.Vitals[id] = v
}

// SetIndicator records a status flag.
func (s *State) SetIndicator(id string, active bool) {
	s.Indicators[id] = active
}

// SetHand records a hand slot. The spell slot also updates Spell.
func (s *State) SetHand(slot types.HandSlot, h Hand) {
	s.Hands[slot] = h
	if slot == types.HandSpell {
		s.Spell = h.Text
	}
}

// SetExits records the compass directions of the current room.
func (s *State) SetExits(dirs []string) {
	s.Room.Exits = slices.Clone(dirs)
}

// ClearContainer empties a container.
func (s *State) ClearContainer(id string) {
	s.Containers[id] = nil
}

// AddContainerItem appends an item to a container.
func (s *State) AddContainerItem(id, text string) {
	s.Containers[id] = append(s.Containers[id], text)
}

// ServerNow converts a local unix time to server time.
func (s *State) ServerNow(local int64) int64 {
	return local + s.ServerOffset
}

// Remaining returns the seconds left until end at local time now, never
// negative. An unset end has nothing remaining.
func (s *State) Remaining(end, now int64) int64 {
	if end == 0 {
		return 0
	}
	if left := end - s.ServerNow(now); left > 0 {
		return left
	}
	return 0
}

// ApplyEvent applies a matched event at server time now.
func (s *State) ApplyEvent(ev types.Event, now int64) ActiveEvent {
	cur := s.Events[ev.Type]
	switch ev.Action {
	case types.EventClear:
		delete(s.Events, ev.Type)
		return ActiveEvent{Type: ev.Type}
	case types.EventIncrement:
		cur.Count++
	default:
		cur.Count = 1
	}
	cur.Type = ev.Type
	cur.Text = ev.Text
	cur.End = 0
	if ev.Duration > 0 {
		cur.End = now + int64(ev.Duration+0.5)
	}
	s.Events[ev.Type] = cur
	return cur
}

// ExpireEvents drops events whose end time is at or before server time now.
// It returns the expired event types in sorted order.
func (s *State) ExpireEvents(now int64) []string {
	var expired []string
	for typ, ev := range s.Events {
		if ev.End != 0 && ev.End <= now {
			expired = append(expired, typ)
		}
	}
	slices.Sort(expired)
	for _, typ := range expired {
		delete(s.Events, typ)
	}
	return expired
}

// Snapshot returns a deep copy safe to hand to another goroutine.
func (s *State) Snapshot() *State {
	out := *s
	out.Vitals = maps.Clone(s.Vitals)
	out.Indicators = maps.Clone(s.Indicators)
	out.Hands = maps.Clone(s.Hands)
	out.Events = maps.Clone(s.Events)
	out.Containers = make(map[string][]string, len(s.Containers))
	for k, v := range s.Containers {
		out.Containers[k] = slices.Clone(v)
	}
	out.Room.Exits = slices.Clone(s.Room.Exits)
	if s.LastMenu != nil {
		m := *s.LastMenu
		m.Items = slices.Clone(s.LastMenu.Items)
		out.LastMenu = &m
	}
	return &out
}
