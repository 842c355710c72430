package router

import (
	"strings"

	"github.com/pithecene-io/skein/state"
	"github.com/pithecene-io/skein/types"
	"github.com/pithecene-io/skein/window"
)

// prompt ends a chunk. A chunk that had silent updates and no main text
// suppresses the visible prompt; otherwise the prompt is written to main
// one character per segment. Both flags reset either way.
func (r *Router) prompt(p types.Prompt) {
	// An open channel keeps buffering across the prompt until its pop.
	r.flushBuffer()

	if ts := r.checkTimestamp("prompt", p.Time); ts > 0 {
		r.state.ServerOffset = ts - r.now().Unix()
	}
	r.state.ExpireEvents(r.serverNow())

	show := !(r.hasSilent && !r.hasMainText)
	if show {
		line := r.promptLine(p.Text)
		now := r.now()
		for _, w := range r.windows.Subscribers(types.DefaultStream) {
			if w.Kind != window.KindText {
				continue
			}
			r.windows.Append(w.Name, line)
			r.outbox.Deliveries = append(r.outbox.Deliveries, Delivery{
				Window: w.Name,
				Stream: types.DefaultStream,
				Line:   line,
				Time:   now,
			})
		}
		r.lastPrompt = p.Text
		r.state.LastPrompt = p.Text
	}
	r.metrics.IncPrompt(show)

	r.hasMainText = false
	r.hasSilent = false
}

// promptLine renders prompt text with the prompt colour table.
func (r *Router) promptLine(text string) types.Line {
	line := make(types.Line, 0, len(text))
	for _, c := range text {
		line = append(line, types.Segment{
			Text:     string(c),
			Fg:       r.promptColors[c],
			Category: types.CategoryNormal,
		})
	}
	return line
}

// checkTimestamp neutralises timestamps before EpochFloor.
func (r *Router) checkTimestamp(kind string, ts int64) int64 {
	if ts == 0 || ts >= EpochFloor {
		return ts
	}
	r.metrics.IncTimestampNeutralized()
	r.warn("timestamp before epoch floor replaced", map[string]any{
		"kind":      kind,
		"timestamp": ts,
	})
	return 0
}

func (r *Router) serverNow() int64 {
	return r.state.ServerNow(r.now().Unix())
}

// timer hands a server end-time to the state mirror and to countdown
// windows subscribed to name.
func (r *Router) timer(name string, end int64) {
	end = r.checkTimestamp(name, end)
	switch name {
	case "roundtime":
		r.state.RoundTimeEnd = end
	case "casttime":
		r.state.CastTimeEnd = end
	}
	for _, w := range r.windows.Subscribers(name) {
		r.windows.SetCountdown(w.Name, end)
	}
	r.hasSilent = true
}

// event applies a matched event and queues it for notification.
func (r *Router) event(ev types.Event) {
	active := r.state.ApplyEvent(ev, r.serverNow())
	for _, w := range r.windows.Subscribers(ev.Type) {
		switch w.Kind {
		case window.KindCountdown:
			r.windows.SetCountdown(w.Name, active.End)
		case window.KindIndicator:
			r.windows.SetActive(w.Name, ev.Action != types.EventClear)
		}
	}
	r.outbox.Events = append(r.outbox.Events, ev)
}

func (r *Router) streamWindow(sw types.StreamWindow) {
	if sw.ID == StreamRoom {
		title := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(sw.Subtitle), "-"))
		if title != "" {
			r.state.Room.Title = title
		}
		for _, w := range r.windows.Subscribers(StreamRoom) {
			r.windows.SetTitle(w.Name, title)
		}
	} else if sw.Title != "" {
		r.windows.SetTitle(sw.ID, sw.Title)
	}
	r.hasSilent = true
}

// update handles state-only elements. Every one of them is a silent update.
func (r *Router) update(el types.Element) {
	switch e := el.(type) {
	case types.ProgressBar:
		r.vital(e.ID, e.Value, e.Max, e.Text)
	case types.Indicator:
		r.state.SetIndicator(e.ID, e.Active)
		for _, w := range r.windows.Subscribers(e.ID) {
			r.windows.SetActive(w.Name, e.Active)
		}
	case types.Hand:
		r.state.SetHand(e.Slot, state.Hand{Text: e.Text, Noun: e.Noun, Exist: e.Exist})
		r.replaceKind(string(e.Slot), window.KindHand, e.Text)
	case types.Spell:
		r.state.Spell = e.Text
	case types.Compass:
		r.state.SetExits(e.Dirs)
		r.replaceKind("compass", window.KindCompass, strings.Join(e.Dirs, " "))
	case types.Nav:
		r.state.Room.ID = e.RoomID
	case types.ContainerOpen:
		if _, ok := r.state.Containers[e.ID]; !ok {
			r.state.ClearContainer(e.ID)
		}
		if e.Title != "" {
			r.windows.SetTitle(e.ID, e.Title)
		}
	case types.ContainerClear:
		r.state.ClearContainer(e.ID)
		for _, w := range r.windows.Subscribers(e.ID) {
			r.windows.Clear(w.Name)
		}
	case types.ContainerItem:
		r.state.AddContainerItem(e.ContainerID, e.Text)
		for _, w := range r.windows.Subscribers(e.ContainerID) {
			r.windows.Append(w.Name, types.Line{{Text: e.Text, Category: types.CategoryNormal}})
		}
	case types.DialogOpen, types.DialogClose, types.DialogButtons, types.DialogFields,
		types.DialogProgressBars, types.DialogLabels, types.DialogImages:
		r.dialog(el)
	case types.Menu:
		m := e
		r.state.LastMenu = &m
	case types.LaunchURL:
		r.outbox.URLs = append(r.outbox.URLs, e.URL)
	case types.CharacterInfo:
		r.state.Character = e.Name
		r.state.Game = e.Game
	case types.Output:
		r.state.OutputMode = e.Class
	default:
		return
	}
	r.hasSilent = true
}

func (r *Router) vital(id string, value, maxVal int, text string) {
	r.state.SetVital(id, state.Vital{Value: value, Max: maxVal, Text: text})
	for _, w := range r.windows.Subscribers(id) {
		r.windows.SetProgress(w.Name, window.Progress{Value: value, Max: maxVal, Text: text})
	}
}

func (r *Router) replaceKind(stream string, kind window.Kind, text string) {
	for _, w := range r.windows.Subscribers(stream) {
		if w.Kind == kind {
			r.windows.Replace(w.Name, []types.Line{{{Text: text, Category: types.CategoryNormal}}})
		}
	}
}
