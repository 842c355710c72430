package router

import (
	"strings"
	"unicode/utf8"

	"github.com/pithecene-io/skein/types"
	"github.com/pithecene-io/skein/window"
)

// flushLine applies squelch, then redirect, then highlight, and delivers.
// A squelched line is dropped before redirect rules are consulted.
func (r *Router) flushLine(stream string, line types.Line) {
	r.metrics.IncFlush()
	plain := line.Plain()

	if r.filters.Squelched(plain) {
		r.metrics.IncSquelched()
		r.hasSilent = true
		return
	}

	toOrigin := true
	target := ""
	if r.filters.HasRedirects() {
		if rd, ok := r.filters.Redirect(plain); ok {
			r.metrics.IncRedirected()
			target = rd.Target
			toOrigin = rd.Mode == types.RedirectCopy
		}
	}

	line = r.filters.Highlight(line)
	if toOrigin {
		r.deliver(stream, line)
	}
	if target != "" && (target != stream || !toOrigin) {
		r.deliver(target, line)
	}
}

// deliver writes a finished line to the consumers of stream.
//
// Channel streams buffer instead of writing. Room text is discarded; room
// content arrives through components. An orphaned stream on the discard
// list is withheld; any other orphaned stream falls back to main.
func (r *Router) deliver(stream string, line types.Line) {
	if ch := channelFor(stream); ch != chanNone {
		if ch != chanRoom {
			r.channels[ch] = append(r.channels[ch], line)
		}
		r.hasSilent = true
		return
	}

	subs := r.windows.Subscribers(stream)
	if len(subs) == 0 && stream != types.DefaultStream {
		if r.discard[stream] {
			r.metrics.IncWithheld()
			r.hasSilent = true
			return
		}
		stream = types.DefaultStream
		subs = r.windows.Subscribers(stream)
	}

	now := r.now()
	for _, w := range subs {
		if w.Kind != window.KindText {
			continue
		}
		r.windows.Append(w.Name, line)
		r.outbox.Deliveries = append(r.outbox.Deliveries, Delivery{
			Window: w.Name,
			Stream: stream,
			Line:   line,
			Time:   now,
		})
		r.speak(w, line)
	}

	switch {
	case stream != types.DefaultStream:
		r.hasSilent = true
	case pureSpeech(line) && !r.speechConsumer():
		// Nobody speaks it, so it does not force a visible prompt.
	default:
		r.hasMainText = true
	}
}

// pureSpeech reports whether every non-blank segment of line carries a
// speech-like category.
func pureSpeech(line types.Line) bool {
	found := false
	for _, seg := range line {
		if strings.TrimSpace(seg.Text) == "" {
			continue
		}
		if !seg.Category.IsSpeech() {
			return false
		}
		found = true
	}
	return found
}

// speechConsumer reports whether speech output is enabled and some window
// speaks.
func (r *Router) speechConsumer() bool {
	if !r.speech.Enabled {
		return false
	}
	for _, name := range r.windows.Names() {
		if w, ok := r.windows.Get(name); ok && w.Speech {
			return true
		}
	}
	return false
}

// speak queues a delivered line for speech output. Single-character lines
// are skipped.
func (r *Router) speak(w *window.Window, line types.Line) {
	if !r.speech.Enabled || !w.Speech {
		return
	}
	text := strings.TrimSpace(line.Plain())
	if utf8.RuneCountInString(text) <= 1 {
		return
	}
	prio := PriorityNormal
	if !w.Subscribes(types.DefaultStream) {
		prio = r.speech.SideChannelPriority
	}
	r.outbox.Speech = append(r.outbox.Speech, Speech{Text: text, Source: w.Name, Priority: prio})
	r.metrics.IncSpeechQueued()
}
