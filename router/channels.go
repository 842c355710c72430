package router

import (
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/pithecene-io/skein/types"
	"github.com/pithecene-io/skein/window"
)

// channel is a side channel with its own buffer and flush trigger.
type channel int

const (
	chanNone channel = iota
	chanInventory
	chanCombat
	chanPlayers
	chanPerception
	chanRoom
)

// Channel streams as the server names them.
const (
	StreamInventory  = "inv"
	StreamCombat     = "combat"
	StreamPlayers    = "playerlist"
	StreamPerception = "percWindow"
	StreamRoom       = "room"
)

func channelFor(stream string) channel {
	switch stream {
	case StreamInventory:
		return chanInventory
	case StreamCombat:
		return chanCombat
	case StreamPlayers:
		return chanPlayers
	case StreamPerception:
		return chanPerception
	case StreamRoom:
		return chanRoom
	}
	return chanNone
}

func (c channel) stream() string {
	switch c {
	case chanInventory:
		return StreamInventory
	case chanCombat:
		return StreamCombat
	case chanPlayers:
		return StreamPlayers
	case chanPerception:
		return StreamPerception
	case chanRoom:
		return StreamRoom
	}
	return ""
}

// snapshotDigest remembers the digest of the last materialization.
type snapshotDigest struct {
	sum uint64
	set bool
}

// digestLines hashes text and style of every segment. Equal digests mean
// a materialization would not change anything.
func digestLines(lines []types.Line) uint64 {
	d := xxhash.New()
	for _, l := range lines {
		for _, seg := range l {
			_, _ = d.WriteString(seg.Text)
			_, _ = d.WriteString("\x00")
			_, _ = d.WriteString(seg.Fg)
			_, _ = d.WriteString("\x00")
			_, _ = d.WriteString(seg.Bg)
			_, _ = d.WriteString("\x00")
			_, _ = d.WriteString(string(seg.Category))
			if seg.Bold {
				_, _ = d.WriteString("\x01")
			}
			if seg.Link != nil {
				_, _ = d.WriteString(seg.Link.ExistID)
				_, _ = d.WriteString(seg.Link.Command)
			}
			_, _ = d.WriteString("\x1e")
		}
		_, _ = d.WriteString("\x1f")
	}
	return d.Sum64()
}

// materialize flushes a side-channel buffer to its windows.
func (r *Router) materialize(ch channel) {
	lines := r.channels[ch]
	delete(r.channels, ch)
	r.hasSilent = true

	switch ch {
	case chanInventory:
		sum := digestLines(lines)
		if r.inventory.set && r.inventory.sum == sum {
			r.metrics.IncInventory(false)
			return
		}
		r.inventory = snapshotDigest{sum: sum, set: true}
		r.metrics.IncInventory(true)
		r.replace(ch.stream(), lines)
	case chanCombat, chanPlayers:
		r.replace(ch.stream(), lines)
	case chanPerception:
		r.perception = parsePerception(lines)
		r.metrics.IncPerception()
		out := make([]types.Line, len(r.perception))
		for i, e := range r.perception {
			out[i] = types.Line{{Text: e.Raw, Category: types.CategoryNormal, Link: e.Link}}
		}
		r.replace(ch.stream(), out)
	}
}

// replace swaps the content of every non-text window subscribed to stream.
func (r *Router) replace(stream string, lines []types.Line) {
	for _, w := range r.windows.Subscribers(stream) {
		r.windows.Replace(w.Name, lines)
	}
}

// closeComponent caches a finished component and writes it only when it
// changed. Room components go to room windows; any other component goes to
// windows subscribed to its id.
func (r *Router) closeComponent(id string) {
	if id == "" {
		id = r.component
	}
	line := r.compBuf
	r.component = ""
	r.compBuf = nil
	r.hasSilent = true

	sum := digestLines([]types.Line{line})
	if prev, ok := r.roomCache[id]; ok && prev == sum {
		return
	}
	r.roomCache[id] = sum

	if strings.HasPrefix(id, "room ") {
		for _, w := range r.windows.Subscribers(StreamRoom) {
			if w.Kind == window.KindRoom {
				r.windows.SetComponent(w.Name, id, line)
			}
		}
		return
	}
	r.replace(id, []types.Line{line})
}
