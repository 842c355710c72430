// Package router multiplexes decoded elements into windows and the game
// state mirror.
//
// The Router keeps a flat stream register: a push overwrites it and a pop
// flushes and resets it to "main". Text accumulates into a segment buffer
// that is flushed at a pop, a prompt or the end of a line. A flushed line
// passes through squelch, redirect and highlight rules before delivery.
// Side channels (inventory, combat, player list, perception, room) collect
// into dedicated buffers and materialize only at their own trigger.
//
// A Router is a session object and is not safe for concurrent use.
package router

import (
	"time"

	"github.com/pithecene-io/skein/filter"
	"github.com/pithecene-io/skein/log"
	"github.com/pithecene-io/skein/metrics"
	"github.com/pithecene-io/skein/state"
	"github.com/pithecene-io/skein/types"
	"github.com/pithecene-io/skein/window"
)

// EpochFloor is the earliest timestamp accepted from the server
// (2000-01-01T00:00:00Z). Earlier values are replaced by 0.
const EpochFloor int64 = 946684800

// DefaultDiscardStreams are withheld entirely when no window subscribes.
var DefaultDiscardStreams = []string{
	"speech", "talk", "whispers", "thoughts", "familiar", "death", "logons",
	"atmospherics", "chatter", "ooc", "group", "conversation",
}

// Priority orders speech output.
type Priority int

// Speech priorities.
const (
	PriorityNormal Priority = 1
	PriorityHigh   Priority = 2
)

// Speech is one line queued for speech output.
type Speech struct {
	Text     string   `json:"text"`
	Source   string   `json:"source"`
	Priority Priority `json:"priority"`
}

// Delivery records one line written into a text window.
type Delivery struct {
	Window string     `json:"window"`
	Stream string     `json:"stream"`
	Line   types.Line `json:"line"`
	Time   time.Time  `json:"ts"`
}

// Outbox collects what the router produced since the last Drain.
type Outbox struct {
	Events     []types.Event
	Speech     []Speech
	Deliveries []Delivery
	URLs       []string
}

// Empty reports whether nothing is queued.
func (o Outbox) Empty() bool {
	return len(o.Events) == 0 && len(o.Speech) == 0 && len(o.Deliveries) == 0 && len(o.URLs) == 0
}

// SpeechOptions configures speech emission.
type SpeechOptions struct {
	Enabled bool
	// SideChannelPriority is used for speech windows that do not receive
	// main. Zero means PriorityHigh.
	SideChannelPriority Priority
}

// Options configures a Router.
type Options struct {
	Windows *window.Registry
	State   *state.State
	Filters *filter.Set
	// PromptColors maps a prompt character to a colour.
	PromptColors map[rune]string
	// DiscardStreams overrides DefaultDiscardStreams when non-nil.
	DiscardStreams []string
	Speech         SpeechOptions
	Logger         *log.Logger
	Metrics        *metrics.Collector
	// Now defaults to time.Now.
	Now func() time.Time
}

// Router is the routing session.
type Router struct {
	windows *window.Registry
	state   *state.State
	filters *filter.Set
	logger  *log.Logger
	metrics *metrics.Collector
	now     func() time.Time

	promptColors map[rune]string
	discard      map[string]bool
	speech       SpeechOptions

	// Flat stream register and the in-progress line.
	stream      string
	withholding bool
	buf         types.Line
	lineHasText bool

	channels  map[channel][]types.Line
	inventory snapshotDigest

	component  string
	compBuf    types.Line
	roomCache  map[string]uint64
	perception []PerceptionEntry

	hasMainText bool
	hasSilent   bool
	lastPrompt  string
	outbox      Outbox
}

// New creates a Router. A nil registry or state gets an empty one.
func New(opts Options) *Router {
	r := &Router{
		windows:   opts.Windows,
		state:     opts.State,
		filters:   opts.Filters,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		now:       opts.Now,
		stream:    types.DefaultStream,
		channels:  make(map[channel][]types.Line),
		roomCache: make(map[string]uint64),
	}
	if r.windows == nil {
		r.windows = window.NewRegistry()
	}
	if r.state == nil {
		r.state = state.New()
	}
	if r.now == nil {
		r.now = time.Now
	}
	r.SetPromptColors(opts.PromptColors)
	r.SetDiscardStreams(opts.DiscardStreams)
	r.SetSpeech(opts.Speech)
	return r
}

// SetFilters swaps the compiled rule set. Call between lines.
func (r *Router) SetFilters(s *filter.Set) {
	r.filters = s
}

// SetPromptColors replaces the prompt colour table.
func (r *Router) SetPromptColors(colors map[rune]string) {
	r.promptColors = make(map[rune]string, len(colors))
	for k, v := range colors {
		r.promptColors[k] = v
	}
}

// SetDiscardStreams replaces the discard-if-orphaned list. nil restores
// DefaultDiscardStreams.
func (r *Router) SetDiscardStreams(streams []string) {
	if streams == nil {
		streams = DefaultDiscardStreams
	}
	r.discard = make(map[string]bool, len(streams))
	for _, s := range streams {
		r.discard[s] = true
	}
}

// SetSpeech replaces the speech options.
func (r *Router) SetSpeech(o SpeechOptions) {
	if o.SideChannelPriority == 0 {
		o.SideChannelPriority = PriorityHigh
	}
	r.speech = o
}

// Windows returns the window registry.
func (r *Router) Windows() *window.Registry { return r.windows }

// State returns the game-state mirror.
func (r *Router) State() *state.State { return r.state }

// Stream returns the router's stream register.
func (r *Router) Stream() string { return r.stream }

// LastPrompt returns the raw text of the last visible prompt.
func (r *Router) LastPrompt() string { return r.lastPrompt }

// Perception returns the entries of the last perception materialization.
func (r *Router) Perception() []PerceptionEntry { return r.perception }

// Drain returns and clears everything queued since the last call.
func (r *Router) Drain() Outbox {
	out := r.outbox
	r.outbox = Outbox{}
	return out
}

// ProcessLine routes the elements of one decoded line and then flushes
// the line.
func (r *Router) ProcessLine(els []types.Element) {
	for _, el := range els {
		r.Process(el)
	}
	r.EndLine()
}

// EndLine is the line terminator: pending text is flushed to the current
// stream.
func (r *Router) EndLine() {
	r.flushBuffer()
}

// Process consumes one element.
func (r *Router) Process(el types.Element) {
	switch e := el.(type) {
	case types.Text:
		r.text(e)
	case types.StreamPush:
		r.push(e.ID)
	case types.StreamPop:
		r.pop()
	case types.ClearStream:
		r.clearStream(e.ID)
	case types.Prompt:
		r.prompt(e)
	case types.RoundTime:
		r.timer("roundtime", e.End)
	case types.CastTime:
		r.timer("casttime", e.End)
	case types.Event:
		r.event(e)
	case types.ComponentOpen:
		r.flushBuffer()
		r.component = e.ID
		r.compBuf = nil
	case types.ComponentClose:
		r.closeComponent(e.ID)
	case types.StreamWindow:
		r.streamWindow(e)
	default:
		r.update(el)
	}
}

func (r *Router) text(t types.Text) {
	r.lineHasText = true
	switch {
	case r.withholding:
		r.hasSilent = true
	case r.component != "":
		r.compBuf = append(r.compBuf, t.Segment)
	default:
		r.buf = append(r.buf, t.Segment)
	}
}

// push overwrites the register. Pending text belongs to the previous stream.
// A channel overwritten before its pop never completes, so its partial
// buffer is dropped; entering a channel starts an empty buffer.
func (r *Router) push(id string) {
	r.flushBuffer()
	for _, s := range [...]string{r.stream, id} {
		if ch := channelFor(s); ch != chanNone {
			delete(r.channels, ch)
		}
	}
	r.stream = id
	r.withholding = r.discard[id] && !r.windows.HasSubscriber(id)
	if r.withholding {
		r.metrics.IncWithheld()
		r.debug("withholding orphaned stream", map[string]any{"stream": id})
	}
}

// pop flushes, materializes the current channel and resets to main,
// regardless of what was active before the last push.
func (r *Router) pop() {
	r.flushBuffer()
	if ch := channelFor(r.stream); ch != chanNone {
		r.materialize(ch)
	}
	r.stream = types.DefaultStream
	r.withholding = false
}

func (r *Router) clearStream(id string) {
	r.flushBuffer()
	r.hasSilent = true
	// Channel windows are replaced wholesale when the channel materializes.
	if ch := channelFor(id); ch != chanNone {
		delete(r.channels, ch)
		return
	}
	for _, w := range r.windows.Subscribers(id) {
		r.windows.Clear(w.Name)
	}
}

// flushBuffer delivers the in-progress line to the current stream.
func (r *Router) flushBuffer() {
	if !r.lineHasText && len(r.buf) == 0 {
		return
	}
	line := r.buf
	r.buf = nil
	r.lineHasText = false
	if r.withholding {
		return
	}
	if len(line) == 0 {
		// Everything on the line went to a component.
		return
	}
	r.flushLine(r.stream, line)
}

func (r *Router) debug(msg string, fields map[string]any) {
	if r.logger == nil {
		return
	}
	r.logger.Debug(msg, fields)
}

func (r *Router) warn(msg string, fields map[string]any) {
	if r.logger == nil {
		return
	}
	r.logger.Warn(msg, fields)
}
