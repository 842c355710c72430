// Package markup decodes the game server's loosely-XML markup.
//
// A Decoder turns one raw line into an ordered slice of types.Element. It
// keeps style stacks, link depth and the stream register across calls:
// markup opened on one line stays in effect on the next. The Decoder is not
// safe for concurrent use; the pipeline serialises calls.
package markup

import (
	"strconv"
	"strings"

	"github.com/pithecene-io/skein/log"
	"github.com/pithecene-io/skein/types"
)

// Options configures a Decoder.
type Options struct {
	// Presets maps preset and style ids to colours.
	Presets map[string]types.StyleFrame
	// Events are compiled into the event matcher.
	Events []types.EventPattern
	// Logger is optional; nil disables logging.
	Logger *log.Logger
}

// namedFrame is a preset or style stack entry.
type namedFrame struct {
	id    string
	frame types.StyleFrame
}

// menuScratch collects <mi> items until </menu>.
type menuScratch struct {
	id    string
	items []types.MenuItem
}

// Decoder is the markup decoding session.
type Decoder struct {
	presets map[string]types.StyleFrame
	events  *EventMatcher
	logger  *log.Logger

	colors      []types.StyleFrame
	presetStack []namedFrame
	styles      []namedFrame
	bolds       int

	linkDepth  int
	spellDepth int
	link       *types.LinkMetadata

	stream    string
	menu      *menuScratch
	container string
	component string
}

// NewDecoder creates a Decoder. Event patterns that fail to compile are
// returned alongside it and otherwise ignored.
func NewDecoder(opts Options) (*Decoder, []*types.CompileError) {
	d := &Decoder{
		presets: copyPresets(opts.Presets),
		logger:  opts.Logger,
		stream:  types.DefaultStream,
	}
	errs := d.SetEventPatterns(opts.Events)
	return d, errs
}

// SetPresets replaces the preset colour table.
func (d *Decoder) SetPresets(presets map[string]types.StyleFrame) {
	d.presets = copyPresets(presets)
}

// SetEventPatterns recompiles the event matcher. Patterns that fail to
// compile are skipped and returned; reporting them is up to the caller.
func (d *Decoder) SetEventPatterns(patterns []types.EventPattern) []*types.CompileError {
	m, errs := CompileEvents(patterns)
	d.events = m
	return errs
}

// Stream returns the decoder's stream register.
func (d *Decoder) Stream() string {
	return d.stream
}

// Reset clears all session state but keeps presets and event patterns.
// Used when a connection is re-established.
func (d *Decoder) Reset() {
	d.colors = nil
	d.presetStack = nil
	d.styles = nil
	d.bolds = 0
	d.linkDepth = 0
	d.spellDepth = 0
	d.link = nil
	d.stream = types.DefaultStream
	d.menu = nil
	d.container = ""
	d.component = ""
}

// Parse decodes one line.
//
// A blank line yields a single empty Text. A non-blank line that produces
// nothing (pure control markup) yields an empty slice.
func (d *Decoder) Parse(line string) []types.Element {
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return []types.Element{types.Text{Segment: d.resolve(""), Stream: d.stream}}
	}

	p := &pass{d: d}
	pos := 0
	for pos < len(line) {
		i := strings.IndexByte(line[pos:], '<')
		if i < 0 {
			p.raw.WriteString(line[pos:])
			break
		}
		p.raw.WriteString(line[pos : pos+i])
		pos += i

		t, end, res := scanTag(line, pos)
		switch res {
		case scanLiteral:
			p.raw.WriteByte('<')
			pos++
		case scanUnterminated:
			p.raw.WriteString(line[pos:])
			pos = len(line)
		case scanOK:
			p.flush()
			pos = p.handle(line, t, end)
		}
	}
	p.flush()
	return p.out
}

// pass is the scratch state of one Parse call.
type pass struct {
	d   *Decoder
	out []types.Element
	raw strings.Builder
}

func (p *pass) emit(el types.Element) {
	p.out = append(p.out, el)
}

// flush emits pending raw text as a styled Text run.
func (p *pass) flush() {
	if p.raw.Len() == 0 {
		return
	}
	text := decodeEntities(p.raw.String())
	p.raw.Reset()
	if text == "" {
		return
	}

	d := p.d
	if d.link != nil {
		d.link.Append(text)
	}
	p.emit(types.Text{Segment: d.resolve(text), Stream: d.stream})
	for _, ev := range d.events.Match(text) {
		p.emit(ev)
	}
}

// resolve applies the current style stacks to text.
// Colour precedence: explicit color > preset > style.
func (d *Decoder) resolve(text string) types.Segment {
	seg := types.Segment{Text: text, Category: types.CategoryNormal, Link: d.link}

	if n := len(d.styles); n > 0 {
		seg.Fg, seg.Bg = d.styles[n-1].frame.Fg, d.styles[n-1].frame.Bg
	}
	presetBold := false
	if n := len(d.presetStack); n > 0 {
		overlay(&seg, d.presetStack[n-1].frame)
		presetBold = d.presetStack[n-1].frame.Bold
	}
	if n := len(d.colors); n > 0 {
		overlay(&seg, d.colors[n-1])
	}
	// A bold preset renders bold; only the bold stack means monsterbold.
	seg.Bold = d.bolds > 0 || presetBold

	switch {
	case d.bolds > 0:
		seg.Category = types.CategoryMonsterbold
	case d.spellDepth > 0:
		seg.Category = types.CategorySpell
	case d.link != nil && d.link.Kind == types.LinkCommand:
		seg.Category = types.CategoryCommand
	case d.link != nil:
		seg.Category = types.CategoryLink
	case len(d.presetStack) > 0:
		seg.Category = presetCategory(d.presetStack[len(d.presetStack)-1].id)
	}
	return seg
}

func overlay(seg *types.Segment, f types.StyleFrame) {
	if f.Fg != "" {
		seg.Fg = f.Fg
	}
	if f.Bg != "" {
		seg.Bg = f.Bg
	}
}

func presetCategory(id string) types.Category {
	switch id {
	case "speech":
		return types.CategorySpeech
	case "whisper":
		return types.CategoryWhisper
	case "thought":
		return types.CategoryThought
	}
	return types.CategoryNormal
}

// handle dispatches one tag and returns the position to continue from.
func (p *pass) handle(line string, t tag, end int) int {
	if t.Closing {
		p.handleClose(t)
		return end
	}
	if fn, ok := pairedHandlers[t.Name]; ok {
		if next, handled := p.paired(line, t, end, fn); handled {
			return next
		}
	}
	if fn, ok := openHandlers[t.Name]; ok {
		fn(p, t)
	}
	// Unknown tags are zero-width; their inner text flows as plain text.
	return end
}

// paired locates the nearest closing tag and hands the inner payload to fn.
// Self-closing paired tags get an empty payload.
func (p *pass) paired(line string, t tag, end int, fn func(*pass, tag, string)) (int, bool) {
	if t.SelfClosing {
		fn(p, t, "")
		return end, true
	}
	start, closeEnd, ok := findClose(line, end, t.Name)
	if !ok {
		return end, false
	}
	fn(p, t, line[end:start])
	return closeEnd, true
}

// pairedHandlers consume their inner payload up to the matching close tag.
var pairedHandlers = map[string]func(*pass, tag, string){
	"prompt": func(p *pass, t tag, inner string) {
		ts, err := strconv.ParseInt(t.attr("time"), 10, 64)
		if err != nil {
			ts = 0
		}
		p.emit(types.Prompt{Text: stripMarkup(inner), Time: ts})
	},
	"left":  handHandler(types.HandLeft),
	"right": handHandler(types.HandRight),
	"spell": func(p *pass, t tag, inner string) {
		text := stripMarkup(inner)
		p.emit(types.Spell{Text: text})
		p.emit(types.Hand{Slot: types.HandSpell, Text: text, Exist: t.attr("exist")})
	},
	"compass": func(p *pass, _ tag, inner string) {
		dirs := []string{}
		for _, dt := range findTags(inner, "dir") {
			if v := dt.attr("value"); v != "" {
				dirs = append(dirs, v)
			}
		}
		p.emit(types.Compass{Dirs: dirs})
	},
	"inv": func(p *pass, t tag, inner string) {
		id := t.attr("id")
		if id == "" {
			id = p.d.container
		}
		p.emit(types.ContainerItem{ContainerID: id, Text: stripMarkup(inner)})
	},
	"dialogData": func(p *pass, t tag, inner string) {
		for _, el := range parseDialog(t.attr("id"), isTruthy(t.attr("clear")), inner) {
			p.emit(el)
		}
	},
	"openDialog": func(p *pass, t tag, inner string) {
		id := t.attr("id")
		p.emit(types.DialogOpen{ID: id, Title: t.attr("title")})
		for _, el := range parseDialog(id, isTruthy(t.attr("clear")), inner) {
			p.emit(el)
		}
	},
}

func handHandler(slot types.HandSlot) func(*pass, tag, string) {
	return func(p *pass, t tag, inner string) {
		p.emit(types.Hand{
			Slot:  slot,
			Text:  stripMarkup(inner),
			Exist: t.attr("exist"),
			Noun:  t.attr("noun"),
		})
	}
}

// openHandlers run for opening and self-closing tags that are not paired
// (or whose closing tag is absent from the line).
var openHandlers = map[string]func(*pass, tag){
	"pushStream": func(p *pass, t tag) {
		id := t.attr("id")
		if id == "" {
			id = types.DefaultStream
		}
		p.d.stream = id
		p.emit(types.StreamPush{ID: id})
	},
	"popStream": func(p *pass, _ tag) {
		p.d.stream = types.DefaultStream
		p.emit(types.StreamPop{})
	},
	"clearStream": func(p *pass, t tag) {
		p.emit(types.ClearStream{ID: t.attr("id")})
	},
	"streamWindow": func(p *pass, t tag) {
		p.emit(types.StreamWindow{ID: t.attr("id"), Title: t.attr("title"), Subtitle: t.attr("subtitle")})
	},
	"roundTime": func(p *pass, t tag) {
		if end, ok := p.d.parseTime(t); ok {
			p.emit(types.RoundTime{End: end})
		}
	},
	"castTime": func(p *pass, t tag) {
		if end, ok := p.d.parseTime(t); ok {
			p.emit(types.CastTime{End: end})
		}
	},
	"color": func(p *pass, t tag) {
		if t.SelfClosing {
			return
		}
		p.d.colors = append(p.d.colors, types.StyleFrame{Fg: t.attr("fg"), Bg: t.attr("bg")})
	},
	"preset": func(p *pass, t tag) {
		if t.SelfClosing {
			return
		}
		id := t.attr("id")
		p.d.presetStack = append(p.d.presetStack, namedFrame{id: id, frame: p.d.presets[id]})
	},
	"style": func(p *pass, t tag) {
		id := t.attr("id")
		if id == "" {
			if n := len(p.d.styles); n > 0 {
				p.d.styles = p.d.styles[:n-1]
			}
			return
		}
		p.d.styles = append(p.d.styles, namedFrame{id: id, frame: p.d.presets[id]})
	},
	"b": func(p *pass, t tag) {
		if !t.SelfClosing {
			p.d.bolds++
		}
	},
	"pushBold": func(p *pass, _ tag) {
		p.d.bolds++
	},
	"popBold": func(p *pass, _ tag) {
		p.d.popBold()
	},
	"a": func(p *pass, t tag) {
		if !t.SelfClosing {
			p.d.openLink(types.NewExplicitLink(t.attr("exist"), t.attr("noun"), t.attr("coord")))
		}
	},
	"d": func(p *pass, t tag) {
		if !t.SelfClosing {
			p.d.openLink(types.NewCommandLink(t.attr("cmd"), t.attr("coord")))
		}
	},
	"spell": func(p *pass, t tag) {
		if !t.SelfClosing {
			p.d.spellDepth++
		}
	},
	"progressBar": func(p *pass, t tag) {
		value := atoiDefault(t.attr("value"), 0)
		text := t.attr("text")
		cur, maxVal := ParseProgress(text, value)
		p.emit(types.ProgressBar{ID: t.attr("id"), Value: cur, Max: maxVal, Text: text})
	},
	"indicator": func(p *pass, t tag) {
		p.emit(types.Indicator{ID: t.attr("id"), Active: isTruthy(t.attr("visible"))})
	},
	"component": openComponent,
	"compDef":   openComponent,
	"nav": func(p *pass, t tag) {
		p.emit(types.Nav{RoomID: t.attr("rm")})
	},
	"container": func(p *pass, t tag) {
		id := t.attr("id")
		p.d.container = id
		p.emit(types.ContainerOpen{ID: id, Title: t.attr("title")})
	},
	"exposeContainer": func(p *pass, t tag) {
		id := t.attr("id")
		p.d.container = id
		p.emit(types.ContainerOpen{ID: id, Expose: true})
	},
	"clearContainer": func(p *pass, t tag) {
		p.emit(types.ContainerClear{ID: t.attr("id")})
	},
	"openDialog": func(p *pass, t tag) {
		p.emit(types.DialogOpen{ID: t.attr("id"), Title: t.attr("title")})
	},
	"closeDialog": func(p *pass, t tag) {
		p.emit(types.DialogClose{ID: t.attr("id")})
	},
	"menu": func(p *pass, t tag) {
		p.d.menu = &menuScratch{id: t.attr("id")}
	},
	"mi": func(p *pass, t tag) {
		if p.d.menu == nil {
			return
		}
		p.d.menu.items = append(p.d.menu.items, types.MenuItem{
			Coord: t.attr("coord"),
			Noun:  t.attr("noun"),
			Text:  t.attr("text"),
		})
	},
	"LaunchURL": func(p *pass, t tag) {
		p.emit(types.LaunchURL{URL: t.attr("src")})
	},
	"app": func(p *pass, t tag) {
		p.emit(types.CharacterInfo{Name: t.attr("char"), Game: t.attr("game")})
	},
	"output": func(p *pass, t tag) {
		p.emit(types.Output{Class: t.attr("class")})
	},
}

func openComponent(p *pass, t tag) {
	id := t.attr("id")
	p.d.component = id
	p.emit(types.ComponentOpen{ID: id})
}

// handleClose pops the stack owned by the tag's family. Closing a tag whose
// stack is empty is a no-op.
func (p *pass) handleClose(t tag) {
	d := p.d
	switch t.Name {
	case "color":
		if n := len(d.colors); n > 0 {
			d.colors = d.colors[:n-1]
		}
	case "preset":
		if n := len(d.presetStack); n > 0 {
			d.presetStack = d.presetStack[:n-1]
		}
	case "b":
		d.popBold()
	case "a", "d":
		d.closeLink()
	case "spell":
		if d.spellDepth > 0 {
			d.spellDepth--
		}
	case "component", "compDef":
		id := d.component
		if id == "" {
			id = t.attr("id")
		}
		d.component = ""
		p.emit(types.ComponentClose{ID: id})
	case "menu":
		if d.menu != nil {
			p.emit(types.Menu{ID: d.menu.id, Items: d.menu.items})
			d.menu = nil
		}
	}
}

func (d *Decoder) popBold() {
	if d.bolds > 0 {
		d.bolds--
	}
}

// openLink starts a link; nested links share the outermost metadata.
func (d *Decoder) openLink(m *types.LinkMetadata) {
	if d.linkDepth == 0 {
		d.link = m
	}
	d.linkDepth++
}

// closeLink finalizes the link when depth returns to zero.
func (d *Decoder) closeLink() {
	if d.linkDepth == 0 {
		return
	}
	d.linkDepth--
	if d.linkDepth == 0 {
		d.link.Finalize()
		d.link = nil
	}
}

// parseTime reads the value attribute of a roundTime/castTime tag.
// Unparsable values omit the element.
func (d *Decoder) parseTime(t tag) (int64, bool) {
	v, err := strconv.ParseInt(strings.TrimSpace(t.attr("value")), 10, 64)
	if err != nil {
		d.debug("timer value omitted", map[string]any{"tag": t.Name, "value": t.attr("value")})
		return 0, false
	}
	return v, true
}

func (d *Decoder) debug(msg string, fields map[string]any) {
	if d.logger == nil {
		return
	}
	d.logger.Debug(msg, fields)
}

func copyPresets(in map[string]types.StyleFrame) map[string]types.StyleFrame {
	out := make(map[string]types.StyleFrame, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
