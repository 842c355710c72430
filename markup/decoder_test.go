package markup

import (
	"reflect"
	"testing"

	"github.com/pithecene-io/skein/types"
)

func newTestDecoder(t *testing.T, events ...types.EventPattern) *Decoder {
	t.Helper()
	d, errs := NewDecoder(Options{
		Presets: map[string]types.StyleFrame{
			"speech":   {Fg: "#00FF00"},
			"roomName": {Fg: "#FFFFFF", Bg: "#0000FF"},
			"whisper":  {Fg: "#00FFFF"},
		},
		Events: events,
	})
	if len(errs) != 0 {
		t.Fatalf("unexpected compile errors: %v", errs)
	}
	return d
}

// texts returns every Text element in els.
func texts(els []types.Element) []types.Text {
	var out []types.Text
	for _, el := range els {
		if tx, ok := el.(types.Text); ok {
			out = append(out, tx)
		}
	}
	return out
}

func plain(els []types.Element) string {
	var s string
	for _, tx := range texts(els) {
		s += tx.Text
	}
	return s
}

func TestParse_TagFreeLine(t *testing.T) {
	d := newTestDecoder(t)
	els := d.Parse("You see a goblin &amp; a troll &lt;here&gt;.")
	if len(els) != 1 {
		t.Fatalf("expected 1 element, got %d: %#v", len(els), els)
	}
	tx, ok := els[0].(types.Text)
	if !ok {
		t.Fatalf("expected Text, got %T", els[0])
	}
	if tx.Text != "You see a goblin & a troll <here>." {
		t.Errorf("unexpected text %q", tx.Text)
	}
	if tx.Fg != "" || tx.Bg != "" || tx.Bold {
		t.Errorf("expected ambient style, got %+v", tx.Segment)
	}
	if tx.Category != types.CategoryNormal {
		t.Errorf("expected normal category, got %s", tx.Category)
	}
	if tx.Stream != types.DefaultStream {
		t.Errorf("expected main stream, got %s", tx.Stream)
	}
}

func TestParse_BlankLine(t *testing.T) {
	d := newTestDecoder(t)
	els := d.Parse("")
	if len(els) != 1 {
		t.Fatalf("expected 1 element, got %d", len(els))
	}
	if tx := els[0].(types.Text); tx.Text != "" {
		t.Errorf("expected empty text, got %q", tx.Text)
	}
	if els := d.Parse("\r\n"); len(els) != 1 {
		t.Errorf("expected CRLF-only line to be blank, got %d elements", len(els))
	}
}

func TestParse_ControlOnlyLineIsEmpty(t *testing.T) {
	d := newTestDecoder(t)
	for _, line := range []string{
		`<mode id="GAME"/>`,
		`<settingsInfo crc="0" instance="DR"/>`,
		`<pushBold/>`,
		`<endSetup/>`,
	} {
		if els := d.Parse(line); len(els) != 0 {
			t.Errorf("Parse(%q) = %#v, want empty", line, els)
		}
	}
}

func TestParse_ColorSpan(t *testing.T) {
	d := newTestDecoder(t)
	els := d.Parse(`before <color fg="#FF0000" bg="#000000">red <b>bold</b> text</color> after`)
	tx := texts(els)
	if len(tx) != 5 {
		t.Fatalf("expected 5 text runs, got %d: %#v", len(tx), tx)
	}
	for _, inner := range tx[1:4] {
		if inner.Fg != "#FF0000" || inner.Bg != "#000000" {
			t.Errorf("inner run %q has fg=%q bg=%q", inner.Text, inner.Fg, inner.Bg)
		}
	}
	if tx[2].Category != types.CategoryMonsterbold || !tx[2].Bold {
		t.Errorf("expected bold run to be monsterbold, got %+v", tx[2].Segment)
	}
	if tx[3].Bold {
		t.Error("bold should end at </b>")
	}
	if tx[4].Fg != "" || tx[4].Bg != "" {
		t.Errorf("style should revert after </color>, got fg=%q bg=%q", tx[4].Fg, tx[4].Bg)
	}
}

func TestParse_StylePrecedence(t *testing.T) {
	d := newTestDecoder(t)
	els := d.Parse(`<style id="roomName"/>A<preset id="speech">B<color fg="#123456">C</color>D</preset>E<style id=""/>F`)
	tx := texts(els)
	want := []struct {
		text, fg, bg string
		cat          types.Category
	}{
		{"A", "#FFFFFF", "#0000FF", types.CategoryNormal},
		{"B", "#00FF00", "#0000FF", types.CategorySpeech},
		{"C", "#123456", "#0000FF", types.CategorySpeech},
		{"D", "#00FF00", "#0000FF", types.CategorySpeech},
		{"E", "#FFFFFF", "#0000FF", types.CategoryNormal},
		{"F", "", "", types.CategoryNormal},
	}
	if len(tx) != len(want) {
		t.Fatalf("expected %d runs, got %d", len(want), len(tx))
	}
	for i, w := range want {
		got := tx[i]
		if got.Text != w.text || got.Fg != w.fg || got.Bg != w.bg || got.Category != w.cat {
			t.Errorf("run %d = {%q %q %q %s}, want {%q %q %q %s}",
				i, got.Text, got.Fg, got.Bg, got.Category, w.text, w.fg, w.bg, w.cat)
		}
	}
}

func TestParse_BoldPresetRendersBold(t *testing.T) {
	d, errs := NewDecoder(Options{Presets: map[string]types.StyleFrame{
		"whisper": {Fg: "#00FFFF", Bold: true},
	}})
	if len(errs) != 0 {
		t.Fatalf("unexpected compile errors: %v", errs)
	}
	tx := texts(d.Parse(`<preset id="whisper">psst</preset> <pushBold/>troll<popBold/>`))
	if len(tx) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(tx))
	}
	if !tx[0].Bold || tx[0].Category != types.CategoryWhisper || tx[0].Fg != "#00FFFF" {
		t.Errorf("preset run = %+v, want bold whisper", tx[0].Segment)
	}
	if tx[1].Bold {
		t.Errorf("text after the preset should not be bold: %+v", tx[1].Segment)
	}
	if !tx[2].Bold || tx[2].Category != types.CategoryMonsterbold {
		t.Errorf("pushBold run = %+v, want monsterbold", tx[2].Segment)
	}
}

func TestParse_StacksPersistAcrossLines(t *testing.T) {
	d := newTestDecoder(t)
	d.Parse(`<pushBold/>A large troll`)
	els := d.Parse(`charges!<popBold/> You dodge.`)
	tx := texts(els)
	if len(tx) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(tx))
	}
	if tx[0].Category != types.CategoryMonsterbold {
		t.Errorf("bold should carry to the next line, got %s", tx[0].Category)
	}
	if tx[1].Bold {
		t.Error("popBold should end bold")
	}
}

func TestParse_PopOnEmptyStackIsNoop(t *testing.T) {
	d := newTestDecoder(t)
	els := d.Parse(`</color></preset><popBold/></b></a></d>text`)
	tx := texts(els)
	if len(tx) != 1 || tx[0].Text != "text" {
		t.Fatalf("unexpected runs %#v", tx)
	}
	if d.linkDepth != 0 || d.bolds != 0 {
		t.Errorf("depth counters went negative: link=%d bold=%d", d.linkDepth, d.bolds)
	}
}

func TestParse_StackFamiliesAreIndependent(t *testing.T) {
	d := newTestDecoder(t)
	// </color> must not pop the preset stack.
	els := d.Parse(`<preset id="speech">x</color>y</preset>`)
	tx := texts(els)
	if tx[1].Fg != "#00FF00" {
		t.Errorf("</color> popped the wrong stack: %+v", tx[1].Segment)
	}
}

func TestParse_UnknownTagIsZeroWidth(t *testing.T) {
	d := newTestDecoder(t)
	els := d.Parse(`a <frobnicate x="1">b</frobnicate> c`)
	if got := plain(els); got != "a b c" {
		t.Errorf("got %q", got)
	}
}

func TestParse_UnterminatedTagDegradesToText(t *testing.T) {
	d := newTestDecoder(t)
	els := d.Parse(`You say <pushBold attr="x"`)
	if got := plain(els); got != `You say <pushBold attr="x"` {
		t.Errorf("got %q", got)
	}
	if d.bolds != 0 {
		t.Error("unterminated tag must not change state")
	}
}

func TestParse_StrayLessThanIsLiteral(t *testing.T) {
	d := newTestDecoder(t)
	els := d.Parse(`3 < 4 and <b>x</b>`)
	if got := plain(els); got != "3 < 4 and x" {
		t.Errorf("got %q", got)
	}
}

func TestParse_ExplicitLink(t *testing.T) {
	d := newTestDecoder(t)
	els := d.Parse(`You see <a exist="123" noun="sword">a <b>steel</b> sword</a>.`)
	tx := texts(els)
	if len(tx) != 5 {
		t.Fatalf("expected 5 runs, got %d", len(tx))
	}
	link := tx[1].Link
	if link == nil {
		t.Fatal("expected link metadata")
	}
	if tx[2].Link != link || tx[3].Link != link {
		t.Error("runs inside one link should share metadata")
	}
	if link.ExistID != "123" || link.Noun != "sword" || link.Kind != types.LinkExplicit {
		t.Errorf("unexpected link %+v", link)
	}
	if link.Text != "a steel sword" {
		t.Errorf("accumulated text = %q", link.Text)
	}
	if !link.Finalized() {
		t.Error("link should be finalized at close")
	}
	if tx[1].Category != types.CategoryLink {
		t.Errorf("expected link category, got %s", tx[1].Category)
	}
	if tx[2].Category != types.CategoryMonsterbold {
		t.Errorf("monsterbold outranks link, got %s", tx[2].Category)
	}
	if tx[4].Link != nil {
		t.Error("text after </a> should have no link")
	}
}

func TestParse_DirectCommandTakesTextWhenCommandMissing(t *testing.T) {
	d := newTestDecoder(t)
	els := d.Parse(`Obvious exits: <d>north</d>, <d cmd="go gate">gate</d>`)
	tx := texts(els)
	north, gate := tx[1].Link, tx[3].Link
	if north == nil || gate == nil {
		t.Fatal("expected command links")
	}
	if north.Command != "north" {
		t.Errorf("expected command from text, got %q", north.Command)
	}
	if gate.Command != "go gate" {
		t.Errorf("explicit command overwritten: %q", gate.Command)
	}
	if tx[1].Category != types.CategoryCommand {
		t.Errorf("expected command category, got %s", tx[1].Category)
	}
}

func TestParse_LinkSpansLines(t *testing.T) {
	d := newTestDecoder(t)
	first := texts(d.Parse(`<d>look`))
	texts(d.Parse(`around</d>`))
	m := first[0].Link
	if m.Command != "lookaround" {
		t.Errorf("command = %q", m.Command)
	}
}

func TestParse_StreamPushPop(t *testing.T) {
	d := newTestDecoder(t)
	els := d.Parse(`<pushStream id="inv"/>Your inventory:<popStream/>`)
	if len(els) != 3 {
		t.Fatalf("expected 3 elements, got %d", len(els))
	}
	if push, ok := els[0].(types.StreamPush); !ok || push.ID != "inv" {
		t.Errorf("expected push inv, got %#v", els[0])
	}
	if tx := els[1].(types.Text); tx.Stream != "inv" {
		t.Errorf("text should be tagged with inv, got %s", tx.Stream)
	}
	if _, ok := els[2].(types.StreamPop); !ok {
		t.Errorf("expected pop, got %#v", els[2])
	}
	if d.Stream() != types.DefaultStream {
		t.Errorf("pop should reset to main, got %s", d.Stream())
	}
}

func TestParse_Prompt(t *testing.T) {
	d := newTestDecoder(t)
	els := d.Parse(`<prompt time="1700000000">R&gt;</prompt>`)
	if len(els) != 1 {
		t.Fatalf("expected 1 element, got %d", len(els))
	}
	p, ok := els[0].(types.Prompt)
	if !ok {
		t.Fatalf("expected Prompt, got %T", els[0])
	}
	if p.Text != "R>" || p.Time != 1700000000 {
		t.Errorf("unexpected prompt %+v", p)
	}
}

func TestParse_PairedCloseTagAllowsWhitespace(t *testing.T) {
	d := newTestDecoder(t)
	tests := []struct {
		name string
		line string
	}{
		{"space", `<prompt time="1700000000">&gt;</prompt >`},
		{"tab", "<prompt time=\"1700000000\">&gt;</prompt\t>"},
		{"other close first", `<prompt time="1700000000"></b>&gt;</prompt >`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			els := d.Parse(tt.line)
			if len(els) != 1 {
				t.Fatalf("expected 1 element, got %#v", els)
			}
			p, ok := els[0].(types.Prompt)
			if !ok {
				t.Fatalf("expected Prompt, got %T", els[0])
			}
			if p.Text != ">" || p.Time != 1700000000 {
				t.Errorf("unexpected prompt %+v", p)
			}
		})
	}
}

func TestParse_PairedTagSkipsStrayLessThan(t *testing.T) {
	d := newTestDecoder(t)
	els := d.Parse(`<right exist="9" noun="dagger">a <dagger</right>`)
	if len(els) != 1 {
		t.Fatalf("expected 1 element, got %#v", els)
	}
	h := els[0].(types.Hand)
	if h.Slot != types.HandRight || h.Text != "a <dagger" || h.Noun != "dagger" {
		t.Errorf("unexpected hand %+v", h)
	}
}

func TestParse_SpellEmitsSpellAndHand(t *testing.T) {
	d := newTestDecoder(t)
	els := d.Parse(`<spell exist="1">Fire Rain</spell>`)
	if len(els) != 2 {
		t.Fatalf("expected 2 elements, got %d", len(els))
	}
	if s, ok := els[0].(types.Spell); !ok || s.Text != "Fire Rain" {
		t.Errorf("expected spell, got %#v", els[0])
	}
	if h, ok := els[1].(types.Hand); !ok || h.Slot != types.HandSpell || h.Text != "Fire Rain" {
		t.Errorf("expected spell hand, got %#v", els[1])
	}
}

func TestParse_UnpairedSpellCategorisesText(t *testing.T) {
	d := newTestDecoder(t)
	tx := texts(d.Parse(`<spell>Gauge Flow`))
	if tx[0].Category != types.CategorySpell {
		t.Errorf("expected spell category, got %s", tx[0].Category)
	}
	tx = texts(d.Parse(`</spell>done`))
	if tx[0].Category != types.CategoryNormal {
		t.Errorf("spell depth should close, got %s", tx[0].Category)
	}
}

func TestParse_ProgressBar(t *testing.T) {
	d := newTestDecoder(t)
	els := d.Parse(`<progressBar id="mana" value="94" text="mana 386/407" left="25%"/>`)
	bar := els[0].(types.ProgressBar)
	if bar.ID != "mana" || bar.Value != 386 || bar.Max != 407 {
		t.Errorf("unexpected bar %+v", bar)
	}
}

func TestParse_ProgressBarBadValueDefaults(t *testing.T) {
	d := newTestDecoder(t)
	els := d.Parse(`<progressBar id="stance" value="abc" text="stance"/>`)
	bar := els[0].(types.ProgressBar)
	if bar.Value != 0 || bar.Max != 100 {
		t.Errorf("expected (0,100), got (%d,%d)", bar.Value, bar.Max)
	}
}

func TestParse_RoundTime(t *testing.T) {
	d := newTestDecoder(t)
	els := d.Parse(`<roundTime value="1700000005"/><castTime value="oops"/>`)
	if len(els) != 1 {
		t.Fatalf("expected bad castTime to be omitted, got %#v", els)
	}
	if rt := els[0].(types.RoundTime); rt.End != 1700000005 {
		t.Errorf("unexpected end %d", rt.End)
	}
}

func TestParse_Compass(t *testing.T) {
	d := newTestDecoder(t)
	els := d.Parse(`<compass><dir value="n"/><dir value="se"/><dir value="out"/></compass>`)
	c := els[0].(types.Compass)
	if !reflect.DeepEqual(c.Dirs, []string{"n", "se", "out"}) {
		t.Errorf("unexpected dirs %v", c.Dirs)
	}
}

func TestParse_IndicatorAndNav(t *testing.T) {
	d := newTestDecoder(t)
	els := d.Parse(`<indicator id="IconKNEELING" visible="y"/><indicator id="IconPRONE" visible="n"/><nav rm="4521"/>`)
	if len(els) != 3 {
		t.Fatalf("expected 3 elements, got %d", len(els))
	}
	if in := els[0].(types.Indicator); !in.Active || in.ID != "IconKNEELING" {
		t.Errorf("unexpected indicator %+v", in)
	}
	if in := els[1].(types.Indicator); in.Active {
		t.Errorf("expected inactive indicator %+v", in)
	}
	if nav := els[2].(types.Nav); nav.RoomID != "4521" {
		t.Errorf("unexpected nav %+v", nav)
	}
}

func TestParse_ContainerAssociation(t *testing.T) {
	d := newTestDecoder(t)
	d.Parse(`<container id="stow" title="My Pack"/><clearContainer id="stow"/>`)
	els := d.Parse(`<inv>a <a exist="1" noun="rock">rock</a></inv>`)
	item := els[0].(types.ContainerItem)
	if item.ContainerID != "stow" || item.Text != "a rock" {
		t.Errorf("unexpected item %+v", item)
	}
}

func TestParse_Components(t *testing.T) {
	d := newTestDecoder(t)
	els := d.Parse(`<component id='room exits'>Obvious paths: <d>north</d>.</component>`)
	if open, ok := els[0].(types.ComponentOpen); !ok || open.ID != "room exits" {
		t.Fatalf("expected component open, got %#v", els[0])
	}
	if cl, ok := els[len(els)-1].(types.ComponentClose); !ok || cl.ID != "room exits" {
		t.Fatalf("expected component close, got %#v", els[len(els)-1])
	}
	if got := plain(els); got != "Obvious paths: north." {
		t.Errorf("got %q", got)
	}
}

func TestParse_MenuAcrossLines(t *testing.T) {
	d := newTestDecoder(t)
	if els := d.Parse(`<menu id="7">`); len(els) != 0 {
		t.Fatalf("menu open should be silent, got %#v", els)
	}
	d.Parse(`<mi coord="2524,1735" noun="sword"/>`)
	els := d.Parse(`<mi coord="2524,1736" noun="sword"/></menu>`)
	m := els[0].(types.Menu)
	if m.ID != "7" || len(m.Items) != 2 || m.Items[1].Coord != "2524,1736" {
		t.Errorf("unexpected menu %+v", m)
	}
}

func TestParse_EventsEveryMatch(t *testing.T) {
	d := newTestDecoder(t,
		types.EventPattern{Name: "stun", Pattern: `You are stunned for (\d+) rounds`, EventType: "stunned", DurationCapture: 1, DurationMultiplier: 5},
		types.EventPattern{Name: "any-stun", Pattern: `stunned`, EventType: "stun-flag", Duration: 3},
		types.EventPattern{Name: "off", Pattern: `stunned`, EventType: "never", Enabled: ptr(false)},
	)
	els := d.Parse(`You are stunned for 3 rounds!`)
	if len(els) != 3 {
		t.Fatalf("expected text + 2 events, got %#v", els)
	}
	first := els[1].(types.Event)
	if first.Type != "stunned" || first.Duration != 15 || first.Action != types.EventSet {
		t.Errorf("unexpected first event %+v", first)
	}
	second := els[2].(types.Event)
	if second.Type != "stun-flag" || second.Duration != 3 {
		t.Errorf("unexpected second event %+v", second)
	}
}

func TestNewDecoder_InvalidEventPatternSkipped(t *testing.T) {
	d, errs := NewDecoder(Options{Events: []types.EventPattern{
		{Name: "bad", Pattern: `([`, EventType: "x"},
		{Name: "good", Pattern: `webbed`, EventType: "webbed"},
	}})
	if len(errs) != 1 || errs[0].Rule != "bad" {
		t.Fatalf("expected one compile error for 'bad', got %v", errs)
	}
	els := d.Parse("You are webbed.")
	if len(els) != 2 {
		t.Errorf("remaining rule should stay active, got %#v", els)
	}
}

func TestParse_ResetClearsSession(t *testing.T) {
	d := newTestDecoder(t)
	d.Parse(`<pushStream id="combat"/><pushBold/><color fg="#FF0000"><a exist="1" noun="x">`)
	d.Reset()
	tx := texts(d.Parse("plain"))
	if tx[0].Bold || tx[0].Fg != "" || tx[0].Link != nil || tx[0].Stream != types.DefaultStream {
		t.Errorf("expected clean session, got %+v", tx[0])
	}
}

func ptr[T any](v T) *T { return &v }
