// Package types holds the shapes shared between the decoder, the router and
// the surfaces that consume them: parsed elements, styles, link metadata and
// the user rule types.
package types

// DefaultStream is the stream every pop returns to.
const DefaultStream = "main"

// StyleFrame is one entry on a decoder style stack.
// Empty Fg/Bg means "inherit".
type StyleFrame struct {
	Fg   string
	Bg   string
	Bold bool
}

// Category is the semantic category of a text run.
type Category string

// Semantic categories, highest priority first.
const (
	CategoryMonsterbold Category = "monsterbold"
	CategorySpell       Category = "spell"
	CategoryLink        Category = "link"
	CategoryCommand     Category = "command"
	CategorySpeech      Category = "speech"
	CategoryWhisper     Category = "whisper"
	CategoryThought     Category = "thought"
	CategoryNormal      Category = "normal"
)

// IsSpeech reports whether the category came from a speech-like preset.
func (c Category) IsSpeech() bool {
	return c == CategorySpeech || c == CategoryWhisper || c == CategoryThought
}

// Segment is a styled run of text inside a line.
type Segment struct {
	Text     string        `json:"text" msgpack:"text"`
	Fg       string        `json:"fg,omitempty" msgpack:"fg,omitempty"`
	Bg       string        `json:"bg,omitempty" msgpack:"bg,omitempty"`
	Bold     bool          `json:"bold,omitempty" msgpack:"bold,omitempty"`
	Category Category      `json:"category,omitempty" msgpack:"category,omitempty"`
	Link     *LinkMetadata `json:"link,omitempty" msgpack:"link,omitempty"`
}

// Line is one finished, deliverable line.
type Line []Segment

// Plain concatenates the text of every segment.
func (l Line) Plain() string {
	switch len(l) {
	case 0:
		return ""
	case 1:
		return l[0].Text
	}
	n := 0
	for _, s := range l {
		n += len(s.Text)
	}
	buf := make([]byte, 0, n)
	for _, s := range l {
		buf = append(buf, s.Text...)
	}
	return string(buf)
}

// Clone returns a copy that shares no segment storage with l.
func (l Line) Clone() Line {
	if l == nil {
		return nil
	}
	out := make(Line, len(l))
	copy(out, l)
	return out
}
