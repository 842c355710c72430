package types

import "strings"

// LinkKind distinguishes the two clickable tag families.
type LinkKind string

// Link kinds.
const (
	// LinkExplicit is an attributed <a exist noun> link.
	LinkExplicit LinkKind = "link"
	// LinkCommand is a <d cmd> direct command; cmd may be omitted.
	LinkCommand LinkKind = "command"
)

// LinkMetadata describes the link or command a text run belongs to.
//
// One value is shared by every Text element flushed while the tag is open.
// It is finalized when the tag closes, before the decoder returns.
type LinkMetadata struct {
	Kind       LinkKind `json:"kind" msgpack:"kind"`
	ExistID    string   `json:"exist_id,omitempty" msgpack:"exist_id,omitempty"`
	Noun       string   `json:"noun,omitempty" msgpack:"noun,omitempty"`
	Command    string   `json:"command,omitempty" msgpack:"command,omitempty"`
	Coord      string   `json:"coord,omitempty" msgpack:"coord,omitempty"`
	Text       string   `json:"text" msgpack:"text"`
	finalized  bool
	hasCommand bool
}

// NewExplicitLink creates metadata for an <a> tag.
func NewExplicitLink(existID, noun, coord string) *LinkMetadata {
	return &LinkMetadata{Kind: LinkExplicit, ExistID: existID, Noun: noun, Coord: coord}
}

// NewCommandLink creates metadata for a <d> tag. An empty cmd is filled from
// the accumulated text on Finalize.
func NewCommandLink(cmd, coord string) *LinkMetadata {
	return &LinkMetadata{Kind: LinkCommand, Command: cmd, Coord: coord, hasCommand: cmd != ""}
}

// Append adds flushed text while the tag is open.
func (m *LinkMetadata) Append(text string) {
	if m == nil || m.finalized {
		return
	}
	m.Text += text
}

// Finalize closes the metadata. A direct command without an explicit
// command takes its accumulated text.
func (m *LinkMetadata) Finalize() {
	if m == nil || m.finalized {
		return
	}
	if m.Kind == LinkCommand && !m.hasCommand {
		m.Command = strings.TrimSpace(m.Text)
	}
	m.finalized = true
}

// Finalized reports whether the owning tag has closed.
func (m *LinkMetadata) Finalized() bool {
	return m != nil && m.finalized
}
