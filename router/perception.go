package router

import (
	"sort"
	"strconv"
	"strings"

	"github.com/pithecene-io/skein/types"
)

// PerceptionFormat is the duration format of one perception entry.
type PerceptionFormat string

// Perception formats.
const (
	FormatOngoingMagic PerceptionFormat = "om"
	FormatIndefinite   PerceptionFormat = "indefinite"
	FormatFading       PerceptionFormat = "fading"
	FormatPercentage   PerceptionFormat = "percentage"
	FormatRoisaen      PerceptionFormat = "roisaen"
	FormatOther        PerceptionFormat = "other"
)

// Sort weights. Higher sorts first.
const (
	weightOngoingMagic = 10000
	weightIndefinite   = 9000
	weightRoisaenBase  = 1000
	weightFading       = 0
	weightOther        = -1
)

// perceptionTerminators end one entry in the concatenated channel text.
var perceptionTerminators = []string{"(OM)", "(Indefinite)", "(Fading)", "%)", "roisaen)", "roisan)"}

// PerceptionEntry is one parsed perception line.
type PerceptionEntry struct {
	Name   string              `json:"name" yaml:"name"`
	Format PerceptionFormat    `json:"format" yaml:"format"`
	Value  int                 `json:"value,omitempty" yaml:"value,omitempty"`
	Raw    string              `json:"raw" yaml:"raw"`
	Weight int                 `json:"weight" yaml:"weight"`
	Link   *types.LinkMetadata `json:"link,omitempty" yaml:"-"`
}

// perceptionPiece is a trimmed piece of the concatenated text and the
// offset it starts at.
type perceptionPiece struct {
	text  string
	start int
}

// SplitPerception splits concatenated perception text after every
// terminator. Text after the last terminator forms a final piece.
func SplitPerception(text string) []string {
	pieces := splitPerception(text)
	out := make([]string, len(pieces))
	for i, p := range pieces {
		out[i] = p.text
	}
	return out
}

func splitPerception(text string) []perceptionPiece {
	var out []perceptionPiece
	add := func(from, to int) {
		raw := text[from:to]
		trimmed := strings.TrimLeft(raw, " \t")
		start := from + len(raw) - len(trimmed)
		trimmed = strings.TrimRight(trimmed, " \t")
		if trimmed != "" {
			out = append(out, perceptionPiece{text: trimmed, start: start})
		}
	}

	pos := 0
	for pos < len(text) {
		cut := -1
		for _, term := range perceptionTerminators {
			i := strings.Index(text[pos:], term)
			if i < 0 {
				continue
			}
			if end := pos + i + len(term); cut < 0 || end < cut {
				cut = end
			}
		}
		if cut < 0 {
			add(pos, len(text))
			break
		}
		add(pos, cut)
		pos = cut
	}
	return out
}

// ParsePerceptionEntry classifies one piece and derives its sort weight.
func ParsePerceptionEntry(raw string) PerceptionEntry {
	raw = strings.TrimSpace(raw)
	e := PerceptionEntry{Name: raw, Format: FormatOther, Raw: raw, Weight: weightOther}

	switch {
	case strings.HasSuffix(raw, "(OM)"):
		e.Name = strings.TrimSpace(strings.TrimSuffix(raw, "(OM)"))
		e.Format, e.Weight = FormatOngoingMagic, weightOngoingMagic
	case strings.HasSuffix(raw, "(Indefinite)"):
		e.Name = strings.TrimSpace(strings.TrimSuffix(raw, "(Indefinite)"))
		e.Format, e.Weight = FormatIndefinite, weightIndefinite
	case strings.HasSuffix(raw, "(Fading)"):
		e.Name = strings.TrimSpace(strings.TrimSuffix(raw, "(Fading)"))
		e.Format, e.Weight = FormatFading, weightFading
	case strings.HasSuffix(raw, "%)"):
		name, inner, ok := lastParen(raw)
		if !ok {
			break
		}
		n, err := strconv.Atoi(strings.TrimSpace(strings.TrimSuffix(inner, "%")))
		if err != nil {
			break
		}
		e.Name, e.Format, e.Value, e.Weight = name, FormatPercentage, n, n
	case strings.HasSuffix(raw, "roisaen)"), strings.HasSuffix(raw, "roisan)"):
		name, inner, ok := lastParen(raw)
		if !ok {
			break
		}
		fields := strings.Fields(inner)
		if len(fields) == 0 {
			break
		}
		n, err := strconv.Atoi(fields[0])
		if err != nil {
			break
		}
		e.Name, e.Format, e.Value, e.Weight = name, FormatRoisaen, n, weightRoisaenBase+n
	}
	return e
}

// lastParen splits "Name (inner)" into its name and inner text.
func lastParen(raw string) (name, inner string, ok bool) {
	open := strings.LastIndexByte(raw, '(')
	if open < 0 || !strings.HasSuffix(raw, ")") {
		return "", "", false
	}
	return strings.TrimSpace(raw[:open]), raw[open+1 : len(raw)-1], true
}

// SortPerception orders entries by weight, highest first. Equal weights
// keep their original order.
func SortPerception(entries []PerceptionEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Weight > entries[j].Weight
	})
}

// parsePerception regenerates the entry set from buffered lines. Each entry
// takes the link of the segment its text starts in.
func parsePerception(lines []types.Line) []PerceptionEntry {
	var joined types.Line
	for _, l := range lines {
		joined = append(joined, l...)
	}
	text := joined.Plain()

	pieces := splitPerception(text)
	entries := make([]PerceptionEntry, 0, len(pieces))
	for _, p := range pieces {
		e := ParsePerceptionEntry(p.text)
		e.Link = linkAt(joined, p.start)
		entries = append(entries, e)
	}
	SortPerception(entries)
	return entries
}

// linkAt returns the link of the segment containing byte offset pos.
func linkAt(line types.Line, pos int) *types.LinkMetadata {
	off := 0
	for _, seg := range line {
		if pos < off+len(seg.Text) {
			return seg.Link
		}
		off += len(seg.Text)
	}
	return nil
}
