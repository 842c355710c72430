package filter

import (
	"regexp"
	"sort"

	ahocorasick "github.com/BobuSumisu/aho-corasick"
)

// span is a half-open byte range [start, end) of a match.
type span struct {
	start, end int
}

func (s span) len() int { return s.end - s.start }

// matcher finds pattern occurrences in a line of plain text.
type matcher interface {
	// find returns every non-overlapping match, leftmost first.
	find(text string) []span
	// replace substitutes repl for every match.
	replace(text, repl string) string
}

// regexMatcher is a single compiled pattern.
type regexMatcher struct {
	re *regexp.Regexp
}

func (m regexMatcher) find(text string) []span {
	idx := m.re.FindAllStringIndex(text, -1)
	if len(idx) == 0 {
		return nil
	}
	out := make([]span, 0, len(idx))
	for _, loc := range idx {
		if loc[1] > loc[0] {
			out = append(out, span{loc[0], loc[1]})
		}
	}
	return out
}

// replace substitutes repl verbatim; '$' in repl is not a group reference.
func (m regexMatcher) replace(text, repl string) string {
	return m.re.ReplaceAllLiteralString(text, repl)
}

// literalMatcher is a multi-literal Aho-Corasick trie.
type literalMatcher struct {
	trie *ahocorasick.Trie
}

func newLiteralMatcher(literals []string) literalMatcher {
	return literalMatcher{trie: ahocorasick.NewTrieBuilder().AddStrings(literals).Build()}
}

// find resolves the trie's overlapping matches into leftmost-longest,
// non-overlapping spans.
func (m literalMatcher) find(text string) []span {
	matches := m.trie.MatchString(text)
	if len(matches) == 0 {
		return nil
	}
	all := make([]span, 0, len(matches))
	for _, match := range matches {
		start := int(match.Pos())
		all = append(all, span{start, start + len(match.MatchString())})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].start != all[j].start {
			return all[i].start < all[j].start
		}
		return all[i].len() > all[j].len()
	})

	out := all[:0]
	next := 0
	for _, s := range all {
		if s.start < next || s.len() == 0 {
			continue
		}
		out = append(out, s)
		next = s.end
	}
	return out
}

func (m literalMatcher) replace(text, repl string) string {
	return replaceSpans(text, m.find(text), repl)
}

func replaceSpans(text string, spans []span, repl string) string {
	if len(spans) == 0 {
		return text
	}
	b := make([]byte, 0, len(text))
	prev := 0
	for _, s := range spans {
		b = append(b, text[prev:s.start]...)
		b = append(b, repl...)
		prev = s.end
	}
	b = append(b, text[prev:]...)
	return string(b)
}

// longest returns the length of the longest span, or 0.
func longest(spans []span) int {
	n := 0
	for _, s := range spans {
		if l := s.len(); l > n {
			n = l
		}
	}
	return n
}
