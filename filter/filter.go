// Package filter compiles user highlight rules into the squelch, redirect
// and highlight matchers the router applies to every flushed line.
//
// A rule with the fast-parse flag is a '|'-separated list of literals and
// compiles into one Aho-Corasick trie. Any other rule compiles into a
// single regular expression. A Set is immutable once compiled, so a new
// configuration is applied by compiling a new Set and swapping it in
// between lines.
package filter

import (
	"errors"
	"regexp"

	"github.com/pithecene-io/skein/types"
)

// ErrEmptyPattern is reported for a rule with nothing to match.
var ErrEmptyPattern = errors.New("empty pattern")

// rule is one compiled HighlightPattern.
type rule struct {
	index   int
	pattern types.HighlightPattern
	m       matcher
}

// Set is a compiled, ordered rule set.
type Set struct {
	rules      []*rule
	squelch    []*rule
	redirects  []*rule
	highlights []*rule
}

// Redirect is the outcome of redirect evaluation for one line.
type Redirect struct {
	Rule   string
	Target string
	Mode   types.RedirectMode
}

// Compile builds a Set from patterns in declaration order. Rules whose
// pattern fails to compile are skipped and reported; the rest stay active.
func Compile(patterns []types.HighlightPattern) (*Set, []*types.CompileError) {
	s := &Set{}
	var errs []*types.CompileError
	for i, p := range patterns {
		m, err := compileMatcher(p)
		if err != nil {
			errs = append(errs, &types.CompileError{Rule: p.Name, Pattern: p.Pattern, Err: err})
			continue
		}
		if p.RedirectMode == "" {
			p.RedirectMode = types.RedirectOnly
		}
		if p.Scope == "" {
			p.Scope = types.ScopeMatch
		}
		r := &rule{index: i, pattern: p, m: m}
		s.rules = append(s.rules, r)

		switch {
		case p.Squelch:
			s.squelch = append(s.squelch, r)
		default:
			if p.RedirectTo != "" {
				s.redirects = append(s.redirects, r)
			}
			if p.HasStyle() || p.Replace != "" {
				s.highlights = append(s.highlights, r)
			}
		}
	}
	return s, errs
}

func compileMatcher(p types.HighlightPattern) (matcher, error) {
	if p.FastParse {
		lits := p.Literals()
		if len(lits) == 0 {
			return nil, ErrEmptyPattern
		}
		return newLiteralMatcher(lits), nil
	}
	if p.Pattern == "" {
		return nil, ErrEmptyPattern
	}
	re, err := regexp.Compile(p.Pattern)
	if err != nil {
		return nil, err
	}
	return regexMatcher{re: re}, nil
}

// Len returns the number of active rules.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.rules)
}

// HasRedirects reports whether any redirect rule is configured.
func (s *Set) HasRedirects() bool {
	return s != nil && len(s.redirects) > 0
}

// Squelched reports whether any squelch rule matches text.
func (s *Set) Squelched(text string) bool {
	if s == nil || text == "" {
		return false
	}
	for _, r := range s.squelch {
		if len(r.m.find(text)) > 0 {
			return true
		}
	}
	return false
}

// Redirect evaluates redirect rules against text. The rule with the
// longest match wins; equal lengths resolve to the earliest declared rule.
func (s *Set) Redirect(text string) (Redirect, bool) {
	if s == nil || text == "" {
		return Redirect{}, false
	}
	var best *rule
	bestLen := 0
	for _, r := range s.redirects {
		n := longest(r.m.find(text))
		if n > bestLen {
			best, bestLen = r, n
		}
	}
	if best == nil {
		return Redirect{}, false
	}
	return Redirect{
		Rule:   best.pattern.Name,
		Target: best.pattern.RedirectTo,
		Mode:   best.pattern.RedirectMode,
	}, true
}

// Highlight applies replace text and style overrides to a copy of line.
// Replacement runs per segment first; styling then runs over the joined
// text, later rules overriding earlier ones where they overlap.
func (s *Set) Highlight(line types.Line) types.Line {
	if s == nil || len(s.highlights) == 0 || len(line) == 0 {
		return line
	}
	out := line.Clone()
	for _, r := range s.highlights {
		if r.pattern.Replace == "" {
			continue
		}
		for i := range out {
			out[i].Text = r.m.replace(out[i].Text, r.pattern.Replace)
		}
	}

	plain := out.Plain()
	if plain == "" {
		return out
	}
	// owner[i] is 1 + the index into s.highlights of the rule styling byte i.
	owner := make([]int, len(plain))
	styled := false
	for hi, r := range s.highlights {
		if !r.pattern.HasStyle() {
			continue
		}
		spans := r.m.find(plain)
		if len(spans) == 0 {
			continue
		}
		if r.pattern.Scope == types.ScopeLine {
			spans = []span{{0, len(plain)}}
		}
		for _, sp := range spans {
			for i := sp.start; i < sp.end; i++ {
				owner[i] = hi + 1
			}
		}
		styled = true
	}
	if !styled {
		return out
	}
	return s.restyle(out, owner)
}

// restyle splits segments wherever the styling rule changes.
func (s *Set) restyle(line types.Line, owner []int) types.Line {
	res := make(types.Line, 0, len(line))
	pos := 0
	for _, seg := range line {
		segEnd := pos + len(seg.Text)
		for start := pos; start < segEnd; {
			o := owner[start]
			end := start + 1
			for end < segEnd && owner[end] == o {
				end++
			}
			piece := seg
			piece.Text = seg.Text[start-pos : end-pos]
			if o > 0 {
				p := s.highlights[o-1].pattern
				if p.Fg != "" {
					piece.Fg = p.Fg
				}
				if p.Bg != "" {
					piece.Bg = p.Bg
				}
				if p.Bold {
					piece.Bold = true
				}
			}
			res = append(res, piece)
			start = end
		}
		pos = segEnd
	}
	return res
}
