package markup

import (
	"regexp"
	"strconv"
)

var (
	fractionPattern = regexp.MustCompile(`(\d+)\s*/\s*(\d+)`)
	percentPattern  = regexp.MustCompile(`\((\d+)%\)`)
)

// ParseProgress extracts (current, max) from a bar's text.
//
//	"health 175/175"   -> (175, 175)
//	"defensive (100%)" -> (100, 100)
//	"stance"           -> (value, 100)
//
// Unparsable numbers fall back to (value, 100).
func ParseProgress(text string, value int) (int, int) {
	if m := fractionPattern.FindStringSubmatch(text); m != nil {
		cur, err1 := strconv.Atoi(m[1])
		maxVal, err2 := strconv.Atoi(m[2])
		if err1 == nil && err2 == nil {
			return cur, maxVal
		}
	}
	if m := percentPattern.FindStringSubmatch(text); m != nil {
		if pct, err := strconv.Atoi(m[1]); err == nil {
			return pct, 100
		}
	}
	return value, 100
}

// atoiDefault parses s, returning def when s is empty or malformed.
func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
