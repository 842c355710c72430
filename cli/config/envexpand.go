// Package config loads skein.yaml: presets, highlight and event rules,
// window layout, notification adapter and archive settings.
package config

import (
	"os"
	"regexp"
	"strings"
)

// envRef matches ${VAR}, ${VAR:-default} and the escaped form $${...}.
var envRef = regexp.MustCompile(`\$?\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// ExpandEnv substitutes environment references in a config document.
//
// ${VAR} becomes the variable's value, or "" when unset. ${VAR:-default}
// falls back to default when VAR is unset or empty. $${VAR} is written out
// as the literal ${VAR}, so highlight patterns can still match it.
// A missing adapter URL is then reported by Validate.
func ExpandEnv(input string) string {
	idx := envRef.FindAllStringSubmatchIndex(input, -1)
	if len(idx) == 0 {
		return input
	}

	var b strings.Builder
	b.Grow(len(input))
	last := 0
	for _, m := range idx {
		b.WriteString(input[last:m[0]])
		last = m[1]

		ref := input[m[0]:m[1]]
		if strings.HasPrefix(ref, "$$") {
			b.WriteString(ref[1:])
			continue
		}
		if v, ok := os.LookupEnv(input[m[2]:m[3]]); ok && v != "" {
			b.WriteString(v)
			continue
		}
		if m[4] >= 0 {
			b.WriteString(input[m[4]:m[5]])
		}
	}
	b.WriteString(input[last:])
	return b.String()
}
