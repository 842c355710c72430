package markup

import (
	"strings"

	"github.com/pithecene-io/skein/types"
)

// fieldSuffixes are stripped (at most one) from an edit field id before
// looking for its submit button. Order matters: the first suffix that
// matches wins.
var fieldSuffixes = []string{"amount", "input", "box", "field", "entry", "edit", "text", "value"}

// normalizeFieldID strips one known suffix and any trailing separator.
func normalizeFieldID(id string) string {
	for _, suffix := range fieldSuffixes {
		if len(id) > len(suffix) && strings.HasSuffix(id, suffix) {
			id = strings.TrimSuffix(id, suffix)
			break
		}
	}
	return strings.TrimRight(id, "_-")
}

// PairFields associates each edit field with a submit button.
//
// Fields that name their button explicitly keep it and claim it. The rest
// pair with the first unclaimed command button whose id equals the
// normalized field id, or where either id is a prefix of the other. Each
// button pairs at most once; fields without a candidate stay standalone.
// The inputs are not modified.
func PairFields(fields []types.DialogField, buttons []types.DialogButton) []types.DialogField {
	out := make([]types.DialogField, len(fields))
	copy(out, fields)

	claimed := make([]bool, len(buttons))
	for _, f := range out {
		if !f.Explicit {
			continue
		}
		for j, b := range buttons {
			if !claimed[j] && b.ID == f.Button {
				claimed[j] = true
				break
			}
		}
	}

	for i := range out {
		if out[i].Explicit {
			continue
		}
		norm := normalizeFieldID(out[i].ID)
		if norm == "" {
			continue
		}
		for j, b := range buttons {
			if claimed[j] || b.Kind != types.ButtonCommand || b.ID == "" {
				continue
			}
			if b.ID == norm || strings.HasPrefix(b.ID, norm) || strings.HasPrefix(norm, b.ID) {
				out[i].Button = b.ID
				claimed[j] = true
				break
			}
		}
	}
	return out
}
