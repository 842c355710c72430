package markup

import (
	"github.com/pithecene-io/skein/types"
)

// dialogTagKinds groups sub-tag names by the batch they feed.
var (
	buttonTags = []string{"cmdButton", "button", "link", "radio", "closeButton"}
	fieldTags  = []string{"editBox"}
	barTags    = []string{"progressBar"}
	labelTags  = []string{"label"}
	imageTags  = []string{"image"}
)

// findTags collects every non-closing tag in payload whose name is in names,
// in payload order.
func findTags(payload string, names ...string) []tag {
	var found []tag
	eachTag(payload, func(t tag) {
		for _, n := range names {
			if t.Name == n {
				found = append(found, t)
				return
			}
		}
	})
	return found
}

// parseDialog turns one dialog payload into typed batches, one per
// sub-tag kind present. Kinds are extracted independently.
func parseDialog(id string, reset bool, payload string) []types.Element {
	var out []types.Element

	var buttons []types.DialogButton
	for _, t := range findTags(payload, buttonTags...) {
		buttons = append(buttons, dialogButton(t))
	}

	var fields []types.DialogField
	for _, t := range findTags(payload, fieldTags...) {
		f := types.DialogField{
			ID:       t.attr("id"),
			Value:    t.attr("value"),
			MaxChars: atoiDefault(t.attr("maxChars"), 0),
		}
		if b := t.attr("button"); b != "" {
			f.Button = b
			f.Explicit = true
		}
		fields = append(fields, f)
	}

	if len(buttons) > 0 {
		out = append(out, types.DialogButtons{DialogID: id, Clear: reset, Buttons: buttons})
	}
	if len(fields) > 0 {
		out = append(out, types.DialogFields{DialogID: id, Clear: reset, Fields: PairFields(fields, buttons)})
	}

	var bars []types.DialogBar
	for _, t := range findTags(payload, barTags...) {
		value := atoiDefault(t.attr("value"), 0)
		text := t.attr("text")
		cur, maxVal := ParseProgress(text, value)
		bars = append(bars, types.DialogBar{ID: t.attr("id"), Value: cur, Max: maxVal, Text: text})
	}
	if len(bars) > 0 {
		out = append(out, types.DialogProgressBars{DialogID: id, Clear: reset, Bars: bars})
	}

	var labels []types.DialogLabel
	for _, t := range findTags(payload, labelTags...) {
		labels = append(labels, types.DialogLabel{ID: t.attr("id"), Value: t.attr("value")})
	}
	if len(labels) > 0 {
		out = append(out, types.DialogLabels{DialogID: id, Clear: reset, Labels: labels})
	}

	var images []types.DialogImage
	for _, t := range findTags(payload, imageTags...) {
		images = append(images, types.DialogImage{ID: t.attr("id"), Name: t.attr("name")})
	}
	if len(images) > 0 {
		out = append(out, types.DialogImages{DialogID: id, Clear: reset, Images: images})
	}

	return out
}

func dialogButton(t tag) types.DialogButton {
	b := types.DialogButton{
		ID:      t.attr("id"),
		Kind:    types.ButtonCommand,
		Label:   t.attr("value"),
		Command: t.attr("cmd"),
	}
	switch t.Name {
	case "radio":
		b.Kind = types.ButtonRadio
		b.Label = t.attr("text")
		b.Group = t.attr("group")
		b.Checked = isTruthy(t.attr("value"))
	case "closeButton":
		b.Kind = types.ButtonClose
	}
	if b.Label == "" {
		b.Label = t.attr("text")
	}
	return b
}

// isTruthy accepts the boolean spellings the server uses.
func isTruthy(s string) bool {
	switch s {
	case "1", "t", "true", "y", "yes", "on":
		return true
	}
	return false
}
