package router

import (
	"github.com/pithecene-io/skein/types"
	"github.com/pithecene-io/skein/window"
)

// MinivitalsDialog is the dialog whose progress bars carry the vitals.
const MinivitalsDialog = "minivitals"

// dialog applies a dialog element to the window named after the dialog.
// A batch with Clear replaces that kind's content; otherwise entries are
// merged by id.
func (r *Router) dialog(el types.Element) {
	switch e := el.(type) {
	case types.DialogOpen:
		r.windows.UpdateDialog(e.ID, func(d *window.Dialog) {
			d.Open = true
			if e.Title != "" {
				d.Title = e.Title
			}
		})
	case types.DialogClose:
		r.windows.UpdateDialog(e.ID, func(d *window.Dialog) {
			d.Open = false
		})
	case types.DialogButtons:
		r.windows.UpdateDialog(e.DialogID, func(d *window.Dialog) {
			d.Buttons = mergeByID(d.Buttons, e.Buttons, e.Clear, func(b types.DialogButton) string { return b.ID })
		})
	case types.DialogFields:
		r.windows.UpdateDialog(e.DialogID, func(d *window.Dialog) {
			d.Fields = mergeByID(d.Fields, e.Fields, e.Clear, func(f types.DialogField) string { return f.ID })
		})
	case types.DialogProgressBars:
		if e.DialogID == MinivitalsDialog {
			for _, b := range e.Bars {
				r.vital(b.ID, b.Value, b.Max, b.Text)
			}
		}
		r.windows.UpdateDialog(e.DialogID, func(d *window.Dialog) {
			d.Bars = mergeByID(d.Bars, e.Bars, e.Clear, func(b types.DialogBar) string { return b.ID })
		})
	case types.DialogLabels:
		r.windows.UpdateDialog(e.DialogID, func(d *window.Dialog) {
			d.Labels = mergeByID(d.Labels, e.Labels, e.Clear, func(l types.DialogLabel) string { return l.ID })
		})
	case types.DialogImages:
		r.windows.UpdateDialog(e.DialogID, func(d *window.Dialog) {
			d.Images = mergeByID(d.Images, e.Images, e.Clear, func(i types.DialogImage) string { return i.ID })
		})
	}
}

// mergeByID updates existing entries in place and appends new ones.
// Entries without an id are always appended.
func mergeByID[T any](cur, next []T, reset bool, id func(T) string) []T {
	if reset {
		return append([]T(nil), next...)
	}
	out := append([]T(nil), cur...)
	for _, n := range next {
		key := id(n)
		replaced := false
		if key != "" {
			for i := range out {
				if id(out[i]) == key {
					out[i] = n
					replaced = true
					break
				}
			}
		}
		if !replaced {
			out = append(out, n)
		}
	}
	return out
}
