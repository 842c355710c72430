package reader

import (
	"fmt"
	"slices"
	"strings"

	"github.com/pithecene-io/skein/metrics"
	"github.com/pithecene-io/skein/window"
)

// ListWindows summarises every window in declaration order.
func ListWindows(reg *window.Registry) []WindowSummary {
	names := reg.Names()
	out := make([]WindowSummary, 0, len(names))
	for _, name := range names {
		w, _ := reg.Get(name)
		streams := w.Streams
		if len(streams) == 0 {
			streams = []string{w.Name}
		}
		out = append(out, WindowSummary{
			Name:     w.Name,
			Kind:     string(w.Kind),
			Streams:  strings.Join(streams, ","),
			Lines:    len(w.Lines),
			Revision: w.Revision,
		})
	}
	return out
}

// InspectWindow returns the content of the named window.
func InspectWindow(reg *window.Registry, name string) (*WindowResponse, error) {
	w, ok := reg.Get(name)
	if !ok {
		return nil, fmt.Errorf("unknown window %q (have: %s)", name, strings.Join(reg.Names(), ", "))
	}
	resp := &WindowResponse{
		Name:         w.Name,
		Kind:         string(w.Kind),
		Title:        w.Title,
		Lines:        slices.Clone(w.Lines),
		CountdownEnd: w.CountdownEnd,
		Active:       w.Active,
	}
	if w.Kind == window.KindProgress {
		resp.Progress = &ProgressView{Value: w.Progress.Value, Max: w.Progress.Max, Text: w.Progress.Text}
	}
	if len(w.Components) > 0 {
		ids := make([]string, 0, len(w.Components))
		for id := range w.Components {
			ids = append(ids, id)
		}
		slices.Sort(ids)
		for _, id := range ids {
			resp.Components = append(resp.Components, id+": "+w.Components[id].Plain())
		}
	}
	return resp, nil
}

// Metrics converts a collector snapshot into its rendered form.
func Metrics(s metrics.Snapshot) *MetricsSnapshot {
	return &MetricsSnapshot{
		LinesProcessed:        s.LinesProcessed,
		ElementsDecoded:       s.ElementsDecoded,
		RuleCompileErrs:       s.RuleCompileErrs,
		Flushes:               s.Flushes,
		Squelched:             s.Squelched,
		Redirected:            s.Redirected,
		WithheldOrphan:        s.WithheldOrphan,
		PromptsShown:          s.PromptsShown,
		PromptsSuppressed:     s.PromptsSuppressed,
		InventoryUpdates:      s.InventoryUpdates,
		InventoryUnchanged:    s.InventoryUnchanged,
		PerceptionUpdates:     s.PerceptionUpdates,
		TimestampsNeutralized: s.TimestampsNeutralized,
		SpeechQueued:          s.SpeechQueued,
		ConfigReloads:         s.ConfigReloads,
		ConfigReloadFailures:  s.ConfigReloadFailures,
		NotificationsSent:     s.NotificationsSent,
		NotificationsFailed:   s.NotificationsFailed,
		NotificationsDropped:  s.NotificationsDropped,
		DroppedByKind:         s.DroppedByKind,
		CaptureDecodeErrors:   s.CaptureDecodeErrors,
		ArchiveWriteSuccess:   s.ArchiveWriteSuccess,
		ArchiveWriteFailure:   s.ArchiveWriteFailure,
		SessionID:             s.SessionID,
		Adapter:               s.Adapter,
		ArchiveBackend:        s.ArchiveBackend,
	}
}
