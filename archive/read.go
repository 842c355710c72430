package archive

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/justapithecus/lode/lode"
)

// ErrNoRecords is returned when a query matches no transcript lines.
var ErrNoRecords = errors.New("no transcript records found")

// NewFSReadDataset opens a dataset rooted at a local directory for reading.
func NewFSReadDataset(dataset, root string) (lode.Dataset, error) {
	return NewReadDataset(dataset, lode.NewFSFactory(root))
}

// NewS3ReadDataset opens an S3-backed dataset for reading.
func NewS3ReadDataset(ctx context.Context, dataset string, s3cfg S3Config) (lode.Dataset, error) {
	factory, err := s3Factory(ctx, s3cfg)
	if err != nil {
		return nil, err
	}
	return NewReadDataset(dataset, factory)
}

// ReadSession collects the line records of every snapshot in ds, filtered
// by session and window when non-empty, ordered by session then seq.
// Records seen in more than one snapshot are returned once.
func ReadSession(ctx context.Context, ds lode.Dataset, session, window string) ([]map[string]any, error) {
	snapshots, err := ds.Snapshots(ctx)
	if err != nil {
		return nil, wrapError("read", string(ds.ID())+"/snapshots", err)
	}

	type key struct {
		session string
		seq     int64
	}
	seen := make(map[key]bool)
	var out []map[string]any
	for _, snap := range snapshots {
		data, err := ds.Read(ctx, snap.ID)
		if err != nil {
			return nil, wrapError("read", fmt.Sprintf("%s/snapshot/%s", ds.ID(), snap.ID), err)
		}
		for _, item := range data {
			rec, ok := item.(map[string]any)
			if !ok || rec["record_kind"] != RecordKindLine {
				continue
			}
			sess, _ := rec["session"].(string)
			if session != "" && sess != session {
				continue
			}
			if w, _ := rec["window"].(string); window != "" && w != window {
				continue
			}
			k := key{sess, recordSeq(rec)}
			if seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, rec)
		}
	}
	if len(out) == 0 {
		return nil, ErrNoRecords
	}

	sort.SliceStable(out, func(i, j int) bool {
		si, _ := out[i]["session"].(string)
		sj, _ := out[j]["session"].(string)
		if si != sj {
			return si < sj
		}
		return recordSeq(out[i]) < recordSeq(out[j])
	})
	return out, nil
}

// recordSeq reads seq as written directly (int64) or after a JSON
// round-trip (float64).
func recordSeq(rec map[string]any) int64 {
	switch n := rec["seq"].(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}
