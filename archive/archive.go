// Package archive writes delivered transcript lines into a Lode dataset.
//
// Records are partitioned with a Hive layout session/day/window and stored
// as JSONL on the local filesystem or S3. Lines are buffered and written
// as one batch when FlushCount is reached, on Flush, and on Close.
package archive

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/justapithecus/lode/lode"
	lodes3 "github.com/justapithecus/lode/lode/s3"
)

// DefaultDataset is the dataset id used when Config.Dataset is empty.
const DefaultDataset = "skein"

// DefaultFlushCount is the batch size used when Config.FlushCount is 0.
const DefaultFlushCount = 256

// RecordKindLine marks a transcript line record.
const RecordKindLine = "line"

// partitionKeys is the Hive layout shared by the write and read paths.
var partitionKeys = []string{"session", "day", "window"}

// ErrClosed is returned when writing to a closed archive.
var ErrClosed = errors.New("archive closed")

// DeriveDay computes the partition day from a line's time.
// Format: YYYY-MM-DD in UTC.
func DeriveDay(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Config holds archive configuration.
type Config struct {
	Dataset   string
	SessionID string
	Character string
	// FlushCount is the number of buffered lines that triggers a write.
	FlushCount int
}

// Entry is one delivered line.
type Entry struct {
	Window string
	Stream string
	Text   string
	Time   time.Time
}

// S3Config holds configuration for the S3 backend.
type S3Config struct {
	// Bucket is the S3 bucket name (required).
	Bucket string
	// Prefix is the key prefix within the bucket (optional).
	Prefix string
	// Region is the AWS region (optional, uses default chain if empty).
	Region string
	// Endpoint is a custom endpoint for S3-compatible providers.
	Endpoint string
	// UsePathStyle forces path-style addressing.
	UsePathStyle bool
}

// Validate checks that required S3 configuration is present.
func (c *S3Config) Validate() error {
	if c.Bucket == "" {
		return errors.New("S3 bucket is required")
	}
	return nil
}

// ParseS3Path parses a path in format "bucket/prefix" or "bucket".
func ParseS3Path(path string) (bucket, prefix string) {
	bucket, prefix, _ = strings.Cut(path, "/")
	return bucket, prefix
}

// Archive buffers entries and writes them to a Lode dataset.
// Safe for concurrent use.
type Archive struct {
	dataset lode.Dataset
	config  Config

	mu      sync.Mutex
	pending []any
	seq     int64
	closed  bool
}

// New creates an archive over a custom store factory.
// Use lode.NewMemoryFactory() for testing.
func New(cfg Config, factory lode.StoreFactory) (*Archive, error) {
	if cfg.Dataset == "" {
		cfg.Dataset = DefaultDataset
	}
	if cfg.FlushCount <= 0 {
		cfg.FlushCount = DefaultFlushCount
	}
	ds, err := NewReadDataset(cfg.Dataset, factory)
	if err != nil {
		return nil, wrapError("init", cfg.Dataset, err)
	}
	return &Archive{dataset: ds, config: cfg}, nil
}

// NewFS creates an archive rooted at a local directory.
func NewFS(cfg Config, root string) (*Archive, error) {
	return New(cfg, lode.NewFSFactory(root))
}

// NewS3 creates an archive backed by S3.
// Uses AWS SDK default credential chain (env vars, shared config, IAM role).
func NewS3(ctx context.Context, cfg Config, s3cfg S3Config) (*Archive, error) {
	factory, err := s3Factory(ctx, s3cfg)
	if err != nil {
		return nil, err
	}
	return New(cfg, factory)
}

// NewReadDataset opens a dataset with the archive's layout and codec.
func NewReadDataset(dataset string, factory lode.StoreFactory) (lode.Dataset, error) {
	return lode.NewDataset(
		lode.DatasetID(dataset),
		factory,
		lode.WithHiveLayout(partitionKeys...),
		lode.WithCodec(lode.NewJSONLCodec()),
	)
}

func s3Factory(ctx context.Context, s3cfg S3Config) (lode.StoreFactory, error) {
	if err := s3cfg.Validate(); err != nil {
		return nil, err
	}

	var opts []func(*config.LoadOptions) error
	if s3cfg.Region != "" {
		opts = append(opts, config.WithRegion(s3cfg.Region))
	}
	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if s3cfg.Endpoint != "" {
		endpoint := s3cfg.Endpoint
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = &endpoint
		})
	}
	if s3cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}
	client := s3.NewFromConfig(awsConfig, s3Opts...)

	return func() (lode.Store, error) {
		return lodes3.New(client, lodes3.Config{
			Bucket: s3cfg.Bucket,
			Prefix: s3cfg.Prefix,
		})
	}, nil
}

// Append buffers one entry and writes the batch once FlushCount entries
// are pending.
func (a *Archive) Append(ctx context.Context, e Entry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrClosed
	}
	a.seq++
	a.pending = append(a.pending, a.record(e))
	if len(a.pending) < a.config.FlushCount {
		return nil
	}
	return a.flushLocked(ctx)
}

// Pending returns the number of buffered entries.
func (a *Archive) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pending)
}

// Flush writes all buffered entries.
func (a *Archive) Flush(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.flushLocked(ctx)
}

// Close flushes and rejects further writes.
func (a *Archive) Close(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	return a.flushLocked(ctx)
}

// flushLocked writes the pending batch. On failure the batch is kept so a
// later flush can retry it.
func (a *Archive) flushLocked(ctx context.Context) error {
	if len(a.pending) == 0 {
		return nil
	}
	if _, err := a.dataset.Write(ctx, a.pending, lode.Metadata{}); err != nil {
		return wrapError("write", a.config.Dataset, err)
	}
	a.pending = nil
	return nil
}

func (a *Archive) record(e Entry) map[string]any {
	window := e.Window
	if window == "" {
		window = "main"
	}
	return map[string]any{
		"record_kind": RecordKindLine,
		"session":     a.config.SessionID,
		"day":         DeriveDay(e.Time),
		"window":      window,
		"stream":      e.Stream,
		"character":   a.config.Character,
		"seq":         a.seq,
		"ts":          e.Time.UTC().Format(time.RFC3339Nano),
		"text":        e.Text,
	}
}

// ReadLatest returns the records of the latest snapshot in ds.
func ReadLatest(ctx context.Context, ds lode.Dataset) ([]map[string]any, error) {
	latest, err := ds.Latest(ctx)
	if err != nil {
		return nil, wrapError("read", string(ds.ID()), err)
	}
	data, err := ds.Read(ctx, latest.ID)
	if err != nil {
		return nil, wrapError("read", string(ds.ID()), err)
	}
	out := make([]map[string]any, 0, len(data))
	for _, item := range data {
		if rec, ok := item.(map[string]any); ok {
			out = append(out, rec)
		}
	}
	return out, nil
}
