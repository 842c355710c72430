package pipeline

import (
	"context"
	"fmt"

	"github.com/pithecene-io/skein/adapter"
	"github.com/pithecene-io/skein/adapter/redis"
	"github.com/pithecene-io/skein/adapter/webhook"
	"github.com/pithecene-io/skein/archive"
	"github.com/pithecene-io/skein/cli/config"
)

// NewAdapter builds the adapter named by cfg. An empty type returns nil.
func NewAdapter(cfg config.AdapterConfig) (adapter.Adapter, error) {
	switch cfg.Type {
	case "":
		return nil, nil
	case config.AdapterWebhook:
		wc := webhook.Config{
			URL:     cfg.URL,
			Headers: cfg.Headers,
			Timeout: cfg.Timeout.Duration,
			Retries: webhook.DefaultRetries,
		}
		for _, k := range cfg.Kinds {
			wc.Kinds = append(wc.Kinds, adapter.Kind(k))
		}
		if cfg.Retries != nil {
			wc.Retries = *cfg.Retries
		}
		a, err := webhook.New(wc)
		if err != nil {
			return nil, err
		}
		return a, nil
	case config.AdapterRedis:
		rc := redis.Config{
			URL:          cfg.URL,
			Channel:      cfg.Channel,
			Stream:       cfg.Stream,
			StreamMaxLen: cfg.StreamMaxLen,
			Timeout:      cfg.Timeout.Duration,
			Retries:      redis.DefaultRetries,
		}
		if cfg.Retries != nil {
			rc.Retries = *cfg.Retries
		}
		a, err := redis.New(rc)
		if err != nil {
			return nil, err
		}
		return a, nil
	default:
		return nil, fmt.Errorf("unknown adapter type %q", cfg.Type)
	}
}

// OpenArchive opens the archive named by cfg. An empty backend returns nil.
func OpenArchive(ctx context.Context, cfg config.ArchiveConfig, sessionID, character string) (*archive.Archive, error) {
	ac := archive.Config{
		Dataset:    cfg.Dataset,
		SessionID:  sessionID,
		Character:  character,
		FlushCount: cfg.FlushCount,
	}
	switch cfg.Backend {
	case "":
		return nil, nil
	case config.BackendFS:
		return archive.NewFS(ac, cfg.Path)
	case config.BackendS3:
		bucket, prefix := archive.ParseS3Path(cfg.Path)
		return archive.NewS3(ctx, ac, archive.S3Config{
			Bucket:       bucket,
			Prefix:       prefix,
			Region:       cfg.Region,
			Endpoint:     cfg.Endpoint,
			UsePathStyle: cfg.S3PathStyle,
		})
	default:
		return nil, fmt.Errorf("unknown archive backend %q", cfg.Backend)
	}
}
