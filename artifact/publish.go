package artifact

import (
	"context"

	"github.com/kbukum/speakerbind/logger"
	"github.com/kbukum/speakerbind/storage"
)

// Publisher writes bundles to a storage backend as
// <prefix>/<clipID>/<kind>.<ext>.
type Publisher struct {
	store  storage.Storage
	cfg    storage.Config
	format Format
	log    *logger.Logger
}

// NewPublisher creates a Publisher. cfg supplies the key prefix.
func NewPublisher(store storage.Storage, cfg storage.Config, format Format, log *logger.Logger) *Publisher {
	if log == nil {
		log = logger.NewNop()
	}
	return &Publisher{store: store, cfg: cfg, format: format, log: log.WithComponent("artifact")}
}

// Path returns the storage key of kind for clipID.
func (p *Publisher) Path(clipID string, kind Kind) string {
	return p.cfg.Key(clipID, string(kind)+"."+p.format.Ext())
}

// Publish writes every envelope in b and returns the keys written, in
// diarization, binding graph, timeline order. It stops at the first failure.
func (p *Publisher) Publish(ctx context.Context, clipID string, b *Bundle) ([]string, error) {
	var keys []string
	for _, it := range b.items() {
		data, err := Marshal(it.v, p.format)
		if err != nil {
			return keys, err
		}
		key := p.Path(clipID, it.kind)
		if err := storage.PutBytes(ctx, p.store, key, data); err != nil {
			p.log.Error("publish failed", logger.Fields("key", key, "error", err.Error()))
			return keys, err
		}
		p.log.Debug("artifact published", logger.Fields("key", key, "bytes", len(data)))
		keys = append(keys, key)
	}
	p.log.Info("bundle published", logger.Fields("clip_id", clipID, "artifacts", len(keys)))
	return keys, nil
}
