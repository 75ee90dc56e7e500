package embedding

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// Tiered tries providers in order and returns the first well-formed result.
// Provider failures are logged and swallowed; they never propagate to the
// caller. The overall call fails only when every tier fails, which cannot
// happen when the chain ends with the lexical tier.
type Tiered struct {
	providers []Provider
	logger    *zap.Logger // optional; when set, logs tier fallthrough
}

// TieredOption configures a Tiered embedder.
type TieredOption func(*Tiered)

// WithLogger sets a logger for tier fallthrough events.
func WithLogger(l *zap.Logger) TieredOption {
	return func(t *Tiered) { t.logger = l }
}

// NewTiered creates a tiered embedder over the given providers, tried in order.
func NewTiered(providers []Provider, opts ...TieredOption) *Tiered {
	t := &Tiered{providers: providers}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// EmbedBatch embeds texts with the first provider that is available and
// succeeds. Returns one vector per input text, in input order. An empty
// input yields an empty result without touching any provider.
func (t *Tiered) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	for _, p := range t.providers {
		if !p.Available() {
			if t.logger != nil {
				t.logger.Debug("embedding tier skipped", zap.String("tier", p.Name()))
			}
			continue
		}
		vecs, err := p.EmbedBatch(ctx, texts)
		if err != nil {
			if t.logger != nil {
				t.logger.Warn("embedding tier failed, falling through",
					zap.String("tier", p.Name()), zap.Error(err))
			}
			continue
		}
		if !wellFormed(vecs, len(texts)) {
			if t.logger != nil {
				t.logger.Warn("embedding tier returned malformed vectors, falling through",
					zap.String("tier", p.Name()))
			}
			continue
		}
		return vecs, nil
	}
	return nil, errors.New("all embedding tiers failed")
}

// Embed embeds a single text.
func (t *Tiered) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := t.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// Close closes all providers.
func (t *Tiered) Close() error {
	var firstErr error
	for _, p := range t.providers {
		if err := p.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// wellFormed reports whether vecs contains want vectors that all share one
// non-zero dimension.
func wellFormed(vecs [][]float32, want int) bool {
	if len(vecs) != want {
		return false
	}
	dims := len(vecs[0])
	if dims == 0 {
		return false
	}
	for _, v := range vecs {
		if len(v) != dims {
			return false
		}
	}
	return true
}
