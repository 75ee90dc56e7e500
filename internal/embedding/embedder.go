// Package embedding produces vector embeddings for text with a tiered
// fallback chain: a remote provider, a local ONNX model, and a lexical
// hashed-TF encoder that always succeeds.
package embedding

import "context"

// Embedder produces vector embeddings for text. All vectors returned by a
// single call share one dimension; different calls may resolve to different
// tiers and therefore different dimensions.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Close() error
}

// Provider is one tier in the fallback chain. Available reports whether the
// tier should be attempted at all (e.g. a remote tier without a credential
// is skipped, not failed); an attempted tier may still error, in which case
// the next tier is tried.
type Provider interface {
	Name() string
	Available() bool
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Close() error
}
