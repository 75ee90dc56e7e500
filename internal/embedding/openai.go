package embedding

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const defaultRemoteTimeout = 30 * time.Second

// RemoteConfig configures the remote embedding tier.
type RemoteConfig struct {
	APIKey  string
	Model   string // defaults to text-embedding-3-small
	BaseURL string // optional override, for OpenAI-compatible endpoints
	Timeout time.Duration
}

// Remote embeds text via the OpenAI embeddings API. Without an API key the
// tier reports unavailable and is skipped by the tiered embedder. Calls
// carry a bounded timeout so a stalled provider falls through instead of
// hanging the caller.
type Remote struct {
	client  *openai.Client
	apiKey  string
	model   string
	timeout time.Duration
}

// NewRemote creates the remote tier. It never fails; availability is
// reported separately so a missing key means "skip", not "error".
func NewRemote(cfg RemoteConfig) *Remote {
	if cfg.Model == "" {
		cfg.Model = string(openai.SmallEmbedding3)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultRemoteTimeout
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &Remote{
		client:  openai.NewClientWithConfig(clientCfg),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		timeout: cfg.Timeout,
	}
}

// Name returns the tier identifier.
func (r *Remote) Name() string { return "openai" }

// Available reports whether an API key is configured.
func (r *Remote) Available() bool { return r.apiKey != "" }

// EmbedBatch requests embeddings for texts in one API call. The response is
// reordered by the provider-reported index so output order matches input.
func (r *Remote) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	resp, err := r.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(r.model),
		Input: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("openai embeddings: index %d out of range", d.Index)
		}
		out[d.Index] = d.Embedding
	}
	for i, v := range out {
		if len(v) == 0 {
			return nil, fmt.Errorf("openai embeddings: missing vector for input %d", i)
		}
	}
	return out, nil
}

// Close is a no-op for the remote tier.
func (r *Remote) Close() error { return nil }
