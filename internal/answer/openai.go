package answer

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperjump/kotae/internal/models"
)

const (
	defaultChatModel   = openai.GPT4oMini
	defaultChatTimeout = 60 * time.Second
	chatMaxTokens      = 500
	chatTemperature    = 0.7

	systemPrompt = "You are a helpful research assistant that answers questions based on provided document context."
)

// RemoteConfig configures the remote generation tier.
type RemoteConfig struct {
	APIKey  string
	Model   string // defaults to gpt-4o-mini
	BaseURL string // optional override, for OpenAI-compatible endpoints
	Timeout time.Duration
}

// Remote generates answers via the OpenAI chat completions API. Without an
// API key the tier reports unavailable and the chain skips it.
type Remote struct {
	client  *openai.Client
	apiKey  string
	model   string
	timeout time.Duration
}

func NewRemote(cfg RemoteConfig) *Remote {
	if cfg.Model == "" {
		cfg.Model = defaultChatModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultChatTimeout
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

func (r *Remote) Name() string { return "openai" }

func (r *Remote) Available() bool { return r.apiKey != "" }

// Generate asks the chat model to answer the question from the retrieved
// passages, citing document titles.
func (r *Remote) Generate(ctx context.Context, question string, passages []models.Passage) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: r.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(question, passages)},
		},
		Temperature: chatTemperature,
		MaxTokens:   chatMaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("openai chat: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai chat: empty response")
	}
	return resp.Choices[0].Message.Content, nil
}

func buildPrompt(question string, passages []models.Passage) string {
	var b strings.Builder
	b.WriteString("Answer the user's question based on the provided context from research documents.\n\n")
	b.WriteString("Context from documents:\n")
	for i, p := range passages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[Source: %s]\n%s", p.DocumentTitle, p.Text)
	}
	b.WriteString("\n\nQuestion: ")
	b.WriteString(question)
	b.WriteString("\n\nInstructions:\n")
	b.WriteString("- Provide a clear, accurate answer based on the context\n")
	b.WriteString("- If the context doesn't contain enough information, say so\n")
	b.WriteString("- Cite which documents you're referencing when possible\n")
	b.WriteString("- Be concise but thorough\n\nAnswer:")
	return b.String()
}
