// Package answer turns a question and its retrieved passages into an answer
// string. Generation follows the same fallback shape as embedding: a remote
// model first, then an extractive composer that never fails, so the response
// pipeline is never blocked on a collaborator.
package answer

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/models"
)

// Generator produces an answer from a question and its supporting passages.
type Generator interface {
	Name() string
	Available() bool
	Generate(ctx context.Context, question string, passages []models.Passage) (string, error)
}

// Chain tries each generator in order, skipping unavailable ones and falling
// through on error. Construct it with an Extractive generator last so a
// generation request always yields an answer.
type Chain struct {
	generators []Generator
	logger     *zap.Logger
}

type ChainOption func(*Chain)

func WithLogger(l *zap.Logger) ChainOption {
	return func(c *Chain) { c.logger = l }
}

func NewChain(generators []Generator, opts ...ChainOption) *Chain {
	c := &Chain{generators: generators, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Chain) Generate(ctx context.Context, question string, passages []models.Passage) (string, error) {
	for _, g := range c.generators {
		if !g.Available() {
			c.logger.Debug("generation tier unavailable, skipping", zap.String("tier", g.Name()))
			continue
		}
		text, err := g.Generate(ctx, question, passages)
		if err != nil {
			c.logger.Warn("generation tier failed, falling through",
				zap.String("tier", g.Name()),
				zap.Error(err))
			continue
		}
		return text, nil
	}
	return "", errors.New("all generation tiers failed")
}
