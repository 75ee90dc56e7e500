package answer

import (
	"context"
	"strings"

	"github.com/hyperjump/kotae/internal/models"
)

// extractiveMaxPassages caps how many passages the fallback answer quotes.
const extractiveMaxPassages = 3

// Extractive composes an answer directly from the retrieved passages. It is
// always available and never fails, which makes it the terminal tier of a
// generation chain.
type Extractive struct{}

func NewExtractive() *Extractive { return &Extractive{} }

func (e *Extractive) Name() string { return "extractive" }

func (e *Extractive) Available() bool { return true }

func (e *Extractive) Generate(_ context.Context, _ string, passages []models.Passage) (string, error) {
	if len(passages) == 0 {
		return "I couldn't find relevant information in the uploaded documents to answer your question.", nil
	}
	n := len(passages)
	if n > extractiveMaxPassages {
		n = extractiveMaxPassages
	}
	var b strings.Builder
	b.WriteString("Based on the provided documents, here are relevant excerpts:\n\n")
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(passages[i].Text)
	}
	return b.String(), nil
}
