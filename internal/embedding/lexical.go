package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/hyperjump/kotae/pkg/utils"
)

// DefaultLexicalDimensions is the fixed feature dimension of the lexical tier.
const DefaultLexicalDimensions = 512

// Lexical is the last-resort embedding tier: deterministic hashed term
// frequencies over word unigrams and bigrams, projected into a fixed
// dimension and L2-normalized. It needs no model, no network, and no
// fitting step, so it is always available and always succeeds; two calls
// with the same text produce the same vector.
type Lexical struct {
	dimensions int
	stopwords  map[string]struct{}
}

// NewLexical creates the lexical tier. Non-positive dimensions falls back
// to DefaultLexicalDimensions.
func NewLexical(dimensions int) *Lexical {
	if dimensions <= 0 {
		dimensions = DefaultLexicalDimensions
	}
	return &Lexical{dimensions: dimensions, stopwords: stopwords()}
}

// Name returns the tier identifier.
func (l *Lexical) Name() string { return "lexical" }

// Available always reports true; this tier is the unconditional fallback.
func (l *Lexical) Available() bool { return true }

// Dimensions returns the fixed feature dimension.
func (l *Lexical) Dimensions() int { return l.dimensions }

// EmbedBatch embeds each text independently. A text with no usable tokens
// yields a zero vector of the right dimension rather than an error.
func (l *Lexical) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = l.embed(text)
	}
	return out, nil
}

func (l *Lexical) embed(text string) []float32 {
	vec := make([]float32, l.dimensions)
	tokens := l.tokenize(text)
	if len(tokens) == 0 {
		return vec
	}
	tf := make(map[uint32]int)
	for _, tok := range tokens {
		tf[l.bucket(tok)]++
	}
	for i := 0; i+1 < len(tokens); i++ {
		tf[l.bucket(tokens[i]+" "+tokens[i+1])]++
	}
	// Sublinear term frequency dampens very frequent terms.
	for bucket, count := range tf {
		vec[bucket] += float32(1 + math.Log(float64(count)))
	}
	utils.NormalizeL2(vec)
	return vec
}

// bucket hashes a term into a feature index.
func (l *Lexical) bucket(term string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(term))
	return h.Sum32() % uint32(l.dimensions)
}

// tokenize lowercases text, splits on non-letter/digit runes, and drops
// stopwords.
func (l *Lexical) tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := fields[:0]
	for _, f := range fields {
		if _, skip := l.stopwords[f]; skip {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

func stopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "for", "to",
		"of", "in", "on", "at", "by", "with", "as", "is", "are", "was",
		"were", "be", "been", "it", "this", "that", "these", "those",
		"from", "into", "about", "over", "under", "so", "such", "too",
		"very", "can", "will", "just", "not", "no",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

// Close is a no-op for the lexical tier.
func (l *Lexical) Close() error { return nil }
