// Package retrieval composes the chunker, the embedder and the vector index
// into the two operations the rest of the system needs: ingest a document and
// answer a question with ranked supporting passages.
package retrieval

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/chunker"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/vector"
)

// DefaultTopK is the number of passages Answer retrieves per question.
const DefaultTopK = 5

// Service runs the ingest and answer pipelines. The vector index does its own
// locking, so a single Service is safe for concurrent use.
type Service struct {
	chunker  *chunker.Chunker
	embedder embedding.Embedder
	index    *vector.Index
	topK     int
	logger   *zap.Logger
}

type Option func(*Service)

func WithTopK(k int) Option {
	return func(s *Service) {
		if k > 0 {
			s.topK = k
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func NewService(c *chunker.Chunker, e embedding.Embedder, ix *vector.Index, opts ...Option) *Service {
	s := &Service{
		chunker:  c,
		embedder: e,
		index:    ix,
		topK:     DefaultTopK,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ingest chunks text, embeds every chunk and inserts the result into the
// index under docID. It returns the number of chunks stored. Blank text is
// ErrEmptyDocument.
func (s *Service) Ingest(ctx context.Context, docID, text, title, uploadDate string) (int, error) {
	chunks := s.chunker.Split(text)
	if len(chunks) == 0 {
		return 0, ErrEmptyDocument
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vecs, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embedding document %s: %w", docID, err)
	}

	meta := vector.Metadata{Title: title, UploadDate: uploadDate}
	if err := s.index.Insert(docID, chunks, vecs, meta); err != nil {
		return 0, fmt.Errorf("indexing document %s: %w", docID, err)
	}

	s.logger.Info("document ingested",
		zap.String("document_id", docID),
		zap.String("title", title),
		zap.Int("chunks", len(chunks)))
	return len(chunks), nil
}

// Answer embeds the question and returns up to topK passages ranked by
// cosine similarity, best first. An empty index is ErrNoDocuments; an empty
// result with documents present means nothing relevant was found and is not
// an error.
func (s *Service) Answer(ctx context.Context, question string) ([]models.Passage, error) {
	if s.index.Size() == 0 {
		return nil, ErrNoDocuments
	}

	qvec, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embedding question: %w", err)
	}

	results := s.index.Search(qvec, s.topK)
	passages := make([]models.Passage, len(results))
	for i, r := range results {
		passages[i] = models.Passage{
			Text:          r.Entry.Text,
			DocumentID:    r.Entry.DocumentID,
			DocumentTitle: r.Entry.DocumentTitle,
			UploadDate:    r.Entry.UploadDate,
			ChunkIndex:    r.Entry.ChunkIndex,
			Score:         r.Score,
		}
	}
	return passages, nil
}

// Delete removes every chunk of docID from the index. Deleting an unknown id
// is a no-op.
func (s *Service) Delete(docID string) {
	s.index.DeleteDocument(docID)
}

// IndexSize returns the number of chunks currently indexed.
func (s *Service) IndexSize() int {
	return s.index.Size()
}

// IndexDimensions returns the index's vector dimension, 0 before any ingest.
func (s *Service) IndexDimensions() int {
	return s.index.Dimensions()
}
