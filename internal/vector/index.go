// Package vector provides the in-memory cosine-similarity index with disk
// snapshots: insertion, top-k search, and per-document deletion via rebuild.
package vector

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/pkg/utils"
)

// ErrDimensionMismatch indicates an inserted vector whose dimension differs
// from the index's fixed dimension. This is a configuration inconsistency
// between embedder and index; the operation is aborted, vectors are never
// truncated or padded.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Entry is one stored (vector, text, metadata) triple. The vector itself
// lives in a parallel slice; entries and vectors are always the same length.
// Title and upload date are copies taken at ingest time; later edits to
// document metadata outside the index do not propagate.
type Entry struct {
	Text          string `json:"text"`
	DocumentID    string `json:"document_id"`
	DocumentTitle string `json:"document_title"`
	UploadDate    string `json:"upload_date"`
	ChunkIndex    int    `json:"chunk_index"`
}

// Result is a search hit: a stored entry with its cosine similarity against
// the query.
type Result struct {
	Entry Entry
	Score float64
}

// Metadata is the document metadata copied into each entry at insert time.
type Metadata struct {
	Title      string
	UploadDate string
}

// Index stores unit-normalized vectors with their text and metadata and
// ranks them by cosine similarity (inner product of normalized vectors).
// The dimension is fixed by the first insert and enforced afterwards.
//
// One mutex owns all state: Insert and DeleteDocument serialize the whole
// read-modify-snapshot sequence under the write lock, so a concurrent
// Search sees either the pre-rebuild or post-rebuild structure, never a
// partial one. Searches share the read lock.
type Index struct {
	mu      sync.RWMutex
	dims    int // 0 until the first insert fixes it
	entries []Entry
	vectors [][]float32

	dataPath   string // entries artifact; empty disables snapshots
	vectorPath string // raw vector artifact
	logger     *zap.Logger
}

// Option configures an Index.
type Option func(*Index)

// WithSnapshotPaths enables disk snapshots: dataPath receives the entries
// artifact, vectorPath the raw vector artifact. Both are written together
// after every mutation.
func WithSnapshotPaths(dataPath, vectorPath string) Option {
	return func(ix *Index) {
		ix.dataPath = dataPath
		ix.vectorPath = vectorPath
	}
}

// WithLogger sets a logger for snapshot failures and rebuild events.
func WithLogger(l *zap.Logger) Option {
	return func(ix *Index) { ix.logger = l }
}

// NewIndex creates an empty index.
func NewIndex(opts ...Option) *Index {
	ix := &Index{}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// Open creates an index and restores the last snapshot from the configured
// paths. A missing snapshot yields an empty index; a corrupt or inconsistent
// snapshot is a fatal *StorageError, never silently ignored.
func Open(opts ...Option) (*Index, error) {
	ix := NewIndex(opts...)
	if err := ix.load(); err != nil {
		return nil, err
	}
	return ix, nil
}

// Insert appends one entry per chunk, in chunk order, all sharing the
// document's metadata. The first insert fixes the index dimension; every
// vector of every later insert must match it or the whole insert is
// rejected with ErrDimensionMismatch before any state changes. Vectors are
// copied and unit-normalized on the way in. A snapshot is written after the
// insert; snapshot failure is logged, not returned, since the in-memory
// index remains authoritative.
func (ix *Index) Insert(docID string, chunks []models.Chunk, vecs [][]float32, meta Metadata) error {
	if len(chunks) == 0 || len(chunks) != len(vecs) {
		return fmt.Errorf("insert: %d chunks with %d vectors", len(chunks), len(vecs))
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	dims := ix.dims
	if dims == 0 {
		dims = len(vecs[0])
		if dims == 0 {
			return fmt.Errorf("insert: %w: zero-dimension vector", ErrDimensionMismatch)
		}
	}
	for i, v := range vecs {
		if len(v) != dims {
			return fmt.Errorf("insert vector %d: %w: got %d, index has %d",
				i, ErrDimensionMismatch, len(v), dims)
		}
	}

	ix.dims = dims
	for i, ch := range chunks {
		vec := make([]float32, dims)
		copy(vec, vecs[i])
		utils.NormalizeL2(vec)
		ix.vectors = append(ix.vectors, vec)
		ix.entries = append(ix.entries, Entry{
			Text:          ch.Text,
			DocumentID:    docID,
			DocumentTitle: meta.Title,
			UploadDate:    meta.UploadDate,
			ChunkIndex:    ch.Index,
		})
	}

	ix.snapshotLocked("insert")
	return nil
}

// Search returns the min(topK, Size) entries most similar to query,
// descending by cosine similarity, ties broken by insertion order. An empty
// index yields an empty result, and so does a query whose dimension does
// not match the index (a structural mismatch between embedding calls is a
// "nothing relevant" outcome, not an error). Search never mutates.
func (ix *Index) Search(query []float32, topK int) []Result {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if topK <= 0 || len(ix.entries) == 0 || len(query) != ix.dims {
		return nil
	}

	q := make([]float32, len(query))
	copy(q, query)
	utils.NormalizeL2(q)

	scored := make([]Result, len(ix.entries))
	for i, vec := range ix.vectors {
		scored[i] = Result{Entry: ix.entries[i], Score: InnerProduct(q, vec)}
	}
	// Stable sort keeps insertion order among equal scores.
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })

	if topK > len(scored) {
		topK = len(scored)
	}
	return scored[:topK]
}

// DeleteDocument removes every entry of docID. A miss is a no-op, so the
// operation is idempotent. On removal the backing slices are rebuilt from
// the retained entries in their original relative order and swapped in as a
// whole, then a snapshot is written.
func (ix *Index) DeleteDocument(docID string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	removed := 0
	for _, e := range ix.entries {
		if e.DocumentID == docID {
			removed++
		}
	}
	if removed == 0 {
		return
	}

	entries := make([]Entry, 0, len(ix.entries)-removed)
	vectors := make([][]float32, 0, len(ix.vectors)-removed)
	for i, e := range ix.entries {
		if e.DocumentID != docID {
			entries = append(entries, e)
			vectors = append(vectors, ix.vectors[i])
		}
	}
	ix.entries = entries
	ix.vectors = vectors

	if ix.logger != nil {
		ix.logger.Debug("index rebuilt after delete",
			zap.String("document_id", docID),
			zap.Int("removed", removed),
			zap.Int("remaining", len(entries)))
	}
	ix.snapshotLocked("delete")
}

// Size returns the number of stored entries.
func (ix *Index) Size() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries)
}

// Dimensions returns the fixed vector dimension, or 0 while the index is empty.
func (ix *Index) Dimensions() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.dims
}
