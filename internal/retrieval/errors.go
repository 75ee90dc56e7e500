package retrieval

import "errors"

var (
	// ErrEmptyDocument is returned by Ingest when a document yields no
	// chunkable text. This is a caller input problem, not a pipeline failure.
	ErrEmptyDocument = errors.New("document contains no extractable text")

	// ErrNoDocuments is returned by Answer when nothing has been ingested
	// yet, so callers can distinguish "ask again after uploading" from
	// "nothing relevant found".
	ErrNoDocuments = errors.New("no documents have been ingested")
)
