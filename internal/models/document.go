// Package models defines core data structures for documents, chunks, passages, and chats.
package models

import "time"

// Document is the metadata record for an ingested document. The full text is
// not retained after ingestion; only chunks live in the vector index.
type Document struct {
	ID          string    `json:"document_id" db:"id"`
	Title       string    `json:"title" db:"title"`
	UploadDate  string    `json:"upload_date" db:"upload_date"`
	TotalChunks int       `json:"total_chunks" db:"total_chunks"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
