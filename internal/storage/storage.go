// Package storage defines the persistence interface for document metadata
// and chat history. Chunk text and vectors live in the vector index's own
// snapshot, not here.
package storage

import (
	"context"

	"github.com/hyperjump/kotae/internal/models"
)

// Storage defines document metadata and chat history persistence.
type Storage interface {
	// Document operations
	CreateDocument(ctx context.Context, doc *models.Document) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	DeleteDocument(ctx context.Context, id string) error
	ListDocuments(ctx context.Context, offset, limit int) ([]*models.Document, error)

	// Chat operations
	CreateChat(ctx context.Context, chat *models.ChatRecord) error
	ListChats(ctx context.Context, userID string, limit int) ([]*models.ChatRecord, error)

	// Stats
	CountDocuments(ctx context.Context) (int64, error)
	CountChats(ctx context.Context) (int64, error)

	Close() error
}
