package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperjump/kotae/internal/models"
)

func TestSQLiteStorage_Documents(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")
	store, err := NewSQLiteStorage(path)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	ctx := context.Background()

	doc := &models.Document{
		ID:          "doc1",
		Title:       "report.pdf",
		UploadDate:  "2026-03-01T10:00:00Z",
		TotalChunks: 7,
	}
	if err := store.CreateDocument(ctx, doc); err != nil {
		t.Fatal(err)
	}
	if doc.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}

	got, err := store.GetDocument(ctx, "doc1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "report.pdf" || got.TotalChunks != 7 || got.UploadDate != "2026-03-01T10:00:00Z" {
		t.Errorf("got %+v", got)
	}

	list, err := store.ListDocuments(ctx, 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Errorf("expected 1 doc, got %d", len(list))
	}

	if err := store.DeleteDocument(ctx, "doc1"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.GetDocument(ctx, "doc1"); err == nil {
		t.Error("expected error after delete")
	}
	// Deleting a missing ID is fine.
	if err := store.DeleteDocument(ctx, "doc1"); err != nil {
		t.Errorf("delete of missing id: %v", err)
	}
}

func TestSQLiteStorage_Chats(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chats.db")
	store, err := NewSQLiteStorage(path)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	first := &models.ChatRecord{
		ID: "c1", UserID: "u1", Question: "Where did the cat sit?", Answer: "On the mat.",
		Sources: []models.Passage{
			{Text: "A cat sat on a mat.", DocumentID: "doc1", DocumentTitle: "pets.pdf", Score: 0.92},
		},
		CreatedAt: base,
	}
	second := &models.ChatRecord{
		ID: "c2", UserID: "u1", Question: "And the dog?", Answer: "In the park.",
		CreatedAt: base.Add(time.Minute),
	}
	other := &models.ChatRecord{
		ID: "c3", UserID: "u2", Question: "Unrelated", Answer: "Yes.",
		CreatedAt: base,
	}
	for _, c := range []*models.ChatRecord{first, second, other} {
		if err := store.CreateChat(ctx, c); err != nil {
			t.Fatal(err)
		}
	}

	chats, err := store.ListChats(ctx, "u1", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(chats) != 2 {
		t.Fatalf("expected 2 chats for u1, got %d", len(chats))
	}
	if chats[0].ID != "c2" || chats[1].ID != "c1" {
		t.Errorf("history not newest-first: %s, %s", chats[0].ID, chats[1].ID)
	}
	if len(chats[1].Sources) != 1 || chats[1].Sources[0].DocumentTitle != "pets.pdf" {
		t.Errorf("sources round trip: %+v", chats[1].Sources)
	}

	chats, err = store.ListChats(ctx, "u1", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(chats) != 1 {
		t.Errorf("limit ignored: got %d", len(chats))
	}
}

func TestSQLiteStorage_Counts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "count.db")
	store, err := NewSQLiteStorage(path)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	ctx := context.Background()

	n, err := store.CountDocuments(ctx)
	if err != nil || n != 0 {
		t.Errorf("CountDocuments: %v, %d", err, n)
	}
	_ = store.CreateDocument(ctx, &models.Document{ID: "x", Title: "t", UploadDate: "2026-01-01"})
	n, _ = store.CountDocuments(ctx)
	if n != 1 {
		t.Errorf("expected 1 document, got %d", n)
	}

	_ = store.CreateChat(ctx, &models.ChatRecord{ID: "c", UserID: "u", Question: "q", Answer: "a"})
	n, _ = store.CountChats(ctx)
	if n != 1 {
		t.Errorf("expected 1 chat, got %d", n)
	}
}
