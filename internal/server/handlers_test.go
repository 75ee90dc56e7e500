package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/answer"
	"github.com/hyperjump/kotae/internal/chunker"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/retrieval"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/internal/vector"
)

func newTestServer(t *testing.T) (*Server, http.Handler) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewSQLiteStorage(dir + "/db.sqlite")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })

	emb := embedding.NewTiered([]embedding.Provider{embedding.NewLexical(0)})
	service := retrieval.NewService(chunker.New(80, 15), emb, vector.NewIndex())
	chain := answer.NewChain([]answer.Generator{answer.NewExtractive()})

	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Storage.DatabasePath = dir + "/db.sqlite"
	cfg.Storage.IndexDataPath = dir + "/entries.json"
	cfg.Storage.IndexVectorPath = dir + "/vectors.bin"

	srv := NewServer(service, chain, store, extract.NewExtractor(), cfg, zap.NewNop())
	return srv, srv.Router()
}

func uploadFile(t *testing.T, router http.Handler, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	_ = mw.Close()

	r := httptest.NewRequest(http.MethodPost, "/api/v1/documents", &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)
	return w
}

func askQuestion(t *testing.T, router http.Handler, question string) *httptest.ResponseRecorder {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"question": question})
	r := httptest.NewRequest(http.MethodPost, "/api/v1/chat", bytes.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)
	return w
}

func TestHandleUploadDocument(t *testing.T) {
	_, router := newTestServer(t)

	w := uploadFile(t, router, "pets.txt", "A cat sat on a mat. A dog ran in the park.")
	if w.Code != http.StatusCreated {
		t.Fatalf("status: got %d, body: %s", w.Code, w.Body.String())
	}
	var out struct {
		DocumentID      string `json:"document_id"`
		Title           string `json:"title"`
		ChunksProcessed int    `json:"chunks_processed"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.DocumentID == "" || out.Title != "pets.txt" || out.ChunksProcessed < 1 {
		t.Errorf("unexpected response: %+v", out)
	}

	// The document shows up both in the list and by ID.
	r := httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil)
	w2 := httptest.NewRecorder()
	router.ServeHTTP(w2, r)
	if w2.Code != http.StatusOK {
		t.Fatalf("list status: got %d", w2.Code)
	}
	var list struct {
		Documents []struct {
			DocumentID  string `json:"document_id"`
			TotalChunks int    `json:"total_chunks"`
		} `json:"documents"`
	}
	if err := json.NewDecoder(w2.Body).Decode(&list); err != nil {
		t.Fatal(err)
	}
	if len(list.Documents) != 1 || list.Documents[0].TotalChunks != out.ChunksProcessed {
		t.Errorf("list: got %+v", list.Documents)
	}

	r = httptest.NewRequest(http.MethodGet, "/api/v1/documents/"+out.DocumentID, nil)
	w3 := httptest.NewRecorder()
	router.ServeHTTP(w3, r)
	if w3.Code != http.StatusOK {
		t.Errorf("get status: got %d", w3.Code)
	}
}

func TestHandleUploadDocument_UnsupportedType(t *testing.T) {
	_, router := newTestServer(t)
	w := uploadFile(t, router, "sheet.xlsx", "not really a spreadsheet")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", w.Code)
	}
}

func TestHandleUploadDocument_BlankContent(t *testing.T) {
	_, router := newTestServer(t)
	w := uploadFile(t, router, "blank.txt", "   \n\t ")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400, body: %s", w.Code, w.Body.String())
	}
}

func TestHandleUploadDocument_MissingFile(t *testing.T) {
	_, router := newTestServer(t)
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("other", "value")
	_ = mw.Close()
	r := httptest.NewRequest(http.MethodPost, "/api/v1/documents", &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", w.Code)
	}
}

func TestHandleChat(t *testing.T) {
	_, router := newTestServer(t)
	if w := uploadFile(t, router, "pets.txt", "A cat sat on a mat. A dog ran in the park."); w.Code != http.StatusCreated {
		t.Fatalf("upload: %d", w.Code)
	}

	w := askQuestion(t, router, "Where did the cat sit?")
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body: %s", w.Code, w.Body.String())
	}
	var out struct {
		Answer  string `json:"answer"`
		ChatID  string `json:"chat_id"`
		Sources []struct {
			DocumentTitle string  `json:"document_title"`
			ChunkText     string  `json:"chunk_text"`
			Score         float64 `json:"score"`
		} `json:"sources"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Answer == "" || out.ChatID == "" {
		t.Errorf("unexpected response: %+v", out)
	}
	if len(out.Sources) == 0 || out.Sources[0].DocumentTitle != "pets.txt" {
		t.Errorf("sources: %+v", out.Sources)
	}
	if !strings.Contains(strings.ToLower(out.Sources[0].ChunkText), "cat") {
		t.Errorf("top source should be the cat chunk: %+v", out.Sources[0])
	}
}

func TestHandleChat_NoDocuments(t *testing.T) {
	_, router := newTestServer(t)
	w := askQuestion(t, router, "anything?")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400, body: %s", w.Code, w.Body.String())
	}
}

func TestHandleChat_EmptyQuestion(t *testing.T) {
	_, router := newTestServer(t)
	w := askQuestion(t, router, "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", w.Code)
	}
}

func TestHandleChatHistory(t *testing.T) {
	_, router := newTestServer(t)
	if w := uploadFile(t, router, "pets.txt", "A cat sat on a mat."); w.Code != http.StatusCreated {
		t.Fatalf("upload: %d", w.Code)
	}
	if w := askQuestion(t, router, "Where did the cat sit?"); w.Code != http.StatusOK {
		t.Fatalf("chat: %d", w.Code)
	}

	r := httptest.NewRequest(http.MethodGet, "/api/v1/chat/history", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var out struct {
		History []struct {
			Question string `json:"question"`
			Answer   string `json:"answer"`
		} `json:"history"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if len(out.History) != 1 || out.History[0].Question != "Where did the cat sit?" {
		t.Errorf("history: %+v", out.History)
	}

	// Another user's history is empty.
	r = httptest.NewRequest(http.MethodGet, "/api/v1/chat/history?user_id=someone_else", nil)
	w2 := httptest.NewRecorder()
	router.ServeHTTP(w2, r)
	var other struct {
		History []json.RawMessage `json:"history"`
	}
	if err := json.NewDecoder(w2.Body).Decode(&other); err != nil {
		t.Fatal(err)
	}
	if len(other.History) != 0 {
		t.Errorf("expected empty history for other user, got %d", len(other.History))
	}
}

func TestHandleDeleteDocument(t *testing.T) {
	srv, router := newTestServer(t)
	w := uploadFile(t, router, "pets.txt", "A cat sat on a mat.")
	if w.Code != http.StatusCreated {
		t.Fatalf("upload: %d", w.Code)
	}
	var up struct {
		DocumentID string `json:"document_id"`
	}
	if err := json.NewDecoder(w.Body).Decode(&up); err != nil {
		t.Fatal(err)
	}

	r := httptest.NewRequest(http.MethodDelete, "/api/v1/documents/"+up.DocumentID, nil)
	w2 := httptest.NewRecorder()
	router.ServeHTTP(w2, r)
	if w2.Code != http.StatusOK {
		t.Fatalf("delete status: got %d, body: %s", w2.Code, w2.Body.String())
	}
	if srv.service.IndexSize() != 0 {
		t.Errorf("index should be empty after delete, size=%d", srv.service.IndexSize())
	}

	// Deleting again is 404: the metadata record is gone.
	w3 := httptest.NewRecorder()
	router.ServeHTTP(w3, httptest.NewRequest(http.MethodDelete, "/api/v1/documents/"+up.DocumentID, nil))
	if w3.Code != http.StatusNotFound {
		t.Errorf("repeat delete status: got %d, want 404", w3.Code)
	}

	// With the only document gone, chat reports no documents.
	if w4 := askQuestion(t, router, "Where did the cat sit?"); w4.Code != http.StatusBadRequest {
		t.Errorf("chat after delete: got %d, want 400", w4.Code)
	}
}

func TestHandleHealth(t *testing.T) {
	_, router := newTestServer(t)
	r := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Errorf("status: got %d", w.Code)
	}
}

func TestHandleStatus(t *testing.T) {
	_, router := newTestServer(t)
	if w := uploadFile(t, router, "pets.txt", "A cat sat on a mat."); w.Code != http.StatusCreated {
		t.Fatalf("upload: %d", w.Code)
	}

	r := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body: %s", w.Code, w.Body.String())
	}
	var out struct {
		Documents       int64  `json:"documents"`
		Chats           int64  `json:"chats"`
		VectorIndexSize int    `json:"vector_index_size"`
		DiskUsageBytes  *int64 `json:"disk_usage_bytes"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Documents != 1 {
		t.Errorf("documents: got %d, want 1", out.Documents)
	}
	if out.VectorIndexSize < 1 {
		t.Errorf("vector_index_size: got %d, want >= 1", out.VectorIndexSize)
	}
	if out.DiskUsageBytes == nil || *out.DiskUsageBytes < 1 {
		t.Errorf("disk_usage_bytes missing or zero: %v", out.DiskUsageBytes)
	}
}
