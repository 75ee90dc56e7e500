package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/retrieval"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/pkg/utils"
)

// maxUploadBytes bounds the multipart upload size.
const maxUploadBytes = 64 << 20

// sourceExcerptLen is how much of a passage the chat response quotes per source.
const sourceExcerptLen = 200

func (s *Server) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid multipart request")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	ext := filepath.Ext(header.Filename)
	if !extract.Supported(ext) {
		s.respondError(w, http.StatusBadRequest, "unsupported file type: "+ext)
		return
	}
	content, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "failed to read upload")
		return
	}

	text, err := s.extractor.ExtractBytes(content, ext)
	if err != nil {
		s.logger.Warn("extraction failed", zap.String("filename", header.Filename), zap.Error(err))
		s.respondError(w, http.StatusBadRequest, "could not extract text from document")
		return
	}

	docID := uuid.New().String()
	uploadDate := time.Now().Format(time.RFC3339)
	s.logger.Debug("upload document request",
		zap.String("id", docID),
		zap.String("filename", header.Filename),
		zap.Int("bytes", len(content)))

	chunkCount, err := s.service.Ingest(r.Context(), docID, text, header.Filename, uploadDate)
	if err != nil {
		if errors.Is(err, retrieval.ErrEmptyDocument) {
			s.respondError(w, http.StatusBadRequest, "could not extract text from document")
			return
		}
		s.logger.Error("ingest failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	doc := &models.Document{
		ID:          docID,
		Title:       header.Filename,
		UploadDate:  uploadDate,
		TotalChunks: chunkCount,
	}
	if err := s.storage.CreateDocument(r.Context(), doc); err != nil {
		// Keep metadata and index consistent: undo the ingest.
		s.service.Delete(docID)
		s.logger.Error("store document metadata failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"document_id":      docID,
		"title":            header.Filename,
		"chunks_processed": chunkCount,
		"message":          "Document uploaded and processed successfully",
	})
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.storage.ListDocuments(r.Context(), 0, 1000)
	if err != nil {
		s.logger.Error("list documents failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if docs == nil {
		docs = []*models.Document{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"documents": docs})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	doc, err := s.storage.GetDocument(r.Context(), id)
	if err != nil {
		s.respondError(w, http.StatusNotFound, "document not found")
		return
	}
	s.respondJSON(w, http.StatusOK, doc)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.logger.Debug("delete document request", zap.String("id", id))
	if _, err := s.storage.GetDocument(r.Context(), id); err != nil {
		s.respondError(w, http.StatusNotFound, "document not found")
		return
	}
	s.service.Delete(id)
	if err := s.storage.DeleteDocument(r.Context(), id); err != nil {
		s.logger.Error("delete document metadata failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"message": "Document deleted successfully"})
}

type chatRequest struct {
	Question string `json:"question"`
	UserID   string `json:"user_id"`
}

type chatSource struct {
	DocumentID    string  `json:"document_id"`
	DocumentTitle string  `json:"document_title"`
	ChunkText     string  `json:"chunk_text"`
	Score         float64 `json:"score"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Question == "" {
		s.respondError(w, http.StatusBadRequest, "question is required")
		return
	}
	if req.UserID == "" {
		req.UserID = "default_user"
	}
	s.logger.Debug("chat request", zap.String("user_id", req.UserID), zap.String("question", req.Question))

	passages, err := s.service.Answer(r.Context(), req.Question)
	if err != nil {
		if errors.Is(err, retrieval.ErrNoDocuments) {
			s.respondError(w, http.StatusBadRequest, "No documents uploaded yet")
			return
		}
		s.logger.Error("answer failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	chatID := uuid.New().String()
	if len(passages) == 0 {
		s.respondJSON(w, http.StatusOK, map[string]interface{}{
			"answer":  "I couldn't find relevant information in the uploaded documents to answer your question.",
			"sources": []chatSource{},
			"chat_id": chatID,
		})
		return
	}

	answerText, err := s.generator.Generate(r.Context(), req.Question, passages)
	if err != nil {
		s.logger.Error("answer generation failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	sources := make([]chatSource, len(passages))
	for i, p := range passages {
		sources[i] = chatSource{
			DocumentID:    p.DocumentID,
			DocumentTitle: p.DocumentTitle,
			ChunkText:     utils.Truncate(p.Text, sourceExcerptLen),
			Score:         p.Score,
		}
	}

	record := &models.ChatRecord{
		ID:       chatID,
		UserID:   req.UserID,
		Question: req.Question,
		Answer:   answerText,
		Sources:  passages,
	}
	if err := s.storage.CreateChat(r.Context(), record); err != nil {
		s.logger.Warn("store chat history failed", zap.Error(err))
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"answer":  answerText,
		"sources": sources,
		"chat_id": chatID,
	})
}

func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		userID = "default_user"
	}
	chats, err := s.storage.ListChats(r.Context(), userID, s.config.Chat.HistoryLimit)
	if err != nil {
		s.logger.Error("list chats failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if chats == nil {
		chats = []*models.ChatRecord{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"history": chats})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	docCount, err := s.storage.CountDocuments(ctx)
	if err != nil {
		s.logger.Error("status: count documents failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	chatCount, err := s.storage.CountChats(ctx)
	if err != nil {
		s.logger.Error("status: count chats failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := map[string]interface{}{
		"documents":         docCount,
		"chats":             chatCount,
		"vector_index_size": s.service.IndexSize(),
	}
	configInfo := map[string]interface{}{
		"embedding_dimensions": s.service.IndexDimensions(),
		"chunk_size":           s.config.Retrieval.ChunkSize,
		"chunk_overlap":        s.config.Retrieval.ChunkOverlap,
		"top_k":                s.config.Retrieval.TopK,
		"database_path":        s.config.Storage.DatabasePath,
		"index_data_path":      s.config.Storage.IndexDataPath,
		"index_vector_path":    s.config.Storage.IndexVectorPath,
	}
	diskBytes, err := storage.DiskUsageBytes(
		s.config.Storage.DatabasePath,
		s.config.Storage.IndexDataPath,
		s.config.Storage.IndexVectorPath,
	)
	if err == nil {
		resp["disk_usage_bytes"] = diskBytes
	}
	resp["config"] = configInfo
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
