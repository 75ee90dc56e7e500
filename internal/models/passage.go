package models

// Passage is a ranked retrieval hit returned to callers: a chunk's text with
// the metadata of the document that produced it and its cosine similarity
// against the query. Score is in [-1, 1] in theory; typically [0, 1].
type Passage struct {
	Text          string  `json:"text"`
	DocumentID    string  `json:"document_id"`
	DocumentTitle string  `json:"document_title"`
	UploadDate    string  `json:"upload_date,omitempty"`
	ChunkIndex    int     `json:"chunk_index"`
	Score         float64 `json:"score"`
}
