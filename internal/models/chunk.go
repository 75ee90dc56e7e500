package models

// Chunk is a contiguous span of a document's text, the unit of embedding and
// retrieval. Index is the chunk's position within its source document.
// Chunks are immutable once created.
type Chunk struct {
	Text  string `json:"text"`
	Index int    `json:"index"`
}
