package model

// Chunk is a contiguous span of text cut from a source document. The
// embedding stays null until the backfill job processes the chunk;
// unprocessed chunks never take part in retrieval.
type Chunk struct {
	ID          string    `json:"id"`
	DocumentID  string    `json:"document_id"`
	TenantID    string    `json:"tenant_id"`
	ChunkNumber int       `json:"chunk_number"`
	Text        string    `json:"text"`
	Embedding   []float32 `json:"-"`
	Processed   bool      `json:"processed"`
	Ctime       int64     `json:"ctime"`
}

// ChunkCandidate is a retrieval-ready chunk joined with its document's
// filename for provenance.
type ChunkCandidate struct {
	ChunkID     string
	DocumentID  string
	TenantID    string
	ChunkNumber int
	Text        string
	Filename    string
	Embedding   []float32
}
