package model

// RankedResult is one entry of a retrieval response, ordered by
// descending similarity. SimilarityScore is always within [0, 1].
type RankedResult struct {
	Rank             int     `json:"rank"`
	ChunkID          string  `json:"chunk_id"`
	SourceDocumentID string  `json:"source_document_id"`
	SourceLabel      string  `json:"source_label"`
	Text             string  `json:"text"`
	SimilarityScore  float64 `json:"similarity_score"`
}

// Classification is the nearest-anchor result for a clause.
type Classification struct {
	Label      string  `json:"label"`
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

// Citation records the provenance of one context chunk used during
// draft generation.
type Citation struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	Filename   string  `json:"filename"`
	Similarity float64 `json:"similarity"`
}
