package model

// Anchor is a labeled reference clause used for nearest-neighbor
// classification. Anchors are seeded by configuration and shared across
// tenants; they are read-only at runtime.
type Anchor struct {
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	Category  string    `json:"category"`
	Text      string    `json:"text"`
	Embedding []float32 `json:"-"`
	Active    bool      `json:"active"`
	Ctime     int64     `json:"ctime"`
}
