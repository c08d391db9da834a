package graph

// ============================================================================
// Projection Types
// ============================================================================

// SyncResult reports what a projection run wrote
type SyncResult struct {
	Nodes   int   `json:"nodes"`
	Edges   int   `json:"edges"`
	Removed int64 `json:"removed"`
}

// RelatedEntity is a note reached from another note in the projected graph
type RelatedEntity struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Timestamp int64    `json:"timestamp"`
	Score     float64  `json:"score"`
	Via       []string `json:"via"`
}
