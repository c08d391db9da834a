package constants

import "time"

// Category constants
const (
	// DefaultCategory is assigned whenever categorization is unavailable
	DefaultCategory = "General"
)

// Edge strengths
const (
	StrengthCategory     = 0.8
	StrengthDomain       = 0.7
	StrengthURL          = 1.0
	StrengthSameDomain   = 0.7
	StrengthSameCategory = 0.8
	StrengthTemporal     = 0.4
)

// Graph builder defaults
const (
	// DefaultTemporalWindow is the maximum gap between consecutive notes
	// that still produces a temporal edge
	DefaultTemporalWindow = time.Hour

	// NoteNameLength is how much note content is shown as a node name
	NoteNameLength = 50
)

// Export constants
const (
	ExportVersion = "2.0.0"
	ExportSource  = "Knowledge Weaver"

	// ExportFilePrefix starts every exported file name
	ExportFilePrefix = "knowledge-weaver"
)

// Note id prefix
const NoteIDPrefix = "note-"
