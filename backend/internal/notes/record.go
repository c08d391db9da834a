package notes

import (
	"fmt"
	"strings"

	"knowledge-weaver/backend/internal/constants"
)

// Record is the permissive stored/imported shape of a note. Older records
// carry root-level url and category and may lack metadata or categories.
type Record struct {
	ID            string         `json:"id"`
	Content       string         `json:"content"`
	Timestamp     int64          `json:"timestamp"`
	Categories    []string       `json:"categories,omitempty"`
	Category      string         `json:"category,omitempty"`
	Metadata      *Metadata      `json:"metadata,omitempty"`
	Relationships *Relationships `json:"relationships,omitempty"`
	URL           string         `json:"url,omitempty"`
}

// RecordOf converts a canonical note back to its stored shape
func RecordOf(n Note) Record {
	md := n.Metadata
	var rel *Relationships
	if n.Relationships != nil {
		r := *n.Relationships
		rel = &r
	}
	return Record{
		ID:            n.ID,
		Content:       n.Content,
		Timestamp:     n.Timestamp,
		Categories:    append([]string(nil), n.Categories...),
		Category:      n.Category,
		Metadata:      &md,
		Relationships: rel,
		URL:           n.URL,
	}
}

// Normalize migrates a record into the canonical Note. It reports false when
// the record cannot become a note: empty content, or no timestamp that can be
// recovered from the record or its id.
func (r Record) Normalize() (Note, bool) {
	if strings.TrimSpace(r.Content) == "" {
		return Note{}, false
	}

	ts := r.Timestamp
	if ts <= 0 {
		ts = TimestampFromID(r.ID)
	}
	if ts <= 0 {
		return Note{}, false
	}

	id := strings.TrimSpace(r.ID)
	if id == "" {
		id = fmt.Sprintf("%s%d", constants.NoteIDPrefix, ts)
	}

	n := Note{
		ID:        id,
		Content:   r.Content,
		Timestamp: ts,
	}

	cats := r.Categories
	if !anyNamed(cats) {
		cats = []string{r.Category}
	}
	n.SetCategories(cats)

	if r.Metadata != nil {
		n.Metadata = *r.Metadata
	}
	if n.Metadata.URL == "" {
		n.Metadata.URL = strings.TrimSpace(r.URL)
	}
	if d := DomainOf(n.Metadata.URL); d != "" {
		n.Metadata.Domain = d
	} else {
		n.Metadata.Domain = strings.ToLower(strings.TrimSpace(n.Metadata.Domain))
	}
	n.URL = n.Metadata.URL

	if r.Relationships != nil {
		rel := *r.Relationships
		if rel.Type == "" {
			rel.Type = SourceWebpage
		}
		if rel.Type == SourceYouTube && rel.VideoID == "" {
			rel.VideoID = YouTubeVideoID(n.Metadata.URL)
		}
		n.Relationships = &rel
	} else if vid := YouTubeVideoID(n.Metadata.URL); vid != "" {
		n.Relationships = &Relationships{Type: SourceYouTube, VideoID: vid}
	}

	return n, true
}

// NormalizeAll normalizes records, dropping those that cannot become notes.
// The second return value is the number of dropped records.
func NormalizeAll(records []Record) ([]Note, int) {
	out := make([]Note, 0, len(records))
	skipped := 0
	for _, r := range records {
		n, ok := r.Normalize()
		if !ok {
			skipped++
			continue
		}
		out = append(out, n)
	}
	return out, skipped
}

func anyNamed(names []string) bool {
	for _, n := range names {
		if strings.TrimSpace(n) != "" {
			return true
		}
	}
	return false
}
