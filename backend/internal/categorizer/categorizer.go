// Package categorizer assigns categories to note content. Every
// implementation is total: failures collapse to the default category.
package categorizer

import (
	"context"
	"encoding/json"
	"strings"

	"knowledge-weaver/backend/internal/constants"
	"knowledge-weaver/backend/internal/notes"
)

// Categorizer returns one or more category names for a note. It never fails;
// when nothing better is known it returns ["General"].
type Categorizer interface {
	Categorize(ctx context.Context, content string, md notes.Metadata) []string
}

// Static always answers with the same categories
type Static []string

func (s Static) Categorize(ctx context.Context, content string, md notes.Metadata) []string {
	return notes.CleanCategories(s)
}

// Fallback is the answer used whenever categorization fails
func Fallback() []string {
	return []string{constants.DefaultCategory}
}

// Response is the categorize reply. Two shapes exist in the wild:
// {"categories": [...]} and the older {"category": "...", "definition": "..."}.
type Response struct {
	Categories    []string         `json:"categories,omitempty"`
	Category      string           `json:"category,omitempty"`
	Definition    string           `json:"definition,omitempty"`
	NewCategories []notes.Category `json:"new_categories,omitempty"`
}

// Names normalizes either response shape to a category list. The second
// return is false when the response names no category at all.
func (r Response) Names() ([]string, bool) {
	names := r.Categories
	if len(names) == 0 && strings.TrimSpace(r.Category) != "" {
		names = []string{r.Category}
	}
	var out []string
	for _, n := range names {
		if strings.TrimSpace(n) != "" {
			out = append(out, n)
		}
	}
	if len(out) == 0 {
		return Fallback(), false
	}
	return notes.CleanCategories(out), true
}

// Introduced returns the categories the response defines: new_categories,
// plus the legacy single category when it carries a definition.
func (r Response) Introduced() []notes.Category {
	out := append([]notes.Category(nil), r.NewCategories...)
	if r.Category != "" && r.Definition != "" {
		out = append(out, notes.Category{Category: r.Category, Definition: r.Definition})
	}
	return out
}

// ParseResponse decodes a categorize reply body
func ParseResponse(body []byte) (Response, error) {
	var r Response
	if err := json.Unmarshal(body, &r); err != nil {
		return Response{}, err
	}
	return r, nil
}
