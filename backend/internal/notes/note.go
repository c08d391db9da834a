// Package notes holds the canonical note and category model, the one-time
// normalization of legacy records, and the repository contracts the rest of
// the service is written against.
package notes

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"knowledge-weaver/backend/internal/constants"
	apperrors "knowledge-weaver/backend/pkg/errors"
)

var validate = validator.New()

// SourceType describes where a note was captured
type SourceType string

const (
	SourceWebpage SourceType = "webpage"
	SourceYouTube SourceType = "youtube_video"
)

// Metadata is the page context a note was taken on
type Metadata struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Domain  string `json:"domain"`
	Summary string `json:"summary,omitempty"`
}

// Relationships carries source-specific context
type Relationships struct {
	Type           SourceType `json:"type"`
	VideoID        string     `json:"videoId,omitempty"`
	VideoTime      *float64   `json:"videoTime,omitempty"`
	ChannelName    string     `json:"channelName,omitempty"`
	TimestampedURL string     `json:"timestampedUrl,omitempty"`
}

// Note is a timestamped, categorized annotation tied to a source page or video.
// Category and URL are legacy mirrors of Categories[0] and Metadata.URL.
type Note struct {
	ID            string         `json:"id" validate:"required"`
	Content       string         `json:"content" validate:"required"`
	Timestamp     int64          `json:"timestamp" validate:"gt=0"`
	Categories    []string       `json:"categories" validate:"min=1,dive,required"`
	Category      string         `json:"category"`
	Metadata      Metadata       `json:"metadata"`
	Relationships *Relationships `json:"relationships,omitempty"`
	URL           string         `json:"url,omitempty"`
}

// Category is a named label with a definition
type Category struct {
	Category   string `json:"category" validate:"required"`
	Definition string `json:"definition"`
}

// SetCategories replaces the note's categories, keeping the legacy mirror in sync.
// Names are trimmed, de-duplicated in order, and default to "General".
func (n *Note) SetCategories(categories []string) {
	n.Categories = CleanCategories(categories)
	n.Category = n.Categories[0]
}

// IsYouTube reports whether the note was taken on a YouTube video
func (n Note) IsYouTube() bool {
	return n.Relationships != nil && n.Relationships.Type == SourceYouTube && n.Relationships.VideoID != ""
}

// HasCategory reports whether the note is tagged with name (exact match)
func (n Note) HasCategory(name string) bool {
	for _, c := range n.Categories {
		if c == name {
			return true
		}
	}
	return false
}

// Validate checks the persisted-note invariants.
func (n Note) Validate() error {
	if strings.TrimSpace(n.Content) == "" {
		return apperrors.NewInvalidNote("content is required", nil)
	}
	if err := validate.Struct(n); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			fe := verrs[0]
			return apperrors.NewInvalidNote(fmt.Sprintf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag()), err)
		}
		return apperrors.NewInvalidNote("validation failed", err)
	}
	if n.Category != n.Categories[0] {
		return apperrors.NewInvalidNote("category does not mirror categories[0]", nil)
	}
	if n.Metadata.URL != "" {
		if d := DomainOf(n.Metadata.URL); d != "" && d != n.Metadata.Domain {
			return apperrors.NewInvalidNote(fmt.Sprintf("domain %q does not match url host %q", n.Metadata.Domain, d), nil)
		}
	}
	return nil
}

// CleanCategories trims and de-duplicates names, preserving order.
// An empty result becomes the default category.
func CleanCategories(categories []string) []string {
	seen := make(map[string]struct{}, len(categories))
	out := make([]string, 0, len(categories))
	for _, c := range categories {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	if len(out) == 0 {
		out = append(out, constants.DefaultCategory)
	}
	return out
}

// NameOf returns the first n runes of content for display, with an ellipsis
// when truncated.
func NameOf(content string, n int) string {
	r := []rune(content)
	if len(r) <= n {
		return content
	}
	return string(r[:n]) + "..."
}

// WordCount counts whitespace-separated words
func WordCount(content string) int {
	return len(strings.Fields(content))
}
