// Package export serializes notes and categories to the JSON envelope,
// Markdown digest and CSV, and parses exports back for import.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"knowledge-weaver/backend/internal/constants"
	"knowledge-weaver/backend/internal/knowledge"
	"knowledge-weaver/backend/internal/notes"
	apperrors "knowledge-weaver/backend/pkg/errors"
)

// Format is an export file format
type Format string

const (
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatCSV      Format = "csv"
)

// ParseFormat accepts a format name; empty means JSON
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "csv":
		return FormatCSV, nil
	}
	return "", apperrors.NewUnsupportedFormat(s)
}

// Filename is the download name for an export taken at now
func Filename(f Format, now time.Time) string {
	date := now.UTC().Format("2006-01-02")
	switch f {
	case FormatMarkdown:
		return fmt.Sprintf("%s-notes-%s.md", constants.ExportFilePrefix, date)
	case FormatCSV:
		return fmt.Sprintf("%s-notes-%s.csv", constants.ExportFilePrefix, date)
	default:
		return fmt.Sprintf("%s-complete-%s.json", constants.ExportFilePrefix, date)
	}
}

// ContentType is the MIME type for f
func ContentType(f Format) string {
	switch f {
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	case FormatCSV:
		return "text/csv; charset=utf-8"
	default:
		return "application/json; charset=utf-8"
	}
}

// Write renders ns and cats to w in format f. An empty note set is
// rejected with ErrNoNotesToExport.
func Write(w io.Writer, f Format, ns []notes.Note, cats []notes.Category, now time.Time) error {
	if len(ns) == 0 {
		return apperrors.ErrNoNotesToExport
	}
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(NewEnvelope(ns, cats, now))
	case FormatMarkdown:
		return WriteMarkdown(w, ns, cats, now)
	case FormatCSV:
		return WriteCSV(w, ns)
	}
	return apperrors.NewUnsupportedFormat(string(f))
}

// isoTime renders epoch milliseconds the way browsers print dates
func isoTime(ms int64) string {
	return time.UnixMilli(ms).UTC().Format("2006-01-02T15:04:05.000Z")
}

// WriteMarkdown renders the human-readable digest
func WriteMarkdown(w io.Writer, ns []notes.Note, cats []notes.Category, now time.Time) error {
	var b strings.Builder

	b.WriteString("# Knowledge Weaver Export\n\n")
	fmt.Fprintf(&b, "**Export Date:** %s\n", isoTime(now.UnixMilli()))
	fmt.Fprintf(&b, "**Total Notes:** %d\n", len(ns))
	fmt.Fprintf(&b, "**Total Categories:** %d\n\n", len(cats))

	if len(cats) > 0 {
		b.WriteString("## Categories\n\n")
		for _, c := range cats {
			fmt.Fprintf(&b, "### %s\n%s\n\n", c.Category, c.Definition)
		}
		b.WriteString("---\n\n")
	}

	b.WriteString("## Notes\n\n")
	for i, n := range ns {
		fmt.Fprintf(&b, "### Note %d\n\n", i+1)

		created := "Unknown"
		if n.Timestamp > 0 {
			created = isoTime(n.Timestamp)
		}
		fmt.Fprintf(&b, "**Created:** %s\n", created)

		categories := "None"
		if len(n.Categories) > 0 {
			categories = strings.Join(n.Categories, ", ")
		}
		fmt.Fprintf(&b, "**Categories:** %s\n", categories)

		if n.Metadata.Title != "" {
			fmt.Fprintf(&b, "**Page Title:** %s\n", n.Metadata.Title)
		}
		if u := sourceURL(n); u != "" {
			fmt.Fprintf(&b, "**Source URL:** %s\n", u)
		}
		if n.Metadata.Domain != "" {
			fmt.Fprintf(&b, "**Domain:** %s\n", n.Metadata.Domain)
		}
		if n.Metadata.Summary != "" {
			fmt.Fprintf(&b, "**Page Summary:** %s\n", n.Metadata.Summary)
		}

		fmt.Fprintf(&b, "\n**Content:**\n%s\n\n---\n\n", n.Content)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

var csvHeader = []string{
	"ID", "Content", "Timestamp", "Created Date", "Categories",
	"Page Title", "URL", "Domain", "Summary", "Word Count",
}

// WriteCSV renders one row per note
func WriteCSV(w io.Writer, ns []notes.Note) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, n := range ns {
		created := ""
		if n.Timestamp > 0 {
			created = isoTime(n.Timestamp)
		}
		row := []string{
			n.ID,
			n.Content,
			strconv.FormatInt(n.Timestamp, 10),
			created,
			strings.Join(n.Categories, "; "),
			n.Metadata.Title,
			sourceURL(n),
			domainOf(n),
			n.Metadata.Summary,
			strconv.Itoa(notes.WordCount(n.Content)),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func sourceURL(n notes.Note) string {
	if n.Metadata.URL != "" {
		return n.Metadata.URL
	}
	return n.URL
}

func domainOf(n notes.Note) string {
	if n.Metadata.Domain != "" {
		return n.Metadata.Domain
	}
	return notes.DomainOf(sourceURL(n))
}

// Envelope is the complete JSON export, sufficient to restore the store
type Envelope struct {
	Metadata       EnvelopeMetadata `json:"metadata"`
	Categories     []notes.Category `json:"categories"`
	Notes          []Note           `json:"notes"`
	KnowledgeGraph Summary          `json:"knowledgeGraph"`
}

// EnvelopeMetadata describes the export itself
type EnvelopeMetadata struct {
	ExportDate      string `json:"exportDate"`
	Version         string `json:"version"`
	TotalNotes      int    `json:"totalNotes"`
	TotalCategories int    `json:"totalCategories"`
	Source          string `json:"source"`
}

// Note is an exported note with its derived capture context
type Note struct {
	ID            string               `json:"id"`
	Content       string               `json:"content"`
	Timestamp     int64                `json:"timestamp"`
	Categories    []string             `json:"categories"`
	Metadata      notes.Metadata       `json:"metadata"`
	Relationships *notes.Relationships `json:"relationships,omitempty"`
	Context       Context              `json:"context"`
}

// Context is derived from the note for downstream graph tooling
type Context struct {
	PageTitle     string `json:"pageTitle"`
	SourceURL     string `json:"sourceUrl"`
	WebsiteDomain string `json:"websiteDomain"`
	CaptureDate   string `json:"captureDate,omitempty"`
	ContentLength int    `json:"contentLength"`
	WordCount     int    `json:"wordCount"`
}

// Summary is the knowledge graph preparation block
type Summary struct {
	Domains       []string                 `json:"domains"`
	URLs          []string                 `json:"urls"`
	CategoryUsage []CategoryUsage          `json:"categoryUsage"`
	Relationships []knowledge.Relationship `json:"relationships"`
}

// CategoryUsage counts notes per registered category
type CategoryUsage struct {
	Category   string `json:"category"`
	Definition string `json:"definition"`
	NoteCount  int    `json:"noteCount"`
}

// NewEnvelope assembles the JSON export
func NewEnvelope(ns []notes.Note, cats []notes.Category, now time.Time) Envelope {
	if cats == nil {
		cats = []notes.Category{}
	}
	env := Envelope{
		Metadata: EnvelopeMetadata{
			ExportDate:      isoTime(now.UnixMilli()),
			Version:         constants.ExportVersion,
			TotalNotes:      len(ns),
			TotalCategories: len(cats),
			Source:          constants.ExportSource,
		},
		Categories: cats,
		Notes:      make([]Note, 0, len(ns)),
	}

	for _, n := range ns {
		md := n.Metadata
		md.URL = sourceURL(n)
		md.Domain = domainOf(n)

		ctx := Context{
			PageTitle:     md.Title,
			SourceURL:     md.URL,
			WebsiteDomain: md.Domain,
			ContentLength: len([]rune(n.Content)),
			WordCount:     notes.WordCount(n.Content),
		}
		if n.Timestamp > 0 {
			ctx.CaptureDate = isoTime(n.Timestamp)
		}

		cs := n.Categories
		if cs == nil {
			cs = []string{}
		}
		env.Notes = append(env.Notes, Note{
			ID:            n.ID,
			Content:       n.Content,
			Timestamp:     n.Timestamp,
			Categories:    cs,
			Metadata:      md,
			Relationships: n.Relationships,
			Context:       ctx,
		})
	}

	env.KnowledgeGraph = Summary{
		Domains:       unique(ns, domainOf),
		URLs:          unique(ns, sourceURL),
		CategoryUsage: usage(ns, cats),
		Relationships: knowledge.Relationships(ns),
	}
	if env.KnowledgeGraph.Relationships == nil {
		env.KnowledgeGraph.Relationships = []knowledge.Relationship{}
	}
	return env
}

func unique(ns []notes.Note, key func(notes.Note) string) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, n := range ns {
		k := key(n)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

func usage(ns []notes.Note, cats []notes.Category) []CategoryUsage {
	out := make([]CategoryUsage, 0, len(cats))
	for _, c := range cats {
		count := 0
		for _, n := range ns {
			if n.HasCategory(c.Category) {
				count++
			}
		}
		out = append(out, CategoryUsage{Category: c.Category, Definition: c.Definition, NoteCount: count})
	}
	return out
}
