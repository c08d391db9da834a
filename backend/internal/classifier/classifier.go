// Package classifier is the server side of categorization: it prompts an
// LLM with the note, its page context and the known categories, and
// registers any categories the model introduces.
package classifier

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"knowledge-weaver/backend/internal/categories"
	"knowledge-weaver/backend/internal/categorizer"
	"knowledge-weaver/backend/internal/metrics"
	"knowledge-weaver/backend/internal/notes"
	"knowledge-weaver/backend/pkg/logger"
)

// Fallback definitions reported alongside ["General"]
const (
	DefinitionAPIFailed   = "API call failed"
	DefinitionParseFailed = "JSON parsing failed"
)

// Completer returns the raw JSON content of a chat completion
type Completer interface {
	CompleteJSON(ctx context.Context, systemPrompt, userMsg string) (string, error)
}

// Request is the categorize request body. URL is the legacy root-level
// field; Metadata wins when present.
type Request struct {
	Content  string          `json:"content" binding:"required"`
	URL      string          `json:"url"`
	Metadata *notes.Metadata `json:"metadata"`
}

func (r Request) context() (url, title, domain string) {
	url = r.URL
	if r.Metadata != nil {
		if r.Metadata.URL != "" {
			url = r.Metadata.URL
		}
		title = r.Metadata.Title
		domain = r.Metadata.Domain
	}
	return url, title, domain
}

// Service categorizes notes with an LLM
type Service struct {
	llm      Completer
	registry *categories.Registry
	logger   *zap.Logger
}

// NewService creates a classifier backed by llm, registering new
// categories in registry
func NewService(llm Completer, registry *categories.Registry) *Service {
	return &Service{
		llm:      llm,
		registry: registry,
		logger:   logger.Named("classifier"),
	}
}

// Classify returns the model's categories for req. It never fails: any
// error yields {"categories":["General"]} with a definition saying why.
func (s *Service) Classify(ctx context.Context, req Request) categorizer.Response {
	existing, err := s.registry.List(ctx)
	if err != nil {
		s.logger.Warn("Failed to read categories, classifying without them", zap.Error(err))
		existing = nil
	}

	raw, err := s.llm.CompleteJSON(ctx, systemPrompt, buildUserPrompt(req, existing))
	if err != nil {
		s.logger.Error("Categorization call failed", zap.Error(err))
		return s.fallback(DefinitionAPIFailed)
	}

	resp, err := categorizer.ParseResponse([]byte(raw))
	if err != nil {
		s.logger.Error("Categorization reply is not JSON", zap.Error(err), zap.String("raw", raw))
		return s.fallback(DefinitionParseFailed)
	}

	names, ok := resp.Names()
	if !ok {
		s.logger.Error("Categorization reply has no categories", zap.String("raw", raw))
		return s.fallback(DefinitionAPIFailed)
	}

	added, err := s.registry.EnsureAll(ctx, resp.Introduced())
	if err != nil {
		s.logger.Warn("Failed to register new categories", zap.Error(err))
	}

	metrics.CategorizationTotal.WithLabelValues("llm", metrics.OutcomeOK).Inc()
	s.logger.Debug("Note categorized",
		zap.Strings("categories", names),
		zap.Int("new_categories", len(added)),
	)

	return categorizer.Response{
		Categories:    names,
		NewCategories: resp.NewCategories,
	}
}

// Categorize implements categorizer.Categorizer
func (s *Service) Categorize(ctx context.Context, content string, md notes.Metadata) []string {
	resp := s.Classify(ctx, Request{Content: content, URL: md.URL, Metadata: &md})
	names, _ := resp.Names()
	return names
}

func (s *Service) fallback(definition string) categorizer.Response {
	metrics.CategorizationTotal.WithLabelValues("llm", metrics.OutcomeFallback).Inc()
	return categorizer.Response{
		Categories: categorizer.Fallback(),
		Definition: definition,
	}
}

// ErrEmptyContent is returned by request validation
var ErrEmptyContent = errors.New("content is required")

// Validate checks the request has content to categorize
func (r Request) Validate() error {
	if strings.TrimSpace(r.Content) == "" {
		return ErrEmptyContent
	}
	return nil
}
