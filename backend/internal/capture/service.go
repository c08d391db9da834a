// Package capture implements the note lifecycle: capture, edit,
// recategorize, delete and import.
package capture

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"knowledge-weaver/backend/internal/categories"
	"knowledge-weaver/backend/internal/categorizer"
	"knowledge-weaver/backend/internal/metrics"
	"knowledge-weaver/backend/internal/notes"
	"knowledge-weaver/backend/internal/pagemeta"
	apperrors "knowledge-weaver/backend/pkg/errors"
	"knowledge-weaver/backend/pkg/logger"
)

var validate = validator.New()

// PageFetcher looks up metadata for a URL
type PageFetcher interface {
	Fetch(ctx context.Context, rawURL string) (pagemeta.Page, error)
}

// Request describes a note to capture. URL is the legacy root-level field;
// Metadata.URL wins when both are set. Categories, when given, skip the
// categorizer.
type Request struct {
	Content     string          `json:"content" validate:"required"`
	URL         string          `json:"url" validate:"omitempty,url"`
	Metadata    *notes.Metadata `json:"metadata"`
	Categories  []string        `json:"categories"`
	VideoTime   *float64        `json:"videoTime" validate:"omitempty,gte=0"`
	ChannelName string          `json:"channelName"`
}

// EditRequest changes a note's content and/or categories. Nil fields are
// left alone.
type EditRequest struct {
	Content    *string  `json:"content"`
	Categories []string `json:"categories"`
}

// Service runs note lifecycle operations against a repository
type Service struct {
	repo        notes.Repository
	registry    *categories.Registry
	categorizer categorizer.Categorizer
	fetcher     PageFetcher
	concurrency int
	logger      *zap.Logger
}

// Option configures a Service
type Option func(*Service)

// WithPageFetcher fills missing titles and summaries from the page itself
func WithPageFetcher(f PageFetcher) Option {
	return func(s *Service) { s.fetcher = f }
}

// WithConcurrency bounds the fan-out of bulk operations
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// NewService creates a capture service
func NewService(repo notes.Repository, registry *categories.Registry, c categorizer.Categorizer, opts ...Option) *Service {
	s := &Service{
		repo:        repo,
		registry:    registry,
		categorizer: c,
		concurrency: 4,
		logger:      logger.Named("capture"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Capture creates and stores a new note. Categorization never fails the
// capture; an unreachable categorizer yields ["General"].
func (s *Service) Capture(ctx context.Context, req Request) (notes.Note, error) {
	if err := validate.Struct(req); err != nil {
		return notes.Note{}, apperrors.NewInvalidNote("invalid capture request", err)
	}
	if strings.TrimSpace(req.Content) == "" {
		return notes.Note{}, apperrors.NewInvalidNote("content is empty", nil)
	}

	md, channel := s.resolveMetadata(ctx, req)
	req.ChannelName = channel

	id, ts, err := notes.NewID()
	if err != nil {
		return notes.Note{}, err
	}

	n := notes.Note{
		ID:            id,
		Content:       strings.TrimSpace(req.Content),
		Timestamp:     ts,
		Metadata:      md,
		URL:           md.URL,
		Relationships: relationshipsFor(md.URL, req),
	}

	if len(req.Categories) > 0 {
		metrics.CategorizationTotal.WithLabelValues("capture", metrics.OutcomeSkipped).Inc()
		n.SetCategories(req.Categories)
	} else {
		n.SetCategories(s.categorizer.Categorize(ctx, n.Content, md))
	}

	if err := s.repo.Upsert(ctx, n); err != nil {
		return notes.Note{}, err
	}

	s.logger.Info("Note captured",
		zap.String("id", n.ID),
		zap.Strings("categories", n.Categories),
		zap.String("domain", n.Metadata.Domain),
	)
	return n, nil
}

// resolveMetadata merges request metadata with what the page reports and
// returns it with the channel name
func (s *Service) resolveMetadata(ctx context.Context, req Request) (notes.Metadata, string) {
	var md notes.Metadata
	if req.Metadata != nil {
		md = *req.Metadata
	}
	if md.URL == "" {
		md.URL = req.URL
	}
	md.URL = strings.TrimSpace(md.URL)
	md.Domain = notes.DomainOf(md.URL)
	channel := req.ChannelName

	if s.fetcher != nil && md.URL != "" && (md.Title == "" || md.Summary == "") {
		page, err := s.fetcher.Fetch(ctx, md.URL)
		if err != nil {
			s.logger.Debug("Page metadata unavailable", zap.String("url", md.URL), zap.Error(err))
		} else {
			if md.Title == "" {
				md.Title = page.Title
			}
			if md.Summary == "" {
				md.Summary = page.Summary
			}
			if channel == "" {
				channel = page.ChannelName
			}
		}
	}
	return md, channel
}

func relationshipsFor(rawURL string, req Request) *notes.Relationships {
	vid := notes.YouTubeVideoID(rawURL)
	if vid == "" {
		return &notes.Relationships{Type: notes.SourceWebpage}
	}
	rel := &notes.Relationships{
		Type:        notes.SourceYouTube,
		VideoID:     vid,
		ChannelName: req.ChannelName,
	}
	if req.VideoTime != nil {
		vt := *req.VideoTime
		rel.VideoTime = &vt
		rel.TimestampedURL = TimestampedURL(vid, vt)
	}
	return rel
}

// TimestampedURL links to a YouTube video at the given second
func TimestampedURL(videoID string, seconds float64) string {
	return fmt.Sprintf("https://www.youtube.com/watch?v=%s&t=%ds", videoID, int64(math.Floor(seconds)))
}

// Edit updates content and/or categories. Id, timestamp and url never change.
func (s *Service) Edit(ctx context.Context, id string, req EditRequest) (notes.Note, error) {
	n, err := s.repo.Get(ctx, id)
	if err != nil {
		return notes.Note{}, err
	}

	if req.Content != nil {
		content := strings.TrimSpace(*req.Content)
		if content == "" {
			return notes.Note{}, apperrors.NewInvalidNote("content is empty", nil)
		}
		n.Content = content
	}
	if req.Categories != nil {
		n.SetCategories(req.Categories)
	}

	if err := s.repo.Upsert(ctx, n); err != nil {
		return notes.Note{}, err
	}
	s.logger.Info("Note edited", zap.String("id", id))
	return n, nil
}

// Recategorize replaces a note's categories with a fresh categorization
func (s *Service) Recategorize(ctx context.Context, id string) (notes.Note, error) {
	n, err := s.repo.Get(ctx, id)
	if err != nil {
		return notes.Note{}, err
	}
	return s.recategorize(ctx, n)
}

func (s *Service) recategorize(ctx context.Context, n notes.Note) (notes.Note, error) {
	n.SetCategories(s.categorizer.Categorize(ctx, n.Content, n.Metadata))
	if err := s.repo.Upsert(ctx, n); err != nil {
		return notes.Note{}, err
	}
	s.logger.Debug("Note recategorized", zap.String("id", n.ID), zap.Strings("categories", n.Categories))
	return n, nil
}

// RecategorizeAll recategorizes every note with bounded concurrency and
// returns how many were updated.
func (s *Service) RecategorizeAll(ctx context.Context) (int, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return 0, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, n := range all {
		n := n
		g.Go(func() error {
			if gctx.Err() != nil {
				return apperrors.NewContextCancelled("recategorize", gctx.Err())
			}
			_, err := s.recategorize(gctx, n)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	s.logger.Info("Recategorized all notes", zap.Int("count", len(all)))
	return len(all), nil
}

// Delete removes a note
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Remove(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Note deleted", zap.String("id", id))
	return nil
}

// ImportFailure records a note that could not be stored
type ImportFailure struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// ImportResult summarizes an import
type ImportResult struct {
	Imported        int             `json:"imported"`
	Skipped         int             `json:"skipped"`
	CategoriesAdded int             `json:"categoriesAdded"`
	Failed          []ImportFailure `json:"failed,omitempty"`
}

// Import stores already-normalized notes and merges categories into the
// registry. A failing note is reported and does not stop the rest.
func (s *Service) Import(ctx context.Context, ns []notes.Note, cats []notes.Category) (ImportResult, error) {
	var result ImportResult

	added, err := s.registry.EnsureAll(ctx, cats)
	if err != nil {
		return result, err
	}
	result.CategoriesAdded = len(added)

	errs := make([]error, len(ns))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, n := range ns {
		i, n := i, n
		g.Go(func() error {
			if gctx.Err() != nil {
				return apperrors.NewContextCancelled("import", gctx.Err())
			}
			errs[i] = s.repo.Upsert(gctx, n)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return result, err
	}

	for i, err := range errs {
		if err != nil {
			result.Failed = append(result.Failed, ImportFailure{ID: ns[i].ID, Error: err.Error()})
			continue
		}
		result.Imported++
	}

	s.logger.Info("Import finished",
		zap.Int("imported", result.Imported),
		zap.Int("failed", len(result.Failed)),
		zap.Int("categories_added", result.CategoriesAdded),
	)
	return result, nil
}

// ImportRecords normalizes legacy records before importing them. Records
// that cannot become notes are counted as skipped.
func (s *Service) ImportRecords(ctx context.Context, records []notes.Record, cats []notes.Category) (ImportResult, error) {
	ns, skipped := notes.NormalizeAll(records)
	result, err := s.Import(ctx, ns, cats)
	result.Skipped += skipped
	return result, err
}
