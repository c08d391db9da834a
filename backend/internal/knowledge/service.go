package knowledge

import (
	"context"
	"time"

	"go.uber.org/zap"

	"knowledge-weaver/backend/internal/metrics"
	"knowledge-weaver/backend/internal/notes"
	"knowledge-weaver/backend/pkg/logger"
)

// Service builds graphs from the current contents of a store
type Service struct {
	notes      notes.Repository
	categories notes.CategoryStore
	opts       Options
	logger     *zap.Logger
}

// NewService creates a graph service with default build options
func NewService(repo notes.Repository, cats notes.CategoryStore, opts Options) *Service {
	return &Service{
		notes:      repo,
		categories: cats,
		opts:       opts.withDefaults(),
		logger:     logger.Named("knowledge"),
	}
}

// Options returns the service's default build options
func (s *Service) Options() Options {
	return s.opts
}

// Snapshot reads every note and category
func (s *Service) Snapshot(ctx context.Context) ([]notes.Note, []notes.Category, error) {
	ns, err := s.notes.List(ctx)
	if err != nil {
		return nil, nil, err
	}
	cats, err := s.categories.ListCategories(ctx)
	if err != nil {
		return nil, nil, err
	}
	metrics.NotesTotal.Set(float64(len(ns)))
	return ns, cats, nil
}

// Build snapshots the store and builds its graph with opts
func (s *Service) Build(ctx context.Context, opts Options) (*Graph, error) {
	ns, cats, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	g := Build(ns, cats, opts)
	elapsed := time.Since(start)

	metrics.GraphBuildDuration.Observe(elapsed.Seconds())
	metrics.GraphElements.WithLabelValues("nodes").Set(float64(len(g.Nodes)))
	metrics.GraphElements.WithLabelValues("edges").Set(float64(len(g.Edges)))

	s.logger.Debug("Graph built",
		zap.Int("notes", len(ns)),
		zap.Int("nodes", len(g.Nodes)),
		zap.Int("edges", len(g.Edges)),
		zap.String("policy", string(opts.withDefaults().Policy)),
		zap.Duration("duration", elapsed),
	)
	return g, nil
}

// BuildDefault builds with the service's configured options
func (s *Service) BuildDefault(ctx context.Context) (*Graph, error) {
	return s.Build(ctx, s.opts)
}
