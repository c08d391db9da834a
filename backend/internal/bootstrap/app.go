// Package bootstrap assembles the services from configuration. The HTTP
// server and the CLI share it so both see the same store and graph settings.
package bootstrap

import (
	"context"
	"time"

	"go.uber.org/zap"

	"knowledge-weaver/backend/internal/adapter"
	"knowledge-weaver/backend/internal/api"
	"knowledge-weaver/backend/internal/capture"
	"knowledge-weaver/backend/internal/categories"
	"knowledge-weaver/backend/internal/categorizer"
	"knowledge-weaver/backend/internal/classifier"
	"knowledge-weaver/backend/internal/graph"
	"knowledge-weaver/backend/internal/knowledge"
	"knowledge-weaver/backend/internal/kvstore"
	"knowledge-weaver/backend/internal/notes"
	"knowledge-weaver/backend/internal/pagemeta"
	"knowledge-weaver/backend/pkg/config"
	"knowledge-weaver/backend/pkg/logger"
)

const graphConnectTimeout = 10 * time.Second

// App holds the wired services
type App struct {
	Store      notes.Store
	Registry   *categories.Registry
	Classifier *classifier.Service
	Capture    *capture.Service
	Graphs     *knowledge.Service

	// Projection is nil unless NEO4J_URI is set
	Projection *graph.Repository

	logger *zap.Logger
}

// New opens the store and builds every service cfg asks for
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	log := logger.Named("bootstrap")

	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	registry := categories.NewRegistry(store)

	llm := adapter.NewLLMAdapter(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.ModelID, cfg.LLMMaxAttempts)
	cls := classifier.NewService(llm, registry)
	if cfg.LLMAPIKey == "" {
		log.Warn("LLM_API_KEY not set, categorization will fall back to General")
	}

	var cat categorizer.Categorizer = cls
	if cfg.RemoteCategorizer() {
		cc := categorizer.DefaultClientConfig(cfg.CategorizerURL)
		cc.Timeout = cfg.CategorizerTimeout
		cc.FailureRatio = cfg.BreakerFailureRatio
		cat = categorizer.NewClient(cc)
		log.Info("Using remote categorizer", zap.String("url", cc.BaseURL))
	}

	opts := []capture.Option{capture.WithConcurrency(cfg.ImportConcurrency)}
	if cfg.FetchPageMetadata {
		opts = append(opts, capture.WithPageFetcher(pagemeta.NewFetcher(cfg.CategorizerTimeout)))
	}

	policy, err := knowledge.ParsePolicy(cfg.EdgePolicy)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	app := &App{
		Store:      store,
		Registry:   registry,
		Classifier: cls,
		Capture:    capture.NewService(store, registry, cat, opts...),
		Graphs: knowledge.NewService(store, store, knowledge.Options{
			Policy:         policy,
			TemporalWindow: cfg.TemporalWindow,
		}),
		logger: log,
	}

	if cfg.GraphEnabled() {
		if err := app.connectGraph(ctx, cfg); err != nil {
			_ = store.Close()
			return nil, err
		}
	}

	log.Info("Services initialized",
		zap.String("store", cfg.StoreBackend),
		zap.String("edge_policy", string(policy)),
		zap.Bool("remote_categorizer", cfg.RemoteCategorizer()),
		zap.Bool("graph", app.Projection != nil),
	)
	return app, nil
}

func openStore(cfg *config.Config) (notes.Store, error) {
	if cfg.StoreBackend == config.StoreMemory {
		return notes.NewMemoryStore(), nil
	}
	return kvstore.Open(kvstore.DefaultConfig(cfg.DataDir))
}

func (a *App) connectGraph(ctx context.Context, cfg *config.Config) error {
	ctx, cancel := context.WithTimeout(ctx, graphConnectTimeout)
	defer cancel()

	driver, err := graph.Connect(ctx, cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPassword)
	if err != nil {
		return err
	}

	repo := graph.NewRepository(driver)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = repo.Close()
		return err
	}

	a.Projection = repo
	a.logger.Info("Connected to Neo4j", zap.String("uri", cfg.Neo4jURI))
	return nil
}

// APIDeps returns the dependencies for api.NewServer
func (a *App) APIDeps() api.Deps {
	deps := api.Deps{
		Notes:      a.Store,
		Registry:   a.Registry,
		Classifier: a.Classifier,
		Capture:    a.Capture,
		Graphs:     a.Graphs,
	}
	// A nil *graph.Repository must not become a non-nil interface
	if a.Projection != nil {
		deps.Projection = a.Projection
	}
	return deps
}

// Close releases the graph driver and the store
func (a *App) Close() error {
	if a.Projection != nil {
		if err := a.Projection.Close(); err != nil {
			a.logger.Warn("Failed to close graph driver", zap.Error(err))
		}
	}
	return a.Store.Close()
}
