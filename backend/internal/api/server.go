// Package api exposes the categorization service, notes, graph and export
// over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"knowledge-weaver/backend/internal/capture"
	"knowledge-weaver/backend/internal/categories"
	"knowledge-weaver/backend/internal/categorizer"
	"knowledge-weaver/backend/internal/classifier"
	"knowledge-weaver/backend/internal/graph"
	"knowledge-weaver/backend/internal/knowledge"
	"knowledge-weaver/backend/internal/notes"
	"knowledge-weaver/backend/pkg/logger"
)

// Classifier answers categorize requests
type Classifier interface {
	Classify(ctx context.Context, req classifier.Request) categorizer.Response
}

// Projection is the optional graph database mirror
type Projection interface {
	SyncGraph(ctx context.Context, g *knowledge.Graph) (graph.SyncResult, error)
	RelatedNotes(ctx context.Context, noteID string, limit int) ([]graph.RelatedEntity, error)
	EntityCounts(ctx context.Context) (map[string]int64, error)
	DeleteEntity(ctx context.Context, id string) (bool, error)
}

// Deps are the services the API is built on. Projection may be nil.
type Deps struct {
	Notes      notes.Repository
	Registry   *categories.Registry
	Classifier Classifier
	Capture    *capture.Service
	Graphs     *knowledge.Service
	Projection Projection
}

// Server holds the HTTP handlers
type Server struct {
	notes      notes.Repository
	registry   *categories.Registry
	classifier Classifier
	capture    *capture.Service
	graphs     *knowledge.Service
	projection Projection
	logger     *zap.Logger
	now        func() time.Time
}

// NewServer creates an API server over deps
func NewServer(deps Deps) *Server {
	return &Server{
		notes:      deps.Notes,
		registry:   deps.Registry,
		classifier: deps.Classifier,
		capture:    deps.Capture,
		graphs:     deps.Graphs,
		projection: deps.Projection,
		logger:     logger.Named("api"),
		now:        time.Now,
	}
}

// Router builds the gin engine with middleware and every route
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(ginLogger(s.logger))
	router.Use(gin.Recovery())
	router.Use(cors())
	router.Use(requestMetrics())

	router.GET("/health", s.health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.POST("/categorize", s.categorize)

	router.GET("/categories", s.listCategories)
	router.POST("/categories", s.addCategory)
	router.PUT("/categories/:index", s.updateCategory)
	router.DELETE("/categories/:index", s.deleteCategory)

	router.GET("/notes", s.listNotes)
	router.POST("/notes", s.createNote)
	router.GET("/notes/:id", s.getNote)
	router.PUT("/notes/:id", s.editNote)
	router.DELETE("/notes/:id", s.deleteNote)
	router.POST("/notes/:id/recategorize", s.recategorizeNote)
	router.GET("/notes/:id/related", s.relatedNotes)
	router.POST("/recategorize", s.recategorizeAll)

	g := router.Group("/graph")
	{
		g.GET("", s.getGraph)
		g.GET("/overview", s.graphOverview)
		g.GET("/search", s.searchGraph)
		g.POST("/sync", s.syncGraph)
		g.GET("/related/:id", s.projectedRelated)
	}

	router.GET("/export", s.exportNotes)
	router.POST("/import", s.importNotes)

	return router
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"message": "Knowledge Weaver API is running",
		"graph":   s.projection != nil,
	})
}
