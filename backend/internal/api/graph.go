package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"knowledge-weaver/backend/internal/knowledge"
	apperrors "knowledge-weaver/backend/pkg/errors"
)

// graphOptions reads ?policy= and ?window= over the configured defaults
func (s *Server) graphOptions(c *gin.Context) (knowledge.Options, bool) {
	opts := s.graphs.Options()
	if p := c.Query("policy"); p != "" {
		policy, err := knowledge.ParsePolicy(p)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return opts, false
		}
		opts.Policy = policy
	}
	if w := c.Query("window"); w != "" {
		window, err := time.ParseDuration(w)
		if err != nil || window <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "window must be a positive duration"})
			return opts, false
		}
		opts.TemporalWindow = window
	}
	return opts, true
}

func (s *Server) getGraph(c *gin.Context) {
	opts, ok := s.graphOptions(c)
	if !ok {
		return
	}

	g, err := s.graphs.Build(c.Request.Context(), opts)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

func (s *Server) graphOverview(c *gin.Context) {
	g, err := s.graphs.BuildDefault(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, knowledge.Summarize(g, queryInt(c, "top", 10)))
}

func (s *Server) searchGraph(c *gin.Context) {
	q := c.Query("q")
	if strings.TrimSpace(q) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q is required"})
		return
	}

	var types []knowledge.NodeType
	for _, t := range c.QueryArray("type") {
		if t != "" {
			types = append(types, knowledge.NodeType(t))
		}
	}

	g, err := s.graphs.BuildDefault(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"query":   q,
		"results": knowledge.Search(g, q, types, queryInt(c, "limit", 20)),
	})
}

// syncGraph rebuilds the graph and mirrors it into the graph database
func (s *Server) syncGraph(c *gin.Context) {
	if s.projection == nil {
		s.respondError(c, apperrors.ErrGraphUnavailable)
		return
	}

	g, err := s.graphs.BuildDefault(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}

	res, err := s.projection.SyncGraph(c.Request.Context(), g)
	if err != nil {
		s.respondError(c, err)
		return
	}

	counts, err := s.projection.EntityCounts(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"synced": res, "entities": counts})
}

// projectedRelated answers related-note queries from the graph database
func (s *Server) projectedRelated(c *gin.Context) {
	if s.projection == nil {
		s.respondError(c, apperrors.ErrGraphUnavailable)
		return
	}

	related, err := s.projection.RelatedNotes(c.Request.Context(), c.Param("id"), queryInt(c, "limit", 10))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "related": related})
}
