package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"knowledge-weaver/backend/internal/capture"
	"knowledge-weaver/backend/internal/knowledge"
	"knowledge-weaver/backend/internal/notes"
	apperrors "knowledge-weaver/backend/pkg/errors"
)

func (s *Server) listNotes(c *gin.Context) {
	ns, err := s.notes.List(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	if ns == nil {
		ns = []notes.Note{}
	}
	c.JSON(http.StatusOK, ns)
}

func (s *Server) getNote(c *gin.Context) {
	n, err := s.notes.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, n)
}

func (s *Server) createNote(c *gin.Context) {
	var req capture.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	n, err := s.capture.Capture(c.Request.Context(), req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, n)
}

func (s *Server) editNote(c *gin.Context) {
	var req capture.EditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	n, err := s.capture.Edit(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, n)
}

func (s *Server) deleteNote(c *gin.Context) {
	id := c.Param("id")
	if err := s.capture.Delete(c.Request.Context(), id); err != nil {
		s.respondError(c, err)
		return
	}
	// the mirror catches up on the next sync if this fails
	if s.projection != nil {
		if _, err := s.projection.DeleteEntity(c.Request.Context(), id); err != nil {
			s.logger.Warn("Failed to remove note from graph database", zap.String("id", id), zap.Error(err))
		}
	}
	c.JSON(http.StatusOK, gin.H{"message": "Note deleted successfully", "id": id})
}

func (s *Server) recategorizeNote(c *gin.Context) {
	n, err := s.capture.Recategorize(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, n)
}

func (s *Server) recategorizeAll(c *gin.Context) {
	count, err := s.capture.RecategorizeAll(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recategorized": count})
}

// relatedNotes ranks notes near the given one in a freshly built graph
func (s *Server) relatedNotes(c *gin.Context) {
	id := c.Param("id")
	limit := queryInt(c, "limit", 10)

	g, err := s.graphs.BuildDefault(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}

	related, ok := knowledge.Related(g, id, limit)
	if !ok {
		s.respondError(c, apperrors.NewNoteNotFound(id))
		return
	}
	if related == nil {
		related = []knowledge.RelatedNote{}
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "related": related})
}

func queryInt(c *gin.Context, key string, fallback int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
