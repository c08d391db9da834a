package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"knowledge-weaver/backend/internal/classifier"
	"knowledge-weaver/backend/internal/notes"
	apperrors "knowledge-weaver/backend/pkg/errors"
)

type categoryRequest struct {
	Category   string `json:"category" binding:"required"`
	Definition string `json:"definition"`
}

func (s *Server) categorize(c *gin.Context) {
	var req classifier.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, s.classifier.Classify(c.Request.Context(), req))
}

func (s *Server) listCategories(c *gin.Context) {
	cats, err := s.registry.List(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	if cats == nil {
		cats = []notes.Category{}
	}
	c.JSON(http.StatusOK, cats)
}

func (s *Server) addCategory(c *gin.Context) {
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cat, err := s.registry.Add(c.Request.Context(), notes.Category{Category: req.Category, Definition: req.Definition})
	if err != nil {
		var exists *apperrors.ErrCategoryExists
		if errors.As(err, &exists) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Category already exists"})
			return
		}
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Category added successfully",
		"category": cat,
	})
}

func (s *Server) updateCategory(c *gin.Context) {
	index, ok := categoryIndex(c)
	if !ok {
		return
	}

	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cat, err := s.registry.Update(c.Request.Context(), index, notes.Category{Category: req.Category, Definition: req.Definition})
	if err != nil {
		var (
			exists   *apperrors.ErrCategoryExists
			notFound *apperrors.ErrCategoryNotFound
		)
		switch {
		case errors.As(err, &notFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Category not found"})
		case errors.As(err, &exists):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Category name already exists"})
		default:
			s.respondError(c, err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Category updated successfully",
		"category": cat,
	})
}

func (s *Server) deleteCategory(c *gin.Context) {
	index, ok := categoryIndex(c)
	if !ok {
		return
	}

	removed, err := s.registry.Delete(c.Request.Context(), index)
	if err != nil {
		var notFound *apperrors.ErrCategoryNotFound
		if errors.As(err, &notFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Category not found"})
			return
		}
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":          "Category deleted successfully",
		"deleted_category": removed,
	})
}

func categoryIndex(c *gin.Context) (int, bool) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "index must be an integer"})
		return 0, false
	}
	return index, true
}
