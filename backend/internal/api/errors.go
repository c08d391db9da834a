package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "knowledge-weaver/backend/pkg/errors"
)

// statusOf maps application errors to HTTP status codes
func statusOf(err error) int {
	var (
		noteNotFound     *apperrors.ErrNoteNotFound
		categoryNotFound *apperrors.ErrCategoryNotFound
	)
	switch {
	case errors.As(err, &noteNotFound), errors.As(err, &categoryNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperrors.ErrGraphUnavailable),
		apperrors.IsErrorType(err, apperrors.ErrorTypeGraph):
		return http.StatusServiceUnavailable
	case apperrors.IsErrorType(err, apperrors.ErrorTypeNote),
		apperrors.IsErrorType(err, apperrors.ErrorTypeCategory),
		apperrors.IsErrorType(err, apperrors.ErrorTypeExport):
		return http.StatusBadRequest
	case apperrors.IsErrorType(err, apperrors.ErrorTypeContext):
		return http.StatusRequestTimeout
	}
	return http.StatusInternalServerError
}

// respondError writes {"error": ...} with the mapped status. Server errors
// are logged and their details withheld.
func (s *Server) respondError(c *gin.Context, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		s.logger.Error("Request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		c.JSON(status, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": apperrors.Message(err)})
}
