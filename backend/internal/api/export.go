package api

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"knowledge-weaver/backend/internal/export"
)

func (s *Server) exportNotes(c *gin.Context) {
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		s.respondError(c, err)
		return
	}

	ns, cats, err := s.graphs.Snapshot(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}

	now := s.now()
	var buf bytes.Buffer
	if err := export.Write(&buf, format, ns, cats, now); err != nil {
		s.respondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, export.Filename(format, now)))
	c.Data(http.StatusOK, export.ContentType(format), buf.Bytes())
}

func (s *Server) importNotes(c *gin.Context) {
	payload, err := export.Parse(c.Request.Body)
	if err != nil {
		s.respondError(c, err)
		return
	}

	result, err := s.capture.ImportRecords(c.Request.Context(), payload.Records, payload.Categories)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
