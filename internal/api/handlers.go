package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ppiankov/clientscore/internal/gateway"
	"github.com/ppiankov/clientscore/internal/store"
)

const (
	defaultPage     = 0
	defaultPageSize = 50
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleList(c *gin.Context) {
	page, err := intQuery(c, "page", defaultPage)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	size, err := intQuery(c, "size", defaultPageSize)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	summaries, err := s.service.List(c.Request.Context(), page, size)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, summaries)
}

func (s *Server) handleClient(c *gin.Context) {
	id, ok := clientID(c)
	if !ok {
		return
	}

	view, err := s.service.Client(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

func (s *Server) handlePredict(c *gin.Context) {
	id, ok := clientID(c)
	if !ok {
		return
	}

	scored, err := s.service.Predict(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, scored)
}

func (s *Server) handleExplain(c *gin.Context) {
	id, ok := clientID(c)
	if !ok {
		return
	}

	explanation, err := s.service.Explain(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, explanation)
}

// writeError maps domain errors onto HTTP statuses
func (s *Server) writeError(c *gin.Context, err error) {
	_ = c.Error(err)

	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrInvalidPage):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, gateway.ErrUnavailable):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		s.logger.Error("Unhandled request error", zap.String("path", c.Request.URL.Path), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func clientID(c *gin.Context) (int64, bool) {
	raw := c.Param("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid client id %q", raw)})
		return 0, false
	}
	return id, true
}

func intQuery(c *gin.Context, name string, fallback int) (int, error) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return v, nil
}
