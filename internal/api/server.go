package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/net/netutil"

	"github.com/ppiankov/clientscore/internal/model"
)

// shutdownTimeout bounds graceful shutdown of in-flight requests
const shutdownTimeout = 10 * time.Second

// Service is what the HTTP handlers need from the prediction pipeline
type Service interface {
	Client(ctx context.Context, id int64) (*model.ClientView, error)
	List(ctx context.Context, page, size int) ([]model.ClientSummary, error)
	Predict(ctx context.Context, id int64) (*model.ClientWithScore, error)
	Explain(ctx context.Context, id int64) (model.Explanation, error)
}

// Server is the client scoring HTTP API
type Server struct {
	service Service
	router  *gin.Engine
	logger  *zap.Logger
	config  model.ServerConfig
}

// NewServer creates the API server and registers its routes
func NewServer(service Service, logger *zap.Logger, config model.ServerConfig) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	s := &Server{
		service: service,
		router:  router,
		logger:  logger,
		config:  config,
	}

	router.GET("/healthz", s.handleHealth)

	api := router.Group("/api")
	{
		api.GET("/clients", s.handleList)
		api.GET("/client/:id", s.handleClient)
		api.POST("/client/:id/predict", s.handlePredict)
		api.POST("/client/:id/explain", s.handleExplain)
	}

	return s
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.config.Addr, err)
	}
	return s.Serve(ctx, listener)
}

// Serve accepts connections on listener until ctx is cancelled. The number of
// simultaneous connections is capped when MaxConnections is positive.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	if s.config.MaxConnections > 0 {
		listener = netutil.LimitListener(listener, s.config.MaxConnections)
	}

	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(listener)
	}()

	s.logger.Info("HTTP API listening",
		zap.String("addr", listener.Addr().String()),
		zap.Int("max_connections", s.config.MaxConnections))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.logger.Info("Shutting down HTTP API")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// requestLogger logs one line per request through zap
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			logger.Warn("Request failed", fields...)
		default:
			logger.Debug("Request", fields...)
		}
	}
}
