package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/TWRT/tasksync/internal/api/handlers"
	"github.com/TWRT/tasksync/internal/logger"
	"github.com/TWRT/tasksync/internal/repository"
)

func SetupRouter(blobs repository.BlobStore, key string, log *logger.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(log))

	syncHandler := handlers.NewSyncHandler(blobs, key, log)

	router.GET("/pull", syncHandler.Pull)
	router.POST("/push", syncHandler.Push)
	router.GET("/health", syncHandler.Health)

	return router
}

func requestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.InfoContext(c.Request.Context(), "request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

type Server struct {
	http *http.Server
	log  *logger.Logger
}

func NewServer(addr string, handler http.Handler, log *logger.Logger) *Server {
	return &Server{
		http: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		log: log,
	}
}

// Run blocks until the server stops. A graceful Shutdown is not an error.
func (s *Server) Run() error {
	s.log.Info("sync server listening", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
