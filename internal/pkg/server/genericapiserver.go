package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/kiosk404/ragrelay/pkg/logger"
)

// GenericAPIServer wraps a gin engine with the http.Server that serves it.
type GenericAPIServer struct {
	middlewares     []string
	address         string
	healthz         bool
	enableProfiling bool
	shutdownTimeout time.Duration

	*gin.Engine

	httpServer *http.Server
}

func initGenericAPIServer(s *GenericAPIServer) {
	s.InstallAPIs()
}

// InstallAPIs installs generic apis.
func (s *GenericAPIServer) InstallAPIs() {
	if s.healthz {
		s.GET("/healthz", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})
	}

	if s.enableProfiling {
		pprof.Register(s.Engine)
	}
}

// Run spawns the http server. It only returns when the port cannot be listened on initially.
func (s *GenericAPIServer) Run() error {
	s.httpServer = &http.Server{
		Addr:    s.address,
		Handler: s,
	}

	logger.Info("[Server] start to listening the incoming requests on http address: %s", s.address)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("[Server] %s", err.Error())
		return err
	}

	logger.Info("[Server] server on %s stopped", s.address)
	return nil
}

// Close graceful shutdown the api server.
func (s *GenericAPIServer) Close() {
	if s.httpServer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		logger.Warn("[Server] shutdown http server failed: %s", err.Error())
	}
}
