// Package httpapi serves the local control API: status, manual disconnect and
// reconnect, health and metrics.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bft-labs/stationd/internal/app"
	"github.com/bft-labs/stationd/internal/domain"
	"github.com/bft-labs/stationd/pkg/log"
)

// Controller is the station surface the API drives.
type Controller interface {
	Status() app.ConnectionStatus
	Stats() domain.Stats
	Probe(ctx context.Context) (domain.LinkStateSnapshot, error)
	Disconnect(ctx context.Context) error
	Reconnect()
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	Connection app.ConnectionStatus      `json:"connection"`
	Link       *domain.LinkStateSnapshot `json:"link,omitempty"`
	LinkError  string                    `json:"link_error,omitempty"`
	Stats      domain.Stats              `json:"stats"`
}

// Server is the control API.
type Server struct {
	ctrl    Controller
	metrics http.Handler
	logger  log.Logger
	engine  *gin.Engine
	srv     *http.Server
}

// NewServer builds the router. metrics may be nil.
func NewServer(ctrl Controller, metrics http.Handler, logger log.Logger) *Server {
	if logger == nil {
		logger = log.NoopLogger{}
	}
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		ctrl:    ctrl,
		metrics: metrics,
		logger:  log.Component(logger, "http"),
		engine:  gin.New(),
	}
	s.engine.Use(gin.Recovery(), s.requestLogger())
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.engine.GET("/status", s.status)
	s.engine.POST("/disconnect", s.disconnect)
	s.engine.POST("/reconnect", s.reconnect)
	if s.metrics != nil {
		s.engine.GET("/metrics", gin.WrapH(s.metrics))
	}
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler { return s.engine }

// ListenAndServe serves on addr until ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is canceled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.srv = &http.Server{Handler: s.engine, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(ln) }()
	s.logger.Info("control api listening", log.String("addr", ln.Addr().String()))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) status(c *gin.Context) {
	resp := StatusResponse{
		Connection: s.ctrl.Status(),
		Stats:      s.ctrl.Stats(),
	}
	snap, err := s.ctrl.Probe(c.Request.Context())
	if err != nil {
		resp.LinkError = err.Error()
	} else {
		resp.Link = &snap
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) disconnect(c *gin.Context) {
	err := s.ctrl.Disconnect(c.Request.Context())
	switch {
	case err == nil:
		c.JSON(http.StatusAccepted, gin.H{"status": "disconnecting"})
	case errors.Is(err, domain.ErrNotConnected):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	}
}

func (s *Server) reconnect(c *gin.Context) {
	s.ctrl.Reconnect()
	c.JSON(http.StatusAccepted, gin.H{"status": "reconnecting"})
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			log.String("method", c.Request.Method),
			log.String("path", c.FullPath()),
			log.Int("status", c.Writer.Status()),
			log.Duration("elapsed", time.Since(start)),
		)
	}
}
