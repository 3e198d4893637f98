// Package server exposes analysis over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/sync/errgroup"

	"github.com/imyousuf/rubyagent/internal/api"
	"github.com/imyousuf/rubyagent/internal/indexer"
)

// ShutdownTimeout bounds graceful shutdown after the run context ends.
const ShutdownTimeout = 5 * time.Second

// Config holds server settings.
type Config struct {
	Host    string
	Port    int
	Indexer *indexer.Indexer
	Logger  *slog.Logger
}

// Server serves the analysis API.
type Server struct {
	cfg    Config
	log    *slog.Logger
	router *gin.Engine
}

// New builds the router. It does not listen until Run.
func New(cfg Config) *Server {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	s := &Server{cfg: cfg, log: log}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

// Addr returns the listen address.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
}

func (s *Server) routes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("rubyagent"))
	router.Use(cors())

	router.GET(api.PathHealth, s.handleHealth)
	router.POST(api.PathAnalyze, s.handleAnalyze)
	router.GET(api.PathMetrics, gin.WrapH(promhttp.Handler()))

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Endpoint not found: " + c.Request.URL.Path})
	})
	return router
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		if c.Request.Method == http.MethodOptions {
			c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Content-Type")
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, api.HealthResponse{Status: api.StatusHealthy})
}

func (s *Server) handleAnalyze(c *gin.Context) {
	var req api.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid JSON in request body"})
		return
	}

	start := time.Now()
	out, err := s.cfg.Indexer.Run(c.Request.Context(), req.Root, req.Output)
	if err != nil {
		s.log.Warn("analyze request failed",
			slog.String("path", c.Request.URL.Path),
			slog.String("root", req.Root),
			slog.Duration("duration", time.Since(start)),
			slog.String("error", err.Error()))
		c.JSON(http.StatusOK, api.AnalyzeResponse{Success: false, Error: err.Error()})
		return
	}

	s.log.Info("analyze request served",
		slog.String("path", c.Request.URL.Path),
		slog.String("root", req.Root),
		slog.Int("nodes", len(out.Result.Classes)),
		slog.Duration("duration", time.Since(start)))

	c.JSON(http.StatusOK, api.AnalyzeResponse{
		Success:         true,
		NodesCount:      len(out.Result.Classes),
		FilesCount:      out.Result.Variants.Len(),
		OutputPath:      out.Paths.Nodes,
		ClassesDictPath: out.Paths.Dictionary,
		RunID:           out.RunID(),
	})
}

// Run listens until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.Addr(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.Info("server listening", slog.String("address", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		s.log.Info("shutting down server")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
