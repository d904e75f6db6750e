// Package server is the HTTP face of the database: document CRUD, query
// execution and schema management over JSON, plus health and metrics
// endpoints.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/panjf2000/ants/v2"

	"github.com/zerotable/zerotable/internal/catalog"
	"github.com/zerotable/zerotable/internal/config"
	"github.com/zerotable/zerotable/internal/engine"
	"github.com/zerotable/zerotable/internal/logger"
	"github.com/zerotable/zerotable/internal/metrics"
	"github.com/zerotable/zerotable/internal/zql"
)

type Server struct {
	cfg     *config.Config
	log     *logger.Logger
	eng     *engine.Engine
	cat     *catalog.Catalog
	metrics *metrics.Metrics
	cache   *zql.Cache
	pool    *ants.Pool
	httpSrv *http.Server
}

// New wires the router. The ants pool bounds concurrent query executions;
// submissions beyond the bound are rejected, not queued, so a slow scan
// cannot pile up goroutines behind it.
func New(cfg *config.Config, eng *engine.Engine, cat *catalog.Catalog, m *metrics.Metrics, log *logger.Logger) (*Server, error) {
	if log == nil {
		log = logger.Default()
	}

	cache, err := zql.NewCache(cfg.Query.PlanCacheSize)
	if err != nil {
		return nil, err
	}
	pool, err := ants.NewPool(cfg.Query.MaxConcurrent, ants.WithNonblocking(true))
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:     cfg,
		log:     log,
		eng:     eng,
		cat:     cat,
		metrics: m,
		cache:   cache,
		pool:    pool,
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger())

	router.GET("/healthz", s.handleHealth)
	if m != nil {
		router.GET("/metrics", gin.WrapH(m.Handler()))
	}

	v1 := router.Group("/v1")
	{
		col := v1.Group("/collections/:collection")
		col.POST("/documents", s.handleCreate)
		col.GET("/documents/:id", s.handleGet)
		col.PUT("/documents/:id", s.handleUpdate)
		col.DELETE("/documents/:id", s.handleDelete)
		col.POST("/query", s.handleQuery)
		col.PUT("/schema", s.handleSetSchema)
		col.GET("/schema", s.handleGetSchema)
		col.DELETE("/schema", s.handleDeleteSchema)
	}

	s.httpSrv = &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: router,
	}
	return s, nil
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler { return s.httpSrv.Handler }

// Run serves until the listener fails or Shutdown is called.
func (s *Server) Run() error {
	s.log.Info("http listening on %s", s.cfg.HTTP.Addr)
	err := s.httpSrv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests and releases the query pool.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpSrv.Shutdown(ctx)
	s.pool.Release()
	return err
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("%s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// recordOp feeds the operation counters when metrics are wired.
func (s *Server) recordOp(operation string, err error, start time.Time) {
	if s.metrics == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	s.metrics.RecordOperation(operation, status, time.Since(start))
}
