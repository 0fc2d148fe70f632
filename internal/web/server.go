// internal/web/server.go
package web

import (
	"context"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"sonarboard/internal/config"
	"sonarboard/internal/metrics"
	"sonarboard/internal/monitoring"
)

// StatusService answers the read endpoints.
type StatusService interface {
	EquipmentSummary(ctx context.Context) monitoring.SummaryResult
	AccountsByStatus(ctx context.Context, status monitoring.AccountStatus) monitoring.AccountsResult
}

// SuppressionService backs the suppression admin endpoints.
type SuppressionService interface {
	Suppress(ctx context.Context, id string) error
	Unsuppress(ctx context.Context, id string) error
	List() []string
}

type Server struct {
	config       *config.Config
	status       StatusService
	suppressions SuppressionService
	metrics      *metrics.Collector
	router       *gin.Engine
	hub          *Hub
	server       *http.Server
}

func NewServer(cfg *config.Config, status StatusService, suppressions SuppressionService, metricsCollector *metrics.Collector) *Server {
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(requestIDMiddleware())
	router.Use(corsMiddleware())

	var onConnect func(int)
	if metricsCollector != nil {
		onConnect = metricsCollector.RecordWebSocketConnection
	}

	server := &Server{
		config:       cfg,
		status:       status,
		suppressions: suppressions,
		metrics:      metricsCollector,
		router:       router,
		hub:          NewHub(onConnect),
	}

	server.setupRoutes()
	return server
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.config.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
	}

	logrus.WithField("addr", s.server.Addr).Info("Starting web server")

	go s.updateMetricsRoutine(ctx)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("Failed to start server")
		}
	}()

	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) setupRoutes() {
	if s.config.Web.ServeStatic {
		s.router.StaticFile("/", filepath.Join(s.config.Web.StaticDir, s.config.Web.Root))
		s.router.Static("/static", s.config.Web.StaticDir)
	}
	s.router.GET("/favicon.ico", s.serveFavicon)
	s.router.GET("/health", s.healthCheck)

	api := s.router.Group("/api")
	{
		api.GET("/status-summary", s.getStatusSummary)
		api.GET("/down-customers", s.getDownCustomers)
		api.GET("/warning-customers", s.getWarningCustomers)

		api.GET("/suppressions", s.listSuppressions)
		api.PUT("/suppressions/:id", s.suppressAccount)
		api.DELETE("/suppressions/:id", s.unsuppressAccount)

		api.GET("/health", s.apiHealth)
		api.GET("/build", s.getBuildInfo)
	}

	s.router.GET("/ws", s.handleWebSocket)

	if s.config.Prometheus.Enabled {
		s.router.GET(s.config.Prometheus.MetricsPath, gin.WrapH(promhttp.Handler()))
	}
}

func (s *Server) updateMetricsRoutine(ctx context.Context) {
	if s.metrics == nil {
		return
	}
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.metrics.UpdateSystemMetrics()
		}
	}
}

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-Id")
		if id == "" {
			id = uuid.New().String()
		}
		c.Set("request_id", id)
		c.Header("X-Request-Id", id)
		c.Next()
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-Id")
		c.Header("Access-Control-Allow-Methods", "GET, PUT, DELETE, OPTIONS")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
