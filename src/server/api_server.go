package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"squeeze-trader/src/config"
	"squeeze-trader/src/interfaces"
	"squeeze-trader/src/logger"
	"squeeze-trader/src/models"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 5 * time.Second

// -----------------------------------------------------------------------------
// APIServer
// -----------------------------------------------------------------------------

type APIServer struct {
	Config  *models.MConfig
	Logger  *logger.Logger
	control interfaces.ITraderControl
	engine  *gin.Engine
	http    *http.Server

	// WebSocket clients
	clients    map[*Client]struct{}
	broadcast  chan models.MEvent // Buffered queue drained by the hub
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once

	// Local cache
	latestStatus models.MStatus
	stateMutex   sync.RWMutex
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

// NewAPIServer wires the REST routes, the websocket hub and the /metrics
// endpoint. registry may be nil when telemetry is disabled.
func NewAPIServer(cfg *models.MConfig, control interfaces.ITraderControl, registry *prometheus.Registry, log *logger.Logger) *APIServer {
	if log == nil {
		log = logger.NewNopLogger()
	}
	// Set Gin mode
	if cfg.LogLevel != "DEBUG" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &APIServer{
		Config:     cfg,
		Logger:     log,
		control:    control,
		engine:     gin.New(),
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan models.MEvent, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		latestStatus: models.MStatus{
			Symbol:  cfg.Symbol,
			RunMode: cfg.RunMode,
		},
	}

	s.engine.Use(gin.Recovery())

	// Add CORS Middleware
	s.engine.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if strings.HasPrefix(origin, "http://127.0.0.1:") || strings.HasPrefix(origin, "http://localhost:") {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	s.setupRoutes(registry)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	s.http = &http.Server{Addr: addr, Handler: s.engine, ReadHeaderTimeout: 10 * time.Second}

	go s.runHub()
	return s
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *APIServer) setupRoutes(registry *prometheus.Registry) {
	api := s.engine.Group("/api")
	api.GET("/health", s.getHealth)
	api.GET("/status", s.getStatus)
	api.GET("/indicators", s.getIndicators)
	api.GET("/positions", s.getPositions)
	api.GET("/trades", s.getTrades)
	api.GET("/metrics", s.getMetrics)
	api.GET("/config", s.getConfig)
	api.POST("/panic", s.postPanic)

	if registry != nil {
		s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	}

	// WebSocket endpoint
	s.engine.GET("/ws", s.handleWebSocket)
}

// -----------------------------------------------------------------------------

// Handler exposes the router, mainly for httptest.
func (s *APIServer) Handler() http.Handler {
	return s.engine
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

// Start blocks serving HTTP until Stop is called.
func (s *APIServer) Start() error {
	s.Logger.Info("Starting API server on %s", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// -----------------------------------------------------------------------------

func (s *APIServer) Stop() error {
	var err error
	s.stopOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err = s.http.Shutdown(ctx)
		close(s.done)
		s.Logger.Info("API server stopped")
	})
	return err
}

// -----------------------------------------------------------------------------
// Route Handlers
// -----------------------------------------------------------------------------

func (s *APIServer) status() models.MStatus {
	if s.control != nil {
		return s.control.Status()
	}
	s.stateMutex.RLock()
	defer s.stateMutex.RUnlock()
	return s.latestStatus
}

// -----------------------------------------------------------------------------

func (s *APIServer) getHealth(c *gin.Context) {
	status := s.status()
	s.stateMutex.RLock()
	connections := len(s.clients)
	s.stateMutex.RUnlock()

	health := "ok"
	if !status.JournalHealthy {
		health = "degraded"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":           health,
		"symbol":           s.Config.Symbol,
		"connections":      connections,
		"last_candle_time": status.LastCandleTime,
		"journal_healthy":  status.JournalHealthy,
	})
}

// -----------------------------------------------------------------------------

func (s *APIServer) getStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.status())
}

// -----------------------------------------------------------------------------

func (s *APIServer) getIndicators(c *gin.Context) {
	c.JSON(http.StatusOK, s.status().Indicators)
}

// -----------------------------------------------------------------------------

func (s *APIServer) getPositions(c *gin.Context) {
	positions := s.status().ActivePositions
	if positions == nil {
		positions = []models.MPosition{}
	}
	c.JSON(http.StatusOK, positions)
}

// -----------------------------------------------------------------------------

func (s *APIServer) getTrades(c *gin.Context) {
	if s.control == nil {
		c.JSON(http.StatusOK, []models.MTrade{})
		return
	}
	trades := s.control.Trades()
	if trades == nil {
		trades = []models.MTrade{}
	}
	c.JSON(http.StatusOK, trades)
}

// -----------------------------------------------------------------------------

func (s *APIServer) getMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, s.status().Metrics.ToMap())
}

// -----------------------------------------------------------------------------

func (s *APIServer) getConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"config":  s.Config,
		"api_key": config.RedactKey(s.Config.APIKey),
	})
}

// -----------------------------------------------------------------------------

func (s *APIServer) postPanic(c *gin.Context) {
	if s.control == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no runner attached"})
		return
	}

	s.Logger.Warning("Panic requested from %s", c.ClientIP())
	trades, err := s.control.Panic(c.Request.Context())
	if err != nil {
		c.JSON(httpStatus(err), gin.H{"error": err.Error()})
		return
	}
	if trades == nil {
		trades = []models.MTrade{}
	}
	c.JSON(http.StatusOK, gin.H{
		"closed":          trades,
		"signals_enabled": false,
	})
}
