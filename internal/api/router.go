package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/celerix-dev/celerix-guild/internal/auth"
	"github.com/celerix-dev/celerix-guild/internal/logger"
	"github.com/celerix-dev/celerix-guild/internal/metrics"
)

const requestIDHeader = "X-Request-ID"

// RouterConfig collects what the dashboard router needs.
type RouterConfig struct {
	Handler  *Handler
	Sessions *auth.Sessions
	// Provider mounts the Discord login routes; nil leaves login disabled.
	Provider *auth.Provider
	// Origin is allowed to call the API with credentials from a browser.
	Origin string
	// Live reports whether the chat connection is up.
	Live func() bool
	Log  logger.Logger
}

// NewRouter builds the dashboard engine.
func NewRouter(cfg RouterConfig) *gin.Engine {
	log := cfg.Log
	if log == nil {
		log = logger.NewNop()
	}
	h := cfg.Handler
	if h.Log == nil {
		h.Log = log
	}

	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(log), cors(cfg.Origin))

	r.GET("/healthz", func(c *gin.Context) {
		live := cfg.Live != nil && cfg.Live()
		c.JSON(http.StatusOK, gin.H{"status": "ok", "chat": live})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/", func(c *gin.Context) {
		body := gin.H{"service": "celerix-guild", "login": cfg.Provider != nil}
		if u, ok := cfg.Sessions.Current(c); ok {
			body["user"] = u
		}
		c.JSON(http.StatusOK, body)
	})
	r.POST("/apply", h.Apply)
	r.GET("/api/application/:id", h.ApplicationStatus)

	if cfg.Provider != nil {
		cfg.Provider.Register(r)
	}

	authed := r.Group("/", cfg.Sessions.RequireUser())
	{
		authed.GET("/dashboard", h.Overview)
		authed.GET("/applications", h.ListApplications)
		authed.GET("/applications/:id", h.GetApplication)
		authed.POST("/applications/:id/decision", h.Decide)
		authed.GET("/tickets", h.ListTickets)
		authed.POST("/tickets", h.CreateTicket)
		authed.POST("/tickets/:id/close", h.CloseTicket)
		authed.GET("/settings", h.GetSettings)
		authed.POST("/settings", h.SaveSettings)
		authed.GET("/welcome", h.GetWelcome)
		authed.POST("/welcome", h.SaveWelcome)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
	})
	return r
}

// RequestLogger tags each request with an id, logs it and counts it.
func RequestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		code := c.Writer.Status()
		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
		log.Debug("http request", map[string]interface{}{
			"request_id": id,
			"method":     c.Request.Method,
			"route":      route,
			"status":     code,
			"duration":   time.Since(start).String(),
		})
	}
}

func cors(origin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if origin != "" && c.GetHeader("Origin") == origin {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Methods", "POST, OPTIONS, GET")
			c.Header("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-Request-ID")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
