package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/your-org/jhadepilot/internal/breaker"
	"github.com/your-org/jhadepilot/internal/metrics"
	"github.com/your-org/jhadepilot/internal/orchestrator"
	"github.com/your-org/jhadepilot/internal/telemetry"
	"github.com/your-org/jhadepilot/internal/version"
)

const internalErrorMessage = "Internal server error"

// Orchestrator runs one generation request.
type Orchestrator interface {
	Run(ctx context.Context, prompt string) (orchestrator.Result, error)
}

// Handler serves the HTTP API.
type Handler struct {
	Orchestrator       Orchestrator
	Telemetry          *telemetry.Accumulator
	Breaker            *breaker.CircuitBreaker
	Registry           *prometheus.Registry
	UpstreamConfigured bool
	CORSAllowOrigins   []string
	Logger             *zap.Logger
}

// NewHandler builds the HTTP handler for a runtime.
func NewHandler(rt *Runtime) *Handler {
	return &Handler{
		Orchestrator:       rt.Orchestrator,
		Telemetry:          rt.Telemetry,
		Breaker:            rt.Breaker,
		Registry:           rt.Registry,
		UpstreamConfigured: rt.Config.UpstreamConfigured(),
		CORSAllowOrigins:   rt.Config.Server.CORSAllowOrigins,
		Logger:             rt.Logger.Named("http"),
	}
}

type errorBody struct {
	Error      string    `json:"error"`
	StatusCode int       `json:"status_code"`
	Timestamp  time.Time `json:"timestamp"`
}

type generateRequest struct {
	Prompt string `json:"prompt"`
}

// Router returns the gin engine with every route and middleware installed.
func (h *Handler) Router() *gin.Engine {
	if h.Logger == nil {
		h.Logger = zap.NewNop()
	}
	logger := h.Logger

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(requestID(), recovery(logger), accessLog(logger), corsMiddleware(h.CORSAllowOrigins))

	r.GET("/", h.root)
	r.GET("/health", h.health)
	r.POST("/generate", h.generate)
	if h.Registry != nil {
		r.GET("/metrics", gin.WrapH(metrics.Handler(h.Registry)))
	}
	r.NoRoute(func(c *gin.Context) {
		abortWithError(c, http.StatusNotFound, "Not found")
	})
	return r
}

func (h *Handler) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message":   "JHADEPILOT API is running",
		"version":   version.Version,
		"status":    "healthy",
		"timestamp": time.Now(),
	})
}

func (h *Handler) health(c *gin.Context) {
	upstream := "not_configured"
	if h.UpstreamConfigured {
		upstream = "configured"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":          "healthy",
		"version":         version.Version,
		"telemetry":       h.Telemetry.Snapshot(),
		"circuit_breaker": h.Breaker.Snapshot(),
		"services": gin.H{
			"upstream": upstream,
			"agents":   "operational",
		},
		"timestamp": time.Now(),
	})
}

func (h *Handler) generate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	res, err := h.Orchestrator.Run(c.Request.Context(), req.Prompt)
	if err != nil {
		switch {
		case errors.Is(err, orchestrator.ErrEmptyPrompt):
			abortWithError(c, http.StatusBadRequest, "Prompt is required")
		case orchestrator.IsValidation(err):
			abortWithError(c, http.StatusBadRequest, err.Error())
		default:
			h.Logger.Error("generate failed", zap.Error(err))
			abortWithError(c, http.StatusInternalServerError, internalErrorMessage)
		}
		return
	}
	c.JSON(http.StatusOK, res)
}

func abortWithError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, errorBody{Error: msg, StatusCode: status, Timestamp: time.Now()})
}
