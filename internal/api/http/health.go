package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ocean-authoring/ocean-backend/internal/llm"
)

// Pinger is implemented by the project stores.
type Pinger interface {
	Ping(ctx context.Context) error
}

type GeneratorStats struct {
	Calls        int64   `json:"calls"`
	Errors       int64   `json:"errors"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
	ErrorRatePct float64 `json:"error_rate_pct"`
}

type HealthResponse struct {
	Status    string         `json:"status"`
	Timestamp time.Time      `json:"timestamp"`
	Service   string         `json:"service"`
	Version   string         `json:"version"`
	Store     string         `json:"store"`
	StoreKind string         `json:"store_kind,omitempty"`
	Generator GeneratorStats `json:"generator"`
}

type HealthHandler struct {
	serviceName string
	version     string
	storeKind   string
	store       Pinger
}

func NewHealthHandler(serviceName, version, storeKind string, store Pinger) *HealthHandler {
	return &HealthHandler{
		serviceName: serviceName,
		version:     version,
		storeKind:   storeKind,
		store:       store,
	}
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	status, storeStatus, code := "healthy", "disabled", http.StatusOK
	if h.store != nil {
		pingCtx, cancel := context.WithTimeout(c.Request.Context(), 1*time.Second)
		defer cancel()

		if err := h.store.Ping(pingCtx); err != nil {
			status, storeStatus, code = "degraded", "down", http.StatusServiceUnavailable
		} else {
			storeStatus = "up"
		}
	}

	m := llm.GetMetrics()
	c.JSON(code, HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC(),
		Service:   h.serviceName,
		Version:   h.version,
		Store:     storeStatus,
		StoreKind: h.storeKind,
		Generator: GeneratorStats{
			Calls:        m.Calls,
			Errors:       m.Errors,
			AvgLatencyMs: m.AverageLatency(),
			ErrorRatePct: m.ErrorRate(),
		},
	})
}

func (h *HealthHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/health", h.HealthCheck)
	r.GET("/healthz", h.HealthCheck)
}
