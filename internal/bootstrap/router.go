package bootstrap

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	httpapi "github.com/ocean-authoring/ocean-backend/internal/api/http"
	"github.com/ocean-authoring/ocean-backend/internal/api/http/middleware"
	projectshttp "github.com/ocean-authoring/ocean-backend/internal/projects/http"
)

type RouterDeps struct {
	ServiceName string
	Version     string
	CORSOrigins []string

	StoreKind string
	Store     httpapi.Pinger

	Projects projectshttp.ProjectService
	// Auth resolves the owner identity for every /api/v1 route.
	Auth gin.HandlerFunc
	// Limiter throttles generation routes; nil disables throttling.
	Limiter *middleware.RateLimiter
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(cors.New(corsConfig(dep.CORSOrigins)))

	healthHandler := httpapi.NewHealthHandler(dep.ServiceName, dep.Version, dep.StoreKind, dep.Store)
	healthHandler.RegisterRoutes(r)

	api := r.Group("/api/v1")
	if dep.Auth != nil {
		api.Use(dep.Auth)
	}

	projectsGroup := api.Group("/projects")
	projectshttp.New(dep.Projects).Register(projectsGroup, middleware.RateLimit(dep.Limiter))

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "X-User-Id", middleware.HeaderRequestID},
		ExposeHeaders: []string{"Content-Disposition", middleware.HeaderRequestID},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}
