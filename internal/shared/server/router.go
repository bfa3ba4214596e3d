package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"biotech-backend/internal/shared/metrics"
	"biotech-backend/internal/shared/server/middleware"
)

// RouteRegistrar mounts a feature package's routes on the API group.
type RouteRegistrar interface {
	RegisterRoutes(group *gin.RouterGroup)
}

// DevRouteRegistrar mounts maintenance routes exposed only outside production.
type DevRouteRegistrar interface {
	RegisterDevRoutes(group *gin.RouterGroup)
}

// RouterDeps collects everything the router needs.
type RouterDeps struct {
	Env            string
	AllowedOrigins []string
	Registrars     []RouteRegistrar
	DevRegistrars  []DevRouteRegistrar
}

// NewRouter builds the gin engine with the standard middleware chain and
// mounts all feature routes under /api/v1.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Logging())
	router.Use(middleware.Recovery())
	router.Use(middleware.CORS(deps.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", metrics.Handler())

	api := router.Group("/api/v1")
	for _, registrar := range deps.Registrars {
		registrar.RegisterRoutes(api)
	}

	if deps.Env != "production" && len(deps.DevRegistrars) > 0 {
		dev := api.Group("/dev")
		for _, registrar := range deps.DevRegistrars {
			registrar.RegisterDevRoutes(dev)
		}
	}

	return router
}

// Addr normalizes a port value into a listen address.
func Addr(port string) string {
	port = strings.TrimSpace(port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}
