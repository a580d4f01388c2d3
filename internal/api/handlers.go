package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"filefeed/internal/ingest"
)

// API exposes the pipeline's operational surface: liveness and counters.
type API struct {
	service *ingest.Service
}

func NewAPI(service *ingest.Service) *API {
	return &API{service: service}
}

// RegisterRoutes registers API routes on the provided gin engine
func (a *API) RegisterRoutes(router *gin.Engine) {
	router.GET("/healthz", a.Health)
	api := router.Group("/api/v1")
	{
		api.GET("/stats", a.Stats)
	}
}

// Health reports liveness.
func (a *API) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Stats returns the pipeline counters and current pool load.
func (a *API) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, a.service.StatsSnapshot())
}
