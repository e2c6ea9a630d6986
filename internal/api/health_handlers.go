package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthCheck handles GET /health: database reachability is the only
// thing that gates readiness, since every other component degrades to
// per-request errors rather than total unavailability.
func (h *Handler) HealthCheck(c *gin.Context) {
	if !dbHealthy() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// Metrics handles GET /metrics: a JSON object for external scraping
// whose only field is db_healthy; no counters are reported.
func (h *Handler) Metrics(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"db_healthy": dbHealthy(),
	})
}
