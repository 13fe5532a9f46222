// controller/health_controller.go
package controller

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type ServiceInfo struct {
	Name        string
	Version     string
	Environment string
}

type HealthController struct {
	info ServiceInfo
	now  func() time.Time
}

func NewHealthController(info ServiceInfo) *HealthController {
	return &HealthController{info: info, now: time.Now}
}

// RegisterRoutes registers the health routes at the root
func (hc *HealthController) RegisterRoutes(r gin.IRoutes) {
	r.GET("/health", hc.Health)
	r.GET("/healthz", hc.Health)
}

func (hc *HealthController) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "healthy",
		"service":     hc.info.Name,
		"version":     hc.info.Version,
		"environment": hc.info.Environment,
		"timestamp":   hc.now().UTC().Format(time.RFC3339),
	})
}
