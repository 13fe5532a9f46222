// controller/cache_controller.go
package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	pdp_model "github.com/dev-mohitbeniwal/authz/pdp/model"
	"github.com/dev-mohitbeniwal/authz/service"
	"github.com/dev-mohitbeniwal/authz/util"
)

// CacheController exposes the invalidation hooks and cache statistics to
// the entity service and operators.
type CacheController struct {
	authzService service.IAuthzService
}

func NewCacheController(authzService service.IAuthzService) *CacheController {
	return &CacheController{
		authzService: authzService,
	}
}

// RegisterRoutes registers the API routes
func (cc *CacheController) RegisterRoutes(r *gin.RouterGroup) {
	cache := r.Group("/cache")
	{
		cache.GET("/stats", cc.GetStats)
		cache.DELETE("", cc.Clear)
		cache.POST("/invalidate", cc.Invalidate)
		cache.POST("/invalidate/tenants/:tenant_id", cc.InvalidateTenant)
		cache.POST("/invalidate/tenants/:tenant_id/users/:user_id", cc.InvalidateRoleAssignment)
		cache.POST("/invalidate/tenants/:tenant_id/roles/:role_id", cc.InvalidateRole)
		cache.POST("/invalidate/policies/:policy_id", cc.InvalidatePolicy)
		cache.POST("/invalidate/permissions/:permission_id", cc.InvalidatePermission)
	}
}

// Invalidate accepts a raw invalidation event
func (cc *CacheController) Invalidate(c *gin.Context) {
	var ev pdp_model.InvalidationEvent
	if err := c.ShouldBindJSON(&ev); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid invalidation event", err)
		return
	}
	cc.apply(c, ev)
}

func (cc *CacheController) InvalidateRoleAssignment(c *gin.Context) {
	cc.apply(c, pdp_model.InvalidationEvent{
		Type:     pdp_model.InvalidateRoleAssignment,
		TenantID: c.Param("tenant_id"),
		UserID:   c.Param("user_id"),
	})
}

// InvalidatePolicy drops every tenant's policies unless tenant_id is given.
func (cc *CacheController) InvalidatePolicy(c *gin.Context) {
	cc.apply(c, pdp_model.InvalidationEvent{
		Type:     pdp_model.InvalidatePolicy,
		TenantID: c.Query("tenant_id"),
		PolicyID: c.Param("policy_id"),
	})
}

func (cc *CacheController) InvalidatePermission(c *gin.Context) {
	cc.apply(c, pdp_model.InvalidationEvent{
		Type:         pdp_model.InvalidatePermission,
		PermissionID: c.Param("permission_id"),
	})
}

func (cc *CacheController) InvalidateRole(c *gin.Context) {
	cc.apply(c, pdp_model.InvalidationEvent{
		Type:     pdp_model.InvalidateRole,
		TenantID: c.Param("tenant_id"),
		RoleID:   c.Param("role_id"),
	})
}

func (cc *CacheController) InvalidateTenant(c *gin.Context) {
	cc.apply(c, pdp_model.InvalidationEvent{
		Type:     pdp_model.InvalidateTenant,
		TenantID: c.Param("tenant_id"),
	})
}

func (cc *CacheController) apply(c *gin.Context, ev pdp_model.InvalidationEvent) {
	if err := cc.authzService.Invalidate(c.Request.Context(), ev); err != nil {
		respondWithServiceError(c, "Invalidation failed", err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "invalidated", "event": ev})
}

// Clear drops every cached entry
func (cc *CacheController) Clear(c *gin.Context) {
	cc.authzService.ClearCaches(c.Request.Context())
	c.Status(http.StatusNoContent)
}

type cacheStatsResponse struct {
	pdp_model.CacheStats
	HitRate float64 `json:"hit_rate"`
}

// GetStats endpoint
func (cc *CacheController) GetStats(c *gin.Context) {
	stats := cc.authzService.CacheStats(c.Request.Context())
	resp := make(map[string]cacheStatsResponse, len(stats))
	for name, s := range stats {
		resp[name] = cacheStatsResponse{CacheStats: s, HitRate: s.HitRate()}
	}
	c.JSON(http.StatusOK, gin.H{"caches": resp})
}
