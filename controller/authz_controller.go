// controller/authz_controller.go
package controller

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dev-mohitbeniwal/authz/audit"
	authz_errors "github.com/dev-mohitbeniwal/authz/errors"
	"github.com/dev-mohitbeniwal/authz/middleware"
	pdp_model "github.com/dev-mohitbeniwal/authz/pdp/model"
	"github.com/dev-mohitbeniwal/authz/service"
	"github.com/dev-mohitbeniwal/authz/util"
	helper_util "github.com/dev-mohitbeniwal/authz/util/helper"
)

const (
	defaultAuditPageSize = 10
	maxAuditPageSize     = 500
)

type AuthzController struct {
	authzService service.IAuthzService
}

func NewAuthzController(authzService service.IAuthzService) *AuthzController {
	return &AuthzController{
		authzService: authzService,
	}
}

// RegisterRoutes registers the API routes
func (ac *AuthzController) RegisterRoutes(r *gin.RouterGroup) {
	authz := r.Group("/authz")
	{
		authz.POST("/check", ac.CheckAuthorization)
		authz.POST("/check/batch", ac.CheckAuthorizationBatch)
	}
	r.GET("/audit/decisions", ac.QueryDecisions)
}

// CheckAuthorization endpoint
func (ac *AuthzController) CheckAuthorization(c *gin.Context) {
	var req pdp_model.AuthorizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid authorization request", err)
		return
	}

	decision, err := ac.authzService.CheckAuthorization(c.Request.Context(), req, middleware.PrincipalFromContext(c))
	if err != nil {
		respondWithServiceError(c, "Authorization check failed", err)
		return
	}
	c.JSON(http.StatusOK, decision)
}

// CheckAuthorizationBatch endpoint
func (ac *AuthzController) CheckAuthorizationBatch(c *gin.Context) {
	var req pdp_model.BatchAuthorizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid batch authorization request", err)
		return
	}

	resp, err := ac.authzService.CheckAuthorizationBatch(c.Request.Context(), req, middleware.PrincipalFromContext(c))
	if err != nil {
		respondWithServiceError(c, "Batch authorization check failed", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// QueryDecisions endpoint. Callers with a tenant only see their tenant.
func (ac *AuthzController) QueryDecisions(c *gin.Context) {
	page, err := helper_util.GetPaginationParams(c, defaultAuditPageSize, maxAuditPageSize)
	if err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid pagination parameters", err)
		return
	}

	q := audit.DecisionQuery{
		TenantID: c.Query("tenant_id"),
		UserID:   c.Query("user_id"),
		Decision: c.Query("decision"),
		Limit:    page.Limit,
		Offset:   page.Offset,
	}
	for name, dst := range map[string]*time.Time{"from": &q.From, "to": &q.To} {
		if raw := c.Query(name); raw != "" {
			if *dst, err = helper_util.ParseTime(raw); err != nil {
				util.RespondWithError(c, http.StatusBadRequest, "Invalid "+name+" timestamp", err)
				return
			}
		}
	}
	if p := middleware.PrincipalFromContext(c); p != nil && p.TenantID != "" {
		if q.TenantID != "" && q.TenantID != p.TenantID {
			util.RespondWithError(c, http.StatusForbidden, "Forbidden", authz_errors.ErrTenantMismatch)
			return
		}
		q.TenantID = p.TenantID
	}

	logs, err := ac.authzService.QueryDecisions(c.Request.Context(), q)
	if err != nil {
		if errors.Is(err, authz_errors.ErrAuditDisabled) {
			util.RespondWithError(c, http.StatusNotImplemented, "Decision audit is not enabled", err)
			return
		}
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to query decisions", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"decisions": logs, "limit": page.Limit, "offset": page.Offset})
}

func respondWithServiceError(c *gin.Context, message string, err error) {
	if errors.Is(err, authz_errors.ErrValidation) {
		util.RespondWithError(c, http.StatusBadRequest, message, err)
		return
	}
	util.RespondWithError(c, http.StatusInternalServerError, message, authz_errors.ErrInternalServer)
}
