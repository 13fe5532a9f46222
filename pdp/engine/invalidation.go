package engine

import (
	authz_errors "github.com/dev-mohitbeniwal/authz/errors"
	logger "github.com/dev-mohitbeniwal/authz/logging"
	"github.com/dev-mohitbeniwal/authz/pdp/cache"
	pdp_model "github.com/dev-mohitbeniwal/authz/pdp/model"
	"go.uber.org/zap"
)

// Invalidator is notified when source-of-truth data changes. Each hook
// removes exactly the cached data the change could have made stale.
type Invalidator interface {
	OnRoleAssignmentChanged(tenantID, userID string)
	OnPolicyChanged(tenantID, policyID string)
	OnPermissionChanged(permissionID string)
	OnRoleChanged(tenantID, roleID string)
	OnTenantChanged(tenantID string)
}

var _ Invalidator = (*Caches)(nil)

func (c *Caches) OnRoleAssignmentChanged(tenantID, userID string) {
	c.Roles.Invalidate(cache.RolesKey(tenantID, userID))
	n := c.Decisions.InvalidatePrefix(cache.DecisionUserPrefix(tenantID, userID))
	logger.Info("Invalidated role assignment",
		zap.String("tenantID", tenantID), zap.String("userID", userID), zap.Int("decisions", n))
}

// OnPolicyChanged drops the tenant's policy lists and decisions. An empty
// tenant means the owner is unknown, so every tenant is dropped.
func (c *Caches) OnPolicyChanged(tenantID, policyID string) {
	if tenantID == "" {
		c.Policies.InvalidatePrefix(cache.AllPoliciesPrefix)
		c.Decisions.Clear()
		logger.Info("Invalidated policy for all tenants", zap.String("policyID", policyID))
		return
	}
	c.Policies.InvalidatePrefix(cache.PoliciesTenantPrefix(tenantID))
	n := c.Decisions.InvalidatePrefix(cache.DecisionTenantPrefix(tenantID))
	logger.Info("Invalidated policy",
		zap.String("tenantID", tenantID), zap.String("policyID", policyID), zap.Int("decisions", n))
}

// OnPermissionChanged clears every role set and decision, since any role in
// any tenant may hold the permission.
func (c *Caches) OnPermissionChanged(permissionID string) {
	c.Policies.Invalidate(cache.PermissionKey(permissionID))
	c.Roles.Clear()
	c.Decisions.Clear()
	logger.Info("Invalidated permission", zap.String("permissionID", permissionID))
}

func (c *Caches) OnRoleChanged(tenantID, roleID string) {
	c.Roles.InvalidatePrefix(cache.RolesTenantPrefix(tenantID))
	n := c.Decisions.InvalidatePrefix(cache.DecisionTenantPrefix(tenantID))
	logger.Info("Invalidated role",
		zap.String("tenantID", tenantID), zap.String("roleID", roleID), zap.Int("decisions", n))
}

func (c *Caches) OnTenantChanged(tenantID string) {
	c.Policies.InvalidatePrefix(cache.PoliciesTenantPrefix(tenantID))
	c.Roles.InvalidatePrefix(cache.RolesTenantPrefix(tenantID))
	n := c.Decisions.InvalidatePrefix(cache.DecisionTenantPrefix(tenantID))
	logger.Info("Invalidated tenant", zap.String("tenantID", tenantID), zap.Int("decisions", n))
}

// ApplyInvalidation routes an event to the matching hook.
func ApplyInvalidation(inv Invalidator, ev pdp_model.InvalidationEvent) error {
	if err := ev.Validate(); err != nil {
		return authz_errors.NewValidationError("type", err.Error())
	}
	switch ev.Type {
	case pdp_model.InvalidateRoleAssignment:
		inv.OnRoleAssignmentChanged(ev.TenantID, ev.UserID)
	case pdp_model.InvalidatePolicy:
		inv.OnPolicyChanged(ev.TenantID, ev.PolicyID)
	case pdp_model.InvalidatePermission:
		inv.OnPermissionChanged(ev.PermissionID)
	case pdp_model.InvalidateRole:
		inv.OnRoleChanged(ev.TenantID, ev.RoleID)
	case pdp_model.InvalidateTenant:
		inv.OnTenantChanged(ev.TenantID)
	}
	return nil
}
