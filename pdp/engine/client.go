package engine

import (
	"context"

	"github.com/dev-mohitbeniwal/authz/model"
)

// EntityClient reads roles, permissions and policies from the system of
// record. Implementations return *errors.EntityServiceError on failure and
// errors.ErrPermissionNotFound for a missing permission.
type EntityClient interface {
	GetRolesForUser(ctx context.Context, tenantID, userID string) ([]model.Role, error)
	GetPermission(ctx context.Context, permissionID string) (*model.Permission, error)
	ListActivePolicies(ctx context.Context, tenantID string, policyType model.PolicyType) ([]model.Policy, error)
}
