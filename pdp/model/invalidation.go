package model

import "fmt"

type InvalidationType string

const (
	InvalidateRoleAssignment InvalidationType = "role_assignment_changed"
	InvalidatePolicy         InvalidationType = "policy_changed"
	InvalidatePermission     InvalidationType = "permission_changed"
	InvalidateRole           InvalidationType = "role_changed"
	InvalidateTenant         InvalidationType = "tenant_changed"
)

// InvalidationEvent announces a change in the entity service. It arrives
// over HTTP or the Redis invalidation channel.
type InvalidationEvent struct {
	Type         InvalidationType `json:"type"`
	TenantID     string           `json:"tenant_id,omitempty"`
	UserID       string           `json:"user_id,omitempty"`
	PolicyID     string           `json:"policy_id,omitempty"`
	PermissionID string           `json:"permission_id,omitempty"`
	RoleID       string           `json:"role_id,omitempty"`
}

// Validate checks that the identifiers the event type needs are present.
func (e InvalidationEvent) Validate() error {
	missing := func(field string) error {
		return fmt.Errorf("%s event requires %s", e.Type, field)
	}
	switch e.Type {
	case InvalidateRoleAssignment:
		if e.TenantID == "" {
			return missing("tenant_id")
		}
		if e.UserID == "" {
			return missing("user_id")
		}
	case InvalidatePolicy:
		if e.PolicyID == "" {
			return missing("policy_id")
		}
	case InvalidatePermission:
		if e.PermissionID == "" {
			return missing("permission_id")
		}
	case InvalidateRole:
		if e.TenantID == "" {
			return missing("tenant_id")
		}
	case InvalidateTenant:
		if e.TenantID == "" {
			return missing("tenant_id")
		}
	default:
		return fmt.Errorf("unknown invalidation event type %q", e.Type)
	}
	return nil
}
