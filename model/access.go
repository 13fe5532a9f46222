// model/access.go
package model

import "time"

// Role is a read-only copy of an entity-service role as assigned to one user.
// ValidFrom/ValidUntil carry the assignment's validity window.
type Role struct {
	ID            string       `json:"role_id"`
	TenantID      string       `json:"tenant_id"`
	Name          string       `json:"name"`
	PermissionIDs []string     `json:"permission_ids,omitempty"`
	Permissions   []Permission `json:"permissions,omitempty"`
	ValidFrom     *time.Time   `json:"valid_from,omitempty"`
	ValidUntil    *time.Time   `json:"valid_until,omitempty"`
}

// ActiveAt reports whether the assignment window contains t.
func (r Role) ActiveAt(t time.Time) bool {
	if r.ValidFrom != nil && t.Before(*r.ValidFrom) {
		return false
	}
	if r.ValidUntil != nil && !t.Before(*r.ValidUntil) {
		return false
	}
	return true
}

type Permission struct {
	ID           string    `json:"permission_id"`
	Name         string    `json:"name,omitempty"`
	ResourceType string    `json:"resource_type"`
	Action       string    `json:"action"`
	Condition    Condition `json:"conditions,omitempty"`
}

// Conditional reports whether the permission defers to attribute evaluation.
func (p Permission) Conditional() bool {
	return len(p.Condition) > 0
}
