package model

import (
	"strings"
	"time"
)

const (
	ActionCreate  = "create"
	ActionRead    = "read"
	ActionUpdate  = "update"
	ActionDelete  = "delete"
	ActionExecute = "execute"
)

// StandardActions are always accepted; deployments may configure more.
var StandardActions = []string{ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionExecute}

type AuthorizationContext struct {
	TenantID        string         `json:"tenant_id,omitempty"`
	ResourceOwnerID string         `json:"resource_owner_id,omitempty"`
	IPAddress       string         `json:"ip_address,omitempty" validate:"omitempty,ip"`
	Time            *time.Time     `json:"time,omitempty"`
	Attributes      map[string]any `json:"attributes,omitempty"`
}

type AuthorizationRequest struct {
	UserID   string               `json:"user_id" validate:"required,max=200"`
	Resource string               `json:"resource" validate:"required,min=1,max=200"`
	Action   string               `json:"action" validate:"required,authz_action"`
	Context  AuthorizationContext `json:"context"`

	// Principal is the authenticated caller, set by the transport.
	Principal *Principal `json:"-"`
}

// ResourceType returns the part of Resource before the first ':'.
func (r *AuthorizationRequest) ResourceType() string {
	typ, _ := r.ResourceParts()
	return typ
}

// ResourceParts splits "type:id"; a bare "type" has an empty id.
func (r *AuthorizationRequest) ResourceParts() (string, string) {
	typ, id, _ := strings.Cut(r.Resource, ":")
	return typ, id
}

// Principal is who is asking, as established by authentication. A service
// principal may check on behalf of any user in its tenant.
type Principal struct {
	UserID         string
	TenantID       string
	Roles          []string
	ServiceAccount bool
}

type BatchAuthorizationRequest struct {
	Checks []AuthorizationRequest `json:"checks" validate:"required,min=1,max=100"`
}
