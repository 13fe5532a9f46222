// model/policy.go
package model

import "time"

type PolicyType string

const (
	PolicyTypeRBAC      PolicyType = "rbac"
	PolicyTypeABAC      PolicyType = "abac"
	PolicyTypeOwnership PolicyType = "ownership"
)

// PolicyTypes lists every policy type in evaluation order.
var PolicyTypes = []PolicyType{PolicyTypeRBAC, PolicyTypeABAC, PolicyTypeOwnership}

func (t PolicyType) Valid() bool {
	switch t {
	case PolicyTypeRBAC, PolicyTypeABAC, PolicyTypeOwnership:
		return true
	}
	return false
}

type Effect string

const (
	EffectAllow Effect = "allow"
	EffectDeny  Effect = "deny"
)

const (
	MinRulePriority = 0
	MaxRulePriority = 1000
)

type Policy struct {
	ID          string     `json:"policy_id"`
	TenantID    string     `json:"tenant_id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Type        PolicyType `json:"policy_type"`
	Rules       []Rule     `json:"rules"`
	Active      bool       `json:"active"`
	Version     string     `json:"version"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Rule targets are optional; an empty ResourceType, Actions or Roles matches
// any request.
type Rule struct {
	ID           string    `json:"rule_id,omitempty"`
	Effect       Effect    `json:"effect"`
	Conditions   Condition `json:"conditions,omitempty"`
	Priority     int       `json:"priority"`
	ResourceType string    `json:"resource_type,omitempty"`
	Actions      []string  `json:"actions,omitempty"`
	Roles        []string  `json:"roles,omitempty"`
}
