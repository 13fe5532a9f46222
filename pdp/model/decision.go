package model

import (
	"strings"
	"time"
)

type Decision string

const (
	DecisionAllow Decision = "ALLOW"
	DecisionDeny  Decision = "DENY"
)

// Reason code prefixes. Codes that name a rule or permission carry it after a ':'.
const (
	ReasonRBACMatch            = "RBAC_MATCH"
	ReasonRBACPolicyAllow      = "RBAC_POLICY_ALLOW"
	ReasonRBACPolicyDeny       = "RBAC_POLICY_DENY"
	ReasonABACMatch            = "ABAC_MATCH"
	ReasonABACDeny             = "ABAC_DENY"
	ReasonABACConditionFailed  = "ABAC_CONDITION_FAILED"
	ReasonOwnerMatch           = "OWNER_MATCH"
	ReasonOwnershipPolicyAllow = "OWNERSHIP_POLICY_ALLOW"
	ReasonOwnershipPolicyDeny  = "OWNERSHIP_POLICY_DENY"
	ReasonDefaultDeny          = "DEFAULT_DENY"
	ReasonEvaluationError      = "EVALUATION_ERROR"
	ReasonTenantMismatch       = "TENANT_MISMATCH"
)

// ReasonCode joins a code with the id it refers to.
func ReasonCode(code, id string) string {
	if id == "" {
		return code
	}
	return code + ":" + id
}

// ReasonPrefix returns the code without its subject id.
func ReasonPrefix(reason string) string {
	code, _, _ := strings.Cut(reason, ":")
	return code
}

type DecisionMetadata struct {
	Timestamp     time.Time `json:"timestamp"`
	CorrelationID string    `json:"correlation_id"`
}

type AuthorizationDecision struct {
	Decision          Decision         `json:"decision"`
	ReasonCodes       []string         `json:"reason_codes"`
	PolicyVersion     string           `json:"policy_version"`
	EvaluatedPolicies []string         `json:"evaluated_policies"`
	Metadata          DecisionMetadata `json:"metadata"`
}

func (d *AuthorizationDecision) Allowed() bool {
	return d != nil && d.Decision == DecisionAllow
}

// Clone returns a deep copy so cached decisions are never shared with callers.
func (d AuthorizationDecision) Clone() AuthorizationDecision {
	d.ReasonCodes = append([]string(nil), d.ReasonCodes...)
	d.EvaluatedPolicies = append([]string{}, d.EvaluatedPolicies...)
	return d
}

type BatchDecision struct {
	AuthorizationDecision
	RequestIndex int `json:"request_index"`
}

type BatchAuthorizationResponse struct {
	Decisions []BatchDecision  `json:"decisions"`
	Metadata  DecisionMetadata `json:"metadata"`
}
