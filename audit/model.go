// audit/model.go
package audit

import "time"

// DecisionLog is one authorization decision as stored in the audit index.
type DecisionLog struct {
	Timestamp     time.Time `json:"timestamp"`
	CorrelationID string    `json:"correlation_id"`
	TenantID      string    `json:"tenant_id"`
	UserID        string    `json:"user_id"`
	Resource      string    `json:"resource"`
	Action        string    `json:"action"`
	Decision      string    `json:"decision"`
	ReasonCodes   []string  `json:"reason_codes"`
	// Reasons holds ReasonCodes without subject ids, for aggregation.
	Reasons           []string `json:"reasons"`
	PolicyVersion     string   `json:"policy_version"`
	EvaluatedPolicies []string `json:"evaluated_policies"`
	WinningRule       string   `json:"winning_rule,omitempty"`
	Cached            bool     `json:"cached"`
	LatencyMillis     float64  `json:"latency_ms"`
	Error             string   `json:"error,omitempty"`
}

// DecisionQuery filters the audit trail. Zero values are ignored.
type DecisionQuery struct {
	From     time.Time
	To       time.Time
	TenantID string
	UserID   string
	Decision string
	Limit    int
	Offset   int
}
