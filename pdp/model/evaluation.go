package model

import (
	authz_model "github.com/dev-mohitbeniwal/authz/model"
)

// Outcome is one rule or permission that matched during evaluation.
type Outcome struct {
	RuleID   string
	PolicyID string
	Effect   authz_model.Effect
	Priority int
	Reason   string
	// Order is the position the outcome was produced in; it breaks priority ties.
	Order int
}

// BatchItemResult is one slot of a batch: either a decision or the error
// that prevented one.
type BatchItemResult struct {
	Index    int
	Decision *AuthorizationDecision
	Err      error
}
