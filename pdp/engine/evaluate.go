package engine

import (
	authz_errors "github.com/dev-mohitbeniwal/authz/errors"
	"github.com/dev-mohitbeniwal/authz/model"
	pdp_model "github.com/dev-mohitbeniwal/authz/pdp/model"
)

// Target is what a single check asks about, in the form evaluators read.
type Target struct {
	UserID       string
	ResourceType string
	Action       string
	RoleNames    map[string]struct{}
	Attributes   map[string]model.AttributeValue
}

func roleNames(roles []ResolvedRole) map[string]struct{} {
	names := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		names[r.Role.Name] = struct{}{}
	}
	return names
}

// sequence numbers outcomes in the order they were produced.
type sequence struct{ n int }

func (s *sequence) next() int {
	if s == nil {
		return 0
	}
	s.n++
	return s.n
}

type reasonSet struct {
	allow string
	deny  string
	// failed is recorded for allow rules whose condition did not hold; empty skips it.
	failed string
}

type ruleResult struct {
	outcomes  []pdp_model.Outcome
	failed    []string
	evaluated []string
}

// evaluatePolicyRules runs every rule that targets the request, in listing
// order. A policy counts as evaluated once one of its rules was targeted.
func evaluatePolicyRules(policies []*CompiledPolicy, t *Target, codes reasonSet, seq *sequence) (ruleResult, error) {
	var res ruleResult
	for _, p := range policies {
		consulted := false
		for i := range p.rules {
			rule := &p.rules[i]
			if !rule.targets(t.ResourceType, t.Action, t.RoleNames) {
				continue
			}
			consulted = true
			if rule.compileErr != nil {
				return res, &authz_errors.EvaluationError{RuleID: rule.id, Err: rule.compileErr}
			}
			ok, err := rule.condition.Evaluate(t.Attributes)
			if err != nil {
				return res, &authz_errors.EvaluationError{RuleID: rule.id, Err: err}
			}
			if !ok {
				if rule.effect == model.EffectAllow && codes.failed != "" {
					res.failed = append(res.failed, pdp_model.ReasonCode(codes.failed, rule.id))
				}
				continue
			}
			code := codes.allow
			if rule.effect == model.EffectDeny {
				code = codes.deny
			}
			res.outcomes = append(res.outcomes, pdp_model.Outcome{
				RuleID:   rule.id,
				PolicyID: p.ID,
				Effect:   rule.effect,
				Priority: rule.priority,
				Reason:   pdp_model.ReasonCode(code, rule.id),
				Order:    seq.next(),
			})
		}
		if consulted {
			res.evaluated = append(res.evaluated, p.ID)
		}
	}
	return res, nil
}

// EvaluatorResult is what each evaluator stage contributes to a decision.
type EvaluatorResult struct {
	Outcomes          []pdp_model.Outcome
	FailedConditions  []string
	EvaluatedPolicies []string
}

func (r *EvaluatorResult) Granted() bool {
	w := resolve(r.Outcomes)
	return w != nil && w.Effect == model.EffectAllow
}

func (r *EvaluatorResult) Denied() bool {
	w := resolve(r.Outcomes)
	return w != nil && w.Effect == model.EffectDeny
}

func (r *EvaluatorResult) absorb(rr ruleResult) {
	r.Outcomes = append(r.Outcomes, rr.outcomes...)
	r.FailedConditions = append(r.FailedConditions, rr.failed...)
	r.EvaluatedPolicies = append(r.EvaluatedPolicies, rr.evaluated...)
}
