package engine

import (
	authz_errors "github.com/dev-mohitbeniwal/authz/errors"
	"github.com/dev-mohitbeniwal/authz/model"
	pdp_model "github.com/dev-mohitbeniwal/authz/pdp/model"
)

var abacCodes = reasonSet{
	allow:  pdp_model.ReasonABACMatch,
	deny:   pdp_model.ReasonABACDeny,
	failed: pdp_model.ReasonABACConditionFailed,
}

// EvaluateABAC checks the conditions of RBAC candidate permissions, then the
// tenant's abac policy rules. Only permissions RBAC already matched are
// considered, so a user without the role never reaches a condition.
func EvaluateABAC(candidates []ResolvedPermission, t *Target, policies []*CompiledPolicy, seq *sequence) (*EvaluatorResult, error) {
	res := &EvaluatorResult{}
	for i := range candidates {
		perm := &candidates[i]
		if perm.compileErr != nil {
			return nil, &authz_errors.EvaluationError{RuleID: perm.Permission.ID, Err: perm.compileErr}
		}
		ok, err := perm.condition.Evaluate(t.Attributes)
		if err != nil {
			return nil, &authz_errors.EvaluationError{RuleID: perm.Permission.ID, Err: err}
		}
		if !ok {
			res.FailedConditions = append(res.FailedConditions,
				pdp_model.ReasonCode(pdp_model.ReasonABACConditionFailed, perm.Permission.ID))
			continue
		}
		res.Outcomes = append(res.Outcomes, pdp_model.Outcome{
			RuleID: perm.Permission.ID,
			Effect: model.EffectAllow,
			Reason: pdp_model.ReasonCode(pdp_model.ReasonABACMatch, perm.Permission.ID),
			Order:  seq.next(),
		})
	}

	rr, err := evaluatePolicyRules(policies, t, abacCodes, seq)
	if err != nil {
		return nil, err
	}
	res.absorb(rr)
	return res, nil
}
