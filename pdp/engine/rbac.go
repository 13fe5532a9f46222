package engine

import (
	"github.com/dev-mohitbeniwal/authz/model"
	pdp_model "github.com/dev-mohitbeniwal/authz/pdp/model"
)

type RBACResult struct {
	EvaluatorResult
	// MatchedPermissions are every permission whose resource type and action
	// match, conditional or not.
	MatchedPermissions []string
	// Candidates are the matched permissions that carry a condition for ABAC.
	Candidates []ResolvedPermission
}

var rbacCodes = reasonSet{allow: pdp_model.ReasonRBACPolicyAllow, deny: pdp_model.ReasonRBACPolicyDeny}

// EvaluateRBAC matches role permissions against the request and evaluates the
// tenant's rbac policies.
func EvaluateRBAC(roles []ResolvedRole, t *Target, policies []*CompiledPolicy, seq *sequence) (*RBACResult, error) {
	res := &RBACResult{}
	seen := make(map[string]struct{})
	for _, role := range roles {
		for i := range role.Permissions {
			perm := &role.Permissions[i]
			if perm.Permission.ResourceType != t.ResourceType || perm.Permission.Action != t.Action {
				continue
			}
			if _, dup := seen[perm.Permission.ID]; dup {
				continue
			}
			seen[perm.Permission.ID] = struct{}{}
			res.MatchedPermissions = append(res.MatchedPermissions, perm.Permission.ID)

			if perm.Conditional() {
				res.Candidates = append(res.Candidates, *perm)
				continue
			}
			res.Outcomes = append(res.Outcomes, pdp_model.Outcome{
				RuleID: perm.Permission.ID,
				Effect: model.EffectAllow,
				Reason: pdp_model.ReasonCode(pdp_model.ReasonRBACMatch, perm.Permission.ID),
				Order:  seq.next(),
			})
		}
	}

	rr, err := evaluatePolicyRules(policies, t, rbacCodes, seq)
	if err != nil {
		return nil, err
	}
	res.absorb(rr)
	return res, nil
}
