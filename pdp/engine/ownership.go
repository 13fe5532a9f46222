package engine

import (
	"github.com/dev-mohitbeniwal/authz/model"
	pdp_model "github.com/dev-mohitbeniwal/authz/pdp/model"
)

var ownershipCodes = reasonSet{allow: pdp_model.ReasonOwnershipPolicyAllow, deny: pdp_model.ReasonOwnershipPolicyDeny}

// DefaultOwnershipActions are the actions an owner may take on their own resource.
var DefaultOwnershipActions = []string{pdp_model.ActionRead, pdp_model.ActionUpdate, pdp_model.ActionDelete}

func ownerEligible(userID, ownerID, action string, ownershipActions []string) bool {
	return ownerID != "" && ownerID == userID && contains(ownershipActions, action)
}

// EvaluateOwnership grants the resource owner the ownership actions and
// evaluates the tenant's ownership policy rules. Its grant is never final;
// the caller skips it entirely once a deny is established.
func EvaluateOwnership(ownerID string, t *Target, ownershipActions []string, policies []*CompiledPolicy, seq *sequence) (*EvaluatorResult, error) {
	res := &EvaluatorResult{}
	if ownerEligible(t.UserID, ownerID, t.Action, ownershipActions) {
		res.Outcomes = append(res.Outcomes, pdp_model.Outcome{
			Effect: model.EffectAllow,
			Reason: pdp_model.ReasonOwnerMatch,
			Order:  seq.next(),
		})
	}

	rr, err := evaluatePolicyRules(policies, t, ownershipCodes, seq)
	if err != nil {
		return nil, err
	}
	res.absorb(rr)
	return res, nil
}
