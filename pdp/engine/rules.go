package engine

import (
	"fmt"
	"sort"

	"github.com/dev-mohitbeniwal/authz/model"
	pdp_model "github.com/dev-mohitbeniwal/authz/pdp/model"
)

type compiledRule struct {
	id           string
	policyID     string
	effect       model.Effect
	priority     int
	resourceType string
	actions      []string
	roles        []string
	condition    *CompiledCondition
	// compileErr makes the rule unevaluable; it surfaces only if the rule is targeted.
	compileErr error
}

// targets reports whether the rule's resource/action/role targets cover the request.
func (r *compiledRule) targets(resourceType, action string, roleNames map[string]struct{}) bool {
	if r.resourceType != "" && r.resourceType != resourceType {
		return false
	}
	if len(r.actions) > 0 && !contains(r.actions, action) {
		return false
	}
	if len(r.roles) > 0 {
		for _, role := range r.roles {
			if _, ok := roleNames[role]; ok {
				return true
			}
		}
		return false
	}
	return true
}

// CompiledPolicy is an active policy with its rules ready for evaluation.
type CompiledPolicy struct {
	ID       string
	TenantID string
	Type     model.PolicyType
	Version  string
	rules    []compiledRule
}

func compilePolicy(p model.Policy) *CompiledPolicy {
	cp := &CompiledPolicy{
		ID:       p.ID,
		TenantID: p.TenantID,
		Type:     p.Type,
		Version:  p.Version,
		rules:    make([]compiledRule, 0, len(p.Rules)),
	}
	for i, r := range p.Rules {
		rule := compiledRule{
			id:           r.ID,
			policyID:     p.ID,
			effect:       r.Effect,
			priority:     r.Priority,
			resourceType: r.ResourceType,
			actions:      r.Actions,
			roles:        r.Roles,
		}
		if rule.id == "" {
			rule.id = fmt.Sprintf("%s#%d", p.ID, i)
		}
		switch {
		case r.Effect != model.EffectAllow && r.Effect != model.EffectDeny:
			rule.compileErr = fmt.Errorf("unknown effect %q", r.Effect)
		case r.Priority < model.MinRulePriority || r.Priority > model.MaxRulePriority:
			rule.compileErr = fmt.Errorf("priority %d outside [%d, %d]", r.Priority, model.MinRulePriority, model.MaxRulePriority)
		default:
			rule.condition, rule.compileErr = CompileCondition(r.Conditions)
		}
		cp.rules = append(cp.rules, rule)
	}
	return cp
}

// hasAllowTargeting reports whether any allow rule in policies could apply to the request.
func hasAllowTargeting(policies []*CompiledPolicy, resourceType, action string, roleNames map[string]struct{}) bool {
	for _, p := range policies {
		for i := range p.rules {
			r := &p.rules[i]
			if r.effect == model.EffectAllow && r.targets(resourceType, action, roleNames) {
				return true
			}
		}
	}
	return false
}

// resolve picks the winning outcome: any deny beats any allow, then the
// highest priority, then the earliest evaluated. It returns nil when there is
// nothing to resolve.
func resolve(outcomes []pdp_model.Outcome) *pdp_model.Outcome {
	if len(outcomes) == 0 {
		return nil
	}
	ranked := make([]pdp_model.Outcome, len(outcomes))
	copy(ranked, outcomes)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if (a.Effect == model.EffectDeny) != (b.Effect == model.EffectDeny) {
			return a.Effect == model.EffectDeny
		}
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		return a.Order < b.Order
	})
	return &ranked[0]
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
