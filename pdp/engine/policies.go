package engine

import (
	"context"
	"fmt"
	"strings"

	logger "github.com/dev-mohitbeniwal/authz/logging"
	"github.com/dev-mohitbeniwal/authz/model"
	"github.com/dev-mohitbeniwal/authz/pdp/cache"
	"github.com/sourcegraph/conc/panics"
	"go.uber.org/zap"
	"golang.org/x/mod/semver"
	"golang.org/x/sync/errgroup"
)

// PolicySet is a tenant's active policies grouped by type, in listing order.
type PolicySet map[model.PolicyType][]*CompiledPolicy

// loadPolicies fetches the three policy types concurrently, each through the
// policy cache.
func (e *Engine) loadPolicies(ctx context.Context, tenantID string) (PolicySet, error) {
	lists := make([][]*CompiledPolicy, len(model.PolicyTypes))
	g, gctx := errgroup.WithContext(ctx)
	for i, typ := range model.PolicyTypes {
		i, typ := i, typ
		g.Go(func() (err error) {
			var pc panics.Catcher
			pc.Try(func() {
				lists[i], err = e.policiesOfType(gctx, tenantID, typ)
			})
			if r := pc.Recovered(); r != nil {
				err = r.AsError()
			}
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	set := make(PolicySet, len(lists))
	for i, typ := range model.PolicyTypes {
		set[typ] = lists[i]
	}
	return set, nil
}

func (e *Engine) policiesOfType(ctx context.Context, tenantID string, typ model.PolicyType) ([]*CompiledPolicy, error) {
	key := cache.PoliciesKey(tenantID, string(typ))
	if v, ok := cacheGet(e.caches.Policies, key); ok {
		if list, ok := v.([]*CompiledPolicy); ok {
			return list, nil
		}
	}

	version := cacheVersion(e.caches.Policies)
	policies, err := e.client.ListActivePolicies(ctx, tenantID, typ)
	if err != nil {
		return nil, fmt.Errorf("listing %s policies for tenant %s: %w", typ, tenantID, err)
	}

	compiled := make([]*CompiledPolicy, 0, len(policies))
	for _, p := range policies {
		if p.TenantID != tenantID {
			logger.Warn("Dropping policy scoped to another tenant",
				zap.String("policyID", p.ID), zap.String("policyTenant", p.TenantID), zap.String("tenantID", tenantID))
			continue
		}
		if p.Type != typ {
			continue
		}
		compiled = append(compiled, compilePolicy(p))
	}
	cachePut[any](e.caches.Policies, key, compiled, 0, version)
	return compiled, nil
}

// Version is the highest semantic version among the set's policies, or
// fallback when none carries a valid one.
func (s PolicySet) Version(fallback string) string {
	best := ""
	for _, list := range s {
		for _, p := range list {
			v := canonicalVersion(p.Version)
			if v == "" {
				if p.Version != "" {
					logger.Debug("Ignoring non-semver policy version",
						zap.String("policyID", p.ID), zap.String("version", p.Version))
				}
				continue
			}
			if best == "" || semver.Compare(v, best) > 0 {
				best = v
			}
		}
	}
	if best == "" {
		return fallback
	}
	return strings.TrimPrefix(best, "v")
}

func canonicalVersion(v string) string {
	if v == "" {
		return ""
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return ""
	}
	return v
}
