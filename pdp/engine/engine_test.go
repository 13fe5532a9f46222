package engine_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	authz_errors "github.com/dev-mohitbeniwal/authz/errors"
	"github.com/dev-mohitbeniwal/authz/model"
	"github.com/dev-mohitbeniwal/authz/pdp/engine"
	pdp_model "github.com/dev-mohitbeniwal/authz/pdp/model"
	authz_mock "github.com/dev-mohitbeniwal/authz/test/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const tenant = "tenant-a"

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	client *authz_mock.MockEntityClient
	clock  *testClock
	caches *engine.Caches
	engine *engine.Engine
}

func newFixture(t *testing.T, opts engine.Options) *fixture {
	t.Helper()
	clock := &testClock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	client := new(authz_mock.MockEntityClient)
	caches := engine.NewCaches(engine.CacheOptions{MaxSize: 1000, Now: clock.Now})
	opts.Now = clock.Now
	if opts.NewCorrelationID == nil {
		var mu sync.Mutex
		n := 0
		opts.NewCorrelationID = func() string {
			mu.Lock()
			defer mu.Unlock()
			n++
			return fmt.Sprintf("corr-%d", n)
		}
	}
	return &fixture{
		client: client,
		clock:  clock,
		caches: caches,
		engine: engine.New(client, caches, nil, opts),
	}
}

func (f *fixture) roles(userID string, roles ...model.Role) {
	f.client.On("GetRolesForUser", mock.Anything, tenant, userID).Return(roles, nil)
}

func (f *fixture) policies(rbac, abac, ownership []model.Policy) {
	f.client.On("ListActivePolicies", mock.Anything, tenant, model.PolicyTypeRBAC).Return(rbac, nil)
	f.client.On("ListActivePolicies", mock.Anything, tenant, model.PolicyTypeABAC).Return(abac, nil)
	f.client.On("ListActivePolicies", mock.Anything, tenant, model.PolicyTypeOwnership).Return(ownership, nil)
}

func loanOfficer() model.Role {
	return model.Role{
		ID:       "role-loan-officer",
		TenantID: tenant,
		Name:     "loan_officer",
		Permissions: []model.Permission{
			{ID: "perm-loan-read", ResourceType: "loan", Action: "read"},
			{
				ID:           "perm-loan-approve",
				ResourceType: "loan",
				Action:       "approve",
				Condition: model.Condition{
					"amount": {Operator: model.OpLessOrEqual, Value: 10000},
				},
			},
		},
	}
}

func request(userID, resource, action string, attrs map[string]any) *pdp_model.AuthorizationRequest {
	return &pdp_model.AuthorizationRequest{
		UserID:   userID,
		Resource: resource,
		Action:   action,
		Context:  pdp_model.AuthorizationContext{TenantID: tenant, Attributes: attrs},
	}
}

func TestDecideRBACMatch(t *testing.T) {
	f := newFixture(t, engine.Options{})
	f.roles("u1", loanOfficer())
	f.policies(nil, nil, nil)

	d, err := f.engine.Decide(context.Background(), request("u1", "loan:12345", "read", nil))
	require.NoError(t, err)
	assert.Equal(t, pdp_model.DecisionAllow, d.Decision)
	assert.Equal(t, []string{"RBAC_MATCH:perm-loan-read"}, d.ReasonCodes)
	assert.Equal(t, "1.0.0", d.PolicyVersion)
	assert.Empty(t, d.EvaluatedPolicies)
	assert.Equal(t, "corr-1", d.Metadata.CorrelationID)
}

func TestDecideABACCondition(t *testing.T) {
	f := newFixture(t, engine.Options{})
	f.roles("u1", loanOfficer())
	f.policies(nil, nil, nil)

	t.Run("condition fails above the limit", func(t *testing.T) {
		d, err := f.engine.Decide(context.Background(), request("u1", "loan:1", "approve", map[string]any{"amount": 50000}))
		require.NoError(t, err)
		assert.Equal(t, pdp_model.DecisionDeny, d.Decision)
		assert.Equal(t, []string{"ABAC_CONDITION_FAILED:perm-loan-approve"}, d.ReasonCodes)
	})

	t.Run("condition holds within the limit", func(t *testing.T) {
		d, err := f.engine.Decide(context.Background(), request("u1", "loan:1", "approve", map[string]any{"amount": 5000}))
		require.NoError(t, err)
		assert.Equal(t, pdp_model.DecisionAllow, d.Decision)
		assert.Equal(t, []string{"ABAC_MATCH:perm-loan-approve"}, d.ReasonCodes)
	})

	t.Run("missing attribute fails the condition", func(t *testing.T) {
		d, err := f.engine.Decide(context.Background(), request("u1", "loan:1", "approve", nil))
		require.NoError(t, err)
		assert.Equal(t, pdp_model.DecisionDeny, d.Decision)
		assert.Equal(t, []string{"ABAC_CONDITION_FAILED:perm-loan-approve"}, d.ReasonCodes)
	})
}

func TestDecideDefaultDeny(t *testing.T) {
	f := newFixture(t, engine.Options{})
	f.roles("u1")
	f.policies(nil, nil, nil)

	d, err := f.engine.Decide(context.Background(), request("u1", "document:9", "read", nil))
	require.NoError(t, err)
	assert.Equal(t, pdp_model.DecisionDeny, d.Decision)
	assert.Equal(t, []string{"DEFAULT_DENY"}, d.ReasonCodes)
	assert.NotNil(t, d.EvaluatedPolicies)
}

func TestDecideDenyOverridesHigherPriorityAllow(t *testing.T) {
	f := newFixture(t, engine.Options{})
	f.roles("u1", loanOfficer())
	f.policies(nil, []model.Policy{{
		ID:       "pol-abac",
		TenantID: tenant,
		Type:     model.PolicyTypeABAC,
		Version:  "1.2.0",
		Rules: []model.Rule{
			{ID: "allow-all", Effect: model.EffectAllow, Priority: 1000, ResourceType: "loan"},
			{ID: "deny-frozen", Effect: model.EffectDeny, Priority: 0, ResourceType: "loan",
				Conditions: model.Condition{"frozen": {Operator: model.OpEquals, Value: true}}},
		},
	}}, nil)

	d, err := f.engine.Decide(context.Background(), request("u1", "loan:1", "read", map[string]any{"frozen": true}))
	require.NoError(t, err)
	assert.Equal(t, pdp_model.DecisionDeny, d.Decision)
	assert.Equal(t, []string{"ABAC_DENY:deny-frozen"}, d.ReasonCodes)
	assert.Equal(t, []string{"pol-abac"}, d.EvaluatedPolicies)
	assert.Equal(t, "1.2.0", d.PolicyVersion)

	d, err = f.engine.Decide(context.Background(), request("u1", "loan:1", "read", map[string]any{"frozen": false}))
	require.NoError(t, err)
	assert.Equal(t, pdp_model.DecisionAllow, d.Decision)
	assert.Equal(t, []string{"RBAC_MATCH:perm-loan-read", "ABAC_MATCH:allow-all"}, d.ReasonCodes)
}

func TestDecideOwnership(t *testing.T) {
	f := newFixture(t, engine.Options{})
	f.roles("owner")
	f.policies(nil, []model.Policy{{
		ID:       "pol-risk",
		TenantID: tenant,
		Type:     model.PolicyTypeABAC,
		Rules: []model.Rule{{
			ID: "deny-high-risk", Effect: model.EffectDeny,
			Conditions: model.Condition{"risk_level": {Operator: model.OpEquals, Value: "high"}},
		}},
	}}, []model.Policy{{
		ID:       "pol-lock",
		TenantID: tenant,
		Type:     model.PolicyTypeOwnership,
		Rules: []model.Rule{{
			ID: "deny-locked-delete", Effect: model.EffectDeny, Actions: []string{"delete"},
			Conditions: model.Condition{"locked": {Operator: model.OpEquals, Value: true}},
		}},
	}})

	owned := func(action string, attrs map[string]any) *pdp_model.AuthorizationRequest {
		req := request("owner", "document:7", action, attrs)
		req.Context.ResourceOwnerID = "owner"
		return req
	}

	t.Run("owner is allowed", func(t *testing.T) {
		d, err := f.engine.Decide(context.Background(), owned("update", map[string]any{"risk_level": "low"}))
		require.NoError(t, err)
		assert.Equal(t, pdp_model.DecisionAllow, d.Decision)
		assert.Equal(t, []string{"OWNER_MATCH"}, d.ReasonCodes)
	})

	t.Run("explicit deny overrides ownership", func(t *testing.T) {
		d, err := f.engine.Decide(context.Background(), owned("update", map[string]any{"risk_level": "high"}))
		require.NoError(t, err)
		assert.Equal(t, pdp_model.DecisionDeny, d.Decision)
		assert.Equal(t, []string{"ABAC_DENY:deny-high-risk"}, d.ReasonCodes)
		assert.NotContains(t, d.EvaluatedPolicies, "pol-lock", "ownership is skipped after a deny")
	})

	t.Run("ownership policy deny", func(t *testing.T) {
		d, err := f.engine.Decide(context.Background(), owned("delete", map[string]any{"locked": true, "risk_level": "low"}))
		require.NoError(t, err)
		assert.Equal(t, pdp_model.DecisionDeny, d.Decision)
		assert.Equal(t, []string{"OWNERSHIP_POLICY_DENY:deny-locked-delete"}, d.ReasonCodes)
	})

	t.Run("ownership does not cover other actions", func(t *testing.T) {
		d, err := f.engine.Decide(context.Background(), owned("execute", map[string]any{"risk_level": "low"}))
		require.NoError(t, err)
		assert.Equal(t, pdp_model.DecisionDeny, d.Decision)
		assert.Equal(t, []string{"DEFAULT_DENY"}, d.ReasonCodes)
	})
}

func TestDecideCaching(t *testing.T) {
	f := newFixture(t, engine.Options{})
	f.roles("u1", loanOfficer())
	f.policies(nil, nil, nil)
	req := request("u1", "loan:1", "read", map[string]any{"branch": "north"})

	first, err := f.engine.Decide(context.Background(), req)
	require.NoError(t, err)

	f.clock.Advance(10 * time.Second)
	second, err := f.engine.Decide(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first.Decision, second.Decision)
	assert.Equal(t, first.ReasonCodes, second.ReasonCodes)
	assert.Equal(t, first.Metadata.Timestamp, second.Metadata.Timestamp, "cached decision is returned verbatim")
	assert.NotEqual(t, first.Metadata.CorrelationID, second.Metadata.CorrelationID)
	assert.Equal(t, uint64(1), f.caches.Decisions.Stats().Hits)
	f.client.AssertNumberOfCalls(t, "GetRolesForUser", 1)

	// past the 30s decision TTL the decision is recomputed from cached roles
	f.clock.Advance(21 * time.Second)
	third, err := f.engine.Decide(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, third.Metadata.Timestamp.After(first.Metadata.Timestamp))
	assert.Equal(t, first.ReasonCodes, third.ReasonCodes)
	f.client.AssertNumberOfCalls(t, "GetRolesForUser", 1)
	f.client.AssertNumberOfCalls(t, "ListActivePolicies", 3)
}

func TestDecideInvalidationOnPolicyChange(t *testing.T) {
	f := newFixture(t, engine.Options{})
	f.roles("u1", loanOfficer())
	f.client.On("ListActivePolicies", mock.Anything, tenant, model.PolicyTypeRBAC).Return([]model.Policy{}, nil)
	f.client.On("ListActivePolicies", mock.Anything, tenant, model.PolicyTypeOwnership).Return([]model.Policy{}, nil)
	f.client.On("ListActivePolicies", mock.Anything, tenant, model.PolicyTypeABAC).Return([]model.Policy{}, nil).Once()
	f.client.On("ListActivePolicies", mock.Anything, tenant, model.PolicyTypeABAC).Return([]model.Policy{{
		ID: "pol-freeze", TenantID: tenant, Type: model.PolicyTypeABAC, Version: "2.0.0",
		Rules: []model.Rule{{ID: "freeze", Effect: model.EffectDeny, ResourceType: "loan"}},
	}}, nil)

	req := request("u1", "loan:1", "read", nil)
	d, err := f.engine.Decide(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, pdp_model.DecisionAllow, d.Decision)

	d, err = f.engine.Decide(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, pdp_model.DecisionAllow, d.Decision)

	f.engine.Caches().OnPolicyChanged(tenant, "pol-freeze")

	d, err = f.engine.Decide(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, pdp_model.DecisionDeny, d.Decision)
	assert.Equal(t, []string{"ABAC_DENY:freeze"}, d.ReasonCodes)
	assert.Equal(t, "2.0.0", d.PolicyVersion)
}

func TestDecideRoleAssignmentInvalidation(t *testing.T) {
	f := newFixture(t, engine.Options{})
	f.client.On("GetRolesForUser", mock.Anything, tenant, "u1").Return([]model.Role{}, nil).Once()
	f.client.On("GetRolesForUser", mock.Anything, tenant, "u1").Return([]model.Role{loanOfficer()}, nil)
	f.policies(nil, nil, nil)

	req := request("u1", "loan:1", "read", nil)
	d, err := f.engine.Decide(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, pdp_model.DecisionDeny, d.Decision)

	f.engine.Caches().OnRoleAssignmentChanged(tenant, "u1")

	d, err = f.engine.Decide(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, pdp_model.DecisionAllow, d.Decision)
}

func TestDecideConcurrentRoleFetch(t *testing.T) {
	t.Run("a cancelled caller does not fail requests sharing its fetch", func(t *testing.T) {
		f := newFixture(t, engine.Options{CheckTimeout: 5 * time.Second})
		started := make(chan struct{})
		release := make(chan struct{})
		f.client.On("GetRolesForUser", mock.Anything, tenant, "u1").
			Run(func(mock.Arguments) {
				close(started)
				<-release
			}).
			Return([]model.Role{loanOfficer()}, nil).Once()
		f.policies(nil, nil, nil)

		aCtx, cancelA := context.WithCancel(context.Background())
		aDone := make(chan *pdp_model.AuthorizationDecision, 1)
		go func() {
			d, _ := f.engine.Decide(aCtx, request("u1", "loan:1", "read", nil))
			aDone <- d
		}()
		<-started

		bDone := make(chan *pdp_model.AuthorizationDecision, 1)
		go func() {
			d, _ := f.engine.Decide(context.Background(), request("u1", "loan:2", "read", nil))
			bDone <- d
		}()
		// let the second request join the in-flight fetch
		time.Sleep(50 * time.Millisecond)

		cancelA()
		a := <-aDone
		assert.Equal(t, []string{"EVALUATION_ERROR"}, a.ReasonCodes)

		close(release)
		b := <-bDone
		assert.Equal(t, pdp_model.DecisionAllow, b.Decision)
		assert.Equal(t, []string{"RBAC_MATCH:perm-loan-read"}, b.ReasonCodes)

		d, err := f.engine.Decide(context.Background(), request("u1", "loan:1", "read", nil))
		require.NoError(t, err)
		assert.Equal(t, pdp_model.DecisionAllow, d.Decision, "the cancelled request's denial was not cached")
		f.client.AssertNumberOfCalls(t, "GetRolesForUser", 1)
	})

	t.Run("requests after a revocation do not reuse a fetch started before it", func(t *testing.T) {
		f := newFixture(t, engine.Options{CheckTimeout: 5 * time.Second})
		started := make(chan struct{})
		release := make(chan struct{})
		f.client.On("GetRolesForUser", mock.Anything, tenant, "u1").
			Run(func(mock.Arguments) {
				close(started)
				<-release
			}).
			Return([]model.Role{loanOfficer()}, nil).Once()
		f.client.On("GetRolesForUser", mock.Anything, tenant, "u1").Return([]model.Role{}, nil)
		f.policies(nil, nil, nil)

		aDone := make(chan *pdp_model.AuthorizationDecision, 1)
		go func() {
			d, _ := f.engine.Decide(context.Background(), request("u1", "loan:1", "read", nil))
			aDone <- d
		}()
		<-started

		f.caches.OnRoleAssignmentChanged(tenant, "u1")

		d, err := f.engine.Decide(context.Background(), request("u1", "loan:2", "read", nil))
		require.NoError(t, err)
		assert.Equal(t, []string{"DEFAULT_DENY"}, d.ReasonCodes)

		close(release)
		<-aDone

		for _, resource := range []string{"loan:1", "loan:2"} {
			d, err := f.engine.Decide(context.Background(), request("u1", resource, "read", nil))
			require.NoError(t, err)
			assert.Equal(t, []string{"DEFAULT_DENY"}, d.ReasonCodes, resource)
		}
		f.client.AssertNumberOfCalls(t, "GetRolesForUser", 2)
	})
}

func TestDecideClockConditionsNotCached(t *testing.T) {
	f := newFixture(t, engine.Options{})
	f.roles("u1", loanOfficer())
	f.policies(nil, []model.Policy{{
		ID:       "pol-cutoff",
		TenantID: tenant,
		Type:     model.PolicyTypeABAC,
		Rules: []model.Rule{{
			ID: "deny-after-cutoff", Effect: model.EffectDeny, ResourceType: "loan",
			Conditions: model.Condition{"time": {Operator: model.OpGreaterOrEqual, Value: "2024-05-01T09:00:05Z"}},
		}},
	}}, nil)

	d, err := f.engine.Decide(context.Background(), request("u1", "loan:1", "read", nil))
	require.NoError(t, err)
	assert.Equal(t, pdp_model.DecisionAllow, d.Decision)
	assert.Equal(t, 0, f.caches.Decisions.Len())

	f.clock.Advance(10 * time.Second)
	d, err = f.engine.Decide(context.Background(), request("u1", "loan:1", "read", nil))
	require.NoError(t, err)
	assert.Equal(t, []string{"ABAC_DENY:deny-after-cutoff"}, d.ReasonCodes)

	// a caller-supplied time is part of the decision key
	at := f.clock.Now().Add(-time.Minute)
	req := request("u1", "loan:1", "read", nil)
	req.Context.Time = &at
	d, err = f.engine.Decide(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, pdp_model.DecisionAllow, d.Decision)
	assert.Equal(t, 1, f.caches.Decisions.Len())
}

func TestDecideBatchIsolatesFailures(t *testing.T) {
	f := newFixture(t, engine.Options{})
	f.roles("u1", loanOfficer())
	f.roles("u3", loanOfficer())
	f.client.On("GetRolesForUser", mock.Anything, tenant, "u2").
		Return(nil, &authz_errors.EntityServiceError{Op: "get roles", StatusCode: http.StatusServiceUnavailable, Transient: true})
	f.policies(nil, nil, nil)

	reqs := []pdp_model.AuthorizationRequest{
		*request("u1", "loan:1", "read", nil),
		*request("u2", "loan:1", "read", nil),
		*request("u3", "loan:2", "approve", map[string]any{"amount": 20000}),
	}
	decisions, err := f.engine.DecideBatch(context.Background(), reqs)
	require.NoError(t, err)
	require.Len(t, decisions, 3)

	assert.Equal(t, pdp_model.DecisionAllow, decisions[0].Decision)
	assert.Equal(t, []string{"RBAC_MATCH:perm-loan-read"}, decisions[0].ReasonCodes)
	assert.Equal(t, pdp_model.DecisionDeny, decisions[1].Decision)
	assert.Equal(t, []string{"EVALUATION_ERROR"}, decisions[1].ReasonCodes)
	assert.Equal(t, pdp_model.DecisionDeny, decisions[2].Decision)
	assert.Equal(t, []string{"ABAC_CONDITION_FAILED:perm-loan-approve"}, decisions[2].ReasonCodes)
}

func TestDecideBatchRecoversPanics(t *testing.T) {
	f := newFixture(t, engine.Options{})
	f.roles("u1", loanOfficer())
	f.client.On("GetRolesForUser", mock.Anything, tenant, "boom").Panic("entity source exploded")
	f.policies(nil, nil, nil)

	results, err := f.engine.DecideBatchResults(context.Background(), []pdp_model.AuthorizationRequest{
		*request("boom", "loan:1", "read", nil),
		*request("u1", "loan:1", "read", nil),
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, pdp_model.ReasonEvaluationError, results[0].Decision.ReasonCodes[0])
	assert.Equal(t, pdp_model.DecisionAllow, results[1].Decision.Decision)
}

func TestDecideBatchValidation(t *testing.T) {
	f := newFixture(t, engine.Options{})

	_, err := f.engine.DecideBatch(context.Background(), nil)
	assert.ErrorIs(t, err, authz_errors.ErrValidation)

	reqs := make([]pdp_model.AuthorizationRequest, 101)
	_, err = f.engine.DecideBatch(context.Background(), reqs)
	assert.ErrorIs(t, err, authz_errors.ErrValidation)

	f.roles("u1", loanOfficer())
	f.policies(nil, nil, nil)
	decisions, err := f.engine.DecideBatch(context.Background(), []pdp_model.AuthorizationRequest{
		*request("u1", "loan:1", "read", nil),
		{UserID: "u1", Action: "read"},
	})
	require.NoError(t, err)
	assert.Equal(t, pdp_model.DecisionAllow, decisions[0].Decision)
	assert.Equal(t, []string{"EVALUATION_ERROR"}, decisions[1].ReasonCodes)
}

func TestDecideTenantIsolation(t *testing.T) {
	f := newFixture(t, engine.Options{})
	f.roles("u1")
	f.client.On("ListActivePolicies", mock.Anything, tenant, model.PolicyTypeRBAC).Return([]model.Policy{}, nil)
	f.client.On("ListActivePolicies", mock.Anything, tenant, model.PolicyTypeOwnership).Return([]model.Policy{}, nil)
	f.client.On("ListActivePolicies", mock.Anything, tenant, model.PolicyTypeABAC).Return([]model.Policy{{
		ID: "pol-other-tenant", TenantID: "tenant-b", Type: model.PolicyTypeABAC,
		Rules: []model.Rule{{ID: "leak", Effect: model.EffectAllow, ResourceType: "loan"}},
	}}, nil)

	d, err := f.engine.Decide(context.Background(), request("u1", "loan:1", "read", nil))
	require.NoError(t, err)
	assert.Equal(t, pdp_model.DecisionDeny, d.Decision)
	assert.NotContains(t, d.EvaluatedPolicies, "pol-other-tenant")

	t.Run("principal from another tenant", func(t *testing.T) {
		req := request("u1", "loan:1", "read", nil)
		req.Principal = &pdp_model.Principal{UserID: "u1", TenantID: "tenant-b"}
		d, err := f.engine.Decide(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, pdp_model.DecisionDeny, d.Decision)
		assert.Equal(t, []string{"TENANT_MISMATCH"}, d.ReasonCodes)
	})
}

func TestDecideDeterminism(t *testing.T) {
	f := newFixture(t, engine.Options{})
	f.roles("u1", loanOfficer())
	f.policies([]model.Policy{{
		ID: "pol-rbac", TenantID: tenant, Type: model.PolicyTypeRBAC, Version: "1.10.0",
		Rules: []model.Rule{{ID: "auditors", Effect: model.EffectAllow, Roles: []string{"loan_officer"}, Actions: []string{"read"}}},
	}}, nil, []model.Policy{{ID: "pol-own", TenantID: tenant, Type: model.PolicyTypeOwnership, Version: "1.9.3"}})

	req := request("u1", "loan:1", "read", map[string]any{"b": 2, "a": "x"})
	first, err := f.engine.Decide(context.Background(), req)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		f.caches.Decisions.Clear()
		again, err := f.engine.Decide(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, first.Decision, again.Decision)
		assert.Equal(t, first.ReasonCodes, again.ReasonCodes)
		assert.Equal(t, first.EvaluatedPolicies, again.EvaluatedPolicies)
		assert.Equal(t, first.PolicyVersion, again.PolicyVersion)
	}
	assert.Equal(t, []string{"RBAC_MATCH:perm-loan-read", "RBAC_POLICY_ALLOW:auditors"}, first.ReasonCodes)
	assert.Equal(t, []string{"pol-rbac"}, first.EvaluatedPolicies)
	assert.Equal(t, "1.10.0", first.PolicyVersion)
}

func TestDecideEvaluationErrors(t *testing.T) {
	t.Run("uncompilable rule is not cached", func(t *testing.T) {
		f := newFixture(t, engine.Options{})
		f.roles("u1")
		f.policies(nil, []model.Policy{{
			ID: "pol-bad", TenantID: tenant, Type: model.PolicyTypeABAC,
			Rules: []model.Rule{{ID: "bad", Effect: model.EffectAllow,
				Conditions: model.Condition{"hour": {Operator: "between", Value: []any{9, 17}}}}},
		}}, nil)

		d, err := f.engine.Decide(context.Background(), request("u1", "loan:1", "read", map[string]any{"hour": 10}))
		require.NoError(t, err)
		assert.Equal(t, []string{"EVALUATION_ERROR"}, d.ReasonCodes)
		assert.Equal(t, 0, f.caches.Decisions.Len())
	})

	t.Run("ordering across incompatible kinds", func(t *testing.T) {
		f := newFixture(t, engine.Options{})
		f.roles("u1", loanOfficer())
		f.policies(nil, nil, nil)

		d, err := f.engine.Decide(context.Background(), request("u1", "loan:1", "approve", map[string]any{"amount": "lots"}))
		require.NoError(t, err)
		assert.Equal(t, pdp_model.DecisionDeny, d.Decision)
		assert.Equal(t, []string{"EVALUATION_ERROR"}, d.ReasonCodes)
	})

	t.Run("deadline exceeded", func(t *testing.T) {
		f := newFixture(t, engine.Options{CheckTimeout: 20 * time.Millisecond})
		f.client.On("GetRolesForUser", mock.Anything, tenant, "slow").
			WaitUntil(time.After(150*time.Millisecond)).
			Return([]model.Role{loanOfficer()}, nil)
		f.policies(nil, nil, nil)

		d, err := f.engine.Decide(context.Background(), request("slow", "loan:1", "read", nil))
		require.NoError(t, err)
		assert.Equal(t, []string{"EVALUATION_ERROR"}, d.ReasonCodes)
	})

	t.Run("structural problems are validation errors", func(t *testing.T) {
		f := newFixture(t, engine.Options{})
		req := request("u1", "loan:1", "read", nil)
		req.Context.TenantID = ""
		_, err := f.engine.Decide(context.Background(), req)
		var verr *authz_errors.ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, "context.tenant_id", verr.Field)
	})
}

func TestRoleResolution(t *testing.T) {
	t.Run("permission ids are expanded and missing ones skipped", func(t *testing.T) {
		f := newFixture(t, engine.Options{})
		f.roles("u1", model.Role{ID: "r1", TenantID: tenant, Name: "reader", PermissionIDs: []string{"p-read", "p-gone"}})
		f.client.On("GetPermission", mock.Anything, "p-read").
			Return(&model.Permission{ID: "p-read", ResourceType: "report", Action: "read"}, nil)
		f.client.On("GetPermission", mock.Anything, "p-gone").Return(nil, authz_errors.ErrPermissionNotFound)
		f.policies(nil, nil, nil)

		d, err := f.engine.Decide(context.Background(), request("u1", "report:q3", "read", nil))
		require.NoError(t, err)
		assert.Equal(t, []string{"RBAC_MATCH:p-read"}, d.ReasonCodes)
	})

	t.Run("roles outside their validity window are ignored", func(t *testing.T) {
		f := newFixture(t, engine.Options{})
		expired := f.clock.Now().Add(-time.Hour)
		role := loanOfficer()
		role.ValidUntil = &expired
		f.roles("u1", role)
		f.policies(nil, nil, nil)

		d, err := f.engine.Decide(context.Background(), request("u1", "loan:1", "read", nil))
		require.NoError(t, err)
		assert.Equal(t, []string{"DEFAULT_DENY"}, d.ReasonCodes)
	})

	t.Run("cached roles expire when an assignment ends", func(t *testing.T) {
		f := newFixture(t, engine.Options{})
		until := f.clock.Now().Add(10 * time.Second)
		role := loanOfficer()
		role.ValidUntil = &until
		f.roles("u1", role)
		f.policies(nil, nil, nil)

		r := engine.NewRoleResolver(f.client, f.caches, f.clock.Now, 0)
		roles, err := r.ResolveRoles(context.Background(), tenant, "u1")
		require.NoError(t, err)
		require.Len(t, roles, 1)

		f.clock.Advance(11 * time.Second)
		roles, err = r.ResolveRoles(context.Background(), tenant, "u1")
		require.NoError(t, err)
		assert.Empty(t, roles)
		f.client.AssertNumberOfCalls(t, "GetRolesForUser", 2)
	})
}
