package dao

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	authz_errors "github.com/dev-mohitbeniwal/authz/errors"
	"github.com/dev-mohitbeniwal/authz/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPEntityClientGetRolesForUser(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/entities/users/u-1/roles", r.URL.Path)
		assert.Equal(t, "t-1", r.URL.Query().Get("tenant_id"))
		assert.Equal(t, "true", r.URL.Query().Get("active_only"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"roles": [{
			"role_id": "r-1", "tenant_id": "t-1", "name": "loan_officer",
			"permissions": [{"permission_id": "p-1", "name": "loan:read", "resource_type": "loan", "action": "read"}],
			"valid_until": "2030-01-01T00:00:00Z"
		}]}`))
	}))
	defer server.Close()

	client := NewHTTPEntityClient(server.URL+"/", time.Second)
	roles, err := client.GetRolesForUser(context.Background(), "t-1", "u-1")
	require.NoError(t, err)
	require.Len(t, roles, 1)
	assert.Equal(t, "loan_officer", roles[0].Name)
	assert.Equal(t, []string{"p-1"}, roles[0].PermissionIDs)
	assert.Empty(t, roles[0].Permissions, "summaries are expanded through GetPermission")
	require.NotNil(t, roles[0].ValidUntil)
	assert.Equal(t, 2030, roles[0].ValidUntil.Year())
}

func TestHTTPEntityClientGetPermission(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/entities/permissions/p-1":
			_, _ = w.Write([]byte(`{"permission_id": "p-1", "resource_type": "loan", "action": "approve",
				"conditions": {"amount": {"operator": "less_or_equal", "value": 10000}, "region": "eu"}}`))
		default:
			http.Error(w, "not found", http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := NewHTTPEntityClient(server.URL, time.Second)

	perm, err := client.GetPermission(context.Background(), "p-1")
	require.NoError(t, err)
	assert.Equal(t, model.OpLessOrEqual, perm.Condition["amount"].Operator)
	assert.Equal(t, model.Comparison{Operator: model.OpEquals, Value: "eu"}, perm.Condition["region"])

	_, err = client.GetPermission(context.Background(), "p-missing")
	assert.ErrorIs(t, err, authz_errors.ErrPermissionNotFound)
}

func TestHTTPEntityClientListActivePolicies(t *testing.T) {
	t.Run("pages until a short page", func(t *testing.T) {
		var calls int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			assert.Equal(t, "abac", r.URL.Query().Get("policy_type"))
			assert.Equal(t, "true", r.URL.Query().Get("active"))
			_, _ = w.Write([]byte(`{"items": [{"policy_id": "pol-1", "tenant_id": "t-1", "policy_type": "abac",
				"rules": [{"effect": "deny", "priority": 10, "conditions": {"risk_level": "high"}}],
				"active": true, "version": "1.1.0"}], "total": 1}`))
		}))
		defer server.Close()

		policies, err := NewHTTPEntityClient(server.URL, time.Second).ListActivePolicies(context.Background(), "t-1", model.PolicyTypeABAC)
		require.NoError(t, err)
		require.Len(t, policies, 1)
		assert.Equal(t, model.EffectDeny, policies[0].Rules[0].Effect)
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	})

	t.Run("bare list", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`[{"policy_id": "pol-2", "tenant_id": "t-1", "policy_type": "rbac", "rules": []}]`))
		}))
		defer server.Close()

		policies, err := NewHTTPEntityClient(server.URL, time.Second).ListActivePolicies(context.Background(), "t-1", model.PolicyTypeRBAC)
		require.NoError(t, err)
		assert.Equal(t, "pol-2", policies[0].ID)
	})
}

func TestHTTPEntityClientErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("tenant_id") == "bad" {
			http.Error(w, "bad tenant", http.StatusBadRequest)
			return
		}
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()
	client := NewHTTPEntityClient(server.URL, time.Second)

	_, err := client.GetRolesForUser(context.Background(), "t-1", "u-1")
	var es *authz_errors.EntityServiceError
	require.True(t, errors.As(err, &es))
	assert.Equal(t, http.StatusServiceUnavailable, es.StatusCode)
	assert.True(t, authz_errors.IsTransient(err))
	assert.ErrorIs(t, err, authz_errors.ErrEntityService)

	_, err = client.GetRolesForUser(context.Background(), "bad", "u-1")
	assert.False(t, authz_errors.IsTransient(err))
}
