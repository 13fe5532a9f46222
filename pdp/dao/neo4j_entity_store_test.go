package dao_test

import (
	"context"
	"errors"
	"testing"

	authz_errors "github.com/dev-mohitbeniwal/authz/errors"
	"github.com/dev-mohitbeniwal/authz/model"
	"github.com/dev-mohitbeniwal/authz/pdp/dao"
	authz_mock "github.com/dev-mohitbeniwal/authz/test/mock"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func permissionNode(id, resourceType, action, conditions string) neo4j.Node {
	props := map[string]any{"id": id, "name": resourceType + ":" + action, "resourceType": resourceType, "action": action}
	if conditions != "" {
		props["conditions"] = conditions
	}
	return neo4j.Node{Labels: []string{"Permission"}, Props: props}
}

func TestNeo4jEntityStoreGetRolesForUser(t *testing.T) {
	reader := new(authz_mock.MockRecordReader)
	store := dao.NewNeo4jEntityStore(reader)

	roleNode := neo4j.Node{Labels: []string{"Role"}, Props: map[string]any{"id": "r-1", "name": "loan_officer", "tenantID": "t-1"}}
	assignment := neo4j.Relationship{Type: "HAS_ROLE", Props: map[string]any{"validUntil": "2030-01-01T00:00:00Z"}}
	perms := []any{
		permissionNode("p-1", "loan", "read", ""),
		permissionNode("p-2", "loan", "approve", `{"amount": {"operator": "less_or_equal", "value": 10000}}`),
	}

	reader.On("ReadRecords", mock.Anything, mock.AnythingOfType("string"), map[string]any{"userID": "u-1", "tenantID": "t-1"}).
		Return([]*neo4j.Record{authz_mock.NewRecord([]string{"r", "a", "permissions"}, roleNode, assignment, perms)}, nil)

	roles, err := store.GetRolesForUser(context.Background(), "t-1", "u-1")
	require.NoError(t, err)
	require.Len(t, roles, 1)

	role := roles[0]
	assert.Equal(t, "loan_officer", role.Name)
	assert.Nil(t, role.ValidFrom)
	require.NotNil(t, role.ValidUntil)
	require.Len(t, role.Permissions, 2)
	assert.False(t, role.Permissions[0].Conditional())
	assert.Equal(t, model.OpLessOrEqual, role.Permissions[1].Condition["amount"].Operator)
	reader.AssertExpectations(t)
}

func TestNeo4jEntityStoreGetPermissionNotFound(t *testing.T) {
	reader := new(authz_mock.MockRecordReader)
	store := dao.NewNeo4jEntityStore(reader)

	reader.On("ReadRecords", mock.Anything, mock.Anything, map[string]any{"permissionID": "p-9"}).
		Return([]*neo4j.Record{}, nil)

	_, err := store.GetPermission(context.Background(), "p-9")
	assert.ErrorIs(t, err, authz_errors.ErrPermissionNotFound)
}

func TestNeo4jEntityStoreListActivePolicies(t *testing.T) {
	reader := new(authz_mock.MockRecordReader)
	store := dao.NewNeo4jEntityStore(reader)

	policyNode := neo4j.Node{Labels: []string{"Policy"}, Props: map[string]any{
		"id":        "pol-1",
		"name":      "high risk",
		"type":      "abac",
		"active":    true,
		"version":   "2.0.0",
		"rules":     `[{"rule_id": "deny-high-risk", "effect": "deny", "priority": 100, "conditions": {"risk_level": "high"}}]`,
		"createdAt": "2024-01-01T00:00:00Z",
	}}
	reader.On("ReadRecords", mock.Anything, mock.Anything, map[string]any{"tenantID": "t-1", "policyType": "abac"}).
		Return([]*neo4j.Record{authz_mock.NewRecord([]string{"p", "tenantID"}, policyNode, "t-1")}, nil)

	policies, err := store.ListActivePolicies(context.Background(), "t-1", model.PolicyTypeABAC)
	require.NoError(t, err)
	require.Len(t, policies, 1)

	p := policies[0]
	assert.Equal(t, "t-1", p.TenantID)
	assert.Equal(t, model.PolicyTypeABAC, p.Type)
	assert.Equal(t, "2.0.0", p.Version)
	require.Len(t, p.Rules, 1)
	assert.Equal(t, model.EffectDeny, p.Rules[0].Effect)
	assert.Equal(t, 2024, p.CreatedAt.Year())
}

func TestNeo4jEntityStoreReaderFailure(t *testing.T) {
	reader := new(authz_mock.MockRecordReader)
	store := dao.NewNeo4jEntityStore(reader)

	reader.On("ReadRecords", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))

	_, err := store.ListActivePolicies(context.Background(), "t-1", model.PolicyTypeRBAC)
	assert.ErrorIs(t, err, authz_errors.ErrEntityService)
}
