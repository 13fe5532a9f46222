// test/mock/entity_client.go
package mock

import (
	"context"

	"github.com/dev-mohitbeniwal/authz/model"
	"github.com/stretchr/testify/mock"
)

// MockEntityClient is a mock implementation of engine.EntityClient
type MockEntityClient struct {
	mock.Mock
}

func (m *MockEntityClient) GetRolesForUser(ctx context.Context, tenantID, userID string) ([]model.Role, error) {
	args := m.Called(ctx, tenantID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Role), args.Error(1)
}

func (m *MockEntityClient) GetPermission(ctx context.Context, permissionID string) (*model.Permission, error) {
	args := m.Called(ctx, permissionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Permission), args.Error(1)
}

func (m *MockEntityClient) ListActivePolicies(ctx context.Context, tenantID string, policyType model.PolicyType) ([]model.Policy, error) {
	args := m.Called(ctx, tenantID, policyType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Policy), args.Error(1)
}
