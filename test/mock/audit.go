// test/mock/audit.go
package mock

import (
	"context"

	"github.com/dev-mohitbeniwal/authz/audit"
	"github.com/stretchr/testify/mock"
)

// MockAuditRepository is a mock implementation of audit.Repository
type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) LogDecision(ctx context.Context, log audit.DecisionLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *MockAuditRepository) QueryDecisions(ctx context.Context, q audit.DecisionQuery) ([]audit.DecisionLog, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]audit.DecisionLog), args.Error(1)
}
