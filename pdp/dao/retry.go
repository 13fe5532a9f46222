package dao

import (
	"context"
	"time"

	authz_errors "github.com/dev-mohitbeniwal/authz/errors"
	logger "github.com/dev-mohitbeniwal/authz/logging"
	"github.com/dev-mohitbeniwal/authz/model"
	"github.com/dev-mohitbeniwal/authz/pdp/engine"
	"go.uber.org/zap"
)

const (
	DefaultRetryAttempts = 3
	DefaultRetryBackoff  = 50 * time.Millisecond
)

// RetryingEntityClient retries transient entity-service failures with
// linear backoff. Non-transient errors return immediately.
type RetryingEntityClient struct {
	next     engine.EntityClient
	attempts int
	backoff  time.Duration
}

func NewRetryingEntityClient(next engine.EntityClient, attempts int, backoff time.Duration) *RetryingEntityClient {
	if attempts <= 0 {
		attempts = DefaultRetryAttempts
	}
	if backoff < 0 {
		backoff = DefaultRetryBackoff
	}
	return &RetryingEntityClient{next: next, attempts: attempts, backoff: backoff}
}

func (r *RetryingEntityClient) GetRolesForUser(ctx context.Context, tenantID, userID string) ([]model.Role, error) {
	return retry(ctx, r, "get user roles", func() ([]model.Role, error) {
		return r.next.GetRolesForUser(ctx, tenantID, userID)
	})
}

func (r *RetryingEntityClient) GetPermission(ctx context.Context, permissionID string) (*model.Permission, error) {
	return retry(ctx, r, "get permission", func() (*model.Permission, error) {
		return r.next.GetPermission(ctx, permissionID)
	})
}

func (r *RetryingEntityClient) ListActivePolicies(ctx context.Context, tenantID string, policyType model.PolicyType) ([]model.Policy, error) {
	return retry(ctx, r, "list policies", func() ([]model.Policy, error) {
		return r.next.ListActivePolicies(ctx, tenantID, policyType)
	})
}

func retry[T any](ctx context.Context, r *RetryingEntityClient, op string, call func() (T, error)) (T, error) {
	var (
		result T
		err    error
	)
	for attempt := 1; attempt <= r.attempts; attempt++ {
		result, err = call()
		if err == nil || !authz_errors.IsTransient(err) || attempt == r.attempts {
			return result, err
		}
		logger.Warn("Retrying entity service call",
			zap.String("op", op), zap.Int("attempt", attempt), zap.Int("maxAttempts", r.attempts), zap.Error(err))

		timer := time.NewTimer(time.Duration(attempt) * r.backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return result, &authz_errors.EntityServiceError{Op: op, Err: ctx.Err()}
		case <-timer.C:
		}
	}
	return result, err
}
