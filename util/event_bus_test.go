package util

import (
	"context"
	"sync"
	"testing"

	pdp_model "github.com/dev-mohitbeniwal/authz/pdp/model"
	"github.com/stretchr/testify/assert"
)

type recordingInvalidator struct {
	mu    sync.Mutex
	calls []string
}

func (r *recordingInvalidator) record(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}

func (r *recordingInvalidator) OnRoleAssignmentChanged(tenantID, userID string) {
	r.record("assignment:" + tenantID + ":" + userID)
}
func (r *recordingInvalidator) OnPolicyChanged(tenantID, policyID string) {
	r.record("policy:" + tenantID + ":" + policyID)
}
func (r *recordingInvalidator) OnPermissionChanged(permissionID string) {
	r.record("permission:" + permissionID)
}
func (r *recordingInvalidator) OnRoleChanged(tenantID, roleID string) {
	r.record("role:" + tenantID + ":" + roleID)
}
func (r *recordingInvalidator) OnTenantChanged(tenantID string) { r.record("tenant:" + tenantID) }

func TestEventBusRoutesInvalidations(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	inv := &recordingInvalidator{}
	bus := NewEventBus()
	bus.Start(ctx)
	bus.SubscribeInvalidator(inv)

	assert.True(t, bus.Publish(ctx, pdp_model.InvalidationEvent{Type: pdp_model.InvalidateRoleAssignment, TenantID: "t-1", UserID: "u-1"}))
	assert.True(t, bus.Publish(ctx, pdp_model.InvalidationEvent{Type: pdp_model.InvalidatePolicy, TenantID: "t-1", PolicyID: "pol-1"}))
	assert.True(t, bus.Publish(ctx, pdp_model.InvalidationEvent{Type: pdp_model.InvalidateTenant, TenantID: "t-2"}))
	// missing user id is rejected before reaching the hooks
	assert.True(t, bus.Publish(ctx, pdp_model.InvalidationEvent{Type: pdp_model.InvalidateRoleAssignment, TenantID: "t-1"}))
	bus.Wait()

	assert.ElementsMatch(t, []string{"assignment:t-1:u-1", "policy:t-1:pol-1", "tenant:t-2"}, inv.calls)
}

func TestEventBusWithoutSubscribers(t *testing.T) {
	bus := NewEventBus()
	assert.False(t, bus.Publish(context.Background(), pdp_model.InvalidationEvent{Type: pdp_model.InvalidatePermission, PermissionID: "p-1"}))
}

func TestNotificationServiceWithoutPublisher(t *testing.T) {
	var n *NotificationService
	assert.NoError(t, n.NotifyInvalidation(context.Background(), pdp_model.InvalidationEvent{Type: pdp_model.InvalidateTenant, TenantID: "t-1"}))

	var got []pdp_model.InvalidationEvent
	n = NewNotificationService(func(_ context.Context, ev pdp_model.InvalidationEvent) error {
		got = append(got, ev)
		return nil
	})
	ev := pdp_model.InvalidationEvent{Type: pdp_model.InvalidateRole, TenantID: "t-1", RoleID: "r-1"}
	assert.NoError(t, n.NotifyInvalidation(context.Background(), ev))
	assert.Equal(t, []pdp_model.InvalidationEvent{ev}, got)
}
