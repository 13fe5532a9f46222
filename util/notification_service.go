// util/notification_service.go

package util

import (
	"context"

	"go.uber.org/zap"

	logger "github.com/dev-mohitbeniwal/authz/logging"
	pdp_model "github.com/dev-mohitbeniwal/authz/pdp/model"
)

// Publisher delivers an invalidation event to peer instances.
type Publisher func(ctx context.Context, ev pdp_model.InvalidationEvent) error

// NotificationService tells the other instances about invalidations
// received over HTTP. Without a publisher it only logs.
type NotificationService struct {
	publish Publisher
}

func NewNotificationService(publish Publisher) *NotificationService {
	return &NotificationService{publish: publish}
}

func (n *NotificationService) NotifyInvalidation(ctx context.Context, ev pdp_model.InvalidationEvent) error {
	fields := []zap.Field{
		zap.String("type", string(ev.Type)),
		zap.String("tenantID", ev.TenantID),
	}
	if n == nil || n.publish == nil {
		logger.Debug("Invalidation not broadcast, no publisher configured", fields...)
		return nil
	}
	if err := n.publish(ctx, ev); err != nil {
		logger.Warn("Failed to broadcast invalidation", append(fields, zap.Error(err))...)
		return err
	}
	logger.Info("Invalidation broadcast", fields...)
	return nil
}
