// service/services.go
package service

import (
	"github.com/dev-mohitbeniwal/authz/audit"
	"github.com/dev-mohitbeniwal/authz/pdp/engine"
	"github.com/dev-mohitbeniwal/authz/util"
)

type Services struct {
	Authz IAuthzService
}

func InitializeServices(
	e *engine.Engine,
	auditService audit.Service,
	validationUtil *util.ValidationUtil,
	notificationSvc *util.NotificationService,
) *Services {
	return &Services{
		Authz: NewAuthzService(e, validationUtil, notificationSvc, auditService),
	}
}
