// controller/controllers.go
package controller

import "github.com/dev-mohitbeniwal/authz/service"

type Controllers struct {
	Authz  *AuthzController
	Cache  *CacheController
	Health *HealthController
}

func InitializeControllers(services *service.Services, info ServiceInfo) *Controllers {
	return &Controllers{
		Authz:  NewAuthzController(services.Authz),
		Cache:  NewCacheController(services.Authz),
		Health: NewHealthController(info),
	}
}
