// router/router.go

package router

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dev-mohitbeniwal/authz/controller"
	"github.com/dev-mohitbeniwal/authz/middleware"
)

type Options struct {
	Auth middleware.AuthOptions
	// Limiter is nil when rate limiting is disabled
	Limiter           middleware.Limiter
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

func SetupRouter(controllers *controller.Controllers, opts Options) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.Logger())

	controllers.Health.RegisterRoutes(router)

	api := router.Group("/api/v1")
	api.Use(middleware.Authenticate(opts.Auth))
	if opts.Limiter != nil {
		api.Use(middleware.RateLimiter(opts.Limiter, opts.RateLimitRequests, opts.RateLimitWindow))
	}

	controllers.Authz.RegisterRoutes(api)
	controllers.Cache.RegisterRoutes(api)

	return router
}
