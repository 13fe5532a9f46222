package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dev-mohitbeniwal/authz/audit"
	"github.com/dev-mohitbeniwal/authz/config"
	"github.com/dev-mohitbeniwal/authz/controller"
	"github.com/dev-mohitbeniwal/authz/db"
	logger "github.com/dev-mohitbeniwal/authz/logging"
	"github.com/dev-mohitbeniwal/authz/middleware"
	"github.com/dev-mohitbeniwal/authz/pdp/dao"
	"github.com/dev-mohitbeniwal/authz/pdp/engine"
	pdp_model "github.com/dev-mohitbeniwal/authz/pdp/model"
	"github.com/dev-mohitbeniwal/authz/router"
	"github.com/dev-mohitbeniwal/authz/service"
	"github.com/dev-mohitbeniwal/authz/util"
)

const (
	serviceName    = "authz-service"
	serviceVersion = "1.0.0"
)

func main() {
	// Initialize configuration
	if err := config.InitConfig(); err != nil {
		log.Fatalf("Failed to initialize config: %v", err)
	}
	cfg := config.GetConfig()

	// Initialize logger
	logger.InitLogger(cfg.Log.Dir)
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Entity source
	var source engine.EntityClient
	switch cfg.EntityService.Backend {
	case "neo4j":
		if err := db.InitNeo4j(); err != nil {
			logger.Fatal("Failed to initialize Neo4j", zap.Error(err))
		}
		defer db.CloseNeo4j()
		source = dao.NewNeo4jEntityStore(db.NewNeo4jReader(db.Neo4jDriver, ""))
	default:
		source = dao.NewHTTPEntityClient(cfg.EntityService.BaseURL, cfg.EntityService.Timeout)
	}
	source = dao.NewRetryingEntityClient(source, cfg.EntityService.RetryAttempts, cfg.EntityService.RetryBackoff)
	logger.Info("Entity source configured", zap.String("backend", cfg.EntityService.Backend))

	// Initialize Redis
	redisEnabled := cfg.Redis.Enabled
	if redisEnabled {
		if err := db.InitRedis(); err != nil {
			logger.Fatal("Failed to initialize Redis", zap.Error(err))
		}
		defer db.CloseRedis()
	}

	// Decision audit
	var auditService audit.Service
	var auditSink engine.AuditSink
	if cfg.Elasticsearch.Enabled {
		auditRepository, err := audit.NewElasticsearchRepository(cfg.Elasticsearch.URL, cfg.Elasticsearch.AuditIndex)
		if err != nil {
			logger.Fatal("Failed to initialize Elasticsearch", zap.Error(err))
		}
		asyncAudit := audit.NewService(auditRepository, cfg.Engine.AuditBuffer)
		asyncAudit.Start()
		defer asyncAudit.Close()
		auditService, auditSink = asyncAudit, asyncAudit
	}

	// Decision engine
	caches := engine.NewCaches(engine.CacheOptions{
		PolicyTTL:          cfg.Cache.PolicyTTL,
		RoleTTL:            cfg.Cache.RoleTTL,
		DecisionTTL:        cfg.Cache.DecisionTTL,
		MaxSize:            cfg.Cache.MaxSize,
		TombstoneRetention: cfg.Cache.TombstoneRetention,
	})
	caches.StartJanitors(ctx, cfg.Cache.JanitorInterval)

	pdp := engine.New(source, caches, auditSink, engine.Options{
		CheckTimeout:         cfg.Engine.CheckTimeout,
		BatchTimeout:         cfg.Engine.BatchTimeout,
		BatchWorkers:         cfg.Engine.BatchWorkers,
		MaxBatchSize:         cfg.Engine.MaxBatchSize,
		DefaultPolicyVersion: cfg.Engine.DefaultPolicyVersion,
		OwnershipActions:     cfg.Engine.OwnershipActions,
	})

	// Invalidation fan-out
	eventBus := util.NewEventBus()
	eventBus.Start(ctx)
	eventBus.SubscribeInvalidator(caches)

	var publisher util.Publisher
	if redisEnabled && cfg.Redis.InvalidationChannel != "" {
		channel := cfg.Redis.InvalidationChannel
		publisher = func(ctx context.Context, ev pdp_model.InvalidationEvent) error {
			return db.PublishInvalidation(ctx, db.RedisClient, channel, ev)
		}
		go db.SubscribeInvalidations(ctx, db.RedisClient, channel, func(ctx context.Context, ev pdp_model.InvalidationEvent) {
			eventBus.Publish(ctx, ev)
		})
	}

	// Initialize services and controllers
	services := service.InitializeServices(
		pdp,
		auditService,
		util.NewValidationUtil(cfg.Engine.ExtraActions),
		util.NewNotificationService(publisher),
	)
	controllers := controller.InitializeControllers(services, controller.ServiceInfo{
		Name:        serviceName,
		Version:     serviceVersion,
		Environment: os.Getenv("ENVIRONMENT"),
	})

	routerOpts := router.Options{
		Auth: middleware.AuthOptions{
			Enabled:   cfg.Auth.Enabled,
			JWTSecret: cfg.Auth.JWTSecret,
			APIKey:    cfg.Auth.APIKey,
		},
		RateLimitRequests: cfg.RateLimit.Requests,
		RateLimitWindow:   cfg.RateLimit.Window,
	}
	switch {
	case cfg.RateLimit.Enabled && !redisEnabled:
		logger.Warn("Rate limiting needs Redis, running without it")
	case cfg.RateLimit.Enabled:
		routerOpts.Limiter = db.NewRateLimiter(db.RedisClient)
	}

	// Set up Gin
	gin.SetMode(gin.ReleaseMode)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router.SetupRouter(controllers, routerOpts),
	}

	go func() {
		logger.Info("Starting server", zap.String("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	cancel()
	eventBus.Wait()

	logger.Info("Server exiting")
}
