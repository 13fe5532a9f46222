package engine

import (
	"context"
	"fmt"
	"time"

	authz_errors "github.com/dev-mohitbeniwal/authz/errors"
	logger "github.com/dev-mohitbeniwal/authz/logging"
	"github.com/dev-mohitbeniwal/authz/pdp/cache"
	pdp_model "github.com/dev-mohitbeniwal/authz/pdp/model"
	"go.uber.org/zap"
)

const (
	DefaultPolicyTTL   = 5 * time.Minute
	DefaultRoleTTL     = 2 * time.Minute
	DefaultDecisionTTL = 30 * time.Second
)

type CacheOptions struct {
	PolicyTTL          time.Duration
	RoleTTL            time.Duration
	DecisionTTL        time.Duration
	MaxSize            int
	TombstoneRetention time.Duration
	Now                func() time.Time
}

// Caches holds the three logical caches. The policy cache stores both
// compiled policy lists and permissions, keyed by prefix.
type Caches struct {
	Policies  *cache.Cache[any]
	Roles     *cache.Cache[[]ResolvedRole]
	Decisions *cache.Cache[pdp_model.AuthorizationDecision]

	roleTTL time.Duration
}

func NewCaches(opts CacheOptions) *Caches {
	if opts.PolicyTTL <= 0 {
		opts.PolicyTTL = DefaultPolicyTTL
	}
	if opts.RoleTTL <= 0 {
		opts.RoleTTL = DefaultRoleTTL
	}
	if opts.DecisionTTL <= 0 {
		opts.DecisionTTL = DefaultDecisionTTL
	}
	base := cache.Options{MaxSize: opts.MaxSize, TombstoneRetention: opts.TombstoneRetention, Now: opts.Now}

	policyOpts, roleOpts, decisionOpts := base, base, base
	policyOpts.DefaultTTL = opts.PolicyTTL
	roleOpts.DefaultTTL = opts.RoleTTL
	decisionOpts.DefaultTTL = opts.DecisionTTL

	return &Caches{
		Policies:  cache.New[any]("policy", policyOpts),
		Roles:     cache.New[[]ResolvedRole]("role", roleOpts),
		Decisions: cache.New[pdp_model.AuthorizationDecision]("decision", decisionOpts),
		roleTTL:   opts.RoleTTL,
	}
}

func (c *Caches) Stats() map[string]pdp_model.CacheStats {
	return map[string]pdp_model.CacheStats{
		c.Policies.Name():  c.Policies.Stats(),
		c.Roles.Name():     c.Roles.Stats(),
		c.Decisions.Name(): c.Decisions.Stats(),
	}
}

func (c *Caches) StartJanitors(ctx context.Context, interval time.Duration) {
	c.Policies.StartJanitor(ctx, interval)
	c.Roles.StartJanitor(ctx, interval)
	c.Decisions.StartJanitor(ctx, interval)
}

func (c *Caches) Clear() {
	c.Policies.Clear()
	c.Roles.Clear()
	c.Decisions.Clear()
}

// cacheGet treats a failing cache as a miss so the caller recomputes.
func cacheGet[V any](c *cache.Cache[V], key string) (value V, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			logCacheFailure(c.Name(), "get", key, r)
			var zero V
			value, ok = zero, false
		}
	}()
	return c.Get(key)
}

func cachePut[V any](c *cache.Cache[V], key string, value V, ttl time.Duration, version uint64) (stored bool) {
	defer func() {
		if r := recover(); r != nil {
			logCacheFailure(c.Name(), "put", key, r)
			stored = false
		}
	}()
	return c.PutIfFresh(key, value, ttl, version)
}

func cacheVersion[V any](c *cache.Cache[V]) (version uint64) {
	defer func() {
		if r := recover(); r != nil {
			logCacheFailure(c.Name(), "version", "", r)
			// the oldest version; any later put under an invalidated key is refused
			version = 0
		}
	}()
	return c.Version()
}

func cacheWatermark[V any](c *cache.Cache[V], key string) (mark uint64) {
	defer func() {
		if r := recover(); r != nil {
			logCacheFailure(c.Name(), "watermark", key, r)
			mark = 0
		}
	}()
	return c.Watermark(key)
}

func logCacheFailure(name, op, key string, recovered any) {
	err := &authz_errors.CacheError{Cache: name, Op: op, Err: fmt.Errorf("%v", recovered)}
	logger.Warn("Cache access failed, recomputing", zap.String("key", key), zap.Error(err))
}
