package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	authz_errors "github.com/dev-mohitbeniwal/authz/errors"
	logger "github.com/dev-mohitbeniwal/authz/logging"
	"github.com/dev-mohitbeniwal/authz/model"
	"github.com/dev-mohitbeniwal/authz/pdp/cache"
	"github.com/sourcegraph/conc/panics"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type ResolvedPermission struct {
	Permission model.Permission
	condition  *CompiledCondition
	compileErr error
}

// Conditional reports whether the permission defers to ABAC.
func (p *ResolvedPermission) Conditional() bool {
	return p.compileErr != nil || !p.condition.Empty()
}

type ResolvedRole struct {
	Role        model.Role
	Permissions []ResolvedPermission
}

type RoleResolver struct {
	client       EntityClient
	caches       *Caches
	now          func() time.Time
	fetchTimeout time.Duration
	group        singleflight.Group
}

// NewRoleResolver bounds each shared role fetch by fetchTimeout; zero means
// DefaultCheckTimeout.
func NewRoleResolver(client EntityClient, caches *Caches, now func() time.Time, fetchTimeout time.Duration) *RoleResolver {
	if now == nil {
		now = time.Now
	}
	if fetchTimeout <= 0 {
		fetchTimeout = DefaultCheckTimeout
	}
	return &RoleResolver{client: client, caches: caches, now: now, fetchTimeout: fetchTimeout}
}

// ResolveRoles returns the user's active roles in the tenant with their
// permissions expanded. Concurrent misses for the same user share one fetch.
//
// The shared fetch is detached from the caller that started it, so one
// caller giving up never fails the others; each caller still returns as soon
// as its own ctx is done. Fetches are keyed by the newest invalidation
// covering the user, so a request arriving after an invalidation never joins
// a fetch that began before it.
func (r *RoleResolver) ResolveRoles(ctx context.Context, tenantID, userID string) ([]ResolvedRole, error) {
	key := cache.RolesKey(tenantID, userID)
	if roles, ok := cacheGet(r.caches.Roles, key); ok {
		return roles, nil
	}

	flight := key + "@" + strconv.FormatUint(cacheWatermark(r.caches.Roles, key), 10)
	ch := r.group.DoChan(flight, func() (v interface{}, err error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.fetchTimeout)
		defer cancel()
		// DoChan re-panics on its own goroutine, out of reach of Decide's recovery
		var pc panics.Catcher
		pc.Try(func() {
			v, err = r.load(fetchCtx, tenantID, userID, key)
		})
		if rec := pc.Recovered(); rec != nil {
			err = rec.AsError()
		}
		return v, err
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]ResolvedRole), nil
	}
}

func (r *RoleResolver) load(ctx context.Context, tenantID, userID, key string) ([]ResolvedRole, error) {
	version := cacheVersion(r.caches.Roles)

	roles, err := r.client.GetRolesForUser(ctx, tenantID, userID)
	if err != nil {
		return nil, fmt.Errorf("resolving roles for user %s: %w", userID, err)
	}

	now := r.now()
	ttl := r.caches.roleTTL
	resolved := make([]ResolvedRole, 0, len(roles))
	for _, role := range roles {
		if role.TenantID != "" && role.TenantID != tenantID {
			logger.Warn("Dropping role from another tenant",
				zap.String("roleID", role.ID), zap.String("roleTenant", role.TenantID), zap.String("tenantID", tenantID))
			continue
		}
		ttl = clipTTL(ttl, now, role)
		if !role.ActiveAt(now) {
			continue
		}
		perms, err := r.expandPermissions(ctx, role)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, ResolvedRole{Role: role, Permissions: perms})
	}

	if ttl > 0 {
		cachePut(r.caches.Roles, key, resolved, ttl, version)
	}
	logger.Debug("Resolved roles",
		zap.String("tenantID", tenantID), zap.String("userID", userID),
		zap.Int("active", len(resolved)), zap.Int("assigned", len(roles)))
	return resolved, nil
}

// clipTTL keeps a cached role set from outliving the next validity window boundary.
func clipTTL(ttl time.Duration, now time.Time, role model.Role) time.Duration {
	for _, boundary := range []*time.Time{role.ValidFrom, role.ValidUntil} {
		if boundary == nil || !boundary.After(now) {
			continue
		}
		if remaining := boundary.Sub(now); remaining < ttl {
			ttl = remaining
		}
	}
	return ttl
}

func (r *RoleResolver) expandPermissions(ctx context.Context, role model.Role) ([]ResolvedPermission, error) {
	perms := make([]ResolvedPermission, 0, len(role.Permissions)+len(role.PermissionIDs))
	seen := make(map[string]struct{}, cap(perms))

	add := func(p model.Permission) {
		if _, dup := seen[p.ID]; dup {
			return
		}
		seen[p.ID] = struct{}{}
		rp := ResolvedPermission{Permission: p}
		rp.condition, rp.compileErr = CompileCondition(p.Condition)
		if rp.compileErr != nil {
			logger.Warn("Permission condition does not compile",
				zap.String("permissionID", p.ID), zap.Error(rp.compileErr))
		}
		perms = append(perms, rp)
	}

	for _, p := range role.Permissions {
		add(p)
	}
	for _, id := range role.PermissionIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		p, err := r.permission(ctx, id)
		if err != nil {
			return nil, err
		}
		if p == nil {
			logger.Warn("Skipping missing permission", zap.String("roleID", role.ID), zap.String("permissionID", id))
			continue
		}
		add(*p)
	}
	return perms, nil
}

func (r *RoleResolver) permission(ctx context.Context, id string) (*model.Permission, error) {
	key := cache.PermissionKey(id)
	if v, ok := cacheGet(r.caches.Policies, key); ok {
		if p, ok := v.(*model.Permission); ok {
			return p, nil
		}
	}

	version := cacheVersion(r.caches.Policies)
	p, err := r.client.GetPermission(ctx, id)
	if errors.Is(err, authz_errors.ErrPermissionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading permission %s: %w", id, err)
	}
	cachePut[any](r.caches.Policies, key, p, 0, version)
	return p, nil
}
