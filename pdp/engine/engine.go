package engine

import (
	"context"
	"errors"
	"strings"
	"time"

	authz_errors "github.com/dev-mohitbeniwal/authz/errors"
	logger "github.com/dev-mohitbeniwal/authz/logging"
	"github.com/dev-mohitbeniwal/authz/model"
	"github.com/dev-mohitbeniwal/authz/pdp/cache"
	pdp_model "github.com/dev-mohitbeniwal/authz/pdp/model"
	"github.com/google/uuid"
	"github.com/sourcegraph/conc/panics"
	"go.uber.org/zap"
)

const (
	DefaultCheckTimeout  = 250 * time.Millisecond
	DefaultBatchTimeout  = 2 * time.Second
	DefaultBatchWorkers  = 16
	MaxBatchSize         = 100
	DefaultPolicyVersion = "1.0.0"
)

// AuditSink receives every decision. Implementations must not block.
type AuditSink interface {
	RecordDecision(req *pdp_model.AuthorizationRequest, decision *pdp_model.AuthorizationDecision, info DecisionInfo)
}

// DecisionInfo is evaluation detail that is logged but not returned to callers.
type DecisionInfo struct {
	Cached      bool
	WinningRule string
	Latency     time.Duration
	Err         error
}

type Options struct {
	CheckTimeout         time.Duration
	BatchTimeout         time.Duration
	BatchWorkers         int
	MaxBatchSize         int
	DefaultPolicyVersion string
	OwnershipActions     []string
	Now                  func() time.Time
	NewCorrelationID     func() string
}

func (o *Options) applyDefaults() {
	if o.CheckTimeout <= 0 {
		o.CheckTimeout = DefaultCheckTimeout
	}
	if o.BatchTimeout <= 0 {
		o.BatchTimeout = DefaultBatchTimeout
	}
	if o.BatchWorkers <= 0 {
		o.BatchWorkers = DefaultBatchWorkers
	}
	if o.MaxBatchSize <= 0 || o.MaxBatchSize > MaxBatchSize {
		o.MaxBatchSize = MaxBatchSize
	}
	if o.DefaultPolicyVersion == "" {
		o.DefaultPolicyVersion = DefaultPolicyVersion
	}
	if o.OwnershipActions == nil {
		o.OwnershipActions = DefaultOwnershipActions
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.NewCorrelationID == nil {
		o.NewCorrelationID = uuid.NewString
	}
}

// Engine is the policy decision point. It is safe for concurrent use.
type Engine struct {
	client   EntityClient
	caches   *Caches
	resolver *RoleResolver
	audit    AuditSink
	opts     Options
}

func New(client EntityClient, caches *Caches, audit AuditSink, opts Options) *Engine {
	opts.applyDefaults()
	return &Engine{
		client:   client,
		caches:   caches,
		resolver: NewRoleResolver(client, caches, opts.Now, opts.CheckTimeout),
		audit:    audit,
		opts:     opts,
	}
}

func (e *Engine) Caches() *Caches { return e.caches }

// Decide evaluates one request. The only error it returns is a
// *errors.ValidationError; every other failure becomes a DENY carrying
// EVALUATION_ERROR.
func (e *Engine) Decide(ctx context.Context, req *pdp_model.AuthorizationRequest) (*pdp_model.AuthorizationDecision, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}
	start := e.opts.Now()
	correlationID := CorrelationIDFromContext(ctx)
	if correlationID == "" {
		correlationID = e.opts.NewCorrelationID()
	}
	tenantID := req.Context.TenantID

	if p := req.Principal; p != nil && p.TenantID != "" && p.TenantID != tenantID {
		err := &authz_errors.TenantMismatchError{PrincipalTenant: p.TenantID, RequestTenant: tenantID}
		d := e.Deny(pdp_model.ReasonTenantMismatch, correlationID)
		e.record(req, d, DecisionInfo{Latency: e.opts.Now().Sub(start), Err: err})
		return d, nil
	}

	digest, err := ContextDigest(req)
	if err != nil {
		d := e.Deny(pdp_model.ReasonEvaluationError, correlationID)
		e.record(req, d, DecisionInfo{Latency: e.opts.Now().Sub(start), Err: err})
		return d, nil
	}
	key := cache.DecisionKey(tenantID, req.UserID, digest)

	if cached, ok := cacheGet(e.caches.Decisions, key); ok {
		d := cached.Clone()
		d.Metadata.CorrelationID = correlationID
		e.record(req, &d, DecisionInfo{Cached: true, Latency: e.opts.Now().Sub(start)})
		return &d, nil
	}

	version := cacheVersion(e.caches.Decisions)
	checkCtx, cancel := context.WithTimeout(ctx, e.opts.CheckTimeout)
	defer cancel()

	var (
		ev *evaluation
		pc panics.Catcher
	)
	pc.Try(func() {
		ev, err = e.evaluate(checkCtx, req)
	})
	if r := pc.Recovered(); r != nil {
		err = r.AsError()
	}
	if err == nil && checkCtx.Err() != nil {
		err = checkCtx.Err()
	}
	if err != nil {
		d := e.Deny(pdp_model.ReasonEvaluationError, correlationID)
		e.record(req, d, DecisionInfo{Latency: e.opts.Now().Sub(start), Err: err})
		return d, nil
	}

	d := ev.decision
	d.Metadata = pdp_model.DecisionMetadata{Timestamp: e.opts.Now().UTC(), CorrelationID: correlationID}
	if !ev.clockBound {
		cachePut(e.caches.Decisions, key, d.Clone(), 0, version)
	}
	e.record(req, d, DecisionInfo{WinningRule: ev.winner, Latency: e.opts.Now().Sub(start)})
	return d, nil
}

type evaluation struct {
	decision *pdp_model.AuthorizationDecision
	winner   string
	// clockBound is set when a condition reads the engine clock because the
	// request carried no time. The decision digest cannot capture that.
	clockBound bool
}

// evaluate runs RBAC, ABAC and ownership in order and combines them.
func (e *Engine) evaluate(ctx context.Context, req *pdp_model.AuthorizationRequest) (*evaluation, error) {
	tenantID := req.Context.TenantID

	roles, err := e.resolver.ResolveRoles(ctx, tenantID, req.UserID)
	if err != nil {
		return nil, err
	}
	policies, err := e.loadPolicies(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	t := &Target{
		UserID:       req.UserID,
		ResourceType: req.ResourceType(),
		Action:       req.Action,
		RoleNames:    roleNames(roles),
		Attributes:   buildAttributes(req, e.opts.Now()),
	}
	seq := &sequence{}
	var stages []*EvaluatorResult

	rbac, err := EvaluateRBAC(roles, t, policies[model.PolicyTypeRBAC], seq)
	if err != nil {
		return nil, err
	}
	stages = append(stages, &rbac.EvaluatorResult)

	ownerID := req.Context.ResourceOwnerID
	canGrant := rbac.Granted() || len(rbac.Candidates) > 0 ||
		hasAllowTargeting(policies[model.PolicyTypeABAC], t.ResourceType, t.Action, t.RoleNames) ||
		hasAllowTargeting(policies[model.PolicyTypeOwnership], t.ResourceType, t.Action, t.RoleNames) ||
		ownerEligible(req.UserID, ownerID, req.Action, e.opts.OwnershipActions)

	if canGrant {
		abac, err := EvaluateABAC(rbac.Candidates, t, policies[model.PolicyTypeABAC], seq)
		if err != nil {
			return nil, err
		}
		stages = append(stages, abac)

		if !rbac.Denied() && !abac.Denied() {
			own, err := EvaluateOwnership(ownerID, t, e.opts.OwnershipActions, policies[model.PolicyTypeOwnership], seq)
			if err != nil {
				return nil, err
			}
			stages = append(stages, own)
		}
	}

	d, winner := combine(stages)
	d.PolicyVersion = policies.Version(e.opts.DefaultPolicyVersion)
	return &evaluation{
		decision:   d,
		winner:     winner,
		clockBound: req.Context.Time == nil && conditionsRead(AttrTime, roles, policies),
	}, nil
}

// combine applies deny-overrides: any deny wins, then any allow, then the
// default deny. Reason codes follow evaluation order.
func combine(stages []*EvaluatorResult) (*pdp_model.AuthorizationDecision, string) {
	var outcomes []pdp_model.Outcome
	var failed []string
	evaluated := []string{}
	seen := make(map[string]struct{})
	for _, s := range stages {
		outcomes = append(outcomes, s.Outcomes...)
		failed = append(failed, s.FailedConditions...)
		for _, id := range s.EvaluatedPolicies {
			if _, dup := seen[id]; !dup {
				seen[id] = struct{}{}
				evaluated = append(evaluated, id)
			}
		}
	}

	d := &pdp_model.AuthorizationDecision{Decision: pdp_model.DecisionDeny, EvaluatedPolicies: evaluated}
	winner := resolve(outcomes)
	if winner == nil {
		if len(failed) > 0 {
			d.ReasonCodes = failed
		} else {
			d.ReasonCodes = []string{pdp_model.ReasonDefaultDeny}
		}
		return d, ""
	}

	if winner.Effect == model.EffectAllow {
		d.Decision = pdp_model.DecisionAllow
	}
	for _, o := range outcomes {
		if o.Effect == winner.Effect {
			d.ReasonCodes = append(d.ReasonCodes, o.Reason)
		}
	}
	return d, winner.Reason
}

// Deny builds a DENY carrying one diagnostic reason code.
func (e *Engine) Deny(reason, correlationID string) *pdp_model.AuthorizationDecision {
	return &pdp_model.AuthorizationDecision{
		Decision:          pdp_model.DecisionDeny,
		ReasonCodes:       []string{reason},
		PolicyVersion:     e.opts.DefaultPolicyVersion,
		EvaluatedPolicies: []string{},
		Metadata: pdp_model.DecisionMetadata{
			Timestamp:     e.opts.Now().UTC(),
			CorrelationID: correlationID,
		},
	}
}

func (e *Engine) record(req *pdp_model.AuthorizationRequest, d *pdp_model.AuthorizationDecision, info DecisionInfo) {
	fields := []zap.Field{
		zap.String("correlationID", d.Metadata.CorrelationID),
		zap.String("tenantID", req.Context.TenantID),
		zap.String("userID", req.UserID),
		zap.String("resource", req.Resource),
		zap.String("action", req.Action),
		zap.String("decision", string(d.Decision)),
		zap.Strings("reasonCodes", d.ReasonCodes),
		zap.Bool("cached", info.Cached),
		zap.Duration("latency", info.Latency),
	}
	switch {
	case info.Err != nil && errors.Is(info.Err, authz_errors.ErrTenantMismatch):
		logger.Warn("Authorization denied: tenant mismatch", append(fields, zap.Error(info.Err))...)
	case info.Err != nil:
		logger.Error("Authorization evaluation failed", append(fields, zap.Error(info.Err))...)
	default:
		logger.Info("Authorization decision", append(fields, zap.String("winningRule", info.WinningRule))...)
	}
	if e.audit != nil {
		e.audit.RecordDecision(req, d, info)
	}
}

// ValidateRequest checks the structure the engine depends on. Action
// vocabulary is enforced at the transport.
func ValidateRequest(req *pdp_model.AuthorizationRequest) error {
	switch {
	case req == nil:
		return authz_errors.NewValidationError("", "request is required")
	case strings.TrimSpace(req.UserID) == "":
		return authz_errors.NewValidationError("user_id", "is required")
	case strings.TrimSpace(req.Resource) == "":
		return authz_errors.NewValidationError("resource", "is required")
	case req.ResourceType() == "":
		return authz_errors.NewValidationError("resource", "must start with a resource type")
	case strings.TrimSpace(req.Action) == "":
		return authz_errors.NewValidationError("action", "is required")
	case strings.TrimSpace(req.Context.TenantID) == "":
		return authz_errors.NewValidationError("context.tenant_id", "is required")
	}
	return nil
}
