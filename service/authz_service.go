// service/authz_service.go
package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dev-mohitbeniwal/authz/audit"
	authz_errors "github.com/dev-mohitbeniwal/authz/errors"
	logger "github.com/dev-mohitbeniwal/authz/logging"
	"github.com/dev-mohitbeniwal/authz/pdp/engine"
	pdp_model "github.com/dev-mohitbeniwal/authz/pdp/model"
	"github.com/dev-mohitbeniwal/authz/util"
)

// IAuthzService defines the interface for authorization operations
type IAuthzService interface {
	CheckAuthorization(ctx context.Context, req pdp_model.AuthorizationRequest, principal *pdp_model.Principal) (*pdp_model.AuthorizationDecision, error)
	CheckAuthorizationBatch(ctx context.Context, req pdp_model.BatchAuthorizationRequest, principal *pdp_model.Principal) (*pdp_model.BatchAuthorizationResponse, error)
	Invalidate(ctx context.Context, ev pdp_model.InvalidationEvent) error
	ClearCaches(ctx context.Context)
	CacheStats(ctx context.Context) map[string]pdp_model.CacheStats
	QueryDecisions(ctx context.Context, q audit.DecisionQuery) ([]audit.DecisionLog, error)
}

// AuthzService validates requests, binds them to the caller and hands them
// to the decision engine.
type AuthzService struct {
	engine          *engine.Engine
	validationUtil  *util.ValidationUtil
	notificationSvc *util.NotificationService
	auditService    audit.Service
	now             func() time.Time
}

var _ IAuthzService = &AuthzService{}

// NewAuthzService creates a new instance of AuthzService. auditService
// and notificationSvc may be nil.
func NewAuthzService(e *engine.Engine, validationUtil *util.ValidationUtil, notificationSvc *util.NotificationService, auditService audit.Service) *AuthzService {
	return &AuthzService{
		engine:          e,
		validationUtil:  validationUtil,
		notificationSvc: notificationSvc,
		auditService:    auditService,
		now:             time.Now,
	}
}

func (s *AuthzService) CheckAuthorization(ctx context.Context, req pdp_model.AuthorizationRequest, principal *pdp_model.Principal) (*pdp_model.AuthorizationDecision, error) {
	bind(&req, principal)
	if err := s.validationUtil.ValidateAuthorizationRequest(&req); err != nil {
		logger.Warn("Rejected authorization request",
			zap.String("userID", req.UserID), zap.String("resource", req.Resource), zap.Error(err))
		return nil, err
	}
	return s.engine.Decide(ctx, &req)
}

// CheckAuthorizationBatch answers every check in input order. A check that
// fails validation is answered with a DENY carrying EVALUATION_ERROR.
func (s *AuthzService) CheckAuthorizationBatch(ctx context.Context, req pdp_model.BatchAuthorizationRequest, principal *pdp_model.Principal) (*pdp_model.BatchAuthorizationResponse, error) {
	if err := s.validationUtil.ValidateBatchRequest(&req); err != nil {
		return nil, err
	}

	correlationID := engine.CorrelationIDFromContext(ctx)
	if correlationID == "" {
		correlationID = uuid.NewString()
		ctx = engine.WithCorrelationID(ctx, correlationID)
	}
	decisions := make([]*pdp_model.AuthorizationDecision, len(req.Checks))
	var (
		valid   []pdp_model.AuthorizationRequest
		indexes []int
	)
	for i := range req.Checks {
		check := req.Checks[i]
		bind(&check, principal)
		if err := s.validationUtil.ValidateAuthorizationRequest(&check); err != nil {
			logger.Warn("Rejected batch item", zap.Int("index", i), zap.Error(err))
			decisions[i] = s.engine.Deny(pdp_model.ReasonEvaluationError, correlationID)
			continue
		}
		valid = append(valid, check)
		indexes = append(indexes, i)
	}

	if len(valid) > 0 {
		evaluated, err := s.engine.DecideBatch(ctx, valid)
		if err != nil {
			return nil, err
		}
		for j, d := range evaluated {
			decisions[indexes[j]] = d
		}
	}

	resp := &pdp_model.BatchAuthorizationResponse{
		Decisions: make([]pdp_model.BatchDecision, len(decisions)),
		Metadata:  pdp_model.DecisionMetadata{Timestamp: s.now().UTC(), CorrelationID: correlationID},
	}
	for i, d := range decisions {
		resp.Decisions[i] = pdp_model.BatchDecision{AuthorizationDecision: *d, RequestIndex: i}
	}
	return resp, nil
}

func (s *AuthzService) Invalidate(ctx context.Context, ev pdp_model.InvalidationEvent) error {
	if err := s.validationUtil.ValidateInvalidationEvent(ev); err != nil {
		return err
	}
	if err := engine.ApplyInvalidation(s.engine.Caches(), ev); err != nil {
		return err
	}
	// peers apply it too; a failed broadcast does not undo the local clear
	_ = s.notificationSvc.NotifyInvalidation(ctx, ev)
	return nil
}

func (s *AuthzService) ClearCaches(ctx context.Context) {
	s.engine.Caches().Clear()
	logger.Info("Cleared all caches", zap.String("correlationID", engine.CorrelationIDFromContext(ctx)))
}

func (s *AuthzService) CacheStats(ctx context.Context) map[string]pdp_model.CacheStats {
	return s.engine.Caches().Stats()
}

func (s *AuthzService) QueryDecisions(ctx context.Context, q audit.DecisionQuery) ([]audit.DecisionLog, error) {
	if s.auditService == nil {
		return nil, authz_errors.ErrAuditDisabled
	}
	return s.auditService.QueryDecisions(ctx, q)
}

// bind fills the tenant from the caller's token when the request omits it.
// A mismatch is left for the engine to deny.
func bind(req *pdp_model.AuthorizationRequest, principal *pdp_model.Principal) {
	req.Principal = principal
	if principal == nil {
		return
	}
	if req.Context.TenantID == "" {
		req.Context.TenantID = principal.TenantID
	}
	if req.UserID == "" && !principal.ServiceAccount {
		req.UserID = principal.UserID
	}
}
