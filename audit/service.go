// audit/service.go
package audit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	logger "github.com/dev-mohitbeniwal/authz/logging"
	"github.com/dev-mohitbeniwal/authz/pdp/engine"
	pdp_model "github.com/dev-mohitbeniwal/authz/pdp/model"
)

const (
	DefaultBufferSize = 1024
	writeTimeout      = 5 * time.Second
)

type Service interface {
	engine.AuditSink
	QueryDecisions(ctx context.Context, q DecisionQuery) ([]DecisionLog, error)
}

// AsyncService queues decisions and indexes them from a single worker so
// the decision path never waits on Elasticsearch. Decisions arriving while
// the queue is full are dropped and counted.
type AsyncService struct {
	repo    Repository
	queue   chan DecisionLog
	wg      sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Int64
}

var _ Service = (*AsyncService)(nil)

func NewService(repo Repository, bufferSize int) *AsyncService {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &AsyncService{
		repo:  repo,
		queue: make(chan DecisionLog, bufferSize),
	}
}

func (s *AsyncService) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for entry := range s.queue {
			s.write(entry)
		}
	}()
}

func (s *AsyncService) write(entry DecisionLog) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := s.repo.LogDecision(ctx, entry); err != nil {
		logger.Error("Failed to index decision",
			zap.String("correlationID", entry.CorrelationID), zap.Error(err))
	}
}

func (s *AsyncService) RecordDecision(req *pdp_model.AuthorizationRequest, d *pdp_model.AuthorizationDecision, info engine.DecisionInfo) {
	entry := NewDecisionLog(req, d, info)

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.queue <- entry:
	default:
		n := s.dropped.Add(1)
		logger.Warn("Audit queue full, dropping decision",
			zap.String("correlationID", entry.CorrelationID), zap.Int64("dropped", n))
	}
}

// Dropped reports how many decisions were discarded because the queue was full.
func (s *AsyncService) Dropped() int64 { return s.dropped.Load() }

// Close stops accepting decisions and waits for the queue to drain.
func (s *AsyncService) Close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *AsyncService) QueryDecisions(ctx context.Context, q DecisionQuery) ([]DecisionLog, error) {
	return s.repo.QueryDecisions(ctx, q)
}

func NewDecisionLog(req *pdp_model.AuthorizationRequest, d *pdp_model.AuthorizationDecision, info engine.DecisionInfo) DecisionLog {
	entry := DecisionLog{
		Timestamp:         d.Metadata.Timestamp,
		CorrelationID:     d.Metadata.CorrelationID,
		TenantID:          req.Context.TenantID,
		UserID:            req.UserID,
		Resource:          req.Resource,
		Action:            req.Action,
		Decision:          string(d.Decision),
		ReasonCodes:       append([]string(nil), d.ReasonCodes...),
		PolicyVersion:     d.PolicyVersion,
		EvaluatedPolicies: append([]string(nil), d.EvaluatedPolicies...),
		WinningRule:       info.WinningRule,
		Cached:            info.Cached,
		LatencyMillis:     float64(info.Latency.Microseconds()) / 1000,
	}
	for _, code := range d.ReasonCodes {
		entry.Reasons = append(entry.Reasons, pdp_model.ReasonPrefix(code))
	}
	if info.Err != nil {
		entry.Error = info.Err.Error()
	}
	return entry
}
