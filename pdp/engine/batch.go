package engine

import (
	"context"
	"fmt"

	authz_errors "github.com/dev-mohitbeniwal/authz/errors"
	logger "github.com/dev-mohitbeniwal/authz/logging"
	pdp_model "github.com/dev-mohitbeniwal/authz/pdp/model"
	"github.com/sourcegraph/conc/panics"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DecideBatch evaluates every request concurrently and returns decisions in
// input order. A failing item, panics included, becomes a DENY with
// EVALUATION_ERROR and never affects its siblings. The only error is a
// *errors.ValidationError for an empty or oversized batch.
func (e *Engine) DecideBatch(ctx context.Context, reqs []pdp_model.AuthorizationRequest) ([]*pdp_model.AuthorizationDecision, error) {
	results, err := e.DecideBatchResults(ctx, reqs)
	if err != nil {
		return nil, err
	}

	correlationID := CorrelationIDFromContext(ctx)
	decisions := make([]*pdp_model.AuthorizationDecision, len(results))
	for i, r := range results {
		if r.Err != nil {
			id := correlationID
			if id == "" {
				id = e.opts.NewCorrelationID()
			}
			decisions[i] = e.Deny(pdp_model.ReasonEvaluationError, id)
			continue
		}
		decisions[i] = r.Decision
	}
	return decisions, nil
}

// DecideBatchResults is DecideBatch with per-item errors kept.
func (e *Engine) DecideBatchResults(ctx context.Context, reqs []pdp_model.AuthorizationRequest) ([]pdp_model.BatchItemResult, error) {
	if len(reqs) == 0 {
		return nil, authz_errors.NewValidationError("checks", "at least one check is required")
	}
	if len(reqs) > e.opts.MaxBatchSize {
		return nil, &authz_errors.ValidationError{
			Field:  "checks",
			Reason: fmt.Sprintf("%v: %d > %d", authz_errors.ErrBatchTooLarge, len(reqs), e.opts.MaxBatchSize),
		}
	}

	batchCtx, cancel := context.WithTimeout(ctx, e.opts.BatchTimeout)
	defer cancel()

	results := make([]pdp_model.BatchItemResult, len(reqs))
	var g errgroup.Group
	g.SetLimit(e.opts.BatchWorkers)
	for i := range reqs {
		i := i
		g.Go(func() error {
			results[i] = e.decideItem(batchCtx, i, &reqs[i])
			return nil
		})
	}
	_ = g.Wait()
	return results, nil
}

func (e *Engine) decideItem(ctx context.Context, index int, req *pdp_model.AuthorizationRequest) (res pdp_model.BatchItemResult) {
	res.Index = index
	var pc panics.Catcher
	pc.Try(func() {
		res.Decision, res.Err = e.Decide(ctx, req)
	})
	if r := pc.Recovered(); r != nil {
		res.Decision, res.Err = nil, r.AsError()
		logger.Error("Batch item panicked", zap.Int("index", index), zap.Error(res.Err))
	} else if res.Err != nil {
		logger.Warn("Batch item rejected", zap.Int("index", index), zap.Error(res.Err))
	}
	return res
}
