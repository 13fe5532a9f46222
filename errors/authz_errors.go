// errors/authz_errors.go
package errors

import (
	"errors"
	"fmt"
)

var (
	ErrValidation     = errors.New("invalid authorization request")
	ErrEntityService  = errors.New("entity service error")
	ErrEvaluation     = errors.New("evaluation error")
	ErrCache          = errors.New("cache error")
	ErrTenantMismatch = errors.New("tenant mismatch")

	ErrPermissionNotFound = errors.New("permission not found")
	ErrBatchTooLarge      = errors.New("batch exceeds maximum size")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInternalServer     = errors.New("internal server error")
	ErrAuditDisabled      = errors.New("decision audit is not enabled")
)

// ValidationError is the caller's fault and is never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrValidation, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", ErrValidation, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// EntityServiceError reports an upstream failure. Transient errors are
// retried by the entity client decorator.
type EntityServiceError struct {
	Op         string
	StatusCode int
	Transient  bool
	Err        error
}

func (e *EntityServiceError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("%s: %s: status %d: %v", ErrEntityService, e.Op, e.StatusCode, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: %s: status %d", ErrEntityService, e.Op, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", ErrEntityService, e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s", ErrEntityService, e.Op)
}

func (e *EntityServiceError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrEntityService}
	}
	return []error{ErrEntityService, e.Err}
}

// EvaluationError marks a condition that could not be evaluated.
type EvaluationError struct {
	RuleID string
	Err    error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("%s: rule %s: %v", ErrEvaluation, e.RuleID, e.Err)
}

func (e *EvaluationError) Unwrap() []error { return []error{ErrEvaluation, e.Err} }

type CacheError struct {
	Cache string
	Op    string
	Err   error
}

func (e *CacheError) Error() string {
	return fmt.Sprintf("%s: %s %s: %v", ErrCache, e.Cache, e.Op, e.Err)
}

func (e *CacheError) Unwrap() error { return ErrCache }

type TenantMismatchError struct {
	PrincipalTenant string
	RequestTenant   string
}

func (e *TenantMismatchError) Error() string {
	return fmt.Sprintf("%s: principal tenant %q, request tenant %q", ErrTenantMismatch, e.PrincipalTenant, e.RequestTenant)
}

func (e *TenantMismatchError) Unwrap() error { return ErrTenantMismatch }

// IsTransient reports whether err is an entity-service failure worth retrying.
func IsTransient(err error) bool {
	var es *EntityServiceError
	if errors.As(err, &es) {
		return es.Transient
	}
	return false
}

func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
