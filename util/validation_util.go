// util/validation_util.go

package util

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	authz_errors "github.com/dev-mohitbeniwal/authz/errors"
	"github.com/dev-mohitbeniwal/authz/pdp/engine"
	pdp_model "github.com/dev-mohitbeniwal/authz/pdp/model"
)

type ValidationUtil struct {
	validate *validator.Validate
	actions  map[string]struct{}
}

// NewValidationUtil accepts the standard actions plus extraActions.
func NewValidationUtil(extraActions []string) *ValidationUtil {
	v := &ValidationUtil{
		validate: validator.New(validator.WithRequiredStructEnabled()),
		actions:  make(map[string]struct{}),
	}
	for _, a := range pdp_model.StandardActions {
		v.actions[a] = struct{}{}
	}
	for _, a := range extraActions {
		if a = strings.TrimSpace(a); a != "" {
			v.actions[a] = struct{}{}
		}
	}

	v.validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.validate.RegisterValidation("authz_action", func(fl validator.FieldLevel) bool {
		return v.ActionAllowed(fl.Field().String())
	})
	return v
}

func (v *ValidationUtil) ActionAllowed(action string) bool {
	_, ok := v.actions[action]
	return ok
}

// ValidateAuthorizationRequest returns a *errors.ValidationError for the
// first problem found.
func (v *ValidationUtil) ValidateAuthorizationRequest(req *pdp_model.AuthorizationRequest) error {
	if req == nil {
		return authz_errors.NewValidationError("", "request is required")
	}
	if err := v.validate.Struct(req); err != nil {
		return translate(err)
	}
	return engine.ValidateRequest(req)
}

// ValidateBatchRequest checks the envelope only. Invalid items are reported
// per item by the engine.
func (v *ValidationUtil) ValidateBatchRequest(req *pdp_model.BatchAuthorizationRequest) error {
	if req == nil {
		return authz_errors.NewValidationError("", "request is required")
	}
	if err := v.validate.Struct(req); err != nil {
		return translate(err)
	}
	return nil
}

func (v *ValidationUtil) ValidateInvalidationEvent(ev pdp_model.InvalidationEvent) error {
	if err := ev.Validate(); err != nil {
		return authz_errors.NewValidationError("type", err.Error())
	}
	return nil
}

func translate(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return authz_errors.NewValidationError("", err.Error())
	}
	fe := verrs[0]
	// drop the top-level struct name
	field := fe.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}
	return authz_errors.NewValidationError(field, describe(fe))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must contain at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "ip":
		return "must be an IP address"
	case "authz_action":
		return fmt.Sprintf("unsupported action %q", fe.Value())
	}
	return fmt.Sprintf("failed %s validation", fe.Tag())
}
