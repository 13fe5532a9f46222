package util

import (
	"errors"
	"testing"

	authz_errors "github.com/dev-mohitbeniwal/authz/errors"
	pdp_model "github.com/dev-mohitbeniwal/authz/pdp/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRequest() *pdp_model.AuthorizationRequest {
	return &pdp_model.AuthorizationRequest{
		UserID:   "u-1",
		Resource: "loan:7",
		Action:   "read",
		Context:  pdp_model.AuthorizationContext{TenantID: "t-1"},
	}
}

func TestValidateAuthorizationRequest(t *testing.T) {
	v := NewValidationUtil([]string{"approve", " "})

	tests := []struct {
		name   string
		mutate func(*pdp_model.AuthorizationRequest)
		field  string
	}{
		{"valid", func(*pdp_model.AuthorizationRequest) {}, ""},
		{"configured action", func(r *pdp_model.AuthorizationRequest) { r.Action = "approve" }, ""},
		{"missing user", func(r *pdp_model.AuthorizationRequest) { r.UserID = "" }, "user_id"},
		{"missing resource", func(r *pdp_model.AuthorizationRequest) { r.Resource = "" }, "resource"},
		{"unknown action", func(r *pdp_model.AuthorizationRequest) { r.Action = "transfer" }, "action"},
		{"bad ip", func(r *pdp_model.AuthorizationRequest) { r.Context.IPAddress = "not-an-ip" }, "context.ip_address"},
		{"missing tenant", func(r *pdp_model.AuthorizationRequest) { r.Context.TenantID = "" }, "context.tenant_id"},
		{"resource without type", func(r *pdp_model.AuthorizationRequest) { r.Resource = ":7" }, "resource"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(req)
			err := v.ValidateAuthorizationRequest(req)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var verr *authz_errors.ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Equal(t, tt.field, verr.Field)
			assert.ErrorIs(t, err, authz_errors.ErrValidation)
		})
	}
}

func TestValidateBatchRequest(t *testing.T) {
	v := NewValidationUtil(nil)

	err := v.ValidateBatchRequest(&pdp_model.BatchAuthorizationRequest{})
	assert.ErrorIs(t, err, authz_errors.ErrValidation)

	big := make([]pdp_model.AuthorizationRequest, 101)
	err = v.ValidateBatchRequest(&pdp_model.BatchAuthorizationRequest{Checks: big})
	var verr *authz_errors.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "checks", verr.Field)

	// items are not validated here
	err = v.ValidateBatchRequest(&pdp_model.BatchAuthorizationRequest{Checks: []pdp_model.AuthorizationRequest{{}}})
	assert.NoError(t, err)
}

func TestValidateInvalidationEvent(t *testing.T) {
	v := NewValidationUtil(nil)

	assert.NoError(t, v.ValidateInvalidationEvent(pdp_model.InvalidationEvent{Type: pdp_model.InvalidatePermission, PermissionID: "p-1"}))
	assert.ErrorIs(t, v.ValidateInvalidationEvent(pdp_model.InvalidationEvent{Type: pdp_model.InvalidateRoleAssignment, TenantID: "t-1"}), authz_errors.ErrValidation)
	assert.ErrorIs(t, v.ValidateInvalidationEvent(pdp_model.InvalidationEvent{Type: "bogus"}), authz_errors.ErrValidation)
}
