package helper_util

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authz_errors "github.com/dev-mohitbeniwal/authz/errors"
)

func contextWithQuery(query string) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/?"+query, nil)
	return c
}

func TestGetPaginationParams(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		want    Pagination
		wantErr string
	}{
		{name: "defaults", query: "", want: Pagination{Limit: 10}},
		{name: "explicit", query: "limit=25&offset=50", want: Pagination{Limit: 25, Offset: 50}},
		{name: "clamped to max", query: "limit=9000", want: Pagination{Limit: 500}},
		{name: "zero limit", query: "limit=0", wantErr: "limit"},
		{name: "non-numeric limit", query: "limit=ten", wantErr: "limit"},
		{name: "negative offset", query: "offset=-1", wantErr: "offset"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := GetPaginationParams(contextWithQuery(tt.query), 10, 500)
			if tt.wantErr != "" {
				var verr *authz_errors.ValidationError
				require.True(t, errors.As(err, &verr))
				assert.Equal(t, tt.wantErr, verr.Field)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
