package helper_util

import (
	"strconv"

	"github.com/gin-gonic/gin"

	authz_errors "github.com/dev-mohitbeniwal/authz/errors"
)

// Pagination is a validated page request taken from the query string.
type Pagination struct {
	Limit  int
	Offset int
}

// GetPaginationParams reads limit and offset. A missing limit becomes
// defaultLimit and a limit above maxLimit is clamped to it. Malformed or
// negative values are a *errors.ValidationError.
func GetPaginationParams(c *gin.Context, defaultLimit, maxLimit int) (Pagination, error) {
	p := Pagination{Limit: defaultLimit}
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return Pagination{}, authz_errors.NewValidationError("limit", "must be a positive integer")
		}
		p.Limit = n
	}
	if maxLimit > 0 && p.Limit > maxLimit {
		p.Limit = maxLimit
	}
	if raw := c.Query("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return Pagination{}, authz_errors.NewValidationError("offset", "must be a non-negative integer")
		}
		p.Offset = n
	}
	return p, nil
}
