package middleware

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"

	"github.com/dgrijalva/jwt-go"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	authz_errors "github.com/dev-mohitbeniwal/authz/errors"
	logger "github.com/dev-mohitbeniwal/authz/logging"
	pdp_model "github.com/dev-mohitbeniwal/authz/pdp/model"
	"github.com/dev-mohitbeniwal/authz/util"
)

const APIKeyHeader = "X-API-Key"

type AuthOptions struct {
	Enabled   bool
	JWTSecret string
	APIKey    string
	// PublicPaths skip authentication. A path matches by prefix.
	PublicPaths []string
}

// Claims are the fields read from caller tokens. user_id wins over sub.
type Claims struct {
	jwt.StandardClaims
	UserID   string   `json:"user_id"`
	TenantID string   `json:"tenant_id"`
	Roles    []string `json:"roles"`
}

// Authenticate establishes the caller's Principal from an X-API-Key header
// (service callers) or an HS256 bearer token.
func Authenticate(opts AuthOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !opts.Enabled || isPublic(c.Request.URL.Path, opts.PublicPaths) {
			c.Next()
			return
		}

		if key := c.GetHeader(APIKeyHeader); key != "" && opts.APIKey != "" {
			if subtle.ConstantTimeCompare([]byte(key), []byte(opts.APIKey)) == 1 {
				c.Set(util.PrincipalKey, &pdp_model.Principal{ServiceAccount: true})
				c.Next()
				return
			}
			logger.Warn("Rejected API key", zap.String("path", c.Request.URL.Path))
			util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", authz_errors.ErrUnauthorized)
			return
		}

		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			util.RespondWithError(c, http.StatusUnauthorized, "Missing or invalid authorization header", authz_errors.ErrUnauthorized)
			return
		}

		principal, err := ParseToken(strings.TrimPrefix(header, "Bearer "), opts.JWTSecret)
		if err != nil {
			util.RespondWithError(c, http.StatusUnauthorized, "Invalid token", err)
			return
		}
		c.Set(util.PrincipalKey, principal)
		c.Next()
	}
}

// ParseToken verifies an HS256 token and returns its principal.
func ParseToken(tokenString, secret string) (*pdp_model.Principal, error) {
	if secret == "" {
		return nil, fmt.Errorf("%w: no signing secret configured", authz_errors.ErrUnauthorized)
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", authz_errors.ErrUnauthorized, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%w: invalid token or wrong claims type", authz_errors.ErrUnauthorized)
	}
	userID := claims.UserID
	if userID == "" {
		userID = claims.Subject
	}
	if userID == "" {
		return nil, fmt.Errorf("%w: token has no user_id", authz_errors.ErrUnauthorized)
	}
	return &pdp_model.Principal{UserID: userID, TenantID: claims.TenantID, Roles: claims.Roles}, nil
}

// PrincipalFromContext returns the principal set by Authenticate, or nil.
func PrincipalFromContext(c *gin.Context) *pdp_model.Principal {
	v, ok := c.Get(util.PrincipalKey)
	if !ok {
		return nil
	}
	p, _ := v.(*pdp_model.Principal)
	return p
}

func isPublic(path string, public []string) bool {
	for _, p := range public {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
