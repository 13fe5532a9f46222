package dao

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	authz_errors "github.com/dev-mohitbeniwal/authz/errors"
	logger "github.com/dev-mohitbeniwal/authz/logging"
	"github.com/dev-mohitbeniwal/authz/model"
	"go.uber.org/zap"
)

const policyPageSize = 100

// HTTPEntityClient reads roles, permissions and policies from the entity
// service REST API.
type HTTPEntityClient struct {
	baseURL string
	client  *http.Client
}

func NewHTTPEntityClient(baseURL string, timeout time.Duration) *HTTPEntityClient {
	return &HTTPEntityClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type rolesResponse struct {
	Roles []model.Role `json:"roles"`
}

// GetRolesForUser returns the user's active assignments. The service embeds
// permission summaries without conditions, so they are turned into ids and
// expanded through GetPermission.
func (c *HTTPEntityClient) GetRolesForUser(ctx context.Context, tenantID, userID string) ([]model.Role, error) {
	q := url.Values{}
	q.Set("tenant_id", tenantID)
	q.Set("active_only", "true")
	path := "/api/v1/entities/users/" + url.PathEscape(userID) + "/roles"

	var resp rolesResponse
	if err := c.get(ctx, "get user roles", path, q, &resp); err != nil {
		return nil, err
	}
	for i := range resp.Roles {
		role := &resp.Roles[i]
		for _, p := range role.Permissions {
			if p.ID != "" && !containsID(role.PermissionIDs, p.ID) {
				role.PermissionIDs = append(role.PermissionIDs, p.ID)
			}
		}
		role.Permissions = nil
	}
	return resp.Roles, nil
}

func (c *HTTPEntityClient) GetPermission(ctx context.Context, permissionID string) (*model.Permission, error) {
	var perm model.Permission
	err := c.get(ctx, "get permission", "/api/v1/entities/permissions/"+url.PathEscape(permissionID), nil, &perm)
	var es *authz_errors.EntityServiceError
	if errors.As(err, &es) && es.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("permission %s: %w", permissionID, authz_errors.ErrPermissionNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &perm, nil
}

// policyPage accepts the paginated envelope or a bare list.
type policyPage struct {
	Items    []model.Policy
	Policies []model.Policy
}

func (p *policyPage) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '[' {
		return json.Unmarshal(data, &p.Items)
	}
	var envelope struct {
		Items    []model.Policy `json:"items"`
		Policies []model.Policy `json:"policies"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return err
	}
	p.Items, p.Policies = envelope.Items, envelope.Policies
	return nil
}

func (p *policyPage) list() []model.Policy {
	if len(p.Items) > 0 {
		return p.Items
	}
	return p.Policies
}

func (c *HTTPEntityClient) ListActivePolicies(ctx context.Context, tenantID string, policyType model.PolicyType) ([]model.Policy, error) {
	var all []model.Policy
	for page := 1; ; page++ {
		q := url.Values{}
		q.Set("tenant_id", tenantID)
		q.Set("policy_type", string(policyType))
		q.Set("active", "true")
		q.Set("page", strconv.Itoa(page))
		q.Set("page_size", strconv.Itoa(policyPageSize))

		var resp policyPage
		if err := c.get(ctx, "list policies", "/api/v1/entities/policies", q, &resp); err != nil {
			return nil, err
		}
		items := resp.list()
		all = append(all, items...)
		if len(items) < policyPageSize {
			return all, nil
		}
	}
}

func (c *HTTPEntityClient) get(ctx context.Context, op, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return &authz_errors.EntityServiceError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		// a cancelled caller is not worth retrying
		transient := ctx.Err() == nil
		return &authz_errors.EntityServiceError{Op: op, Transient: transient, Err: err}
	}
	defer resp.Body.Close()

	logger.Debug("Entity service request",
		zap.String("op", op),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)))

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &authz_errors.EntityServiceError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Transient:  resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests,
			Err:        errors.New(strings.TrimSpace(string(body))),
		}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &authz_errors.EntityServiceError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decoding response: %w", err)}
	}
	return nil
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
