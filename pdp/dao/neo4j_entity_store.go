package dao

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	authz_errors "github.com/dev-mohitbeniwal/authz/errors"
	logger "github.com/dev-mohitbeniwal/authz/logging"
	"github.com/dev-mohitbeniwal/authz/model"
	authz_neo4j "github.com/dev-mohitbeniwal/authz/model/neo4j"
	helper_util "github.com/dev-mohitbeniwal/authz/util/helper"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

// RecordReader runs a read-only Cypher query and returns every record.
type RecordReader interface {
	ReadRecords(ctx context.Context, cypher string, params map[string]any) ([]*neo4j.Record, error)
}

// Neo4jEntityStore reads the entity graph directly, for deployments that
// share the entity service's database.
type Neo4jEntityStore struct {
	reader RecordReader
}

func NewNeo4jEntityStore(reader RecordReader) *Neo4jEntityStore {
	return &Neo4jEntityStore{reader: reader}
}

var (
	rolesForUserQuery = `
        MATCH (u:` + authz_neo4j.LabelUser + ` {` + authz_neo4j.AttrID + `: $userID})-[a:` + authz_neo4j.RelHasRole + `]->(r:` + authz_neo4j.LabelRole + `)
        WHERE r.` + authz_neo4j.AttrTenantID + ` = $tenantID
        OPTIONAL MATCH (r)-[:` + authz_neo4j.RelHasPermission + `]->(p:` + authz_neo4j.LabelPermission + `)
        RETURN r, a, collect(p) AS permissions
        ORDER BY r.` + authz_neo4j.AttrName + `, r.` + authz_neo4j.AttrID

	permissionQuery = `
        MATCH (p:` + authz_neo4j.LabelPermission + ` {` + authz_neo4j.AttrID + `: $permissionID})
        RETURN p`

	activePoliciesQuery = `
        MATCH (p:` + authz_neo4j.LabelPolicy + `)-[:` + authz_neo4j.RelScopedTo + `]->(t:` + authz_neo4j.LabelTenant + ` {` + authz_neo4j.AttrID + `: $tenantID})
        WHERE p.` + authz_neo4j.AttrPolicyType + ` = $policyType AND p.` + authz_neo4j.AttrActive + ` = true
        RETURN p, t.` + authz_neo4j.AttrID + ` AS tenantID
        ORDER BY p.` + authz_neo4j.AttrCreatedAt + `, p.` + authz_neo4j.AttrID
)

func (s *Neo4jEntityStore) GetRolesForUser(ctx context.Context, tenantID, userID string) ([]model.Role, error) {
	start := time.Now()
	records, err := s.reader.ReadRecords(ctx, rolesForUserQuery, map[string]any{"userID": userID, "tenantID": tenantID})
	if err != nil {
		return nil, wrapNeo4jError("get user roles", err)
	}

	roles := make([]model.Role, 0, len(records))
	for _, record := range records {
		role, err := mapRecordToRole(record)
		if err != nil {
			return nil, &authz_errors.EntityServiceError{Op: "get user roles", Err: err}
		}
		roles = append(roles, role)
	}
	logger.Debug("Loaded roles from graph",
		zap.String("tenantID", tenantID), zap.String("userID", userID),
		zap.Int("roleCount", len(roles)), zap.Duration("duration", time.Since(start)))
	return roles, nil
}

func (s *Neo4jEntityStore) GetPermission(ctx context.Context, permissionID string) (*model.Permission, error) {
	records, err := s.reader.ReadRecords(ctx, permissionQuery, map[string]any{"permissionID": permissionID})
	if err != nil {
		return nil, wrapNeo4jError("get permission", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("permission %s: %w", permissionID, authz_errors.ErrPermissionNotFound)
	}
	node, ok := records[0].Values[0].(neo4j.Node)
	if !ok {
		return nil, &authz_errors.EntityServiceError{Op: "get permission", Err: fmt.Errorf("unexpected value %T", records[0].Values[0])}
	}
	perm, err := mapNodeToPermission(node)
	if err != nil {
		return nil, &authz_errors.EntityServiceError{Op: "get permission", Err: err}
	}
	return &perm, nil
}

func (s *Neo4jEntityStore) ListActivePolicies(ctx context.Context, tenantID string, policyType model.PolicyType) ([]model.Policy, error) {
	records, err := s.reader.ReadRecords(ctx, activePoliciesQuery, map[string]any{"tenantID": tenantID, "policyType": string(policyType)})
	if err != nil {
		return nil, wrapNeo4jError("list policies", err)
	}

	policies := make([]model.Policy, 0, len(records))
	for _, record := range records {
		node, ok := record.Values[0].(neo4j.Node)
		if !ok {
			return nil, &authz_errors.EntityServiceError{Op: "list policies", Err: fmt.Errorf("unexpected value %T", record.Values[0])}
		}
		policy, err := mapNodeToPolicy(node)
		if err != nil {
			return nil, &authz_errors.EntityServiceError{Op: "list policies", Err: err}
		}
		if v, ok := record.Get("tenantID"); ok {
			if tid, ok := v.(string); ok {
				policy.TenantID = tid
			}
		}
		policies = append(policies, policy)
	}
	return policies, nil
}

func wrapNeo4jError(op string, err error) error {
	return &authz_errors.EntityServiceError{Op: op, Transient: neo4j.IsRetryable(err), Err: err}
}

func mapRecordToRole(record *neo4j.Record) (model.Role, error) {
	rv, _ := record.Get("r")
	node, ok := rv.(neo4j.Node)
	if !ok {
		return model.Role{}, fmt.Errorf("failed to assert type for role node: %T", rv)
	}
	props := node.Props

	role := model.Role{}
	if role.ID, ok = props[authz_neo4j.AttrID].(string); !ok {
		return model.Role{}, fmt.Errorf("failed to assert type for role ID: %v", props[authz_neo4j.AttrID])
	}
	role.Name, _ = props[authz_neo4j.AttrName].(string)
	role.TenantID, _ = props[authz_neo4j.AttrTenantID].(string)

	if av, ok := record.Get("a"); ok {
		if rel, ok := av.(neo4j.Relationship); ok {
			var err error
			if role.ValidFrom, err = helper_util.ParseNullableTime(rel.Props[authz_neo4j.AttrValidFrom]); err != nil {
				return model.Role{}, fmt.Errorf("role %s validFrom: %w", role.ID, err)
			}
			if role.ValidUntil, err = helper_util.ParseNullableTime(rel.Props[authz_neo4j.AttrValidUntil]); err != nil {
				return model.Role{}, fmt.Errorf("role %s validUntil: %w", role.ID, err)
			}
		}
	}

	if pv, ok := record.Get("permissions"); ok {
		list, _ := pv.([]any)
		for _, item := range list {
			pn, ok := item.(neo4j.Node)
			if !ok {
				continue
			}
			perm, err := mapNodeToPermission(pn)
			if err != nil {
				return model.Role{}, fmt.Errorf("role %s: %w", role.ID, err)
			}
			role.Permissions = append(role.Permissions, perm)
		}
	}
	return role, nil
}

func mapNodeToPermission(node neo4j.Node) (model.Permission, error) {
	props := node.Props
	perm := model.Permission{}

	var ok bool
	if perm.ID, ok = props[authz_neo4j.AttrID].(string); !ok {
		return model.Permission{}, fmt.Errorf("failed to assert type for permission ID: %v", props[authz_neo4j.AttrID])
	}
	if perm.ResourceType, ok = props[authz_neo4j.AttrResourceType].(string); !ok {
		return model.Permission{}, fmt.Errorf("failed to assert type for permission %s resource type: %v", perm.ID, props[authz_neo4j.AttrResourceType])
	}
	if perm.Action, ok = props[authz_neo4j.AttrAction].(string); !ok {
		return model.Permission{}, fmt.Errorf("failed to assert type for permission %s action: %v", perm.ID, props[authz_neo4j.AttrAction])
	}
	perm.Name, _ = props[authz_neo4j.AttrName].(string)

	if conditionsJSON, ok := props[authz_neo4j.AttrConditions].(string); ok && conditionsJSON != "" {
		if err := json.Unmarshal([]byte(conditionsJSON), &perm.Condition); err != nil {
			return model.Permission{}, fmt.Errorf("failed to unmarshal permission %s conditions: %w", perm.ID, err)
		}
	}
	return perm, nil
}

func mapNodeToPolicy(node neo4j.Node) (model.Policy, error) {
	props := node.Props
	policy := model.Policy{Active: true}

	var ok bool
	if policy.ID, ok = props[authz_neo4j.AttrID].(string); !ok {
		return model.Policy{}, fmt.Errorf("failed to assert type for policy ID: %v", props[authz_neo4j.AttrID])
	}
	policy.Name, _ = props[authz_neo4j.AttrName].(string)
	policy.Description, _ = props[authz_neo4j.AttrDescription].(string)
	policy.Version, _ = props[authz_neo4j.AttrVersion].(string)

	policyType, _ := props[authz_neo4j.AttrPolicyType].(string)
	policy.Type = model.PolicyType(policyType)
	if !policy.Type.Valid() {
		return model.Policy{}, fmt.Errorf("invalid policy type for %s: %q", policy.ID, policyType)
	}

	if active, ok := props[authz_neo4j.AttrActive].(bool); ok {
		policy.Active = active
	}

	if rulesJSON, ok := props[authz_neo4j.AttrRules].(string); ok {
		if err := json.Unmarshal([]byte(rulesJSON), &policy.Rules); err != nil {
			return model.Policy{}, fmt.Errorf("failed to unmarshal policy %s rules: %w", policy.ID, err)
		}
	} else {
		return model.Policy{}, fmt.Errorf("failed to assert type for policy %s rules: %v", policy.ID, props[authz_neo4j.AttrRules])
	}

	if createdAt, err := helper_util.ParseNullableTime(props[authz_neo4j.AttrCreatedAt]); err == nil && createdAt != nil {
		policy.CreatedAt = *createdAt
	}
	if updatedAt, err := helper_util.ParseNullableTime(props[authz_neo4j.AttrUpdatedAt]); err == nil && updatedAt != nil {
		policy.UpdatedAt = *updatedAt
	}
	return policy, nil
}
