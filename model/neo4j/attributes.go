// model/neo4j/attributes.go
package authz_neo4j

// Property Keys
const (
	AttrID          = "id"
	AttrName        = "name"
	AttrDescription = "description"
	AttrTenantID    = "tenantID"
	AttrCreatedAt   = "createdAt"
	AttrUpdatedAt   = "updatedAt"

	// Permission
	AttrResourceType = "resourceType"
	AttrAction       = "action"
	// AttrConditions holds the condition map as a JSON string
	AttrConditions = "conditions"

	// Policy
	AttrPolicyType = "type"
	AttrActive     = "active"
	AttrVersion    = "version"
	// AttrRules holds the rule list as a JSON string
	AttrRules = "rules"

	// HAS_ROLE
	AttrValidFrom  = "validFrom"
	AttrValidUntil = "validUntil"
)
