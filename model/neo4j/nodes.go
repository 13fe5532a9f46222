// model/neo4j/nodes.go
package authz_neo4j

// Node Labels
const (
	// LabelTenant is the isolation boundary every role and policy belongs to
	LabelTenant = "Tenant"

	// LabelUser represents a user that roles are assigned to
	LabelUser = "User"

	// LabelRole represents a named set of permissions within a tenant
	LabelRole = "Role"

	// LabelPermission represents a (resource type, action) grant, optionally conditional
	LabelPermission = "Permission"

	// LabelPolicy represents a tenant-scoped list of rules
	LabelPolicy = "Policy"
)
