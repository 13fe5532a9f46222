// model/neo4j/relationships.go
package authz_neo4j

// Relationship Types
const (
	// RelHasRole links a user to a role. The relationship carries the
	// assignment validity window.
	RelHasRole = "HAS_ROLE"

	// RelHasPermission links a role to the permissions it grants
	RelHasPermission = "HAS_PERMISSION"

	// RelScopedTo links a policy to its tenant
	RelScopedTo = "SCOPED_TO"
)
