package cache

import "strings"

var keyEscaper = strings.NewReplacer("%", "%25", ":", "%3A")

// escape keeps ':' inside ids from colliding with the key separator.
func escape(s string) string {
	return keyEscaper.Replace(s)
}

func RolesKey(tenantID, userID string) string {
	return "roles:" + escape(tenantID) + ":" + escape(userID)
}

func RolesTenantPrefix(tenantID string) string {
	return "roles:" + escape(tenantID) + ":"
}

func PoliciesKey(tenantID, policyType string) string {
	return AllPoliciesPrefix + escape(tenantID) + ":" + escape(policyType)
}

func PoliciesTenantPrefix(tenantID string) string {
	return AllPoliciesPrefix + escape(tenantID) + ":"
}

// AllPoliciesPrefix covers every tenant's policy lists.
const AllPoliciesPrefix = "policies:"

func PermissionKey(permissionID string) string {
	return "permission:" + escape(permissionID)
}

func DecisionKey(tenantID, userID, digest string) string {
	return DecisionUserPrefix(tenantID, userID) + digest
}

func DecisionTenantPrefix(tenantID string) string {
	return "decision:" + escape(tenantID) + ":"
}

func DecisionUserPrefix(tenantID, userID string) string {
	return DecisionTenantPrefix(tenantID) + escape(userID) + ":"
}
