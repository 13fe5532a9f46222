package engine

import (
	"time"

	logger "github.com/dev-mohitbeniwal/authz/logging"
	"github.com/dev-mohitbeniwal/authz/model"
	pdp_model "github.com/dev-mohitbeniwal/authz/pdp/model"
	"go.uber.org/zap"
)

// Built-in attribute names. They shadow caller attributes of the same name.
const (
	AttrTenantID        = "tenant_id"
	AttrUserID          = "user_id"
	AttrAction          = "action"
	AttrResource        = "resource"
	AttrResourceType    = "resource_type"
	AttrResourceID      = "resource_id"
	AttrResourceOwnerID = "resource_owner_id"
	AttrIPAddress       = "ip_address"
	AttrTime            = "time"
	AttrIsOwner         = "is_owner"
)

// buildAttributes flattens a request into the typed map conditions read.
func buildAttributes(req *pdp_model.AuthorizationRequest, now time.Time) map[string]model.AttributeValue {
	rc := req.Context
	attrs := make(map[string]model.AttributeValue, len(rc.Attributes)+10)
	for name, raw := range rc.Attributes {
		v, err := model.ParseAttribute(raw)
		if err != nil {
			logger.Debug("Ignoring non-scalar context attribute", zap.String("attribute", name), zap.Error(err))
			continue
		}
		attrs[name] = v
	}

	resourceType, resourceID := req.ResourceParts()
	attrs[AttrTenantID] = model.StringValue(rc.TenantID)
	attrs[AttrUserID] = model.StringValue(req.UserID)
	attrs[AttrAction] = model.StringValue(req.Action)
	attrs[AttrResource] = model.StringValue(req.Resource)
	attrs[AttrResourceType] = model.StringValue(resourceType)
	if resourceID != "" {
		attrs[AttrResourceID] = model.StringValue(resourceID)
	} else {
		delete(attrs, AttrResourceID)
	}
	if rc.ResourceOwnerID != "" {
		attrs[AttrResourceOwnerID] = model.StringValue(rc.ResourceOwnerID)
		attrs[AttrIsOwner] = model.BoolValue(rc.ResourceOwnerID == req.UserID)
	} else {
		delete(attrs, AttrResourceOwnerID)
		delete(attrs, AttrIsOwner)
	}
	if rc.IPAddress != "" {
		attrs[AttrIPAddress] = model.StringValue(rc.IPAddress)
	} else {
		delete(attrs, AttrIPAddress)
	}
	if rc.Time != nil {
		attrs[AttrTime] = model.TimestampValue(*rc.Time)
	} else {
		attrs[AttrTime] = model.TimestampValue(now)
	}
	return attrs
}

// conditionsRead reports whether any permission condition of roles or any
// rule condition of policies tests attribute.
func conditionsRead(attribute string, roles []ResolvedRole, policies PolicySet) bool {
	for _, role := range roles {
		for i := range role.Permissions {
			if role.Permissions[i].condition.Reads(attribute) {
				return true
			}
		}
	}
	for _, list := range policies {
		for _, p := range list {
			for i := range p.rules {
				if p.rules[i].condition.Reads(attribute) {
					return true
				}
			}
		}
	}
	return false
}
