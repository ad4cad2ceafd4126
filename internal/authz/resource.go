package authz

// OwnedResource is the minimal shape the evaluator needs from a domain record:
// the tenant it belongs to and, optionally, the user that owns it. Handlers
// funnel every per-record decision through CheckResource instead of comparing
// organization ids at call sites.
type OwnedResource interface {
	OwnerOrganizationID() *string
	OwnerUserID() string
}

// CheckResource computes the capability set for a principal against a concrete
// record. Records that carry no organization but do carry an owner are per-user
// data (notifications, personal drafts): only the owner and admins may touch
// them. The organization partition is never widened by ownership.
func CheckResource(role Role, principalOrg *string, principalID string, res OwnedResource) Capabilities {
	org := res.OwnerOrganizationID()
	if org == nil {
		if owner := res.OwnerUserID(); owner != "" {
			if role == RoleAdmin {
				return allCapabilities
			}
			if !role.Valid() || owner != principalID {
				return Capabilities{}
			}
			return Capabilities{CanRead: true, CanWrite: true}
		}
	}
	return Permissions(role, principalOrg, org)
}
