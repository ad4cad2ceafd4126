package authz

// Capabilities is the four-way decision produced for one principal against one
// target. It is computed fresh on every check and must never be cached.
type Capabilities struct {
	CanRead   bool
	CanWrite  bool
	CanDelete bool
	CanManage bool
}

// allCapabilities is what admins receive regardless of organization values.
var allCapabilities = Capabilities{CanRead: true, CanWrite: true, CanDelete: true, CanManage: true}

// sameOrg reports whether the target organization is within the principal's
// partition. An absent target means the check is not organization-scoped and
// counts as the principal's own. Two absent organizations match; see
// CanAccessOrganizationData for the deliberate nil==nil decision.
func sameOrg(principalOrg, targetOrg *string) bool {
	if targetOrg == nil {
		return true
	}
	if principalOrg == nil {
		return false
	}
	return *principalOrg == *targetOrg
}

// Permissions computes the capability set for a role acting on a resource that
// belongs to targetOrg. Pass nil for checks that are not organization-scoped.
func Permissions(role Role, principalOrg, targetOrg *string) Capabilities {
	switch role {
	case RoleAdmin:
		return allCapabilities
	case RoleManager:
		own := sameOrg(principalOrg, targetOrg)
		return Capabilities{CanRead: own, CanWrite: own, CanManage: own}
	case RoleUser:
		own := sameOrg(principalOrg, targetOrg)
		return Capabilities{CanRead: own, CanWrite: own}
	default:
		return Capabilities{}
	}
}

// CanManageUsers reports whether the role may administer user accounts at all.
// Which roles it may hand out is a separate check, CanCreateUserWithRole.
func CanManageUsers(role Role) bool {
	return role == RoleAdmin || role == RoleManager
}

// CanManageOrganization reports whether the role may create, edit, or delete
// organization records. The organization parameters are accepted for call-site
// symmetry but never change the outcome: organization management is admin-global.
func CanManageOrganization(role Role, principalOrg, targetOrg *string) bool {
	_ = principalOrg
	_ = targetOrg
	return role == RoleAdmin
}

// CanManageTickets reports whether the role may act on a ticket owned by
// ticketOrg. Admins always may; managers and users only within their own
// organization.
func CanManageTickets(role Role, principalOrg, ticketOrg *string) bool {
	switch role {
	case RoleAdmin:
		return true
	case RoleManager, RoleUser:
		return principalOrg != nil && ticketOrg != nil && *principalOrg == *ticketOrg
	default:
		return false
	}
}

// CanAssignTickets reports whether the role may change a ticket's assignee.
func CanAssignTickets(role Role) bool {
	return role == RoleAdmin || role == RoleManager
}

// CanCreateUserWithRole reports whether a principal with role may provision a
// new account carrying targetRole. Managers can only create plain users.
func CanCreateUserWithRole(role, targetRole Role) bool {
	switch role {
	case RoleAdmin:
		return targetRole.Valid()
	case RoleManager:
		return targetRole == RoleUser
	default:
		return false
	}
}

// CanAccessOrganizationData reports whether the role may touch data partitioned
// under dataOrg. Two absent organizations are treated as a match: a profile that
// has not been assigned to a tenant yet can only ever reach records that are
// equally unassigned.
func CanAccessOrganizationData(role Role, principalOrg, dataOrg *string) bool {
	if role == RoleAdmin {
		return true
	}
	if role != RoleManager && role != RoleUser {
		return false
	}
	if principalOrg == nil && dataOrg == nil {
		return true
	}
	if principalOrg == nil || dataOrg == nil {
		return false
	}
	return *principalOrg == *dataOrg
}

// OrgScope bounds a list query. All=true means unpartitioned access; otherwise
// IDs holds the only organizations whose rows may be returned (possibly none).
type OrgScope struct {
	All bool
	IDs []string
}

// AccessibleOrganizations computes the list-query scope for a role. It is used
// to constrain multi-row reads, never as a substitute for per-record checks.
func AccessibleOrganizations(role Role, principalOrg *string) OrgScope {
	if role == RoleAdmin {
		return OrgScope{All: true}
	}
	if !role.Valid() || principalOrg == nil {
		return OrgScope{}
	}
	return OrgScope{IDs: []string{*principalOrg}}
}
