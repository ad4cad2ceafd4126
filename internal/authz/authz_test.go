package authz

import (
	"math/rand"
	"testing"
)

func sp(s string) *string { return &s }

func TestParseRole(t *testing.T) {
	cases := map[string]Role{
		"admin":   RoleAdmin,
		"ADMIN":   RoleAdmin,
		" manager": RoleManager,
		"user":    RoleUser,
		"root":    RoleUnknown,
		"":        RoleUnknown,
		"Manager ": RoleManager,
	}
	for input, want := range cases {
		if got := ParseRole(input); got != want {
			t.Errorf("ParseRole(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestPermissionsMatrix(t *testing.T) {
	orgA := sp("org-1")
	orgB := sp("org-2")

	tests := []struct {
		name         string
		role         Role
		principalOrg *string
		targetOrg    *string
		want         Capabilities
	}{
		{"admin same org", RoleAdmin, orgA, orgA, Capabilities{true, true, true, true}},
		{"admin cross org", RoleAdmin, orgA, orgB, Capabilities{true, true, true, true}},
		{"admin nil orgs", RoleAdmin, nil, nil, Capabilities{true, true, true, true}},
		{"manager same org", RoleManager, orgA, orgA, Capabilities{CanRead: true, CanWrite: true, CanManage: true}},
		{"manager unscoped target", RoleManager, orgA, nil, Capabilities{CanRead: true, CanWrite: true, CanManage: true}},
		{"manager cross org", RoleManager, orgA, orgB, Capabilities{}},
		{"manager without org vs scoped target", RoleManager, nil, orgB, Capabilities{}},
		{"user same org", RoleUser, orgA, orgA, Capabilities{CanRead: true, CanWrite: true}},
		{"user unscoped target", RoleUser, orgA, nil, Capabilities{CanRead: true, CanWrite: true}},
		{"user cross org", RoleUser, orgA, orgB, Capabilities{}},
		{"unknown role", RoleUnknown, orgA, orgA, Capabilities{}},
		{"garbage role", Role("superadmin"), orgA, orgA, Capabilities{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Permissions(tc.role, tc.principalOrg, tc.targetOrg); got != tc.want {
				t.Fatalf("Permissions(%q) = %+v, want %+v", tc.role, got, tc.want)
			}
		})
	}
}

// Delete is reserved to admins no matter how the organizations line up.
func TestOnlyAdminDeletes(t *testing.T) {
	orgs := []*string{nil, sp("org-1"), sp("org-2")}
	roles := []Role{RoleAdmin, RoleManager, RoleUser, RoleUnknown, Role("owner")}
	for _, role := range roles {
		for _, p := range orgs {
			for _, target := range orgs {
				got := Permissions(role, p, target).CanDelete
				if want := role == RoleAdmin; got != want {
					t.Fatalf("CanDelete for role=%q p=%v t=%v: got %v, want %v", role, p, target, got, want)
				}
			}
		}
	}
}

func TestCrossOrgDeniesEverything(t *testing.T) {
	for _, role := range []Role{RoleManager, RoleUser} {
		got := Permissions(role, sp("org-1"), sp("org-2"))
		if got != (Capabilities{}) {
			t.Fatalf("role %q cross-org: got %+v, want all false", role, got)
		}
	}
}

// The evaluator is pure: identical inputs yield identical outputs under
// repeated random sampling.
func TestPermissionsDeterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	roles := []Role{RoleAdmin, RoleManager, RoleUser, RoleUnknown}
	orgs := []*string{nil, sp("org-1"), sp("org-2"), sp("org-3")}
	for i := 0; i < 1000; i++ {
		role := roles[rng.Intn(len(roles))]
		p := orgs[rng.Intn(len(orgs))]
		target := orgs[rng.Intn(len(orgs))]
		first := Permissions(role, p, target)
		second := Permissions(role, p, target)
		if first != second {
			t.Fatalf("Permissions not deterministic for role=%q p=%v t=%v", role, p, target)
		}
	}
}

func TestCanManageUsers(t *testing.T) {
	if !CanManageUsers(RoleAdmin) || !CanManageUsers(RoleManager) {
		t.Fatal("admin and manager must manage users")
	}
	if CanManageUsers(RoleUser) || CanManageUsers(RoleUnknown) {
		t.Fatal("user and unknown roles must not manage users")
	}
}

func TestCanManageOrganizationIgnoresOrgs(t *testing.T) {
	for _, p := range []*string{nil, sp("org-1")} {
		for _, target := range []*string{nil, sp("org-1"), sp("org-2")} {
			if !CanManageOrganization(RoleAdmin, p, target) {
				t.Fatal("admin must manage organizations")
			}
			if CanManageOrganization(RoleManager, p, target) || CanManageOrganization(RoleUser, p, target) {
				t.Fatal("organization management is admin only")
			}
		}
	}
}

func TestCanManageTickets(t *testing.T) {
	if !CanManageTickets(RoleUser, sp("org-1"), sp("org-1")) {
		t.Fatal("user must manage own-org ticket")
	}
	if CanManageTickets(RoleUser, sp("org-1"), sp("org-2")) {
		t.Fatal("user must not manage cross-org ticket")
	}
	if !CanManageTickets(RoleAdmin, nil, sp("org-2")) {
		t.Fatal("admin must manage any ticket")
	}
	if CanManageTickets(RoleManager, nil, nil) {
		t.Fatal("manager without orgs must not manage tickets")
	}
}

func TestCanAssignTickets(t *testing.T) {
	if !CanAssignTickets(RoleAdmin) || !CanAssignTickets(RoleManager) {
		t.Fatal("admin and manager assign tickets")
	}
	if CanAssignTickets(RoleUser) || CanAssignTickets(RoleUnknown) {
		t.Fatal("user and unknown roles must not assign tickets")
	}
}

func TestCanCreateUserWithRole(t *testing.T) {
	if CanCreateUserWithRole(RoleManager, RoleAdmin) {
		t.Fatal("manager must not mint admins")
	}
	if CanCreateUserWithRole(RoleManager, RoleManager) {
		t.Fatal("manager must not mint managers")
	}
	if !CanCreateUserWithRole(RoleManager, RoleUser) {
		t.Fatal("manager must be able to create users")
	}
	for _, target := range []Role{RoleAdmin, RoleManager, RoleUser} {
		if !CanCreateUserWithRole(RoleAdmin, target) {
			t.Fatalf("admin must create role %q", target)
		}
	}
	if CanCreateUserWithRole(RoleAdmin, RoleUnknown) {
		t.Fatal("nobody provisions unknown roles")
	}
	if CanCreateUserWithRole(RoleUser, RoleUser) {
		t.Fatal("plain users must not create accounts")
	}
}

func TestCanAccessOrganizationData(t *testing.T) {
	if !CanAccessOrganizationData(RoleAdmin, nil, sp("org-9")) {
		t.Fatal("admin reaches any partition")
	}
	if !CanAccessOrganizationData(RoleUser, sp("org-1"), sp("org-1")) {
		t.Fatal("user reaches own partition")
	}
	if CanAccessOrganizationData(RoleUser, sp("org-1"), sp("org-2")) {
		t.Fatal("user must not reach foreign partition")
	}
	// Unassigned profile against unassigned record is a deliberate match.
	if !CanAccessOrganizationData(RoleManager, nil, nil) {
		t.Fatal("org-less manager matches org-less data")
	}
	if CanAccessOrganizationData(RoleManager, nil, sp("org-1")) {
		t.Fatal("org-less manager must not reach assigned data")
	}
	if CanAccessOrganizationData(RoleUnknown, nil, nil) {
		t.Fatal("unknown role fails closed")
	}
}

func TestAccessibleOrganizations(t *testing.T) {
	if scope := AccessibleOrganizations(RoleAdmin, nil); !scope.All {
		t.Fatal("admin scope must be unpartitioned")
	}
	scope := AccessibleOrganizations(RoleManager, sp("org-1"))
	if scope.All || len(scope.IDs) != 1 || scope.IDs[0] != "org-1" {
		t.Fatalf("manager scope = %+v, want singleton org-1", scope)
	}
	if scope := AccessibleOrganizations(RoleUser, nil); scope.All || len(scope.IDs) != 0 {
		t.Fatalf("org-less user scope = %+v, want empty", scope)
	}
	if scope := AccessibleOrganizations(RoleUnknown, sp("org-1")); scope.All || len(scope.IDs) != 0 {
		t.Fatalf("unknown role scope = %+v, want empty", scope)
	}
}

type fakeResource struct {
	org   *string
	owner string
}

func (f fakeResource) OwnerOrganizationID() *string { return f.org }
func (f fakeResource) OwnerUserID() string          { return f.owner }

func TestCheckResource(t *testing.T) {
	orgA := sp("org-1")
	orgB := sp("org-2")

	// Organization-scoped record follows the partition.
	caps := CheckResource(RoleUser, orgA, "u-1", fakeResource{org: orgA, owner: "u-2"})
	if !caps.CanRead || !caps.CanWrite || caps.CanDelete || caps.CanManage {
		t.Fatalf("same-org user caps = %+v", caps)
	}
	if caps := CheckResource(RoleUser, orgA, "u-1", fakeResource{org: orgB, owner: "u-1"}); caps != (Capabilities{}) {
		t.Fatalf("ownership must not pierce the partition, got %+v", caps)
	}

	// Per-user record: owner and admin only.
	if caps := CheckResource(RoleUser, orgA, "u-1", fakeResource{owner: "u-1"}); !caps.CanRead || !caps.CanWrite {
		t.Fatalf("owner caps = %+v", caps)
	}
	if caps := CheckResource(RoleManager, orgA, "u-1", fakeResource{owner: "u-2"}); caps != (Capabilities{}) {
		t.Fatalf("non-owner manager caps = %+v", caps)
	}
	if caps := CheckResource(RoleAdmin, nil, "u-1", fakeResource{owner: "u-2"}); caps != (Capabilities{true, true, true, true}) {
		t.Fatalf("admin caps on per-user record = %+v", caps)
	}
}
