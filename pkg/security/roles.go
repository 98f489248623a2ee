package security

import (
	"github.com/Gobusters/ectolinq"
)

const (
	RoleAdmin        = "admin"
	RoleReceptionist = "receptionist"
	RoleHost         = "host"
	RoleReadonly     = "readonly"
)

var Roles = []string{RoleAdmin, RoleReceptionist, RoleHost, RoleReadonly}

// DefaultRole is granted to users who join a tenant without an invitation.
const DefaultRole = RoleReadonly

type Permission string

const (
	TenantEdit    Permission = "tenantEdit"
	TenantDestroy Permission = "tenantDestroy"
	PlanEdit      Permission = "planEdit"
	PlanRead      Permission = "planRead"
	UserEdit      Permission = "userEdit"
	UserDestroy   Permission = "userDestroy"
	UserCreate    Permission = "userCreate"
	UserRead      Permission = "userRead"
)

// EntityPermissions are the per-action permissions of one tenant-scoped entity.
type EntityPermissions struct {
	Create       Permission
	Edit         Permission
	Destroy      Permission
	Read         Permission
	Import       Permission
	Autocomplete Permission
}

func PermissionsFor(entity string) EntityPermissions {
	return EntityPermissions{
		Create:       Permission(entity + "Create"),
		Edit:         Permission(entity + "Edit"),
		Destroy:      Permission(entity + "Destroy"),
		Read:         Permission(entity + "Read"),
		Import:       Permission(entity + "Import"),
		Autocomplete: Permission(entity + "Autocomplete"),
	}
}

var permissions = buildPermissions()

func buildPermissions() map[Permission][]string {
	all := []string{RoleAdmin, RoleReceptionist, RoleHost, RoleReadonly}
	staff := []string{RoleAdmin, RoleReceptionist}

	m := map[Permission][]string{
		TenantEdit:    {RoleAdmin},
		TenantDestroy: {RoleAdmin},
		PlanEdit:      {RoleAdmin},
		PlanRead:      {RoleAdmin},
		UserEdit:      {RoleAdmin},
		UserDestroy:   {RoleAdmin},
		UserCreate:    {RoleAdmin},
		UserRead:      {RoleAdmin},
	}

	// front desk owns visitors and their screenings, hosts may schedule their own meetings
	grant := func(entity string, writers []string) {
		p := PermissionsFor(entity)
		m[p.Create] = writers
		m[p.Edit] = writers
		m[p.Destroy] = staff
		m[p.Import] = []string{RoleAdmin}
		m[p.Read] = all
		m[p.Autocomplete] = all
	}
	grant("visitor", staff)
	grant("host", staff)
	grant("meeting", []string{RoleAdmin, RoleReceptionist, RoleHost})
	grant("questionnaire", staff)

	return m
}

// Allowed reports whether any of roles is granted perm.
func Allowed(roles []string, perm Permission) bool {
	allowed, ok := permissions[perm]
	if !ok {
		return false
	}
	for _, role := range roles {
		if ectolinq.Contains(allowed, role) {
			return true
		}
	}
	return false
}

// ValidRoles reports whether every role is a known role and at least one is given.
func ValidRoles(roles []string) bool {
	if len(roles) == 0 {
		return false
	}
	for _, role := range roles {
		if !ectolinq.Contains(Roles, role) {
			return false
		}
	}
	return true
}
