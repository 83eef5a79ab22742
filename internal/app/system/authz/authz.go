// Package authz derives capabilities from a profile snapshot. Everything here
// is pure: no I/O, no mutation. Callers must pass a freshly loaded profile.
package authz

import (
	"sort"

	"github.com/dalemusser/opshub/internal/domain/models"
)

// Capability names one privileged action.
type Capability string

const (
	// ManageProjects covers accepting and rejecting pending projects.
	ManageProjects Capability = "manage_projects"
	// PostAnnouncements covers broadcasting to every profile.
	PostAnnouncements Capability = "post_announcements"
	// DeleteRejectedProject covers hard-deleting a rejected project.
	DeleteRejectedProject Capability = "delete_rejected_project"
	// ManageRoles covers changing role/owner/premium/certified on any profile.
	ManageRoles Capability = "manage_roles"
)

// Rule says who holds a capability: owners (when Owner is set) and any of Roles.
type Rule struct {
	Owner bool
	Roles []string
}

// Table is the single place that decides which profiles hold which capability.
type Table map[Capability]Rule

// DefaultTable encodes the observed rules: admins may manage projects, but
// announcements, rejected-project deletion and role changes are owner-only.
func DefaultTable() Table {
	return Table{
		ManageProjects:        {Owner: true, Roles: []string{models.RoleAdmin}},
		PostAnnouncements:     {Owner: true},
		DeleteRejectedProject: {Owner: true},
		ManageRoles:           {Owner: true},
	}
}

// NewTable returns DefaultTable, optionally granting admins every owner-only
// capability as well (config key admin_inherits_owner).
func NewTable(adminInheritsOwner bool) Table {
	t := DefaultTable()
	if !adminInheritsOwner {
		return t
	}
	for c, r := range t {
		if r.Owner && !hasRole(r.Roles, models.RoleAdmin) {
			r.Roles = append(append([]string(nil), r.Roles...), models.RoleAdmin)
			t[c] = r
		}
	}
	return t
}

// IsOwner reports whether p carries the owner flag.
func IsOwner(p models.Profile) bool { return p.Owner }

// IsAdmin reports whether p has role admin. Owner is independent of this.
// Roles are normalized on write, so the comparison is exact.
func IsAdmin(p models.Profile) bool { return p.Role == models.RoleAdmin }

// Allows reports whether p holds capability c under table t.
// Unknown capabilities are denied.
func (t Table) Allows(p models.Profile, c Capability) bool {
	r, ok := t[c]
	if !ok {
		return false
	}
	if r.Owner && IsOwner(p) {
		return true
	}
	return hasRole(r.Roles, p.Role)
}

// CanManageProjects = owner || admin under the default table.
func (t Table) CanManageProjects(p models.Profile) bool { return t.Allows(p, ManageProjects) }

// CanPostAnnouncements = owner under the default table.
func (t Table) CanPostAnnouncements(p models.Profile) bool { return t.Allows(p, PostAnnouncements) }

// CanDeleteRejectedProject = owner under the default table.
func (t Table) CanDeleteRejectedProject(p models.Profile) bool {
	return t.Allows(p, DeleteRejectedProject)
}

// CanManageRoles = owner under the default table.
func (t Table) CanManageRoles(p models.Profile) bool { return t.Allows(p, ManageRoles) }

// Capabilities is the set held by one profile, as computed by Evaluate.
type Capabilities map[Capability]bool

// Has reports membership.
func (c Capabilities) Has(want Capability) bool { return c[want] }

// List returns the held capabilities sorted by name.
func (c Capabilities) List() []string {
	out := make([]string, 0, len(c))
	for k, v := range c {
		if v {
			out = append(out, string(k))
		}
	}
	sort.Strings(out)
	return out
}

// Evaluate computes every capability p holds under t.
func Evaluate(t Table, p models.Profile) Capabilities {
	caps := make(Capabilities, len(t))
	for c := range t {
		if t.Allows(p, c) {
			caps[c] = true
		}
	}
	return caps
}

func hasRole(roles []string, role string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
