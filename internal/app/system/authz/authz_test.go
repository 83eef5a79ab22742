package authz_test

import (
	"reflect"
	"testing"

	"github.com/dalemusser/opshub/internal/app/system/authz"
	"github.com/dalemusser/opshub/internal/domain/models"
)

func profile(role string, owner bool) models.Profile {
	return models.Profile{UID: "u-" + role, Role: role, Owner: owner}
}

func TestDefaultTable(t *testing.T) {
	tbl := authz.DefaultTable()

	tests := []struct {
		name        string
		p           models.Profile
		manage      bool
		announce    bool
		delRejected bool
	}{
		{"plain user", profile(models.RoleUser, false), false, false, false},
		{"staff", profile(models.RoleStaff, false), false, false, false},
		{"moderator", profile(models.RoleModerator, false), false, false, false},
		{"admin", profile(models.RoleAdmin, false), true, false, false},
		{"owner with user role", profile(models.RoleUser, true), true, true, true},
		{"owner and admin", profile(models.RoleAdmin, true), true, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tbl.CanManageProjects(tt.p); got != tt.manage {
				t.Errorf("CanManageProjects = %v, want %v", got, tt.manage)
			}
			if got := tbl.CanPostAnnouncements(tt.p); got != tt.announce {
				t.Errorf("CanPostAnnouncements = %v, want %v", got, tt.announce)
			}
			if got := tbl.CanDeleteRejectedProject(tt.p); got != tt.delRejected {
				t.Errorf("CanDeleteRejectedProject = %v, want %v", got, tt.delRejected)
			}
		})
	}
}

func TestPremiumGrantsNothing(t *testing.T) {
	p := models.Profile{UID: "u1", Role: models.RoleUser, Premium: true, Certified: true}
	if caps := authz.Evaluate(authz.DefaultTable(), p); len(caps.List()) != 0 {
		t.Errorf("premium user should hold no capabilities, got %v", caps.List())
	}
}

func TestIsAdmin_ExactRole(t *testing.T) {
	tests := []struct {
		role string
		want bool
	}{
		{models.RoleAdmin, true},
		{"Admin", false},
		{" admin", false},
		{models.RoleStaff, false},
	}
	for _, tt := range tests {
		if got := authz.IsAdmin(models.Profile{Role: tt.role}); got != tt.want {
			t.Errorf("IsAdmin(%q) = %v, want %v", tt.role, got, tt.want)
		}
	}

	tbl := authz.DefaultTable()
	if tbl.CanManageProjects(models.Profile{Role: "ADMIN"}) {
		t.Error("un-normalized role must not match the admin grant")
	}
}

func TestNewTable_AdminInheritsOwner(t *testing.T) {
	admin := profile(models.RoleAdmin, false)

	if authz.NewTable(false).CanPostAnnouncements(admin) {
		t.Error("admin must not post announcements by default")
	}

	tbl := authz.NewTable(true)
	if !tbl.CanPostAnnouncements(admin) || !tbl.CanDeleteRejectedProject(admin) || !tbl.CanManageRoles(admin) {
		t.Error("admin should inherit owner-only capabilities")
	}
	if tbl.CanManageProjects(profile(models.RoleUser, false)) {
		t.Error("inheritance must not widen grants to plain users")
	}

	// The default table must not be mutated by NewTable(true).
	if authz.DefaultTable().CanPostAnnouncements(admin) {
		t.Error("DefaultTable was mutated")
	}
}

func TestEvaluate(t *testing.T) {
	caps := authz.Evaluate(authz.DefaultTable(), profile(models.RoleAdmin, false))
	want := []string{string(authz.ManageProjects)}
	if got := caps.List(); !reflect.DeepEqual(got, want) {
		t.Errorf("List = %v, want %v", got, want)
	}
	if !caps.Has(authz.ManageProjects) || caps.Has(authz.ManageRoles) {
		t.Error("Has disagrees with List")
	}
}

func TestAllows_UnknownCapability(t *testing.T) {
	if authz.DefaultTable().Allows(profile(models.RoleAdmin, true), authz.Capability("launch_rockets")) {
		t.Error("unknown capability must be denied")
	}
}
