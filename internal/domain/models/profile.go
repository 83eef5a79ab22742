// internal/domain/models/profile.go
package models

import "time"

// Roles a profile may hold. Owner is a separate flag, not a role.
const (
	RoleUser      = "user"
	RoleStaff     = "staff"
	RoleModerator = "moderator"
	RoleAdmin     = "admin"
)

// ValidRoles lists every accepted value of Profile.Role.
var ValidRoles = []string{RoleUser, RoleStaff, RoleModerator, RoleAdmin}

// IsValidRole reports whether role is one of ValidRoles.
func IsValidRole(role string) bool {
	for _, r := range ValidRoles {
		if r == role {
			return true
		}
	}
	return false
}

// Profile is the user profile document, keyed by the identity uid.
//
// NOTE:
//   - ProjectsAssociated only ever grows ($addToSet); nothing removes ids from it.
//   - TeamID is a weak reference used for lookups only.
type Profile struct {
	UID        string `bson:"_id" json:"uid"`
	Username   string `bson:"username" json:"username"`
	UsernameCI string `bson:"username_ci" json:"-"` // folded, carries the unique index
	Email      string `bson:"email" json:"email"`
	FirstName  string `bson:"first_name" json:"first_name"`
	SurName    string `bson:"sur_name" json:"sur_name"`
	Gender     string `bson:"gender,omitempty" json:"gender,omitempty"`
	Age        int    `bson:"age,omitempty" json:"age,omitempty"`
	Phone      string `bson:"phone,omitempty" json:"phone,omitempty"`

	Role      string `bson:"role" json:"role"` // user | staff | moderator | admin
	Owner     bool   `bson:"owner" json:"owner"`
	Premium   bool   `bson:"premium" json:"premium"`
	Certified bool   `bson:"certified" json:"certified"`

	ProfileInfo        ProfileInfo `bson:"profile_info" json:"profile_info"`
	ProjectsAssociated []string    `bson:"projects_associated" json:"projects_associated"`
	TeamID             string      `bson:"team_id,omitempty" json:"team_id,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// DisplayName is the name recorded on workflow provenance fields.
func (p Profile) DisplayName() string {
	switch {
	case p.FirstName != "" && p.SurName != "":
		return p.FirstName + " " + p.SurName
	case p.FirstName != "":
		return p.FirstName
	default:
		return p.Username
	}
}

// ProfileInfo is filled during onboarding. ConfigDone flips false→true once.
type ProfileInfo struct {
	Title       string            `bson:"title,omitempty" json:"title,omitempty"`
	Level       string            `bson:"level,omitempty" json:"level,omitempty"`
	Bio         string            `bson:"bio,omitempty" json:"bio,omitempty"`
	CareerRoles []string          `bson:"career_roles,omitempty" json:"career_roles,omitempty"`
	SubRoles    []string          `bson:"sub_roles,omitempty" json:"sub_roles,omitempty"`
	Skills      []string          `bson:"skills,omitempty" json:"skills,omitempty"`
	Socials     map[string]string `bson:"socials,omitempty" json:"socials,omitempty"`
	ConfigDone  bool              `bson:"config_done" json:"config_done"`
}
