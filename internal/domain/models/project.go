// internal/domain/models/project.go
package models

import "time"

// ProjectStatus is the lifecycle state of a project. The status field is the
// only source of truth; "partitions" are queries over it.
type ProjectStatus string

const (
	ProjectPending  ProjectStatus = "pending"
	ProjectAccepted ProjectStatus = "accepted"
	ProjectRejected ProjectStatus = "rejected"
)

// Valid reports whether s is a known status.
func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectPending, ProjectAccepted, ProjectRejected:
		return true
	}
	return false
}

// ProjectFields are the intake fields supplied by the creator.
type ProjectFields struct {
	Name            string `bson:"name" json:"name"`
	Type            string `bson:"type" json:"type"`
	System          string `bson:"system,omitempty" json:"system,omitempty"`
	ClientUID       string `bson:"client_uid,omitempty" json:"client_uid,omitempty"`
	ClientName      string `bson:"client_name,omitempty" json:"client_name,omitempty"` // snapshot, not kept in sync
	SelectedPackage string `bson:"selected_package,omitempty" json:"selected_package,omitempty"`
	BussinessType   string `bson:"bussiness_type,omitempty" json:"bussiness_type,omitempty"`
	PlaceNature     string `bson:"place_nature,omitempty" json:"place_nature,omitempty"`
	Details         string `bson:"details,omitempty" json:"details,omitempty"`
	Notes           string `bson:"notes,omitempty" json:"notes,omitempty"`
}

// AcceptanceFields are merged into a project when it is accepted.
type AcceptanceFields struct {
	DiscountRate     float64 `bson:"discount_rate" json:"discount_rate"`
	Cost             float64 `bson:"cost" json:"cost"`
	LevelRequired    string  `bson:"level_required,omitempty" json:"level_required,omitempty"`
	ExpectedDuration string  `bson:"expected_duration,omitempty" json:"expected_duration,omitempty"`
	ProjectLeader    string  `bson:"project_leader,omitempty" json:"project_leader,omitempty"`
	Team             string  `bson:"team,omitempty" json:"team,omitempty"`
}

// Project is a single document in the projects collection.
type Project struct {
	ID               string `bson:"_id" json:"id"`
	ProjectFields    `bson:",inline"`
	AcceptanceFields `bson:",inline"`

	Status  ProjectStatus `bson:"status" json:"status"`
	Version int64         `bson:"version" json:"version"`

	CreatedBy string    `bson:"created_by" json:"created_by"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`

	AcceptedAt     *time.Time `bson:"accepted_at,omitempty" json:"accepted_at,omitempty"`
	AcceptedBy     string     `bson:"accepted_by,omitempty" json:"accepted_by,omitempty"`
	AcceptedByName string     `bson:"accepted_by_name,omitempty" json:"accepted_by_name,omitempty"`

	RejectedAt   *time.Time `bson:"rejected_at,omitempty" json:"rejected_at,omitempty"`
	RejectedBy   string     `bson:"rejected_by,omitempty" json:"rejected_by,omitempty"`
	RejectorName string     `bson:"rejector_name,omitempty" json:"rejector_name,omitempty"`
}
