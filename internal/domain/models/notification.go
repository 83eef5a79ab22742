// internal/domain/models/notification.go
package models

import "time"

// NotificationType classifies what produced a notification.
type NotificationType string

const (
	NotifAccountCreated  NotificationType = "account_created"
	NotifAnnouncement    NotificationType = "announcement"
	NotifProjectCreated  NotificationType = "project_created"
	NotifProjectAccepted NotificationType = "project_accepted"
	NotifProjectRejected NotificationType = "project_rejected"
	NotifDirect          NotificationType = "direct"
)

// Notification is one per-recipient record. (UserID, EventID) is unique, so
// replaying a fan-out never duplicates a recipient's copy.
type Notification struct {
	ID        string           `bson:"_id" json:"id"`
	UserID    string           `bson:"user_id" json:"user_id"`
	EventID   string           `bson:"event_id" json:"event_id"`
	Type      NotificationType `bson:"type" json:"type"`
	Title     string           `bson:"title" json:"title"`
	Message   string           `bson:"message" json:"message"`
	CreatedBy string           `bson:"created_by,omitempty" json:"created_by,omitempty"`
	Read      bool             `bson:"read" json:"read"`
	ReadAt    *time.Time       `bson:"read_at,omitempty" json:"read_at,omitempty"`
	CreatedAt time.Time        `bson:"created_at" json:"created_at"`
}

// Fan-out audiences.
const (
	AudienceOwners   = "owners"
	AudienceEveryone = "everyone"
	AudienceUser     = "user"
)

// Fan-out event states.
const (
	FanoutPending = "pending"
	FanoutDone    = "done"
	FanoutFailed  = "failed" // gave up after the attempt limit
)

// FanoutEvent is the durable record of a notification broadcast. It stays
// pending until every recipient's copy has been written.
type FanoutEvent struct {
	ID        string           `bson:"_id" json:"id"`
	Type      NotificationType `bson:"type" json:"type"`
	Audience  string           `bson:"audience" json:"audience"`
	Recipient string           `bson:"recipient,omitempty" json:"recipient,omitempty"`
	Title     string           `bson:"title" json:"title"`
	Message   string           `bson:"message" json:"message"`
	CreatedBy string           `bson:"created_by,omitempty" json:"created_by,omitempty"`
	Status    string           `bson:"status" json:"status"`
	Attempts  int              `bson:"attempts" json:"attempts"`
	LastError string           `bson:"last_error,omitempty" json:"last_error,omitempty"`
	CreatedAt time.Time        `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time        `bson:"updated_at" json:"updated_at"`
}

// Announcement is an owner broadcast to every profile.
type Announcement struct {
	ID           string    `bson:"_id" json:"id"`
	Title        string    `bson:"title" json:"title"`
	Message      string    `bson:"message" json:"message"`
	PostedBy     string    `bson:"posted_by" json:"posted_by"`
	PostedByName string    `bson:"posted_by_name" json:"posted_by_name"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
}
