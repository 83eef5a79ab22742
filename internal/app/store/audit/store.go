// internal/app/store/audit/store.go
package audit

import (
	"context"
	"time"

	"github.com/dalemusser/opshub/internal/app/store/storeerr"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Event categories
const (
	CategoryAuth     = "auth"
	CategoryWorkflow = "workflow"
	CategoryAdmin    = "admin"
)

// Auth event types
const (
	EventSignUp             = "sign_up"
	EventSignUpRejected     = "sign_up_rejected"
	EventSignInSuccess      = "sign_in_success"
	EventSignInFailed       = "sign_in_failed"
	EventSignInRateLimited  = "sign_in_rate_limited"
	EventSignOut            = "sign_out"
	EventOnboardingComplete = "onboarding_complete"
)

// Workflow event types
const (
	EventProjectCreated   = "project_created"
	EventProjectAccepted  = "project_accepted"
	EventProjectRejected  = "project_rejected"
	EventProjectDeleted   = "project_deleted"
	EventTransitionDenied = "transition_denied"
)

// Admin event types
const (
	EventRoleChanged        = "role_changed"
	EventAnnouncementPosted = "announcement_posted"
	EventOwnerBootstrapped  = "owner_bootstrapped"
)

// Event represents an audit event.
type Event struct {
	ID        string    `bson:"_id"`
	Timestamp time.Time `bson:"timestamp"`

	// Event classification
	Category  string `bson:"category"`
	EventType string `bson:"event_type"`

	// Who did it, and to what
	ActorUID  string `bson:"actor_uid,omitempty"`
	SubjectID string `bson:"subject_id,omitempty"` // profile uid or project id

	// Context
	IP        string `bson:"ip,omitempty"`
	UserAgent string `bson:"user_agent,omitempty"`

	// Outcome
	Success       bool   `bson:"success"`
	FailureReason string `bson:"failure_reason,omitempty"`

	Details map[string]string `bson:"details,omitempty"`
}

// QueryFilter defines filters for querying audit events.
type QueryFilter struct {
	ActorUID  string
	SubjectID string
	Category  string
	EventType string
	Since     *time.Time
	Limit     int64
}

// Store manages audit event records.
type Store struct {
	c *mongo.Collection
}

// New creates a new audit Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("audit_events")}
}

// Log records an audit event.
func (s *Store) Log(ctx context.Context, event Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	_, err := s.c.InsertOne(ctx, event)
	return storeerr.Wrap("log audit event", err)
}

// Query retrieves audit events matching the filter, newest first.
func (s *Store) Query(ctx context.Context, filter QueryFilter) ([]Event, error) {
	query := bson.M{}
	if filter.ActorUID != "" {
		query["actor_uid"] = filter.ActorUID
	}
	if filter.SubjectID != "" {
		query["subject_id"] = filter.SubjectID
	}
	if filter.Category != "" {
		query["category"] = filter.Category
	}
	if filter.EventType != "" {
		query["event_type"] = filter.EventType
	}
	if filter.Since != nil {
		query["timestamp"] = bson.M{"$gte": *filter.Since}
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(limit)

	cursor, err := s.c.Find(ctx, query, opts)
	if err != nil {
		return nil, storeerr.Wrap("query audit events", err)
	}
	defer cursor.Close(ctx)

	events := []Event{}
	if err := cursor.All(ctx, &events); err != nil {
		return nil, storeerr.Wrap("decode audit events", err)
	}
	return events, nil
}

// BySubject returns recent events about one profile or project.
func (s *Store) BySubject(ctx context.Context, subjectID string, limit int64) ([]Event, error) {
	return s.Query(ctx, QueryFilter{SubjectID: subjectID, Limit: limit})
}
