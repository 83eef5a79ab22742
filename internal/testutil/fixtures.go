package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/opshub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateProfile inserts a profile with the given username, role and owner flag.
func (f *Fixtures) CreateProfile(ctx context.Context, username, role string, owner bool) models.Profile {
	f.t.Helper()

	now := time.Now().UTC()
	p := models.Profile{
		UID:                uuid.NewString(),
		Username:           username,
		UsernameCI:         text.Fold(username),
		Email:              username + "@test.com",
		FirstName:          username,
		Role:               role,
		Owner:              owner,
		ProjectsAssociated: []string{},
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if _, err := f.db.Collection("profiles").InsertOne(ctx, p); err != nil {
		f.t.Fatalf("failed to create test profile: %v", err)
	}
	return p
}

// CreateUser creates a profile with role user.
func (f *Fixtures) CreateUser(ctx context.Context, username string) models.Profile {
	f.t.Helper()
	return f.CreateProfile(ctx, username, models.RoleUser, false)
}

// CreateAdmin creates a profile with role admin (not owner).
func (f *Fixtures) CreateAdmin(ctx context.Context, username string) models.Profile {
	f.t.Helper()
	return f.CreateProfile(ctx, username, models.RoleAdmin, false)
}

// CreateOwner creates an owner profile with role user.
func (f *Fixtures) CreateOwner(ctx context.Context, username string) models.Profile {
	f.t.Helper()
	return f.CreateProfile(ctx, username, models.RoleUser, true)
}

// CreateProject inserts a project directly in the given status.
func (f *Fixtures) CreateProject(ctx context.Context, name, createdBy string, status models.ProjectStatus) models.Project {
	f.t.Helper()

	p := models.Project{
		ID:            uuid.NewString(),
		ProjectFields: models.ProjectFields{Name: name, Type: "website"},
		Status:        status,
		Version:       1,
		CreatedBy:     createdBy,
		CreatedAt:     time.Now().UTC(),
	}
	if _, err := f.db.Collection("projects").InsertOne(ctx, p); err != nil {
		f.t.Fatalf("failed to create test project: %v", err)
	}
	return p
}
