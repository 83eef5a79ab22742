package projectstore_test

import (
	"errors"
	"testing"
	"time"

	projectstore "github.com/dalemusser/opshub/internal/app/store/projects"
	"github.com/dalemusser/opshub/internal/domain/errs"
	"github.com/dalemusser/opshub/internal/domain/models"
	"github.com/dalemusser/opshub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
)

func TestStore_Accept(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := projectstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	p := fx.CreateProject(ctx, "Site", "u1", models.ProjectPending)
	at := time.Now().UTC().Truncate(time.Millisecond)
	acc := models.AcceptanceFields{DiscountRate: 10, Cost: 5000, ProjectLeader: "Lee"}

	got, err := store.Accept(ctx, p.ID, acc, "admin-1", "Adam Admin", at)
	if err != nil {
		t.Fatalf("Accept failed: %v", err)
	}
	if got.Status != models.ProjectAccepted || got.Version != p.Version+1 {
		t.Errorf("status=%s version=%d", got.Status, got.Version)
	}
	if got.Cost != 5000 || got.ProjectLeader != "Lee" || got.AcceptedBy != "admin-1" || got.AcceptedByName != "Adam Admin" {
		t.Errorf("acceptance not merged: %+v", got)
	}
	if got.AcceptedAt == nil || !got.AcceptedAt.Equal(at) {
		t.Errorf("AcceptedAt = %v, want %v", got.AcceptedAt, at)
	}
	if got.Name != "Site" || got.CreatedBy != "u1" {
		t.Errorf("intake fields lost: %+v", got.ProjectFields)
	}
}

func TestStore_Transition_Errors(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := projectstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	accepted := fx.CreateProject(ctx, "A", "u1", models.ProjectAccepted)
	now := time.Now().UTC()

	_, err := store.Reject(ctx, accepted.ID, "a", "A", now)
	if !errors.Is(err, errs.ErrNotFound) || !errors.Is(err, errs.ErrInvalidTransition) {
		t.Errorf("reject accepted: err = %v, want ErrNotFound and ErrInvalidTransition", err)
	}
	if _, err := store.Accept(ctx, "missing", models.AcceptanceFields{}, "a", "A", now); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("accept missing: err = %v, want ErrNotFound", err)
	}
	if _, err := store.DeleteRejected(ctx, accepted.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("delete accepted: err = %v, want ErrNotFound", err)
	}
	if _, err := store.DeleteRejected(ctx, "missing"); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("delete missing: err = %v, want ErrNotFound", err)
	}

	got, _ := store.Get(ctx, accepted.ID)
	if got.Status != models.ProjectAccepted || got.Version != accepted.Version {
		t.Errorf("failed transitions mutated the project: %+v", got)
	}
}

func TestStore_DeleteRejected(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := projectstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	p := fx.CreateProject(ctx, "R", "u1", models.ProjectRejected)
	deleted, err := store.DeleteRejected(ctx, p.ID)
	if err != nil {
		t.Fatalf("DeleteRejected failed: %v", err)
	}
	if deleted.ID != p.ID || deleted.Name != "R" {
		t.Errorf("deleted = %+v", deleted)
	}
	if _, err := store.Get(ctx, p.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("Get after delete: err = %v, want ErrNotFound", err)
	}
}

func TestStore_List_And_Counts(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := projectstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx.CreateProject(ctx, "p1", "u1", models.ProjectPending)
	fx.CreateProject(ctx, "p2", "u2", models.ProjectPending)
	fx.CreateProject(ctx, "a1", "u1", models.ProjectAccepted)
	fx.CreateProject(ctx, "r1", "u2", models.ProjectRejected)

	tests := []struct {
		name   string
		filter projectstore.Filter
		want   int
	}{
		{"all", projectstore.Filter{}, 4},
		{"pending", projectstore.Filter{Status: models.ProjectPending}, 2},
		{"creator", projectstore.Filter{CreatedBy: "u1"}, 2},
		{"creator pending", projectstore.Filter{CreatedBy: "u2", Status: models.ProjectPending}, 1},
		{"limit", projectstore.Filter{Limit: 3}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("got %d projects, want %d", len(got), tt.want)
			}
		})
	}

	counts, err := store.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if counts[models.ProjectPending] != 2 || counts[models.ProjectAccepted] != 1 || counts[models.ProjectRejected] != 1 {
		t.Errorf("Counts = %v", counts)
	}
}

func TestStore_Unlinked(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := projectstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fx.CreateUser(ctx, "ada")
	linked := fx.CreateProject(ctx, "linked", u.UID, models.ProjectPending)
	orphan := fx.CreateProject(ctx, "orphan", u.UID, models.ProjectPending)
	fx.CreateProject(ctx, "no creator", "ghost", models.ProjectPending)

	if _, err := db.Collection("profiles").UpdateByID(ctx, u.UID,
		bson.M{"$addToSet": bson.M{"projects_associated": linked.ID}}); err != nil {
		t.Fatalf("link: %v", err)
	}

	got, err := store.Unlinked(ctx, 0)
	if err != nil {
		t.Fatalf("Unlinked: %v", err)
	}
	if len(got) != 1 || got[0].ProjectID != orphan.ID || got[0].CreatedBy != u.UID {
		t.Errorf("Unlinked = %+v, want only %s", got, orphan.ID)
	}
}
