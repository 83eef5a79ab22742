package projects_test

import (
	"net/http"
	"testing"

	uierrors "github.com/dalemusser/opshub/internal/app/features/errors"
	"github.com/dalemusser/opshub/internal/app/features/projects"
	"github.com/dalemusser/opshub/internal/app/notify"
	"github.com/dalemusser/opshub/internal/app/workflow"
	"github.com/dalemusser/opshub/internal/domain/models"
	"github.com/dalemusser/opshub/internal/testutil"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func newRouter(t *testing.T) (chi.Router, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	n := notify.New(db, notify.Config{}, nil, nil, logger)
	wf := workflow.New(db, nil, n, nil, nil, logger)
	return projects.Routes(projects.NewHandler(wf, uierrors.NewErrorLogger(logger), logger)), testutil.NewFixtures(t, db)
}

func do(r chi.Router, method, target string, body any, p *models.Profile) *testutil.ResponseRecorder {
	req := testutil.NewJSONRequest(method, target, body)
	if p != nil {
		req = testutil.WithProfile(req, *p)
	}
	rec := testutil.NewRecorder()
	r.ServeHTTP(rec.ResponseRecorder, req)
	return rec
}

func TestCreateAndAccept(t *testing.T) {
	r, fx := newRouter(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	u := fx.CreateUser(ctx, "ursula")
	a := fx.CreateAdmin(ctx, "adam")

	rec := do(r, http.MethodPost, "/", map[string]string{"name": "Website Redesign", "type": "website"}, &u)
	rec.AssertStatus(t, http.StatusCreated)
	var created map[string]string
	rec.DecodeJSON(t, &created)
	id := created["id"]
	if id == "" {
		t.Fatal("no id returned")
	}

	rec = do(r, http.MethodGet, "/?status=pending", nil, &a)
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, id)

	rec = do(r, http.MethodPost, "/"+id+"/accept", map[string]float64{"cost": 500, "discount_rate": 10}, &a)
	rec.AssertStatus(t, http.StatusOK)
	var p models.Project
	rec.DecodeJSON(t, &p)
	if p.Status != models.ProjectAccepted || p.Cost != 500 || p.AcceptedBy != a.UID {
		t.Errorf("accepted = %+v", p)
	}

	rec = do(r, http.MethodGet, "/?status=pending", nil, &a)
	var list struct {
		Projects []models.Project `json:"projects"`
	}
	rec.DecodeJSON(t, &list)
	if len(list.Projects) != 0 {
		t.Errorf("pending still holds %d projects", len(list.Projects))
	}
}

func TestTransitionErrors(t *testing.T) {
	r, fx := newRouter(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	u := fx.CreateUser(ctx, "ursula")
	u2 := fx.CreateUser(ctx, "ulrich")
	a := fx.CreateAdmin(ctx, "adam")
	o := fx.CreateOwner(ctx, "olga")
	pending := fx.CreateProject(ctx, "P", u.UID, models.ProjectPending)
	accepted := fx.CreateProject(ctx, "A", u.UID, models.ProjectAccepted)
	rejected := fx.CreateProject(ctx, "R", u.UID, models.ProjectRejected)

	tests := []struct {
		name   string
		method string
		target string
		actor  *models.Profile
		want   int
	}{
		{"signed out", http.MethodGet, "/", nil, http.StatusUnauthorized},
		{"user accepts", http.MethodPost, "/" + pending.ID + "/accept", &u2, http.StatusForbidden},
		{"user rejects", http.MethodPost, "/" + pending.ID + "/reject", &u, http.StatusForbidden},
		{"reject accepted", http.MethodPost, "/" + accepted.ID + "/reject", &a, http.StatusNotFound},
		{"accept missing", http.MethodPost, "/missing/accept", &a, http.StatusNotFound},
		{"admin deletes", http.MethodDelete, "/" + rejected.ID, &a, http.StatusForbidden},
		{"owner deletes pending", http.MethodDelete, "/" + pending.ID, &o, http.StatusNotFound},
		{"owner deletes rejected", http.MethodDelete, "/" + rejected.ID, &o, http.StatusNoContent},
		{"foreign get", http.MethodGet, "/" + pending.ID, &u2, http.StatusNotFound},
		{"own get", http.MethodGet, "/" + pending.ID, &u, http.StatusOK},
		{"bad status", http.MethodGet, "/?status=archived", &a, http.StatusBadRequest},
		{"bad limit", http.MethodGet, "/?limit=-2", &a, http.StatusBadRequest},
		{"user summary", http.MethodGet, "/summary", &u, http.StatusForbidden},
		{"admin summary", http.MethodGet, "/summary", &a, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(r, tt.method, tt.target, nil, tt.actor)
			rec.AssertStatus(t, tt.want)
		})
	}
}
