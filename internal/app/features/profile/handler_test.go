package profile_test

import (
	"net/http"
	"testing"

	uierrors "github.com/dalemusser/opshub/internal/app/features/errors"
	"github.com/dalemusser/opshub/internal/app/features/profile"
	"github.com/dalemusser/opshub/internal/app/identity"
	"github.com/dalemusser/opshub/internal/app/notify"
	"github.com/dalemusser/opshub/internal/domain/models"
	"github.com/dalemusser/opshub/internal/testutil"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func newTestHandler(t *testing.T) (*profile.Handler, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	n := notify.New(db, notify.Config{}, nil, nil, logger)
	id := identity.New(db, identity.Config{BcryptCost: bcrypt.MinCost}, n, nil, nil, logger)
	return profile.NewHandler(id, uierrors.NewErrorLogger(logger), logger), testutil.NewFixtures(t, db)
}

func TestUpdateContact(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	u := fx.CreateUser(ctx, "ursula")

	rec := testutil.NewRecorder()
	req := testutil.NewAuthenticatedRequest(http.MethodPatch, "/profile", map[string]any{"phone": "555-0100", "age": 30}, u)
	h.HandleUpdateContact(rec.ResponseRecorder, req)

	rec.AssertStatus(t, http.StatusOK)
	var got models.Profile
	rec.DecodeJSON(t, &got)
	if got.Phone != "555-0100" || got.Age != 30 || got.FirstName != u.FirstName {
		t.Errorf("profile = %+v", got)
	}

	rec = testutil.NewRecorder()
	req = testutil.NewAuthenticatedRequest(http.MethodPatch, "/profile", map[string]any{"role": "admin"}, u)
	h.HandleUpdateContact(rec.ResponseRecorder, req)
	rec.AssertStatus(t, http.StatusBadRequest)
}

func TestOnboarding_Once(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	u := fx.CreateUser(ctx, "ursula")

	body := map[string]any{"title": "Designer", "skills": []string{"figma"}}

	rec := testutil.NewRecorder()
	h.HandleOnboarding(rec.ResponseRecorder, testutil.NewAuthenticatedRequest(http.MethodPost, "/profile/onboarding", body, u))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"config_done":true`)

	rec = testutil.NewRecorder()
	h.HandleOnboarding(rec.ResponseRecorder, testutil.NewAuthenticatedRequest(http.MethodPost, "/profile/onboarding", body, u))
	rec.AssertStatus(t, http.StatusConflict)
}

func TestSetRole(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	owner := fx.CreateOwner(ctx, "olga")
	admin := fx.CreateAdmin(ctx, "adam")
	u := fx.CreateUser(ctx, "ursula")

	tests := []struct {
		name  string
		actor models.Profile
		uid   string
		body  any
		want  int
	}{
		{"owner promotes", owner, u.UID, map[string]any{"role": "staff", "premium": true}, http.StatusOK},
		{"admin denied", admin, u.UID, map[string]any{"role": "admin"}, http.StatusForbidden},
		{"unknown role", owner, u.UID, map[string]any{"role": "wizard"}, http.StatusBadRequest},
		{"missing profile", owner, "nope", map[string]any{"certified": true}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.NewAuthenticatedRequest(http.MethodPatch, "/admin/profiles/"+tt.uid+"/role", tt.body, tt.actor)
			req = testutil.WithChiURLParam(req, "uid", tt.uid)
			rec := testutil.NewRecorder()
			h.HandleSetRole(rec.ResponseRecorder, req)
			rec.AssertStatus(t, tt.want)
		})
	}
}

func TestRoutes_RequireSignedIn(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := testutil.NewRecorder()
	profile.Routes(h).ServeHTTP(rec.ResponseRecorder, testutil.NewRequest(http.MethodGet, "/"))
	rec.AssertStatus(t, http.StatusUnauthorized)

	rec = testutil.NewRecorder()
	req := testutil.WithProfile(testutil.NewRequest(http.MethodPatch, "/x/role"), models.Profile{UID: "a", Role: models.RoleAdmin})
	profile.AdminRoutes(h).ServeHTTP(rec.ResponseRecorder, req)
	rec.AssertStatus(t, http.StatusForbidden)
}
