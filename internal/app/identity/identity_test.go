package identity_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/opshub/internal/app/identity"
	"github.com/dalemusser/opshub/internal/app/notify"
	"github.com/dalemusser/opshub/internal/app/system/events"
	"github.com/dalemusser/opshub/internal/app/system/federation"
	"github.com/dalemusser/opshub/internal/app/system/indexes"
	"github.com/dalemusser/opshub/internal/domain/errs"
	"github.com/dalemusser/opshub/internal/domain/models"
	"github.com/dalemusser/opshub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func setup(t *testing.T, fed *federation.Checker) (*identity.Service, *notify.Service, *mongo.Database, *events.Recorder) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db, indexes.Options{}); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}
	rec := &events.Recorder{}
	n := notify.New(db, notify.Config{}, nil, rec, zap.NewNop())
	cfg := identity.Config{BcryptCost: bcrypt.MinCost, Federation: fed}
	return identity.New(db, cfg, n, nil, rec, zap.NewNop()), n, db, rec
}

func signUpInput(username string) identity.SignUpInput {
	return identity.SignUpInput{
		Email:     username + "@example.com",
		Password:  "hunter22a",
		Username:  username,
		FirstName: "Ada",
		SurName:   "<b>Lovelace</b>",
	}
}

func TestSignUp(t *testing.T) {
	svc, n, db, rec := setup(t, nil)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	owner := fx.CreateOwner(ctx, "olga")

	p, err := svc.SignUp(ctx, signUpInput("ada"))
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if p.UID == "" || p.Role != models.RoleUser || p.Owner {
		t.Errorf("profile = %+v", p)
	}
	if p.SurName != "Lovelace" {
		t.Errorf("sur_name = %q, want markup stripped", p.SurName)
	}
	if p.ProfileInfo.ConfigDone {
		t.Error("config_done set on a fresh profile")
	}

	if c, _ := n.UnreadCount(ctx, owner.UID); c != 1 {
		t.Errorf("owner unread = %d, want 1", c)
	}
	if got := rec.Subjects(); len(got) != 1 || got[0] != events.AccountCreated {
		t.Errorf("published %v", got)
	}

	signedIn, err := svc.SignIn(ctx, " ADA@example.com ", "hunter22a")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if signedIn.UID != p.UID {
		t.Errorf("SignIn uid = %q, want %q", signedIn.UID, p.UID)
	}
}

func TestSignUp_Rejected(t *testing.T) {
	svc, _, db, _ := setup(t, nil)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if _, err := svc.SignUp(ctx, signUpInput("ada")); err != nil {
		t.Fatalf("SignUp: %v", err)
	}

	sameEmail := signUpInput("grace")
	sameEmail.Email = "ada@example.com"

	tests := []struct {
		name string
		in   identity.SignUpInput
		want error
	}{
		{"bad email", identity.SignUpInput{Email: "nope", Password: "hunter22a", Username: "bob"}, errs.ErrValidation},
		{"weak password", identity.SignUpInput{Email: "bob@example.com", Password: "short", Username: "bob"}, errs.ErrValidation},
		{"bad username", identity.SignUpInput{Email: "bob@example.com", Password: "hunter22a", Username: "b"}, errs.ErrValidation},
		{"username taken", signUpInput("ADA"), errs.ErrDuplicate},
		{"email taken", sameEmail, errs.ErrDuplicate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.SignUp(ctx, tt.in); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}

	for _, coll := range []string{"accounts", "profiles"} {
		n, _ := db.Collection(coll).CountDocuments(ctx, bson.M{})
		if n != 1 {
			t.Errorf("%s = %d, want 1", coll, n)
		}
	}
}

func TestSignUp_Federated(t *testing.T) {
	partner := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/usernames/known" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer partner.Close()

	fed := federation.NewChecker([]federation.Realm{{Domain: "partner.org", BaseURL: partner.URL}}, zap.NewNop())
	svc, _, _, _ := setup(t, fed)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	in := signUpInput("unknown")
	in.Email = "unknown@partner.org"
	_, err := svc.SignUp(ctx, in)
	if !errors.Is(err, errs.ErrValidation) || !errors.Is(err, federation.ErrNotFederated) {
		t.Errorf("unknown partner username: err = %v", err)
	}

	in = signUpInput("known")
	in.Email = "known@partner.org"
	if _, err := svc.SignUp(ctx, in); err != nil {
		t.Errorf("known partner username: %v", err)
	}

	if _, err := svc.SignUp(ctx, signUpInput("local")); err != nil {
		t.Errorf("non-partner domain: %v", err)
	}
}

func TestSignIn_InvalidCredentials(t *testing.T) {
	svc, _, _, _ := setup(t, nil)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if _, err := svc.SignUp(ctx, signUpInput("ada")); err != nil {
		t.Fatalf("SignUp: %v", err)
	}

	tests := []struct {
		name, email, password string
	}{
		{"wrong password", "ada@example.com", "hunter22b"},
		{"unknown email", "nobody@example.com", "hunter22a"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.SignIn(ctx, tt.email, tt.password); !errors.Is(err, errs.ErrInvalidCredentials) {
				t.Errorf("err = %v, want ErrInvalidCredentials", err)
			}
		})
	}
}

func TestCompleteOnboarding_Once(t *testing.T) {
	svc, _, db, _ := setup(t, nil)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	u := fx.CreateUser(ctx, "ursula")

	in := identity.OnboardingInput{
		Title:   "Engineer",
		Skills:  []string{"go", " go ", "", "mongo"},
		Socials: map[string]string{"GitHub": "https://github.com/ursula"},
	}
	p, err := svc.CompleteOnboarding(ctx, u.UID, in)
	if err != nil {
		t.Fatalf("CompleteOnboarding: %v", err)
	}
	if !p.ProfileInfo.ConfigDone {
		t.Error("config_done not set")
	}
	if len(p.ProfileInfo.Skills) != 2 {
		t.Errorf("skills = %v, want [go mongo]", p.ProfileInfo.Skills)
	}
	if p.ProfileInfo.Socials["github"] != "https://github.com/ursula" {
		t.Errorf("socials = %v", p.ProfileInfo.Socials)
	}

	if _, err := svc.CompleteOnboarding(ctx, u.UID, in); !errors.Is(err, errs.ErrOnboardingDone) {
		t.Errorf("second onboarding: err = %v, want ErrOnboardingDone", err)
	}

	bad := identity.OnboardingInput{Socials: map[string]string{"site": "javascript:alert(1)"}}
	other := fx.CreateUser(ctx, "otto")
	if _, err := svc.CompleteOnboarding(ctx, other.UID, bad); !errors.Is(err, errs.ErrValidation) {
		t.Errorf("bad socials: err = %v, want ErrValidation", err)
	}
}

func TestUpdateContact(t *testing.T) {
	svc, _, db, _ := setup(t, nil)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	u := fx.CreateUser(ctx, "ursula")

	name, phone, age := "  Ursula  ", "555-0100", 41
	p, err := svc.UpdateContact(ctx, u.UID, identity.ContactInput{FirstName: &name, Phone: &phone, Age: &age})
	if err != nil {
		t.Fatalf("UpdateContact: %v", err)
	}
	if p.FirstName != "Ursula" || p.Phone != "555-0100" || p.Age != 41 {
		t.Errorf("profile = %+v", p)
	}
	if p.Role != models.RoleUser || p.Owner {
		t.Error("contact update touched privileged fields")
	}

	bad := -1
	if _, err := svc.UpdateContact(ctx, u.UID, identity.ContactInput{Age: &bad}); !errors.Is(err, errs.ErrValidation) {
		t.Errorf("negative age: err = %v, want ErrValidation", err)
	}
}

func TestSetRole(t *testing.T) {
	svc, _, db, _ := setup(t, nil)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fx.CreateOwner(ctx, "olga")
	admin := fx.CreateAdmin(ctx, "adam")
	u := fx.CreateUser(ctx, "ursula")

	admRole := models.RoleAdmin
	if _, err := svc.SetRole(ctx, admin, u.UID, identity.RoleInput{Role: &admRole}); !errors.Is(err, errs.ErrPermissionDenied) {
		t.Errorf("admin SetRole: err = %v, want ErrPermissionDenied", err)
	}

	yes := true
	p, err := svc.SetRole(ctx, owner, u.UID, identity.RoleInput{Role: &admRole, Certified: &yes})
	if err != nil {
		t.Fatalf("owner SetRole: %v", err)
	}
	if p.Role != models.RoleAdmin || !p.Certified || p.Owner {
		t.Errorf("profile = %+v", p)
	}

	bogus := "wizard"
	if _, err := svc.SetRole(ctx, owner, u.UID, identity.RoleInput{Role: &bogus}); !errors.Is(err, errs.ErrValidation) {
		t.Errorf("unknown role: err = %v, want ErrValidation", err)
	}
	if _, err := svc.SetRole(ctx, owner, u.UID, identity.RoleInput{}); !errors.Is(err, errs.ErrValidation) {
		t.Errorf("empty update: err = %v, want ErrValidation", err)
	}
	no := false
	if _, err := svc.SetRole(ctx, owner, owner.UID, identity.RoleInput{Owner: &no}); !errors.Is(err, errs.ErrValidation) {
		t.Errorf("self revoke: err = %v, want ErrValidation", err)
	}
	if _, err := svc.SetRole(ctx, owner, "missing", identity.RoleInput{Premium: &yes}); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("missing target: err = %v, want ErrNotFound", err)
	}
}

func TestBootstrapOwner(t *testing.T) {
	svc, _, db, _ := setup(t, nil)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	u := fx.CreateUser(ctx, "ursula")

	if err := svc.BootstrapOwner(ctx, "nobody@test.com"); err != nil {
		t.Fatalf("BootstrapOwner without profile: %v", err)
	}
	if err := svc.BootstrapOwner(ctx, "URSULA@test.com"); err != nil {
		t.Fatalf("BootstrapOwner: %v", err)
	}
	p, err := svc.Get(ctx, u.UID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !p.Owner {
		t.Error("owner flag not set")
	}
	if err := svc.BootstrapOwner(ctx, "ursula@test.com"); err != nil {
		t.Errorf("second BootstrapOwner: %v", err)
	}
}
