// Package identity creates accounts, checks passwords and owns every write
// to a profile that is not part of the project workflow.
package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/opshub/internal/app/notify"
	accountstore "github.com/dalemusser/opshub/internal/app/store/accounts"
	profilestore "github.com/dalemusser/opshub/internal/app/store/profiles"
	"github.com/dalemusser/opshub/internal/app/system/auditlog"
	"github.com/dalemusser/opshub/internal/app/system/authz"
	"github.com/dalemusser/opshub/internal/app/system/events"
	"github.com/dalemusser/opshub/internal/app/system/federation"
	"github.com/dalemusser/opshub/internal/app/system/inputval"
	"github.com/dalemusser/opshub/internal/app/system/normalize"
	"github.com/dalemusser/opshub/internal/app/system/sanitize"
	"github.com/dalemusser/opshub/internal/app/system/txn"
	"github.com/dalemusser/opshub/internal/domain/errs"
	"github.com/dalemusser/opshub/internal/domain/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost matches the cost used for stored member passwords.
const DefaultBcryptCost = 12

// Config tunes a Service.
type Config struct {
	BcryptCost int                 // 0 means DefaultBcryptCost
	Federation *federation.Checker // nil disables partner realm checks
	Table      authz.Table         // nil means authz.DefaultTable
}

// Service is the identity provider.
type Service struct {
	db       *mongo.Database
	accounts *accountstore.Store
	profiles *profilestore.Store
	fed      *federation.Checker
	table    authz.Table
	cost     int
	dummy    []byte // compared against when an email is unknown
	notify   *notify.Service
	audit    *auditlog.Logger
	events   events.Publisher
	log      *zap.Logger
}

func New(db *mongo.Database, cfg Config, n *notify.Service, audit *auditlog.Logger, pub events.Publisher, logger *zap.Logger) *Service {
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = DefaultBcryptCost
	}
	if cfg.Table == nil {
		cfg.Table = authz.DefaultTable()
	}
	if pub == nil {
		pub = events.Nop{}
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), cfg.BcryptCost)
	if err != nil {
		logger.Warn("bcrypt dummy hash", zap.Error(err))
	}
	return &Service{
		db:       db,
		accounts: accountstore.New(db),
		profiles: profilestore.New(db),
		fed:      cfg.Federation,
		table:    cfg.Table,
		cost:     cfg.BcryptCost,
		dummy:    dummy,
		notify:   n,
		audit:    audit,
		events:   pub,
		log:      logger,
	}
}

// SignUpInput is what a new user submits.
type SignUpInput struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	SurName   string `json:"sur_name"`
}

func (in SignUpInput) validate() error {
	if !inputval.IsValidEmail(in.Email) {
		return errs.Invalid("email", "not a valid address")
	}
	if !inputval.IsValidUsername(in.Username) {
		return errs.Invalid("username", "3-32 letters, digits, '_', '-' or '.'")
	}
	return inputval.Password(in.Password)
}

// SignUp creates the account and its profile in one transaction and tells
// the owners. Emails in a partner realm's domain must name a username the
// realm already knows.
func (s *Service) SignUp(ctx context.Context, in SignUpInput) (models.Profile, error) {
	in.Email = normalize.Email(in.Email)
	in.Username = normalize.Username(in.Username)
	if err := in.validate(); err != nil {
		s.audit.SignUpRejected(ctx, in.Email, err.Error())
		return models.Profile{}, err
	}

	if _, err := s.profiles.GetByUsername(ctx, in.Username); err == nil {
		s.audit.SignUpRejected(ctx, in.Email, "username taken")
		return models.Profile{}, fmt.Errorf("username %q: %w", in.Username, errs.ErrDuplicate)
	} else if !errors.Is(err, errs.ErrNotFound) {
		return models.Profile{}, err
	}

	if err := s.fed.Verify(ctx, in.Email, in.Username); err != nil {
		s.audit.SignUpRejected(ctx, in.Email, err.Error())
		if errors.Is(err, federation.ErrNotFederated) {
			return models.Profile{}, fmt.Errorf("%w: %w", errs.Invalid("username", "not registered with the partner realm"), err)
		}
		return models.Profile{}, fmt.Errorf("%w: %w", errs.ErrStoreUnavailable, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return models.Profile{}, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	uid := uuid.NewString()
	var p models.Profile
	err = txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		if err := s.accounts.Create(ctx, models.Account{
			UID:          uid,
			Email:        in.Email,
			PasswordHash: string(hash),
			CreatedAt:    now,
		}); err != nil {
			return err
		}
		var err error
		p, err = s.profiles.Create(ctx, models.Profile{
			UID:                uid,
			Username:           in.Username,
			Email:              in.Email,
			FirstName:          sanitize.Text(in.FirstName),
			SurName:            sanitize.Text(in.SurName),
			Role:               models.RoleUser,
			ProjectsAssociated: []string{},
			CreatedAt:          now,
			UpdatedAt:          now,
		})
		if err != nil {
			// Without a transaction the account write has already landed.
			if derr := s.accounts.Delete(ctx, uid); derr != nil {
				s.log.Warn("remove account after failed profile create", zap.String("uid", uid), zap.Error(derr))
			}
		}
		return err
	})
	if err != nil {
		if errors.Is(err, errs.ErrDuplicate) {
			s.audit.SignUpRejected(ctx, in.Email, "email or username taken")
		}
		return models.Profile{}, fmt.Errorf("sign up: %w", err)
	}

	s.audit.SignUp(ctx, uid, in.Email)
	_, nerr := s.notify.NotifyOwners(ctx, notify.Event{
		Type:      models.NotifAccountCreated,
		Title:     "New account",
		Message:   p.Username + " signed up",
		CreatedBy: uid,
	})
	s.notify.Report(nerr, "sign up", zap.String("uid", uid))
	if err := s.events.Publish(ctx, events.Event{
		Subject:   events.AccountCreated,
		SubjectID: uid,
		ActorUID:  uid,
		Data:      map[string]string{"username": p.Username},
	}); err != nil {
		s.log.Warn("publish account event", zap.String("uid", uid), zap.Error(err))
	}
	return p, nil
}

// SignIn checks email and password and returns the profile. Unknown emails
// and wrong passwords both yield errs.ErrInvalidCredentials.
func (s *Service) SignIn(ctx context.Context, email, password string) (models.Profile, error) {
	email = normalize.Email(email)
	acct, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, errs.ErrNotFound) {
			return models.Profile{}, err
		}
		_ = bcrypt.CompareHashAndPassword(s.dummy, []byte(password))
		s.audit.SignInFailed(ctx, "", email, "unknown email")
		return models.Profile{}, errs.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)); err != nil {
		s.audit.SignInFailed(ctx, acct.UID, email, "wrong password")
		return models.Profile{}, errs.ErrInvalidCredentials
	}

	p, err := s.profiles.Get(ctx, acct.UID)
	if err != nil {
		return models.Profile{}, err
	}
	if err := s.accounts.TouchSignIn(ctx, acct.UID, time.Now().UTC()); err != nil {
		s.log.Warn("record sign-in time", zap.String("uid", acct.UID), zap.Error(err))
	}
	s.audit.SignInSuccess(ctx, acct.UID)
	return p, nil
}

// Get loads a profile by uid. It satisfies auth.ProfileLoader.
func (s *Service) Get(ctx context.Context, uid string) (models.Profile, error) {
	return s.profiles.Get(ctx, uid)
}

// OnboardingInput is the profile_info submitted once after sign-up.
type OnboardingInput struct {
	Title       string            `json:"title"`
	Level       string            `json:"level"`
	Bio         string            `json:"bio"`
	CareerRoles []string          `json:"career_roles"`
	SubRoles    []string          `json:"sub_roles"`
	Skills      []string          `json:"skills"`
	Socials     map[string]string `json:"socials"`
}

// CompleteOnboarding stores the caller's profile_info. A second call fails
// with errs.ErrOnboardingDone.
func (s *Service) CompleteOnboarding(ctx context.Context, uid string, in OnboardingInput) (models.Profile, error) {
	socials, rejected := inputval.Socials(in.Socials)
	if len(rejected) > 0 {
		return models.Profile{}, errs.Invalid("socials."+rejected[0], "must be an http(s) URL")
	}
	info := models.ProfileInfo{
		Title:       sanitize.Text(in.Title),
		Level:       sanitize.Text(in.Level),
		Bio:         sanitize.Text(in.Bio),
		CareerRoles: normalize.List(sanitize.List(in.CareerRoles)),
		SubRoles:    normalize.List(sanitize.List(in.SubRoles)),
		Skills:      normalize.List(sanitize.List(in.Skills)),
		Socials:     socials,
	}
	p, err := s.profiles.CompleteOnboarding(ctx, uid, info)
	if err != nil {
		return models.Profile{}, err
	}
	s.audit.OnboardingComplete(ctx, uid)
	return p, nil
}

// ContactInput holds the self-editable contact fields. Nil means unchanged.
type ContactInput struct {
	FirstName *string `json:"first_name"`
	SurName   *string `json:"sur_name"`
	Gender    *string `json:"gender"`
	Age       *int    `json:"age"`
	Phone     *string `json:"phone"`
}

// UpdateContact edits the caller's own contact fields.
func (s *Service) UpdateContact(ctx context.Context, uid string, in ContactInput) (models.Profile, error) {
	if in.Age != nil && (*in.Age < 0 || *in.Age > 150) {
		return models.Profile{}, errs.Invalid("age", "must be between 0 and 150")
	}
	upd := profilestore.ContactUpdate{
		FirstName: cleaned(in.FirstName),
		SurName:   cleaned(in.SurName),
		Gender:    cleaned(in.Gender),
		Age:       in.Age,
		Phone:     cleaned(in.Phone),
	}
	return s.profiles.UpdateContact(ctx, uid, upd)
}

func cleaned(s *string) *string {
	if s == nil {
		return nil
	}
	v := sanitize.Text(*s)
	return &v
}

// RoleInput holds the privileged profile fields. Nil means unchanged.
type RoleInput struct {
	Role      *string `json:"role"`
	Owner     *bool   `json:"owner"`
	Premium   *bool   `json:"premium"`
	Certified *bool   `json:"certified"`
}

// SetRole changes role and flags on targetUID. The actor must hold
// ManageRoles and may not revoke their own owner flag.
func (s *Service) SetRole(ctx context.Context, actor models.Profile, targetUID string, in RoleInput) (models.Profile, error) {
	if !s.table.CanManageRoles(actor) {
		return models.Profile{}, fmt.Errorf("set role: %w", errs.ErrPermissionDenied)
	}
	upd := profilestore.RoleUpdate(in)
	if upd.Empty() {
		return models.Profile{}, errs.Invalid("role", "nothing to change")
	}
	if actor.UID == targetUID && in.Owner != nil && !*in.Owner {
		return models.Profile{}, errs.Invalid("owner", "cannot revoke your own owner flag")
	}

	p, err := s.profiles.SetRole(ctx, targetUID, upd)
	if err != nil {
		return models.Profile{}, err
	}
	details := map[string]string{}
	if in.Role != nil {
		details["role"] = p.Role
	}
	if in.Owner != nil {
		details["owner"] = fmt.Sprint(p.Owner)
	}
	if in.Premium != nil {
		details["premium"] = fmt.Sprint(p.Premium)
	}
	if in.Certified != nil {
		details["certified"] = fmt.Sprint(p.Certified)
	}
	s.audit.RoleChanged(ctx, actor.UID, targetUID, details)
	return p, nil
}

// BootstrapOwner grants the owner flag to the profile with email, if one
// exists. It is run at startup for the configured owner_email.
func (s *Service) BootstrapOwner(ctx context.Context, email string) error {
	p, changed, err := s.profiles.PromoteOwner(ctx, email)
	if errors.Is(err, errs.ErrNotFound) {
		s.log.Info("owner_email has no profile yet", zap.String("email", normalize.Email(email)))
		return nil
	}
	if err != nil {
		return err
	}
	if changed {
		s.audit.OwnerBootstrapped(ctx, p.UID, p.Email)
	}
	return nil
}
