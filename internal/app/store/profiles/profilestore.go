package profilestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/opshub/internal/app/store/storeerr"
	"github.com/dalemusser/opshub/internal/app/system/normalize"
	"github.com/dalemusser/opshub/internal/app/system/retry"
	"github.com/dalemusser/opshub/internal/domain/errs"
	"github.com/dalemusser/opshub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("profiles")}
}

// Create inserts a new profile after normalizing fields. Role defaults to
// user. A taken username or email yields errs.ErrDuplicate.
func (s *Store) Create(ctx context.Context, p models.Profile) (models.Profile, error) {
	p.Username = normalize.Username(p.Username)
	p.UsernameCI = text.Fold(p.Username)
	p.Email = normalize.Email(p.Email)
	p.FirstName = normalize.Name(p.FirstName)
	p.SurName = normalize.Name(p.SurName)
	p.Role = normalize.Role(p.Role)
	if p.Role == "" {
		p.Role = models.RoleUser
	}
	if !models.IsValidRole(p.Role) {
		return models.Profile{}, errs.Invalid("role", "unknown role")
	}
	if p.ProjectsAssociated == nil {
		p.ProjectsAssociated = []string{}
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, p); err != nil {
		return models.Profile{}, storeerr.Wrap("profile", err)
	}
	return p, nil
}

// Get loads a profile by uid.
func (s *Store) Get(ctx context.Context, uid string) (models.Profile, error) {
	return s.findOne(ctx, bson.M{"_id": uid})
}

// GetByUsername looks up a profile by case-insensitive username.
func (s *Store) GetByUsername(ctx context.Context, username string) (models.Profile, error) {
	return s.findOne(ctx, bson.M{"username_ci": text.Fold(normalize.Username(username))})
}

// GetByEmail looks up a profile by normalized email.
func (s *Store) GetByEmail(ctx context.Context, email string) (models.Profile, error) {
	return s.findOne(ctx, bson.M{"email": normalize.Email(email)})
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (models.Profile, error) {
	var p models.Profile
	err := retry.Do(ctx, retry.Default, func(ctx context.Context) error {
		return s.c.FindOne(ctx, filter).Decode(&p)
	})
	return p, storeerr.Wrap("profile", err)
}

// ContactUpdate holds the self-editable fields. Nil pointers are left alone.
type ContactUpdate struct {
	FirstName *string
	SurName   *string
	Gender    *string
	Age       *int
	Phone     *string
}

func (u ContactUpdate) set() bson.M {
	set := bson.M{}
	if u.FirstName != nil {
		set["first_name"] = normalize.Name(*u.FirstName)
	}
	if u.SurName != nil {
		set["sur_name"] = normalize.Name(*u.SurName)
	}
	if u.Gender != nil {
		set["gender"] = *u.Gender
	}
	if u.Age != nil {
		set["age"] = *u.Age
	}
	if u.Phone != nil {
		set["phone"] = *u.Phone
	}
	return set
}

// UpdateContact applies upd to the profile and returns the result.
func (s *Store) UpdateContact(ctx context.Context, uid string, upd ContactUpdate) (models.Profile, error) {
	set := upd.set()
	set["updated_at"] = time.Now().UTC()
	return s.findOneAndSet(ctx, uid, set)
}

// RoleUpdate holds the privileged fields. Nil pointers are left alone.
type RoleUpdate struct {
	Role      *string
	Owner     *bool
	Premium   *bool
	Certified *bool
}

// Empty reports whether upd changes nothing.
func (u RoleUpdate) Empty() bool {
	return u.Role == nil && u.Owner == nil && u.Premium == nil && u.Certified == nil
}

// SetRole applies upd to the profile and returns the result.
func (s *Store) SetRole(ctx context.Context, uid string, upd RoleUpdate) (models.Profile, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if upd.Role != nil {
		role := normalize.Role(*upd.Role)
		if !models.IsValidRole(role) {
			return models.Profile{}, errs.Invalid("role", "unknown role")
		}
		set["role"] = role
	}
	if upd.Owner != nil {
		set["owner"] = *upd.Owner
	}
	if upd.Premium != nil {
		set["premium"] = *upd.Premium
	}
	if upd.Certified != nil {
		set["certified"] = *upd.Certified
	}
	return s.findOneAndSet(ctx, uid, set)
}

func (s *Store) findOneAndSet(ctx context.Context, uid string, set bson.M) (models.Profile, error) {
	var p models.Profile
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": uid},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&p)
	return p, storeerr.Wrap("profile", err)
}

// CompleteOnboarding stores info and flips config_done to true. It succeeds
// at most once per profile; later calls return errs.ErrOnboardingDone.
func (s *Store) CompleteOnboarding(ctx context.Context, uid string, info models.ProfileInfo) (models.Profile, error) {
	info.ConfigDone = true
	var p models.Profile
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": uid, "profile_info.config_done": bson.M{"$ne": true}},
		bson.M{"$set": bson.M{"profile_info": info, "updated_at": time.Now().UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if _, gerr := s.Get(ctx, uid); gerr != nil {
			return models.Profile{}, gerr
		}
		return models.Profile{}, fmt.Errorf("profile %s: %w", uid, errs.ErrOnboardingDone)
	}
	return p, storeerr.Wrap("profile", err)
}

// AddProject adds projectID to the profile's projects_associated set.
func (s *Store) AddProject(ctx context.Context, uid, projectID string) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": uid},
		bson.M{"$addToSet": bson.M{"projects_associated": projectID}},
	)
	if err != nil {
		return storeerr.Wrap("profile", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("profile %s: %w", uid, errs.ErrNotFound)
	}
	return nil
}

// OwnerUIDs returns the uid of every owner profile created at or before
// asOf. A zero asOf means no cutoff.
func (s *Store) OwnerUIDs(ctx context.Context, asOf time.Time) ([]string, error) {
	return s.uids(ctx, bson.M{"owner": true}, asOf)
}

// AllUIDs returns the uid of every profile created at or before asOf. A zero
// asOf means no cutoff.
func (s *Store) AllUIDs(ctx context.Context, asOf time.Time) ([]string, error) {
	return s.uids(ctx, bson.M{}, asOf)
}

func (s *Store) uids(ctx context.Context, filter bson.M, asOf time.Time) ([]string, error) {
	if !asOf.IsZero() {
		filter["created_at"] = bson.M{"$lte": asOf}
	}
	var out []string
	err := retry.Do(ctx, retry.Default, func(ctx context.Context) error {
		out = out[:0]
		cur, err := s.c.Find(ctx, filter, options.Find().SetProjection(bson.M{"_id": 1}))
		if err != nil {
			return err
		}
		defer cur.Close(ctx)
		for cur.Next(ctx) {
			var row struct {
				UID string `bson:"_id"`
			}
			if err := cur.Decode(&row); err != nil {
				return err
			}
			out = append(out, row.UID)
		}
		return cur.Err()
	})
	if err != nil {
		return nil, storeerr.Wrap("profiles", err)
	}
	return out, nil
}

// PromoteOwner sets owner=true on the profile with email. changed is false
// when the profile was already an owner.
func (s *Store) PromoteOwner(ctx context.Context, email string) (p models.Profile, changed bool, err error) {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"email": normalize.Email(email), "owner": bson.M{"$ne": true}},
		bson.M{"$set": bson.M{"owner": true, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return models.Profile{}, false, storeerr.Wrap("profile", err)
	}
	p, err = s.GetByEmail(ctx, email)
	return p, res.ModifiedCount > 0, err
}
