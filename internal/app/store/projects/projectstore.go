package projectstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/opshub/internal/app/store/storeerr"
	"github.com/dalemusser/opshub/internal/app/system/retry"
	"github.com/dalemusser/opshub/internal/domain/errs"
	"github.com/dalemusser/opshub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store owns the projects collection. A project's status field is its
// partition; every transition is a conditional update on that field.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("projects")}
}

// Insert writes a new project as given.
func (s *Store) Insert(ctx context.Context, p models.Project) error {
	_, err := s.c.InsertOne(ctx, p)
	return storeerr.Wrap("project", err)
}

// Get loads a project by id.
func (s *Store) Get(ctx context.Context, id string) (models.Project, error) {
	var p models.Project
	err := retry.Do(ctx, retry.Default, func(ctx context.Context) error {
		return s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	})
	return p, storeerr.Wrap("project", err)
}

// Filter narrows List. Zero values match everything.
type Filter struct {
	Status    models.ProjectStatus
	CreatedBy string
	Limit     int64
}

// List returns projects newest first.
func (s *Store) List(ctx context.Context, f Filter) ([]models.Project, error) {
	q := bson.M{}
	if f.Status != "" {
		q["status"] = f.Status
	}
	if f.CreatedBy != "" {
		q["created_by"] = f.CreatedBy
	}
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}).
		SetLimit(limit)

	out := []models.Project{}
	err := retry.Do(ctx, retry.Default, func(ctx context.Context) error {
		cur, err := s.c.Find(ctx, q, opts)
		if err != nil {
			return err
		}
		defer cur.Close(ctx)
		out = out[:0]
		return cur.All(ctx, &out)
	})
	if err != nil {
		return nil, storeerr.Wrap("projects", err)
	}
	return out, nil
}

// Accept moves a pending project to accepted, merging acc. It fails with
// errs.ErrNotFound when the project is not pending.
func (s *Store) Accept(ctx context.Context, id string, acc models.AcceptanceFields, byUID, byName string, at time.Time) (models.Project, error) {
	return s.transition(ctx, id, models.ProjectPending, bson.M{
		"status":            models.ProjectAccepted,
		"discount_rate":     acc.DiscountRate,
		"cost":              acc.Cost,
		"level_required":    acc.LevelRequired,
		"expected_duration": acc.ExpectedDuration,
		"project_leader":    acc.ProjectLeader,
		"team":              acc.Team,
		"accepted_at":       at,
		"accepted_by":       byUID,
		"accepted_by_name":  byName,
	})
}

// Reject moves a pending project to rejected.
func (s *Store) Reject(ctx context.Context, id, byUID, byName string, at time.Time) (models.Project, error) {
	return s.transition(ctx, id, models.ProjectPending, bson.M{
		"status":        models.ProjectRejected,
		"rejected_at":   at,
		"rejected_by":   byUID,
		"rejector_name": byName,
	})
}

func (s *Store) transition(ctx context.Context, id string, from models.ProjectStatus, set bson.M) (models.Project, error) {
	var p models.Project
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": from},
		bson.M{"$set": set, "$inc": bson.M{"version": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Project{}, s.explainMiss(ctx, id, from)
	}
	return p, storeerr.Wrap("project", err)
}

// DeleteRejected hard-deletes a rejected project and returns what was removed.
func (s *Store) DeleteRejected(ctx context.Context, id string) (models.Project, error) {
	var p models.Project
	err := s.c.FindOneAndDelete(ctx, bson.M{"_id": id, "status": models.ProjectRejected}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Project{}, s.explainMiss(ctx, id, models.ProjectRejected)
	}
	return p, storeerr.Wrap("project", err)
}

// explainMiss describes a conditional write that matched nothing. A project
// in another state is absent from the source partition, so the error matches
// both errs.ErrNotFound and errs.ErrInvalidTransition.
func (s *Store) explainMiss(ctx context.Context, id string, want models.ProjectStatus) error {
	cur, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("project %s is %s, not %s: %w: %w", id, cur.Status, want, errs.ErrNotFound, errs.ErrInvalidTransition)
}

// Link pairs a project with its creator.
type Link struct {
	ProjectID string `bson:"_id"`
	CreatedBy string `bson:"created_by"`
}

// Unlinked finds projects whose creator profile exists but does not list
// them in projects_associated.
func (s *Store) Unlinked(ctx context.Context, limit int64) ([]Link, error) {
	if limit <= 0 {
		limit = 500
	}
	pipeline := mongo.Pipeline{
		{{Key: "$lookup", Value: bson.M{
			"from":         "profiles",
			"localField":   "created_by",
			"foreignField": "_id",
			"as":           "creator",
		}}},
		{{Key: "$unwind", Value: "$creator"}},
		{{Key: "$match", Value: bson.M{"$expr": bson.M{"$not": bson.A{
			bson.M{"$in": bson.A{"$_id", bson.M{"$ifNull": bson.A{"$creator.projects_associated", bson.A{}}}}},
		}}}}},
		{{Key: "$project", Value: bson.M{"_id": 1, "created_by": 1}}},
		{{Key: "$limit", Value: limit}},
	}

	cur, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, storeerr.Wrap("projects", err)
	}
	defer cur.Close(ctx)

	out := []Link{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, storeerr.Wrap("projects", err)
	}
	return out, nil
}

// Counts returns the number of projects in each status.
func (s *Store) Counts(ctx context.Context) (map[models.ProjectStatus]int64, error) {
	cur, err := s.c.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$status", "n": bson.M{"$sum": 1}}}},
	})
	if err != nil {
		return nil, storeerr.Wrap("projects", err)
	}
	defer cur.Close(ctx)

	out := map[models.ProjectStatus]int64{}
	for cur.Next(ctx) {
		var row struct {
			Status models.ProjectStatus `bson:"_id"`
			N      int64                `bson:"n"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, storeerr.Wrap("projects", err)
		}
		out[row.Status] = row.N
	}
	return out, storeerr.Wrap("projects", cur.Err())
}
