// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/opshub/internal/domain/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// EnsureAll creates collections (if missing) and tries to attach JSON-Schema
// validators. The validators back up the service-level checks: project status
// and version, cart quantities and prices, notification ownership. On servers that don't support collMod/validators (e.g. some
// DocumentDB versions), we log and skip gracefully.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	// helper: ensure collection exists (with truthful logging) and then validator (if provided)
	ensure := func(coll string, schema bson.M) {
		if _, err := ensureCollection(ctx, db, coll); err != nil {
			problems = append(problems, coll+": "+err.Error())
			return
		}
		if schema == nil {
			return
		}
		if err := setValidator(ctx, db, coll, schema); err != nil {
			// DocumentDB or other deployments may not support collMod/validators.
			if isNoSuchCommand(err) || isNotImplemented(err) {
				zap.L().Info("validator skipped (unsupported)", zap.String("collection", coll))
				return
			}
			problems = append(problems, coll+": "+err.Error())
		}
	}

	// Identity and workflow
	ensure("accounts", accountsSchema())
	ensure("profiles", profilesSchema())
	ensure("projects", projectsSchema())

	// Notifications
	ensure("notifications", notificationsSchema())
	ensure("fanout_events", fanoutEventsSchema())
	ensure("announcements", announcementsSchema())

	ensure("carts", cartsSchema())

	// These don't strictly need validators; we still ensure the collections exist.
	ensure("audit_events", nil)

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* ---------------------- collection helpers & logging ---------------------- */

// collectionExists returns true when <name> already exists.
// Uses ListCollectionNames to avoid "created collection" log when it didn't.
func collectionExists(ctx context.Context, db *mongo.Database, name string) (bool, error) {
	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return false, err
	}
	for _, n := range names {
		if n == name {
			return true, nil
		}
	}
	return false, nil
}

// ensureCollection idempotently makes sure <name> exists.
// Returns created==true only if we actually created it.
func ensureCollection(ctx context.Context, db *mongo.Database, name string) (created bool, err error) {
	exists, listErr := collectionExists(ctx, db, name)
	if listErr == nil && exists {
		zap.L().Info("collection exists", zap.String("collection", name))
		return false, nil
	}
	// If listing failed, fall back to create-and-handle-race.
	if err := db.CreateCollection(ctx, name); err != nil {
		// NamespaceExists / already exists is fine (race or prior run).
		if isNamespaceExistsErr(err) {
			zap.L().Info("collection exists", zap.String("collection", name))
			return false, nil
		}
		zap.L().Warn("createCollection failed", zap.String("collection", name), zap.Error(err))
		return false, err
	}
	zap.L().Info("created collection", zap.String("collection", name))
	return true, nil
}

/* ------------------------------ validators ------------------------------- */

func setValidator(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	var out bson.M
	if err := db.RunCommand(ctx, cmd).Decode(&out); err != nil {
		return err
	}
	zap.L().Info("validator ensured", zap.String("collection", name))
	return nil
}

/* ------------------------- error helpers ------------------------- */

func isNamespaceExistsErr(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 48 || strings.Contains(strings.ToLower(ce.Message), "already exists")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "already exists") || strings.Contains(s, "namespace exists")
}

func isNoSuchCommand(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 59 || strings.Contains(strings.ToLower(ce.Message), "no such command")) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "no such command")
}

func isNotImplemented(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 115 ||
		strings.Contains(strings.ToLower(ce.Message), "not implemented") ||
		strings.Contains(strings.ToLower(ce.Message), "not supported")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "not implemented") || strings.Contains(s, "not supported")
}

/* ------------------------- JSON-Schema docs ---------------------- */

// nonBlank matches a string with at least one non-space character.
var nonBlank = bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"}

var integer = bson.A{"int", "long"}

func accountsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"email", "password_hash", "created_at"},
			"properties": bson.M{
				"email":           nonBlank,
				"password_hash":   nonBlank,
				"created_at":      bson.M{"bsonType": "date"},
				"last_sign_in_at": bson.M{"bsonType": "date"},
			},
		},
	}
}

func profilesSchema() bson.M {
	roles := bson.A{}
	for _, r := range models.ValidRoles {
		roles = append(roles, r)
	}

	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"username", "username_ci", "email", "role", "owner"},
			"properties": bson.M{
				"username":            nonBlank,
				"username_ci":         nonBlank,
				"email":               nonBlank,
				"role":                bson.M{"enum": roles},
				"owner":               bson.M{"bsonType": "bool"},
				"premium":             bson.M{"bsonType": "bool"},
				"certified":           bson.M{"bsonType": "bool"},
				"age":                 bson.M{"bsonType": integer, "minimum": 0, "maximum": 150},
				"projects_associated": bson.M{"bsonType": "array", "items": bson.M{"bsonType": "string"}},
			},
		},
	}
}

func projectsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"name", "type", "status", "version", "created_by", "created_at"},
			"properties": bson.M{
				"name":    nonBlank,
				"type":    nonBlank,
				"status":  bson.M{"enum": bson.A{string(models.ProjectPending), string(models.ProjectAccepted), string(models.ProjectRejected)}},
				"version": bson.M{"bsonType": integer, "minimum": 1},

				"cost":          bson.M{"bsonType": "double", "minimum": 0},
				"discount_rate": bson.M{"bsonType": "double", "minimum": 0, "maximum": 100},

				"created_by": nonBlank,
				"created_at": bson.M{"bsonType": "date"},
			},
		},
	}
}

func notificationsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"user_id", "event_id", "type", "read", "created_at"},
			"properties": bson.M{
				"user_id":    nonBlank,
				"event_id":   nonBlank,
				"type":       bson.M{"bsonType": "string"},
				"read":       bson.M{"bsonType": "bool"},
				"read_at":    bson.M{"bsonType": "date"},
				"created_at": bson.M{"bsonType": "date"},
			},
		},
	}
}

func fanoutEventsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"type", "audience", "status", "attempts", "created_at"},
			"properties": bson.M{
				"audience": bson.M{"enum": bson.A{models.AudienceOwners, models.AudienceEveryone, models.AudienceUser}},
				"status":   bson.M{"enum": bson.A{models.FanoutPending, models.FanoutDone, models.FanoutFailed}},
				"attempts": bson.M{"bsonType": integer, "minimum": 0},
			},
		},
	}
}

func announcementsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"title", "posted_by", "created_at"},
			"properties": bson.M{
				"title":      nonBlank,
				"posted_by":  nonBlank,
				"created_at": bson.M{"bsonType": "date"},
			},
		},
	}
}

func cartsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"properties": bson.M{
				"items": bson.M{
					"bsonType": "array",
					"items": bson.M{
						"bsonType": "object",
						"required": bson.A{"id", "price", "quantity"},
						"properties": bson.M{
							"id":       nonBlank,
							"price":    bson.M{"bsonType": "double", "minimum": 0},
							"quantity": bson.M{"bsonType": integer, "minimum": 1},
						},
					},
				},
			},
		},
	}
}
