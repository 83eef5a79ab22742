package validators_test

import (
	"testing"
	"time"

	"github.com/dalemusser/opshub/internal/app/system/validators"
	"github.com/dalemusser/opshub/internal/domain/models"
	"github.com/dalemusser/opshub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
)

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("First EnsureAll failed: %v", err)
	}
	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("Second EnsureAll failed: %v", err)
	}
}

func TestEnsureAll_CreatesCollections(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		t.Fatalf("ListCollectionNames failed: %v", err)
	}
	collMap := make(map[string]bool)
	for _, name := range names {
		collMap[name] = true
	}

	for _, expected := range []string{
		"accounts", "profiles", "projects",
		"notifications", "fanout_events", "announcements",
		"carts", "audit_events",
	} {
		if !collMap[expected] {
			t.Errorf("expected collection %q to exist", expected)
		}
	}
}

func TestValidators(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	now := time.Now().UTC()

	project := func(status string, version int64, cost float64) bson.M {
		return bson.M{
			"name": "Site", "type": "web", "status": status, "version": version,
			"cost": cost, "discount_rate": 0.0, "created_by": "u1", "created_at": now,
		}
	}
	cart := func(price float64, qty int) bson.M {
		return bson.M{"items": bson.A{bson.M{"id": "b1", "price": price, "quantity": qty}}}
	}

	tests := []struct {
		name    string
		coll    string
		doc     bson.M
		wantErr bool
	}{
		{"valid project", "projects", project("pending", 1, 0), false},
		{"unknown status", "projects", project("archived", 1, 0), true},
		{"zero version", "projects", project("pending", 0, 0), true},
		{"negative cost", "projects", project("accepted", 2, -5), true},
		{"blank name", "projects", bson.M{"name": "  ", "type": "web", "status": "pending", "version": int64(1), "created_by": "u1", "created_at": now}, true},

		{"valid profile", "profiles", bson.M{"username": "ann", "username_ci": "ann", "email": "a@x.org", "role": models.RoleUser, "owner": false}, false},
		{"unknown role", "profiles", bson.M{"username": "ann", "username_ci": "ann", "email": "a@x.org", "role": "root", "owner": false}, true},
		{"age out of range", "profiles", bson.M{"username": "ann", "username_ci": "ann", "email": "a@x.org", "role": models.RoleUser, "owner": false, "age": 200}, true},

		{"valid cart", "carts", cart(20, 2), false},
		{"zero quantity", "carts", cart(20, 0), true},
		{"negative price", "carts", cart(-1, 1), true},

		{"valid notification", "notifications", bson.M{"user_id": "u1", "event_id": "e1", "type": "direct", "read": false, "created_at": now}, false},
		{"notification without owner", "notifications", bson.M{"event_id": "e1", "type": "direct", "read": false, "created_at": now}, true},

		{"valid fan-out", "fanout_events", bson.M{"type": "announcement", "audience": models.AudienceEveryone, "status": models.FanoutPending, "attempts": 0, "created_at": now}, false},
		{"unknown audience", "fanout_events", bson.M{"type": "announcement", "audience": "admins", "status": models.FanoutPending, "attempts": 0, "created_at": now}, true},

		{"audit events unvalidated", "audit_events", bson.M{"anything": true}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := db.Collection(tt.coll).InsertOne(ctx, tt.doc)
			if (err != nil) != tt.wantErr {
				t.Errorf("InsertOne(%s) error = %v, wantErr %v", tt.coll, err, tt.wantErr)
			}
		})
	}
}
