package notify

import (
	"testing"
	"time"

	"github.com/dalemusser/opshub/internal/domain/models"
	"github.com/dalemusser/opshub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

func TestRecord_RepeatedIDIsSuccess(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	svc := New(db, Config{}, nil, nil, zap.NewNop())

	fe := models.FanoutEvent{
		ID: "e1", Type: models.NotifDirect, Audience: models.AudienceUser, Recipient: "u1",
		Title: "Hi", CreatedAt: time.Now().UTC(),
	}
	for i := 0; i < 2; i++ {
		if err := svc.record(ctx, fe); err != nil {
			t.Fatalf("record #%d: %v", i+1, err)
		}
	}
	n, err := db.Collection("fanout_events").CountDocuments(ctx, bson.M{"_id": "e1"})
	if err != nil || n != 1 {
		t.Errorf("stored events = %d, %v; want 1", n, err)
	}
}
