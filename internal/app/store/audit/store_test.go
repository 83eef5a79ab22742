package audit_test

import (
	"testing"
	"time"

	"github.com/dalemusser/opshub/internal/app/store/audit"
	"github.com/dalemusser/opshub/internal/testutil"
)

func TestStore_Log_FillsIDAndTimestamp(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	before := time.Now().Add(-time.Second)
	err := store.Log(ctx, audit.Event{
		Category:  audit.CategoryWorkflow,
		EventType: audit.EventProjectAccepted,
		ActorUID:  "admin-1",
		SubjectID: "p1",
		Success:   true,
	})
	if err != nil {
		t.Fatalf("Log failed: %v", err)
	}

	events, err := store.BySubject(ctx, "p1", 10)
	if err != nil {
		t.Fatalf("BySubject failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].ID == "" {
		t.Error("expected ID to be generated")
	}
	if events[0].Timestamp.Before(before) {
		t.Errorf("timestamp %v not set", events[0].Timestamp)
	}
}

func TestStore_Query_Filters(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	seed := []audit.Event{
		{Category: audit.CategoryAuth, EventType: audit.EventSignInSuccess, ActorUID: "u1", Success: true},
		{Category: audit.CategoryAuth, EventType: audit.EventSignInFailed, ActorUID: "u1"},
		{Category: audit.CategoryWorkflow, EventType: audit.EventProjectCreated, ActorUID: "u2", SubjectID: "p9", Success: true},
	}
	for _, e := range seed {
		if err := store.Log(ctx, e); err != nil {
			t.Fatalf("Log: %v", err)
		}
	}

	tests := []struct {
		name   string
		filter audit.QueryFilter
		want   int
	}{
		{"all", audit.QueryFilter{}, 3},
		{"by actor", audit.QueryFilter{ActorUID: "u1"}, 2},
		{"by category", audit.QueryFilter{Category: audit.CategoryWorkflow}, 1},
		{"by type", audit.QueryFilter{EventType: audit.EventSignInFailed}, 1},
		{"limit", audit.QueryFilter{Limit: 2}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.Query(ctx, tt.filter)
			if err != nil {
				t.Fatalf("Query: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("got %d events, want %d", len(got), tt.want)
			}
		})
	}
}
