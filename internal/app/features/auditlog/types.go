// internal/app/features/auditlog/types.go
package auditlog

import (
	"time"

	"github.com/dalemusser/opshub/internal/app/store/audit"
)

// listItem represents a single audit event row.
type listItem struct {
	ID            string            `json:"id"`
	Timestamp     time.Time         `json:"timestamp"`
	Category      string            `json:"category"`
	EventType     string            `json:"event_type"`
	ActorUID      string            `json:"actor_uid,omitempty"`
	SubjectID     string            `json:"subject_id,omitempty"`
	IP            string            `json:"ip,omitempty"`
	Success       bool              `json:"success"`
	FailureReason string            `json:"failure_reason,omitempty"`
	Details       map[string]string `json:"details,omitempty"`
}

type listResponse struct {
	Events []listItem `json:"events"`
}

func toItems(events []audit.Event) []listItem {
	items := make([]listItem, 0, len(events))
	for _, e := range events {
		items = append(items, listItem{
			ID:            e.ID,
			Timestamp:     e.Timestamp,
			Category:      e.Category,
			EventType:     e.EventType,
			ActorUID:      e.ActorUID,
			SubjectID:     e.SubjectID,
			IP:            e.IP,
			Success:       e.Success,
			FailureReason: e.FailureReason,
			Details:       e.Details,
		})
	}
	return items
}

// validCategory reports whether c is empty or a known category.
func validCategory(c string) bool {
	switch c {
	case "", audit.CategoryAuth, audit.CategoryWorkflow, audit.CategoryAdmin:
		return true
	}
	return false
}
