// internal/app/system/tasks/jobs.go
package tasks

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// FanoutReplayer re-delivers fan-out events that did not reach every recipient.
type FanoutReplayer interface {
	ReplayPending(ctx context.Context) (int, error)
}

// AssociationRepairer re-links projects missing from their creator's profile.
type AssociationRepairer interface {
	ReconcileAssociations(ctx context.Context) (int, error)
}

// FanoutRetryJob creates a job that replays pending notification fan-outs.
// Delivery is idempotent per recipient, so a full replay is safe.
func FanoutRetryJob(r FanoutReplayer, logger *zap.Logger) Job {
	return Job{
		Name:     "fanout-retry",
		Interval: 1 * time.Minute,
		Run: func(ctx context.Context) error {
			n, err := r.ReplayPending(ctx)
			if n > 0 {
				logger.Info("replayed pending fan-outs", zap.Int("completed", n))
			}
			return err
		},
	}
}

// AssociationRepairJob creates a job that restores projects_associated entries
// lost when a create ran without transaction support.
func AssociationRepairJob(r AssociationRepairer, logger *zap.Logger) Job {
	return Job{
		Name:     "association-repair",
		Interval: 1 * time.Hour,
		Timeout:  5 * time.Minute,
		Run: func(ctx context.Context) error {
			n, err := r.ReconcileAssociations(ctx)
			if n > 0 {
				logger.Warn("re-linked projects to creator profiles", zap.Int("count", n))
			}
			return err
		},
	}
}
