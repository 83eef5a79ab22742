// Package notify fans notifications out to per-recipient records and
// manages owner announcements.
package notify

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	announcementstore "github.com/dalemusser/opshub/internal/app/store/announcements"
	fanoutstore "github.com/dalemusser/opshub/internal/app/store/fanouts"
	notificationstore "github.com/dalemusser/opshub/internal/app/store/notifications"
	profilestore "github.com/dalemusser/opshub/internal/app/store/profiles"
	"github.com/dalemusser/opshub/internal/app/system/auditlog"
	"github.com/dalemusser/opshub/internal/app/system/authz"
	"github.com/dalemusser/opshub/internal/app/system/events"
	"github.com/dalemusser/opshub/internal/app/system/metrics"
	"github.com/dalemusser/opshub/internal/app/system/retry"
	"github.com/dalemusser/opshub/internal/domain/errs"
	"github.com/dalemusser/opshub/internal/domain/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds parallel per-recipient writes.
const DefaultConcurrency = 8

// DefaultMaxAttempts is how many failed delivery passes a fan-out gets
// before it is marked failed. The replay job runs every minute.
const DefaultMaxAttempts = 30

// replayGrace keeps ReplayPending away from fan-outs that are still running.
const replayGrace = 30 * time.Second

// Event is what a fan-out delivers.
type Event struct {
	Type      models.NotificationType
	Title     string
	Message   string
	CreatedBy string
}

// PartialFanoutError reports the recipients whose copy was not written.
// The fan-out event stays pending and is replayed later.
type PartialFanoutError struct {
	EventID   string
	Delivered int
	Failed    map[string]error
}

func (e *PartialFanoutError) Error() string {
	uids := e.FailedUIDs()
	return fmt.Sprintf("fan-out %s: %d delivered, %d failed (%s)",
		e.EventID, e.Delivered, len(uids), strings.Join(uids, ", "))
}

// FailedUIDs lists the failed recipients in sorted order.
func (e *PartialFanoutError) FailedUIDs() []string {
	out := make([]string, 0, len(e.Failed))
	for uid := range e.Failed {
		out = append(out, uid)
	}
	sort.Strings(out)
	return out
}

// Unwrap exposes the per-recipient causes to errors.Is.
func (e *PartialFanoutError) Unwrap() []error {
	out := make([]error, 0, len(e.Failed))
	for _, uid := range e.FailedUIDs() {
		out = append(out, e.Failed[uid])
	}
	return out
}

// Config tunes the service.
type Config struct {
	Concurrency int
	MaxAttempts int // 0 uses DefaultMaxAttempts
	Table       authz.Table
}

// Service delivers notifications and posts announcements.
type Service struct {
	profiles      *profilestore.Store
	notes         *notificationstore.Store
	fanouts       *fanoutstore.Store
	announcements *announcementstore.Store

	table       authz.Table
	concurrency int
	maxAttempts int
	audit       *auditlog.Logger
	events      events.Publisher
	metrics     *metrics.Metrics
	log         *zap.Logger
}

// New builds a Service over db.
func New(db *mongo.Database, cfg Config, audit *auditlog.Logger, pub events.Publisher, logger *zap.Logger) *Service {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Table == nil {
		cfg.Table = authz.DefaultTable()
	}
	if pub == nil {
		pub = events.Nop{}
	}
	return &Service{
		profiles:      profilestore.New(db),
		notes:         notificationstore.New(db),
		fanouts:       fanoutstore.New(db),
		announcements: announcementstore.New(db),
		table:         cfg.Table,
		concurrency:   cfg.Concurrency,
		maxAttempts:   cfg.MaxAttempts,
		audit:         audit,
		events:        pub,
		log:           logger,
	}
}

// UseMetrics enables delivery counters.
func (s *Service) UseMetrics(m *metrics.Metrics) { s.metrics = m }

// NotifyOwners delivers ev to every owner profile.
func (s *Service) NotifyOwners(ctx context.Context, ev Event) (string, error) {
	return s.fanout(ctx, models.AudienceOwners, "", ev)
}

// NotifyEveryone delivers ev to every profile, whatever its role.
func (s *Service) NotifyEveryone(ctx context.Context, ev Event) (string, error) {
	return s.fanout(ctx, models.AudienceEveryone, "", ev)
}

// NotifyUser delivers ev to a single profile.
func (s *Service) NotifyUser(ctx context.Context, uid string, ev Event) (string, error) {
	return s.fanout(ctx, models.AudienceUser, uid, ev)
}

func (s *Service) fanout(ctx context.Context, audience, recipient string, ev Event) (string, error) {
	fe := models.FanoutEvent{
		ID:        uuid.NewString(),
		Type:      ev.Type,
		Audience:  audience,
		Recipient: recipient,
		Title:     ev.Title,
		Message:   ev.Message,
		CreatedBy: ev.CreatedBy,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.record(ctx, fe); err != nil {
		return "", err
	}
	return fe.ID, s.deliver(ctx, fe)
}

// record stores fe as pending, retrying transient failures. A duplicate id
// means an earlier try landed.
func (s *Service) record(ctx context.Context, fe models.FanoutEvent) error {
	return retry.Do(ctx, retry.Default, func(ctx context.Context) error {
		err := s.fanouts.Create(ctx, fe)
		if errors.Is(err, errs.ErrDuplicate) {
			return nil
		}
		return err
	})
}

func (s *Service) recipients(ctx context.Context, fe models.FanoutEvent) ([]string, error) {
	// Profiles created after the event was recorded do not receive it, even
	// when the event is replayed later.
	switch fe.Audience {
	case models.AudienceOwners:
		return s.profiles.OwnerUIDs(ctx, fe.CreatedAt)
	case models.AudienceEveryone:
		return s.profiles.AllUIDs(ctx, fe.CreatedAt)
	case models.AudienceUser:
		return []string{fe.Recipient}, nil
	}
	return nil, fmt.Errorf("fan-out %s: unknown audience %q", fe.ID, fe.Audience)
}

// deliver writes one copy per recipient and closes the event when every
// write succeeded. Re-running it for the same event is safe.
func (s *Service) deliver(ctx context.Context, fe models.FanoutEvent) error {
	uids, err := s.recipients(ctx, fe)
	if err != nil {
		s.markFailed(ctx, fe.ID, err.Error())
		return fmt.Errorf("resolve recipients: %w", err)
	}

	var (
		mu     sync.Mutex
		failed = map[string]error{}
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, uid := range uids {
		g.Go(func() error {
			n := models.Notification{
				UserID:    uid,
				EventID:   fe.ID,
				Type:      fe.Type,
				Title:     fe.Title,
				Message:   fe.Message,
				CreatedBy: fe.CreatedBy,
				CreatedAt: fe.CreatedAt,
			}
			err := retry.Do(gctx, retry.Default, func(ctx context.Context) error {
				_, err := s.notes.Deliver(ctx, n)
				return err
			})
			if err != nil {
				mu.Lock()
				failed[uid] = err
				mu.Unlock()
			}
			// One recipient's failure must not cancel the others.
			return nil
		})
	}
	_ = g.Wait()
	s.metrics.Deliveries(len(uids)-len(failed), len(failed))

	if len(failed) > 0 {
		perr := &PartialFanoutError{EventID: fe.ID, Delivered: len(uids) - len(failed), Failed: failed}
		s.markFailed(ctx, fe.ID, perr.Error())
		return perr
	}
	if err := s.fanouts.MarkDone(ctx, fe.ID); err != nil {
		// Every copy is written; a replay would only re-confirm them.
		s.log.Warn("fan-out delivered but not closed", zap.String("event_id", fe.ID), zap.Error(err))
	}
	return nil
}

func (s *Service) markFailed(ctx context.Context, id, reason string) {
	gaveUp, err := s.fanouts.MarkFailed(ctx, id, reason, s.maxAttempts)
	if err != nil {
		s.log.Error("record fan-out failure", zap.String("event_id", id), zap.Error(err))
		return
	}
	if gaveUp {
		s.log.Error("fan-out abandoned after attempt limit",
			zap.String("event_id", id), zap.Int("attempts", s.maxAttempts), zap.String("last_error", reason))
	}
}

// ReplayPending re-delivers pending fan-outs and returns how many completed.
func (s *Service) ReplayPending(ctx context.Context) (int, error) {
	pending, err := s.fanouts.Pending(ctx, time.Now().UTC().Add(-replayGrace), 50)
	if err != nil {
		return 0, err
	}
	done := 0
	var failures []error
	for _, fe := range pending {
		err := s.deliver(ctx, fe)
		if err == nil {
			done++
			continue
		}
		var perr *PartialFanoutError
		if errors.As(err, &perr) {
			s.log.Warn("fan-out still partial", zap.String("event_id", fe.ID),
				zap.Int("attempts", fe.Attempts+1), zap.Strings("failed", perr.FailedUIDs()))
			continue
		}
		failures = append(failures, err)
	}
	return done, errors.Join(failures...)
}

// Report logs a fan-out error from a caller whose primary write already
// succeeded. The pending event is replayed in the background.
func (s *Service) Report(err error, what string, fields ...zap.Field) {
	if err == nil {
		return
	}
	var perr *PartialFanoutError
	if errors.As(err, &perr) {
		fields = append(fields, zap.String("event_id", perr.EventID), zap.Strings("failed", perr.FailedUIDs()))
	}
	s.log.Warn(what+": notification fan-out incomplete", append(fields, zap.Error(err))...)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Recipient operations                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

// List returns uid's notifications, newest first.
func (s *Service) List(ctx context.Context, uid string, unreadOnly bool, limit int64) ([]models.Notification, error) {
	return s.notes.List(ctx, uid, unreadOnly, limit)
}

// MarkRead marks one notification read. Repeating it changes nothing.
func (s *Service) MarkRead(ctx context.Context, uid, notificationID string) error {
	return s.notes.MarkRead(ctx, uid, notificationID)
}

// MarkAllRead marks all of uid's notifications read.
func (s *Service) MarkAllRead(ctx context.Context, uid string) (int64, error) {
	return s.notes.MarkAllRead(ctx, uid)
}

// UnreadCount counts uid's unread notifications.
func (s *Service) UnreadCount(ctx context.Context, uid string) (int64, error) {
	return s.notes.UnreadCount(ctx, uid)
}
