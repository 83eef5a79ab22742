package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/dalemusser/opshub/internal/app/system/events"
	"github.com/dalemusser/opshub/internal/app/system/sanitize"
	"github.com/dalemusser/opshub/internal/domain/errs"
	"github.com/dalemusser/opshub/internal/domain/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Post stores an announcement and delivers it to every profile. Only
// callers allowed to post announcements may do so. An incomplete fan-out
// is logged and replayed; it does not fail the post.
func (s *Service) Post(ctx context.Context, actor models.Profile, title, message string) (models.Announcement, error) {
	if !s.table.CanPostAnnouncements(actor) {
		return models.Announcement{}, fmt.Errorf("post announcement: %w", errs.ErrPermissionDenied)
	}
	title = sanitize.Text(title)
	message = sanitize.Text(message)
	if title == "" {
		return models.Announcement{}, errs.Invalid("title", "required")
	}

	a := models.Announcement{
		ID:           uuid.NewString(),
		Title:        title,
		Message:      message,
		PostedBy:     actor.UID,
		PostedByName: actor.DisplayName(),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.announcements.Insert(ctx, a); err != nil {
		return models.Announcement{}, err
	}
	s.audit.AnnouncementPosted(ctx, actor.UID, a.ID, a.Title)

	_, err := s.NotifyEveryone(ctx, Event{
		Type:      models.NotifAnnouncement,
		Title:     a.Title,
		Message:   a.Message,
		CreatedBy: actor.UID,
	})
	s.Report(err, "announcement", zap.String("announcement_id", a.ID))

	if err := s.events.Publish(ctx, events.Event{
		Subject:   events.AnnouncementPosted,
		SubjectID: a.ID,
		ActorUID:  actor.UID,
		Data:      map[string]string{"title": a.Title},
	}); err != nil {
		s.log.Warn("publish announcement event", zap.String("announcement_id", a.ID), zap.Error(err))
	}
	return a, nil
}

// Announcements returns recent announcements, newest first.
func (s *Service) Announcements(ctx context.Context, limit int64) ([]models.Announcement, error) {
	return s.announcements.List(ctx, limit)
}
