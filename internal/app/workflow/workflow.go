// Package workflow moves projects through pending → accepted | rejected and
// enforces who may trigger each transition.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/opshub/internal/app/notify"
	profilestore "github.com/dalemusser/opshub/internal/app/store/profiles"
	projectstore "github.com/dalemusser/opshub/internal/app/store/projects"
	"github.com/dalemusser/opshub/internal/app/system/auditlog"
	"github.com/dalemusser/opshub/internal/app/system/authz"
	"github.com/dalemusser/opshub/internal/app/system/events"
	"github.com/dalemusser/opshub/internal/app/system/metrics"
	"github.com/dalemusser/opshub/internal/app/system/sanitize"
	"github.com/dalemusser/opshub/internal/app/system/txn"
	"github.com/dalemusser/opshub/internal/domain/errs"
	"github.com/dalemusser/opshub/internal/domain/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Engine runs project transitions.
type Engine struct {
	db       *mongo.Database
	projects *projectstore.Store
	profiles *profilestore.Store
	notify   *notify.Service
	table    authz.Table
	audit    *auditlog.Logger
	events   events.Publisher
	metrics  *metrics.Metrics
	log      *zap.Logger
	now      func() time.Time
}

// New builds an Engine. table decides who may manage projects; nil means
// authz.DefaultTable.
func New(db *mongo.Database, table authz.Table, n *notify.Service, audit *auditlog.Logger, pub events.Publisher, logger *zap.Logger) *Engine {
	if table == nil {
		table = authz.DefaultTable()
	}
	if pub == nil {
		pub = events.Nop{}
	}
	return &Engine{
		db:       db,
		projects: projectstore.New(db),
		profiles: profilestore.New(db),
		notify:   n,
		table:    table,
		audit:    audit,
		events:   pub,
		log:      logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func cleanFields(f models.ProjectFields) models.ProjectFields {
	return models.ProjectFields{
		Name:            sanitize.Text(f.Name),
		Type:            sanitize.Text(f.Type),
		System:          sanitize.Text(f.System),
		ClientUID:       strings.TrimSpace(f.ClientUID),
		ClientName:      sanitize.Text(f.ClientName),
		SelectedPackage: sanitize.Text(f.SelectedPackage),
		BussinessType:   sanitize.Text(f.BussinessType),
		PlaceNature:     sanitize.Text(f.PlaceNature),
		Details:         sanitize.Text(f.Details),
		Notes:           sanitize.Text(f.Notes),
	}
}

// CreateProject stores a new pending project and adds its id to the
// creator's projects_associated set. Both writes share a transaction.
func (e *Engine) CreateProject(ctx context.Context, creatorUID string, fields models.ProjectFields) (string, error) {
	fields = cleanFields(fields)
	if fields.Name == "" {
		return "", errs.Invalid("name", "required")
	}
	if fields.Type == "" {
		return "", errs.Invalid("type", "required")
	}

	p := models.Project{
		ID:            uuid.NewString(),
		ProjectFields: fields,
		Status:        models.ProjectPending,
		Version:       1,
		CreatedBy:     creatorUID,
		CreatedAt:     e.now(),
	}

	err := txn.Run(ctx, e.db, e.log, func(ctx context.Context) error {
		if err := e.projects.Insert(ctx, p); err != nil {
			return err
		}
		return e.profiles.AddProject(ctx, creatorUID, p.ID)
	})
	if err != nil {
		return "", fmt.Errorf("create project: %w", err)
	}

	e.audit.ProjectCreated(ctx, creatorUID, p.ID, p.Name)
	_, nerr := e.notify.NotifyOwners(ctx, notify.Event{
		Type:      models.NotifProjectCreated,
		Title:     "New project request",
		Message:   p.Name,
		CreatedBy: creatorUID,
	})
	e.notify.Report(nerr, "create project", zap.String("project_id", p.ID))
	e.publish(ctx, events.ProjectCreated, p.ID, creatorUID, p)
	return p.ID, nil
}

// AcceptProject moves a pending project to accepted and merges acc.
func (e *Engine) AcceptProject(ctx context.Context, actor models.Profile, projectID string, acc models.AcceptanceFields) (models.Project, error) {
	p, err := e.acceptProject(ctx, actor, projectID, acc)
	e.record("accept", err)
	return p, err
}

func (e *Engine) acceptProject(ctx context.Context, actor models.Profile, projectID string, acc models.AcceptanceFields) (models.Project, error) {
	if err := e.guard(ctx, actor, projectID, "accept", e.table.CanManageProjects); err != nil {
		return models.Project{}, err
	}
	acc = models.AcceptanceFields{
		DiscountRate:     acc.DiscountRate,
		Cost:             acc.Cost,
		LevelRequired:    sanitize.Text(acc.LevelRequired),
		ExpectedDuration: sanitize.Text(acc.ExpectedDuration),
		ProjectLeader:    sanitize.Text(acc.ProjectLeader),
		Team:             sanitize.Text(acc.Team),
	}
	if acc.Cost < 0 {
		return models.Project{}, errs.Invalid("cost", "must not be negative")
	}
	if acc.DiscountRate < 0 || acc.DiscountRate > 100 {
		return models.Project{}, errs.Invalid("discount_rate", "must be between 0 and 100")
	}

	p, err := e.projects.Accept(ctx, projectID, acc, actor.UID, actor.DisplayName(), e.now())
	if err != nil {
		e.denied(ctx, actor, projectID, "accept", err)
		return models.Project{}, err
	}

	e.audit.ProjectAccepted(ctx, actor.UID, p.ID)
	e.tellCreator(ctx, actor.UID, p, models.NotifProjectAccepted, "Your project was accepted")
	e.publish(ctx, events.ProjectAccepted, p.ID, actor.UID, p)
	return p, nil
}

// RejectProject moves a pending project to rejected.
func (e *Engine) RejectProject(ctx context.Context, actor models.Profile, projectID string) (models.Project, error) {
	p, err := e.rejectProject(ctx, actor, projectID)
	e.record("reject", err)
	return p, err
}

func (e *Engine) rejectProject(ctx context.Context, actor models.Profile, projectID string) (models.Project, error) {
	if err := e.guard(ctx, actor, projectID, "reject", e.table.CanManageProjects); err != nil {
		return models.Project{}, err
	}

	p, err := e.projects.Reject(ctx, projectID, actor.UID, actor.DisplayName(), e.now())
	if err != nil {
		e.denied(ctx, actor, projectID, "reject", err)
		return models.Project{}, err
	}

	e.audit.ProjectRejected(ctx, actor.UID, p.ID)
	e.tellCreator(ctx, actor.UID, p, models.NotifProjectRejected, "Your project was rejected")
	e.publish(ctx, events.ProjectRejected, p.ID, actor.UID, p)
	return p, nil
}

// DeleteRejectedProject permanently removes a rejected project.
func (e *Engine) DeleteRejectedProject(ctx context.Context, actor models.Profile, projectID string) error {
	err := e.deleteRejectedProject(ctx, actor, projectID)
	e.record("delete", err)
	return err
}

func (e *Engine) deleteRejectedProject(ctx context.Context, actor models.Profile, projectID string) error {
	if err := e.guard(ctx, actor, projectID, "delete", e.table.CanDeleteRejectedProject); err != nil {
		return err
	}

	p, err := e.projects.DeleteRejected(ctx, projectID)
	if err != nil {
		e.denied(ctx, actor, projectID, "delete", err)
		return err
	}

	e.audit.ProjectDeleted(ctx, actor.UID, p.ID, p.Name)
	e.publish(ctx, events.ProjectDeleted, p.ID, actor.UID, map[string]string{"name": p.Name})
	return nil
}

// GetProject returns one project. Callers who cannot manage projects only
// see their own; anything else reads as not found.
func (e *Engine) GetProject(ctx context.Context, viewer models.Profile, projectID string) (models.Project, error) {
	p, err := e.projects.Get(ctx, projectID)
	if err != nil {
		return models.Project{}, err
	}
	if !e.table.CanManageProjects(viewer) && p.CreatedBy != viewer.UID {
		return models.Project{}, fmt.Errorf("project %s: %w", projectID, errs.ErrNotFound)
	}
	return p, nil
}

// ListProjects returns one partition (or all when status is empty), newest
// first. Callers who cannot manage projects only see their own.
func (e *Engine) ListProjects(ctx context.Context, viewer models.Profile, status models.ProjectStatus, limit int64) ([]models.Project, error) {
	if status != "" && !status.Valid() {
		return nil, errs.Invalid("status", "must be pending, accepted or rejected")
	}
	f := projectstore.Filter{Status: status, Limit: limit}
	if !e.table.CanManageProjects(viewer) {
		f.CreatedBy = viewer.UID
	}
	return e.projects.List(ctx, f)
}

// Summary counts projects per partition. Managers only.
func (e *Engine) Summary(ctx context.Context, viewer models.Profile) (map[models.ProjectStatus]int64, error) {
	if !e.table.CanManageProjects(viewer) {
		return nil, fmt.Errorf("project summary: %w", errs.ErrPermissionDenied)
	}
	counts, err := e.projects.Counts(ctx)
	if err != nil {
		return nil, err
	}
	for _, s := range []models.ProjectStatus{models.ProjectPending, models.ProjectAccepted, models.ProjectRejected} {
		if _, ok := counts[s]; !ok {
			counts[s] = 0
		}
	}
	return counts, nil
}

// ReconcileAssociations re-adds projects to their creator's
// projects_associated set where a non-transactional create left it out.
func (e *Engine) ReconcileAssociations(ctx context.Context) (int, error) {
	links, err := e.projects.Unlinked(ctx, 500)
	if err != nil {
		return 0, err
	}
	fixed := 0
	var failed []error
	for _, l := range links {
		if err := e.profiles.AddProject(ctx, l.CreatedBy, l.ProjectID); err != nil {
			failed = append(failed, fmt.Errorf("%s: %w", l.ProjectID, err))
			continue
		}
		fixed++
	}
	return fixed, errors.Join(failed...)
}

// UseMetrics enables transition counters.
func (e *Engine) UseMetrics(m *metrics.Metrics) { e.metrics = m }

func (e *Engine) record(action string, err error) {
	outcome := metrics.OutcomeOK
	switch {
	case err == nil:
	case errors.Is(err, errs.ErrPermissionDenied):
		outcome = metrics.OutcomeDenied
	case errors.Is(err, errs.ErrInvalidTransition), errors.Is(err, errs.ErrValidation), errors.Is(err, errs.ErrNotFound):
		outcome = metrics.OutcomeInvalid
	default:
		outcome = metrics.OutcomeError
	}
	e.metrics.Transition(action, outcome)
}

// guard checks allowed(actor) before any write. A refusal is audited and
// leaves the project untouched.
func (e *Engine) guard(ctx context.Context, actor models.Profile, projectID, action string, allowed func(models.Profile) bool) error {
	if allowed(actor) {
		return nil
	}
	err := fmt.Errorf("%s project: %w", action, errs.ErrPermissionDenied)
	e.audit.TransitionDenied(ctx, actor.UID, projectID, action, "permission denied")
	return err
}

func (e *Engine) denied(ctx context.Context, actor models.Profile, projectID, action string, err error) {
	if errors.Is(err, errs.ErrInvalidTransition) {
		e.audit.TransitionDenied(ctx, actor.UID, projectID, action, err.Error())
	}
}

func (e *Engine) tellCreator(ctx context.Context, actorUID string, p models.Project, t models.NotificationType, title string) {
	if p.CreatedBy == "" {
		return
	}
	_, err := e.notify.NotifyUser(ctx, p.CreatedBy, notify.Event{
		Type:      t,
		Title:     title,
		Message:   p.Name,
		CreatedBy: actorUID,
	})
	e.notify.Report(err, string(t), zap.String("project_id", p.ID))
}

func (e *Engine) publish(ctx context.Context, subject, id, actorUID string, data any) {
	err := e.events.Publish(ctx, events.Event{Subject: subject, SubjectID: id, ActorUID: actorUID, Data: data})
	if err != nil {
		e.log.Warn("publish project event", zap.String("subject", subject), zap.String("project_id", id), zap.Error(err))
	}
}
