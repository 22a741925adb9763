package service

import (
	"context"
	"fmt"
	"time"

	"github.com/imcpnet/intranet-workflow/internal/application/port"
	"github.com/imcpnet/intranet-workflow/internal/domain/entity"
	"github.com/imcpnet/intranet-workflow/internal/domain/event"
	"github.com/imcpnet/intranet-workflow/internal/domain/workflow"
)

// EffectApplier executes the side-effect instructions emitted by the engine.
// Appliers run inside the transition's transaction; an effect they cannot
// apply rolls the whole transition back. Apply returns the domain event for
// what it created, or nil when the effect was a no-op (duplicate fan-out),
// so the caller can publish it after commit.
type EffectApplier interface {
	Apply(ctx context.Context, rec *entity.WorkflowRecord, ef workflow.Effect) (*event.Event, error)
}

type effectApplierImpl struct {
	attendanceRepo  port.AttendanceRepository
	applicationRepo port.ApplicationRepository
	notifications   NotificationService
	logger          Logger
}

// NewEffectApplier creates the standard effect applier
func NewEffectApplier(
	attendanceRepo port.AttendanceRepository,
	applicationRepo port.ApplicationRepository,
	notifications NotificationService,
	logger Logger,
) EffectApplier {
	return &effectApplierImpl{
		attendanceRepo:  attendanceRepo,
		applicationRepo: applicationRepo,
		notifications:   notifications,
		logger:          logger,
	}
}

// Apply executes one effect instruction
func (a *effectApplierImpl) Apply(ctx context.Context, rec *entity.WorkflowRecord, ef workflow.Effect) (*event.Event, error) {
	switch ef.Kind {
	case workflow.EffectCreateAttendance:
		return a.createAttendance(ctx, rec, ef)
	case workflow.EffectCreateApplication:
		return a.createApplication(ctx, rec, ef)
	case workflow.EffectNotify:
		if err := a.notifications.Queue(ctx, rec, ef); err != nil {
			return nil, err
		}
		return event.NewEvent(event.TypeNotificationQueued, rec.ID, rec.Kind, map[string]any{
			"audience": ef.ParamString("audience"),
			"template": ef.ParamString("template"),
		}), nil
	default:
		return nil, fmt.Errorf("unknown effect kind %s", ef.Kind)
	}
}

// createAttendance inserts one attendance row. The engine already dedupes
// against the record's participant list; the repository check covers rows
// written before that list existed.
func (a *effectApplierImpl) createAttendance(ctx context.Context, rec *entity.WorkflowRecord, ef workflow.Effect) (*event.Event, error) {
	sessionID := ef.ParamInt("session_id")
	userID := ef.ParamString("user_id")

	exists, err := a.attendanceRepo.ExistsForUser(ctx, sessionID, userID)
	if err != nil {
		return nil, fmt.Errorf("check attendance: %w", err)
	}
	if exists {
		a.logger.Info("Attendance already exists, skipping", "session_id", sessionID, "user_id", userID)
		return nil, nil
	}

	now := time.Now()
	att := &entity.TrainingAttendance{
		SessionID:          sessionID,
		AnalystID:          userID,
		InvitedBy:          ef.ParamString("invited_by"),
		ConfirmationStatus: entity.ConfirmationPending,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := a.attendanceRepo.Create(ctx, att); err != nil {
		return nil, fmt.Errorf("create attendance: %w", err)
	}

	a.logger.Info("Attendance created", "session_id", sessionID, "user_id", userID)
	return event.NewEvent(event.TypeAttendanceCreated, rec.ID, rec.Kind, map[string]any{
		"attendance_id": att.ID,
		"session_id":    sessionID,
		"user_id":       userID,
	}), nil
}

func (a *effectApplierImpl) createApplication(ctx context.Context, rec *entity.WorkflowRecord, ef workflow.Effect) (*event.Event, error) {
	vacancyID := ef.ParamInt("vacancy_id")
	applicantID := ef.ParamString("applicant_id")

	exists, err := a.applicationRepo.ExistsForApplicant(ctx, vacancyID, applicantID)
	if err != nil {
		return nil, fmt.Errorf("check application: %w", err)
	}
	if exists {
		a.logger.Info("Application already exists, skipping", "vacancy_id", vacancyID, "applicant_id", applicantID)
		return nil, nil
	}

	now := time.Now()
	app := &entity.VacancyApplication{
		VacancyID:   vacancyID,
		ApplicantID: applicantID,
		Status:      entity.ApplicationSubmitted,
		CoverLetter: rec.PayloadString("cover_letter"),
		AppliedAt:   now,
		UpdatedAt:   now,
	}
	if err := a.applicationRepo.Create(ctx, app); err != nil {
		return nil, fmt.Errorf("create application: %w", err)
	}

	a.logger.Info("Application created", "vacancy_id", vacancyID, "applicant_id", applicantID)
	return event.NewEvent(event.TypeApplicationCreated, rec.ID, rec.Kind, map[string]any{
		"application_id": app.ID,
		"vacancy_id":     vacancyID,
		"applicant_id":   applicantID,
	}), nil
}
