package service

import (
	"context"
	"fmt"

	"github.com/imcpnet/intranet-workflow/internal/application/port"
	"github.com/imcpnet/intranet-workflow/internal/domain/entity"
	"github.com/imcpnet/intranet-workflow/internal/domain/workflow"
)

// ParticipationService manages the child records hanging off training
// sessions and vacancies after the fan-out created them: attendance
// invitation responses and application screening. These updates sit outside
// the parent record's state machine, so access rules live here, expressed
// as guard denials for a uniform caller surface.
type ParticipationService interface {
	AttendancesForSession(ctx context.Context, sessionID int64, actor entity.Actor) ([]*entity.TrainingAttendance, error)
	RespondToInvitation(ctx context.Context, attendanceID int64, actor entity.Actor, status, declineReason string) error
	ApplicationsForVacancy(ctx context.Context, vacancyID int64, actor entity.Actor) ([]*entity.VacancyApplication, error)
	ReviewApplication(ctx context.Context, applicationID int64, actor entity.Actor, status string) error
}

type participationServiceImpl struct {
	attendanceRepo  port.AttendanceRepository
	applicationRepo port.ApplicationRepository
	logger          Logger
}

// NewParticipationService creates a new ParticipationService
func NewParticipationService(
	attendanceRepo port.AttendanceRepository,
	applicationRepo port.ApplicationRepository,
	logger Logger,
) ParticipationService {
	return &participationServiceImpl{
		attendanceRepo:  attendanceRepo,
		applicationRepo: applicationRepo,
		logger:          logger,
	}
}

// AttendancesForSession lists a session's attendance roster. Restricted to
// training managers and admins; attendees see their own invitation through
// RespondToInvitation instead.
func (s *participationServiceImpl) AttendancesForSession(ctx context.Context, sessionID int64, actor entity.Actor) ([]*entity.TrainingAttendance, error) {
	if actor.Role != entity.RoleTrainingManager && actor.Role != entity.RoleAdmin {
		return nil, &workflow.Denial{
			Reason:     workflow.DenialWrongRole,
			Transition: "list_attendances",
			Message:    "requires role training_manager",
		}
	}
	return s.attendanceRepo.GetBySessionID(ctx, sessionID)
}

// RespondToInvitation records the invited analyst's answer on their
// attendance row. Declining requires a reason; any other answer clears a
// previously stored one.
func (s *participationServiceImpl) RespondToInvitation(ctx context.Context, attendanceID int64, actor entity.Actor, status, declineReason string) error {
	att, err := s.attendanceRepo.GetByID(ctx, attendanceID)
	if err != nil {
		return fmt.Errorf("get attendance: %w", err)
	}

	if actor.ID != att.AnalystID && actor.Role != entity.RoleAdmin {
		return &workflow.Denial{
			Reason:     workflow.DenialWrongRole,
			Transition: "respond_invitation",
			Message:    "only the invited analyst may respond",
		}
	}
	if status == entity.ConfirmationDeclined && declineReason == "" {
		return &workflow.Denial{
			Reason:     workflow.DenialMissingField,
			Transition: "respond_invitation",
			Message:    "declining requires a reason",
		}
	}
	if status != entity.ConfirmationDeclined {
		declineReason = ""
	}

	if err := s.attendanceRepo.UpdateConfirmation(ctx, attendanceID, status, declineReason); err != nil {
		return fmt.Errorf("update confirmation: %w", err)
	}

	s.logger.Info("Attendance response recorded",
		"attendance_id", attendanceID,
		"session_id", att.SessionID,
		"analyst_id", att.AnalystID,
		"status", status,
	)
	return nil
}

// ApplicationsForVacancy lists a vacancy's applications for screening.
// Restricted to HR managers and admins.
func (s *participationServiceImpl) ApplicationsForVacancy(ctx context.Context, vacancyID int64, actor entity.Actor) ([]*entity.VacancyApplication, error) {
	if actor.Role != entity.RoleHRManager && actor.Role != entity.RoleAdmin {
		return nil, &workflow.Denial{
			Reason:     workflow.DenialWrongRole,
			Transition: "list_applications",
			Message:    "requires role hr_manager",
		}
	}
	return s.applicationRepo.GetByVacancyID(ctx, vacancyID)
}

// ReviewApplication moves one application through its screening statuses.
// HR managers progress applications; withdrawal belongs to the applicant.
func (s *participationServiceImpl) ReviewApplication(ctx context.Context, applicationID int64, actor entity.Actor, status string) error {
	app, err := s.applicationRepo.GetByID(ctx, applicationID)
	if err != nil {
		return fmt.Errorf("get application: %w", err)
	}

	if status == entity.ApplicationWithdrawn {
		if actor.ID != app.ApplicantID && actor.Role != entity.RoleAdmin {
			return &workflow.Denial{
				Reason:     workflow.DenialWrongRole,
				Transition: "withdraw_application",
				Message:    "only the applicant may withdraw",
			}
		}
	} else if actor.Role != entity.RoleHRManager && actor.Role != entity.RoleAdmin {
		return &workflow.Denial{
			Reason:     workflow.DenialWrongRole,
			Transition: "review_application",
			Message:    "requires role hr_manager",
		}
	}

	if err := s.applicationRepo.UpdateStatus(ctx, applicationID, status); err != nil {
		return fmt.Errorf("update application status: %w", err)
	}

	s.logger.Info("Application status updated",
		"application_id", applicationID,
		"vacancy_id", app.VacancyID,
		"applicant_id", app.ApplicantID,
		"status", status,
	)
	return nil
}
