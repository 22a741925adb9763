package service

import (
	"context"
	"errors"
	"testing"

	"github.com/imcpnet/intranet-workflow/internal/application/port"
	"github.com/imcpnet/intranet-workflow/internal/domain/entity"
	"github.com/imcpnet/intranet-workflow/internal/domain/workflow"
)

func newParticipationFixture() (ParticipationService, *mockAttendanceRepo, *mockApplicationRepo) {
	attendance := &mockAttendanceRepo{rows: []*entity.TrainingAttendance{
		{ID: 1, SessionID: 10, AnalystID: "u-5", ConfirmationStatus: entity.ConfirmationPending},
		{ID: 2, SessionID: 10, AnalystID: "u-6", ConfirmationStatus: entity.ConfirmationPending},
	}}
	applications := &mockApplicationRepo{rows: []*entity.VacancyApplication{
		{ID: 1, VacancyID: 20, ApplicantID: "u-emp", Status: entity.ApplicationSubmitted},
	}}
	svc := NewParticipationService(attendance, applications, nopLogger{})
	return svc, attendance, applications
}

func TestParticipationService_ConfirmAttendance(t *testing.T) {
	svc, attendance, _ := newParticipationFixture()
	ctx := context.Background()
	analyst := entity.Actor{ID: "u-5", Role: entity.RoleEmployee}

	if err := svc.RespondToInvitation(ctx, 1, analyst, entity.ConfirmationConfirmed, ""); err != nil {
		t.Fatalf("RespondToInvitation() error = %v", err)
	}
	if attendance.rows[0].ConfirmationStatus != entity.ConfirmationConfirmed {
		t.Errorf("status = %s, want confirmed", attendance.rows[0].ConfirmationStatus)
	}
}

func TestParticipationService_DeclineRequiresReason(t *testing.T) {
	svc, attendance, _ := newParticipationFixture()
	ctx := context.Background()
	analyst := entity.Actor{ID: "u-5", Role: entity.RoleEmployee}

	err := svc.RespondToInvitation(ctx, 1, analyst, entity.ConfirmationDeclined, "")
	if !errors.Is(err, workflow.ErrDenied) {
		t.Fatalf("RespondToInvitation() error = %v, want ErrDenied", err)
	}
	var denial *workflow.Denial
	if !errors.As(err, &denial) || denial.Reason != workflow.DenialMissingField {
		t.Errorf("denial reason = %v, want missing_field", err)
	}
	if attendance.rows[0].ConfirmationStatus != entity.ConfirmationPending {
		t.Errorf("row mutated on denial: %s", attendance.rows[0].ConfirmationStatus)
	}

	if err := svc.RespondToInvitation(ctx, 1, analyst, entity.ConfirmationDeclined, "on leave that week"); err != nil {
		t.Fatalf("RespondToInvitation() with reason error = %v", err)
	}
	if attendance.rows[0].DeclineReason != "on leave that week" {
		t.Errorf("decline reason = %q", attendance.rows[0].DeclineReason)
	}
}

func TestParticipationService_OnlyInviteeResponds(t *testing.T) {
	svc, _, _ := newParticipationFixture()
	ctx := context.Background()

	stranger := entity.Actor{ID: "u-other", Role: entity.RoleEmployee}
	err := svc.RespondToInvitation(ctx, 1, stranger, entity.ConfirmationConfirmed, "")
	if !errors.Is(err, workflow.ErrDenied) {
		t.Fatalf("RespondToInvitation() error = %v, want ErrDenied", err)
	}

	// Admins may answer on an analyst's behalf.
	admin := entity.Actor{ID: "u-admin", Role: entity.RoleAdmin}
	if err := svc.RespondToInvitation(ctx, 2, admin, entity.ConfirmationRescheduled, ""); err != nil {
		t.Fatalf("RespondToInvitation() as admin error = %v", err)
	}
}

func TestParticipationService_RespondUnknownAttendance(t *testing.T) {
	svc, _, _ := newParticipationFixture()
	ctx := context.Background()
	analyst := entity.Actor{ID: "u-5", Role: entity.RoleEmployee}

	err := svc.RespondToInvitation(ctx, 99, analyst, entity.ConfirmationConfirmed, "")
	if !errors.Is(err, port.ErrNotFound) {
		t.Fatalf("RespondToInvitation() error = %v, want ErrNotFound", err)
	}
}

func TestParticipationService_AttendanceRosterAccess(t *testing.T) {
	svc, _, _ := newParticipationFixture()
	ctx := context.Background()

	rows, err := svc.AttendancesForSession(ctx, 10, entity.Actor{ID: "u-tm", Role: entity.RoleTrainingManager})
	if err != nil {
		t.Fatalf("AttendancesForSession() error = %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("roster = %d rows, want 2", len(rows))
	}

	_, err = svc.AttendancesForSession(ctx, 10, entity.Actor{ID: "u-5", Role: entity.RoleEmployee})
	if !errors.Is(err, workflow.ErrDenied) {
		t.Fatalf("AttendancesForSession() as employee error = %v, want ErrDenied", err)
	}
}

func TestParticipationService_ReviewApplication(t *testing.T) {
	svc, _, applications := newParticipationFixture()
	ctx := context.Background()
	hr := entity.Actor{ID: "u-hr", Role: entity.RoleHRManager}

	if err := svc.ReviewApplication(ctx, 1, hr, entity.ApplicationShortlisted); err != nil {
		t.Fatalf("ReviewApplication() error = %v", err)
	}
	if applications.rows[0].Status != entity.ApplicationShortlisted {
		t.Errorf("status = %s, want shortlisted", applications.rows[0].Status)
	}

	employee := entity.Actor{ID: "u-other", Role: entity.RoleEmployee}
	err := svc.ReviewApplication(ctx, 1, employee, entity.ApplicationSelected)
	if !errors.Is(err, workflow.ErrDenied) {
		t.Fatalf("ReviewApplication() as employee error = %v, want ErrDenied", err)
	}
}

func TestParticipationService_WithdrawBelongsToApplicant(t *testing.T) {
	svc, _, applications := newParticipationFixture()
	ctx := context.Background()

	hr := entity.Actor{ID: "u-hr", Role: entity.RoleHRManager}
	err := svc.ReviewApplication(ctx, 1, hr, entity.ApplicationWithdrawn)
	if !errors.Is(err, workflow.ErrDenied) {
		t.Fatalf("ReviewApplication(withdrawn) as HR error = %v, want ErrDenied", err)
	}

	applicant := entity.Actor{ID: "u-emp", Role: entity.RoleEmployee}
	if err := svc.ReviewApplication(ctx, 1, applicant, entity.ApplicationWithdrawn); err != nil {
		t.Fatalf("ReviewApplication(withdrawn) error = %v", err)
	}
	if applications.rows[0].Status != entity.ApplicationWithdrawn {
		t.Errorf("status = %s, want withdrawn", applications.rows[0].Status)
	}
}

func TestParticipationService_ApplicationListAccess(t *testing.T) {
	svc, _, _ := newParticipationFixture()
	ctx := context.Background()

	apps, err := svc.ApplicationsForVacancy(ctx, 20, entity.Actor{ID: "u-hr", Role: entity.RoleHRManager})
	if err != nil {
		t.Fatalf("ApplicationsForVacancy() error = %v", err)
	}
	if len(apps) != 1 {
		t.Errorf("applications = %d, want 1", len(apps))
	}

	_, err = svc.ApplicationsForVacancy(ctx, 20, entity.Actor{ID: "u-emp", Role: entity.RoleEmployee})
	if !errors.Is(err, workflow.ErrDenied) {
		t.Fatalf("ApplicationsForVacancy() as employee error = %v, want ErrDenied", err)
	}
}
