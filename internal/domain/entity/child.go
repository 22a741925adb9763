package entity

import "time"

// TrainingAttendance is the per-user child record created when participants
// are assigned to a training session. At most one row exists per
// (session, analyst) pair.
type TrainingAttendance struct {
	ID                 int64     `json:"id"`
	SessionID          int64     `json:"session_id"`
	AnalystID          string    `json:"analyst_id"`
	InvitedBy          string    `json:"invited_by,omitempty"`
	ConfirmationStatus string    `json:"confirmation_status"`
	DeclineReason      string    `json:"decline_reason,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// VacancyApplication is the per-user child record created when an employee
// applies to a published internal vacancy.
type VacancyApplication struct {
	ID          int64     `json:"id"`
	VacancyID   int64     `json:"vacancy_id"`
	ApplicantID string    `json:"applicant_id"`
	Status      string    `json:"status"`
	CoverLetter string    `json:"cover_letter,omitempty"`
	AppliedAt   time.Time `json:"applied_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
