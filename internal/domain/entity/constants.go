package entity

// Confirmation status constants for TrainingAttendance
const (
	ConfirmationPending     = "pending"
	ConfirmationConfirmed   = "confirmed"
	ConfirmationDeclined    = "declined"
	ConfirmationRescheduled = "rescheduled"
)

// Status constants for VacancyApplication
const (
	ApplicationSubmitted   = "submitted"
	ApplicationUnderReview = "under_review"
	ApplicationShortlisted = "shortlisted"
	ApplicationSelected    = "selected"
	ApplicationRejected    = "rejected"
	ApplicationWithdrawn   = "withdrawn"
)

// Notification status constants
const (
	NotificationStatusPending = "PENDING"
	NotificationStatusSent    = "SENT"
	NotificationStatusFailed  = "FAILED"
)

// Well-known payload keys interpreted by the workflow engine. Everything
// else in a record's payload is opaque kind-specific data.
const (
	FieldNote          = "note"
	FieldReason        = "reason"
	FieldObservations  = "observations"
	FieldCorrections   = "corrections"
	FieldDeadline      = "deadline"
	FieldUserIDs       = "user_ids"
	FieldParticipants  = "participants"
	FieldBudgetOK      = "budget_approved"
	FieldBoardOK       = "board_approved"
	FieldBoardDate     = "board_approval_date"
	FieldEffectiveDate = "effective_date"
	FieldDueDate       = "due_date"
)
