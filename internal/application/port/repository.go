package port

import (
	"context"
	"errors"

	"github.com/imcpnet/intranet-workflow/internal/domain/entity"
)

// ErrVersionConflict is returned by Save when the stored record version does
// not match the expected one, meaning another writer got there first.
var ErrVersionConflict = errors.New("version conflict")

// ErrNotFound is returned when a requested row does not exist
var ErrNotFound = errors.New("not found")

// RecordRepository defines persistence operations for WorkflowRecord.
// Save enforces optimistic concurrency: it only writes when the stored
// version equals expectedVersion and returns ErrVersionConflict otherwise.
type RecordRepository interface {
	Create(ctx context.Context, rec *entity.WorkflowRecord) error
	GetByID(ctx context.Context, id int64) (*entity.WorkflowRecord, error)
	Save(ctx context.Context, rec *entity.WorkflowRecord, expectedVersion int64) error
	ListByKind(ctx context.Context, kind entity.Kind, limit, offset int) ([]*entity.WorkflowRecord, error)
	ListActive(ctx context.Context) ([]*entity.WorkflowRecord, error)
}

// TransitionLogRepository defines persistence for the append-only audit log.
// Entries are never updated or deleted.
type TransitionLogRepository interface {
	Append(ctx context.Context, entry *entity.TransitionLogEntry) error
	HistoryFor(ctx context.Context, recordID int64) ([]*entity.TransitionLogEntry, error)
}

// AttendanceRepository defines persistence operations for TrainingAttendance
type AttendanceRepository interface {
	Create(ctx context.Context, att *entity.TrainingAttendance) error
	GetByID(ctx context.Context, id int64) (*entity.TrainingAttendance, error)
	GetBySessionID(ctx context.Context, sessionID int64) ([]*entity.TrainingAttendance, error)
	ExistsForUser(ctx context.Context, sessionID int64, analystID string) (bool, error)
	UpdateConfirmation(ctx context.Context, id int64, status, declineReason string) error
}

// ApplicationRepository defines persistence operations for VacancyApplication
type ApplicationRepository interface {
	Create(ctx context.Context, app *entity.VacancyApplication) error
	GetByID(ctx context.Context, id int64) (*entity.VacancyApplication, error)
	GetByVacancyID(ctx context.Context, vacancyID int64) ([]*entity.VacancyApplication, error)
	ExistsForApplicant(ctx context.Context, vacancyID int64, applicantID string) (bool, error)
	UpdateStatus(ctx context.Context, id int64, status string) error
}

// NotificationRepository defines persistence operations for Notification
type NotificationRepository interface {
	Create(ctx context.Context, n *entity.Notification) error
	GetPending(ctx context.Context, limit int) ([]*entity.Notification, error)
	MarkSent(ctx context.Context, id int64) error
	UpdateStatus(ctx context.Context, id int64, status, errorMsg string) error
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
