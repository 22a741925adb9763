package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/imcpnet/intranet-workflow/internal/application/port"
	"github.com/imcpnet/intranet-workflow/internal/domain/entity"
)

// AttendanceRepository implements port.AttendanceRepository.
// A UNIQUE(session_id, analyst_id) constraint backs the idempotent fan-out.
type AttendanceRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAttendanceRepository creates a new attendance repository
func NewAttendanceRepository(db *sql.DB, logger *zap.Logger) port.AttendanceRepository {
	return &AttendanceRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts one attendance row
func (r *AttendanceRepository) Create(ctx context.Context, att *entity.TrainingAttendance) error {
	query := `
		INSERT INTO training_attendances (
			session_id, analyst_id, invited_by, confirmation_status,
			decline_reason, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		att.SessionID,
		att.AnalystID,
		att.InvitedBy,
		att.ConfirmationStatus,
		att.DeclineReason,
		att.CreatedAt,
		att.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create attendance",
			zap.Int64("session_id", att.SessionID),
			zap.String("analyst_id", att.AnalystID),
			zap.Error(err),
		)
		return fmt.Errorf("failed to create attendance: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	att.ID = id
	return nil
}

// GetByID retrieves one attendance row
func (r *AttendanceRepository) GetByID(ctx context.Context, id int64) (*entity.TrainingAttendance, error) {
	query := `
		SELECT id, session_id, analyst_id, invited_by, confirmation_status,
			decline_reason, created_at, updated_at
		FROM training_attendances
		WHERE id = ?
	`

	var att entity.TrainingAttendance
	err := getExecutor(ctx, r.db).QueryRowContext(ctx, query, id).Scan(
		&att.ID,
		&att.SessionID,
		&att.AnalystID,
		&att.InvitedBy,
		&att.ConfirmationStatus,
		&att.DeclineReason,
		&att.CreatedAt,
		&att.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, port.ErrNotFound
	}
	if err != nil {
		r.logger.Error("Failed to get attendance", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get attendance: %w", err)
	}
	return &att, nil
}

// GetBySessionID retrieves all attendance rows for a session
func (r *AttendanceRepository) GetBySessionID(ctx context.Context, sessionID int64) ([]*entity.TrainingAttendance, error) {
	query := `
		SELECT id, session_id, analyst_id, invited_by, confirmation_status,
			decline_reason, created_at, updated_at
		FROM training_attendances
		WHERE session_id = ?
		ORDER BY id ASC
	`

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, sessionID)
	if err != nil {
		r.logger.Error("Failed to list attendances", zap.Int64("session_id", sessionID), zap.Error(err))
		return nil, fmt.Errorf("failed to list attendances: %w", err)
	}
	defer rows.Close()

	var out []*entity.TrainingAttendance
	for rows.Next() {
		var att entity.TrainingAttendance
		err := rows.Scan(
			&att.ID,
			&att.SessionID,
			&att.AnalystID,
			&att.InvitedBy,
			&att.ConfirmationStatus,
			&att.DeclineReason,
			&att.CreatedAt,
			&att.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attendance: %w", err)
		}
		out = append(out, &att)
	}

	return out, rows.Err()
}

// ExistsForUser reports whether the user already has an attendance row for
// the session
func (r *AttendanceRepository) ExistsForUser(ctx context.Context, sessionID int64, analystID string) (bool, error) {
	var n int
	err := getExecutor(ctx, r.db).QueryRowContext(ctx,
		`SELECT COUNT(1) FROM training_attendances WHERE session_id = ? AND analyst_id = ?`,
		sessionID, analystID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check attendance: %w", err)
	}
	return n > 0, nil
}

// UpdateConfirmation sets the confirmation status of one attendance row
func (r *AttendanceRepository) UpdateConfirmation(ctx context.Context, id int64, status, declineReason string) error {
	query := `
		UPDATE training_attendances
		SET confirmation_status = ?, decline_reason = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query, status, declineReason, id)
	if err != nil {
		r.logger.Error("Failed to update confirmation", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to update confirmation: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return port.ErrNotFound
	}
	return nil
}

// Verify interface compliance
var _ port.AttendanceRepository = (*AttendanceRepository)(nil)
