package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/imcpnet/intranet-workflow/internal/application/port"
	"github.com/imcpnet/intranet-workflow/internal/domain/entity"
)

// ApplicationRepository implements port.ApplicationRepository.
// A UNIQUE(vacancy_id, applicant_id) constraint prevents duplicate
// applications from replayed transitions.
type ApplicationRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewApplicationRepository creates a new application repository
func NewApplicationRepository(db *sql.DB, logger *zap.Logger) port.ApplicationRepository {
	return &ApplicationRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts one application row
func (r *ApplicationRepository) Create(ctx context.Context, app *entity.VacancyApplication) error {
	query := `
		INSERT INTO vacancy_applications (
			vacancy_id, applicant_id, status, cover_letter, applied_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		app.VacancyID,
		app.ApplicantID,
		app.Status,
		app.CoverLetter,
		app.AppliedAt,
		app.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create application",
			zap.Int64("vacancy_id", app.VacancyID),
			zap.String("applicant_id", app.ApplicantID),
			zap.Error(err),
		)
		return fmt.Errorf("failed to create application: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	app.ID = id
	return nil
}

// GetByID retrieves one application row
func (r *ApplicationRepository) GetByID(ctx context.Context, id int64) (*entity.VacancyApplication, error) {
	query := `
		SELECT id, vacancy_id, applicant_id, status, cover_letter,
			applied_at, updated_at
		FROM vacancy_applications
		WHERE id = ?
	`

	var app entity.VacancyApplication
	err := getExecutor(ctx, r.db).QueryRowContext(ctx, query, id).Scan(
		&app.ID,
		&app.VacancyID,
		&app.ApplicantID,
		&app.Status,
		&app.CoverLetter,
		&app.AppliedAt,
		&app.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, port.ErrNotFound
	}
	if err != nil {
		r.logger.Error("Failed to get application", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get application: %w", err)
	}
	return &app, nil
}

// GetByVacancyID retrieves all applications for a vacancy
func (r *ApplicationRepository) GetByVacancyID(ctx context.Context, vacancyID int64) ([]*entity.VacancyApplication, error) {
	query := `
		SELECT id, vacancy_id, applicant_id, status, cover_letter,
			applied_at, updated_at
		FROM vacancy_applications
		WHERE vacancy_id = ?
		ORDER BY id ASC
	`

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, vacancyID)
	if err != nil {
		r.logger.Error("Failed to list applications", zap.Int64("vacancy_id", vacancyID), zap.Error(err))
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	defer rows.Close()

	var out []*entity.VacancyApplication
	for rows.Next() {
		var app entity.VacancyApplication
		err := rows.Scan(
			&app.ID,
			&app.VacancyID,
			&app.ApplicantID,
			&app.Status,
			&app.CoverLetter,
			&app.AppliedAt,
			&app.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan application: %w", err)
		}
		out = append(out, &app)
	}

	return out, rows.Err()
}

// ExistsForApplicant reports whether the applicant already applied to the
// vacancy
func (r *ApplicationRepository) ExistsForApplicant(ctx context.Context, vacancyID int64, applicantID string) (bool, error) {
	var n int
	err := getExecutor(ctx, r.db).QueryRowContext(ctx,
		`SELECT COUNT(1) FROM vacancy_applications WHERE vacancy_id = ? AND applicant_id = ?`,
		vacancyID, applicantID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check application: %w", err)
	}
	return n > 0, nil
}

// UpdateStatus sets the screening status of one application
func (r *ApplicationRepository) UpdateStatus(ctx context.Context, id int64, status string) error {
	query := `
		UPDATE vacancy_applications
		SET status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query, status, id)
	if err != nil {
		r.logger.Error("Failed to update application status", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to update application status: %w", err)
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
var _ port.ApplicationRepository = (*ApplicationRepository)(nil)
