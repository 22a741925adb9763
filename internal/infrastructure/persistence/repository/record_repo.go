package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/imcpnet/intranet-workflow/internal/application/port"
	"github.com/imcpnet/intranet-workflow/internal/domain/entity"
	"github.com/imcpnet/intranet-workflow/internal/infrastructure/persistence/sqlite"
)

// RecordRepository implements port.RecordRepository over SQLite.
// Payloads are stored as JSON; status and version are columns so they can be
// queried and guarded directly.
type RecordRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRecordRepository creates a new record repository
func NewRecordRepository(db *sql.DB, logger *zap.Logger) port.RecordRepository {
	return &RecordRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a record in its initial state
func (r *RecordRepository) Create(ctx context.Context, rec *entity.WorkflowRecord) error {
	payload, err := marshalPayload(rec.Payload)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO workflow_records (
			kind, status, owner_id, approver_id, version, payload,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		string(rec.Kind),
		rec.Status,
		rec.OwnerID,
		rec.ApproverID,
		rec.Version,
		payload,
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create record", zap.Error(err))
		return fmt.Errorf("failed to create record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	rec.ID = id
	return nil
}

// GetByID retrieves a record by ID
func (r *RecordRepository) GetByID(ctx context.Context, id int64) (*entity.WorkflowRecord, error) {
	query := `
		SELECT id, kind, status, owner_id, approver_id, version, payload,
			created_at, updated_at
		FROM workflow_records
		WHERE id = ?
	`

	rec, err := scanRecord(getExecutor(ctx, r.db).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, port.ErrNotFound
	}
	if err != nil {
		r.logger.Error("Failed to get record", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	return rec, nil
}

// Save writes a new record version. The update only matches when the stored
// version equals expectedVersion; zero affected rows on an existing record
// means a concurrent writer won.
func (r *RecordRepository) Save(ctx context.Context, rec *entity.WorkflowRecord, expectedVersion int64) error {
	payload, err := marshalPayload(rec.Payload)
	if err != nil {
		return err
	}

	query := `
		UPDATE workflow_records
		SET status = ?, approver_id = ?, version = ?, payload = ?, updated_at = ?
		WHERE id = ? AND version = ?
	`

	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		rec.Status,
		rec.ApproverID,
		rec.Version,
		payload,
		rec.UpdatedAt,
		rec.ID,
		expectedVersion,
	)
	if err != nil {
		r.logger.Error("Failed to save record", zap.Int64("id", rec.ID), zap.Error(err))
		return fmt.Errorf("failed to save record: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		exists, err := r.exists(ctx, rec.ID)
		if err != nil {
			return err
		}
		if !exists {
			return port.ErrNotFound
		}
		r.logger.Info("Version conflict on save",
			zap.Int64("id", rec.ID),
			zap.Int64("expected_version", expectedVersion),
		)
		return port.ErrVersionConflict
	}

	return nil
}

// ListByKind retrieves records of one kind, newest first. A limit of zero
// means no limit.
func (r *RecordRepository) ListByKind(ctx context.Context, kind entity.Kind, limit, offset int) ([]*entity.WorkflowRecord, error) {
	query := `
		SELECT id, kind, status, owner_id, approver_id, version, payload,
			created_at, updated_at
		FROM workflow_records
		WHERE kind = ?
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`
	if limit <= 0 {
		limit = -1
	}

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, string(kind), limit, offset)
	if err != nil {
		r.logger.Error("Failed to list records", zap.String("kind", string(kind)), zap.Error(err))
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	return collectRecords(rows)
}

// ListActive retrieves every record regardless of kind. Terminal filtering
// happens in the views, which know each kind's terminal states.
func (r *RecordRepository) ListActive(ctx context.Context) ([]*entity.WorkflowRecord, error) {
	query := `
		SELECT id, kind, status, owner_id, approver_id, version, payload,
			created_at, updated_at
		FROM workflow_records
		ORDER BY created_at DESC
	`

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list active records", zap.Error(err))
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	return collectRecords(rows)
}

func (r *RecordRepository) exists(ctx context.Context, id int64) (bool, error) {
	var n int
	err := getExecutor(ctx, r.db).QueryRowContext(ctx,
		`SELECT COUNT(1) FROM workflow_records WHERE id = ?`, id).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check record existence: %w", err)
	}
	return n > 0, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (*entity.WorkflowRecord, error) {
	var rec entity.WorkflowRecord
	var kind, payload string
	var approverID sql.NullString
	var createdAt, updatedAt time.Time

	err := row.Scan(
		&rec.ID,
		&kind,
		&rec.Status,
		&rec.OwnerID,
		&approverID,
		&rec.Version,
		&payload,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.Kind = entity.Kind(kind)
	if approverID.Valid {
		rec.ApproverID = approverID.String
	}
	rec.CreatedAt = createdAt
	rec.UpdatedAt = updatedAt

	if err := json.Unmarshal([]byte(payload), &rec.Payload); err != nil {
		return nil, fmt.Errorf("failed to decode payload: %w", err)
	}
	return &rec, nil
}

func collectRecords(rows *sql.Rows) ([]*entity.WorkflowRecord, error) {
	var records []*entity.WorkflowRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func marshalPayload(payload map[string]any) (string, error) {
	if payload == nil {
		return "{}", nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode payload: %w", err)
	}
	return string(raw), nil
}

// getExecutor returns the context transaction when present, the pool otherwise
func getExecutor(ctx context.Context, db *sql.DB) executor {
	if tx := sqlite.ExtractTx(ctx); tx != nil {
		return tx
	}
	return db
}

// executor interface covers both *sql.DB and *sql.Tx
type executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Verify interface compliance
var _ port.RecordRepository = (*RecordRepository)(nil)
