package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/imcpnet/intranet-workflow/internal/application/port"
	"github.com/imcpnet/intranet-workflow/internal/domain/entity"
)

// TransitionLogRepository implements port.TransitionLogRepository.
// The table is append-only; no update or delete statements exist here.
type TransitionLogRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewTransitionLogRepository creates a new transition log repository
func NewTransitionLogRepository(db *sql.DB, logger *zap.Logger) port.TransitionLogRepository {
	return &TransitionLogRepository{
		db:     db,
		logger: logger,
	}
}

// Append writes one log entry
func (r *TransitionLogRepository) Append(ctx context.Context, entry *entity.TransitionLogEntry) error {
	snapshot := "{}"
	if entry.PayloadSnapshot != nil {
		raw, err := json.Marshal(entry.PayloadSnapshot)
		if err != nil {
			return fmt.Errorf("failed to encode payload snapshot: %w", err)
		}
		snapshot = string(raw)
	}

	query := `
		INSERT INTO transition_log (
			record_id, kind, from_state, to_state, transition_name,
			actor_id, note, payload_snapshot, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		entry.RecordID,
		string(entry.Kind),
		entry.FromState,
		entry.ToState,
		entry.TransitionName,
		entry.ActorID,
		entry.Note,
		snapshot,
		entry.Timestamp,
	)
	if err != nil {
		r.logger.Error("Failed to append log entry", zap.Int64("record_id", entry.RecordID), zap.Error(err))
		return fmt.Errorf("failed to append log entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	entry.ID = id
	return nil
}

// HistoryFor retrieves a record's log entries, oldest first
func (r *TransitionLogRepository) HistoryFor(ctx context.Context, recordID int64) ([]*entity.TransitionLogEntry, error) {
	query := `
		SELECT id, record_id, kind, from_state, to_state, transition_name,
			actor_id, note, payload_snapshot, timestamp
		FROM transition_log
		WHERE record_id = ?
		ORDER BY id ASC
	`

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, recordID)
	if err != nil {
		r.logger.Error("Failed to load history", zap.Int64("record_id", recordID), zap.Error(err))
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	defer rows.Close()

	var entries []*entity.TransitionLogEntry
	for rows.Next() {
		var entry entity.TransitionLogEntry
		var kind, snapshot string

		err := rows.Scan(
			&entry.ID,
			&entry.RecordID,
			&kind,
			&entry.FromState,
			&entry.ToState,
			&entry.TransitionName,
			&entry.ActorID,
			&entry.Note,
			&snapshot,
			&entry.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan log entry: %w", err)
		}

		entry.Kind = entity.Kind(kind)
		if snapshot != "" && snapshot != "{}" {
			if err := json.Unmarshal([]byte(snapshot), &entry.PayloadSnapshot); err != nil {
				return nil, fmt.Errorf("failed to decode payload snapshot: %w", err)
			}
		}

		entries = append(entries, &entry)
	}

	return entries, rows.Err()
}

// Verify interface compliance
var _ port.TransitionLogRepository = (*TransitionLogRepository)(nil)
