package service

import (
	"context"
	"fmt"

	"github.com/imcpnet/intranet-workflow/internal/application/dispatcher"
	"github.com/imcpnet/intranet-workflow/internal/application/port"
	"github.com/imcpnet/intranet-workflow/internal/domain/entity"
	"github.com/imcpnet/intranet-workflow/internal/domain/event"
	"github.com/imcpnet/intranet-workflow/internal/domain/workflow"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// WorkflowService drives record lifecycles. It loads state, lets the engine
// compute the transition, and commits the new version, the log entry and the
// child records in one transaction. Events are published after commit.
type WorkflowService interface {
	CreateRecord(ctx context.Context, kind entity.Kind, actor entity.Actor, payload map[string]any) (*entity.WorkflowRecord, error)
	FireTransition(ctx context.Context, recordID int64, transition string, actor entity.Actor, payload map[string]any) (*entity.WorkflowRecord, error)
	GetRecord(ctx context.Context, id int64) (*entity.WorkflowRecord, error)
	History(ctx context.Context, recordID int64) ([]*entity.TransitionLogEntry, error)
	AvailableTransitions(ctx context.Context, recordID int64, actor entity.Actor) ([]string, error)
	ListByKind(ctx context.Context, kind entity.Kind, limit, offset int) ([]*entity.WorkflowRecord, error)
}

type workflowServiceImpl struct {
	engine     *workflow.Engine
	recordRepo port.RecordRepository
	logRepo    port.TransitionLogRepository
	effects    EffectApplier
	txManager  port.TransactionManager
	events     dispatcher.Dispatcher
	logger     Logger
}

// NewWorkflowService creates a new WorkflowService
func NewWorkflowService(
	engine *workflow.Engine,
	recordRepo port.RecordRepository,
	logRepo port.TransitionLogRepository,
	effects EffectApplier,
	txManager port.TransactionManager,
	events dispatcher.Dispatcher,
	logger Logger,
) WorkflowService {
	return &workflowServiceImpl{
		engine:     engine,
		recordRepo: recordRepo,
		logRepo:    logRepo,
		effects:    effects,
		txManager:  txManager,
		events:     events,
		logger:     logger,
	}
}

// CreateRecord creates a record in its kind's initial state
func (s *workflowServiceImpl) CreateRecord(ctx context.Context, kind entity.Kind, actor entity.Actor, payload map[string]any) (*entity.WorkflowRecord, error) {
	rec, err := s.engine.NewRecord(kind, actor.ID, payload)
	if err != nil {
		return nil, err
	}

	if err := s.recordRepo.Create(ctx, rec); err != nil {
		s.logger.Error("Failed to create record", "error", err, "kind", kind)
		return nil, fmt.Errorf("create record: %w", err)
	}

	s.logger.Info("Record created", "id", rec.ID, "kind", kind, "status", rec.Status, "owner_id", actor.ID)

	s.events.DispatchAsync(ctx, event.NewEvent(event.TypeRecordCreated, rec.ID, rec.Kind, map[string]any{
		"status":   rec.Status,
		"owner_id": rec.OwnerID,
	}))

	return rec, nil
}

// FireTransition applies a named transition to a record. The guard errors
// pass through untouched so callers can map them onto their own surface;
// a concurrent writer surfaces as port.ErrVersionConflict.
func (s *workflowServiceImpl) FireTransition(ctx context.Context, recordID int64, transition string, actor entity.Actor, payload map[string]any) (*entity.WorkflowRecord, error) {
	rec, err := s.recordRepo.GetByID(ctx, recordID)
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}

	res, err := s.engine.Fire(rec, transition, actor, payload)
	if err != nil {
		s.logger.Info("Transition refused",
			"record_id", recordID,
			"transition", transition,
			"actor_id", actor.ID,
			"reason", err.Error(),
		)
		return nil, err
	}

	// Events for child rows the effects actually wrote; published only
	// after the transaction commits.
	var childEvents []*event.Event
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		childEvents = childEvents[:0]
		for _, ef := range res.Effects {
			switch ef.Kind {
			case workflow.EffectPersist:
				if err := s.recordRepo.Save(txCtx, res.Record, rec.Version); err != nil {
					return fmt.Errorf("save record: %w", err)
				}
				if err := s.logRepo.Append(txCtx, res.Entry); err != nil {
					return fmt.Errorf("append log: %w", err)
				}
			default:
				evt, err := s.effects.Apply(txCtx, res.Record, ef)
				if err != nil {
					return fmt.Errorf("apply %s effect: %w", ef.Kind, err)
				}
				if evt != nil {
					childEvents = append(childEvents, evt)
				}
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to commit transition",
			"error", err,
			"record_id", recordID,
			"transition", transition,
		)
		return nil, err
	}

	s.logger.Info("Transition committed",
		"record_id", recordID,
		"kind", rec.Kind,
		"transition", transition,
		"from", res.Entry.FromState,
		"to", res.Entry.ToState,
		"actor_id", actor.ID,
		"version", res.Record.Version,
	)

	s.events.DispatchAsync(ctx, event.NewEvent(event.TypeRecordTransitioned, rec.ID, rec.Kind, map[string]any{
		"transition": transition,
		"from_state": res.Entry.FromState,
		"to_state":   res.Entry.ToState,
		"actor_id":   actor.ID,
	}))
	for _, evt := range childEvents {
		s.events.DispatchAsync(ctx, evt)
	}

	return res.Record, nil
}

// GetRecord retrieves a record by ID
func (s *workflowServiceImpl) GetRecord(ctx context.Context, id int64) (*entity.WorkflowRecord, error) {
	rec, err := s.recordRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	return rec, nil
}

// History returns the full transition log of a record, oldest first
func (s *workflowServiceImpl) History(ctx context.Context, recordID int64) ([]*entity.TransitionLogEntry, error) {
	entries, err := s.logRepo.HistoryFor(ctx, recordID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return entries, nil
}

// AvailableTransitions returns the transition names the actor may fire on
// the record from its current state
func (s *workflowServiceImpl) AvailableTransitions(ctx context.Context, recordID int64, actor entity.Actor) ([]string, error) {
	rec, err := s.recordRepo.GetByID(ctx, recordID)
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}

	names := []string{}
	for _, t := range s.engine.Guard().Available(rec, actor) {
		names = append(names, t.Name)
	}
	return names, nil
}

// ListByKind returns a page of records of one kind
func (s *workflowServiceImpl) ListByKind(ctx context.Context, kind entity.Kind, limit, offset int) ([]*entity.WorkflowRecord, error) {
	if !kind.IsValid() {
		return nil, fmt.Errorf("unknown kind %q", kind)
	}
	return s.recordRepo.ListByKind(ctx, kind, limit, offset)
}
