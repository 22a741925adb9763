package service

import (
	"context"
	"fmt"
	"time"

	"github.com/imcpnet/intranet-workflow/internal/application/port"
	"github.com/imcpnet/intranet-workflow/internal/domain/entity"
	"github.com/imcpnet/intranet-workflow/internal/domain/workflow"
)

// ViewService computes derived read models over the record store. Everything
// here is recomputed per call from the records themselves.
type ViewService interface {
	CountsByState(ctx context.Context, kind entity.Kind) (map[workflow.State]int, error)
	PendingFor(ctx context.Context, actor entity.Actor) ([]*entity.WorkflowRecord, error)
	MineAndOverdue(ctx context.Context, actor entity.Actor) ([]*entity.WorkflowRecord, error)
}

type viewServiceImpl struct {
	views      *workflow.Views
	recordRepo port.RecordRepository
	logger     Logger
}

// NewViewService creates a new ViewService
func NewViewService(views *workflow.Views, recordRepo port.RecordRepository, logger Logger) ViewService {
	return &viewServiceImpl{
		views:      views,
		recordRepo: recordRepo,
		logger:     logger,
	}
}

// CountsByState returns record counts per state for one kind, including
// zeroes for states with no records
func (s *viewServiceImpl) CountsByState(ctx context.Context, kind entity.Kind) (map[workflow.State]int, error) {
	if !kind.IsValid() {
		return nil, fmt.Errorf("unknown kind %q", kind)
	}
	records, err := s.recordRepo.ListByKind(ctx, kind, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return s.views.CountsByState(kind, records), nil
}

// PendingFor returns the records awaiting an action the actor may take
func (s *viewServiceImpl) PendingFor(ctx context.Context, actor entity.Actor) ([]*entity.WorkflowRecord, error) {
	records, err := s.recordRepo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active records: %w", err)
	}
	return s.views.PendingFor(actor, records), nil
}

// MineAndOverdue returns the actor's own records whose advisory deadline
// has passed
func (s *viewServiceImpl) MineAndOverdue(ctx context.Context, actor entity.Actor) ([]*entity.WorkflowRecord, error) {
	records, err := s.recordRepo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active records: %w", err)
	}
	return s.views.MineAndOverdue(actor, records, time.Now()), nil
}
