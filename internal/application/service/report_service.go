package service

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/imcpnet/intranet-workflow/internal/application/port"
	"github.com/imcpnet/intranet-workflow/internal/domain/workflow"
)

// ReportService exports workflow data as Excel workbooks for the quality
// and HR teams
type ReportService interface {
	// ExportStatusReport builds a workbook with one sheet per kind showing
	// record counts by state, saves it under the export directory and
	// returns its relative path.
	ExportStatusReport(ctx context.Context) (string, error)

	// ExportHistory builds a workbook listing a record's full transition log
	ExportHistory(ctx context.Context, recordID int64) ([]byte, error)
}

type reportServiceImpl struct {
	registry   *workflow.Registry
	views      *workflow.Views
	recordRepo port.RecordRepository
	logRepo    port.TransitionLogRepository
	storage    port.FileStorage
	logger     Logger
}

// NewReportService creates a new ReportService
func NewReportService(
	registry *workflow.Registry,
	views *workflow.Views,
	recordRepo port.RecordRepository,
	logRepo port.TransitionLogRepository,
	storage port.FileStorage,
	logger Logger,
) ReportService {
	return &reportServiceImpl{
		registry:   registry,
		views:      views,
		recordRepo: recordRepo,
		logRepo:    logRepo,
		storage:    storage,
		logger:     logger,
	}
}

// ExportStatusReport builds the per-kind status workbook
func (s *reportServiceImpl) ExportStatusReport(ctx context.Context) (string, error) {
	f := excelize.NewFile()
	defer f.Close()

	first := true
	for _, kind := range s.registry.Kinds() {
		records, err := s.recordRepo.ListByKind(ctx, kind, 0, 0)
		if err != nil {
			return "", fmt.Errorf("list %s records: %w", kind, err)
		}
		counts := s.views.CountsByState(kind, records)

		sheet := string(kind)
		if first {
			// The workbook opens with a default sheet; rename it for the
			// first kind instead of leaving it empty.
			defaultSheet := f.GetSheetName(0)
			if err := f.SetSheetName(defaultSheet, sheet); err != nil {
				return "", fmt.Errorf("rename sheet: %w", err)
			}
			first = false
		} else {
			if _, err := f.NewSheet(sheet); err != nil {
				return "", fmt.Errorf("create sheet %s: %w", sheet, err)
			}
		}

		s.setCell(f, sheet, "A1", "State")
		s.setCell(f, sheet, "B1", "Records")

		states := make([]string, 0, len(counts))
		for state := range counts {
			states = append(states, string(state))
		}
		sort.Strings(states)

		for i, state := range states {
			row := i + 2
			s.setCell(f, sheet, fmt.Sprintf("A%d", row), state)
			s.setCell(f, sheet, fmt.Sprintf("B%d", row), counts[workflow.State(state)])
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return "", fmt.Errorf("write workbook: %w", err)
	}

	path := fmt.Sprintf("reports/status-%s.xlsx", time.Now().Format("20060102-150405"))
	if err := s.storage.Save(ctx, path, buf.Bytes()); err != nil {
		return "", fmt.Errorf("save report: %w", err)
	}

	s.logger.Info("Status report exported", "path", path)
	return path, nil
}

// ExportHistory builds a workbook listing a record's transition log
func (s *reportServiceImpl) ExportHistory(ctx context.Context, recordID int64) ([]byte, error) {
	rec, err := s.recordRepo.GetByID(ctx, recordID)
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	entries, err := s.logRepo.HistoryFor(ctx, recordID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	s.setCell(f, sheet, "A1", fmt.Sprintf("History of %s #%d", rec.Kind, rec.ID))

	headers := []string{"Timestamp", "Transition", "From", "To", "Actor", "Note"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 3)
		s.setCell(f, sheet, cell, h)
	}

	for i, e := range entries {
		row := i + 4
		s.setCell(f, sheet, fmt.Sprintf("A%d", row), e.Timestamp.Format(time.RFC3339))
		s.setCell(f, sheet, fmt.Sprintf("B%d", row), e.TransitionName)
		s.setCell(f, sheet, fmt.Sprintf("C%d", row), e.FromState)
		s.setCell(f, sheet, fmt.Sprintf("D%d", row), e.ToState)
		s.setCell(f, sheet, fmt.Sprintf("E%d", row), e.ActorID)
		s.setCell(f, sheet, fmt.Sprintf("F%d", row), e.Note)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}

	s.logger.Info("History exported", "record_id", recordID, "entries", len(entries))
	return buf.Bytes(), nil
}

// setCell sets a cell value, logging rather than failing on errors
func (s *reportServiceImpl) setCell(f *excelize.File, sheet, cell string, value any) {
	if err := f.SetCellValue(sheet, cell, value); err != nil {
		s.logger.Error("Failed to set cell value", "sheet", sheet, "cell", cell, "error", err)
	}
}
