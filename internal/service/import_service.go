// Package service orchestrates a full import run: open the workbook,
// drive the six sheets through their readers in dependency order, then
// render the rejection reports.
package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/jack2012aa/breeding-db-sub000/internal/reader"
	"github.com/jack2012aa/breeding-db-sub000/internal/report"
	"github.com/jack2012aa/breeding-db-sub000/internal/sheet"
	"github.com/jack2012aa/breeding-db-sub000/pkg/config"
	"github.com/jack2012aa/breeding-db-sub000/pkg/export"
	apperrors "github.com/jack2012aa/breeding-db-sub000/pkg/errors"
)

// ImportRequest describes one batch run.
type ImportRequest struct {
	Input     string `validate:"required"`
	Farm      string `validate:"required"`
	ReportDir string `validate:"required"`
	// DryRun opens and inspects the workbook without touching the store.
	DryRun bool
}

// Summary is the outcome of one run.
type Summary struct {
	Tallies     []reader.Tally
	Rejected    int
	ReportFiles []string
}

type sheetReader interface {
	Read(ctx context.Context, table *sheet.Table) (reader.Tally, error)
}

// Readers bundles the six per-sheet readers in their import order.
type Readers struct {
	Animals     sheetReader
	Estrus      sheetReader
	Matings     sheetReader
	Farrowings  sheetReader
	Weanings    sheetReader
	Individuals sheetReader
}

// ImportService runs batches.
type ImportService struct {
	readers   Readers
	collector *report.Collector
	reports   config.ReportsConfig
	validate  *validator.Validate
	logger    *zap.Logger
}

// NewImportService constructs an ImportService.
func NewImportService(readers Readers, collector *report.Collector, reports config.ReportsConfig, logger *zap.Logger) *ImportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportService{
		readers:   readers,
		collector: collector,
		reports:   reports,
		validate:  validator.New(),
		logger:    logger,
	}
}

// Run executes one batch. Sheets the workbook does not contain are
// skipped; the order is fixed so every record type is persisted before
// the types that reference it.
func (s *ImportService) Run(ctx context.Context, req ImportRequest) (*Summary, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrValidation.Code, "invalid import request")
	}

	workbook, err := sheet.Open(req.Input)
	if err != nil {
		return nil, err
	}

	stages := []struct {
		name   string
		reader sheetReader
	}{
		{"animals", s.readers.Animals},
		{"estrus", s.readers.Estrus},
		{"matings", s.readers.Matings},
		{"farrowings", s.readers.Farrowings},
		{"weanings", s.readers.Weanings},
		{"individuals", s.readers.Individuals},
	}

	known := make(map[string]bool, len(stages))
	for _, stage := range stages {
		known[stage.name] = true
	}
	for _, table := range workbook.Tables() {
		if !known[table.Name] {
			s.logger.Warn("unrecognized sheet ignored",
				zap.String("sheet", table.Name),
				zap.Int("rows", len(table.Rows)),
			)
		}
	}

	summary := &Summary{}
	for _, stage := range stages {
		table := workbook.Table(stage.name)
		if table == nil || len(table.Rows) == 0 {
			s.logger.Info("sheet absent or empty", zap.String("sheet", stage.name))
			continue
		}
		s.collector.SetHeaders(stage.name, table.Headers)

		if req.DryRun {
			s.logger.Info("dry run, sheet parsed only",
				zap.String("sheet", stage.name),
				zap.Int("rows", len(table.Rows)),
			)
			continue
		}

		tally, err := stage.reader.Read(ctx, table)
		if err != nil {
			return nil, fmt.Errorf("import %s: %w", stage.name, err)
		}
		s.logger.Info("sheet imported",
			zap.String("sheet", tally.Sheet),
			zap.Int("rows", tally.Rows),
			zap.Int("inserted", tally.Inserted),
			zap.Int("updated", tally.Updated),
			zap.Int("skipped", tally.Skipped),
			zap.Int("rejected", tally.Rejected),
			zap.Int("conflicts", tally.Conflicts),
			zap.Int("missing_references", tally.MissingReferences),
		)
		summary.Tallies = append(summary.Tallies, tally)
	}

	summary.Rejected = s.collector.Total()
	if req.DryRun {
		return summary, nil
	}

	var reportErr error
	paths, err := s.collector.WriteCSV(req.ReportDir)
	reportErr = multierr.Append(reportErr, err)
	summary.ReportFiles = append(summary.ReportFiles, paths...)

	if s.reports.PDFSummary {
		path, err := s.collector.WritePDFSummary(req.ReportDir, summaryLines(summary))
		reportErr = multierr.Append(reportErr, err)
		if path != "" {
			summary.ReportFiles = append(summary.ReportFiles, path)
		}
	}
	return summary, reportErr
}

func summaryLines(summary *Summary) []export.SummaryLine {
	totals := reader.Tally{}
	for _, t := range summary.Tallies {
		totals.Rows += t.Rows
		totals.Inserted += t.Inserted
		totals.Updated += t.Updated
		totals.Skipped += t.Skipped
		totals.Rejected += t.Rejected
		totals.Conflicts += t.Conflicts
		totals.MissingReferences += t.MissingReferences
	}
	return []export.SummaryLine{
		{Label: "rows", Value: strconv.Itoa(totals.Rows)},
		{Label: "inserted", Value: strconv.Itoa(totals.Inserted)},
		{Label: "updated", Value: strconv.Itoa(totals.Updated)},
		{Label: "skipped", Value: strconv.Itoa(totals.Skipped)},
		{Label: "rejected", Value: strconv.Itoa(totals.Rejected)},
		{Label: "conflicts", Value: strconv.Itoa(totals.Conflicts)},
		{Label: "missing references", Value: strconv.Itoa(totals.MissingReferences)},
	}
}
