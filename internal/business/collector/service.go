package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sylvlondon/hotelmonitoring/pkg/model"
)

// ErrRunInProgress is returned when a run is requested while another is active.
var ErrRunInProgress = errors.New("a collection run is already in progress")

// RecordStore persists observation records.
type RecordStore interface {
	InsertRecords(ctx context.Context, records []model.SheetRecord) error
	// RecordsByRunID returns a run's records ordered by hotel name, then date.
	RecordsByRunID(ctx context.Context, runID string) ([]model.SheetRecord, error)
}

// RunStore persists run lifecycle metadata.
type RunStore interface {
	CreateRun(ctx context.Context, run model.RunSummary) error
	UpdateRun(ctx context.Context, run model.RunSummary) error
}

// ReportRenderer writes a human readable report and returns its location.
type ReportRenderer interface {
	Render(records []model.SheetRecord, runID string) (string, error)
}

// Exporter forwards a finished run to a downstream system.
type Exporter interface {
	Name() string
	Export(ctx context.Context, run model.RunSummary, records []model.SheetRecord) error
}

// Service runs the full pipeline: collect, persist, report, export.
type Service struct {
	orchestrator *Orchestrator
	records      RecordStore
	runs         RunStore
	reporter     ReportRenderer
	exporters    []Exporter
	jobs         *JobManager
	logger       *slog.Logger
	newRunID     func() string
	now          func() time.Time
}

func NewService(orchestrator *Orchestrator, records RecordStore, runs RunStore, reporter ReportRenderer, exporters []Exporter, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		orchestrator: orchestrator,
		records:      records,
		runs:         runs,
		reporter:     reporter,
		exporters:    exporters,
		jobs:         NewJobManager(),
		logger:       logger.With("component", "collector"),
		newRunID:     generateRunID,
		now:          time.Now,
	}
}

// Jobs exposes the running-job registry.
func (s *Service) Jobs() *JobManager { return s.jobs }

// RunOnce executes a complete run synchronously. The returned summary is
// valid even when err is non-nil.
func (s *Service) RunOnce(ctx context.Context) (model.RunSummary, error) {
	runID := s.newRunID()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if !s.jobs.TryRegister(runID, cancel) {
		return model.RunSummary{}, ErrRunInProgress
	}
	defer s.jobs.Unregister(runID)

	startedAt := s.now().UTC()
	if err := StartRun(ctx, s.runs, runID, startedAt); err != nil {
		return model.RunSummary{RunID: runID, Status: model.RunStatusFailed}, err
	}
	return s.execute(ctx, runID, startedAt)
}

// Start kicks off a run asynchronously and returns its id.
func (s *Service) Start(ctx context.Context) (string, error) {
	runID := s.newRunID()
	runCtx, cancel := context.WithCancel(context.Background())
	if !s.jobs.TryRegister(runID, cancel) {
		cancel()
		return "", ErrRunInProgress
	}
	startedAt := s.now().UTC()
	if err := StartRun(ctx, s.runs, runID, startedAt); err != nil {
		s.jobs.Unregister(runID)
		cancel()
		return "", err
	}
	go func() {
		defer cancel()
		defer s.jobs.Unregister(runID)
		if _, err := s.execute(runCtx, runID, startedAt); err != nil {
			s.logger.Error("run finished with errors", "run_id", runID, "error", err)
		}
	}()
	return runID, nil
}

// Cancel stops a running job.
func (s *Service) Cancel(runID string) bool {
	return s.jobs.Cancel(runID)
}

func (s *Service) execute(ctx context.Context, runID string, startedAt time.Time) (model.RunSummary, error) {
	log := s.logger.With("run_id", runID)
	log.Info("run started", "hotels", len(s.orchestrator.Hotels()))

	summary := model.RunSummary{RunID: runID, Status: model.RunStatusFailed, StartedAt: startedAt}
	finish := func(err error) (model.RunSummary, error) {
		summary.FinishedAt = s.now().UTC()
		if ferr := FinishRun(context.WithoutCancel(ctx), s.runs, summary); ferr != nil {
			log.Error("finish run", "error", ferr)
			err = errors.Join(err, ferr)
		}
		return summary, err
	}

	records, err := s.orchestrator.Run(ctx, RunContext{RunID: runID, RunTs: startedAt})
	summary.Stats, summary.ErrorSample = AggregateRunStats(records)
	if err != nil {
		// A cancelled run still stores one record per pair.
		err = fmt.Errorf("collect: %w", err)
		if ierr := s.records.InsertRecords(context.WithoutCancel(ctx), records); ierr != nil {
			err = errors.Join(err, fmt.Errorf("insert records: %w", ierr))
		}
		return finish(err)
	}

	if err := s.records.InsertRecords(ctx, records); err != nil {
		return finish(fmt.Errorf("insert records: %w", err))
	}
	stored, err := s.records.RecordsByRunID(ctx, runID)
	if err != nil {
		return finish(fmt.Errorf("query records: %w", err))
	}

	reportPath, err := s.reporter.Render(stored, runID)
	if err != nil {
		return finish(fmt.Errorf("render report: %w", err))
	}
	summary.ReportPath = reportPath
	summary.Status = model.RunStatusSuccess

	var exportErr error
	for _, exp := range s.exporters {
		if err := exp.Export(ctx, summary, stored); err != nil {
			log.Error("export failed", "exporter", exp.Name(), "error", err)
			exportErr = errors.Join(exportErr, fmt.Errorf("export %s: %w", exp.Name(), err))
		}
	}
	if exportErr != nil {
		summary.Status = model.RunStatusPartial
	}

	log.Info("run completed",
		"records", len(stored),
		"ok", summary.Stats.OK,
		"no_availability", summary.Stats.NoAvailability,
		"errors", summary.Stats.Errors,
		"report", reportPath,
	)
	return finish(exportErr)
}

// StartRun initializes a RunSummary record.
func StartRun(ctx context.Context, repo RunStore, runID string, startedAt time.Time) error {
	return repo.CreateRun(ctx, model.RunSummary{
		RunID:     runID,
		Status:    model.RunStatusRunning,
		StartedAt: startedAt,
	})
}

// FinishRun finalizes a RunSummary record with stats and status.
func FinishRun(ctx context.Context, repo RunStore, summary model.RunSummary) error {
	if summary.FinishedAt.IsZero() {
		summary.FinishedAt = time.Now().UTC()
	}
	return repo.UpdateRun(ctx, summary)
}

func generateRunID() string {
	return uuid.NewString()
}
