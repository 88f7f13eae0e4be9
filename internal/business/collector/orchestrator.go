package collector

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/sylvlondon/hotelmonitoring/pkg/model"
)

// Orchestrator walks every (hotel, target date) pair of a run sequentially.
type Orchestrator struct {
	hotels    []model.HotelConfig
	registry  *Registry
	sessions  SessionFactory
	retrier   *Retrier
	lookahead int
	artifacts *ArtifactWriter
	now       func() time.Time
	logger    *slog.Logger
}

// OrchestratorOption customizes an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithRetrier overrides the retry policy.
func WithRetrier(r *Retrier) OrchestratorOption {
	return func(o *Orchestrator) { o.retrier = r }
}

// WithArtifacts enables debug capture of failed attempts.
func WithArtifacts(w *ArtifactWriter) OrchestratorOption {
	return func(o *Orchestrator) { o.artifacts = w }
}

// WithClock overrides the time source used for target dates.
func WithClock(now func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) { o.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) { o.logger = l }
}

func NewOrchestrator(hotels []model.HotelConfig, registry *Registry, sessions SessionFactory, lookahead int, opts ...OrchestratorOption) *Orchestrator {
	if lookahead <= 0 {
		lookahead = 7
	}
	o := &Orchestrator{
		hotels:    hotels,
		registry:  registry,
		sessions:  sessions,
		retrier:   NewRetrier(),
		lookahead: lookahead,
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Hotels returns the configured hotels.
func (o *Orchestrator) Hotels() []model.HotelConfig { return o.hotels }

// Run collects every pair and returns exactly one record per pair, in
// hotel order then ascending date. Per-pair failures become error
// records. Once ctx is cancelled the remaining pairs are recorded as
// RUN_CANCELLED and Run returns the full slice with ctx's error.
func (o *Orchestrator) Run(ctx context.Context, rc RunContext) ([]model.SheetRecord, error) {
	records := make([]model.SheetRecord, 0, len(o.hotels)*o.lookahead)
	now := o.now()

	for _, hotel := range o.hotels {
		loc, err := hotel.Location()
		if err != nil {
			loc = time.UTC
		}
		for _, date := range BuildTargetDates(now, o.lookahead, loc) {
			if ctx.Err() != nil {
				records = append(records, ErrorRecord(rc, hotel, date, NewCollectError(CodeRunCancelled, "run cancelled before collection")))
				continue
			}
			records = append(records, o.collectPair(ctx, rc, hotel, date))
		}
	}
	return records, ctx.Err()
}

func (o *Orchestrator) collectPair(ctx context.Context, rc RunContext, hotel model.HotelConfig, date string) model.SheetRecord {
	log := o.logger.With("hotel_id", hotel.HotelID, "provider", string(hotel.Provider), "target_date", date)

	adapter, ok := o.registry.Get(hotel.Provider)
	if !ok {
		err := NewCollectError(CodeUnknownProvider, "no adapter registered for provider %q", hotel.Provider)
		log.Warn("collect skipped", "error", err)
		return ErrorRecord(rc, hotel, date, err)
	}

	res, err := Do(ctx, o.retrier, func(ctx context.Context, attempt int) (model.CollectResult, error) {
		res, err := o.attempt(ctx, adapter, hotel, date, attempt)
		if err != nil {
			log.Warn("collect attempt failed", "attempt", attempt, "code", ErrorCode(err), "error", err)
		}
		return res, err
	})
	if err != nil {
		if ctx.Err() != nil {
			err = WrapCollectError(CodeRunCancelled, err, "run cancelled during collection")
		}
		log.Error("collect failed", "code", ErrorCode(err), "error", err)
		return ErrorRecord(rc, hotel, date, err)
	}
	log.Info("collected", "status", string(res.Status), "available", res.AvailableRoomsCount)
	return SuccessRecord(rc, hotel, date, res)
}

// attempt opens one isolated session, runs the adapter, and always closes
// the session. Panics inside an adapter surface as unhandled errors.
func (o *Orchestrator) attempt(ctx context.Context, adapter Adapter, hotel model.HotelConfig, date string, attempt int) (res model.CollectResult, err error) {
	session, err := o.sessions.NewIsolatedSession(ctx)
	if err != nil {
		return model.CollectResult{}, fmt.Errorf("open session: %w", err)
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			o.logger.Debug("close session", "error", cerr)
		}
	}()
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("adapter panic", "hotel_id", hotel.HotelID, "panic", r, "stack", string(debug.Stack()))
			res, err = model.CollectResult{}, fmt.Errorf("adapter panic: %v", r)
		}
		if err != nil {
			o.captureArtifacts(ctx, session, hotel, date, attempt)
		}
	}()

	return adapter.Collect(ctx, session, hotel, date)
}

func (o *Orchestrator) captureArtifacts(ctx context.Context, s Session, hotel model.HotelConfig, date string, attempt int) {
	if o.artifacts == nil || !o.artifacts.Enabled {
		return
	}
	path, err := o.artifacts.Capture(ctx, s, ArtifactKey{
		HotelID:    hotel.HotelID,
		Provider:   string(hotel.Provider),
		TargetDate: date,
		Attempt:    attempt,
		Label:      "collect_error",
	})
	if err != nil {
		o.logger.Warn("debug artifact capture failed", "hotel_id", hotel.HotelID, "error", err)
		return
	}
	o.logger.Info("debug artifacts saved", "path", path)
}
