// Package app assembles the monitor from configuration. Commands share it so
// the server, the one-shot monitor and the inspection tools wire the same
// stores and adapters.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/sylvlondon/hotelmonitoring/internal/business/collector"
	"github.com/sylvlondon/hotelmonitoring/internal/business/collector/securedirect"
	"github.com/sylvlondon/hotelmonitoring/internal/business/collector/thais"
	"github.com/sylvlondon/hotelmonitoring/internal/export"
	"github.com/sylvlondon/hotelmonitoring/internal/platform/browser"
	"github.com/sylvlondon/hotelmonitoring/internal/platform/config"
	firestoreclient "github.com/sylvlondon/hotelmonitoring/internal/platform/firestore"
	"github.com/sylvlondon/hotelmonitoring/internal/platform/logging"
	"github.com/sylvlondon/hotelmonitoring/internal/platform/postgres"
	"github.com/sylvlondon/hotelmonitoring/internal/report"
	"github.com/sylvlondon/hotelmonitoring/internal/repository"
	"github.com/sylvlondon/hotelmonitoring/pkg/model"
)

// RunRepository stores and reads run summaries.
type RunRepository interface {
	collector.RunStore
	GetRun(ctx context.Context, runID string) (model.RunSummary, error)
	ListRuns(ctx context.Context, limit int) ([]model.RunSummary, error)
}

// Stores are the configured persistence backends.
type Stores struct {
	Records collector.RecordStore
	Runs    RunRepository
	close   func()
}

func (s Stores) Close() {
	if s.close != nil {
		s.close()
	}
}

// NewLogger builds the process logger from cfg.
func NewLogger(cfg config.Config) (*slog.Logger, io.Closer, error) {
	return logging.New(logging.Config{
		Level:           cfg.LogLevel,
		JSON:            cfg.LogJSON,
		FluentEnabled:   cfg.FluentEnabled,
		FluentHost:      cfg.FluentHost,
		FluentPort:      cfg.FluentPort,
		FluentTagPrefix: cfg.FluentTagPrefix,
	})
}

// OpenStores connects the backend selected by STORE_BACKEND.
func OpenStores(ctx context.Context, cfg config.Config, logger *slog.Logger) (Stores, error) {
	switch cfg.StoreBackend {
	case config.BackendFirestore:
		creds, source, err := cfg.FirebaseCredentialsJSON()
		if err != nil {
			return Stores{}, err
		}
		client, err := firestoreclient.New(ctx, cfg.FirebaseProjectID, firestoreclient.Credentials{JSON: creds, Source: source})
		if err != nil {
			return Stores{}, err
		}
		if err := firestoreclient.Ping(ctx, client, repository.FirestoreCollections...); err != nil {
			client.Close()
			return Stores{}, fmt.Errorf("firestore ping: %w", err)
		}
		logger.Info("connected to firestore", "project", cfg.FirebaseProjectID, "credentials", source)
		return Stores{
			Records: repository.NewFirestoreRecordRepository(client),
			Runs:    repository.NewFirestoreRunRepository(client),
			close:   func() { client.Close() },
		}, nil

	case config.BackendPostgres:
		pool, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return Stores{}, err
		}
		records := repository.NewPostgresRecordRepository(pool)
		runs := repository.NewPostgresRunRepository(pool)
		if err := records.EnsureSchema(ctx); err != nil {
			pool.Close()
			return Stores{}, err
		}
		if err := runs.EnsureSchema(ctx); err != nil {
			pool.Close()
			return Stores{}, err
		}
		logger.Info("connected to postgres")
		return Stores{Records: records, Runs: runs, close: pool.Close}, nil
	}
	return Stores{}, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}

// LaunchBrowser starts Chrome with the clearance cookie planted in every session.
func LaunchBrowser(cfg config.Config, logger *slog.Logger) (*browser.Launcher, error) {
	opts := browser.Options{
		Headless:  cfg.BrowserHeadless,
		ExecPath:  cfg.ChromePath,
		NoSandbox: cfg.ChromeNoSandbox,
	}
	if cfg.Clearance.Present() {
		for _, domain := range config.ClearanceDomains {
			opts.Cookies = append(opts.Cookies, browser.InjectedCookie{
				Name:   config.ClearanceCookieName,
				Value:  cfg.Clearance.Value,
				Domain: domain,
			})
		}
		logger.Info("clearance cookie loaded", "source", cfg.Clearance.Source)
	}
	return browser.NewLauncher(opts, logger)
}

// NewRegistry registers one adapter per provider. THAIS_MODE picks the
// calendar implementation.
func NewRegistry(cfg config.Config, logger *slog.Logger) (*collector.Registry, error) {
	sdOpts := securedirect.Options{}
	var thaisAdapter collector.Adapter = thais.NewAPIAdapter(logger)
	if cfg.ThaisMode == config.ThaisModeUI {
		thaisAdapter = thais.NewUIAdapter(0, logger)
	}
	return collector.NewRegistry(
		securedirect.NewNumberedAdapter(sdOpts, logger),
		securedirect.NewStockAdapter(sdOpts, logger),
		thaisAdapter,
	)
}

// NewExporters returns the downstream exporters enabled in cfg and a
// function releasing their connections.
func NewExporters(ctx context.Context, cfg config.Config, logger *slog.Logger) ([]collector.Exporter, func(), error) {
	var (
		exporters []collector.Exporter
		closers   []func()
	)
	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}

	if cfg.SheetsExport {
		creds, err := cfg.SheetsCredentialsJSON()
		if err != nil {
			return nil, nil, err
		}
		client, err := export.NewSheetsClient(ctx, creds)
		if err != nil {
			return nil, nil, err
		}
		exporters = append(exporters, export.NewSheetsExporter(client, cfg.GoogleSheetID, cfg.GoogleSheetTab, logger))
	}

	if cfg.AMQPURL != "" {
		conn, err := export.DialAMQP(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		closers = append(closers, func() {
			if err := conn.Close(); err != nil {
				logger.Warn("close amqp connection", "error", err)
			}
		})
		exporters = append(exporters, export.NewAMQPExporter(conn.Channel, cfg.AMQPExchange, logger))
	}
	return exporters, closeAll, nil
}

// Monitor is a fully wired collection service and the resources it holds.
type Monitor struct {
	Service *collector.Service
	Stores  Stores
	cleanup []func()
}

// Close releases the browser, exporters and stores in reverse order.
func (m *Monitor) Close() {
	for i := len(m.cleanup) - 1; i >= 0; i-- {
		m.cleanup[i]()
	}
}

// NewMonitor wires stores, browser, adapters, report and exporters.
func NewMonitor(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Monitor, error) {
	m := &Monitor{}
	fail := func(err error) (*Monitor, error) {
		m.Close()
		return nil, err
	}

	stores, err := OpenStores(ctx, cfg, logger)
	if err != nil {
		return fail(err)
	}
	m.Stores = stores
	m.cleanup = append(m.cleanup, stores.Close)

	exporters, closeExporters, err := NewExporters(ctx, cfg, logger)
	if err != nil {
		return fail(err)
	}
	m.cleanup = append(m.cleanup, closeExporters)

	registry, err := NewRegistry(cfg, logger)
	if err != nil {
		return fail(err)
	}

	launcher, err := LaunchBrowser(cfg, logger)
	if err != nil {
		return fail(err)
	}
	m.cleanup = append(m.cleanup, launcher.Close)

	orchestrator := collector.NewOrchestrator(cfg.Hotels, registry, launcher, cfg.LookaheadNights,
		collector.WithLogger(logger),
		collector.WithArtifacts(&collector.ArtifactWriter{Dir: cfg.ArtifactsDir, Enabled: cfg.DebugArtifacts}),
	)
	m.Service = collector.NewService(orchestrator, stores.Records, stores.Runs, report.NewHTMLReporter(cfg.HTMLReportPath), exporters, logger)
	return m, nil
}

// Fatal logs err and exits with status 1.
func Fatal(logger *slog.Logger, msg string, err error) {
	if logger == nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	} else {
		logger.Error(msg, "error", err)
	}
	os.Exit(1)
}
