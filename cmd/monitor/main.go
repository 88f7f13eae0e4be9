// Command monitor performs one collection run and exits non-zero when the
// run or any downstream step fails.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sylvlondon/hotelmonitoring/internal/app"
	"github.com/sylvlondon/hotelmonitoring/internal/platform/config"
	"github.com/sylvlondon/hotelmonitoring/pkg/model"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load(".env.local", ".env")

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load: %v\n", err)
		return 1
	}

	logger, logCloser, err := app.NewLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init: %v\n", err)
		return 1
	}
	defer logCloser.Close()

	monitor, err := app.NewMonitor(ctx, cfg, logger)
	if err != nil {
		logger.Error("monitor init", "error", err)
		return 1
	}
	defer monitor.Close()

	summary, err := monitor.Service.RunOnce(ctx)
	if err != nil {
		logger.Error("run failed", "run_id", summary.RunID, "status", summary.Status, "error", err)
		return 1
	}

	logger.Info("run finished",
		"run_id", summary.RunID,
		"status", summary.Status,
		"total", summary.Stats.Total,
		"ok", summary.Stats.OK,
		"no_availability", summary.Stats.NoAvailability,
		"errors", summary.Stats.Errors,
		"report", summary.ReportPath,
	)
	if summary.Status != model.RunStatusSuccess {
		return 1
	}
	return 0
}
