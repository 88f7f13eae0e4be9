package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sylvlondon/hotelmonitoring/internal/app"
	"github.com/sylvlondon/hotelmonitoring/internal/platform/config"
	apirouter "github.com/sylvlondon/hotelmonitoring/internal/platform/http"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load(".env.local", ".env")

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load: %v\n", err)
		os.Exit(1)
	}

	logger, logCloser, err := app.NewLogger(cfg)
	if err != nil {
		app.Fatal(nil, "logger init", err)
	}
	defer logCloser.Close()

	gin.SetMode(cfg.GinMode)

	monitor, err := app.NewMonitor(ctx, cfg, logger)
	if err != nil {
		app.Fatal(logger, "monitor init", err)
	}
	defer monitor.Close()

	router := apirouter.NewRouter(monitor.Stores.Runs, monitor.Stores.Records, monitor.Service, cfg.AllowedOrigins, logger)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.Fatal(logger, "server error", err)
		}
	}()
	logger.Info("server listening", "port", cfg.Port, "hotels", len(cfg.Hotels))

	<-ctx.Done()
	stop()

	if runID, ok := monitor.Service.Jobs().Active(); ok {
		logger.Info("cancelling active run", "run_id", runID)
		monitor.Service.Cancel(runID)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	logger.Info("server exited")
}
