package http

import (
	"context"
	"encoding/csv"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sylvlondon/hotelmonitoring/internal/business/collector"
	"github.com/sylvlondon/hotelmonitoring/internal/report"
	"github.com/sylvlondon/hotelmonitoring/internal/repository"
	"github.com/sylvlondon/hotelmonitoring/pkg/model"
)

// RunReader loads stored run summaries.
type RunReader interface {
	GetRun(ctx context.Context, runID string) (model.RunSummary, error)
	ListRuns(ctx context.Context, limit int) ([]model.RunSummary, error)
}

// RecordReader loads one run's records.
type RecordReader interface {
	RecordsByRunID(ctx context.Context, runID string) ([]model.SheetRecord, error)
}

// RunStarter triggers asynchronous collection runs.
type RunStarter interface {
	Start(ctx context.Context) (string, error)
}

// Router wires HTTP handlers.
type Router struct {
	runs    RunReader
	records RecordReader
	starter RunStarter
	origins string
	logger  *slog.Logger
}

func NewRouter(runs RunReader, records RecordReader, starter RunStarter, allowedOrigins string, logger *slog.Logger) *gin.Engine {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Router{
		runs:    runs,
		records: records,
		starter: starter,
		origins: allowedOrigins,
		logger:  logger.With("component", "http"),
	}

	router := gin.New()
	router.Use(r.requestLogger(), gin.Recovery(), r.corsMiddleware())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	{
		api.GET("/runs", r.listRuns)
		api.POST("/runs", r.startRun)
		api.GET("/runs/:runId", r.getRun)
		api.GET("/runs/:runId/records", r.listRecords)
		api.GET("/runs/:runId/records/export", r.exportRecords)
		api.GET("/runs/:runId/report", r.getReport)
	}

	return router
}

func (r *Router) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		r.logger.Info("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

func (r *Router) corsMiddleware() gin.HandlerFunc {
	origins := strings.Split(r.origins, ",")
	trimmed := make([]string, 0, len(origins))
	for _, o := range origins {
		if t := strings.TrimSpace(o); t != "" {
			trimmed = append(trimmed, t)
		}
	}
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		allowed := "*"
		for _, o := range trimmed {
			if o == "*" || o == origin {
				allowed = origin
				break
			}
		}
		c.Header("Access-Control-Allow-Origin", allowed)
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		c.Next()
	}
}

func (r *Router) listRuns(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	runs, err := r.runs.ListRuns(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if runs == nil {
		runs = []model.RunSummary{}
	}
	c.JSON(http.StatusOK, gin.H{"items": runs})
}

func (r *Router) startRun(c *gin.Context) {
	runID, err := r.starter.Start(c.Request.Context())
	if errors.Is(err, collector.ErrRunInProgress) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"runId":   runID,
		"message": "Run started. Check status with GET /api/runs/" + runID,
	})
}

func (r *Router) getRun(c *gin.Context) {
	run, err := r.runs.GetRun(c.Request.Context(), c.Param("runId"))
	if errors.Is(err, repository.ErrRunNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, run)
}

func (r *Router) loadRecords(c *gin.Context) ([]model.SheetRecord, bool) {
	records, err := r.records.RecordsByRunID(c.Request.Context(), c.Param("runId"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil, false
	}
	if len(records) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no records for run"})
		return nil, false
	}
	return records, true
}

func (r *Router) listRecords(c *gin.Context) {
	records, ok := r.loadRecords(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": records, "total": len(records)})
}

func (r *Router) exportRecords(c *gin.Context) {
	records, ok := r.loadRecords(c)
	if !ok {
		return
	}
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment; filename=records-"+c.Param("runId")+".csv")

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	if err := writer.Write(model.SheetColumns); err != nil {
		c.Status(http.StatusInternalServerError)
		return
	}
	for _, rec := range records {
		if err := writer.Write(rec.Row()); err != nil {
			c.Status(http.StatusInternalServerError)
			return
		}
	}
}

func (r *Router) getReport(c *gin.Context) {
	records, ok := r.loadRecords(c)
	if !ok {
		return
	}
	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := report.Write(c.Writer, records, c.Param("runId")); err != nil {
		r.logger.Error("render report", "run_id", c.Param("runId"), "error", err)
		c.Status(http.StatusInternalServerError)
	}
}
