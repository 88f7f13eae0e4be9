package export

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sylvlondon/hotelmonitoring/pkg/model"
)

// RunCompletedKey is the routing key of finished-run events.
const RunCompletedKey = "run.completed"

// Publisher is the channel operation used to emit events.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// RunCompletedEvent is the JSON body published after each run.
type RunCompletedEvent struct {
	RunID       string              `json:"runId"`
	Status      string              `json:"status"`
	Stats       model.RunStats      `json:"stats"`
	StartedAt   time.Time           `json:"startedAt"`
	ReportPath  string              `json:"reportPath,omitempty"`
	Hotels      []string            `json:"hotels"`
	ErrorSample []model.ErrorSample `json:"errorsSample,omitempty"`
}

// AMQPExporter announces finished runs on a topic exchange.
type AMQPExporter struct {
	pub      Publisher
	exchange string
	logger   *slog.Logger
}

func NewAMQPExporter(pub Publisher, exchange string, logger *slog.Logger) *AMQPExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &AMQPExporter{pub: pub, exchange: exchange, logger: logger.With("component", "amqp")}
}

func (e *AMQPExporter) Name() string { return "amqp" }

func (e *AMQPExporter) Export(ctx context.Context, run model.RunSummary, records []model.SheetRecord) error {
	event := RunCompletedEvent{
		RunID:       run.RunID,
		Status:      run.Status,
		Stats:       run.Stats,
		StartedAt:   run.StartedAt,
		ReportPath:  run.ReportPath,
		Hotels:      hotelIDs(records),
		ErrorSample: run.ErrorSample,
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode run event: %w", err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		MessageId:    run.RunID,
	}

	publishCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := e.pub.PublishWithContext(publishCtx, e.exchange, RunCompletedKey, false, false, msg); err != nil {
		return fmt.Errorf("publish %s: %w", RunCompletedKey, err)
	}
	e.logger.Info("run event published", "run_id", run.RunID, "exchange", e.exchange)
	return nil
}

func hotelIDs(records []model.SheetRecord) []string {
	seen := make(map[string]bool)
	ids := []string{}
	for _, r := range records {
		if !seen[r.HotelID] {
			seen[r.HotelID] = true
			ids = append(ids, r.HotelID)
		}
	}
	return ids
}

// AMQPConnection owns the broker connection and channel behind an AMQPExporter.
type AMQPConnection struct {
	conn    *amqp.Connection
	Channel *amqp.Channel
}

// DialAMQP connects and declares a durable topic exchange.
func DialAMQP(url, exchange string) (*AMQPConnection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return &AMQPConnection{conn: conn, Channel: ch}, nil
}

func (c *AMQPConnection) Close() error {
	if err := c.Channel.Close(); err != nil {
		_ = c.conn.Close()
		return err
	}
	return c.conn.Close()
}
