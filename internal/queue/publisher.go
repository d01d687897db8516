// Package queue publishes run completion reports to RabbitMQ so
// downstream analytics can react to fresh data.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/stream-insights/twitch-etl-go/internal/config"
	"github.com/stream-insights/twitch-etl-go/internal/pipeline"
	"github.com/stream-insights/twitch-etl-go/pkg/logger"
)

// ReportPublisher delivers run reports through a confirmed channel.
type ReportPublisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	config  config.RabbitMQConfig
	mu      sync.RWMutex
}

// NewReportPublisher connects to the broker, declares the topology, and
// enables publisher confirms.
func NewReportPublisher(cfg config.RabbitMQConfig) (*ReportPublisher, error) {
	rp := &ReportPublisher{config: cfg}

	if err := rp.connect(); err != nil {
		return nil, err
	}

	return rp, nil
}

func (rp *ReportPublisher) connect() error {
	rp.mu.Lock()
	defer rp.mu.Unlock()

	connURL := fmt.Sprintf("amqp://%s:%s@%s:%d/",
		rp.config.User, rp.config.Password, rp.config.Host, rp.config.Port)

	conn, err := amqp.Dial(connURL)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}

	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("failed to enable publisher confirms: %w", err)
	}

	if err := ch.ExchangeDeclare(
		rp.config.Exchange, // name
		"topic",            // type
		true,               // durable
		false,              // auto-deleted
		false,              // internal
		false,              // no-wait
		nil,                // arguments
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	_, err = ch.QueueDeclare(
		rp.config.Queue, // name
		true,            // durable
		false,           // delete when unused
		false,           // exclusive
		false,           // no-wait
		amqp.Table{
			"x-message-ttl": 86400000, // 24 hours
		},
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	if err := ch.QueueBind(
		rp.config.Queue,
		rp.config.RoutingKey,
		rp.config.Exchange,
		false,
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("failed to bind queue: %w", err)
	}

	rp.conn = conn
	rp.channel = ch

	logger.Log.Info("Connected to RabbitMQ",
		zap.String("exchange", rp.config.Exchange),
		zap.String("queue", rp.config.Queue),
	)

	return nil
}

// PublishReport sends the run report as JSON and waits for the broker
// to confirm it.
func (rp *ReportPublisher) PublishReport(ctx context.Context, report *pipeline.RunReport) error {
	rp.mu.RLock()
	defer rp.mu.RUnlock()

	if rp.channel == nil {
		return fmt.Errorf("channel is not initialized")
	}

	body, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	confirms := rp.channel.NotifyPublish(make(chan amqp.Confirmation, 1))

	err = rp.channel.PublishWithContext(
		ctx,
		rp.config.Exchange,
		rp.config.RoutingKey,
		true,  // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			MessageId:    report.RunID,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	select {
	case confirm := <-confirms:
		if !confirm.Ack {
			return fmt.Errorf("message was not acknowledged by broker")
		}
	case <-time.After(5 * time.Second):
		return fmt.Errorf("timeout waiting for publish confirmation")
	case <-ctx.Done():
		return ctx.Err()
	}

	logger.Log.Debug("Published run report to RabbitMQ",
		zap.String("runId", report.RunID),
		zap.String("routingKey", rp.config.RoutingKey),
	)

	return nil
}

// Close shuts down the channel and connection.
func (rp *ReportPublisher) Close() error {
	rp.mu.Lock()
	defer rp.mu.Unlock()

	var errs []error
	if rp.channel != nil {
		if err := rp.channel.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if rp.conn != nil {
		if err := rp.conn.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing publisher: %v", errs)
	}

	logger.Log.Info("RabbitMQ publisher closed")
	return nil
}

// IsHealthy reports whether the connection is still usable.
func (rp *ReportPublisher) IsHealthy() bool {
	rp.mu.RLock()
	defer rp.mu.RUnlock()

	return rp.conn != nil && !rp.conn.IsClosed() && rp.channel != nil
}
