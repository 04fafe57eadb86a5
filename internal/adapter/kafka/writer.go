// Package kafka publishes alert lifecycle events so downstream consumers
// (archival, notification fan-out) get the same stream the WebSocket clients
// see.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/nws-alert-relay/internal/manager"
)

// Writer produces alert lifecycle events to a Kafka topic.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the alert event topic.
func NewWriter(brokers []string, topic string, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger.With("component", "kafka")}
}

// Run consumes the manager's event stream and publishes each event until the
// context ends. Publish failures are logged and skipped; the WebSocket path
// stays authoritative.
func (w *Writer) Run(ctx context.Context, events <-chan manager.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			if err := w.Publish(ctx, ev); err != nil && ctx.Err() == nil {
				w.logger.Error("publish alert event failed",
					"type", ev.Type, "product_id", ev.Alert.ProductID, "error", err)
			}
		}
	}
}

// Publish writes one lifecycle event, keyed by product id so per-alert
// ordering survives partitioning.
func (w *Writer) Publish(ctx context.Context, ev manager.Event) error {
	msg, err := serializeToMessage(ev)
	if err != nil {
		return err
	}
	return w.writer.WriteMessages(ctx, msg)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

func serializeToMessage(ev manager.Event) (kafkago.Message, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize alert event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(ev.Alert.ProductID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(ev.Type)},
			{Key: "published_at", Value: []byte(time.Now().UTC().Format(time.RFC3339))},
		},
	}, nil
}
