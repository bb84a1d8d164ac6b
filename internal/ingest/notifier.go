package ingest

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/avelichko/searchserver/pkg/config"
)

// DuplicateRemovedEvent is published for every document dropped by duplicate
// detection.
type DuplicateRemovedEvent struct {
	DocumentID int `json:"document_id"`
}

// Notifier publishes duplicate-removal events. A nil Notifier is valid and
// publishes nothing, so callers need no broker-configured branch.
type Notifier struct {
	writer *kafka.Writer
	logger *slog.Logger
}

// NewNotifier creates a Notifier for the configured duplicate-removed topic.
func NewNotifier(cfg config.KafkaConfig) *Notifier {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topics.DuplicateRemoved,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		MaxAttempts:  3,
		RequiredAcks: kafka.RequireAll,
	}
	return &Notifier{
		writer: writer,
		logger: slog.Default().With("component", "dedup-notifier", "topic", cfg.Topics.DuplicateRemoved),
	}
}

// DuplicatesRemoved publishes one event per removed id in a single batched
// write, keyed by document id so notifications for one document stay on one
// partition.
func (n *Notifier) DuplicatesRemoved(ctx context.Context, removed []int) {
	if n == nil || len(removed) == 0 {
		return
	}
	messages := make([]kafka.Message, 0, len(removed))
	for _, id := range removed {
		value, err := json.Marshal(DuplicateRemovedEvent{DocumentID: id})
		if err != nil {
			n.logger.Error("failed to encode duplicate notification", "doc_id", id, "error", err)
			continue
		}
		messages = append(messages, kafka.Message{
			Key:   []byte(strconv.Itoa(id)),
			Value: value,
		})
	}
	if err := n.writer.WriteMessages(ctx, messages...); err != nil {
		n.logger.Error("failed to publish duplicate notifications",
			"count", len(messages),
			"error", err,
		)
		return
	}
	n.logger.Debug("duplicate notifications published", "count", len(messages))
}

// Close flushes pending writes and closes the underlying Kafka writer.
func (n *Notifier) Close() error {
	if n == nil {
		return nil
	}
	return n.writer.Close()
}
