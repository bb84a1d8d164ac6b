// Package ingest feeds documents from a Kafka topic into the search server
// and publishes duplicate-removal notifications. Unlike a generic consumer,
// the pipeline is typed end to end: the reader loop decodes DocumentEvent
// payloads directly and routes them through AddDocument's validation.
package ingest

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/avelichko/searchserver/internal/search"
	"github.com/avelichko/searchserver/pkg/config"
	"github.com/avelichko/searchserver/pkg/metrics"
	"github.com/avelichko/searchserver/pkg/postgres"
)

// DocumentEvent is the JSON payload of one document-ingest message.
type DocumentEvent struct {
	ID      int    `json:"id"`
	Text    string `json:"text"`
	Status  int    `json:"status"`
	Ratings []int  `json:"ratings"`
}

// Consumer reads document events and indexes them. docs and m are optional:
// a nil document store skips outcome write-back, nil metrics skip counting.
type Consumer struct {
	reader  *kafka.Reader
	server  *search.Server
	docs    *postgres.DocumentStore
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewConsumer creates a Consumer for the configured document-ingest topic.
func NewConsumer(cfg config.KafkaConfig, server *search.Server, docs *postgres.DocumentStore, m *metrics.Metrics) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.Topics.DocumentIngest,
		GroupID:     cfg.ConsumerGroup,
		MinBytes:    1e3,
		MaxBytes:    10e6,
		StartOffset: kafka.LastOffset,
	})
	return &Consumer{
		reader:  reader,
		server:  server,
		docs:    docs,
		metrics: m,
		logger:  slog.Default().With("component", "ingest", "topic", cfg.Topics.DocumentIngest),
	}
}

// Start enters the consume loop until ctx is cancelled. Malformed payloads
// are logged and committed; rejected documents are logged, marked failed,
// and committed. Either way one bad message never wedges the partition.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("document ingest started")
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("document ingest stopping", "reason", ctx.Err())
			return c.reader.Close()
		default:
		}

		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("failed to fetch message", "error", err)
			continue
		}
		c.index(ctx, msg)
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("failed to commit message",
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
		}
	}
}

// Close closes the underlying Kafka reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}

func (c *Consumer) index(ctx context.Context, msg kafka.Message) {
	var event DocumentEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		c.logger.Error("failed to decode document event",
			"error", err,
			"key", string(msg.Key),
			"offset", msg.Offset,
		)
		return
	}
	if !search.ValidStatus(event.Status) {
		c.logger.Error("document event carries unknown status",
			"doc_id", event.ID,
			"status", event.Status,
		)
		c.markFailed(ctx, event.ID)
		return
	}
	if err := c.server.AddDocument(event.ID, event.Text, search.DocumentStatus(event.Status), event.Ratings); err != nil {
		c.logger.Error("failed to index document", "doc_id", event.ID, "error", err)
		c.markFailed(ctx, event.ID)
		return
	}
	if c.metrics != nil {
		c.metrics.DocsIndexedTotal.Inc()
	}
	if c.docs != nil {
		c.docs.MarkIndexed(ctx, event.ID)
	}
	c.logger.Info("document indexed", "doc_id", event.ID)
}

func (c *Consumer) markFailed(ctx context.Context, id int) {
	if c.docs != nil {
		c.docs.MarkFailed(ctx, id)
	}
}
