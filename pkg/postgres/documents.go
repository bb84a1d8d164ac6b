// Package postgres persists the document corpus: rows are streamed into the
// index at startup, and ingest outcomes are written back per document.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/avelichko/searchserver/pkg/config"
)

// StoredDocument is one row of the document table.
type StoredDocument struct {
	ID      int
	Text    string
	Status  int
	Ratings []int
}

// DocumentStore reads and annotates document rows in the configured table.
type DocumentStore struct {
	db     *sql.DB
	table  string
	logger *slog.Logger
}

// Open connects to the document table and verifies the connection with a
// ping.
func Open(cfg config.PostgresConfig) (*DocumentStore, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening postgres connection: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return &DocumentStore{
		db:     db,
		table:  cfg.Table,
		logger: slog.Default().With("component", "document-store"),
	}, nil
}

// Close closes the underlying pool.
func (s *DocumentStore) Close() error {
	return s.db.Close()
}

// LoadAll streams every document row to fn in ascending id order, the same
// order in which the index keeps its ids. Rows fn rejects are logged and skipped so
// one bad row does not abort the preload; the count of accepted rows is
// returned.
func (s *DocumentStore) LoadAll(ctx context.Context, fn func(doc StoredDocument) error) (int, error) {
	query := fmt.Sprintf(
		`SELECT id, text, status, ratings FROM %s ORDER BY id`,
		pq.QuoteIdentifier(s.table),
	)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	loaded := 0
	for rows.Next() {
		var doc StoredDocument
		var ratings pq.Int64Array
		if err := rows.Scan(&doc.ID, &doc.Text, &doc.Status, &ratings); err != nil {
			return loaded, fmt.Errorf("scanning document row: %w", err)
		}
		doc.Ratings = make([]int, len(ratings))
		for i, r := range ratings {
			doc.Ratings[i] = int(r)
		}
		if err := fn(doc); err != nil {
			s.logger.Warn("skipping document", "doc_id", doc.ID, "error", err)
			continue
		}
		loaded++
	}
	if err := rows.Err(); err != nil {
		return loaded, fmt.Errorf("iterating document rows: %w", err)
	}
	return loaded, nil
}

// MarkIndexed records that a document reached the index.
func (s *DocumentStore) MarkIndexed(ctx context.Context, id int) {
	s.markStatus(ctx, id, "indexed")
}

// MarkFailed records that a document was rejected by the index.
func (s *DocumentStore) MarkFailed(ctx context.Context, id int) {
	s.markStatus(ctx, id, "failed")
}

func (s *DocumentStore) markStatus(ctx context.Context, id int, status string) {
	query := fmt.Sprintf(
		`UPDATE %s SET index_status = $1, indexed_at = NOW() WHERE id = $2`,
		pq.QuoteIdentifier(s.table),
	)
	if _, err := s.db.ExecContext(ctx, query, status, id); err != nil {
		s.logger.Error("failed to record indexing outcome",
			"doc_id", id,
			"status", status,
			"error", err,
		)
	}
}
