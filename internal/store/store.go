// Package store persists an audit trail of cloak operations to PostgreSQL.
// Records carry only derived metadata (entity counts per type, sizes,
// durations), never original entity values or prompt text.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

const schema = `
CREATE TABLE IF NOT EXISTS cloak_events (
	id            BIGSERIAL PRIMARY KEY,
	request_id    TEXT        NOT NULL,
	path          TEXT        NOT NULL,
	entity_counts JSONB       NOT NULL DEFAULT '{}',
	total         INTEGER     NOT NULL,
	duration_ms   DOUBLE PRECISION NOT NULL,
	streamed      BOOLEAN     NOT NULL DEFAULT FALSE,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS cloak_events_created_at_idx ON cloak_events (created_at DESC);
`

// Store handles audit event persistence with PostgreSQL
type Store struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// Config contains database configuration
type Config struct {
	DatabaseURL     string        `yaml:"database_url" mapstructure:"database_url"`
	MaxOpenConns    int           `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
}

// Event is one audited cloak operation.
type Event struct {
	ID           int64           `db:"id" json:"id"`
	RequestID    string          `db:"request_id" json:"request_id"`
	Path         string          `db:"path" json:"path"`
	EntityCounts json.RawMessage `db:"entity_counts" json:"entity_counts"`
	Total        int             `db:"total" json:"total"`
	DurationMS   float64         `db:"duration_ms" json:"duration_ms"`
	Streamed     bool            `db:"streamed" json:"streamed"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}

// New creates an audit store and ensures the schema exists.
func New(config *Config, logger *zap.Logger) (*Store, error) {
	db, err := sqlx.Connect("postgres", config.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)

	store := &Store{db: db, logger: logger}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("failed to ensure audit schema: %w", err)
	}

	logger.Info("Audit store initialized",
		zap.String("database_url", maskDatabaseURL(config.DatabaseURL)),
		zap.Int("max_open_conns", config.MaxOpenConns))

	return store, nil
}

// Record inserts one cloak event.
func (s *Store) Record(ctx context.Context, ev *Event) error {
	query := `
		INSERT INTO cloak_events (request_id, path, entity_counts, total, duration_ms, streamed)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	counts := ev.EntityCounts
	if len(counts) == 0 {
		counts = json.RawMessage("{}")
	}

	err := s.db.QueryRowContext(ctx, query,
		ev.RequestID, ev.Path, counts, ev.Total, ev.DurationMS, ev.Streamed,
	).Scan(&ev.ID, &ev.CreatedAt)
	if err != nil {
		s.logger.Error("Failed to record cloak event",
			zap.Error(err),
			zap.String("request_id", ev.RequestID))
		return fmt.Errorf("failed to record cloak event: %w", err)
	}

	s.logger.Debug("Cloak event recorded",
		zap.Int64("id", ev.ID),
		zap.String("request_id", ev.RequestID),
		zap.Int("total", ev.Total))
	return nil
}

// Recent returns up to limit events, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}
	var events []Event
	query := `SELECT * FROM cloak_events ORDER BY created_at DESC LIMIT $1`
	if err := s.db.SelectContext(ctx, &events, query, limit); err != nil {
		return nil, fmt.Errorf("failed to load recent events: %w", err)
	}
	return events, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// maskDatabaseURL masks credentials in a connection URL for logging
func maskDatabaseURL(url string) string {
	at := strings.LastIndex(url, "@")
	if at < 0 {
		return url
	}
	scheme := strings.Index(url, "://")
	if scheme < 0 {
		return url
	}
	return url[:scheme+3] + "***" + url[at:]
}
