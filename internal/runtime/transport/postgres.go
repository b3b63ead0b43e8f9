package transport

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	_ "github.com/lib/pq" // PostgreSQL driver
)

const PostgresName = "postgres"

var postgresDialect = dialect{
	name: "postgres",
	schema: `
	CREATE TABLE IF NOT EXISTS corert_events (
		id BIGSERIAL PRIMARY KEY,
		uuid TEXT NOT NULL UNIQUE,
		topic TEXT NOT NULL,
		event TEXT NOT NULL,
		runtime_id TEXT NOT NULL,
		payload TEXT NOT NULL,
		metadata TEXT,
		created_at TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_corert_events_topic ON corert_events(topic, id);`,
	insert: `INSERT INTO corert_events (uuid, topic, event, runtime_id, payload, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
	list: `SELECT uuid, topic, event, runtime_id, payload, metadata, created_at
		FROM corert_events WHERE topic = $1 ORDER BY id LIMIT $2`,
}

// NewPostgresJournal connects to url and ensures the event table exists.
func NewPostgresJournal(ctx context.Context, url string, logger watermill.LoggerAdapter) (*SQLJournal, error) {
	if url == "" {
		return nil, fmt.Errorf("postgres: URL is required")
	}

	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("failed to open PostgreSQL connection: %w", err)
	}
	db.SetMaxOpenConns(4)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach PostgreSQL: %w", err)
	}

	j, err := newSQLJournal(ctx, db, postgresDialect, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	return j, nil
}

func postgresTransport(ctx context.Context, conf Config, logger watermill.LoggerAdapter) (Transport, error) {
	j, err := NewPostgresJournal(ctx, conf.GetPostgresURL(), logger)
	if err != nil {
		return Transport{}, err
	}
	return Transport{Publisher: j}, nil
}
