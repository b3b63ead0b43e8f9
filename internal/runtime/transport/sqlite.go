package transport

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const (
	SQLiteName = "sqlite"

	// DefaultSQLiteFile is used when SQLiteFile is empty.
	DefaultSQLiteFile = "corert_events.db"
)

var sqliteDialect = dialect{
	name: "sqlite",
	schema: `
	CREATE TABLE IF NOT EXISTS corert_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		uuid TEXT NOT NULL UNIQUE,
		topic TEXT NOT NULL,
		event TEXT NOT NULL,
		runtime_id TEXT NOT NULL,
		payload TEXT NOT NULL,
		metadata TEXT,
		created_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_corert_events_topic ON corert_events(topic, id);`,
	insert: `INSERT INTO corert_events (uuid, topic, event, runtime_id, payload, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
	list: `SELECT uuid, topic, event, runtime_id, payload, metadata, created_at
		FROM corert_events WHERE topic = ? ORDER BY id LIMIT ?`,
}

// NewSQLiteJournal opens (creating if needed) the SQLite event journal at
// path. ":memory:" keeps it in memory for the life of the journal.
func NewSQLiteJournal(ctx context.Context, path string, logger watermill.LoggerAdapter) (*SQLJournal, error) {
	if path == "" {
		path = DefaultSQLiteFile
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	// one connection keeps ":memory:" databases alive and serializes writers
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	j, err := newSQLJournal(ctx, db, sqliteDialect, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	return j, nil
}

func sqliteTransport(ctx context.Context, conf Config, logger watermill.LoggerAdapter) (Transport, error) {
	j, err := NewSQLiteJournal(ctx, conf.GetSQLiteFile(), logger)
	if err != nil {
		return Transport{}, err
	}
	return Transport{Publisher: j}, nil
}
