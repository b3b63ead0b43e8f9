package transport

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/drblury/corert/internal/runtime/jsoncodec"
)

// dialect captures the SQL differences between the journal backends.
type dialect struct {
	name   string
	schema string
	insert string
	list   string
}

// SQLJournal is a write-ahead record of lifecycle events in a SQL table. It
// implements message.Publisher.
type SQLJournal struct {
	db      *sql.DB
	dialect dialect
	logger  watermill.LoggerAdapter

	mu     sync.RWMutex
	closed bool
}

func newSQLJournal(ctx context.Context, db *sql.DB, d dialect, logger watermill.LoggerAdapter) (*SQLJournal, error) {
	if _, err := db.ExecContext(ctx, d.schema); err != nil {
		return nil, fmt.Errorf("%s: failed to initialize schema: %w", d.name, err)
	}
	return &SQLJournal{db: db, dialect: d, logger: logger}, nil
}

func (j *SQLJournal) Publish(topic string, messages ...*message.Message) error {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return fmt.Errorf("%s journal is closed", j.dialect.name)
	}

	ctx := context.Background()
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin: %w", j.dialect.name, err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now()
	for _, msg := range messages {
		rec, err := newRecord(topic, msg, now)
		if err != nil {
			return err
		}
		md, err := jsoncodec.Marshal(rec.Metadata)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, j.dialect.insert,
			rec.UUID, rec.Topic, rec.Event, rec.RuntimeID, string(rec.Payload), string(md), rec.CreatedAt,
		); err != nil {
			return fmt.Errorf("%s: insert event %s: %w", j.dialect.name, rec.UUID, err)
		}
	}

	return tx.Commit()
}

// Events returns up to limit journaled records for topic, oldest first.
func (j *SQLJournal) Events(ctx context.Context, topic string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := j.db.QueryContext(ctx, j.dialect.list, topic, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: list events: %w", j.dialect.name, err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			rec     Record
			payload string
			md      string
		)
		if err := rows.Scan(&rec.UUID, &rec.Topic, &rec.Event, &rec.RuntimeID, &payload, &md, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Payload = []byte(payload)
		if md != "" {
			if err := jsoncodec.Unmarshal([]byte(md), &rec.Metadata); err != nil {
				return nil, err
			}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (j *SQLJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return nil
	}
	j.closed = true
	return j.db.Close()
}
