// Package storage is the durable local store: the pending-operation queue,
// per-day review counters, and an offline snapshot of the decks. Everything
// here is best-effort durability; callers log and continue on failure.
package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/d-lef/flashcard-webapp/internal/domain"
	_ "modernc.org/sqlite" // registers the sqlite driver
)

// DB wraps the local sqlite database.
type DB struct {
	conn *sql.DB
}

// Open creates the connection and ensures the schema is up to date.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open local database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("connect local database: %w", err)
	}
	if _, err := conn.Exec(schema); err != nil {
		return nil, fmt.Errorf("apply local schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// AppendOperation adds one entry to the tail of the pending queue.
func (db *DB) AppendOperation(op domain.PendingOperation) error {
	_, err := db.conn.Exec(`
		INSERT INTO pending_operations (type, payload, enqueued_at)
		VALUES (?, ?, ?)
	`, string(op.Type), string(op.Payload), op.EnqueuedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("append %s operation: %w", op.Type, err)
	}
	return nil
}

// LoadQueue returns all pending operations in enqueue order.
func (db *DB) LoadQueue() ([]domain.PendingOperation, error) {
	rows, err := db.conn.Query(`
		SELECT type, payload, enqueued_at FROM pending_operations ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("load pending queue: %w", err)
	}
	defer rows.Close()

	var ops []domain.PendingOperation
	for rows.Next() {
		var opType, payload, enqueuedAt string
		if err := rows.Scan(&opType, &payload, &enqueuedAt); err != nil {
			return nil, fmt.Errorf("scan pending operation: %w", err)
		}
		op := domain.PendingOperation{
			Type:    domain.OpType(opType),
			Payload: json.RawMessage(payload),
		}
		if t, err := time.Parse(time.RFC3339Nano, enqueuedAt); err == nil {
			op.EnqueuedAt = t
		}
		ops = append(ops, op)
	}
	return ops, rows.Err()
}

// ReplaceQueue atomically rewrites the persisted queue to match ops.
func (db *DB) ReplaceQueue(ops []domain.PendingOperation) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin queue rewrite: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM pending_operations`); err != nil {
		return fmt.Errorf("clear pending queue: %w", err)
	}
	for _, op := range ops {
		if _, err := tx.Exec(`
			INSERT INTO pending_operations (type, payload, enqueued_at)
			VALUES (?, ?, ?)
		`, string(op.Type), string(op.Payload), op.EnqueuedAt.UTC().Format(time.RFC3339Nano)); err != nil {
			return fmt.Errorf("rewrite %s operation: %w", op.Type, err)
		}
	}
	return tx.Commit()
}

// IncrementDayStat bumps today's counters for one answered card. The
// completion flag is deliberately left alone.
func (db *DB) IncrementDayStat(day string, correct bool) error {
	correctInc, lapseInc := 0, 1
	if correct {
		correctInc, lapseInc = 1, 0
	}
	_, err := db.conn.Exec(`
		INSERT INTO local_day_stats (day, reviews, correct, lapses)
		VALUES (?, 1, ?, ?)
		ON CONFLICT(day) DO UPDATE SET
			reviews = reviews + 1,
			correct = correct + excluded.correct,
			lapses = lapses + excluded.lapses
	`, day, correctInc, lapseInc)
	if err != nil {
		return fmt.Errorf("increment day stat %s: %w", day, err)
	}
	return nil
}

// SetDayCompleted records the end-of-session evaluation for a day without
// touching the counters.
func (db *DB) SetDayCompleted(day string, completed bool) error {
	v := 0
	if completed {
		v = 1
	}
	_, err := db.conn.Exec(`
		INSERT INTO local_day_stats (day, all_due_completed)
		VALUES (?, ?)
		ON CONFLICT(day) DO UPDATE SET all_due_completed = excluded.all_due_completed
	`, day, v)
	if err != nil {
		return fmt.Errorf("set day %s completed: %w", day, err)
	}
	return nil
}

// DayStats returns the locally tracked stats within [start, end] inclusive.
func (db *DB) DayStats(start, end string) ([]domain.DayStat, error) {
	rows, err := db.conn.Query(`
		SELECT day, reviews, correct, lapses, all_due_completed
		FROM local_day_stats
		WHERE day >= ? AND day <= ?
		ORDER BY day
	`, start, end)
	if err != nil {
		return nil, fmt.Errorf("load local day stats: %w", err)
	}
	defer rows.Close()

	var stats []domain.DayStat
	for rows.Next() {
		var s domain.DayStat
		var completed sql.NullInt64
		if err := rows.Scan(&s.Day, &s.Reviews, &s.Correct, &s.Lapses, &completed); err != nil {
			return nil, fmt.Errorf("scan local day stat: %w", err)
		}
		if completed.Valid {
			v := completed.Int64 != 0
			s.AllDueCompleted = &v
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// SaveDeck snapshots a deck (including dirty flags) for offline reads.
func (db *DB) SaveDeck(deck domain.Deck) error {
	payload, err := json.Marshal(deck)
	if err != nil {
		return fmt.Errorf("marshal deck %s: %w", deck.ID, err)
	}
	_, err = db.conn.Exec(`
		INSERT INTO deck_cache (id, payload, saved_at)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET payload = excluded.payload, saved_at = excluded.saved_at
	`, deck.ID, string(payload), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("cache deck %s: %w", deck.ID, err)
	}
	return nil
}

// DeleteDeck removes a deck snapshot.
func (db *DB) DeleteDeck(deckID string) error {
	if _, err := db.conn.Exec(`DELETE FROM deck_cache WHERE id = ?`, deckID); err != nil {
		return fmt.Errorf("drop cached deck %s: %w", deckID, err)
	}
	return nil
}

// LoadDecks returns every cached deck, oldest snapshot first.
func (db *DB) LoadDecks() ([]domain.Deck, error) {
	rows, err := db.conn.Query(`SELECT payload FROM deck_cache ORDER BY saved_at`)
	if err != nil {
		return nil, fmt.Errorf("load cached decks: %w", err)
	}
	defer rows.Close()

	var decks []domain.Deck
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan cached deck: %w", err)
		}
		var deck domain.Deck
		if err := json.Unmarshal([]byte(payload), &deck); err != nil {
			return nil, fmt.Errorf("decode cached deck: %w", err)
		}
		decks = append(decks, deck)
	}
	return decks, rows.Err()
}
