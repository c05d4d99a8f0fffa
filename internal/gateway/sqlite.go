package gateway

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/d-lef/flashcard-webapp/internal/domain"
	_ "modernc.org/sqlite" // registers the sqlite driver
)

const remoteSchema = `
CREATE TABLE IF NOT EXISTS decks (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS cards (
    id TEXT PRIMARY KEY,
    deck_id TEXT NOT NULL REFERENCES decks(id) ON DELETE CASCADE,
    front TEXT NOT NULL,
    back TEXT NOT NULL,
    ease REAL NOT NULL DEFAULT 2.5,
    interval INTEGER NOT NULL DEFAULT 1,
    reps INTEGER NOT NULL DEFAULT 0,
    lapses INTEGER NOT NULL DEFAULT 0,
    grade INTEGER,
    due_date TEXT,
    last_reviewed TEXT,
    card_type TEXT NOT NULL DEFAULT 'flip_type',
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS review_stats (
    day TEXT PRIMARY KEY,
    reviews INTEGER NOT NULL DEFAULT 0,
    correct INTEGER NOT NULL DEFAULT 0,
    lapses INTEGER NOT NULL DEFAULT 0,
    all_due_completed INTEGER
);

CREATE INDEX IF NOT EXISTS idx_cards_deck_id ON cards(deck_id);
`

// SQLiteGateway implements Gateway against a sqlite database file, bypassing
// the REST API. It mirrors the server's semantics, including the
// increment-upsert for review stats.
type SQLiteGateway struct {
	conn *sql.DB
}

// OpenSQLite opens (and if needed initializes) the remote-schema database.
func OpenSQLite(dsn string) (*SQLiteGateway, error) {
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open gateway database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("connect gateway database: %w", err)
	}
	if _, err := conn.Exec(remoteSchema); err != nil {
		return nil, fmt.Errorf("apply gateway schema: %w", err)
	}
	return &SQLiteGateway{conn: conn}, nil
}

// Close closes the underlying connection.
func (g *SQLiteGateway) Close() error {
	return g.conn.Close()
}

// FetchDecks implements Gateway.
func (g *SQLiteGateway) FetchDecks(ctx context.Context) ([]domain.Deck, error) {
	rows, err := g.conn.QueryContext(ctx, `
		SELECT id, name, created_at FROM decks ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("select decks: %w", err)
	}
	defer rows.Close()

	var decks []domain.Deck
	for rows.Next() {
		var b deckBody
		if err := rows.Scan(&b.ID, &b.Name, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan deck row: %w", err)
		}
		decks = append(decks, deckFromBody(b))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate decks: %w", err)
	}

	for i := range decks {
		cards, err := g.deckCards(ctx, decks[i].ID)
		if err != nil {
			return nil, err
		}
		decks[i].Cards = cards
	}
	return decks, nil
}

func (g *SQLiteGateway) deckCards(ctx context.Context, deckID string) ([]domain.Card, error) {
	rows, err := g.conn.QueryContext(ctx, `
		SELECT id, front, back, ease, interval, reps, lapses, grade,
		       due_date, last_reviewed, card_type, created_at, updated_at
		FROM cards WHERE deck_id = ? ORDER BY created_at
	`, deckID)
	if err != nil {
		return nil, fmt.Errorf("select cards for deck %s: %w", deckID, err)
	}
	defer rows.Close()

	var cards []domain.Card
	for rows.Next() {
		var b cardBody
		var grade sql.NullInt64
		var dueDate, lastReviewed sql.NullString
		if err := rows.Scan(
			&b.ID, &b.Front, &b.Back, &b.Ease, &b.Interval, &b.Reps, &b.Lapses,
			&grade, &dueDate, &lastReviewed, &b.CardType, &b.CreatedAt, &b.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan card row: %w", err)
		}
		if grade.Valid {
			v := int(grade.Int64)
			b.Grade = &v
		}
		if dueDate.Valid {
			b.DueDate = &dueDate.String
		}
		if lastReviewed.Valid {
			b.LastReviewed = &lastReviewed.String
		}
		cards = append(cards, cardFromBody(b))
	}
	return cards, rows.Err()
}

// CreateDeck implements Gateway.
func (g *SQLiteGateway) CreateDeck(ctx context.Context, deck domain.Deck) error {
	b := deckToBody(deck)
	_, err := g.conn.ExecContext(ctx, `
		INSERT OR REPLACE INTO decks (id, name, created_at) VALUES (?, ?, ?)
	`, b.ID, b.Name, b.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert deck %s: %w", deck.ID, err)
	}
	return nil
}

// UpdateDeck implements Gateway.
func (g *SQLiteGateway) UpdateDeck(ctx context.Context, deck domain.Deck) error {
	_, err := g.conn.ExecContext(ctx, `
		UPDATE decks SET name = ? WHERE id = ?
	`, deck.Name, deck.ID)
	if err != nil {
		return fmt.Errorf("update deck %s: %w", deck.ID, err)
	}
	return nil
}

// DeleteDeck implements Gateway.
func (g *SQLiteGateway) DeleteDeck(ctx context.Context, deckID string) error {
	if _, err := g.conn.ExecContext(ctx, `DELETE FROM cards WHERE deck_id = ?`, deckID); err != nil {
		return fmt.Errorf("delete cards of deck %s: %w", deckID, err)
	}
	if _, err := g.conn.ExecContext(ctx, `DELETE FROM decks WHERE id = ?`, deckID); err != nil {
		return fmt.Errorf("delete deck %s: %w", deckID, err)
	}
	return nil
}

// SaveCard implements Gateway as an idempotent upsert.
func (g *SQLiteGateway) SaveCard(ctx context.Context, card domain.Card, deckID string) error {
	b := cardToBody(card, deckID)
	var grade any
	if b.Grade != nil {
		grade = *b.Grade
	}
	var dueDate, lastReviewed any
	if b.DueDate != nil {
		dueDate = *b.DueDate
	}
	if b.LastReviewed != nil {
		lastReviewed = *b.LastReviewed
	}
	_, err := g.conn.ExecContext(ctx, `
		INSERT OR REPLACE INTO cards
		(id, deck_id, front, back, ease, interval, reps, lapses, grade,
		 due_date, last_reviewed, card_type, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, b.ID, b.DeckID, b.Front, b.Back, b.Ease, b.Interval, b.Reps, b.Lapses,
		grade, dueDate, lastReviewed, b.CardType, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert card %s: %w", card.ID, err)
	}
	return nil
}

// DeleteCard implements Gateway.
func (g *SQLiteGateway) DeleteCard(ctx context.Context, cardID string) error {
	if _, err := g.conn.ExecContext(ctx, `DELETE FROM cards WHERE id = ?`, cardID); err != nil {
		return fmt.Errorf("delete card %s: %w", cardID, err)
	}
	return nil
}

// PushDayStat implements Gateway. Counters increment-add onto the existing
// row; all_due_completed overwrites only when the delta carries it.
func (g *SQLiteGateway) PushDayStat(ctx context.Context, delta StatDelta) error {
	var completed any
	if delta.AllDueCompleted != nil {
		if *delta.AllDueCompleted {
			completed = 1
		} else {
			completed = 0
		}
	}
	_, err := g.conn.ExecContext(ctx, `
		INSERT INTO review_stats (day, reviews, correct, lapses, all_due_completed)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(day) DO UPDATE SET
			reviews = reviews + excluded.reviews,
			correct = correct + excluded.correct,
			lapses = lapses + excluded.lapses,
			all_due_completed = COALESCE(excluded.all_due_completed, all_due_completed)
	`, delta.Day, delta.Reviews, delta.Correct, delta.Lapses, completed)
	if err != nil {
		return fmt.Errorf("upsert review stats for %s: %w", delta.Day, err)
	}
	return nil
}

// FetchDayStats implements Gateway.
func (g *SQLiteGateway) FetchDayStats(ctx context.Context, start, end string) ([]domain.DayStat, error) {
	query := `SELECT day, reviews, correct, lapses, all_due_completed FROM review_stats`
	var clauses []string
	var args []any
	if start != "" {
		clauses = append(clauses, "day >= ?")
		args = append(args, start)
	}
	if end != "" {
		clauses = append(clauses, "day <= ?")
		args = append(args, end)
	}
	for i, c := range clauses {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}
	query += " ORDER BY day DESC"

	rows, err := g.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select review stats: %w", err)
	}
	defer rows.Close()

	var stats []domain.DayStat
	for rows.Next() {
		var s domain.DayStat
		var completed sql.NullInt64
		if err := rows.Scan(&s.Day, &s.Reviews, &s.Correct, &s.Lapses, &completed); err != nil {
			return nil, fmt.Errorf("scan review stats row: %w", err)
		}
		if completed.Valid {
			v := completed.Int64 != 0
			s.AllDueCompleted = &v
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// Ping implements Gateway.
func (g *SQLiteGateway) Ping(ctx context.Context) error {
	return g.conn.PingContext(ctx)
}
