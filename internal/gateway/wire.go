package gateway

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/d-lef/flashcard-webapp/internal/domain"
)

// deckBody is the snake_case wire form of a deck with its cards.
type deckBody struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	CreatedAt string     `json:"created_at,omitempty"`
	Cards     []cardBody `json:"cards,omitempty"`
}

// cardBody is the snake_case wire form of a card.
type cardBody struct {
	ID           string  `json:"id"`
	DeckID       string  `json:"deck_id,omitempty"`
	Front        string  `json:"front"`
	Back         string  `json:"back"`
	Ease         float64 `json:"ease"`
	Interval     int     `json:"interval"`
	Reps         int     `json:"reps"`
	Lapses       int     `json:"lapses"`
	Grade        *int    `json:"grade"`
	DueDate      *string `json:"due_date"`
	LastReviewed *string `json:"last_reviewed"`
	CreatedAt    string  `json:"created_at,omitempty"`
	UpdatedAt    string  `json:"updated_at,omitempty"`
	CardType     string  `json:"card_type,omitempty"`
}

// UnmarshalJSON tolerates the legacy field aliases (easeFactor, repetitions,
// nextReview) and loosely typed numerics that older snapshots carry.
func (b *cardBody) UnmarshalJSON(data []byte) error {
	type plain cardBody
	aux := struct {
		*plain
		Ease        any     `json:"ease"`
		EaseFactor  any     `json:"easeFactor"`
		Interval    any     `json:"interval"`
		Reps        any     `json:"reps"`
		Repetitions any     `json:"repetitions"`
		Lapses      any     `json:"lapses"`
		Grade       any     `json:"grade"`
		NextReview  *string `json:"nextReview"`
	}{plain: (*plain)(b)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	b.Ease = coerceFloat(aux.Ease, coerceFloat(aux.EaseFactor, 2.5))
	b.Interval = coerceInt(aux.Interval, 1)
	b.Reps = coerceInt(aux.Reps, coerceInt(aux.Repetitions, 0))
	b.Lapses = coerceInt(aux.Lapses, 0)
	if g := coerceInt(aux.Grade, 0); g != 0 {
		b.Grade = &g
	}
	if b.DueDate == nil && aux.NextReview != nil {
		if d := dayOf(*aux.NextReview); d != "" {
			b.DueDate = &d
		}
	}
	return nil
}

// statBody is the snake_case wire form of a day stat row.
type statBody struct {
	Day             string `json:"day"`
	Reviews         int    `json:"reviews"`
	Correct         int    `json:"correct"`
	Lapses          int    `json:"lapses"`
	AllDueCompleted *bool  `json:"all_due_completed"`
}

// statPush is the increment-upsert request body for POST /review-stats.
type statPush struct {
	Day             string `json:"day"`
	Increment       bool   `json:"increment"`
	Reviews         *int   `json:"reviews,omitempty"`
	Correct         *int   `json:"correct,omitempty"`
	Lapses          *int   `json:"lapses,omitempty"`
	AllDueCompleted *bool  `json:"all_due_completed,omitempty"`
}

func pushFromDelta(d StatDelta) statPush {
	p := statPush{Day: d.Day, Increment: true, AllDueCompleted: d.AllDueCompleted}
	if d.Reviews != 0 || d.Correct != 0 || d.Lapses != 0 {
		p.Reviews = &d.Reviews
		p.Correct = &d.Correct
		p.Lapses = &d.Lapses
	}
	return p
}

func deckToBody(d domain.Deck) deckBody {
	return deckBody{
		ID:        d.ID,
		Name:      d.Name,
		CreatedAt: formatTime(d.CreatedAt),
	}
}

func deckFromBody(b deckBody) domain.Deck {
	deck := domain.Deck{
		ID:        b.ID,
		Name:      b.Name,
		CreatedAt: parseTime(b.CreatedAt),
	}
	for _, cb := range b.Cards {
		deck.Cards = append(deck.Cards, cardFromBody(cb))
	}
	return deck
}

func cardToBody(c domain.Card, deckID string) cardBody {
	b := cardBody{
		ID:        c.ID,
		DeckID:    deckID,
		Front:     c.Front,
		Back:      c.Back,
		Ease:      c.Ease,
		Interval:  c.Interval,
		Reps:      c.Reps,
		Lapses:    c.Lapses,
		CreatedAt: formatTime(c.CreatedAt),
		UpdatedAt: formatTime(c.UpdatedAt),
		CardType:  string(c.Type),
	}
	if c.Grade != nil {
		g := int(*c.Grade)
		b.Grade = &g
	}
	if c.DueDate != nil {
		d := domain.LocalDay(*c.DueDate)
		b.DueDate = &d
	}
	if c.LastReviewed != nil {
		lr := formatTime(*c.LastReviewed)
		b.LastReviewed = &lr
	}
	return b
}

func cardFromBody(b cardBody) domain.Card {
	c := domain.Card{
		ID:        b.ID,
		Front:     b.Front,
		Back:      b.Back,
		Ease:      b.Ease,
		Interval:  b.Interval,
		Reps:      b.Reps,
		Lapses:    b.Lapses,
		CreatedAt: parseTime(b.CreatedAt),
		UpdatedAt: parseTime(b.UpdatedAt),
		Type:      domain.CardType(b.CardType),
	}
	if c.Type == "" {
		// Cards predating the type column drill both ways.
		c.Type = domain.CardTypeFlipType
	}
	if b.Grade != nil {
		g := domain.Grade(*b.Grade)
		if g.Valid() {
			c.Grade = &g
		}
	}
	if b.DueDate != nil {
		if t, err := time.ParseInLocation(time.DateOnly, dayOf(*b.DueDate), time.Local); err == nil {
			c.DueDate = &t
		}
	}
	if b.LastReviewed != nil {
		if t := parseTime(*b.LastReviewed); !t.IsZero() {
			c.LastReviewed = &t
		}
	}
	return c
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// parseTime accepts the timestamp shapes seen on the wire: RFC 3339 with or
// without fractional seconds, and zone-less ISO strings.
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05.999999",
		"2006-01-02T15:04:05",
		time.DateOnly,
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// dayOf truncates a date or timestamp string to its YYYY-MM-DD prefix.
func dayOf(s string) string {
	if len(s) < 10 {
		return ""
	}
	return s[:10]
}

func coerceFloat(v any, fallback float64) float64 {
	switch n := v.(type) {
	case float64:
		if n > 0 {
			return n
		}
	case string:
		if f, err := strconv.ParseFloat(n, 64); err == nil && f > 0 {
			return f
		}
	case json.Number:
		if f, err := n.Float64(); err == nil && f > 0 {
			return f
		}
	}
	return fallback
}

func coerceInt(v any, fallback int) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case string:
		if i, err := strconv.Atoi(n); err == nil {
			return i
		}
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i)
		}
	}
	return fallback
}
