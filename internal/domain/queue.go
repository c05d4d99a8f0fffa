package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// OpType identifies a pending remote operation.
type OpType string

const (
	OpSaveDeck          OpType = "saveDeck"
	OpDeleteDeck        OpType = "deleteDeck"
	OpDeleteCard        OpType = "deleteCard"
	OpUpdateReviewStats OpType = "updateReviewStats"
)

// PendingOperation is one entry in the durable mutation queue. The payload is
// kept as raw JSON so the queue can round-trip through storage without knowing
// every payload shape.
type PendingOperation struct {
	Type       OpType          `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	EnqueuedAt time.Time       `json:"enqueuedAt"`
}

// SaveDeckPayload carries a full deck snapshot; only dirty cards are pushed.
type SaveDeckPayload struct {
	Deck  Deck `json:"deck"`
	IsNew bool `json:"isNew"`
}

// DeleteDeckPayload removes a deck and, transitively, its cards.
type DeleteDeckPayload struct {
	DeckID string `json:"deckId"`
}

// DeleteCardPayload removes a single card.
type DeleteCardPayload struct {
	CardID string `json:"cardId"`
}

// UpdateStatsPayload increments the day's counters and/or overwrites the
// completion flag. Correct==nil means "no counter increment" (completion-only
// write); AllDueCompleted==nil leaves the flag untouched.
type UpdateStatsPayload struct {
	Day              string `json:"day"`
	Correct          *bool  `json:"correct"`
	AllDueCompleted  *bool  `json:"allDueCompleted"`
	FirstReviewToday bool   `json:"firstReviewToday"`
}

// NewOperation wraps a typed payload into a queue entry.
func NewOperation(t OpType, payload any, now time.Time) (PendingOperation, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return PendingOperation{}, fmt.Errorf("marshal %s payload: %w", t, err)
	}
	return PendingOperation{Type: t, Payload: raw, EnqueuedAt: now}, nil
}
