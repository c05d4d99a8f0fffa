// Package gateway abstracts the remote flashcard store. The wire contract is
// fixed: snake_case JSON entities for decks, cards, and per-day review stats.
//
// Two interchangeable implementations exist, one speaking the REST API and
// one writing to a sqlite database directly; configuration picks exactly one.
package gateway

import (
	"context"

	"github.com/d-lef/flashcard-webapp/internal/domain"
)

// StatDelta is one push to a day's review stats. Counter fields are
// increment-added server side; AllDueCompleted overwrites when non-nil.
// A delta with only AllDueCompleted set is the end-of-session write path.
type StatDelta struct {
	Day             string
	Reviews         int
	Correct         int
	Lapses          int
	AllDueCompleted *bool
}

// Gateway is the remote store for decks, cards, and review stats.
//
// Write methods return an error on any transport failure or non-2xx
// response; the mutation queue turns those into deferred operations.
// Read failures are surfaced as errors and mapped to empty results by
// callers, never retried automatically.
type Gateway interface {
	FetchDecks(ctx context.Context) ([]domain.Deck, error)
	CreateDeck(ctx context.Context, deck domain.Deck) error
	UpdateDeck(ctx context.Context, deck domain.Deck) error
	DeleteDeck(ctx context.Context, deckID string) error

	// SaveCard is an idempotent upsert.
	SaveCard(ctx context.Context, card domain.Card, deckID string) error
	DeleteCard(ctx context.Context, cardID string) error

	PushDayStat(ctx context.Context, delta StatDelta) error
	FetchDayStats(ctx context.Context, start, end string) ([]domain.DayStat, error)

	// Ping is a cheap reachability probe used by the connectivity watcher.
	Ping(ctx context.Context) error
}
