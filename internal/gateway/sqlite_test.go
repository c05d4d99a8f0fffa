package gateway

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d-lef/flashcard-webapp/internal/domain"
)

func openTestGateway(t *testing.T) *SQLiteGateway {
	t.Helper()
	g, err := OpenSQLite(filepath.Join(t.TempDir(), "remote.db"))
	require.NoError(t, err)
	t.Cleanup(func() { g.Close() })
	return g
}

func TestSQLiteDeckLifecycle(t *testing.T) {
	g := openTestGateway(t)
	ctx := context.Background()

	deck := domain.Deck{ID: "d1", Name: "French", CreatedAt: time.Now()}
	require.NoError(t, g.CreateDeck(ctx, deck))

	due := time.Date(2026, 9, 3, 0, 0, 0, 0, time.Local)
	card := domain.Card{
		ID: "c1", Front: "oui", Back: "yes",
		Ease: 2.5, Interval: 3, Reps: 2, DueDate: &due,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
		Type: domain.CardTypeFlip,
	}
	require.NoError(t, g.SaveCard(ctx, card, deck.ID))

	decks, err := g.FetchDecks(ctx)
	require.NoError(t, err)
	require.Len(t, decks, 1)
	assert.Equal(t, "French", decks[0].Name)
	require.Len(t, decks[0].Cards, 1)
	got := decks[0].Cards[0]
	assert.Equal(t, "oui", got.Front)
	assert.Equal(t, domain.CardTypeFlip, got.Type)
	require.NotNil(t, got.DueDate)
	assert.Equal(t, "2026-09-03", domain.LocalDay(*got.DueDate))

	deck.Name = "French A1"
	require.NoError(t, g.UpdateDeck(ctx, deck))
	decks, err = g.FetchDecks(ctx)
	require.NoError(t, err)
	assert.Equal(t, "French A1", decks[0].Name)

	require.NoError(t, g.DeleteDeck(ctx, deck.ID))
	decks, err = g.FetchDecks(ctx)
	require.NoError(t, err)
	assert.Empty(t, decks)
}

func TestSQLiteSaveCardIsUpsert(t *testing.T) {
	g := openTestGateway(t)
	ctx := context.Background()

	require.NoError(t, g.CreateDeck(ctx, domain.Deck{ID: "d1", Name: "n", CreatedAt: time.Now()}))
	card := domain.Card{ID: "c1", Front: "a", Back: "b", Ease: 2.5, Interval: 1,
		CreatedAt: time.Now(), UpdatedAt: time.Now(), Type: domain.CardTypeFlipType}
	require.NoError(t, g.SaveCard(ctx, card, "d1"))

	card.Front = "a2"
	card.Interval = 4
	require.NoError(t, g.SaveCard(ctx, card, "d1"))

	decks, err := g.FetchDecks(ctx)
	require.NoError(t, err)
	require.Len(t, decks[0].Cards, 1)
	assert.Equal(t, "a2", decks[0].Cards[0].Front)
	assert.Equal(t, 4, decks[0].Cards[0].Interval)
}

func TestSQLiteDeleteCard(t *testing.T) {
	g := openTestGateway(t)
	ctx := context.Background()

	require.NoError(t, g.CreateDeck(ctx, domain.Deck{ID: "d1", Name: "n", CreatedAt: time.Now()}))
	card := domain.Card{ID: "c1", Front: "a", Back: "b", Ease: 2.5, Interval: 1,
		CreatedAt: time.Now(), UpdatedAt: time.Now(), Type: domain.CardTypeFlip}
	require.NoError(t, g.SaveCard(ctx, card, "d1"))
	require.NoError(t, g.DeleteCard(ctx, "c1"))

	decks, err := g.FetchDecks(ctx)
	require.NoError(t, err)
	assert.Empty(t, decks[0].Cards)
}

func TestSQLitePushDayStatIncrements(t *testing.T) {
	g := openTestGateway(t)
	ctx := context.Background()

	require.NoError(t, g.PushDayStat(ctx, StatDelta{Day: "2026-09-01", Reviews: 1, Correct: 1}))
	require.NoError(t, g.PushDayStat(ctx, StatDelta{Day: "2026-09-01", Reviews: 1, Lapses: 1}))

	stats, err := g.FetchDayStats(ctx, "2026-09-01", "2026-09-01")
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, 2, stats[0].Reviews)
	assert.Equal(t, 1, stats[0].Correct)
	assert.Equal(t, 1, stats[0].Lapses)
	assert.Nil(t, stats[0].AllDueCompleted)
}

func TestSQLiteCompletionFlagPreservesCounters(t *testing.T) {
	g := openTestGateway(t)
	ctx := context.Background()

	require.NoError(t, g.PushDayStat(ctx, StatDelta{Day: "2026-09-01", Reviews: 3, Correct: 2, Lapses: 1}))

	done := true
	require.NoError(t, g.PushDayStat(ctx, StatDelta{Day: "2026-09-01", AllDueCompleted: &done}))

	stats, err := g.FetchDayStats(ctx, "2026-09-01", "2026-09-01")
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, 3, stats[0].Reviews)
	assert.True(t, stats[0].Completed())

	// A later counter push without the flag leaves completion untouched.
	require.NoError(t, g.PushDayStat(ctx, StatDelta{Day: "2026-09-01", Reviews: 1, Correct: 1}))
	stats, err = g.FetchDayStats(ctx, "2026-09-01", "2026-09-01")
	require.NoError(t, err)
	assert.True(t, stats[0].Completed())
	assert.Equal(t, 4, stats[0].Reviews)
}

func TestSQLiteFetchDayStatsRange(t *testing.T) {
	g := openTestGateway(t)
	ctx := context.Background()

	for _, day := range []string{"2026-08-30", "2026-09-01", "2026-09-15"} {
		require.NoError(t, g.PushDayStat(ctx, StatDelta{Day: day, Reviews: 1}))
	}

	stats, err := g.FetchDayStats(ctx, "2026-09-01", "2026-09-30")
	require.NoError(t, err)
	require.Len(t, stats, 2)
	// Newest first.
	assert.Equal(t, "2026-09-15", stats[0].Day)
	assert.Equal(t, "2026-09-01", stats[1].Day)
}

func TestSQLitePing(t *testing.T) {
	g := openTestGateway(t)
	assert.NoError(t, g.Ping(context.Background()))
}
