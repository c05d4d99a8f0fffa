package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d-lef/flashcard-webapp/internal/domain"
)

func TestHTTPFetchDecks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/decks", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"id": "d1", "name": "French", "created_at": "2026-08-01T10:00:00Z",
			 "cards": [{"id": "c1", "front": "oui", "back": "yes", "ease": 2.5,
			            "interval": 3, "reps": 2, "due_date": "2026-09-03"}]}
		]`))
	}))
	defer srv.Close()

	g := NewHTTP(srv.URL+"/api", time.Second)
	decks, err := g.FetchDecks(context.Background())
	require.NoError(t, err)

	require.Len(t, decks, 1)
	assert.Equal(t, "French", decks[0].Name)
	require.Len(t, decks[0].Cards, 1)
	card := decks[0].Cards[0]
	assert.Equal(t, "oui", card.Front)
	require.NotNil(t, card.DueDate)
	assert.Equal(t, "2026-09-03", domain.LocalDay(*card.DueDate))
}

func TestHTTPSaveCard(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/cards", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	g := NewHTTP(srv.URL+"/api", time.Second)
	card := domain.Card{ID: "c1", Front: "f", Back: "b", Ease: 2.5, Interval: 1, Type: domain.CardTypeFlip}
	require.NoError(t, g.SaveCard(context.Background(), card, "d1"))

	assert.Equal(t, "c1", got["id"])
	assert.Equal(t, "d1", got["deck_id"])
	assert.Equal(t, "flip", got["card_type"])
}

func TestHTTPDeleteDeck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/decks/d1", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	g := NewHTTP(srv.URL+"/api", time.Second)
	require.NoError(t, g.DeleteDeck(context.Background(), "d1"))
}

func TestHTTPPushDayStat(t *testing.T) {
	var got statPush
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/review-stats", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	g := NewHTTP(srv.URL+"/api", time.Second)
	require.NoError(t, g.PushDayStat(context.Background(), StatDelta{
		Day: "2026-09-01", Reviews: 1, Correct: 1,
	}))

	assert.Equal(t, "2026-09-01", got.Day)
	assert.True(t, got.Increment)
	require.NotNil(t, got.Reviews)
	assert.Equal(t, 1, *got.Reviews)
}

func TestHTTPFetchDayStatsRange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2026-09-01", r.URL.Query().Get("start"))
		assert.Equal(t, "2026-09-07", r.URL.Query().Get("end"))
		w.Write([]byte(`[{"day": "2026-09-01", "reviews": 10, "correct": 8, "lapses": 2,
		                  "all_due_completed": true}]`))
	}))
	defer srv.Close()

	g := NewHTTP(srv.URL, time.Second)
	stats, err := g.FetchDayStats(context.Background(), "2026-09-01", "2026-09-07")
	require.NoError(t, err)

	require.Len(t, stats, 1)
	assert.Equal(t, 10, stats[0].Reviews)
	assert.Equal(t, 8, stats[0].Correct)
	assert.True(t, stats[0].Completed())
}

func TestHTTPErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	g := NewHTTP(srv.URL, time.Second)
	_, err := g.FetchDecks(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestHTTPContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	g := NewHTTP(srv.URL, time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := g.FetchDecks(ctx)
	require.Error(t, err)
}
