package gateway

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d-lef/flashcard-webapp/internal/domain"
)

func TestCardRoundTrip(t *testing.T) {
	due := time.Date(2026, 9, 5, 0, 0, 0, 0, time.Local)
	last := time.Date(2026, 9, 1, 14, 30, 0, 0, time.UTC)
	grade := domain.Good
	card := domain.Card{
		ID:           "c1",
		Front:        "bonjour",
		Back:         "hello",
		Ease:         2.35,
		Interval:     4,
		Reps:         3,
		Lapses:       1,
		Grade:        &grade,
		DueDate:      &due,
		LastReviewed: &last,
		CreatedAt:    time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
		UpdatedAt:    last,
		Type:         domain.CardTypeFlip,
	}

	raw, err := json.Marshal(cardToBody(card, "d1"))
	require.NoError(t, err)

	var b cardBody
	require.NoError(t, json.Unmarshal(raw, &b))
	got := cardFromBody(b)

	assert.Equal(t, card.ID, got.ID)
	assert.Equal(t, card.Front, got.Front)
	assert.Equal(t, card.Back, got.Back)
	assert.InDelta(t, card.Ease, got.Ease, 1e-9)
	assert.Equal(t, card.Interval, got.Interval)
	assert.Equal(t, card.Reps, got.Reps)
	assert.Equal(t, card.Lapses, got.Lapses)
	require.NotNil(t, got.Grade)
	assert.Equal(t, domain.Good, *got.Grade)
	require.NotNil(t, got.DueDate)
	assert.Equal(t, "2026-09-05", domain.LocalDay(*got.DueDate))
	require.NotNil(t, got.LastReviewed)
	assert.True(t, got.LastReviewed.Equal(last))
	assert.Equal(t, domain.CardTypeFlip, got.Type)
}

func TestCardWireFieldNames(t *testing.T) {
	due := time.Date(2026, 9, 5, 0, 0, 0, 0, time.Local)
	card := domain.Card{ID: "c1", Ease: 2.5, Interval: 1, DueDate: &due, Type: domain.CardTypeFlipType}

	raw, err := json.Marshal(cardToBody(card, "d1"))
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))

	assert.Contains(t, fields, "deck_id")
	assert.Contains(t, fields, "due_date")
	assert.Contains(t, fields, "card_type")
	assert.Equal(t, "2026-09-05", fields["due_date"])
	assert.NotContains(t, fields, "dueDate")
	assert.NotContains(t, fields, "easeFactor")
}

func TestCardLegacyAliases(t *testing.T) {
	raw := []byte(`{
		"id": "old1",
		"front": "f",
		"back": "b",
		"easeFactor": "2.8",
		"repetitions": 3,
		"nextReview": "2026-01-15T00:00:00.000Z"
	}`)

	var b cardBody
	require.NoError(t, json.Unmarshal(raw, &b))

	assert.InDelta(t, 2.8, b.Ease, 1e-9)
	assert.Equal(t, 3, b.Reps)
	require.NotNil(t, b.DueDate)
	assert.Equal(t, "2026-01-15", *b.DueDate)
}

func TestCardModernFieldsWinOverAliases(t *testing.T) {
	raw := []byte(`{
		"id": "c1",
		"ease": 2.2,
		"easeFactor": 1.9,
		"reps": 5,
		"repetitions": 2,
		"due_date": "2026-03-01",
		"nextReview": "2025-01-01T00:00:00Z"
	}`)

	var b cardBody
	require.NoError(t, json.Unmarshal(raw, &b))

	assert.InDelta(t, 2.2, b.Ease, 1e-9)
	assert.Equal(t, 5, b.Reps)
	require.NotNil(t, b.DueDate)
	assert.Equal(t, "2026-03-01", *b.DueDate)
}

func TestCardMissingNumericsGetDefaults(t *testing.T) {
	var b cardBody
	require.NoError(t, json.Unmarshal([]byte(`{"id": "bare", "front": "f", "back": "b"}`), &b))

	assert.InDelta(t, 2.5, b.Ease, 1e-9)
	assert.Equal(t, 1, b.Interval)
	assert.Equal(t, 0, b.Reps)
	assert.Nil(t, b.Grade)
}

func TestCardFromBodyDefaultsType(t *testing.T) {
	got := cardFromBody(cardBody{ID: "c1"})
	assert.Equal(t, domain.CardTypeFlipType, got.Type)
}

func TestCardFromBodyRejectsBadGrade(t *testing.T) {
	g := 9
	got := cardFromBody(cardBody{ID: "c1", Grade: &g})
	assert.Nil(t, got.Grade)
}

func TestParseTimeLayouts(t *testing.T) {
	cases := []struct {
		name string
		in   string
	}{
		{"rfc3339", "2026-09-01T14:30:00Z"},
		{"fractional", "2026-09-01T14:30:00.123456Z"},
		{"zoneless", "2026-09-01T14:30:00"},
		{"zoneless fractional", "2026-09-01T14:30:00.123456"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := parseTime(tc.in)
			assert.False(t, got.IsZero())
			assert.Equal(t, 2026, got.Year())
			assert.Equal(t, 14, got.Hour())
		})
	}

	assert.True(t, parseTime("").IsZero())
	assert.True(t, parseTime("not a time").IsZero())
}

func TestDayOf(t *testing.T) {
	assert.Equal(t, "2026-09-01", dayOf("2026-09-01T14:30:00Z"))
	assert.Equal(t, "2026-09-01", dayOf("2026-09-01"))
	assert.Equal(t, "", dayOf("short"))
}

func TestPushFromDelta(t *testing.T) {
	t.Run("review increment", func(t *testing.T) {
		p := pushFromDelta(StatDelta{Day: "2026-09-01", Reviews: 1, Correct: 1})
		assert.True(t, p.Increment)
		require.NotNil(t, p.Reviews)
		assert.Equal(t, 1, *p.Reviews)
		assert.Nil(t, p.AllDueCompleted)
	})

	t.Run("completion only carries no counters", func(t *testing.T) {
		done := true
		p := pushFromDelta(StatDelta{Day: "2026-09-01", AllDueCompleted: &done})
		assert.Nil(t, p.Reviews)
		require.NotNil(t, p.AllDueCompleted)
		assert.True(t, *p.AllDueCompleted)
	})
}
