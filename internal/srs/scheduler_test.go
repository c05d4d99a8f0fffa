package srs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d-lef/flashcard-webapp/internal/domain"
)

func reviewedCard(ease float64, interval, reps int) domain.Card {
	due := time.Date(2026, 8, 30, 0, 0, 0, 0, time.Local)
	return domain.Card{
		ID:       "c1",
		Ease:     ease,
		Interval: interval,
		Reps:     reps,
		DueDate:  &due,
	}
}

func TestReviewAgain(t *testing.T) {
	now := time.Date(2026, 9, 1, 15, 0, 0, 0, time.Local)
	card := reviewedCard(2.5, 10, 4)
	card.Lapses = 1

	got, err := Review(card, domain.Again, now)
	require.NoError(t, err)

	assert.Equal(t, 0, got.Reps)
	assert.Equal(t, 2, got.Lapses)
	assert.Equal(t, 1, got.Interval)
	assert.InDelta(t, 2.3, got.Ease, 1e-9)
}

func TestReviewHard(t *testing.T) {
	now := time.Date(2026, 9, 1, 15, 0, 0, 0, time.Local)

	got, err := Review(reviewedCard(2.5, 10, 4), domain.Hard, now)
	require.NoError(t, err)

	assert.Equal(t, 5, got.Reps)
	assert.Equal(t, 12, got.Interval)
	assert.InDelta(t, 2.35, got.Ease, 1e-9)
}

func TestReviewGood(t *testing.T) {
	now := time.Date(2026, 9, 1, 15, 0, 0, 0, time.Local)

	got, err := Review(reviewedCard(2.5, 6, 2), domain.Good, now)
	require.NoError(t, err)

	assert.Equal(t, 15, got.Interval)
	assert.InDelta(t, 2.5, got.Ease, 1e-9)
}

func TestReviewEasy(t *testing.T) {
	now := time.Date(2026, 9, 1, 15, 0, 0, 0, time.Local)

	got, err := Review(reviewedCard(2.5, 4, 2), domain.Easy, now)
	require.NoError(t, err)

	// 4 * 2.5 * 1.3 = 13
	assert.Equal(t, 13, got.Interval)
	assert.InDelta(t, 2.65, got.Ease, 1e-9)
}

func TestReviewEaseFloor(t *testing.T) {
	now := time.Date(2026, 9, 1, 15, 0, 0, 0, time.Local)

	t.Run("again never drops below the floor", func(t *testing.T) {
		got, err := Review(reviewedCard(1.35, 3, 2), domain.Again, now)
		require.NoError(t, err)
		assert.InDelta(t, MinEase, got.Ease, 1e-9)
	})

	t.Run("hard never drops below the floor", func(t *testing.T) {
		got, err := Review(reviewedCard(1.3, 3, 2), domain.Hard, now)
		require.NoError(t, err)
		assert.InDelta(t, MinEase, got.Ease, 1e-9)
	})
}

func TestReviewFirstReviewInterval(t *testing.T) {
	now := time.Date(2026, 9, 1, 15, 0, 0, 0, time.Local)
	card := domain.Card{ID: "new", Ease: 2.5}

	for _, grade := range []domain.Grade{domain.Hard, domain.Good, domain.Easy} {
		t.Run(grade.String(), func(t *testing.T) {
			got, err := Review(card, grade, now)
			require.NoError(t, err)
			assert.Equal(t, 1, got.Interval)
			require.NotNil(t, got.DueDate)
			assert.Equal(t, "2026-09-02", domain.LocalDay(*got.DueDate))
		})
	}
}

func TestReviewNormalizesMalformedState(t *testing.T) {
	now := time.Date(2026, 9, 1, 15, 0, 0, 0, time.Local)

	t.Run("missing ease becomes the default", func(t *testing.T) {
		got, err := Review(reviewedCard(0, 6, 2), domain.Good, now)
		require.NoError(t, err)
		// 6 * 2.5 = 15
		assert.Equal(t, 15, got.Interval)
	})

	t.Run("sub-floor ease is clamped", func(t *testing.T) {
		got, err := Review(reviewedCard(1.0, 6, 2), domain.Good, now)
		require.NoError(t, err)
		// 6 * 1.3 = 7.8 -> 8
		assert.Equal(t, 8, got.Interval)
	})

	t.Run("zero interval counts as one", func(t *testing.T) {
		got, err := Review(reviewedCard(2.5, 0, 2), domain.Good, now)
		require.NoError(t, err)
		// 1 * 2.5 = 2.5 -> 3
		assert.Equal(t, 3, got.Interval)
	})
}

func TestReviewDueDateIsLocalMidnight(t *testing.T) {
	now := time.Date(2026, 9, 1, 23, 45, 0, 0, time.Local)

	got, err := Review(reviewedCard(2.5, 1, 1), domain.Good, now)
	require.NoError(t, err)
	require.NotNil(t, got.DueDate)

	due := *got.DueDate
	assert.Equal(t, 0, due.Hour())
	assert.Equal(t, 0, due.Minute())
	assert.Equal(t, "2026-09-03", domain.LocalDay(due))
}

func TestReviewStampsReviewState(t *testing.T) {
	now := time.Date(2026, 9, 1, 15, 0, 0, 0, time.Local)

	got, err := Review(reviewedCard(2.5, 6, 2), domain.Hard, now)
	require.NoError(t, err)

	require.NotNil(t, got.Grade)
	assert.Equal(t, domain.Hard, *got.Grade)
	require.NotNil(t, got.LastReviewed)
	assert.True(t, got.LastReviewed.Equal(now))
	assert.True(t, got.IsModified)
}

func TestReviewDoesNotMutateInput(t *testing.T) {
	now := time.Date(2026, 9, 1, 15, 0, 0, 0, time.Local)
	card := reviewedCard(2.5, 6, 2)

	_, err := Review(card, domain.Good, now)
	require.NoError(t, err)

	assert.Equal(t, 6, card.Interval)
	assert.Equal(t, 2, card.Reps)
	assert.False(t, card.IsModified)
}

func TestReviewUnknownGrade(t *testing.T) {
	_, err := Review(reviewedCard(2.5, 6, 2), domain.Grade(7), time.Now())
	assert.ErrorIs(t, err, ErrUnknownGrade)
}
