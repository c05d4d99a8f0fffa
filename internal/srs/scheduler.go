// Package srs implements the SM-2 style scheduler that folds a review grade
// into a card's scheduling state. It is pure: no I/O, no clocks of its own.
package srs

import (
	"errors"
	"math"
	"time"

	"github.com/d-lef/flashcard-webapp/internal/domain"
)

// ErrUnknownGrade is returned for grades outside again/hard/good/easy.
var ErrUnknownGrade = errors.New("srs: unknown grade")

const (
	// MinEase is the SM-2 ease floor.
	MinEase = 1.3
	// DefaultEase is assigned to cards that never carried an ease factor.
	DefaultEase = 2.5
)

// Review computes the card state after answering with the given grade.
// The input card is not mutated. Malformed numeric fields degrade to SM-2
// defaults rather than failing; an unknown grade is a contract violation
// and returns ErrUnknownGrade.
func Review(card domain.Card, grade domain.Grade, now time.Time) (domain.Card, error) {
	if !grade.Valid() {
		return domain.Card{}, ErrUnknownGrade
	}

	c := normalize(card)
	firstReview := c.Reps == 0 && c.DueDate == nil

	switch grade {
	case domain.Again:
		c.Reps = 0
		c.Lapses++
		c.Interval = 1
		c.Ease = math.Max(MinEase, c.Ease-0.2)
	case domain.Hard:
		c.Reps++
		c.Interval = max(1, round(float64(c.Interval)*1.2))
		c.Ease = math.Max(MinEase, c.Ease-0.15)
	case domain.Good:
		c.Reps++
		c.Interval = round(float64(c.Interval) * c.Ease)
	case domain.Easy:
		c.Reps++
		c.Interval = round(float64(c.Interval) * c.Ease * 1.3)
		c.Ease += 0.15
	}

	if firstReview {
		c.Interval = 1
	}
	if c.Interval < 1 {
		c.Interval = 1
	}

	due := nextDue(now, c.Interval)
	c.DueDate = &due
	c.LastReviewed = &now
	c.UpdatedAt = now
	g := grade
	c.Grade = &g
	c.IsModified = true
	return c, nil
}

// normalize fills absent numeric state with SM-2 defaults.
func normalize(c domain.Card) domain.Card {
	if c.Ease <= 0 {
		c.Ease = DefaultEase
	} else if c.Ease < MinEase {
		c.Ease = MinEase
	}
	if c.Interval < 1 {
		c.Interval = 1
	}
	if c.Reps < 0 {
		c.Reps = 0
	}
	if c.Lapses < 0 {
		c.Lapses = 0
	}
	return c
}

// nextDue is the local calendar day `interval` days after now, at midnight.
func nextDue(now time.Time, interval int) time.Time {
	y, m, d := now.Local().Date()
	return time.Date(y, m, d+interval, 0, 0, 0, 0, now.Location())
}

func round(v float64) int {
	return int(math.Round(v))
}
