// Package study selects which cards get reviewed and drives combined-mode
// study sessions.
package study

import (
	"time"

	"github.com/d-lef/flashcard-webapp/internal/domain"
)

// Class partitions a card against a reference day. Every card lands in
// exactly one class.
type Class int

const (
	ClassNew Class = iota
	ClassOverdue
	ClassDue
	ClassFuture
)

func (c Class) String() string {
	switch c {
	case ClassNew:
		return "new"
	case ClassOverdue:
		return "overdue"
	case ClassDue:
		return "due"
	}
	return "future"
}

// Classify buckets a card relative to today's local calendar date.
func Classify(card domain.Card, today time.Time) Class {
	if card.Unstudied() {
		return ClassNew
	}
	day := domain.LocalDay(today)
	due := domain.LocalDay(*card.DueDate)
	switch {
	case due < day:
		return ClassOverdue
	case due == day:
		return ClassDue
	}
	return ClassFuture
}

// CardsForStudy returns up to limit cards worth studying today: overdue and
// due cards first (in deck order), then new cards. Future cards never appear.
func CardsForStudy(cards []domain.Card, today time.Time, limit int) []domain.Card {
	var ready, fresh []domain.Card
	for _, c := range cards {
		switch Classify(c, today) {
		case ClassOverdue, ClassDue:
			ready = append(ready, c)
		case ClassNew:
			fresh = append(fresh, c)
		}
	}
	batch := append(ready, fresh...)
	if limit >= 0 && len(batch) > limit {
		batch = batch[:limit]
	}
	return batch
}

// DueToday returns the cards whose due date is exactly today.
func DueToday(cards []domain.Card, today time.Time) []domain.Card {
	return filter(cards, today, ClassDue)
}

// Overdue returns the cards whose due date has already passed.
func Overdue(cards []domain.Card, today time.Time) []domain.Card {
	return filter(cards, today, ClassOverdue)
}

// NewCards returns the cards that have never been studied.
func NewCards(cards []domain.Card, today time.Time) []domain.Card {
	return filter(cards, today, ClassNew)
}

func filter(cards []domain.Card, today time.Time, want Class) []domain.Card {
	var out []domain.Card
	for _, c := range cards {
		if Classify(c, today) == want {
			out = append(out, c)
		}
	}
	return out
}
