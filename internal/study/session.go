package study

import (
	"errors"
	"math/rand"
	"time"

	"github.com/d-lef/flashcard-webapp/internal/domain"
	"github.com/d-lef/flashcard-webapp/internal/srs"
)

// Mode is the drill presented for one pair.
type Mode string

const (
	ModeFlip Mode = "flip"
	ModeType Mode = "type"
)

// ErrSessionFinished is returned when answering after every pair completed.
var ErrSessionFinished = errors.New("study: session already finished")

// Pair is one scheduled presentation of a card in a combined session.
type Pair struct {
	Card      domain.Card
	Mode      Mode
	Completed bool
}

// Outcome reports what a single answer did to the session.
type Outcome struct {
	// Failed means the pair was not completed and the card was re-inserted
	// into the remaining pairs with a fresh mode.
	Failed bool
	// Updated is the rescheduled card; set only on success.
	Updated *domain.Card
	// FirstReviewToday is true the first time this card is answered in the
	// session; stat counters increment once per card per day.
	FirstReviewToday bool
}

// Session runs a combined-mode drill over a batch of cards. A card that
// lapses is guaranteed to come back before the session can finish, so the
// session only ends once every card reached a non-failing grade.
type Session struct {
	pairs    []Pair
	pos      int
	studied  int
	rng      *rand.Rand
	reviewed map[string]bool
}

// NewSession builds the initial pair per card, assigns drill modes, and
// shuffles the order. Flip-only cards always drill as flip; flip_type cards
// pick flip or type with even odds.
func NewSession(cards []domain.Card, rng *rand.Rand) *Session {
	s := &Session{rng: rng, reviewed: make(map[string]bool)}
	for _, c := range cards {
		s.pairs = append(s.pairs, Pair{Card: c, Mode: s.pickMode(c)})
	}
	rng.Shuffle(len(s.pairs), func(i, j int) {
		s.pairs[i], s.pairs[j] = s.pairs[j], s.pairs[i]
	})
	return s
}

func (s *Session) pickMode(c domain.Card) Mode {
	if c.Type == domain.CardTypeFlip {
		return ModeFlip
	}
	if s.rng.Intn(2) == 0 {
		return ModeType
	}
	return ModeFlip
}

// Current returns the pair up for review. ok is false once the session is over.
func (s *Session) Current() (Pair, bool) {
	if s.pos >= len(s.pairs) {
		return Pair{}, false
	}
	return s.pairs[s.pos], true
}

// Finished reports whether every pair has been processed.
func (s *Session) Finished() bool {
	return s.pos >= len(s.pairs)
}

// Remaining counts unprocessed pairs, including re-inserted retries.
func (s *Session) Remaining() int {
	return len(s.pairs) - s.pos
}

// Studied counts successfully completed reviews this session.
func (s *Session) Studied() int {
	return s.studied
}

// Progress returns completed and total pair counts.
func (s *Session) Progress() (completed, total int) {
	for _, p := range s.pairs {
		if p.Completed {
			completed++
		}
	}
	return completed, len(s.pairs)
}

// Answer grades the current pair. A grade of again always fails the pair; in
// type mode hard fails too. A failed card is reinserted at a uniformly random
// position among the remaining pairs with a freshly picked mode. On success
// the scheduler runs and the updated card is returned.
func (s *Session) Answer(grade domain.Grade, now time.Time) (Outcome, error) {
	if s.Finished() {
		return Outcome{}, ErrSessionFinished
	}
	if !grade.Valid() {
		return Outcome{}, srs.ErrUnknownGrade
	}

	pair := &s.pairs[s.pos]
	failed := grade == domain.Again || (pair.Mode == ModeType && grade == domain.Hard)

	if failed {
		retry := Pair{Card: pair.Card, Mode: s.pickMode(pair.Card)}
		s.insertRetry(retry)
		s.pos++
		return Outcome{Failed: true}, nil
	}

	updated, err := srs.Review(pair.Card, grade, now)
	if err != nil {
		return Outcome{}, err
	}
	pair.Completed = true
	s.studied++

	first := !s.reviewed[updated.ID]
	s.reviewed[updated.ID] = true
	s.pos++
	return Outcome{Updated: &updated, FirstReviewToday: first}, nil
}

// insertRetry places a retry pair uniformly in [pos+1, end].
func (s *Session) insertRetry(p Pair) {
	remaining := len(s.pairs) - s.pos - 1
	at := s.pos + 1 + s.rng.Intn(remaining+1)
	s.pairs = append(s.pairs, Pair{})
	copy(s.pairs[at+1:], s.pairs[at:])
	s.pairs[at] = p
}
