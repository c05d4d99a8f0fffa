package domain

import (
	"fmt"
	"time"
)

// Grade is the user's response to a card review.
type Grade int

const (
	Again Grade = 1
	Hard  Grade = 2
	Good  Grade = 3
	Easy  Grade = 4
)

// ParseGrade converts the external string form of a grade.
// Anything outside the four known grades is a caller contract violation.
func ParseGrade(s string) (Grade, error) {
	switch s {
	case "again":
		return Again, nil
	case "hard":
		return Hard, nil
	case "good":
		return Good, nil
	case "easy":
		return Easy, nil
	}
	return 0, fmt.Errorf("unknown grade %q", s)
}

func (g Grade) String() string {
	switch g {
	case Again:
		return "again"
	case Hard:
		return "hard"
	case Good:
		return "good"
	case Easy:
		return "easy"
	}
	return fmt.Sprintf("grade(%d)", int(g))
}

// Valid reports whether g is one of the four known grades.
func (g Grade) Valid() bool {
	return g >= Again && g <= Easy
}

// Correct reports whether the grade counts as a successful recall.
func (g Grade) Correct() bool {
	return g == Good || g == Easy
}

// CardType selects which drill modes a card participates in.
type CardType string

const (
	// CardTypeFlip cards are only ever shown as flip reviews.
	CardTypeFlip CardType = "flip"
	// CardTypeFlipType cards alternate randomly between flip and typed drills.
	CardTypeFlipType CardType = "flip_type"
)

// Card is a single flashcard with its scheduling state.
type Card struct {
	ID           string     `json:"id"`
	Front        string     `json:"front"`
	Back         string     `json:"back"`
	Ease         float64    `json:"ease"`
	Interval     int        `json:"interval"`
	Reps         int        `json:"reps"`
	Lapses       int        `json:"lapses"`
	Grade        *Grade     `json:"grade,omitempty"`
	DueDate      *time.Time `json:"dueDate,omitempty"`
	LastReviewed *time.Time `json:"lastReviewed,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	Type         CardType   `json:"cardType"`

	// Dirty flags, cleared only after a confirmed remote write.
	IsNew      bool `json:"isNew,omitempty"`
	IsModified bool `json:"isModified,omitempty"`
}

// Unstudied reports whether the card has never been through a review.
func (c *Card) Unstudied() bool {
	return c.DueDate == nil || c.Reps == 0
}

// LocalDay formats t as a local calendar date (YYYY-MM-DD).
// Day keys are always local dates, never UTC-shifted.
func LocalDay(t time.Time) string {
	return t.Local().Format(time.DateOnly)
}
