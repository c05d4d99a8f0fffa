// Package stats merges locally cached per-day review counters with the
// remote tallies and derives streaks and weekly aggregates from the result.
package stats

import (
	"context"
	"log/slog"
	"time"

	"github.com/d-lef/flashcard-webapp/internal/domain"
)

// RemoteReader is the read half of the gateway the aggregator needs.
type RemoteReader interface {
	FetchDayStats(ctx context.Context, start, end string) ([]domain.DayStat, error)
}

// LocalReader reads the locally tracked fallback state.
type LocalReader interface {
	DayStats(start, end string) ([]domain.DayStat, error)
	LoadDecks() ([]domain.Deck, error)
}

// Service computes merged statistics views.
type Service struct {
	remote RemoteReader
	local  LocalReader
	logger *slog.Logger
	now    func() time.Time
}

// New creates the aggregator.
func New(remote RemoteReader, local LocalReader, logger *slog.Logger) *Service {
	return &Service{remote: remote, local: local, logger: logger, now: time.Now}
}

// WithClock overrides the time source, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// MergedDayStats combines remote and local day stats for [start, end].
// Remote rows are the base; a local day that reached all_due_completed=true
// upgrades the remote flag (never downgrades), and local-only days are
// appended. Counters are taken from whichever source supplied the row,
// never summed. Read failures degrade to whatever source still answers.
func (s *Service) MergedDayStats(ctx context.Context, start, end string) []domain.DayStat {
	var remote []domain.DayStat
	if s.remote != nil {
		var err error
		remote, err = s.remote.FetchDayStats(ctx, start, end)
		if err != nil {
			s.logger.Warn("remote stats unavailable, using local only", "error", err)
			remote = nil
		}
	}

	local, err := s.local.DayStats(start, end)
	if err != nil {
		s.logger.Warn("local stats unavailable", "error", err)
		local = nil
	}

	if len(remote) == 0 {
		return local
	}

	localByDay := make(map[string]domain.DayStat, len(local))
	for _, st := range local {
		localByDay[st.Day] = st
	}

	merged := make([]domain.DayStat, 0, len(remote))
	remoteDays := make(map[string]bool, len(remote))
	for _, st := range remote {
		remoteDays[st.Day] = true
		if l, ok := localByDay[st.Day]; ok && l.Completed() && !st.Completed() {
			t := true
			st.AllDueCompleted = &t
		}
		merged = append(merged, st)
	}

	for _, st := range local {
		if !remoteDays[st.Day] {
			merged = append(merged, st)
		}
	}
	return merged
}

// Streak counts consecutive fully completed study days ending today, over the
// trailing 365 days. An incomplete today is forgiven while yesterday is
// complete: the user still has the rest of the day to keep the streak alive.
func (s *Service) Streak(ctx context.Context) int {
	today := s.now()
	yearAgo := today.AddDate(0, 0, -365)

	merged := s.MergedDayStats(ctx, domain.LocalDay(yearAgo), domain.LocalDay(today))
	complete := make(map[string]bool, len(merged))
	for _, st := range merged {
		if st.Completed() {
			complete[st.Day] = true
		}
	}

	streak := 0
	cursor := today
	if complete[domain.LocalDay(cursor)] {
		streak++
		cursor = cursor.AddDate(0, 0, -1)
	} else {
		yesterday := cursor.AddDate(0, 0, -1)
		if !complete[domain.LocalDay(yesterday)] {
			return 0
		}
		cursor = yesterday
	}

	for !cursor.Before(yearAgo) {
		if !complete[domain.LocalDay(cursor)] {
			break
		}
		streak++
		cursor = cursor.AddDate(0, 0, -1)
	}
	return streak
}

// Load assembles the stats bundle the overview renders from. Failures show
// up as zeroed sections, never as errors.
func (s *Service) Load(ctx context.Context) domain.Summary {
	today := s.now()
	todayKey := domain.LocalDay(today)

	monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())
	monthEnd := monthStart.AddDate(0, 1, -1)
	month := s.MergedDayStats(ctx, domain.LocalDay(monthStart), domain.LocalDay(monthEnd))

	todayStat := domain.DayStat{Day: todayKey}
	for _, st := range month {
		if st.Day == todayKey {
			todayStat = st
			break
		}
	}

	weekStart := startOfWeek(today)
	week := s.weekStats(s.MergedDayStats(ctx,
		domain.LocalDay(weekStart), domain.LocalDay(weekStart.AddDate(0, 0, 6))), weekStart)

	totalCards := 0
	if decks, err := s.local.LoadDecks(); err == nil {
		for _, d := range decks {
			totalCards += len(d.Cards)
		}
	} else {
		s.logger.Warn("cached decks unavailable for card count", "error", err)
	}

	return domain.Summary{
		Today:      todayStat,
		Week:       week,
		Month:      month,
		Streak:     s.Streak(ctx),
		TotalCards: totalCards,
	}
}

// weekStats sums the Monday-start week beginning at weekStart.
func (s *Service) weekStats(merged []domain.DayStat, weekStart time.Time) domain.WeekStat {
	byDay := make(map[string]domain.DayStat, len(merged))
	for _, st := range merged {
		byDay[st.Day] = st
	}

	var w domain.WeekStat
	correct := 0
	for i := 0; i < 7; i++ {
		day := domain.LocalDay(weekStart.AddDate(0, 0, i))
		if st, ok := byDay[day]; ok && st.Reviews > 0 {
			w.Reviews += st.Reviews
			correct += st.Correct
			w.Days++
		}
	}
	if w.Reviews > 0 {
		w.Accuracy = int(float64(correct)/float64(w.Reviews)*100 + 0.5)
	}
	return w
}

// startOfWeek returns the Monday on or before t.
func startOfWeek(t time.Time) time.Time {
	y, m, d := t.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	offset := (int(midnight.Weekday()) + 6) % 7
	return midnight.AddDate(0, 0, -offset)
}
