package domain

// DayStat is the per-day review tally, keyed uniquely by local day.
//
// AllDueCompleted is written by a separate end-of-session path and must never
// be clobbered by counter increments; nil means "never evaluated".
type DayStat struct {
	Day             string `json:"day"`
	Reviews         int    `json:"reviews"`
	Correct         int    `json:"correct"`
	Lapses          int    `json:"lapses"`
	AllDueCompleted *bool  `json:"allDueCompleted,omitempty"`
}

// Completed reports whether every due card was studied on this day.
func (s DayStat) Completed() bool {
	return s.AllDueCompleted != nil && *s.AllDueCompleted
}

// WeekStat aggregates the Monday-start week containing today.
type WeekStat struct {
	Reviews  int `json:"reviews"`
	Accuracy int `json:"accuracy"`
	Days     int `json:"days"`
}

// Summary is the bundle the stats view renders from.
type Summary struct {
	Today      DayStat   `json:"today"`
	Week       WeekStat  `json:"week"`
	Month      []DayStat `json:"month"`
	Streak     int       `json:"streak"`
	TotalCards int       `json:"totalCards"`
}
