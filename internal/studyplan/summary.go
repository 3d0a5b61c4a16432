package studyplan

import (
	"fmt"
	"strings"
	"time"
)

// Summary aggregates a plan for display.
type Summary struct {
	Days         int
	TotalNew     int
	TotalReviews int
	PeakDate     string
	PeakReviews  int
	FirstDate    string
	LastDate     string
}

// Summarize totals a plan. The earliest day wins ties for the review peak.
func Summarize(plan []StudyDay) Summary {
	s := Summary{Days: len(plan)}
	if len(plan) == 0 {
		return s
	}

	s.FirstDate = plan[0].Date
	s.LastDate = plan[len(plan)-1].Date
	for _, day := range plan {
		s.TotalNew += day.NewWords
		s.TotalReviews += day.ReviewWords
		if day.ReviewWords > s.PeakReviews {
			s.PeakReviews = day.ReviewWords
			s.PeakDate = day.Date
		}
	}
	return s
}

// Range selects how much of a plan the chart shows.
type Range int

const (
	RangeToday Range = iota
	RangeWeek
	RangeMonth
)

var rangeNames = []string{"Today", "This Week", "This Month"}

func (r Range) String() string {
	if r < 0 || int(r) >= len(rangeNames) {
		return fmt.Sprintf("Range(%d)", int(r))
	}
	return rangeNames[r]
}

// Days is the number of plan days covered by the range.
func (r Range) Days() int {
	switch r {
	case RangeWeek:
		return 7
	case RangeMonth:
		return 30
	default:
		return 1
	}
}

// ParseRange accepts the display names as well as "today", "week" and "month".
func ParseRange(s string) (Range, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "today", "day":
		return RangeToday, nil
	case "this week", "week":
		return RangeWeek, nil
	case "this month", "month":
		return RangeMonth, nil
	}
	return RangeToday, fmt.Errorf("%w: unknown range %q", ErrInvalidArgument, s)
}

// NextRange steps through the ranges cyclically; step may be negative.
func NextRange(r Range, step int) Range {
	n := len(rangeNames)
	return Range(((int(r)+step)%n + n) % n)
}

// DayIndex is the plan day that now falls on for a plan starting at start.
// Times before start count as day 0.
func DayIndex(start, now time.Time) int {
	if now.Before(start) {
		return 0
	}
	return int(now.Sub(start) / (minutesPerDay * time.Minute))
}

// Window returns a copy of the days of plan covered by r, beginning with the
// day now falls on. A plan that has already ended yields no days.
func Window(plan []StudyDay, r Range, start, now time.Time) []StudyDay {
	from := min(DayIndex(start, now), len(plan))
	n := min(r.Days(), len(plan)-from)
	out := make([]StudyDay, n)
	copy(out, plan[from:from+n])
	return out
}

// RemainingWords is the number of words left when study resumes at word
// index fromIdx of a list of total words.
func RemainingWords(total, fromIdx int) int {
	if fromIdx <= 0 {
		return total
	}
	return max(total-fromIdx, 0)
}
