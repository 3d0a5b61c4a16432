// Package studyplan projects a word list onto a calendar: how many new words
// are introduced each day and how many earlier words come back for review.
package studyplan

import (
	"errors"
	"fmt"
	"time"
)

// DateKeyLayout is the day key used by the chart renderer. It carries no
// year, so plans longer than a year fold reviews from different years onto
// the same key.
const DateKeyLayout = "01-02"

// FullDateLayout keeps the year in the day key.
const FullDateLayout = "2006-01-02"

const minutesPerDay = 1440

// ErrInvalidArgument is returned when a plan cannot be built from the inputs.
var ErrInvalidArgument = errors.New("studyplan: invalid argument")

// StudyDay is one calendar day of a plan.
type StudyDay struct {
	Date        string `json:"date"`
	NewWords    int    `json:"newWords"`
	ReviewWords int    `json:"reviewWords"`
}

// Planner builds study plans. The zero value keys days with DateKeyLayout.
type Planner struct {
	KeyLayout string
}

// Generate builds a plan with the default Planner.
func Generate(dailyWords, totalWords int, reviewIntervals []int, start time.Time) ([]StudyDay, error) {
	return Planner{}.Generate(dailyWords, totalWords, reviewIntervals, start)
}

// Generate introduces dailyWords new words per day until totalWords are
// covered, schedules every introduction day's words again at each offset in
// reviewIntervals (minutes), and extends the plan until the last scheduled
// review is on the calendar.
//
// The final day may introduce fewer than dailyWords words; its words are not
// scheduled for review. Offsets need not be sorted.
func (p Planner) Generate(dailyWords, totalWords int, reviewIntervals []int, start time.Time) ([]StudyDay, error) {
	if err := validate(dailyWords, totalWords, reviewIntervals); err != nil {
		return nil, err
	}

	layout := p.layout()
	daysRequired := (totalWords + dailyWords - 1) / dailyWords

	plan := make([]StudyDay, 0, daysRequired)
	reviewsByDate := make(map[string]int)
	cumulativeWords := 0
	lastReviewDay := 0.0
	scheduled := false

	for day := 0; day < daysRequired; day++ {
		currentDate := addMinutes(start, day*minutesPerDay)
		key := currentDate.Format(layout)

		plan = append(plan, StudyDay{
			Date:        key,
			NewWords:    dailyWords,
			ReviewWords: reviewsByDate[key],
		})

		cumulativeWords += dailyWords
		if cumulativeWords > totalWords {
			plan[len(plan)-1].NewWords -= cumulativeWords - totalWords
			break
		}

		for _, offset := range reviewIntervals {
			reviewKey := addMinutes(currentDate, offset).Format(layout)
			reviewsByDate[reviewKey] += dailyWords
			scheduled = true

			reviewDay := float64(offset+day*minutesPerDay) / minutesPerDay
			if reviewDay > lastReviewDay {
				lastReviewDay = reviewDay
			}
		}
	}

	// Reviews may land on days that were emitted before they were scheduled.
	for i := range plan {
		plan[i].ReviewWords = reviewsByDate[plan[i].Date]
	}

	if !scheduled {
		return plan, nil
	}

	for float64(len(plan)) <= lastReviewDay {
		key := addMinutes(start, len(plan)*minutesPerDay).Format(layout)
		plan = append(plan, StudyDay{
			Date:        key,
			ReviewWords: reviewsByDate[key],
		})
	}

	return plan, nil
}

func (p Planner) layout() string {
	if p.KeyLayout == "" {
		return DateKeyLayout
	}
	return p.KeyLayout
}

func validate(dailyWords, totalWords int, reviewIntervals []int) error {
	if dailyWords <= 0 {
		return fmt.Errorf("%w: daily words must be > 0 (got %d)", ErrInvalidArgument, dailyWords)
	}
	if totalWords < 0 {
		return fmt.Errorf("%w: total words must be >= 0 (got %d)", ErrInvalidArgument, totalWords)
	}
	for i, offset := range reviewIntervals {
		if offset < 0 {
			return fmt.Errorf("%w: review interval %d is negative (got %d)", ErrInvalidArgument, i, offset)
		}
	}
	return nil
}

func addMinutes(t time.Time, minutes int) time.Time {
	return t.Add(time.Duration(minutes) * time.Minute)
}
