package spaced_repetition

import (
	"sort"
	"time"

	"github.com/example/reviewbot/pkg/models"
)

// Ladder schedules individual word reviews on a fixed list of day gaps
type Ladder struct {
	// Gap in days after the n-th review
	Days []int
	// Gap used once the list is exhausted
	FallbackDays int
}

// NewLadder returns a ladder with the default gaps
func NewLadder() *Ladder {
	return &Ladder{
		Days:         []int{0, 1, 2, 4, 7, 15},
		FallbackDays: 30, // about once a month
	}
}

// NextReviewDate returns when a word reviewed at last for the reviewCount-th
// time is due again. Gaps are whole 24h periods, not calendar days.
func (l *Ladder) NextReviewDate(last time.Time, reviewCount int) time.Time {
	days := l.FallbackDays
	if reviewCount >= 0 && reviewCount < len(l.Days) {
		days = l.Days[reviewCount]
	}
	return last.Add(time.Duration(days) * 24 * time.Hour)
}

// Advance records a review at now and sets the next review date
func (l *Ladder) Advance(word models.Word, now time.Time) models.Word {
	word.ReviewCount++
	reviewed := now
	next := l.NextReviewDate(now, word.ReviewCount)
	word.LastReviewed = &reviewed
	word.NextReview = &next
	return word
}

// DueWords returns the words whose next review is at or before now. Words
// that were never scheduled are not due. The most overdue come first.
func (l *Ladder) DueWords(words []models.Word, now time.Time) []models.Word {
	var due []models.Word
	for _, w := range words {
		if w.NextReview != nil && !w.NextReview.After(now) {
			due = append(due, w)
		}
	}

	sort.SliceStable(due, func(i, j int) bool {
		if !due[i].NextReview.Equal(*due[j].NextReview) {
			return due[i].NextReview.Before(*due[j].NextReview)
		}
		return due[i].Idx < due[j].Idx
	})
	return due
}

// NextWords returns at most limit due words
func (l *Ladder) NextWords(words []models.Word, now time.Time, limit int) []models.Word {
	due := l.DueWords(words, now)
	if limit >= 0 && len(due) > limit {
		return due[:limit]
	}
	return due
}
