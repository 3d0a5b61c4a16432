package spaced_repetition

import (
	"testing"
	"time"

	"github.com/example/reviewbot/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(day int) *time.Time {
	t := time.Date(2024, 1, day, 8, 0, 0, 0, time.UTC)
	return &t
}

func TestNextReviewDate(t *testing.T) {
	l := NewLadder()
	last := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		reviewCount int
		wantDays    int
	}{
		{0, 0},
		{1, 1},
		{2, 2},
		{3, 4},
		{4, 7},
		{5, 15},
		{6, 30},
		{50, 30},
		{-1, 30},
	}
	for _, tt := range tests {
		got := l.NextReviewDate(last, tt.reviewCount)
		assert.Equal(t, last.Add(time.Duration(tt.wantDays)*24*time.Hour), got, "reviewCount %d", tt.reviewCount)
	}
}

func TestAdvance(t *testing.T) {
	l := NewLadder()
	now := time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)

	w := l.Advance(models.Word{Text: "go"}, now)
	assert.Equal(t, 1, w.ReviewCount)
	require.NotNil(t, w.LastReviewed)
	require.NotNil(t, w.NextReview)
	assert.Equal(t, now, *w.LastReviewed)
	assert.Equal(t, now.AddDate(0, 0, 1), *w.NextReview)

	w = l.Advance(w, now.AddDate(0, 0, 1))
	assert.Equal(t, 2, w.ReviewCount)
	assert.Equal(t, now.AddDate(0, 0, 3), *w.NextReview)
}

func TestDueWords(t *testing.T) {
	l := NewLadder()
	now := *at(10)

	words := []models.Word{
		{Idx: 1, Text: "never"},
		{Idx: 2, Text: "later", NextReview: at(11)},
		{Idx: 3, Text: "today", NextReview: at(10)},
		{Idx: 4, Text: "old", NextReview: at(2)},
		{Idx: 5, Text: "also-today", NextReview: at(10)},
	}

	due := l.DueWords(words, now)
	texts := make([]string, len(due))
	for i, w := range due {
		texts[i] = w.Text
	}
	assert.Equal(t, []string{"old", "today", "also-today"}, texts)

	assert.Len(t, l.NextWords(words, now, 2), 2)
	assert.Len(t, l.NextWords(words, now, 10), 3)
	assert.Empty(t, l.DueWords(nil, now))
}
