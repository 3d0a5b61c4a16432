package models

import "time"

// ReviewSettings is the saved review plan of a file
type ReviewSettings struct {
	DailyWords int       `json:"dailyWords"`
	Interval   []int     `json:"interval"` // review offsets in minutes
	StartTime  time.Time `json:"startTime"`
}

// File is a named word list
type File struct {
	ID             int64           `json:"id"`
	Name           string          `json:"name"`
	Category       string          `json:"category"`
	WordCount      int             `json:"word_count"`
	Words          []Word          `json:"words,omitempty"`
	ReviewSettings *ReviewSettings `json:"reviewSettings,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}
