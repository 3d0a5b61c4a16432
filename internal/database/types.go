package database

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/example/reviewbot/pkg/models"
)

// fileRow is the flat shape of a files row; review settings are nullable
type fileRow struct {
	ID             int64          `db:"id"`
	Name           string         `db:"name"`
	Category       string         `db:"category"`
	WordCount      int            `db:"word_count"`
	DailyWords     sql.NullInt64  `db:"daily_words"`
	ReviewInterval sql.NullString `db:"review_interval"`
	ReviewStart    sql.NullTime   `db:"review_start"`
	CreatedAt      sql.NullTime   `db:"created_at"`
}

func (r fileRow) toModel() (models.File, error) {
	file := models.File{
		ID:        r.ID,
		Name:      r.Name,
		Category:  r.Category,
		WordCount: r.WordCount,
		CreatedAt: r.CreatedAt.Time,
	}

	if !r.DailyWords.Valid {
		return file, nil
	}

	interval, err := decodeInterval(r.ReviewInterval.String)
	if err != nil {
		return models.File{}, fmt.Errorf("file %d: %w", r.ID, err)
	}
	file.ReviewSettings = &models.ReviewSettings{
		DailyWords: int(r.DailyWords.Int64),
		Interval:   interval,
		StartTime:  r.ReviewStart.Time,
	}
	return file, nil
}

func encodeInterval(interval []int) (string, error) {
	if interval == nil {
		interval = []int{}
	}
	b, err := json.Marshal(interval)
	if err != nil {
		return "", fmt.Errorf("failed to encode review interval: %w", err)
	}
	return string(b), nil
}

func decodeInterval(raw string) ([]int, error) {
	if raw == "" {
		return []int{}, nil
	}
	var interval []int
	if err := json.Unmarshal([]byte(raw), &interval); err != nil {
		return nil, fmt.Errorf("failed to decode review interval: %w", err)
	}
	return interval, nil
}
