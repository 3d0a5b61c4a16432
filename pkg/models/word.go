package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Translation is the output of one assistant action stored on a word
type Translation struct {
	Text   string `json:"text"`
	Format string `json:"format"` // "text", "markdown" or "latex"
}

// Translations maps an action name to its stored output
type Translations map[string]Translation

// Value implements driver.Valuer; translations are stored as JSON text
func (t Translations) Value() (driver.Value, error) {
	if t == nil {
		return "{}", nil
	}
	b, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (t *Translations) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*t = Translations{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("unsupported translations type %T", src)
	}
	out := Translations{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			return err
		}
	}
	*t = out
	return nil
}

// Word is one learning item inside a file
type Word struct {
	ID            int64        `json:"id" db:"id"`
	FileID        int64        `json:"file_id" db:"file_id"`
	Idx           int          `json:"idx" db:"idx"` // 1-based position inside the file
	Text          string       `json:"text" db:"text"`
	Translation   string       `json:"translation" db:"translation"`
	Pronunciation string       `json:"pronunciation" db:"pronunciation"`
	Translations  Translations `json:"translations" db:"translations"`
	ReviewCount   int          `json:"review_count" db:"review_count"`
	LastReviewed  *time.Time   `json:"last_reviewed,omitempty" db:"last_reviewed"`
	NextReview    *time.Time   `json:"next_review,omitempty" db:"next_review"`
	CreatedAt     time.Time    `json:"created_at" db:"created_at"`
}
