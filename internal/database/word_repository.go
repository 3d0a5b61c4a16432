package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/reviewbot/pkg/models"
	"github.com/jmoiron/sqlx"
)

const wordColumns = `id, file_id, idx, text, translation, pronunciation, translations,
	review_count, last_reviewed, next_review, created_at`

// WordRepository handles database operations for words
type WordRepository struct {
	db *sqlx.DB
}

// NewWordRepository creates a new repository instance
func NewWordRepository(db *sqlx.DB) *WordRepository {
	return &WordRepository{db: db}
}

// ListByFile returns the words of a file ordered by index
func (r *WordRepository) ListByFile(ctx context.Context, fileID int64) ([]models.Word, error) {
	words := []models.Word{}
	query := r.db.Rebind(`SELECT ` + wordColumns + ` FROM words WHERE file_id = ? ORDER BY idx`)
	if err := r.db.SelectContext(ctx, &words, query, fileID); err != nil {
		return nil, fmt.Errorf("failed to get words by file: %w", err)
	}
	return words, nil
}

// GetByID returns a word by ID
func (r *WordRepository) GetByID(ctx context.Context, id int64) (*models.Word, error) {
	var word models.Word
	query := r.db.Rebind(`SELECT ` + wordColumns + ` FROM words WHERE id = ?`)
	if err := r.db.GetContext(ctx, &word, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("word %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get word by ID: %w", err)
	}
	return &word, nil
}

// GetByText returns the first word of a file with the given text
func (r *WordRepository) GetByText(ctx context.Context, fileID int64, text string) (*models.Word, error) {
	var word models.Word
	query := r.db.Rebind(`SELECT ` + wordColumns + ` FROM words WHERE file_id = ? AND text = ? ORDER BY idx LIMIT 1`)
	if err := r.db.GetContext(ctx, &word, query, fileID, text); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("word %q: %w", text, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get word by text: %w", err)
	}
	return &word, nil
}

// Add appends a word to the end of a file
func (r *WordRepository) Add(ctx context.Context, fileID int64, word models.Word) (*models.Word, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var last int
	query := tx.Rebind(`SELECT COALESCE(MAX(idx), 0) FROM words WHERE file_id = ?`)
	if err := tx.GetContext(ctx, &last, query, fileID); err != nil {
		return nil, fmt.Errorf("failed to get last word index: %w", err)
	}
	word.Idx = last + 1

	id, err := insertWord(ctx, tx, fileID, word)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit word: %w", err)
	}
	return r.GetByID(ctx, id)
}

// SaveTranslation stores the output of an assistant action on a word. A
// missing word is added to the file; an existing entry for the same action
// gets the new text appended on its own line.
func (r *WordRepository) SaveTranslation(ctx context.Context, fileID int64, text, action string, tr models.Translation) (*models.Word, error) {
	word, err := r.GetByText(ctx, fileID, text)
	if errors.Is(err, ErrNotFound) {
		return r.Add(ctx, fileID, models.Word{
			Text:         text,
			Translations: models.Translations{action: tr},
		})
	}
	if err != nil {
		return nil, err
	}

	if word.Translations == nil {
		word.Translations = models.Translations{}
	}
	if prev, ok := word.Translations[action]; ok && prev.Text != "" {
		tr.Text = prev.Text + "\n" + tr.Text
	}
	word.Translations[action] = tr

	query := r.db.Rebind(`UPDATE words SET translations = ? WHERE id = ?`)
	if _, err := r.db.ExecContext(ctx, query, word.Translations, word.ID); err != nil {
		return nil, fmt.Errorf("failed to save translation: %w", err)
	}
	return word, nil
}

// MarkReviewed records a review and the date the word is due next
func (r *WordRepository) MarkReviewed(ctx context.Context, id int64, reviewedAt, nextReview time.Time) error {
	query := r.db.Rebind(`
		UPDATE words
		SET review_count = review_count + 1, last_reviewed = ?, next_review = ?
		WHERE id = ?
	`)
	result, err := r.db.ExecContext(ctx, query, reviewedAt, nextReview, id)
	if err != nil {
		return fmt.Errorf("failed to mark word reviewed: %w", err)
	}
	return expectAffected(result, "word", id)
}

// Delete removes a word
func (r *WordRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM words WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete word: %w", err)
	}
	return expectAffected(result, "word", id)
}

func insertWord(ctx context.Context, q sqlx.ExtContext, fileID int64, w models.Word) (int64, error) {
	translations := w.Translations
	if translations == nil {
		translations = models.Translations{}
	}

	var id int64
	query := q.Rebind(`
		INSERT INTO words (file_id, idx, text, translation, pronunciation, translations)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id
	`)
	err := q.QueryRowxContext(ctx, query, fileID, w.Idx, w.Text, w.Translation, w.Pronunciation, translations).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert word %q: %w", w.Text, err)
	}
	return id, nil
}
