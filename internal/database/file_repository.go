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

const fileColumns = `f.id, f.name, f.category, f.daily_words, f.review_interval, f.review_start, f.created_at,
	(SELECT COUNT(*) FROM words w WHERE w.file_id = f.id) AS word_count`

// FileRepository handles database operations for word files
type FileRepository struct {
	db    *sqlx.DB
	words *WordRepository
}

// NewFileRepository creates a new repository instance
func NewFileRepository(db *sqlx.DB) *FileRepository {
	return &FileRepository{db: db, words: NewWordRepository(db)}
}

// Create inserts a file together with its words. Words without an index are
// numbered by their position in the slice, starting at 1.
func (r *FileRepository) Create(ctx context.Context, name, category string, words []models.Word) (int64, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var id int64
	query := tx.Rebind(`INSERT INTO files (name, category) VALUES (?, ?) RETURNING id`)
	if err := tx.QueryRowxContext(ctx, query, name, category).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to create file: %w", err)
	}

	for i, w := range words {
		if w.Idx == 0 {
			w.Idx = i + 1
		}
		if _, err := insertWord(ctx, tx, id, w); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit file: %w", err)
	}
	return id, nil
}

// GetByID returns a file with all of its words
func (r *FileRepository) GetByID(ctx context.Context, id int64) (*models.File, error) {
	var row fileRow
	query := r.db.Rebind(`SELECT ` + fileColumns + ` FROM files f WHERE f.id = ?`)
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("file %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get file: %w", err)
	}

	file, err := row.toModel()
	if err != nil {
		return nil, err
	}

	file.Words, err = r.words.ListByFile(ctx, id)
	if err != nil {
		return nil, err
	}
	return &file, nil
}

// GetAll returns every file without its words
func (r *FileRepository) GetAll(ctx context.Context) ([]models.File, error) {
	return r.list(ctx, `SELECT `+fileColumns+` FROM files f ORDER BY f.id`)
}

// ListWithReviewSettings returns the files that have a saved review plan
func (r *FileRepository) ListWithReviewSettings(ctx context.Context) ([]models.File, error) {
	return r.list(ctx, `SELECT `+fileColumns+` FROM files f WHERE f.daily_words IS NOT NULL ORDER BY f.id`)
}

func (r *FileRepository) list(ctx context.Context, query string, args ...interface{}) ([]models.File, error) {
	var rows []fileRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	files := make([]models.File, 0, len(rows))
	for _, row := range rows {
		file, err := row.toModel()
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	return files, nil
}

// UpdateReviewSettings stores the review plan of a file
func (r *FileRepository) UpdateReviewSettings(ctx context.Context, id int64, settings models.ReviewSettings) error {
	interval, err := encodeInterval(settings.Interval)
	if err != nil {
		return err
	}

	query := r.db.Rebind(`
		UPDATE files
		SET daily_words = ?, review_interval = ?, review_start = ?, updated_at = ?
		WHERE id = ?
	`)
	result, err := r.db.ExecContext(ctx, query, settings.DailyWords, interval, settings.StartTime, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update review settings: %w", err)
	}
	return expectAffected(result, "file", id)
}

// Delete removes a file and its words
func (r *FileRepository) Delete(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM words WHERE file_id = ?`), id); err != nil {
		return fmt.Errorf("failed to delete words: %w", err)
	}
	result, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM files WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	if err := expectAffected(result, "file", id); err != nil {
		return err
	}
	return tx.Commit()
}

// WordCount returns the number of words in a file
func (r *FileRepository) WordCount(ctx context.Context, id int64) (int, error) {
	var count int
	query := r.db.Rebind(`SELECT COUNT(*) FROM words WHERE file_id = ?`)
	if err := r.db.GetContext(ctx, &count, query, id); err != nil {
		return 0, fmt.Errorf("failed to count words: %w", err)
	}
	return count, nil
}

// IsWordInFile reports whether the word at idx with the given text belongs to the file
func (r *FileRepository) IsWordInFile(ctx context.Context, fileID int64, idx int, text string) (bool, error) {
	var count int
	query := r.db.Rebind(`SELECT COUNT(*) FROM words WHERE file_id = ? AND idx = ? AND text = ?`)
	if err := r.db.GetContext(ctx, &count, query, fileID, idx, text); err != nil {
		return false, fmt.Errorf("failed to look up word: %w", err)
	}
	return count > 0, nil
}

func expectAffected(result sql.Result, what string, id int64) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", what, id, ErrNotFound)
	}
	return nil
}
