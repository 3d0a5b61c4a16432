// Package review holds per-chat review planning state and the operations the
// bot runs against it.
package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/reviewbot/internal/interval"
	"github.com/example/reviewbot/internal/spaced_repetition"
	"github.com/example/reviewbot/internal/strategy"
	"github.com/example/reviewbot/internal/studyplan"
	"github.com/example/reviewbot/pkg/models"
)

// Errors returned by Manager
var (
	ErrNoFile       = errors.New("review: no file selected")
	ErrWordNotFound = errors.New("review: word not found")
)

// FileStore is the persistence the manager needs
type FileStore interface {
	GetAll(ctx context.Context) ([]models.File, error)
	GetByID(ctx context.Context, id int64) (*models.File, error)
	UpdateReviewSettings(ctx context.Context, id int64, settings models.ReviewSettings) error
	IsWordInFile(ctx context.Context, fileID int64, idx int, text string) (bool, error)
}

// WordStore records individual word reviews
type WordStore interface {
	ListByFile(ctx context.Context, fileID int64) ([]models.Word, error)
	MarkReviewed(ctx context.Context, id int64, reviewedAt, nextReview time.Time) error
}

// Defaults seed new sessions
type Defaults struct {
	DailyWords int
	StrategyID string
}

// Session is the planning state of one chat. It is not safe for concurrent use.
type Session struct {
	Registry   *strategy.Registry
	StrategyID string
	DailyWords int
	StartTime  time.Time
	File       *models.File
	Word       *models.Word
	TotalWords int
	Range      studyplan.Range
}

// Strategy returns the selected strategy
func (s *Session) Strategy() (strategy.Strategy, error) {
	return s.Registry.Get(s.StrategyID)
}

// Manager runs review operations against sessions
type Manager struct {
	files    FileStore
	words    WordStore
	ladder   *spaced_repetition.Ladder
	defaults Defaults
	logger   *slog.Logger
	now      func() time.Time
}

// NewManager creates a manager
func NewManager(files FileStore, words WordStore, defaults Defaults, logger *slog.Logger) *Manager {
	return &Manager{
		files:    files,
		words:    words,
		ladder:   spaced_repetition.NewLadder(),
		defaults: defaults,
		logger:   logger,
		now:      time.Now,
	}
}

// NewSession returns a session with the defaults and a fresh registry
func (m *Manager) NewSession(now time.Time) *Session {
	registry := strategy.NewRegistry()
	id := m.defaults.StrategyID
	if !registry.Has(id) {
		id = strategy.Standard
	}
	return &Session{
		Registry:   registry,
		StrategyID: id,
		DailyWords: m.defaults.DailyWords,
		StartTime:  now,
		Range:      studyplan.RangeToday,
	}
}

// ListFiles returns every stored file
func (m *Manager) ListFiles(ctx context.Context) ([]models.File, error) {
	files, err := m.files.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	return files, nil
}

// SelectFile loads a file into the session. Saved review settings replace the
// session's daily words and start time, and the saved intervals become a
// selected strategy named after the file.
func (m *Manager) SelectFile(ctx context.Context, s *Session, fileID int64) error {
	file, err := m.files.GetByID(ctx, fileID)
	if err != nil {
		return fmt.Errorf("select file %d: %w", fileID, err)
	}

	s.File = file
	s.Word = nil
	s.TotalWords = len(file.Words)

	if rs := file.ReviewSettings; rs != nil {
		if rs.DailyWords > 0 {
			s.DailyWords = rs.DailyWords
		}
		if !rs.StartTime.IsZero() {
			s.StartTime = rs.StartTime
		}
		fs := strategy.ForFile(file.ID, file.Name, rs.Interval)
		s.Registry.Put(fs)
		s.StrategyID = fs.ID
	}

	m.logger.Debug("file selected",
		slog.Int64("file_id", file.ID),
		slog.Int("total_words", s.TotalWords),
		slog.String("strategy", s.StrategyID),
	)
	return nil
}

// SelectStrategy makes a registered strategy current
func (m *Manager) SelectStrategy(s *Session, id string) (strategy.Strategy, error) {
	st, err := s.Registry.Get(id)
	if err != nil {
		return strategy.Strategy{}, err
	}
	s.StrategyID = st.ID
	return st, nil
}

// ApplySliderPositions stores slider notches in the custom slot and selects it
func (m *Manager) ApplySliderPositions(s *Session, positions []int) (strategy.Strategy, error) {
	if err := interval.ValidatePositions(positions); err != nil {
		return strategy.Strategy{}, err
	}
	custom := s.Registry.SetCustomFromPositions(positions)
	s.StrategyID = custom.ID
	return custom, nil
}

// SetDailyWords changes the number of new words per day
func (m *Manager) SetDailyWords(s *Session, n int) error {
	if n <= 0 {
		return fmt.Errorf("%w: daily words must be positive, got %d", studyplan.ErrInvalidArgument, n)
	}
	s.DailyWords = n
	return nil
}

// SelectWord marks the word study resumes from
func (m *Manager) SelectWord(s *Session, word models.Word) {
	w := word
	s.Word = &w
}

// SelectWordByIdx selects a word of the current file by its index
func (m *Manager) SelectWordByIdx(s *Session, idx int) (models.Word, error) {
	if s.File == nil {
		return models.Word{}, ErrNoFile
	}
	for _, w := range s.File.Words {
		if w.Idx == idx {
			m.SelectWord(s, w)
			return w, nil
		}
	}
	return models.Word{}, fmt.Errorf("%w: index %d", ErrWordNotFound, idx)
}

// ClearWord drops the selected word
func (m *Manager) ClearWord(s *Session) {
	s.Word = nil
}

// CycleRange steps the chart range and returns the new one
func (m *Manager) CycleRange(s *Session, step int) studyplan.Range {
	s.Range = studyplan.NextRange(s.Range, step)
	return s.Range
}

// PlannedWords is the number of words the plan covers. When the selected word
// belongs to the selected file, study resumes after it.
func (m *Manager) PlannedWords(ctx context.Context, s *Session) (int, error) {
	if s.File == nil || s.Word == nil {
		return s.TotalWords, nil
	}
	in, err := m.files.IsWordInFile(ctx, s.File.ID, s.Word.Idx, s.Word.Text)
	if err != nil {
		return 0, fmt.Errorf("check word: %w", err)
	}
	if !in {
		return s.TotalWords, nil
	}
	return studyplan.RemainingWords(s.TotalWords, s.Word.Idx), nil
}

// Plan generates the study plan for the session
func (m *Manager) Plan(ctx context.Context, s *Session) ([]studyplan.StudyDay, error) {
	st, err := s.Strategy()
	if err != nil {
		return nil, err
	}
	total, err := m.PlannedWords(ctx, s)
	if err != nil {
		return nil, err
	}
	return studyplan.Generate(s.DailyWords, total, st.Intervals, s.StartTime)
}

// Save persists the session's daily words and intervals on the selected file
// with the current time as the new start, and selects the file's strategy.
func (m *Manager) Save(ctx context.Context, s *Session) (models.ReviewSettings, error) {
	if s.File == nil {
		return models.ReviewSettings{}, ErrNoFile
	}
	st, err := s.Strategy()
	if err != nil {
		return models.ReviewSettings{}, err
	}

	settings := models.ReviewSettings{
		DailyWords: s.DailyWords,
		Interval:   st.Intervals,
		StartTime:  m.now(),
	}
	if err := m.files.UpdateReviewSettings(ctx, s.File.ID, settings); err != nil {
		return models.ReviewSettings{}, fmt.Errorf("save review settings: %w", err)
	}

	fs := strategy.ForFile(s.File.ID, s.File.Name, settings.Interval)
	s.Registry.Put(fs)
	s.StrategyID = fs.ID
	s.StartTime = settings.StartTime
	saved := settings
	s.File.ReviewSettings = &saved

	m.logger.Info("review settings saved",
		slog.Int64("file_id", s.File.ID),
		slog.Int("daily_words", settings.DailyWords),
		slog.Any("interval", settings.Interval),
	)
	return settings, nil
}

// DueWords returns up to limit words of the selected file that are due now
func (m *Manager) DueWords(ctx context.Context, s *Session, limit int) ([]models.Word, error) {
	if s.File == nil {
		return nil, ErrNoFile
	}
	words, err := m.words.ListByFile(ctx, s.File.ID)
	if err != nil {
		return nil, fmt.Errorf("due words: %w", err)
	}
	return m.ladder.NextWords(words, m.now(), limit), nil
}

// MarkReviewed records a review of the word at idx in the selected file and
// returns it with its next review date.
func (m *Manager) MarkReviewed(ctx context.Context, s *Session, idx int) (models.Word, error) {
	if s.File == nil {
		return models.Word{}, ErrNoFile
	}
	words, err := m.words.ListByFile(ctx, s.File.ID)
	if err != nil {
		return models.Word{}, fmt.Errorf("mark reviewed: %w", err)
	}
	for _, w := range words {
		if w.Idx != idx {
			continue
		}
		advanced := m.ladder.Advance(w, m.now())
		if err := m.words.MarkReviewed(ctx, w.ID, *advanced.LastReviewed, *advanced.NextReview); err != nil {
			return models.Word{}, fmt.Errorf("mark reviewed: %w", err)
		}
		return advanced, nil
	}
	return models.Word{}, fmt.Errorf("%w: index %d", ErrWordNotFound, idx)
}
