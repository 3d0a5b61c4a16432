package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/reviewbot/internal/studyplan"
	"github.com/example/reviewbot/pkg/models"
	"github.com/go-co-op/gocron"
)

// Default notification window
const (
	DefaultNotificationStartHour = 4
	DefaultNotificationEndHour   = 18
)

// Reminder is today's workload for one file
type Reminder struct {
	FileID      int64
	FileName    string
	Date        string
	NewWords    int
	ReviewWords int
}

// Notifier delivers reminders
type Notifier interface {
	SendReminder(ctx context.Context, r Reminder) error
}

// PlanStore lists files with saved review plans
type PlanStore interface {
	ListWithReviewSettings(ctx context.Context) ([]models.File, error)
	GetByID(ctx context.Context, id int64) (*models.File, error)
}

// Config controls when reminders go out
type Config struct {
	At        string // "HH:MM" in Location
	StartHour int
	EndHour   int
	Location  *time.Location
}

// Scheduler manages scheduled tasks for the application
type Scheduler struct {
	scheduler *gocron.Scheduler
	store     PlanStore
	notifier  Notifier
	cfg       Config
	logger    *slog.Logger
	now       func() time.Time
}

// New creates a new scheduler instance
func New(store PlanStore, notifier Notifier, cfg Config, logger *slog.Logger) *Scheduler {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(cfg.Location),
		store:     store,
		notifier:  notifier,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// Start schedules the daily reminder job and runs the scheduler in the background
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.scheduler.Every(1).Day().At(s.cfg.At).Do(func() {
		if err := s.checkAndSendReminders(ctx); err != nil {
			s.logger.Error("reminder check failed", slog.Any("error", err))
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule reminders: %w", err)
	}

	s.scheduler.StartAsync()
	s.logger.Info("scheduler started", slog.String("at", s.cfg.At), slog.String("tz", s.cfg.Location.String()))
	return nil
}

// Stop terminates all scheduled tasks
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// checkAndSendReminders sends today's workload for every file with a saved plan
func (s *Scheduler) checkAndSendReminders(ctx context.Context) error {
	now := s.now().In(s.cfg.Location)

	if hour := now.Hour(); hour < s.cfg.StartHour || hour > s.cfg.EndHour {
		s.logger.Info("outside notification hours, skipping reminders",
			slog.Int("hour", hour),
			slog.Int("start_hour", s.cfg.StartHour),
			slog.Int("end_hour", s.cfg.EndHour),
		)
		return nil
	}

	files, err := s.store.ListWithReviewSettings(ctx)
	if err != nil {
		return fmt.Errorf("failed to list planned files: %w", err)
	}

	sent := 0
	for _, file := range files {
		r, ok, err := s.reminderFor(file, now)
		if err != nil {
			s.logger.Warn("skipping file with invalid plan", slog.Int64("file_id", file.ID), slog.Any("error", err))
			continue
		}
		if !ok {
			continue
		}
		if err := s.notifier.SendReminder(ctx, r); err != nil {
			s.logger.Error("failed to send reminder", slog.Int64("file_id", file.ID), slog.Any("error", err))
			continue
		}
		sent++
	}

	s.logger.Info("reminders sent", slog.Int("files", len(files)), slog.Int("sent", sent))
	return nil
}

// RunManualCheck sends today's reminder for one file, ignoring the notification window.
// It reports whether anything was due.
func (s *Scheduler) RunManualCheck(ctx context.Context, fileID int64) (bool, error) {
	file, err := s.store.GetByID(ctx, fileID)
	if err != nil {
		return false, err
	}
	if file.ReviewSettings == nil {
		return false, nil
	}

	r, ok, err := s.reminderFor(*file, s.now().In(s.cfg.Location))
	if err != nil || !ok {
		return false, err
	}
	return true, s.notifier.SendReminder(ctx, r)
}

// reminderFor finds today's entry in the file's plan. Days without work are skipped.
func (s *Scheduler) reminderFor(file models.File, now time.Time) (Reminder, bool, error) {
	rs := file.ReviewSettings
	if rs == nil {
		return Reminder{}, false, nil
	}

	planner := studyplan.Planner{KeyLayout: studyplan.FullDateLayout}
	plan, err := planner.Generate(rs.DailyWords, file.WordCount, rs.Interval, rs.StartTime.In(s.cfg.Location))
	if err != nil {
		return Reminder{}, false, err
	}

	today := now.Format(studyplan.FullDateLayout)
	for _, day := range plan {
		if day.Date != today {
			continue
		}
		if day.NewWords == 0 && day.ReviewWords == 0 {
			return Reminder{}, false, nil
		}
		return Reminder{
			FileID:      file.ID,
			FileName:    file.Name,
			Date:        today,
			NewWords:    day.NewWords,
			ReviewWords: day.ReviewWords,
		}, true, nil
	}
	return Reminder{}, false, nil
}
