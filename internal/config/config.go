package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/example/reviewbot/internal/database"
	"github.com/example/reviewbot/internal/strategy"
)

// Config is the root application configuration.
type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Database  DatabaseConfig  `yaml:"database"`
	Review    ReviewConfig    `yaml:"review"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	OpenAI    OpenAIConfig    `yaml:"openai"`
	Log       LogConfig       `yaml:"log"`
}

// TelegramConfig holds bot settings.
type TelegramConfig struct {
	Token string `yaml:"token" env:"TELEGRAM_BOT_TOKEN" env-required:"true"`
	// Comma-separated chat ids allowed to import and delete files; empty allows everyone
	AdminIDsRaw string `yaml:"admin_ids" env:"ADMIN_USER_IDS"`
	// Chat that receives daily reminders; 0 disables them
	NotifyChatID int64 `yaml:"notify_chat_id" env:"NOTIFY_CHAT_ID" env-default:"0"`
	Debug        bool  `yaml:"debug"          env:"TELEGRAM_DEBUG" env-default:"false"`

	AdminIDs []int64 `yaml:"-"`
}

// DatabaseConfig selects the storage driver.
type DatabaseConfig struct {
	Driver string `yaml:"driver" env:"DB_TYPE" env-default:"sqlite3"`
	DSN    string `yaml:"dsn"    env:"DATABASE_DSN"`
}

// ReviewConfig holds defaults for new review sessions.
type ReviewConfig struct {
	DailyWords      int    `yaml:"daily_words"      env:"REVIEW_DAILY_WORDS"      env-default:"20"`
	DefaultStrategy string `yaml:"default_strategy" env:"REVIEW_DEFAULT_STRATEGY" env-default:"standard"`
}

// SchedulerConfig holds reminder settings.
type SchedulerConfig struct {
	Enabled      bool   `yaml:"enabled"       env:"ENABLE_SCHEDULER"        env-default:"true"`
	ReminderTime string `yaml:"reminder_time" env:"REMINDER_TIME"           env-default:"08:00"`
	StartHour    int    `yaml:"start_hour"    env:"NOTIFICATION_START_HOUR" env-default:"4"`
	EndHour      int    `yaml:"end_hour"      env:"NOTIFICATION_END_HOUR"   env-default:"18"`
	Timezone     string `yaml:"timezone"      env:"TZ_NAME"                 env-default:"UTC"`
}

// OpenAIConfig holds assistant settings. An empty key disables the assistant.
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"  env:"OPENAI_API_KEY"`
	Model   string `yaml:"model"    env:"OPENAI_MODEL"    env-default:"gpt-4o-mini"`
	BaseURL string `yaml:"base_url" env:"OPENAI_BASE_URL" env-default:"https://api.openai.com/v1"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"text"`
}

// IsAdmin reports whether chatID may manage files.
func (t TelegramConfig) IsAdmin(chatID int64) bool {
	if len(t.AdminIDs) == 0 {
		return true
	}
	for _, id := range t.AdminIDs {
		if id == chatID {
			return true
		}
	}
	return false
}

// AssistantEnabled reports whether an OpenAI key is configured.
func (o OpenAIConfig) AssistantEnabled() bool {
	return o.APIKey != ""
}

// Validate performs business-rule validation on the loaded configuration.
// Load calls it automatically.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case database.DriverSQLite:
	case database.DriverPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for postgres")
		}
	default:
		return fmt.Errorf("database.driver must be %q or %q (got %q)", database.DriverSQLite, database.DriverPostgres, c.Database.Driver)
	}

	if c.Review.DailyWords <= 0 {
		return fmt.Errorf("review.daily_words must be > 0 (got %d)", c.Review.DailyWords)
	}
	if !strategy.NewRegistry().Has(c.Review.DefaultStrategy) {
		return fmt.Errorf("review.default_strategy %q is not a built-in strategy", c.Review.DefaultStrategy)
	}

	if err := c.Scheduler.validate(); err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json (got %q)", c.Log.Format)
	}

	ids, err := ParseChatIDs(c.Telegram.AdminIDsRaw)
	if err != nil {
		return fmt.Errorf("telegram.admin_ids: %w", err)
	}
	c.Telegram.AdminIDs = ids

	return nil
}

func (s *SchedulerConfig) validate() error {
	if s.StartHour < 0 || s.StartHour > 23 {
		return fmt.Errorf("start_hour must be in [0, 23] (got %d)", s.StartHour)
	}
	if s.EndHour < 0 || s.EndHour > 23 {
		return fmt.Errorf("end_hour must be in [0, 23] (got %d)", s.EndHour)
	}
	if s.StartHour > s.EndHour {
		return fmt.Errorf("start_hour %d is after end_hour %d", s.StartHour, s.EndHour)
	}
	if _, _, err := ParseClock(s.ReminderTime); err != nil {
		return fmt.Errorf("reminder_time: %w", err)
	}
	return nil
}

// ParseChatIDs parses a comma-separated list of chat ids. An empty string
// returns a nil slice.
func ParseChatIDs(raw string) ([]int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid chat id %q: %w", p, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ParseClock parses an "HH:MM" wall-clock time.
func ParseClock(raw string) (hour, minute int, err error) {
	h, m, ok := strings.Cut(strings.TrimSpace(raw), ":")
	if !ok {
		return 0, 0, fmt.Errorf("expected HH:MM, got %q", raw)
	}
	hour, err = strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", raw)
	}
	minute, err = strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", raw)
	}
	return hour, minute, nil
}
