// Package config defines the bot configuration and loads it from defaults,
// an optional YAML file and BOT_* environment variables.
package config

import (
	"time"

	"github.com/go-telegram/bot/models"
)

// Config is the complete application configuration.
type Config struct {
	Logger     LoggerConfig     `mapstructure:"logger"`
	Telegram   TelegramConfig   `mapstructure:"telegram"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Gemini     GeminiConfig     `mapstructure:"gemini"`
	Index      IndexConfig      `mapstructure:"index"`
	Session    SessionConfig    `mapstructure:"session"`
	Stats      StatsConfig      `mapstructure:"stats"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
	Messages   MessagesConfig   `mapstructure:"messages"`
}

// LoggerConfig controls log output.
type LoggerConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// TelegramConfig holds the bot credentials and the operator allowlist.
type TelegramConfig struct {
	Token        string        `mapstructure:"token"          validate:"required"`
	AdminUserIDs []int64       `mapstructure:"admin_user_ids" validate:"dive,gt=0"`
	EphemeralTTL time.Duration `mapstructure:"ephemeral_ttl"  validate:"gte=0"`

	// BotInfo is filled from getMe at startup.
	BotInfo *models.User `mapstructure:"-"`
}

// StorageConfig locates the request ledger.
type StorageConfig struct {
	Root string `mapstructure:"root" validate:"required"`
}

// ClassifierConfig extends the built-in keyword lists.
type ClassifierConfig struct {
	ExtraPersonalKeywords []string `mapstructure:"extra_personal_keywords"`
	ExtraOfferKeywords    []string `mapstructure:"extra_offer_keywords"`
	ExtraPersonNames      []string `mapstructure:"extra_person_names"`
}

// GeminiConfig enables entity extraction through the Gemini API.
type GeminiConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	APIKey            string        `mapstructure:"api_key"             validate:"required_if=Enabled true"`
	ModelName         string        `mapstructure:"model_name"          validate:"required_if=Enabled true"`
	Temperature       float32       `mapstructure:"temperature"         validate:"gte=0,lte=2"`
	MaxRetries        int           `mapstructure:"max_retries"         validate:"gte=0"`
	RetryDelaySeconds int           `mapstructure:"retry_delay_seconds" validate:"gte=0"`
	Timeout           time.Duration `mapstructure:"timeout"             validate:"gte=0"`

	// BreakerFailures consecutive failures open the circuit for
	// BreakerCooldown; the dictionary extractor serves meanwhile.
	BreakerFailures int           `mapstructure:"breaker_failures" validate:"gte=1"`
	BreakerCooldown time.Duration `mapstructure:"breaker_cooldown" validate:"gt=0"`
}

// IndexConfig enables the SQLite request index.
type IndexConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path" validate:"required_if=Enabled true"`
}

// SessionConfig bounds how long an unanswered prompt is remembered.
type SessionConfig struct {
	IdleTimeout time.Duration `mapstructure:"idle_timeout" validate:"gt=0"`
}

// StatsConfig sets the list lengths of the operator views.
type StatsConfig struct {
	TopCategories int `mapstructure:"top_categories" validate:"gte=1"`
	TopSenders    int `mapstructure:"top_senders"    validate:"gte=1"`
}

// SchedulerConfig maps task names to their schedule.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks" validate:"dive"`
}

// TaskConfig schedules one task with a six-field cron expression.
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule" validate:"required_if=Enabled true"`
}

// MessagesConfig holds every user-visible text.
type MessagesConfig struct {
	Welcome         string `mapstructure:"welcome"          validate:"required"`
	Help            string `mapstructure:"help"             validate:"required"`
	WriteRequest    string `mapstructure:"write_request"    validate:"required"`
	Accepted        string `mapstructure:"accepted"         validate:"required"`
	PressButton     string `mapstructure:"press_button"     validate:"required"`
	SaveFailed      string `mapstructure:"save_failed"      validate:"required"`
	Cancelled       string `mapstructure:"cancelled"        validate:"required"`
	NothingToCancel string `mapstructure:"nothing_to_cancel" validate:"required"`
	NotAuthorized   string `mapstructure:"not_authorized"   validate:"required"`
	GeneralError    string `mapstructure:"general_error"    validate:"required"`

	StatsTotalFmt      string `mapstructure:"stats_total_fmt"      validate:"required"`
	StatsByCategory    string `mapstructure:"stats_by_category"    validate:"required"`
	StatsCategoryFmt   string `mapstructure:"stats_category_fmt"   validate:"required"`
	TopCategoriesTitle string `mapstructure:"top_categories_title" validate:"required"`
	TopCategoryFmt     string `mapstructure:"top_category_fmt"     validate:"required"`
	TopUsersTitle      string `mapstructure:"top_users_title"      validate:"required"`
	TopUserFmt         string `mapstructure:"top_user_fmt"         validate:"required"`

	ButtonSend          string `mapstructure:"button_send"           validate:"required"`
	ButtonHelp          string `mapstructure:"button_help"           validate:"required"`
	ButtonStats         string `mapstructure:"button_stats"          validate:"required"`
	ButtonTopCategories string `mapstructure:"button_top_categories" validate:"required"`
	ButtonTopUsers      string `mapstructure:"button_top_users"      validate:"required"`
}

// IsPrivileged reports whether userID is on the operator allowlist.
func (c *Config) IsPrivileged(userID int64) bool {
	for _, id := range c.Telegram.AdminUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}
