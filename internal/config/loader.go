package config

import (
	"errors"
	"fmt"
	"io/fs"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// ErrConfiguration wraps every loading or validation failure.
var ErrConfiguration = errors.New("configuration error")

// LoadConfig builds the configuration from, in increasing precedence:
// built-in defaults, the YAML file at path (a missing file is fine) and
// BOT_* environment variables, where BOT_TELEGRAM_TOKEN sets telegram.token.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("BOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("%w: failed to read config file %s: %w", ErrConfiguration, path, err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %w", ErrConfiguration, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the struct tags of the whole configuration.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", DefaultLogLevel)
	v.SetDefault("logger.json", false)

	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.admin_user_ids", []int64{})
	v.SetDefault("telegram.ephemeral_ttl", DefaultEphemeralTTL)

	v.SetDefault("storage.root", DefaultStorageRoot)

	v.SetDefault("classifier.extra_personal_keywords", []string{})
	v.SetDefault("classifier.extra_offer_keywords", []string{})
	v.SetDefault("classifier.extra_person_names", []string{})

	v.SetDefault("gemini.enabled", false)
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model_name", DefaultGeminiModel)
	v.SetDefault("gemini.temperature", 0.0)
	v.SetDefault("gemini.max_retries", DefaultGeminiMaxRetries)
	v.SetDefault("gemini.retry_delay_seconds", DefaultGeminiRetryDelay)
	v.SetDefault("gemini.timeout", DefaultGeminiTimeout)
	v.SetDefault("gemini.breaker_failures", DefaultBreakerFailures)
	v.SetDefault("gemini.breaker_cooldown", DefaultBreakerCooldown)

	v.SetDefault("index.enabled", false)
	v.SetDefault("index.path", DefaultIndexPath)

	v.SetDefault("session.idle_timeout", DefaultSessionIdle)

	v.SetDefault("stats.top_categories", DefaultTopCategories)
	v.SetDefault("stats.top_senders", DefaultTopSenders)

	tasks := map[string]string{
		TaskSessionEviction: DefaultEvictionSchedule,
		TaskIndexRebuild:    DefaultRebuildSchedule,
		TaskSQLMaintenance:  DefaultMaintenanceSchedule,
	}
	for name, schedule := range tasks {
		v.SetDefault("scheduler.tasks."+name+".enabled", true)
		v.SetDefault("scheduler.tasks."+name+".schedule", schedule)
	}

	// One default per message field, keyed by its mapstructure tag.
	msgs := reflect.ValueOf(DefaultMessages)
	for i := 0; i < msgs.NumField(); i++ {
		if tag := msgs.Type().Field(i).Tag.Get("mapstructure"); tag != "" {
			v.SetDefault("messages."+tag, msgs.Field(i).String())
		}
	}
}
