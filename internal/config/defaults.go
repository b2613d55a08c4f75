package config

import "time"

// Default values for optional settings.
const (
	DefaultLogLevel            = "info"
	DefaultEphemeralTTL        = 60 * time.Second
	DefaultStorageRoot         = "requests"
	DefaultGeminiModel         = "gemini-2.0-flash"
	DefaultGeminiMaxRetries    = 3
	DefaultGeminiRetryDelay    = 2
	DefaultGeminiTimeout       = 10 * time.Second
	DefaultBreakerFailures     = 5
	DefaultBreakerCooldown     = time.Minute
	DefaultIndexPath           = "data/requests.db"
	DefaultSessionIdle         = 30 * time.Minute
	DefaultTopCategories       = 3
	DefaultTopSenders          = 5
	DefaultEvictionSchedule    = "0 */10 * * * *"
	DefaultRebuildSchedule     = "0 0 4 * * *"
	DefaultMaintenanceSchedule = "0 30 4 * * 0"
)

// DefaultMessages are the built-in Russian texts.
var DefaultMessages = MessagesConfig{
	Welcome:         "Здесь можно отправить сообщение лапчику",
	Help:            "Это бот для отправки сообщений. Нажмите 'Отправить сообщение', чтобы начать.",
	WriteRequest:    "Напишите ваш запрос",
	Accepted:        "🥰 Запрос улетел",
	PressButton:     "Чтобы отправить сообщение, нажмите кнопку 'Отправить сообщение'",
	SaveFailed:      "Не удалось сохранить запрос. Попробуйте отправить его ещё раз.",
	Cancelled:       "Запрос отменён.",
	NothingToCancel: "Нечего отменять.",
	NotAuthorized:   "У вас нет доступа к этой команде.",
	GeneralError:    "Произошла ошибка. Попробуйте позже.",

	StatsTotalFmt:      "Всего запросов: %d",
	StatsByCategory:    "Запросы по категориям:",
	StatsCategoryFmt:   "- %s: %d",
	TopCategoriesTitle: "Топ категории:",
	TopCategoryFmt:     "%s: %d",
	TopUsersTitle:      "Топ пользователей:",
	TopUserFmt:         "User %d: %d запросов",

	ButtonSend:          "Отправить сообщение",
	ButtonHelp:          "Помощь",
	ButtonStats:         "Статистика",
	ButtonTopCategories: "Топ категории",
	ButtonTopUsers:      "Топ пользователей",
}

// Names of the scheduled tasks known to the bot.
const (
	TaskSessionEviction = "session_eviction"
	TaskIndexRebuild    = "index_rebuild"
	TaskSQLMaintenance  = "sql_maintenance"
)
