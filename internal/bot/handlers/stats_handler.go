package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/edgard/intakebot/internal/config"
	"github.com/edgard/intakebot/internal/ledger"
	"github.com/edgard/intakebot/internal/stats"
)

// View selects one of the operator statistics reports.
type View int

const (
	ViewStats View = iota
	ViewTopCategories
	ViewTopUsers
)

func (v View) String() string {
	switch v {
	case ViewStats:
		return "stats"
	case ViewTopCategories:
		return "top_categories"
	case ViewTopUsers:
		return "top_users"
	default:
		return fmt.Sprintf("view(%d)", int(v))
	}
}

// NewStatsHandler returns a handler rendering view. It serves both the
// command and the inline button and must be wrapped with AdminOnly.
func NewStatsHandler(deps HandlerDeps, view View) bot.HandlerFunc {
	return statsHandler{deps: deps, view: view}.Handle
}

type statsHandler struct {
	deps HandlerDeps
	view View
}

func (h statsHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "stats", "view", h.view.String())

	user, chatID, ok := sender(update)
	if !ok {
		log.WarnContext(ctx, "Stats handler received update without sender", "update_id", update.ID)
		return
	}

	text, err := h.render(ctx)
	if err != nil {
		log.ErrorContext(ctx, "Failed to compute statistics", "error", err, "user_id", user.ID)
		text = h.deps.Config.Messages.GeneralError
	} else {
		log.InfoContext(ctx, "Statistics sent", "chat_id", chatID, "user_id", user.ID)
	}

	h.deps.reply(ctx, b, chatID, text, nil)
	h.deps.answerCallback(ctx, b, update, "")
}

func (h statsHandler) render(ctx context.Context) (string, error) {
	msgs := h.deps.Config.Messages
	agg := h.deps.Aggregator

	switch h.view {
	case ViewStats:
		total, counts, err := agg.Summary(ctx)
		if err != nil {
			return "", err
		}
		return FormatStats(msgs, total, counts), nil
	case ViewTopCategories:
		top, err := agg.TopCategories(ctx, h.deps.Config.Stats.TopCategories)
		if err != nil {
			return "", err
		}
		return FormatTopCategories(msgs, top), nil
	case ViewTopUsers:
		top, err := agg.TopSenders(ctx, h.deps.Config.Stats.TopSenders)
		if err != nil {
			return "", err
		}
		return FormatTopUsers(msgs, top), nil
	}
	return "", fmt.Errorf("unknown statistics view %s", h.view)
}

// categoryTitle is the display name of a category in the totals report.
func categoryTitle(c ledger.Category) string {
	return cases.Title(language.English).String(c.String())
}

// FormatStats renders the total and the per-category counts.
func FormatStats(msgs config.MessagesConfig, total int, counts []stats.CategoryCount) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, msgs.StatsTotalFmt, total)
	sb.WriteString("\n")
	sb.WriteString(msgs.StatsByCategory)
	for _, c := range counts {
		sb.WriteString("\n")
		fmt.Fprintf(&sb, msgs.StatsCategoryFmt, categoryTitle(c.Category), c.Count)
	}
	return sb.String()
}

// FormatTopCategories renders the most frequent categories.
func FormatTopCategories(msgs config.MessagesConfig, top []stats.CategoryCount) string {
	lines := make([]string, 0, len(top)+1)
	lines = append(lines, msgs.TopCategoriesTitle)
	for _, c := range top {
		lines = append(lines, fmt.Sprintf(msgs.TopCategoryFmt, c.Category, c.Count))
	}
	return strings.Join(lines, "\n")
}

// FormatTopUsers renders the most active senders.
func FormatTopUsers(msgs config.MessagesConfig, top []stats.SenderCount) string {
	lines := make([]string, 0, len(top)+1)
	lines = append(lines, msgs.TopUsersTitle)
	for _, s := range top {
		lines = append(lines, fmt.Sprintf(msgs.TopUserFmt, s.UserID, s.Count))
	}
	return strings.Join(lines, "\n")
}
