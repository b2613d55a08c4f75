package handlers

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/intakebot/internal/config"
)

// Callback data of the inline keyboard buttons.
const (
	CallbackSendMessage   = "send_message"
	CallbackHelp          = "help"
	CallbackStats         = "admin_stats"
	CallbackTopCategories = "admin_top_categories"
	CallbackTopUsers      = "admin_top_users"
)

// mainKeyboard is the inline keyboard attached to the welcome text and to
// every reply that ends a dialogue turn. Operators also get the stats rows.
func mainKeyboard(cfg *config.Config, userID int64) *models.InlineKeyboardMarkup {
	msgs := cfg.Messages
	rows := [][]models.InlineKeyboardButton{
		{{Text: msgs.ButtonSend, CallbackData: CallbackSendMessage}},
		{{Text: msgs.ButtonHelp, CallbackData: CallbackHelp}},
	}
	if cfg.IsPrivileged(userID) {
		rows = append(rows,
			[]models.InlineKeyboardButton{{Text: msgs.ButtonStats, CallbackData: CallbackStats}},
			[]models.InlineKeyboardButton{{Text: msgs.ButtonTopCategories, CallbackData: CallbackTopCategories}},
			[]models.InlineKeyboardButton{{Text: msgs.ButtonTopUsers, CallbackData: CallbackTopUsers}},
		)
	}
	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// sender returns the user and chat an update came from. ok is false for
// updates without a sender or for callbacks whose message is unknown.
func sender(update *models.Update) (user *models.User, chatID int64, ok bool) {
	switch {
	case update.Message != nil:
		if update.Message.From == nil {
			return nil, 0, false
		}
		return update.Message.From, update.Message.Chat.ID, true
	case update.CallbackQuery != nil:
		cq := update.CallbackQuery
		switch {
		case cq.Message.Message != nil:
			return &cq.From, cq.Message.Message.Chat.ID, true
		case cq.Message.InaccessibleMessage != nil:
			return &cq.From, cq.Message.InaccessibleMessage.Chat.ID, true
		}
		// Callbacks from inline-mode messages carry no chat; answer the user directly.
		return &cq.From, cq.From.ID, true
	}
	return nil, 0, false
}

// answerCallback acknowledges a callback query so the client stops its
// loading indicator. It does nothing for message updates.
func (d HandlerDeps) answerCallback(ctx context.Context, b *bot.Bot, update *models.Update, text string) {
	if update.CallbackQuery == nil {
		return
	}
	_, err := b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: update.CallbackQuery.ID,
		Text:            text,
	})
	if err != nil {
		d.Logger.ErrorContext(ctx, "Failed to answer callback query", "error", err, "callback_id", update.CallbackQuery.ID)
	}
}

// deleteLater removes a message after the configured ephemeral TTL. A zero
// TTL or a missing scheduler keeps the message.
func (d HandlerDeps) deleteLater(ctx context.Context, b *bot.Bot, chatID int64, messageID int) {
	ttl := d.Config.Telegram.EphemeralTTL
	if ttl <= 0 || d.Scheduler == nil || messageID == 0 {
		return
	}
	name := fmt.Sprintf("delete_message_%d_%d", chatID, messageID)
	err := d.Scheduler.After(ttl, name, func(ctx context.Context) error {
		if _, err := b.DeleteMessage(ctx, &bot.DeleteMessageParams{ChatID: chatID, MessageID: messageID}); err != nil {
			return fmt.Errorf("failed to delete message %d in chat %d: %w", messageID, chatID, err)
		}
		return nil
	})
	if err != nil {
		d.Logger.WarnContext(ctx, "Failed to schedule message deletion", "error", err, "chat_id", chatID, "message_id", messageID)
	}
}

// reply sends text to chatID and returns the sent message id, or 0 when
// sending failed.
func (d HandlerDeps) reply(ctx context.Context, b *bot.Bot, chatID int64, text string, markup models.ReplyMarkup) int {
	params := &bot.SendMessageParams{ChatID: chatID, Text: text}
	if markup != nil {
		params.ReplyMarkup = markup
	}
	msg, err := b.SendMessage(ctx, params)
	if err != nil {
		d.Logger.ErrorContext(ctx, "Failed to send message", "error", err, "chat_id", chatID)
		return 0
	}
	return msg.ID
}
