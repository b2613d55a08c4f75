package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewStartHandler returns a handler for the /start command.
func NewStartHandler(deps HandlerDeps) bot.HandlerFunc {
	return startHandler{deps}.Handle
}

// startHandler greets the sender and shows the main keyboard. The command
// and the greeting are both ephemeral.
type startHandler struct {
	deps HandlerDeps
}

func (h startHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "start")

	if update.Message == nil || update.Message.From == nil {
		log.WarnContext(ctx, "Start handler received update with nil message or sender", "update_id", update.ID)
		return
	}
	chatID, userID := update.Message.Chat.ID, update.Message.From.ID

	log.InfoContext(ctx, "Handling /start command", "chat_id", chatID, "user_id", userID)

	sentID := h.deps.reply(ctx, b, chatID, h.deps.Config.Messages.Welcome, mainKeyboard(h.deps.Config, userID))
	h.deps.deleteLater(ctx, b, chatID, update.Message.ID)
	h.deps.deleteLater(ctx, b, chatID, sentID)
}
