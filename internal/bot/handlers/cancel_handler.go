package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewCancelHandler returns a handler for the /cancel command.
func NewCancelHandler(deps HandlerDeps) bot.HandlerFunc {
	return cancelHandler{deps}.Handle
}

type cancelHandler struct {
	deps HandlerDeps
}

func (h cancelHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "cancel")

	if update.Message == nil || update.Message.From == nil {
		log.WarnContext(ctx, "Cancel handler received update with nil message or sender", "update_id", update.ID)
		return
	}
	chatID, userID := update.Message.Chat.ID, update.Message.From.ID

	text := h.deps.Config.Messages.NothingToCancel
	if h.deps.Controller.Cancel(userID) {
		text = h.deps.Config.Messages.Cancelled
		log.InfoContext(ctx, "Request cancelled", "chat_id", chatID, "user_id", userID)
	}

	sentID := h.deps.reply(ctx, b, chatID, text, mainKeyboard(h.deps.Config, userID))
	h.deps.deleteLater(ctx, b, chatID, update.Message.ID)
	h.deps.deleteLater(ctx, b, chatID, sentID)
}
