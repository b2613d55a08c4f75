package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewHelpHandler returns a handler for the /help command and the help button.
func NewHelpHandler(deps HandlerDeps) bot.HandlerFunc {
	return helpHandler{deps}.Handle
}

type helpHandler struct {
	deps HandlerDeps
}

func (h helpHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "help")

	user, chatID, ok := sender(update)
	if !ok {
		log.WarnContext(ctx, "Help handler received update without sender", "update_id", update.ID)
		return
	}

	log.InfoContext(ctx, "Handling help request", "chat_id", chatID, "user_id", user.ID)

	h.deps.reply(ctx, b, chatID, h.deps.Config.Messages.Help, nil)
	h.deps.answerCallback(ctx, b, update, "")
}
