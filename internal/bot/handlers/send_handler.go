package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewSendHandler returns a handler for the send button. It opens a
// dialogue: the next text from the sender is taken as a request.
func NewSendHandler(deps HandlerDeps) bot.HandlerFunc {
	return sendHandler{deps}.Handle
}

type sendHandler struct {
	deps HandlerDeps
}

func (h sendHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "send")

	user, chatID, ok := sender(update)
	if !ok {
		log.WarnContext(ctx, "Send handler received update without sender", "update_id", update.ID)
		return
	}

	h.deps.Controller.Begin(user.ID)
	log.InfoContext(ctx, "Awaiting request", "chat_id", chatID, "user_id", user.ID)

	h.deps.reply(ctx, b, chatID, h.deps.Config.Messages.WriteRequest, &models.ReplyKeyboardRemove{RemoveKeyboard: true})
	h.deps.answerCallback(ctx, b, update, "")
}
