package handlers

import (
	"context"
	"errors"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/intakebot/internal/conversation"
	"github.com/edgard/intakebot/internal/ledger"
)

// NewRequestHandler returns the default handler. Texts from a sender who
// pressed the send button are recorded; anything else gets a pointer to
// the button.
func NewRequestHandler(deps HandlerDeps) bot.HandlerFunc {
	return requestHandler{deps}.Handle
}

type requestHandler struct {
	deps HandlerDeps
}

func (h requestHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "request")

	if update.CallbackQuery != nil {
		log.DebugContext(ctx, "Unknown callback data", "data", update.CallbackQuery.Data)
		h.deps.answerCallback(ctx, b, update, "")
		return
	}
	if update.Message == nil || update.Message.From == nil {
		log.DebugContext(ctx, "Ignoring update without message", "update_id", update.ID)
		return
	}
	msg := update.Message
	chatID, userID := msg.Chat.ID, msg.From.ID
	msgs := h.deps.Config.Messages

	var text string
	outcome, err := h.deps.Controller.Submit(ctx, userID, msg.Text)
	switch {
	case errors.Is(err, ledger.ErrPersistence):
		log.ErrorContext(ctx, "Failed to record request", "error", err, "chat_id", chatID, "user_id", userID)
		text = msgs.SaveFailed
	case err != nil:
		log.ErrorContext(ctx, "Failed to handle request", "error", err, "chat_id", chatID, "user_id", userID)
		text = msgs.GeneralError
	case outcome.Kind == conversation.OutcomeAccepted:
		log.InfoContext(ctx, "Request accepted",
			"chat_id", chatID,
			"user_id", userID,
			"order_number", outcome.Request.OrderNumber,
			"category", outcome.Request.Category,
			"language", outcome.Language)
		text = msgs.Accepted
	default:
		text = msgs.PressButton
	}

	var markup models.ReplyMarkup
	if err == nil {
		markup = mainKeyboard(h.deps.Config, userID)
	}
	sentID := h.deps.reply(ctx, b, chatID, text, markup)
	h.deps.deleteLater(ctx, b, chatID, msg.ID)
	h.deps.deleteLater(ctx, b, chatID, sentID)
}
