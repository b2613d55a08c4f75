// Package handlers contains Telegram bot command and callback handlers,
// along with their registration logic and middleware.
package handlers

import (
	"context"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// AdminOnly lets only allowlisted senders through. Others get the denial
// text, as a message for commands and as a notification for buttons.
func AdminOnly(deps HandlerDeps) tgbot.Middleware {
	return func(next tgbot.HandlerFunc) tgbot.HandlerFunc {
		return func(ctx context.Context, bot *tgbot.Bot, update *models.Update) {
			user, chatID, ok := sender(update)
			if ok && deps.Config.IsPrivileged(user.ID) {
				next(ctx, bot, update)
				return
			}

			log := deps.Logger.With("middleware", "AdminOnly")
			var userID int64
			if user != nil {
				userID = user.ID
			}
			log.WarnContext(ctx, "Unauthorized access attempt", "user_id", userID, "chat_id", chatID)

			if update.CallbackQuery != nil {
				deps.answerCallback(ctx, bot, update, deps.Config.Messages.NotAuthorized)
				return
			}
			if ok {
				deps.reply(ctx, bot, chatID, deps.Config.Messages.NotAuthorized, nil)
			}
		}
	}
}
