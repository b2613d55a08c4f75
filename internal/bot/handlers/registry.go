package handlers

import (
	tgbot "github.com/go-telegram/bot"
)

// RegisteredHandler describes one handler together with how it is matched
// and the middleware wrapped around it.
// Commands with a Description are published in the bot menu.
type RegisteredHandler struct {
	HandlerType tgbot.HandlerType
	Description string
	Pattern     string
	Handler     tgbot.HandlerFunc
	Middleware  []tgbot.Middleware
	MatchType   tgbot.MatchType
}

func command(pattern string, h tgbot.HandlerFunc, mw ...tgbot.Middleware) RegisteredHandler {
	return RegisteredHandler{
		HandlerType: tgbot.HandlerTypeMessageText,
		Pattern:     pattern,
		Handler:     h,
		MatchType:   tgbot.MatchTypeCommandStartOnly,
		Middleware:  mw,
	}
}

func button(data string, h tgbot.HandlerFunc, mw ...tgbot.Middleware) RegisteredHandler {
	return RegisteredHandler{
		HandlerType: tgbot.HandlerTypeCallbackQueryData,
		Pattern:     data,
		Handler:     h,
		MatchType:   tgbot.MatchTypeExact,
		Middleware:  mw,
	}
}

func describe(h RegisteredHandler, description string) RegisteredHandler {
	h.Description = description
	return h
}

// RegisterAllCommands returns every command and button handler keyed by a
// unique name. Free text is served by NewRequestHandler as the default
// handler.
func RegisterAllCommands(deps HandlerDeps) map[string]RegisteredHandler {
	admin := AdminOnly(deps)
	help := NewHelpHandler(deps)
	statsView := NewStatsHandler(deps, ViewStats)
	topCategories := NewStatsHandler(deps, ViewTopCategories)
	topUsers := NewStatsHandler(deps, ViewTopUsers)

	return map[string]RegisteredHandler{
		"/start":          describe(command("start", NewStartHandler(deps)), "Show the main menu"),
		"/help":           describe(command("help", help), "How to send a request"),
		"/cancel":         describe(command("cancel", NewCancelHandler(deps)), "Cancel the pending request"),
		"/stats":          command("stats", statsView, admin),
		"/top_categories": command("top_categories", topCategories, admin),
		"/top_users":      command("top_users", topUsers, admin),

		CallbackSendMessage:   button(CallbackSendMessage, NewSendHandler(deps)),
		CallbackHelp:          button(CallbackHelp, help),
		CallbackStats:         button(CallbackStats, statsView, admin),
		CallbackTopCategories: button(CallbackTopCategories, topCategories, admin),
		CallbackTopUsers:      button(CallbackTopUsers, topUsers, admin),
	}
}
