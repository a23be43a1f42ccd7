// Package peer holds the per-peer handler objects and the registry that owns them.
package peer

import (
	"context"

	"github.com/ashureev/tradebot/internal/domain"
	"github.com/ashureev/tradebot/internal/trade"
)

// Handler is the per-peer policy object. Everything beyond Peer is optional and
// discovered through the capability interfaces below.
type Handler interface {
	Peer() domain.SteamID
}

// MessageHandler receives chat addressed to the bot.
type MessageHandler interface {
	OnMessage(ctx context.Context, message string, entry domain.ChatEntryType)
	OnChatRoomMessage(ctx context.Context, room, sender domain.SteamID, message string)
}

// FriendHandler decides on relationship changes. The bool results accept the request.
type FriendHandler interface {
	OnFriendAdd(ctx context.Context) bool
	OnFriendRemove(ctx context.Context)
	OnGroupAdd(ctx context.Context) bool
}

// TradeHandler approves live trade proposals and follows the resulting session.
type TradeHandler interface {
	trade.Listener
	OnTradeRequest(ctx context.Context) bool
	OnTradeRequestReply(ctx context.Context, accepted bool, response string)
}

// OfferHandler reacts to persistent trade offers.
type OfferHandler interface {
	OnNewTradeOffer(ctx context.Context, offer *domain.TradeOffer)
}

// LifecycleHandler is called on the bot's own handler.
type LifecycleHandler interface {
	OnBotCreated()
	OnLoginCompleted(ctx context.Context)
}

// CommandHandler executes operator commands on the bot's own handler.
type CommandHandler interface {
	OnBotCommand(ctx context.Context, command string) (string, error)
}
