// Package handlers contains the stock per-peer policies a bot can be configured with.
package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/ashureev/tradebot/internal/bot"
	"github.com/ashureev/tradebot/internal/domain"
	"github.com/ashureev/tradebot/internal/offers"
	"github.com/ashureev/tradebot/internal/peer"
	"github.com/ashureev/tradebot/internal/trade"
)

const (
	commandPrefix = "!"
	actionTimeout = 10 * time.Second
)

// Controller is the part of a bot a handler acts through. *bot.Bot satisfies it.
type Controller interface {
	Logger() *slog.Logger
	IsAdmin(id domain.SteamID) bool
	ChatResponse() string
	SendChat(ctx context.Context, to domain.SteamID, message string) error
	SetGamePlaying(ctx context.Context, appID uint64) error
	RequestTrade(ctx context.Context, partner domain.SteamID) error
	Friends() []domain.SteamID
	Offers() *offers.Manager
	Status() bot.Status
}

// Default accepts friends, trades and gifts, replies to chat with the configured
// response and takes commands from admins.
type Default struct {
	id        domain.SteamID
	ctl       Controller
	logger    *slog.Logger
	adminOnly bool
}

// NewDefault creates the handler for peer id.
func NewDefault(ctl Controller, id domain.SteamID) *Default {
	logger := ctl.Logger()
	if logger == nil {
		logger = slog.Default()
	}
	return &Default{id: id, ctl: ctl, logger: logger.With("peer", id.String())}
}

// NewAdminOnly creates a handler that ignores everyone but admins.
func NewAdminOnly(ctl Controller, id domain.SteamID) *Default {
	h := NewDefault(ctl, id)
	h.adminOnly = true
	return h
}

func (h *Default) Peer() domain.SteamID { return h.id }

func (h *Default) admin() bool { return h.ctl.IsAdmin(h.id) }

func (h *Default) allowed() bool { return !h.adminOnly || h.admin() }

func (h *Default) OnMessage(ctx context.Context, message string, _ domain.ChatEntryType) {
	if h.admin() && strings.HasPrefix(message, commandPrefix) {
		out, err := h.OnBotCommand(ctx, strings.TrimPrefix(message, commandPrefix))
		if err != nil {
			out = "Error: " + err.Error()
		}
		h.reply(ctx, out)
		return
	}
	if !h.allowed() {
		return
	}
	if resp := h.ctl.ChatResponse(); resp != "" {
		h.reply(ctx, resp)
	}
}

func (h *Default) OnChatRoomMessage(_ context.Context, room, _ domain.SteamID, message string) {
	h.logger.Debug("Group chat message", "room", room.String(), "message", message)
}

func (h *Default) reply(ctx context.Context, message string) {
	if err := h.ctl.SendChat(ctx, h.id, message); err != nil {
		h.logger.Warn("Chat reply failed", "error", err)
	}
}

func (h *Default) OnFriendAdd(context.Context) bool {
	ok := h.allowed()
	h.logger.Info("Friend request", "accepted", ok)
	return ok
}

func (h *Default) OnFriendRemove(context.Context) {
	h.logger.Info("Friend removed")
}

// OnGroupAdd declines every group invite.
func (h *Default) OnGroupAdd(context.Context) bool { return false }

func (h *Default) OnTradeRequest(context.Context) bool { return h.allowed() }

func (h *Default) OnTradeRequestReply(_ context.Context, accepted bool, response string) {
	h.logger.Info("Trade request answered", "accepted", accepted, "response", response)
}

// willComplete reports whether the current offer is one this policy signs off on:
// anything with an admin, or a gift to the bot.
func (h *Default) willComplete(s *trade.Session) bool {
	return h.admin() || len(s.MyOffered()) == 0
}

func (h *Default) OnTradeInit(s *trade.Session) {
	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()
	if err := s.SendMessage(ctx, "Hi! Add the items you want to trade and ready up."); err != nil {
		h.logger.Warn("Trade greeting failed", "trade_id", s.ID, "error", err)
	}
}

func (h *Default) OnTradeAddItem(s *trade.Session, item domain.Item) {
	h.logger.Debug("Partner added item", "trade_id", s.ID, "item", item.Name)
}

func (h *Default) OnTradeRemoveItem(s *trade.Session, item domain.Item) {
	h.logger.Debug("Partner removed item", "trade_id", s.ID, "item", item.Name)
}

func (h *Default) OnTradeMessage(s *trade.Session, message string) {
	h.logger.Info("Trade chat", "trade_id", s.ID, "message", message)
}

func (h *Default) OnTradeReady(s *trade.Session, ready bool) {
	if !ready || !h.willComplete(s) {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()
	if err := s.SetReady(ctx, true); err != nil {
		h.logger.Warn("Set ready failed", "trade_id", s.ID, "error", err)
	}
}

func (h *Default) OnTradeAccept(s *trade.Session) {
	if !h.willComplete(s) {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()
	if err := s.Accept(ctx); err != nil {
		h.logger.Warn("Accept trade failed", "trade_id", s.ID, "error", err)
	}
}

func (h *Default) OnTradeSuccess(s *trade.Session) {
	h.logger.Info("Trade complete", "trade_id", s.ID, "received", len(s.OtherOffered()))
}

func (h *Default) OnTradeClose(s *trade.Session) {
	h.logger.Info("Trade closed", "trade_id", s.ID)
}

func (h *Default) OnTradeError(s *trade.Session, message string) {
	h.logger.Error("Trade error", "trade_id", s.ID, "message", message)
}

func (h *Default) OnTradeStatusError(s *trade.Session, code domain.TradeStatusCode) {
	h.logger.Error("Trade status error", "trade_id", s.ID, "code", code)
}

func (h *Default) OnTradeTimeout(s *trade.Session) {
	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()
	if err := h.ctl.SendChat(ctx, h.id, "Sorry, the trade timed out."); err != nil {
		h.logger.Warn("Timeout notice failed", "trade_id", s.ID, "error", err)
	}
}

// OnNewTradeOffer accepts offers from admins and gifts, and declines the rest.
func (h *Default) OnNewTradeOffer(ctx context.Context, offer *domain.TradeOffer) {
	om := h.ctl.Offers()
	if h.admin() || len(offer.ItemsToGive) == 0 {
		if err := om.Accept(ctx, offer.ID); err != nil {
			h.logger.Error("Accept offer failed", "offer_id", offer.ID, "error", err)
		}
		return
	}
	if err := om.Decline(ctx, offer.ID); err != nil {
		h.logger.Error("Decline offer failed", "offer_id", offer.ID, "error", err)
	}
}

func (h *Default) OnBotCreated() {
	h.logger.Debug("Bot created")
}

func (h *Default) OnLoginCompleted(context.Context) {
	h.logger.Info("Login completed")
}

// OnBotCommand runs one operator command and returns its output.
func (h *Default) OnBotCommand(ctx context.Context, command string) (string, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return "", fmt.Errorf("empty command")
	}

	switch name, args := strings.ToLower(fields[0]), fields[1:]; name {
	case "help":
		return "commands: help, status, friends, play <appid>, say <steamid> <message>, trade <steamid>", nil
	case "status":
		s := h.ctl.Status()
		out := fmt.Sprintf("state=%s cookies_valid=%t handlers=%d", s.State, s.CookiesValid, s.Handlers)
		if s.Trade != nil {
			out += fmt.Sprintf(" trade=%s partner=%s", s.Trade.State, s.Trade.Partner)
		}
		return out, nil
	case "friends":
		ids := h.ctl.Friends()
		names := make([]string, len(ids))
		for i, id := range ids {
			names[i] = id.String()
		}
		slices.Sort(names)
		return fmt.Sprintf("%d friends: %s", len(names), strings.Join(names, ", ")), nil
	case "play":
		if len(args) != 1 {
			return "", fmt.Errorf("usage: play <appid>")
		}
		appID, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return "", fmt.Errorf("invalid app id %q: %w", args[0], err)
		}
		if err := h.ctl.SetGamePlaying(ctx, appID); err != nil {
			return "", err
		}
		return "now playing " + args[0], nil
	case "say":
		if len(args) < 2 {
			return "", fmt.Errorf("usage: say <steamid> <message>")
		}
		to, err := domain.ParseSteamID(args[0])
		if err != nil {
			return "", err
		}
		if err := h.ctl.SendChat(ctx, to, strings.Join(args[1:], " ")); err != nil {
			return "", err
		}
		return "sent", nil
	case "trade":
		if len(args) != 1 {
			return "", fmt.Errorf("usage: trade <steamid>")
		}
		partner, err := domain.ParseSteamID(args[0])
		if err != nil {
			return "", err
		}
		if err := h.ctl.RequestTrade(ctx, partner); err != nil {
			return "", err
		}
		return "trade requested with " + partner.String(), nil
	default:
		return "", fmt.Errorf("unknown command %q", name)
	}
}

var _ interface {
	peer.MessageHandler
	peer.FriendHandler
	peer.TradeHandler
	peer.OfferHandler
	peer.LifecycleHandler
	peer.CommandHandler
} = (*Default)(nil)
