package bot

import (
	"context"
	"errors"

	"github.com/ashureev/tradebot/internal/domain"
	"github.com/ashureev/tradebot/internal/offers"
	"github.com/ashureev/tradebot/internal/peer"
	"github.com/ashureev/tradebot/internal/trade"
	"github.com/ashureev/tradebot/internal/transport"
)

func (b *Bot) onTradeSessionStart(ctx context.Context, ev transport.TradeSessionStartEvent) error {
	if b.openTrade(ctx, ev.OtherClient) {
		b.logger.Debug("Trade session started", "partner", ev.OtherClient)
	} else {
		b.logger.Error("Could not start the trade session.", "partner", ev.OtherClient)
	}
	return nil
}

func (b *Bot) openTrade(ctx context.Context, partner domain.SteamID) bool {
	if b.trades.Current() != nil {
		return false
	}
	var listener trade.Listener
	if h, ok := b.registry.GetOrCreate(partner).(peer.TradeHandler); ok {
		listener = h
	}
	if _, err := b.trades.OpenTrade(ctx, partner, listener); err != nil {
		b.logger.Warn("Open trade failed", "partner", partner, "error", err)
		return false
	}
	return true
}

func (b *Bot) onTradeProposed(ctx context.Context, ev transport.TradeProposedEvent) error {
	if !b.cookies.IsValid(ctx) {
		return b.respondToTrade(ctx, ev.TradeID, false)
	}

	if err := b.trades.Prepare(ctx, ev.OtherClient); err != nil {
		msg := "Trade declined. Could not correctly fetch your backpack."
		var fe *trade.InventoryFetchError
		if errors.As(err, &fe) && fe.Owner != ev.OtherClient {
			msg = "Trade error: " + fe.Err.Error()
		}
		if chatErr := b.SendChat(ctx, ev.OtherClient, msg); chatErr != nil {
			b.logger.Warn("Could not notify trade partner", "partner", ev.OtherClient, "error", chatErr)
		}
		return b.respondToTrade(ctx, ev.TradeID, false)
	}

	accept := false
	if b.trades.Current() == nil {
		if h, ok := b.registry.GetOrCreate(ev.OtherClient).(peer.TradeHandler); ok {
			accept = h.OnTradeRequest(ctx)
		}
	}
	return b.respondToTrade(ctx, ev.TradeID, accept)
}

func (b *Bot) respondToTrade(ctx context.Context, tradeID uint32, accept bool) error {
	return b.client.Send(ctx, transport.RespondToTrade{TradeID: tradeID, Accept: accept})
}

func (b *Bot) onTradeResult(ctx context.Context, ev transport.TradeResultEvent) error {
	h, _ := b.registry.GetOrCreate(ev.OtherClient).(peer.TradeHandler)
	if ev.Response == domain.TradeResponseAccepted {
		b.logger.Info("Trade Accepted!", "partner", ev.OtherClient)
		if h != nil {
			h.OnTradeRequestReply(ctx, true, ev.Response.String())
		}
		return nil
	}

	b.logger.Warn("Trade failed", "partner", ev.OtherClient, "response", ev.Response)
	b.trades.CloseTrade()
	if h != nil {
		h.OnTradeRequestReply(ctx, false, ev.Response.String())
	}
	return nil
}

func (b *Bot) onTradeActivity(_ context.Context, ev trade.ActivityEvent) error {
	b.trades.HandleActivity(ev)
	return nil
}

func (b *Bot) onTradeTimeout(_ context.Context, ev trade.TimeoutEvent) error {
	b.trades.HandleTimeout(ev)
	return nil
}

func (b *Bot) onNotification(ctx context.Context, ev transport.NotificationEvent) error {
	for _, n := range ev.Notifications {
		b.logger.Info(n.Type+" notification", "count", n.Count)
	}
	if b.cookies.IsValid(ctx) {
		b.refreshOffers(ctx)
	}
	return nil
}

func (b *Bot) onCommentNotification(_ context.Context, ev transport.CommentNotificationEvent) error {
	b.logger.Debug("Comment notification", "new_comments", ev.NewComments)
	return nil
}

func (b *Bot) refreshOffers(ctx context.Context) {
	changed, err := b.offers.PollForOffers(ctx)
	if err != nil {
		b.logger.Warn("Could not fetch trade offers", "error", err)
		return
	}
	for i := range changed {
		b.routeOffer(ctx, &changed[i])
	}
}

func (b *Bot) onNewOffer(ctx context.Context, ev offers.NewOfferEvent) error {
	b.routeOffer(ctx, &ev.Offer)
	return nil
}

// routeOffer hands active offers to the partner's handler. Others are ignored.
func (b *Bot) routeOffer(ctx context.Context, offer *domain.TradeOffer) {
	if !offer.IsActive() {
		return
	}
	if h, ok := b.registry.GetOrCreate(offer.Partner).(peer.OfferHandler); ok {
		h.OnNewTradeOffer(ctx, offer)
	}
}
