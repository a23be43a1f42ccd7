package bot

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ashureev/tradebot/internal/domain"
	"github.com/ashureev/tradebot/internal/offers"
	"github.com/ashureev/tradebot/internal/trade"
	"github.com/ashureev/tradebot/internal/transport"
)

func TestTradeSessionStartOpensTrade(t *testing.T) {
	h := newHarness(t)
	h.online()

	h.dispatch(t, transport.TradeSessionStartEvent{OtherClient: partnerID})

	s := h.bot.Trades().Current()
	if s == nil || s.State() != trade.StateActive || s.Partner != partnerID {
		t.Fatalf("expected an active trade with the partner, got %+v", s)
	}
	calls := h.web.inventoryCalls()
	if len(calls) != 2 || calls[0] != selfID || calls[1] != partnerID {
		t.Fatalf("expected own and partner inventories, got %v", calls)
	}
	if !h.rec.has("trade_init") {
		t.Fatal("partner handler should see the init callback")
	}
	if st := h.bot.Status(); st.Trade == nil || st.Trade.Partner != partnerID.String() {
		t.Fatalf("status should show the trade, got %+v", st.Trade)
	}
}

func TestTradeSessionStartOwnInventoryFailure(t *testing.T) {
	h := newHarness(t)
	h.online()
	h.web.invFail[selfID] = errors.New("inventory service down")

	h.dispatch(t, transport.TradeSessionStartEvent{OtherClient: partnerID})

	if h.bot.Trades().Current() != nil || h.bot.Trades().State() != trade.StateNone {
		t.Fatal("failed initialisation must leave no trade")
	}
	chats := sentOf[transport.SendChat](h.client)
	if len(chats) != 1 || chats[0].To != partnerID {
		t.Fatalf("expected one chat to the partner, got %+v", chats)
	}
	if !strings.Contains(chats[0].Message, "Could not correctly fetch my backpack.") {
		t.Fatalf("unexpected chat %q", chats[0].Message)
	}
}

func TestTradeExceedingMaxDurationTimesOut(t *testing.T) {
	h := newHarness(t)
	h.online()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q := newEventQueue(ctx, h.bot.logger)
	h.bot.queue.Store(q)

	h.dispatch(t, transport.TradeSessionStartEvent{OtherClient: partnerID})
	s := h.bot.Trades().Current()

	// timers are armed gap first, then max duration
	h.clock.timers[1].f()
	ev, err := q.next(ctx)
	if err != nil {
		t.Fatalf("next failed: %v", err)
	}
	timeout, ok := ev.(trade.TimeoutEvent)
	if !ok || timeout.Reason != trade.ReasonMaxDuration {
		t.Fatalf("expected a max duration timeout, got %#v", ev)
	}

	h.dispatch(t, ev)
	if !h.rec.has("trade_timeout") {
		t.Fatal("partner handler should see the timeout")
	}
	if h.bot.Trades().Current() != nil || s.State() != trade.StateTimedOut {
		t.Fatalf("expected the trade cleared as timed out, got %v", s.State())
	}
}

func TestTradeProposalDeclinedWithInvalidCookies(t *testing.T) {
	h := newHarness(t)

	h.dispatch(t, transport.TradeProposedEvent{TradeID: 11, OtherClient: partnerID})

	resp := sentOf[transport.RespondToTrade](h.client)
	if len(resp) != 1 || resp[0].TradeID != 11 || resp[0].Accept {
		t.Fatalf("expected a decline, got %+v", resp)
	}
	if calls := h.web.inventoryCalls(); len(calls) != 0 {
		t.Fatalf("no inventory may be fetched, got %v", calls)
	}
	if h.rec.has("trade_request") {
		t.Fatal("policy must not be consulted with invalid cookies")
	}
}

func TestTradeProposalFollowsPolicy(t *testing.T) {
	for _, accept := range []bool{true, false} {
		h := newHarness(t)
		h.online()
		h.policy.acceptTrade = accept

		h.dispatch(t, transport.TradeProposedEvent{TradeID: 12, OtherClient: partnerID})

		resp := sentOf[transport.RespondToTrade](h.client)
		if len(resp) != 1 || resp[0].Accept != accept {
			t.Fatalf("policy %v: unexpected response %+v", accept, resp)
		}
		if !h.bot.Trades().IsPrepared(partnerID) {
			t.Fatal("inventories should be prefetched for the proposal")
		}
	}
}

func TestTradeProposalDeclinedWhileTrading(t *testing.T) {
	h := newHarness(t)
	h.online()
	h.dispatch(t, transport.TradeSessionStartEvent{OtherClient: partnerID})

	other := domain.NewSteamID(44, domain.AccountTypeIndividual)
	h.dispatch(t, transport.TradeProposedEvent{TradeID: 13, OtherClient: other})

	resp := sentOf[transport.RespondToTrade](h.client)
	if len(resp) != 1 || resp[0].Accept {
		t.Fatalf("expected a decline while a trade is active, got %+v", resp)
	}
}

func TestTradeProposalPartnerInventoryFailure(t *testing.T) {
	h := newHarness(t)
	h.online()
	h.web.invFail[partnerID] = errors.New("private")

	h.dispatch(t, transport.TradeProposedEvent{TradeID: 14, OtherClient: partnerID})

	chats := sentOf[transport.SendChat](h.client)
	if len(chats) != 1 || chats[0].Message != "Trade declined. Could not correctly fetch your backpack." {
		t.Fatalf("unexpected chat %+v", chats)
	}
	if resp := sentOf[transport.RespondToTrade](h.client); len(resp) != 1 || resp[0].Accept {
		t.Fatalf("expected a decline, got %+v", resp)
	}
}

func TestTradeResultDeclinedClosesTrade(t *testing.T) {
	h := newHarness(t)
	h.online()
	h.dispatch(t, transport.TradeSessionStartEvent{OtherClient: partnerID})

	h.dispatch(t, transport.TradeResultEvent{TradeID: 1, OtherClient: partnerID, Response: domain.TradeResponseDeclined})
	if h.bot.Trades().Current() != nil {
		t.Fatal("a failed trade result must close the trade")
	}
	if !h.rec.has("trade_reply:declined") {
		t.Fatal("handler should see the declined reply")
	}

	h.dispatch(t, transport.TradeResultEvent{TradeID: 2, OtherClient: partnerID, Response: domain.TradeResponseAccepted})
	if !h.rec.has("trade_reply:accepted") {
		t.Fatal("handler should see the accepted reply")
	}
}

func TestRequestTradeRefusals(t *testing.T) {
	h := newHarness(t)
	if err := h.bot.RequestTrade(context.Background(), partnerID); !errors.Is(err, trade.ErrCookiesInvalid) {
		t.Fatalf("expected ErrCookiesInvalid, got %v", err)
	}

	h.online()
	if err := h.bot.RequestTrade(context.Background(), partnerID); err != nil {
		t.Fatalf("RequestTrade failed: %v", err)
	}
	if reqs := sentOf[transport.RequestTrade](h.client); len(reqs) != 1 || reqs[0].Other != partnerID {
		t.Fatalf("unexpected trade requests %+v", reqs)
	}

	h.dispatch(t, transport.TradeSessionStartEvent{OtherClient: partnerID})
	if err := h.bot.RequestTrade(context.Background(), partnerID); !errors.Is(err, trade.ErrTradeInProgress) {
		t.Fatalf("expected ErrTradeInProgress, got %v", err)
	}
}

func TestOfferRoutingOnlyActive(t *testing.T) {
	h := newHarness(t)
	h.online()

	h.dispatch(t, offers.NewOfferEvent{Offer: domain.TradeOffer{ID: "a", Partner: partnerID, State: domain.OfferStateActive}})
	for _, state := range []domain.OfferState{
		domain.OfferStateProposed, domain.OfferStateAccepted, domain.OfferStateDeclined, domain.OfferStateExpired,
	} {
		h.dispatch(t, offers.NewOfferEvent{Offer: domain.TradeOffer{ID: string(state), Partner: partnerID, State: state}})
	}

	if !h.rec.has("offer:a") {
		t.Fatal("active offer should reach the partner handler")
	}
	for _, c := range h.rec.calls {
		if strings.HasPrefix(c, "offer:") && c != "offer:a" {
			t.Fatalf("inactive offer was routed: %s", c)
		}
	}
}

func TestNotificationRefreshesOffersWithValidCookies(t *testing.T) {
	h := newHarness(t)
	h.web.offers = []domain.TradeOffer{{ID: "n1", Partner: partnerID, State: domain.OfferStateActive}}

	h.dispatch(t, transport.NotificationEvent{Notifications: []transport.Notification{{Type: "trade_offer", Count: 1}}})
	if h.web.offerPolls != 0 {
		t.Fatal("offers must not be fetched with invalid cookies")
	}

	h.online()
	h.dispatch(t, transport.NotificationEvent{})
	if h.web.offerPolls != 1 || !h.rec.has("offer:n1") {
		t.Fatalf("expected one offer refresh routed to the partner, polls=%d", h.web.offerPolls)
	}
}

func TestTryGetTradeOffer(t *testing.T) {
	h := newHarness(t)
	h.web.offers = []domain.TradeOffer{{ID: "x", Partner: partnerID, State: domain.OfferStateActive}}

	if offer, ok := h.bot.TryGetTradeOffer(context.Background(), "x"); !ok || offer.Partner != partnerID {
		t.Fatalf("expected offer x, got %+v", offer)
	}
	if _, ok := h.bot.TryGetTradeOffer(context.Background(), "missing"); ok {
		t.Fatal("expected lookup failure")
	}
	if h.bot.NewTradeOffer(partnerID).Partner() != partnerID {
		t.Fatal("draft should target the partner")
	}
}
