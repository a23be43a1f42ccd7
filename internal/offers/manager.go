// Package offers tracks persistent trade offers: drafting, sending, polling for
// received offers and responding to them.
package offers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ashureev/tradebot/internal/domain"
	"github.com/ashureev/tradebot/internal/transport"
)

// KindNewOffer is the event kind for offers found by polling.
const KindNewOffer transport.Kind = "new_offer"

// ErrNotFound is returned by FetchOffer for unknown offer ids.
var ErrNotFound = errors.New("offers: offer not found")

// NewOfferEvent carries a new or changed offer into the event loop.
type NewOfferEvent struct {
	Offer domain.TradeOffer
}

func (NewOfferEvent) Kind() transport.Kind { return KindNewOffer }

// API is the offer web endpoint set.
type API interface {
	ListOffers(ctx context.Context, since time.Time) ([]domain.TradeOffer, error)
	GetOffer(ctx context.Context, id string) (*domain.TradeOffer, error)
	AcceptOffer(ctx context.Context, id string) error
	DeclineOffer(ctx context.Context, id string) error
	SendOffer(ctx context.Context, offer *domain.TradeOffer) (string, error)
}

// Manager remembers which offers have been seen so polls only report changes.
// It is safe for concurrent use by the event loop and the poll worker.
type Manager struct {
	api    API
	logger *slog.Logger

	mu       sync.Mutex
	seen     map[string]domain.OfferState
	lastPoll time.Time
}

// NewManager creates a Manager.
func NewManager(api API, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		api:    api,
		logger: logger,
		seen:   make(map[string]domain.OfferState),
	}
}

// FetchOffer loads a single offer by id.
func (m *Manager) FetchOffer(ctx context.Context, id string) (*domain.TradeOffer, error) {
	offer, err := m.api.GetOffer(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetch offer %s: %w", id, err)
	}
	if offer == nil || offer.ID == "" {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return offer, nil
}

// CreateNewOffer starts a draft offer to partner.
func (m *Manager) CreateNewOffer(partner domain.SteamID) *Draft {
	return &Draft{mgr: m, offer: domain.TradeOffer{Partner: partner, State: domain.OfferStateProposed}}
}

// PollForOffers returns received offers that are new or changed state since the last poll.
func (m *Manager) PollForOffers(ctx context.Context) ([]domain.TradeOffer, error) {
	m.mu.Lock()
	since := m.lastPoll
	m.mu.Unlock()

	started := time.Now()
	list, err := m.api.ListOffers(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("poll offers: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	var changed []domain.TradeOffer
	for _, o := range list {
		if prev, ok := m.seen[o.ID]; ok && prev == o.State {
			continue
		}
		m.seen[o.ID] = o.State
		changed = append(changed, o)
	}
	m.lastPoll = started
	return changed, nil
}

// Accept accepts offer id.
func (m *Manager) Accept(ctx context.Context, id string) error {
	if err := m.api.AcceptOffer(ctx, id); err != nil {
		return fmt.Errorf("accept offer %s: %w", id, err)
	}
	m.record(id, domain.OfferStateAccepted)
	return nil
}

// Decline declines offer id.
func (m *Manager) Decline(ctx context.Context, id string) error {
	if err := m.api.DeclineOffer(ctx, id); err != nil {
		return fmt.Errorf("decline offer %s: %w", id, err)
	}
	m.record(id, domain.OfferStateDeclined)
	return nil
}

// Send submits offer and returns the id assigned to it.
func (m *Manager) Send(ctx context.Context, offer *domain.TradeOffer) (string, error) {
	if len(offer.ItemsToGive) == 0 && len(offer.ItemsToReceive) == 0 {
		return "", errors.New("offers: cannot send an empty offer")
	}
	id, err := m.api.SendOffer(ctx, offer)
	if err != nil {
		return "", fmt.Errorf("send offer to %s: %w", offer.Partner, err)
	}
	offer.ID = id
	offer.State = domain.OfferStateActive
	m.logger.Info("Trade offer sent", "offer_id", id, "partner", offer.Partner)
	return id, nil
}

func (m *Manager) record(id string, state domain.OfferState) {
	m.mu.Lock()
	m.seen[id] = state
	m.mu.Unlock()
}

// Run polls every interval in a background goroutine and hands each change to emit
// until ctx is done or emit returns false.
func (m *Manager) Run(ctx context.Context, interval time.Duration, emit func(NewOfferEvent) bool) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		m.logger.Info("Offer poll worker started", "interval", interval)

		for {
			select {
			case <-ticker.C:
				if !m.pollOnce(ctx, emit) {
					m.logger.Info("Offer poll worker stopping, event loop gone")
					return
				}
			case <-ctx.Done():
				m.logger.Info("Offer poll worker shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

func (m *Manager) pollOnce(ctx context.Context, emit func(NewOfferEvent) bool) bool {
	changed, err := m.PollForOffers(ctx)
	if err != nil {
		if ctx.Err() == nil {
			m.logger.Warn("Offer poll failed", "error", err)
		}
		return true
	}
	for _, o := range changed {
		if !emit(NewOfferEvent{Offer: o}) {
			return false
		}
	}
	return true
}
