package trade

import (
	"context"
	"fmt"
	"time"

	"github.com/ashureev/tradebot/internal/domain"
)

// State is the lifecycle state of a live trade session.
type State int

const (
	StateNone State = iota
	StateInitializing
	StateActive
	StateClosed
	StateTimedOut
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateNone:
		return "none"
	case StateInitializing:
		return "initializing"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	case StateTimedOut:
		return "timed_out"
	case StateErrored:
		return "errored"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// API is the live trade web endpoint set, addressed by partner.
type API interface {
	Poll(ctx context.Context, partner domain.SteamID, logPos int) (*domain.TradeStatus, error)
	AddItem(ctx context.Context, partner domain.SteamID, item domain.Item, slot int) error
	RemoveItem(ctx context.Context, partner domain.SteamID, item domain.Item, slot int) error
	SetReady(ctx context.Context, partner domain.SteamID, ready bool, version int) error
	Accept(ctx context.Context, partner domain.SteamID, version int) error
	SendMessage(ctx context.Context, partner domain.SteamID, message string) error
	Cancel(ctx context.Context, partner domain.SteamID) error
}

// Session is one live trade with a partner. It is owned by the event loop.
type Session struct {
	ID             string
	Partner        domain.SteamID
	CreatedAt      time.Time
	LastActivity   time.Time
	MyInventory    *domain.Inventory
	OtherInventory *domain.Inventory

	state        State
	version      int
	myOffered    []domain.Item
	otherOffered []domain.Item
	otherReady   bool
	api          API
}

// State returns the session's current state. A closed session keeps its final state.
func (s *Session) State() State {
	return s.state
}

// OtherReady reports whether the partner has readied up.
func (s *Session) OtherReady() bool {
	return s.otherReady
}

// MyOffered returns the items the bot has put up.
func (s *Session) MyOffered() []domain.Item {
	return append([]domain.Item(nil), s.myOffered...)
}

// OtherOffered returns the items the partner has put up.
func (s *Session) OtherOffered() []domain.Item {
	return append([]domain.Item(nil), s.otherOffered...)
}

func (s *Session) live() error {
	if s.state != StateActive {
		return ErrTradeClosed
	}
	return nil
}

// AddItem puts one of the bot's items into the trade.
func (s *Session) AddItem(ctx context.Context, itemID uint64) error {
	if err := s.live(); err != nil {
		return err
	}
	item, ok := s.MyInventory.Find(itemID)
	if !ok {
		return fmt.Errorf("%w: %d", ErrItemNotFound, itemID)
	}
	if err := s.api.AddItem(ctx, s.Partner, item, len(s.myOffered)); err != nil {
		return fmt.Errorf("add item %d: %w", itemID, err)
	}
	s.myOffered = append(s.myOffered, item)
	return nil
}

// RemoveItem takes one of the bot's items back out of the trade.
func (s *Session) RemoveItem(ctx context.Context, itemID uint64) error {
	if err := s.live(); err != nil {
		return err
	}
	for slot, item := range s.myOffered {
		if item.ID != itemID {
			continue
		}
		if err := s.api.RemoveItem(ctx, s.Partner, item, slot); err != nil {
			return fmt.Errorf("remove item %d: %w", itemID, err)
		}
		s.myOffered = append(s.myOffered[:slot], s.myOffered[slot+1:]...)
		return nil
	}
	return fmt.Errorf("%w: %d", ErrItemNotFound, itemID)
}

// SetReady toggles the bot's ready flag.
func (s *Session) SetReady(ctx context.Context, ready bool) error {
	if err := s.live(); err != nil {
		return err
	}
	return s.api.SetReady(ctx, s.Partner, ready, s.version)
}

// Accept confirms the trade once both sides are ready.
func (s *Session) Accept(ctx context.Context) error {
	if err := s.live(); err != nil {
		return err
	}
	return s.api.Accept(ctx, s.Partner, s.version)
}

// SendMessage writes into the trade window chat.
func (s *Session) SendMessage(ctx context.Context, message string) error {
	if err := s.live(); err != nil {
		return err
	}
	return s.api.SendMessage(ctx, s.Partner, message)
}

// Cancel asks the web service to cancel the trade. The poller reports the result.
func (s *Session) Cancel(ctx context.Context) error {
	if err := s.live(); err != nil {
		return err
	}
	return s.api.Cancel(ctx, s.Partner)
}

func (s *Session) applyOtherItem(item domain.Item, added bool) {
	if added {
		s.otherOffered = append(s.otherOffered, item)
		return
	}
	for i, it := range s.otherOffered {
		if it.ID == item.ID {
			s.otherOffered = append(s.otherOffered[:i], s.otherOffered[i+1:]...)
			return
		}
	}
}
