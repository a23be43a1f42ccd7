// Package trade manages the single live trade session the bot may hold.
package trade

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/ashureev/tradebot/internal/domain"
	"github.com/ashureev/tradebot/internal/transport"
	"github.com/google/uuid"
)

const (
	maxPollFailures = 10
	preparedTTL     = time.Minute
)

// Limits bound a session's lifetime.
type Limits struct {
	MaxDuration  time.Duration
	ActionGap    time.Duration
	PollInterval time.Duration
}

// InventoryFetcher loads an owner's inventory for the given contexts.
type InventoryFetcher interface {
	FetchInventory(ctx context.Context, owner domain.SteamID, contexts []domain.InventoryContext) (*domain.Inventory, error)
}

// CookieChecker reports whether the web session may be used.
type CookieChecker interface {
	IsValid(ctx context.Context) bool
}

// ChatSender delivers a private chat message.
type ChatSender interface {
	SendChat(ctx context.Context, to domain.SteamID, message string) error
}

// Injector hands an event to the event loop. It returns false once the loop is gone.
type Injector func(ev transport.Event) bool

// Options wires a Manager.
type Options struct {
	Limits      Limits
	Contexts    []domain.InventoryContext
	Inventories InventoryFetcher
	API         API
	Cookies     CookieChecker
	Chat        ChatSender
	Inject      Injector
	Clock       Clock
	Logger      *slog.Logger
}

type prepared struct {
	partner domain.SteamID
	mine    *domain.Inventory
	theirs  *domain.Inventory
	at      time.Time
}

// Manager owns at most one Session. All methods must be called from the event loop;
// timers and the poller only inject events.
type Manager struct {
	limits      Limits
	contexts    []domain.InventoryContext
	inventories InventoryFetcher
	api         API
	cookies     CookieChecker
	chat        ChatSender
	inject      Injector
	clock       Clock
	logger      *slog.Logger

	self         domain.SteamID
	current      *Session
	listener     Listener
	gapTimer     Timer
	gapGen       atomic.Uint64
	maxTimer     Timer
	stopPoll     context.CancelFunc
	pollFailures int
	prepared     *prepared
}

// NewManager creates a Manager.
func NewManager(opts Options) *Manager {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Clock == nil {
		opts.Clock = realClock{}
	}
	if opts.Inject == nil {
		opts.Inject = func(transport.Event) bool { return false }
	}
	return &Manager{
		limits:      opts.Limits,
		contexts:    opts.Contexts,
		inventories: opts.Inventories,
		api:         opts.API,
		cookies:     opts.Cookies,
		chat:        opts.Chat,
		inject:      opts.Inject,
		clock:       opts.Clock,
		logger:      opts.Logger,
	}
}

// SetSelf records the bot's own identity once logged on.
func (m *Manager) SetSelf(id domain.SteamID) {
	m.self = id
}

// Current returns the live session, or nil.
func (m *Manager) Current() *Session {
	return m.current
}

// State returns the state of the live session, or StateNone.
func (m *Manager) State() State {
	if m.current == nil {
		return StateNone
	}
	return m.current.state
}

// Prepare prefetches both inventories for a proposed trade with partner.
func (m *Manager) Prepare(ctx context.Context, partner domain.SteamID) error {
	mine, theirs, err := m.fetchBoth(ctx, partner)
	if err != nil {
		return err
	}
	m.prepared = &prepared{partner: partner, mine: mine, theirs: theirs, at: m.clock.Now()}
	return nil
}

// IsPrepared reports whether inventories for partner are cached and fresh.
func (m *Manager) IsPrepared(partner domain.SteamID) bool {
	p := m.prepared
	return p != nil && p.partner == partner && m.clock.Now().Sub(p.at) < preparedTTL
}

// OpenTrade starts a session with partner and registers listener for its events.
func (m *Manager) OpenTrade(ctx context.Context, partner domain.SteamID, listener Listener) (*Session, error) {
	if m.current != nil {
		return nil, ErrTradeInProgress
	}
	if m.cookies != nil && !m.cookies.IsValid(ctx) {
		return nil, ErrCookiesInvalid
	}

	now := m.clock.Now()
	s := &Session{
		ID:           uuid.NewString(),
		Partner:      partner,
		CreatedAt:    now,
		LastActivity: now,
		state:        StateInitializing,
		api:          m.api,
	}
	m.current = s

	var err error
	if m.IsPrepared(partner) {
		s.MyInventory, s.OtherInventory = m.prepared.mine, m.prepared.theirs
	} else {
		s.MyInventory, s.OtherInventory, err = m.fetchBoth(ctx, partner)
	}
	m.prepared = nil
	if err != nil {
		s.state = StateNone
		m.current = nil
		m.reportFetchFailure(ctx, partner, err)
		return nil, err
	}

	s.state = StateActive
	m.listener = listener
	m.pollFailures = 0
	m.armTimers(s)
	m.startPoller(s)

	m.logger.Info("Trade opened", "session", s.ID, "partner", partner)
	if listener != nil {
		listener.OnTradeInit(s)
	}
	return s, nil
}

// CloseTrade ends the live session. It is safe to call when nothing is open.
func (m *Manager) CloseTrade() {
	m.closeAs(StateClosed)
}

func (m *Manager) closeAs(state State) {
	s := m.current
	if s == nil {
		return
	}
	m.listener = nil
	if m.gapTimer != nil {
		m.gapTimer.Stop()
		m.gapTimer = nil
	}
	if m.maxTimer != nil {
		m.maxTimer.Stop()
		m.maxTimer = nil
	}
	if m.stopPoll != nil {
		m.stopPoll()
		m.stopPoll = nil
	}
	s.state = state
	m.current = nil
	m.logger.Info("Trade closed", "session", s.ID, "partner", s.Partner, "state", state)
}

// HandleTimeout applies a timer expiry. Events for other sessions are ignored.
func (m *Manager) HandleTimeout(ev TimeoutEvent) {
	s := m.current
	if s == nil || s.ID != ev.SessionID {
		return
	}
	if ev.Reason == ReasonActionGap && ev.Generation != m.gapGen.Load() {
		m.logger.Debug("Ignoring action gap timeout superseded by activity", "session", s.ID)
		return
	}
	m.logger.Info("Trade timed out", "session", s.ID, "partner", s.Partner, "reason", ev.Reason)
	if l := m.listener; l != nil {
		l.OnTradeTimeout(s)
	}
	m.closeAs(StateTimedOut)
}

// HandleActivity applies one poll result to the live session.
func (m *Manager) HandleActivity(ev ActivityEvent) {
	s := m.current
	if s == nil || s.ID != ev.SessionID {
		return
	}

	if ev.Err != nil {
		m.pollFailures++
		m.logger.Warn("Trade poll failed", "session", s.ID, "failures", m.pollFailures, "error", ev.Err)
		if m.pollFailures >= maxPollFailures {
			if l := m.listener; l != nil {
				l.OnTradeError(s, ev.Err.Error())
			}
			m.closeAs(StateErrored)
		}
		return
	}
	m.pollFailures = 0
	s.version = ev.Status.Version

	for _, a := range ev.Status.Actions {
		if a.Actor != s.Partner {
			continue
		}
		m.touch(s, a.At)
		m.applyAction(s, a)
		if m.current != s {
			return
		}
	}

	l := m.listener
	switch ev.Status.Status {
	case domain.TradeStatusOngoing:
	case domain.TradeStatusCompleted:
		if l != nil {
			l.OnTradeSuccess(s)
		}
		m.closeAs(StateClosed)
	case domain.TradeStatusCancelled, domain.TradeStatusEmpty:
		if l != nil {
			l.OnTradeClose(s)
		}
		m.closeAs(StateClosed)
	case domain.TradeStatusTimedOut:
		if l != nil {
			l.OnTradeTimeout(s)
		}
		m.closeAs(StateTimedOut)
	default:
		if l != nil {
			l.OnTradeStatusError(s, ev.Status.Status)
		}
		m.closeAs(StateErrored)
	}
}

func (m *Manager) applyAction(s *Session, a domain.TradeAction) {
	l := m.listener
	switch a.Kind {
	case domain.TradeActionItemAdded:
		s.applyOtherItem(a.Item, true)
		if l != nil {
			l.OnTradeAddItem(s, a.Item)
		}
	case domain.TradeActionItemRemoved:
		s.applyOtherItem(a.Item, false)
		if l != nil {
			l.OnTradeRemoveItem(s, a.Item)
		}
	case domain.TradeActionReady, domain.TradeActionUnready:
		s.otherReady = a.Kind == domain.TradeActionReady
		if l != nil {
			l.OnTradeReady(s, s.otherReady)
		}
	case domain.TradeActionAccept:
		if l != nil {
			l.OnTradeAccept(s)
		}
	case domain.TradeActionMessage:
		if l != nil {
			l.OnTradeMessage(s, a.Message)
		}
	default:
		m.logger.Debug("Ignoring trade action", "kind", a.Kind)
	}
}

func (m *Manager) touch(s *Session, at time.Time) {
	if at.IsZero() {
		at = m.clock.Now()
	}
	s.LastActivity = at
	m.gapGen.Add(1)
	if m.gapTimer != nil {
		m.gapTimer.Reset(m.limits.ActionGap)
	}
}

func (m *Manager) armTimers(s *Session) {
	id := s.ID
	if m.limits.ActionGap > 0 {
		m.gapTimer = m.clock.AfterFunc(m.limits.ActionGap, func() {
			m.inject(TimeoutEvent{SessionID: id, Reason: ReasonActionGap, Generation: m.gapGen.Load()})
		})
	}
	if m.limits.MaxDuration > 0 {
		m.maxTimer = m.clock.AfterFunc(m.limits.MaxDuration, func() {
			m.inject(TimeoutEvent{SessionID: id, Reason: ReasonMaxDuration})
		})
	}
}

func (m *Manager) startPoller(s *Session) {
	if m.api == nil || m.limits.PollInterval <= 0 {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.stopPoll = cancel
	go poll(ctx, m.api, s.ID, s.Partner, m.limits.PollInterval, m.inject)
}

func poll(ctx context.Context, api API, sessionID string, partner domain.SteamID, interval time.Duration, inject Injector) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logPos := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		status, err := api.Poll(ctx, partner, logPos)
		if ctx.Err() != nil {
			return
		}
		ev := ActivityEvent{SessionID: sessionID, Err: err}
		if err == nil && status != nil {
			ev.Status = *status
			logPos = status.LogPos
		}
		if !inject(ev) {
			return
		}
	}
}

func (m *Manager) fetchBoth(ctx context.Context, partner domain.SteamID) (mine, theirs *domain.Inventory, err error) {
	if m.inventories == nil {
		return nil, nil, &InventoryFetchError{Owner: m.self, Err: errors.New("no inventory source")}
	}
	mine, err = m.inventories.FetchInventory(ctx, m.self, m.contexts)
	if err != nil {
		return nil, nil, &InventoryFetchError{Owner: m.self, Err: err}
	}
	theirs, err = m.inventories.FetchInventory(ctx, partner, m.contexts)
	if err != nil {
		return nil, nil, &InventoryFetchError{Owner: partner, Err: err}
	}
	return mine, theirs, nil
}

func (m *Manager) reportFetchFailure(ctx context.Context, partner domain.SteamID, err error) {
	var fe *InventoryFetchError
	if !errors.As(err, &fe) {
		m.logger.Error("Trade initialisation failed", "partner", partner, "error", err)
		return
	}
	m.logger.Warn("Inventory fetch failed", "owner", fe.Owner, "partner", partner, "error", fe.Err)
	if m.chat == nil {
		return
	}
	msg := fe.ChatMessage(partner)
	if sendErr := m.chat.SendChat(ctx, partner, msg); sendErr != nil {
		m.logger.Warn("Could not notify trade partner", "partner", partner, "error", sendErr)
		return
	}
	m.logger.Info("Bot sent other: "+msg, "partner", partner)
}
