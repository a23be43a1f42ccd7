// Package bot is the session controller: it owns the connection and login state,
// composes the peer registry, cookie validator, trade and offer managers, and runs
// the single event loop that serializes every state change.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ashureev/tradebot/internal/cookie"
	"github.com/ashureev/tradebot/internal/domain"
	"github.com/ashureev/tradebot/internal/logging"
	"github.com/ashureev/tradebot/internal/offers"
	"github.com/ashureev/tradebot/internal/peer"
	"github.com/ashureev/tradebot/internal/store"
	"github.com/ashureev/tradebot/internal/trade"
	"github.com/ashureev/tradebot/internal/transport"
)

var (
	// ErrNotRunning is returned for operations that need a started bot.
	ErrNotRunning = errors.New("bot: not running")
	// ErrAlreadyRunning is returned by Start on a running bot.
	ErrAlreadyRunning = errors.New("bot: already running")
	// ErrNoCommandHandler is returned when the bot's own handler takes no commands.
	ErrNoCommandHandler = errors.New("bot: handler does not accept commands")
)

// State is the connection and login state of the bot.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateLoggingOn
	StateSteamGuardPending
	StateAuthenticated
	StateWebAuthenticating
	StateOnline
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateLoggingOn:
		return "logging_on"
	case StateSteamGuardPending:
		return "steam_guard_pending"
	case StateAuthenticated:
		return "authenticated"
	case StateWebAuthenticating:
		return "web_authenticating"
	case StateOnline:
		return "online"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Config is the bot definition.
type Config struct {
	Username          string
	Password          string
	DisplayName       string
	DisplayNamePrefix string
	ChatResponse      string
	Admins            []domain.SteamID
	Inventories       []domain.InventoryContext
	TradeLimits       trade.Limits
	WebAuthRetryDelay time.Duration
	TransportCooldown time.Duration
	OfferPollInterval time.Duration
	Log               logging.Options
}

// WebService is everything the bot needs from the web side.
type WebService interface {
	Authenticate(ctx context.Context, uniqueID uint32, nonce string) (bool, error)
	cookie.Verifier
	trade.InventoryFetcher
	trade.API
	offers.API
}

// HandlerFactory builds the handler for a peer. It receives the bot so handlers can
// act through it.
type HandlerFactory func(b *Bot, id domain.SteamID) peer.Handler

// Deps are the collaborators a Bot is built from.
type Deps struct {
	Client      transport.Client
	Web         WebService
	Store       store.Repository
	Handlers    HandlerFactory
	Credentials CredentialProvider
}

// Option configures a Bot.
type Option func(*Bot)

// WithStateObserver registers fn to be called on the loop goroutine after each
// state change.
func WithStateObserver(fn func(State)) Option {
	return func(b *Bot) { b.observer = fn }
}

// WithClock replaces the clock used for trade timers.
func WithClock(c trade.Clock) Option {
	return func(b *Bot) { b.clock = c }
}

// Bot is one trading account. Everything below the mutex-free section is owned by
// the event loop goroutine once Start has been called.
type Bot struct {
	cfg      Config
	client   transport.Client
	web      WebService
	store    store.Repository
	creds    CredentialProvider
	factory  HandlerFactory
	clock    trade.Clock
	observer func(State)

	log    *logging.Log
	logger *slog.Logger

	registry *peer.Registry
	cookies  *cookie.Validator
	trades   *trade.Manager
	offers   *offers.Manager
	routes   map[transport.Kind]route

	running   atomic.Bool
	queue     atomic.Pointer[eventQueue]
	status    atomic.Pointer[Status]
	lifecycle sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
	loopErr   error

	state        State
	self         domain.SteamID
	nonce        string
	uniqueID     uint32
	authCode     string
	friends      map[domain.SteamID]struct{}
	myInventory  *domain.Inventory
	currentGame  uint64
	offerPolling bool
	stopOffers   context.CancelFunc
}

// New builds a Bot and opens its log. Call Start to connect.
func New(cfg Config, deps Deps, opts ...Option) (*Bot, error) {
	if deps.Client == nil || deps.Web == nil || deps.Store == nil {
		return nil, errors.New("bot: client, web service and store are required")
	}
	if cfg.Username == "" {
		return nil, errors.New("bot: username is required")
	}
	if cfg.DisplayName == "" {
		cfg.DisplayName = cfg.Username
	}
	if cfg.Log.Name == "" {
		cfg.Log.Name = cfg.DisplayName
	}
	if cfg.Log.Tail == nil {
		cfg.Log.Tail = logging.NewRing(0)
	}
	if cfg.WebAuthRetryDelay <= 0 {
		cfg.WebAuthRetryDelay = 2 * time.Second
	}
	if deps.Credentials == nil {
		deps.Credentials = NewChannelCredentials()
	}

	b := &Bot{
		cfg:     cfg,
		client:  deps.Client,
		web:     deps.Web,
		store:   deps.Store,
		creds:   deps.Credentials,
		factory: deps.Handlers,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.factory == nil {
		b.factory = func(_ *Bot, id domain.SteamID) peer.Handler { return silentHandler(id) }
	}
	b.registry = peer.NewRegistry(func(id domain.SteamID) peer.Handler { return b.factory(b, id) })
	b.routes = b.routeTable()

	if err := b.openLog(); err != nil {
		return nil, err
	}
	b.wire()
	b.publishStatus()

	if h, ok := b.registry.GetOrCreate(0).(peer.LifecycleHandler); ok {
		h.OnBotCreated()
	}
	return b, nil
}

func (b *Bot) openLog() error {
	l, err := logging.New(b.cfg.Log)
	if err != nil {
		return fmt.Errorf("create bot log: %w", err)
	}
	b.log = l
	b.logger = l.Logger
	return nil
}

// wire builds the components that log through the current bot log.
func (b *Bot) wire() {
	b.cookies = cookie.NewValidator(b.web, func(ctx context.Context) error {
		return b.client.Send(ctx, transport.RequestWebNonce{})
	}, b.logger)
	b.trades = trade.NewManager(trade.Options{
		Limits:      b.cfg.TradeLimits,
		Contexts:    b.cfg.Inventories,
		Inventories: b.web,
		API:         b.web,
		Cookies:     b.cookies,
		Chat:        b,
		Inject:      b.inject,
		Clock:       b.clock,
		Logger:      b.logger,
	})
	b.trades.SetSelf(b.self)
	b.offers = offers.NewManager(b.web, b.logger)
}

// inject hands ev to the running loop. It reports false when nothing is running.
func (b *Bot) inject(ev transport.Event) bool {
	q := b.queue.Load()
	if q == nil {
		return false
	}
	return q.inject(ev)
}

// post queues ev from inside the loop.
func (b *Bot) post(ev transport.Event) {
	if q := b.queue.Load(); q != nil {
		q.post(ev)
	}
}

func (b *Bot) setState(s State) {
	if b.state == s {
		return
	}
	b.logger.Debug("Session state changed", "from", b.state, "to", s)
	b.state = s
	if b.observer != nil {
		b.observer(s)
	}
	b.publishStatus()
}

// Logger returns the bot's logger.
func (b *Bot) Logger() *slog.Logger { return b.logger }

// Self returns the bot's own identity. It is zero until logged on.
func (b *Bot) Self() domain.SteamID { return b.self }

// State returns the current session state. Loop goroutine only; use Status elsewhere.
func (b *Bot) State() State { return b.state }

// DisplayName returns the configured display name.
func (b *Bot) DisplayName() string { return b.cfg.DisplayName }

// ChatResponse returns the configured default chat reply.
func (b *Bot) ChatResponse() string { return b.cfg.ChatResponse }

// IsAdmin reports whether id is a configured admin.
func (b *Bot) IsAdmin(id domain.SteamID) bool {
	return slices.Contains(b.cfg.Admins, id)
}

// IsRunning reports whether the event loop is running.
func (b *Bot) IsRunning() bool { return b.running.Load() }

// Trades returns the trade manager.
func (b *Bot) Trades() *trade.Manager { return b.trades }

// Offers returns the offer manager.
func (b *Bot) Offers() *offers.Manager { return b.offers }

// MyInventory returns the inventory loaded after login, or nil.
func (b *Bot) MyInventory() *domain.Inventory { return b.myInventory }

// CurrentGame returns the game id last set with SetGamePlaying.
func (b *Bot) CurrentGame() uint64 { return b.currentGame }

// RecentLog returns the latest console-level log lines. Safe from any goroutine.
func (b *Bot) RecentLog() []string { return b.cfg.Log.Tail.Lines() }

// Friends returns the known friends.
func (b *Bot) Friends() []domain.SteamID {
	b.ensureFriends()
	out := make([]domain.SteamID, 0, len(b.friends))
	for id := range b.friends {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

func (b *Bot) ensureFriends() {
	if b.friends != nil {
		return
	}
	b.friends = make(map[domain.SteamID]struct{})
	if fl, ok := b.client.(transport.FriendLister); ok {
		for _, id := range fl.Friends() {
			b.friends[id] = struct{}{}
		}
	}
}

// SendChat sends a chat message to a peer.
func (b *Bot) SendChat(ctx context.Context, to domain.SteamID, message string) error {
	return b.client.Send(ctx, transport.SendChat{To: to, EntryType: domain.ChatEntryMessage, Message: message})
}

// SetGamePlaying shows the bot as playing game id. Zero clears it.
func (b *Bot) SetGamePlaying(ctx context.Context, id uint64) error {
	if err := b.client.Send(ctx, transport.GamesPlayed{GameID: id}); err != nil {
		return err
	}
	b.currentGame = id
	return nil
}

// InviteUserToGroup invites user into group.
func (b *Bot) InviteUserToGroup(ctx context.Context, user, group domain.SteamID) error {
	return b.client.Send(ctx, transport.InviteUserToGroup{GroupID: group, Invitee: user})
}

// RequestTrade proposes a live trade to partner. It is refused while a trade is
// active or the web session is invalid.
func (b *Bot) RequestTrade(ctx context.Context, partner domain.SteamID) error {
	if b.trades.Current() != nil {
		return trade.ErrTradeInProgress
	}
	if !b.cookies.IsValid(ctx) {
		return trade.ErrCookiesInvalid
	}
	return b.client.Send(ctx, transport.RequestTrade{Other: partner})
}

// CloseTrade ends the live trade, if any.
func (b *Bot) CloseTrade() {
	b.trades.CloseTrade()
}

// NewTradeOffer starts a draft offer to partner.
func (b *Bot) NewTradeOffer(partner domain.SteamID) *offers.Draft {
	return b.offers.CreateNewOffer(partner)
}

// TryGetTradeOffer looks up an offer by id.
func (b *Bot) TryGetTradeOffer(ctx context.Context, id string) (*domain.TradeOffer, bool) {
	offer, err := b.offers.FetchOffer(ctx, id)
	if err != nil {
		b.logger.Debug("Trade offer lookup failed", "offer_id", id, "error", err)
		return nil, false
	}
	return offer, true
}

type silentHandler domain.SteamID

func (h silentHandler) Peer() domain.SteamID { return domain.SteamID(h) }
