package bot

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ashureev/tradebot/internal/domain"
	"github.com/ashureev/tradebot/internal/logging"
	"github.com/ashureev/tradebot/internal/peer"
	"github.com/ashureev/tradebot/internal/store"
	"github.com/ashureev/tradebot/internal/trade"
	"github.com/ashureev/tradebot/internal/transport"
)

var (
	selfID    = domain.NewSteamID(1, domain.AccountTypeIndividual)
	partnerID = domain.NewSteamID(2, domain.AccountTypeIndividual)
	adminID   = domain.NewSteamID(3, domain.AccountTypeIndividual)
	groupID   = domain.NewSteamID(9, domain.AccountTypeClan)
)

type fakeClient struct {
	mu          sync.Mutex
	events      chan transport.Event
	waitErr     chan error
	sent        []transport.Message
	connects    int
	connectCtx  context.Context
	disconnects int
	sendErr     error
	friends     []domain.SteamID
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		events:  make(chan transport.Event, 16),
		waitErr: make(chan error, 1),
	}
}

func (c *fakeClient) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connects++
	c.connectCtx = ctx
	return nil
}

func (c *fakeClient) lastConnectCtx() context.Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectCtx
}

// waitConnects blocks until Connect has been called at least n times.
func (c *fakeClient) waitConnects(t *testing.T, n int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		if connects, _ := c.counts(); connects >= n {
			return
		}
		if time.Now().After(deadline) {
			connects, _ := c.counts()
			t.Fatalf("timed out waiting for %d connects, got %d", n, connects)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func (c *fakeClient) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnects++
	return nil
}

func (c *fakeClient) Send(_ context.Context, msg transport.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.sent = append(c.sent, msg)
	return nil
}

func (c *fakeClient) WaitForNextEvent(ctx context.Context) (transport.Event, error) {
	select {
	case ev := <-c.events:
		return ev, nil
	case err := <-c.waitErr:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *fakeClient) Friends() []domain.SteamID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.SteamID(nil), c.friends...)
}

func (c *fakeClient) setSendErr(err error) {
	c.mu.Lock()
	c.sendErr = err
	c.mu.Unlock()
}

func (c *fakeClient) counts() (connects, disconnects int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connects, c.disconnects
}

// sentOf returns every sent message of type T.
func sentOf[T transport.Message](c *fakeClient) []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []T
	for _, m := range c.sent {
		if t, ok := m.(T); ok {
			out = append(out, t)
		}
	}
	return out
}

type fakeWeb struct {
	mu           sync.Mutex
	authResults  []bool
	authCalls    int
	verifyOK     bool
	invCalls     []domain.SteamID
	invFail      map[domain.SteamID]error
	offers       []domain.TradeOffer
	offerPolls   int
	pollStatus   domain.TradeStatus
	responseFail error
}

func newFakeWeb() *fakeWeb {
	return &fakeWeb{verifyOK: true, invFail: map[domain.SteamID]error{}}
}

func (w *fakeWeb) Authenticate(context.Context, uint32, string) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.authCalls++
	if len(w.authResults) == 0 {
		return true, nil
	}
	ok := w.authResults[0]
	if len(w.authResults) > 1 {
		w.authResults = w.authResults[1:]
	}
	return ok, nil
}

func (w *fakeWeb) VerifySession(context.Context) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.verifyOK, nil
}

func (w *fakeWeb) FetchInventory(_ context.Context, owner domain.SteamID, _ []domain.InventoryContext) (*domain.Inventory, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.invCalls = append(w.invCalls, owner)
	if err := w.invFail[owner]; err != nil {
		return nil, err
	}
	return &domain.Inventory{Owner: owner, Items: []domain.Item{{ID: 1, Name: "Key"}}}, nil
}

func (w *fakeWeb) inventoryCalls() []domain.SteamID {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]domain.SteamID(nil), w.invCalls...)
}

func (w *fakeWeb) Poll(context.Context, domain.SteamID, int) (*domain.TradeStatus, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	s := w.pollStatus
	return &s, nil
}

func (w *fakeWeb) AddItem(context.Context, domain.SteamID, domain.Item, int) error    { return nil }
func (w *fakeWeb) RemoveItem(context.Context, domain.SteamID, domain.Item, int) error { return nil }
func (w *fakeWeb) SetReady(context.Context, domain.SteamID, bool, int) error          { return nil }
func (w *fakeWeb) Accept(context.Context, domain.SteamID, int) error                  { return nil }
func (w *fakeWeb) SendMessage(context.Context, domain.SteamID, string) error          { return nil }
func (w *fakeWeb) Cancel(context.Context, domain.SteamID) error                       { return nil }

func (w *fakeWeb) ListOffers(context.Context, time.Time) ([]domain.TradeOffer, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.offerPolls++
	return append([]domain.TradeOffer(nil), w.offers...), nil
}

func (w *fakeWeb) GetOffer(_ context.Context, id string) (*domain.TradeOffer, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, o := range w.offers {
		if o.ID == id {
			return &o, nil
		}
	}
	return nil, errors.New("not found")
}

func (w *fakeWeb) AcceptOffer(context.Context, string) error  { return w.responseFail }
func (w *fakeWeb) DeclineOffer(context.Context, string) error { return w.responseFail }
func (w *fakeWeb) SendOffer(context.Context, *domain.TradeOffer) (string, error) {
	return "offer-1", nil
}

// recorder collects handler callbacks across every handler a bot creates.
type recorder struct {
	mu     sync.Mutex
	calls  []string
	notify chan string
}

func newRecorder() *recorder {
	return &recorder{notify: make(chan string, 64)}
}

func (r *recorder) add(call string) {
	r.mu.Lock()
	r.calls = append(r.calls, call)
	r.mu.Unlock()
	select {
	case r.notify <- call:
	default:
	}
}

func (r *recorder) has(call string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.calls {
		if c == call {
			return true
		}
	}
	return false
}

func (r *recorder) count(call string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (r *recorder) waitFor(t *testing.T, call string) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		if r.has(call) {
			return
		}
		select {
		case <-r.notify:
		case <-deadline:
			t.Fatalf("timed out waiting for %q, have %v", call, r.calls)
		}
	}
}

// policy is shared by every testHandler of a harness.
type policy struct {
	acceptFriend bool
	acceptGroup  bool
	acceptTrade  bool
}

type testHandler struct {
	id     domain.SteamID
	rec    *recorder
	policy *policy
}

func (h *testHandler) Peer() domain.SteamID { return h.id }

func (h *testHandler) OnMessage(_ context.Context, msg string, _ domain.ChatEntryType) {
	if msg == "boom" {
		panic("handler exploded")
	}
	h.rec.add("message:" + msg)
}

func (h *testHandler) OnChatRoomMessage(_ context.Context, _, _ domain.SteamID, msg string) {
	h.rec.add("room:" + msg)
}

func (h *testHandler) OnFriendAdd(context.Context) bool {
	h.rec.add("friend_add")
	return h.policy.acceptFriend
}
func (h *testHandler) OnFriendRemove(context.Context) { h.rec.add("friend_remove") }
func (h *testHandler) OnGroupAdd(context.Context) bool {
	h.rec.add("group_add")
	return h.policy.acceptGroup
}

func (h *testHandler) OnTradeRequest(context.Context) bool {
	h.rec.add("trade_request")
	return h.policy.acceptTrade
}
func (h *testHandler) OnTradeRequestReply(_ context.Context, accepted bool, _ string) {
	if accepted {
		h.rec.add("trade_reply:accepted")
	} else {
		h.rec.add("trade_reply:declined")
	}
}

func (h *testHandler) OnTradeInit(*trade.Session)                    { h.rec.add("trade_init") }
func (h *testHandler) OnTradeAddItem(*trade.Session, domain.Item)    { h.rec.add("trade_add") }
func (h *testHandler) OnTradeRemoveItem(*trade.Session, domain.Item) { h.rec.add("trade_remove") }
func (h *testHandler) OnTradeMessage(*trade.Session, string)         { h.rec.add("trade_message") }
func (h *testHandler) OnTradeReady(*trade.Session, bool)             { h.rec.add("trade_ready") }
func (h *testHandler) OnTradeAccept(*trade.Session)                  { h.rec.add("trade_accept") }
func (h *testHandler) OnTradeSuccess(*trade.Session)                 { h.rec.add("trade_success") }
func (h *testHandler) OnTradeClose(*trade.Session)                   { h.rec.add("trade_close") }
func (h *testHandler) OnTradeError(*trade.Session, string)           { h.rec.add("trade_error") }
func (h *testHandler) OnTradeStatusError(*trade.Session, domain.TradeStatusCode) {
	h.rec.add("trade_status_error")
}
func (h *testHandler) OnTradeTimeout(*trade.Session) { h.rec.add("trade_timeout") }

func (h *testHandler) OnNewTradeOffer(_ context.Context, offer *domain.TradeOffer) {
	h.rec.add("offer:" + offer.ID)
}

func (h *testHandler) OnBotCreated()                    { h.rec.add("created") }
func (h *testHandler) OnLoginCompleted(context.Context) { h.rec.add("login_completed") }

func (h *testHandler) OnBotCommand(_ context.Context, command string) (string, error) {
	if command == "fail" {
		return "", errors.New("command failed")
	}
	return "ran " + command, nil
}

var _ interface {
	peer.MessageHandler
	peer.FriendHandler
	peer.TradeHandler
	peer.OfferHandler
	peer.LifecycleHandler
	peer.CommandHandler
} = (*testHandler)(nil)

type fakeTimer struct {
	f       func()
	stopped bool
}

func (t *fakeTimer) Stop() bool               { t.stopped = true; return true }
func (t *fakeTimer) Reset(time.Duration) bool { t.stopped = false; return true }

type fakeClock struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (c *fakeClock) Now() time.Time { return time.Unix(1_700_000_000, 0) }

func (c *fakeClock) AfterFunc(_ time.Duration, f func()) trade.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{f: f}
	c.timers = append(c.timers, t)
	return t
}

type harness struct {
	bot     *Bot
	client  *fakeClient
	web     *fakeWeb
	store   *store.SQLiteStore
	rec     *recorder
	policy  *policy
	clock   *fakeClock
	creds   *ChannelCredentials
	states  []State
	statesM sync.Mutex
}

func newHarness(t *testing.T, mutate ...func(*Config)) *harness {
	t.Helper()
	return newHarnessWithClient(t, nil, mutate...)
}

// newHarnessWithClient builds a harness whose bot talks to client instead of the fake.
func newHarnessWithClient(t *testing.T, client transport.Client, mutate ...func(*Config)) *harness {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "bot.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	h := &harness{
		client: newFakeClient(),
		web:    newFakeWeb(),
		store:  st,
		rec:    newRecorder(),
		policy: &policy{acceptFriend: true, acceptTrade: true},
		clock:  &fakeClock{},
		creds:  NewChannelCredentials(),
	}
	cfg := Config{
		Username:          "tradebot",
		Password:          "secret",
		DisplayName:       "Trader",
		DisplayNamePrefix: "[bot] ",
		Admins:            []domain.SteamID{adminID},
		Inventories:       []domain.InventoryContext{{AppID: 440, ContextID: 2}},
		TradeLimits:       trade.Limits{MaxDuration: time.Minute, ActionGap: 30 * time.Second},
		WebAuthRetryDelay: time.Millisecond,
		TransportCooldown: time.Millisecond,
		Log:               logging.Options{Console: io.Discard},
	}
	for _, m := range mutate {
		m(&cfg)
	}
	if client == nil {
		client = h.client
	}

	b, err := New(cfg, Deps{
		Client: client,
		Web:    h.web,
		Store:  st,
		Handlers: func(_ *Bot, id domain.SteamID) peer.Handler {
			return &testHandler{id: id, rec: h.rec, policy: h.policy}
		},
		Credentials: h.creds,
	}, WithClock(h.clock), WithStateObserver(func(s State) {
		h.statesM.Lock()
		h.states = append(h.states, s)
		h.statesM.Unlock()
	}))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	h.bot = b
	return h
}

// online puts the bot straight into Online with valid cookies.
func (h *harness) online() {
	h.bot.self = selfID
	h.bot.trades.SetSelf(selfID)
	h.bot.cookies.MarkValid("nonce")
	h.bot.state = StateOnline
}

func (h *harness) dispatch(t *testing.T, ev transport.Event) {
	t.Helper()
	if err := h.bot.Dispatch(context.Background(), ev); err != nil {
		t.Fatalf("Dispatch(%s) failed: %v", ev.Kind(), err)
	}
}

func (h *harness) seenStates() []State {
	h.statesM.Lock()
	defer h.statesM.Unlock()
	return append([]State(nil), h.states...)
}
