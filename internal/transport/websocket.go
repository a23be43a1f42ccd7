package transport

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/ashureev/tradebot/internal/domain"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const (
	defaultDialTimeout = 15 * time.Second
	eventBufferSize    = 256
	readLimitBytes     = 1 << 20
)

// WSClient is a Client speaking JSON envelopes over a websocket gateway.
type WSClient struct {
	url         string
	header      http.Header
	dialTimeout time.Duration
	logger      *slog.Logger

	events chan Event
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	conn    *websocket.Conn
	friends map[domain.SteamID]struct{}
}

// WSOption configures a WSClient.
type WSOption func(*WSClient)

// WithHeader adds HTTP headers to the websocket handshake.
func WithHeader(h http.Header) WSOption {
	return func(c *WSClient) { c.header = h }
}

// WithDialTimeout bounds each connection attempt.
func WithDialTimeout(d time.Duration) WSOption {
	return func(c *WSClient) {
		if d > 0 {
			c.dialTimeout = d
		}
	}
}

// NewWSClient creates a client for the gateway at url. No network I/O happens until Connect.
func NewWSClient(url string, logger *slog.Logger, opts ...WSOption) *WSClient {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &WSClient{
		url:         url,
		dialTimeout: defaultDialTimeout,
		logger:      logger,
		events:      make(chan Event, eventBufferSize),
		ctx:         ctx,
		cancel:      cancel,
		friends:     make(map[domain.SteamID]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect dials the gateway in the background and reports the outcome as a ConnectedEvent.
func (c *WSClient) Connect(ctx context.Context) error {
	if c.ctx.Err() != nil {
		return ErrClosed
	}

	go func() {
		dialCtx, cancel := context.WithTimeout(ctx, c.dialTimeout)
		defer cancel()

		conn, _, err := websocket.Dial(dialCtx, c.url, &websocket.DialOptions{HTTPHeader: c.header})
		if err != nil {
			c.logger.Warn("Gateway dial failed", "url", c.url, "error", err)
			c.emit(ConnectedEvent{Result: domain.ResultNoConnection})
			return
		}
		conn.SetReadLimit(readLimitBytes)

		c.mu.Lock()
		if c.conn != nil {
			_ = c.conn.CloseNow()
		}
		c.conn = conn
		c.mu.Unlock()

		c.emit(ConnectedEvent{Result: domain.ResultOK})
		c.readLoop(conn)
	}()
	return nil
}

func (c *WSClient) readLoop(conn *websocket.Conn) {
	for {
		var env envelope
		if err := wsjson.Read(c.ctx, conn, &env); err != nil {
			if c.ctx.Err() == nil {
				c.logger.Debug("Gateway read ended", "error", err)
			}
			c.drop(conn, false)
			return
		}

		ev, err := decodeEvent(env)
		if err != nil {
			c.logger.Warn("Dropping undecodable frame", "type", env.Type, "error", err)
			continue
		}
		if fl, ok := ev.(FriendsListEvent); ok {
			c.trackFriends(fl)
		}
		c.emit(ev)
	}
}

// drop detaches conn if it is still current and reports the disconnect once.
func (c *WSClient) drop(conn *websocket.Conn, userInitiated bool) {
	c.mu.Lock()
	if c.conn != conn {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.mu.Unlock()

	if userInitiated {
		_ = conn.Close(websocket.StatusNormalClosure, "disconnect")
	} else {
		_ = conn.CloseNow()
	}
	c.emit(DisconnectedEvent{UserInitiated: userInitiated})
}

// Disconnect closes the current connection, if any.
func (c *WSClient) Disconnect() error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return nil
	}
	c.drop(conn, true)
	return nil
}

// Send writes msg to the gateway.
func (c *WSClient) Send(ctx context.Context, msg Message) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return &TransportError{Op: "send " + string(msg.MsgType()), Err: ErrNotConnected}
	}

	env, err := encodeMessage(msg)
	if err != nil {
		return err
	}
	if err := wsjson.Write(ctx, conn, env); err != nil {
		return &TransportError{Op: "send " + string(msg.MsgType()), Err: err}
	}
	return nil
}

// WaitForNextEvent blocks until an event arrives, ctx is done, or the client is closed.
func (c *WSClient) WaitForNextEvent(ctx context.Context) (Event, error) {
	select {
	case ev := <-c.events:
		return ev, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.ctx.Done():
		return nil, ErrClosed
	}
}

// Friends returns the identities currently in the friends list.
func (c *WSClient) Friends() []domain.SteamID {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.SteamID, 0, len(c.friends))
	for id := range c.friends {
		out = append(out, id)
	}
	return out
}

func (c *WSClient) trackFriends(ev FriendsListEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !ev.Incremental {
		c.friends = make(map[domain.SteamID]struct{})
	}
	for _, f := range ev.Friends {
		switch f.Relationship {
		case domain.RelationshipFriend:
			c.friends[f.SteamID] = struct{}{}
		case domain.RelationshipNone:
			delete(c.friends, f.SteamID)
		}
	}
}

// Close shuts the client down permanently.
func (c *WSClient) Close() error {
	c.cancel()
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()
	if conn != nil {
		return conn.Close(websocket.StatusGoingAway, "shutdown")
	}
	return nil
}

func (c *WSClient) emit(ev Event) {
	select {
	case c.events <- ev:
	case <-c.ctx.Done():
	}
}

var (
	_ Client       = (*WSClient)(nil)
	_ FriendLister = (*WSClient)(nil)
)
