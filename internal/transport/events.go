// Package transport defines the network client the bot drives, the events it
// receives and the messages it sends, plus a websocket implementation.
package transport

import "github.com/ashureev/tradebot/internal/domain"

// Kind names an event type. It is the routing key of the dispatcher.
type Kind string

// Event is anything the event loop can consume.
type Event interface {
	Kind() Kind
}

const (
	KindConnected           Kind = "connected"
	KindDisconnected        Kind = "disconnected"
	KindLoggedOn            Kind = "logged_on"
	KindLoggedOff           Kind = "logged_off"
	KindLoginKey            Kind = "login_key"
	KindWebNonce            Kind = "web_nonce"
	KindMachineAuth         Kind = "machine_auth"
	KindFriendsList         Kind = "friends_list"
	KindFriendMsg           Kind = "friend_msg"
	KindChatMsg             Kind = "chat_msg"
	KindTradeSessionStart   Kind = "trade_session_start"
	KindTradeProposed       Kind = "trade_proposed"
	KindTradeResult         Kind = "trade_result"
	KindNotification        Kind = "notification"
	KindCommentNotification Kind = "comment_notification"
)

// ConnectedEvent reports the outcome of a Connect call.
type ConnectedEvent struct {
	Result domain.Result `json:"result"`
}

// DisconnectedEvent reports loss of the connection.
type DisconnectedEvent struct {
	UserInitiated bool `json:"user_initiated"`
}

// LoggedOnEvent reports the outcome of a logon attempt.
type LoggedOnEvent struct {
	Result          domain.Result  `json:"result"`
	SteamID         domain.SteamID `json:"steamid"`
	WebAPIUserNonce string         `json:"webapi_user_nonce"`
}

// LoggedOffEvent reports that the platform ended the logon.
type LoggedOffEvent struct {
	Result domain.Result `json:"result"`
}

// LoginKeyEvent carries the unique id used to establish the web session.
type LoginKeyEvent struct {
	UniqueID uint32 `json:"unique_id"`
}

// WebNonceEvent carries a refreshed web nonce requested by the bot.
type WebNonceEvent struct {
	Result domain.Result `json:"result"`
	Nonce  string        `json:"nonce"`
}

// MachineAuthEvent carries a new machine-auth secret to persist.
type MachineAuthEvent struct {
	JobID           uint64 `json:"job_id"`
	FileName        string `json:"file_name"`
	Offset          int    `json:"offset"`
	BytesToWrite    int    `json:"bytes_to_write"`
	Data            []byte `json:"data"`
	OneTimePassword string `json:"one_time_password,omitempty"`
}

// FriendEntry is one relationship change in a friends list update.
type FriendEntry struct {
	SteamID      domain.SteamID      `json:"steamid"`
	Relationship domain.Relationship `json:"relationship"`
}

// FriendsListEvent carries the full list (Incremental=false) or a delta.
type FriendsListEvent struct {
	Incremental bool          `json:"incremental"`
	Friends     []FriendEntry `json:"friends"`
}

// FriendMsgEvent is a direct chat message.
type FriendMsgEvent struct {
	Sender    domain.SteamID       `json:"sender"`
	EntryType domain.ChatEntryType `json:"entry_type"`
	Message   string               `json:"message"`
}

// ChatMsgEvent is a group chat message.
type ChatMsgEvent struct {
	ChatRoomID domain.SteamID `json:"chat_room_id"`
	ChatterID  domain.SteamID `json:"chatter_id"`
	Message    string         `json:"message"`
}

// TradeSessionStartEvent signals that a live trade with OtherClient has begun.
type TradeSessionStartEvent struct {
	OtherClient domain.SteamID `json:"other_client"`
}

// TradeProposedEvent is an incoming live trade request.
type TradeProposedEvent struct {
	TradeID     uint32         `json:"trade_id"`
	OtherClient domain.SteamID `json:"other_client"`
}

// TradeResultEvent is the partner's answer to a trade request the bot sent.
type TradeResultEvent struct {
	TradeID     uint32               `json:"trade_id"`
	OtherClient domain.SteamID       `json:"other_client"`
	Response    domain.TradeResponse `json:"response"`
}

// Notification is a single user notification counter.
type Notification struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// NotificationEvent reports pending notifications, mostly trade offers.
type NotificationEvent struct {
	Notifications []Notification `json:"notifications"`
}

// CommentNotificationEvent reports profile comment counters. The bot ignores it.
type CommentNotificationEvent struct {
	NewComments int `json:"new_comments"`
}

func (ConnectedEvent) Kind() Kind           { return KindConnected }
func (DisconnectedEvent) Kind() Kind        { return KindDisconnected }
func (LoggedOnEvent) Kind() Kind            { return KindLoggedOn }
func (LoggedOffEvent) Kind() Kind           { return KindLoggedOff }
func (LoginKeyEvent) Kind() Kind            { return KindLoginKey }
func (WebNonceEvent) Kind() Kind            { return KindWebNonce }
func (MachineAuthEvent) Kind() Kind         { return KindMachineAuth }
func (FriendsListEvent) Kind() Kind         { return KindFriendsList }
func (FriendMsgEvent) Kind() Kind           { return KindFriendMsg }
func (ChatMsgEvent) Kind() Kind             { return KindChatMsg }
func (TradeSessionStartEvent) Kind() Kind   { return KindTradeSessionStart }
func (TradeProposedEvent) Kind() Kind       { return KindTradeProposed }
func (TradeResultEvent) Kind() Kind         { return KindTradeResult }
func (NotificationEvent) Kind() Kind        { return KindNotification }
func (CommentNotificationEvent) Kind() Kind { return KindCommentNotification }
