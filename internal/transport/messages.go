package transport

import "github.com/ashureev/tradebot/internal/domain"

// MsgType names an outbound message on the wire.
type MsgType string

// Message is a typed command sent to the platform.
type Message interface {
	MsgType() MsgType
}

// LogOn submits credentials. AuthCode and SentryHash are optional.
type LogOn struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	AuthCode   string `json:"auth_code,omitempty"`
	SentryHash []byte `json:"sentry_hash,omitempty"`
}

// MachineAuthResponse acknowledges a persisted machine-auth secret.
type MachineAuthResponse struct {
	JobID           uint64        `json:"job_id"`
	FileName        string        `json:"file_name"`
	BytesWritten    int           `json:"bytes_written"`
	FileSize        int           `json:"file_size"`
	Offset          int           `json:"offset"`
	SentryHash      []byte        `json:"sentry_hash"`
	OneTimePassword string        `json:"one_time_password,omitempty"`
	LastError       int           `json:"last_error"`
	Result          domain.Result `json:"result"`
}

// RequestWebNonce asks the platform for a fresh web nonce.
type RequestWebNonce struct{}

// SetPersonaName changes the display name.
type SetPersonaName struct {
	Name string `json:"name"`
}

// SetPersonaState changes the presence status.
type SetPersonaState struct {
	State domain.PersonaState `json:"state"`
}

// GamesPlayed sets the game shown as playing. Zero clears it.
type GamesPlayed struct {
	GameID uint64 `json:"game_id,omitempty"`
}

// SendChat sends a direct chat message.
type SendChat struct {
	To        domain.SteamID       `json:"to"`
	EntryType domain.ChatEntryType `json:"entry_type"`
	Message   string               `json:"message"`
}

// AddFriend accepts or sends a friend request.
type AddFriend struct {
	SteamID domain.SteamID `json:"steamid"`
}

// RemoveFriend removes a friend or declines a request.
type RemoveFriend struct {
	SteamID domain.SteamID `json:"steamid"`
}

// GroupInviteAction accepts or declines a group invitation.
type GroupInviteAction struct {
	GroupID domain.SteamID `json:"group_id"`
	Accept  bool           `json:"accept"`
}

// InviteUserToGroup invites a user into a group.
type InviteUserToGroup struct {
	GroupID domain.SteamID `json:"group_id"`
	Invitee domain.SteamID `json:"invitee"`
}

// RequestTrade proposes a live trade to another user.
type RequestTrade struct {
	Other domain.SteamID `json:"other"`
}

// RespondToTrade answers an incoming live trade request.
type RespondToTrade struct {
	TradeID uint32 `json:"trade_id"`
	Accept  bool   `json:"accept"`
}

func (LogOn) MsgType() MsgType               { return "logon" }
func (MachineAuthResponse) MsgType() MsgType { return "machine_auth_response" }
func (RequestWebNonce) MsgType() MsgType     { return "request_web_nonce" }
func (SetPersonaName) MsgType() MsgType      { return "set_persona_name" }
func (SetPersonaState) MsgType() MsgType     { return "set_persona_state" }
func (GamesPlayed) MsgType() MsgType         { return "games_played" }
func (SendChat) MsgType() MsgType            { return "send_chat" }
func (AddFriend) MsgType() MsgType           { return "add_friend" }
func (RemoveFriend) MsgType() MsgType        { return "remove_friend" }
func (GroupInviteAction) MsgType() MsgType   { return "group_invite_action" }
func (InviteUserToGroup) MsgType() MsgType   { return "invite_user_to_group" }
func (RequestTrade) MsgType() MsgType        { return "request_trade" }
func (RespondToTrade) MsgType() MsgType      { return "respond_to_trade" }
