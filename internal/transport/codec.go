package transport

import (
	"encoding/json"
	"fmt"
)

// envelope is the JSON frame exchanged with the gateway.
type envelope struct {
	Type string          `json:"type"`
	Body json.RawMessage `json:"body,omitempty"`
}

type decodeFunc func(json.RawMessage) (Event, error)

func decodeAs[T Event]() decodeFunc {
	return func(raw json.RawMessage) (Event, error) {
		var ev T
		if len(raw) == 0 {
			return ev, nil
		}
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	}
}

var decoders = map[Kind]decodeFunc{
	KindConnected:           decodeAs[ConnectedEvent](),
	KindDisconnected:        decodeAs[DisconnectedEvent](),
	KindLoggedOn:            decodeAs[LoggedOnEvent](),
	KindLoggedOff:           decodeAs[LoggedOffEvent](),
	KindLoginKey:            decodeAs[LoginKeyEvent](),
	KindWebNonce:            decodeAs[WebNonceEvent](),
	KindMachineAuth:         decodeAs[MachineAuthEvent](),
	KindFriendsList:         decodeAs[FriendsListEvent](),
	KindFriendMsg:           decodeAs[FriendMsgEvent](),
	KindChatMsg:             decodeAs[ChatMsgEvent](),
	KindTradeSessionStart:   decodeAs[TradeSessionStartEvent](),
	KindTradeProposed:       decodeAs[TradeProposedEvent](),
	KindTradeResult:         decodeAs[TradeResultEvent](),
	KindNotification:        decodeAs[NotificationEvent](),
	KindCommentNotification: decodeAs[CommentNotificationEvent](),
}

// decodeEvent turns a frame into a typed event.
func decodeEvent(env envelope) (Event, error) {
	dec, ok := decoders[Kind(env.Type)]
	if !ok {
		return nil, fmt.Errorf("unknown event type %q", env.Type)
	}
	ev, err := dec(env.Body)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", env.Type, err)
	}
	return ev, nil
}

func encodeMessage(msg Message) (envelope, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return envelope{}, fmt.Errorf("encode %s: %w", msg.MsgType(), err)
	}
	return envelope{Type: string(msg.MsgType()), Body: body}, nil
}
