package trade

import (
	"github.com/ashureev/tradebot/internal/domain"
	"github.com/ashureev/tradebot/internal/transport"
)

const (
	KindActivity transport.Kind = "trade_activity"
	KindTimeout  transport.Kind = "trade_timeout"
)

// ActivityEvent carries one poll result back into the event loop.
type ActivityEvent struct {
	SessionID string
	Status    domain.TradeStatus
	Err       error
}

// TimeoutReason says which limit expired.
type TimeoutReason string

const (
	ReasonActionGap   TimeoutReason = "action_gap"
	ReasonMaxDuration TimeoutReason = "max_duration"
)

// TimeoutEvent is injected by the trade timers. Generation is the activity
// count seen when an action gap timer fired; activity after that makes it stale.
type TimeoutEvent struct {
	SessionID  string
	Reason     TimeoutReason
	Generation uint64
}

func (ActivityEvent) Kind() transport.Kind { return KindActivity }
func (TimeoutEvent) Kind() transport.Kind  { return KindTimeout }
