package trade

import "github.com/ashureev/tradebot/internal/domain"

// Listener receives the sub-events of one trade session. The manager registers it in
// OpenTrade and drops it in CloseTrade, so callbacks never outlive the session.
type Listener interface {
	OnTradeInit(s *Session)
	OnTradeAddItem(s *Session, item domain.Item)
	OnTradeRemoveItem(s *Session, item domain.Item)
	OnTradeMessage(s *Session, message string)
	OnTradeReady(s *Session, ready bool)
	OnTradeAccept(s *Session)
	OnTradeSuccess(s *Session)
	OnTradeClose(s *Session)
	OnTradeError(s *Session, message string)
	OnTradeStatusError(s *Session, status domain.TradeStatusCode)
	OnTradeTimeout(s *Session)
}
