package trade

import (
	"errors"
	"fmt"

	"github.com/ashureev/tradebot/internal/domain"
)

var (
	// ErrTradeInProgress is returned when a session is opened while another is live.
	ErrTradeInProgress = errors.New("trade: another trade is in progress")
	// ErrCookiesInvalid is returned when the web session cannot be used for trading.
	ErrCookiesInvalid = errors.New("trade: web session cookies are invalid")
	// ErrTradeClosed is returned by session actions after the session ended.
	ErrTradeClosed = errors.New("trade: session is closed")
	// ErrItemNotFound is returned when adding an item the bot does not own.
	ErrItemNotFound = errors.New("trade: item not found in inventory")
)

// InventoryFetchError reports which party's inventory could not be read.
type InventoryFetchError struct {
	Owner domain.SteamID
	Err   error
}

func (e *InventoryFetchError) Error() string {
	return fmt.Sprintf("fetch inventory of %s: %v", e.Owner, e.Err)
}

func (e *InventoryFetchError) Unwrap() error {
	return e.Err
}

// ChatMessage is the explanation sent to partner when the fetch failed.
func (e *InventoryFetchError) ChatMessage(partner domain.SteamID) string {
	if e.Owner == partner {
		return "Trade failed. Could not correctly fetch your backpack. Either the inventory is inaccessible or your backpack is private."
	}
	return "Trade failed. Could not correctly fetch my backpack."
}
