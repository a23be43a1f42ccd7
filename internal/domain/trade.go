package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// InventoryContext identifies one inventory (app id + context id), written as "440/2".
type InventoryContext struct {
	AppID     uint32 `json:"appid"`
	ContextID uint64 `json:"contextid"`
}

func (c InventoryContext) String() string {
	return fmt.Sprintf("%d/%d", c.AppID, c.ContextID)
}

// ParseInventoryContext parses "appid/contextid". A bare app id uses context 2.
func ParseInventoryContext(raw string) (InventoryContext, error) {
	raw = strings.TrimSpace(raw)
	appPart, ctxPart, found := strings.Cut(raw, "/")
	app, err := strconv.ParseUint(appPart, 10, 32)
	if err != nil {
		return InventoryContext{}, fmt.Errorf("parse inventory app id %q: %w", raw, err)
	}
	ctx := uint64(2)
	if found {
		ctx, err = strconv.ParseUint(ctxPart, 10, 64)
		if err != nil {
			return InventoryContext{}, fmt.Errorf("parse inventory context id %q: %w", raw, err)
		}
	}
	return InventoryContext{AppID: uint32(app), ContextID: ctx}, nil
}

// Item is a single tradable asset.
type Item struct {
	ID        uint64 `json:"id"`
	AppID     uint32 `json:"appid"`
	ContextID uint64 `json:"contextid"`
	Name      string `json:"name"`
	Tradable  bool   `json:"tradable"`
}

// Inventory is the set of items an owner holds across the loaded contexts.
type Inventory struct {
	Owner    SteamID            `json:"owner"`
	Contexts []InventoryContext `json:"contexts"`
	Items    []Item             `json:"items"`
	LoadedAt time.Time          `json:"loaded_at"`
}

// Find returns the item with the given asset id.
func (inv *Inventory) Find(id uint64) (Item, bool) {
	if inv == nil {
		return Item{}, false
	}
	for _, it := range inv.Items {
		if it.ID == id {
			return it, true
		}
	}
	return Item{}, false
}

// TradeStatusCode is the overall status reported by a live trade poll.
type TradeStatusCode int

const (
	TradeStatusOngoing TradeStatusCode = iota
	TradeStatusCompleted
	TradeStatusEmpty
	TradeStatusCancelled
	TradeStatusTimedOut
	TradeStatusFailed
)

func (c TradeStatusCode) String() string {
	switch c {
	case TradeStatusOngoing:
		return "ongoing"
	case TradeStatusCompleted:
		return "completed"
	case TradeStatusEmpty:
		return "empty"
	case TradeStatusCancelled:
		return "cancelled"
	case TradeStatusTimedOut:
		return "timed_out"
	case TradeStatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(c))
	}
}

// TradeActionKind is a single partner action reported by a trade poll.
type TradeActionKind string

const (
	TradeActionItemAdded   TradeActionKind = "item_added"
	TradeActionItemRemoved TradeActionKind = "item_removed"
	TradeActionReady       TradeActionKind = "ready"
	TradeActionUnready     TradeActionKind = "unready"
	TradeActionAccept      TradeActionKind = "accept"
	TradeActionMessage     TradeActionKind = "message"
)

// TradeAction is one entry of the live trade event log.
type TradeAction struct {
	Kind    TradeActionKind `json:"kind"`
	Actor   SteamID         `json:"actor"`
	Item    Item            `json:"item,omitempty"`
	Message string          `json:"message,omitempty"`
	At      time.Time       `json:"at"`
}

// TradeStatus is the result of one trade poll.
type TradeStatus struct {
	Status  TradeStatusCode `json:"status"`
	Version int             `json:"version"`
	LogPos  int             `json:"logpos"`
	Actions []TradeAction   `json:"actions"`
}

// OfferState is the lifecycle state of a persistent trade offer.
type OfferState string

const (
	OfferStateUnknown  OfferState = "unknown"
	OfferStateProposed OfferState = "proposed"
	OfferStateActive   OfferState = "active"
	OfferStateAccepted OfferState = "accepted"
	OfferStateDeclined OfferState = "declined"
	OfferStateExpired  OfferState = "expired"
)

// TradeOffer is an asynchronously delivered proposal that needs no live session.
type TradeOffer struct {
	ID             string     `json:"id"`
	Partner        SteamID    `json:"partner"`
	State          OfferState `json:"state"`
	Message        string     `json:"message,omitempty"`
	ItemsToGive    []Item     `json:"items_to_give,omitempty"`
	ItemsToReceive []Item     `json:"items_to_receive,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// IsActive reports whether the offer still awaits a response.
func (o *TradeOffer) IsActive() bool {
	return o != nil && o.State == OfferStateActive
}
