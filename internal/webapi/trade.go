package webapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ashureev/tradebot/internal/domain"
	"github.com/ashureev/tradebot/internal/trade"
)

func tradePath(partner domain.SteamID, action string) string {
	return fmt.Sprintf("/trade/%s/%s", partner, action)
}

// Poll returns the trade status and the actions logged since logPos.
func (c *Client) Poll(ctx context.Context, partner domain.SteamID, logPos int) (*domain.TradeStatus, error) {
	var status domain.TradeStatus
	in := map[string]int{"logpos": logPos}
	if err := c.do(ctx, http.MethodPost, tradePath(partner, "poll"), in, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

type itemRequest struct {
	Item domain.Item `json:"item"`
	Slot int         `json:"slot"`
}

// AddItem puts item into slot.
func (c *Client) AddItem(ctx context.Context, partner domain.SteamID, item domain.Item, slot int) error {
	return c.do(ctx, http.MethodPost, tradePath(partner, "additem"), itemRequest{Item: item, Slot: slot}, nil)
}

// RemoveItem takes item out of slot.
func (c *Client) RemoveItem(ctx context.Context, partner domain.SteamID, item domain.Item, slot int) error {
	return c.do(ctx, http.MethodPost, tradePath(partner, "removeitem"), itemRequest{Item: item, Slot: slot}, nil)
}

type readyRequest struct {
	Ready   bool `json:"ready"`
	Version int  `json:"version"`
}

// SetReady toggles the bot's ready flag at the given trade version.
func (c *Client) SetReady(ctx context.Context, partner domain.SteamID, ready bool, version int) error {
	return c.do(ctx, http.MethodPost, tradePath(partner, "toggleready"), readyRequest{Ready: ready, Version: version}, nil)
}

// Accept confirms the trade at the given version.
func (c *Client) Accept(ctx context.Context, partner domain.SteamID, version int) error {
	return c.do(ctx, http.MethodPost, tradePath(partner, "confirm"), map[string]int{"version": version}, nil)
}

// SendMessage posts to the trade chat.
func (c *Client) SendMessage(ctx context.Context, partner domain.SteamID, message string) error {
	return c.do(ctx, http.MethodPost, tradePath(partner, "chat"), map[string]string{"message": message}, nil)
}

// Cancel cancels the live trade.
func (c *Client) Cancel(ctx context.Context, partner domain.SteamID) error {
	return c.do(ctx, http.MethodPost, tradePath(partner, "cancel"), nil, nil)
}

var (
	_ trade.API              = (*Client)(nil)
	_ trade.InventoryFetcher = (*Client)(nil)
)
