package webapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ashureev/tradebot/internal/domain"
)

type inventoryResponse struct {
	Items []domain.Item `json:"items"`
}

// FetchInventory loads every requested context of owner's inventory.
func (c *Client) FetchInventory(ctx context.Context, owner domain.SteamID, contexts []domain.InventoryContext) (*domain.Inventory, error) {
	inv := &domain.Inventory{Owner: owner, Contexts: contexts}
	for _, ic := range contexts {
		var resp inventoryResponse
		path := fmt.Sprintf("/inventory/%s/%d/%d", owner, ic.AppID, ic.ContextID)
		if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
			return nil, fmt.Errorf("inventory %s of %s: %w", ic, owner, err)
		}
		for _, it := range resp.Items {
			if it.AppID == 0 {
				it.AppID = ic.AppID
			}
			if it.ContextID == 0 {
				it.ContextID = ic.ContextID
			}
			inv.Items = append(inv.Items, it)
		}
	}
	inv.LoadedAt = time.Now()
	return inv, nil
}
