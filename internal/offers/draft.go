package offers

import (
	"context"

	"github.com/ashureev/tradebot/internal/domain"
)

// Draft is an offer being assembled before it is sent.
type Draft struct {
	mgr   *Manager
	offer domain.TradeOffer
}

// Partner returns the recipient of the draft.
func (d *Draft) Partner() domain.SteamID {
	return d.offer.Partner
}

// Give adds one of the bot's items.
func (d *Draft) Give(item domain.Item) *Draft {
	d.offer.ItemsToGive = append(d.offer.ItemsToGive, item)
	return d
}

// Receive asks for one of the partner's items.
func (d *Draft) Receive(item domain.Item) *Draft {
	d.offer.ItemsToReceive = append(d.offer.ItemsToReceive, item)
	return d
}

// Send submits the draft with message and returns the offer id.
func (d *Draft) Send(ctx context.Context, message string) (string, error) {
	offer := d.offer
	offer.Message = message
	id, err := d.mgr.Send(ctx, &offer)
	if err != nil {
		return "", err
	}
	d.offer = offer
	return id, nil
}
