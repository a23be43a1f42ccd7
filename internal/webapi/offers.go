package webapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ashureev/tradebot/internal/domain"
)

type offersResponse struct {
	Offers []domain.TradeOffer `json:"offers"`
}

// ListOffers returns received offers updated at or after since.
func (c *Client) ListOffers(ctx context.Context, since time.Time) ([]domain.TradeOffer, error) {
	q := url.Values{}
	q.Set("received", "1")
	if !since.IsZero() {
		q.Set("since", strconv.FormatInt(since.Unix(), 10))
	}
	var resp offersResponse
	if err := c.do(ctx, http.MethodGet, "/offers?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Offers, nil
}

// GetOffer returns a single offer.
func (c *Client) GetOffer(ctx context.Context, id string) (*domain.TradeOffer, error) {
	var offer domain.TradeOffer
	if err := c.do(ctx, http.MethodGet, "/offers/"+url.PathEscape(id), nil, &offer); err != nil {
		return nil, err
	}
	return &offer, nil
}

// AcceptOffer accepts offer id.
func (c *Client) AcceptOffer(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/offers/"+url.PathEscape(id)+"/accept", nil, nil)
}

// DeclineOffer declines offer id.
func (c *Client) DeclineOffer(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/offers/"+url.PathEscape(id)+"/decline", nil, nil)
}

type sendOfferResponse struct {
	ID string `json:"id"`
}

// SendOffer submits a new offer and returns its id.
func (c *Client) SendOffer(ctx context.Context, offer *domain.TradeOffer) (string, error) {
	var resp sendOfferResponse
	if err := c.do(ctx, http.MethodPost, "/offers", offer, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", fmt.Errorf("send offer to %s: empty offer id", offer.Partner)
	}
	return resp.ID, nil
}
