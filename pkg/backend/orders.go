package backend

import (
	"context"

	"julianmorley.ca/con-plar/storefront/pkg/models"
)

func (c *Client) CreateOrder(ctx context.Context, req *models.OrderCreateRequest) (*models.OrderResponse, error) {
	var resp models.OrderResponse
	if err := c.post(ctx, "orders/", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// InitiateSSLCommerz asks the backend for a gateway session. A decoded response with
// a non-success status is returned as is; the caller decides what to show.
func (c *Client) InitiateSSLCommerz(ctx context.Context, req *models.PaymentInitRequest) (*models.PaymentInitResponse, error) {
	var resp models.PaymentInitResponse
	if err := c.post(ctx, "payments/initiate-sslcommerz/", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
