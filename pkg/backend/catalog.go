package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"julianmorley.ca/con-plar/storefront/pkg/models"
)

// Catalog reads are passed through raw so fields this service does not model still
// reach the UI.

func (c *Client) ListProductsRaw(ctx context.Context, query url.Values) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.get(ctx, "products/", query, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// GetProductRaw fetches one product by slug or numeric id.
func (c *Client) GetProductRaw(ctx context.Context, ref string) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.get(ctx, fmt.Sprintf("products/%s/", url.PathEscape(ref)), nil, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func (c *Client) ListCategoriesRaw(ctx context.Context) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.get(ctx, "categories/", nil, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func (c *Client) ListBrandsRaw(ctx context.Context) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.get(ctx, "brands/", nil, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func (c *Client) ListPromotions(ctx context.Context) ([]models.Promotion, error) {
	var promos []models.Promotion
	if err := c.getList(ctx, "promotions/", nil, &promos); err != nil {
		return nil, err
	}
	return promos, nil
}

func (c *Client) ShippingMethods(ctx context.Context) ([]models.ShippingMethod, error) {
	var methods []models.ShippingMethod
	if err := c.getList(ctx, "shipping/methods/", nil, &methods); err != nil {
		return nil, err
	}
	return methods, nil
}

func (c *Client) ShippingRates(ctx context.Context, city string) ([]models.ShippingRate, error) {
	query := url.Values{}
	if city != "" {
		query.Set("city", city)
	}
	var rates []models.ShippingRate
	if err := c.getList(ctx, "shipping/rates/", query, &rates); err != nil {
		return nil, err
	}
	return rates, nil
}
