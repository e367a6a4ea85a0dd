package backend

import (
	"context"
	"strconv"

	"julianmorley.ca/con-plar/storefront/pkg/models"
)

// AddItemPayload is the body of POST /orders/cart/add_item/.
type AddItemPayload struct {
	ProductID      int64  `json:"product_id"`
	Quantity       int    `json:"quantity"`
	VariationID    *int64 `json:"variation_id,omitempty"`
	ShippingMethod string `json:"shipping_method,omitempty"`
	EMISelected    bool   `json:"emi_selected"`
	EMIPlanID      *int64 `json:"emi_plan_id,omitempty"`
	EMIPeriod      int    `json:"emi_period,omitempty"`
}

func AddItemPayloadFrom(req *models.AddItemRequest) AddItemPayload {
	p := AddItemPayload{
		ProductID:      req.ProductID,
		Quantity:       req.Quantity,
		VariationID:    req.VariationID,
		ShippingMethod: req.ShippingMethod,
		EMISelected:    req.EMISelected,
	}
	if req.EMISelected {
		p.EMIPlanID = req.EMIPlanID
		p.EMIPeriod = req.EMIPeriod
	}
	return p
}

type updateItemPayload struct {
	ItemID   int64 `json:"item_id"`
	Quantity int   `json:"quantity"`
}

type removeItemPayload struct {
	ItemID int64 `json:"item_id"`
}

type promoPayload struct {
	Code string `json:"code"`
}

func (c *Client) GetCart(ctx context.Context) (*models.Cart, error) {
	var cart models.Cart
	if err := c.get(ctx, "orders/cart/my_cart/", nil, &cart); err != nil {
		return nil, err
	}
	return normalizeCart(&cart), nil
}

func (c *Client) AddCartItem(ctx context.Context, payload AddItemPayload) error {
	return c.post(ctx, "orders/cart/add_item/", payload, nil)
}

func (c *Client) UpdateCartItem(ctx context.Context, itemID int64, quantity int) error {
	return c.post(ctx, "orders/cart/update_item/", updateItemPayload{ItemID: itemID, Quantity: quantity}, nil)
}

func (c *Client) RemoveCartItem(ctx context.Context, itemID int64) error {
	return c.post(ctx, "orders/cart/remove_item/", removeItemPayload{ItemID: itemID}, nil)
}

func (c *Client) ClearCart(ctx context.Context) error {
	return c.post(ctx, "orders/cart/clear/", struct{}{}, nil)
}

func (c *Client) ApplyPromo(ctx context.Context, code string) error {
	return c.post(ctx, "orders/cart/apply_promo/", promoPayload{Code: code}, nil)
}

func (c *Client) RemovePromo(ctx context.Context) error {
	return c.post(ctx, "orders/cart/remove_promo/", struct{}{}, nil)
}

// normalizeCart fills the fields the backend leaves implicit: line keys, unit
// prices and the item count.
func normalizeCart(cart *models.Cart) *models.Cart {
	if cart.Items == nil {
		cart.Items = []models.CartItem{}
	}
	count := 0
	for i := range cart.Items {
		item := &cart.Items[i]
		if item.Key == "" {
			item.Key = strconv.FormatInt(item.ID, 10)
		}
		if item.UnitPrice == 0 {
			item.UnitPrice = models.Amount(models.ResolvePrice(&item.Product, item.Variation))
		}
		if item.TotalPrice == 0 {
			item.TotalPrice = models.Amount(item.UnitPrice.Float() * float64(item.Quantity))
		}
		count += item.Quantity
	}
	if cart.TotalItems == 0 {
		cart.TotalItems = count
	}
	if cart.TotalPrice == 0 {
		cart.TotalPrice = models.Amount(cart.Subtotal())
	}
	cart.Source = models.CartSourceBackend
	return cart
}
