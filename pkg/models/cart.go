package models

import (
	"fmt"
	"strconv"
	"time"
)

// EMISelection is the per-item EMI choice. It is embedded so the fields sit flat on
// the item, the way the backend serialises them.
type EMISelection struct {
	EMISelected bool     `json:"emi_selected"`
	EMIPeriod   int      `json:"emi_period,omitempty" validate:"gte=0"`
	EMIPlanID   *int64   `json:"emi_plan,omitempty"`
	EMIBank     string   `json:"emi_bank,omitempty"`
	EMIType     PlanType `json:"emi_type,omitempty" validate:"omitempty,oneof=card_emi cardless_emi"`
}

type ShippingInfo struct {
	FreeShippingThreshold float64 `json:"free_shipping_threshold"`
	ShippingCost          float64 `json:"shipping_cost"`
	QualifiesForFree      bool    `json:"qualifies_for_free_shipping"`
}

type AppliedPromo struct {
	Code           string `json:"code" validate:"required"`
	DiscountAmount Amount `json:"discount_amount"`
	DiscountType   string `json:"discount_type,omitempty"`
}

// CartItem is a line of either the backend cart or the rendered local cart.
// Key identifies the line for update/remove in both modes.
type CartItem struct {
	ID         int64      `json:"id,omitempty"`
	Key        string     `json:"key"`
	Product    Product    `json:"product"`
	Variation  *Variation `json:"variation,omitempty"`
	Quantity   int        `json:"quantity"`
	UnitPrice  Amount     `json:"unit_price"`
	TotalPrice Amount     `json:"total_price"`
	EMISelection
}

// Cart source values.
const (
	CartSourceBackend = "backend"
	CartSourceLocal   = "local"
)

type Cart struct {
	ID           int64         `json:"id,omitempty"`
	Items        []CartItem    `json:"items"`
	TotalItems   int           `json:"total_items"`
	TotalPrice   Amount        `json:"total_price"`
	ShippingInfo *ShippingInfo `json:"shipping_info,omitempty"`
	PromoCode    *AppliedPromo `json:"promo_code,omitempty"`
	Source       string        `json:"source,omitempty"`
}

func EmptyCart(source string) *Cart {
	return &Cart{Items: []CartItem{}, Source: source}
}

func (c *Cart) IsEmpty() bool {
	return c == nil || len(c.Items) == 0
}

// Subtotal sums line totals, falling back to unit price × quantity when the backend
// omits a line total.
func (c *Cart) Subtotal() float64 {
	if c == nil {
		return 0
	}
	var subtotal float64
	for _, item := range c.Items {
		line := item.TotalPrice.Float()
		if line == 0 {
			line = item.UnitPrice.Float() * float64(item.Quantity)
		}
		subtotal += line
	}
	return subtotal
}

func (c *Cart) HasEMIItems() bool {
	if c == nil {
		return false
	}
	for _, item := range c.Items {
		if item.EMISelected {
			return true
		}
	}
	return false
}

// NeedsShipping is true when at least one line is a physical good.
func (c *Cart) NeedsShipping() bool {
	if c == nil {
		return false
	}
	for _, item := range c.Items {
		if item.Product.NeedsShipping() {
			return true
		}
	}
	return false
}

// FindItem looks a line up by key, backend id or local key.
func (c *Cart) FindItem(key string) *CartItem {
	if c == nil {
		return nil
	}
	for i := range c.Items {
		if c.Items[i].Key == key {
			return &c.Items[i]
		}
	}
	return nil
}

// LocalCartItem is one entry of the session-local cart array.
type LocalCartItem struct {
	ProductID      int64     `json:"product_id" validate:"required,gt=0"`
	VariationID    *int64    `json:"variation_id,omitempty"`
	Quantity       int       `json:"quantity" validate:"gte=1"`
	ProductData    Product   `json:"product_data"`
	AddedAt        time.Time `json:"added_at"`
	BackendItemID  int64     `json:"backend_item_id,omitempty"`
	PushedQuantity int       `json:"pushed_quantity,omitempty" validate:"gte=0"`
	EMISelection
}

// Pending reports whether the entry exists only locally and has units the backend
// has not been sent yet. PushedQuantity counts the units add_item already accepted
// for a line that has no backend id yet.
func (i *LocalCartItem) Pending() bool {
	return i.BackendItemID == 0 && i.Quantity > i.PushedQuantity
}

// Unpushed is the quantity still to be sent with add_item.
func (i *LocalCartItem) Unpushed() int {
	if !i.Pending() {
		return 0
	}
	return i.Quantity - i.PushedQuantity
}

func (i *LocalCartItem) Key() string {
	return LocalItemKey(i.ProductID, i.VariationID)
}

// Matches reports whether key addresses this entry, either by its local key or by
// the backend line id it was mirrored from.
func (i *LocalCartItem) Matches(key string) bool {
	if key == i.Key() {
		return true
	}
	if i.BackendItemID == 0 {
		return false
	}
	return key == strconv.FormatInt(i.BackendItemID, 10)
}

func LocalItemKey(productID int64, variationID *int64) string {
	if variationID == nil {
		return fmt.Sprintf("p%d", productID)
	}
	return fmt.Sprintf("p%d-v%d", productID, *variationID)
}

// AddItemRequest is the body of POST /api/cart/items.
type AddItemRequest struct {
	ProductID      int64    `json:"product_id" binding:"required,gt=0"`
	Quantity       int      `json:"quantity" binding:"required,min=1"`
	VariationID    *int64   `json:"variation_id,omitempty"`
	ShippingMethod string   `json:"shipping_method,omitempty"`
	EMISelected    bool     `json:"emi_selected"`
	EMIPlanID      *int64   `json:"emi_plan_id,omitempty"`
	EMIPeriod      int      `json:"emi_period,omitempty" binding:"gte=0"`
	EMIBank        string   `json:"emi_bank,omitempty"`
	EMIType        PlanType `json:"emi_type,omitempty" binding:"omitempty,oneof=card_emi cardless_emi"`
}

func (r *AddItemRequest) Selection() EMISelection {
	if !r.EMISelected {
		return EMISelection{}
	}
	return EMISelection{
		EMISelected: true,
		EMIPeriod:   r.EMIPeriod,
		EMIPlanID:   r.EMIPlanID,
		EMIBank:     r.EMIBank,
		EMIType:     r.EMIType,
	}
}

type UpdateCartItemRequest struct {
	Quantity int `json:"quantity" binding:"min=0"`
}

type ApplyPromoRequest struct {
	Code string `json:"code" binding:"required,min=2,max=64"`
}
