package models

import "time"

const (
	DiscountPercentage = "percentage"
	DiscountFixed      = "fixed"
)

// Promotion is a promo code record from GET /promotions/.
type Promotion struct {
	ID            int64      `json:"id"`
	Code          string     `json:"code" validate:"required"`
	Description   string     `json:"description,omitempty"`
	DiscountType  string     `json:"discount_type"`
	DiscountValue Amount     `json:"discount_value"`
	MaxDiscount   Amount     `json:"max_discount"`
	MinPurchase   Amount     `json:"min_purchase"`
	IsActive      bool       `json:"is_active"`
	ValidFrom     *time.Time `json:"valid_from,omitempty"`
	ValidUntil    *time.Time `json:"valid_until,omitempty"`
}
