// Package promo validates promo codes for guest carts and computes their discount.
// Authenticated carts apply codes through the backend instead.
package promo

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"julianmorley.ca/con-plar/storefront/pkg/models"
	"julianmorley.ca/con-plar/storefront/pkg/pricing"
)

var (
	ErrUnknownCode = errors.New("promo code not found")
	ErrInactive    = errors.New("promo code is not active")
	ErrNotStarted  = errors.New("promo code is not valid yet")
	ErrExpired     = errors.New("promo code has expired")
	ErrMinPurchase = errors.New("cart does not meet the minimum purchase")
	ErrEmptyCart   = errors.New("cart is empty")
)

// Find returns the promotion whose code matches, ignoring case and surrounding space.
func Find(promotions []models.Promotion, code string) *models.Promotion {
	code = strings.TrimSpace(code)
	for i := range promotions {
		if strings.EqualFold(strings.TrimSpace(promotions[i].Code), code) {
			return &promotions[i]
		}
	}
	return nil
}

// Check reports why p cannot be applied to a cart with the given subtotal at now.
func Check(p *models.Promotion, subtotal float64, now time.Time) error {
	if p == nil {
		return ErrUnknownCode
	}
	if !p.IsActive {
		return ErrInactive
	}
	if p.ValidFrom != nil && now.Before(*p.ValidFrom) {
		return ErrNotStarted
	}
	if p.ValidUntil != nil && now.After(*p.ValidUntil) {
		return ErrExpired
	}
	if subtotal <= 0 {
		return ErrEmptyCart
	}
	if minPurchase := p.MinPurchase.Float(); minPurchase > 0 && subtotal < minPurchase {
		return fmt.Errorf("%w of %s", ErrMinPurchase, pricing.FormatTaka(minPurchase))
	}
	return nil
}

// Discount is the amount p takes off subtotal. Percentage discounts are capped by
// max_discount when it is positive; no discount ever exceeds the subtotal.
func Discount(p *models.Promotion, subtotal float64) float64 {
	if p == nil || subtotal <= 0 || math.IsNaN(subtotal) {
		return 0
	}
	value := p.DiscountValue.Float()
	if value <= 0 {
		return 0
	}
	var discount float64
	switch p.DiscountType {
	case models.DiscountPercentage:
		discount = subtotal * math.Min(value, 100) / 100
		if maxDiscount := p.MaxDiscount.Float(); maxDiscount > 0 && discount > maxDiscount {
			discount = maxDiscount
		}
	case models.DiscountFixed:
		discount = value
	default:
		return 0
	}
	return pricing.Round2(math.Min(discount, subtotal))
}

// Apply validates code against promotions and returns the applied promo for the cart.
func Apply(promotions []models.Promotion, code string, subtotal float64, now time.Time) (*models.Promotion, *models.AppliedPromo, error) {
	p := Find(promotions, code)
	if err := Check(p, subtotal, now); err != nil {
		return nil, nil, err
	}
	return p, Applied(p, subtotal), nil
}

// Applied renders p against subtotal for display on a cart.
func Applied(p *models.Promotion, subtotal float64) *models.AppliedPromo {
	return &models.AppliedPromo{
		Code:           p.Code,
		DiscountAmount: models.Amount(Discount(p, subtotal)),
		DiscountType:   p.DiscountType,
	}
}
