package checkout

import (
	"context"
	"fmt"
	"math"

	"julianmorley.ca/con-plar/storefront/pkg/models"
	"julianmorley.ca/con-plar/storefront/pkg/pricing"
)

// AllowedPayments lists the payment methods the cart can use. Carts with EMI items
// can only pay through the EMI gateway method of those items.
func AllowedPayments(c *models.Cart) []models.PaymentMethod {
	if c.IsEmpty() {
		return nil
	}
	if !c.HasEMIItems() {
		return []models.PaymentMethod{models.PaymentCOD, models.PaymentSSLCommerz}
	}
	return emiMethods(c)
}

func emiMethods(c *models.Cart) []models.PaymentMethod {
	var card, cardless bool
	for _, item := range c.Items {
		if !item.EMISelected {
			continue
		}
		switch item.EMIType {
		case models.PlanTypeCard:
			card = true
		case models.PlanTypeCardless:
			cardless = true
		default:
			card, cardless = true, true
		}
	}
	var out []models.PaymentMethod
	if card {
		out = append(out, models.PaymentCardEMI)
	}
	if cardless {
		out = append(out, models.PaymentCardlessEMI)
	}
	return out
}

func resolvePayment(c *models.Cart, method models.PaymentMethod) (models.PaymentMethod, error) {
	if method == "" {
		return "", ErrNoPaymentMethod
	}
	if !method.Valid() {
		return "", fmt.Errorf("%w: %q", ErrPaymentNotAllowed, method)
	}
	if !c.HasEMIItems() {
		if method.IsEMI() {
			return "", fmt.Errorf("%w: %s needs an item bought on emi", ErrPaymentNotAllowed, method)
		}
		return method, nil
	}
	if method == models.PaymentCOD {
		return "", fmt.Errorf("%w: cash on delivery cannot be used with emi items", ErrPaymentNotAllowed)
	}
	allowed := emiMethods(c)
	for _, m := range allowed {
		if m == method {
			return method, nil
		}
	}
	return allowed[0], nil
}

// emiApplication prices the EMI plan of the cart's EMI item against base, the
// amount being financed.
func (s *Service) emiApplication(ctx context.Context, c *models.Cart, pay *models.PaymentDetails, base float64) (*models.EMIApplication, pricing.Breakdown, error) {
	planType := models.PlanType(pay.Method)
	item := emiItem(c, planType)
	if item == nil {
		return nil, pricing.Breakdown{}, ErrEMIPlanRequired
	}

	planID := pay.EMIPlanID
	if planID == nil {
		planID = item.EMIPlanID
	}
	tenure := pay.TenureMonths
	if tenure == 0 {
		tenure = item.EMIPeriod
	}

	plans, err := s.backend.EMIPlans(ctx, item.Product.ID)
	if err != nil {
		return nil, pricing.Breakdown{}, fmt.Errorf("failed to load emi plans: %w", err)
	}
	plan := choosePlan(plans, planType, planID, tenure)
	if plan == nil {
		return nil, pricing.Breakdown{}, ErrEMIPlanRequired
	}
	b, err := pricing.PlanBreakdown(plan, base, s.base)
	if err != nil {
		return nil, pricing.Breakdown{}, err
	}
	b = b.Rounded()

	app := &models.EMIApplication{
		EMIType:      plan.PlanType,
		PlanID:       plan.ID,
		TenureMonths: plan.DurationMonths,
		BankCode:     bankCode(pay, item, plan),
		BaseAmount:   pricing.Round2(base),
	}
	// card EMI interest is settled by the bank; only the base and bank travel
	if plan.PlanType == models.PlanTypeCardless {
		app.DownPaymentAmount = b.DownPayment
		app.MonthlyInstallment = b.MonthlyInstallment
		app.TotalInterest = b.TotalInterest
	}
	return app, b, nil
}

func emiItem(c *models.Cart, t models.PlanType) *models.CartItem {
	for i := range c.Items {
		item := &c.Items[i]
		if item.EMISelected && (item.EMIType == t || item.EMIType == "") {
			return item
		}
	}
	return nil
}

func choosePlan(plans []models.EMIPlan, t models.PlanType, id *int64, tenure int) *models.EMIPlan {
	var candidates []*models.EMIPlan
	for i := range plans {
		p := &plans[i]
		if p.PlanType != t || !p.Active() {
			continue
		}
		if id != nil {
			if p.ID == *id {
				return p
			}
			continue
		}
		if tenure > 0 && p.DurationMonths != tenure {
			continue
		}
		candidates = append(candidates, p)
	}
	if len(candidates) == 1 || (tenure > 0 && len(candidates) > 0) {
		return candidates[0]
	}
	return nil
}

func bankCode(pay *models.PaymentDetails, item *models.CartItem, plan *models.EMIPlan) string {
	switch {
	case pay.BankCode != "":
		return pay.BankCode
	case item.EMIBank != "":
		return item.EMIBank
	case plan.Bank != nil:
		return plan.Bank.Code
	}
	return ""
}

func computeTotals(c *models.Cart, details models.ShippingDetails, promo *models.AppliedPromo) models.OrderTotals {
	subtotal := pricing.Round2(c.Subtotal())
	var discount float64
	if promo != nil {
		discount = math.Min(math.Max(promo.DiscountAmount.Float(), 0), subtotal)
	}
	grand := pricing.Round2(math.Max(subtotal-discount+details.Cost, 0))
	return models.OrderTotals{
		Subtotal:     subtotal,
		Shipping:     details.Cost,
		Discount:     discount,
		GrandTotal:   grand,
		AmountDueNow: grand,
	}
}
