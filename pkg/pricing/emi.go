// Package pricing holds the storefront's only money arithmetic: EMI plans and the
// display formatting of amounts. Every caller goes through here.
package pricing

import (
	"fmt"
	"math"

	"julianmorley.ca/con-plar/storefront/pkg/models"
)

// DownPaymentBase selects what a cardless down payment is a percentage of.
// The storefront has historically used both; the choice is explicit per call.
type DownPaymentBase string

const (
	// BasePrincipal takes the down payment from the price and charges interest on
	// the remaining financed amount.
	BasePrincipal DownPaymentBase = "principal"
	// BaseTotalWithInterest charges interest on the full price and takes the down
	// payment from price plus interest.
	BaseTotalWithInterest DownPaymentBase = "total_with_interest"
)

// ParseDownPaymentBase validates the CARDLESS_DOWN_PAYMENT_BASE setting. An empty
// value selects BaseTotalWithInterest.
func ParseDownPaymentBase(s string) (DownPaymentBase, error) {
	switch DownPaymentBase(s) {
	case BasePrincipal, BaseTotalWithInterest:
		return DownPaymentBase(s), nil
	case "":
		return BaseTotalWithInterest, nil
	}
	return "", fmt.Errorf("unknown down payment base %q", s)
}

// EMIInput is the common input of both EMI variants.
type EMIInput struct {
	Price              float64 `json:"price"`
	DownPaymentPercent float64 `json:"down_payment_percent"`
	InterestPercent    float64 `json:"interest_percent"`
	TenureMonths       int     `json:"tenure_months"`
}

func (in EMIInput) sanitized() EMIInput {
	out := EMIInput{
		Price:              nonNegative(in.Price),
		DownPaymentPercent: math.Min(nonNegative(in.DownPaymentPercent), 100),
		InterestPercent:    nonNegative(in.InterestPercent),
		TenureMonths:       in.TenureMonths,
	}
	if out.TenureMonths < 0 {
		out.TenureMonths = 0
	}
	return out
}

// Breakdown is the result of an EMI calculation. InstallmentTotal is always
// FinancedAmount + TotalInterest and is what the monthly installments add up to.
type Breakdown struct {
	PlanType           models.PlanType `json:"plan_type"`
	Base               DownPaymentBase `json:"down_payment_base,omitempty"`
	Price              float64         `json:"price"`
	DownPaymentPercent float64         `json:"down_payment_percent"`
	InterestPercent    float64         `json:"interest_percent"`
	TenureMonths       int             `json:"tenure_months"`
	DownPayment        float64         `json:"down_payment"`
	FinancedAmount     float64         `json:"financed_amount"`
	TotalInterest      float64         `json:"total_interest"`
	TotalWithInterest  float64         `json:"total_with_interest"`
	InstallmentTotal   float64         `json:"installment_total"`
	MonthlyInstallment float64         `json:"monthly_installment"`
	TotalPayable       float64         `json:"total_payable"`
	ShowDownPayment    bool            `json:"show_down_payment"`
	Valid              bool            `json:"valid"`
}

// ComputeCardEMI prices a bank card EMI: annual simple interest on the financed
// amount, prorated by tenure.
func ComputeCardEMI(in EMIInput) Breakdown {
	in = in.sanitized()
	b := newBreakdown(models.PlanTypeCard, in)

	b.DownPayment = in.Price * in.DownPaymentPercent / 100
	b.FinancedAmount = in.Price - b.DownPayment
	b.TotalInterest = b.FinancedAmount * in.InterestPercent / 100 * float64(in.TenureMonths) / 12
	b.finish(in)
	return b
}

// ComputeCardlessEMI prices a cardless EMI. Interest is a flat percentage charged
// once, so it does not depend on tenure.
func ComputeCardlessEMI(in EMIInput, base DownPaymentBase) Breakdown {
	in = in.sanitized()
	b := newBreakdown(models.PlanTypeCardless, in)
	b.Base = base

	switch base {
	case BasePrincipal:
		b.DownPayment = in.Price * in.DownPaymentPercent / 100
		b.FinancedAmount = in.Price - b.DownPayment
		b.TotalInterest = b.FinancedAmount * in.InterestPercent / 100
	default:
		b.Base = BaseTotalWithInterest
		b.TotalInterest = in.Price * in.InterestPercent / 100
		b.DownPayment = (in.Price + b.TotalInterest) * in.DownPaymentPercent / 100
		b.FinancedAmount = in.Price - b.DownPayment
	}
	b.finish(in)
	return b
}

// PlanBreakdown dispatches on the plan's type.
func PlanBreakdown(plan *models.EMIPlan, price float64, base DownPaymentBase) (Breakdown, error) {
	if plan == nil {
		return Breakdown{}, fmt.Errorf("emi plan is required")
	}
	in := EMIInput{
		Price:              price,
		DownPaymentPercent: plan.DownPaymentPercentage.Float(),
		InterestPercent:    plan.InterestRate.Float(),
		TenureMonths:       plan.DurationMonths,
	}
	switch plan.PlanType {
	case models.PlanTypeCard:
		return ComputeCardEMI(in), nil
	case models.PlanTypeCardless:
		return ComputeCardlessEMI(in, base), nil
	}
	return Breakdown{}, fmt.Errorf("unsupported emi plan type %q", plan.PlanType)
}

func newBreakdown(t models.PlanType, in EMIInput) Breakdown {
	return Breakdown{
		PlanType:           t,
		Price:              in.Price,
		DownPaymentPercent: in.DownPaymentPercent,
		InterestPercent:    in.InterestPercent,
		TenureMonths:       in.TenureMonths,
		ShowDownPayment:    in.DownPaymentPercent > 0,
	}
}

func (b *Breakdown) finish(in EMIInput) {
	b.TotalWithInterest = in.Price + b.TotalInterest
	b.InstallmentTotal = b.FinancedAmount + b.TotalInterest
	b.TotalPayable = b.DownPayment + b.InstallmentTotal
	if in.TenureMonths > 0 {
		b.MonthlyInstallment = b.InstallmentTotal / float64(in.TenureMonths)
		b.Valid = true
	}
}

// Rounded returns a copy with every money field rounded to two decimals.
func (b Breakdown) Rounded() Breakdown {
	b.DownPayment = Round2(b.DownPayment)
	b.FinancedAmount = Round2(b.FinancedAmount)
	b.TotalInterest = Round2(b.TotalInterest)
	b.TotalWithInterest = Round2(b.TotalWithInterest)
	b.InstallmentTotal = Round2(b.InstallmentTotal)
	b.MonthlyInstallment = Round2(b.MonthlyInstallment)
	b.TotalPayable = Round2(b.TotalPayable)
	return b
}

func nonNegative(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	return f
}
