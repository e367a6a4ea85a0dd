package models

// PlanType is the closed set of EMI variants the backend offers.
type PlanType string

const (
	PlanTypeCard     PlanType = "card_emi"
	PlanTypeCardless PlanType = "cardless_emi"
)

func (t PlanType) Valid() bool {
	return t == PlanTypeCard || t == PlanTypeCardless
}

type Bank struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Code string `json:"code"`
	Logo string `json:"logo,omitempty"`
}

// EMIPlan is read-only plan data belonging to a product.
type EMIPlan struct {
	ID                    int64    `json:"id"`
	Name                  string   `json:"name,omitempty"`
	ProductID             int64    `json:"product"`
	PlanType              PlanType `json:"plan_type"`
	DurationMonths        int      `json:"duration_months"`
	InterestRate          Amount   `json:"interest_rate"`
	DownPaymentPercentage Amount   `json:"down_payment_percentage"`
	Bank                  *Bank    `json:"bank,omitempty"`
	IsActive              *bool    `json:"is_active,omitempty"`
}

// Active treats a missing flag as active.
func (p *EMIPlan) Active() bool {
	return p.IsActive == nil || *p.IsActive
}

// EMICalculation is the backend's own calculate_emi response, used when it is
// reachable; the local pricing module fills in otherwise.
type EMICalculation struct {
	PlanID             int64  `json:"plan_id"`
	ProductPrice       Amount `json:"product_price"`
	DownPayment        Amount `json:"down_payment"`
	PrincipalAmount    Amount `json:"principal_amount"`
	TotalInterest      Amount `json:"total_interest"`
	MonthlyInstallment Amount `json:"monthly_installment"`
	TotalAmount        Amount `json:"total_amount"`
	TenureMonths       int    `json:"tenure_months"`
	BankCode           string `json:"bank_code,omitempty"`
}
