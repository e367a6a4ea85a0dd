package models

// CheckoutStep is the position in the three step checkout.
type CheckoutStep int

const (
	StepDelivery CheckoutStep = 1
	StepAddress  CheckoutStep = 2
	StepPayment  CheckoutStep = 3
)

func (s CheckoutStep) Valid() bool {
	return s >= StepDelivery && s <= StepPayment
}

func (s CheckoutStep) String() string {
	switch s {
	case StepDelivery:
		return "delivery"
	case StepAddress:
		return "address"
	case StepPayment:
		return "payment"
	}
	return "unknown"
}

// PaymentDetails is the persisted payment selection.
type PaymentDetails struct {
	Method       PaymentMethod `json:"method" validate:"required,oneof=cod sslcommerz card_emi cardless_emi"`
	BankCode     string        `json:"bank_code,omitempty"`
	EMIPlanID    *int64        `json:"emi_plan_id,omitempty"`
	TenureMonths int           `json:"tenure_months,omitempty" validate:"gte=0"`
}

// CheckoutState is the aggregate the checkout routes return.
type CheckoutState struct {
	Step              CheckoutStep     `json:"step"`
	ShippingMethod    string           `json:"selected_shipping_method,omitempty"`
	ShippingAddress   *Address         `json:"shipping_address,omitempty"`
	BillingAddress    *Address         `json:"billing_address,omitempty"`
	BillingSameAsShip bool             `json:"billing_same_as_shipping"`
	Payment           *PaymentDetails  `json:"payment_details,omitempty"`
	PromoCode         *AppliedPromo    `json:"promo_code,omitempty"`
	Shipping          *ShippingDetails `json:"shipping_details,omitempty"`
	Cart              *Cart            `json:"cart,omitempty"`
	Totals            *OrderTotals     `json:"totals,omitempty"`
	AllowedPayments   []PaymentMethod  `json:"allowed_payment_methods,omitempty"`
}

// OrderTotals represents the financial breakdown shown before placing the order.
type OrderTotals struct {
	Subtotal     float64 `json:"subtotal"`
	Shipping     float64 `json:"shipping"`
	Discount     float64 `json:"discount"`
	GrandTotal   float64 `json:"grand_total"`
	AmountDueNow float64 `json:"amount_due_now"`
}

type SelectShippingMethodRequest struct {
	Name string `json:"name" binding:"required"`
	City string `json:"city,omitempty"`
}

type SetAddressRequest struct {
	Shipping          Address  `json:"shipping_address"`
	Billing           *Address `json:"billing_address,omitempty"`
	BillingSameAsShip bool     `json:"billing_same_as_shipping"`
}

type SelectPaymentRequest struct {
	Method       PaymentMethod `json:"method" binding:"required,oneof=cod sslcommerz card_emi cardless_emi"`
	BankCode     string        `json:"bank_code,omitempty"`
	EMIPlanID    *int64        `json:"emi_plan_id,omitempty"`
	TenureMonths int           `json:"tenure_months,omitempty" binding:"gte=0"`
}

type StepRequest struct {
	Step CheckoutStep `json:"step" binding:"required,min=1,max=3"`
}

type PlaceOrderRequest struct {
	Notes string `json:"notes,omitempty" binding:"max=500"`
}

// PlaceOrderResult is returned by a successful order placement.
type PlaceOrderResult struct {
	Order        OrderResponse     `json:"order"`
	Confirmation OrderConfirmation `json:"confirmation"`
	RedirectURL  string            `json:"redirect_url,omitempty"`
	PaymentError string            `json:"payment_error,omitempty"`
}
