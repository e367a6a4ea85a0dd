package models

import (
	"strings"
	"time"
)

// PaymentMethod is the closed set of payment options offered at step 3.
type PaymentMethod string

const (
	PaymentCOD         PaymentMethod = "cod"
	PaymentSSLCommerz  PaymentMethod = "sslcommerz"
	PaymentCardEMI     PaymentMethod = "card_emi"
	PaymentCardlessEMI PaymentMethod = "cardless_emi"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCOD, PaymentSSLCommerz, PaymentCardEMI, PaymentCardlessEMI:
		return true
	}
	return false
}

func (m PaymentMethod) IsEMI() bool {
	return m == PaymentCardEMI || m == PaymentCardlessEMI
}

// UsesGateway reports whether the order needs an SSLCommerz session after creation.
func (m PaymentMethod) UsesGateway() bool {
	return m != PaymentCOD
}

// Address represents shipping or billing address
type Address struct {
	FullName     string `json:"full_name" bson:"full_name"`
	Phone        string `json:"phone" bson:"phone"`
	Email        string `json:"email,omitempty" bson:"email,omitempty" validate:"omitempty,email"`
	AddressLine1 string `json:"address_line1" bson:"address_line1"`
	AddressLine2 string `json:"address_line2,omitempty" bson:"address_line2,omitempty"`
	City         string `json:"city" bson:"city"`
	Area         string `json:"area,omitempty" bson:"area,omitempty"`
	PostalCode   string `json:"postal_code" bson:"postal_code"`
	Country      string `json:"country" bson:"country"`
}

// MissingFields lists the json names of mandatory fields that are blank.
func (a *Address) MissingFields() []string {
	if a == nil {
		return []string{"full_name", "phone", "address_line1", "city", "postal_code", "country"}
	}
	required := []struct {
		name  string
		value string
	}{
		{"full_name", a.FullName},
		{"phone", a.Phone},
		{"address_line1", a.AddressLine1},
		{"city", a.City},
		{"postal_code", a.PostalCode},
		{"country", a.Country},
	}
	var missing []string
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// EMIApplication carries the EMI data attached to an order. For card EMI only the
// bank and plan travel; interest is settled by the bank.
type EMIApplication struct {
	EMIType            PlanType `json:"emi_type" bson:"emi_type"`
	PlanID             int64    `json:"plan_id" bson:"plan_id"`
	TenureMonths       int      `json:"tenure_months" bson:"tenure_months"`
	BankCode           string   `json:"bank_code,omitempty" bson:"bank_code,omitempty"`
	BaseAmount         float64  `json:"base_amount" bson:"base_amount"`
	DownPaymentAmount  float64  `json:"down_payment_amount,omitempty" bson:"down_payment_amount,omitempty"`
	MonthlyInstallment float64  `json:"monthly_installment,omitempty" bson:"monthly_installment,omitempty"`
	TotalInterest      float64  `json:"total_interest,omitempty" bson:"total_interest,omitempty"`
}

type OrderItemPayload struct {
	ProductID   int64  `json:"product_id" bson:"product_id"`
	VariationID *int64 `json:"variation_id,omitempty" bson:"variation_id,omitempty"`
	Quantity    int    `json:"quantity" bson:"quantity"`
	UnitPrice   string `json:"unit_price" bson:"unit_price"`
	EMISelected bool   `json:"emi_selected" bson:"emi_selected"`
	EMIPlanID   *int64 `json:"emi_plan_id,omitempty" bson:"emi_plan_id,omitempty"`
	EMIPeriod   int    `json:"emi_period,omitempty" bson:"emi_period,omitempty"`
}

// OrderCreateRequest is the body of POST /orders/. ShippingRateID 0 means no shipping.
type OrderCreateRequest struct {
	Items                 []OrderItemPayload `json:"items"`
	ShippingAddress       Address            `json:"shipping_address"`
	BillingAddress        *Address           `json:"billing_address,omitempty"`
	BillingSameAsShipping bool               `json:"billing_same_as_shipping"`
	ShippingMethodID      int64              `json:"shipping_method_id,omitempty"`
	ShippingRateID        int64              `json:"shipping_rate_id"`
	ShippingCost          string             `json:"shipping_cost"`
	PaymentMethod         PaymentMethod      `json:"payment_method"`
	PromoCode             string             `json:"promo_code,omitempty"`
	EMIApplication        *EMIApplication    `json:"emi_application,omitempty"`
	Notes                 string             `json:"notes,omitempty"`
	SubtotalAmount        string             `json:"subtotal"`
	DiscountAmount        string             `json:"discount_amount,omitempty"`
	TotalAmount           string             `json:"total_amount"`
}

type OrderResponse struct {
	ID          int64  `json:"id"`
	OrderID     string `json:"order_id"`
	Status      string `json:"status,omitempty"`
	TotalAmount Amount `json:"total_amount"`
}

// Transaction types for payment initiation.
const (
	TransactionFullPayment = "full_payment"
	TransactionDownPayment = "down_payment"
)

type PaymentInitRequest struct {
	OrderID         string   `json:"order_id"`
	TransactionType string   `json:"transaction_type"`
	Amount          *float64 `json:"amount,omitempty"`
	InstallmentID   *int64   `json:"installment_id,omitempty"`
}

type PaymentInitResponse struct {
	Status      string `json:"status"`
	RedirectURL string `json:"redirect_url,omitempty"`
	Error       string `json:"error,omitempty"`
}

// OrderConfirmation is archived after a successful order so the confirmation
// screen survives a reload. It is never sent back to the backend.
type OrderConfirmation struct {
	OrderID       string             `json:"order_id" bson:"order_id"`
	BackendID     int64              `json:"backend_id" bson:"backend_id"`
	SessionID     string             `json:"session_id" bson:"session_id"`
	UserID        string             `json:"user_id,omitempty" bson:"user_id,omitempty"`
	PaymentMethod PaymentMethod      `json:"payment_method" bson:"payment_method"`
	EMIType       PlanType           `json:"emi_type,omitempty" bson:"emi_type,omitempty"`
	Subtotal      float64            `json:"subtotal" bson:"subtotal"`
	ShippingCost  float64            `json:"shipping_cost" bson:"shipping_cost"`
	Discount      float64            `json:"discount" bson:"discount"`
	Total         float64            `json:"total" bson:"total"`
	AmountDueNow  float64            `json:"amount_due_now" bson:"amount_due_now"`
	RedirectURL   string             `json:"redirect_url,omitempty" bson:"redirect_url,omitempty"`
	Items         []OrderItemPayload `json:"items" bson:"items"`
	ShippingTo    Address            `json:"shipping_address" bson:"shipping_address"`
	CreatedAt     time.Time          `json:"created_at" bson:"created_at"`
}

func (o *OrderConfirmation) SetTimestamps() {
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
}
