package models

type ShippingMethod struct {
	ID                    int64  `json:"id"`
	Name                  string `json:"name"`
	Description           string `json:"description,omitempty"`
	BaseRate              Amount `json:"base_rate"`
	FreeShippingThreshold Amount `json:"free_shipping_threshold"`
	IsFree                bool   `json:"is_free"`
	EstimatedDays         string `json:"estimated_days,omitempty"`
}

// ShippingRate is a zone or city specific price for a method. Its values take
// precedence over the method's.
type ShippingRate struct {
	ID                    int64  `json:"id"`
	MethodID              int64  `json:"method"`
	MethodName            string `json:"method_name,omitempty"`
	City                  string `json:"city,omitempty"`
	Zone                  string `json:"zone,omitempty"`
	BaseRate              Amount `json:"base_rate"`
	FreeShippingThreshold Amount `json:"free_shipping_threshold"`
}

// ShippingDetails is what the checkout renders for the selected method.
type ShippingDetails struct {
	MethodID  int64   `json:"method_id,omitempty"`
	Method    string  `json:"method,omitempty"`
	RateID    int64   `json:"rate_id"`
	Cost      float64 `json:"cost"`
	Display   string  `json:"display"`
	IsFree    bool    `json:"is_free"`
	Qualified bool    `json:"qualified"`
	Threshold float64 `json:"threshold,omitempty"`
	Error     string  `json:"error,omitempty"`
}
