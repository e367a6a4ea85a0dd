// Package shipping resolves the display cost of the selected delivery method.
package shipping

import (
	"errors"
	"fmt"
	"strings"

	"julianmorley.ca/con-plar/storefront/pkg/models"
	"julianmorley.ca/con-plar/storefront/pkg/pricing"
)

// Display strings shown in place of a shipping cost.
const (
	DisplayPending   = "Calculated at checkout"
	DisplayFree      = "Free"
	DisplayQualified = "Free (Qualified)"
	DisplayNotFound  = "Shipping method not found"
)

// ErrMethodNotFound means the selection no longer matches any method, usually a
// stale selection after the method list was reloaded.
var ErrMethodNotFound = errors.New("shipping method not found")

// CalculateShippingDetails prices selectedMethodName for cart. rates should already be
// narrowed to the customer's zone (see RatesForCity); a rate for the method overrides
// the method's own base rate and, when positive, its free shipping threshold.
func CalculateShippingDetails(selectedMethodName string, methods []models.ShippingMethod, rates []models.ShippingRate, cart *models.Cart) (models.ShippingDetails, error) {
	if cart == nil || strings.TrimSpace(selectedMethodName) == "" {
		return models.ShippingDetails{Display: DisplayPending}, nil
	}

	method := FindMethod(methods, selectedMethodName)
	if method == nil {
		return models.ShippingDetails{
			Method:  selectedMethodName,
			Display: DisplayNotFound,
			Error:   fmt.Sprintf("shipping method %q is not available", selectedMethodName),
		}, fmt.Errorf("%w: %q", ErrMethodNotFound, selectedMethodName)
	}

	rate := findRate(rates, method)

	threshold := method.FreeShippingThreshold.Float()
	baseRate := method.BaseRate.Float()
	details := models.ShippingDetails{MethodID: method.ID, Method: method.Name}
	if rate != nil {
		details.RateID = rate.ID
		baseRate = rate.BaseRate.Float()
		if t := rate.FreeShippingThreshold.Float(); t > 0 {
			threshold = t
		}
	}
	if threshold < 0 {
		threshold = 0
	}
	if baseRate < 0 {
		baseRate = 0
	}
	details.Threshold = threshold

	switch {
	case threshold > 0 && cart.Subtotal() >= threshold:
		details.IsFree = true
		details.Qualified = true
		details.Display = DisplayQualified
	case method.IsFree || baseRate == 0:
		details.IsFree = true
		details.Display = DisplayFree
	default:
		details.Cost = baseRate
		details.Display = pricing.FormatTaka(baseRate)
	}
	return details, nil
}

// FindMethod matches by name, ignoring case and surrounding blanks.
func FindMethod(methods []models.ShippingMethod, name string) *models.ShippingMethod {
	name = strings.TrimSpace(name)
	for i := range methods {
		if strings.EqualFold(strings.TrimSpace(methods[i].Name), name) {
			return &methods[i]
		}
	}
	return nil
}

func findRate(rates []models.ShippingRate, method *models.ShippingMethod) *models.ShippingRate {
	for i := range rates {
		r := &rates[i]
		if r.MethodID != 0 && r.MethodID == method.ID {
			return r
		}
		if r.MethodID == 0 && r.MethodName != "" && strings.EqualFold(r.MethodName, method.Name) {
			return r
		}
	}
	return nil
}

// RatesForCity keeps the rates for city. When none match, the zone-less rates are
// returned as the default zone.
func RatesForCity(rates []models.ShippingRate, city string) []models.ShippingRate {
	city = strings.TrimSpace(city)
	var matched, generic []models.ShippingRate
	for _, r := range rates {
		switch {
		case city != "" && (strings.EqualFold(r.City, city) || strings.EqualFold(r.Zone, city)):
			matched = append(matched, r)
		case r.City == "" && r.Zone == "":
			generic = append(generic, r)
		}
	}
	if len(matched) > 0 {
		return matched
	}
	return generic
}
