package models

import (
	"bytes"
	"math"

	"github.com/shopspring/decimal"
)

// Amount is a monetary or numeric value from the backend. Django serialises decimals
// as strings, so both "1200.00" and 1200 decode. Anything unparsable, null, NaN or
// infinite decodes to 0 so bad values never reach a total.
type Amount float64

func (a *Amount) UnmarshalJSON(data []byte) error {
	raw := bytes.TrimSpace(data)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		*a = 0
		return nil
	}
	raw = bytes.Trim(raw, `"`)
	d, err := decimal.NewFromString(string(bytes.TrimSpace(raw)))
	if err != nil {
		*a = 0
		return nil
	}
	*a = Amount(d.InexactFloat64()).Sanitize()
	return nil
}

func (a Amount) Float() float64 {
	return float64(a.Sanitize())
}

// Sanitize maps NaN and ±Inf to 0.
func (a Amount) Sanitize() Amount {
	f := float64(a)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return a
}

// String renders the value with two decimals, the format the backend uses for
// total_price fields.
func (a Amount) String() string {
	return decimal.NewFromFloat(a.Float()).StringFixed(2)
}
