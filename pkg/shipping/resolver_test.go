package shipping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"julianmorley.ca/con-plar/storefront/pkg/models"
)

func cartWithSubtotal(subtotal float64) *models.Cart {
	return &models.Cart{Items: []models.CartItem{{Key: "p1", Quantity: 1, TotalPrice: models.Amount(subtotal)}}}
}

var standard = models.ShippingMethod{ID: 1, Name: "Standard Delivery", BaseRate: 120, FreeShippingThreshold: 5000}

func TestCalculateShippingDetailsPending(t *testing.T) {
	d, err := CalculateShippingDetails("", []models.ShippingMethod{standard}, nil, cartWithSubtotal(100))
	require.NoError(t, err)
	assert.Equal(t, DisplayPending, d.Display)

	d, err = CalculateShippingDetails("Standard Delivery", []models.ShippingMethod{standard}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, DisplayPending, d.Display)
}

func TestCalculateShippingDetailsThresholdScenario(t *testing.T) {
	methods := []models.ShippingMethod{standard}

	d, err := CalculateShippingDetails("Standard Delivery", methods, nil, cartWithSubtotal(4000))
	require.NoError(t, err)
	assert.Equal(t, "৳120.00", d.Display)
	assert.False(t, d.IsFree)
	assert.Equal(t, 120.0, d.Cost)

	d, err = CalculateShippingDetails("Standard Delivery", methods, nil, cartWithSubtotal(5000))
	require.NoError(t, err)
	assert.Equal(t, DisplayQualified, d.Display)
	assert.Zero(t, d.Cost)
	assert.True(t, d.Qualified)
}

func TestCalculateShippingDetailsQualifiesAtOrAboveThreshold(t *testing.T) {
	thresholds := []float64{1, 500, 4999.99, 5000, 12000}
	for _, threshold := range thresholds {
		for _, delta := range []float64{0, 0.01, 1, 1000} {
			m := models.ShippingMethod{ID: 7, Name: "Express", BaseRate: 250, FreeShippingThreshold: models.Amount(threshold)}
			d, err := CalculateShippingDetails("Express", []models.ShippingMethod{m}, nil, cartWithSubtotal(threshold+delta))
			require.NoError(t, err)
			assert.Zero(t, d.Cost, "threshold=%v subtotal=%v", threshold, threshold+delta)
			assert.True(t, d.Qualified, "threshold=%v subtotal=%v", threshold, threshold+delta)
		}
	}
}

func TestCalculateShippingDetailsUnknownMethod(t *testing.T) {
	d, err := CalculateShippingDetails("Drone", []models.ShippingMethod{standard}, nil, cartWithSubtotal(100))
	require.ErrorIs(t, err, ErrMethodNotFound)
	assert.Equal(t, DisplayNotFound, d.Display)
	assert.NotEmpty(t, d.Error)
	assert.False(t, d.IsFree)
}

func TestCalculateShippingDetailsRateOverrides(t *testing.T) {
	methods := []models.ShippingMethod{standard}
	rates := []models.ShippingRate{{ID: 44, MethodID: 1, City: "Dhaka", BaseRate: 60, FreeShippingThreshold: 3000}}

	d, err := CalculateShippingDetails("standard delivery", methods, rates, cartWithSubtotal(2000))
	require.NoError(t, err)
	assert.Equal(t, int64(44), d.RateID)
	assert.Equal(t, 60.0, d.Cost)
	assert.Equal(t, "৳60.00", d.Display)

	d, err = CalculateShippingDetails("Standard Delivery", methods, rates, cartWithSubtotal(3000))
	require.NoError(t, err)
	assert.True(t, d.Qualified)
	assert.Equal(t, 3000.0, d.Threshold)
}

func TestCalculateShippingDetailsRateWithoutThresholdKeepsMethodThreshold(t *testing.T) {
	rates := []models.ShippingRate{{ID: 9, MethodID: 1, BaseRate: 150}}
	d, err := CalculateShippingDetails("Standard Delivery", []models.ShippingMethod{standard}, rates, cartWithSubtotal(5200))
	require.NoError(t, err)
	assert.True(t, d.Qualified)
	assert.Equal(t, 5000.0, d.Threshold)
}

func TestCalculateShippingDetailsFreeByDefinition(t *testing.T) {
	pickup := models.ShippingMethod{ID: 3, Name: "Store Pickup", IsFree: true}
	d, err := CalculateShippingDetails("Store Pickup", []models.ShippingMethod{pickup}, nil, cartWithSubtotal(10))
	require.NoError(t, err)
	assert.Equal(t, DisplayFree, d.Display)
	assert.True(t, d.IsFree)
	assert.False(t, d.Qualified)
}

func TestCalculateShippingDetailsInvalidRate(t *testing.T) {
	var bad models.Amount
	require.NoError(t, bad.UnmarshalJSON([]byte(`"abc"`)))
	m := models.ShippingMethod{ID: 5, Name: "Courier", BaseRate: bad}
	d, err := CalculateShippingDetails("Courier", []models.ShippingMethod{m}, nil, cartWithSubtotal(10))
	require.NoError(t, err)
	assert.Zero(t, d.Cost)
	assert.Equal(t, DisplayFree, d.Display)
}

func TestRatesForCity(t *testing.T) {
	rates := []models.ShippingRate{
		{ID: 1, MethodID: 1, City: "Dhaka"},
		{ID: 2, MethodID: 1},
		{ID: 3, MethodID: 1, Zone: "Chattogram"},
	}
	got := RatesForCity(rates, "dhaka")
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].ID)

	got = RatesForCity(rates, "Chattogram")
	require.Len(t, got, 1)
	assert.Equal(t, int64(3), got[0].ID)

	got = RatesForCity(rates, "Sylhet")
	require.Len(t, got, 1)
	assert.Equal(t, int64(2), got[0].ID)
}
