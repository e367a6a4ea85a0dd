package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redisclient "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"julianmorley.ca/con-plar/storefront/pkg/models"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redisclient.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redisclient.NewClient(&redisclient.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestSessionStoreRoundTrip(t *testing.T) {
	_, client := newTestRedis(t)
	store := NewSessionStore(client, time.Hour)
	ctx := context.Background()

	items := []models.LocalCartItem{{ProductID: 3, Quantity: 2, ProductData: models.Product{ID: 3, Price: 900}}}
	require.NoError(t, store.Set(ctx, "s1", KeyCart, items))

	var got []models.LocalCartItem
	require.NoError(t, store.Get(ctx, "s1", KeyCart, &got))
	require.Len(t, got, 1)
	assert.Equal(t, int64(3), got[0].ProductID)
	assert.Equal(t, 900.0, got[0].ProductData.Price.Float())

	var other []models.LocalCartItem
	assert.ErrorIs(t, store.Get(ctx, "s2", KeyCart, &other), ErrNotFound)
}

func TestSessionStoreExpires(t *testing.T) {
	mr, client := newTestRedis(t)
	store := NewSessionStore(client, time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "s1", KeySelectedShippingMethod, "Standard"))
	mr.FastForward(2 * time.Minute)

	var method string
	assert.ErrorIs(t, store.Get(ctx, "s1", KeySelectedShippingMethod, &method), ErrNotFound)
}

func TestSessionStoreDiscardsOtherVersions(t *testing.T) {
	mr, client := newTestRedis(t)
	store := NewSessionStore(client, time.Hour)
	ctx := context.Background()

	legacy, _ := json.Marshal(map[string]interface{}{"v": 0, "data": "Standard"})
	require.NoError(t, mr.Set("session:s1:selected_shipping_method", string(legacy)))

	var method string
	assert.ErrorIs(t, store.Get(ctx, "s1", KeySelectedShippingMethod, &method), ErrStale)
	assert.False(t, mr.Exists("session:s1:selected_shipping_method"))
}

func TestSessionStoreRejectsInvalidValues(t *testing.T) {
	mr, client := newTestRedis(t)
	store := NewSessionStore(client, time.Hour)
	ctx := context.Background()

	// quantity 0 violates gte=1
	require.NoError(t, store.Set(ctx, "s1", KeyCart, []models.LocalCartItem{{ProductID: 3, Quantity: 0}}))

	var got []models.LocalCartItem
	assert.ErrorIs(t, store.Get(ctx, "s1", KeyCart, &got), ErrInvalid)
	assert.False(t, mr.Exists("session:s1:cart"))

	require.NoError(t, mr.Set("session:s1:payment_details", "{not json"))
	var pd models.PaymentDetails
	assert.ErrorIs(t, store.Get(ctx, "s1", KeyPaymentDetails, &pd), ErrInvalid)
}

func TestSessionStoreDelete(t *testing.T) {
	mr, client := newTestRedis(t)
	store := NewSessionStore(client, time.Hour)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "s1", KeyCheckoutStep, 2))
	require.NoError(t, store.Set(ctx, "s1", KeyPromoCode, models.AppliedPromo{Code: "EID10"}))
	require.NoError(t, store.Delete(ctx, "s1", CheckoutKeys...))

	assert.False(t, mr.Exists("session:s1:checkout_step"))
	assert.True(t, mr.Exists("session:s1:promo_code"))
	require.NoError(t, store.Delete(ctx, "s1", KeyPromoCode))
	assert.False(t, mr.Exists("session:s1:promo_code"))
	assert.NoError(t, store.Delete(ctx, "s1"))
}

func TestProductCache(t *testing.T) {
	mr, client := newTestRedis(t)
	cache := NewProductCache(client, 10*time.Minute)
	ctx := context.Background()

	doc := json.RawMessage(`{"id": 42, "slug": "walton-fridge", "price": "55000.00"}`)
	require.NoError(t, cache.Put(ctx, doc))

	byID, err := cache.Get(ctx, "42")
	require.NoError(t, err)
	assert.JSONEq(t, string(doc), string(byID))

	bySlug, err := cache.Get(ctx, "walton-fridge")
	require.NoError(t, err)
	assert.JSONEq(t, string(doc), string(bySlug))

	recent, err := cache.Recent(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, []int64{42}, recent)

	require.NoError(t, cache.Invalidate(ctx, 42, "walton-fridge"))
	_, err = cache.Get(ctx, "walton-fridge")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, cache.Put(ctx, doc))
	mr.FastForward(11 * time.Minute)
	_, err = cache.Get(ctx, "42")
	assert.ErrorIs(t, err, ErrCacheMiss)

	assert.Error(t, cache.Put(ctx, json.RawMessage(`{"slug": "no-id"}`)))
}
