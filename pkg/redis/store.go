package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"
	redisclient "github.com/redis/go-redis/v9"
)

// Key is a logical slot of per-session state.
type Key string

const (
	KeyCart                   Key = "cart"
	KeyCartSyncState          Key = "cart_sync_state"
	KeySelectedShippingMethod Key = "selected_shipping_method"
	KeyShippingAddress        Key = "shipping_address"
	KeyBillingAddress         Key = "billing_address"
	KeyPaymentDetails         Key = "payment_details"
	KeyPromoCode              Key = "promo_code"
	KeyShippingDetails        Key = "shipping_details"
	KeyCheckoutStep           Key = "checkout_step"
)

// CheckoutKeys hold the checkout selections, cleared together on reset and once
// an order is placed. The guest promo code belongs to the cart and is not one of
// them.
var CheckoutKeys = []Key{
	KeySelectedShippingMethod,
	KeyShippingAddress,
	KeyBillingAddress,
	KeyPaymentDetails,
	KeyShippingDetails,
	KeyCheckoutStep,
}

// SchemaVersion is stamped on every stored value. Bump it when a stored shape
// changes; older blobs are then discarded on read instead of half-decoded.
const SchemaVersion = 1

var (
	ErrNotFound = errors.New("session value not found")
	ErrStale    = errors.New("session value has an incompatible schema version")
	ErrInvalid  = errors.New("session value failed validation")
)

type envelope struct {
	Version int             `json:"v"`
	SavedAt time.Time       `json:"saved_at"`
	Data    json.RawMessage `json:"data"`
}

// SessionStore is the typed replacement of browser local storage: one JSON value per
// (session, key), version stamped, validated on read and expiring after ttl.
type SessionStore struct {
	client   *redisclient.Client
	ttl      time.Duration
	validate *validator.Validate
}

func NewSessionStore(client *redisclient.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		validate: validator.New(),
	}
}

func sessionKey(sessionID string, key Key) string {
	return fmt.Sprintf("session:%s:%s", sessionID, key)
}

// Get decodes the value into out. Values that are stale or invalid are deleted so
// they cannot resurface.
func (s *SessionStore) Get(ctx context.Context, sessionID string, key Key, out interface{}) error {
	redisKey := sessionKey(sessionID, key)
	raw, err := s.client.Get(ctx, redisKey).Bytes()
	if errors.Is(err, redisclient.Nil) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", redisKey, err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		s.client.Del(ctx, redisKey)
		return fmt.Errorf("%w: %s: %v", ErrInvalid, key, err)
	}
	if env.Version != SchemaVersion {
		s.client.Del(ctx, redisKey)
		return fmt.Errorf("%w: %s has v%d, want v%d", ErrStale, key, env.Version, SchemaVersion)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		s.client.Del(ctx, redisKey)
		return fmt.Errorf("%w: %s: %v", ErrInvalid, key, err)
	}
	if err := s.check(out); err != nil {
		s.client.Del(ctx, redisKey)
		return fmt.Errorf("%w: %s: %v", ErrInvalid, key, err)
	}
	return nil
}

func (s *SessionStore) Set(ctx context.Context, sessionID string, key Key, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	payload, err := json.Marshal(envelope{Version: SchemaVersion, SavedAt: time.Now().UTC(), Data: data})
	if err != nil {
		return fmt.Errorf("failed to marshal %s envelope: %w", key, err)
	}
	if err := s.client.Set(ctx, sessionKey(sessionID, key), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

func (s *SessionStore) Delete(ctx context.Context, sessionID string, keys ...Key) error {
	if len(keys) == 0 {
		return nil
	}
	redisKeys := make([]string, len(keys))
	for i, k := range keys {
		redisKeys[i] = sessionKey(sessionID, k)
	}
	if err := s.client.Del(ctx, redisKeys...).Err(); err != nil {
		return fmt.Errorf("failed to delete session keys: %w", err)
	}
	return nil
}

// check validates struct values and every struct element of a slice. Scalars pass.
func (s *SessionStore) check(out interface{}) error {
	v := reflect.ValueOf(out)
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.Struct:
		return s.validate.Struct(v.Interface())
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			elem := v.Index(i)
			for elem.Kind() == reflect.Ptr {
				if elem.IsNil() {
					break
				}
				elem = elem.Elem()
			}
			if elem.Kind() != reflect.Struct {
				continue
			}
			if err := s.validate.Struct(elem.Interface()); err != nil {
				return fmt.Errorf("element %d: %w", i, err)
			}
		}
	}
	return nil
}
