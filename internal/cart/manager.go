// Package cart is the dual-store cart: the backend cart for authenticated sessions
// and a session-local mirror for guests and for backend outages.
package cart

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"julianmorley.ca/con-plar/storefront/pkg/backend"
	"julianmorley.ca/con-plar/storefront/pkg/models"
	"julianmorley.ca/con-plar/storefront/pkg/redis"
)

var (
	ErrItemNotFound     = errors.New("cart item not found")
	ErrProductNotFound  = errors.New("product not found")
	ErrNotAuthenticated = errors.New("sign in to sync your cart")
)

// Backend is the cart slice of the REST client.
type Backend interface {
	GetCart(ctx context.Context) (*models.Cart, error)
	AddCartItem(ctx context.Context, payload backend.AddItemPayload) error
	UpdateCartItem(ctx context.Context, itemID int64, quantity int) error
	RemoveCartItem(ctx context.Context, itemID int64) error
	ClearCart(ctx context.Context) error
	ApplyPromo(ctx context.Context, code string) error
	RemovePromo(ctx context.Context) error
	ListPromotions(ctx context.Context) ([]models.Promotion, error)
}

// Store is satisfied by *redis.SessionStore.
type Store interface {
	Get(ctx context.Context, sessionID string, key redis.Key, out interface{}) error
	Set(ctx context.Context, sessionID string, key redis.Key, value interface{}) error
	Delete(ctx context.Context, sessionID string, keys ...redis.Key) error
}

// Products resolves the snapshot stored with a local line.
type Products interface {
	Snapshot(ctx context.Context, productID int64) (*models.Product, error)
}

// Options are the display defaults of a local cart.
type Options struct {
	FreeShippingThreshold float64
	ShippingCost          float64
}

// Result is returned by every mutation. Backend failures never surface here; they
// move the session to StateDegraded and the mutation is applied locally.
type Result struct {
	Success bool         `json:"success"`
	Cart    *models.Cart `json:"cart,omitempty"`
	Error   string       `json:"error,omitempty"`
	Mode    SyncState    `json:"mode"`
}

// Manager owns the cart of every session. Guest carts live only in the session
// store; signed in carts go to the backend and keep a local mirror for outages.
type Manager struct {
	backend  Backend
	store    Store
	products Products
	opts     Options
	logger   *zap.Logger
	now      func() time.Time
}

// NewManager returns a Manager. A nil logger discards log output.
func NewManager(b Backend, store Store, products Products, opts Options, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		backend:  b,
		store:    store,
		products: products,
		opts:     opts,
		logger:   logger,
		now:      time.Now,
	}
}

// State returns the persisted sync state of the session.
func (m *Manager) State(ctx context.Context, sess models.Session) SyncState {
	var rec syncRecord
	if err := m.store.Get(ctx, sess.ID, redis.KeyCartSyncState, &rec); err != nil {
		if !errors.Is(err, redis.ErrNotFound) {
			m.logger.Warn("failed to read cart sync state", zap.String("session_id", sess.ID), zap.Error(err))
		}
		return StateGuestLocal
	}
	return rec.State
}

func (m *Manager) advance(ctx context.Context, sess models.Session, from SyncState, o outcome, cause error) SyncState {
	to := next(from, sess.Authenticated, o)
	rec := syncRecord{State: to, UpdatedAt: m.now().UTC()}
	if cause != nil {
		rec.LastError = cause.Error()
	}
	if to != from || cause != nil {
		if err := m.store.Set(ctx, sess.ID, redis.KeyCartSyncState, rec); err != nil {
			m.logger.Warn("failed to persist cart sync state", zap.String("session_id", sess.ID), zap.Error(err))
		}
	}
	if to != from {
		m.logger.Info("cart sync state changed",
			zap.String("session_id", sess.ID),
			zap.String("from", string(from)),
			zap.String("to", string(to)),
		)
	}
	return to
}

// GetCart never fails. Authenticated sessions read the backend and mirror it
// locally; on error, or on an empty cart while degraded, the local mirror is
// returned instead. A total failure yields an empty cart.
func (m *Manager) GetCart(ctx context.Context, sess models.Session) *models.Cart {
	cart, _ := m.getCart(ctx, sess, false)
	return cart
}

// GetCartWithState is GetCart plus the sync state the read left the session in.
func (m *Manager) GetCartWithState(ctx context.Context, sess models.Session) (*models.Cart, SyncState) {
	return m.getCart(ctx, sess, false)
}

// getCart pushes lines that only exist locally before reading the backend, so a
// guest cart survives sign-in and lines added during an outage reach the backend.
// trustEmpty is set right after a successful mutation.
func (m *Manager) getCart(ctx context.Context, sess models.Session, trustEmpty bool) (*models.Cart, SyncState) {
	from := m.State(ctx, sess)
	if !sess.Authenticated {
		state := m.advance(ctx, sess, from, outcomeSuccess, nil)
		return m.localCart(ctx, sess), state
	}

	if from != StateSynced {
		if _, failed, err := m.pushPending(ctx, sess); failed > 0 {
			state := m.advance(ctx, sess, from, outcomeFailure, err)
			return m.localCart(ctx, sess), state
		}
	}

	remote, err := m.backend.GetCart(ctx)
	if err != nil {
		m.logger.Warn("backend cart unavailable, serving local mirror",
			zap.String("session_id", sess.ID), zap.Error(err))
		state := m.advance(ctx, sess, from, outcomeFailure, err)
		return m.localCart(ctx, sess), state
	}

	o := outcomeSuccess
	if remote.IsEmpty() && !trustEmpty {
		o = outcomeEmptyFetch
	}
	if state := m.advance(ctx, sess, from, o, nil); state == StateDegraded {
		m.logger.Info("ignoring empty backend cart after failed mutation", zap.String("session_id", sess.ID))
		return m.localCart(ctx, sess), state
	}

	m.mirror(ctx, sess, remote)
	return remote, StateSynced
}

// GetItemCount is the badge count of the current cart.
func (m *Manager) GetItemCount(ctx context.Context, sess models.Session) int {
	return m.GetCart(ctx, sess).TotalItems
}

func (m *Manager) AddItem(ctx context.Context, sess models.Session, req *models.AddItemRequest) Result {
	if sess.Authenticated {
		err := m.backend.AddCartItem(ctx, backend.AddItemPayloadFrom(req))
		if err == nil {
			return m.synced(ctx, sess)
		}
		m.logger.Warn("backend add_item failed, adding locally",
			zap.String("session_id", sess.ID), zap.Int64("product_id", req.ProductID), zap.Error(err))
		m.advance(ctx, sess, m.State(ctx, sess), outcomeFailure, err)
	}
	return m.local(ctx, sess, m.addLocal(ctx, sess, req))
}

// UpdateItem sets the quantity of the line addressed by key; 0 removes it.
func (m *Manager) UpdateItem(ctx context.Context, sess models.Session, key string, quantity int) Result {
	if quantity <= 0 {
		return m.RemoveItem(ctx, sess, key)
	}
	if sess.Authenticated {
		if id, ok := m.backendItemID(ctx, sess, key); ok {
			err := m.backend.UpdateCartItem(ctx, id, quantity)
			if err == nil {
				return m.synced(ctx, sess)
			}
			m.logger.Warn("backend update_item failed, updating locally",
				zap.String("session_id", sess.ID), zap.Int64("item_id", id), zap.Error(err))
			m.advance(ctx, sess, m.State(ctx, sess), outcomeFailure, err)
		}
	}
	return m.local(ctx, sess, m.updateLocal(ctx, sess, key, quantity))
}

func (m *Manager) RemoveItem(ctx context.Context, sess models.Session, key string) Result {
	if sess.Authenticated {
		if id, ok := m.backendItemID(ctx, sess, key); ok {
			err := m.backend.RemoveCartItem(ctx, id)
			if err == nil {
				m.forgetLocal(ctx, sess, key)
				return m.synced(ctx, sess)
			}
			m.logger.Warn("backend remove_item failed, removing locally",
				zap.String("session_id", sess.ID), zap.Int64("item_id", id), zap.Error(err))
			m.advance(ctx, sess, m.State(ctx, sess), outcomeFailure, err)
		}
	}
	return m.local(ctx, sess, m.removeLocal(ctx, sess, key))
}

func (m *Manager) ClearCart(ctx context.Context, sess models.Session) Result {
	if sess.Authenticated {
		err := m.backend.ClearCart(ctx)
		if err == nil {
			m.clearLocal(ctx, sess)
			return m.synced(ctx, sess)
		}
		m.logger.Warn("backend clear failed, clearing locally", zap.String("session_id", sess.ID), zap.Error(err))
		m.advance(ctx, sess, m.State(ctx, sess), outcomeFailure, err)
	}
	return m.local(ctx, sess, m.clearLocal(ctx, sess))
}

// ClearLocal drops the local mirror and the guest promo once an order is placed.
func (m *Manager) ClearLocal(ctx context.Context, sess models.Session) error {
	return m.store.Delete(ctx, sess.ID, redis.KeyCart, redis.KeyPromoCode)
}

// synced refetches the full cart after a successful backend mutation.
func (m *Manager) synced(ctx context.Context, sess models.Session) Result {
	cart, state := m.getCart(ctx, sess, true)
	return Result{Success: true, Cart: cart, Mode: state}
}

func (m *Manager) local(ctx context.Context, sess models.Session, err error) Result {
	mode := m.State(ctx, sess)
	if err != nil {
		m.logger.Warn("local cart mutation failed", zap.String("session_id", sess.ID), zap.Error(err))
		return Result{Success: false, Cart: m.localCart(ctx, sess), Error: err.Error(), Mode: mode}
	}
	return Result{Success: true, Cart: m.localCart(ctx, sess), Mode: mode}
}

// backendItemID maps a line key to a backend item id: keys of backend lines are the
// id itself, local keys resolve through the mirror.
func (m *Manager) backendItemID(ctx context.Context, sess models.Session, key string) (int64, bool) {
	if id, err := strconv.ParseInt(key, 10, 64); err == nil && id > 0 {
		return id, true
	}
	items, err := m.loadLocal(ctx, sess)
	if err != nil {
		return 0, false
	}
	for _, item := range items {
		if item.Matches(key) && item.BackendItemID > 0 {
			return item.BackendItemID, true
		}
	}
	return 0, false
}

func (m *Manager) snapshot(ctx context.Context, req *models.AddItemRequest) (*models.Product, error) {
	if m.products == nil {
		return nil, ErrProductNotFound
	}
	p, err := m.products.Snapshot(ctx, req.ProductID)
	if err != nil {
		return nil, fmt.Errorf("%w: %d: %v", ErrProductNotFound, req.ProductID, err)
	}
	return p, nil
}
