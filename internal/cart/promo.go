package cart

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"julianmorley.ca/con-plar/storefront/pkg/backend"
	"julianmorley.ca/con-plar/storefront/pkg/models"
	"julianmorley.ca/con-plar/storefront/pkg/promo"
	"julianmorley.ca/con-plar/storefront/pkg/redis"
)

// ApplyPromo applies code through the backend for authenticated sessions. Guest
// codes are checked against the published promotions and kept in the session.
// A rejected code is reported in the result and does not degrade the session.
func (m *Manager) ApplyPromo(ctx context.Context, sess models.Session, code string) Result {
	if sess.Authenticated {
		if err := m.backend.ApplyPromo(ctx, code); err != nil {
			m.logger.Info("promo code rejected", zap.String("session_id", sess.ID), zap.String("code", code), zap.Error(err))
			cart, state := m.getCart(ctx, sess, false)
			return Result{Success: false, Cart: cart, Error: promoError(err), Mode: state}
		}
		return m.synced(ctx, sess)
	}

	promotions, err := m.backend.ListPromotions(ctx)
	if err != nil {
		m.logger.Warn("failed to load promotions", zap.String("session_id", sess.ID), zap.Error(err))
		return Result{Success: false, Cart: m.localCart(ctx, sess), Error: "promotions are unavailable right now", Mode: StateGuestLocal}
	}
	cart := m.localCart(ctx, sess)
	p, _, err := promo.Apply(promotions, code, cart.TotalPrice.Float(), m.now())
	if err != nil {
		return Result{Success: false, Cart: cart, Error: err.Error(), Mode: StateGuestLocal}
	}
	if err := m.store.Set(ctx, sess.ID, redis.KeyPromoCode, p); err != nil {
		return m.local(ctx, sess, err)
	}
	return m.local(ctx, sess, nil)
}

func (m *Manager) RemovePromo(ctx context.Context, sess models.Session) Result {
	if sess.Authenticated {
		if err := m.backend.RemovePromo(ctx); err != nil {
			m.logger.Warn("backend remove_promo failed", zap.String("session_id", sess.ID), zap.Error(err))
			cart, state := m.getCart(ctx, sess, false)
			return Result{Success: false, Cart: cart, Error: promoError(err), Mode: state}
		}
		return m.synced(ctx, sess)
	}
	return m.local(ctx, sess, m.store.Delete(ctx, sess.ID, redis.KeyPromoCode))
}

// GuestPromotion is the promotion a guest applied, if any.
func (m *Manager) GuestPromotion(ctx context.Context, sess models.Session) *models.Promotion {
	return m.guestPromo(ctx, sess)
}

func (m *Manager) guestPromo(ctx context.Context, sess models.Session) *models.Promotion {
	var p models.Promotion
	if err := m.store.Get(ctx, sess.ID, redis.KeyPromoCode, &p); err != nil {
		if !errors.Is(err, redis.ErrNotFound) {
			m.logger.Warn("failed to read promo code", zap.String("session_id", sess.ID), zap.Error(err))
		}
		return nil
	}
	return &p
}

func promoError(err error) string {
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return "could not apply promo code"
}
