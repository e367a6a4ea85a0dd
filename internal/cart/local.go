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

func (m *Manager) loadLocal(ctx context.Context, sess models.Session) ([]models.LocalCartItem, error) {
	var items []models.LocalCartItem
	err := m.store.Get(ctx, sess.ID, redis.KeyCart, &items)
	if errors.Is(err, redis.ErrNotFound) {
		return []models.LocalCartItem{}, nil
	}
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (m *Manager) saveLocal(ctx context.Context, sess models.Session, items []models.LocalCartItem) error {
	if len(items) == 0 {
		return m.store.Delete(ctx, sess.ID, redis.KeyCart)
	}
	return m.store.Set(ctx, sess.ID, redis.KeyCart, items)
}

// localCart renders the mirror with totals, prices and shipping info recomputed.
func (m *Manager) localCart(ctx context.Context, sess models.Session) *models.Cart {
	items, err := m.loadLocal(ctx, sess)
	if err != nil {
		m.logger.Warn("failed to read local cart", zap.String("session_id", sess.ID), zap.Error(err))
		return models.EmptyCart(models.CartSourceLocal)
	}
	cart := render(items, m.opts)
	if p := m.guestPromo(ctx, sess); p != nil {
		cart.PromoCode = promo.Applied(p, cart.TotalPrice.Float())
	}
	return cart
}

func render(items []models.LocalCartItem, opts Options) *models.Cart {
	cart := models.EmptyCart(models.CartSourceLocal)
	var total float64
	for i := range items {
		item := &items[i]
		var variation *models.Variation
		if item.VariationID != nil {
			variation = item.ProductData.FindVariation(*item.VariationID)
		}
		unit := models.ResolvePrice(&item.ProductData, variation)
		line := unit * float64(item.Quantity)
		cart.Items = append(cart.Items, models.CartItem{
			ID:           item.BackendItemID,
			Key:          item.Key(),
			Product:      item.ProductData,
			Variation:    variation,
			Quantity:     item.Quantity,
			UnitPrice:    models.Amount(unit),
			TotalPrice:   models.Amount(line),
			EMISelection: item.EMISelection,
		})
		cart.TotalItems += item.Quantity
		total += line
	}
	cart.TotalPrice = models.Amount(total)

	info := &models.ShippingInfo{
		FreeShippingThreshold: opts.FreeShippingThreshold,
		ShippingCost:          opts.ShippingCost,
	}
	if opts.FreeShippingThreshold > 0 && total >= opts.FreeShippingThreshold {
		info.ShippingCost = 0
		info.QualifiesForFree = true
	}
	cart.ShippingInfo = info
	return cart
}

func (m *Manager) addLocal(ctx context.Context, sess models.Session, req *models.AddItemRequest) error {
	items, err := m.loadLocal(ctx, sess)
	if err != nil {
		return err
	}
	key := models.LocalItemKey(req.ProductID, req.VariationID)
	for i := range items {
		if items[i].Key() == key {
			items[i].Quantity += req.Quantity
			items[i].EMISelection = req.Selection()
			return m.saveLocal(ctx, sess, items)
		}
	}

	product, err := m.snapshot(ctx, req)
	if err != nil {
		return err
	}
	items = append(items, models.LocalCartItem{
		ProductID:    req.ProductID,
		VariationID:  req.VariationID,
		Quantity:     req.Quantity,
		ProductData:  *product,
		AddedAt:      m.now().UTC(),
		EMISelection: req.Selection(),
	})
	return m.saveLocal(ctx, sess, items)
}

func (m *Manager) updateLocal(ctx context.Context, sess models.Session, key string, quantity int) error {
	items, err := m.loadLocal(ctx, sess)
	if err != nil {
		return err
	}
	for i := range items {
		if items[i].Matches(key) {
			items[i].Quantity = quantity
			return m.saveLocal(ctx, sess, items)
		}
	}
	return ErrItemNotFound
}

func (m *Manager) removeLocal(ctx context.Context, sess models.Session, key string) error {
	items, err := m.loadLocal(ctx, sess)
	if err != nil {
		return err
	}
	for i := range items {
		if items[i].Matches(key) {
			return m.saveLocal(ctx, sess, append(items[:i], items[i+1:]...))
		}
	}
	return ErrItemNotFound
}

// forgetLocal removes a line from the mirror after the backend removed it.
func (m *Manager) forgetLocal(ctx context.Context, sess models.Session, key string) {
	if err := m.removeLocal(ctx, sess, key); err != nil && !errors.Is(err, ErrItemNotFound) {
		m.logger.Warn("failed to update local mirror", zap.String("session_id", sess.ID), zap.Error(err))
	}
}

func (m *Manager) clearLocal(ctx context.Context, sess models.Session) error {
	return m.store.Delete(ctx, sess.ID, redis.KeyCart)
}

// mirror overwrites the local cart with the backend cart.
func (m *Manager) mirror(ctx context.Context, sess models.Session, remote *models.Cart) {
	now := m.now().UTC()
	items := make([]models.LocalCartItem, 0, len(remote.Items))
	for _, line := range remote.Items {
		if line.Product.ID <= 0 || line.Quantity <= 0 {
			continue
		}
		var variationID *int64
		if line.Variation != nil && line.Variation.ID > 0 {
			id := line.Variation.ID
			variationID = &id
		}
		items = append(items, models.LocalCartItem{
			ProductID:     line.Product.ID,
			VariationID:   variationID,
			Quantity:      line.Quantity,
			ProductData:   line.Product,
			AddedAt:       now,
			BackendItemID: line.ID,
			EMISelection:  line.EMISelection,
		})
	}
	if err := m.saveLocal(ctx, sess, items); err != nil {
		m.logger.Warn("failed to mirror backend cart", zap.String("session_id", sess.ID), zap.Error(err))
	}
}

// pushPending sends the unpushed units of every local-only line to the backend, one
// add_item per line. It stops at the first failure and reports how many lines are
// still pending.
func (m *Manager) pushPending(ctx context.Context, sess models.Session) (pushed, failed int, err error) {
	items, err := m.loadLocal(ctx, sess)
	if err != nil {
		return 0, 0, err
	}
	for i := range items {
		item := &items[i]
		if !item.Pending() {
			continue
		}
		if failed > 0 {
			failed++
			continue
		}
		req := &models.AddItemRequest{
			ProductID:   item.ProductID,
			Quantity:    item.Unpushed(),
			VariationID: item.VariationID,
			EMISelected: item.EMISelected,
			EMIPlanID:   item.EMIPlanID,
			EMIPeriod:   item.EMIPeriod,
		}
		if pushErr := m.backend.AddCartItem(ctx, backend.AddItemPayloadFrom(req)); pushErr != nil {
			m.logger.Warn("failed to push local cart line",
				zap.String("session_id", sess.ID), zap.String("key", item.Key()), zap.Error(pushErr))
			err = pushErr
			failed++
			continue
		}
		item.PushedQuantity = item.Quantity
		pushed++
	}
	if pushed > 0 {
		if saveErr := m.saveLocal(ctx, sess, items); saveErr != nil {
			m.logger.Warn("failed to mark pushed cart lines", zap.String("session_id", sess.ID), zap.Error(saveErr))
		}
	}
	return pushed, failed, err
}
