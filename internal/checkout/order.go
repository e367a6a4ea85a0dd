package checkout

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"julianmorley.ca/con-plar/storefront/pkg/models"
	"julianmorley.ca/con-plar/storefront/pkg/pricing"
	"julianmorley.ca/con-plar/storefront/pkg/promo"
)

// PlaceOrder creates the order from the session's cart and selections. Nothing is
// cleared unless the backend accepted the order. A failed payment initiation does
// not undo the order; it is reported in PaymentError.
func (s *Service) PlaceOrder(ctx context.Context, sess models.Session, req *models.PlaceOrderRequest) (*models.PlaceOrderResult, error) {
	if !sess.Authenticated {
		return nil, ErrAuthRequired
	}
	c := s.carts.GetCart(ctx, sess)
	if c.IsEmpty() {
		return nil, ErrEmptyCart
	}
	sel := s.load(ctx, sess)
	if err := checkAddresses(sel); err != nil {
		return nil, err
	}
	if sel.payment == nil {
		return nil, ErrNoPaymentMethod
	}
	method, err := resolvePayment(c, sel.payment.Method)
	if err != nil {
		return nil, err
	}
	payment := *sel.payment
	payment.Method = method

	var details models.ShippingDetails
	if c.NeedsShipping() {
		if sel.method == "" {
			return nil, ErrNoShippingMethod
		}
		details, err = s.shippingDetails(ctx, sess, sel, c)
		if err != nil {
			return nil, err
		}
		if details.RateID == 0 {
			return nil, ErrMissingShippingRate
		}
	}

	applied := s.orderPromo(ctx, sess, c)
	totals := computeTotals(c, details, applied)
	payload := buildOrder(c, sel, details, totals, method)
	if applied != nil {
		payload.PromoCode = applied.Code
	}
	if req != nil {
		payload.Notes = req.Notes
	}

	transaction := models.TransactionFullPayment
	if method.IsEMI() {
		app, b, err := s.emiApplication(ctx, c, &payment, totals.GrandTotal)
		if err != nil {
			return nil, err
		}
		payload.EMIApplication = app
		if method == models.PaymentCardlessEMI {
			totals.AmountDueNow = pricing.Round2(b.DownPayment)
			transaction = models.TransactionDownPayment
		}
	}

	order, err := s.backend.CreateOrder(ctx, payload)
	if err != nil {
		s.logger.Error("order creation failed", zap.String("session_id", sess.ID), zap.Error(err))
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	s.logger.Info("order created",
		zap.String("session_id", sess.ID),
		zap.String("order_id", order.OrderID),
		zap.String("payment_method", string(method)),
	)

	result := &models.PlaceOrderResult{Order: *order}
	if method.UsesGateway() {
		result.RedirectURL, result.PaymentError = s.initiatePayment(ctx, sess, order.OrderID, transaction, totals.AmountDueNow)
	}

	result.Confirmation = models.OrderConfirmation{
		OrderID:       order.OrderID,
		BackendID:     order.ID,
		SessionID:     sess.ID,
		UserID:        sess.UserID,
		PaymentMethod: method,
		Subtotal:      totals.Subtotal,
		ShippingCost:  totals.Shipping,
		Discount:      totals.Discount,
		Total:         totals.GrandTotal,
		AmountDueNow:  totals.AmountDueNow,
		RedirectURL:   result.RedirectURL,
		Items:         payload.Items,
		ShippingTo:    payload.ShippingAddress,
		CreatedAt:     s.now().UTC(),
	}
	if payload.EMIApplication != nil {
		result.Confirmation.EMIType = payload.EMIApplication.EMIType
	}
	if s.archive != nil {
		if err := s.archive.SaveConfirmation(ctx, &result.Confirmation); err != nil {
			s.logger.Warn("failed to archive order confirmation", zap.String("order_id", order.OrderID), zap.Error(err))
		}
	}

	if err := s.carts.ClearLocal(ctx, sess); err != nil {
		s.logger.Warn("failed to clear local cart", zap.String("session_id", sess.ID), zap.Error(err))
	}
	if err := s.Reset(ctx, sess); err != nil {
		s.logger.Warn("failed to clear checkout selections", zap.String("session_id", sess.ID), zap.Error(err))
	}
	return result, nil
}

// orderPromo re-checks a guest code against the final subtotal; backend carts
// carry a code the backend already validated.
func (s *Service) orderPromo(ctx context.Context, sess models.Session, c *models.Cart) *models.AppliedPromo {
	if c.PromoCode == nil || c.Source == models.CartSourceBackend {
		return c.PromoCode
	}
	p := s.carts.GuestPromotion(ctx, sess)
	if p == nil {
		return c.PromoCode
	}
	if err := promo.Check(p, c.Subtotal(), s.now()); err != nil {
		s.logger.Info("dropping promo code", zap.String("session_id", sess.ID), zap.String("code", p.Code), zap.Error(err))
		return nil
	}
	return promo.Applied(p, c.Subtotal())
}

func (s *Service) initiatePayment(ctx context.Context, sess models.Session, orderID, transaction string, due float64) (string, string) {
	req := &models.PaymentInitRequest{OrderID: orderID, TransactionType: transaction}
	if transaction == models.TransactionDownPayment {
		amount := due
		req.Amount = &amount
	}
	resp, err := s.backend.InitiateSSLCommerz(ctx, req)
	if err != nil {
		s.logger.Error("payment initiation failed",
			zap.String("session_id", sess.ID), zap.String("order_id", orderID), zap.Error(err))
		return "", "payment could not be started, please retry from your orders"
	}
	if resp.RedirectURL == "" {
		msg := resp.Error
		if msg == "" {
			msg = "payment gateway did not return a redirect"
		}
		return "", msg
	}
	return resp.RedirectURL, ""
}

func buildOrder(c *models.Cart, sel selections, details models.ShippingDetails, totals models.OrderTotals, method models.PaymentMethod) *models.OrderCreateRequest {
	req := &models.OrderCreateRequest{
		Items:                 make([]models.OrderItemPayload, 0, len(c.Items)),
		ShippingAddress:       *sel.shipping,
		BillingAddress:        sel.billing,
		BillingSameAsShipping: sel.billing == nil,
		ShippingMethodID:      details.MethodID,
		ShippingRateID:        details.RateID,
		ShippingCost:          pricing.Fixed2(totals.Shipping),
		PaymentMethod:         method,
		SubtotalAmount:        pricing.Fixed2(totals.Subtotal),
		TotalAmount:           pricing.Fixed2(totals.GrandTotal),
	}
	if totals.Discount > 0 {
		req.DiscountAmount = pricing.Fixed2(totals.Discount)
	}
	for _, item := range c.Items {
		unit := item.UnitPrice.Float()
		if unit == 0 {
			unit = models.ResolvePrice(&item.Product, item.Variation)
		}
		line := models.OrderItemPayload{
			ProductID: item.Product.ID,
			Quantity:  item.Quantity,
			UnitPrice: pricing.Fixed2(unit),
		}
		if item.Variation != nil && item.Variation.ID > 0 {
			id := item.Variation.ID
			line.VariationID = &id
		}
		if item.EMISelected {
			line.EMISelected = true
			line.EMIPlanID = item.EMIPlanID
			line.EMIPeriod = item.EMIPeriod
		}
		req.Items = append(req.Items, line)
	}
	return req
}
