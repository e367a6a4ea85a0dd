// Package checkout runs the three step checkout (delivery, address, payment) over
// the session store and places the order with the backend.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"julianmorley.ca/con-plar/storefront/pkg/models"
	"julianmorley.ca/con-plar/storefront/pkg/pricing"
	"julianmorley.ca/con-plar/storefront/pkg/redis"
	"julianmorley.ca/con-plar/storefront/pkg/shipping"
)

type Backend interface {
	ShippingMethods(ctx context.Context) ([]models.ShippingMethod, error)
	ShippingRates(ctx context.Context, city string) ([]models.ShippingRate, error)
	EMIPlans(ctx context.Context, productID int64) ([]models.EMIPlan, error)
	CreateOrder(ctx context.Context, req *models.OrderCreateRequest) (*models.OrderResponse, error)
	InitiateSSLCommerz(ctx context.Context, req *models.PaymentInitRequest) (*models.PaymentInitResponse, error)
}

// Carts is satisfied by *cart.Manager.
type Carts interface {
	GetCart(ctx context.Context, sess models.Session) *models.Cart
	ClearLocal(ctx context.Context, sess models.Session) error
	GuestPromotion(ctx context.Context, sess models.Session) *models.Promotion
}

// Store is satisfied by *redis.SessionStore.
type Store interface {
	Get(ctx context.Context, sessionID string, key redis.Key, out interface{}) error
	Set(ctx context.Context, sessionID string, key redis.Key, value interface{}) error
	Delete(ctx context.Context, sessionID string, keys ...redis.Key) error
}

// Archive keeps order confirmations for the confirmation screen.
type Archive interface {
	SaveConfirmation(ctx context.Context, c *models.OrderConfirmation) error
}

// Service runs the three step checkout over a session's cart and selections.
type Service struct {
	backend  Backend
	carts    Carts
	store    Store
	archive  Archive
	base     pricing.DownPaymentBase
	validate *validator.Validate
	logger   *zap.Logger
	now      func() time.Time
}

// NewService returns a checkout Service. The archive and logger may be nil.
func NewService(b Backend, carts Carts, store Store, archive Archive, base pricing.DownPaymentBase, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		backend:  b,
		carts:    carts,
		store:    store,
		archive:  archive,
		base:     base,
		validate: newValidator(),
		logger:   logger,
		now:      time.Now,
	}
}

// newValidator reports fields under their json names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// selections is everything persisted for a session's checkout.
type selections struct {
	step     models.CheckoutStep
	method   string
	shipping *models.Address
	billing  *models.Address
	payment  *models.PaymentDetails
}

func (s *Service) load(ctx context.Context, sess models.Session) selections {
	sel := selections{step: models.StepDelivery}

	var step models.CheckoutStep
	if s.read(ctx, sess, redis.KeyCheckoutStep, &step) && step.Valid() {
		sel.step = step
	}
	var method string
	if s.read(ctx, sess, redis.KeySelectedShippingMethod, &method) {
		sel.method = method
	}
	var addr models.Address
	if s.read(ctx, sess, redis.KeyShippingAddress, &addr) {
		sel.shipping = &addr
	}
	var billing models.Address
	if s.read(ctx, sess, redis.KeyBillingAddress, &billing) {
		sel.billing = &billing
	}
	var payment models.PaymentDetails
	if s.read(ctx, sess, redis.KeyPaymentDetails, &payment) {
		sel.payment = &payment
	}
	return sel
}

// read reports whether key held a usable value. Anything else is logged and
// treated as unset.
func (s *Service) read(ctx context.Context, sess models.Session, key redis.Key, out interface{}) bool {
	err := s.store.Get(ctx, sess.ID, key, out)
	if err == nil {
		return true
	}
	if !errors.Is(err, redis.ErrNotFound) {
		s.logger.Warn("discarding checkout selection",
			zap.String("session_id", sess.ID), zap.String("key", string(key)), zap.Error(err))
	}
	return false
}

// State renders the checkout for the session's current cart.
func (s *Service) State(ctx context.Context, sess models.Session) (*models.CheckoutState, error) {
	sel := s.load(ctx, sess)
	c := s.carts.GetCart(ctx, sess)

	state := &models.CheckoutState{
		Step:              sel.step,
		ShippingMethod:    sel.method,
		ShippingAddress:   sel.shipping,
		BillingAddress:    sel.billing,
		BillingSameAsShip: sel.billing == nil,
		Payment:           sel.payment,
		Cart:              c,
		AllowedPayments:   AllowedPayments(c),
	}

	details, err := s.shippingDetails(ctx, sess, sel, c)
	if err != nil && !errors.Is(err, shipping.ErrMethodNotFound) {
		s.logger.Warn("shipping unavailable", zap.String("session_id", sess.ID), zap.Error(err))
		details = models.ShippingDetails{
			Method:  sel.method,
			Display: shipping.DisplayPending,
			Error:   "shipping prices are unavailable right now",
		}
	}
	state.Shipping = &details

	state.PromoCode = c.PromoCode
	totals := computeTotals(c, details, c.PromoCode)

	if sel.payment != nil && sel.payment.Method == models.PaymentCardlessEMI && c.HasEMIItems() {
		if _, b, err := s.emiApplication(ctx, c, sel.payment, totals.GrandTotal); err == nil {
			totals.AmountDueNow = pricing.Round2(b.DownPayment)
		} else {
			s.logger.Warn("failed to price emi down payment", zap.String("session_id", sess.ID), zap.Error(err))
		}
	}
	state.Totals = &totals
	return state, nil
}

// MethodQuote is a shipping method priced for the current cart.
type MethodQuote struct {
	Method  models.ShippingMethod  `json:"method"`
	Details models.ShippingDetails `json:"details"`
}

// ShippingMethods lists delivery options priced for the cart and city.
func (s *Service) ShippingMethods(ctx context.Context, sess models.Session, city string) ([]MethodQuote, error) {
	methods, err := s.backend.ShippingMethods(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load shipping methods: %w", err)
	}
	rates, err := s.rates(ctx, city)
	if err != nil {
		return nil, err
	}
	c := s.carts.GetCart(ctx, sess)
	quotes := make([]MethodQuote, 0, len(methods))
	for _, m := range methods {
		details, err := shipping.CalculateShippingDetails(m.Name, methods, rates, c)
		if err != nil {
			continue
		}
		quotes = append(quotes, MethodQuote{Method: m, Details: details})
	}
	return quotes, nil
}

func (s *Service) SelectShippingMethod(ctx context.Context, sess models.Session, req *models.SelectShippingMethodRequest) (*models.CheckoutState, error) {
	methods, err := s.backend.ShippingMethods(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load shipping methods: %w", err)
	}
	method := shipping.FindMethod(methods, req.Name)
	if method == nil {
		return nil, fmt.Errorf("%w: %q", shipping.ErrMethodNotFound, req.Name)
	}
	if err := s.store.Set(ctx, sess.ID, redis.KeySelectedShippingMethod, method.Name); err != nil {
		return nil, err
	}
	if err := s.store.Delete(ctx, sess.ID, redis.KeyShippingDetails); err != nil {
		return nil, err
	}
	return s.State(ctx, sess)
}

// SetAddress stores the address step as entered. Completeness is only enforced
// when leaving the step, so a half filled form survives a reload.
func (s *Service) SetAddress(ctx context.Context, sess models.Session, req *models.SetAddressRequest) (*models.CheckoutState, error) {
	var fields []FieldError
	fields = append(fields, s.addressFormat("shipping_address.", &req.Shipping)...)
	if !req.BillingSameAsShip && req.Billing != nil {
		fields = append(fields, s.addressFormat("billing_address.", req.Billing)...)
	}
	if len(fields) > 0 {
		return nil, &ValidationErrors{Cause: ErrInvalidAddress, Fields: fields}
	}

	if err := s.store.Set(ctx, sess.ID, redis.KeyShippingAddress, req.Shipping); err != nil {
		return nil, err
	}
	if req.BillingSameAsShip || req.Billing == nil {
		if err := s.store.Delete(ctx, sess.ID, redis.KeyBillingAddress); err != nil {
			return nil, err
		}
	} else if err := s.store.Set(ctx, sess.ID, redis.KeyBillingAddress, *req.Billing); err != nil {
		return nil, err
	}
	// rates depend on the city
	if err := s.store.Delete(ctx, sess.ID, redis.KeyShippingDetails); err != nil {
		return nil, err
	}
	return s.State(ctx, sess)
}

func (s *Service) addressFormat(prefix string, a *models.Address) []FieldError {
	err := s.validate.Struct(a)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []FieldError{{Field: prefix, Message: err.Error(), Code: "invalid"}}
	}
	out := make([]FieldError, len(verrs))
	for i, fe := range verrs {
		out[i] = FieldError{
			Field:   prefix + fe.Field(),
			Message: fmt.Sprintf("%s is not a valid %s", fe.Field(), fe.Tag()),
			Code:    "invalid",
		}
	}
	return out
}

// SelectPayment stores the payment choice after applying the EMI constraint:
// carts with EMI items cannot use cash on delivery, and other non-EMI choices are
// redirected to the EMI gateway method of the items.
func (s *Service) SelectPayment(ctx context.Context, sess models.Session, req *models.SelectPaymentRequest) (*models.CheckoutState, error) {
	c := s.carts.GetCart(ctx, sess)
	if c.IsEmpty() {
		return nil, ErrEmptyCart
	}
	method, err := resolvePayment(c, req.Method)
	if err != nil {
		return nil, err
	}
	details := models.PaymentDetails{
		Method:       method,
		BankCode:     req.BankCode,
		EMIPlanID:    req.EMIPlanID,
		TenureMonths: req.TenureMonths,
	}
	if !method.IsEMI() {
		details.BankCode, details.EMIPlanID, details.TenureMonths = "", nil, 0
	}
	if err := s.store.Set(ctx, sess.ID, redis.KeyPaymentDetails, details); err != nil {
		return nil, err
	}
	return s.State(ctx, sess)
}

// GoToStep moves the checkout. Going back is always allowed; going forward runs
// the guard of every step being left.
func (s *Service) GoToStep(ctx context.Context, sess models.Session, step models.CheckoutStep) (*models.CheckoutState, error) {
	if !step.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidStep, step)
	}
	sel := s.load(ctx, sess)
	if step > sel.step {
		c := s.carts.GetCart(ctx, sess)
		for from := sel.step; from < step; from++ {
			if err := s.guard(ctx, from, sel, c); err != nil {
				return nil, err
			}
		}
	}
	if err := s.store.Set(ctx, sess.ID, redis.KeyCheckoutStep, step); err != nil {
		return nil, err
	}
	return s.State(ctx, sess)
}

func (s *Service) guard(ctx context.Context, leaving models.CheckoutStep, sel selections, c *models.Cart) error {
	switch leaving {
	case models.StepDelivery:
		if c.IsEmpty() {
			return ErrEmptyCart
		}
		if !c.NeedsShipping() {
			return nil
		}
		if sel.method == "" {
			return ErrNoShippingMethod
		}
		methods, err := s.backend.ShippingMethods(ctx)
		if err != nil {
			return fmt.Errorf("failed to load shipping methods: %w", err)
		}
		if shipping.FindMethod(methods, sel.method) == nil {
			return fmt.Errorf("%w: %q", shipping.ErrMethodNotFound, sel.method)
		}
	case models.StepAddress:
		return checkAddresses(sel)
	}
	return nil
}

func checkAddresses(sel selections) error {
	fields := missingFields("shipping_address.", sel.shipping.MissingFields())
	if sel.billing != nil {
		fields = append(fields, missingFields("billing_address.", sel.billing.MissingFields())...)
	}
	if len(fields) > 0 {
		return &ValidationErrors{Cause: ErrMissingAddressFields, Fields: fields}
	}
	return nil
}

// ShippingDetails prices the selected method for the current cart. A selection
// that no longer matches a method yields the details and shipping.ErrMethodNotFound.
func (s *Service) ShippingDetails(ctx context.Context, sess models.Session) (models.ShippingDetails, error) {
	sel := s.load(ctx, sess)
	return s.shippingDetails(ctx, sess, sel, s.carts.GetCart(ctx, sess))
}

func (s *Service) shippingDetails(ctx context.Context, sess models.Session, sel selections, c *models.Cart) (models.ShippingDetails, error) {
	if c.IsEmpty() || sel.method == "" {
		return shipping.CalculateShippingDetails("", nil, nil, nil)
	}
	methods, err := s.backend.ShippingMethods(ctx)
	if err == nil {
		var rates []models.ShippingRate
		rates, err = s.rates(ctx, city(sel.shipping))
		if err == nil {
			details, calcErr := shipping.CalculateShippingDetails(sel.method, methods, rates, c)
			if calcErr == nil {
				if err := s.store.Set(ctx, sess.ID, redis.KeyShippingDetails, details); err != nil {
					s.logger.Warn("failed to cache shipping details", zap.String("session_id", sess.ID), zap.Error(err))
				}
			}
			return details, calcErr
		}
	}

	var cached models.ShippingDetails
	if s.read(ctx, sess, redis.KeyShippingDetails, &cached) {
		s.logger.Warn("shipping lookup failed, using last known details", zap.String("session_id", sess.ID), zap.Error(err))
		return cached, nil
	}
	return models.ShippingDetails{}, fmt.Errorf("failed to price shipping: %w", err)
}

func (s *Service) rates(ctx context.Context, city string) ([]models.ShippingRate, error) {
	rates, err := s.backend.ShippingRates(ctx, city)
	if err != nil {
		return nil, fmt.Errorf("failed to load shipping rates: %w", err)
	}
	return shipping.RatesForCity(rates, city), nil
}

// Reset clears every checkout selection of the session.
func (s *Service) Reset(ctx context.Context, sess models.Session) error {
	return s.store.Delete(ctx, sess.ID, redis.CheckoutKeys...)
}

func city(a *models.Address) string {
	if a == nil {
		return ""
	}
	return a.City
}
