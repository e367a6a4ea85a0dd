package checkout

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redisclient "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"julianmorley.ca/con-plar/storefront/pkg/models"
	"julianmorley.ca/con-plar/storefront/pkg/pricing"
	"julianmorley.ca/con-plar/storefront/pkg/redis"
	"julianmorley.ca/con-plar/storefront/pkg/shipping"
)

type fakeCarts struct {
	cart    *models.Cart
	promo   *models.Promotion
	cleared int
}

func (f *fakeCarts) GetCart(ctx context.Context, sess models.Session) *models.Cart {
	if f.cart == nil {
		return models.EmptyCart(models.CartSourceLocal)
	}
	return f.cart
}

func (f *fakeCarts) ClearLocal(ctx context.Context, sess models.Session) error {
	f.cleared++
	return nil
}

func (f *fakeCarts) GuestPromotion(ctx context.Context, sess models.Session) *models.Promotion {
	return f.promo
}

type fakeBackend struct {
	methods    []models.ShippingMethod
	rates      []models.ShippingRate
	plans      map[int64][]models.EMIPlan
	methodsErr error
	createErr  error
	paymentErr error
	orders     []*models.OrderCreateRequest
	payments   []*models.PaymentInitRequest
}

func (f *fakeBackend) ShippingMethods(ctx context.Context) ([]models.ShippingMethod, error) {
	if f.methodsErr != nil {
		return nil, f.methodsErr
	}
	return f.methods, nil
}

func (f *fakeBackend) ShippingRates(ctx context.Context, city string) ([]models.ShippingRate, error) {
	return f.rates, nil
}

func (f *fakeBackend) EMIPlans(ctx context.Context, productID int64) ([]models.EMIPlan, error) {
	return f.plans[productID], nil
}

func (f *fakeBackend) CreateOrder(ctx context.Context, req *models.OrderCreateRequest) (*models.OrderResponse, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.orders = append(f.orders, req)
	n := len(f.orders)
	return &models.OrderResponse{ID: int64(n), OrderID: fmt.Sprintf("ORD-%04d", n), Status: "pending"}, nil
}

func (f *fakeBackend) InitiateSSLCommerz(ctx context.Context, req *models.PaymentInitRequest) (*models.PaymentInitResponse, error) {
	f.payments = append(f.payments, req)
	if f.paymentErr != nil {
		return nil, f.paymentErr
	}
	return &models.PaymentInitResponse{Status: "success", RedirectURL: "https://sandbox.sslcommerz.com/pay/" + req.OrderID}, nil
}

type fakeArchive struct {
	saved []*models.OrderConfirmation
}

func (f *fakeArchive) SaveConfirmation(ctx context.Context, c *models.OrderConfirmation) error {
	f.saved = append(f.saved, c)
	return nil
}

type fixture struct {
	svc     *Service
	backend *fakeBackend
	carts   *fakeCarts
	archive *fakeArchive
	store   *redis.SessionStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redisclient.NewClient(&redisclient.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	f := &fixture{
		backend: &fakeBackend{
			methods: []models.ShippingMethod{
				{ID: 1, Name: "Standard", BaseRate: 120, FreeShippingThreshold: 5000},
				{ID: 2, Name: "Express", BaseRate: 250},
			},
			rates: []models.ShippingRate{
				{ID: 9, MethodID: 1, BaseRate: 120},
				{ID: 10, MethodID: 2, BaseRate: 250},
				{ID: 11, MethodID: 1, City: "Chattogram", BaseRate: 150, FreeShippingThreshold: 8000},
			},
			plans: map[int64][]models.EMIPlan{},
		},
		carts:   &fakeCarts{},
		archive: &fakeArchive{},
		store:   redis.NewSessionStore(client, time.Hour),
	}
	f.svc = NewService(f.backend, f.carts, f.store, f.archive, pricing.BaseTotalWithInterest, nil)
	return f
}

var sess = models.Session{ID: "sess-1", UserID: "42", Authenticated: true}

func line(p models.Product, qty int, emi models.EMISelection) models.CartItem {
	unit := models.ResolvePrice(&p, nil)
	return models.CartItem{
		Key:          models.LocalItemKey(p.ID, nil),
		Product:      p,
		Quantity:     qty,
		UnitPrice:    models.Amount(unit),
		TotalPrice:   models.Amount(unit * float64(qty)),
		EMISelection: emi,
	}
}

func cartOf(items ...models.CartItem) *models.Cart {
	c := models.EmptyCart(models.CartSourceBackend)
	c.Items = items
	for _, item := range items {
		c.TotalItems += item.Quantity
	}
	c.TotalPrice = models.Amount(c.Subtotal())
	return c
}

func fullAddress() models.Address {
	return models.Address{
		FullName:     "Rahim Uddin",
		Phone:        "01700000000",
		AddressLine1: "House 12, Road 5",
		City:         "Dhaka",
		PostalCode:   "1205",
		Country:      "Bangladesh",
	}
}

func kettle(price float64) models.Product {
	return models.Product{ID: 1, Name: "Kettle", Slug: "kettle", Price: models.Amount(price)}
}

func licence() models.Product {
	return models.Product{ID: 5, Name: "Design suite licence", Slug: "design-suite", Price: 10000, IsVirtual: true}
}

func cardlessSelection() models.EMISelection {
	plan := int64(7)
	return models.EMISelection{EMISelected: true, EMIPeriod: 12, EMIPlanID: &plan, EMIType: models.PlanTypeCardless}
}

func TestStateDefaults(t *testing.T) {
	f := newFixture(t)

	state, err := f.svc.State(context.Background(), sess)
	require.NoError(t, err)
	assert.Equal(t, models.StepDelivery, state.Step)
	assert.Equal(t, shipping.DisplayPending, state.Shipping.Display)
	assert.True(t, state.BillingSameAsShip)
	assert.Nil(t, state.AllowedPayments)
}

func TestShippingThresholdScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.carts.cart = cartOf(line(kettle(4000), 1, models.EMISelection{}))

	state, err := f.svc.SelectShippingMethod(ctx, sess, &models.SelectShippingMethodRequest{Name: "standard"})
	require.NoError(t, err)
	assert.Equal(t, "Standard", state.ShippingMethod)
	assert.Equal(t, "৳120.00", state.Shipping.Display)
	assert.False(t, state.Shipping.IsFree)
	assert.Equal(t, int64(9), state.Shipping.RateID)
	assert.Equal(t, 4120.0, state.Totals.GrandTotal)

	f.carts.cart = cartOf(line(kettle(5000), 1, models.EMISelection{}))
	state, err = f.svc.State(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, shipping.DisplayQualified, state.Shipping.Display)
	assert.Zero(t, state.Shipping.Cost)
	assert.True(t, state.Shipping.Qualified)
	assert.Equal(t, 5000.0, state.Totals.GrandTotal)
}

func TestCityRateOverridesThreshold(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.carts.cart = cartOf(line(kettle(6000), 1, models.EMISelection{}))

	_, err := f.svc.SelectShippingMethod(ctx, sess, &models.SelectShippingMethodRequest{Name: "Standard"})
	require.NoError(t, err)
	addr := fullAddress()
	addr.City = "Chattogram"
	state, err := f.svc.SetAddress(ctx, sess, &models.SetAddressRequest{Shipping: addr, BillingSameAsShip: true})
	require.NoError(t, err)

	assert.Equal(t, int64(11), state.Shipping.RateID)
	assert.Equal(t, 150.0, state.Shipping.Cost)
	assert.Equal(t, "৳150.00", state.Shipping.Display)
}

func TestSelectUnknownShippingMethod(t *testing.T) {
	f := newFixture(t)
	f.carts.cart = cartOf(line(kettle(4000), 1, models.EMISelection{}))

	_, err := f.svc.SelectShippingMethod(context.Background(), sess, &models.SelectShippingMethodRequest{Name: "Drone"})
	assert.ErrorIs(t, err, shipping.ErrMethodNotFound)
}

func TestStaleShippingSelectionIsSurfaced(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.carts.cart = cartOf(line(kettle(4000), 1, models.EMISelection{}))
	_, err := f.svc.SelectShippingMethod(ctx, sess, &models.SelectShippingMethodRequest{Name: "Express"})
	require.NoError(t, err)

	f.backend.methods = f.backend.methods[:1]
	state, err := f.svc.State(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, shipping.DisplayNotFound, state.Shipping.Display)
	assert.NotEmpty(t, state.Shipping.Error)
	assert.Zero(t, state.Shipping.Cost)

	_, err = f.svc.GoToStep(ctx, sess, models.StepAddress)
	assert.ErrorIs(t, err, shipping.ErrMethodNotFound)
}

func TestShippingFallsBackToLastKnownDetails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.carts.cart = cartOf(line(kettle(4000), 1, models.EMISelection{}))
	_, err := f.svc.SelectShippingMethod(ctx, sess, &models.SelectShippingMethodRequest{Name: "Standard"})
	require.NoError(t, err)

	f.backend.methodsErr = errors.New("backend down")
	details, err := f.svc.ShippingDetails(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, 120.0, details.Cost)
}

func TestStepGuards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.GoToStep(ctx, sess, models.StepAddress)
	assert.ErrorIs(t, err, ErrEmptyCart)

	f.carts.cart = cartOf(line(kettle(4000), 1, models.EMISelection{}))
	_, err = f.svc.GoToStep(ctx, sess, models.StepAddress)
	assert.ErrorIs(t, err, ErrNoShippingMethod)

	_, err = f.svc.SelectShippingMethod(ctx, sess, &models.SelectShippingMethodRequest{Name: "Standard"})
	require.NoError(t, err)
	state, err := f.svc.GoToStep(ctx, sess, models.StepAddress)
	require.NoError(t, err)
	assert.Equal(t, models.StepAddress, state.Step)

	partial := fullAddress()
	partial.Phone = ""
	partial.PostalCode = " "
	_, err = f.svc.SetAddress(ctx, sess, &models.SetAddressRequest{Shipping: partial, BillingSameAsShip: true})
	require.NoError(t, err)

	_, err = f.svc.GoToStep(ctx, sess, models.StepPayment)
	require.ErrorIs(t, err, ErrMissingAddressFields)
	var verrs *ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Equal(t, "shipping_address.phone", verrs.Fields[0].Field)
	assert.Equal(t, "shipping_address.postal_code", verrs.Fields[1].Field)

	_, err = f.svc.SetAddress(ctx, sess, &models.SetAddressRequest{Shipping: fullAddress(), BillingSameAsShip: true})
	require.NoError(t, err)
	state, err = f.svc.GoToStep(ctx, sess, models.StepPayment)
	require.NoError(t, err)
	assert.Equal(t, models.StepPayment, state.Step)

	state, err = f.svc.GoToStep(ctx, sess, models.StepDelivery)
	require.NoError(t, err, "going back is always allowed")
	assert.Equal(t, models.StepDelivery, state.Step)

	_, err = f.svc.GoToStep(ctx, sess, models.CheckoutStep(4))
	assert.ErrorIs(t, err, ErrInvalidStep)
}

func TestSkippingStepsRunsEveryGuard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.carts.cart = cartOf(line(kettle(4000), 1, models.EMISelection{}))
	_, err := f.svc.SelectShippingMethod(ctx, sess, &models.SelectShippingMethodRequest{Name: "Standard"})
	require.NoError(t, err)

	_, err = f.svc.GoToStep(ctx, sess, models.StepPayment)
	assert.ErrorIs(t, err, ErrMissingAddressFields)
}

func TestBillingAddressIsCheckedWhenDifferent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.carts.cart = cartOf(line(licence(), 1, models.EMISelection{}))

	billing := models.Address{FullName: "Karim Ahmed"}
	state, err := f.svc.SetAddress(ctx, sess, &models.SetAddressRequest{Shipping: fullAddress(), Billing: &billing})
	require.NoError(t, err)
	assert.False(t, state.BillingSameAsShip)

	_, err = f.svc.GoToStep(ctx, sess, models.StepPayment)
	var verrs *ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Len(t, verrs.Fields, 5)
	assert.Equal(t, "billing_address.phone", verrs.Fields[0].Field)
}

func TestSetAddressRejectsBadEmail(t *testing.T) {
	f := newFixture(t)
	addr := fullAddress()
	addr.Email = "not-an-email"

	_, err := f.svc.SetAddress(context.Background(), sess, &models.SetAddressRequest{Shipping: addr, BillingSameAsShip: true})
	require.ErrorIs(t, err, ErrInvalidAddress)
	var verrs *ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Equal(t, "shipping_address.email", verrs.Fields[0].Field)
}

func TestSelectionsSurviveReload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.carts.cart = cartOf(line(kettle(4000), 1, models.EMISelection{}))
	_, err := f.svc.SelectShippingMethod(ctx, sess, &models.SelectShippingMethodRequest{Name: "Standard"})
	require.NoError(t, err)
	_, err = f.svc.SetAddress(ctx, sess, &models.SetAddressRequest{Shipping: fullAddress(), BillingSameAsShip: true})
	require.NoError(t, err)
	_, err = f.svc.SelectPayment(ctx, sess, &models.SelectPaymentRequest{Method: models.PaymentCOD})
	require.NoError(t, err)

	reloaded := NewService(f.backend, f.carts, f.store, f.archive, pricing.BaseTotalWithInterest, nil)
	state, err := reloaded.State(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, "Standard", state.ShippingMethod)
	assert.Equal(t, "Dhaka", state.ShippingAddress.City)
	assert.Equal(t, models.PaymentCOD, state.Payment.Method)

	require.NoError(t, reloaded.Reset(ctx, sess))
	state, err = reloaded.State(ctx, sess)
	require.NoError(t, err)
	assert.Empty(t, state.ShippingMethod)
	assert.Nil(t, state.ShippingAddress)
	assert.Nil(t, state.Payment)
}

func TestAllowedPayments(t *testing.T) {
	plain := cartOf(line(kettle(1000), 1, models.EMISelection{}))
	assert.Equal(t, []models.PaymentMethod{models.PaymentCOD, models.PaymentSSLCommerz}, AllowedPayments(plain))

	cardless := cartOf(line(licence(), 1, cardlessSelection()))
	assert.Equal(t, []models.PaymentMethod{models.PaymentCardlessEMI}, AllowedPayments(cardless))

	untyped := cartOf(line(licence(), 1, models.EMISelection{EMISelected: true, EMIPeriod: 6}))
	assert.Equal(t, []models.PaymentMethod{models.PaymentCardEMI, models.PaymentCardlessEMI}, AllowedPayments(untyped))

	assert.Nil(t, AllowedPayments(models.EmptyCart(models.CartSourceLocal)))
}

func TestSelectPaymentWithEMIItems(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.carts.cart = cartOf(line(licence(), 1, cardlessSelection()), line(kettle(1000), 1, models.EMISelection{}))

	_, err := f.svc.SelectPayment(ctx, sess, &models.SelectPaymentRequest{Method: models.PaymentCOD})
	assert.ErrorIs(t, err, ErrPaymentNotAllowed)

	state, err := f.svc.SelectPayment(ctx, sess, &models.SelectPaymentRequest{Method: models.PaymentSSLCommerz})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCardlessEMI, state.Payment.Method)

	state, err = f.svc.SelectPayment(ctx, sess, &models.SelectPaymentRequest{Method: models.PaymentCardEMI, BankCode: "CITY"})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCardlessEMI, state.Payment.Method)
}

func TestSelectEMIPaymentWithoutEMIItems(t *testing.T) {
	f := newFixture(t)
	f.carts.cart = cartOf(line(kettle(1000), 1, models.EMISelection{}))

	_, err := f.svc.SelectPayment(context.Background(), sess, &models.SelectPaymentRequest{Method: models.PaymentCardEMI})
	assert.ErrorIs(t, err, ErrPaymentNotAllowed)

	_, err = f.svc.SelectPayment(context.Background(), sess, &models.SelectPaymentRequest{Method: models.PaymentCOD})
	assert.NoError(t, err)
}

func readyForPayment(t *testing.T, f *fixture, method models.PaymentMethod) {
	t.Helper()
	ctx := context.Background()
	if f.carts.cart.NeedsShipping() {
		_, err := f.svc.SelectShippingMethod(ctx, sess, &models.SelectShippingMethodRequest{Name: "Standard"})
		require.NoError(t, err)
	}
	_, err := f.svc.SetAddress(ctx, sess, &models.SetAddressRequest{Shipping: fullAddress(), BillingSameAsShip: true})
	require.NoError(t, err)
	_, err = f.svc.SelectPayment(ctx, sess, &models.SelectPaymentRequest{Method: method})
	require.NoError(t, err)
}

func TestPlaceOrderCardlessEMI(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.carts.cart = cartOf(line(licence(), 1, cardlessSelection()))
	f.backend.plans[5] = []models.EMIPlan{
		{ID: 6, PlanType: models.PlanTypeCardless, DurationMonths: 6, InterestRate: 8, DownPaymentPercentage: 20},
		{ID: 7, PlanType: models.PlanTypeCardless, DurationMonths: 12, InterestRate: 10, DownPaymentPercentage: 20},
	}
	readyForPayment(t, f, models.PaymentCardlessEMI)

	state, err := f.svc.State(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, 2200.0, state.Totals.AmountDueNow)

	result, err := f.svc.PlaceOrder(ctx, sess, &models.PlaceOrderRequest{Notes: "leave at reception"})
	require.NoError(t, err)

	require.Len(t, f.backend.orders, 1)
	order := f.backend.orders[0]
	assert.Equal(t, int64(0), order.ShippingRateID, "virtual only carts ship nothing")
	assert.Equal(t, "0.00", order.ShippingCost)
	assert.Equal(t, "10000.00", order.TotalAmount)
	assert.Equal(t, "leave at reception", order.Notes)
	require.NotNil(t, order.EMIApplication)
	assert.Equal(t, int64(7), order.EMIApplication.PlanID)
	assert.Equal(t, 1000.0, order.EMIApplication.TotalInterest)
	assert.Equal(t, 2200.0, order.EMIApplication.DownPaymentAmount)
	assert.Equal(t, 733.33, order.EMIApplication.MonthlyInstallment)

	require.Len(t, f.backend.payments, 1)
	payment := f.backend.payments[0]
	assert.Equal(t, models.TransactionDownPayment, payment.TransactionType)
	require.NotNil(t, payment.Amount)
	assert.Equal(t, 2200.0, *payment.Amount)

	assert.Equal(t, "https://sandbox.sslcommerz.com/pay/ORD-0001", result.RedirectURL)
	assert.Equal(t, "ORD-0001", result.Confirmation.OrderID)
	assert.Equal(t, models.PlanTypeCardless, result.Confirmation.EMIType)
	assert.Equal(t, 2200.0, result.Confirmation.AmountDueNow)
	require.Len(t, f.archive.saved, 1)

	assert.Equal(t, 1, f.carts.cleared)
	var payment2 models.PaymentDetails
	assert.ErrorIs(t, f.store.Get(ctx, sess.ID, redis.KeyPaymentDetails, &payment2), redis.ErrNotFound)
}

func TestPlaceOrderCardEMISendsOnlyBaseAndBank(t *testing.T) {
	f := newFixture(t)
	plan := int64(3)
	f.carts.cart = cartOf(line(licence(), 1, models.EMISelection{EMISelected: true, EMIPeriod: 6, EMIPlanID: &plan, EMIType: models.PlanTypeCard}))
	f.backend.plans[5] = []models.EMIPlan{
		{ID: 3, PlanType: models.PlanTypeCard, DurationMonths: 6, InterestRate: 12, Bank: &models.Bank{ID: 1, Name: "City Bank", Code: "CITY"}},
	}
	readyForPayment(t, f, models.PaymentCardEMI)

	_, err := f.svc.PlaceOrder(context.Background(), sess, nil)
	require.NoError(t, err)

	app := f.backend.orders[0].EMIApplication
	require.NotNil(t, app)
	assert.Equal(t, "CITY", app.BankCode)
	assert.Equal(t, 10000.0, app.BaseAmount)
	assert.Zero(t, app.TotalInterest)
	assert.Zero(t, app.DownPaymentAmount)
	assert.Equal(t, models.TransactionFullPayment, f.backend.payments[0].TransactionType)
	assert.Nil(t, f.backend.payments[0].Amount)
}

func TestPlaceOrderCOD(t *testing.T) {
	f := newFixture(t)
	f.carts.cart = cartOf(line(kettle(4000), 1, models.EMISelection{}))
	readyForPayment(t, f, models.PaymentCOD)

	result, err := f.svc.PlaceOrder(context.Background(), sess, nil)
	require.NoError(t, err)

	order := f.backend.orders[0]
	assert.Equal(t, int64(9), order.ShippingRateID)
	assert.Equal(t, int64(1), order.ShippingMethodID)
	assert.Equal(t, "120.00", order.ShippingCost)
	assert.Equal(t, "4120.00", order.TotalAmount)
	assert.True(t, order.BillingSameAsShipping)
	assert.Empty(t, f.backend.payments)
	assert.Empty(t, result.RedirectURL)
}

func TestPlaceOrderRequiresShippingRate(t *testing.T) {
	f := newFixture(t)
	f.carts.cart = cartOf(line(kettle(4000), 1, models.EMISelection{}))
	f.backend.rates = nil
	readyForPayment(t, f, models.PaymentCOD)

	_, err := f.svc.PlaceOrder(context.Background(), sess, nil)
	assert.ErrorIs(t, err, ErrMissingShippingRate)
	assert.Empty(t, f.backend.orders)
}

func TestPlaceOrderFailureKeepsState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.carts.cart = cartOf(line(kettle(4000), 1, models.EMISelection{}))
	readyForPayment(t, f, models.PaymentSSLCommerz)
	f.backend.createErr = errors.New("backend down")

	_, err := f.svc.PlaceOrder(ctx, sess, nil)
	require.Error(t, err)
	assert.Zero(t, f.carts.cleared)
	assert.Empty(t, f.archive.saved)

	state, err := f.svc.State(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentSSLCommerz, state.Payment.Method)
	assert.Equal(t, "Standard", state.ShippingMethod)
}

func TestPlaceOrderPaymentFailureKeepsOrder(t *testing.T) {
	f := newFixture(t)
	f.carts.cart = cartOf(line(kettle(4000), 1, models.EMISelection{}))
	readyForPayment(t, f, models.PaymentSSLCommerz)
	f.backend.paymentErr = errors.New("gateway timeout")

	result, err := f.svc.PlaceOrder(context.Background(), sess, nil)
	require.NoError(t, err)
	assert.Equal(t, "ORD-0001", result.Order.OrderID)
	assert.Empty(t, result.RedirectURL)
	assert.NotEmpty(t, result.PaymentError)
	assert.Equal(t, models.TransactionFullPayment, f.backend.payments[0].TransactionType)
	assert.Equal(t, 1, f.carts.cleared)
}

func TestPlaceOrderPreconditions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.PlaceOrder(ctx, sess, nil)
	assert.ErrorIs(t, err, ErrEmptyCart)

	_, err = f.svc.PlaceOrder(ctx, models.Session{ID: "guest-1"}, nil)
	assert.ErrorIs(t, err, ErrAuthRequired)

	f.carts.cart = cartOf(line(kettle(4000), 1, models.EMISelection{}))
	_, err = f.svc.PlaceOrder(ctx, sess, nil)
	assert.ErrorIs(t, err, ErrMissingAddressFields)

	_, err = f.svc.SetAddress(ctx, sess, &models.SetAddressRequest{Shipping: fullAddress(), BillingSameAsShip: true})
	require.NoError(t, err)
	_, err = f.svc.PlaceOrder(ctx, sess, nil)
	assert.ErrorIs(t, err, ErrNoPaymentMethod)

	_, err = f.svc.SelectPayment(ctx, sess, &models.SelectPaymentRequest{Method: models.PaymentCOD})
	require.NoError(t, err)
	_, err = f.svc.PlaceOrder(ctx, sess, nil)
	assert.ErrorIs(t, err, ErrNoShippingMethod)
}

func TestPlaceOrderDropsExpiredLocalPromo(t *testing.T) {
	f := newFixture(t)
	// a degraded session still checks out from its local cart
	degraded := models.Session{ID: "sess-2", UserID: "42", Authenticated: true}
	c := cartOf(line(licence(), 1, models.EMISelection{}))
	c.Source = models.CartSourceLocal
	c.PromoCode = &models.AppliedPromo{Code: "EID10", DiscountAmount: 1000}
	f.carts.cart = c
	yesterday := time.Now().Add(-24 * time.Hour)
	f.carts.promo = &models.Promotion{Code: "EID10", DiscountType: models.DiscountPercentage, DiscountValue: 10, IsActive: true, ValidUntil: &yesterday}

	ctx := context.Background()
	_, err := f.svc.SetAddress(ctx, degraded, &models.SetAddressRequest{Shipping: fullAddress(), BillingSameAsShip: true})
	require.NoError(t, err)
	_, err = f.svc.SelectPayment(ctx, degraded, &models.SelectPaymentRequest{Method: models.PaymentSSLCommerz})
	require.NoError(t, err)

	_, err = f.svc.PlaceOrder(ctx, degraded, nil)
	require.NoError(t, err)
	assert.Empty(t, f.backend.orders[0].PromoCode)
	assert.Equal(t, "10000.00", f.backend.orders[0].TotalAmount)
}
