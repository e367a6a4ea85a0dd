package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"julianmorley.ca/con-plar/storefront/internal/cart"
	"julianmorley.ca/con-plar/storefront/internal/checkout"
	"julianmorley.ca/con-plar/storefront/pkg/backend"
	"julianmorley.ca/con-plar/storefront/pkg/global"
	"julianmorley.ca/con-plar/storefront/pkg/models"
	"julianmorley.ca/con-plar/storefront/pkg/mongo"
	"julianmorley.ca/con-plar/storefront/pkg/pricing"
	"julianmorley.ca/con-plar/storefront/pkg/shipping"
)

// Catalog is the read side of the backend REST client.
type Catalog interface {
	ListProductsRaw(ctx context.Context, query url.Values) (json.RawMessage, error)
	ListCategoriesRaw(ctx context.Context) (json.RawMessage, error)
	ListBrandsRaw(ctx context.Context) (json.RawMessage, error)
	ListPromotions(ctx context.Context) ([]models.Promotion, error)
	EMIPlans(ctx context.Context, productID int64) ([]models.EMIPlan, error)
	AvailableBanks(ctx context.Context) ([]models.Bank, error)
	CalculateEMI(ctx context.Context, planID int64, productPrice float64, bankCode string) (*models.EMICalculation, error)
}

// Products is satisfied by *catalog.Service.
type Products interface {
	Product(ctx context.Context, ref string) (json.RawMessage, bool, error)
}

// Orders is satisfied by *mongo.OrderArchive.
type Orders interface {
	GetConfirmation(ctx context.Context, orderID string, owner mongo.Owner) (*models.OrderConfirmation, error)
	ListConfirmations(ctx context.Context, owner mongo.Owner, limit int) ([]models.OrderConfirmation, error)
	PaymentMethodBreakdown(ctx context.Context, owner mongo.Owner) (*mongo.OrdersSummary, error)
}

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

type Handler struct {
	catalog  Catalog
	products Products
	orders   Orders
	carts    *cart.Manager
	checkout *checkout.Service
	base     pricing.DownPaymentBase
	health   map[string]HealthCheck
	logger   *zap.Logger

	tokenSecret []byte
}

type HandlerDeps struct {
	Catalog  Catalog
	Products Products
	Orders   Orders
	Carts    *cart.Manager
	Checkout *checkout.Service
	Base     pricing.DownPaymentBase
	Health   map[string]HealthCheck

	// TokenSecret verifies bearer tokens. It is the backend's JWT signing key.
	TokenSecret []byte
}

func NewHandler(deps HandlerDeps, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		catalog:  deps.Catalog,
		products: deps.Products,
		orders:   deps.Orders,
		carts:    deps.Carts,
		checkout: deps.Checkout,
		base:     deps.Base,
		health:   deps.Health,
		logger:   logger,

		tokenSecret: deps.TokenSecret,
	}
}

func (h *Handler) HealthCheck(c *gin.Context) {
	status := map[string]string{"status": "OK"}
	healthy := true
	for name, check := range h.health {
		if err := check(c.Request.Context()); err != nil {
			h.logger.Error("health check failed", zap.String("dependency", name), zap.Error(err))
			status[name] = "Unavailable"
			healthy = false
			continue
		}
		status[name] = "Connected"
	}
	if !healthy {
		status["status"] = "DEGRADED"
		c.JSON(http.StatusServiceUnavailable, global.ErrorResponseWithData("Dependency check failed", status, nil))
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(status))
}

func bindJSON(c *gin.Context, out interface{}) bool {
	if err := c.ShouldBindJSON(out); err != nil {
		c.JSON(http.StatusBadRequest, global.ErrorResponse("Invalid request body", []global.ValidationError{
			{Field: "body", Message: err.Error(), Code: "invalid_body"},
		}))
		return false
	}
	return true
}

// upstreamError answers a failed backend read.
func (h *Handler) upstreamError(c *gin.Context, message string, err error) {
	status := backend.StatusCode(err)
	switch {
	case status == http.StatusNotFound:
		c.JSON(http.StatusNotFound, global.ErrorResponse(message, []global.ValidationError{
			{Field: "id", Message: "not found", Code: "not_found"},
		}))
	case status >= 400 && status < 500:
		c.JSON(http.StatusBadRequest, global.ErrorResponse(message, []global.ValidationError{
			{Field: "request", Message: err.Error(), Code: "rejected"},
		}))
	default:
		h.logger.Error(message, zap.Error(err))
		c.JSON(http.StatusBadGateway, global.ErrorResponse(message, nil))
	}
}

// checkoutError maps checkout failures onto responses. Validation problems carry
// their fields, a stale shipping method returns 409 with the current state.
func (h *Handler) checkoutError(c *gin.Context, sess models.Session, err error) {
	var verrs *checkout.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]global.ValidationError, len(verrs.Fields))
		for i, f := range verrs.Fields {
			fields[i] = global.ValidationError{Field: f.Field, Message: f.Message, Code: f.Code}
		}
		c.JSON(http.StatusUnprocessableEntity, global.ErrorResponse(verrs.Cause.Error(), fields))
		return
	}

	if errors.Is(err, checkout.ErrAuthRequired) {
		c.JSON(http.StatusUnauthorized, global.ErrorResponse(err.Error(), nil))
		return
	}

	if errors.Is(err, shipping.ErrMethodNotFound) {
		state, _ := h.checkout.State(c.Request.Context(), sess)
		c.JSON(http.StatusConflict, global.ErrorResponseWithData(shipping.DisplayNotFound, state, []global.ValidationError{
			{Field: "shipping_method", Message: err.Error(), Code: "not_found"},
		}))
		return
	}

	for _, known := range []struct {
		err   error
		field string
		code  string
	}{
		{checkout.ErrEmptyCart, "cart", "empty"},
		{checkout.ErrNoShippingMethod, "shipping_method", "required"},
		{checkout.ErrNoPaymentMethod, "payment_method", "required"},
		{checkout.ErrPaymentNotAllowed, "payment_method", "not_allowed"},
		{checkout.ErrMissingShippingRate, "shipping_address.city", "no_rate"},
		{checkout.ErrEMIPlanRequired, "emi_plan_id", "required"},
		{checkout.ErrInvalidStep, "step", "invalid"},
	} {
		if errors.Is(err, known.err) {
			c.JSON(http.StatusBadRequest, global.ErrorResponse(known.err.Error(), []global.ValidationError{
				{Field: known.field, Message: err.Error(), Code: known.code},
			}))
			return
		}
	}

	var apiErr *backend.APIError
	if errors.As(err, &apiErr) {
		h.upstreamError(c, "Backend request failed", err)
		return
	}
	h.logger.Error("checkout request failed", zap.String("session_id", sess.ID), zap.Error(err))
	c.JSON(http.StatusInternalServerError, global.ErrorResponse("Checkout failed", nil))
}
