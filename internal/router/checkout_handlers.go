package router

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"julianmorley.ca/con-plar/storefront/pkg/global"
	"julianmorley.ca/con-plar/storefront/pkg/models"
	"julianmorley.ca/con-plar/storefront/pkg/shipping"
)

func (h *Handler) GetCheckout(c *gin.Context) {
	sess := sessionFrom(c)
	state, err := h.checkout.State(c.Request.Context(), sess)
	if err != nil {
		h.checkoutError(c, sess, err)
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(state))
}

func (h *Handler) ResetCheckout(c *gin.Context) {
	sess := sessionFrom(c)
	if err := h.checkout.Reset(c.Request.Context(), sess); err != nil {
		h.checkoutError(c, sess, err)
		return
	}
	h.GetCheckout(c)
}

// ListShippingMethods prices every method for the cart. The city query overrides
// the city of the saved address.
func (h *Handler) ListShippingMethods(c *gin.Context) {
	sess := sessionFrom(c)
	ctx := c.Request.Context()
	city := c.Query("city")
	if city == "" {
		if state, err := h.checkout.State(ctx, sess); err == nil && state.ShippingAddress != nil {
			city = state.ShippingAddress.City
		}
	}
	quotes, err := h.checkout.ShippingMethods(ctx, sess, city)
	if err != nil {
		h.upstreamError(c, "Failed to get shipping methods", err)
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(quotes))
}

func (h *Handler) SelectShippingMethod(c *gin.Context) {
	var req models.SelectShippingMethodRequest
	if !bindJSON(c, &req) {
		return
	}
	sess := sessionFrom(c)
	state, err := h.checkout.SelectShippingMethod(c.Request.Context(), sess, &req)
	if err != nil {
		h.checkoutError(c, sess, err)
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(state))
}

func (h *Handler) SetAddress(c *gin.Context) {
	var req models.SetAddressRequest
	if !bindJSON(c, &req) {
		return
	}
	sess := sessionFrom(c)
	state, err := h.checkout.SetAddress(c.Request.Context(), sess, &req)
	if err != nil {
		h.checkoutError(c, sess, err)
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(state))
}

func (h *Handler) SelectPaymentMethod(c *gin.Context) {
	var req models.SelectPaymentRequest
	if !bindJSON(c, &req) {
		return
	}
	sess := sessionFrom(c)
	state, err := h.checkout.SelectPayment(c.Request.Context(), sess, &req)
	if err != nil {
		h.checkoutError(c, sess, err)
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(state))
}

func (h *Handler) GoToStep(c *gin.Context) {
	var req models.StepRequest
	if !bindJSON(c, &req) {
		return
	}
	sess := sessionFrom(c)
	state, err := h.checkout.GoToStep(c.Request.Context(), sess, req.Step)
	if err != nil {
		h.checkoutError(c, sess, err)
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(state))
}

// GetShippingDetails returns the priced selection. A stale selection is a 409
// that still carries the "not found" display details.
func (h *Handler) GetShippingDetails(c *gin.Context) {
	sess := sessionFrom(c)
	details, err := h.checkout.ShippingDetails(c.Request.Context(), sess)
	if errors.Is(err, shipping.ErrMethodNotFound) {
		c.JSON(http.StatusConflict, global.ErrorResponseWithData(shipping.DisplayNotFound, details, []global.ValidationError{
			{Field: "shipping_method", Message: err.Error(), Code: "not_found"},
		}))
		return
	}
	if err != nil {
		h.upstreamError(c, "Failed to price shipping", err)
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(details))
}

func (h *Handler) PlaceOrder(c *gin.Context) {
	var req models.PlaceOrderRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}
	sess := sessionFrom(c)
	result, err := h.checkout.PlaceOrder(c.Request.Context(), sess, &req)
	if err != nil {
		h.checkoutError(c, sess, err)
		return
	}
	c.JSON(http.StatusCreated, global.SuccessResponse(result))
}
