package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"julianmorley.ca/con-plar/storefront/internal/cart"
	"julianmorley.ca/con-plar/storefront/pkg/global"
	"julianmorley.ca/con-plar/storefront/pkg/models"
)

// cartResult writes a mutation result. A failed mutation still carries the cart
// as it currently stands.
func cartResult(c *gin.Context, res cart.Result, body interface{}) {
	c.Header(CartModeHeader, string(res.Mode))
	if res.Success {
		c.JSON(http.StatusOK, global.SuccessResponse(body))
		return
	}
	status := http.StatusBadRequest
	code := "rejected"
	switch res.Error {
	case cart.ErrItemNotFound.Error():
		status, code = http.StatusNotFound, "not_found"
	case cart.ErrNotAuthenticated.Error():
		status, code = http.StatusUnauthorized, "unauthenticated"
	}
	c.JSON(status, global.ErrorResponseWithData(res.Error, body, []global.ValidationError{
		{Field: "cart", Message: res.Error, Code: code},
	}))
}

func (h *Handler) GetCart(c *gin.Context) {
	sess := sessionFrom(c)
	current, state := h.carts.GetCartWithState(c.Request.Context(), sess)
	c.Header(CartModeHeader, string(state))
	c.JSON(http.StatusOK, global.SuccessResponse(current))
}

func (h *Handler) GetCartCount(c *gin.Context) {
	count := h.carts.GetItemCount(c.Request.Context(), sessionFrom(c))
	c.JSON(http.StatusOK, global.SuccessResponse(gin.H{"count": count}))
}

func (h *Handler) AddToCart(c *gin.Context) {
	var req models.AddItemRequest
	if !bindJSON(c, &req) {
		return
	}
	res := h.carts.AddItem(c.Request.Context(), sessionFrom(c), &req)
	cartResult(c, res, res.Cart)
}

// UpdateCartItem sets a line's quantity; zero removes it.
func (h *Handler) UpdateCartItem(c *gin.Context) {
	var req models.UpdateCartItemRequest
	if !bindJSON(c, &req) {
		return
	}
	res := h.carts.UpdateItem(c.Request.Context(), sessionFrom(c), c.Param("itemId"), req.Quantity)
	cartResult(c, res, res.Cart)
}

func (h *Handler) RemoveFromCart(c *gin.Context) {
	res := h.carts.RemoveItem(c.Request.Context(), sessionFrom(c), c.Param("itemId"))
	cartResult(c, res, res.Cart)
}

func (h *Handler) ClearCart(c *gin.Context) {
	res := h.carts.ClearCart(c.Request.Context(), sessionFrom(c))
	cartResult(c, res, res.Cart)
}

func (h *Handler) ApplyPromo(c *gin.Context) {
	var req models.ApplyPromoRequest
	if !bindJSON(c, &req) {
		return
	}
	res := h.carts.ApplyPromo(c.Request.Context(), sessionFrom(c), req.Code)
	cartResult(c, res, res.Cart)
}

func (h *Handler) RemovePromo(c *gin.Context) {
	res := h.carts.RemovePromo(c.Request.Context(), sessionFrom(c))
	cartResult(c, res, res.Cart)
}

// MergeCart moves the guest lines of the session into the signed in account.
func (h *Handler) MergeCart(c *gin.Context) {
	res := h.carts.MergeGuestCart(c.Request.Context(), sessionFrom(c))
	cartResult(c, res.Result, res)
}
