package router

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"julianmorley.ca/con-plar/storefront/pkg/global"
	"julianmorley.ca/con-plar/storefront/pkg/mongo"
)

// ListOrders returns the archived confirmations of the session, newest first.
func (h *Handler) ListOrders(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, global.ErrorResponse("Invalid limit", []global.ValidationError{
				{Field: "limit", Message: "limit must be a positive integer", Code: "invalid_format"},
			}))
			return
		}
		limit = n
	}

	sess := sessionFrom(c)
	orders, err := h.orders.ListConfirmations(c.Request.Context(), mongo.OwnerOf(sess), limit)
	if err != nil {
		h.logger.Error("failed to list orders", zap.String("session_id", sess.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, global.ErrorResponse("Failed to get orders", nil))
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(orders))
}

func (h *Handler) GetOrder(c *gin.Context) {
	sess := sessionFrom(c)
	orderID := c.Param("orderId")
	confirmation, err := h.orders.GetConfirmation(c.Request.Context(), orderID, mongo.OwnerOf(sess))
	if errors.Is(err, mongo.ErrConfirmationNotFound) {
		c.JSON(http.StatusNotFound, global.ErrorResponse("Order not found", []global.ValidationError{
			{Field: "orderId", Message: "No order exists with this id for the session", Code: "not_found"},
		}))
		return
	}
	if err != nil {
		h.logger.Error("failed to get order", zap.String("order_id", orderID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, global.ErrorResponse("Failed to get order", nil))
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(confirmation))
}

// GetOrdersSummary aggregates the session's orders per payment method.
func (h *Handler) GetOrdersSummary(c *gin.Context) {
	sess := sessionFrom(c)
	summary, err := h.orders.PaymentMethodBreakdown(c.Request.Context(), mongo.OwnerOf(sess))
	if err != nil {
		h.logger.Error("failed to summarize orders", zap.String("session_id", sess.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, global.ErrorResponse("Failed to summarize orders", nil))
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(summary))
}
