package router

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"julianmorley.ca/con-plar/storefront/pkg/global"
	"julianmorley.ca/con-plar/storefront/pkg/models"
	"julianmorley.ca/con-plar/storefront/pkg/pricing"
)

// PlanQuote is a plan with the storefront's own breakdown for a price.
type PlanQuote struct {
	Plan      models.EMIPlan    `json:"plan"`
	Breakdown pricing.Breakdown `json:"breakdown"`
}

func (h *Handler) quotePlans(plans []models.EMIPlan, price float64) []PlanQuote {
	quotes := make([]PlanQuote, 0, len(plans))
	for i := range plans {
		if !plans[i].Active() {
			continue
		}
		b, err := pricing.PlanBreakdown(&plans[i], price, h.base)
		if err != nil {
			h.logger.Warn("skipping emi plan", zap.Int64("plan_id", plans[i].ID), zap.Error(err))
			continue
		}
		quotes = append(quotes, PlanQuote{Plan: plans[i], Breakdown: b.Rounded()})
	}
	return quotes
}

// GetProductEMIPlans lists the active plans of a product priced at its current
// price.
func (h *Handler) GetProductEMIPlans(c *gin.Context) {
	ctx := c.Request.Context()
	raw, _, err := h.products.Product(ctx, c.Param("slug"))
	if err != nil {
		h.upstreamError(c, "Failed to fetch product", err)
		return
	}
	var product models.Product
	if err := json.Unmarshal(raw, &product); err != nil {
		h.logger.Error("failed to decode product", zap.String("slug", c.Param("slug")), zap.Error(err))
		c.JSON(http.StatusBadGateway, global.ErrorResponse("Failed to fetch product", nil))
		return
	}

	plans, err := h.catalog.EMIPlans(ctx, product.ID)
	if err != nil {
		h.upstreamError(c, "Failed to get emi plans", err)
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(gin.H{
		"product_id": product.ID,
		"price":      models.ResolvePrice(&product, nil),
		"plans":      h.quotePlans(plans, models.ResolvePrice(&product, nil)),
	}))
}

func (h *Handler) ListBanks(c *gin.Context) {
	banks, err := h.catalog.AvailableBanks(c.Request.Context())
	if err != nil {
		h.upstreamError(c, "Failed to get banks", err)
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(banks))
}

// CalculateEMI asks the backend for a plan's figures. When the backend is
// unavailable and the caller names the product, the plan is priced locally.
func (h *Handler) CalculateEMI(c *gin.Context) {
	planID, err := strconv.ParseInt(c.Query("plan_id"), 10, 64)
	if err != nil || planID <= 0 {
		c.JSON(http.StatusBadRequest, global.ErrorResponse("Invalid plan id", []global.ValidationError{
			{Field: "plan_id", Message: "plan_id must be a positive integer", Code: "invalid_format"},
		}))
		return
	}
	price, err := strconv.ParseFloat(c.Query("price"), 64)
	if err != nil || price <= 0 {
		c.JSON(http.StatusBadRequest, global.ErrorResponse("Invalid price", []global.ValidationError{
			{Field: "price", Message: "price must be a positive number", Code: "invalid_format"},
		}))
		return
	}

	ctx := c.Request.Context()
	calc, err := h.catalog.CalculateEMI(ctx, planID, price, c.Query("bank_code"))
	if err == nil {
		c.JSON(http.StatusOK, global.SuccessResponse(gin.H{"source": "backend", "calculation": calc}))
		return
	}

	productID, perr := strconv.ParseInt(c.Query("product_id"), 10, 64)
	if perr != nil || productID <= 0 {
		h.upstreamError(c, "Failed to calculate emi", err)
		return
	}
	h.logger.Warn("emi calculation unavailable, pricing locally", zap.Int64("plan_id", planID), zap.Error(err))

	plans, perr := h.catalog.EMIPlans(ctx, productID)
	if perr != nil {
		h.upstreamError(c, "Failed to calculate emi", perr)
		return
	}
	for i := range plans {
		if plans[i].ID != planID {
			continue
		}
		b, berr := pricing.PlanBreakdown(&plans[i], price, h.base)
		if berr != nil {
			break
		}
		c.JSON(http.StatusOK, global.SuccessResponse(gin.H{"source": "local", "breakdown": b.Rounded()}))
		return
	}
	c.JSON(http.StatusNotFound, global.ErrorResponse("EMI plan not found", []global.ValidationError{
		{Field: "plan_id", Message: "no such plan for this product", Code: "not_found"},
	}))
}

// PreviewRequest prices an arbitrary plan without a backend round trip.
type PreviewRequest struct {
	PlanType           models.PlanType `json:"plan_type" binding:"required,oneof=card_emi cardless_emi"`
	Price              float64         `json:"price" binding:"gt=0"`
	DownPaymentPercent float64         `json:"down_payment_percent" binding:"gte=0,lte=100"`
	InterestPercent    float64         `json:"interest_percent" binding:"gte=0"`
	TenureMonths       int             `json:"tenure_months" binding:"required,min=1"`
}

func (h *Handler) PreviewEMI(c *gin.Context) {
	var req PreviewRequest
	if !bindJSON(c, &req) {
		return
	}
	in := pricing.EMIInput{
		Price:              req.Price,
		DownPaymentPercent: req.DownPaymentPercent,
		InterestPercent:    req.InterestPercent,
		TenureMonths:       req.TenureMonths,
	}
	var b pricing.Breakdown
	if req.PlanType == models.PlanTypeCard {
		b = pricing.ComputeCardEMI(in)
	} else {
		b = pricing.ComputeCardlessEMI(in, h.base)
	}
	b = b.Rounded()
	c.JSON(http.StatusOK, global.SuccessResponse(gin.H{
		"breakdown":           b,
		"monthly_installment": pricing.FormatTaka(b.MonthlyInstallment),
		"total_payable":       pricing.FormatTaka(b.TotalPayable),
	}))
}
