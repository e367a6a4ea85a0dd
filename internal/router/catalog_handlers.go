package router

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"julianmorley.ca/con-plar/storefront/pkg/global"
)

// ListProducts passes the storefront's filters through to the backend listing.
func (h *Handler) ListProducts(c *gin.Context) {
	raw, err := h.catalog.ListProductsRaw(c.Request.Context(), c.Request.URL.Query())
	if err != nil {
		h.upstreamError(c, "Failed to get products", err)
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(raw))
}

// GetProduct serves one product by slug or id through the product cache.
func (h *Handler) GetProduct(c *gin.Context) {
	ref := strings.TrimSpace(c.Param("slug"))
	if ref == "" || len(ref) > 200 {
		c.JSON(http.StatusBadRequest, global.ErrorResponse("Invalid product reference", []global.ValidationError{
			{Field: "slug", Message: "slug must be between 1 and 200 characters", Code: "invalid_format"},
		}))
		return
	}

	raw, hit, err := h.products.Product(c.Request.Context(), ref)
	if err != nil {
		h.upstreamError(c, "Failed to fetch product", err)
		return
	}
	if hit {
		c.Header("X-Cache", "HIT")
	} else {
		c.Header("X-Cache", "MISS")
	}
	c.JSON(http.StatusOK, global.SuccessResponse(raw))
}

func (h *Handler) ListCategories(c *gin.Context) {
	raw, err := h.catalog.ListCategoriesRaw(c.Request.Context())
	if err != nil {
		h.upstreamError(c, "Failed to get categories", err)
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(raw))
}

func (h *Handler) ListBrands(c *gin.Context) {
	raw, err := h.catalog.ListBrandsRaw(c.Request.Context())
	if err != nil {
		h.upstreamError(c, "Failed to get brands", err)
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(raw))
}

func (h *Handler) ListPromotions(c *gin.Context) {
	promotions, err := h.catalog.ListPromotions(c.Request.Context())
	if err != nil {
		h.upstreamError(c, "Failed to get promotions", err)
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(promotions))
}
