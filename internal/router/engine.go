package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"julianmorley.ca/con-plar/storefront/pkg/global"
)

// NewEngine builds the gin engine with logging, recovery and CORS.
func NewEngine(cfg global.Config, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch {
	case cfg.IsProduction():
		gin.SetMode(gin.ReleaseMode)
	case cfg.Env == "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(RequestLogger(logger), gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With", SessionHeader},
		ExposeHeaders:    []string{"Content-Length", SessionHeader, "X-Cache", CartModeHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	return router
}

func InitializeRoutes(router *gin.Engine, h *Handler) {
	api := router.Group("/api")
	{
		api.GET("/health", h.HealthCheck)

		session := api.Group("")
		session.Use(SessionMiddleware(h.tokenSecret, h.logger))

		products := session.Group("/products")
		{
			products.GET("", h.ListProducts)
			products.GET("/:slug", h.GetProduct)
			products.GET("/:slug/emi-plans", h.GetProductEMIPlans)
		}

		session.GET("/categories", h.ListCategories)
		session.GET("/brands", h.ListBrands)
		session.GET("/promotions", h.ListPromotions)

		emi := session.Group("/emi")
		{
			emi.GET("/banks", h.ListBanks)
			emi.GET("/calculate", h.CalculateEMI)
			emi.POST("/preview", h.PreviewEMI)
		}

		cart := session.Group("/cart")
		{
			cart.GET("", h.GetCart)
			cart.DELETE("", h.ClearCart)
			cart.GET("/count", h.GetCartCount)
			cart.POST("/items", h.AddToCart)
			cart.PUT("/items/:itemId", h.UpdateCartItem)
			cart.DELETE("/items/:itemId", h.RemoveFromCart)
			cart.POST("/promo", h.ApplyPromo)
			cart.DELETE("/promo", h.RemovePromo)
			cart.POST("/merge", h.MergeCart)
		}

		checkout := session.Group("/checkout")
		{
			checkout.GET("", h.GetCheckout)
			checkout.DELETE("", h.ResetCheckout)
			checkout.GET("/shipping-methods", h.ListShippingMethods)
			checkout.PUT("/shipping-method", h.SelectShippingMethod)
			checkout.PUT("/address", h.SetAddress)
			checkout.PUT("/payment-method", h.SelectPaymentMethod)
			checkout.POST("/step", h.GoToStep)
			checkout.GET("/shipping", h.GetShippingDetails)
			checkout.POST("/place-order", h.PlaceOrder)
		}

		orders := session.Group("/orders")
		{
			orders.GET("", h.ListOrders)
			orders.GET("/summary", h.GetOrdersSummary)
			orders.GET("/:orderId", h.GetOrder)
		}
	}
}
