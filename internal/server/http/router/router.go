package router

import (
	"log/slog"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/polkiloo/eshop/internal/server/http/handlers"
	"github.com/polkiloo/eshop/internal/server/http/middleware"
)

// Setup configures gin router with handlers and middleware.
func Setup(facade handlers.CheckoutFacade, logger *slog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogger(logger))
	engine.Use(middleware.DecompressRequest())
	engine.Use(gzip.Gzip(gzip.DefaultCompression))

	checkoutHandler := handlers.NewCheckoutHandler(facade)

	api := engine.Group("/api")

	checkout := api.Group("/checkout")
	checkout.Use(middleware.IdentityRequired())
	checkout.POST("", checkoutHandler.Initialize)

	// Provider callbacks carry the session id as their capability; they
	// arrive without the identity header.
	api.POST("/checkout/complete", checkoutHandler.Complete)
	api.POST("/checkout/cancel", checkoutHandler.Cancel)

	return engine
}
