package routes

import (
	"net/http"

	"toolhaus/admin"
	"toolhaus/auth"
	"toolhaus/cart"
	"toolhaus/catalog"
	"toolhaus/middleware"
	"toolhaus/orders"
	"toolhaus/ratelim"
	"toolhaus/stockfeed"
	"toolhaus/wishlist"

	"github.com/julienschmidt/httprouter"
)

func AddStaticRoutes(router *httprouter.Router) {
	router.ServeFiles("/static/productpic/*filepath", http.Dir("static/productpic"))
}

func AddAuthRoutes(router *httprouter.Router) {
	router.POST("/api/auth/register", ratelim.RateLimit(auth.Register))
	router.POST("/api/auth/login", ratelim.RateLimit(auth.Login))
	router.POST("/api/auth/logout", middleware.Authenticate(auth.LogoutUser))
	router.POST("/api/auth/token/refresh", ratelim.RateLimit(auth.RefreshToken))
}

func AddCatalogRoutes(router *httprouter.Router) {
	router.GET("/api/products", ratelim.RateLimit(catalog.GetProducts))
	router.GET("/api/products/:productid", ratelim.RateLimit(catalog.GetProduct))
	router.GET("/api/categories", ratelim.RateLimit(catalog.GetCategories))

	router.POST("/api/admin/products", middleware.Authenticate(middleware.RequireRole("admin", catalog.CreateProduct)))
	router.PUT("/api/admin/products/:productid", middleware.Authenticate(middleware.RequireRole("admin", catalog.EditProduct)))
	router.DELETE("/api/admin/products/:productid", middleware.Authenticate(middleware.RequireRole("admin", catalog.DeleteProduct)))
	router.POST("/api/admin/products/:productid/replenish", middleware.Authenticate(middleware.RequireRole("admin", catalog.ReplenishStock)))
}

func AddCartRoutes(router *httprouter.Router) {
	router.GET("/api/cart", middleware.Authenticate(cart.GetCart))
	router.POST("/api/cart", ratelim.RateLimit(middleware.Authenticate(cart.AddToCart)))
	router.PUT("/api/cart/:productid", middleware.Authenticate(cart.SetQuantity))
	router.DELETE("/api/cart/:productid", middleware.Authenticate(cart.RemoveItem))
	router.DELETE("/api/cart", middleware.Authenticate(cart.ClearCart))
	router.POST("/api/cart/coupon", ratelim.RateLimit(middleware.Authenticate(cart.ApplyCoupon)))
}

func AddWishlistRoutes(router *httprouter.Router) {
	router.GET("/api/wishlist", middleware.Authenticate(wishlist.GetWishlist))
	router.POST("/api/wishlist", middleware.Authenticate(wishlist.AddToWishlist))
	router.DELETE("/api/wishlist/:productid", middleware.Authenticate(wishlist.RemoveFromWishlist))
	router.POST("/api/wishlist/:productid/move-to-cart", middleware.Authenticate(wishlist.MoveToCart))
}

func AddOrderRoutes(router *httprouter.Router, h *orders.Handler) {
	router.POST("/api/orders", ratelim.RateLimit(middleware.Authenticate(h.PlaceOrder)))
	router.GET("/api/orders", middleware.Authenticate(h.GetOrders))
	router.GET("/api/orders/:orderid", middleware.Authenticate(h.GetOrder))
	router.POST("/api/orders/:orderid/cancel", ratelim.RateLimit(middleware.Authenticate(h.CancelOrder)))
	router.GET("/api/orders/:orderid/invoice", middleware.Authenticate(h.InvoicePDF))
}

func AddAdminRoutes(router *httprouter.Router) {
	router.GET("/api/admin/orders", middleware.Authenticate(middleware.RequireRole("admin", admin.ListOrders)))
	router.PUT("/api/admin/orders/:orderid/status", middleware.Authenticate(middleware.RequireRole("admin", admin.AdvanceOrderStatus)))
}

func AddStockFeedRoutes(router *httprouter.Router, hub *stockfeed.Hub) {
	router.GET("/ws/stock", stockfeed.WebSocketHandler(hub))
	router.GET("/ws/stock/:productid", stockfeed.WebSocketHandler(hub))
}
