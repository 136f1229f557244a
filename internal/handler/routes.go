package handler

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/propertyhub/api/internal/middleware"
	ws "github.com/propertyhub/api/internal/websocket"
)

// Routes bundles everything RegisterRoutes mounts. Nil middleware is skipped;
// nil AuthVerify and Hub leave their endpoints unmounted.
type Routes struct {
	Authenticate fiber.Handler
	APILimit     fiber.Handler
	UploadLimit  fiber.Handler

	Listings   *ListingHandler
	Promotions *PromotionHandler
	Uploads    *UploadHandler
	Health     *HealthHandler
	AuthVerify *AuthHandler
	Hub        *ws.Hub
}

func passthrough(c *fiber.Ctx) error { return c.Next() }

func orNext(h fiber.Handler) fiber.Handler {
	if h == nil {
		return passthrough
	}
	return h
}

// RegisterRoutes mounts the HTTP and WebSocket surface on app
func RegisterRoutes(app *fiber.App, r Routes) {
	auth := orNext(r.Authenticate)

	app.Get("/health", r.Health.Health)
	if r.AuthVerify != nil {
		app.Get("/auth/verify", r.AuthVerify.Verify)
	}

	api := app.Group("/api", orNext(r.APILimit))

	// Payment provider callback; authenticated by its own signature header
	api.Post("/webhook/flutterwave", r.Promotions.Webhook)

	api.Get("/listings/:id", r.Listings.Get)
	api.Post("/listings", auth, r.Listings.Create)
	api.Post("/listings/:id/retry-3d", auth, r.Listings.RetryModel)
	api.Delete("/listings/:id", auth, r.Listings.Delete)
	api.Get("/seller/listings", auth, r.Listings.ListMine)

	api.Post("/promote", auth, r.Promotions.Promote)

	api.Post("/uploads/asset", auth, orNext(r.UploadLimit), r.Uploads.Asset)
	api.Delete("/uploads/asset", auth, r.Uploads.DeleteAsset)

	api.Delete("/admin/listings/:id", auth, middleware.RequireAdmin(), r.Listings.AdminDelete)

	if r.Hub == nil {
		return
	}
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/listings/:id", websocket.New(func(c *websocket.Conn) {
		r.Hub.HandleConnection(c, c.Params("id"))
	}))
}
