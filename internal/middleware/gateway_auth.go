package middleware

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/propertyhub/api/internal/auth"
	"github.com/propertyhub/api/pkg/response"
)

// Headers set by the gateway after ForwardAuth succeeds
const (
	HeaderSellerID    = "X-Seller-Id"
	HeaderSellerEmail = "X-Seller-Email"
	HeaderSellerAdmin = "X-Seller-Admin"
)

// GatewayAuthMiddleware reads the seller identity from X-Seller-* headers
// set by the gateway's ForwardAuth and populates Fiber context locals.
func GatewayAuthMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		sellerID := c.Get(HeaderSellerID)
		if sellerID == "" {
			return response.Unauthorized(c, "Missing seller identity headers")
		}

		admin, _ := strconv.ParseBool(c.Get(HeaderSellerAdmin))
		setIdentity(c, &auth.Identity{
			SellerID: sellerID,
			Email:    c.Get(HeaderSellerEmail),
			IsAdmin:  admin,
		})
		return c.Next()
	}
}
