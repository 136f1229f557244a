package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/propertyhub/api/internal/auth"
	"github.com/propertyhub/api/internal/middleware"
)

// AuthHandler answers the gateway's ForwardAuth checks
type AuthHandler struct {
	verifier auth.TokenVerifier
}

func NewAuthHandler(verifier auth.TokenVerifier) *AuthHandler {
	return &AuthHandler{verifier: verifier}
}

// Verify handles GET /auth/verify. It returns 200 with X-Seller-* headers on
// success and 401 otherwise.
func (h *AuthHandler) Verify(c *fiber.Ctx) error {
	token, ok := middleware.BearerToken(c.Get(fiber.HeaderAuthorization))
	if !ok {
		return c.SendStatus(fiber.StatusUnauthorized)
	}

	id, err := h.verifier.Validate(token)
	if err != nil {
		return c.SendStatus(fiber.StatusUnauthorized)
	}

	c.Set(middleware.HeaderSellerID, id.SellerID)
	c.Set(middleware.HeaderSellerEmail, id.Email)
	c.Set(middleware.HeaderSellerAdmin, strconv.FormatBool(id.IsAdmin))
	return c.SendStatus(fiber.StatusOK)
}
