package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/propertyhub/api/internal/auth"
	"github.com/propertyhub/api/pkg/response"
)

const (
	localSellerID = "sellerId"
	localEmail    = "email"
	localIsAdmin  = "isAdmin"
)

// AuthMiddleware authenticates sellers from a bearer token
type AuthMiddleware struct {
	verifier auth.TokenVerifier
}

func NewAuthMiddleware(verifier auth.TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier}
}

// BearerToken extracts the token from an Authorization header value
func BearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// Authenticate validates the Authorization header and stores the seller
// identity in the request locals.
func (m *AuthMiddleware) Authenticate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return response.Unauthorized(c, "No token provided")
		}

		token, ok := BearerToken(authHeader)
		if !ok {
			return response.Unauthorized(c, "Invalid authorization header format")
		}

		id, err := m.verifier.Validate(token)
		if err != nil {
			return response.Unauthorized(c, "Invalid or expired token")
		}

		setIdentity(c, id)
		return c.Next()
	}
}

// RequireAdmin rejects authenticated sellers without the admin flag
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !IsAdmin(c) {
			return response.Forbidden(c, "Admin access required")
		}
		return c.Next()
	}
}

func setIdentity(c *fiber.Ctx, id *auth.Identity) {
	c.Locals(localSellerID, id.SellerID)
	c.Locals(localEmail, id.Email)
	c.Locals(localIsAdmin, id.IsAdmin)
}

// GetSellerID extracts the authenticated seller id from context
func GetSellerID(c *fiber.Ctx) string {
	if id, ok := c.Locals(localSellerID).(string); ok {
		return id
	}
	return ""
}

// GetSellerEmail extracts the seller email from context
func GetSellerEmail(c *fiber.Ctx) string {
	if email, ok := c.Locals(localEmail).(string); ok {
		return email
	}
	return ""
}

// IsAdmin reports whether the authenticated seller is an admin
func IsAdmin(c *fiber.Ctx) bool {
	admin, _ := c.Locals(localIsAdmin).(bool)
	return admin
}
