package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/propertyhub/api/internal/middleware"
	"github.com/propertyhub/api/internal/model"
	"github.com/propertyhub/api/internal/service"
	"github.com/propertyhub/api/pkg/response"
)

type PromotionHandler struct {
	promotions *service.PromotionService
	webhooks   *service.WebhookService
	validator  *validator.Validate
}

func NewPromotionHandler(promotions *service.PromotionService, webhooks *service.WebhookService, v *validator.Validate) *PromotionHandler {
	return &PromotionHandler{
		promotions: promotions,
		webhooks:   webhooks,
		validator:  v,
	}
}

// Promote handles POST /api/promote
func (h *PromotionHandler) Promote(c *fiber.Ctx) error {
	var req model.PromoteRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if req.Email == "" {
		req.Email = middleware.GetSellerEmail(c)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.promotions.Promote(c.Context(), middleware.GetSellerID(c), &req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidListings) {
			return response.ValidationError(c, "Invalid listing IDs", nil)
		}
		return response.ServiceError(c, "Server error")
	}

	return response.OK(c, result)
}

// Webhook handles POST /api/webhook/flutterwave. The body is deliberately
// empty: the provider only needs the status code.
func (h *PromotionHandler) Webhook(c *fiber.Ctx) error {
	out := h.webhooks.HandleNotification(c.Context(), c.Get("verif-hash"), c.Body())
	return c.SendStatus(out.HTTPStatus())
}
