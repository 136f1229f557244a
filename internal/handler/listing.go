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

type ListingHandler struct {
	service   *service.ListingService
	validator *validator.Validate
}

func NewListingHandler(svc *service.ListingService, v *validator.Validate) *ListingHandler {
	return &ListingHandler{
		service:   svc,
		validator: v,
	}
}

// listingError maps service errors shared by the listing endpoints
func listingError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrListingNotFound):
		return response.NotFound(c, "Listing not found")
	case errors.Is(err, service.ErrNoModelInput):
		return response.ValidationError(c, err.Error(), nil)
	case errors.Is(err, service.ErrRetryNotAllowed):
		return response.InvalidState(c, err.Error())
	case errors.Is(err, service.ErrQueueUnavailable):
		return response.Unavailable(c, err.Error())
	default:
		return response.ServiceError(c, "Server error")
	}
}

// Create handles POST /api/listings
func (h *ListingHandler) Create(c *fiber.Ctx) error {
	var req model.CreateListingRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	listing, err := h.service.Create(c.Context(), middleware.GetSellerID(c), &req)
	if err != nil {
		return listingError(c, err)
	}

	return response.Created(c, listing)
}

// RetryModel handles POST /api/listings/:id/retry-3d
func (h *ListingHandler) RetryModel(c *fiber.Ctx) error {
	var req model.RetryModelRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.service.RetryModel(c.Context(), middleware.GetSellerID(c), c.Params("id"), &req)
	if err != nil {
		return listingError(c, err)
	}

	return response.Accepted(c, result)
}

// Get handles GET /api/listings/:id
func (h *ListingHandler) Get(c *fiber.Ctx) error {
	listing, err := h.service.Get(c.Context(), c.Params("id"))
	if err != nil {
		return listingError(c, err)
	}

	return response.OK(c, listing)
}

// ListMine handles GET /api/seller/listings
func (h *ListingHandler) ListMine(c *fiber.Ctx) error {
	listings, err := h.service.ListBySeller(c.Context(), middleware.GetSellerID(c))
	if err != nil {
		return listingError(c, err)
	}

	return response.OK(c, listings)
}

// Delete handles DELETE /api/listings/:id
func (h *ListingHandler) Delete(c *fiber.Ctx) error {
	if err := h.service.Delete(c.Context(), middleware.GetSellerID(c), c.Params("id")); err != nil {
		return listingError(c, err)
	}

	return response.NoContent(c)
}

// AdminDelete handles DELETE /api/admin/listings/:id
func (h *ListingHandler) AdminDelete(c *fiber.Ctx) error {
	if err := h.service.AdminDelete(c.Context(), c.Params("id")); err != nil {
		return listingError(c, err)
	}

	return response.NoContent(c)
}
