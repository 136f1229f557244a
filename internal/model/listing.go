package model

import "time"

// Listing is a property record with a 3D model lifecycle
type Listing struct {
	ID                string        `json:"id"`
	SellerID          string        `json:"sellerId"`
	PropertyType      PropertyType  `json:"propertyType"`
	Title             string        `json:"title"`
	Description       string        `json:"description,omitempty"`
	Price             int64         `json:"price"`
	State             string        `json:"state"`
	City              string        `json:"city"`
	Location          string        `json:"location,omitempty"`
	Pictures          []string      `json:"pictures"`
	Model3D           *string       `json:"model3d,omitempty"`
	Model3DStatus     Model3DStatus `json:"model3dStatus"`
	Model3DRetryCount int           `json:"model3dRetryCount"`
	PromotionExpiry   *time.Time    `json:"promotionExpiry,omitempty"`
	CreatedAt         time.Time     `json:"createdAt"`
	UpdatedAt         time.Time     `json:"updatedAt"`
}

// IsPromoted reports whether the listing has an unexpired promotion at t
func (l *Listing) IsPromoted(t time.Time) bool {
	return l.PromotionExpiry != nil && l.PromotionExpiry.After(t)
}

// CreateListingRequest represents the request body for a new listing.
// Exactly one of Bypass3D, Model3DInput or Model3DVideo selects the 3D mode.
type CreateListingRequest struct {
	PropertyType PropertyType `json:"propertyType" validate:"required,oneof=apartment house land commercial"`
	Title        string       `json:"title" validate:"required,max=200"`
	Description  string       `json:"description" validate:"max=5000"`
	Price        int64        `json:"price" validate:"required,gt=0"`
	State        string       `json:"state" validate:"required"`
	City         string       `json:"city" validate:"required"`
	Location     string       `json:"location" validate:"max=500"`
	Pictures     []string     `json:"pictures" validate:"omitempty,dive,url"`
	Bypass3D     bool         `json:"bypass3d"`
	Model3DInput []string     `json:"model3dInput" validate:"omitempty,max=100,dive,url"`
	Model3DVideo string       `json:"model3dVideo" validate:"omitempty,url"`
}

// RetryModelRequest supplies a fresh asset set for a failed listing
type RetryModelRequest struct {
	Model3DInput []string `json:"model3dInput" validate:"omitempty,max=100,dive,url"`
	Model3DVideo string   `json:"model3dVideo" validate:"omitempty,url"`
}

// RetryModelResponse acknowledges that processing was queued
type RetryModelResponse struct {
	ListingID     string        `json:"listingId"`
	Model3DStatus Model3DStatus `json:"model3dStatus"`
	Message       string        `json:"message"`
}
