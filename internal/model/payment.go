package model

import "time"

// PaymentIntent records an expected payment for promoting listings
type PaymentIntent struct {
	TxRef       string        `json:"txRef"`
	SellerID    string        `json:"sellerId"`
	Amount      int64         `json:"amount"`
	ListingIDs  []string      `json:"listingIds"`
	Status      PaymentStatus `json:"status"`
	CreatedAt   time.Time     `json:"createdAt"`
	CompletedAt *time.Time    `json:"completedAt,omitempty"`
}

// PromoteRequest represents the request to promote a set of listings
type PromoteRequest struct {
	ListingIDs []string `json:"listingIds" validate:"required,min=1,max=50,unique,dive,uuid"`
	Email      string   `json:"email" validate:"omitempty,email"`
}

// PromoteResponse is handed to the client to start checkout with the provider
type PromoteResponse struct {
	TxRef  string `json:"txRef"`
	Amount int64  `json:"amount"`
	Email  string `json:"email,omitempty"`
}

// PaymentWebhook is the body the payment provider posts on a charge event
type PaymentWebhook struct {
	Status        string `json:"status"`
	TxRef         string `json:"tx_ref"`
	TransactionID string `json:"transaction_id"`
}
