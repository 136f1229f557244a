package client

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/propertyhub/api/internal/config"
)

// Reconstructor turns photos or a walkthrough video into a 3D model
type Reconstructor interface {
	Reconstruct(ctx context.Context, req *ReconstructRequest) (*ReconstructResult, error)
}

// ReconstructRequest is the body sent to the reconstruction service
type ReconstructRequest struct {
	ListingID    string   `json:"listingId"`
	SourceAssets []string `json:"sourceAssets"`
	IsVideo      bool     `json:"isVideo"`
}

// ReconstructResult carries the produced model location
type ReconstructResult struct {
	ModelURL string `json:"modelUrl"`
}

// ReconstructionClient implements Reconstructor over HTTP
type ReconstructionClient struct {
	api jsonAPI
}

var _ Reconstructor = (*ReconstructionClient)(nil)

// NewReconstructionClient creates a client whose calls are bounded by the
// configured timeout.
func NewReconstructionClient(cfg *config.ReconstructionConfig, logger *slog.Logger) *ReconstructionClient {
	return &ReconstructionClient{
		api: jsonAPI{
			service: "reconstruction",
			httpClient: &http.Client{
				Timeout: time.Duration(cfg.Timeout) * time.Second,
			},
			baseURL: cfg.URL,
			logger:  logger,
		},
	}
}

// Reconstruct blocks until the service answers or the timeout expires
func (c *ReconstructionClient) Reconstruct(ctx context.Context, req *ReconstructRequest) (*ReconstructResult, error) {
	var result ReconstructResult
	if err := c.api.post(ctx, "", req, &result); err != nil {
		return nil, err
	}
	if result.ModelURL == "" {
		return nil, &DecodeError{Service: c.api.service, Err: errors.New("empty modelUrl")}
	}
	return &result, nil
}

// IsConfigured returns true if the client has valid configuration
func (c *ReconstructionClient) IsConfigured() bool {
	return c.api.baseURL != ""
}
