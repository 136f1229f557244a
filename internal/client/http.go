package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// APIError is a non-2xx answer from a remote service
type APIError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Service, e.StatusCode, e.Body)
}

// Temporary reports whether the same request may succeed later
func (e *APIError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// IsTemporary reports whether err is a transport failure or a retryable
// API error. Decode failures and 4xx answers are permanent.
func IsTemporary(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}
	var decodeErr *DecodeError
	return !errors.As(err, &decodeErr)
}

// DecodeError is a 2xx answer whose body could not be parsed
type DecodeError struct {
	Service string
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: failed to unmarshal response: %v", e.Service, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// jsonAPI is the request plumbing shared by the outbound JSON clients
type jsonAPI struct {
	service    string
	httpClient *http.Client
	baseURL    string
	bearer     string
	logger     *slog.Logger
}

func (a *jsonAPI) post(ctx context.Context, endpoint string, body interface{}, result interface{}) error {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	return a.doRequest(req, result)
}

func (a *jsonAPI) get(ctx context.Context, endpoint string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	return a.doRequest(req, result)
}

func (a *jsonAPI) doRequest(req *http.Request, result interface{}) error {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if a.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+a.bearer)
	}

	log := a.logger.With(
		slog.String("service", a.service),
		slog.String("method", req.Method),
		slog.String("url", req.URL.String()),
	)
	log.Debug("outbound request")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		log.Warn("request failed", slog.Any("error", err))
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		log.Warn("failed to read response", slog.Any("error", err))
		return fmt.Errorf("failed to read response: %w", err)
	}

	log.Debug("outbound response", slog.Int("status", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Service: a.service, StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		log.Warn("unmarshal error", slog.Any("error", err), slog.String("body", string(respBody)))
		return &DecodeError{Service: a.service, Err: err}
	}

	return nil
}
