package e2e

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/propertyhub/api/internal/auth"
	"github.com/propertyhub/api/internal/client"
	"github.com/propertyhub/api/internal/config"
	"github.com/propertyhub/api/internal/handler"
	"github.com/propertyhub/api/internal/middleware"
	"github.com/propertyhub/api/internal/queue"
	"github.com/propertyhub/api/internal/service"
	"github.com/propertyhub/api/internal/store/memstore"
	"github.com/propertyhub/api/internal/testutil"
	ws "github.com/propertyhub/api/internal/websocket"
)

const (
	testJWTSecret   = "test-secret-for-e2e"
	testQueue       = "model3d-e2e"
	testWebhookHash = "e2e-hash"
)

// testApp holds the wired application and the pieces tests inspect directly
type testApp struct {
	app       *fiber.App
	store     *memstore.Store
	queue     *queue.Client
	hub       *ws.Hub
	inspector *asynq.Inspector
	tokens    *auth.HMACVerifier
	logger    *slog.Logger
}

// setupApp wires the app the way main does, against the test Redis, with an
// in-memory store and no external payment or storage providers.
func setupApp(t *testing.T, apiLimit int) *testApp {
	t.Helper()

	redisClient := testutil.SetupTestRedis(t)
	redisOpt := asynq.RedisClientOpt{Addr: testutil.RedisAddr(), DB: testutil.RedisDB()}

	asynqClient := asynq.NewClient(redisOpt)
	t.Cleanup(func() { asynqClient.Close() })
	inspector := asynq.NewInspector(redisOpt)
	t.Cleanup(func() { inspector.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st := memstore.New()
	q := queue.NewClient(asynqClient, testQueue, 5*time.Minute, logger)

	hub := ws.NewHub(logger)
	go hub.Run()
	t.Cleanup(hub.Stop)

	tokens := auth.NewHMACVerifier(testJWTSecret)
	validate := validator.New()

	listings := service.NewListingService(st, q, hub, logger)
	promotions := service.NewPromotionService(st, 50000, logger)
	verifier := client.NewFlutterwaveClient(&config.FlutterwaveConfig{
		BaseURL: "http://127.0.0.1:1",
		Timeout: 1,
	}, logger)
	webhooks := service.NewWebhookService(st, verifier, testWebhookHash, 30*24*time.Hour, logger)
	uploads := service.NewUploadService(nil, logger)

	rateLimiter := middleware.NewRateLimiter(redisClient, logger)

	app := fiber.New(fiber.Config{ErrorHandler: handler.ErrorHandler})
	handler.RegisterRoutes(app, handler.Routes{
		Authenticate: middleware.NewAuthMiddleware(tokens).Authenticate(),
		APILimit:     rateLimiter.APILimit(apiLimit, time.Minute),
		UploadLimit:  rateLimiter.UploadLimit(10000),
		Listings:     handler.NewListingHandler(listings, validate),
		Promotions:   handler.NewPromotionHandler(promotions, webhooks, validate),
		Uploads:      handler.NewUploadHandler(uploads),
		Health:       handler.NewHealthHandler(nil, nil),
		AuthVerify:   handler.NewAuthHandler(tokens),
		Hub:          hub,
	})

	return &testApp{
		app:       app,
		store:     st,
		queue:     q,
		hub:       hub,
		inspector: inspector,
		tokens:    tokens,
		logger:    logger,
	}
}

// generateToken issues a session token for sellerID
func (a *testApp) generateToken(t *testing.T, sellerID string) string {
	t.Helper()
	token, err := a.tokens.IssueToken(sellerID, false, time.Hour)
	require.NoError(t, err)
	return token
}

// doRequest performs a JSON request, authenticated when sellerID is set
func (a *testApp) doRequest(t *testing.T, method, path string, body interface{}, sellerID string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if sellerID != "" {
		req.Header.Set("Authorization", "Bearer "+a.generateToken(t, sellerID))
	}

	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

// parseJSON decodes the response body into v
func parseJSON(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(b, v), "body: %s", b)
}

// postWebhook delivers a successful-charge notification for txRef
func (a *testApp) postWebhook(t *testing.T, txRef string) *http.Response {
	t.Helper()
	raw, err := json.Marshal(map[string]string{
		"status":         "successful",
		"tx_ref":         txRef,
		"transaction_id": "551234",
	})
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, "/api/webhook/flutterwave", bytes.NewReader(raw))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("verif-hash", testWebhookHash)

	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}
