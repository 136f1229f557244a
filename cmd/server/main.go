package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/propertyhub/api/internal/auth"
	"github.com/propertyhub/api/internal/client"
	"github.com/propertyhub/api/internal/config"
	"github.com/propertyhub/api/internal/handler"
	"github.com/propertyhub/api/internal/middleware"
	"github.com/propertyhub/api/internal/queue"
	"github.com/propertyhub/api/internal/service"
	"github.com/propertyhub/api/internal/store"
	ws "github.com/propertyhub/api/internal/websocket"
	"github.com/propertyhub/api/internal/worker"
	"github.com/propertyhub/api/pkg/logger"
	"github.com/propertyhub/api/pkg/postgres"
)

const (
	uploadsPerHour  = 60
	bodyLimit       = 520 * 1024 * 1024 // largest video plus multipart overhead
	shutdownTimeout = 10 * time.Second
	// taskSlack covers the store writes around one reconstruction call
	taskSlack = 30 * time.Second
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	log := logger.New(logger.Config{
		Level:  cfg.Server.LogLevel,
		Format: cfg.Server.LogFormat,
	})
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Postgres
	pg, err := postgres.New(ctx, cfg.Database.URL, postgres.MaxPoolSize(cfg.Database.PoolMax))
	if err != nil {
		return err
	}
	defer pg.Close()

	st := store.NewPostgresStore(pg)
	if err := st.Migrate(ctx); err != nil {
		return err
	}

	// Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Warn("redis not available", slog.Any("error", err))
	}

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
	asynqClient := asynq.NewClient(redisOpt)
	defer asynqClient.Close()

	reconstructionTimeout := time.Duration(cfg.Reconstruction.Timeout) * time.Second
	jobQueue := queue.NewClient(asynqClient, cfg.Queue.Name, reconstructionTimeout+taskSlack, log)

	// WebSocket hub
	hub := ws.NewHub(log)
	go hub.Run()
	defer hub.Stop()

	// External clients
	reconstructionClient := client.NewReconstructionClient(&cfg.Reconstruction, log)
	flutterwaveClient := client.NewFlutterwaveClient(&cfg.Flutterwave, log)

	// R2 is optional; uploads fall back to placeholder URLs without it
	var storage client.AssetStorage
	var r2Client *client.R2Client
	if cfg.R2.AccessKeyID != "" && cfg.R2.SecretAccessKey != "" {
		r2Client, err = client.NewR2Client(ctx, &cfg.R2)
		if err != nil {
			log.Warn("R2 client not initialized", slog.Any("error", err))
		} else {
			storage = r2Client
		}
	} else {
		log.Info("R2 storage not configured, using placeholder URLs")
	}

	// Token verification: identity provider first, HMAC tokens second
	verifiers := auth.Chain{}
	if cfg.Zitadel.Issuer != "" {
		jwksVerifier, err := auth.NewJWKSVerifier(ctx, &cfg.Zitadel)
		if err != nil {
			log.Warn("JWKS verifier not initialized", slog.Any("error", err))
		} else {
			verifiers = append(verifiers, jwksVerifier)
		}
	}
	if cfg.JWT.Secret != "" {
		verifiers = append(verifiers, auth.NewHMACVerifier(cfg.JWT.Secret))
	}

	var authenticate fiber.Handler
	if cfg.Gateway.Enabled {
		log.Info("gateway mode enabled, using header-based auth")
		authenticate = middleware.GatewayAuthMiddleware()
	} else {
		authenticate = middleware.NewAuthMiddleware(verifiers).Authenticate()
	}
	rateLimiter := middleware.NewRateLimiter(redisClient, log)

	// Services
	listingService := service.NewListingService(st, jobQueue, hub, log)
	promotionService := service.NewPromotionService(st, cfg.Promotion.PricePerListing, log)
	webhookService := service.NewWebhookService(st, flutterwaveClient, cfg.Flutterwave.WebhookHash, cfg.Promotion.PromotionPeriod(), log)
	uploadService := service.NewUploadService(storage, log)

	validate := validator.New()

	app := fiber.New(fiber.Config{
		ErrorHandler: handler.ErrorHandler,
		BodyLimit:    bodyLimit,
	})

	// Global middleware
	app.Use(recover.New())
	logFormat := "[${time}] ${status} - ${latency} ${method} ${path}\n"
	if strings.EqualFold(cfg.Server.LogLevel, "debug") {
		logFormat = "[${time}] ${status} - ${latency} ${method} ${path} ${queryParams} ${reqHeaders}\n"
	}
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: logFormat,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORS.AllowOrigins,
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	handler.RegisterRoutes(app, handler.Routes{
		Authenticate: authenticate,
		APILimit:     rateLimiter.APILimit(cfg.RateLimit.Requests, cfg.RateLimit.Window),
		UploadLimit:  rateLimiter.UploadLimit(uploadsPerHour),
		Listings:     handler.NewListingHandler(listingService, validate),
		Promotions:   handler.NewPromotionHandler(promotionService, webhookService, validate),
		Uploads:      handler.NewUploadHandler(uploadService),
		Health: handler.NewHealthHandler(
			map[string]handler.Check{
				"database": st.Ping,
				"redis":    func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
			},
			map[string]bool{
				"r2":             r2Client.IsConfigured(),
				"reconstruction": reconstructionClient.IsConfigured(),
				"flutterwave":    flutterwaveClient.IsConfigured(),
				"auth":           len(verifiers) > 0 || cfg.Gateway.Enabled,
			},
		),
		AuthVerify: handler.NewAuthHandler(verifiers),
		Hub:        hub,
	})

	// Queue consumer
	srv := queue.NewServer(redisOpt, queue.ServerConfig{
		QueueName:   cfg.Queue.Name,
		Concurrency: cfg.Queue.Concurrency,
		LogLevel:    logger.ParseLevel(cfg.Server.LogLevel),
	}, log)

	model3dWorker := worker.NewModel3DWorker(st, reconstructionClient, jobQueue, hub, log)
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TaskTypeModel3D, model3dWorker.ProcessTask)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Start(mux); err != nil {
			return fmt.Errorf("queue server: %w", err)
		}
		<-gctx.Done()
		srv.Shutdown()
		return nil
	})

	g.Go(func() error {
		addr := ":" + cfg.Server.Port
		log.Info("server starting", slog.String("addr", addr))
		if err := app.Listen(addr); err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")
		return app.ShutdownWithTimeout(shutdownTimeout)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
