package main

import (
	"context"
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
	"github.com/sirupsen/logrus"

	"github.com/econfia/api/internal/auth"
	"github.com/econfia/api/internal/client"
	"github.com/econfia/api/internal/config"
	"github.com/econfia/api/internal/events"
	"github.com/econfia/api/internal/handler"
	applogger "github.com/econfia/api/internal/logger"
	"github.com/econfia/api/internal/middleware"
	"github.com/econfia/api/internal/model"
	"github.com/econfia/api/internal/service"
	"github.com/econfia/api/internal/store"
	"github.com/econfia/api/internal/worker"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	log := applogger.New(cfg.Server.LogLevel)

	// Initialize Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Test Redis connection
	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.WithError(err).Warn("Redis not available")
	}

	// Initialize Asynq client
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer asynqClient.Close()

	// Initialize Postgres
	db, err := store.Open(&cfg.Postgres)
	if err != nil {
		log.WithError(err).Fatal("Failed to open postgres")
	}
	defer store.Close(db)

	userRepo := store.NewUserRepository(db)
	consultaRepo := store.NewConsultaRepository(db)

	// Initialize validator
	validate := validator.New()

	// Initialize external clients
	fuentesClient := client.NewFuentesClient(&cfg.Fuentes, log)
	if !fuentesClient.IsConfigured() {
		log.Info("Fuentes gateway not configured, using simulated source checks")
	}

	// Initialize evidence storage (optional - continues if not configured)
	var evidenceClient client.StorageClient
	if cfg.Evidence.AccessKeyID != "" && cfg.Evidence.SecretAccessKey != "" {
		ec, err := client.NewEvidenceClient(&cfg.Evidence)
		if err != nil {
			log.WithError(err).Warn("Evidence storage not initialized")
		} else {
			evidenceClient = ec
		}
	} else {
		log.Info("Evidence storage not configured, evidence downloads disabled")
	}

	// Initialize Kafka audit stream (optional - nil producer is a no-op)
	producer := events.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
	defer producer.Close()

	// Initialize OIDC JWKS verifier (optional - falls back to first-party JWT)
	var jwksVerifier *auth.JWKSVerifier
	if cfg.OIDC.Issuer != "" {
		jwksVerifier, err = auth.NewJWKSVerifier(&cfg.OIDC)
		if err != nil {
			log.WithError(err).Warn("JWKS verifier not initialized")
		} else {
			defer jwksVerifier.Close()
		}
	}

	// Initialize services
	authService := service.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.Expiration)
	consultaService := service.NewConsultaService(consultaRepo, asynqClient, producer, log)
	resultadoService := service.NewResultadoService(consultaRepo, asynqClient, evidenceClient, producer, log)
	riesgoService := service.NewRiesgoService(consultaRepo, consultaService)
	exportService := service.NewExportService(consultaRepo, consultaService)

	// Initialize handlers
	var tokenVerifier auth.TokenVerifier
	if jwksVerifier != nil {
		tokenVerifier = jwksVerifier
	}
	authHandler := handler.NewAuthHandler(authService, tokenVerifier, cfg.JWT.Secret, validate)
	consultaHandler := handler.NewConsultaHandler(consultaService, validate)
	resultadoHandler := handler.NewResultadoHandler(resultadoService)
	riesgoHandler := handler.NewRiesgoHandler(riesgoService)
	exportHandler := handler.NewExportHandler(exportService)

	// Initialize middleware (with fallback support)
	var apiAuthMiddleware fiber.Handler
	if cfg.Gateway.Enabled {
		// Behind Traefik: auth is handled by ForwardAuth, read X-User-* headers
		log.Info("Gateway mode enabled, using header-based auth")
		apiAuthMiddleware = middleware.GatewayAuthMiddleware()
	} else {
		// Direct mode: auth is handled by the backend itself
		var authMiddleware *middleware.AuthMiddleware
		if jwksVerifier != nil && cfg.JWT.Secret != "" {
			authMiddleware = middleware.NewAuthMiddlewareWithFallback(jwksVerifier, cfg.JWT.Secret)
		} else if jwksVerifier != nil {
			authMiddleware = middleware.NewAuthMiddleware(jwksVerifier)
		} else {
			authMiddleware = middleware.NewLocalAuthMiddleware(cfg.JWT.Secret)
		}
		apiAuthMiddleware = authMiddleware.Authenticate()
	}
	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Base URL - timestamp
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"timestamp": time.Now().Unix(),
		})
	})

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"fuentes":  fuentesClient.IsConfigured(),
				"evidence": evidenceClient != nil,
				"kafka":    producer != nil,
				"auth":     jwksVerifier != nil || cfg.JWT.Secret != "",
			},
		})
	})

	// ForwardAuth verification endpoint (internal, called by Traefik)
	app.Get("/auth/verify", authHandler.Verify)

	// Public auth routes
	authGroup := app.Group("/api/auth")
	authGroup.Post("/register", authHandler.Register)
	authGroup.Post("/login", authHandler.Login)

	// API routes
	api := app.Group("/api", apiAuthMiddleware)

	// Consulta routes
	consultas := api.Group("/consultas")
	consultas.Post("/", rateLimiter.ConsultaLimit(cfg.RateLimit.ConsultasPerHour), consultaHandler.Create)
	consultas.Get("/", consultaHandler.List)
	consultas.Get("/:id", consultaHandler.Get)
	consultas.Get("/:id/export", rateLimiter.ExportLimit(cfg.RateLimit.ExportPerHour), exportHandler.Download)

	// Resultado routes (paths kept stable for existing dashboard clients)
	api.Get("/resultados/:id", resultadoHandler.List)
	api.Post("/relanzar_bot/:id", rateLimiter.RelanzarLimit(cfg.RateLimit.RelanzarPerHour), resultadoHandler.Relanzar)
	api.Get("/evidencia/:id", resultadoHandler.Evidence)

	// Risk routes
	api.Get("/calcular_riesgo/:id", riesgoHandler.Score)
	api.Get("/mapa-riesgo/:id", riesgoHandler.Map)
	api.Get("/burbuja-riesgo/:id", riesgoHandler.Bubbles)

	// Start Asynq worker server
	go startWorkerServer(cfg, log, consultaRepo, consultaService, resultadoService, fuentesClient, evidenceClient)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Info("Shutting down server...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.WithError(err).Error("Server shutdown error")
		}
	}()

	// Start server
	addr := ":" + cfg.Server.Port
	log.WithField("addr", addr).Info("Server starting")
	if err := app.Listen(addr); err != nil {
		log.WithError(err).Fatal("Server error")
	}
}

func startWorkerServer(
	cfg *config.Config,
	log *logrus.Logger,
	consultaRepo *store.ConsultaRepository,
	consultaService *service.ConsultaService,
	resultadoService *service.ResultadoService,
	fuentesClient *client.FuentesClient,
	evidenceClient client.StorageClient,
) {
	asynqLogLevel := asynq.InfoLevel
	if strings.EqualFold(cfg.Server.LogLevel, "debug") {
		asynqLogLevel = asynq.DebugLevel
	} else if strings.EqualFold(cfg.Server.LogLevel, "warn") {
		asynqLogLevel = asynq.WarnLevel
	} else if strings.EqualFold(cfg.Server.LogLevel, "error") {
		asynqLogLevel = asynq.ErrorLevel
	}

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"verify":    6,
				"revalidar": 4,
			},
			LogLevel: asynqLogLevel,
		},
	)

	verifyWorker := worker.NewVerifyWorker(consultaRepo, consultaService, resultadoService, fuentesClient, evidenceClient, log)
	revalidarWorker := worker.NewRevalidarWorker(consultaRepo, resultadoService, fuentesClient, evidenceClient, log)

	mux := asynq.NewServeMux()
	mux.HandleFunc(model.TaskTypeVerify, verifyWorker.ProcessTask)
	mux.HandleFunc(model.TaskTypeRevalidar, revalidarWorker.ProcessTask)

	if err := srv.Run(mux); err != nil {
		log.WithError(err).Error("Asynq worker error")
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "SERVICE_ERROR",
			"message": message,
		},
	})
}
