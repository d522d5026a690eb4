package e2e

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/econfia/api/internal/config"
	"github.com/econfia/api/internal/handler"
	"github.com/econfia/api/internal/middleware"
	"github.com/econfia/api/internal/service"
	"github.com/econfia/api/internal/store"
)

const testJWTSecret = "test-secret-for-e2e"

// testApp holds all components needed for testing
type testApp struct {
	app *fiber.App
}

// setupApp creates a Fiber app identical to main.go but with unconfigured
// external clients, so services fall back to simulated checks. Requires
// local Redis and Postgres; skips otherwise.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	// Postgres (localhost — must be running)
	db, err := store.Open(&config.PostgresConfig{
		Host:     "localhost",
		Port:     "5432",
		User:     "econfia",
		Password: "econfia",
		DB:       "econfia_test",
		SSLMode:  "disable",
	})
	if err != nil {
		t.Skipf("postgres not available: %v", err)
	}
	t.Cleanup(func() { store.Close(db) })

	// Redis (localhost — must be running)
	redisClient := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // use DB 15 for tests to avoid collision
	})

	// Asynq client
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr: "localhost:6379",
		DB:   15,
	})
	t.Cleanup(func() { asynqClient.Close() })

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	validate := validator.New()

	userRepo := store.NewUserRepository(db)
	consultaRepo := store.NewConsultaRepository(db)

	// Services (nil evidence storage and nil Kafka producer: both optional)
	authService := service.NewAuthService(userRepo, testJWTSecret, 1)
	consultaService := service.NewConsultaService(consultaRepo, asynqClient, nil, log)
	resultadoService := service.NewResultadoService(consultaRepo, asynqClient, nil, nil, log)
	riesgoService := service.NewRiesgoService(consultaRepo, consultaService)
	exportService := service.NewExportService(consultaRepo, consultaService)

	// Handlers
	authHandler := handler.NewAuthHandler(authService, nil, testJWTSecret, validate)
	consultaHandler := handler.NewConsultaHandler(consultaService, validate)
	resultadoHandler := handler.NewResultadoHandler(resultadoService)
	riesgoHandler := handler.NewRiesgoHandler(riesgoService)
	exportHandler := handler.NewExportHandler(exportService)

	// Auth middleware — first-party HMAC only
	authMiddleware := middleware.NewLocalAuthMiddleware(testJWTSecret)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Fiber app
	app := fiber.New()

	// Base routes
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"timestamp": 1234567890})
	})
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"fuentes":  false,
				"evidence": false,
				"kafka":    false,
				"auth":     true,
			},
		})
	})
	app.Get("/auth/verify", authHandler.Verify)

	// Public auth routes
	authGroup := app.Group("/api/auth")
	authGroup.Post("/register", authHandler.Register)
	authGroup.Post("/login", authHandler.Login)

	// API routes (authenticated)
	api := app.Group("/api", authMiddleware.Authenticate())

	// Use very high rate limits so tests don't get blocked
	consultas := api.Group("/consultas")
	consultas.Post("/", rateLimiter.ConsultaLimit(10000), consultaHandler.Create)
	consultas.Get("/", consultaHandler.List)
	consultas.Get("/:id", consultaHandler.Get)
	consultas.Get("/:id/export", rateLimiter.ExportLimit(10000), exportHandler.Download)

	api.Get("/resultados/:id", resultadoHandler.List)
	api.Post("/relanzar_bot/:id", rateLimiter.RelanzarLimit(10000), resultadoHandler.Relanzar)
	api.Get("/evidencia/:id", resultadoHandler.Evidence)

	api.Get("/calcular_riesgo/:id", riesgoHandler.Score)
	api.Get("/mapa-riesgo/:id", riesgoHandler.Map)
	api.Get("/burbuja-riesgo/:id", riesgoHandler.Bubbles)

	return &testApp{app: app}
}

// registerUser creates a fresh account through the API and returns its token.
func registerUser(t *testing.T, app *fiber.App) string {
	t.Helper()
	email := fmt.Sprintf("e2e-%s@example.com", uuid.NewString()[:8])
	body := fmt.Sprintf(`{"email":%q,"password":"super-secret-1","name":"E2E Tester"}`, email)

	resp, err := doRequest(app, http.MethodPost, "/api/auth/register", body, nil)
	if err != nil {
		t.Fatalf("register request failed: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register failed with status %d: %s", resp.StatusCode, readBody(t, resp))
	}

	parsed := parseJSON(t, resp)
	token, _ := parsed["token"].(string)
	if token == "" {
		t.Fatal("register response missing token")
	}
	return token
}

// doRequest is a helper to perform HTTP requests against the test app.
func doRequest(app *fiber.App, method, path string, body string, headers map[string]string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, path, bodyReader)
	if err != nil {
		return nil, err
	}

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return app.Test(req, -1)
}

// doAuthRequest performs a request with a bearer token.
func doAuthRequest(app *fiber.App, method, path, token, body string) (*http.Response, error) {
	return doRequest(app, method, path, body, map[string]string{
		"Authorization": "Bearer " + token,
	})
}

// readBody reads and returns the response body as a string.
func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return string(b)
}

// parseJSON parses response body into a map.
func parseJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	body := readBody(t, resp)
	var result map[string]interface{}
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, body)
	}
	return result
}

// assertStatus checks the HTTP status code.
func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("expected status %d, got %d", expected, resp.StatusCode)
	}
}
