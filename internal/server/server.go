// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"fmt"
	"time"

	_ "partrack/docs" // swagger docs
	"partrack/internal/cache"
	"partrack/internal/config"
	"partrack/internal/database"
	"partrack/internal/featureflags"
	"partrack/internal/middleware"
	"partrack/internal/notifications"
	"partrack/internal/repository"
	"partrack/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers.
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	requestRepo  repository.RequestRepository
	approverRepo repository.ApproverRepository
	dropdownRepo repository.DropdownRepository
	auditRepo    repository.AuditRepository
	userRepo     repository.UserRepository

	notifier     *notifications.Notifier
	hub          *notifications.Hub
	featureFlags *featureflags.Manager

	auditRecorder   *service.AuditRecorder
	allocator       *service.JobIDAllocator
	workflowService *service.WorkflowService
	requestService  *service.RequestService
	approverService *service.ApproverService
	dropdownService *service.DropdownService
	authService     *service.AuthService
}

// NewServer creates a new server instance with all dependencies.
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	return NewServerWithDeps(cfg, db, cache.GetClient())
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis and
// optionally performs explicit seeding.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	middleware.InitMiddleware(cfg)

	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("partrack-api"),
		requestRepo:    repository.NewRequestRepository(db),
		approverRepo:   repository.NewApproverRepository(db),
		dropdownRepo:   repository.NewDropdownRepository(db),
		auditRepo:      repository.NewAuditRepository(db),
		userRepo:       repository.NewUserRepository(db),
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
	}
	server.shutdownCtx, server.shutdownFn = context.WithCancel(context.Background())

	server.auditRecorder = service.NewAuditRecorder(server.auditRepo)
	server.allocator = service.NewJobIDAllocator(db, cfg.JobIDPrefix)

	// Notifier and hub only exist when Redis is available; the workflow
	// engine runs fine without them.
	var events service.EventPublisher
	if redisClient != nil {
		server.notifier = notifications.NewNotifier(redisClient)
		server.hub = notifications.NewHub()
		events = server.notifier
	}

	server.workflowService = service.NewWorkflowService(db, server.auditRecorder, events)
	server.requestService = service.NewRequestService(server.requestRepo, server.dropdownRepo, server.allocator, server.auditRecorder)
	server.approverService = service.NewApproverService(server.approverRepo, server.auditRecorder)
	server.dropdownService = service.NewDropdownService(server.dropdownRepo, server.auditRecorder)
	server.authService = service.NewAuthService(server.userRepo, cfg.JWTSecret)

	return server, nil
}

// StartWiring connects the Redis subscriber to the websocket hub so workflow
// events published by any instance reach every connected client.
func (s *Server) StartWiring() error {
	if s.notifier == nil || s.hub == nil {
		return nil
	}
	return s.notifier.StartSubscriber(s.shutdownCtx, func(payload string) {
		s.hub.Broadcast(payload)
	})
}

// Shutdown stops background wiring and closes websocket connections.
func (s *Server) Shutdown() {
	s.shutdownFn()
	if s.hub != nil {
		s.hub.Shutdown()
	}
}

// SetupMiddleware configures middleware for the Fiber app.
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Context middleware to propagate request ID and user ID
	app.Use(middleware.ContextMiddleware())

	// Distributed tracing spans per request
	app.Use(middleware.TracingMiddleware())

	// Prometheus metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers
	app.Use(helmet.New())

	// Structured logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// CORS must run before middlewares that can short-circuit (e.g. limiter)
	// so browser clients still receive CORS headers on error responses.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		// Never rate-limit preflight requests; they are handled by CORS.
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application.
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "PAR Tracker Metrics Dashboard",
	}))

	// Swagger documentation
	api.Get("/swagger/*", swagger.HandlerDefault)

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/signup", middleware.RateLimit(
		s.redis, 3, 10*time.Minute, "signup"), s.Signup)
	auth.Post("/login", middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "login"), s.Login)
	auth.Post("/refresh", middleware.AuthRequired, s.Refresh)

	// Protected routes
	protected := api.Group("", middleware.AuthRequired)

	// Request routes
	requests := protected.Group("/requests")
	requests.Get("/", s.GetRequests)
	requests.Post("/", s.CreateRequest)
	requests.Get("/dashboard", s.GetDashboard)
	// Specific /:id/:action routes BEFORE generic /:id routes
	requests.Post("/:id/submit", s.SubmitRequest)
	requests.Post("/:id/approve", s.ApproveStep)
	requests.Post("/:id/kick-back", s.KickBackRequest)
	requests.Post("/:id/cancel", s.CancelRequest)
	requests.Get("/:id/audit", s.GetRequestAuditLog)
	requests.Get("/:id", s.GetRequest)
	requests.Put("/:id", s.UpdateRequest)

	// Approver roster routes
	approvers := protected.Group("/approvers")
	approvers.Get("/", s.GetApprovers)
	approvers.Get("/active", s.GetActiveApprovers)
	approvers.Get("/:id/queue", s.GetApprovalQueue)
	approvers.Post("/", middleware.AdminRequired, s.CreateApprover)
	approvers.Put("/reorder", middleware.AdminRequired, s.ReorderApprovers)
	approvers.Put("/:id", middleware.AdminRequired, s.UpdateApprover)
	approvers.Post("/:id/delegates", middleware.AdminRequired, s.AddDelegate)
	approvers.Delete("/delegates/:delegateId", middleware.AdminRequired, s.RemoveDelegate)

	// Dropdown catalog routes
	dropdowns := protected.Group("/dropdowns")
	dropdowns.Get("/", s.GetDropdownCategories)
	dropdowns.Get("/:slug/options", s.GetDropdownOptions)
	dropdowns.Post("/:slug/options", middleware.AdminRequired, s.CreateDropdownOption)
	dropdowns.Put("/:slug/options/:optionId", middleware.AdminRequired, s.UpdateDropdownOption)

	// Audit log routes
	protected.Get("/audit", middleware.AdminRequired, s.GetAuditLog)

	// Feature flags
	protected.Get("/feature-flags", middleware.AdminRequired, s.GetFeatureFlags)

	// Websocket endpoint for workflow events
	api.Get("/ws", middleware.AuthRequired, s.WebsocketHandler())
}

// LivenessCheck handles liveness probe requests
// @Summary Liveness probe
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health/live [get]
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
// @Summary Readiness probe
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health/ready [get]
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status":  overallStatus,
		"version": "1.0.0",
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}
