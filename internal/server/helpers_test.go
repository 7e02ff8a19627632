package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"partrack/internal/config"
	"partrack/internal/database"
	"partrack/internal/featureflags"
	"partrack/internal/middleware"
	"partrack/internal/repository"
	"partrack/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const testSecret = "test-secret-key-for-handler-tests"

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(database.Models()...))
	return db
}

// newTestServer wires a Server directly against sqlite, without Redis or the
// Prometheus middleware (the latter registers global collectors and cannot be
// re-created per test).
func newTestServer(t *testing.T, db *gorm.DB) *Server {
	t.Helper()
	cfg := &config.Config{
		JWTSecret:   testSecret,
		Port:        "8460",
		JobIDPrefix: "PAR",
		Env:         "test",
	}
	middleware.InitMiddleware(cfg)

	s := &Server{
		config:       cfg,
		db:           db,
		requestRepo:  repository.NewRequestRepository(db),
		approverRepo: repository.NewApproverRepository(db),
		dropdownRepo: repository.NewDropdownRepository(db),
		auditRepo:    repository.NewAuditRepository(db),
		userRepo:     repository.NewUserRepository(db),
		featureFlags: featureflags.NewManager(""),
	}
	s.auditRecorder = service.NewAuditRecorder(s.auditRepo)
	s.allocator = service.NewJobIDAllocator(db, cfg.JobIDPrefix)
	s.workflowService = service.NewWorkflowService(db, s.auditRecorder, nil)
	s.requestService = service.NewRequestService(s.requestRepo, s.dropdownRepo, s.allocator, s.auditRecorder)
	s.approverService = service.NewApproverService(s.approverRepo, s.auditRecorder)
	s.dropdownService = service.NewDropdownService(s.dropdownRepo, s.auditRecorder)
	s.authService = service.NewAuthService(s.userRepo, cfg.JWTSecret)
	return s
}

func newTestApp(t *testing.T, s *Server) *fiber.App {
	t.Helper()
	app := fiber.New()
	s.SetupRoutes(app)
	return app
}

// makeToken signs a JWT the way the auth service does.
func makeToken(t *testing.T, userID uint, name string, admin bool) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":   strconv.FormatUint(uint64(userID), 10),
		"name":  name,
		"admin": admin,
		"iat":   time.Now().Unix(),
		"exp":   time.Now().Add(time.Hour).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func decodeBody(t *testing.T, resp *http.Response, dest any) {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
}

// --- parsePagination ---

func TestParsePaginationDefaults(t *testing.T) {
	app := fiber.New()
	app.Get("/items", func(c *fiber.Ctx) error {
		p := parsePagination(c, 25)
		return c.JSON(fiber.Map{"limit": p.Limit, "offset": p.Offset})
	})

	req := httptest.NewRequest(http.MethodGet, "/items", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	var body map[string]float64
	decodeBody(t, resp, &body)
	assert.Equal(t, float64(25), body["limit"])
	assert.Equal(t, float64(0), body["offset"])
}

func TestParsePaginationClampsLimit(t *testing.T) {
	app := fiber.New()
	app.Get("/items", func(c *fiber.Ctx) error {
		p := parsePagination(c, 25)
		return c.JSON(fiber.Map{"limit": p.Limit, "offset": p.Offset})
	})

	req := httptest.NewRequest(http.MethodGet, "/items?limit=500&offset=-2", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	var body map[string]float64
	decodeBody(t, resp, &body)
	assert.Equal(t, float64(maxPaginationLimit), body["limit"])
	assert.Equal(t, float64(0), body["offset"])
}

// --- parseUUID ---

func TestParseUUID(t *testing.T) {
	app := fiber.New()
	s := &Server{}
	app.Get("/items/:id", func(c *fiber.Ctx) error {
		id, err := s.parseUUID(c, "id")
		if err != nil {
			return nil
		}
		return c.JSON(fiber.Map{"id": id})
	})

	req := httptest.NewRequest(http.MethodGet, "/items/0d9bb357-7d45-4a6c-9a29-f63ef0a6f9ba", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/items/not-a-uuid", nil)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
