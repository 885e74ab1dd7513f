package internal

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/karloscodes/cartridge"
	cartridgemiddleware "github.com/karloscodes/cartridge/middleware"

	v1 "leadlens/api/v1"
	"leadlens/internal/config"
	"leadlens/internal/http"
)

// publicCORSConfig is the CORS setup shared by all public tracking endpoints.
// Permissive on purpose: the SDK posts events from arbitrary customer sites.
var publicCORSConfig = &cors.Config{
	AllowOrigins: "*",
	AllowMethods: "POST,GET,OPTIONS",
	AllowHeaders: "Origin, Content-Type, Accept, Authorization, Referrer, User-Agent",
}

// MountAppRoutes mounts all application routes using cartridge's route API
func MountAppRoutes(srv *cartridge.Server) {
	cfg := config.GetConfig()

	// Rate limiting only applies in production; in development and test it
	// would interfere with local tooling and integration tests.
	conditionalRateLimiter := func(limiter fiber.Handler) fiber.Handler {
		return func(c *fiber.Ctx) error {
			if cfg.IsProduction() {
				return limiter(c)
			}
			return c.Next()
		}
	}

	// Public event ingestion: 70 req/min per IP handles legitimate tracking
	// traffic while keeping abuse out.
	publicRateLimiter := conditionalRateLimiter(cartridgemiddleware.RateLimiter(
		cartridgemiddleware.WithMax(70),
		cartridgemiddleware.WithDuration(time.Minute),
	))

	// Dashboard API: analytics generation can be expensive, so it gets a
	// tighter budget than ingestion.
	dashboardRateLimiter := conditionalRateLimiter(cartridgemiddleware.RateLimiter(
		cartridgemiddleware.WithMax(120),
		cartridgemiddleware.WithDuration(time.Minute),
	))

	publicAPIConfig := &cartridge.RouteConfig{
		EnableCORS:       true,
		WriteConcurrency: false,
		CustomMiddleware: []fiber.Handler{publicRateLimiter},
		CORSConfig:       publicCORSConfig,
	}

	dashboardAPIConfig := &cartridge.RouteConfig{
		CustomMiddleware: []fiber.Handler{dashboardRateLimiter},
	}

	// === ROOT ROUTES ===
	srv.Get("/_health", http.HealthIndexAction)
	srv.Head("/_health", http.HealthIndexAction)

	// === PUBLIC API ROUTES ===
	srv.Post("/x/api/v1/events", v1.CreateEventPublicAPIHandler, publicAPIConfig)
	srv.Options("/x/api/v1/events", func(ctx *cartridge.Context) error {
		return ctx.SendStatus(fiber.StatusNoContent)
	}, publicAPIConfig)
	srv.Post("/x/api/v1/events/beacon", v1.CreateEventBeaconHandler, publicAPIConfig)
	srv.Options("/x/api/v1/events/beacon", func(ctx *cartridge.Context) error {
		return ctx.SendStatus(fiber.StatusNoContent)
	}, publicAPIConfig)

	// === ADMIN API ROUTES ===
	srv.Get("/admin/api/sessions", http.SessionsIndexAction, dashboardAPIConfig)
	srv.Get("/admin/api/sessions/:id/timeline", http.SessionTimelineAction, dashboardAPIConfig)

	srv.Get("/admin/api/users", http.UsersIndexAction, dashboardAPIConfig)
	srv.Get("/admin/api/users/:id/sessions", http.UserSessionsAction, dashboardAPIConfig)

	srv.Get("/admin/api/pages", http.PagesIndexAction, dashboardAPIConfig)

	srv.Get("/admin/api/analytics", http.AnalyticsShowAction, dashboardAPIConfig)
	srv.Get("/admin/api/insights", http.InsightsIndexAction, dashboardAPIConfig)

	srv.Get("/admin/api/funnel", http.FunnelBoardAction, dashboardAPIConfig)
	srv.Post("/admin/api/funnel", http.FunnelCreateAction, dashboardAPIConfig)
	srv.Post("/admin/api/funnel/:id/move", http.FunnelMoveAction, dashboardAPIConfig)
}
