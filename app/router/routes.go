// Package router provides HTTP routing, middleware configuration, and server setup for the console
package router

import (
	"encoding/json"
	"time"

	"github.com/amirphl/dokany-admin/app/dto"
	"github.com/amirphl/dokany-admin/app/handlers"
	"github.com/amirphl/dokany-admin/app/middleware"
	"github.com/amirphl/dokany-admin/config"
	"github.com/amirphl/dokany-admin/logx"
	"github.com/amirphl/dokany-admin/models"
	"github.com/amirphl/dokany-admin/utils"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/compress"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/helmet"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router interface for HTTP routing
type Router interface {
	SetupRoutes()
	Start(address string) error
	Shutdown(timeout time.Duration) error
	GetApp() *fiber.App
}

// Handlers groups every handler the console mounts
type Handlers struct {
	Auth      handlers.AuthHandlerInterface
	Campaign  handlers.CampaignHandlerInterface
	Draft     handlers.DraftHandlerInterface
	Dashboard handlers.DashboardHandlerInterface
}

// SessionSource is what the router needs from the session store
type SessionSource interface {
	Snapshot() models.Session
}

// FiberRouter implements Router using Fiber v3
type FiberRouter struct {
	app      *fiber.App
	cfg      *config.ConsoleConfig
	handlers Handlers
	session  SessionSource
}

// NewFiberRouter creates a new Fiber router
func NewFiberRouter(cfg *config.ConsoleConfig, h Handlers, session SessionSource) Router {
	app := fiber.New(fiber.Config{
		AppName:      "Dokany Admin Console",
		ServerHeader: "Dokany-Admin",
		ErrorHandler: errorHandler,
		BodyLimit:    cfg.Server.BodyLimit,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	})

	return &FiberRouter{
		app:      app,
		cfg:      cfg,
		handlers: h,
		session:  session,
	}
}

// SetupRoutes configures all console routes
func (r *FiberRouter) SetupRoutes() {
	r.setupMiddleware()

	r.app.Get("/health", r.healthCheck)
	if r.cfg.Metrics.Enabled {
		r.app.Get(r.cfg.Metrics.Path, adaptor.HTTPHandler(promhttp.Handler()))
	}

	r.app.Use(r.rateLimiter(r.cfg.Security.RateLimit))

	r.app.Get("/", func(c fiber.Ctx) error {
		return c.Redirect().Status(fiber.StatusSeeOther).To(utils.LoginPath)
	})
	r.app.Get(utils.LoginPath, r.handlers.Auth.LoginPage)
	r.app.Get("/session", r.handlers.Auth.Session)

	auth := r.app.Group("/auth")
	auth.Use(r.rateLimiter(r.cfg.Security.AuthRateLimit))
	auth.Post("/login", r.handlers.Auth.Login)
	auth.Post("/logout", r.handlers.Auth.Logout)
	auth.Post("/forgot-password", r.handlers.Auth.ForgotPassword)

	guard := middleware.RouteGuard(r.session)

	dashboard := r.app.Group("/dashboard", guard)
	dashboard.Get("/", func(c fiber.Ctx) error {
		return c.Redirect().Status(fiber.StatusSeeOther).To(utils.HomePath)
	})
	dashboard.Get("/analytics", r.handlers.Dashboard.Analytics)
	dashboard.Get("/activity", r.handlers.Dashboard.RecentActivity)
	dashboard.Get("/activity/:id", r.handlers.Dashboard.ActivityEntry)

	campaigns := r.app.Group(utils.CampaignsPath, guard)
	campaigns.Get("/", r.handlers.Campaign.ListCampaigns)
	campaigns.Get("/stats", r.handlers.Campaign.GetStats)
	campaigns.Get("/export", r.handlers.Campaign.ExportCampaigns)
	campaigns.Post("/test-email", r.handlers.Campaign.SendTestEmail)
	campaigns.Get("/catalogs", r.handlers.Draft.Catalogs)
	campaigns.Post("/catalogs/refresh", r.handlers.Draft.RefreshCatalogs)

	drafts := campaigns.Group("/drafts")
	drafts.Get("/", r.handlers.Draft.ListDrafts)
	drafts.Post("/", r.handlers.Draft.CreateDraft)
	drafts.Get("/:id", r.handlers.Draft.GetDraft)
	drafts.Patch("/:id", r.handlers.Draft.UpdateDraft)
	drafts.Delete("/:id", r.handlers.Draft.DiscardDraft)
	drafts.Post("/:id/themes", r.handlers.Draft.ToggleTheme)
	drafts.Post("/:id/locations", r.handlers.Draft.ToggleLocation)
	drafts.Post("/:id/submit", r.handlers.Draft.SubmitDraft)

	// registered after the static segments so they win
	campaigns.Get("/:id", r.handlers.Campaign.GetCampaign)

	sellers := r.app.Group("/sellers", guard)
	sellers.Get("/", r.handlers.Dashboard.ListSellers)
	sellers.Post("/", r.handlers.Dashboard.CreateSeller)
	sellers.Get("/:id", r.handlers.Dashboard.GetSeller)
	sellers.Put("/:id", r.handlers.Dashboard.UpdateSeller)
	sellers.Delete("/:id", r.handlers.Dashboard.DeleteSeller)

	managers := r.app.Group("/managers", guard)
	managers.Get("/", r.handlers.Dashboard.ListManagers)
	managers.Post("/", r.handlers.Dashboard.CreateManager)
	managers.Get("/:id", r.handlers.Dashboard.GetManager)
	managers.Put("/:id", r.handlers.Dashboard.UpdateManager)
	managers.Delete("/:id", r.handlers.Dashboard.DeleteManager)

	r.app.Get("/profile", guard, r.handlers.Dashboard.Profile)
	r.app.Put("/profile", guard, r.handlers.Dashboard.UpdateProfile)

	payouts := r.app.Group("/payouts", guard)
	payouts.Get("/", r.handlers.Dashboard.ListPayouts)
	payouts.Post("/:id/toggle", r.handlers.Dashboard.TogglePayout)

	r.app.Use(r.notFoundHandler)

	logx.L().Infow("routes configured", "address", r.cfg.Server.Address())
}

// setupMiddleware configures global middleware
func (r *FiberRouter) setupMiddleware() {
	// Request ID middleware - must be first
	r.app.Use(requestid.New(requestid.Config{
		Header: "X-Request-ID",
		Generator: func() string {
			return uuid.NewString()
		},
	}))

	r.app.Use(recover.New(recover.Config{
		EnableStackTrace: r.cfg.Logging.EnableStackTrace,
		StackTraceHandler: func(c fiber.Ctx, e any) {
			logx.L().Errorw("panic recovered",
				"request_id", requestid.FromContext(c),
				"error", e,
				"path", c.Path(),
				"method", c.Method(),
				"ip", c.IP(),
			)
		},
	}))

	r.app.Use(helmet.New(helmet.Config{
		XSSProtection:             "1; mode=block",
		ContentTypeNosniff:        "nosniff",
		XFrameOptions:             "DENY",
		ContentSecurityPolicy:     "default-src 'self'; img-src 'self' data: https:; connect-src 'self'; frame-ancestors 'none';",
		ReferrerPolicy:            "strict-origin-when-cross-origin",
		CrossOriginOpenerPolicy:   "same-origin",
		CrossOriginResourcePolicy: "same-origin",
		XDNSPrefetchControl:       "off",
		XDownloadOptions:          "noopen",
		XPermittedCrossDomain:     "none",
	}))

	r.app.Use(cors.New(cors.Config{
		AllowOrigins: r.cfg.Security.AllowedOrigins,
		AllowMethods: []string{
			"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS",
		},
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Accept",
			"X-Requested-With",
			"X-Request-ID",
		},
		ExposeHeaders: []string{
			"X-Request-ID",
			"Retry-After",
		},
		AllowCredentials: false,
		MaxAge:           utils.CORSMaxAge,
	}))

	r.app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
		Next: func(c fiber.Ctx) bool {
			// xlsx is already zipped
			return c.Path() == utils.CampaignsPath+"/export"
		},
	}))

	r.app.Use(middleware.AccessLog())

	if r.cfg.Metrics.Enabled {
		r.app.Use(middleware.Metrics())
	}
}

func (r *FiberRouter) rateLimiter(max int) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: r.cfg.Security.RateLimitWindow,
		KeyGenerator: func(c fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.APIResponse{
				Success: false,
				Message: "Too many requests. Please try again later.",
				Error: dto.ErrorDetail{
					Code: "RATE_LIMIT_EXCEEDED",
				},
			})
		},
	})
}

func (r *FiberRouter) Start(address string) error {
	logx.L().Infow("starting server", "address", address)
	return r.app.Listen(address, fiber.ListenConfig{DisableStartupMessage: true})
}

func (r *FiberRouter) Shutdown(timeout time.Duration) error {
	return r.app.ShutdownWithTimeout(timeout)
}

func (r *FiberRouter) GetApp() *fiber.App {
	return r.app
}

func (r *FiberRouter) healthCheck(c fiber.Ctx) error {
	snap := r.session.Snapshot()
	return c.JSON(dto.APIResponse{
		Success: true,
		Message: "Service is healthy",
		Data: fiber.Map{
			"status":        "ok",
			"timestamp":     utils.UTCNow().Unix(),
			"service":       "dokany-admin",
			"session_ready": !snap.Loading,
		},
	})
}

func (r *FiberRouter) notFoundHandler(c fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(dto.APIResponse{
		Success: false,
		Message: "The requested resource was not found",
		Error: dto.ErrorDetail{
			Code: "NOT_FOUND",
			Details: fiber.Map{
				"path":       c.Path(),
				"method":     c.Method(),
				"request_id": requestid.FromContext(c),
			},
		},
	})
}

// Global error handler
func errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "An internal server error occurred"
	errCode := "INTERNAL_ERROR"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		if code < fiber.StatusInternalServerError {
			message = e.Message
			errCode = "REQUEST_ERROR"
		}
	}

	logx.L().Errorw("unhandled request error", "status", code, "error", err, "path", c.Path())

	return c.Status(code).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code: errCode,
			Details: fiber.Map{
				"timestamp":  utils.UTCNow().Unix(),
				"request_id": requestid.FromContext(c),
			},
		},
	})
}
