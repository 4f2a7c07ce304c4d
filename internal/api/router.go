package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/eduplatform/identity-api/docs"
	"github.com/eduplatform/identity-api/internal/api/handler"
	"github.com/eduplatform/identity-api/internal/api/middleware"
	"github.com/eduplatform/identity-api/internal/core/domain"
	"github.com/eduplatform/identity-api/internal/core/ports"
	"github.com/eduplatform/identity-api/internal/infrastructure/http/handlers"
)

// Dependencies are the services the router exposes.
type Dependencies struct {
	Registrar ports.AccountRegistrar
	Courses   ports.CourseService
	Auth      ports.AuthService
	Tokens    middleware.TokenParser

	// Health lists the backends checked by /health/ready, keyed by name.
	Health map[string]handlers.Pinger

	CookieSecure bool
	Logger       zerolog.Logger

	// Registry collects HTTP metrics. Defaults to the global Prometheus registry.
	Registry *prometheus.Registry
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Logger)

	var (
		registerer prometheus.Registerer = prometheus.DefaultRegisterer
		gatherer   prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if deps.Registry != nil {
		registerer, gatherer = deps.Registry, deps.Registry
	}

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(deps.Logger))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace:  "identity",
		Subsystem:  "http",
		Registerer: registerer,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics"
		},
	}))

	// --- Handlers ---
	accountHandler := handler.NewAccountHandler(deps.Registrar)
	courseHandler := handler.NewCourseHandler(deps.Courses)
	authHandler := handler.NewAuthHandler(deps.Auth, deps.CookieSecure)

	// --- Public routes ---
	e.POST("/user", accountHandler.Register)
	e.POST("/api/auth", authHandler.Login)
	e.POST("/api/token/refresh", authHandler.Refresh)
	e.POST("/api/token/invalidate", authHandler.Invalidate)

	// --- Authenticated routes ---
	e.POST("/api/courses", courseHandler.Create, middleware.Auth(deps.Tokens), middleware.RBAC(domain.RoleUser))

	// --- Operations ---
	healthHandler := handlers.NewHealthHandler()
	healthDepsHandler := handlers.NewHealthDependenciesHandler(deps.Health)

	e.GET("/health", healthHandler.Liveness)            // liveness: is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness: are dependencies up?
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

// requestLogger feeds Echo's request log into zerolog.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			evt := log.Info()
			if v.Error != nil || v.Status >= 500 {
				evt = log.Error().Err(v.Error)
			}
			evt.
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
