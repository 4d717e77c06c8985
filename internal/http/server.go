package http

import (
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	middleware "task-tracker.com/task-tracker/internal/http/middlewares"
	"task-tracker.com/task-tracker/internal/http/validators"
)

type ServerOptions struct {
	AllowedOrigins     []string
	RateLimitPerMinute int
	// TrustedProxies lists the ranges allowed to set X-Forwarded-For. When
	// empty the client IP is the direct peer address.
	TrustedProxies []*net.IPNet
	Logger         *slog.Logger
}

// NewServer builds the echo instance with middleware, validation, error
// handling and the task routes registered.
func NewServer(h *TaskHandler, opts ServerOptions) *echo.Echo {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validators.NewRequestValidator()
	e.HTTPErrorHandler = ErrorHandler
	e.IPExtractor = ipExtractor(opts.TrustedProxies)

	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.RequestLogger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: opts.AllowedOrigins,
		AllowMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAccept},
	}))
	e.Use(middleware.RateLimiter(opts.RateLimitPerMinute, time.Minute))

	Register(e, h)
	return e
}

func ipExtractor(trusted []*net.IPNet) echo.IPExtractor {
	if len(trusted) == 0 {
		return echo.ExtractIPDirect()
	}

	options := []echo.TrustOption{
		echo.TrustLoopback(false),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false),
	}
	for _, ipRange := range trusted {
		options = append(options, echo.TrustIPRange(ipRange))
	}
	return echo.ExtractIPFromXFFHeader(options...)
}
