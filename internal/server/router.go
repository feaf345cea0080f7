package server

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/any-cache/internal/archive"
	"github.com/any-hub/any-cache/internal/cache"
	"github.com/any-hub/any-cache/internal/logging"
)

// AppOptions controls how the diagnostics application should behave.
type AppOptions struct {
	Logger *logrus.Logger
	Store  cache.Store
	// Method is the resolved compression method used for lookup-only matching.
	Method     archive.Method
	ListenPort int
}

const contextKeyRequestID = "_anycache_request_id"

// NewApp builds a Fiber application with request IDs, panic recovery and the
// health endpoint. Callers attach the remaining /-/ routes from the routes
// package.
func NewApp(opts AppOptions) (*fiber.App, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.Store == nil {
		return nil, errors.New("cache store is required")
	}
	if opts.ListenPort <= 0 {
		return nil, fmt.Errorf("invalid listen port: %d", opts.ListenPort)
	}
	if _, ok := archive.Lookup(opts.Method); !ok {
		return nil, fmt.Errorf("compression method %s is not registered", opts.Method)
	}

	app := fiber.New(fiber.Config{
		CaseSensitive: true,
	})

	app.Use(recover.New())
	app.Use(requestContextMiddleware(opts.Logger))

	app.Get("/-/healthz", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":     "ok",
			"store_root": opts.Store.Root(),
			"method":     string(opts.Method),
		})
	})

	return app, nil
}

// RegisterFallback answers every non-diagnostics path with 404. It must be
// attached after all other routes.
func RegisterFallback(app *fiber.App, logger *logrus.Logger) {
	app.Use(func(c fiber.Ctx) error {
		path := string(c.Request().URI().Path())
		if !isDiagnosticsPath(path) {
			logger.WithFields(logrus.Fields{
				"action":     "route_lookup",
				"path":       path,
				"request_id": RequestID(c),
			}).Debug("path outside diagnostics namespace")
		}
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "not_found",
		})
	})
}

// requestContextMiddleware 负责生成请求 ID，并在请求结束后记录访问日志。
func requestContextMiddleware(logger *logrus.Logger) fiber.Handler {
	return func(c fiber.Ctx) error {
		reqID := uuid.NewString()
		c.Locals(contextKeyRequestID, reqID)
		c.Set("X-Request-ID", reqID)

		err := c.Next()

		status := c.Response().StatusCode()
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			status = fiberErr.Code
		}
		logger.WithFields(logging.RequestFields(reqID, c.Method(), string(c.Request().URI().Path()), status)).
			Debug("diagnostics request")
		return err
	}
}

// RequestID returns the request identifier stored by the router middleware.
func RequestID(c fiber.Ctx) string {
	if value := c.Locals(contextKeyRequestID); value != nil {
		if reqID, ok := value.(string); ok {
			return reqID
		}
	}
	return ""
}

func isDiagnosticsPath(path string) bool {
	return strings.HasPrefix(path, "/-/")
}
