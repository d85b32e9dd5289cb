package server

import (
	"net/http"

	"VitalSage_V0.1/internal/admin"
	"VitalSage_V0.1/internal/auth"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"
)

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"https://*", "http://*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", "X-Platform"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	e.Use(LoggerMiddleware)

	e.GET("/health", s.healthHandler)
	e.GET("/admin/system", admin.GetSystemStatsHandler)

	// Protected routes
	protected := e.Group("")
	protected.Use(auth.JwtAuthMiddleware)

	// Advisory engine routes
	protected.POST("/api/v1/analyze", s.AnalyzeHandler)
	protected.GET("/api/v1/analysis/trends", s.TrendsHandler)
	protected.GET("/api/v1/usage", s.UsageHandler)

	// Websocket for advisory-ready notifications
	protected.GET("/api/v1/ws", s.SocketHandler)

	return e
}

func (s *Server) healthHandler(c echo.Context) error {
	if s.db == nil {
		return c.JSON(http.StatusOK, map[string]string{"status": "up", "persistence": "disabled"})
	}
	return c.JSON(http.StatusOK, s.db.Health())
}

// LoggerMiddleware attaches a request-scoped logger keyed by request id.
func LoggerMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := c.Request().Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Response().Header().Set("X-Request-ID", requestID)

		logger := log.With().Str("request_id", requestID).Logger()

		c.Set("logger", &logger)

		return next(c)
	}
}
