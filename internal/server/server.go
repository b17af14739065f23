// Package server provides the HTTP ingress: the event webhook, the Kite
// login flow, and the alert query surface.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"options-screener/internal/broker"
	"options-screener/internal/config"
	"options-screener/internal/logging"
	"options-screener/internal/models"
	"options-screener/internal/screener"
	"options-screener/internal/store"
	"options-screener/pkg/utils"
)

// Server wraps the Echo HTTP server.
type Server struct {
	echo   *echo.Echo
	cfg    config.ServerConfig
	logger zerolog.Logger
}

// Handler carries the dependencies the routes need.
type Handler struct {
	Engine   *screener.Engine
	Ledger   store.AlertLedger
	Provider broker.MarketDataProvider
	Logger   zerolog.Logger
}

// New creates the ingress server and registers routes.
func New(cfg config.ServerConfig, h *Handler, logger zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(requestLogging(logger))

	h.register(e)

	return &Server{
		echo:   e,
		cfg:    cfg,
		logger: logging.WithComponent(logger, "server"),
	}
}

// Start starts the HTTP server in the background.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.echo.Server.ReadTimeout = s.cfg.ReadTimeout
	s.echo.Server.WriteTimeout = s.cfg.WriteTimeout

	go func() {
		s.logger.Info().Str("addr", addr).Msg("Ingress server listening")
		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("Ingress server error")
		}
	}()

	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	s.logger.Info().Msg("Ingress server stopped")
	return nil
}

func requestLogging(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			logger.Debug().
				Str("method", c.Request().Method).
				Str("path", c.Request().URL.Path).
				Int("status", c.Response().Status).
				Dur("took", time.Since(start)).
				Msg("HTTP request")
			return err
		}
	}
}

func (h *Handler) register(e *echo.Echo) {
	e.GET("/healthz", h.Health)
	e.POST("/event", h.Event)
	e.GET("/alerts", h.Alerts)
	e.GET("/kite-login", h.KiteLogin)
	e.GET("/callback", h.KiteCallback)
}

// Health reports liveness and broker session state.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":        "ok",
		"market":        utils.GetMarketStatus(),
		"authenticated": h.Provider.IsAuthenticated(),
	})
}

// Event receives a market-event notification and runs one engine pass.
// The response is a bare status: the computed signal is only visible via
// the ledger, and a partial/degraded record is still a success.
func (h *Handler) Event(c echo.Context) error {
	var evt models.Event
	if err := c.Bind(&evt); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"status": "bad request"})
	}
	if evt.Symbol == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"status": "symbol required"})
	}
	logging.LogEvent(h.Logger, evt.Symbol, evt.Move, evt.Time())

	rec, err := h.Engine.Process(c.Request().Context(), evt)
	if err != nil {
		h.Logger.Error().Err(err).Str("symbol", evt.Symbol).Msg("Event processing failed to persist")
		return c.JSON(http.StatusInternalServerError, map[string]string{"status": "error"})
	}

	resp := map[string]interface{}{"status": "ok"}
	if rec.Partial() {
		resp["partial"] = true
	}
	return c.JSON(http.StatusOK, resp)
}

// Alerts returns the ledger records for a date (default: today).
func (h *Handler) Alerts(c echo.Context) error {
	date := time.Now().In(utils.IndiaLocation)
	if d := c.QueryParam("date"); d != "" {
		parsed, err := time.ParseInLocation("2006-01-02", d, utils.IndiaLocation)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"status": "invalid date"})
		}
		date = parsed
	}

	records, err := h.Ledger.QueryByDate(c.Request().Context(), date)
	if err != nil {
		h.Logger.Error().Err(err).Msg("Alert query failed")
		return c.JSON(http.StatusInternalServerError, map[string]string{"status": "error"})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"date":   date.Format("2006-01-02"),
		"alerts": records,
	})
}

// KiteLogin redirects the user into the Kite Connect login flow.
func (h *Handler) KiteLogin(c echo.Context) error {
	return c.Redirect(http.StatusFound, h.Provider.LoginURL())
}

// KiteCallback completes the login flow with the request token Kite
// delivers on redirect.
func (h *Handler) KiteCallback(c echo.Context) error {
	requestToken := c.QueryParam("request_token")
	if requestToken == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"status": "request token not found"})
	}

	if err := h.Provider.CompleteLogin(c.Request().Context(), requestToken); err != nil {
		h.Logger.Error().Err(err).Msg("Login completion failed")
		return c.JSON(http.StatusInternalServerError, map[string]string{"status": "failed to retrieve access token"})
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "authenticated"})
}
