// Package httpapi serves the read-only query API over the stored batches.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/yutsang/ai-news/internal/globaltime"
	"github.com/yutsang/ai-news/internal/period"
	"github.com/yutsang/ai-news/internal/record"
	"github.com/yutsang/ai-news/internal/store"
)

const maxPageSize = 200

type Options struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type Server struct {
	pool   *store.Pool
	logger zerolog.Logger
	opts   Options
}

func NewServer(pool *store.Pool, logger zerolog.Logger, opts Options) *Server {
	host := strings.TrimSpace(opts.Host)
	if host == "" {
		host = "0.0.0.0"
	}
	port := opts.Port
	if port <= 0 {
		port = 8091
	}
	readTimeout := opts.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 10 * time.Second
	}
	writeTimeout := opts.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 30 * time.Second
	}
	shutdownTimeout := opts.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}

	return &Server{
		pool:   pool,
		logger: logger,
		opts: Options{
			Host:            host,
			Port:            port,
			ReadTimeout:     readTimeout,
			WriteTimeout:    writeTimeout,
			ShutdownTimeout: shutdownTimeout,
		},
	}
}

func (s *Server) Start(ctx context.Context) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("server is not initialized")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.httpErrorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				s.logger.Error().
					Err(v.Error).
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Str("remote_ip", v.RemoteIP).
					Str("request_id", v.RequestID).
					Msg("http request failed")
				return nil
			}

			s.logger.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Str("request_id", v.RequestID).
				Msg("http request")
			return nil
		},
	}))

	e.GET("/healthz", s.handleHealth)

	api := e.Group("/api/v1")
	api.GET("/transactions", s.handleTransactions)
	api.GET("/news", s.handleNews)

	addr := fmt.Sprintf("%s:%d", s.opts.Host, s.opts.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      e,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		if shutdownErr := e.Shutdown(shutdownCtx); shutdownErr != nil {
			s.logger.Error().Err(shutdownErr).Msg("server shutdown failed")
		}
	}()

	s.logger.Info().Str("addr", addr).Msg("query api started")

	if err := e.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("start server: %w", err)
	}
	s.logger.Info().Msg("query api stopped")
	return nil
}

func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := "Internal server error"
	if he, ok := err.(*echo.HTTPError); ok {
		status = he.Code
		switch v := he.Message.(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				message = v
			}
		default:
			if text := strings.TrimSpace(http.StatusText(status)); text != "" {
				message = text
			}
		}
	} else if err != nil {
		message = err.Error()
	}

	if status >= 500 {
		_ = internalError(c, "Internal server error")
		return
	}
	_ = fail(c, status, message, nil)
}

func (s *Server) handleHealth(c echo.Context) error {
	if err := s.pool.Ping(c.Request().Context()); err != nil {
		s.logger.Error().Err(err).Msg("health check database ping failed")
		return internalError(c, "Database unavailable")
	}
	return success(c, map[string]any{
		"service": "ai-news",
		"time":    globaltime.UTC(),
	})
}

func (s *Server) handleTransactions(c echo.Context) error {
	week, err := parseWeek(c.QueryParam("week"))
	if err != nil {
		return fail(c, http.StatusBadRequest, err.Error(), nil)
	}
	limit, err := parseLimit(c.QueryParam("limit"))
	if err != nil {
		return fail(c, http.StatusBadRequest, err.Error(), nil)
	}

	query := store.TransactionQuery{
		Week:         week,
		District:     strings.TrimSpace(c.QueryParam("district")),
		AssetType:    record.AssetType(strings.TrimSpace(c.QueryParam("asset_type"))),
		BigDealsOnly: c.QueryParam("big_deals") == "true",
		Limit:        limit,
	}

	txns, err := s.pool.TransactionsInPeriod(c.Request().Context(), query)
	if err != nil {
		s.logger.Error().Err(err).Msg("query transactions failed")
		return internalError(c, "Failed to load transactions")
	}
	return success(c, map[string]any{
		"week":  week.Label(),
		"items": txns,
	})
}

func (s *Server) handleNews(c echo.Context) error {
	week, err := parseWeek(c.QueryParam("week"))
	if err != nil {
		return fail(c, http.StatusBadRequest, err.Error(), nil)
	}
	limit, err := parseLimit(c.QueryParam("limit"))
	if err != nil {
		return fail(c, http.StatusBadRequest, err.Error(), nil)
	}

	news, err := s.pool.NewsInPeriod(c.Request().Context(), week, limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("query news failed")
		return internalError(c, "Failed to load news")
	}
	return success(c, map[string]any{
		"week":  week.Label(),
		"items": news,
	})
}

// parseWeek resolves the week query parameter: empty means the current
// reporting week, otherwise any date inside the wanted week as YYYY-MM-DD.
func parseWeek(raw string) (period.Week, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return period.Current(), nil
	}
	day, err := time.ParseInLocation("2006-01-02", raw, time.UTC)
	if err != nil {
		return period.Week{}, fmt.Errorf("week must be a YYYY-MM-DD date")
	}
	return period.For(day), nil
}

func parseLimit(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return 0, fmt.Errorf("limit must be a positive integer")
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return limit, nil
}
