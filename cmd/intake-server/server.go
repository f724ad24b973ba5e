package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/ehr/pretest/internal/config"
	"github.com/ehr/pretest/internal/domain/enrollment"
	"github.com/ehr/pretest/internal/domain/intake"
	"github.com/ehr/pretest/internal/domain/survey"
	"github.com/ehr/pretest/internal/platform/auth"
	"github.com/ehr/pretest/internal/platform/db"
	"github.com/ehr/pretest/internal/platform/middleware"
	"github.com/ehr/pretest/internal/platform/telemetry"
)

// store bundles the repositories for whichever backend DATABASE_URL names.
type store struct {
	driver       db.Driver
	slots        enrollment.SlotRepository
	responses    survey.ResponseRepository
	demographics survey.DemographicRepository
	pinger       db.Pinger
	poolStats    func() db.PoolStats
	close        func()
}

func openStore(ctx context.Context, cfg *config.Config) (*store, error) {
	driver, dsn, err := cfg.Driver()
	if err != nil {
		return nil, err
	}

	switch driver {
	case db.DriverPostgres:
		pool, err := db.NewPool(ctx, dsn, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return nil, err
		}
		return postgresStore(pool), nil
	case db.DriverSQLite:
		conn, err := db.OpenSQLite(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return &store{
			driver:       db.DriverSQLite,
			slots:        enrollment.NewSlotRepoSQLite(conn),
			responses:    survey.NewResponseRepoSQLite(conn),
			demographics: survey.NewDemographicRepoSQLite(conn),
			pinger:       db.SQLPinger{DB: conn},
			poolStats:    db.SQLPoolStats(conn),
			close:        func() { conn.Close() },
		}, nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", driver)
}

func postgresStore(pool *pgxpool.Pool) *store {
	return &store{
		driver:       db.DriverPostgres,
		slots:        enrollment.NewSlotRepoPG(pool),
		responses:    survey.NewResponseRepoPG(pool),
		demographics: survey.NewDemographicRepoPG(pool),
		pinger:       pool,
		poolStats:    db.PGPoolStats(pool),
		close:        pool.Close,
	}
}

// newServer wires services, middleware and routes onto a fresh echo instance.
func newServer(cfg *config.Config, logger zerolog.Logger, st *store, metrics *telemetry.Registry) *echo.Echo {
	alloc := enrollment.NewAllocator(st.slots, nil, cfg.ClaimMaxAttempts, logger)
	alloc.SetMetrics(metrics)

	recorder := survey.NewRecorder(st.responses, st.demographics, logger)
	recorder.SetMetrics(metrics)
	recorder.SetWriteTimeout(cfg.WriteTimeout)

	intakeSvc := intake.NewService(alloc, recorder, logger)
	intakeSvc.SetMetrics(metrics)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(metrics.Middleware())
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.Sanitize(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:  cfg.CORSOrigins,
		AllowMethods:  []string{http.MethodGet, http.MethodPost},
		AllowHeaders:  []string{"Authorization", "Content-Type", "X-Request-ID", "If-None-Match"},
		ExposeHeaders: []string{"X-Request-ID", intake.HeaderRecordStatus, "ETag"},
	}))
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))
	e.Use(staffAuth(cfg))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/health/db", db.HealthHandler(st.pinger, st.poolStats))
	e.GET("/metrics", metrics.PrometheusHandler())

	apiV1 := e.Group("/api/v1")
	rateLimitCfg := middleware.DefaultRateLimitConfig()
	if cfg.RateLimitRPS > 0 {
		rateLimitCfg.RequestsPerSecond = cfg.RateLimitRPS
	}
	if cfg.RateLimitBurst > 0 {
		rateLimitCfg.BurstSize = cfg.RateLimitBurst
	}
	apiV1.Use(middleware.RateLimit(rateLimitCfg))

	surveyHandler := survey.NewHandler(recorder)
	surveyHandler.RegisterPublicRoutes(apiV1)
	intake.NewHandler(intakeSvc).RegisterRoutes(apiV1)

	admin := apiV1.Group("/admin")
	admin.Use(auth.RequireRole(auth.RoleResearcher))
	admin.Use(middleware.Audit(logger))
	enrollment.NewHandler(alloc).RegisterRoutes(admin)
	surveyHandler.RegisterRoutes(admin)

	return e
}

// staffAuth authenticates everything except the public paths listed in
// auth.AuthSkipper.
func staffAuth(cfg *config.Config) echo.MiddlewareFunc {
	switch cfg.AuthMode() {
	case "static":
		return auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.AuthIssuer,
			Audience:   cfg.AuthAudience,
			SigningKey: []byte(cfg.AuthSigningKey),
			Skipper:    auth.AuthSkipper,
		})
	case "external":
		return auth.JWTMiddleware(auth.JWTConfig{
			Issuer:   cfg.AuthIssuer,
			Audience: cfg.AuthAudience,
			JWKSURL:  cfg.AuthJWKSURL,
			Skipper:  auth.AuthSkipper,
		})
	default:
		return auth.DevAuthMiddleware()
	}
}
