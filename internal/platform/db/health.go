package db

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

// Pinger is satisfied by *pgxpool.Pool and by SQLPinger.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SQLPinger adapts a database/sql handle to Pinger.
type SQLPinger struct{ DB *sql.DB }

func (p SQLPinger) Ping(ctx context.Context) error { return p.DB.PingContext(ctx) }

// PoolStats represents database connection pool statistics.
type PoolStats struct {
	Driver        Driver `json:"driver"`
	TotalConns    int32  `json:"total_conns"`
	IdleConns     int32  `json:"idle_conns"`
	AcquiredConns int32  `json:"acquired_conns"`
	MaxConns      int32  `json:"max_conns"`
}

func PGPoolStats(pool *pgxpool.Pool) func() PoolStats {
	return func() PoolStats {
		stat := pool.Stat()
		return PoolStats{
			Driver:        DriverPostgres,
			TotalConns:    stat.TotalConns(),
			IdleConns:     stat.IdleConns(),
			AcquiredConns: stat.AcquiredConns(),
			MaxConns:      stat.MaxConns(),
		}
	}
}

func SQLPoolStats(db *sql.DB) func() PoolStats {
	return func() PoolStats {
		stat := db.Stats()
		return PoolStats{
			Driver:        DriverSQLite,
			TotalConns:    int32(stat.OpenConnections),
			IdleConns:     int32(stat.Idle),
			AcquiredConns: int32(stat.InUse),
			MaxConns:      int32(stat.MaxOpenConnections),
		}
	}
}

// HealthHandler pings the store and reports pool statistics. It answers 503
// when the ping fails so load balancers stop routing submissions here.
func HealthHandler(p Pinger, stats func() PoolStats) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		err := p.Ping(ctx)
		st := stats()

		if err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{
				"status": "unhealthy",
				"error":  "database ping failed",
				"pool":   st,
			})
		}
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status": "healthy",
			"pool":   st,
		})
	}
}
