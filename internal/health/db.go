package health

import (
	"context"
	"database/sql"
	"sync/atomic"
	"time"
)

// DBChecker is a HealthChecker over a *sql.DB connection, replacing the
// teacher's store/search/embedder checkers with the one dependency this
// core has.
type DBChecker struct {
	name    string
	conn    *sql.DB
	healthy atomic.Bool
}

// NewDBChecker constructs a DBChecker.
func NewDBChecker(name string, conn *sql.DB) *DBChecker {
	return &DBChecker{name: name, conn: conn}
}

func (c *DBChecker) Name() string { return c.name }

func (c *DBChecker) IsHealthy() bool { return c.healthy.Load() }

// Start pings the connection on an interval until ctx is canceled.
func (c *DBChecker) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	ping := func() {
		pingCtx, cancel := context.WithTimeout(ctx, interval)
		defer cancel()
		c.healthy.Store(c.conn.PingContext(pingCtx) == nil)
	}

	ping()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ping()
		}
	}
}
