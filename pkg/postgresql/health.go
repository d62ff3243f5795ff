package postgresql

import (
	"context"
	"fmt"
	"time"
)

// HealthCheck represents database health information
type HealthCheck struct {
	Status       string        `json:"status"`
	ResponseTime time.Duration `json:"response_time"`
	ActiveConns  int32         `json:"active_connections"`
	IdleConns    int32         `json:"idle_connections"`
	MaxConns     int32         `json:"max_connections"`
	DatabaseName string        `json:"database_name"`
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	Error        string        `json:"error,omitempty"`
}

// CheckHealth pings the pool and reports its connection usage.
func CheckHealth(ctx context.Context, db PostgreSQLClient) *HealthCheck {
	start := time.Now()

	health := &HealthCheck{
		DatabaseName: db.DatabaseName(),
		Host:         db.Host(),
		Port:         db.Port(),
	}

	if stats := db.Stats(); stats != nil {
		health.ActiveConns = stats.AcquiredConns()
		health.IdleConns = stats.IdleConns()
		health.MaxConns = stats.MaxConns()
	}

	if err := db.Ping(ctx); err != nil {
		health.Status = "unhealthy"
		health.Error = fmt.Sprintf("ping failed: %v", err)
		health.ResponseTime = time.Since(start)
		return health
	}

	health.Status = "healthy"
	health.ResponseTime = time.Since(start)

	return health
}
