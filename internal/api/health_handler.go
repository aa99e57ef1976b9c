package api

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/auditai/insight-engine/internal/pkg/httputil"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

// HealthStatus represents the overall health of the system.
type HealthStatus struct {
	Status  string                    `json:"status"` // "healthy", "degraded", "unhealthy"
	Version string                    `json:"version"`
	Uptime  string                    `json:"uptime"`
	Checks  map[string]ComponentCheck `json:"checks"`
}

// ComponentCheck represents the health of a single component.
type ComponentCheck struct {
	Status  string `json:"status"` // "up", "down", "degraded"
	Latency string `json:"latency,omitempty"`
	Message string `json:"message,omitempty"`
}

// BucketPinger reports whether the snapshot bucket is reachable.
type BucketPinger interface {
	Ping(ctx context.Context) error
}

// HealthChecker checks the database, Redis and the snapshot bucket.
// Any dependency can be nil; its check then reports "not configured".
type HealthChecker struct {
	db        *sql.DB
	redis     *redis.Client
	snapshots BucketPinger
	startTime time.Time
}

// NewHealthChecker creates a new HealthChecker.
func NewHealthChecker(db *sql.DB, rdb *redis.Client, snapshots BucketPinger) *HealthChecker {
	return &HealthChecker{db: db, redis: rdb, snapshots: snapshots, startTime: time.Now()}
}

const (
	healthVersion = "1.0.0"
	notConfigured = "not configured"
	dbTimeout     = 3 * time.Second
	redisTimeout  = 2 * time.Second
	s3Timeout     = 3 * time.Second
	dbSlow        = time.Second
	redisSlow     = 500 * time.Millisecond
)

// HandleHealth always answers 200; the body carries the verdict.
//
//	GET /health
func (hc *HealthChecker) HandleHealth(w http.ResponseWriter, r *http.Request) {
	checks := hc.runAllChecks(r.Context())
	httputil.OK(w, HealthStatus{
		Status:  determineOverallStatus(checks),
		Version: healthVersion,
		Uptime:  formatUptime(time.Since(hc.startTime)),
		Checks:  checks,
	})
}

// HandleLiveness returns 200 while the process is running.
//
//	GET /health/live
func (hc *HealthChecker) HandleLiveness(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]interface{}{
		"status": "alive",
		"uptime": formatUptime(time.Since(hc.startTime)),
	})
}

// HandleReadiness returns 503 when a configured database is down.
//
//	GET /health/ready
func (hc *HealthChecker) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	checks := hc.runAllChecks(r.Context())
	overall := determineOverallStatus(checks)

	ready := overall != "unhealthy"
	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	httputil.JSON(w, status, map[string]interface{}{
		"ready":  ready,
		"status": overall,
		"checks": checks,
	})
}

func (hc *HealthChecker) runAllChecks(ctx context.Context) map[string]ComponentCheck {
	var (
		mu     sync.Mutex
		checks = make(map[string]ComponentCheck, 3)
	)
	probes := map[string]func(context.Context) ComponentCheck{
		"database": hc.checkDatabase,
		"redis":    hc.checkRedis,
		"s3":       hc.checkS3,
	}

	// Probes report failures in their result, so the group never errors.
	var g errgroup.Group
	for name, probe := range probes {
		g.Go(func() error {
			c := probe(ctx)
			mu.Lock()
			checks[name] = c
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return checks
}

func (hc *HealthChecker) checkDatabase(ctx context.Context) ComponentCheck {
	if hc.db == nil {
		return ComponentCheck{Status: "down", Message: notConfigured}
	}
	return timedCheck(ctx, dbTimeout, dbSlow, "connected", hc.db.PingContext)
}

func (hc *HealthChecker) checkRedis(ctx context.Context) ComponentCheck {
	if hc.redis == nil {
		return ComponentCheck{Status: "down", Message: notConfigured}
	}
	return timedCheck(ctx, redisTimeout, redisSlow, "connected", func(ctx context.Context) error {
		return hc.redis.Ping(ctx).Err()
	})
}

func (hc *HealthChecker) checkS3(ctx context.Context) ComponentCheck {
	if hc.snapshots == nil {
		return ComponentCheck{Status: "down", Message: notConfigured}
	}
	return timedCheck(ctx, s3Timeout, 0, "bucket accessible", hc.snapshots.Ping)
}

// timedCheck runs ping under timeout. A success slower than slow is
// degraded; slow of zero disables that.
func timedCheck(ctx context.Context, timeout, slow time.Duration, okMsg string, ping func(context.Context) error) ComponentCheck {
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	err := ping(pingCtx)
	latency := time.Since(start)

	if err != nil {
		return ComponentCheck{
			Status:  "down",
			Latency: latency.String(),
			Message: fmt.Sprintf("ping failed: %v", err),
		}
	}
	if slow > 0 && latency > slow {
		return ComponentCheck{
			Status:  "degraded",
			Latency: latency.String(),
			Message: fmt.Sprintf("slow response (%s)", latency),
		}
	}
	return ComponentCheck{Status: "up", Latency: latency.String(), Message: okMsg}
}

// determineOverallStatus derives the aggregate status from individual checks.
//
// Rules:
//   - "unhealthy" if a configured database is down
//   - "degraded"  if any check is degraded or another configured check is down
//   - "healthy"   otherwise
func determineOverallStatus(checks map[string]ComponentCheck) string {
	if db, ok := checks["database"]; ok && db.Status == "down" && db.Message != notConfigured {
		return "unhealthy"
	}
	for _, c := range checks {
		if c.Status == "degraded" {
			return "degraded"
		}
		if c.Status == "down" && c.Message != notConfigured {
			return "degraded"
		}
	}
	return "healthy"
}

// formatUptime produces a human-readable uptime string like "3d 4h 12m 5s".
func formatUptime(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	}
	if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}
