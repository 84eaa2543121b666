// Package metrics registers the Prometheus instruments exposed on /metrics.
package metrics

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LoginAttempts counts authentication attempts by outcome.
	LoginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ebok_login_attempts_total",
		Help: "Total number of login attempts by result.",
	}, []string{"result"})

	// AccountLockouts counts accounts deactivated by the failed-login policy.
	AccountLockouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ebok_account_lockouts_total",
		Help: "Total number of accounts locked after repeated failed logins.",
	})

	// RefreshRotations counts refresh-token redemptions by outcome.
	RefreshRotations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ebok_refresh_rotations_total",
		Help: "Total number of refresh token rotations by result.",
	}, []string{"result"})

	// ActionTokensIssued counts issued single-use action tokens by type.
	ActionTokensIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ebok_action_tokens_issued_total",
		Help: "Total number of action tokens issued by type.",
	}, []string{"type"})

	// NotificationsSent counts outbound notifications by template and outcome.
	NotificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ebok_notifications_sent_total",
		Help: "Total number of notification emails by template and result.",
	}, []string{"template", "result"})

	// SweptAccounts counts unverified accounts removed by the background job.
	SweptAccounts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ebok_swept_accounts_total",
		Help: "Total number of unverified accounts removed by the sweeper.",
	})

	// SweptTokens counts expired tokens removed by the background job.
	SweptTokens = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ebok_swept_tokens_total",
		Help: "Total number of expired tokens removed by the sweeper.",
	})

	// HTTPRequestDuration observes request latency by route and status.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ebok_http_request_duration_seconds",
		Help:    "HTTP request latency by method, route and status code.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// PoolCollector exports connection-pool gauges from pgxpool.
type PoolCollector struct {
	pool *pgxpool.Pool

	total    *prometheus.Desc
	idle     *prometheus.Desc
	acquired *prometheus.Desc
	waiting  *prometheus.Desc
}

// NewPoolCollector creates a collector over the given pool.
func NewPoolCollector(pool *pgxpool.Pool) *PoolCollector {
	return &PoolCollector{
		pool: pool,
		total: prometheus.NewDesc("ebok_db_pool_total_conns",
			"Total connections currently in the pool.", nil, nil),
		idle: prometheus.NewDesc("ebok_db_pool_idle_conns",
			"Idle connections currently in the pool.", nil, nil),
		acquired: prometheus.NewDesc("ebok_db_pool_acquired_conns",
			"Connections currently acquired from the pool.", nil, nil),
		waiting: prometheus.NewDesc("ebok_db_pool_empty_acquire_waits",
			"Cumulative acquires that waited for a free connection.", nil, nil),
	}
}

func (c *PoolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.total
	ch <- c.idle
	ch <- c.acquired
	ch <- c.waiting
}

func (c *PoolCollector) Collect(ch chan<- prometheus.Metric) {
	stat := c.pool.Stat()
	ch <- prometheus.MustNewConstMetric(c.total, prometheus.GaugeValue, float64(stat.TotalConns()))
	ch <- prometheus.MustNewConstMetric(c.idle, prometheus.GaugeValue, float64(stat.IdleConns()))
	ch <- prometheus.MustNewConstMetric(c.acquired, prometheus.GaugeValue, float64(stat.AcquiredConns()))
	ch <- prometheus.MustNewConstMetric(c.waiting, prometheus.CounterValue, float64(stat.EmptyAcquireCount()))
}
