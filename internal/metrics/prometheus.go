// internal/metrics/prometheus.go
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics
var (
	UpstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sonarboard_upstream_duration_seconds",
			Help:    "Time spent waiting on Sonar GraphQL queries",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind", "outcome"},
	)

	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sonarboard_upstream_requests_total",
			Help: "Total number of Sonar GraphQL queries executed",
		},
		[]string{"kind", "outcome"},
	)

	CacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sonarboard_cache_requests_total",
			Help: "Cache lookups by cache name and result",
		},
		[]string{"cache", "result"},
	)

	LastRefresh = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sonarboard_last_refresh_timestamp_seconds",
			Help: "Unix time of the last successful upstream refresh per query kind",
		},
		[]string{"kind"},
	)

	EquipmentCounts = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sonarboard_equipment_accounts",
			Help: "Account counts from the most recent equipment summary",
		},
		[]string{"group", "status"},
	)

	SuppressedAccounts = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sonarboard_suppressed_accounts",
			Help: "Number of accounts currently suppressed",
		},
	)

	SuppressionOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sonarboard_suppression_operations_total",
			Help: "Suppression mutations performed",
		},
		[]string{"operation", "status"},
	)

	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sonarboard_websocket_connections_active",
			Help: "Number of active WebSocket connections",
		},
	)
)

// ObserveUpstream records one upstream query.
func ObserveUpstream(kind, outcome string, duration time.Duration) {
	UpstreamDuration.WithLabelValues(kind, outcome).Observe(duration.Seconds())
	UpstreamRequests.WithLabelValues(kind, outcome).Inc()
}

// CacheHit and CacheMiss count lookups against a named cache.
func CacheHit(cache string) {
	CacheRequests.WithLabelValues(cache, "hit").Inc()
}

func CacheMiss(cache string) {
	CacheRequests.WithLabelValues(cache, "miss").Inc()
}

// SuppressionCounter is anything that knows how many accounts are suppressed.
type SuppressionCounter interface {
	Len() int
}

// Counts is the shape of an equipment summary as the collector sees it.
type Counts struct {
	InfraGood, InfraWarning, InfraBad, InfraDown                              int
	CustomerGood, CustomerWarning, CustomerDown, CustomerUninventoried, Total int
}

type Collector struct {
	suppressions SuppressionCounter
}

func NewCollector(suppressions SuppressionCounter) *Collector {
	return &Collector{suppressions: suppressions}
}

// RecordRefresh marks a successful refresh of kind at t.
func (c *Collector) RecordRefresh(kind string, t time.Time) {
	LastRefresh.WithLabelValues(kind).Set(float64(t.Unix()))
}

// RecordSummary publishes the counts of a fresh equipment summary.
func (c *Collector) RecordSummary(counts Counts) {
	EquipmentCounts.WithLabelValues("infrastructure", "good").Set(float64(counts.InfraGood))
	EquipmentCounts.WithLabelValues("infrastructure", "warning").Set(float64(counts.InfraWarning))
	EquipmentCounts.WithLabelValues("infrastructure", "bad").Set(float64(counts.InfraBad))
	EquipmentCounts.WithLabelValues("infrastructure", "down").Set(float64(counts.InfraDown))
	EquipmentCounts.WithLabelValues("customer", "good").Set(float64(counts.CustomerGood))
	EquipmentCounts.WithLabelValues("customer", "warning").Set(float64(counts.CustomerWarning))
	EquipmentCounts.WithLabelValues("customer", "down").Set(float64(counts.CustomerDown))
	EquipmentCounts.WithLabelValues("customer", "uninventoried").Set(float64(counts.CustomerUninventoried))
	EquipmentCounts.WithLabelValues("customer", "total").Set(float64(counts.Total))
}

// RecordSuppression counts a suppression mutation and refreshes the gauge.
func (c *Collector) RecordSuppression(operation string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	SuppressionOperations.WithLabelValues(operation, status).Inc()
	c.UpdateSystemMetrics()
}

func (c *Collector) UpdateSystemMetrics() {
	if c.suppressions == nil {
		return
	}
	SuppressedAccounts.Set(float64(c.suppressions.Len()))
}

func (c *Collector) RecordWebSocketConnection(delta int) {
	WebSocketConnections.Add(float64(delta))
}
