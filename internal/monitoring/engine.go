// internal/monitoring/engine.go
package monitoring

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
	"sonarboard/internal/config"
	"sonarboard/internal/metrics"
	"sonarboard/internal/sonar"
)

// Engine wires the aggregator and its refresh scheduler from configuration.
type Engine struct {
	config     *config.Config
	aggregator *Aggregator
	scheduler  *Scheduler
	mu         sync.Mutex
	running    bool
}

func NewEngine(cfg *config.Config, exec sonar.Executor, suppressions SuppressionReader, collector *metrics.Collector) *Engine {
	aggregator := NewAggregator(exec, suppressions, Options{
		Filter: sonar.Filter{
			CompanyID:       cfg.Sonar.CompanyID,
			AccountStatusID: cfg.Sonar.AccountStatusID,
		},
		List: sonar.ListOptions{
			PageSize: cfg.Sonar.PageSize,
			MaxPages: cfg.Sonar.MaxPages,
		},
		SummaryTTL:   cfg.Cache.SummaryTTL,
		DownTTL:      cfg.Cache.DownTTL,
		WarningTTL:   cfg.Cache.WarningTTL,
		SingleFlight: cfg.Cache.SingleFlightEnabled(),
		Metrics:      collector,
	})

	return &Engine{
		config:     cfg,
		aggregator: aggregator,
	}
}

func (e *Engine) Aggregator() *Aggregator {
	return e.aggregator
}

// Start launches background refresh, publishing each result to publisher.
func (e *Engine) Start(ctx context.Context, publisher Publisher) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		return nil
	}

	logrus.WithFields(logrus.Fields{
		"summary_ttl":   e.config.Cache.SummaryTTL,
		"down_ttl":      e.config.Cache.DownTTL,
		"warning_ttl":   e.config.Cache.WarningTTL,
		"single_flight": e.config.Cache.SingleFlightEnabled(),
	}).Info("Starting aggregation engine")

	e.scheduler = NewScheduler(e.aggregator, publisher, e.config.Monitoring.RefreshInterval)
	if err := e.scheduler.Start(ctx); err != nil {
		return err
	}
	e.running = true
	return nil
}

func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return
	}

	logrus.Info("Stopping aggregation engine")
	e.scheduler.Stop()
	e.running = false
}

// RefreshAll forces every query kind upstream once.
func (e *Engine) RefreshAll(ctx context.Context) error {
	e.mu.Lock()
	s := e.scheduler
	e.mu.Unlock()
	if s == nil {
		s = NewScheduler(e.aggregator, nil, 0)
	}
	return s.RunOnce(ctx)
}
