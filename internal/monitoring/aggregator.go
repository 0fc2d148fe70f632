// internal/monitoring/aggregator.go - Cached status aggregation over Sonar
package monitoring

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"sonarboard/internal/cache"
	"sonarboard/internal/clock"
	"sonarboard/internal/metrics"
	"sonarboard/internal/sonar"
	"sonarboard/internal/suppression"
)

// SuppressionReader exposes the current suppression snapshot.
type SuppressionReader interface {
	Current() suppression.Set
}

type Options struct {
	Filter       sonar.Filter
	List         sonar.ListOptions
	SummaryTTL   time.Duration
	DownTTL      time.Duration
	WarningTTL   time.Duration
	SingleFlight bool
	Clock        clock.Clock
	Metrics      *metrics.Collector
}

// Aggregator answers summary and listing requests from a per-kind cache,
// going upstream only on a miss.
type Aggregator struct {
	exec         sonar.Executor
	suppressions SuppressionReader
	filter       sonar.Filter
	list         sonar.ListOptions
	clock        clock.Clock
	metrics      *metrics.Collector

	summary *cache.TTL[EquipmentSummary]
	down    *cache.TTL[[]CustomerRow]
	warning *cache.TTL[[]CustomerRow]
}

func NewAggregator(exec sonar.Executor, suppressions SuppressionReader, opts Options) *Aggregator {
	clk := opts.Clock
	if clk == nil {
		clk = clock.Real()
	}
	sf := cache.WithSingleFlight(opts.SingleFlight)

	return &Aggregator{
		exec:         exec,
		suppressions: suppressions,
		filter:       opts.Filter,
		list:         opts.List,
		clock:        clk,
		metrics:      opts.Metrics,
		summary:      cache.New[EquipmentSummary](string(sonar.KindSummary), opts.SummaryTTL, clk, sf),
		down:         cache.New[[]CustomerRow](string(sonar.KindDown), opts.DownTTL, clk, sf),
		warning:      cache.New[[]CustomerRow](string(sonar.KindWarning), opts.WarningTTL, clk, sf),
	}
}

// EquipmentSummary returns the status summary. Upstream failures are
// reported in the result with zeroed counts rather than as an error.
func (a *Aggregator) EquipmentSummary(ctx context.Context) SummaryResult {
	summary, source, err := a.summary.GetOrFetch(ctx, a.fetchSummary)
	if err != nil {
		a.logFailure(sonar.KindSummary, err)
		return SummaryResult{
			OK:      false,
			Source:  cache.SourceError,
			Summary: EquipmentSummary{},
			Error:   err.Error(),
		}
	}
	return SummaryResult{OK: true, Source: source, Summary: summary}
}

// AccountsByStatus returns the down or warning listing with suppressed
// accounts removed. Upstream order is preserved.
func (a *Aggregator) AccountsByStatus(ctx context.Context, status AccountStatus) AccountsResult {
	ttl, kind, err := a.listingCache(status)
	if err != nil {
		return AccountsResult{OK: false, Source: cache.SourceError, Customers: []CustomerRow{}, Error: err.Error()}
	}

	rows, source, err := ttl.GetOrFetch(ctx, func(ctx context.Context) ([]CustomerRow, error) {
		return a.fetchAccounts(ctx, kind, status)
	})
	if err != nil {
		a.logFailure(kind, err)
		return AccountsResult{
			OK:        false,
			Source:    cache.SourceError,
			Customers: []CustomerRow{},
			Error:     err.Error(),
		}
	}

	return AccountsResult{OK: true, Source: source, Customers: a.applySuppression(rows)}
}

func (a *Aggregator) DownCustomers(ctx context.Context) AccountsResult {
	return a.AccountsByStatus(ctx, StatusDown)
}

func (a *Aggregator) WarningCustomers(ctx context.Context) AccountsResult {
	return a.AccountsByStatus(ctx, StatusWarning)
}

// Refresh fetches kind upstream regardless of cache freshness, stores it,
// and returns the result as a reader would see it. A refresh that overlaps a
// reader's miss shares its upstream call.
func (a *Aggregator) Refresh(ctx context.Context, kind sonar.QueryKind) (interface{}, error) {
	switch kind {
	case sonar.KindSummary:
		summary, source, err := a.summary.Refresh(ctx, a.fetchSummary)
		if err != nil {
			a.logFailure(kind, err)
			return nil, err
		}
		return SummaryResult{OK: true, Source: source, Summary: summary}, nil

	case sonar.KindDown, sonar.KindWarning:
		status := statusForKind(kind)
		ttl, _, err := a.listingCache(status)
		if err != nil {
			return nil, err
		}
		rows, source, err := ttl.Refresh(ctx, func(ctx context.Context) ([]CustomerRow, error) {
			return a.fetchAccounts(ctx, kind, status)
		})
		if err != nil {
			a.logFailure(kind, err)
			return nil, err
		}
		return AccountsResult{OK: true, Source: source, Customers: a.applySuppression(rows)}, nil

	default:
		return nil, fmt.Errorf("unknown query kind %q", kind)
	}
}

func (a *Aggregator) fetchSummary(ctx context.Context) (EquipmentSummary, error) {
	var data sonar.FullListData
	if err := a.exec.Execute(ctx, sonar.FullListSummary(a.filter), &data); err != nil {
		return EquipmentSummary{}, err
	}

	summary := summaryFromFullList(&data)
	if a.metrics != nil {
		a.metrics.RecordRefresh(string(sonar.KindSummary), a.clock.Now())
		a.metrics.RecordSummary(metrics.Counts{
			CustomerGood:          summary.Customer.Good,
			CustomerWarning:       summary.Customer.Warning,
			CustomerDown:          summary.Customer.Down,
			CustomerUninventoried: summary.Customer.Uninventoried,
			Total:                 summary.Customer.Total,
		})
	}

	logrus.WithFields(logrus.Fields{
		"total": summary.Customer.Total,
		"down":  summary.Customer.Down,
	}).Debug("Fetched equipment summary")
	return summary, nil
}

func (a *Aggregator) fetchAccounts(ctx context.Context, kind sonar.QueryKind, status AccountStatus) ([]CustomerRow, error) {
	entities, err := sonar.ListAccounts(ctx, a.exec, kind, a.filter, a.list)
	if err != nil {
		return nil, err
	}

	rows := rowsFromAccounts(entities, status)
	if a.metrics != nil {
		a.metrics.RecordRefresh(string(kind), a.clock.Now())
	}

	logrus.WithFields(logrus.Fields{
		"kind": kind,
		"rows": len(rows),
	}).Debug("Fetched account listing")
	return rows, nil
}

func (a *Aggregator) applySuppression(rows []CustomerRow) []CustomerRow {
	if a.suppressions == nil {
		return filterSuppressed(rows, nil)
	}
	return filterSuppressed(rows, a.suppressions.Current())
}

func (a *Aggregator) listingCache(status AccountStatus) (*cache.TTL[[]CustomerRow], sonar.QueryKind, error) {
	switch status {
	case StatusDown:
		return a.down, sonar.KindDown, nil
	case StatusWarning:
		return a.warning, sonar.KindWarning, nil
	default:
		return nil, "", fmt.Errorf("unsupported account status %q", status)
	}
}

func statusForKind(kind sonar.QueryKind) AccountStatus {
	if kind == sonar.KindWarning {
		return StatusWarning
	}
	return StatusDown
}

func (a *Aggregator) logFailure(kind sonar.QueryKind, err error) {
	source := "transport"
	if sonar.IsUpstreamError(err) {
		source = "upstream"
	} else if !sonar.IsTransportError(err) {
		source = "internal"
	}
	logrus.WithError(err).WithFields(logrus.Fields{
		"kind":   kind,
		"source": source,
	}).Error("Sonar query failed")
}
