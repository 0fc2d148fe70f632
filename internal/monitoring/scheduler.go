// internal/monitoring/scheduler.go - Background cache refresh
package monitoring

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"sonarboard/internal/sonar"
)

// Refresher forces an upstream fetch of one query kind.
type Refresher interface {
	Refresh(ctx context.Context, kind sonar.QueryKind) (interface{}, error)
}

// Publisher receives every successful refresh, keyed by query kind.
type Publisher interface {
	Publish(kind string, data interface{})
}

// Scheduler refreshes every query kind on a fixed interval so readers
// mostly hit a warm cache.
type Scheduler struct {
	refresher Refresher
	publisher Publisher
	interval  time.Duration
	kinds     []sonar.QueryKind

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewScheduler(refresher Refresher, publisher Publisher, interval time.Duration) *Scheduler {
	return &Scheduler{
		refresher: refresher,
		publisher: publisher,
		interval:  interval,
		kinds:     sonar.Kinds,
	}
}

// Start runs one refresh immediately and then one per interval until ctx
// ends or Stop is called. A non-positive interval leaves it disabled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}
	if s.interval <= 0 {
		logrus.Info("Background refresh disabled")
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true

	logrus.WithField("interval", s.interval).Info("Starting refresh scheduler")
	go s.loop(ctx, s.done)
	return nil
}

func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	logrus.Info("Stopping refresh scheduler")
	cancel()
	<-done
}

func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	s.RunOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce refreshes every kind concurrently and publishes the ones that
// succeeded. It returns the first failure, if any.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	start := time.Now()
	var g errgroup.Group

	for _, kind := range s.kinds {
		kind := kind
		g.Go(func() error {
			data, err := s.refresher.Refresh(ctx, kind)
			if err != nil {
				return err
			}
			if s.publisher != nil {
				s.publisher.Publish(string(kind), data)
			}
			return nil
		})
	}

	err := g.Wait()
	fields := logrus.Fields{
		"kinds":    len(s.kinds),
		"duration": time.Since(start),
	}
	if err != nil {
		logrus.WithError(err).WithFields(fields).Warn("Refresh cycle finished with errors")
		return err
	}
	logrus.WithFields(fields).Debug("Refresh cycle complete")
	return nil
}
