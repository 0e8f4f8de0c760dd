package scheduler

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Pruner deletes estimate history recorded before a cutoff
type Pruner interface {
	PruneEstimates(before time.Time) (int64, error)
}

// Scheduler periodically enforces the estimate history retention window
type Scheduler struct {
	pruner    Pruner
	logger    *logrus.Logger
	retention time.Duration
	interval  time.Duration
	now       func() time.Time
	stopChan  chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
	jobMutex  sync.Mutex // Ensures sequential job execution
}

// NewScheduler creates a scheduler that keeps retention worth of history,
// checking every interval. A zero retention disables pruning.
func NewScheduler(pruner Pruner, retention, interval time.Duration, logger *logrus.Logger) *Scheduler {
	if logger == nil {
		logger = logrus.New()
	}
	if interval <= 0 {
		interval = time.Hour
	}
	return &Scheduler{
		pruner:    pruner,
		logger:    logger,
		retention: retention,
		interval:  interval,
		now:       time.Now,
		stopChan:  make(chan struct{}),
	}
}

// Start runs one prune immediately and then one per interval
func (s *Scheduler) Start() {
	if s.retention <= 0 {
		s.logger.Info("History retention disabled, scheduler not started")
		return
	}
	s.wg.Add(1)
	go s.runScheduler()
}

// Stop waits for a running job to finish
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
	s.wg.Wait()
}

func (s *Scheduler) runScheduler() {
	defer s.wg.Done()

	s.RunOnce()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.RunOnce()
		}
	}
}

// RunOnce deletes the records older than the retention window
func (s *Scheduler) RunOnce() (int64, error) {
	s.jobMutex.Lock()
	defer s.jobMutex.Unlock()

	cutoff := s.now().Add(-s.retention)
	deleted, err := s.pruner.PruneEstimates(cutoff)
	if err != nil {
		s.logger.WithError(err).WithField("cutoff", cutoff).Error("History prune failed")
		return 0, err
	}

	s.logger.WithFields(logrus.Fields{
		"cutoff":  cutoff,
		"deleted": deleted,
	}).Info("History prune completed")
	return deleted, nil
}
