// Package scheduler drives background drains of the offline mutation queue.
//
// A drain pass is attempted on every connectivity-restored event, eagerly at
// startup when already online, and on a periodic retry tick while failed
// records remain queued. The queue's own guard ensures a flurry of triggers
// collapses into a single in-flight pass.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/kimhsiao/fieldsync/internal/connectivity"
	apperrors "github.com/kimhsiao/fieldsync/internal/errors"
	"github.com/kimhsiao/fieldsync/internal/logging"
	"github.com/kimhsiao/fieldsync/internal/metrics"
	"github.com/kimhsiao/fieldsync/internal/queue"
)

// Broadcaster receives drain lifecycle notifications, typically a WebSocket
// hub pushing events to connected UI clients.
type Broadcaster interface {
	DrainStarted()
	DrainCompleted(report *queue.DrainReport)
	DrainFailed(err error)
}

// Config holds scheduler configuration.
type Config struct {
	RetryInterval  time.Duration // how often to retry while records remain queued
	HandlerTimeout time.Duration // budget for one full drain pass
	EagerDrain     bool          // drain at startup when already online
}

// DefaultConfig returns default scheduler configuration.
func DefaultConfig() *Config {
	return &Config{
		RetryInterval:  time.Minute,
		HandlerTimeout: 2 * time.Minute,
		EagerDrain:     true,
	}
}

// Scheduler owns the background drain loop.
type Scheduler struct {
	queue       *queue.Queue
	table       queue.DispatchTable
	monitor     *connectivity.Monitor
	collector   *metrics.Collector // optional
	broadcaster Broadcaster        // optional
	cfg         *Config

	stopCh chan struct{}
	wg     sync.WaitGroup

	mu         sync.RWMutex
	running    bool
	lastDrain  time.Time
	lastReport *queue.DrainReport
}

// New creates a Scheduler. collector and broadcaster may be nil.
func New(q *queue.Queue, table queue.DispatchTable, monitor *connectivity.Monitor,
	collector *metrics.Collector, broadcaster Broadcaster, cfg *Config) *Scheduler {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Scheduler{
		queue:       q,
		table:       table,
		monitor:     monitor,
		collector:   collector,
		broadcaster: broadcaster,
		cfg:         cfg,
		stopCh:      make(chan struct{}),
	}
}

// Start launches the drain loop. Safe to call once.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	s.wg.Add(1)
	go s.loop(ctx)

	if s.cfg.EagerDrain && s.monitor.Online() {
		go s.drain(ctx)
	}

	logging.Component("scheduler").Info("drain scheduler started")
}

// Stop stops the scheduler gracefully.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	close(s.stopCh)
	s.wg.Wait()

	logging.Component("scheduler").Info("drain scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	restored := s.monitor.Subscribe()
	ticker := time.NewTicker(s.cfg.RetryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-restored:
			s.drain(ctx)
		case <-ticker.C:
			if !s.monitor.Online() {
				continue
			}
			depth, err := s.queue.Depth()
			if err != nil || depth == 0 {
				continue
			}
			s.drain(ctx)
		}
	}
}

// drain runs one pass with the configured time budget and records the outcome.
func (s *Scheduler) drain(ctx context.Context) {
	log := logging.Component("scheduler")

	drainCtx, cancel := context.WithTimeout(ctx, s.cfg.HandlerTimeout)
	defer cancel()

	if s.broadcaster != nil {
		s.broadcaster.DrainStarted()
	}

	report, err := s.queue.Drain(drainCtx, s.table)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrDrainInProgress) {
			log.Debug("drain already in progress, skipping")
			return
		}
		log.WithError(err).Error("drain pass failed")
		if s.broadcaster != nil {
			s.broadcaster.DrainFailed(err)
		}
		return
	}

	s.mu.Lock()
	s.lastDrain = time.Now()
	s.lastReport = report
	s.mu.Unlock()

	if s.collector != nil {
		s.collector.RecordDrain(report)
	}
	if s.broadcaster != nil {
		s.broadcaster.DrainCompleted(report)
	}
	if report.Failed > 0 {
		log.WithFields(map[string]interface{}{
			"failed":    report.Failed,
			"remaining": report.Remaining,
		}).Warn("drain completed with operations still queued")
	}
}

// TriggerDrain runs one synchronous pass, for the manual sync endpoint and
// the one-shot CLI command. Returns queue.ErrDrainInProgress if a background
// pass is mid-flight.
func (s *Scheduler) TriggerDrain(ctx context.Context) (*queue.DrainReport, error) {
	drainCtx, cancel := context.WithTimeout(ctx, s.cfg.HandlerTimeout)
	defer cancel()

	if s.broadcaster != nil {
		s.broadcaster.DrainStarted()
	}

	report, err := s.queue.Drain(drainCtx, s.table)
	if err != nil {
		if s.broadcaster != nil && !apperrors.Is(err, apperrors.ErrDrainInProgress) {
			s.broadcaster.DrainFailed(err)
		}
		return nil, err
	}

	s.mu.Lock()
	s.lastDrain = time.Now()
	s.lastReport = report
	s.mu.Unlock()

	if s.collector != nil {
		s.collector.RecordDrain(report)
	}
	if s.broadcaster != nil {
		s.broadcaster.DrainCompleted(report)
	}
	return report, nil
}

// Status describes the scheduler's current state.
type Status struct {
	Running    bool               `json:"running"`
	Online     bool               `json:"online"`
	LastDrain  *time.Time         `json:"last_drain,omitempty"`
	LastReport *queue.DrainReport `json:"last_report,omitempty"`
}

// GetStatus returns the current scheduler status.
func (s *Scheduler) GetStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := Status{
		Running:    s.running,
		Online:     s.monitor.Online(),
		LastReport: s.lastReport,
	}
	if !s.lastDrain.IsZero() {
		t := s.lastDrain
		status.LastDrain = &t
	}
	return status
}
