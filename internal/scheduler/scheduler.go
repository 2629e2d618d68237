// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package scheduler runs the periodic maintenance jobs: refreshing the
// moderation queue gauge and pruning old moderation log entries.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"devnote/internal/metrics"
	"devnote/internal/models"
)

// jobTimeout bounds a single run of any job.
const jobTimeout = 30 * time.Second

// StatusCounter reports how many blogs sit in each status.
type StatusCounter interface {
	CountByStatus(ctx context.Context) (map[models.BlogStatus]int, error)
}

// AuditPruner deletes moderation log entries older than a cutoff.
type AuditPruner interface {
	Prune(ctx context.Context, before time.Time) (int64, error)
}

// Config holds the cron specs and the audit retention window.
type Config struct {
	QueueGaugeSchedule string
	AuditPruneSchedule string
	AuditRetention     time.Duration
}

// Scheduler wraps a cron runner with the registered jobs.
type Scheduler struct {
	cron   *cron.Cron
	blogs  StatusCounter
	audit  AuditPruner
	cfg    Config
	now    func() time.Time
	gauge  cron.EntryID
	pruner cron.EntryID
}

// New registers the jobs. It fails if either cron spec does not parse.
func New(blogs StatusCounter, audit AuditPruner, cfg Config) (*Scheduler, error) {
	s := &Scheduler{
		cron:  cron.New(),
		blogs: blogs,
		audit: audit,
		cfg:   cfg,
		now:   time.Now,
	}

	var err error
	s.gauge, err = s.cron.AddFunc(cfg.QueueGaugeSchedule, s.job("queue gauge", func(ctx context.Context) error {
		_, err := s.RefreshQueueDepth(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("schedule queue gauge %q: %w", cfg.QueueGaugeSchedule, err)
	}

	s.pruner, err = s.cron.AddFunc(cfg.AuditPruneSchedule, s.job("audit prune", func(ctx context.Context) error {
		_, err := s.PruneAudit(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("schedule audit prune %q: %w", cfg.AuditPruneSchedule, err)
	}

	return s, nil
}

func (s *Scheduler) job(name string, fn func(ctx context.Context) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			slog.Error("scheduled job failed", "job", name, "error", err)
		}
	}
}

// Start runs the cron loop in its own goroutine and primes the queue gauge
// so /metrics is accurate before the first tick.
func (s *Scheduler) Start() {
	s.job("queue gauge", func(ctx context.Context) error {
		_, err := s.RefreshQueueDepth(ctx)
		return err
	})()
	s.cron.Start()
	slog.Info("scheduler started",
		"queue_gauge", s.cfg.QueueGaugeSchedule,
		"audit_prune", s.cfg.AuditPruneSchedule,
	)
}

// Stop halts the cron loop and waits for running jobs or ctx, whichever
// finishes first.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		slog.Warn("scheduler stop timed out")
	}
}

// NextRuns returns the next scheduled time of each job. Zero times mean
// the scheduler has not been started.
func (s *Scheduler) NextRuns() (queueGauge, auditPrune time.Time) {
	return s.cron.Entry(s.gauge).Next, s.cron.Entry(s.pruner).Next
}

// RefreshQueueDepth sets the queue depth gauge to the number of pending
// blogs and returns it.
func (s *Scheduler) RefreshQueueDepth(ctx context.Context) (int, error) {
	counts, err := s.blogs.CountByStatus(ctx)
	if err != nil {
		return 0, fmt.Errorf("refresh queue depth: %w", err)
	}
	pending := counts[models.BlogStatusPending]
	metrics.QueueDepth.Set(float64(pending))
	return pending, nil
}

// PruneAudit deletes moderation log entries older than the retention
// window. A non-positive retention keeps everything.
func (s *Scheduler) PruneAudit(ctx context.Context) (int64, error) {
	if s.cfg.AuditRetention <= 0 {
		return 0, nil
	}
	cutoff := s.now().Add(-s.cfg.AuditRetention)
	n, err := s.audit.Prune(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune audit log: %w", err)
	}
	if n > 0 {
		slog.Info("pruned moderation log", "deleted", n, "before", cutoff)
	}
	return n, nil
}
