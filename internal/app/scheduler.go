package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/edgard/contactrelay/internal/config"
	"github.com/edgard/contactrelay/internal/tasks"
)

var errAlreadyStarted = errors.New("scheduler already started")

// Scheduler runs the relay's maintenance tasks on cron schedules.
type Scheduler struct {
	cron    gocron.Scheduler
	log     *slog.Logger
	cfg     *config.SchedulerConfig
	catalog map[string]tasks.ScheduledTaskFunc

	mu      sync.Mutex
	started bool
	jobs    []string
}

// NewScheduler creates a scheduler over catalog; cfg decides which entries run.
func NewScheduler(log *slog.Logger, cfg *config.SchedulerConfig, catalog map[string]tasks.ScheduledTaskFunc) (*Scheduler, error) {
	if log == nil {
		log = slog.Default()
	}

	cron, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}

	return &Scheduler{
		cron:    cron,
		log:     log.With("component", "scheduler"),
		cfg:     cfg,
		catalog: catalog,
	}, nil
}

// Start registers every enabled task and starts the cron loop. Tasks that are
// unknown, unscheduled or fail to parse are logged and skipped.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return errAlreadyStarted
	}

	var entries map[string]config.TaskConfig
	if s.cfg != nil {
		entries = s.cfg.Tasks
	}
	for name, entry := range entries {
		if reason := s.add(name, entry); reason != "" {
			s.log.Warn("Task not scheduled", "task", name, "reason", reason)
			continue
		}
		s.jobs = append(s.jobs, name)
	}

	s.cron.Start()
	s.started = true
	s.log.Info("Scheduler started", "jobs", len(s.jobs), "configured", len(entries))
	return nil
}

// add registers one job and returns a non-empty reason when it was skipped.
func (s *Scheduler) add(name string, entry config.TaskConfig) string {
	switch {
	case !entry.Enabled:
		return "disabled"
	case entry.Schedule == "":
		return "empty schedule"
	}
	fn, ok := s.catalog[name]
	if !ok {
		return "no such task"
	}

	_, err := s.cron.NewJob(
		gocron.CronJob(entry.Schedule, true),
		gocron.NewTask(s.runJob, name, fn),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return "invalid schedule " + entry.Schedule + ": " + err.Error()
	}

	s.log.Info("Task scheduled", "task", name, "schedule", entry.Schedule)
	return ""
}

func (s *Scheduler) runJob(name string, fn tasks.ScheduledTaskFunc) {
	began := time.Now()
	if err := fn(context.Background()); err != nil {
		s.log.Error("Task failed", "task", name, "error", err, "took", time.Since(began))
		return
	}
	s.log.Debug("Task finished", "task", name, "took", time.Since(began))
}

// Scheduled returns the sorted names of the tasks registered by Start.
func (s *Scheduler) Scheduled() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := append([]string(nil), s.jobs...)
	sort.Strings(names)
	return names
}

// Stop shuts the cron loop down and waits for running jobs. Stopping a
// scheduler that never started is a no-op.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.started = false

	if err := s.cron.Shutdown(); err != nil {
		return fmt.Errorf("scheduler shutdown: %w", err)
	}
	s.log.Info("Scheduler stopped")
	return nil
}
