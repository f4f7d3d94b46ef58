package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/christophergentle/mooddiary/internal/backup"
	"github.com/christophergentle/mooddiary/internal/state"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Job is the unit of work run on each tick
type Job func(ctx context.Context) error

// Service runs a job on a cron schedule
type Service struct {
	schedule string
	job      Job
	cron     *cron.Cron

	mu      sync.Mutex
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewService creates a scheduler for a standard five-field cron expression
func NewService(schedule string, job Job) *Service {
	return &Service{
		schedule: schedule,
		job:      job,
		cron:     cron.New(),
	}
}

// NewBackupService schedules exports of store with the given options
func NewBackupService(schedule string, store state.Store, opts backup.ExportOptions) *Service {
	return NewService(schedule, func(ctx context.Context) error {
		result, err := backup.Export(ctx, store, opts)
		if err != nil {
			return err
		}
		logrus.WithFields(logrus.Fields{
			"path":    result.BackupPath,
			"entries": result.Manifest.EntryCount,
		}).Info("Scheduled backup written")
		return nil
	})
}

// Start registers the job and starts the cron runner
func (s *Service) Start() error {
	s.ctx, s.cancel = context.WithCancel(context.Background())

	if _, err := s.cron.AddFunc(s.schedule, s.RunOnce); err != nil {
		s.cancel()
		return fmt.Errorf("failed to parse schedule %q: %w", s.schedule, err)
	}

	s.cron.Start()
	logrus.Infof("Scheduler started with schedule %q", s.schedule)
	return nil
}

// RunOnce runs the job now unless a previous run is still in progress
func (s *Service) RunOnce() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		logrus.Warn("Skipping scheduled run, previous run still in progress")
		return
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	ctx := s.ctx
	if ctx == nil {
		ctx = context.Background()
	}

	logrus.Info("Starting scheduled run")
	if err := s.job(ctx); err != nil {
		logrus.Errorf("Scheduled run failed: %v", err)
	}
}

// Stop stops the scheduler and waits for a running job to finish
func (s *Service) Stop() {
	if s.cron == nil {
		return
	}
	if s.cancel != nil {
		s.cancel()
	}
	<-s.cron.Stop().Done()
	logrus.Info("Scheduler stopped")
}
