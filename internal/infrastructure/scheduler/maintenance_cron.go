package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// cronTickerInterval is the interval at which the cron scheduler checks for execution
const cronTickerInterval = 1 * time.Minute

// MaintenanceCronConfig holds configuration for the cron-based maintenance scheduler
type MaintenanceCronConfig struct {
	// Enabled indicates if the cron scheduler is enabled
	Enabled bool
	// CronHour is the hour (0-23) to run the nightly maintenance
	CronHour int
	// CronMinute is the minute (0-59) to run the nightly maintenance
	CronMinute int
	// DailyCronSchedule is the cron expression (parsed to extract hour/minute)
	DailyCronSchedule string
	// JobTimeout is the maximum time a single maintenance job can run
	JobTimeout time.Duration
	// MaxConcurrentJobs is the maximum number of concurrent maintenance jobs
	MaxConcurrentJobs int
	// RetryAttempts is the number of retry attempts for failed jobs
	RetryAttempts int
	// RetryDelay is the delay between retries
	RetryDelay time.Duration
}

// DefaultMaintenanceCronConfig returns default cron scheduler configuration.
// Defaults to running at 0:30, after the warehouse day has closed.
func DefaultMaintenanceCronConfig() MaintenanceCronConfig {
	return MaintenanceCronConfig{
		Enabled:           true,
		CronHour:          0,
		CronMinute:        30,
		DailyCronSchedule: "30 0 * * *",
		JobTimeout:        10 * time.Minute,
		MaxConcurrentJobs: 2,
		RetryAttempts:     3,
		RetryDelay:        5 * time.Minute,
	}
}

// ParseCronSchedule parses a cron expression "minute hour * * *" to extract hour and minute
// Returns defaults (0:30) if parsing fails or expression is empty
func ParseCronSchedule(cronExpr string) (hour, minute int, err error) {
	// Default values
	hour = 0
	minute = 30

	if cronExpr == "" {
		return hour, minute, nil
	}

	// Use strings.Fields for simple whitespace splitting
	parts := strings.Fields(cronExpr)

	if len(parts) < 2 {
		return hour, minute, nil
	}

	// Parse minute
	if parts[0] != "*" {
		if val, parseErr := parseIntOrDefault(parts[0], 30); parseErr == nil {
			minute = val
		}
	}

	// Parse hour
	if parts[1] != "*" {
		if val, parseErr := parseIntOrDefault(parts[1], 0); parseErr == nil {
			hour = val
		}
	}

	// Validate ranges
	if minute < 0 || minute > 59 {
		return 0, 30, fmt.Errorf("minute must be 0-59, got %d", minute)
	}
	if hour < 0 || hour > 23 {
		return 0, 30, fmt.Errorf("hour must be 0-23, got %d", hour)
	}

	return hour, minute, nil
}

// parseIntOrDefault parses an int string or returns default
func parseIntOrDefault(s string, defaultVal int) (int, error) {
	if s == "" || s == "*" {
		return defaultVal, nil
	}
	var val int
	for _, c := range s {
		if c < '0' || c > '9' {
			return defaultVal, ErrInvalidConfig
		}
		val = val*10 + int(c-'0')
	}
	return val, nil
}

// MaintenanceCron implements cron-based scheduling for the nightly
// maintenance run: snapshot rebuild plus per-scope drift checks.
type MaintenanceCron struct {
	config    MaintenanceCronConfig
	logger    *zap.Logger
	scheduler *Scheduler

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool

	// Last execution tracking
	lastRunAt *time.Time
	nextRunAt *time.Time
}

// NewMaintenanceCron creates a new cron-based maintenance scheduler
func NewMaintenanceCron(
	config MaintenanceCronConfig,
	executor JobExecutor,
	logger *zap.Logger,
) *MaintenanceCron {
	schedulerConfig := SchedulerConfig{
		Enabled:           config.Enabled,
		MaxConcurrentJobs: config.MaxConcurrentJobs,
		JobTimeout:        config.JobTimeout,
		RetryAttempts:     config.RetryAttempts,
		RetryDelay:        config.RetryDelay,
	}
	scheduler := NewScheduler(schedulerConfig, executor, logger)

	return &MaintenanceCron{
		config:    config,
		logger:    logger,
		scheduler: scheduler,
	}
}

// Start starts the cron scheduler
func (s *MaintenanceCron) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	// Start the underlying job scheduler
	if err := s.scheduler.Start(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	// Calculate next run time
	s.calculateNextRunTime()

	// Start the cron ticker
	s.wg.Add(1)
	go s.cronLoop(ctx)

	s.logger.Info("Maintenance cron started",
		zap.Int("cron_hour", s.config.CronHour),
		zap.Int("cron_minute", s.config.CronMinute),
		zap.Timep("next_run_at", s.nextRunAt),
	)

	return nil
}

// Stop stops the cron scheduler
func (s *MaintenanceCron) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	// Cancel the cron loop
	if s.cancel != nil {
		s.cancel()
	}

	// Wait for cron loop to finish
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		// Now stop the underlying scheduler
		if err := s.scheduler.Stop(ctx); err != nil {
			s.logger.Warn("Error stopping underlying scheduler", zap.Error(err))
		}
		s.logger.Info("Maintenance cron stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Maintenance cron stop timed out")
		return ctx.Err()
	}
}

// cronLoop runs the main cron loop
func (s *MaintenanceCron) cronLoop(ctx context.Context) {
	defer s.wg.Done()

	// Use a ticker that checks every minute for cron execution
	ticker := time.NewTicker(cronTickerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if s.shouldRun(now) {
				s.runNightlyMaintenance()
				s.calculateNextRunTime()
			}
		}
	}
}

// shouldRun checks if the cron should run at the given time
func (s *MaintenanceCron) shouldRun(now time.Time) bool {
	return now.Hour() == s.config.CronHour && now.Minute() == s.config.CronMinute
}

// calculateNextRunTime calculates the next run time
func (s *MaintenanceCron) calculateNextRunTime() {
	now := time.Now()
	next := time.Date(now.Year(), now.Month(), now.Day(), s.config.CronHour, s.config.CronMinute, 0, 0, now.Location())

	// If we've already passed today's run time, schedule for tomorrow
	if now.After(next) {
		next = next.AddDate(0, 0, 1)
	}

	s.mu.Lock()
	s.nextRunAt = &next
	s.mu.Unlock()
}

// runNightlyMaintenance submits the nightly job set
func (s *MaintenanceCron) runNightlyMaintenance() {
	s.logger.Info("Starting nightly inventory maintenance")

	now := time.Now()
	s.mu.Lock()
	s.lastRunAt = &now
	s.mu.Unlock()

	if err := s.scheduler.ScheduleNightlyMaintenance(); err != nil {
		s.logger.Error("Failed to schedule nightly maintenance jobs", zap.Error(err))
		return
	}

	s.logger.Info("Nightly maintenance jobs scheduled")
}

// TriggerManualRun triggers a manual run of the nightly maintenance
func (s *MaintenanceCron) TriggerManualRun() error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	s.mu.Unlock()

	go s.runNightlyMaintenance()
	return nil
}

// GetStatus returns the current status of the cron scheduler
func (s *MaintenanceCron) GetStatus() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	return map[string]any{
		"enabled":     s.config.Enabled,
		"is_running":  s.isRunning,
		"cron_hour":   s.config.CronHour,
		"cron_minute": s.config.CronMinute,
		"last_run_at": s.lastRunAt,
		"next_run_at": s.nextRunAt,
		"job_types":   []JobType{JobTypeSnapshotRebuild, JobTypeDriftCheck},
	}
}

// GetNextRunAt returns when the next scheduled run will occur
func (s *MaintenanceCron) GetNextRunAt() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextRunAt
}

// GetLastRunAt returns when the last run occurred
func (s *MaintenanceCron) GetLastRunAt() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRunAt
}
