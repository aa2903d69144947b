package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Job is one scheduled pass
type Job func(ctx context.Context) error

// DailyTriggerConfig holds configuration for the daily trigger
type DailyTriggerConfig struct {
	Hour   int
	Minute int

	// CheckInterval is how often to check if it's time to run
	CheckInterval time.Duration
}

// DefaultDailyTriggerConfig returns the default schedule, 2am daily
func DefaultDailyTriggerConfig() DailyTriggerConfig {
	return DailyTriggerConfig{
		Hour:          2,
		Minute:        0,
		CheckInterval: time.Minute,
	}
}

// Validate checks the schedule bounds
func (c DailyTriggerConfig) Validate() error {
	if c.Hour < 0 || c.Hour > 23 || c.Minute < 0 || c.Minute > 59 {
		return fmt.Errorf("%w: time %02d:%02d", ErrInvalidConfig, c.Hour, c.Minute)
	}
	if c.CheckInterval <= 0 {
		return fmt.Errorf("%w: check interval must be positive", ErrInvalidConfig)
	}
	return nil
}

// DailyTrigger runs a job once a day at a fixed local time. Passes never
// overlap; a day whose pass already ran is skipped.
type DailyTrigger struct {
	config DailyTriggerConfig
	job    Job
	logger *zap.Logger
	now    func() time.Time

	cancel      context.CancelFunc
	wg          sync.WaitGroup
	mu          sync.Mutex
	isRunning   bool
	inPass      bool
	lastRunDate string
	lastErr     error
}

// NewDailyTrigger creates a new daily trigger
func NewDailyTrigger(config DailyTriggerConfig, job Job, logger *zap.Logger) (*DailyTrigger, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if job == nil {
		return nil, fmt.Errorf("%w: job is required", ErrInvalidConfig)
	}
	return &DailyTrigger{
		config: config,
		job:    job,
		logger: logger,
		now:    time.Now,
	}, nil
}

// Start starts the trigger loop
func (d *DailyTrigger) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.isRunning {
		d.mu.Unlock()
		return nil
	}
	d.isRunning = true
	d.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	d.wg.Add(1)
	go d.runLoop(ctx)

	d.logger.Info("Daily trigger started",
		zap.Int("hour", d.config.Hour),
		zap.Int("minute", d.config.Minute),
		zap.Duration("check_interval", d.config.CheckInterval),
	)
	return nil
}

// Stop stops the trigger and waits for a running pass to return
func (d *DailyTrigger) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.isRunning {
		d.mu.Unlock()
		return nil
	}
	d.isRunning = false
	d.mu.Unlock()

	if d.cancel != nil {
		d.cancel()
	}

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.logger.Info("Daily trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunNow runs the job immediately, outside the schedule
func (d *DailyTrigger) RunNow(ctx context.Context) error {
	return d.run(ctx)
}

// LastRunDate returns the date of the last scheduled pass, empty before the first
func (d *DailyTrigger) LastRunDate() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastRunDate
}

// LastError returns the error of the last pass
func (d *DailyTrigger) LastError() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastErr
}

func (d *DailyTrigger) runLoop(ctx context.Context) {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.checkAndTrigger(ctx)
		}
	}
}

// checkAndTrigger runs the job when the clock reaches the scheduled minute
func (d *DailyTrigger) checkAndTrigger(ctx context.Context) {
	now := d.now()
	currentDate := now.Format("2006-01-02")

	d.mu.Lock()
	if d.lastRunDate == currentDate {
		d.mu.Unlock()
		return
	}
	if now.Hour() != d.config.Hour || now.Minute() != d.config.Minute {
		d.mu.Unlock()
		return
	}
	d.lastRunDate = currentDate
	d.mu.Unlock()

	d.logger.Info("Triggering scheduled reconciliation", zap.String("date", currentDate))
	if err := d.run(ctx); err != nil {
		d.logger.Error("Scheduled reconciliation failed", zap.Error(err))
	}
}

func (d *DailyTrigger) run(ctx context.Context) error {
	d.mu.Lock()
	if d.inPass {
		d.mu.Unlock()
		return ErrRunInProgress
	}
	d.inPass = true
	d.mu.Unlock()

	err := d.job(ctx)

	d.mu.Lock()
	d.inPass = false
	d.lastErr = err
	d.mu.Unlock()
	return err
}
