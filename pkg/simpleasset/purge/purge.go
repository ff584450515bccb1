// Package purge schedules the hard deletion of assets that have been in the
// trash longer than a retention period.
package purge

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/tendant/simple-asset/pkg/simpleasset"
)

// Config controls the purge job.
type Config struct {
	Cron      string        // standard 5-field cron expression
	Retention time.Duration // soft-deleted assets older than this are purged
	Batch     int           // max assets per run
}

// Purger is the subset of simpleasset.Service the job needs.
type Purger interface {
	PurgeDeleted(ctx context.Context, before time.Time, limit int) (*simpleasset.PurgeResult, error)
}

// Job runs PurgeDeleted on a cron schedule.
type Job struct {
	purger    Purger
	config    Config
	logger    *slog.Logger
	now       func() time.Time
	scheduler gocron.Scheduler
}

// New validates config and registers the job on a fresh scheduler. Call
// Start to begin running it.
func New(purger Purger, config Config, logger *slog.Logger) (*Job, error) {
	if config.Retention <= 0 {
		return nil, errors.New("purge retention must be positive")
	}
	if config.Batch <= 0 {
		config.Batch = 100
	}
	if logger == nil {
		logger = slog.Default()
	}

	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	j := &Job{purger: purger, config: config, logger: logger, now: time.Now, scheduler: s}
	_, err = s.NewJob(
		gocron.CronJob(config.Cron, false),
		gocron.NewTask(j.run),
		gocron.WithName("purge-trash"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, err
	}
	return j, nil
}

// Start begins executing scheduled runs.
func (j *Job) Start() {
	j.scheduler.Start()
}

// Shutdown stops the scheduler and waits for a running purge to finish.
func (j *Job) Shutdown() error {
	return j.scheduler.Shutdown()
}

func (j *Job) run() {
	if _, err := j.RunOnce(context.Background()); err != nil {
		j.logger.Error("trash purge failed", "err", err)
	}
}

// RunOnce purges one batch of assets deleted before now minus retention.
func (j *Job) RunOnce(ctx context.Context) (*simpleasset.PurgeResult, error) {
	cutoff := j.now().Add(-j.config.Retention)
	result, err := j.purger.PurgeDeleted(ctx, cutoff, j.config.Batch)
	if err != nil {
		return nil, err
	}

	j.logger.Info("trash purge finished",
		"cutoff", cutoff,
		"scanned", result.Scanned,
		"purged", result.Purged,
		"failed", len(result.Failed))
	for _, f := range result.Failed {
		j.logger.Warn("asset purge failed", "asset_id", f.AssetID, "tenant_id", f.TenantID, "err", f.Error)
	}
	return result, nil
}
