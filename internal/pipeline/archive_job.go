// Package pipeline runs the background maintenance jobs.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/nexustrade/internal/domain"
)

// ArchiveJob copies trades and log lines older than the retention window to
// cold storage.
type ArchiveJob struct {
	archiver      domain.Archiver
	retentionDays int
	logger        *slog.Logger
	now           func() time.Time
}

// NewArchiveJob creates an ArchiveJob.
func NewArchiveJob(archiver domain.Archiver, retentionDays int, logger *slog.Logger) *ArchiveJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &ArchiveJob{
		archiver:      archiver,
		retentionDays: retentionDays,
		logger:        logger.With(slog.String("component", "archive_job")),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Cutoff is the instant before which records are archived.
func (j *ArchiveJob) Cutoff() time.Time {
	return j.now().AddDate(0, 0, -j.retentionDays)
}

// Run performs one archive pass. Both kinds are attempted even if the first
// fails.
func (j *ArchiveJob) Run(ctx context.Context) error {
	cutoff := j.Cutoff()
	j.logger.Info("archive run starting", slog.Time("cutoff", cutoff), slog.Int("retention_days", j.retentionDays))

	trades, tradeErr := j.archiver.ArchiveTrades(ctx, cutoff)
	if tradeErr != nil {
		tradeErr = fmt.Errorf("archive trades: %w", tradeErr)
	}
	logs, logErr := j.archiver.ArchiveLogs(ctx, cutoff)
	if logErr != nil {
		logErr = fmt.Errorf("archive logs: %w", logErr)
	}

	j.logger.Info("archive run complete",
		slog.Int64("trades_archived", trades),
		slog.Int64("logs_archived", logs),
	)
	return errors.Join(tradeErr, logErr)
}

// RunEvery runs a pass immediately and then every interval until ctx is
// cancelled. Failed passes are logged and retried on the next interval.
func (j *ArchiveJob) RunEvery(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if err := j.Run(ctx); err != nil && ctx.Err() == nil {
			j.logger.Error("archive run failed", slog.String("error", err.Error()))
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
