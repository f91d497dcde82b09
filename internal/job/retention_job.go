package job

import (
	"context"
	"time"

	"go.uber.org/zap"

	"event-service/internal/metrics"
	"event-service/internal/repository"
)

// RetentionJob removes OFFLINE session rows older than the retention window.
// Pure storage hygiene: nothing is broadcast for purged rows.
type RetentionJob struct {
	sessionRepo   repository.SessionRepository
	retentionDays int
	metrics       *metrics.Metrics
	logger        *zap.Logger
	now           func() time.Time
}

// NewRetentionJob creates a new RetentionJob instance
func NewRetentionJob(sessionRepo repository.SessionRepository, retentionDays int, m *metrics.Metrics, logger *zap.Logger) *RetentionJob {
	return &RetentionJob{
		sessionRepo:   sessionRepo,
		retentionDays: retentionDays,
		metrics:       m,
		logger:        logger,
		now:           time.Now,
	}
}

// Run executes the retention purge. Satisfies cron.Job.
func (j *RetentionJob) Run() {
	ctx := context.Background()
	cutoff := j.now().UTC().AddDate(0, 0, -j.retentionDays)

	purged, err := j.sessionRepo.DeleteOfflineBefore(ctx, cutoff)
	if err != nil {
		j.logger.Error("Failed to purge old offline sessions", zap.Error(err))
		return
	}

	if purged > 0 {
		if j.metrics != nil {
			j.metrics.SessionsPurgedTotal.Add(float64(purged))
		}
		j.logger.Info("Session retention purge completed",
			zap.Int64("purged", purged),
			zap.Time("cutoff", cutoff))
	}
}
