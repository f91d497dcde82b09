package job

import (
	"context"
	"time"

	"go.uber.org/zap"

	"event-service/internal/domain"
	"event-service/internal/metrics"
	"event-service/internal/repository"
	"event-service/internal/service"
)

// PresenceSweeper demotes silent sessions on a fixed cadence: ONLINE
// sessions idle past the idle threshold become AWAY, and any session silent
// past the stale threshold becomes OFFLINE. Each write is guarded by the
// heartbeat timestamp observed at read time, so a heartbeat that lands
// mid-sweep wins over the demotion.
type PresenceSweeper struct {
	sessionRepo repository.SessionRepository
	broadcaster service.Broadcaster
	metrics     *metrics.Metrics
	logger      *zap.Logger
	now         func() time.Time
}

// NewPresenceSweeper creates a new PresenceSweeper instance
func NewPresenceSweeper(
	sessionRepo repository.SessionRepository,
	broadcaster service.Broadcaster,
	m *metrics.Metrics,
	logger *zap.Logger,
) *PresenceSweeper {
	return &PresenceSweeper{
		sessionRepo: sessionRepo,
		broadcaster: broadcaster,
		metrics:     m,
		logger:      logger,
		now:         time.Now,
	}
}

// Run executes one sweep. Satisfies cron.Job.
func (j *PresenceSweeper) Run() {
	j.RunOnce(context.Background())
}

// RunOnce performs a single deterministic sweep pass. Failures on one
// session are logged and do not stop the rest of the pass.
func (j *PresenceSweeper) RunOnce(ctx context.Context) {
	now := j.now().UTC()
	cutoff := now.Add(-domain.IdleThreshold)

	sessions, err := j.sessionRepo.FindIdleSessions(ctx, cutoff)
	if err != nil {
		j.logger.Error("Failed to query idle sessions", zap.Error(err))
		return
	}

	if len(sessions) == 0 {
		return
	}

	demoted := 0
	evicted := 0

	for _, session := range sessions {
		switch {
		case session.IsStale(now):
			updated, err := j.sessionRepo.MarkOfflineIfStale(ctx, session.SessionID, session.LastHeartbeatAt, now)
			if err != nil {
				j.logger.Error("Failed to mark stale session offline",
					zap.String("session_id", session.SessionID),
					zap.Error(err))
				continue
			}
			if !updated {
				// Heartbeat or disconnect got there first.
				continue
			}
			evicted++
			if j.metrics != nil {
				j.metrics.SweeperTransitionsTotal.WithLabelValues("offline").Inc()
			}
			j.broadcaster.BroadcastPresence(ctx, session.WorkspaceID, domain.PresenceBroadcast{
				UserID:     session.UserID,
				DeviceID:   session.DeviceID,
				Status:     domain.DeviceStatusOffline,
				DeviceName: session.DeviceName,
			})

		case session.Status == domain.DeviceStatusOnline:
			updated, err := j.sessionRepo.DemoteToAway(ctx, session.SessionID, session.LastHeartbeatAt)
			if err != nil {
				j.logger.Error("Failed to demote idle session",
					zap.String("session_id", session.SessionID),
					zap.Error(err))
				continue
			}
			if !updated {
				continue
			}
			demoted++
			if j.metrics != nil {
				j.metrics.SweeperTransitionsTotal.WithLabelValues("away").Inc()
			}
			j.broadcaster.BroadcastPresence(ctx, session.WorkspaceID, domain.PresenceBroadcast{
				UserID:     session.UserID,
				DeviceID:   session.DeviceID,
				Status:     domain.DeviceStatusAway,
				DeviceName: session.DeviceName,
			})
		}
		// AWAY sessions inside the stale window stay AWAY.
	}

	if demoted > 0 || evicted > 0 {
		j.logger.Info("Presence sweep completed",
			zap.Int("checked", len(sessions)),
			zap.Int("demoted_away", demoted),
			zap.Int("marked_offline", evicted))
	}
}
