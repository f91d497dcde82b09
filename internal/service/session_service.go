package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"event-service/internal/domain"
	"event-service/internal/metrics"
	"event-service/internal/repository"
)

// SessionService owns the device presence lifecycle. Presence is workspace
// scoped: every transition it applies is broadcast to the session's own
// workspace channel only.
type SessionService struct {
	repo        repository.SessionRepository
	broadcaster Broadcaster
	metrics     *metrics.Metrics
	logger      *zap.Logger
	now         func() time.Time
}

func NewSessionService(repo repository.SessionRepository, broadcaster Broadcaster, m *metrics.Metrics, logger *zap.Logger) *SessionService {
	return &SessionService{
		repo:        repo,
		broadcaster: broadcaster,
		metrics:     m,
		logger:      logger,
		now:         time.Now,
	}
}

// MarkOnline registers a device connection. A reconnect for the same
// (workspace, user, device) triple replaces the previous session row, so a
// device never holds two live sessions. Broadcasts ONLINE to the workspace.
func (s *SessionService) MarkOnline(ctx context.Context, workspaceID, userID, deviceID, sessionID, deviceName string) (*domain.DeviceSession, error) {
	now := s.now().UTC()

	session := &domain.DeviceSession{
		SessionID:       sessionID,
		WorkspaceID:     workspaceID,
		UserID:          userID,
		DeviceID:        deviceID,
		DeviceName:      deviceName,
		Status:          domain.DeviceStatusOnline,
		ConnectedAt:     now,
		LastHeartbeatAt: now,
		DisconnectedAt:  nil,
	}

	if err := s.repo.Upsert(ctx, session); err != nil {
		return nil, err
	}

	s.logger.Info("device connected",
		zap.String("workspaceId", workspaceID),
		zap.String("userId", userID),
		zap.String("deviceId", deviceID))

	s.broadcaster.BroadcastPresence(ctx, workspaceID, domain.PresenceBroadcast{
		UserID:     userID,
		DeviceID:   deviceID,
		Status:     domain.DeviceStatusOnline,
		DeviceName: deviceName,
	})

	return session, nil
}

// RecordHeartbeat advances the session's liveness timestamp. Returns false
// when the session id is unknown so the caller can tell the device to
// re-handshake. A heartbeat on an AWAY session promotes it back to ONLINE
// and broadcasts the recovery; OFFLINE sessions are never resurrected. The
// recovery decision comes from the repository write, not from the read
// above it, so a sweeper demotion landing in between is still announced.
func (s *SessionService) RecordHeartbeat(ctx context.Context, sessionID string) (bool, error) {
	session, err := s.repo.FindBySessionID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if s.metrics != nil {
				s.metrics.HeartbeatRejectionsTotal.Inc()
			}
			return false, nil
		}
		return false, err
	}

	if session.Status == domain.DeviceStatusOffline {
		// Stale client still ticking after eviction. Known session, so the
		// heartbeat is acknowledged, but the row stays OFFLINE.
		return true, nil
	}

	updated, recovered, err := s.repo.TouchHeartbeat(ctx, sessionID, session.LastHeartbeatAt, s.now().UTC())
	if err != nil {
		return false, err
	}
	if !updated {
		// Another writer advanced the row first; its broadcast stands.
		return true, nil
	}

	if recovered {
		s.broadcaster.BroadcastPresence(ctx, session.WorkspaceID, domain.PresenceBroadcast{
			UserID:     session.UserID,
			DeviceID:   session.DeviceID,
			Status:     domain.DeviceStatusOnline,
			DeviceName: session.DeviceName,
		})
	}

	return true, nil
}

// MarkOffline transitions a session to OFFLINE on explicit disconnect or
// logout and broadcasts the change. Unknown or already OFFLINE sessions are
// a no-op: disconnects race with the sweeper and both may try the same edge.
func (s *SessionService) MarkOffline(ctx context.Context, sessionID string) error {
	session, err := s.repo.FindBySessionID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Debug("disconnect for unknown session", zap.String("sessionId", sessionID))
			return nil
		}
		return err
	}

	updated, err := s.repo.MarkOffline(ctx, sessionID, s.now().UTC())
	if err != nil {
		return err
	}
	if !updated {
		return nil
	}

	s.logger.Info("device disconnected",
		zap.String("workspaceId", session.WorkspaceID),
		zap.String("deviceId", session.DeviceID))

	s.broadcaster.BroadcastPresence(ctx, session.WorkspaceID, domain.PresenceBroadcast{
		UserID:     session.UserID,
		DeviceID:   session.DeviceID,
		Status:     domain.DeviceStatusOffline,
		DeviceName: session.DeviceName,
	})

	return nil
}

// GetActiveSessions lists ONLINE and AWAY sessions in a workspace.
func (s *SessionService) GetActiveSessions(ctx context.Context, workspaceID string, page, limit int) ([]*domain.DeviceSession, int64, error) {
	return s.repo.FindActive(ctx, workspaceID, page, limit)
}

// GetActiveSessionsByUser lists a user's ONLINE and AWAY sessions in a workspace.
func (s *SessionService) GetActiveSessionsByUser(ctx context.Context, workspaceID, userID string, page, limit int) ([]*domain.DeviceSession, int64, error) {
	return s.repo.FindActiveByUser(ctx, workspaceID, userID, page, limit)
}

func (s *SessionService) CountActive(ctx context.Context, workspaceID string) (int64, error) {
	return s.repo.CountActive(ctx, workspaceID)
}
