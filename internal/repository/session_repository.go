package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"event-service/internal/domain"
)

// SessionRepository defines data access for device presence sessions
type SessionRepository interface {
	Upsert(ctx context.Context, session *domain.DeviceSession) error
	FindBySessionID(ctx context.Context, sessionID string) (*domain.DeviceSession, error)
	FindByTriple(ctx context.Context, workspaceID, userID, deviceID string) (*domain.DeviceSession, error)
	TouchHeartbeat(ctx context.Context, sessionID string, observedHeartbeat, now time.Time) (updated, recovered bool, err error)
	MarkOffline(ctx context.Context, sessionID string, now time.Time) (bool, error)
	DemoteToAway(ctx context.Context, sessionID string, observedHeartbeat time.Time) (bool, error)
	MarkOfflineIfStale(ctx context.Context, sessionID string, observedHeartbeat, now time.Time) (bool, error)
	FindIdleSessions(ctx context.Context, cutoff time.Time) ([]*domain.DeviceSession, error)
	FindActive(ctx context.Context, workspaceID string, page, limit int) ([]*domain.DeviceSession, int64, error)
	FindActiveByUser(ctx context.Context, workspaceID, userID string, page, limit int) ([]*domain.DeviceSession, int64, error)
	CountActive(ctx context.Context, workspaceID string) (int64, error)
	DeleteOfflineBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type sessionRepositoryImpl struct {
	db *gorm.DB
}

// NewSessionRepository creates a new instance of SessionRepository
func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepositoryImpl{db: db}
}

// Upsert creates the session row for a (workspace, user, device) triple or
// replaces its connection fields on reconnect.
func (r *sessionRepositoryImpl) Upsert(ctx context.Context, session *domain.DeviceSession) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "workspace_id"}, {Name: "user_id"}, {Name: "device_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"session_id", "device_name", "status", "last_heartbeat_at", "disconnected_at",
		}),
	}).Create(session).Error
}

func (r *sessionRepositoryImpl) FindBySessionID(ctx context.Context, sessionID string) (*domain.DeviceSession, error) {
	var session domain.DeviceSession
	if err := r.db.WithContext(ctx).First(&session, "session_id = ?", sessionID).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepositoryImpl) FindByTriple(ctx context.Context, workspaceID, userID, deviceID string) (*domain.DeviceSession, error) {
	var session domain.DeviceSession
	err := r.db.WithContext(ctx).
		First(&session, "workspace_id = ? AND user_id = ? AND device_id = ?", workspaceID, userID, deviceID).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// TouchHeartbeat advances last_heartbeat_at and forces status back to ONLINE.
// The guard predicates make each write a compare-and-swap: an OFFLINE session
// is never resurrected, and a heartbeat observed against an older timestamp
// loses to any newer write. ONLINE and AWAY rows are updated by separate
// guarded statements so the write itself reports the prior status; a sweeper
// demotion landing between the caller's read and this write is still seen as
// a recovery.
func (r *sessionRepositoryImpl) TouchHeartbeat(ctx context.Context, sessionID string, observedHeartbeat, now time.Time) (bool, bool, error) {
	result := r.db.WithContext(ctx).Model(&domain.DeviceSession{}).
		Where("session_id = ? AND status = ? AND last_heartbeat_at = ?",
			sessionID, domain.DeviceStatusOnline, observedHeartbeat).
		Update("last_heartbeat_at", now)
	if result.Error != nil {
		return false, false, result.Error
	}
	if result.RowsAffected > 0 {
		return true, false, nil
	}

	result = r.db.WithContext(ctx).Model(&domain.DeviceSession{}).
		Where("session_id = ? AND status = ? AND last_heartbeat_at = ?",
			sessionID, domain.DeviceStatusAway, observedHeartbeat).
		Updates(map[string]interface{}{
			"status":            domain.DeviceStatusOnline,
			"last_heartbeat_at": now,
		})
	if result.Error != nil {
		return false, false, result.Error
	}
	return result.RowsAffected > 0, result.RowsAffected > 0, nil
}

// MarkOffline transitions a session to OFFLINE on explicit disconnect/logout.
func (r *sessionRepositoryImpl) MarkOffline(ctx context.Context, sessionID string, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&domain.DeviceSession{}).
		Where("session_id = ? AND status <> ?", sessionID, domain.DeviceStatusOffline).
		Updates(map[string]interface{}{
			"status":          domain.DeviceStatusOffline,
			"disconnected_at": now,
		})
	return result.RowsAffected > 0, result.Error
}

// DemoteToAway marks an idle ONLINE session AWAY. The last_heartbeat_at
// equality guard ensures a heartbeat that landed after the sweeper's read
// wins over the demotion.
func (r *sessionRepositoryImpl) DemoteToAway(ctx context.Context, sessionID string, observedHeartbeat time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&domain.DeviceSession{}).
		Where("session_id = ? AND status = ? AND last_heartbeat_at = ?",
			sessionID, domain.DeviceStatusOnline, observedHeartbeat).
		Update("status", domain.DeviceStatusAway)
	return result.RowsAffected > 0, result.Error
}

// MarkOfflineIfStale evicts a session that has been silent past the stale
// threshold, with the same heartbeat-timestamp guard as DemoteToAway.
func (r *sessionRepositoryImpl) MarkOfflineIfStale(ctx context.Context, sessionID string, observedHeartbeat, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&domain.DeviceSession{}).
		Where("session_id = ? AND status <> ? AND last_heartbeat_at = ?",
			sessionID, domain.DeviceStatusOffline, observedHeartbeat).
		Updates(map[string]interface{}{
			"status":          domain.DeviceStatusOffline,
			"disconnected_at": now,
		})
	return result.RowsAffected > 0, result.Error
}

// FindIdleSessions returns ONLINE/AWAY sessions whose last heartbeat is
// older than cutoff, for the sweeper to evaluate.
func (r *sessionRepositoryImpl) FindIdleSessions(ctx context.Context, cutoff time.Time) ([]*domain.DeviceSession, error) {
	var sessions []*domain.DeviceSession
	err := r.db.WithContext(ctx).
		Where("status IN ? AND last_heartbeat_at < ?",
			[]domain.DeviceStatus{domain.DeviceStatusOnline, domain.DeviceStatusAway}, cutoff).
		Find(&sessions).Error
	return sessions, err
}

func (r *sessionRepositoryImpl) FindActive(ctx context.Context, workspaceID string, page, limit int) ([]*domain.DeviceSession, int64, error) {
	var sessions []*domain.DeviceSession
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.DeviceSession{}).
		Where("workspace_id = ? AND status <> ?", workspaceID, domain.DeviceStatusOffline)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("connected_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&sessions).Error
	return sessions, total, err
}

func (r *sessionRepositoryImpl) FindActiveByUser(ctx context.Context, workspaceID, userID string, page, limit int) ([]*domain.DeviceSession, int64, error) {
	var sessions []*domain.DeviceSession
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.DeviceSession{}).
		Where("workspace_id = ? AND user_id = ? AND status <> ?", workspaceID, userID, domain.DeviceStatusOffline)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("connected_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&sessions).Error
	return sessions, total, err
}

func (r *sessionRepositoryImpl) CountActive(ctx context.Context, workspaceID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.DeviceSession{}).
		Where("workspace_id = ? AND status <> ?", workspaceID, domain.DeviceStatusOffline).
		Count(&count).Error
	return count, err
}

// DeleteOfflineBefore removes OFFLINE sessions whose last heartbeat is older
// than cutoff. Storage hygiene only; callers do not broadcast.
func (r *sessionRepositoryImpl) DeleteOfflineBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("status = ? AND last_heartbeat_at < ?", domain.DeviceStatusOffline, cutoff).
		Delete(&domain.DeviceSession{})
	return result.RowsAffected, result.Error
}
