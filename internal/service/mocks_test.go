package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"event-service/internal/domain"
)

// MockSessionRepository is a function-field mock of repository.SessionRepository
type MockSessionRepository struct {
	UpsertFunc              func(ctx context.Context, session *domain.DeviceSession) error
	FindBySessionIDFunc     func(ctx context.Context, sessionID string) (*domain.DeviceSession, error)
	FindByTripleFunc        func(ctx context.Context, workspaceID, userID, deviceID string) (*domain.DeviceSession, error)
	TouchHeartbeatFunc      func(ctx context.Context, sessionID string, observedHeartbeat, now time.Time) (bool, bool, error)
	MarkOfflineFunc         func(ctx context.Context, sessionID string, now time.Time) (bool, error)
	DemoteToAwayFunc        func(ctx context.Context, sessionID string, observedHeartbeat time.Time) (bool, error)
	MarkOfflineIfStaleFunc  func(ctx context.Context, sessionID string, observedHeartbeat, now time.Time) (bool, error)
	FindIdleSessionsFunc    func(ctx context.Context, cutoff time.Time) ([]*domain.DeviceSession, error)
	FindActiveFunc          func(ctx context.Context, workspaceID string, page, limit int) ([]*domain.DeviceSession, int64, error)
	FindActiveByUserFunc    func(ctx context.Context, workspaceID, userID string, page, limit int) ([]*domain.DeviceSession, int64, error)
	CountActiveFunc         func(ctx context.Context, workspaceID string) (int64, error)
	DeleteOfflineBeforeFunc func(ctx context.Context, cutoff time.Time) (int64, error)
}

func (m *MockSessionRepository) Upsert(ctx context.Context, session *domain.DeviceSession) error {
	return m.UpsertFunc(ctx, session)
}

func (m *MockSessionRepository) FindBySessionID(ctx context.Context, sessionID string) (*domain.DeviceSession, error) {
	return m.FindBySessionIDFunc(ctx, sessionID)
}

func (m *MockSessionRepository) FindByTriple(ctx context.Context, workspaceID, userID, deviceID string) (*domain.DeviceSession, error) {
	return m.FindByTripleFunc(ctx, workspaceID, userID, deviceID)
}

func (m *MockSessionRepository) TouchHeartbeat(ctx context.Context, sessionID string, observedHeartbeat, now time.Time) (bool, bool, error) {
	return m.TouchHeartbeatFunc(ctx, sessionID, observedHeartbeat, now)
}

func (m *MockSessionRepository) MarkOffline(ctx context.Context, sessionID string, now time.Time) (bool, error) {
	return m.MarkOfflineFunc(ctx, sessionID, now)
}

func (m *MockSessionRepository) DemoteToAway(ctx context.Context, sessionID string, observedHeartbeat time.Time) (bool, error) {
	return m.DemoteToAwayFunc(ctx, sessionID, observedHeartbeat)
}

func (m *MockSessionRepository) MarkOfflineIfStale(ctx context.Context, sessionID string, observedHeartbeat, now time.Time) (bool, error) {
	return m.MarkOfflineIfStaleFunc(ctx, sessionID, observedHeartbeat, now)
}

func (m *MockSessionRepository) FindIdleSessions(ctx context.Context, cutoff time.Time) ([]*domain.DeviceSession, error) {
	return m.FindIdleSessionsFunc(ctx, cutoff)
}

func (m *MockSessionRepository) FindActive(ctx context.Context, workspaceID string, page, limit int) ([]*domain.DeviceSession, int64, error) {
	return m.FindActiveFunc(ctx, workspaceID, page, limit)
}

func (m *MockSessionRepository) FindActiveByUser(ctx context.Context, workspaceID, userID string, page, limit int) ([]*domain.DeviceSession, int64, error) {
	return m.FindActiveByUserFunc(ctx, workspaceID, userID, page, limit)
}

func (m *MockSessionRepository) CountActive(ctx context.Context, workspaceID string) (int64, error) {
	return m.CountActiveFunc(ctx, workspaceID)
}

func (m *MockSessionRepository) DeleteOfflineBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return m.DeleteOfflineBeforeFunc(ctx, cutoff)
}

// MockEventRepository is a function-field mock of repository.EventRepository
type MockEventRepository struct {
	AppendFunc            func(ctx context.Context, event *domain.WorkspaceEvent) error
	FindSinceFunc         func(ctx context.Context, workspaceID string, sinceSequence int64, limit int, excludeDeviceID string) ([]*domain.WorkspaceEvent, error)
	FindAllFunc           func(ctx context.Context, workspaceID string, page, limit int) ([]*domain.WorkspaceEvent, int64, error)
	FindUnconsumedFunc    func(ctx context.Context, workspaceID string, page, limit int) ([]*domain.WorkspaceEvent, int64, error)
	CountUnconsumedFunc   func(ctx context.Context, workspaceID string) (int64, error)
	MarkConsumedFunc      func(ctx context.Context, workspaceID string, eventID uuid.UUID) error
	MarkConsumedBatchFunc func(ctx context.Context, workspaceID string, eventIDs []uuid.UUID) error
	FindByEntityFunc      func(ctx context.Context, workspaceID, entityType, entityID string, page, limit int) ([]*domain.WorkspaceEvent, int64, error)
	FindByTypeFunc        func(ctx context.Context, workspaceID string, eventType domain.EventType, page, limit int) ([]*domain.WorkspaceEvent, int64, error)
}

func (m *MockEventRepository) Append(ctx context.Context, event *domain.WorkspaceEvent) error {
	return m.AppendFunc(ctx, event)
}

func (m *MockEventRepository) FindSince(ctx context.Context, workspaceID string, sinceSequence int64, limit int, excludeDeviceID string) ([]*domain.WorkspaceEvent, error) {
	return m.FindSinceFunc(ctx, workspaceID, sinceSequence, limit, excludeDeviceID)
}

func (m *MockEventRepository) FindAll(ctx context.Context, workspaceID string, page, limit int) ([]*domain.WorkspaceEvent, int64, error) {
	return m.FindAllFunc(ctx, workspaceID, page, limit)
}

func (m *MockEventRepository) FindUnconsumed(ctx context.Context, workspaceID string, page, limit int) ([]*domain.WorkspaceEvent, int64, error) {
	return m.FindUnconsumedFunc(ctx, workspaceID, page, limit)
}

func (m *MockEventRepository) CountUnconsumed(ctx context.Context, workspaceID string) (int64, error) {
	return m.CountUnconsumedFunc(ctx, workspaceID)
}

func (m *MockEventRepository) MarkConsumed(ctx context.Context, workspaceID string, eventID uuid.UUID) error {
	return m.MarkConsumedFunc(ctx, workspaceID, eventID)
}

func (m *MockEventRepository) MarkConsumedBatch(ctx context.Context, workspaceID string, eventIDs []uuid.UUID) error {
	return m.MarkConsumedBatchFunc(ctx, workspaceID, eventIDs)
}

func (m *MockEventRepository) FindByEntity(ctx context.Context, workspaceID, entityType, entityID string, page, limit int) ([]*domain.WorkspaceEvent, int64, error) {
	return m.FindByEntityFunc(ctx, workspaceID, entityType, entityID, page, limit)
}

func (m *MockEventRepository) FindByType(ctx context.Context, workspaceID string, eventType domain.EventType, page, limit int) ([]*domain.WorkspaceEvent, int64, error) {
	return m.FindByTypeFunc(ctx, workspaceID, eventType, page, limit)
}

// recordedPresence captures one presence broadcast for assertions
type recordedPresence struct {
	workspaceID string
	status      domain.PresenceBroadcast
}

// recorderBroadcaster records broadcasts instead of publishing them
type recorderBroadcaster struct {
	presence []recordedPresence
	events   []*domain.WorkspaceEvent
}

func (r *recorderBroadcaster) BroadcastPresence(ctx context.Context, workspaceID string, status domain.PresenceBroadcast) {
	r.presence = append(r.presence, recordedPresence{workspaceID: workspaceID, status: status})
}

func (r *recorderBroadcaster) BroadcastEvent(ctx context.Context, workspaceID string, event *domain.WorkspaceEvent) {
	r.events = append(r.events, event)
}
