package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"event-service/internal/domain"
)

func newSessionService(repo *MockSessionRepository, broadcaster *recorderBroadcaster) *SessionService {
	svc := NewSessionService(repo, broadcaster, nil, zap.NewNop())
	svc.now = func() time.Time {
		return time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	}
	return svc
}

func TestSessionService_MarkOnline(t *testing.T) {
	var upserted *domain.DeviceSession
	repo := &MockSessionRepository{
		UpsertFunc: func(ctx context.Context, session *domain.DeviceSession) error {
			upserted = session
			return nil
		},
	}
	broadcaster := &recorderBroadcaster{}
	svc := newSessionService(repo, broadcaster)

	session, err := svc.MarkOnline(context.Background(), "ws-a", "user-1", "dev-1", "sess-1", "POS Terminal")
	require.NoError(t, err)

	require.NotNil(t, upserted)
	assert.Equal(t, domain.DeviceStatusOnline, session.Status)
	assert.Equal(t, "sess-1", session.SessionID)
	assert.Nil(t, session.DisconnectedAt)
	assert.Equal(t, session.ConnectedAt, session.LastHeartbeatAt)

	require.Len(t, broadcaster.presence, 1)
	assert.Equal(t, "ws-a", broadcaster.presence[0].workspaceID)
	assert.Equal(t, domain.DeviceStatusOnline, broadcaster.presence[0].status.Status)
	assert.Equal(t, "dev-1", broadcaster.presence[0].status.DeviceID)
}

func TestSessionService_RecordHeartbeat_UnknownSession(t *testing.T) {
	repo := &MockSessionRepository{
		FindBySessionIDFunc: func(ctx context.Context, sessionID string) (*domain.DeviceSession, error) {
			return nil, gorm.ErrRecordNotFound
		},
	}
	broadcaster := &recorderBroadcaster{}
	svc := newSessionService(repo, broadcaster)

	known, err := svc.RecordHeartbeat(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, known)
	assert.Empty(t, broadcaster.presence)
}

func TestSessionService_RecordHeartbeat_AwayPromotesToOnline(t *testing.T) {
	hb := time.Date(2026, 8, 28, 9, 59, 0, 0, time.UTC)
	repo := &MockSessionRepository{
		FindBySessionIDFunc: func(ctx context.Context, sessionID string) (*domain.DeviceSession, error) {
			return &domain.DeviceSession{
				SessionID:       sessionID,
				WorkspaceID:     "ws-a",
				UserID:          "user-1",
				DeviceID:        "dev-1",
				Status:          domain.DeviceStatusAway,
				LastHeartbeatAt: hb,
			}, nil
		},
		TouchHeartbeatFunc: func(ctx context.Context, sessionID string, observed, now time.Time) (bool, bool, error) {
			assert.Equal(t, hb, observed)
			return true, true, nil
		},
	}
	broadcaster := &recorderBroadcaster{}
	svc := newSessionService(repo, broadcaster)

	known, err := svc.RecordHeartbeat(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.True(t, known)

	// AWAY -> ONLINE recovery is announced
	require.Len(t, broadcaster.presence, 1)
	assert.Equal(t, domain.DeviceStatusOnline, broadcaster.presence[0].status.Status)
}

func TestSessionService_RecordHeartbeat_SweepDemotionBetweenReadAndWrite(t *testing.T) {
	// The read saw ONLINE, but the sweeper demoted the row to AWAY before
	// the heartbeat write landed. The write reports the recovery, and the
	// recovery must still be broadcast or peers keep showing AWAY forever.
	repo := &MockSessionRepository{
		FindBySessionIDFunc: func(ctx context.Context, sessionID string) (*domain.DeviceSession, error) {
			return &domain.DeviceSession{
				SessionID:   sessionID,
				WorkspaceID: "ws-a",
				UserID:      "user-1",
				DeviceID:    "dev-1",
				Status:      domain.DeviceStatusOnline,
			}, nil
		},
		TouchHeartbeatFunc: func(ctx context.Context, sessionID string, observed, now time.Time) (bool, bool, error) {
			return true, true, nil
		},
	}
	broadcaster := &recorderBroadcaster{}
	svc := newSessionService(repo, broadcaster)

	known, err := svc.RecordHeartbeat(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.True(t, known)

	require.Len(t, broadcaster.presence, 1)
	assert.Equal(t, domain.DeviceStatusOnline, broadcaster.presence[0].status.Status)
	assert.Equal(t, "ws-a", broadcaster.presence[0].workspaceID)
}

func TestSessionService_RecordHeartbeat_OnlineStaysQuiet(t *testing.T) {
	repo := &MockSessionRepository{
		FindBySessionIDFunc: func(ctx context.Context, sessionID string) (*domain.DeviceSession, error) {
			return &domain.DeviceSession{
				SessionID: sessionID,
				Status:    domain.DeviceStatusOnline,
			}, nil
		},
		TouchHeartbeatFunc: func(ctx context.Context, sessionID string, observed, now time.Time) (bool, bool, error) {
			return true, false, nil
		},
	}
	broadcaster := &recorderBroadcaster{}
	svc := newSessionService(repo, broadcaster)

	known, err := svc.RecordHeartbeat(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.True(t, known)
	assert.Empty(t, broadcaster.presence)
}

func TestSessionService_RecordHeartbeat_OfflineNotResurrected(t *testing.T) {
	touched := false
	repo := &MockSessionRepository{
		FindBySessionIDFunc: func(ctx context.Context, sessionID string) (*domain.DeviceSession, error) {
			return &domain.DeviceSession{
				SessionID: sessionID,
				Status:    domain.DeviceStatusOffline,
			}, nil
		},
		TouchHeartbeatFunc: func(ctx context.Context, sessionID string, observed, now time.Time) (bool, bool, error) {
			touched = true
			return false, false, nil
		},
	}
	broadcaster := &recorderBroadcaster{}
	svc := newSessionService(repo, broadcaster)

	known, err := svc.RecordHeartbeat(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.True(t, known)
	assert.False(t, touched)
	assert.Empty(t, broadcaster.presence)
}

func TestSessionService_RecordHeartbeat_LostRaceStaysQuiet(t *testing.T) {
	repo := &MockSessionRepository{
		FindBySessionIDFunc: func(ctx context.Context, sessionID string) (*domain.DeviceSession, error) {
			return &domain.DeviceSession{
				SessionID: sessionID,
				Status:    domain.DeviceStatusAway,
			}, nil
		},
		TouchHeartbeatFunc: func(ctx context.Context, sessionID string, observed, now time.Time) (bool, bool, error) {
			// Another writer moved the row between read and write
			return false, false, nil
		},
	}
	broadcaster := &recorderBroadcaster{}
	svc := newSessionService(repo, broadcaster)

	known, err := svc.RecordHeartbeat(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.True(t, known)
	assert.Empty(t, broadcaster.presence)
}

func TestSessionService_MarkOffline(t *testing.T) {
	repo := &MockSessionRepository{
		FindBySessionIDFunc: func(ctx context.Context, sessionID string) (*domain.DeviceSession, error) {
			return &domain.DeviceSession{
				SessionID:   sessionID,
				WorkspaceID: "ws-a",
				UserID:      "user-1",
				DeviceID:    "dev-1",
				Status:      domain.DeviceStatusOnline,
			}, nil
		},
		MarkOfflineFunc: func(ctx context.Context, sessionID string, now time.Time) (bool, error) {
			return true, nil
		},
	}
	broadcaster := &recorderBroadcaster{}
	svc := newSessionService(repo, broadcaster)

	require.NoError(t, svc.MarkOffline(context.Background(), "sess-1"))

	require.Len(t, broadcaster.presence, 1)
	assert.Equal(t, domain.DeviceStatusOffline, broadcaster.presence[0].status.Status)
}

func TestSessionService_MarkOffline_AlreadyOffline(t *testing.T) {
	repo := &MockSessionRepository{
		FindBySessionIDFunc: func(ctx context.Context, sessionID string) (*domain.DeviceSession, error) {
			return &domain.DeviceSession{
				SessionID: sessionID,
				Status:    domain.DeviceStatusOffline,
			}, nil
		},
		MarkOfflineFunc: func(ctx context.Context, sessionID string, now time.Time) (bool, error) {
			return false, nil
		},
	}
	broadcaster := &recorderBroadcaster{}
	svc := newSessionService(repo, broadcaster)

	require.NoError(t, svc.MarkOffline(context.Background(), "sess-1"))
	assert.Empty(t, broadcaster.presence)
}

func TestSessionService_MarkOffline_UnknownSessionIsBenign(t *testing.T) {
	repo := &MockSessionRepository{
		FindBySessionIDFunc: func(ctx context.Context, sessionID string) (*domain.DeviceSession, error) {
			return nil, gorm.ErrRecordNotFound
		},
	}
	broadcaster := &recorderBroadcaster{}
	svc := newSessionService(repo, broadcaster)

	require.NoError(t, svc.MarkOffline(context.Background(), "ghost"))
	assert.Empty(t, broadcaster.presence)
}
