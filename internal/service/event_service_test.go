package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"event-service/internal/config"
	"event-service/internal/domain"
	"event-service/internal/response"
)

func newEventService(repo *MockEventRepository, broadcaster *recorderBroadcaster) *EventService {
	cfg := &config.Config{}
	cfg.App.SyncDefaultLimit = 100
	cfg.App.SyncMaxLimit = 500
	return NewEventService(repo, broadcaster, nil, cfg, nil, zap.NewNop())
}

func TestEventService_Append_BroadcastsAfterPersist(t *testing.T) {
	repo := &MockEventRepository{
		AppendFunc: func(ctx context.Context, event *domain.WorkspaceEvent) error {
			event.ID = uuid.New()
			event.Sequence = 7
			return nil
		},
	}
	broadcaster := &recorderBroadcaster{}
	svc := newEventService(repo, broadcaster)

	event, err := svc.Append(context.Background(), AppendCommand{
		WorkspaceID:    "ws-a",
		EventType:      domain.EventInvoicePaid,
		EntityType:     "INVOICE",
		EntityID:       "inv-1",
		OriginDeviceID: "dev-1",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(7), event.Sequence)
	require.Len(t, broadcaster.events, 1)
	assert.Equal(t, event, broadcaster.events[0])
}

func TestEventService_Append_PersistFailureIsReturned(t *testing.T) {
	repo := &MockEventRepository{
		AppendFunc: func(ctx context.Context, event *domain.WorkspaceEvent) error {
			return errors.New("connection refused")
		},
	}
	broadcaster := &recorderBroadcaster{}
	svc := newEventService(repo, broadcaster)

	_, err := svc.Append(context.Background(), AppendCommand{
		WorkspaceID: "ws-a",
		EventType:   domain.EventOrderCreated,
		EntityType:  "ORDER",
		EntityID:    "order-1",
	})
	require.Error(t, err)

	// Nothing is broadcast for an event that was never persisted
	assert.Empty(t, broadcaster.events)
}

func TestEventService_Append_RejectsUnknownType(t *testing.T) {
	called := false
	repo := &MockEventRepository{
		AppendFunc: func(ctx context.Context, event *domain.WorkspaceEvent) error {
			called = true
			return nil
		},
	}
	svc := newEventService(repo, &recorderBroadcaster{})

	_, err := svc.Append(context.Background(), AppendCommand{
		WorkspaceID: "ws-a",
		EventType:   "SOMETHING_ELSE",
		EntityType:  "ORDER",
		EntityID:    "order-1",
	})
	require.Error(t, err)
	assert.False(t, called)

	// The rejection carries a validation code so handlers answer 400
	var appErr *response.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, response.ErrCodeValidation, appErr.Code)
}

func TestEventService_GetSince_ClampsLimit(t *testing.T) {
	var gotLimit int
	repo := &MockEventRepository{
		FindSinceFunc: func(ctx context.Context, workspaceID string, since int64, limit int, exclude string) ([]*domain.WorkspaceEvent, error) {
			gotLimit = limit
			return nil, nil
		},
	}
	svc := newEventService(repo, &recorderBroadcaster{})
	ctx := context.Background()

	// Zero limit falls back to the default (plus the look-ahead row)
	_, _, err := svc.GetSince(ctx, "ws-a", 0, 0, "")
	require.NoError(t, err)
	assert.Equal(t, 101, gotLimit)

	// Oversized limit is clamped to the max
	_, _, err = svc.GetSince(ctx, "ws-a", 0, 9999, "")
	require.NoError(t, err)
	assert.Equal(t, 501, gotLimit)

	// In-range limit passes through
	_, _, err = svc.GetSince(ctx, "ws-a", 0, 50, "")
	require.NoError(t, err)
	assert.Equal(t, 51, gotLimit)
}

func TestEventService_GetSince_HasMore(t *testing.T) {
	events := []*domain.WorkspaceEvent{
		{Sequence: 1}, {Sequence: 2}, {Sequence: 3},
	}
	repo := &MockEventRepository{
		FindSinceFunc: func(ctx context.Context, workspaceID string, since int64, limit int, exclude string) ([]*domain.WorkspaceEvent, error) {
			if limit < len(events) {
				return events[:limit], nil
			}
			return events, nil
		},
	}
	svc := newEventService(repo, &recorderBroadcaster{})
	ctx := context.Background()

	page, hasMore, err := svc.GetSince(ctx, "ws-a", 0, 2, "")
	require.NoError(t, err)
	assert.Len(t, page, 2)
	assert.True(t, hasMore)

	page, hasMore, err = svc.GetSince(ctx, "ws-a", 0, 3, "")
	require.NoError(t, err)
	assert.Len(t, page, 3)
	assert.False(t, hasMore)
}

func TestEventService_Consume_DelegatesToRepo(t *testing.T) {
	var consumed uuid.UUID
	repo := &MockEventRepository{
		MarkConsumedFunc: func(ctx context.Context, workspaceID string, eventID uuid.UUID) error {
			assert.Equal(t, "ws-a", workspaceID)
			consumed = eventID
			return nil
		},
	}
	svc := newEventService(repo, &recorderBroadcaster{})

	id := uuid.New()
	require.NoError(t, svc.Consume(context.Background(), "ws-a", id))
	assert.Equal(t, id, consumed)
}

func TestEventService_GetUnconsumedCount_NoCacheFallsThrough(t *testing.T) {
	repo := &MockEventRepository{
		CountUnconsumedFunc: func(ctx context.Context, workspaceID string) (int64, error) {
			return 42, nil
		},
	}
	svc := newEventService(repo, &recorderBroadcaster{})

	count, err := svc.GetUnconsumedCount(context.Background(), "ws-a")
	require.NoError(t, err)
	assert.Equal(t, int64(42), count)
}
