package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"event-service/internal/config"
	"event-service/internal/domain"
	"event-service/internal/metrics"
	"event-service/internal/repository"
	"event-service/internal/response"
)

// AppendCommand carries one fact to be appended to a workspace's log.
type AppendCommand struct {
	WorkspaceID    string
	EventType      domain.EventType
	EntityType     string
	EntityID       string
	UserID         string
	OriginDeviceID string
	Payload        string
}

// EventService owns the append-only workspace event log. Append is the only
// write path; every successful append is followed by a best-effort broadcast
// so connected devices learn about the change without polling.
type EventService struct {
	repo        repository.EventRepository
	broadcaster Broadcaster
	redis       *redis.Client
	cfg         *config.Config
	metrics     *metrics.Metrics
	logger      *zap.Logger
}

func NewEventService(
	repo repository.EventRepository,
	broadcaster Broadcaster,
	redisClient *redis.Client,
	cfg *config.Config,
	m *metrics.Metrics,
	logger *zap.Logger,
) *EventService {
	return &EventService{
		repo:        repo,
		broadcaster: broadcaster,
		redis:       redisClient,
		cfg:         cfg,
		metrics:     m,
		logger:      logger,
	}
}

// Append persists the event with the next sequence number for its workspace
// and broadcasts it. Persistence errors are returned to the caller so the
// originating write can be surfaced as failed; only the broadcast after a
// successful insert is fire-and-forget.
func (s *EventService) Append(ctx context.Context, cmd AppendCommand) (*domain.WorkspaceEvent, error) {
	if !cmd.EventType.Valid() {
		return nil, response.NewAppError(response.ErrCodeValidation, "unknown event type", string(cmd.EventType))
	}

	event := &domain.WorkspaceEvent{
		WorkspaceID:    cmd.WorkspaceID,
		EventType:      cmd.EventType,
		EntityType:     cmd.EntityType,
		EntityID:       cmd.EntityID,
		UserID:         cmd.UserID,
		OriginDeviceID: cmd.OriginDeviceID,
		Payload:        cmd.Payload,
	}

	if err := s.repo.Append(ctx, event); err != nil {
		s.logger.Error("failed to append event",
			zap.String("workspaceId", cmd.WorkspaceID),
			zap.String("eventType", string(cmd.EventType)),
			zap.Error(err))
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.EventsAppendedTotal.WithLabelValues(string(event.EventType)).Inc()
	}

	s.invalidateUnconsumedCache(ctx, cmd.WorkspaceID)
	s.broadcaster.BroadcastEvent(ctx, cmd.WorkspaceID, event)

	return event, nil
}

// AppendBatch appends events in order, stopping at the first failure.
func (s *EventService) AppendBatch(ctx context.Context, cmds []AppendCommand) ([]*domain.WorkspaceEvent, error) {
	events := make([]*domain.WorkspaceEvent, 0, len(cmds))
	for _, cmd := range cmds {
		event, err := s.Append(ctx, cmd)
		if err != nil {
			return events, err
		}
		events = append(events, event)
	}
	return events, nil
}

// GetSince returns events after the given sequence in ascending order. The
// limit is clamped to the configured maximum; hasMore tells the device to
// come back with the new cursor.
func (s *EventService) GetSince(ctx context.Context, workspaceID string, sinceSequence int64, limit int, excludeDeviceID string) ([]*domain.WorkspaceEvent, bool, error) {
	if limit <= 0 {
		limit = s.cfg.App.SyncDefaultLimit
	}
	if limit > s.cfg.App.SyncMaxLimit {
		limit = s.cfg.App.SyncMaxLimit
	}

	// Fetch one extra row to detect whether a further page exists.
	events, err := s.repo.FindSince(ctx, workspaceID, sinceSequence, limit+1, excludeDeviceID)
	if err != nil {
		return nil, false, err
	}

	hasMore := len(events) > limit
	if hasMore {
		events = events[:limit]
	}
	return events, hasMore, nil
}

func (s *EventService) GetEvents(ctx context.Context, workspaceID string, page, limit int) ([]*domain.WorkspaceEvent, int64, error) {
	return s.repo.FindAll(ctx, workspaceID, page, limit)
}

func (s *EventService) GetUnconsumed(ctx context.Context, workspaceID string, page, limit int) ([]*domain.WorkspaceEvent, int64, error) {
	return s.repo.FindUnconsumed(ctx, workspaceID, page, limit)
}

// GetUnconsumedCount serves the badge counter, cached briefly in Redis. The
// count is advisory; sequence-based catch-up stays the authority on what a
// device has or has not seen.
func (s *EventService) GetUnconsumedCount(ctx context.Context, workspaceID string) (int64, error) {
	cacheKey := s.unconsumedCacheKey(workspaceID)

	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, cacheKey).Result(); err == nil {
			if count, err := strconv.ParseInt(cached, 10, 64); err == nil {
				return count, nil
			}
		}
	}

	count, err := s.repo.CountUnconsumed(ctx, workspaceID)
	if err != nil {
		return 0, err
	}

	if s.redis != nil {
		ttl := time.Duration(s.cfg.App.CacheUnconsumedTTL) * time.Second
		if err := s.redis.Set(ctx, cacheKey, strconv.FormatInt(count, 10), ttl).Err(); err != nil {
			s.logger.Debug("failed to cache unconsumed count", zap.Error(err))
		}
	}

	return count, nil
}

// Consume marks a single event consumed. Idempotent: re-acknowledging is
// not an error.
func (s *EventService) Consume(ctx context.Context, workspaceID string, eventID uuid.UUID) error {
	if err := s.repo.MarkConsumed(ctx, workspaceID, eventID); err != nil {
		return err
	}
	s.invalidateUnconsumedCache(ctx, workspaceID)
	return nil
}

func (s *EventService) ConsumeBatch(ctx context.Context, workspaceID string, eventIDs []uuid.UUID) error {
	if err := s.repo.MarkConsumedBatch(ctx, workspaceID, eventIDs); err != nil {
		return err
	}
	s.invalidateUnconsumedCache(ctx, workspaceID)
	return nil
}

func (s *EventService) GetEventsByEntity(ctx context.Context, workspaceID, entityType, entityID string, page, limit int) ([]*domain.WorkspaceEvent, int64, error) {
	return s.repo.FindByEntity(ctx, workspaceID, entityType, entityID, page, limit)
}

func (s *EventService) GetEventsByType(ctx context.Context, workspaceID string, eventType domain.EventType, page, limit int) ([]*domain.WorkspaceEvent, int64, error) {
	return s.repo.FindByType(ctx, workspaceID, eventType, page, limit)
}

func (s *EventService) unconsumedCacheKey(workspaceID string) string {
	return fmt.Sprintf("unconsumed:%s", workspaceID)
}

func (s *EventService) invalidateUnconsumedCache(ctx context.Context, workspaceID string) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, s.unconsumedCacheKey(workspaceID)).Err(); err != nil {
		s.logger.Debug("failed to invalidate unconsumed count cache", zap.Error(err))
	}
}
