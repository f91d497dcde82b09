package service

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"event-service/internal/domain"
	"event-service/internal/metrics"
)

// Channel naming for per-workspace fan-out. Devices may only subscribe to
// their own workspace's channels; the hub enforces this at subscribe time.
const (
	statusChannelPrefix = "status:workspace:"
	eventChannelPrefix  = "events:workspace:"
)

func StatusChannel(workspaceID string) string {
	return statusChannelPrefix + workspaceID
}

func EventChannel(workspaceID string) string {
	return eventChannelPrefix + workspaceID
}

// Broadcaster publishes presence changes and new events onto per-workspace
// channels that connected devices are subscribed to.
type Broadcaster interface {
	BroadcastPresence(ctx context.Context, workspaceID string, status domain.PresenceBroadcast)
	BroadcastEvent(ctx context.Context, workspaceID string, event *domain.WorkspaceEvent)
}

type BroadcastService struct {
	redis   *redis.Client
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewBroadcastService(redisClient *redis.Client, m *metrics.Metrics, logger *zap.Logger) *BroadcastService {
	return &BroadcastService{
		redis:   redisClient,
		logger:  logger,
		metrics: m,
	}
}

// BroadcastPresence publishes a presence change to the workspace status
// channel. Publish failures are logged, never propagated: presence pushes
// are best effort and the durable session row stays authoritative.
func (s *BroadcastService) BroadcastPresence(ctx context.Context, workspaceID string, status domain.PresenceBroadcast) {
	if s.redis == nil {
		return
	}

	data, err := json.Marshal(map[string]interface{}{
		"type":       "DEVICE_STATUS",
		"userId":     status.UserID,
		"deviceId":   status.DeviceID,
		"status":     status.Status,
		"deviceName": status.DeviceName,
	})
	if err != nil {
		s.logger.Error("failed to marshal presence broadcast", zap.Error(err))
		return
	}

	if err := s.redis.Publish(ctx, StatusChannel(workspaceID), data).Err(); err != nil {
		s.logger.Error("failed to broadcast presence change",
			zap.String("workspaceId", workspaceID),
			zap.String("deviceId", status.DeviceID),
			zap.Error(err))
		return
	}

	if s.metrics != nil {
		s.metrics.PresenceBroadcastsTotal.WithLabelValues(string(status.Status)).Inc()
	}
}

// BroadcastEvent publishes a newly appended event to the workspace event
// channel for connected devices.
func (s *BroadcastService) BroadcastEvent(ctx context.Context, workspaceID string, event *domain.WorkspaceEvent) {
	if s.redis == nil {
		return
	}

	data, err := json.Marshal(map[string]interface{}{
		"type":  "WORKSPACE_EVENT",
		"event": event,
	})
	if err != nil {
		s.logger.Error("failed to marshal event broadcast", zap.Error(err))
		return
	}

	if err := s.redis.Publish(ctx, EventChannel(workspaceID), data).Err(); err != nil {
		s.logger.Error("failed to broadcast event",
			zap.String("workspaceId", workspaceID),
			zap.Int64("sequence", event.Sequence),
			zap.Error(err))
		return
	}

	if s.metrics != nil {
		s.metrics.EventBroadcastsTotal.Inc()
	}
}

// SubscribeStatus subscribes to a workspace's presence channel
func (s *BroadcastService) SubscribeStatus(ctx context.Context, workspaceID string) *redis.PubSub {
	if s.redis == nil {
		return nil
	}
	return s.redis.Subscribe(ctx, StatusChannel(workspaceID))
}

// SubscribeEvents subscribes to a workspace's event channel
func (s *BroadcastService) SubscribeEvents(ctx context.Context, workspaceID string) *redis.PubSub {
	if s.redis == nil {
		return nil
	}
	return s.redis.Subscribe(ctx, EventChannel(workspaceID))
}
