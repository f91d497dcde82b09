package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"event-service/internal/domain"
)

// EventRepository defines data access for the workspace event log
type EventRepository interface {
	Append(ctx context.Context, event *domain.WorkspaceEvent) error
	FindSince(ctx context.Context, workspaceID string, sinceSequence int64, limit int, excludeDeviceID string) ([]*domain.WorkspaceEvent, error)
	FindAll(ctx context.Context, workspaceID string, page, limit int) ([]*domain.WorkspaceEvent, int64, error)
	FindUnconsumed(ctx context.Context, workspaceID string, page, limit int) ([]*domain.WorkspaceEvent, int64, error)
	CountUnconsumed(ctx context.Context, workspaceID string) (int64, error)
	MarkConsumed(ctx context.Context, workspaceID string, eventID uuid.UUID) error
	MarkConsumedBatch(ctx context.Context, workspaceID string, eventIDs []uuid.UUID) error
	FindByEntity(ctx context.Context, workspaceID, entityType, entityID string, page, limit int) ([]*domain.WorkspaceEvent, int64, error)
	FindByType(ctx context.Context, workspaceID string, eventType domain.EventType, page, limit int) ([]*domain.WorkspaceEvent, int64, error)
}

type eventRepositoryImpl struct {
	db *gorm.DB
}

// NewEventRepository creates a new instance of EventRepository
func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepositoryImpl{db: db}
}

// Append assigns the next per-workspace sequence number and inserts the
// event in the same transaction. The counter upsert is a single atomic
// statement, so concurrent appenders for one workspace always get distinct,
// gap-free sequence numbers.
func (r *eventRepositoryImpl) Append(ctx context.Context, event *domain.WorkspaceEvent) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var next int64
		err := tx.Raw(`INSERT INTO workspace_event_sequences (workspace_id, last_value) VALUES (?, 1)
			ON CONFLICT (workspace_id) DO UPDATE SET last_value = workspace_event_sequences.last_value + 1
			RETURNING last_value`, event.WorkspaceID).Scan(&next).Error
		if err != nil {
			return err
		}

		event.Sequence = next
		if event.ID == uuid.Nil {
			event.ID = uuid.New()
		}
		if event.CreatedAt.IsZero() {
			event.CreatedAt = time.Now().UTC()
		}

		return tx.Create(event).Error
	})
}

// FindSince returns events with sequence > sinceSequence in ascending order,
// capped at limit. When excludeDeviceID is set, events originated by that
// device are filtered out so a device is not told to re-apply its own write.
func (r *eventRepositoryImpl) FindSince(ctx context.Context, workspaceID string, sinceSequence int64, limit int, excludeDeviceID string) ([]*domain.WorkspaceEvent, error) {
	var events []*domain.WorkspaceEvent

	query := r.db.WithContext(ctx).
		Where("workspace_id = ? AND sequence > ?", workspaceID, sinceSequence)
	if excludeDeviceID != "" {
		query = query.Where("origin_device_id <> ?", excludeDeviceID)
	}

	err := query.Order("sequence ASC").Limit(limit).Find(&events).Error
	return events, err
}

func (r *eventRepositoryImpl) FindAll(ctx context.Context, workspaceID string, page, limit int) ([]*domain.WorkspaceEvent, int64, error) {
	query := r.db.WithContext(ctx).Model(&domain.WorkspaceEvent{}).
		Where("workspace_id = ?", workspaceID)
	return r.paginate(query, page, limit)
}

func (r *eventRepositoryImpl) FindUnconsumed(ctx context.Context, workspaceID string, page, limit int) ([]*domain.WorkspaceEvent, int64, error) {
	query := r.db.WithContext(ctx).Model(&domain.WorkspaceEvent{}).
		Where("workspace_id = ? AND consumed = ?", workspaceID, false)
	return r.paginate(query, page, limit)
}

func (r *eventRepositoryImpl) CountUnconsumed(ctx context.Context, workspaceID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.WorkspaceEvent{}).
		Where("workspace_id = ? AND consumed = ?", workspaceID, false).
		Count(&count).Error
	return count, err
}

// MarkConsumed flags an event as consumed. Acknowledging an already
// consumed event is a no-op, not an error.
func (r *eventRepositoryImpl) MarkConsumed(ctx context.Context, workspaceID string, eventID uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&domain.WorkspaceEvent{}).
		Where("id = ? AND workspace_id = ?", eventID, workspaceID).
		Update("consumed", true).Error
}

func (r *eventRepositoryImpl) MarkConsumedBatch(ctx context.Context, workspaceID string, eventIDs []uuid.UUID) error {
	if len(eventIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&domain.WorkspaceEvent{}).
		Where("id IN ? AND workspace_id = ?", eventIDs, workspaceID).
		Update("consumed", true).Error
}

func (r *eventRepositoryImpl) FindByEntity(ctx context.Context, workspaceID, entityType, entityID string, page, limit int) ([]*domain.WorkspaceEvent, int64, error) {
	query := r.db.WithContext(ctx).Model(&domain.WorkspaceEvent{}).
		Where("workspace_id = ? AND entity_type = ? AND entity_id = ?", workspaceID, entityType, entityID)
	return r.paginate(query, page, limit)
}

func (r *eventRepositoryImpl) FindByType(ctx context.Context, workspaceID string, eventType domain.EventType, page, limit int) ([]*domain.WorkspaceEvent, int64, error) {
	query := r.db.WithContext(ctx).Model(&domain.WorkspaceEvent{}).
		Where("workspace_id = ? AND event_type = ?", workspaceID, eventType)
	return r.paginate(query, page, limit)
}

// paginate applies count + newest-first ordering for the listing endpoints.
// Catch-up queries go through FindSince instead, which orders ascending.
func (r *eventRepositoryImpl) paginate(query *gorm.DB, page, limit int) ([]*domain.WorkspaceEvent, int64, error) {
	var events []*domain.WorkspaceEvent
	var total int64

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("sequence DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&events).Error
	return events, total, err
}
