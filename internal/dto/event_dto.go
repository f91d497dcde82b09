package dto

import (
	"time"

	"github.com/google/uuid"

	"event-service/internal/domain"
)

// AppendEventRequest is the payload for the internal append endpoint used by
// sibling services after a successful write.
type AppendEventRequest struct {
	WorkspaceID string `json:"workspaceId" binding:"required"`
	EventType   string `json:"eventType" binding:"required"`
	EntityType  string `json:"entityType" binding:"required"`
	EntityID    string `json:"entityId" binding:"required"`
	UserID      string `json:"userId"`
	DeviceID    string `json:"deviceId"`
	Payload     string `json:"payload"`
}

type BulkAppendEventRequest struct {
	Events []AppendEventRequest `json:"events" binding:"required,min=1,dive"`
}

type ConsumeEventsRequest struct {
	EventIDs []uuid.UUID `json:"eventIds" binding:"required,min=1"`
}

// EventResponse is the wire shape of a single log entry.
type EventResponse struct {
	ID             uuid.UUID `json:"id"`
	WorkspaceID    string    `json:"workspaceId"`
	Sequence       int64     `json:"sequence"`
	EventType      string    `json:"eventType"`
	EntityType     string    `json:"entityType"`
	EntityID       string    `json:"entityId"`
	UserID         string    `json:"userId,omitempty"`
	OriginDeviceID string    `json:"originDeviceId,omitempty"`
	Payload        string    `json:"payload,omitempty"`
	Consumed       bool      `json:"consumed"`
	CreatedAt      time.Time `json:"createdAt"`
}

// SyncResponse carries the ascending slice of events a device missed plus
// the cursor it should persist for the next catch-up.
type SyncResponse struct {
	Events       []EventResponse `json:"events"`
	LastSequence int64           `json:"lastSequence"`
	HasMore      bool            `json:"hasMore"`
}

type EventListResponse struct {
	Events     []EventResponse `json:"events"`
	TotalCount int64           `json:"totalCount"`
	Page       int             `json:"page"`
	Limit      int             `json:"limit"`
}

type UnconsumedCountResponse struct {
	Count int64 `json:"count"`
}

func ToEventResponse(event *domain.WorkspaceEvent) EventResponse {
	return EventResponse{
		ID:             event.ID,
		WorkspaceID:    event.WorkspaceID,
		Sequence:       event.Sequence,
		EventType:      string(event.EventType),
		EntityType:     event.EntityType,
		EntityID:       event.EntityID,
		UserID:         event.UserID,
		OriginDeviceID: event.OriginDeviceID,
		Payload:        event.Payload,
		Consumed:       event.Consumed,
		CreatedAt:      event.CreatedAt,
	}
}

func ToEventResponses(events []*domain.WorkspaceEvent) []EventResponse {
	responses := make([]EventResponse, 0, len(events))
	for _, event := range events {
		responses = append(responses, ToEventResponse(event))
	}
	return responses
}
