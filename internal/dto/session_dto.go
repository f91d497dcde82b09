package dto

import (
	"time"

	"event-service/internal/domain"
)

type HeartbeatRequest struct {
	SessionID string `json:"sessionId" binding:"required"`
}

type LogoutRequest struct {
	SessionID string `json:"sessionId" binding:"required"`
}

type HeartbeatResponse struct {
	Acknowledged bool `json:"acknowledged"`
}

// SessionResponse is the wire shape of one device presence row.
type SessionResponse struct {
	SessionID       string     `json:"sessionId"`
	WorkspaceID     string     `json:"workspaceId"`
	UserID          string     `json:"userId"`
	DeviceID        string     `json:"deviceId"`
	DeviceName      string     `json:"deviceName,omitempty"`
	Status          string     `json:"status"`
	ConnectedAt     time.Time  `json:"connectedAt"`
	DisconnectedAt  *time.Time `json:"disconnectedAt,omitempty"`
	LastHeartbeatAt time.Time  `json:"lastHeartbeatAt"`
}

type SessionListResponse struct {
	Sessions   []SessionResponse `json:"sessions"`
	TotalCount int64             `json:"totalCount"`
	Page       int               `json:"page"`
	Limit      int               `json:"limit"`
}

type ActiveCountResponse struct {
	Count int64 `json:"count"`
}

func ToSessionResponse(session *domain.DeviceSession) SessionResponse {
	return SessionResponse{
		SessionID:       session.SessionID,
		WorkspaceID:     session.WorkspaceID,
		UserID:          session.UserID,
		DeviceID:        session.DeviceID,
		DeviceName:      session.DeviceName,
		Status:          string(session.Status),
		ConnectedAt:     session.ConnectedAt,
		DisconnectedAt:  session.DisconnectedAt,
		LastHeartbeatAt: session.LastHeartbeatAt,
	}
}

func ToSessionResponses(sessions []*domain.DeviceSession) []SessionResponse {
	responses := make([]SessionResponse, 0, len(sessions))
	for _, session := range sessions {
		responses = append(responses, ToSessionResponse(session))
	}
	return responses
}
