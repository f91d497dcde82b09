package domain

import (
	"time"
)

type DeviceStatus string

const (
	DeviceStatusOnline  DeviceStatus = "ONLINE"
	DeviceStatusAway    DeviceStatus = "AWAY"
	DeviceStatusOffline DeviceStatus = "OFFLINE"
)

// Staleness windows for the presence state machine
const (
	IdleThreshold  = 30 * time.Second
	StaleThreshold = 2 * time.Minute
)

// DeviceSession tracks one device's presence within a workspace.
// At most one row exists per (workspace, user, device); reconnecting
// replaces the session ID instead of creating a second row.
type DeviceSession struct {
	ID              uint         `gorm:"primaryKey;autoIncrement" json:"-"`
	SessionID       string       `gorm:"type:varchar(64);not null;index:idx_device_sessions_session_id" json:"sessionId"`
	WorkspaceID     string       `gorm:"type:varchar(64);not null;uniqueIndex:uq_device_sessions_wud,priority:1;index:idx_device_sessions_ws_status,priority:1" json:"workspaceId"`
	UserID          string       `gorm:"type:varchar(64);not null;uniqueIndex:uq_device_sessions_wud,priority:2" json:"userId"`
	DeviceID        string       `gorm:"type:varchar(64);not null;uniqueIndex:uq_device_sessions_wud,priority:3" json:"deviceId"`
	DeviceName      string       `gorm:"type:varchar(255)" json:"deviceName,omitempty"`
	Status          DeviceStatus `gorm:"type:varchar(20);not null;default:'ONLINE';index:idx_device_sessions_ws_status,priority:2" json:"status"`
	ConnectedAt     time.Time    `gorm:"not null" json:"connectedAt"`
	DisconnectedAt  *time.Time   `json:"disconnectedAt,omitempty"`
	LastHeartbeatAt time.Time    `gorm:"not null;index:idx_device_sessions_heartbeat" json:"lastHeartbeatAt"`
}

func (DeviceSession) TableName() string {
	return "device_sessions"
}

// IsIdle reports whether the session has missed heartbeats long enough
// to be considered AWAY, relative to now.
func (s *DeviceSession) IsIdle(now time.Time) bool {
	return now.Sub(s.LastHeartbeatAt) > IdleThreshold
}

// IsStale reports whether the session has missed heartbeats long enough
// to be considered OFFLINE, relative to now.
func (s *DeviceSession) IsStale(now time.Time) bool {
	return now.Sub(s.LastHeartbeatAt) > StaleThreshold
}

// PresenceBroadcast is the transient payload published to a workspace's
// status channel whenever a session changes state. Not persisted.
type PresenceBroadcast struct {
	UserID     string       `json:"userId"`
	DeviceID   string       `json:"deviceId"`
	Status     DeviceStatus `json:"status"`
	DeviceName string       `json:"deviceName,omitempty"`
}
