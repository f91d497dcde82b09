package websocket

import (
	"encoding/json"
	"fmt"
	"time"
)

// Inbound frame types accepted from devices.
const (
	FrameSubscribe  = "SUBSCRIBE"
	FrameHeartbeat  = "HEARTBEAT"
	FrameDisconnect = "DISCONNECT"
)

// Outbound frame types pushed to devices.
const (
	FrameConnected    = "CONNECTED"
	FrameEvent        = "WORKSPACE_EVENT"
	FrameDeviceStatus = "DEVICE_STATUS"
	FrameError        = "ERROR"
)

// WSFrame is the wire shape for both directions. Fields are populated per
// frame type; unknown inbound types are rejected by ParseFrame.
type WSFrame struct {
	Type        string                 `json:"type"`
	SessionID   string                 `json:"sessionId,omitempty"`
	WorkspaceID string                 `json:"workspaceId,omitempty"`
	UserID      string                 `json:"userId,omitempty"`
	DeviceID    string                 `json:"deviceId,omitempty"`
	Status      string                 `json:"status,omitempty"`
	Message     string                 `json:"message,omitempty"`
	Timestamp   time.Time              `json:"timestamp,omitempty"`
	Payload     map[string]interface{} `json:"payload,omitempty"`
}

// ParseFrame decodes an inbound client frame and validates its type and
// required fields.
func ParseFrame(data []byte) (*WSFrame, error) {
	var frame WSFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return nil, fmt.Errorf("malformed frame: %w", err)
	}

	switch frame.Type {
	case FrameSubscribe:
		if frame.WorkspaceID == "" {
			return nil, fmt.Errorf("SUBSCRIBE frame requires workspaceId")
		}
	case FrameHeartbeat:
		// sessionId is optional: the hub resolves identity from its own
		// directory entry and only falls back to the frame
	case FrameDisconnect:
		// no required fields
	case "":
		return nil, fmt.Errorf("frame type missing")
	default:
		return nil, fmt.Errorf("unknown frame type: %s", frame.Type)
	}

	return &frame, nil
}

func connectedFrame(sessionID, workspaceID string) []byte {
	data, _ := json.Marshal(WSFrame{
		Type:        FrameConnected,
		SessionID:   sessionID,
		WorkspaceID: workspaceID,
		Timestamp:   time.Now().UTC(),
	})
	return data
}

func errorFrame(message string) []byte {
	data, _ := json.Marshal(WSFrame{
		Type:      FrameError,
		Message:   message,
		Timestamp: time.Now().UTC(),
	})
	return data
}
