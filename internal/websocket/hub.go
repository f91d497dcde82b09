package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"event-service/internal/client"
	"event-service/internal/metrics"
	"event-service/internal/middleware"
	"event-service/internal/service"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192
)

var upgrader = websocket.Upgrader{
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Hub upgrades device connections, runs the handshake, and bridges the
// per-workspace Redis channels to live sockets. A connection is bound to
// exactly one workspace for its lifetime; subscribe requests for any other
// workspace are treated as security violations.
type Hub struct {
	directory       *Directory
	validator       middleware.TokenValidator
	workspaceClient client.WorkspaceClient
	sessionService  *service.SessionService
	broadcast       *service.BroadcastService
	metrics         *metrics.Metrics
	logger          *zap.Logger
}

func NewHub(
	validator middleware.TokenValidator,
	workspaceClient client.WorkspaceClient,
	sessionService *service.SessionService,
	broadcast *service.BroadcastService,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Hub {
	return &Hub{
		directory:       NewDirectory(),
		validator:       validator,
		workspaceClient: workspaceClient,
		sessionService:  sessionService,
		broadcast:       broadcast,
		metrics:         m,
		logger:          logger,
	}
}

// Directory exposes the live connection directory for health reporting.
func (h *Hub) Directory() *Directory {
	return h.directory
}

// HandleWebSocket godoc
// @Summary      WebSocket 연결
// @Description  디바이스를 워크스페이스 이벤트 스트림에 연결합니다
// @Tags         websocket
// @Param        token query string false "JWT Access Token"
// @Param        workspaceId query string true "Workspace ID"
// @Param        deviceId query string true "Device ID"
// @Success      101 {string} string "Switching Protocols"
// @Failure      401 {object} map[string]string
// @Router       /ws [get]
func (h *Hub) HandleWebSocket(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		authHeader := c.GetHeader("Authorization")
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && strings.ToLower(parts[0]) == "bearer" {
			token = parts[1]
		}
	}
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Token required"})
		return
	}

	workspaceID := c.Query("workspaceId")
	if workspaceID == "" {
		workspaceID = c.GetHeader(middleware.WorkspaceHeader)
	}
	if workspaceID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Workspace ID required"})
		return
	}

	deviceID := c.Query("deviceId")
	if deviceID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Device ID required"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	userID, err := h.validator.ValidateToken(ctx, token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return
	}

	isMember, err := h.workspaceClient.ValidateMember(ctx, workspaceID, userID.String(), token)
	if err != nil || !isMember {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not a workspace member"})
		return
	}

	wsConn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade connection", zap.Error(err))
		return
	}

	sessionID := uuid.New().String()
	deviceName := c.Request.UserAgent()

	if _, err := h.sessionService.MarkOnline(c.Request.Context(), workspaceID, userID.String(), deviceID, sessionID, deviceName); err != nil {
		h.logger.Error("Failed to register device session", zap.Error(err))
		wsConn.Close()
		return
	}

	device := &conn{
		sessionID:   sessionID,
		workspaceID: workspaceID,
		userID:      userID.String(),
		deviceID:    deviceID,
		send:        make(chan []byte, 256),
	}

	h.directory.add(device)
	if h.metrics != nil {
		h.metrics.WebsocketConnections.Inc()
	}

	h.logger.Info("Device connected",
		zap.String("workspaceId", workspaceID),
		zap.String("deviceId", deviceID),
		zap.String("sessionId", sessionID))

	device.send <- connectedFrame(sessionID, workspaceID)

	subCtx, subCancel := context.WithCancel(context.Background())
	go h.subscribeStatus(subCtx, device)
	go h.subscribeEvents(subCtx, device)
	go h.writePump(wsConn, device)
	h.readPump(wsConn, device, subCancel)
}

func (h *Hub) readPump(wsConn *websocket.Conn, device *conn, subCancel context.CancelFunc) {
	defer func() {
		subCancel()
		h.teardown(device)
		wsConn.Close()
	}()

	wsConn.SetReadLimit(maxMessageSize)
	wsConn.SetReadDeadline(time.Now().Add(pongWait))
	wsConn.SetPongHandler(func(string) error {
		wsConn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := wsConn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Error("WebSocket error", zap.Error(err))
			}
			return
		}

		frame, err := ParseFrame(message)
		if err != nil {
			h.logger.Warn("Rejected client frame", zap.Error(err))
			h.trySend(device, errorFrame(err.Error()))
			continue
		}

		if done := h.handleFrame(device, frame); done {
			return
		}
	}
}

// handleFrame processes one inbound frame. Returns true when the connection
// should close.
func (h *Hub) handleFrame(device *conn, frame *WSFrame) bool {
	ctx := context.Background()

	switch frame.Type {
	case FrameHeartbeat:
		// The directory entry is the authority on who is ticking; the
		// frame's sessionId is only a fallback. A stale id in the frame
		// must never evict the connection's healthy session.
		sessionID := device.sessionID
		if sessionID == "" {
			sessionID = frame.SessionID
		}
		known, err := h.sessionService.RecordHeartbeat(ctx, sessionID)
		if err != nil {
			h.logger.Error("Failed to record heartbeat",
				zap.String("sessionId", sessionID),
				zap.Error(err))
			return false
		}
		if !known {
			// Session row already purged: benign, but tell the device so
			// it can re-handshake. The connection stays open.
			h.logger.Warn("Heartbeat for unknown session",
				zap.String("sessionId", sessionID))
			h.trySend(device, errorFrame("unknown session, reconnect required"))
		}
		return false

	case FrameSubscribe:
		if frame.WorkspaceID != device.workspaceID {
			h.logger.Warn("Cross-workspace subscription rejected",
				zap.String("sessionId", device.sessionID),
				zap.String("boundWorkspaceId", device.workspaceID),
				zap.String("requestedWorkspaceId", frame.WorkspaceID),
				zap.String("userId", device.userID))
			if h.metrics != nil {
				h.metrics.SecurityViolationsTotal.Inc()
			}
			h.trySend(device, errorFrame("subscription denied"))
			return true
		}
		// Already subscribed at handshake; a matching SUBSCRIBE is a no-op.
		return false

	case FrameDisconnect:
		if err := h.sessionService.MarkOffline(ctx, device.sessionID); err != nil {
			h.logger.Error("Failed to mark session offline",
				zap.String("sessionId", device.sessionID),
				zap.Error(err))
		}
		return true
	}

	return false
}

func (h *Hub) writePump(wsConn *websocket.Conn, device *conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		wsConn.Close()
	}()

	for {
		select {
		case message, ok := <-device.send:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				wsConn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := wsConn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := wsConn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// teardown detaches the connection and marks the session OFFLINE. A dropped
// socket without a DISCONNECT frame counts as an explicit disconnect; the
// second pump to exit finds the connection already removed and does nothing.
func (h *Hub) teardown(device *conn) {
	if !h.directory.remove(device) {
		return
	}
	close(device.send)

	if h.metrics != nil {
		h.metrics.WebsocketConnections.Dec()
	}

	if err := h.sessionService.MarkOffline(context.Background(), device.sessionID); err != nil {
		h.logger.Error("Failed to mark session offline on teardown",
			zap.String("sessionId", device.sessionID),
			zap.Error(err))
	}

	h.logger.Info("Device disconnected",
		zap.String("workspaceId", device.workspaceID),
		zap.String("deviceId", device.deviceID),
		zap.String("sessionId", device.sessionID))
}

func (h *Hub) subscribeStatus(ctx context.Context, device *conn) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("Recovered from panic in status subscription",
				zap.Any("panic", r),
				zap.String("sessionId", device.sessionID))
		}
	}()

	pubsub := h.broadcast.SubscribeStatus(ctx, device.workspaceID)
	if pubsub == nil {
		h.logger.Warn("Redis pubsub not available, presence push disabled")
		return
	}
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.trySend(device, []byte(msg.Payload))
		case <-ctx.Done():
			return
		}
	}
}

func (h *Hub) subscribeEvents(ctx context.Context, device *conn) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("Recovered from panic in event subscription",
				zap.Any("panic", r),
				zap.String("sessionId", device.sessionID))
		}
	}()

	pubsub := h.broadcast.SubscribeEvents(ctx, device.workspaceID)
	if pubsub == nil {
		h.logger.Warn("Redis pubsub not available, event push disabled")
		return
	}
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if originOf([]byte(msg.Payload)) == device.deviceID {
				// The writing device already applied its own change.
				continue
			}
			h.trySend(device, []byte(msg.Payload))
		case <-ctx.Done():
			return
		}
	}
}

// originOf extracts the originating device id from a broadcast event payload.
func originOf(payload []byte) string {
	var envelope struct {
		Event struct {
			OriginDeviceID string `json:"originDeviceId"`
		} `json:"event"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return ""
	}
	return envelope.Event.OriginDeviceID
}

// trySend queues a message without blocking; slow consumers are skipped.
func (h *Hub) trySend(device *conn, message []byte) {
	defer func() {
		// send may race with teardown closing the channel
		recover()
	}()
	select {
	case device.send <- message:
	default:
	}
}
