package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"event-service/internal/dto"
	"event-service/internal/middleware"
	"event-service/internal/response"
	"event-service/internal/service"
)

// SessionHandler handles device presence requests
type SessionHandler struct {
	sessionService *service.SessionService
	logger         *zap.Logger
}

// NewSessionHandler creates a new SessionHandler
func NewSessionHandler(sessionService *service.SessionService, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{
		sessionService: sessionService,
		logger:         logger,
	}
}

// ListActive godoc
// @Summary      List active device sessions
// @Description  Returns ONLINE and AWAY sessions in the workspace
// @Tags         sessions
// @Produce      json
// @Success      200 {object} response.SuccessResponse{data=dto.SessionListResponse}
// @Router       /sessions/active [get]
func (h *SessionHandler) ListActive(c *gin.Context) {
	workspaceID := middleware.GetWorkspaceID(c)
	page, limit := getPagination(c)

	sessions, total, err := h.sessionService.GetActiveSessions(c.Request.Context(), workspaceID, page, limit)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.SendSuccess(c, http.StatusOK, dto.SessionListResponse{
		Sessions:   dto.ToSessionResponses(sessions),
		TotalCount: total,
		Page:       page,
		Limit:      limit,
	})
}

// ActiveCount godoc
// @Summary      Count active device sessions
// @Tags         sessions
// @Produce      json
// @Success      200 {object} response.SuccessResponse{data=dto.ActiveCountResponse}
// @Router       /sessions/active/count [get]
func (h *SessionHandler) ActiveCount(c *gin.Context) {
	workspaceID := middleware.GetWorkspaceID(c)

	count, err := h.sessionService.CountActive(c.Request.Context(), workspaceID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.SendSuccess(c, http.StatusOK, dto.ActiveCountResponse{Count: count})
}

// ListByUser godoc
// @Summary      List a user's active sessions
// @Tags         sessions
// @Produce      json
// @Param        userId path string true "User ID"
// @Success      200 {object} response.SuccessResponse{data=dto.SessionListResponse}
// @Router       /sessions/user/{userId} [get]
func (h *SessionHandler) ListByUser(c *gin.Context) {
	workspaceID := middleware.GetWorkspaceID(c)
	page, limit := getPagination(c)

	sessions, total, err := h.sessionService.GetActiveSessionsByUser(c.Request.Context(),
		workspaceID, c.Param("userId"), page, limit)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.SendSuccess(c, http.StatusOK, dto.SessionListResponse{
		Sessions:   dto.ToSessionResponses(sessions),
		TotalCount: total,
		Page:       page,
		Limit:      limit,
	})
}

// Heartbeat godoc
// @Summary      Record a device heartbeat
// @Description  Fallback for clients without a live websocket. acknowledged=false means the session is unknown and the device must re-handshake.
// @Tags         sessions
// @Accept       json
// @Produce      json
// @Param        request body dto.HeartbeatRequest true "Session ID"
// @Success      200 {object} response.SuccessResponse{data=dto.HeartbeatResponse}
// @Failure      400 {object} response.ErrorResponse
// @Router       /sessions/heartbeat [post]
func (h *SessionHandler) Heartbeat(c *gin.Context) {
	var req dto.HeartbeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Invalid request body")
		return
	}

	known, err := h.sessionService.RecordHeartbeat(c.Request.Context(), req.SessionID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.SendSuccess(c, http.StatusOK, dto.HeartbeatResponse{Acknowledged: known})
}

// Logout godoc
// @Summary      Mark a session offline
// @Description  Explicit logout; the session transitions to OFFLINE and the change is broadcast.
// @Tags         sessions
// @Accept       json
// @Produce      json
// @Param        request body dto.LogoutRequest true "Session ID"
// @Success      200 {object} response.SuccessResponse
// @Failure      400 {object} response.ErrorResponse
// @Router       /sessions/logout [post]
func (h *SessionHandler) Logout(c *gin.Context) {
	var req dto.LogoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Invalid request body")
		return
	}

	if err := h.sessionService.MarkOffline(c.Request.Context(), req.SessionID); err != nil {
		handleServiceError(c, err)
		return
	}

	response.SendSuccess(c, http.StatusOK, nil)
}
