package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"event-service/internal/domain"
	"event-service/internal/dto"
	"event-service/internal/middleware"
	"event-service/internal/response"
	"event-service/internal/service"
)

// EventHandler handles event log requests
type EventHandler struct {
	eventService *service.EventService
	logger       *zap.Logger
}

// NewEventHandler creates a new EventHandler
func NewEventHandler(eventService *service.EventService, logger *zap.Logger) *EventHandler {
	return &EventHandler{
		eventService: eventService,
		logger:       logger,
	}
}

// SyncEvents godoc
// @Summary      Catch up on missed events
// @Description  Returns events after the given sequence number in ascending order
// @Tags         events
// @Produce      json
// @Param        since query int false "Last applied sequence number (default 0)"
// @Param        limit query int false "Max events to return"
// @Param        excludeDeviceId query string false "Suppress events originated by this device"
// @Success      200 {object} response.SuccessResponse{data=dto.SyncResponse}
// @Failure      400 {object} response.ErrorResponse
// @Router       /sync [get]
func (h *EventHandler) SyncEvents(c *gin.Context) {
	workspaceID := middleware.GetWorkspaceID(c)

	since, err := strconv.ParseInt(c.DefaultQuery("since", "0"), 10, 64)
	if err != nil || since < 0 {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Invalid since parameter")
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	excludeDeviceID := c.Query("excludeDeviceId")

	events, hasMore, err := h.eventService.GetSince(c.Request.Context(), workspaceID, since, limit, excludeDeviceID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	lastSequence := since
	if len(events) > 0 {
		lastSequence = events[len(events)-1].Sequence
	}

	response.SendSuccess(c, http.StatusOK, dto.SyncResponse{
		Events:       dto.ToEventResponses(events),
		LastSequence: lastSequence,
		HasMore:      hasMore,
	})
}

// ListEvents godoc
// @Summary      List workspace events
// @Tags         events
// @Produce      json
// @Param        page query int false "Page number"
// @Param        limit query int false "Page size"
// @Success      200 {object} response.SuccessResponse{data=dto.EventListResponse}
// @Router       / [get]
func (h *EventHandler) ListEvents(c *gin.Context) {
	workspaceID := middleware.GetWorkspaceID(c)
	page, limit := getPagination(c)

	events, total, err := h.eventService.GetEvents(c.Request.Context(), workspaceID, page, limit)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.SendSuccess(c, http.StatusOK, dto.EventListResponse{
		Events:     dto.ToEventResponses(events),
		TotalCount: total,
		Page:       page,
		Limit:      limit,
	})
}

// ListUnconsumed godoc
// @Summary      List unconsumed events
// @Tags         events
// @Produce      json
// @Success      200 {object} response.SuccessResponse{data=dto.EventListResponse}
// @Router       /unconsumed [get]
func (h *EventHandler) ListUnconsumed(c *gin.Context) {
	workspaceID := middleware.GetWorkspaceID(c)
	page, limit := getPagination(c)

	events, total, err := h.eventService.GetUnconsumed(c.Request.Context(), workspaceID, page, limit)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.SendSuccess(c, http.StatusOK, dto.EventListResponse{
		Events:     dto.ToEventResponses(events),
		TotalCount: total,
		Page:       page,
		Limit:      limit,
	})
}

// UnconsumedCount godoc
// @Summary      Count unconsumed events
// @Tags         events
// @Produce      json
// @Success      200 {object} response.SuccessResponse{data=dto.UnconsumedCountResponse}
// @Router       /unconsumed/count [get]
func (h *EventHandler) UnconsumedCount(c *gin.Context) {
	workspaceID := middleware.GetWorkspaceID(c)

	count, err := h.eventService.GetUnconsumedCount(c.Request.Context(), workspaceID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.SendSuccess(c, http.StatusOK, dto.UnconsumedCountResponse{Count: count})
}

// ConsumeEvent godoc
// @Summary      Acknowledge one event
// @Description  Marks an event consumed. Idempotent.
// @Tags         events
// @Produce      json
// @Param        id path string true "Event ID"
// @Success      200 {object} response.SuccessResponse
// @Failure      400 {object} response.ErrorResponse
// @Router       /{id}/consume [post]
func (h *EventHandler) ConsumeEvent(c *gin.Context) {
	workspaceID := middleware.GetWorkspaceID(c)

	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Invalid event ID")
		return
	}

	if err := h.eventService.Consume(c.Request.Context(), workspaceID, eventID); err != nil {
		handleServiceError(c, err)
		return
	}

	response.SendSuccess(c, http.StatusOK, nil)
}

// ConsumeEvents godoc
// @Summary      Acknowledge a batch of events
// @Tags         events
// @Accept       json
// @Produce      json
// @Param        request body dto.ConsumeEventsRequest true "Event IDs"
// @Success      200 {object} response.SuccessResponse
// @Failure      400 {object} response.ErrorResponse
// @Router       /consume [post]
func (h *EventHandler) ConsumeEvents(c *gin.Context) {
	workspaceID := middleware.GetWorkspaceID(c)

	var req dto.ConsumeEventsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Invalid request body")
		return
	}

	if err := h.eventService.ConsumeBatch(c.Request.Context(), workspaceID, req.EventIDs); err != nil {
		handleServiceError(c, err)
		return
	}

	response.SendSuccess(c, http.StatusOK, nil)
}

// ListByEntity godoc
// @Summary      List events for one entity
// @Tags         events
// @Produce      json
// @Param        entityType path string true "Entity type"
// @Param        entityId path string true "Entity ID"
// @Success      200 {object} response.SuccessResponse{data=dto.EventListResponse}
// @Router       /entity/{entityType}/{entityId} [get]
func (h *EventHandler) ListByEntity(c *gin.Context) {
	workspaceID := middleware.GetWorkspaceID(c)
	page, limit := getPagination(c)

	events, total, err := h.eventService.GetEventsByEntity(c.Request.Context(),
		workspaceID, c.Param("entityType"), c.Param("entityId"), page, limit)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.SendSuccess(c, http.StatusOK, dto.EventListResponse{
		Events:     dto.ToEventResponses(events),
		TotalCount: total,
		Page:       page,
		Limit:      limit,
	})
}

// ListByType godoc
// @Summary      List events of one type
// @Tags         events
// @Produce      json
// @Param        eventType path string true "Event type"
// @Success      200 {object} response.SuccessResponse{data=dto.EventListResponse}
// @Failure      400 {object} response.ErrorResponse
// @Router       /type/{eventType} [get]
func (h *EventHandler) ListByType(c *gin.Context) {
	workspaceID := middleware.GetWorkspaceID(c)
	page, limit := getPagination(c)

	eventType := domain.EventType(c.Param("eventType"))
	if !eventType.Valid() {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Unknown event type")
		return
	}

	events, total, err := h.eventService.GetEventsByType(c.Request.Context(), workspaceID, eventType, page, limit)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.SendSuccess(c, http.StatusOK, dto.EventListResponse{
		Events:     dto.ToEventResponses(events),
		TotalCount: total,
		Page:       page,
		Limit:      limit,
	})
}

// AppendEvent godoc
// @Summary      Append an event (internal)
// @Description  Called by sibling services after a successful write
// @Tags         internal
// @Accept       json
// @Produce      json
// @Param        request body dto.AppendEventRequest true "Event"
// @Success      201 {object} response.SuccessResponse{data=dto.EventResponse}
// @Failure      400 {object} response.ErrorResponse
// @Router       /internal/events [post]
func (h *EventHandler) AppendEvent(c *gin.Context) {
	var req dto.AppendEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Invalid request body")
		return
	}

	event, err := h.eventService.Append(c.Request.Context(), toAppendCommand(req))
	if err != nil {
		if !domain.EventType(req.EventType).Valid() {
			response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Unknown event type")
			return
		}
		handleServiceError(c, err)
		return
	}

	response.SendSuccess(c, http.StatusCreated, dto.ToEventResponse(event))
}

// AppendEvents godoc
// @Summary      Append events in bulk (internal)
// @Tags         internal
// @Accept       json
// @Produce      json
// @Param        request body dto.BulkAppendEventRequest true "Events"
// @Success      201 {object} response.SuccessResponse{data=[]dto.EventResponse}
// @Failure      400 {object} response.ErrorResponse
// @Router       /internal/events/bulk [post]
func (h *EventHandler) AppendEvents(c *gin.Context) {
	var req dto.BulkAppendEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Invalid request body")
		return
	}

	cmds := make([]service.AppendCommand, 0, len(req.Events))
	for _, e := range req.Events {
		if !domain.EventType(e.EventType).Valid() {
			response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Unknown event type: "+e.EventType)
			return
		}
		cmds = append(cmds, toAppendCommand(e))
	}

	events, err := h.eventService.AppendBatch(c.Request.Context(), cmds)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.SendSuccess(c, http.StatusCreated, dto.ToEventResponses(events))
}

func toAppendCommand(req dto.AppendEventRequest) service.AppendCommand {
	return service.AppendCommand{
		WorkspaceID:    req.WorkspaceID,
		EventType:      domain.EventType(req.EventType),
		EntityType:     req.EntityType,
		EntityID:       req.EntityID,
		UserID:         req.UserID,
		OriginDeviceID: req.DeviceID,
		Payload:        req.Payload,
	}
}
