package doselog

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/medtracker-api/internal/handler"
	"github.com/jwalitptl/medtracker-api/internal/model"
	doselogService "github.com/jwalitptl/medtracker-api/internal/service/doselog"
	apperrors "github.com/jwalitptl/medtracker-api/pkg/errors"
	"github.com/jwalitptl/medtracker-api/pkg/event"
	"github.com/jwalitptl/medtracker-api/pkg/httputil"
)

const msgFilterDates = "Both 'start' and 'end' query parameters are required and must be valid dates."

type Handler struct {
	service doselogService.DoseLogService
}

func NewHandler(service doselogService.DoseLogService) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	h.RegisterRoutesWithEvents(r, nil)
}

func (h *Handler) RegisterRoutesWithEvents(r *gin.RouterGroup, eventTracker *event.EventTrackerMiddleware) {
	logs := r.Group("/logs")
	{
		logs.POST("", eventTracker.TrackEvent("doselog", "create"), h.CreateDoseLog)
		logs.GET("", h.ListDoseLogs)
		// registered before /:id so the literal segment wins
		logs.GET("/filter", h.FilterDoseLogs)
		logs.GET("/:id", h.GetDoseLog)
		logs.DELETE("/:id", eventTracker.TrackEvent("doselog", "delete"), h.DeleteDoseLog)
	}
}

func (h *Handler) CreateDoseLog(c *gin.Context) {
	var req model.CreateDoseLogRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	l, err := h.service.CreateDoseLog(c.Request.Context(), &req)
	if err != nil {
		handler.Fail(c, err)
		return
	}

	event.Record(c, nil, l)
	c.JSON(http.StatusCreated, l)
}

// ListDoseLogs lists every log, or one medication's logs with
// ?medication_id=.
func (h *Handler) ListDoseLogs(c *gin.Context) {
	var medicationID *uuid.UUID
	if raw := c.Query("medication_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			httputil.RespondWithError(c, apperrors.Validation("medication_id must be a valid id", err))
			return
		}
		medicationID = &id
	}

	logs, err := h.service.ListDoseLogs(c.Request.Context(), medicationID)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, logs)
}

func (h *Handler) FilterDoseLogs(c *gin.Context) {
	start, okStart := handler.ParseDate(c.Query("start"))
	end, okEnd := handler.ParseDate(c.Query("end"))
	if !okStart || !okEnd {
		httputil.RespondWithError(c, apperrors.Precondition(msgFilterDates))
		return
	}

	logs, err := h.service.FilterDoseLogs(c.Request.Context(), start, end)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, logs)
}

func (h *Handler) GetDoseLog(c *gin.Context) {
	id, ok := handler.ParseID(c, "dose log")
	if !ok {
		return
	}

	l, err := h.service.GetDoseLog(c.Request.Context(), id)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, l)
}

func (h *Handler) DeleteDoseLog(c *gin.Context) {
	id, ok := handler.ParseID(c, "dose log")
	if !ok {
		return
	}

	deleted, err := h.service.DeleteDoseLog(c.Request.Context(), id)
	if err != nil {
		handler.Fail(c, err)
		return
	}

	event.Record(c, nil, deleted)
	c.Status(http.StatusNoContent)
}
