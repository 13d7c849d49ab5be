package medication

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/medtracker-api/internal/handler"
	"github.com/jwalitptl/medtracker-api/internal/middleware"
	"github.com/jwalitptl/medtracker-api/internal/model"
	medicationService "github.com/jwalitptl/medtracker-api/internal/service/medication"
	apperrors "github.com/jwalitptl/medtracker-api/pkg/errors"
	"github.com/jwalitptl/medtracker-api/pkg/event"
	"github.com/jwalitptl/medtracker-api/pkg/httputil"
)

const (
	msgDaysRequired = "The 'days' query parameter is required."
	msgDaysInvalid  = "The 'days' parameter must be a positive integer."
	msgPeriodDates  = "Both 'start' and 'end' query parameters are required and must be valid dates."
	msgDaysTooLarge = "The 'days' parameter must not exceed 3660000."

	// maxDays spans the whole representable calendar (years 1 to 9999).
	maxDays = 3660000
)

type Handler struct {
	service medicationService.MedicationService
	// infoMaxAge is advertised in Cache-Control on drug info responses.
	infoMaxAge time.Duration
}

func NewHandler(service medicationService.MedicationService, infoMaxAge time.Duration) *Handler {
	return &Handler{service: service, infoMaxAge: infoMaxAge}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	h.RegisterRoutesWithEvents(r, nil)
}

func (h *Handler) RegisterRoutesWithEvents(r *gin.RouterGroup, eventTracker *event.EventTrackerMiddleware) {
	medications := r.Group("/medications")
	{
		medications.POST("", eventTracker.TrackEvent("medication", "create"), h.CreateMedication)
		medications.GET("", h.ListMedications)
		medications.GET("/:id", h.GetMedication)
		medications.PUT("/:id", eventTracker.TrackEvent("medication", "update"), h.ReplaceMedication)
		medications.PATCH("/:id", eventTracker.TrackEvent("medication", "update"), h.UpdateMedication)
		medications.DELETE("/:id", eventTracker.TrackEvent("medication", "delete"), h.DeleteMedication)
		medications.GET("/:id/expected-doses", h.ExpectedDoses)
		medications.GET("/:id/info", middleware.CacheControl(h.infoMaxAge), h.GetExternalInfo)
		medications.GET("/:id/adherence", h.Adherence)
		medications.GET("/:id/adherence/period", h.PeriodAdherence)
		medications.GET("/:id/notes/recent", h.RecentNotes)
	}
}

func (h *Handler) CreateMedication(c *gin.Context) {
	var req model.CreateMedicationRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	m := &model.Medication{
		Name:             *req.Name,
		DosageMg:         *req.DosageMg,
		PrescribedPerDay: *req.PrescribedPerDay,
	}
	if err := h.service.CreateMedication(c.Request.Context(), m); err != nil {
		handler.Fail(c, err)
		return
	}

	event.Record(c, nil, m)
	c.JSON(http.StatusCreated, m)
}

func (h *Handler) ListMedications(c *gin.Context) {
	meds, err := h.service.ListMedications(c.Request.Context())
	if err != nil {
		handler.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, meds)
}

func (h *Handler) GetMedication(c *gin.Context) {
	id, ok := handler.ParseID(c, "medication")
	if !ok {
		return
	}

	m, err := h.service.GetMedication(c.Request.Context(), id)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

// ReplaceMedication handles PUT, which requires every field.
func (h *Handler) ReplaceMedication(c *gin.Context) {
	var req model.CreateMedicationRequest
	if !handler.BindJSON(c, &req) {
		return
	}
	h.update(c, &model.UpdateMedicationRequest{
		Name:             req.Name,
		DosageMg:         req.DosageMg,
		PrescribedPerDay: req.PrescribedPerDay,
	})
}

func (h *Handler) UpdateMedication(c *gin.Context) {
	var req model.UpdateMedicationRequest
	if !handler.BindJSON(c, &req) {
		return
	}
	h.update(c, &req)
}

func (h *Handler) update(c *gin.Context, req *model.UpdateMedicationRequest) {
	id, ok := handler.ParseID(c, "medication")
	if !ok {
		return
	}

	before, after, err := h.service.UpdateMedication(c.Request.Context(), id, req)
	if err != nil {
		handler.Fail(c, err)
		return
	}

	event.Record(c, before, after)
	c.JSON(http.StatusOK, after)
}

func (h *Handler) DeleteMedication(c *gin.Context) {
	id, ok := handler.ParseID(c, "medication")
	if !ok {
		return
	}

	deleted, err := h.service.DeleteMedication(c.Request.Context(), id)
	if err != nil {
		handler.Fail(c, err)
		return
	}

	event.Record(c, nil, deleted)
	c.Status(http.StatusNoContent)
}

func (h *Handler) ExpectedDoses(c *gin.Context) {
	id, ok := handler.ParseID(c, "medication")
	if !ok {
		return
	}

	raw := c.Query("days")
	if raw == "" {
		httputil.RespondWithError(c, apperrors.Precondition(msgDaysRequired))
		return
	}
	days, err := strconv.Atoi(raw)
	switch {
	case errors.Is(err, strconv.ErrRange) && !strings.HasPrefix(raw, "-"), err == nil && days > maxDays:
		httputil.RespondWithError(c, apperrors.Precondition(msgDaysTooLarge))
		return
	case err != nil || days <= 0:
		httputil.RespondWithError(c, apperrors.Precondition(msgDaysInvalid))
		return
	}

	resp, err := h.service.ExpectedDoses(c.Request.Context(), id, days)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetExternalInfo answers 502 with the lookup error when the drug service
// could not resolve the medication.
func (h *Handler) GetExternalInfo(c *gin.Context) {
	id, ok := handler.ParseID(c, "medication")
	if !ok {
		return
	}

	m, err := h.service.GetMedication(c.Request.Context(), id)
	if err != nil {
		handler.Fail(c, err)
		return
	}

	info := h.service.FetchExternalInfo(c.Request.Context(), m)
	if info.Failed() {
		c.Header("Cache-Control", "no-store")
		httputil.RespondWithStatus(c, http.StatusBadGateway, info.Error)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (h *Handler) Adherence(c *gin.Context) {
	id, ok := handler.ParseID(c, "medication")
	if !ok {
		return
	}

	summary, err := h.service.Adherence(c.Request.Context(), id)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *Handler) PeriodAdherence(c *gin.Context) {
	id, ok := handler.ParseID(c, "medication")
	if !ok {
		return
	}

	start, okStart := handler.ParseDate(c.Query("start"))
	end, okEnd := handler.ParseDate(c.Query("end"))
	if !okStart || !okEnd {
		httputil.RespondWithError(c, apperrors.Precondition(msgPeriodDates))
		return
	}

	p, err := h.service.PeriodAdherence(c.Request.Context(), id, start, end)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) RecentNotes(c *gin.Context) {
	id, ok := handler.ParseID(c, "medication")
	if !ok {
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			httputil.RespondWithError(c, apperrors.Precondition("limit must be a positive integer"))
			return
		}
		limit = n
	}

	texts, err := h.service.RecentNotes(c.Request.Context(), id, limit)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"medication_id": id.String(), "notes": texts})
}
