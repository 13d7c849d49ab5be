package note

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/medtracker-api/internal/handler"
	"github.com/jwalitptl/medtracker-api/internal/model"
	noteService "github.com/jwalitptl/medtracker-api/internal/service/note"
	"github.com/jwalitptl/medtracker-api/pkg/event"
)

type Handler struct {
	service noteService.NoteService
}

func NewHandler(service noteService.NoteService) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	h.RegisterRoutesWithEvents(r, nil)
}

func (h *Handler) RegisterRoutesWithEvents(r *gin.RouterGroup, eventTracker *event.EventTrackerMiddleware) {
	notes := r.Group("/notes")
	{
		notes.POST("", eventTracker.TrackEvent("note", "create"), h.CreateNote)
		notes.GET("", h.ListNotes)
		notes.GET("/:id", h.GetNote)
		notes.PUT("/:id", h.UpdateNote)
		notes.PATCH("/:id", h.UpdateNote)
		notes.DELETE("/:id", eventTracker.TrackEvent("note", "delete"), h.DeleteNote)
	}
}

func (h *Handler) CreateNote(c *gin.Context) {
	var req model.CreateNoteRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	n, err := h.service.CreateNote(c.Request.Context(), &req)
	if err != nil {
		handler.Fail(c, err)
		return
	}

	event.Record(c, nil, n)
	c.JSON(http.StatusCreated, n)
}

// ListNotes supports ?search= on the medication name.
func (h *Handler) ListNotes(c *gin.Context) {
	notes, err := h.service.ListNotes(c.Request.Context(), c.Query("search"))
	if err != nil {
		handler.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, notes)
}

func (h *Handler) GetNote(c *gin.Context) {
	id, ok := handler.ParseID(c, "note")
	if !ok {
		return
	}

	n, err := h.service.GetNote(c.Request.Context(), id)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, n)
}

// UpdateNote rejects PUT and PATCH alike. The body is never read.
func (h *Handler) UpdateNote(c *gin.Context) {
	id, _ := uuid.Parse(c.Param("id"))
	handler.Fail(c, h.service.UpdateNote(c.Request.Context(), id))
}

func (h *Handler) DeleteNote(c *gin.Context) {
	id, ok := handler.ParseID(c, "note")
	if !ok {
		return
	}

	deleted, err := h.service.DeleteNote(c.Request.Context(), id)
	if err != nil {
		handler.Fail(c, err)
		return
	}

	event.Record(c, nil, deleted)
	c.Status(http.StatusNoContent)
}
