package event

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type emitted struct {
	eventType string
	payload   interface{}
}

type fakeService struct {
	events []emitted
	err    error
}

func (s *fakeService) Emit(ctx context.Context, eventType string, payload interface{}) error {
	s.events = append(s.events, emitted{eventType, payload})
	return s.err
}

type Meta struct {
	ID string `json:"id"`
}

type widget struct {
	Meta
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(tracker *EventTrackerMiddleware, status int, oldData, newData interface{}) {
	r := gin.New()
	r.POST("/w", tracker.TrackEvent("widget", "update"), func(c *gin.Context) {
		Record(c, oldData, newData)
		c.Status(status)
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/w", nil))
}

func TestTrackEvent_EmitsWithChanges(t *testing.T) {
	svc := &fakeService{}
	tracker := NewEventTrackerMiddleware(svc, true, map[string]ResourceConfig{
		"widget": {TrackedFields: []string{"name", "count"}},
	})

	serve(tracker, http.StatusOK, &widget{Name: "a", Count: 1}, &widget{Name: "b", Count: 1})

	require.Len(t, svc.events, 1)
	assert.Equal(t, "WIDGET_UPDATE", svc.events[0].eventType)
	payload := svc.events[0].payload.(map[string]interface{})
	changes := payload["changes"].(map[string]interface{})
	assert.Equal(t, map[string]interface{}{"old": "a", "new": "b"}, changes["name"])
	assert.NotContains(t, changes, "count")
}

func TestTrackEvent_SkipsFailedRequests(t *testing.T) {
	svc := &fakeService{}
	tracker := NewEventTrackerMiddleware(svc, true, nil)

	serve(tracker, http.StatusBadRequest, nil, &widget{Name: "a"})
	assert.Empty(t, svc.events)
}

func TestTrackEvent_Disabled(t *testing.T) {
	svc := &fakeService{}
	serve(NewEventTrackerMiddleware(svc, false, nil), http.StatusOK, nil, &widget{Name: "a"})
	serve(nil, http.StatusOK, nil, &widget{Name: "a"})
	assert.Empty(t, svc.events)
}

func TestTrackEvent_EmitErrorDoesNotFailRequest(t *testing.T) {
	svc := &fakeService{err: errors.New("db down")}
	tracker := NewEventTrackerMiddleware(svc, true, nil)

	r := gin.New()
	r.POST("/w", tracker.TrackEvent("widget", "create"), func(c *gin.Context) {
		Record(c, nil, &widget{Name: "a"})
		c.Status(http.StatusCreated)
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/w", nil))

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Len(t, svc.events, 1)
}

func TestExtractFields_DescendsIntoEmbedded(t *testing.T) {
	e := &DefaultFieldExtractor{}
	got := e.ExtractFields(&widget{Meta: Meta{ID: "x"}, Name: "n"}, []string{"id", "name"})
	assert.Equal(t, map[string]interface{}{"id": "x", "name": "n"}, got)

	var nilWidget *widget
	assert.Empty(t, e.ExtractFields(nilWidget, []string{"name"}))
}
