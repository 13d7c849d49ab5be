package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/medtracker-api/internal/handler/doselog"
	"github.com/jwalitptl/medtracker-api/internal/handler/health"
	"github.com/jwalitptl/medtracker-api/internal/handler/medication"
	"github.com/jwalitptl/medtracker-api/internal/handler/note"
	"github.com/jwalitptl/medtracker-api/internal/handler/prometheus"
	"github.com/jwalitptl/medtracker-api/internal/middleware"
	"github.com/jwalitptl/medtracker-api/internal/model"
	"github.com/jwalitptl/medtracker-api/internal/repository/memory"
	"github.com/jwalitptl/medtracker-api/internal/service/adherence"
	doselogService "github.com/jwalitptl/medtracker-api/internal/service/doselog"
	eventService "github.com/jwalitptl/medtracker-api/internal/service/event"
	medicationService "github.com/jwalitptl/medtracker-api/internal/service/medication"
	noteService "github.com/jwalitptl/medtracker-api/internal/service/note"
	apperrors "github.com/jwalitptl/medtracker-api/pkg/errors"
	"github.com/jwalitptl/medtracker-api/pkg/event"
)

type offlineGateway struct{}

func (offlineGateway) GetDrugInfo(ctx context.Context, name string) (*model.DrugInfo, error) {
	return nil, apperrors.Upstream("Error fetching data from OpenFDA", nil)
}

type failingPinger struct{}

func (failingPinger) Ping(ctx context.Context) error { return errors.New("connection refused") }

func newTestRouter(t *testing.T, checks ...health.Check) (*gin.Engine, *memory.Store) {
	t.Helper()

	store := memory.NewStore()
	engine := adherence.NewEngine(time.UTC)
	tracker := event.NewEventTrackerMiddleware(eventService.NewEventService(store.Outbox()), true, nil)

	if len(checks) == 0 {
		checks = []health.Check{{Name: "storage", Pinger: store}}
	}

	r := NewRouter(
		medication.NewHandler(medicationService.NewService(store.Medications(), store.DoseLogs(), store.Notes(), offlineGateway{}, engine, time.Second), time.Hour),
		doselog.NewHandler(doselogService.NewService(store.DoseLogs(), engine)),
		note.NewHandler(noteService.NewService(store.Notes())),
		health.NewHandler(checks...),
		prometheus.New("test"),
		tracker,
		RouterConfig{
			Mode:           gin.TestMode,
			RequestTimeout: 5 * time.Second,
			MaxBodyBytes:   1 << 20,
			CORSConfig:     middleware.DefaultCORSConfig(),
		},
	)
	r.Setup()
	return r.Engine(), store
}

func serve(e *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	e, _ := newTestRouter(t)

	w := serve(e, http.MethodGet, "/api/v1/health/live", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"UP"}`, w.Body.String())

	w = serve(e, http.MethodGet, "/api/v1/health/ready", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHealth_NotReady(t *testing.T) {
	e, _ := newTestRouter(t, health.Check{Name: "database", Pinger: failingPinger{}})

	w := serve(e, http.MethodGet, "/api/v1/health/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status":"DOWN","reason":"database unavailable"}`, w.Body.String())
}

func TestEndToEnd(t *testing.T) {
	e, store := newTestRouter(t)

	w := serve(e, http.MethodPost, "/api/v1/medications", `{"name":"Aspirin","dosage_mg":100,"prescribed_per_day":2}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(middleware.HeaderXRequestID))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	meds, err := store.Medications().List(context.Background())
	require.NoError(t, err)
	require.Len(t, meds, 1)
	id := meds[0].ID.String()

	w = serve(e, http.MethodPost, "/api/v1/logs", `{"medication":"`+id+`","taken_at":"2025-11-10T08:00:00Z","was_taken":true}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = serve(e, http.MethodGet, "/api/v1/medications/"+id+"/info", "")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.JSONEq(t, `{"error":"Error fetching data from OpenFDA"}`, w.Body.String())

	w = serve(e, http.MethodGet, "/api/v1/medications/"+id+"/adherence", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"adherence_rate":100`)

	events, err := store.Outbox().GetPendingEvents(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestMethodNotAllowedAndNoRoute(t *testing.T) {
	e, _ := newTestRouter(t)

	w := serve(e, http.MethodPut, "/api/v1/logs/"+"00000000-0000-0000-0000-000000000000", `{}`)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.JSONEq(t, `{"error":"method not allowed"}`, w.Body.String())

	w = serve(e, http.MethodGet, "/api/v1/prescriptions", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"resource not found"}`, w.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	e, _ := newTestRouter(t)

	serve(e, http.MethodGet, "/api/v1/medications", "")
	w := serve(e, http.MethodGet, "/api/v1/health/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `test_http_requests_total{method="GET",path="/api/v1/medications",status="200"} 1`)
}
