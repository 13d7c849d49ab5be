package doselog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/medtracker-api/internal/middleware"
	"github.com/jwalitptl/medtracker-api/internal/model"
	"github.com/jwalitptl/medtracker-api/internal/repository/memory"
	"github.com/jwalitptl/medtracker-api/internal/service/adherence"
	doselogService "github.com/jwalitptl/medtracker-api/internal/service/doselog"
	eventService "github.com/jwalitptl/medtracker-api/internal/service/event"
	"github.com/jwalitptl/medtracker-api/pkg/event"
)

func setup(t *testing.T) (*gin.Engine, *memory.Store, *model.Medication) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewStore()
	med := &model.Medication{Name: "Aspirin", DosageMg: 100, PrescribedPerDay: 2}
	med.ID = uuid.New()
	require.NoError(t, store.Medications().Create(context.Background(), med))

	tracker := event.NewEventTrackerMiddleware(eventService.NewEventService(store.Outbox()), true, nil)
	svc := doselogService.NewService(store.DoseLogs(), adherence.NewEngine(time.UTC))

	r := gin.New()
	r.Use(middleware.ErrorHandler())
	NewHandler(svc).RegisterRoutesWithEvents(r.Group("/api/v1"), tracker)
	return r, store, med
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateDoseLog(t *testing.T) {
	r, store, med := setup(t)

	w := do(r, http.MethodPost, "/api/v1/logs", `{"medication":"`+med.ID.String()+`","taken_at":"2025-11-10T08:00:00Z"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var l model.DoseLog
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &l))
	assert.Equal(t, med.ID, l.MedicationID)
	assert.True(t, l.WasTaken)

	events, err := store.Outbox().GetPendingEvents(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "DOSELOG_CREATE", events[0].EventType)
}

func TestCreateDoseLog_Invalid(t *testing.T) {
	r, store, med := setup(t)

	cases := map[string]string{
		"unknown medication": `{"medication":"` + uuid.NewString() + `","taken_at":"2025-11-10T08:00:00Z"}`,
		"bad medication id":  `{"medication":"7","taken_at":"2025-11-10T08:00:00Z"}`,
		"missing taken_at":   `{"medication":"` + med.ID.String() + `"}`,
		"bad taken_at":       `{"medication":"` + med.ID.String() + `","taken_at":"yesterday"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			w := do(r, http.MethodPost, "/api/v1/logs", body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}

	events, err := store.Outbox().GetPendingEvents(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestFilterDoseLogs(t *testing.T) {
	r, store, med := setup(t)
	ctx := context.Background()
	for _, at := range []string{"2025-11-09T23:59:59Z", "2025-11-10T00:00:00Z", "2025-11-11T23:59:59Z", "2025-11-12T00:00:00Z"} {
		ts, err := time.Parse(time.RFC3339, at)
		require.NoError(t, err)
		require.NoError(t, store.DoseLogs().Create(ctx, &model.DoseLog{ID: uuid.New(), MedicationID: med.ID, TakenAt: ts, WasTaken: true}))
	}

	w := do(r, http.MethodGet, "/api/v1/logs/filter?start=2025-11-10&end=2025-11-11", "")
	require.Equal(t, http.StatusOK, w.Code)
	var logs []model.DoseLog
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &logs))
	assert.Len(t, logs, 2)

	w = do(r, http.MethodGet, "/api/v1/logs/filter?start=2025-11-12&end=2025-11-10", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	for _, q := range []string{"", "?start=2025-11-10", "?start=2025-11-10&end=soon", "?start=10/11/2025&end=2025-11-11"} {
		w := do(r, http.MethodGet, "/api/v1/logs/filter"+q, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
		assert.JSONEq(t, `{"error":"`+msgFilterDates+`"}`, w.Body.String())
	}
}

func TestListGetDeleteDoseLog(t *testing.T) {
	r, store, med := setup(t)
	ctx := context.Background()
	l := &model.DoseLog{ID: uuid.New(), MedicationID: med.ID, TakenAt: time.Now().UTC(), WasTaken: false}
	require.NoError(t, store.DoseLogs().Create(ctx, l))

	w := do(r, http.MethodGet, "/api/v1/logs?medication_id="+med.ID.String(), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), l.ID.String())

	w = do(r, http.MethodGet, "/api/v1/logs?medication_id=nope", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodGet, "/api/v1/logs/"+l.ID.String(), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"was_taken":false`)

	w = do(r, http.MethodDelete, "/api/v1/logs/"+l.ID.String(), "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(r, http.MethodGet, "/api/v1/logs/"+l.ID.String(), "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	events, err := store.Outbox().GetPendingEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "DOSELOG_DELETE", events[0].EventType)
}
