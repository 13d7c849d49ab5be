package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/medtracker-api/internal/model"
	apperrors "github.com/jwalitptl/medtracker-api/pkg/errors"
)

var t0 = time.Date(2025, 11, 17, 9, 0, 0, 0, time.UTC)

func seedMedication(t *testing.T, s *Store, name string) *model.Medication {
	t.Helper()
	m := &model.Medication{
		Base:             model.Base{ID: uuid.New(), CreatedAt: t0, UpdatedAt: t0},
		Name:             name,
		DosageMg:         100,
		PrescribedPerDay: 2,
	}
	require.NoError(t, s.Medications().Create(context.Background(), m))
	return m
}

func TestMedication_GetUnknown(t *testing.T) {
	s := NewStore()
	_, err := s.Medications().Get(context.Background(), uuid.New())
	assert.True(t, apperrors.IsNotFound(err))
}

func TestMedication_GetReturnsCopy(t *testing.T) {
	s := NewStore()
	m := seedMedication(t, s, "Aspirin")

	got, err := s.Medications().Get(context.Background(), m.ID)
	require.NoError(t, err)
	got.Name = "changed"

	again, err := s.Medications().Get(context.Background(), m.ID)
	require.NoError(t, err)
	assert.Equal(t, "Aspirin", again.Name)
}

func TestMedication_DeleteCascades(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	m := seedMedication(t, s, "Aspirin")
	other := seedMedication(t, s, "Ibuprofen")

	require.NoError(t, s.DoseLogs().Create(ctx, &model.DoseLog{ID: uuid.New(), MedicationID: m.ID, TakenAt: t0, WasTaken: true}))
	require.NoError(t, s.DoseLogs().Create(ctx, &model.DoseLog{ID: uuid.New(), MedicationID: other.ID, TakenAt: t0, WasTaken: true}))
	require.NoError(t, s.Notes().Create(ctx, &model.Note{ID: uuid.New(), MedicationID: m.ID, Text: "a", CreatedAt: t0}))

	require.NoError(t, s.Medications().Delete(ctx, m.ID))

	logs, err := s.DoseLogs().List(ctx, model.DoseLogFilter{})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, other.ID, logs[0].MedicationID)

	notes, err := s.Notes().List(ctx, model.NoteFilter{})
	require.NoError(t, err)
	assert.Empty(t, notes)

	assert.True(t, apperrors.IsNotFound(s.Medications().Delete(ctx, m.ID)))
}

func TestDoseLog_CreateRequiresMedication(t *testing.T) {
	s := NewStore()
	err := s.DoseLogs().Create(context.Background(), &model.DoseLog{ID: uuid.New(), MedicationID: uuid.New(), TakenAt: t0})
	assert.True(t, apperrors.IsValidation(err))
}

func TestDoseLog_ListFilterAndOrder(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	m := seedMedication(t, s, "Aspirin")

	for _, h := range []int{30, 0, 6, 24} {
		require.NoError(t, s.DoseLogs().Create(ctx, &model.DoseLog{
			ID: uuid.New(), MedicationID: m.ID, TakenAt: t0.Add(time.Duration(h) * time.Hour), WasTaken: true,
		}))
	}

	from, until := t0, t0.Add(24*time.Hour)
	logs, err := s.DoseLogs().List(ctx, model.DoseLogFilter{MedicationID: &m.ID, From: &from, Until: &until})
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.True(t, logs[0].TakenAt.Equal(t0))
	assert.True(t, logs[1].TakenAt.Equal(t0.Add(6*time.Hour)))
}

func TestNote_ListSearchAndLimit(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	aspirin := seedMedication(t, s, "Aspirin")
	ibuprofen := seedMedication(t, s, "Ibuprofen")

	for i := 0; i < 3; i++ {
		require.NoError(t, s.Notes().Create(ctx, &model.Note{
			ID: uuid.New(), MedicationID: aspirin.ID, Text: "note", CreatedAt: t0.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, s.Notes().Create(ctx, &model.Note{ID: uuid.New(), MedicationID: ibuprofen.ID, Text: "x", CreatedAt: t0}))

	notes, err := s.Notes().List(ctx, model.NoteFilter{Search: "ASPI"})
	require.NoError(t, err)
	require.Len(t, notes, 3)
	assert.True(t, notes[0].CreatedAt.After(notes[1].CreatedAt))

	notes, err = s.Notes().List(ctx, model.NoteFilter{MedicationID: &aspirin.ID, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, notes, 2)
}

func TestOutbox_Lifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	clock := t0
	s.now = func() time.Time { return clock }

	evt := &model.OutboxEvent{EventType: "MEDICATION_CREATE", Payload: []byte(`{}`)}
	require.NoError(t, s.Outbox().Create(ctx, evt))
	assert.NotEqual(t, uuid.Nil, evt.ID)

	pending, err := s.Outbox().GetPendingEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	retryAt := clock.Add(time.Minute)
	msg := "redis down"
	require.NoError(t, s.Outbox().UpdateStatus(ctx, evt.ID, model.OutboxStatusRetry, &msg, &retryAt))

	pending, err = s.Outbox().GetPendingEvents(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	clock = clock.Add(2 * time.Minute)
	pending, err = s.Outbox().GetPendingEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 1, pending[0].RetryCount)

	require.NoError(t, s.Outbox().UpdateStatus(ctx, evt.ID, model.OutboxStatusProcessed, nil, nil))

	n, err := s.Outbox().DeleteProcessedBefore(ctx, clock)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = s.Outbox().DeleteProcessedBefore(ctx, clock.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
