package medication

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/medtracker-api/internal/model"
	"github.com/jwalitptl/medtracker-api/internal/repository/memory"
	"github.com/jwalitptl/medtracker-api/internal/service/adherence"
	"github.com/jwalitptl/medtracker-api/internal/service/druginfo"
	apperrors "github.com/jwalitptl/medtracker-api/pkg/errors"
)

var today = time.Date(2025, 11, 17, 15, 0, 0, 0, time.UTC)

type stubGateway struct {
	info *model.DrugInfo
	err  error
	name string
}

func (g *stubGateway) GetDrugInfo(ctx context.Context, name string) (*model.DrugInfo, error) {
	g.name = name
	return g.info, g.err
}

func newTestService(gw druginfo.Gateway) (*Service, *memory.Store) {
	store := memory.NewStore()
	svc := NewService(store.Medications(), store.DoseLogs(), store.Notes(), gw, adherence.NewEngine(time.UTC), time.Second)
	svc.now = func() time.Time { return today }
	return svc, store
}

func createMed(t *testing.T, svc *Service, name string, dosage float64, perDay int) *model.Medication {
	t.Helper()
	m := &model.Medication{Name: name, DosageMg: dosage, PrescribedPerDay: perDay}
	require.NoError(t, svc.CreateMedication(context.Background(), m))
	return m
}

func addLog(t *testing.T, store *memory.Store, medID uuid.UUID, at time.Time, taken bool) {
	t.Helper()
	require.NoError(t, store.DoseLogs().Create(context.Background(), &model.DoseLog{
		ID: uuid.New(), MedicationID: medID, TakenAt: at, WasTaken: taken,
	}))
}

func TestCreateMedication(t *testing.T) {
	svc, _ := newTestService(&stubGateway{})

	m := createMed(t, svc, "  Aspirin ", 100, 2)
	assert.NotEqual(t, uuid.Nil, m.ID)
	assert.Equal(t, "Aspirin", m.Name)
	assert.Equal(t, today, m.CreatedAt)
	assert.Equal(t, "Aspirin (100mg)", m.String())
}

func TestCreateMedication_Invalid(t *testing.T) {
	svc, _ := newTestService(&stubGateway{})

	cases := []struct {
		name string
		med  model.Medication
		msg  string
	}{
		{"negative dosage", model.Medication{Name: "BadIbuprofen", DosageMg: -400, PrescribedPerDay: 1}, "dosage_mg must be greater than or equal to 0"},
		{"missing name", model.Medication{DosageMg: 100, PrescribedPerDay: 1}, "name is required"},
		{"negative schedule", model.Medication{Name: "X", DosageMg: 1, PrescribedPerDay: -1}, "prescribed_per_day must be greater than or equal to 0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := svc.CreateMedication(context.Background(), &tc.med)
			require.Error(t, err)
			assert.True(t, apperrors.IsValidation(err))
			assert.Equal(t, tc.msg, err.Error())
		})
	}
}

func TestUpdateMedication_Revalidates(t *testing.T) {
	svc, _ := newTestService(&stubGateway{})
	m := createMed(t, svc, "Aspirin", 100, 2)

	negative := -5.0
	_, _, err := svc.UpdateMedication(context.Background(), m.ID, &model.UpdateMedicationRequest{DosageMg: &negative})
	assert.True(t, apperrors.IsValidation(err))

	stored, err := svc.GetMedication(context.Background(), m.ID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, stored.DosageMg)

	dosage := 250.0
	before, after, err := svc.UpdateMedication(context.Background(), m.ID, &model.UpdateMedicationRequest{DosageMg: &dosage})
	require.NoError(t, err)
	assert.Equal(t, 100.0, before.DosageMg)
	assert.Equal(t, 250.0, after.DosageMg)
	assert.Equal(t, "Aspirin", after.Name)
}

func TestDeleteMedication_CascadesToLogsAndNotes(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(&stubGateway{})
	m := createMed(t, svc, "Aspirin", 100, 2)

	addLog(t, store, m.ID, today, true)
	require.NoError(t, store.Notes().Create(ctx, &model.Note{ID: uuid.New(), MedicationID: m.ID, Text: "n", CreatedAt: today}))

	_, err := svc.DeleteMedication(ctx, m.ID)
	require.NoError(t, err)

	logs, err := store.DoseLogs().List(ctx, model.DoseLogFilter{})
	require.NoError(t, err)
	assert.Empty(t, logs)
	notes, err := store.Notes().List(ctx, model.NoteFilter{})
	require.NoError(t, err)
	assert.Empty(t, notes)

	_, err = svc.GetMedication(ctx, m.ID)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestExpectedDoses(t *testing.T) {
	svc, _ := newTestService(&stubGateway{})
	m := createMed(t, svc, "Aspirin", 100, 2)

	resp, err := svc.ExpectedDoses(context.Background(), m.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, &model.ExpectedDosesResponse{MedicationID: m.ID.String(), Days: 10, ExpectedDoses: 20}, resp)

	_, err = svc.ExpectedDoses(context.Background(), m.ID, -5)
	assert.True(t, apperrors.IsPrecondition(err))

	none := createMed(t, svc, "Vitamin", 5, 0)
	_, err = svc.ExpectedDoses(context.Background(), none.ID, 10)
	require.Error(t, err)
	assert.Equal(t, "Days and schedule must be positive", err.Error())

	_, err = svc.ExpectedDoses(context.Background(), uuid.New(), 10)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestAdherence(t *testing.T) {
	svc, store := newTestService(&stubGateway{})
	m := createMed(t, svc, "Aspirin", 100, 2)

	summary, err := svc.Adherence(context.Background(), m.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, summary.AdherenceRate)
	assert.Nil(t, summary.DaysSinceLastDose)

	addLog(t, store, m.ID, today.AddDate(0, 0, -3), true)
	addLog(t, store, m.ID, today.AddDate(0, 0, -2), false)
	addLog(t, store, m.ID, today.AddDate(0, 0, -1), true)

	summary, err = svc.Adherence(context.Background(), m.ID)
	require.NoError(t, err)
	assert.Equal(t, 66.67, summary.AdherenceRate)
	assert.Equal(t, 3, summary.TotalLogs)
	assert.Equal(t, 2, summary.TakenLogs)
	require.NotNil(t, summary.DaysSinceLastDose)
	assert.Equal(t, 1, *summary.DaysSinceLastDose)
}

func TestPeriodAdherence(t *testing.T) {
	svc, store := newTestService(&stubGateway{})
	m := createMed(t, svc, "Aspirin", 100, 2)

	addLog(t, store, m.ID, today, true)
	addLog(t, store, m.ID, today.AddDate(0, 0, -5), true)

	yesterday := today.AddDate(0, 0, -1)
	p, err := svc.PeriodAdherence(context.Background(), m.ID, yesterday, today)
	require.NoError(t, err)
	assert.Equal(t, 25.0, p.AdherenceRate)
	assert.Equal(t, 4, p.ExpectedDoses)
	assert.Equal(t, 1, p.TakenDoses)
	assert.Equal(t, "2025-11-16", p.Start)
	assert.Equal(t, "2025-11-17", p.End)

	_, err = svc.PeriodAdherence(context.Background(), m.ID, today, yesterday)
	require.Error(t, err)
	assert.True(t, apperrors.IsPrecondition(err))
	assert.Equal(t, "start_date must be before or equal to end_date", err.Error())
}

func TestFetchExternalInfo_Success(t *testing.T) {
	gw := &stubGateway{info: &model.DrugInfo{Name: "Aspirin", Manufacturer: "Bayer", Warnings: []string{"w"}, Purpose: []string{"p"}}}
	svc, _ := newTestService(gw)
	m := createMed(t, svc, "Aspirin", 100, 2)

	res := svc.FetchExternalInfo(context.Background(), m)
	assert.False(t, res.Failed())
	assert.Equal(t, "Bayer", res.Manufacturer)
	assert.Equal(t, "Aspirin", gw.name)
}

func TestFetchExternalInfo_NeverFails(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
		kind apperrors.Kind
	}{
		{"precondition", apperrors.Precondition("drug_name is required"), "drug_name is required", apperrors.KindPrecondition},
		{"upstream", apperrors.Upstream("No results found for X", errors.New("404")), "No results found for X", apperrors.KindUpstream},
		{"plain", errors.New("boom"), "boom", apperrors.KindInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, _ := newTestService(&stubGateway{err: tc.err})
			res := svc.FetchExternalInfo(context.Background(), &model.Medication{Name: "X"})
			assert.True(t, res.Failed())
			assert.Nil(t, res.DrugInfo)
			assert.Equal(t, tc.want, res.Error)
			assert.Equal(t, tc.kind, res.Kind)
		})
	}
}

func TestFetchExternalInfo_EmptyNameThroughGateway(t *testing.T) {
	svc, _ := newTestService(druginfo.NewCachedGateway(&stubGateway{}, time.Minute, nil))

	res := svc.FetchExternalInfo(context.Background(), &model.Medication{Name: ""})
	assert.Equal(t, "drug_name is required", res.Error)
	assert.Equal(t, apperrors.KindPrecondition, res.Kind)
}

func TestRecentNotes(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(&stubGateway{})
	m := createMed(t, svc, "Aspirin", 100, 2)

	texts := []string{"first", "  ", "third", "fourth"}
	for i, text := range texts {
		require.NoError(t, store.Notes().Create(ctx, &model.Note{
			ID: uuid.New(), MedicationID: m.ID, Text: text, CreatedAt: today.Add(time.Duration(i) * time.Minute),
		}))
	}

	got, err := svc.RecentNotes(ctx, m.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"fourth", "third", "  ", "first"}, got)

	got, err = svc.RecentNotes(ctx, m.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"fourth", "third"}, got)

	_, err = svc.RecentNotes(ctx, uuid.New(), 2)
	assert.True(t, apperrors.IsNotFound(err))
}
