package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"convalesense/internal/model"
	"convalesense/internal/repository"
	"convalesense/internal/testutil"
)

type services struct {
	db        *gorm.DB
	exercises *ExerciseService
	plans     *PlanService
	records   *RecordService
	reminders *ReminderService
}

func newServices(t *testing.T) services {
	t.Helper()
	db := testutil.DB(t)
	users := repository.NewUserRepository(db)
	exercises := repository.NewExerciseRepository(db)
	plans := repository.NewPlanRepository(db)
	planExercises := repository.NewPlanExerciseRepository(db)
	records := repository.NewExerciseRecordRepository(db)
	return services{
		db:        db,
		exercises: NewExerciseService(exercises, plans),
		plans:     NewPlanService(plans, planExercises, exercises, users),
		records:   NewRecordService(records, planExercises),
		reminders: NewReminderService(plans),
	}
}

func TestExerciseServiceValidation(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	bad := "x"

	cases := map[string]ExerciseInput{
		"missing name": {TypeOfExercise: model.ExerciseTypeDuration},
		"unknown type": {Name: "Squat", TypeOfExercise: "swimming"},
		"long tag":     {Name: "Squat", TypeOfExercise: model.ExerciseTypeDuration, Tag: &bad},
		"negative weight": {
			Name:           "Squat",
			TypeOfExercise: model.ExerciseTypeDuration,
			Parameters:     model.Parameters{Weight: testutil.PtrFloat(-1)},
		},
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := s.exercises.Create(ctx, input)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestExerciseServiceCreateDisabled(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()

	e, err := s.exercises.Create(ctx, ExerciseInput{
		Name:           "Bridge",
		TypeOfExercise: model.ExerciseTypeDuration,
		Enabled:        testutil.PtrBool(false),
		Parameters:     model.Parameters{NumberOfReps: testutil.PtrUint(12)},
	})
	require.NoError(t, err)
	assert.False(t, e.Enabled)
	require.NotNil(t, e.NumberOfReps)
	assert.EqualValues(t, 12, *e.NumberOfReps)

	updated, err := s.exercises.Update(ctx, e.ID, ExerciseInput{
		Name:           "Glute bridge",
		TypeOfExercise: model.ExerciseTypeDuration,
		Enabled:        testutil.PtrBool(true),
	})
	require.NoError(t, err)
	assert.True(t, updated.Enabled)
	assert.Equal(t, "Glute bridge", updated.Name)
	assert.Nil(t, updated.NumberOfReps)

	_, err = s.exercises.Update(ctx, 9999, ExerciseInput{Name: "Ghost", TypeOfExercise: model.ExerciseTypeDuration})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestExerciseServiceRecordCount(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	patient := testutil.SeedUser(t, s.db, "Ada")
	therapist := testutil.SeedUser(t, s.db, "Grace")
	squat := testutil.SeedExercise(t, s.db, "Squat", 10)

	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 2; i++ {
		plan := testutil.SeedPlan(t, s.db, patient.ID, therapist.ID, "Plan")
		pe := testutil.SeedPlanExercise(t, s.db, plan.ID, squat.ID)
		testutil.SeedRecord(t, s.db, pe.ID, start.Add(time.Duration(i)*time.Hour), 5)
	}

	n, err := s.exercises.RecordCount(ctx, squat)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestPlanServiceRejectsUnknownUsers(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	therapist := testutil.SeedUser(t, s.db, "Grace")

	_, err := s.plans.Create(ctx, PlanInput{PatientID: 9999, TherapistID: therapist.ID, Name: "Knee"})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "patient_id")

	_, err = s.plans.Create(ctx, PlanInput{TherapistID: therapist.ID})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestPlanServiceExercises(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	patient := testutil.SeedUser(t, s.db, "Ada")
	therapist := testutil.SeedUser(t, s.db, "Grace")
	squat := testutil.SeedExercise(t, s.db, "Squat", 10)
	lunge := testutil.SeedExercise(t, s.db, "Lunge", 8)

	plan, err := s.plans.Create(ctx, PlanInput{PatientID: patient.ID, TherapistID: therapist.ID, Name: "Knee rehab"})
	require.NoError(t, err)
	require.NotNil(t, plan.Patient)
	assert.Equal(t, "Ada", plan.Patient.FirstName)
	require.NotNil(t, plan.SessionCount)
	assert.EqualValues(t, 1, *plan.SessionCount)

	first, err := s.plans.AddExercise(ctx, plan.ID, PlanExerciseInput{ExerciseID: squat.ID, Order: testutil.PtrUint(2)})
	require.NoError(t, err)
	assert.EqualValues(t, 1, first.Count)
	assert.Equal(t, "Squat", first.Name())

	second, err := s.plans.AddExercise(ctx, plan.ID, PlanExerciseInput{
		ExerciseID: lunge.ID,
		Order:      testutil.PtrUint(1),
		Count:      testutil.PtrUint(3),
		Parameters: model.Parameters{NumberOfReps: testutil.PtrUint(4)},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 4, second.Reps())

	_, err = s.plans.AddExercise(ctx, plan.ID, PlanExerciseInput{ExerciseID: squat.ID, Count: testutil.PtrUint(0)})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = s.plans.AddExercise(ctx, plan.ID, PlanExerciseInput{ExerciseID: 9999})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = s.plans.AddExercise(ctx, 9999, PlanExerciseInput{ExerciseID: squat.ID})
	assert.ErrorIs(t, err, repository.ErrNotFound)

	items, err := s.plans.ListExercises(ctx, plan.ID, false)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Lunge", items[0].Name())
	assert.Equal(t, "Squat", items[1].Name())

	_, err = s.plans.AddExercise(ctx, plan.ID, PlanExerciseInput{ExerciseID: squat.ID})
	require.NoError(t, err)

	testutil.SeedRecord(t, s.db, first.ID, time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC), 5)
	stats, err := s.plans.Stats(ctx, plan.ID)
	require.NoError(t, err)
	assert.Equal(t, PlanStats{RecordCount: 1, ExerciseCount: 2}, stats)

	updated, err := s.plans.UpdateExercise(ctx, second.ID, PlanExerciseInput{
		ExerciseID: lunge.ID,
		Optional:   true,
		Enabled:    testutil.PtrBool(false),
	})
	require.NoError(t, err)
	assert.True(t, updated.Optional)
	assert.False(t, updated.Enabled)
	assert.Nil(t, updated.Order)

	published, err := s.plans.ListExercises(ctx, plan.ID, true)
	require.NoError(t, err)
	assert.Len(t, published, 2)

	require.NoError(t, s.plans.RemoveExercise(ctx, first.ID))
	stats, err = s.plans.Stats(ctx, plan.ID)
	require.NoError(t, err)
	assert.Equal(t, PlanStats{RecordCount: 0, ExerciseCount: 2}, stats)
}

func TestPlanServiceUpdateAndDisable(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	patient := testutil.SeedUser(t, s.db, "Ada")
	therapist := testutil.SeedUser(t, s.db, "Grace")
	other := testutil.SeedUser(t, s.db, "Linus")

	plan, err := s.plans.Create(ctx, PlanInput{
		PatientID:   patient.ID,
		TherapistID: therapist.ID,
		Name:        "Shoulder",
		Enabled:     testutil.PtrBool(false),
	})
	require.NoError(t, err)
	assert.False(t, plan.Enabled)

	mine, err := s.plans.ListForPatient(ctx, patient.ID)
	require.NoError(t, err)
	assert.Empty(t, mine)

	updated, err := s.plans.Update(ctx, plan.ID, PlanInput{
		PatientID:   other.ID,
		TherapistID: therapist.ID,
		Name:        "Shoulder v2",
		Enabled:     testutil.PtrBool(true),
	})
	require.NoError(t, err)
	assert.Equal(t, other.ID, updated.PatientID)
	require.NotNil(t, updated.Patient)
	assert.Equal(t, "Linus", updated.Patient.FirstName)

	theirs, err := s.plans.ListForPatient(ctx, other.ID)
	require.NoError(t, err)
	require.Len(t, theirs, 1)
	assert.Equal(t, "Shoulder v2", theirs[0].Name)

	require.NoError(t, s.plans.Delete(ctx, plan.ID))
	_, err = s.plans.Get(ctx, plan.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestRecordServiceSubmit(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	patient := testutil.SeedUser(t, s.db, "Ada")
	therapist := testutil.SeedUser(t, s.db, "Grace")
	squat := testutil.SeedExercise(t, s.db, "Squat", 10)
	plan := testutil.SeedPlan(t, s.db, patient.ID, therapist.ID, "Knee")
	pe := testutil.SeedPlanExercise(t, s.db, plan.ID, squat.ID)

	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	input := RecordInput{
		PlanExerciseID: pe.ID,
		Count:          testutil.PtrUint(5),
		Start:          testutil.PtrTime(start),
		End:            testutil.PtrTime(start.Add(15 * time.Minute)),
	}

	rec, err := s.records.Submit(ctx, input)
	require.NoError(t, err)
	require.NotNil(t, rec.PlanExercise)
	assert.Equal(t, "Squat", rec.PlanExercise.Name())

	_, err = s.records.Submit(ctx, input)
	assert.ErrorIs(t, err, repository.ErrDuplicateRecord)

	progress, err := s.records.Progress(ctx, rec.ID)
	require.NoError(t, err)
	assert.InDelta(t, 50.0, progress.Percentage, 0.0001)
	assert.Equal(t, 15*time.Minute, progress.CompletedTime)
	assert.Contains(t, string(progress.NaturalDate), "January 1st")

	n, err := s.records.DoneSince(ctx, pe.ID, start.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = s.records.Submit(ctx, RecordInput{PlanExerciseID: pe.ID, Start: input.Start, End: input.End})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = s.records.Submit(ctx, RecordInput{
		PlanExerciseID: 9999,
		Count:          testutil.PtrUint(1),
		Start:          input.Start,
		End:            input.End,
	})
	assert.ErrorIs(t, err, ErrValidation)

	require.NoError(t, s.plans.SetExerciseEnabled(ctx, pe.ID, false))
	later := start.Add(time.Hour)
	_, err = s.records.Submit(ctx, RecordInput{
		PlanExerciseID: pe.ID,
		Count:          testutil.PtrUint(5),
		Start:          &later,
		End:            &later,
	})
	assert.ErrorIs(t, err, ErrUnavailable)

	require.NoError(t, s.records.Delete(ctx, rec.ID))
	_, err = s.records.Get(ctx, rec.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestRecordServiceProgressZeroReps(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	patient := testutil.SeedUser(t, s.db, "Ada")
	therapist := testutil.SeedUser(t, s.db, "Grace")
	hold := testutil.SeedExercise(t, s.db, "Hold", 0)
	plan := testutil.SeedPlan(t, s.db, patient.ID, therapist.ID, "Balance")
	pe := testutil.SeedPlanExercise(t, s.db, plan.ID, hold.ID)
	rec := testutil.SeedRecord(t, s.db, pe.ID, time.Date(2024, 2, 2, 8, 0, 0, 0, time.UTC), 3)

	_, err := s.records.Progress(ctx, rec.ID)
	assert.ErrorIs(t, err, model.ErrZeroReps)
}

func TestReminderDailySummary(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	patient := testutil.SeedUser(t, s.db, "Ada")
	therapist := testutil.SeedUser(t, s.db, "Grace")
	squat := testutil.SeedExercise(t, s.db, "Squat", 10)
	lunge := testutil.SeedExercise(t, s.db, "Lunge", 8)
	now := time.Date(2024, 3, 10, 18, 0, 0, 0, time.UTC)

	plan := testutil.SeedPlan(t, s.db, patient.ID, therapist.ID, "Knee <rehab>")
	pe := testutil.SeedPlanExercise(t, s.db, plan.ID, squat.ID)
	require.NoError(t, s.db.Model(pe).Update("count", 2).Error)
	hidden := testutil.SeedPlanExercise(t, s.db, plan.ID, lunge.ID)
	require.NoError(t, s.plans.SetExerciseEnabled(ctx, hidden.ID, false))

	testutil.SeedRecord(t, s.db, pe.ID, now.Add(-9*time.Hour), 10)
	testutil.SeedRecord(t, s.db, pe.ID, now.Add(-24*time.Hour), 10)

	finished := testutil.SeedPlan(t, s.db, patient.ID, therapist.ID, "Old plan")
	ended := now.AddDate(0, 0, -5)
	require.NoError(t, s.db.Model(finished).Update("ends_at", ended).Error)

	summary, err := s.reminders.DailySummary(ctx, *patient, now)
	require.NoError(t, err)
	assert.Contains(t, summary, "Ada")
	assert.Contains(t, summary, "2024-03-10")
	assert.Contains(t, summary, "Knee &lt;rehab&gt;")
	assert.Contains(t, summary, "Squat")
	assert.Contains(t, summary, "2 times per day with 10 reps per session. This exercise is required.")
	assert.Contains(t, summary, "done today: 1/2")
	assert.NotContains(t, summary, "Lunge")
	assert.NotContains(t, summary, "Old plan")

	nobody := testutil.SeedUser(t, s.db, "Linus")
	summary, err = s.reminders.DailySummary(ctx, *nobody, now)
	require.NoError(t, err)
	assert.Contains(t, summary, "no active plans today")
}

func TestBuildDailySpec(t *testing.T) {
	spec, err := buildDailySpec("08:05")
	require.NoError(t, err)
	assert.Equal(t, "0 5 8 * * *", spec)

	for _, bad := range []string{"8", "24:00", "07:60", "ab:cd"} {
		_, err := buildDailySpec(bad)
		assert.Error(t, err, bad)
	}
}
