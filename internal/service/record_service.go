package service

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"time"

	"convalesense/internal/model"
	"convalesense/internal/repository"
)

// RecordProgress is a record with its derived values resolved.
type RecordProgress struct {
	Record        *model.ExerciseRecord `json:"record"`
	Percentage    float64               `json:"percentage"`
	CompletedTime time.Duration         `json:"completed_time"`
	NaturalDate   template.HTML         `json:"natural_date"`
}

// RecordService accepts completions from patient clients.
type RecordService struct {
	records       *repository.ExerciseRecordRepository
	planExercises *repository.PlanExerciseRepository
}

func NewRecordService(records *repository.ExerciseRecordRepository, planExercises *repository.PlanExerciseRepository) *RecordService {
	return &RecordService{records: records, planExercises: planExercises}
}

// Submit stores one completion. Disabled plan exercises do not accept
// records and a second record with the same start is rejected.
func (s *RecordService) Submit(ctx context.Context, input RecordInput) (*model.ExerciseRecord, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	pe, err := s.planExercises.Get(ctx, input.PlanExerciseID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, invalid("exercise_id: plan exercise %d does not exist", input.PlanExerciseID)
	}
	if err != nil {
		return nil, err
	}
	if !pe.IsEnabled() {
		return nil, fmt.Errorf("submit record for plan exercise %d: %w", pe.ID, ErrUnavailable)
	}

	rec := &model.ExerciseRecord{
		PlanExerciseID: pe.ID,
		Count:          *input.Count,
		Start:          *input.Start,
		End:            *input.End,
	}
	rec.Tag = input.Tag
	if err := s.records.Create(ctx, rec); err != nil {
		return nil, err
	}
	return s.records.Get(ctx, rec.ID)
}

func (s *RecordService) Get(ctx context.Context, id uint) (*model.ExerciseRecord, error) {
	return s.records.Get(ctx, id)
}

func (s *RecordService) ListByPlanExercise(ctx context.Context, planExerciseID uint) ([]model.ExerciseRecord, error) {
	return s.records.ListByPlanExercise(ctx, planExerciseID)
}

func (s *RecordService) ListByPlan(ctx context.Context, planID uint) ([]model.ExerciseRecord, error) {
	return s.records.ListByPlan(ctx, planID)
}

// ListPublished returns every enabled record.
func (s *RecordService) ListPublished(ctx context.Context) ([]model.ExerciseRecord, error) {
	return s.records.ListPublished(ctx)
}

// DoneSince counts the plan exercise's completions started at or after since.
func (s *RecordService) DoneSince(ctx context.Context, planExerciseID uint, since time.Time) (int, error) {
	n, err := s.records.CountSince(ctx, planExerciseID, since)
	return int(n), err
}

func (s *RecordService) Delete(ctx context.Context, id uint) error {
	return s.records.Delete(ctx, id)
}

// Progress resolves the record's percentage, duration and display date.
// It fails with model.ErrZeroReps when the plan exercise has no reps.
func (s *RecordService) Progress(ctx context.Context, id uint) (*RecordProgress, error) {
	rec, err := s.records.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	pct, err := rec.Percentage()
	if err != nil {
		return nil, fmt.Errorf("record %d: %w", rec.ID, err)
	}
	return &RecordProgress{
		Record:        rec,
		Percentage:    pct,
		CompletedTime: rec.CompletedTime(),
		NaturalDate:   rec.NaturalDate(),
	}, nil
}
