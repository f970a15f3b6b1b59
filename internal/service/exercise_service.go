package service

import (
	"context"

	"convalesense/internal/model"
	"convalesense/internal/repository"
)

// ExerciseService manages the exercise library.
type ExerciseService struct {
	exercises *repository.ExerciseRepository
	plans     *repository.PlanRepository
}

func NewExerciseService(exercises *repository.ExerciseRepository, plans *repository.PlanRepository) *ExerciseService {
	return &ExerciseService{exercises: exercises, plans: plans}
}

func (s *ExerciseService) Create(ctx context.Context, input ExerciseInput) (*model.Exercise, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	exercise := &model.Exercise{}
	applyExerciseInput(exercise, input)
	if err := s.exercises.Create(ctx, exercise); err != nil {
		return nil, err
	}
	if input.Enabled != nil && !*input.Enabled {
		if err := s.exercises.SetEnabled(ctx, exercise.ID, false); err != nil {
			return nil, err
		}
	}
	return s.exercises.Get(ctx, exercise.ID)
}

func (s *ExerciseService) Update(ctx context.Context, id uint, input ExerciseInput) (*model.Exercise, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	exercise, err := s.exercises.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	applyExerciseInput(exercise, input)
	if input.Enabled != nil {
		exercise.Enabled = *input.Enabled
	}
	if err := s.exercises.Update(ctx, exercise); err != nil {
		return nil, err
	}
	return exercise, nil
}

func (s *ExerciseService) Get(ctx context.Context, id uint) (*model.Exercise, error) {
	return s.exercises.Get(ctx, id)
}

// RecordCount totals records over every plan that uses the exercise.
func (s *ExerciseService) RecordCount(ctx context.Context, exercise *model.Exercise) (int, error) {
	plans, err := s.plans.ListIncludingExercise(ctx, exercise.ID)
	if err != nil {
		return 0, err
	}
	return exercise.RecordCount(plans), nil
}

func (s *ExerciseService) List(ctx context.Context, filter repository.ExerciseFilter) ([]model.Exercise, error) {
	return s.exercises.List(ctx, filter)
}

func (s *ExerciseService) SetEnabled(ctx context.Context, id uint, enabled bool) error {
	return s.exercises.SetEnabled(ctx, id, enabled)
}

// Delete removes the exercise and every plan exercise built on it.
func (s *ExerciseService) Delete(ctx context.Context, id uint) error {
	return s.exercises.Delete(ctx, id)
}

func applyExerciseInput(e *model.Exercise, input ExerciseInput) {
	e.Name = input.Name
	e.TypeOfExercise = input.TypeOfExercise
	e.Description = input.Description
	e.Steps = input.Steps
	e.Image = input.Image
	e.Tag = input.Tag
	e.Parameters = input.Parameters
}
