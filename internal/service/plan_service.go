package service

import (
	"context"
	"errors"
	"fmt"

	"convalesense/internal/model"
	"convalesense/internal/repository"
)

// PlanService composes treatment plans out of exercises.
type PlanService struct {
	plans         *repository.PlanRepository
	planExercises *repository.PlanExerciseRepository
	exercises     *repository.ExerciseRepository
	users         *repository.UserRepository
}

func NewPlanService(
	plans *repository.PlanRepository,
	planExercises *repository.PlanExerciseRepository,
	exercises *repository.ExerciseRepository,
	users *repository.UserRepository,
) *PlanService {
	return &PlanService{plans: plans, planExercises: planExercises, exercises: exercises, users: users}
}

func (s *PlanService) Create(ctx context.Context, input PlanInput) (*model.Plan, error) {
	if err := s.checkPlanInput(ctx, input); err != nil {
		return nil, err
	}

	plan := &model.Plan{}
	applyPlanInput(plan, input)
	if err := s.plans.Create(ctx, plan); err != nil {
		return nil, err
	}
	if input.Enabled != nil && !*input.Enabled {
		if err := s.plans.SetEnabled(ctx, plan.ID, false); err != nil {
			return nil, err
		}
	}
	return s.plans.Get(ctx, plan.ID)
}

func (s *PlanService) Update(ctx context.Context, id uint, input PlanInput) (*model.Plan, error) {
	if err := s.checkPlanInput(ctx, input); err != nil {
		return nil, err
	}

	plan, err := s.plans.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	applyPlanInput(plan, input)
	if input.Enabled != nil {
		plan.Enabled = *input.Enabled
	}
	if err := s.plans.Update(ctx, plan); err != nil {
		return nil, err
	}
	return s.plans.Get(ctx, id)
}

// Get loads the plan with its users, ordered plan exercises and records.
func (s *PlanService) Get(ctx context.Context, id uint) (*model.Plan, error) {
	return s.plans.Get(ctx, id)
}

func (s *PlanService) List(ctx context.Context, filter repository.PlanFilter) ([]model.Plan, error) {
	return s.plans.List(ctx, filter)
}

// ListForPatient returns the patient's enabled plans with details.
func (s *PlanService) ListForPatient(ctx context.Context, patientID uint) ([]model.Plan, error) {
	return s.plans.ListByPatient(ctx, patientID)
}

func (s *PlanService) SetEnabled(ctx context.Context, id uint, enabled bool) error {
	return s.plans.SetEnabled(ctx, id, enabled)
}

// Delete removes the plan together with its plan exercises and records.
func (s *PlanService) Delete(ctx context.Context, id uint) error {
	return s.plans.Delete(ctx, id)
}

func (s *PlanService) Stats(ctx context.Context, id uint) (PlanStats, error) {
	plan, err := s.plans.Get(ctx, id)
	if err != nil {
		return PlanStats{}, err
	}
	return PlanStats{RecordCount: plan.RecordCount(), ExerciseCount: plan.ExerciseCount()}, nil
}

// AddExercise places an exercise into the plan.
func (s *PlanService) AddExercise(ctx context.Context, planID uint, input PlanExerciseInput) (*model.PlanExercise, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	if _, err := s.plans.Get(ctx, planID); err != nil {
		return nil, err
	}
	if err := s.checkExercise(ctx, input.ExerciseID); err != nil {
		return nil, err
	}

	pe := &model.PlanExercise{PlanID: planID}
	applyPlanExerciseInput(pe, input)
	if err := s.planExercises.Create(ctx, pe); err != nil {
		return nil, err
	}
	if input.Enabled != nil && !*input.Enabled {
		if err := s.planExercises.SetEnabled(ctx, pe.ID, false); err != nil {
			return nil, err
		}
	}
	return s.planExercises.Get(ctx, pe.ID)
}

func (s *PlanService) GetExercise(ctx context.Context, planExerciseID uint) (*model.PlanExercise, error) {
	return s.planExercises.Get(ctx, planExerciseID)
}

func (s *PlanService) ListExercises(ctx context.Context, planID uint, published bool) ([]model.PlanExercise, error) {
	return s.planExercises.ListByPlan(ctx, planID, published)
}

func (s *PlanService) UpdateExercise(ctx context.Context, planExerciseID uint, input PlanExerciseInput) (*model.PlanExercise, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	pe, err := s.planExercises.Get(ctx, planExerciseID)
	if err != nil {
		return nil, err
	}
	if input.ExerciseID != pe.ExerciseID {
		if err := s.checkExercise(ctx, input.ExerciseID); err != nil {
			return nil, err
		}
	}

	applyPlanExerciseInput(pe, input)
	if input.Enabled != nil {
		pe.Enabled = *input.Enabled
	}
	if err := s.planExercises.Update(ctx, pe); err != nil {
		return nil, err
	}
	return s.planExercises.Get(ctx, planExerciseID)
}

func (s *PlanService) SetExerciseEnabled(ctx context.Context, planExerciseID uint, enabled bool) error {
	return s.planExercises.SetEnabled(ctx, planExerciseID, enabled)
}

// RemoveExercise deletes the plan exercise and its records.
func (s *PlanService) RemoveExercise(ctx context.Context, planExerciseID uint) error {
	return s.planExercises.Delete(ctx, planExerciseID)
}

func (s *PlanService) checkPlanInput(ctx context.Context, input PlanInput) error {
	if err := validateInput(input); err != nil {
		return err
	}
	if err := s.checkUser(ctx, "patient", input.PatientID); err != nil {
		return err
	}
	return s.checkUser(ctx, "therapist", input.TherapistID)
}

func (s *PlanService) checkUser(ctx context.Context, role string, id uint) error {
	_, err := s.users.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return invalid("%s_id: user %d does not exist", role, id)
	}
	if err != nil {
		return fmt.Errorf("check %s: %w", role, err)
	}
	return nil
}

func (s *PlanService) checkExercise(ctx context.Context, id uint) error {
	_, err := s.exercises.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return invalid("exercise_id: exercise %d does not exist", id)
	}
	return err
}

func applyPlanInput(p *model.Plan, input PlanInput) {
	p.PatientID = input.PatientID
	p.TherapistID = input.TherapistID
	p.Name = input.Name
	p.Description = input.Description
	p.SessionCount = input.SessionCount
	p.Start = input.Start
	p.End = input.End
	p.Image = input.Image
	p.Tag = input.Tag
	// Drop loaded associations so the new foreign keys win.
	p.Patient = nil
	p.Therapist = nil
}

func applyPlanExerciseInput(pe *model.PlanExercise, input PlanExerciseInput) {
	pe.ExerciseID = input.ExerciseID
	pe.AdditionalDescription = input.AdditionalDescription
	pe.Order = input.Order
	pe.Count = 1
	if input.Count != nil {
		pe.Count = *input.Count
	}
	pe.Optional = input.Optional
	pe.Image = input.Image
	pe.Tag = input.Tag
	pe.Parameters = input.Parameters
	pe.Exercise = nil
}
