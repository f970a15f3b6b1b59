package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"convalesense/internal/model"
)

// PlanFilter narrows plan listings. Zero values match everything.
type PlanFilter struct {
	PatientID   uint
	TherapistID uint
	Published   bool
}

// PlanRepository handles CRUD for treatment plans.
type PlanRepository struct {
	db *gorm.DB
}

func NewPlanRepository(db *gorm.DB) *PlanRepository {
	return &PlanRepository{db: db}
}

func (r *PlanRepository) Create(ctx context.Context, plan *model.Plan) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(plan).Error; err != nil {
		return fmt.Errorf("create plan: %w", err)
	}
	return nil
}

// Get loads the plan with its users, ordered plan exercises, their exercises
// and records.
func (r *PlanRepository) Get(ctx context.Context, id uint) (*model.Plan, error) {
	var plan model.Plan
	if err := r.withDetails(r.db.WithContext(ctx)).First(&plan, id).Error; err != nil {
		return nil, wrap("find plan", err)
	}
	model.SortPlanExercises(plan.PlanExercises)
	return &plan, nil
}

func (r *PlanRepository) List(ctx context.Context, filter PlanFilter) ([]model.Plan, error) {
	db := r.db.WithContext(ctx).
		Scopes(model.PlanOrder).
		Preload("Patient").
		Preload("Therapist").
		Preload("PlanExercises")
	if filter.Published {
		db = db.Scopes(model.Enabled)
	}
	if filter.PatientID != 0 {
		db = db.Where("patient_id = ?", filter.PatientID)
	}
	if filter.TherapistID != 0 {
		db = db.Where("therapist_id = ?", filter.TherapistID)
	}

	var plans []model.Plan
	if err := db.Find(&plans).Error; err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	return plans, nil
}

func (r *PlanRepository) ListPublished(ctx context.Context) ([]model.Plan, error) {
	return r.List(ctx, PlanFilter{Published: true})
}

// ListByPatient returns the patient's enabled plans with full details.
func (r *PlanRepository) ListByPatient(ctx context.Context, patientID uint) ([]model.Plan, error) {
	var plans []model.Plan
	err := r.withDetails(r.db.WithContext(ctx)).
		Scopes(model.PlanOrder, model.Enabled).
		Where("patient_id = ?", patientID).
		Find(&plans).Error
	if err != nil {
		return nil, fmt.Errorf("list patient plans: %w", err)
	}
	for i := range plans {
		model.SortPlanExercises(plans[i].PlanExercises)
	}
	return plans, nil
}

// ListIncludingExercise returns every plan with at least one plan exercise
// built on the exercise, with plan exercises and records loaded.
func (r *PlanRepository) ListIncludingExercise(ctx context.Context, exerciseID uint) ([]model.Plan, error) {
	db := r.db.WithContext(ctx)
	planIDs := db.Model(&model.PlanExercise{}).Select("plan_id").Where("exercise_id = ?", exerciseID)

	var plans []model.Plan
	err := db.Scopes(model.PlanOrder).
		Preload("PlanExercises").
		Preload("PlanExercises.Records").
		Where("id IN (?)", planIDs).
		Find(&plans).Error
	if err != nil {
		return nil, fmt.Errorf("list plans for exercise: %w", err)
	}
	return plans, nil
}

func (r *PlanRepository) Update(ctx context.Context, plan *model.Plan) error {
	return wrap("update plan", updateAll(ctx, r.db, plan))
}

func (r *PlanRepository) SetEnabled(ctx context.Context, id uint, enabled bool) error {
	return wrap("toggle plan", setEnabled(ctx, r.db, &model.Plan{}, id, enabled))
}

// Delete removes the plan, its plan exercises and their records.
func (r *PlanRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		planExercises := tx.Model(&model.PlanExercise{}).Select("id").Where("plan_id = ?", id)
		if err := tx.Where("plan_exercise_id IN (?)", planExercises).Delete(&model.ExerciseRecord{}).Error; err != nil {
			return err
		}
		if err := tx.Where("plan_id = ?", id).Delete(&model.PlanExercise{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&model.Plan{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	return wrap("delete plan", err)
}

func (r *PlanRepository) withDetails(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Patient").
		Preload("Therapist").
		Preload("PlanExercises").
		Preload("PlanExercises.Exercise").
		Preload("PlanExercises.Records", model.RecordOrder)
}
