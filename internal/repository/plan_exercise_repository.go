package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"convalesense/internal/model"
)

// PlanExerciseRepository handles the exercises placed inside plans.
type PlanExerciseRepository struct {
	db *gorm.DB
}

func NewPlanExerciseRepository(db *gorm.DB) *PlanExerciseRepository {
	return &PlanExerciseRepository{db: db}
}

func (r *PlanExerciseRepository) Create(ctx context.Context, pe *model.PlanExercise) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(pe).Error; err != nil {
		return fmt.Errorf("create plan exercise: %w", err)
	}
	return nil
}

// Get loads the plan exercise with its exercise and plan.
func (r *PlanExerciseRepository) Get(ctx context.Context, id uint) (*model.PlanExercise, error) {
	var pe model.PlanExercise
	if err := r.db.WithContext(ctx).Preload("Exercise").Preload("Plan").First(&pe, id).Error; err != nil {
		return nil, wrap("find plan exercise", err)
	}
	return &pe, nil
}

// ListByPlan returns the plan's exercises in display order.
func (r *PlanExerciseRepository) ListByPlan(ctx context.Context, planID uint, published bool) ([]model.PlanExercise, error) {
	db := r.db.WithContext(ctx).Preload("Exercise").Where("plan_id = ?", planID)
	if published {
		db = db.Scopes(model.Enabled)
	}

	var items []model.PlanExercise
	if err := db.Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list plan exercises: %w", err)
	}
	model.SortPlanExercises(items)
	return items, nil
}

// ListPublished returns every enabled plan exercise with its exercise.
func (r *PlanExerciseRepository) ListPublished(ctx context.Context) ([]model.PlanExercise, error) {
	var items []model.PlanExercise
	err := r.db.WithContext(ctx).Preload("Exercise").Scopes(model.RecentFirst, model.Enabled).Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("list published plan exercises: %w", err)
	}
	return items, nil
}

func (r *PlanExerciseRepository) Update(ctx context.Context, pe *model.PlanExercise) error {
	return wrap("update plan exercise", updateAll(ctx, r.db, pe))
}

func (r *PlanExerciseRepository) SetEnabled(ctx context.Context, id uint, enabled bool) error {
	return wrap("toggle plan exercise", setEnabled(ctx, r.db, &model.PlanExercise{}, id, enabled))
}

// Delete removes the plan exercise and its records.
func (r *PlanExerciseRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("plan_exercise_id = ?", id).Delete(&model.ExerciseRecord{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&model.PlanExercise{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	return wrap("delete plan exercise", err)
}
