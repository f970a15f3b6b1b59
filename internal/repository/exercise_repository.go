package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"convalesense/internal/model"
)

// ExerciseFilter narrows exercise listings. Zero values match everything.
type ExerciseFilter struct {
	Type      model.ExerciseType
	Tag       string
	Published bool
}

// ExerciseRepository handles CRUD for exercise definitions.
type ExerciseRepository struct {
	db *gorm.DB
}

func NewExerciseRepository(db *gorm.DB) *ExerciseRepository {
	return &ExerciseRepository{db: db}
}

func (r *ExerciseRepository) Create(ctx context.Context, exercise *model.Exercise) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(exercise).Error; err != nil {
		return fmt.Errorf("create exercise: %w", err)
	}
	return nil
}

func (r *ExerciseRepository) Get(ctx context.Context, id uint) (*model.Exercise, error) {
	var exercise model.Exercise
	if err := r.db.WithContext(ctx).First(&exercise, id).Error; err != nil {
		return nil, wrap("find exercise", err)
	}
	return &exercise, nil
}

func (r *ExerciseRepository) List(ctx context.Context, filter ExerciseFilter) ([]model.Exercise, error) {
	db := r.db.WithContext(ctx).Scopes(model.RecentFirst)
	if filter.Published {
		db = db.Scopes(model.Enabled)
	}
	if filter.Type != "" {
		db = db.Where("type_of_exercise = ?", filter.Type)
	}
	if filter.Tag != "" {
		db = db.Where("tag = ?", filter.Tag)
	}

	var exercises []model.Exercise
	if err := db.Find(&exercises).Error; err != nil {
		return nil, fmt.Errorf("list exercises: %w", err)
	}
	return exercises, nil
}

func (r *ExerciseRepository) ListPublished(ctx context.Context) ([]model.Exercise, error) {
	return r.List(ctx, ExerciseFilter{Published: true})
}

func (r *ExerciseRepository) Update(ctx context.Context, exercise *model.Exercise) error {
	return wrap("update exercise", updateAll(ctx, r.db, exercise))
}

func (r *ExerciseRepository) SetEnabled(ctx context.Context, id uint, enabled bool) error {
	return wrap("toggle exercise", setEnabled(ctx, r.db, &model.Exercise{}, id, enabled))
}

// Delete removes the exercise together with every plan exercise built on it
// and their records.
func (r *ExerciseRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		planExercises := tx.Model(&model.PlanExercise{}).Select("id").Where("exercise_id = ?", id)
		if err := tx.Where("plan_exercise_id IN (?)", planExercises).Delete(&model.ExerciseRecord{}).Error; err != nil {
			return err
		}
		if err := tx.Where("exercise_id = ?", id).Delete(&model.PlanExercise{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&model.Exercise{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	return wrap("delete exercise", err)
}
