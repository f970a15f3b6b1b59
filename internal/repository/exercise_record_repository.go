package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"convalesense/internal/model"
)

// ExerciseRecordRepository stores completion records.
type ExerciseRecordRepository struct {
	db *gorm.DB
}

func NewExerciseRecordRepository(db *gorm.DB) *ExerciseRecordRepository {
	return &ExerciseRecordRepository{db: db}
}

// Create stores the record unless the plan exercise already has one with the
// same start. The unique index settles concurrent inserts.
func (r *ExerciseRecordRepository) Create(ctx context.Context, rec *model.ExerciseRecord) error {
	rec.Start = rec.Start.UTC()
	rec.End = rec.End.UTC()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&model.ExerciseRecord{}).
			Where("plan_exercise_id = ? AND started_at = ?", rec.PlanExerciseID, rec.Start).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrDuplicateRecord
		}
		return tx.Omit(clause.Associations).Create(rec).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		err = ErrDuplicateRecord
	}
	if err != nil {
		return fmt.Errorf("create record: %w", err)
	}
	return nil
}

// Get loads the record with its plan exercise and exercise.
func (r *ExerciseRecordRepository) Get(ctx context.Context, id uint) (*model.ExerciseRecord, error) {
	var rec model.ExerciseRecord
	if err := r.db.WithContext(ctx).Preload("PlanExercise.Exercise").First(&rec, id).Error; err != nil {
		return nil, wrap("find record", err)
	}
	return &rec, nil
}

func (r *ExerciseRecordRepository) ListByPlanExercise(ctx context.Context, planExerciseID uint) ([]model.ExerciseRecord, error) {
	var records []model.ExerciseRecord
	err := r.db.WithContext(ctx).
		Preload("PlanExercise.Exercise").
		Scopes(model.RecordOrder).
		Where("plan_exercise_id = ?", planExerciseID).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return records, nil
}

func (r *ExerciseRecordRepository) ListByPlan(ctx context.Context, planID uint) ([]model.ExerciseRecord, error) {
	db := r.db.WithContext(ctx)
	planExercises := db.Model(&model.PlanExercise{}).Select("id").Where("plan_id = ?", planID)

	var records []model.ExerciseRecord
	err := db.Preload("PlanExercise.Exercise").
		Scopes(model.RecordOrder).
		Where("plan_exercise_id IN (?)", planExercises).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("list plan records: %w", err)
	}
	return records, nil
}

// ListPublished returns every enabled record, oldest first.
func (r *ExerciseRecordRepository) ListPublished(ctx context.Context) ([]model.ExerciseRecord, error) {
	var records []model.ExerciseRecord
	err := r.db.WithContext(ctx).
		Preload("PlanExercise.Exercise").
		Scopes(model.RecordOrder, model.Enabled).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("list published records: %w", err)
	}
	return records, nil
}

// CountSince counts the plan exercise's records started at or after since.
func (r *ExerciseRecordRepository) CountSince(ctx context.Context, planExerciseID uint, since time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.ExerciseRecord{}).
		Where("plan_exercise_id = ? AND started_at >= ?", planExerciseID, since.UTC()).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

func (r *ExerciseRecordRepository) Update(ctx context.Context, rec *model.ExerciseRecord) error {
	rec.Start = rec.Start.UTC()
	rec.End = rec.End.UTC()
	err := updateAll(ctx, r.db, rec)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		err = ErrDuplicateRecord
	}
	return wrap("update record", err)
}

func (r *ExerciseRecordRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&model.ExerciseRecord{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete record: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("delete record: %w", ErrNotFound)
	}
	return nil
}
