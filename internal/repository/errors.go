package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateRecord is returned when a plan exercise already has a
	// record starting at the same instant.
	ErrDuplicateRecord = errors.New("a record with this start already exists for the exercise")
)

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// setEnabled flips the soft-delete flag of one row of the given model.
func setEnabled(ctx context.Context, db *gorm.DB, row interface{}, id uint, enabled bool) error {
	res := db.WithContext(ctx).Model(row).Where("id = ?", id).Update("enabled", enabled)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// updateAll writes every column except created_at and associations.
func updateAll(ctx context.Context, db *gorm.DB, row interface{}) error {
	res := db.WithContext(ctx).Model(row).Select("*").Omit("id", "created_at", clause.Associations).Updates(row)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
