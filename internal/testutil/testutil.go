package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"convalesense/internal/model"
	"convalesense/internal/repository"
)

// DB opens a private in-memory SQLite database with every table migrated.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		tb.Fatalf("open test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		tb.Fatalf("test db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	tb.Cleanup(func() {
		_ = sqlDB.Close()
	})

	if err := repository.Migrate(db); err != nil {
		tb.Fatalf("migrate test db: %v", err)
	}
	return db
}

func SeedUser(tb testing.TB, db *gorm.DB, firstName string) *model.User {
	tb.Helper()
	u := &model.User{FirstName: firstName}
	if err := db.WithContext(context.Background()).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedExercise(tb testing.TB, db *gorm.DB, name string, reps uint) *model.Exercise {
	tb.Helper()
	e := &model.Exercise{
		Name:           name,
		TypeOfExercise: model.ExerciseTypeDuration,
		Parameters:     model.Parameters{NumberOfReps: PtrUint(reps)},
	}
	if err := db.Omit(clause.Associations).Create(e).Error; err != nil {
		tb.Fatalf("seed exercise: %v", err)
	}
	return e
}

func SeedPlan(tb testing.TB, db *gorm.DB, patientID, therapistID uint, name string) *model.Plan {
	tb.Helper()
	p := &model.Plan{
		PatientID:   patientID,
		TherapistID: therapistID,
		Name:        name,
	}
	if err := db.Omit(clause.Associations).Create(p).Error; err != nil {
		tb.Fatalf("seed plan: %v", err)
	}
	return p
}

func SeedPlanExercise(tb testing.TB, db *gorm.DB, planID, exerciseID uint) *model.PlanExercise {
	tb.Helper()
	pe := &model.PlanExercise{PlanID: planID, ExerciseID: exerciseID, Count: 1}
	if err := db.Omit(clause.Associations).Create(pe).Error; err != nil {
		tb.Fatalf("seed plan exercise: %v", err)
	}
	return pe
}

func SeedRecord(tb testing.TB, db *gorm.DB, planExerciseID uint, start time.Time, count uint) *model.ExerciseRecord {
	tb.Helper()
	rec := &model.ExerciseRecord{
		PlanExerciseID: planExerciseID,
		Count:          count,
		Start:          start.UTC(),
		End:            start.UTC().Add(10 * time.Minute),
	}
	if err := db.Omit(clause.Associations).Create(rec).Error; err != nil {
		tb.Fatalf("seed record: %v", err)
	}
	return rec
}

func PtrUint(v uint) *uint { return &v }

func PtrFloat(v float64) *float64 { return &v }

func PtrTime(v time.Time) *time.Time { return &v }

func PtrBool(v bool) *bool { return &v }
