package model

import (
	"errors"
	"fmt"
	"html/template"
	"time"

	"gorm.io/gorm"
)

// ErrZeroReps is returned by Percentage when the plan exercise has no reps.
var ErrZeroReps = errors.New("plan exercise has no reps to measure against")

// ExerciseRecord is one logged completion of a plan exercise.
// A plan exercise cannot have two records starting at the same instant.
type ExerciseRecord struct {
	Base
	PlanExerciseID uint          `gorm:"not null;uniqueIndex:idx_record_exercise_start" json:"exercise_id"`
	PlanExercise   *PlanExercise `json:"-"`
	Count          uint          `gorm:"not null" json:"count"`
	Start          time.Time     `gorm:"column:started_at;not null;uniqueIndex:idx_record_exercise_start" json:"start"`
	End            time.Time     `gorm:"column:ended_at;not null" json:"end"`
}

// CompletedTime is End - Start. It is negative when End precedes Start.
func (r ExerciseRecord) CompletedTime() time.Duration {
	return r.End.Sub(r.Start)
}

// Percentage is Count against the plan exercise's resolved reps, times 100.
// PlanExercise and its Exercise must be loaded.
func (r ExerciseRecord) Percentage() (float64, error) {
	var reps uint
	if r.PlanExercise != nil {
		reps = r.PlanExercise.Reps()
	}
	if reps == 0 {
		return 0, ErrZeroReps
	}
	return float64(r.Count) / float64(reps) * 100, nil
}

// NaturalDate renders the start date as "<span>2024-01-02</span><span>January 2nd</span>".
func (r ExerciseRecord) NaturalDate() template.HTML {
	day := r.Start.Day()
	return template.HTML(fmt.Sprintf("<span>%s</span><span>%s %d%s</span>",
		r.Start.Format("2006-01-02"), r.Start.Month(), day, ordinalSuffix(day)))
}

func (r ExerciseRecord) String() string {
	name := ""
	if r.PlanExercise != nil {
		name = r.PlanExercise.String()
	}
	return fmt.Sprintf("%s - %d in %s on %s", name, r.Count, r.CompletedTime(), r.Start.Format("2006-01-02 15:04:05"))
}

func ordinalSuffix(day int) string {
	if day%100 >= 11 && day%100 <= 13 {
		return "th"
	}
	switch day % 10 {
	case 1:
		return "st"
	case 2:
		return "nd"
	case 3:
		return "rd"
	default:
		return "th"
	}
}

// RecordOrder lists records chronologically.
func RecordOrder(db *gorm.DB) *gorm.DB {
	return db.
		Order(orderBy("started_at", false)).
		Order(orderBy("ended_at", false))
}
