package model

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Plan is a treatment plan a therapist assigns to one patient.
type Plan struct {
	Base
	PatientID     uint           `gorm:"not null;index" json:"patient_id"`
	Patient       *User          `gorm:"foreignKey:PatientID;constraint:OnDelete:CASCADE" json:"patient,omitempty"`
	TherapistID   uint           `gorm:"not null;index" json:"therapist_id"`
	Therapist     *User          `gorm:"foreignKey:TherapistID;constraint:OnDelete:CASCADE" json:"therapist,omitempty"`
	Name          string         `gorm:"size:100" json:"name"`
	Description   string         `gorm:"type:text" json:"description"`
	SessionCount  *uint          `gorm:"default:1" json:"session_count,omitempty"`
	Start         *time.Time     `gorm:"column:starts_at;index" json:"start,omitempty"`
	End           *time.Time     `gorm:"column:ends_at" json:"end,omitempty"`
	Image         string         `json:"image,omitempty"`
	PlanExercises []PlanExercise `gorm:"foreignKey:PlanID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"plan_exercises,omitempty"`
}

// RecordCount is the number of completion records across the plan's exercises.
func (p Plan) RecordCount() int {
	total := 0
	for _, pe := range p.PlanExercises {
		total += len(pe.Records)
	}
	return total
}

// ExerciseCount is the number of distinct exercises linked to the plan.
func (p Plan) ExerciseCount() int {
	seen := make(map[uint]struct{}, len(p.PlanExercises))
	for _, pe := range p.PlanExercises {
		seen[pe.ExerciseID] = struct{}{}
	}
	return len(seen)
}

func (p Plan) Includes(exerciseID uint) bool {
	for _, pe := range p.PlanExercises {
		if pe.ExerciseID == exerciseID {
			return true
		}
	}
	return false
}

// ActiveOn reports whether the plan's window covers any part of day.
// Open ends count as unbounded.
func (p Plan) ActiveOn(day time.Time) bool {
	y, m, d := day.Date()
	dayStart := time.Date(y, m, d, 0, 0, 0, 0, day.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)
	if p.Start != nil && !p.Start.Before(dayEnd) {
		return false
	}
	if p.End != nil && p.End.Before(dayStart) {
		return false
	}
	return true
}

func (p Plan) String() string {
	return fmt.Sprintf("Plan %3d (%s) for %s by %s", p.ID, p.Name, userLabel(p.Patient, p.PatientID), userLabel(p.Therapist, p.TherapistID))
}

func userLabel(u *User, id uint) string {
	if u != nil {
		return u.String()
	}
	return User{ID: id}.String()
}

// PlanOrder lists plans by start date, then most recently updated.
func PlanOrder(db *gorm.DB) *gorm.DB {
	return db.
		Order(orderBy("starts_at", false)).
		Order(orderBy("updated_at", true))
}
