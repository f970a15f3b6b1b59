package model

import (
	"fmt"
	"html/template"
	"sort"
	"strconv"
	"strings"
)

// PlanExercise places one exercise into one plan, optionally overriding
// the exercise's parameters for that plan.
type PlanExercise struct {
	Base
	Parameters
	PlanID                uint             `gorm:"not null;index" json:"plan_id"`
	Plan                  *Plan            `json:"-"`
	ExerciseID            uint             `gorm:"not null;index" json:"exercise_id"`
	Exercise              *Exercise        `json:"exercise,omitempty"`
	AdditionalDescription string           `gorm:"type:text" json:"additional_description"`
	Order                 *uint            `gorm:"column:sort_order" json:"order,omitempty"`
	Count                 uint             `gorm:"not null;default:1" json:"count"`
	Optional              bool             `gorm:"not null;default:false" json:"optional"`
	Image                 string           `json:"image,omitempty"`
	Records               []ExerciseRecord `gorm:"foreignKey:PlanExerciseID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// Name reads through to the linked exercise.
func (pe PlanExercise) Name() string {
	if pe.Exercise == nil {
		return ""
	}
	return pe.Exercise.Name
}

// Reps is the per-plan override when set and non-zero, else the exercise default.
// Zero means neither is set.
func (pe PlanExercise) Reps() uint {
	if pe.NumberOfReps != nil && *pe.NumberOfReps != 0 {
		return *pe.NumberOfReps
	}
	if pe.Exercise != nil && pe.Exercise.NumberOfReps != nil {
		return *pe.Exercise.NumberOfReps
	}
	return 0
}

func (pe PlanExercise) weight() (float64, bool) {
	if pe.Weight != nil && *pe.Weight != 0 {
		return *pe.Weight, true
	}
	if pe.Exercise != nil && pe.Exercise.Weight != nil && *pe.Exercise.Weight != 0 {
		return *pe.Exercise.Weight, true
	}
	return 0, false
}

// Guidelines is the patient-facing instruction line. The text is built only
// from admin-entered numbers, so it is safe to render unescaped.
func (pe PlanExercise) Guidelines() template.HTML {
	label := "required"
	if pe.Optional {
		label = "optional"
	}

	plural := "s"
	if pe.Count == 1 {
		plural = ""
	}

	prefix := ""
	if w, ok := pe.weight(); ok {
		prefix = fmt.Sprintf("Lift a %skg weight ", formatWeight(w))
	}

	return template.HTML(fmt.Sprintf("%s%d time%s per day with %d reps per session. This exercise is %s.",
		prefix, pe.Count, plural, pe.Reps(), label))
}

func (pe PlanExercise) String() string {
	return pe.Name()
}

// formatWeight always keeps a decimal point: 5 -> "5.0", 2.5 -> "2.5".
func formatWeight(w float64) string {
	s := strconv.FormatFloat(w, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// SortPlanExercises orders rows by their explicit order, unset last, then by
// exercise name. Exercises must be loaded.
func SortPlanExercises(items []PlanExercise) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i].Order, items[j].Order
		switch {
		case a != nil && b != nil && *a != *b:
			return *a < *b
		case a != nil && b == nil:
			return true
		case a == nil && b != nil:
			return false
		}
		return items[i].Name() < items[j].Name()
	})
}
