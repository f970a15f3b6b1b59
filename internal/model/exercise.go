package model

// ExerciseType decides which game the patient's app presents.
type ExerciseType string

const (
	ExerciseTypeDuration ExerciseType = "duration"
	ExerciseTypeDistance ExerciseType = "distance"
)

func (t ExerciseType) Valid() bool {
	return t == ExerciseTypeDuration || t == ExerciseTypeDistance
}

func (t ExerciseType) Label() string {
	switch t {
	case ExerciseTypeDuration:
		return "Duration"
	case ExerciseTypeDistance:
		return "Distance"
	default:
		return string(t)
	}
}

// Exercise is a reusable exercise definition with default parameters.
type Exercise struct {
	Base
	Parameters
	Name           string         `gorm:"size:100;not null;index" json:"name"`
	Description    string         `gorm:"type:text" json:"description"`
	Steps          string         `gorm:"type:text" json:"steps"`
	TypeOfExercise ExerciseType   `gorm:"size:16;not null;index" json:"type_of_exercise"`
	Image          string         `json:"image,omitempty"`
	PlanExercises  []PlanExercise `gorm:"foreignKey:ExerciseID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

func (e Exercise) String() string {
	return e.Name
}

// RecordCount sums the record counts of every distinct plan that includes
// this exercise. Plans must be loaded with their plan exercises and records.
func (e Exercise) RecordCount(plans []Plan) int {
	seen := make(map[uint]struct{}, len(plans))
	total := 0
	for _, plan := range plans {
		if _, ok := seen[plan.ID]; ok {
			continue
		}
		if !plan.Includes(e.ID) {
			continue
		}
		seen[plan.ID] = struct{}{}
		total += plan.RecordCount()
	}
	return total
}
