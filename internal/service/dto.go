package service

import (
	"time"

	"convalesense/internal/model"
)

// ExerciseInput creates or replaces an exercise definition.
type ExerciseInput struct {
	Name           string             `json:"name" validate:"required,max=100"`
	TypeOfExercise model.ExerciseType `json:"type_of_exercise" validate:"required,oneof=duration distance"`
	Description    string             `json:"description"`
	Steps          string             `json:"steps"`
	Image          string             `json:"image"`
	Tag            *string            `json:"tag" validate:"omitempty,oneof=a i"`
	Enabled        *bool              `json:"enabled"`
	model.Parameters
}

// PlanInput creates or replaces a treatment plan.
type PlanInput struct {
	PatientID    uint       `json:"patient_id" validate:"required"`
	TherapistID  uint       `json:"therapist_id" validate:"required"`
	Name         string     `json:"name" validate:"max=100"`
	Description  string     `json:"description"`
	SessionCount *uint      `json:"session_count"`
	Start        *time.Time `json:"start"`
	End          *time.Time `json:"end"`
	Image        string     `json:"image"`
	Tag          *string    `json:"tag" validate:"omitempty,oneof=a i"`
	Enabled      *bool      `json:"enabled"`
}

// PlanExerciseInput places an exercise in a plan with optional overrides.
type PlanExerciseInput struct {
	ExerciseID            uint    `json:"exercise_id" validate:"required"`
	AdditionalDescription string  `json:"additional_description"`
	Order                 *uint   `json:"order"`
	Count                 *uint   `json:"count" validate:"omitempty,min=1"`
	Optional              bool    `json:"optional"`
	Image                 string  `json:"image"`
	Tag                   *string `json:"tag" validate:"omitempty,oneof=a i"`
	Enabled               *bool   `json:"enabled"`
	model.Parameters
}

// RecordInput is one completion submitted by a patient client.
type RecordInput struct {
	PlanExerciseID uint       `json:"exercise_id" validate:"required"`
	Count          *uint      `json:"count" validate:"required"`
	Start          *time.Time `json:"start" validate:"required"`
	End            *time.Time `json:"end" validate:"required"`
	Tag            *string    `json:"tag" validate:"omitempty,oneof=a i"`
}

// PlanStats are the plan's derived counters.
type PlanStats struct {
	RecordCount   int `json:"record_count"`
	ExerciseCount int `json:"exercise_count"`
}
