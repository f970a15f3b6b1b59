package admin

import (
	"time"

	"convalesense/internal/model"
)

// Fieldset groups form fields under an optional heading.
type Fieldset struct {
	Name   string   `json:"name,omitempty"`
	Fields []string `json:"fields"`
}

// Inline edits child rows on the parent's page.
type Inline struct {
	Entity    string     `json:"entity"`
	Style     string     `json:"style"`
	Fieldsets []Fieldset `json:"fieldsets"`
}

// EntityAdmin describes how the admin lists and edits one entity.
type EntityAdmin struct {
	Entity           string     `json:"entity"`
	Path             string     `json:"path"`
	ListDisplay      []string   `json:"list_display"`
	ListDisplayLinks []string   `json:"list_display_links,omitempty"`
	ListFilter       []string   `json:"list_filter,omitempty"`
	Fieldsets        []Fieldset `json:"fieldsets,omitempty"`
	Inlines          []Inline   `json:"inlines,omitempty"`
}

const (
	EntityExercise       = "exercise"
	EntityPlan           = "plan"
	EntityPlanExercise   = "plan_exercise"
	EntityExerciseRecord = "exercise_record"
)

var baseListDisplay = []string{"id", "created_at"}

func withBase(columns ...string) []string {
	return append(append([]string{}, baseListDisplay...), columns...)
}

var planExerciseInline = Inline{
	Entity: EntityPlanExercise,
	Style:  "stacked",
	Fieldsets: []Fieldset{
		{Fields: []string{"exercise", "order", "count"}},
		{Name: "Extra information for the patient", Fields: []string{"additional_description"}},
		{Name: "Customization of this exercise", Fields: []string{"number_of_reps", "distance", "duration", "score", "weight"}},
	},
}

// Registry is the admin configuration for every entity, in menu order.
var Registry = []EntityAdmin{
	{
		Entity:           EntityExercise,
		Path:             "/admin/exercises",
		ListDisplay:      withBase("name", "type_of_exercise"),
		ListDisplayLinks: []string{"id", "name"},
		ListFilter:       []string{"type_of_exercise"},
		Fieldsets: []Fieldset{
			{Fields: []string{"name", "type_of_exercise", "description"}},
			{Name: "Common", Fields: []string{"number_of_reps", "weight", "score"}},
			{Name: "Duration games", Fields: []string{"duration"}},
			{Name: "Distance games", Fields: []string{"distance"}},
		},
	},
	{
		Entity:           EntityPlan,
		Path:             "/admin/plans",
		ListDisplay:      withBase("name", "patient", "therapist", "exercise_count"),
		ListDisplayLinks: []string{"id", "name"},
		ListFilter:       []string{"patient", "therapist"},
		Inlines:          []Inline{planExerciseInline},
	},
	{
		Entity:      EntityPlanExercise,
		Path:        "/admin/plan-exercises",
		ListDisplay: withBase(),
	},
	{
		Entity:      EntityExerciseRecord,
		Path:        "/admin/records",
		ListDisplay: withBase(),
	},
}

// Lookup finds the admin configuration for entity.
func Lookup(entity string) (EntityAdmin, bool) {
	for _, e := range Registry {
		if e.Entity == entity {
			return e, true
		}
	}
	return EntityAdmin{}, false
}

// Row is one list line keyed by list_display column.
type Row map[string]interface{}

func project(entity string, all Row) Row {
	cfg, _ := Lookup(entity)
	row := make(Row, len(cfg.ListDisplay))
	for _, col := range cfg.ListDisplay {
		row[col] = all[col]
	}
	return row
}

func baseColumns(b model.Base) Row {
	return Row{
		"id":         b.ID,
		"created_at": b.CreatedAt.Format(time.RFC3339),
	}
}

func exerciseRow(e model.Exercise) Row {
	all := baseColumns(e.Base)
	all["name"] = e.Name
	all["type_of_exercise"] = e.TypeOfExercise.Label()
	return project(EntityExercise, all)
}

// planRow expects Patient, Therapist and PlanExercises to be loaded.
func planRow(p model.Plan) Row {
	all := baseColumns(p.Base)
	all["name"] = p.Name
	all["patient"] = userName(p.Patient, p.PatientID)
	all["therapist"] = userName(p.Therapist, p.TherapistID)
	all["exercise_count"] = p.ExerciseCount()
	return project(EntityPlan, all)
}

func planExerciseRow(pe model.PlanExercise) Row {
	return project(EntityPlanExercise, baseColumns(pe.Base))
}

func recordRow(r model.ExerciseRecord) Row {
	return project(EntityExerciseRecord, baseColumns(r.Base))
}

func userName(u *model.User, id uint) string {
	if u == nil {
		u = &model.User{ID: id}
	}
	return u.String()
}

func rows[T any](items []T, render func(T) Row) []Row {
	out := make([]Row, 0, len(items))
	for _, item := range items {
		out = append(out, render(item))
	}
	return out
}
