package admin

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"convalesense/internal/logger"
	"convalesense/internal/model"
	"convalesense/internal/repository"
	"convalesense/internal/service"
)

// Handler serves the admin JSON API on top of the services.
type Handler struct {
	exercises *service.ExerciseService
	plans     *service.PlanService
	records   *service.RecordService
	users     *repository.UserRepository
	log       *logger.Logger
}

func NewHandler(
	exercises *service.ExerciseService,
	plans *service.PlanService,
	records *service.RecordService,
	users *repository.UserRepository,
	log *logger.Logger,
) *Handler {
	return &Handler{exercises: exercises, plans: plans, records: records, users: users, log: log.With("component", "admin")}
}

type exerciseDetail struct {
	*model.Exercise
	RecordCount int `json:"record_count"`
}

type planDetail struct {
	*model.Plan
	service.PlanStats
}

type planExerciseDetail struct {
	*model.PlanExercise
	ExerciseName string        `json:"name"`
	Reps         uint          `json:"reps"`
	Guidelines   template.HTML `json:"guidelines"`
}

type userInput struct {
	FirstName string `json:"first_name" binding:"required_without=Username"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
}

type toggleInput struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

func newPlanExerciseDetail(pe *model.PlanExercise) planExerciseDetail {
	return planExerciseDetail{
		PlanExercise: pe,
		ExerciseName: pe.Name(),
		Reps:         pe.Reps(),
		Guidelines:   pe.Guidelines(),
	}
}

func (h *Handler) Meta(c *gin.Context) {
	RespondOK(c, gin.H{"entities": Registry})
}

func (h *Handler) EntityMeta(c *gin.Context) {
	cfg, ok := Lookup(c.Param("entity"))
	if !ok {
		RespondError(c, http.StatusNotFound, "not_found", fmt.Errorf("unknown entity %q", c.Param("entity")))
		return
	}
	RespondOK(c, cfg)
}

// Users are owned elsewhere; the admin only lists them and registers
// placeholders so plans can reference them.

func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.users.ListAll(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	out := make([]gin.H, 0, len(users))
	for _, u := range users {
		out = append(out, gin.H{"id": u.ID, "name": u.String(), "telegram": u.TelegramID != nil})
	}
	RespondOK(c, gin.H{"entity": "user", "items": out})
}

func (h *Handler) CreateUser(c *gin.Context) {
	var input userInput
	if !bindJSON(c, &input) {
		return
	}
	user := &model.User{FirstName: input.FirstName, LastName: input.LastName, Username: input.Username}
	if err := h.users.Create(c.Request.Context(), user); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

// Exercises

func (h *Handler) ListExercises(c *gin.Context) {
	published, ok := publishedQuery(c)
	if !ok {
		return
	}
	filter := repository.ExerciseFilter{
		Type:      model.ExerciseType(c.Query("type_of_exercise")),
		Tag:       c.Query("tag"),
		Published: published,
	}
	items, err := h.exercises.List(c.Request.Context(), filter)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	RespondOK(c, ListEnvelope{Entity: EntityExercise, Items: rows(items, exerciseRow)})
}

func (h *Handler) CreateExercise(c *gin.Context) {
	var input service.ExerciseInput
	if !bindJSON(c, &input) {
		return
	}
	exercise, err := h.exercises.Create(c.Request.Context(), input)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, exerciseDetail{Exercise: exercise})
}

func (h *Handler) GetExercise(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	exercise, err := h.exercises.Get(ctx, id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	count, err := h.exercises.RecordCount(ctx, exercise)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	RespondOK(c, exerciseDetail{Exercise: exercise, RecordCount: count})
}

func (h *Handler) UpdateExercise(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var input service.ExerciseInput
	if !bindJSON(c, &input) {
		return
	}
	exercise, err := h.exercises.Update(c.Request.Context(), id, input)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	RespondOK(c, exerciseDetail{Exercise: exercise})
}

func (h *Handler) ToggleExercise(c *gin.Context) {
	h.toggle(c, h.exercises.SetEnabled)
}

func (h *Handler) DeleteExercise(c *gin.Context) {
	h.remove(c, h.exercises.Delete)
}

// Plans

func (h *Handler) ListPlans(c *gin.Context) {
	published, ok := publishedQuery(c)
	if !ok {
		return
	}
	patient, ok := uintQuery(c, "patient")
	if !ok {
		return
	}
	therapist, ok := uintQuery(c, "therapist")
	if !ok {
		return
	}
	filter := repository.PlanFilter{PatientID: patient, TherapistID: therapist, Published: published}
	items, err := h.plans.List(c.Request.Context(), filter)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	RespondOK(c, ListEnvelope{Entity: EntityPlan, Items: rows(items, planRow)})
}

func (h *Handler) CreatePlan(c *gin.Context) {
	var input service.PlanInput
	if !bindJSON(c, &input) {
		return
	}
	plan, err := h.plans.Create(c.Request.Context(), input)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newPlanDetail(plan))
}

func (h *Handler) GetPlan(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	plan, err := h.plans.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	RespondOK(c, newPlanDetail(plan))
}

func (h *Handler) PlanStats(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	stats, err := h.plans.Stats(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	RespondOK(c, stats)
}

func (h *Handler) UpdatePlan(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var input service.PlanInput
	if !bindJSON(c, &input) {
		return
	}
	plan, err := h.plans.Update(c.Request.Context(), id, input)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	RespondOK(c, newPlanDetail(plan))
}

func (h *Handler) TogglePlan(c *gin.Context) {
	h.toggle(c, h.plans.SetEnabled)
}

func (h *Handler) DeletePlan(c *gin.Context) {
	h.remove(c, h.plans.Delete)
}

func newPlanDetail(plan *model.Plan) planDetail {
	return planDetail{
		Plan:      plan,
		PlanStats: service.PlanStats{RecordCount: plan.RecordCount(), ExerciseCount: plan.ExerciseCount()},
	}
}

// Plan exercises

func (h *Handler) ListPlanExercises(c *gin.Context) {
	planID, ok := idParam(c, "id")
	if !ok {
		return
	}
	published, ok := publishedQuery(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if _, err := h.plans.Get(ctx, planID); err != nil {
		respondServiceError(c, err)
		return
	}
	items, err := h.plans.ListExercises(ctx, planID, published)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	details := make([]planExerciseDetail, 0, len(items))
	for i := range items {
		details = append(details, newPlanExerciseDetail(&items[i]))
	}
	RespondOK(c, gin.H{"entity": EntityPlanExercise, "items": details, "rows": rows(items, planExerciseRow)})
}

func (h *Handler) AddPlanExercise(c *gin.Context) {
	planID, ok := idParam(c, "id")
	if !ok {
		return
	}
	var input service.PlanExerciseInput
	if !bindJSON(c, &input) {
		return
	}
	pe, err := h.plans.AddExercise(c.Request.Context(), planID, input)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newPlanExerciseDetail(pe))
}

func (h *Handler) GetPlanExercise(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	pe, err := h.plans.GetExercise(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	RespondOK(c, newPlanExerciseDetail(pe))
}

func (h *Handler) UpdatePlanExercise(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var input service.PlanExerciseInput
	if !bindJSON(c, &input) {
		return
	}
	pe, err := h.plans.UpdateExercise(c.Request.Context(), id, input)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	RespondOK(c, newPlanExerciseDetail(pe))
}

func (h *Handler) TogglePlanExercise(c *gin.Context) {
	h.toggle(c, h.plans.SetExerciseEnabled)
}

func (h *Handler) DeletePlanExercise(c *gin.Context) {
	h.remove(c, h.plans.RemoveExercise)
}

// Records

func (h *Handler) ListRecords(c *gin.Context) {
	planExerciseID, ok := uintQuery(c, "plan_exercise")
	if !ok {
		return
	}
	planID, ok := uintQuery(c, "plan")
	if !ok {
		return
	}
	published, ok := publishedQuery(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	var (
		items []model.ExerciseRecord
		err   error
	)
	switch {
	case planExerciseID != 0:
		items, err = h.records.ListByPlanExercise(ctx, planExerciseID)
	case planID != 0:
		items, err = h.records.ListByPlan(ctx, planID)
	case published:
		items, err = h.records.ListPublished(ctx)
	default:
		RespondError(c, http.StatusBadRequest, "invalid_request", fmt.Errorf("plan_exercise, plan or published query parameter is required"))
		return
	}
	if err != nil {
		respondServiceError(c, err)
		return
	}
	RespondOK(c, ListEnvelope{Entity: EntityExerciseRecord, Items: rows(items, recordRow)})
}

func (h *Handler) SubmitRecord(c *gin.Context) {
	var input service.RecordInput
	if !bindJSON(c, &input) {
		return
	}
	rec, err := h.records.Submit(c.Request.Context(), input)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

func (h *Handler) GetRecord(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	rec, err := h.records.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	RespondOK(c, rec)
}

func (h *Handler) RecordProgress(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	progress, err := h.records.Progress(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{
		"record":         progress.Record,
		"percentage":     progress.Percentage,
		"completed_time": progress.CompletedTime.String(),
		"natural_date":   progress.NaturalDate,
		"display":        progress.Record.String(),
	})
}

func (h *Handler) DeleteRecord(c *gin.Context) {
	h.remove(c, h.records.Delete)
}

func (h *Handler) toggle(c *gin.Context, set func(ctx context.Context, id uint, enabled bool) error) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var input toggleInput
	if !bindJSON(c, &input) {
		return
	}
	if err := set(c.Request.Context(), id, *input.Enabled); err != nil {
		respondServiceError(c, err)
		return
	}
	h.log.Info("toggled", "path", c.FullPath(), "id", id, "enabled", *input.Enabled)
	RespondOK(c, gin.H{"id": id, "enabled": *input.Enabled})
}

func (h *Handler) remove(c *gin.Context, del func(ctx context.Context, id uint) error) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := del(c.Request.Context(), id); err != nil {
		respondServiceError(c, err)
		return
	}
	h.log.Info("deleted", "path", c.FullPath(), "id", id)
	c.Status(http.StatusNoContent)
}

func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return false
	}
	return true
}

func idParam(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		RespondError(c, http.StatusBadRequest, "invalid_id", fmt.Errorf("invalid %s %q", name, raw))
		return 0, false
	}
	return uint(id), true
}

// uintQuery reads an optional numeric query parameter; absent means 0.
func uintQuery(c *gin.Context, name string) (uint, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, true
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", fmt.Errorf("invalid %s %q", name, raw))
		return 0, false
	}
	return uint(v), true
}

func publishedQuery(c *gin.Context) (bool, bool) {
	raw := strings.TrimSpace(c.Query("published"))
	if raw == "" {
		return false, true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", fmt.Errorf("invalid published %q", raw))
		return false, false
	}
	return v, true
}
