package admin

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"convalesense/internal/logger"
	"convalesense/internal/repository"
	"convalesense/internal/service"
	"convalesense/internal/testutil"
)

const testOrigin = "http://localhost:3000"

func newTestRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.DB(t)
	users := repository.NewUserRepository(db)
	exercises := repository.NewExerciseRepository(db)
	plans := repository.NewPlanRepository(db)
	planExercises := repository.NewPlanExerciseRepository(db)
	records := repository.NewExerciseRecordRepository(db)

	h := NewHandler(
		service.NewExerciseService(exercises, plans),
		service.NewPlanService(plans, planExercises, exercises, users),
		service.NewRecordService(records, planExercises),
		users,
		logger.Nop(),
	)
	return NewRouter(h, logger.Nop(), []string{testOrigin}), db
}

func call(t *testing.T, r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	body := decode(t, rec)
	envelope, ok := body["error"].(map[string]interface{})
	require.True(t, ok, rec.Body.String())
	return envelope["code"].(string)
}

func idOf(t *testing.T, rec *httptest.ResponseRecorder) uint {
	t.Helper()
	return uint(decode(t, rec)["id"].(float64))
}

func TestMeta(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := call(t, r, http.MethodGet, "/admin/meta", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	entities := decode(t, rec)["entities"].([]interface{})
	assert.Len(t, entities, 4)

	rec = call(t, r, http.MethodGet, "/admin/meta/plan", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var plan EntityAdmin
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &plan))
	assert.Equal(t, []string{"id", "created_at", "name", "patient", "therapist", "exercise_count"}, plan.ListDisplay)
	assert.Equal(t, []string{"patient", "therapist"}, plan.ListFilter)
	require.Len(t, plan.Inlines, 1)
	assert.Equal(t, "stacked", plan.Inlines[0].Style)
	assert.Equal(t, "Customization of this exercise", plan.Inlines[0].Fieldsets[2].Name)

	rec = call(t, r, http.MethodGet, "/admin/meta/invoice", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", errorCode(t, rec))
}

func TestUserEndpoints(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := call(t, r, http.MethodPost, "/admin/users", map[string]string{"first_name": "Ada", "last_name": "Byron"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = call(t, r, http.MethodPost, "/admin/users", map[string]string{"username": "drsmith"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = call(t, r, http.MethodPost, "/admin/users", map[string]string{"last_name": "Nobody"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = call(t, r, http.MethodGet, "/admin/users", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	items := decode(t, rec)["items"].([]interface{})
	require.Len(t, items, 2)
	assert.Equal(t, "Ada Byron", items[0].(map[string]interface{})["name"])
	assert.Equal(t, "drsmith", items[1].(map[string]interface{})["name"])
	assert.Equal(t, false, items[1].(map[string]interface{})["telegram"])
}

func TestExerciseEndpoints(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := call(t, r, http.MethodPost, "/admin/exercises", map[string]interface{}{
		"name": "Squat", "type_of_exercise": "duration", "number_of_reps": 10,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	squatID := idOf(t, rec)

	rec = call(t, r, http.MethodPost, "/admin/exercises", map[string]interface{}{
		"name": "Walk", "type_of_exercise": "distance",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = call(t, r, http.MethodPost, "/admin/exercises", map[string]interface{}{"type_of_exercise": "duration"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_failed", errorCode(t, rec))

	rec = call(t, r, http.MethodGet, "/admin/exercises?type_of_exercise=duration", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	items := decode(t, rec)["items"].([]interface{})
	require.Len(t, items, 1)
	row := items[0].(map[string]interface{})
	assert.Len(t, row, 4)
	assert.Equal(t, "Squat", row["name"])
	assert.Equal(t, "Duration", row["type_of_exercise"])

	rec = call(t, r, http.MethodPut, fmt.Sprintf("/admin/exercises/%d/enabled", squatID), map[string]bool{"enabled": false})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = call(t, r, http.MethodGet, "/admin/exercises?published=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	items = decode(t, rec)["items"].([]interface{})
	require.Len(t, items, 1)
	assert.Equal(t, "Walk", items[0].(map[string]interface{})["name"])

	rec = call(t, r, http.MethodGet, fmt.Sprintf("/admin/exercises/%d", squatID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.EqualValues(t, 0, body["record_count"])
	assert.EqualValues(t, 10, body["number_of_reps"])
	assert.Equal(t, false, body["enabled"])

	rec = call(t, r, http.MethodGet, "/admin/exercises/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_id", errorCode(t, rec))

	rec = call(t, r, http.MethodGet, "/admin/exercises/9999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = call(t, r, http.MethodDelete, fmt.Sprintf("/admin/exercises/%d", squatID), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = call(t, r, http.MethodDelete, fmt.Sprintf("/admin/exercises/%d", squatID), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPlanAndRecordFlow(t *testing.T) {
	r, db := newTestRouter(t)
	patient := testutil.SeedUser(t, db, "Ada")
	therapist := testutil.SeedUser(t, db, "Grace")
	squat := testutil.SeedExercise(t, db, "Squat", 10)

	rec := call(t, r, http.MethodPost, "/admin/plans", map[string]interface{}{
		"patient_id": patient.ID, "therapist_id": therapist.ID, "name": "Knee rehab",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	planID := idOf(t, rec)

	rec = call(t, r, http.MethodPost, "/admin/plans", map[string]interface{}{
		"patient_id": 9999, "therapist_id": therapist.ID,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = call(t, r, http.MethodPost, fmt.Sprintf("/admin/plans/%d/exercises", planID), map[string]interface{}{
		"exercise_id": squat.ID, "count": 2, "weight": 5,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	pe := decode(t, rec)
	peID := uint(pe["id"].(float64))
	assert.Equal(t, "Squat", pe["name"])
	assert.Equal(t, "Lift a 5.0kg weight 2 times per day with 10 reps per session. This exercise is required.", pe["guidelines"])

	rec = call(t, r, http.MethodGet, fmt.Sprintf("/admin/plans?patient=%d", patient.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	items := decode(t, rec)["items"].([]interface{})
	require.Len(t, items, 1)
	row := items[0].(map[string]interface{})
	assert.Equal(t, "Ada", row["patient"])
	assert.Equal(t, "Grace", row["therapist"])
	assert.EqualValues(t, 1, row["exercise_count"])

	rec = call(t, r, http.MethodGet, fmt.Sprintf("/admin/plans?patient=%d", therapist.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode(t, rec)["items"])

	record := map[string]interface{}{
		"exercise_id": peID,
		"count":       5,
		"start":       "2024-01-01T10:00:00Z",
		"end":         "2024-01-01T10:15:00Z",
	}
	rec = call(t, r, http.MethodPost, "/admin/records", record)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	recordID := idOf(t, rec)

	rec = call(t, r, http.MethodPost, "/admin/records", record)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "duplicate_record", errorCode(t, rec))

	rec = call(t, r, http.MethodGet, fmt.Sprintf("/admin/records/%d/progress", recordID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	progress := decode(t, rec)
	assert.InDelta(t, 50.0, progress["percentage"].(float64), 0.0001)
	assert.Equal(t, "15m0s", progress["completed_time"])
	assert.Equal(t, "<span>2024-01-01</span><span>January 1st</span>", progress["natural_date"])

	rec = call(t, r, http.MethodGet, fmt.Sprintf("/admin/records?plan_exercise=%d", peID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["items"], 1)
	rec = call(t, r, http.MethodGet, "/admin/records", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = call(t, r, http.MethodGet, "/admin/records?published=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["items"], 1)

	rec = call(t, r, http.MethodGet, fmt.Sprintf("/admin/plans/%d/stats", planID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]interface{}{"record_count": float64(1), "exercise_count": float64(1)}, decode(t, rec))

	rec = call(t, r, http.MethodPut, fmt.Sprintf("/admin/plan-exercises/%d/enabled", peID), map[string]bool{"enabled": false})
	require.Equal(t, http.StatusOK, rec.Code)
	record["start"] = "2024-01-02T10:00:00Z"
	rec = call(t, r, http.MethodPost, "/admin/records", record)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "unavailable", errorCode(t, rec))

	rec = call(t, r, http.MethodGet, fmt.Sprintf("/admin/plans/%d/exercises?published=1", planID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode(t, rec)["items"])

	rec = call(t, r, http.MethodDelete, fmt.Sprintf("/admin/plans/%d", planID), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = call(t, r, http.MethodGet, fmt.Sprintf("/admin/records/%d", recordID), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestZeroRepsProgress(t *testing.T) {
	r, db := newTestRouter(t)
	patient := testutil.SeedUser(t, db, "Ada")
	therapist := testutil.SeedUser(t, db, "Grace")
	hold := testutil.SeedExercise(t, db, "Hold", 0)
	plan := testutil.SeedPlan(t, db, patient.ID, therapist.ID, "Balance")
	pe := testutil.SeedPlanExercise(t, db, plan.ID, hold.ID)

	rec := call(t, r, http.MethodPost, "/admin/records", map[string]interface{}{
		"exercise_id": pe.ID,
		"count":       3,
		"start":       "2024-02-02T08:00:00Z",
		"end":         "2024-02-02T08:05:00Z",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = call(t, r, http.MethodGet, fmt.Sprintf("/admin/records/%d/progress", idOf(t, rec)), nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "zero_reps", errorCode(t, rec))
}

func TestMiddleware(t *testing.T) {
	r, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/admin/exercises", nil)
	req.Header.Set("Origin", testOrigin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, testOrigin, rec.Header().Get("Access-Control-Allow-Origin"))

	rec = call(t, r, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(requestIDHeader))
}
