package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"convalesense/internal/logger"
)

// NewRouter mounts the admin API under /admin.
func NewRouter(h *Handler, log *logger.Logger, corsOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), RequestLogger(log))
	if len(corsOrigins) > 0 {
		r.Use(CORS(corsOrigins))
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	adminGroup := r.Group("/admin")
	adminGroup.GET("/meta", h.Meta)
	adminGroup.GET("/meta/:entity", h.EntityMeta)

	adminGroup.GET("/users", h.ListUsers)
	adminGroup.POST("/users", h.CreateUser)

	exercises := adminGroup.Group("/exercises")
	exercises.GET("", h.ListExercises)
	exercises.POST("", h.CreateExercise)
	exercises.GET("/:id", h.GetExercise)
	exercises.PUT("/:id", h.UpdateExercise)
	exercises.PUT("/:id/enabled", h.ToggleExercise)
	exercises.DELETE("/:id", h.DeleteExercise)

	plans := adminGroup.Group("/plans")
	plans.GET("", h.ListPlans)
	plans.POST("", h.CreatePlan)
	plans.GET("/:id", h.GetPlan)
	plans.GET("/:id/stats", h.PlanStats)
	plans.PUT("/:id", h.UpdatePlan)
	plans.PUT("/:id/enabled", h.TogglePlan)
	plans.DELETE("/:id", h.DeletePlan)
	plans.GET("/:id/exercises", h.ListPlanExercises)
	plans.POST("/:id/exercises", h.AddPlanExercise)

	planExercises := adminGroup.Group("/plan-exercises")
	planExercises.GET("/:id", h.GetPlanExercise)
	planExercises.PUT("/:id", h.UpdatePlanExercise)
	planExercises.PUT("/:id/enabled", h.TogglePlanExercise)
	planExercises.DELETE("/:id", h.DeletePlanExercise)

	records := adminGroup.Group("/records")
	records.GET("", h.ListRecords)
	records.POST("", h.SubmitRecord)
	records.GET("/:id", h.GetRecord)
	records.GET("/:id/progress", h.RecordProgress)
	records.DELETE("/:id", h.DeleteRecord)

	return r
}
