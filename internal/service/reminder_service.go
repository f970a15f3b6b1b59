package service

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"convalesense/internal/model"
	"convalesense/internal/repository"
)

// ReminderService builds human-readable summaries for daily notifications.
type ReminderService struct {
	plans *repository.PlanRepository
}

func NewReminderService(plans *repository.PlanRepository) *ReminderService {
	return &ReminderService{plans: plans}
}

// DailySummary lists the patient's plans active on now's day, each enabled
// plan exercise with its guidelines and how often it was done that day.
func (s *ReminderService) DailySummary(ctx context.Context, patient model.User, now time.Time) (string, error) {
	plans, err := s.plans.ListByPatient(ctx, patient.ID)
	if err != nil {
		return "", err
	}

	var active []model.Plan
	for _, plan := range plans {
		if plan.ActiveOn(now) {
			active = append(active, plan)
		}
	}

	y, m, d := now.Date()
	dayStart := time.Date(y, m, d, 0, 0, 0, 0, now.Location())

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("📋 <b>Today's exercises for %s</b>\n", html.EscapeString(patient.String())))
	builder.WriteString(fmt.Sprintf("🗓 %s\n", now.Format("2006-01-02")))

	if len(active) == 0 {
		builder.WriteString("\n— no active plans today\n")
		return strings.TrimSpace(builder.String()), nil
	}

	for _, plan := range active {
		builder.WriteString(fmt.Sprintf("\n🏥 <b>%s</b>\n", html.EscapeString(strings.TrimSpace(plan.Name))))
		items := model.FilterEnabled(plan.PlanExercises)
		if len(items) == 0 {
			builder.WriteString("— nothing scheduled\n")
			continue
		}
		for _, pe := range items {
			builder.WriteString(formatPlanExercise(pe, doneSince(pe.Records, dayStart)))
		}
	}

	return strings.TrimSpace(builder.String()), nil
}

func formatPlanExercise(pe model.PlanExercise, done int) string {
	var sb strings.Builder

	icon := "🟡"
	if done >= int(pe.Count) {
		icon = "✅"
	}

	sb.WriteString(fmt.Sprintf("%s [%d] %s", icon, pe.ID, html.EscapeString(strings.TrimSpace(pe.Name()))))
	if pe.Optional {
		sb.WriteString(" <i>(optional)</i>")
	}
	sb.WriteString(fmt.Sprintf("\n   %s", pe.Guidelines()))
	sb.WriteString(fmt.Sprintf("\n   done today: %d/%d", done, pe.Count))
	if extra := strings.TrimSpace(pe.AdditionalDescription); extra != "" {
		sb.WriteString(fmt.Sprintf("\n   📝 %s", html.EscapeString(extra)))
	}

	sb.WriteByte('\n')
	return sb.String()
}

func doneSince(records []model.ExerciseRecord, since time.Time) int {
	n := 0
	for _, rec := range records {
		if !rec.Start.Before(since) {
			n++
		}
	}
	return n
}
