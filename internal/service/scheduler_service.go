package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"convalesense/internal/config"
	"convalesense/internal/logger"
)

// SchedulerService wraps cron-based jobs.
type SchedulerService struct {
	cron    *cron.Cron
	log     *logger.Logger
	timeout time.Duration
}

func NewSchedulerService(loc *time.Location, log *logger.Logger) *SchedulerService {
	return &SchedulerService{
		cron:    cron.New(cron.WithLocation(loc), cron.WithSeconds()),
		log:     log,
		timeout: 5 * time.Minute,
	}
}

// ScheduleDaily registers a daily job at the given HH:MM time string. Each
// run gets its own context bounded by the scheduler timeout.
func (s *SchedulerService) ScheduleDaily(timeStr string, job func(ctx context.Context) error) (cron.EntryID, error) {
	spec, err := buildDailySpec(timeStr)
	if err != nil {
		return 0, err
	}
	return s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if err := job(ctx); err != nil {
			s.log.Error("scheduled job failed", "spec", spec, "error", err)
		}
	})
}

func (s *SchedulerService) Start() {
	s.cron.Start()
}

func (s *SchedulerService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func buildDailySpec(timeStr string) (string, error) {
	hour, minute, err := config.ParseClock(timeStr)
	if err != nil {
		return "", err
	}
	// cron format: second minute hour dom month dow
	return fmt.Sprintf("0 %d %d * * *", minute, hour), nil
}
