package service

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/vigliag/vijournalbot/internal/model"
)

// Job is a scheduled unit of work; it receives the tick time.
type Job func(ctx context.Context, now time.Time) error

// SchedulerService wraps cron-based jobs. A tick that is still running delays
// the next one instead of overlapping it.
type SchedulerService struct {
	cron *cron.Cron
	loc  *time.Location
}

func NewSchedulerService(loc *time.Location) *SchedulerService {
	logger := cron.PrintfLogger(log.New(os.Stdout, "cron: ", log.LstdFlags))
	return &SchedulerService{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithChain(cron.Recover(logger), cron.DelayIfStillRunning(logger)),
		),
		loc: loc,
	}
}

// ScheduleDaily registers a job that runs once a day at the given time.
func (s *SchedulerService) ScheduleDaily(name string, at model.TimeOfDay, job Job) (cron.EntryID, error) {
	if !at.Valid() {
		return 0, fmt.Errorf("invalid daily time for %s", name)
	}
	spec := fmt.Sprintf("%d %d * * *", at.Minute(), at.Hour())
	return s.cron.AddFunc(spec, s.wrap(name, job))
}

// ScheduleInterval registers a periodic job every given duration.
func (s *SchedulerService) ScheduleInterval(name string, interval time.Duration, job Job) (cron.EntryID, error) {
	if interval <= 0 {
		return 0, fmt.Errorf("interval for %s must be positive", name)
	}
	return s.cron.Schedule(cron.Every(interval), cron.FuncJob(s.wrap(name, job))), nil
}

func (s *SchedulerService) Start() {
	s.cron.Start()
}

// Stop waits for running jobs to finish.
func (s *SchedulerService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *SchedulerService) wrap(name string, job Job) func() {
	return func() {
		if err := job(context.Background(), time.Now().In(s.loc)); err != nil {
			log.Printf("%s: %v", name, err)
		}
	}
}
