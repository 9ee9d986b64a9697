// services/scheduler.go
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/sirupsen/logrus"
)

// ScheduledJob is a background task run every Every.
type ScheduledJob struct {
	Name           string
	Every          time.Duration
	RunImmediately bool
	Run            func(ctx context.Context)
}

// StartScheduler starts jobs on a gocron scheduler. Jobs never overlap with
// themselves and receive ctx so they stop with the server.
func StartScheduler(ctx context.Context, jobs ...ScheduledJob) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	for _, job := range jobs {
		job := job
		opts := []gocron.JobOption{
			gocron.WithName(job.Name),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		}
		if job.RunImmediately {
			opts = append(opts, gocron.WithStartAt(gocron.WithStartImmediately()))
		}

		_, err := sched.NewJob(
			gocron.DurationJob(job.Every),
			gocron.NewTask(func() {
				if ctx.Err() != nil {
					return
				}
				job.Run(ctx)
			}),
			opts...,
		)
		if err != nil {
			_ = sched.Shutdown()
			return nil, fmt.Errorf("failed to schedule %s: %w", job.Name, err)
		}
		logrus.Infof("⏰ [Scheduler] %s every %s", job.Name, job.Every)
	}

	sched.Start()
	return sched, nil
}

// LogPoolStats reports database pool usage.
func (s *HighscoreService) LogPoolStats(context.Context) {
	sqlDB, err := s.DB.DB()
	if err != nil {
		logrus.Errorf("[Scheduler] DB error: %v", err)
		return
	}
	st := sqlDB.Stats()
	logrus.WithFields(logrus.Fields{
		"open":          st.OpenConnections,
		"in_use":        st.InUse,
		"idle":          st.Idle,
		"wait_count":    st.WaitCount,
		"wait_duration": st.WaitDuration.String(),
	}).Info("📊 [Scheduler] Database pool stats")
}
