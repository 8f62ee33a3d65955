package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"EstateDesk/internal/config"
	"EstateDesk/internal/logger"
)

// Job is one scheduled task. Schedule may be overridden in services.yaml
// with "<name>_schedule".
type Job struct {
	Name     string
	Schedule string
	Timeout  time.Duration
	Run      func(ctx context.Context) error
}

type CronService struct {
	config map[string]interface{}
	jobs   []Job
	cron   *cron.Cron
	log    *slog.Logger
}

func NewCronService(cfg map[string]interface{}, jobs ...Job) *CronService {
	return &CronService{
		config: cfg,
		jobs:   jobs,
		log:    slog.Default().With("component", "cron"),
	}
}

// AddJob registers a job. It must be called before Start.
func (s *CronService) AddJob(j Job) { s.jobs = append(s.jobs, j) }

func (s *CronService) Name() string {
	return "cron"
}

func (s *CronService) schedule(j Job) string {
	if v, ok := s.config[j.Name+"_schedule"].(string); ok && v != "" {
		return v
	}
	return j.Schedule
}

func (s *CronService) Start() error {
	tz := config.DefaultTimeZone
	if v, ok := s.config["timezone"].(string); ok && v != "" {
		tz = v
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc = time.UTC
	}

	c := cron.New(cron.WithLocation(loc))
	for _, j := range s.jobs {
		spec := s.schedule(j)
		if _, err := c.AddFunc(spec, s.wrap(j)); err != nil {
			return fmt.Errorf("unable to schedule %s (%q): %w", j.Name, spec, err)
		}
		s.log.Info("job scheduled", "job", j.Name, "schedule", spec)
	}
	c.Start()
	s.cron = c
	logger.Audit("cron service started", "jobs", len(s.jobs))
	return nil
}

func (s *CronService) wrap(j Job) func() {
	timeout := j.Timeout
	if timeout <= 0 {
		timeout = time.Minute
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		start := time.Now()
		if err := j.Run(ctx); err != nil {
			logger.Audit("job failed", "job", j.Name, "err", err)
			return
		}
		s.log.Debug("job done", "job", j.Name, "took", time.Since(start))
	}
}

// Stop waits for running jobs, up to 10 seconds.
func (s *CronService) Stop() error {
	if s.cron == nil {
		return nil
	}
	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(10 * time.Second):
		s.log.Warn("cron jobs still running at shutdown")
	}
	return nil
}
