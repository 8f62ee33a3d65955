package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type fakePruner struct {
	cutoff time.Time
	err    error
}

func (f *fakePruner) Prune(_ context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return 3, f.err
}

func TestScheduleOverrideRuns(t *testing.T) {
	var runs atomic.Int32
	s := NewCronService(map[string]interface{}{"tick_schedule": "@every 1s", "timezone": "UTC"},
		Job{Name: "tick", Schedule: "@daily", Run: func(context.Context) error {
			runs.Add(1)
			return nil
		}})
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()
	deadline := time.Now().Add(3 * time.Second)
	for runs.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("job never ran")
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestInvalidSchedule(t *testing.T) {
	s := NewCronService(nil, Job{Name: "bad", Schedule: "every tuesday", Run: func(context.Context) error { return nil }})
	if err := s.Start(); err == nil {
		s.Stop()
		t.Fatal("invalid schedule accepted")
	}
}

func TestAuditPruneJob(t *testing.T) {
	p := &fakePruner{}
	j := AuditPruneJob(p, 30)
	if err := j.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if age := time.Since(p.cutoff); age < 29*24*time.Hour || age > 31*24*time.Hour {
		t.Fatalf("cutoff age = %v", age)
	}
	p.err = errors.New("db down")
	if err := j.Run(context.Background()); err == nil {
		t.Fatal("error swallowed")
	}
}
