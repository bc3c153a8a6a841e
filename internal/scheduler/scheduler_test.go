package scheduler

import (
	"context"
	"testing"
)

func TestStartWithoutJobsIsNoop(t *testing.T) {
	s := New(21)
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if s.IsRunning() {
		t.Fatalf("scheduler must not run without jobs")
	}
}

func TestStartRegistersJobs(t *testing.T) {
	s := New(6)
	s.SetDigestFunction(func(ctx context.Context) error { return nil })
	s.SetSweepFunction(func() int { return 0 })
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()
	if !s.IsRunning() {
		t.Fatalf("scheduler should report running after Start")
	}
}
