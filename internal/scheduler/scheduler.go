package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler runs the periodic housekeeping jobs: the daily journal digest
// and expired-session sweeps.
type Scheduler struct {
	cron       *cron.Cron
	ctx        context.Context
	cancel     context.CancelFunc
	digestHour int
	digestFunc func(ctx context.Context) error
	sweepFunc  func() int
}

func New(digestHour int) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		cron:       cron.New(cron.WithLocation(time.UTC)),
		ctx:        ctx,
		cancel:     cancel,
		digestHour: digestHour,
	}
}

// SetDigestFunction sets the function invoked once a day to produce the
// journal digest.
func (s *Scheduler) SetDigestFunction(f func(ctx context.Context) error) {
	s.digestFunc = f
}

// SetSweepFunction sets the function invoked hourly to drop idle sessions.
func (s *Scheduler) SetSweepFunction(f func() int) {
	s.sweepFunc = f
}

func (s *Scheduler) Start() error {
	if s.digestFunc == nil && s.sweepFunc == nil {
		log.Println("⚠️ No jobs configured, scheduler will not start")
		return nil
	}

	if s.digestFunc != nil {
		spec := fmt.Sprintf("0 %d * * *", s.digestHour)
		_, err := s.cron.AddFunc(spec, func() {
			log.Printf("🕘 Triggered daily digest generation at %02d:00 UTC", s.digestHour)
			if err := s.digestFunc(s.ctx); err != nil {
				log.Printf("❌ Daily digest generation failed: %v", err)
			}
		})
		if err != nil {
			return err
		}
	}

	if s.sweepFunc != nil {
		_, err := s.cron.AddFunc("@every 1h", func() {
			if swept := s.sweepFunc(); swept > 0 {
				log.Printf("🧹 Session sweep removed %d sessions", swept)
			}
		})
		if err != nil {
			return err
		}
	}

	s.cron.Start()
	log.Printf("📅 Scheduler started - daily digest at %02d:00 UTC", s.digestHour)
	return nil
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
	}
	if s.cancel != nil {
		s.cancel()
	}
	log.Println("📅 Scheduler stopped")
}

// IsRunning reports whether any jobs are registered and the cron loop is up.
func (s *Scheduler) IsRunning() bool {
	return s.cron != nil && len(s.cron.Entries()) > 0
}
