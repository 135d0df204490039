// Package jobs runs the background work that keeps the matchmaking queue moving.
package jobs

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Sweeper is the slice of the matchmaker the scheduler drives.
type Sweeper interface {
	Sweep(ctx context.Context) (paired, expired int, err error)
}

// Scheduler re-runs matchmaking for waiting players so their rating window
// keeps widening even when nobody new joins.
type Scheduler struct {
	sched   gocron.Scheduler
	sweeper Sweeper
	timeout time.Duration
}

func NewScheduler(sweeper Sweeper, every time.Duration) (*Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	s := &Scheduler{sched: sched, sweeper: sweeper, timeout: every}
	_, err = sched.NewJob(
		gocron.DurationJob(every),
		gocron.NewTask(s.runOnce),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	paired, expired, err := s.sweeper.Sweep(ctx)
	if err != nil {
		log.Printf("[matchmaking] sweep failed: %v", err)
		return
	}
	if paired > 0 || expired > 0 {
		log.Printf("[matchmaking] sweep paired=%d expired=%d", paired, expired)
	}
}

func (s *Scheduler) Start() {
	s.sched.Start()
}

func (s *Scheduler) Shutdown() error {
	return s.sched.Shutdown()
}
