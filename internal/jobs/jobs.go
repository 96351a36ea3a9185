// Package jobs runs the periodic deck maintenance used in serve mode: the
// due check (which also performs the day rollover) and counter
// verification.
package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
)

// Deck is the part of the scheduling engine the jobs drive.
type Deck interface {
	CheckDue(ctx context.Context) error
	Verify(ctx context.Context) (bool, error)
}

// Scheduler manages the background jobs.
type Scheduler struct {
	scheduler *gocron.Scheduler
	deck      Deck
	log       *slog.Logger

	checkEvery  time.Duration
	verifyEvery time.Duration
}

// New creates a scheduler for d. A zero interval disables that job.
func New(d Deck, log *slog.Logger, checkEvery, verifyEvery time.Duration) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{
		scheduler:   gocron.NewScheduler(time.UTC),
		deck:        d,
		log:         log,
		checkEvery:  checkEvery,
		verifyEvery: verifyEvery,
	}
}

// Start schedules the jobs and runs them in the background.
func (s *Scheduler) Start() error {
	if s.checkEvery > 0 {
		if _, err := s.scheduler.Every(s.checkEvery).Do(s.CheckDue); err != nil {
			return err
		}
	}
	if s.verifyEvery > 0 {
		// The first verification waits a full interval; Open already rebuilt everything.
		if _, err := s.scheduler.Every(s.verifyEvery).WaitForSchedule().Do(s.Verify); err != nil {
			return err
		}
	}
	s.scheduler.StartAsync()
	return nil
}

// Stop terminates all scheduled jobs.
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// Jobs reports how many jobs are scheduled.
func (s *Scheduler) Jobs() int {
	return len(s.scheduler.Jobs())
}

// CheckDue runs one due check.
func (s *Scheduler) CheckDue() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := s.deck.CheckDue(ctx); err != nil {
		s.log.Error("Scheduled due check failed", "error", err)
	}
}

// Verify runs one counter verification.
func (s *Scheduler) Verify() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	ok, err := s.deck.Verify(ctx)
	if err != nil {
		s.log.Error("Scheduled verification failed", "error", err)
		return
	}
	if !ok {
		s.log.Warn("Scheduled verification repaired the counters")
	}
}
