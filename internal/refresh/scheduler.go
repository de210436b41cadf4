package refresh

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Scheduler runs a Syncer on a cron spec
type Scheduler struct {
	cron   *cron.Cron
	syncer *Syncer
	spec   string

	mu      sync.Mutex
	running bool
	stopped bool
	onSync  func(error)

	// held while a sync is in flight
	runMu sync.Mutex
}

// NewScheduler validates spec and prepares a scheduler. Overlapping runs are
// skipped while a previous sync is still in flight.
func NewScheduler(syncer *Syncer, spec string) (*Scheduler, error) {
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", spec, err)
	}
	s := &Scheduler{
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		syncer: syncer,
		spec:   spec,
	}
	return s, nil
}

// OnSync registers a callback invoked after every scheduled run
func (s *Scheduler) OnSync(fn func(error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onSync = fn
}

// Start runs one sync immediately and then follows the schedule until ctx
// is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	run := func() { s.runOnce(ctx) }

	s.mu.Lock()
	switch {
	case s.stopped:
		s.mu.Unlock()
		return fmt.Errorf("scheduler stopped")
	case s.running:
		s.mu.Unlock()
		return fmt.Errorf("scheduler already running")
	}
	if _, err := s.cron.AddFunc(s.spec, run); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to schedule sync: %w", err)
	}
	s.cron.Start()
	s.running = true
	s.mu.Unlock()

	log.Info().Str("schedule", s.spec).Str("project", s.syncer.ProjectID()).Msg("sync scheduled")
	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	run()
	return nil
}

// Stop halts the schedule and waits for an in-flight sync to finish. No
// sync starts after Stop returns. It is safe to call more than once.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	first := !s.stopped
	s.stopped = true
	done := s.cron.Stop().Done()
	s.mu.Unlock()

	<-done
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if first {
		log.Info().Msg("sync scheduler stopped")
	}
}

func (s *Scheduler) isStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

func (s *Scheduler) runOnce(ctx context.Context) {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if ctx.Err() != nil || s.isStopped() {
		return
	}
	_, err := s.syncer.Sync(ctx)
	if err != nil {
		log.Error().Err(err).Msg("scheduled sync failed")
	}

	s.mu.Lock()
	fn := s.onSync
	s.mu.Unlock()
	if fn != nil {
		fn(err)
	}
}
