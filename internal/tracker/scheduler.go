package tracker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrAlreadyStarted is returned when Start is called twice on a Scheduler.
var ErrAlreadyStarted = errors.New("scheduler already started")

// Task is one scheduled unit of work. Returning false ends the schedule.
type Task func(ctx context.Context) bool

// Scheduler runs a Task on a fixed interval. The task runs inside the
// scheduling loop, so a slow task delays the next tick instead of
// overlapping with it: at most one run is ever in flight.
type Scheduler struct {
	interval time.Duration
	task     Task

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

// NewScheduler creates a stopped scheduler
func NewScheduler(interval time.Duration, task Task) *Scheduler {
	return &Scheduler{
		interval: interval,
		task:     task,
		done:     make(chan struct{}),
	}
}

// Start launches the loop. The first run happens one interval after Start.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrAlreadyStarted
	}
	s.started = true

	ctx, s.cancel = context.WithCancel(ctx)
	go s.loop(ctx)
	return nil
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			if !s.task(ctx) {
				return
			}
		}
	}
}

// Stop cancels the loop and waits for it to exit. Safe to call more than
// once. Stopping a scheduler that never started prevents it from starting.
// Must not be called from inside the task; return false there instead.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.started = true
		close(s.done)
		s.mu.Unlock()
		return
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	<-s.done
}

// Done is closed once the loop has exited
func (s *Scheduler) Done() <-chan struct{} {
	return s.done
}
