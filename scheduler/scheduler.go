package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"crewboard/domain"
	"crewboard/notify"
)

// DefaultInterval is the scan interval used when none is configured.
const DefaultInterval = time.Minute

// FallbackTitle is used when a reminder's task reference does not resolve.
const FallbackTitle = "Reminder"

// TaskLookup resolves display titles for reminders. A read-only view of
// the task store, injected explicitly rather than reached through.
type TaskLookup interface {
	GetTask(id string) (domain.Task, bool)
}

// ReminderSource lists and marks reminders. Listing may fail when the
// source is backed by an unavailable collaborator; a failed listing aborts
// the scan pass for that cycle.
type ReminderSource interface {
	ListReminders() ([]domain.Reminder, error)
	MarkReminderSent(ctx context.Context, id string) error
}

// Scheduler sweeps the reminder store at a fixed interval and fires due
// reminders through the notifier. Each reminder transitions sent
// false to true exactly once; delivery marking is not conditioned on the
// notify side effect succeeding, since the due fact is what is being
// acknowledged.
type Scheduler struct {
	tasks     TaskLookup
	reminders ReminderSource
	notifier  notify.Notifier
	clock     Clock
	interval  time.Duration
	logger    *log.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	scanning    atomic.Bool
	requestOnce sync.Once
}

// New creates a scheduler. A nil clock means the system clock; a
// non-positive interval means DefaultInterval.
func New(tasks TaskLookup, reminders ReminderSource, notifier notify.Notifier, interval time.Duration, clock Clock, logger *log.Logger) *Scheduler {
	if clock == nil {
		clock = systemClock{}
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		tasks:     tasks,
		reminders: reminders,
		notifier:  notifier,
		clock:     clock,
		interval:  interval,
		logger:    logger,
	}
}

// Start requests notification permission if it is still undetermined,
// runs one immediate scan pass, then arms the repeating timer. Starting a
// running scheduler is a no-op. Permission negotiation is fire-and-forget:
// scans proceed whether or not it has resolved.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	if s.notifier.IsAvailable() && s.notifier.PermissionState() == notify.PermissionUndetermined {
		s.requestOnce.Do(s.notifier.RequestPermission)
	}

	s.Scan(ctx)
	go s.run(ctx, done)
}

func (s *Scheduler) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			s.Scan(ctx)
		}
	}
}

// Stop cancels the timer and waits for the scan loop to exit. No scan
// fires after Stop returns. Stopping twice, or a never-started scheduler,
// is harmless.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	done := s.done
	s.cancel = nil
	s.done = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Scan runs one pass over a snapshot of the reminder collection taken at
// pass start; reminders added afterwards are picked up on the next pass.
// Overlapping passes are prevented by a run-flag so a slow pass cannot
// double-notify a reminder.
func (s *Scheduler) Scan(ctx context.Context) {
	if !s.scanning.CompareAndSwap(false, true) {
		s.logger.Debug("reminder scan already in progress, skipping")
		return
	}
	defer s.scanning.Store(false)

	snapshot, err := s.reminders.ListReminders()
	if err != nil {
		s.logger.Errorf("list reminders: %v, retrying next tick", err)
		return
	}
	now := s.clock.Now()
	for _, r := range snapshot {
		if r.Sent || !r.Due(now) {
			continue
		}
		s.deliver(ctx, r)
	}
}

func (s *Scheduler) deliver(ctx context.Context, r domain.Reminder) {
	title := FallbackTitle
	if t, ok := s.tasks.GetTask(r.TaskID); ok {
		if t.Title != "" {
			title = t.Title
		}
	} else {
		s.logger.Debugf("reminder %s references missing task %s", r.ID, r.TaskID)
	}

	if s.notifier.IsAvailable() && s.notifier.PermissionState() == notify.PermissionGranted {
		if err := s.notifier.Notify(title, ""); err != nil {
			s.logger.Warnf("notify reminder %s: %v", r.ID, err)
		}
	}

	// Marked sent regardless of whether the notification fired.
	if err := s.reminders.MarkReminderSent(ctx, r.ID); err != nil {
		s.logger.Errorf("mark reminder %s sent: %v", r.ID, err)
	}
}
