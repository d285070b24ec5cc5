package buffer

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

// DefaultInterval is the flush interval of the process-wide periodic scheduler
const DefaultInterval = 25 * time.Millisecond

// Scheduler is a time driven flush trigger. A buffer is attached to exactly one scheduler.
type Scheduler interface {
	// Attach registers a buffer, it is ticked until detached
	Attach(b *MessageBuffer)
	// Detach removes a buffer
	Detach(b *MessageBuffer)
}

// --------------------------------------------------------------------------
// ManualScheduler
// --------------------------------------------------------------------------

// ManualScheduler flushes its buffers whenever the application calls Tick,
// e.g. once per simulation frame.
type ManualScheduler struct {
	buffers *xsync.MapOf[*MessageBuffer, struct{}]
}

// NewManualScheduler creates a scheduler without own timer
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{
		buffers: xsync.NewMapOf[*MessageBuffer, struct{}](),
	}
}

func (s *ManualScheduler) Attach(b *MessageBuffer) {
	s.buffers.Store(b, struct{}{})
}

func (s *ManualScheduler) Detach(b *MessageBuffer) {
	s.buffers.Delete(b)
}

// Tick flushes every attached buffer whose strategy is Scheduled. Send errors are logged.
func (s *ManualScheduler) Tick() {
	s.buffers.Range(func(b *MessageBuffer, _ struct{}) bool {
		if err := b.tick(); err != nil {
			Logger.Warningf("flush of buffer %d (%s) failed: %v", b.config.ID, b.config.Scope, err)
		}
		return true
	})
}

// Len returns the number of attached buffers
func (s *ManualScheduler) Len() int {
	return s.buffers.Size()
}

// --------------------------------------------------------------------------
// PeriodicScheduler
// --------------------------------------------------------------------------

// PeriodicScheduler ticks its buffers at a fixed interval once started
type PeriodicScheduler struct {
	*ManualScheduler

	interval  time.Duration
	isRunning atomic.Bool
	mu        sync.Mutex // guards stop and done
	stop      chan struct{}
	done      chan struct{}
}

// NewPeriodicScheduler creates a stopped scheduler, a non positive interval selects DefaultInterval
func NewPeriodicScheduler(interval time.Duration) *PeriodicScheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &PeriodicScheduler{
		ManualScheduler: NewManualScheduler(),
		interval:        interval,
	}
}

// Interval returns the flush interval
func (s *PeriodicScheduler) Interval() time.Duration {
	return s.interval
}

// Start starts the ticker goroutine, calling Start on a running scheduler does nothing
func (s *PeriodicScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning.CompareAndSwap(false, true) {
		return
	}
	s.stop = make(chan struct{})
	s.done = make(chan struct{})

	go s.run(s.stop, s.done)
	Logger.Debugf("periodic scheduler started (interval %s)", s.interval)
}

// Stop stops the ticker goroutine and waits until the current tick is finished
func (s *PeriodicScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning.CompareAndSwap(true, false) {
		return
	}
	close(s.stop)
	<-s.done
	Logger.Debugf("periodic scheduler stopped")
}

// run is the ticker loop
func (s *PeriodicScheduler) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.Tick()
		}
	}
}
