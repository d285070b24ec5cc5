package buffer

import (
	"errors"
	"sync"

	"github.com/VictoriaMetrics/metrics"
	dmsgerrors "github.com/ValentinKolb/dMsg/lib/errors"
	"github.com/ValentinKolb/dMsg/lib/pool"
	"github.com/ValentinKolb/dMsg/lib/schema"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("buffer")

var (
	flushesTotal = metrics.GetOrCreateCounter("dmsg_buffer_flushes_total")
	entriesTotal = metrics.GetOrCreateCounter("dmsg_buffer_entries_total")
	sentTotal    = metrics.GetOrCreateCounter("dmsg_buffer_sent_total")
)

// Scope selects the key space of a buffer id
type Scope int

const (
	// ScopeInstance buffers are private to one emitter
	ScopeInstance Scope = iota
	// ScopeShared buffers are keyed by id only and shared by all emitters of a pool
	ScopeShared
)

func (s Scope) String() string {
	if s == ScopeShared {
		return "shared"
	}
	return "instance"
}

// SendFunc hands packed bytes to the transport. The slice is only valid during the call.
type SendFunc func(data []byte) error

// Config selects the buffer an entry is stored in and configures that buffer on first use.
// The config of the first entry of a buffer wins.
type Config struct {
	Scope     Scope
	ID        int
	Strategy  StrategyFactory
	Scheduler Scheduler // optional, defaults to the pool's periodic scheduler
}

// Entry is a buffered send request
type Entry struct {
	Type   *schema.Type
	Fields schema.Fields
	Send   SendFunc
	Config Config
}

// --------------------------------------------------------------------------
// MessageBuffer
// --------------------------------------------------------------------------

// MessageBuffer coalesces entries with its strategy and sends them when the strategy
// or the attached scheduler triggers a flush.
type MessageBuffer struct {
	mu        sync.Mutex
	config    Config
	messages  *pool.Pool
	fallback  Scheduler
	strategy  Strategy
	scheduler Scheduler
}

// NewMessageBuffer creates a buffer. fallback is used when config names no scheduler.
// The buffer is attached to its scheduler on the first Add.
func NewMessageBuffer(config Config, messages *pool.Pool, fallback Scheduler) *MessageBuffer {
	return &MessageBuffer{
		config:   config,
		messages: messages,
		fallback: fallback,
	}
}

// Config returns the configuration the buffer was created with
func (b *MessageBuffer) Config() Config {
	return b.config
}

// Add stores an entry and flushes immediately if the strategy requests it
func (b *MessageBuffer) Add(entry Entry) error {
	b.mu.Lock()
	if b.strategy == nil {
		if err := b.init(); err != nil {
			b.mu.Unlock()
			return err
		}
	}
	entriesTotal.Inc()

	var ready []Entry
	if b.strategy.Put(entry) {
		ready = b.strategy.Result()
		b.strategy.Reset()
	}
	b.mu.Unlock()

	return b.send(ready)
}

// Schedule flushes the buffer unconditionally, whatever its strategy
func (b *MessageBuffer) Schedule() error {
	return b.flush(false)
}

// Dispose drops all buffered entries without sending and detaches the buffer from its
// scheduler. A later Add initializes the buffer again.
func (b *MessageBuffer) Dispose() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.strategy != nil {
		b.strategy.Reset()
		b.strategy = nil
	}
	if b.scheduler != nil {
		b.scheduler.Detach(b)
		b.scheduler = nil
	}
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// init attaches the buffer to its scheduler and creates the strategy, the caller must hold b.mu
func (b *MessageBuffer) init() error {
	if b.config.Strategy == nil {
		return dmsgerrors.New(dmsgerrors.PhaseBuffer, dmsgerrors.KindInvalidConfig).
			Detail("buffer %d (%s) has no strategy", b.config.ID, b.config.Scope).
			Build()
	}

	scheduler := b.config.Scheduler
	if scheduler == nil {
		scheduler = b.fallback
	}
	if scheduler == nil {
		return dmsgerrors.New(dmsgerrors.PhaseBuffer, dmsgerrors.KindMissingScheduler).
			Detail("buffer %d (%s) has no scheduler and no default scheduler is configured", b.config.ID, b.config.Scope).
			Build()
	}

	strategy, err := b.config.Strategy()
	if err != nil {
		return err
	}

	b.strategy = strategy
	b.scheduler = scheduler
	scheduler.Attach(b)
	return nil
}

// tick is called by the attached scheduler. Only scheduled strategies are flushed.
func (b *MessageBuffer) tick() error {
	return b.flush(true)
}

// flush sends and resets the current result of the strategy
func (b *MessageBuffer) flush(scheduledOnly bool) error {
	b.mu.Lock()
	if b.strategy == nil || (scheduledOnly && !isScheduled(b.strategy)) {
		b.mu.Unlock()
		return nil
	}
	ready := b.strategy.Result()
	b.strategy.Reset()
	b.mu.Unlock()

	return b.send(ready)
}

func isScheduled(strategy Strategy) bool {
	s, ok := strategy.(Scheduled)
	return ok && s.Scheduled()
}

// send packs and sends the entries one by one in order, every entry uses its own send function
func (b *MessageBuffer) send(entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	flushesTotal.Inc()

	var errs []error
	for _, entry := range entries {
		m := b.messages.Create(entry.Type, entry.Fields)
		data, err := m.Pack()
		if err == nil {
			err = entry.Send(data)
			if err != nil {
				err = dmsgerrors.New(dmsgerrors.PhaseSend, dmsgerrors.KindHandler).
					Type(entry.Type.Name).
					Detail("buffer %d", b.config.ID).
					Cause(err).
					Build()
			} else {
				sentTotal.Inc()
			}
		}
		m.Release()

		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
