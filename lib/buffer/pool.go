package buffer

import (
	"maps"

	dmsgerrors "github.com/ValentinKolb/dMsg/lib/errors"
	"github.com/ValentinKolb/dMsg/lib/pool"
	"github.com/puzpuzpuz/xsync/v3"
)

// Pool owns the shared buffer scope and creates the instance scopes of emitters.
// Buffers are created lazily on the first entry stored under their id.
type Pool struct {
	messages  *pool.Pool
	scheduler Scheduler // process-wide default, may be nil
	shared    *Buffers
}

// Buffers is one scope of buffers keyed by id
type Buffers struct {
	pool    *Pool
	buffers *xsync.MapOf[int, *MessageBuffer]
}

// NewPool creates a buffer pool. scheduler is used by all buffers whose config names no
// scheduler, pass nil to require an explicit scheduler per buffer.
func NewPool(messages *pool.Pool, scheduler Scheduler) *Pool {
	p := &Pool{
		messages:  messages,
		scheduler: scheduler,
	}
	p.shared = p.NewInstance()
	return p
}

// NewInstance creates a new, empty instance scope
func (p *Pool) NewInstance() *Buffers {
	return &Buffers{
		pool:    p,
		buffers: xsync.NewMapOf[int, *MessageBuffer](),
	}
}

// Shared returns the shared scope
func (p *Pool) Shared() *Buffers {
	return p.shared
}

// Store adds entry to the buffer selected by entry.Config. instance is the scope used for
// ScopeInstance entries. Entry fields are copied so the caller may reuse its map.
func (p *Pool) Store(instance *Buffers, entry Entry) error {
	if entry.Type == nil {
		return dmsgerrors.New(dmsgerrors.PhaseBuffer, dmsgerrors.KindInvalidConfig).
			Detail("entry for buffer %d has no type", entry.Config.ID).
			Build()
	}
	if entry.Send == nil {
		return dmsgerrors.New(dmsgerrors.PhaseBuffer, dmsgerrors.KindNotConfigured).
			Type(entry.Type.Name).
			Detail("entry for buffer %d has no send function", entry.Config.ID).
			Build()
	}

	scope := p.shared
	if entry.Config.Scope == ScopeInstance {
		if instance == nil {
			return dmsgerrors.New(dmsgerrors.PhaseBuffer, dmsgerrors.KindInvalidConfig).
				Type(entry.Type.Name).
				Detail("instance buffer %d requires an instance scope", entry.Config.ID).
				Build()
		}
		scope = instance
	}

	entry.Fields = maps.Clone(entry.Fields)
	return scope.Get(entry.Config).Add(entry)
}

// Dispose disposes all shared buffers
func (p *Pool) Dispose() {
	p.shared.Dispose()
}

// --------------------------------------------------------------------------
// Buffers
// --------------------------------------------------------------------------

// Get returns the buffer with config.ID, creating it with config if it does not exist
func (s *Buffers) Get(config Config) *MessageBuffer {
	b, _ := s.buffers.LoadOrCompute(config.ID, func() *MessageBuffer {
		return NewMessageBuffer(config, s.pool.messages, s.pool.scheduler)
	})
	return b
}

// Lookup returns an existing buffer
func (s *Buffers) Lookup(id int) (*MessageBuffer, bool) {
	return s.buffers.Load(id)
}

// Len returns the number of buffers in the scope
func (s *Buffers) Len() int {
	return s.buffers.Size()
}

// Dispose disposes and removes every buffer of the scope
func (s *Buffers) Dispose() {
	s.buffers.Range(func(id int, b *MessageBuffer) bool {
		b.Dispose()
		s.buffers.Delete(id)
		return true
	})
}
