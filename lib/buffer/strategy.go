package buffer

import (
	dmsgerrors "github.com/ValentinKolb/dMsg/lib/errors"
)

// Strategy decides when and what a MessageBuffer flushes. A strategy instance belongs to
// exactly one buffer and is only called while the buffer's lock is held.
type Strategy interface {
	// Put adds an entry and reports whether the buffer must flush immediately
	Put(entry Entry) bool
	// Result returns the entries to send on the next flush in send order.
	// The returned slice must not be modified by a later Put.
	Result() []Entry
	// Reset clears the state after a flush, calling it twice is harmless
	Reset()
}

// Scheduled is implemented by strategies that are flushed by their buffer's scheduler.
// Scheduler ticks skip buffers whose strategy does not implement it or returns false.
type Scheduled interface {
	Scheduled() bool
}

// StrategyFactory creates the strategy state of a new buffer
type StrategyFactory func() (Strategy, error)

// --------------------------------------------------------------------------
// Capacity
// --------------------------------------------------------------------------

// Capacity collects entries and requests a flush once n entries are buffered.
// All entries are sent in arrival order. Scheduler ticks do not flush it.
func Capacity(n int) StrategyFactory {
	return func() (Strategy, error) {
		if n <= 0 {
			return nil, dmsgerrors.New(dmsgerrors.PhaseBuffer, dmsgerrors.KindInvalidConfig).
				Detail("capacity must be greater than zero, got %d", n).
				Build()
		}
		return &capacityStrategy{capacity: n}, nil
	}
}

type capacityStrategy struct {
	capacity int
	entries  []Entry
}

func (s *capacityStrategy) Put(entry Entry) bool {
	if s.entries == nil {
		s.entries = make([]Entry, 0, s.capacity)
	}
	s.entries = append(s.entries, entry)
	return len(s.entries) >= s.capacity
}

func (s *capacityStrategy) Result() []Entry {
	return s.entries
}

func (s *capacityStrategy) Reset() {
	s.entries = nil
}

// --------------------------------------------------------------------------
// Overwrite
// --------------------------------------------------------------------------

// Overwrite keeps only the latest entry of a flush cycle. It never requests a flush,
// the buffer is flushed by its scheduler.
func Overwrite() StrategyFactory {
	return func() (Strategy, error) {
		return &overwriteStrategy{}, nil
	}
}

type overwriteStrategy struct {
	latest *Entry
}

func (s *overwriteStrategy) Put(entry Entry) bool {
	s.latest = &entry
	return false
}

func (s *overwriteStrategy) Result() []Entry {
	if s.latest == nil {
		return nil
	}
	return []Entry{*s.latest}
}

func (s *overwriteStrategy) Reset() {
	s.latest = nil
}

func (s *overwriteStrategy) Scheduled() bool {
	return true
}
