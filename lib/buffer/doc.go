// Package buffer provides outbound message coalescing. Instead of packing and sending every
// message immediately, the application stores send requests (entries) in a buffer that
// decides with its Strategy when and which entries are actually sent.
//
// Key Components:
//
//   - Pool: Owns the shared scope and creates instance scopes (one per emitter). Store picks
//     the scope from the entry's config and lazily creates the buffer for its id.
//
//   - MessageBuffer: Holds the strategy state of one (scope, id) pair. On the first entry the
//     buffer instantiates its strategy and attaches itself to exactly one scheduler.
//
//   - Strategy: Capacity(n) flushes all entries once n are buffered, Overwrite() keeps only
//     the latest entry per flush cycle and relies on the scheduler.
//
//   - Scheduler: ManualScheduler flushes on Tick (e.g. once per game frame),
//     PeriodicScheduler ticks at a fixed interval (DefaultInterval = 25ms). A tick only
//     flushes buffers whose strategy implements Scheduled, MessageBuffer.Schedule forces
//     a flush of any strategy.
//
// Flushing packs every entry with a pooled message, sends it with the entry's own send
// function and releases the message. Send functions must not retain the byte slice.
//
// Usage:
//
//	scheduler := buffer.NewPeriodicScheduler(buffer.DefaultInterval)
//	scheduler.Start()
//	defer scheduler.Stop()
//
//	buffers := buffer.NewPool(pool.New(), scheduler)
//	instance := buffers.NewInstance()
//	err := buffers.Store(instance, buffer.Entry{
//	    Type:   moved,
//	    Fields: schema.Fields{"playerId": 1, "x": 10, "y": 20},
//	    Send:   conn.Send,
//	    Config: buffer.Config{Scope: buffer.ScopeInstance, ID: 1, Strategy: buffer.Overwrite()},
//	})
//
// A buffer without scheduler (neither in its config nor as pool default) fails on first use
// with missing_scheduler. The counters dmsg_buffer_flushes_total, dmsg_buffer_entries_total
// and dmsg_buffer_sent_total track buffer activity.
package buffer
