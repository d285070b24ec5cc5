// Package pool provides per-type message pooling. Every concrete type owns a LIFO
// free-list of released messages, claiming reuses the most recently released instance
// before a new one is allocated. Types of one inheritance chain never share a free-list.
//
// Messages claimed from a pool know their owner, so both
//
//	p.Release(m)
//	m.Release()
//
// return the message. Releasing clears all fields; releasing a message twice is ignored.
//
// Parse combines tag lookup, claim and unpack for inbound data:
//
//	m, err := p.Parse(registry, data)
//	if err != nil { ... }
//	defer m.Release()
//
// The counters dmsg_pool_claims_total and dmsg_pool_allocations_total track pool usage.
package pool
