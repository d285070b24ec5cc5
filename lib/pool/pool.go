package pool

import (
	"sync"

	"github.com/VictoriaMetrics/metrics"
	dmsgerrors "github.com/ValentinKolb/dMsg/lib/errors"
	"github.com/ValentinKolb/dMsg/lib/schema"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logger.GetLogger("pool")

var (
	claimsTotal      = metrics.GetOrCreateCounter("dmsg_pool_claims_total")
	allocationsTotal = metrics.GetOrCreateCounter("dmsg_pool_allocations_total")
)

// Resolver maps a wire tag to a type, usually a *schema.Registry
type Resolver interface {
	Resolve(id schema.ID) (*schema.Type, error)
}

// Pool keeps one LIFO free-list of released messages per concrete type.
// Free-lists of a type and its parent or children are independent.
type Pool struct {
	lists *xsync.MapOf[*schema.Type, *freeList]
}

// freeList is the stack of idle messages of one type
type freeList struct {
	mu    sync.Mutex
	items []*schema.Message
}

// New creates an empty pool
func New() *Pool {
	return &Pool{
		lists: xsync.NewMapOf[*schema.Type, *freeList](),
	}
}

// Claim returns the most recently released message of t or allocates a new one
func (p *Pool) Claim(t *schema.Type) *schema.Message {
	claimsTotal.Inc()

	list := p.list(t)
	list.mu.Lock()
	var m *schema.Message
	if n := len(list.items); n > 0 {
		m = list.items[n-1]
		list.items[n-1] = nil
		list.items = list.items[:n-1]
	}
	list.mu.Unlock()

	if m == nil {
		allocationsTotal.Inc()
		m = schema.NewMessage(t, p)
	}
	m.SetClaimed(true)
	return m
}

// Release returns m to the free-list of its type and clears its fields.
// Releasing a message that is not claimed from this pool is ignored.
func (p *Pool) Release(m *schema.Message) {
	if m == nil || m.Type() == nil {
		return
	}
	if !m.Claimed() {
		Logger.Warningf("ignoring release of unclaimed %s message", m.Name())
		return
	}

	m.SetClaimed(false)
	m.Reset()

	list := p.list(m.Type())
	list.mu.Lock()
	list.items = append(list.items, m)
	list.mu.Unlock()
}

// Create claims a message of t and shallow-applies fields
func (p *Pool) Create(t *schema.Type, fields schema.Fields) *schema.Message {
	return p.Claim(t).Apply(fields)
}

// Parse reads the tag of data, resolves its type, claims a message and unpacks data onto
// it. The message is released again if unpacking fails.
func (p *Pool) Parse(resolver Resolver, data []byte) (*schema.Message, error) {
	if len(data) == 0 {
		return nil, dmsgerrors.New(dmsgerrors.PhaseUnpack, dmsgerrors.KindInvalidData).
			Detail("received empty message").
			Build()
	}

	t, err := resolver.Resolve(schema.ID(data[0]))
	if err != nil {
		return nil, err
	}

	m := p.Claim(t)
	if err := m.Unpack(data); err != nil {
		m.Release()
		return nil, err
	}
	return m, nil
}

// Free returns the number of idle messages of t
func (p *Pool) Free(t *schema.Type) int {
	list, ok := p.lists.Load(t)
	if !ok {
		return 0
	}
	list.mu.Lock()
	defer list.mu.Unlock()
	return len(list.items)
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

func (p *Pool) list(t *schema.Type) *freeList {
	list, _ := p.lists.LoadOrCompute(t, func() *freeList {
		return &freeList{}
	})
	return list
}
