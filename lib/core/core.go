package core

import (
	"time"

	"github.com/ValentinKolb/dMsg/lib/buffer"
	"github.com/ValentinKolb/dMsg/lib/emitter"
	"github.com/ValentinKolb/dMsg/lib/pool"
	"github.com/ValentinKolb/dMsg/lib/schema"
)

// Config configures a Context
type Config struct {
	// Names maps lazily loaded type ids to their logical names
	Names map[schema.ID]string
	// Loader produces the definitions of lazily loaded types
	Loader schema.Loader
	// FlushInterval of the default periodic scheduler, 0 disables the default scheduler
	// unless DefaultScheduler is set
	FlushInterval time.Duration
	// DefaultScheduler creates the default periodic scheduler with buffer.DefaultInterval
	// if FlushInterval is 0
	DefaultScheduler bool
}

// Context holds the registry, message pool and buffer pool shared by all emitters of
// an application
type Context struct {
	Registry  *schema.Registry
	Pool      *pool.Pool
	Buffers   *buffer.Pool
	Scheduler *buffer.PeriodicScheduler // nil if no default scheduler is configured
}

// New creates and initializes a context
func New(cfg Config) (*Context, error) {
	registry := schema.NewRegistry()
	if err := registry.Init(cfg.Names, cfg.Loader); err != nil {
		return nil, err
	}

	interval := cfg.FlushInterval
	if interval <= 0 && cfg.DefaultScheduler {
		interval = buffer.DefaultInterval
	}

	messages := pool.New()
	ctx := &Context{
		Registry: registry,
		Pool:     messages,
	}

	if interval > 0 {
		ctx.Scheduler = buffer.NewPeriodicScheduler(interval)
		ctx.Buffers = buffer.NewPool(messages, ctx.Scheduler)
	} else {
		ctx.Buffers = buffer.NewPool(messages, nil)
	}
	return ctx, nil
}

// NewEmitter creates an emitter bound to the context
func (c *Context) NewEmitter(send buffer.SendFunc, handlers emitter.HandlerLookup) *emitter.Emitter {
	return emitter.New(emitter.Options{
		Registry: c.Registry,
		Pool:     c.Pool,
		Buffers:  c.Buffers,
		Send:     send,
		Handlers: handlers,
	})
}

// Start starts the default scheduler
func (c *Context) Start() {
	if c.Scheduler != nil {
		c.Scheduler.Start()
	}
}

// Stop stops the default scheduler and drops all shared buffers
func (c *Context) Stop() {
	if c.Scheduler != nil {
		c.Scheduler.Stop()
	}
	c.Buffers.Dispose()
}
