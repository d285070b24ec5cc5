package client

import (
	"fmt"

	"github.com/ValentinKolb/dMsg/lib/core"
	"github.com/ValentinKolb/dMsg/lib/emitter"
	"github.com/ValentinKolb/dMsg/lib/schema"
	"github.com/ValentinKolb/dMsg/rpc/common"
	"github.com/ValentinKolb/dMsg/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("client")

// Application is the message protocol and the handlers a client speaks
type Application struct {
	Names    map[schema.ID]string
	Loader   schema.Loader
	Handlers emitter.HandlerLookup
}

// Client is one connection to a message server with its emitter
type Client struct {
	config  common.ClientConfig
	ctx     *core.Context
	emitter *emitter.Emitter
	conn    transport.Conn
	names   map[schema.ID]string
	ready   chan struct{}
}

// Dial connects to the server configured in config and returns the client.
// Inbound messages are dispatched by the emitter of the client (see Emitter).
func Dial(config common.ClientConfig, clientTransport transport.IClientTransport, app Application) (*Client, error) {
	ctx, err := core.New(core.Config{
		Names:            app.Names,
		Loader:           app.Loader,
		FlushInterval:    config.FlushInterval,
		DefaultScheduler: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create message context: %w", err)
	}

	c := &Client{
		config: config,
		ctx:    ctx,
		names:  app.Names,
		ready:  make(chan struct{}),
	}
	c.emitter = ctx.NewEmitter(c.send, app.Handlers)
	c.emitter.OnError(func(err error) {
		Logger.Errorf("connection %s: %v", config.Transport.Endpoint, err)
	})

	// frames may arrive before Connect returned
	parse := c.emitter.CreateMessageParser()
	onMessage := func(data []byte) {
		<-c.ready
		parse(data)
	}

	conn, err := clientTransport.Connect(config.Transport, onMessage)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	close(c.ready)

	ctx.Start()
	return c, nil
}

// Emitter returns the emitter of the connection
func (c *Client) Emitter() *emitter.Emitter {
	return c.emitter
}

// Context returns the message context of the client
func (c *Client) Context() *core.Context {
	return c.ctx
}

// Send sends a message of the named type. The type is resolved lazily if needed.
func (c *Client) Send(typeName string, fields schema.Fields) error {
	t, err := c.resolve(typeName)
	if err != nil {
		return err
	}
	return c.emitter.Send(t, fields)
}

// Done is closed once the connection is closed
func (c *Client) Done() <-chan struct{} {
	return c.conn.Done()
}

// Close closes the connection and stops the buffer scheduler
func (c *Client) Close() error {
	err := c.conn.Close()
	c.emitter.Close()
	c.ctx.Stop()
	return err
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// send is the send function of the emitter
func (c *Client) send(data []byte) error {
	<-c.ready
	return c.conn.Send(data)
}

// resolve looks up a registered type and falls back to lazy loading by id
func (c *Client) resolve(typeName string) (*schema.Type, error) {
	registry := c.ctx.Registry
	if t, ok := registry.Lookup(typeName); ok {
		return t, nil
	}
	for id, name := range c.names {
		if name == typeName {
			return registry.Resolve(id)
		}
	}
	return nil, fmt.Errorf("unknown message type %s", typeName)
}
