package emitter

import (
	"github.com/ValentinKolb/dMsg/lib/buffer"
	dmsgerrors "github.com/ValentinKolb/dMsg/lib/errors"
	"github.com/ValentinKolb/dMsg/lib/schema"
)

// Send creates a message of t from fields, packs it and forwards the bytes to the send
// function of the emitter. The message is released after the send function returned.
func (e *Emitter) Send(t *schema.Type, fields schema.Fields) error {
	if e.send == nil {
		return notConfigured(t)
	}

	m := e.pool.Create(t, fields)
	defer m.Release()

	data, err := m.Pack()
	if err != nil {
		return err
	}
	if err := e.send(data); err != nil {
		return dmsgerrors.New(dmsgerrors.PhaseSend, dmsgerrors.KindHandler).
			Type(t.Name).
			Cause(err).
			Build()
	}
	sentTotal.Inc()
	return nil
}

// SendBuffered stores the send request in the buffer selected by config. Instance scoped
// buffers are private to this emitter.
func (e *Emitter) SendBuffered(t *schema.Type, fields schema.Fields, config buffer.Config) error {
	if e.send == nil {
		return notConfigured(t)
	}
	if e.buffers == nil {
		return dmsgerrors.New(dmsgerrors.PhaseBuffer, dmsgerrors.KindInvalidConfig).
			Type(t.Name).
			Detail("instance not configured with a buffer pool").
			Build()
	}

	return e.buffers.Store(e.instance, buffer.Entry{
		Type:   t,
		Fields: fields,
		Send:   e.send,
		Config: config,
	})
}

// CreateMessageParser returns the inbound entry point for a transport: every call parses
// one message, dispatches it with EmitAsync and releases it once all listeners completed.
// Errors are surfaced through the Error meta-event.
func (e *Emitter) CreateMessageParser() func(data []byte) {
	return func(data []byte) {
		receivedTotal.Inc()

		if e.registry == nil {
			e.fail(dmsgerrors.New(dmsgerrors.PhaseResolve, dmsgerrors.KindNotConfigured).
				Detail("instance not configured with a registry").
				Build())
			return
		}

		m, err := e.pool.Parse(e.registry, data)
		if err != nil {
			e.fail(err)
			return
		}
		defer m.Release()

		if err := e.EmitAsync(m); err != nil {
			e.fail(err)
		}
	}
}

// Close disposes the instance scoped buffers of the emitter without sending them
func (e *Emitter) Close() {
	if e.instance != nil {
		e.instance.Dispose()
	}
}

func notConfigured(t *schema.Type) error {
	return dmsgerrors.New(dmsgerrors.PhaseSend, dmsgerrors.KindNotConfigured).
		Type(t.Name).
		Detail("instance not configured with a send function").
		Build()
}
