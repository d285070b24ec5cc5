// Package core wires the dMsg lib packages into one explicit Context: a type registry,
// a message pool and a buffer pool with an optional periodic default scheduler. All
// emitters of an application are created from the same context so they share types,
// pooled messages and the shared buffer scope.
//
//	ctx, err := core.New(core.Config{Names: names, Loader: loader, DefaultScheduler: true})
//	ctx.Start()
//	defer ctx.Stop()
//
//	e := ctx.NewEmitter(conn.Send, handlers.Lookup)
package core
