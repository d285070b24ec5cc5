// Package client implements the client side of the message protocol. A Client owns one
// connection to a server and the emitter bound to it.
//
// Usage Example:
//
//	config := common.ClientConfig{
//		Transport:     common.DefaultTransportConfig("localhost:8001"),
//		FlushInterval: common.DefaultFlushInterval,
//	}
//
//	c, err := client.Dial(config, tcp.NewTCPClientTransport(), client.Application{
//		Names:  game.Names,
//		Loader: game.Loader(common.DefaultMaxJSONBytes),
//	})
//	if err != nil {
//		panic(err)
//	}
//	defer c.Close()
//
//	c.Emitter().Once("GameInfo", func(m *schema.Message) error {
//		fmt.Println(m.Fields())
//		return nil
//	})
//	c.Send("Join", schema.Fields{"nickname": "alice", "color": 1})
//
// Thread Safety:
//
//	Send may be called from any goroutine. Inbound messages are dispatched serially in
//	arrival order by the read goroutine of the transport.
package client
