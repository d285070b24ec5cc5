package server

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"runtime"
	"sync"
	"syscall"

	"github.com/VictoriaMetrics/metrics"
	"github.com/ValentinKolb/dMsg/lib/core"
	"github.com/ValentinKolb/dMsg/lib/emitter"
	"github.com/ValentinKolb/dMsg/lib/schema"
	"github.com/ValentinKolb/dMsg/rpc/common"
	"github.com/ValentinKolb/dMsg/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logger.GetLogger("server")

var (
	connectionsTotal    = metrics.GetOrCreateCounter("dmsg_server_connections_total")
	disconnectionsTotal = metrics.GetOrCreateCounter("dmsg_server_disconnections_total")
)

// Application is the message protocol and the handlers a server speaks
type Application struct {
	// Names and Loader describe the lazily loaded message types
	Names  map[schema.ID]string
	Loader schema.Loader
	// Handlers are auto-registered on the emitter of every connection
	Handlers emitter.HandlerLookup
	// Connected is called for every accepted connection before its first message is parsed
	Connected func(e *emitter.Emitter, conn transport.Conn)
	// Disconnected is called once the connection of e is closed
	Disconnected func(e *emitter.Emitter)
}

// Server binds one emitter to every connection of a server transport. All emitters share
// the registry, the message pool and the buffer pool of one core.Context.
type Server struct {
	config    common.ServerConfig
	transport transport.IServerTransport
	app       Application
	ctx       *core.Context

	conns *xsync.MapOf[*emitter.Emitter, transport.Conn]

	mu          sync.Mutex // guards metrics and metricsAddr
	metrics     *http.Server
	metricsAddr string
}

// NewServer creates a new server
// It takes a config, a transport and the application as parameters
//
// Usage:
//
//	app, err := game.New("json", config.MaxJSONBytes).Application()
//	if err != nil {
//		panic(err)
//	}
//
//	s, err := server.NewServer(*config, tcp.NewTCPServerTransport(), app)
//	if err != nil {
//		panic(err)
//	}
//
//	if err := s.Serve(); err != nil {
//		panic(err)
//	}
func NewServer(
	config common.ServerConfig,
	serverTransport transport.IServerTransport,
	app Application,
) (*Server, error) {
	// https://github.com/golang/go/issues/17393
	if runtime.GOOS == "darwin" {
		signal.Ignore(syscall.Signal(0xd))
	}

	ctx, err := core.New(core.Config{
		Names:            app.Names,
		Loader:           app.Loader,
		FlushInterval:    config.FlushInterval,
		DefaultScheduler: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create message context: %w", err)
	}

	Logger.Infof("created server")
	Logger.Infof(config.String())

	s := &Server{
		config:    config,
		transport: serverTransport,
		app:       app,
		ctx:       ctx,
		conns:     xsync.NewMapOf[*emitter.Emitter, transport.Conn](),
	}
	serverTransport.RegisterHandler(s.handleConnection)
	return s, nil
}

// Context returns the message context shared by all connections
func (s *Server) Context() *core.Context {
	return s.ctx
}

// Connections returns the number of open connections
func (s *Server) Connections() int {
	return s.conns.Size()
}

// Addr returns the address the transport listens on, nil if it is not listening (yet)
func (s *Server) Addr() net.Addr {
	if a, ok := s.transport.(interface{ Addr() net.Addr }); ok {
		return a.Addr()
	}
	return nil
}

// Serve starts the buffer scheduler, the metrics endpoint (if configured) and the transport.
// It blocks until the server is closed.
func (s *Server) Serve() error {
	if s.config.MetricsEndpoint != "" {
		if err := s.serveMetrics(); err != nil {
			return err
		}
	}

	s.ctx.Start()
	return s.transport.Listen(s.config.Transport)
}

// Close stops the transport, which closes all connections, and the buffer scheduler
func (s *Server) Close() error {
	err := s.transport.Close()

	s.mu.Lock()
	if s.metrics != nil {
		err = errors.Join(err, s.metrics.Close())
		s.metrics = nil
	}
	s.mu.Unlock()

	s.ctx.Stop()
	Logger.Infof("server closed")
	return err
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// handleConnection creates the emitter of a new connection
func (s *Server) handleConnection(conn transport.Conn) (transport.MessageHandler, func()) {
	e := s.ctx.NewEmitter(conn.Send, s.app.Handlers)
	remote := conn.RemoteAddr()

	e.OnIgnored(func(m *schema.Message) error {
		Logger.Warningf("received message of type %s from %s but no listeners are set for it", m.Name(), remote)
		return nil
	})
	e.OnError(func(err error) {
		Logger.Errorf("connection %s: %v", remote, err)
	})

	s.conns.Store(e, conn)
	connectionsTotal.Inc()

	if s.app.Connected != nil {
		s.app.Connected(e, conn)
	}

	onClose := func() {
		s.conns.Delete(e)
		disconnectionsTotal.Inc()

		if s.app.Disconnected != nil {
			s.app.Disconnected(e)
		}
		e.Close()
	}

	return e.CreateMessageParser(), onClose
}

// serveMetrics exposes all metrics in the prometheus text format on /metrics
func (s *Server) serveMetrics() error {
	listener, err := net.Listen("tcp", s.config.MetricsEndpoint)
	if err != nil {
		return fmt.Errorf("failed to create metrics listener: %v", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		metrics.WritePrometheus(w, true)
	})

	srv := &http.Server{Handler: mux}
	s.mu.Lock()
	s.metrics = srv
	s.metricsAddr = listener.Addr().String()
	s.mu.Unlock()

	go func() {
		Logger.Infof("serving metrics on %s/metrics", listener.Addr())
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			Logger.Errorf("metrics endpoint failed: %v", err)
		}
	}()
	return nil
}
