package control

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"

	"timerpanel/internal/core/engine"
	"timerpanel/internal/logging"
	"timerpanel/internal/router"
)

// eventBuffer is how many events a slow connection may lag behind.
const eventBuffer = 32

// Handler answers one named request.
type Handler interface {
	Handle(ctx context.Context, name string, decode func(target any) error) router.Response
}

// Subscriber attaches connections to the event stream.
type Subscriber interface {
	Subscribe(buffer int) (<-chan engine.Event, func())
}

// Server accepts control connections on a loopback listener. Every
// connection is an attached surface for as long as it stays open.
type Server struct {
	listener net.Listener
	handler  Handler
	hub      Subscriber
	logger   logging.Logger

	mu     sync.Mutex
	conns  map[net.Conn]struct{}
	closed bool
	wg     sync.WaitGroup
}

// NewServer creates a Server. It takes ownership of listener.
func NewServer(listener net.Listener, handler Handler, hub Subscriber, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Server{
		listener: listener,
		handler:  handler,
		hub:      hub,
		logger:   logger,
		conns:    make(map[net.Conn]struct{}),
	}
}

// Addr returns the listening address.
func (server *Server) Addr() net.Addr {
	return server.listener.Addr()
}

// Serve accepts connections until ctx is done or Close is called.
func (server *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		_ = server.Close()
	}()

	server.logger.Infof("control: listening on %s", server.listener.Addr())
	for {
		conn, err := server.listener.Accept()
		if err != nil {
			if server.isClosed() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		if !server.track(conn) {
			_ = conn.Close()
			return nil
		}
		go func() {
			defer server.wg.Done()
			defer server.untrack(conn)
			server.ServeConn(ctx, conn)
		}()
	}
}

// ServeConn runs the request loop for one connection and closes it when
// the peer goes away.
func (server *Server) ServeConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	remote := conn.RemoteAddr().String()
	writer := newFrameWriter(conn)
	reader := newFrameReader(conn)

	events, unsubscribe := server.hub.Subscribe(eventBuffer)
	defer unsubscribe()

	forwardDone := make(chan struct{})
	go func() {
		defer close(forwardDone)
		server.forwardEvents(events, writer, remote)
	}()

	server.logger.Debugf("control: %s attached", remote)
	for {
		data, err := reader.readFrame()
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				server.logger.Warnf("control: %s: %v", remote, err)
			}
			break
		}

		envelope, err := decodeEnvelope(data)
		if err != nil {
			server.logger.Warnf("control: %s: %v", remote, err)
			continue
		}
		if envelope.Kind != KindRequest {
			server.logger.Debugf("control: %s sent a %s frame, ignoring", remote, envelope.Kind)
			continue
		}

		response := server.handler.Handle(ctx, envelope.Command, decodeData(envelope.Data))
		if err := server.respond(writer, envelope.ID, response); err != nil {
			server.logger.Debugf("control: %s: %v", remote, err)
			break
		}
	}
	server.logger.Debugf("control: %s detached", remote)

	// Closing first unblocks a forwarder stuck writing to a dead peer.
	_ = conn.Close()
	unsubscribe()
	<-forwardDone
}

func (server *Server) respond(writer *frameWriter, id uint64, response router.Response) error {
	envelope := &Envelope{
		Kind:    KindResponse,
		ID:      id,
		Success: response.Success,
		Message: response.Message,
	}
	data, err := rawData(response.Data)
	if err != nil {
		envelope.Success = false
		envelope.Message = err.Error()
	} else {
		envelope.Data = data
	}

	frame, err := encodeEnvelope(envelope)
	if err != nil {
		return err
	}
	return writer.writeFrame(frame)
}

// forwardEvents pushes hub events to the peer until the subscription is
// closed. Write failures mean the peer is gone and are not reported.
func (server *Server) forwardEvents(events <-chan engine.Event, writer *frameWriter, remote string) {
	for event := range events {
		envelope, err := eventEnvelope(event)
		if err != nil {
			server.logger.Errorf("control: %v", err)
			continue
		}
		frame, err := encodeEnvelope(envelope)
		if err != nil {
			server.logger.Errorf("control: %v", err)
			continue
		}
		if err := writer.writeFrame(frame); err != nil {
			server.logger.Debugf("control: %s unreachable: %v", remote, err)
		}
	}
}

// Close stops accepting, closes open connections and waits for them.
func (server *Server) Close() error {
	server.mu.Lock()
	if server.closed {
		server.mu.Unlock()
		return nil
	}
	server.closed = true
	conns := make([]net.Conn, 0, len(server.conns))
	for conn := range server.conns {
		conns = append(conns, conn)
	}
	server.mu.Unlock()

	err := server.listener.Close()
	for _, conn := range conns {
		_ = conn.Close()
	}
	server.wg.Wait()
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

func (server *Server) isClosed() bool {
	server.mu.Lock()
	defer server.mu.Unlock()
	return server.closed
}

func (server *Server) track(conn net.Conn) bool {
	server.mu.Lock()
	defer server.mu.Unlock()
	if server.closed {
		return false
	}
	server.conns[conn] = struct{}{}
	server.wg.Add(1)
	return true
}

func (server *Server) untrack(conn net.Conn) {
	server.mu.Lock()
	defer server.mu.Unlock()
	delete(server.conns, conn)
}
