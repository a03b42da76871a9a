package control

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/fxamacker/cbor/v2"
)

// ErrClosed is returned by calls on a client whose connection ended.
var ErrClosed = errors.New("control connection closed")

// Reply is the daemon's answer to one request.
type Reply struct {
	Success bool
	Message string
	Data    cbor.RawMessage
}

// Decode unmarshals the reply data into target.
func (reply Reply) Decode(target any) error {
	return decodeData(reply.Data)(target)
}

// Err converts an unsuccessful reply into an error.
func (reply Reply) Err() error {
	if reply.Success {
		return nil
	}
	if reply.Message == "" {
		return errors.New("request failed")
	}
	return errors.New(reply.Message)
}

// Client speaks the control protocol to a running daemon.
type Client struct {
	conn   net.Conn
	writer *frameWriter
	nextID atomic.Uint64

	mu      sync.Mutex
	pending map[uint64]chan Reply
	err     error

	events chan *Envelope
	done   chan struct{}
}

// Dial connects to the daemon at address.
func Dial(ctx context.Context, address string) (*Client, error) {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", address, err)
	}
	return NewClient(conn), nil
}

// NewClient wraps an established connection and starts reading from it.
func NewClient(conn net.Conn) *Client {
	client := &Client{
		conn:    conn,
		writer:  newFrameWriter(conn),
		pending: make(map[uint64]chan Reply),
		events:  make(chan *Envelope, eventBuffer),
		done:    make(chan struct{}),
	}
	go client.readLoop()
	return client
}

// Call sends command with payload and waits for the reply.
func (client *Client) Call(ctx context.Context, command string, payload any) (Reply, error) {
	data, err := rawData(payload)
	if err != nil {
		return Reply{}, fmt.Errorf("encode %s payload: %w", command, err)
	}

	id := client.nextID.Add(1)
	replyCh := make(chan Reply, 1)
	client.mu.Lock()
	if client.err != nil {
		err := client.err
		client.mu.Unlock()
		return Reply{}, err
	}
	client.pending[id] = replyCh
	client.mu.Unlock()

	defer func() {
		client.mu.Lock()
		delete(client.pending, id)
		client.mu.Unlock()
	}()

	frame, err := encodeEnvelope(&Envelope{Kind: KindRequest, ID: id, Command: command, Data: data})
	if err != nil {
		return Reply{}, err
	}
	if err := client.writer.writeFrame(frame); err != nil {
		return Reply{}, fmt.Errorf("send %s: %w", command, err)
	}

	select {
	case reply := <-replyCh:
		return reply, nil
	case <-client.done:
		return Reply{}, client.closeErr()
	case <-ctx.Done():
		return Reply{}, ctx.Err()
	}
}

// Events streams event envelopes pushed by the daemon. The channel is
// closed when the connection ends; events arriving while it is full are
// dropped.
func (client *Client) Events() <-chan *Envelope {
	return client.events
}

// Done is closed when the connection ends.
func (client *Client) Done() <-chan struct{} {
	return client.done
}

// Close ends the connection.
func (client *Client) Close() error {
	err := client.conn.Close()
	<-client.done
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

func (client *Client) readLoop() {
	reader := newFrameReader(client.conn)
	var loopErr error
	for {
		data, err := reader.readFrame()
		if err != nil {
			loopErr = err
			break
		}
		envelope, err := decodeEnvelope(data)
		if err != nil {
			continue
		}
		switch envelope.Kind {
		case KindResponse:
			client.mu.Lock()
			replyCh, ok := client.pending[envelope.ID]
			client.mu.Unlock()
			if ok {
				replyCh <- Reply{Success: envelope.Success, Message: envelope.Message, Data: envelope.Data}
			}
		case KindEvent:
			select {
			case client.events <- envelope:
			default:
			}
		}
	}

	client.mu.Lock()
	client.err = fmt.Errorf("%w: %v", ErrClosed, loopErr)
	client.mu.Unlock()
	close(client.events)
	close(client.done)
}

func (client *Client) closeErr() error {
	client.mu.Lock()
	defer client.mu.Unlock()
	if client.err == nil {
		return ErrClosed
	}
	return client.err
}
