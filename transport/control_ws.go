package transport

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/brightwaveai/streamxlate/message"
	"github.com/brightwaveai/streamxlate/shared"
)

// reconnectBackoff is the fixed interval between reconnect attempts
// while the transport is alive.
const reconnectBackoff = 500 * time.Millisecond

// closeGrace is the short grace period Close waits for the remote side to
// acknowledge the close handshake before abandoning the connection.
const closeGrace = 3 * time.Second

// outboundQueueCapacity bounds the number of outbound frames the
// transport buffers locally; backpressure beyond this is the remote's
// job.
const outboundQueueCapacity = 16

// WSControlTransport implements ControlTransport over gorilla/websocket,
// with an auto-reconnect loop and a bounded outbound queue so Send never
// blocks the caller on a stalled connection.
type WSControlTransport struct {
	log shared.Logger

	mu      sync.Mutex
	conn    *websocket.Conn
	url     string
	token   string
	closing bool

	outbound chan []byte
	inbound  chan []byte
	done     chan struct{}
}

var _ ControlTransport = (*WSControlTransport)(nil)

// NewWSControlTransport constructs an unconnected transport; call Connect
// to dial and start the reconnect/pump loops.
func NewWSControlTransport(logger shared.Logger) *WSControlTransport {
	return &WSControlTransport{
		log:      logger,
		outbound: make(chan []byte, outboundQueueCapacity),
		inbound:  make(chan []byte, outboundQueueCapacity),
		done:     make(chan struct{}),
	}
}

func (t *WSControlTransport) Connect(ctx context.Context, url, token string) error {
	t.mu.Lock()
	t.url, t.token = url, token
	t.mu.Unlock()

	conn, err := t.dial(ctx)
	if err != nil {
		return shared.NewBootError(fmt.Errorf("connecting control transport: %w", err))
	}
	t.mu.Lock()
	t.conn = conn
	t.mu.Unlock()

	go t.pumpOutbound()
	go t.pumpInbound()
	return nil
}

func (t *WSControlTransport) dial(ctx context.Context) (*websocket.Conn, error) {
	t.mu.Lock()
	url, token := t.url, t.token
	t.mu.Unlock()

	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, url, header)
	return conn, err
}

// pumpInbound reads frames off the wire, forwarding them to Inbound()
// and reconnecting on a transient close. A close during shutdown is
// final.
func (t *WSControlTransport) pumpInbound() {
	for {
		t.mu.Lock()
		conn := t.conn
		closing := t.closing
		t.mu.Unlock()
		if closing || conn == nil {
			return
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			t.mu.Lock()
			closing = t.closing
			t.mu.Unlock()
			if closing {
				close(t.inbound)
				return
			}
			if t.log != nil {
				t.log.Warn("control transport read failed, reconnecting", zap.Error(err))
			}
			t.reconnect()
			continue
		}
		select {
		case t.inbound <- data:
		case <-t.done:
			return
		}
	}
}

func (t *WSControlTransport) reconnect() {
	for {
		t.mu.Lock()
		closing := t.closing
		t.mu.Unlock()
		if closing {
			return
		}
		conn, err := t.dial(context.Background())
		if err == nil {
			t.mu.Lock()
			t.conn = conn
			t.mu.Unlock()
			return
		}
		time.Sleep(reconnectBackoff)
	}
}

// pumpOutbound drains the bounded outbound queue onto the wire, so Send
// never blocks on a stalled or reconnecting socket.
func (t *WSControlTransport) pumpOutbound() {
	for {
		select {
		case frame := <-t.outbound:
			t.mu.Lock()
			conn := t.conn
			t.mu.Unlock()
			if conn == nil {
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil && t.log != nil {
				t.log.Warn("control transport write failed", zap.Error(err))
			}
		case <-t.done:
			return
		}
	}
}

func (t *WSControlTransport) Send(ctx context.Context, frame []byte) error {
	select {
	case t.outbound <- frame:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *WSControlTransport) Inbound() <-chan []byte {
	return t.inbound
}

// Close sends end_task(force=true) then closes the connection, waiting up
// to closeGrace for the remote side to acknowledge.
func (t *WSControlTransport) Close(ctx context.Context) error {
	t.mu.Lock()
	if t.closing {
		t.mu.Unlock()
		return nil
	}
	t.closing = true
	conn := t.conn
	t.mu.Unlock()

	if conn != nil {
		endTask, err := message.Encode(message.TypeEndTask, map[string]any{"force": true})
		if err == nil {
			_ = conn.WriteMessage(websocket.TextMessage, endTask)
		}
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(closeGrace))
		select {
		case <-time.After(closeGrace):
		case <-ctx.Done():
		}
		_ = conn.Close()
	}
	close(t.done)
	return nil
}
