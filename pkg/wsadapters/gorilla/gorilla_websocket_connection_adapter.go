// Package which contains a WebsocketConnectionAdapterInterface implementation for
// gorilla/websocket library (https://github.com/gorilla/websocket).
package wsadaptergorilla

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gbdevw/gorwsclient/pkg/rwsresult"
	"github.com/gbdevw/gorwsclient/pkg/wsadapters"
	"github.com/gorilla/websocket"
)

// Deadline used to write control frames when the context has no deadline.
const controlWriteTimeout = 5 * time.Second

// Adapter for gorilla/websocket library
type GorillaWebsocketConnectionAdapter struct {
	// Underlying websocket connection
	conn *websocket.Conn
	// Dialer to use when opening a connection
	dialer *websocket.Dialer
	// Mutex which protects conn
	mu sync.Mutex
	// Mutex which serializes reads. Gorilla supports one concurrent reader.
	readMu sync.Mutex
	// Sticky read error: once set, all reads fail with this error
	readErr error
	// Control frames observed by the ping/pong handlers
	control wsadapters.ControlFrameQueue
	// Frame read from the wire and held back while earlier control frames are reported
	pending *wsadapters.Frame
}

// # Description
//
// Factory which creates a new GorillaWebsocketConnectionAdapter.
//
// # Inputs
//
//   - dialer: Optional dialer to use when using Dial method. If nil, the default dialer
//     defined by gorilla library will be used. The dialer is copied on each Dial so the
//     subprotocol can be set without altering the provided dialer.
//
// # Returns
//
// New GorillaWebsocketConnectionAdapter
func NewGorillaWebsocketConnectionAdapter(dialer *websocket.Dialer) *GorillaWebsocketConnectionAdapter {
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	return &GorillaWebsocketConnectionAdapter{
		conn:   nil,
		dialer: dialer,
	}
}

// # Description
//
// Dial opens a connection to the websocket server and performs a WebSocket handshake.
//
// The server response is returned even when the handshake fails so that the caller can inspect
// the status code, the headers (WWW-Authenticate, Set-Cookie) and the body.
func (adapter *GorillaWebsocketConnectionAdapter) Dial(
	ctx context.Context,
	target url.URL,
	header http.Header,
	subprotocol string,
) (*http.Response, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
		adapter.mu.Lock()
		defer adapter.mu.Unlock()
		if adapter.conn != nil {
			return nil, fmt.Errorf("a connection has already been established")
		}
		dialer := *adapter.dialer
		if subprotocol != "" {
			dialer.Subprotocols = []string{subprotocol}
		}
		conn, res, err := dialer.DialContext(ctx, target.String(), header)
		if res != nil && res.Body == nil {
			res.Body = http.NoBody
		}
		if err != nil {
			return res, err
		}
		// Reset read state for the new connection once reads on a previous connection are over
		adapter.readMu.Lock()
		defer adapter.readMu.Unlock()
		adapter.readErr = nil
		adapter.pending = nil
		adapter.control.Reset()
		conn.SetPingHandler(adapter.pingHandler(conn))
		conn.SetPongHandler(func(appData string) error {
			adapter.control.Push(wsadapters.Frame{
				Flags:   rwsresult.FlagFin | rwsresult.OpPong,
				Payload: []byte(appData),
				State:   rwsresult.FrameComplete,
			})
			return nil
		})
		adapter.conn = conn
		return res, nil
	}
}

// Build a ping handler which records the ping and replies with a pong like the default gorilla
// ping handler does.
func (adapter *GorillaWebsocketConnectionAdapter) pingHandler(conn *websocket.Conn) func(string) error {
	return func(appData string) error {
		adapter.control.Push(wsadapters.Frame{
			Flags:   rwsresult.FlagFin | rwsresult.OpPing,
			Payload: []byte(appData),
			State:   rwsresult.FrameComplete,
		})
		err := conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(controlWriteTimeout))
		if err == websocket.ErrCloseSent {
			return nil
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil
		}
		return err
	}
}

// # Description
//
// Send a close message with the provided status code and an optional close reason and drop
// the websocket connection. The connection is dropped even if the close message could not be
// sent.
func (adapter *GorillaWebsocketConnectionAdapter) Close(ctx context.Context, code wsadapters.StatusCode, reason string) error {
	adapter.mu.Lock()
	defer adapter.mu.Unlock()
	if adapter.conn == nil {
		return fmt.Errorf("close failed: %w", wsadapters.ErrNoConnection)
	}
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(controlWriteTimeout)
	}
	err := adapter.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(int(code), reason), deadline)
	if err == websocket.ErrCloseSent {
		// Server initiated the close handshake and the reply has already been sent
		err = nil
	}
	cerr := adapter.conn.Close()
	adapter.conn = nil
	if err != nil {
		return fmt.Errorf("failed to send close message: %w", err)
	}
	if cerr != nil && !errors.Is(cerr, net.ErrClosed) {
		return fmt.Errorf("failed to close connection: %w", cerr)
	}
	return nil
}

// # Description
//
// Read a single frame from the websocket server.
//
// Control frames observed while waiting for a message are reported first, in the order they
// were received. A close message from the server is returned as a close frame. Any later read
// fails with a wsadapters.WebsocketCloseError.
//
// The context deadline is used as read deadline. A context cancellation interrupts the read.
// Gorilla connections cannot be read anymore after a read error: the failure is sticky.
func (adapter *GorillaWebsocketConnectionAdapter) ReadFrame(ctx context.Context, maxFrameSize int) (wsadapters.Frame, error) {
	adapter.mu.Lock()
	conn := adapter.conn
	adapter.mu.Unlock()
	if conn == nil {
		return wsadapters.Frame{}, fmt.Errorf("read failed: %w", wsadapters.ErrNoConnection)
	}
	adapter.readMu.Lock()
	defer adapter.readMu.Unlock()
	if frame, ok := adapter.control.Pop(); ok {
		return frame, nil
	}
	if adapter.pending != nil {
		frame := *adapter.pending
		adapter.pending = nil
		return frame, nil
	}
	if adapter.readErr != nil {
		return wsadapters.Frame{}, adapter.readErr
	}
	select {
	case <-ctx.Done():
		return wsadapters.Frame{}, ctx.Err()
	default:
	}
	// Apply context deadline and interrupt read on cancellation
	deadline, _ := ctx.Deadline()
	if err := conn.SetReadDeadline(deadline); err != nil {
		return wsadapters.Frame{}, err
	}
	stop := context.AfterFunc(ctx, func() {
		conn.SetReadDeadline(time.Now())
	})
	defer stop()
	frame, err := adapter.readFromWire(conn, maxFrameSize)
	if err != nil {
		if ctx.Err() != nil {
			err = fmt.Errorf("%w: %w", ctx.Err(), err)
		}
		adapter.readErr = err
		return frame, err
	}
	// Report control frames which were received before the message
	if ctrl, ok := adapter.control.Pop(); ok {
		adapter.pending = &frame
		return ctrl, nil
	}
	return frame, nil
}

// Read the next message from the connection and assemble it into a frame.
func (adapter *GorillaWebsocketConnectionAdapter) readFromWire(conn *websocket.Conn, maxFrameSize int) (wsadapters.Frame, error) {
	msgType, r, err := conn.NextReader()
	if err != nil {
		var ce *websocket.CloseError
		if errors.As(err, &ce) {
			// Close message from server: report it once then fail all later reads
			adapter.readErr = wsadapters.WebsocketCloseError{
				Code:   wsadapters.StatusCode(ce.Code),
				Reason: ce.Text,
				Err:    fmt.Errorf("close message received from server"),
			}
			return wsadapters.NewCloseFrame(wsadapters.StatusCode(ce.Code), ce.Text), nil
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed) {
			return wsadapters.Frame{}, wsadapters.WebsocketCloseError{
				Code:   wsadapters.AbnormalClosure,
				Reason: err.Error(),
				Err:    err,
			}
		}
		return wsadapters.Frame{}, err
	}
	acc := wsadapters.NewFrameAccumulator(maxFrameSize)
	state, err := acc.Accumulate(r)
	frame := wsadapters.Frame{
		Flags:   rwsresult.FlagFin | msgType,
		Payload: acc.Bytes(),
		State:   state,
	}
	if err != nil {
		return frame, err
	}
	if state == rwsresult.FrameTooLarge {
		// Discard the rest of the message so the connection stays usable
		if _, err := io.Copy(io.Discard, r); err != nil {
			return frame, err
		}
	}
	return frame, nil
}

// # Description
//
// Return the underlying websocket connection if any. Returned value has to be type asserted.
func (adapter *GorillaWebsocketConnectionAdapter) GetUnderlyingWebsocketConnection() any {
	adapter.mu.Lock()
	defer adapter.mu.Unlock()
	return adapter.conn
}
