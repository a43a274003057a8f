// Package which contains a WebsocketConnectionAdapterInterface implementation for
// nhooyr/websocket library (https://github.com/nhooyr/websocket).
package wsadapternhooyr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"

	"github.com/gbdevw/gorwsclient/pkg/rwsresult"
	"github.com/gbdevw/gorwsclient/pkg/wsadapters"
	"nhooyr.io/websocket"
)

// Read limit applied to the connection. Messages larger than the maximum frame size are drained
// up to this limit so the connection stays usable.
const readLimit = 32 << 20

// Adapter for nhooyr/websocket library.
//
// nhooyr/websocket answers pings and consumes pongs internally: control frames are never
// reported by this adapter. A read interrupted by the context closes the connection.
type NhooyrWebsocketConnectionAdapter struct {
	// Underlying websocket connection
	conn *websocket.Conn
	// Dial options to use when opening a connection
	opts *websocket.DialOptions
	// Mutex which protects conn
	mu sync.Mutex
	// Mutex which serializes reads
	readMu sync.Mutex
	// Sticky read error: once set, all reads fail with this error
	readErr error
}

// # Description
//
// Factory which creates a new NhooyrWebsocketConnectionAdapter.
//
// # Inputs
//
//   - opts: Optional dial options to use when calling Dial method. Can be nil. Options are
//     copied on each Dial: headers and subprotocol provided to Dial take precedence.
//
// # Returns
//
// New NhooyrWebsocketConnectionAdapter
func NewNhooyrWebsocketConnectionAdapter(opts *websocket.DialOptions) *NhooyrWebsocketConnectionAdapter {
	if opts == nil {
		opts = &websocket.DialOptions{}
	}
	return &NhooyrWebsocketConnectionAdapter{
		conn: nil,
		opts: opts,
	}
}

// # Description
//
// Dial opens a connection to the websocket server and performs a WebSocket handshake.
//
// The server response is returned even when the handshake fails so that the caller can inspect
// the status code, the headers (WWW-Authenticate, Set-Cookie) and the body.
func (adapter *NhooyrWebsocketConnectionAdapter) Dial(
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
		opts := *adapter.opts
		if header != nil {
			opts.HTTPHeader = header.Clone()
		}
		if subprotocol != "" {
			opts.Subprotocols = []string{subprotocol}
		}
		conn, res, err := websocket.Dial(ctx, target.String(), &opts)
		if res != nil && res.Body == nil {
			res.Body = http.NoBody
		}
		if err != nil {
			return res, err
		}
		conn.SetReadLimit(readLimit)
		adapter.readMu.Lock()
		defer adapter.readMu.Unlock()
		adapter.readErr = nil
		adapter.conn = conn
		return res, nil
	}
}

// # Description
//
// Send a close message with the provided status code and an optional close reason and drop
// the websocket connection. The connection is dropped even if the close handshake fails.
func (adapter *NhooyrWebsocketConnectionAdapter) Close(ctx context.Context, code wsadapters.StatusCode, reason string) error {
	adapter.mu.Lock()
	defer adapter.mu.Unlock()
	if adapter.conn == nil {
		return fmt.Errorf("close failed: %w", wsadapters.ErrNoConnection)
	}
	err := adapter.conn.Close(websocket.StatusCode(code), reason)
	adapter.conn = nil
	if err != nil {
		if websocket.CloseStatus(err) != -1 || errors.Is(err, net.ErrClosed) {
			// Close handshake was started by the server or connection was already closed
			return nil
		}
		if err.Error() == "failed to close WebSocket: already wrote close" {
			return nil
		}
		return fmt.Errorf("failed to close WebSocket: %w", err)
	}
	return nil
}

// # Description
//
// Read a single frame from the websocket server.
//
// A close message from the server is returned as a close frame. Any later read fails with a
// wsadapters.WebsocketCloseError.
func (adapter *NhooyrWebsocketConnectionAdapter) ReadFrame(ctx context.Context, maxFrameSize int) (wsadapters.Frame, error) {
	adapter.mu.Lock()
	conn := adapter.conn
	adapter.mu.Unlock()
	if conn == nil {
		return wsadapters.Frame{}, fmt.Errorf("read failed: %w", wsadapters.ErrNoConnection)
	}
	adapter.readMu.Lock()
	defer adapter.readMu.Unlock()
	if adapter.readErr != nil {
		return wsadapters.Frame{}, adapter.readErr
	}
	select {
	case <-ctx.Done():
		return wsadapters.Frame{}, ctx.Err()
	default:
	}
	frame, err := adapter.readFromWire(ctx, conn, maxFrameSize)
	if err != nil {
		if ctx.Err() != nil && !errors.Is(err, ctx.Err()) {
			err = fmt.Errorf("%w: %w", ctx.Err(), err)
		}
		adapter.readErr = err
	}
	return frame, err
}

// Read the next message from the connection and assemble it into a frame.
func (adapter *NhooyrWebsocketConnectionAdapter) readFromWire(ctx context.Context, conn *websocket.Conn, maxFrameSize int) (wsadapters.Frame, error) {
	msgType, r, err := conn.Reader(ctx)
	if err != nil {
		var ce websocket.CloseError
		if errors.As(err, &ce) {
			// Close message from server: report it once then fail all later reads
			adapter.readErr = wsadapters.WebsocketCloseError{
				Code:   wsadapters.StatusCode(ce.Code),
				Reason: ce.Reason,
				Err:    fmt.Errorf("close message received from server"),
			}
			return wsadapters.NewCloseFrame(wsadapters.StatusCode(ce.Code), ce.Reason), nil
		}
		if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
			return wsadapters.Frame{}, wsadapters.WebsocketCloseError{
				Code:   wsadapters.AbnormalClosure,
				Reason: "websocket connection abnormal closure",
				Err:    err,
			}
		}
		return wsadapters.Frame{}, err
	}
	acc := wsadapters.NewFrameAccumulator(maxFrameSize)
	state, err := acc.Accumulate(r)
	frame := wsadapters.Frame{
		Flags:   rwsresult.FlagFin | int(msgType),
		Payload: acc.Bytes(),
		State:   state,
	}
	if err != nil {
		return frame, err
	}
	if state == rwsresult.FrameTooLarge {
		// Drain the rest of the message so the next read starts on a new message
		if _, err := io.Copy(io.Discard, r); err != nil {
			return frame, err
		}
	}
	return frame, nil
}

// # Description
//
// Return the underlying websocket connection if any. Returned value has to be type asserted.
func (adapter *NhooyrWebsocketConnectionAdapter) GetUnderlyingWebsocketConnection() any {
	adapter.mu.Lock()
	defer adapter.mu.Unlock()
	return adapter.conn
}
