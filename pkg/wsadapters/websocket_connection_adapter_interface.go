// The package defines an interface to adapt 3rd parties websocket libraries to the robot web
// service WebSocket transport.
package wsadapters

import (
	"context"
	"net/http"
	"net/url"
)

// Interface which describes the adapter methods and behaviour that the WebSocket transport
// expects from the underlying websocket connection library.
//
// An adapter holds at most one connection. Adapters are assumed to be thread-safe. Thread safety
// must be ensured either by the adapter implementation or by the underlying websocket library.
type WebsocketConnectionAdapterInterface interface {
	// # Description
	//
	// Dial opens a connection to the websocket server and performs a WebSocket handshake.
	//
	// # Expected behaviour
	//
	//	- Dial MUST block until websocket handshake is complete.
	//
	//	- Dial MUST NOT return the underlying websocket connection. The underlying websocket
	//	  connection must be kept internally by the adapter implementation in order to be used
	//	  later by other adapter methods.
	//
	//	- Dial MUST return the server response to the handshake when one has been received, even
	//	  when the handshake fails (401 challenge, ...). The response body must be readable.
	//
	//	- Dial MUST return an error in case a connection has already been established and Close
	//	  method has not been called yet.
	//
	// # Inputs
	//
	//	- ctx: Context used for tracing/timeout purpose
	//	- target: Target server URL
	//	- header: Headers to send with the handshake request (Cookie, Authorization, ...)
	//	- subprotocol: Subprotocol to negotiate. Can be empty.
	//
	// # Returns
	//
	// The server response to websocket handshake or an error if any.
	Dial(ctx context.Context, target url.URL, header http.Header, subprotocol string) (*http.Response, error)
	// # Description
	//
	// Send a close message with the provided status code and an optional close reason and drop
	// the websocket connection.
	//
	// # Expected behaviour
	//
	//	- Close MUST be blocking until close message has been sent to the server.
	//	- Close MUST drop the connection in any case.
	//	- Close MUST return an error in case there is no connection.
	//
	// # Inputs
	//
	//	- ctx: Context used for tracing purpose
	//	- code: Status code to use in close message
	//	- reason: Optional reason joined in close message. Can be empty.
	//
	// # Returns
	//
	//	- nil in case of success
	//	- error: no connection, server unreachable, ...
	Close(ctx context.Context, code StatusCode, reason string) error
	// # Description
	//
	// Read a single frame from the websocket server. ReadFrame blocks until a frame is received,
	// until connection closes or until the context deadline.
	//
	// # Expected behaviour
	//
	//	- Fragmented messages MUST be reassembled and returned as a single frame with the FIN bit
	//	  and the opcode of the first fragment.
	//
	//	- Frame content MUST be accumulated up to maxFrameSize bytes. If the frame is larger, the
	//	  content MUST be truncated, the rest of the message discarded and the FrameTooLarge state
	//	  used. The connection must remain usable.
	//
	//	- A close message from the server MUST be returned as a frame with the close opcode and
	//	  the close payload (2 bytes status code followed by the reason) and a nil error.
	//
	//	- Once a read has failed or a close message has been received, all later reads MUST fail
	//	  with the same error. The connection is not dropped: only Close or a new adapter can be
	//	  used to recover.
	//
	// # Inputs
	//
	//	- ctx: Context used for tracing/timeout purpose
	//	- maxFrameSize: Maximum number of bytes to accumulate.
	//
	// # Returns
	//
	//	- Frame: received frame. Can be partially filled when an error is returned.
	//	- error: in case of connection failure, timeout or when no connection is up.
	ReadFrame(ctx context.Context, maxFrameSize int) (Frame, error)
	// # Description
	//
	// Return the underlying websocket connection if any. Returned value has to be type asserted.
	GetUnderlyingWebsocketConnection() any
}

// Factory used to get a fresh, non-connected adapter for each connection.
type AdapterFactory func() WebsocketConnectionAdapterInterface
