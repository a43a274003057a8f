package wsadapters

import (
	"errors"
	"fmt"
)

// Returned by Close and ReadFrame when the adapter does not hold a connection.
var ErrNoConnection = errors.New("no websocket connection")

/*************************************************************************************************/
/* WEBSOCKET CLOSE ERROR                                                                         */
/*************************************************************************************************/

// # Description
//
// Read failure caused by the end of the WebSocket connection. Adapters return it for every read
// following a close frame from the server, and when the connection drops without close frame.
type WebsocketCloseError struct {
	// Close status sent by the server. AbnormalClosure (1006) when the connection dropped
	// without close frame (RFC 6455 section 7.1.5).
	Code StatusCode
	// Close reason sent by the server, or the low level failure when the connection dropped.
	Reason string
	// Underlying error, if any.
	Err error
}

func (err WebsocketCloseError) Error() string {
	if err.Reason == "" {
		return fmt.Sprintf("websocket closed with status %d", err.Code)
	}
	return fmt.Sprintf("websocket closed with status %d: %s", err.Code, err.Reason)
}

func (err WebsocketCloseError) Unwrap() error {
	return err.Err
}
