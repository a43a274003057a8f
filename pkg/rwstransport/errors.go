package rwstransport

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"syscall"

	"go.opentelemetry.io/otel/attribute"

	"github.com/gbdevw/gorwsclient/pkg/rwsresult"
	"github.com/gbdevw/gorwsclient/pkg/wsadapters"
)

// # Description
//
// Map an error raised by a transport operation to the general status taxonomy.
//
//   - nil: Ok
//   - timeout while waiting for I/O (net.Error timeout, context.DeadlineExceeded,
//     os.ErrDeadlineExceeded): TimeoutFailure
//   - connection or socket level failure (net.OpError, syscall errno, EOF, closed connection,
//     closed websocket, canceled context): TransportFailure
//   - anything else (bad handshake, digest computation error, malformed response): ProtocolFailure
func ClassifyError(err error) rwsresult.GeneralStatus {
	if err == nil {
		return rwsresult.Ok
	}
	// Cancellation first: interrupted reads also surface as deadline errors
	if errors.Is(err, context.Canceled) {
		return rwsresult.TransportFailure
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return rwsresult.TimeoutFailure
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return rwsresult.TimeoutFailure
	}
	var closeErr wsadapters.WebsocketCloseError
	if errors.As(err, &closeErr) || errors.Is(err, wsadapters.ErrNoConnection) {
		return rwsresult.TransportFailure
	}
	var opErr *net.OpError
	var errno syscall.Errno
	if errors.As(err, &opErr) ||
		errors.As(err, &errno) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed) {
		return rwsresult.TransportFailure
	}
	return rwsresult.ProtocolFailure
}

// Error used to record an exception message in a span.
type errorText string

func (err errorText) Error() string {
	return string(err)
}

// Build the general status attribute.
func attrStatus(status rwsresult.GeneralStatus) attribute.KeyValue {
	return attribute.String(attrGeneralStatus, status.String())
}
