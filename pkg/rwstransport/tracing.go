package rwstransport

import (
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/gbdevw/gorwsclient/pkg/rwsresult"
)

/*************************************************************************************************/
/* TRACING RELATED CONSTANTS                                                                     */
/*************************************************************************************************/

// Constants used for tracing purpose.
const (
	// Package name used by library tracer
	pkgName = "gorwsclient.rwstransport"
	// Package version
	pkgVersion = "0.0.0"

	// Namespace used by spans, events and attributes
	namespace = "rwstransport"

	// Name of span used to trace a HTTP request
	spanHTTPRequest = namespace + ".http.request"
	// Name of span used to trace a WebSocket connection
	spanWebsocketConnect = namespace + ".websocket.connect"
	// Name of span used to trace a WebSocket frame reception
	spanWebsocketReceive = namespace + ".websocket.receive"
	// Name of span used to trace a WebSocket close
	spanWebsocketClose = namespace + ".websocket.close"

	// Event used when a Digest challenge has been answered
	eventDigestRetry = namespace + ".digest.retry"
	// Event used when a WebSocket handle has been replaced
	eventHandleReplaced = namespace + ".websocket.replaced"

	// Attribute used to store the request method
	attrMethod = "http.request.method"
	// Attribute used to store the request uri
	attrURI = "url.path"
	// Attribute used to store the response status code
	attrStatusCode = "http.response.status_code"
	// Attribute used to store the general status of a result
	attrGeneralStatus = namespace + ".status"
	// Attribute used to store the subprotocol
	attrSubprotocol = namespace + ".websocket.subprotocol"
	// Attribute used to store the websocket library
	attrLibrary = namespace + ".websocket.library"
	// Attribute used to store the received frame opcode
	attrOpcode = namespace + ".websocket.opcode"
	// Attribute used to store the received frame size
	attrFrameSize = namespace + ".websocket.frame.size"
	// Attribute used to store the timeout applied to an operation
	attrTimeout = namespace + ".timeout_ms"
)

// # Description
//
// Record the outcome of a result in the provided span: general status attribute and, in case of
// failure, the exception message as error and an error span status.
func traceOutcome(span trace.Span, outcome rwsresult.Outcome) {
	span.SetAttributes(attrStatus(outcome.Status))
	if outcome.Status.IsFailure() {
		span.RecordError(errorText(outcome.ExceptionMessage))
		span.SetStatus(codes.Error, outcome.StatusText())
	} else {
		span.SetStatus(codes.Ok, codes.Ok.String())
	}
}

// # Description
//
// The function records the input error in the provided span using span.RecordError(err) and set
// the span status with an error code. The function returns the provided error.
func handleError(err error, span trace.Span) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, codes.Error.String())
	return err
}
