package rwstransport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/gbdevw/gorwsclient/pkg/rwsresult"
	"github.com/gbdevw/gorwsclient/pkg/wsadapters"
)

const (
	// Default maximum size of a received frame
	DefaultMaxFrameSize = 1024
	// Timeout used to close a replaced WebSocket connection
	replacedCloseTimeout = time.Second
)

// Options used to create a WebsocketTransport.
type WebsocketTransportOptions struct {
	// Websocket library: LibraryGorilla (default) or LibraryNhooyr
	Library string
	// Optional adapter factory. Overrides Library when set.
	Factory wsadapters.AdapterFactory
	// Maximum size of a received frame. DefaultMaxFrameSize is used if zero.
	MaxFrameSize int
	// Timeout applied to a frame reception. ExtendedTimeout is used if zero.
	ReceiveTimeout time.Duration
}

// # Description
//
// WebSocket transport bound to a HTTPTransport. The transport owns at most one WebSocket
// connection (the handle), guarded by the WebSocket lock.
//
// Handle lifecycle: the handle is set by a successful Connect, replaced by the next successful
// Connect and dropped by Close. A failed ReceiveFrame does not drop the handle: callers detect
// a dead connection through the failure of the next call and must Close or Connect again.
type WebsocketTransport struct {
	// HTTP transport used for the upgrade handshake
	http *HTTPTransport
	// Factory used to create adapters
	factory wsadapters.AdapterFactory
	// Websocket library name
	library string
	// Maximum size of a received frame
	maxFrameSize int
	// Timeout applied to a frame reception
	receiveTimeout time.Duration
	// Current handle
	adapter wsadapters.WebsocketConnectionAdapterInterface
	// WebSocket lock
	mu sync.Mutex
	// Tracer used to instrument code
	tracer trace.Tracer
	// Logger
	logger *zap.Logger
}

// # Description
//
// Factory which creates a new WebsocketTransport.
//
// # Inputs
//
//   - httpTransport: HTTP transport used for upgrade handshakes. It provides cookies,
//     credentials and the timeout applied to the handshake.
//   - opts: Transport options.
//   - tracerProvider: Tracer provider. The global tracer provider is used if nil.
//   - logger: Logger. A no-op logger is used if nil.
//
// # Returns
//
// A new WebsocketTransport without connection or an error if the library is not supported.
func NewWebsocketTransport(
	httpTransport *HTTPTransport,
	opts WebsocketTransportOptions,
	tracerProvider trace.TracerProvider,
	logger *zap.Logger,
) (*WebsocketTransport, error) {
	if httpTransport == nil {
		return nil, fmt.Errorf("http transport is required")
	}
	if tracerProvider == nil {
		tracerProvider = otel.GetTracerProvider()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	factory := opts.Factory
	if factory == nil {
		var err error
		factory, err = NewAdapterFactory(opts.Library, tracerProvider)
		if err != nil {
			return nil, err
		}
	}
	if opts.Library == "" {
		opts.Library = LibraryGorilla
	}
	if opts.MaxFrameSize <= 0 {
		opts.MaxFrameSize = DefaultMaxFrameSize
	}
	if opts.ReceiveTimeout <= 0 {
		opts.ReceiveTimeout = ExtendedTimeout
	}
	return &WebsocketTransport{
		http:           httpTransport,
		factory:        factory,
		library:        opts.Library,
		maxFrameSize:   opts.MaxFrameSize,
		receiveTimeout: opts.ReceiveTimeout,
		adapter:        nil,
		tracer:         tracerProvider.Tracer(pkgName, trace.WithInstrumentationVersion(pkgVersion)),
		logger:         logger,
	}, nil
}

// # Description
//
// Open a WebSocket connection with the provided subprotocol. The upgrade handshake goes through
// the HTTP transport: same cookies, same Digest retry and same timeout.
//
// On success, the new connection replaces the current one, which is then closed best-effort.
// On failure, the current connection is kept.
//
// # Returns
//
// The result of the upgrade handshake. NoSocket is never used.
func (transport *WebsocketTransport) Connect(ctx context.Context, uri string, protocol string) rwsresult.HTTPResult {
	ctx, span := transport.tracer.Start(ctx, spanWebsocketConnect,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String(attrURI, uri),
			attribute.String(attrSubprotocol, protocol),
			attribute.String(attrLibrary, transport.library),
		))
	defer span.End()
	adapter := transport.factory()
	result := transport.http.Upgrade(ctx, uri, protocol, adapter)
	if result.Status != rwsresult.Ok {
		return result
	}
	transport.mu.Lock()
	previous := transport.adapter
	transport.adapter = adapter
	transport.mu.Unlock()
	if previous != nil {
		span.AddEvent(eventHandleReplaced)
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), replacedCloseTimeout)
		defer cancel()
		if err := previous.Close(closeCtx, wsadapters.GoingAway, "connection replaced"); err != nil {
			transport.logger.Debug("failed to close replaced websocket connection", zap.Error(err))
		}
	}
	transport.logger.Info("websocket connected", zap.String("uri", uri), zap.String("protocol", protocol))
	return result
}

// # Description
//
// Receive one frame from the current connection. The call blocks until a frame is received, the
// receive timeout elapses or the context is canceled.
//
// # Returns
//
//   - NoSocket without any I/O if there is no connection.
//   - Ok with the frame flags and content if a complete frame has been received.
//   - ProtocolFailure with the content truncated to the maximum frame size if the frame is too
//     large. The connection remains usable.
//   - A classified failure with the partial content otherwise.
func (transport *WebsocketTransport) ReceiveFrame(ctx context.Context) rwsresult.WebSocketResult {
	transport.mu.Lock()
	defer transport.mu.Unlock()
	result := rwsresult.WebSocketResult{}
	if transport.adapter == nil {
		result.Fail(rwsresult.NoSocket, nil)
		return result
	}
	ctx, span := transport.tracer.Start(ctx, spanWebsocketReceive,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.Int64(attrTimeout, transport.receiveTimeout.Milliseconds())))
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, transport.receiveTimeout)
	defer cancel()
	frame, err := transport.adapter.ReadFrame(ctx, transport.maxFrameSize)
	result.RecordFrame(frame.Flags, string(frame.Payload), frame.State)
	switch {
	case err != nil:
		result.Fail(ClassifyError(err), err)
	case frame.State == rwsresult.FrameTooLarge:
		result.Fail(rwsresult.ProtocolFailure, fmt.Errorf("frame exceeds the maximum frame size of %d bytes", transport.maxFrameSize))
	default:
		result.Succeed()
	}
	span.SetAttributes(
		attribute.String(attrOpcode, result.OpcodeText()),
		attribute.Int(attrFrameSize, len(frame.Payload)))
	traceOutcome(span, result.Outcome)
	if result.Status.IsFailure() {
		transport.logger.Warn("websocket reception failed", zap.String("result", result.Render(false, 0)))
	} else {
		transport.logger.Debug("websocket frame", zap.String("result", result.Render(false, 0)))
	}
	return result
}

// Return true if the transport holds a WebSocket connection.
func (transport *WebsocketTransport) Exists() bool {
	transport.mu.Lock()
	defer transport.mu.Unlock()
	return transport.adapter != nil
}

// # Description
//
// Send a close message and drop the current connection. The connection is dropped even if the
// close message cannot be sent.
//
// # Returns
//
// An error wrapping wsadapters.ErrNoConnection if there is no connection, or the close error.
func (transport *WebsocketTransport) Close(ctx context.Context, code wsadapters.StatusCode, reason string) error {
	transport.mu.Lock()
	defer transport.mu.Unlock()
	ctx, span := transport.tracer.Start(ctx, spanWebsocketClose, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	if transport.adapter == nil {
		return handleError(fmt.Errorf("websocket close failed: %w", wsadapters.ErrNoConnection), span)
	}
	err := transport.adapter.Close(ctx, code, reason)
	transport.adapter = nil
	if err != nil {
		return handleError(fmt.Errorf("websocket close failed: %w", err), span)
	}
	transport.logger.Info("websocket closed", zap.Int("code", int(code)), zap.String("reason", reason))
	return nil
}
