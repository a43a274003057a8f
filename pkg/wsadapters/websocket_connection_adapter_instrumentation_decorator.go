package wsadapters

import (
	"context"
	"net/http"
	"net/url"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/gbdevw/gorwsclient/pkg/rwsresult"
)

// # Description
//
// Adapter which wraps another adapter and traces its calls: one span per dial, close and frame
// read. Handshake status codes, close codes and frame metadata are recorded as attributes.
// Frame payloads are never recorded.
type WebsocketConnectionAdapterInstrumentationDecorator struct {
	// Wrapped adapter
	decorated WebsocketConnectionAdapterInterface
	// Tracer used for instrumentation
	tracer trace.Tracer
}

// # Description
//
// Wrap the provided adapter. The global tracer provider is used when tracerProvider is nil.
func NewWebsocketConnectionAdapterInstrumentationDecorator(
	decorated WebsocketConnectionAdapterInterface,
	tracerProvider trace.TracerProvider,
) *WebsocketConnectionAdapterInstrumentationDecorator {
	if tracerProvider == nil {
		tracerProvider = otel.GetTracerProvider()
	}
	return &WebsocketConnectionAdapterInstrumentationDecorator{
		decorated: decorated,
		tracer:    tracerProvider.Tracer(pkgName, trace.WithInstrumentationVersion(pkgVersion)),
	}
}

// Trace an upgrade handshake. A 401 answer is recorded as a challenge event.
func (decorator *WebsocketConnectionAdapterInstrumentationDecorator) Dial(
	ctx context.Context,
	target url.URL,
	header http.Header,
	subprotocol string,
) (*http.Response, error) {
	ctx, span := decorator.tracer.Start(ctx, spanDial,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String(attrUrl, target.String()),
			attribute.String(attrSubprotocol, subprotocol),
			attribute.Bool(attrAuthorized, header.Get("Authorization") != ""),
		))
	defer span.End()
	resp, err := decorator.decorated.Dial(ctx, target, header, subprotocol)
	if resp != nil {
		span.SetAttributes(attribute.Int(attrHandshakeStatus, resp.StatusCode))
		if resp.StatusCode == http.StatusUnauthorized {
			span.AddEvent(eventChallenged)
		}
	}
	return resp, traceError(span, err)
}

// Trace a close.
func (decorator *WebsocketConnectionAdapterInstrumentationDecorator) Close(ctx context.Context, code StatusCode, reason string) error {
	ctx, span := decorator.tracer.Start(ctx, spanClose,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.Int(attrCloseCode, int(code)),
			attribute.String(attrCloseReason, reason),
		))
	defer span.End()
	return traceError(span, decorator.decorated.Close(ctx, code, reason))
}

// Trace a frame read. Partial frames returned with an error are recorded too.
func (decorator *WebsocketConnectionAdapterInstrumentationDecorator) ReadFrame(ctx context.Context, maxFrameSize int) (Frame, error) {
	ctx, span := decorator.tracer.Start(ctx, spanReadFrame,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.Int(attrMaxFrameSize, maxFrameSize)))
	defer span.End()
	frame, err := decorator.decorated.ReadFrame(ctx, maxFrameSize)
	if err == nil || len(frame.Payload) > 0 {
		span.AddEvent(eventReceived, trace.WithAttributes(
			attribute.String(attrFrameOpcode, rwsresult.OpcodeText(frame.Flags)),
			attribute.Int(attrFrameByteSize, len(frame.Payload)),
			attribute.String(attrFrameState, frame.State.String()),
		))
	}
	return frame, traceError(span, err)
}

// Not traced.
func (decorator *WebsocketConnectionAdapterInstrumentationDecorator) GetUnderlyingWebsocketConnection() any {
	return decorator.decorated.GetUnderlyingWebsocketConnection()
}

// Record a non nil error in the span and return it.
func traceError(span trace.Span, err error) error {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, codes.Error.String())
	}
	return err
}
