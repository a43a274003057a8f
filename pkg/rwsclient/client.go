// Package rwsclient contains the robot web service client: a façade which owns the HTTP and
// WebSocket transports bound to one controller, together with its configuration, metrics and
// logging.
//
// Every communication operation returns a result from package rwsresult. Operations never
// return transport failures as Go errors.
package rwsclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/gbdevw/gorwsclient/pkg/rwscookies"
	"github.com/gbdevw/gorwsclient/pkg/rwsresult"
	"github.com/gbdevw/gorwsclient/pkg/rwstransport"
	"github.com/gbdevw/gorwsclient/pkg/wsadapters"
)

// Instruments used by the client.
type clientInstruments struct {
	// Number of HTTP exchanges per status
	httpRequests metric.Int64Counter
	// Number of frame receptions per status
	websocketFrames metric.Int64Counter
	// Duration of HTTP exchanges
	httpDuration metric.Float64Histogram
}

// # Description
//
// Client of a robot web service. The client owns a HTTP transport and a WebSocket transport
// bound to the same controller: the WebSocket upgrade handshake reuses the cookies, the
// credentials and the timeout policy of the HTTP transport.
//
// The client is safe for concurrent use. HTTP operations are serialized by the HTTP transport
// lock and WebSocket receptions by the WebSocket transport lock, so a blocking frame reception
// does not prevent HTTP requests.
type Client struct {
	// Client options
	opts ClientConfigurationOptions
	// HTTP transport
	http *rwstransport.HTTPTransport
	// WebSocket transport
	ws *rwstransport.WebsocketTransport
	// Instruments
	instruments *clientInstruments
	// Tracer used to instrument code
	tracer trace.Tracer
	// Logger
	logger *zap.Logger
}

// # Description
//
// Factory which creates a new Client. No I/O is performed.
//
// # Inputs
//
//   - opts: Client options. Options are validated.
//   - tracerProvider: Tracer provider used by the client and its transports. The global tracer
//     provider is used if nil.
//   - meterProvider: Meter provider used to create the client instruments. The global meter
//     provider is used if nil.
//   - logger: Logger used by the client and its transports. A no-op logger is used if nil.
//
// # Returns
//
// A new client or an error if the options are not valid (ConfigurationError) or if the
// instruments could not be created.
func NewClient(
	opts *ClientConfigurationOptions,
	tracerProvider trace.TracerProvider,
	meterProvider metric.MeterProvider,
	logger *zap.Logger,
) (*Client, error) {
	if opts == nil {
		return nil, ConfigurationError{Source: "options", Err: errors.New("options are required")}
	}
	if err := Validate(opts); err != nil {
		return nil, ConfigurationError{Source: "options", Err: err}
	}
	if tracerProvider == nil {
		tracerProvider = otel.GetTracerProvider()
	}
	if meterProvider == nil {
		meterProvider = otel.GetMeterProvider()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	instruments, err := newClientInstruments(meterProvider.Meter(pkgName, metric.WithInstrumentationVersion(pkgVersion)))
	if err != nil {
		return nil, fmt.Errorf("failed to create client instruments: %w", err)
	}
	logger = logger.With(zap.String("host", opts.Host), zap.Int("port", opts.Port))
	httpTransport := rwstransport.NewHTTPTransport(opts.httpTransportOptions(), tracerProvider, logger)
	wsTransport, err := rwstransport.NewWebsocketTransport(httpTransport, opts.websocketTransportOptions(), tracerProvider, logger)
	if err != nil {
		return nil, ConfigurationError{Source: "options", Err: err}
	}
	return &Client{
		opts:        *opts,
		http:        httpTransport,
		ws:          wsTransport,
		instruments: instruments,
		tracer:      tracerProvider.Tracer(pkgName, trace.WithInstrumentationVersion(pkgVersion)),
		logger:      logger,
	}, nil
}

// Create the client instruments with the provided meter.
func newClientInstruments(meter metric.Meter) (*clientInstruments, error) {
	httpRequests, err := meter.Int64Counter(metricHTTPRequests,
		metric.WithDescription("Number of HTTP exchanges with the robot web service"))
	if err != nil {
		return nil, err
	}
	websocketFrames, err := meter.Int64Counter(metricWebsocketFrames,
		metric.WithDescription("Number of WebSocket frame receptions"))
	if err != nil {
		return nil, err
	}
	httpDuration, err := meter.Float64Histogram(metricHTTPDuration,
		metric.WithDescription("Duration of HTTP exchanges with the robot web service"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}
	return &clientInstruments{
		httpRequests:    httpRequests,
		websocketFrames: websocketFrames,
		httpDuration:    httpDuration,
	}, nil
}

/*************************************************************************************************/
/* HTTP                                                                                          */
/*************************************************************************************************/

// Send a GET request for the provided resource.
func (client *Client) HTTPGet(ctx context.Context, uri string) rwsresult.HTTPResult {
	return client.request(ctx, http.MethodGet, uri, "")
}

// Send a POST request with the provided form content.
func (client *Client) HTTPPost(ctx context.Context, uri string, content string) rwsresult.HTTPResult {
	return client.request(ctx, http.MethodPost, uri, content)
}

// Send a PUT request with the provided form content.
func (client *Client) HTTPPut(ctx context.Context, uri string, content string) rwsresult.HTTPResult {
	return client.request(ctx, http.MethodPut, uri, content)
}

// Send a DELETE request for the provided resource.
func (client *Client) HTTPDelete(ctx context.Context, uri string) rwsresult.HTTPResult {
	return client.request(ctx, http.MethodDelete, uri, "")
}

// Use the default timeout for subsequent HTTP exchanges and WebSocket handshakes.
func (client *Client) UseDefaultTimeout() {
	client.http.UseDefaultTimeout()
}

// Use the extended timeout for subsequent HTTP exchanges and WebSocket handshakes.
func (client *Client) UseExtendedTimeout() {
	client.http.UseExtendedTimeout()
}

// Return the timeout in use.
func (client *Client) Timeout() time.Duration {
	return client.http.Timeout()
}

// Return the cookies stored by the client.
func (client *Client) Cookies() *rwscookies.Store {
	return client.http.Cookies()
}

// Return the options used by the client.
func (client *Client) Options() ClientConfigurationOptions {
	return client.opts
}

// Send a request and record metrics.
func (client *Client) request(ctx context.Context, method string, uri string, content string) rwsresult.HTTPResult {
	start := time.Now()
	result := client.http.Request(ctx, method, uri, content)
	client.recordHTTP(ctx, "request", method, result, time.Since(start))
	return result
}

// Record metrics of a HTTP exchange.
func (client *Client) recordHTTP(ctx context.Context, operation string, method string, result rwsresult.HTTPResult, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String(attrOperation, operation),
		attribute.String(attrMethod, method),
		attribute.String(attrStatus, result.StatusText()),
	)
	client.instruments.httpRequests.Add(ctx, 1, attrs)
	client.instruments.httpDuration.Record(ctx, float64(elapsed.Microseconds())/1000, attrs)
}

/*************************************************************************************************/
/* WEBSOCKET                                                                                     */
/*************************************************************************************************/

// # Description
//
// Open a WebSocket connection to the provided resource with the provided subprotocol. The
// handshake follows the same rules as HTTP requests: stored cookies, single Digest retry and
// timeout in use. A successful connection replaces the current one.
//
// # Returns
//
// The result of the upgrade handshake.
func (client *Client) WebsocketConnect(ctx context.Context, uri string, protocol string) rwsresult.HTTPResult {
	start := time.Now()
	result := client.ws.Connect(ctx, uri, protocol)
	client.recordHTTP(ctx, "websocket_connect", http.MethodGet, result, time.Since(start))
	return result
}

// # Description
//
// Receive one frame from the current WebSocket connection.
//
// # Returns
//
// The reception result. NoSocket is returned without I/O when there is no connection.
func (client *Client) WebsocketReceiveFrame(ctx context.Context) rwsresult.WebSocketResult {
	result := client.ws.ReceiveFrame(ctx)
	client.instruments.websocketFrames.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrStatus, result.StatusText()),
		attribute.String(attrOpcode, result.OpcodeText()),
	))
	return result
}

// Return true if the client holds a WebSocket connection.
func (client *Client) WebsocketExists() bool {
	return client.ws.Exists()
}

// # Description
//
// Close the current WebSocket connection with a normal closure status.
//
// # Returns
//
// An error wrapping wsadapters.ErrNoConnection if there is no connection, or the close error.
// The connection is dropped in both cases.
func (client *Client) WebsocketClose(ctx context.Context) error {
	return client.ws.Close(ctx, wsadapters.NormalClosure, "")
}

// # Description
//
// Close the client: the WebSocket connection, if any, is closed and idle HTTP connections are
// released. The client can still be used afterwards: new connections are opened on demand.
func (client *Client) Close(ctx context.Context) error {
	ctx, span := client.tracer.Start(ctx, spanClose, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	err := client.ws.Close(ctx, wsadapters.GoingAway, "client closed")
	client.http.Close()
	if err != nil && !errors.Is(err, wsadapters.ErrNoConnection) {
		span.RecordError(err)
		span.SetStatus(codes.Error, codes.Error.String())
		return fmt.Errorf("failed to close client: %w", err)
	}
	span.SetStatus(codes.Ok, codes.Ok.String())
	return nil
}

// Extract the text between the start and end markers. See FindSubstringContent.
func (client *Client) FindSubstringContent(whole string, start string, end string) string {
	return FindSubstringContent(whole, start, end)
}
