// Package rwstransport contains the authenticated transports used to communicate with a robot
// web service: a HTTP transport which handles Digest challenges and cookies and a WebSocket
// transport which upgrades connections through the HTTP transport and receives frames.
//
// Transport failures never surface as Go errors: they are captured in results and classified
// with ClassifyError.
package rwstransport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/gbdevw/gorwsclient/pkg/rwscookies"
	"github.com/gbdevw/gorwsclient/pkg/rwsdigest"
	"github.com/gbdevw/gorwsclient/pkg/rwsresult"
	"github.com/gbdevw/gorwsclient/pkg/wsadapters"
)

const (
	// Timeout used for short operations
	DefaultTimeout = 400 * time.Millisecond
	// Timeout used for long operations
	ExtendedTimeout = 10 * time.Second
	// Content type used to send request content
	formContentType = "application/x-www-form-urlencoded"
)

// Options used to create a HTTPTransport.
type HTTPTransportOptions struct {
	// Robot web service host
	Host string
	// Robot web service port
	Port int
	// Credentials used to answer Digest challenges
	Credentials rwsdigest.Credentials
	// Default timeout. DefaultTimeout is used if zero.
	DefaultTimeout time.Duration
	// Extended timeout. ExtendedTimeout is used if zero.
	ExtendedTimeout time.Duration
	// Optional round tripper used by the HTTP client. A keep-alive transport is used if nil.
	RoundTripper http.RoundTripper
	// Optional client nonce generator used to answer Digest challenges.
	CNonce func() string
}

// Function which sends a request with the provided headers and returns the server response.
type sendFunc func(ctx context.Context, header http.Header) (*http.Response, error)

// HTTP transport bound to a single robot web service. The transport owns the HTTP session, the
// cookie store, the Digest authenticator and the timeout policy. All of them are guarded by a
// single lock: requests are serialized.
type HTTPTransport struct {
	// Base URL: http://host:port
	base url.URL
	// HTTP client
	client *http.Client
	// Cookies received from the server
	cookies *rwscookies.Store
	// Digest authenticator
	auth *rwsdigest.Authenticator
	// Default timeout
	defaultTimeout time.Duration
	// Extended timeout
	extendedTimeout time.Duration
	// Timeout in use
	timeout time.Duration
	// HTTP lock
	mu sync.Mutex
	// Tracer used to instrument code
	tracer trace.Tracer
	// Logger
	logger *zap.Logger
}

// # Description
//
// Factory which creates a new HTTPTransport.
//
// # Inputs
//
//   - opts: Transport options.
//   - tracerProvider: Tracer provider used to get the transport tracer. The global tracer
//     provider is used if nil.
//   - logger: Logger used by the transport. A no-op logger is used if nil.
//
// # Returns
//
// A new HTTPTransport which uses the default timeout.
func NewHTTPTransport(opts HTTPTransportOptions, tracerProvider trace.TracerProvider, logger *zap.Logger) *HTTPTransport {
	if tracerProvider == nil {
		tracerProvider = otel.GetTracerProvider()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.DefaultTimeout <= 0 {
		opts.DefaultTimeout = DefaultTimeout
	}
	if opts.ExtendedTimeout <= 0 {
		opts.ExtendedTimeout = ExtendedTimeout
	}
	roundTripper := opts.RoundTripper
	if roundTripper == nil {
		roundTripper = http.DefaultTransport.(*http.Transport).Clone()
	}
	return &HTTPTransport{
		base: url.URL{
			Scheme: "http",
			Host:   net.JoinHostPort(opts.Host, strconv.Itoa(opts.Port)),
		},
		client: &http.Client{
			Transport: roundTripper,
			// Redirects are reported to the caller
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		cookies:         rwscookies.NewStore(),
		auth:            rwsdigest.NewAuthenticator(opts.Credentials, opts.CNonce),
		defaultTimeout:  opts.DefaultTimeout,
		extendedTimeout: opts.ExtendedTimeout,
		timeout:         opts.DefaultTimeout,
		tracer:          tracerProvider.Tracer(pkgName, trace.WithInstrumentationVersion(pkgVersion)),
		logger:          logger,
	}
}

/*************************************************************************************************/
/* TIMEOUT POLICY                                                                                */
/*************************************************************************************************/

// Use the default timeout for subsequent operations.
func (transport *HTTPTransport) UseDefaultTimeout() {
	transport.mu.Lock()
	defer transport.mu.Unlock()
	transport.timeout = transport.defaultTimeout
}

// Use the extended timeout for subsequent operations.
func (transport *HTTPTransport) UseExtendedTimeout() {
	transport.mu.Lock()
	defer transport.mu.Unlock()
	transport.timeout = transport.extendedTimeout
}

// Return the timeout in use.
func (transport *HTTPTransport) Timeout() time.Duration {
	transport.mu.Lock()
	defer transport.mu.Unlock()
	return transport.timeout
}

/*************************************************************************************************/
/* REQUESTS                                                                                      */
/*************************************************************************************************/

// Send a GET request.
func (transport *HTTPTransport) Get(ctx context.Context, uri string) rwsresult.HTTPResult {
	return transport.Request(ctx, http.MethodGet, uri, "")
}

// Send a POST request with the provided form content.
func (transport *HTTPTransport) Post(ctx context.Context, uri string, content string) rwsresult.HTTPResult {
	return transport.Request(ctx, http.MethodPost, uri, content)
}

// Send a PUT request with the provided form content.
func (transport *HTTPTransport) Put(ctx context.Context, uri string, content string) rwsresult.HTTPResult {
	return transport.Request(ctx, http.MethodPut, uri, content)
}

// Send a DELETE request.
func (transport *HTTPTransport) Delete(ctx context.Context, uri string) rwsresult.HTTPResult {
	return transport.Request(ctx, http.MethodDelete, uri, "")
}

// # Description
//
// Send a request to the robot web service and read the whole response.
//
// Stored cookies are sent with the request and cookies set by every response are stored. If the
// server answers with a 401 and a Digest challenge, the same request is sent once again with an
// Authorization header. A 401 without a usable Digest challenge ends the exchange.
//
// # Inputs
//
//   - ctx: Context used for tracing and cancellation purpose. The timeout in use is applied.
//   - method: HTTP method.
//   - uri: Path and query of the resource.
//   - content: Optional form content. Sent only if not empty.
//
// # Returns
//
// A result with an Ok status whatever the HTTP status code is, or a classified failure status.
func (transport *HTTPTransport) Request(ctx context.Context, method string, uri string, content string) rwsresult.HTTPResult {
	uri = normalizeURI(uri)
	transport.mu.Lock()
	defer transport.mu.Unlock()
	ctx, span := transport.tracer.Start(ctx, spanHTTPRequest,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String(attrMethod, method),
			attribute.String(attrURI, uri),
			attribute.Int64(attrTimeout, transport.timeout.Milliseconds()),
		))
	defer span.End()
	result := rwsresult.HTTPResult{}
	result.RecordRequest(method, uri, content)
	var body []byte
	if content != "" {
		body = []byte(content)
	}
	target, err := url.Parse(transport.target(uri))
	if err != nil {
		transport.finalize(span, &result, err)
		return result
	}
	send := func(ctx context.Context, header http.Header) (*http.Response, error) {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
		if err != nil {
			return nil, err
		}
		for name, values := range header {
			req.Header[name] = values
		}
		if body != nil {
			req.Header.Set("Content-Type", formContentType)
		}
		return transport.client.Do(req)
	}
	ctx, cancel := context.WithTimeout(ctx, transport.timeout)
	defer cancel()
	// Digest uri must be the escaped form sent on the request line
	err = transport.exchange(ctx, span, &result, method, target.RequestURI(), body, send)
	transport.finalize(span, &result, err)
	return result
}

// # Description
//
// Perform a WebSocket upgrade handshake with the provided adapter. The handshake follows the
// same rules as Request: stored cookies, single Digest retry and timeout in use.
//
// The adapter holds the connection when the returned result has an Ok status.
func (transport *HTTPTransport) Upgrade(
	ctx context.Context,
	uri string,
	protocol string,
	adapter wsadapters.WebsocketConnectionAdapterInterface,
) rwsresult.HTTPResult {
	uri = normalizeURI(uri)
	transport.mu.Lock()
	defer transport.mu.Unlock()
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(attribute.Int64(attrTimeout, transport.timeout.Milliseconds()))
	result := rwsresult.HTTPResult{}
	result.RecordRequest(http.MethodGet, uri, "")
	target, err := url.Parse(transport.websocketTarget(uri))
	if err != nil {
		transport.finalize(span, &result, err)
		return result
	}
	send := func(ctx context.Context, header http.Header) (*http.Response, error) {
		return adapter.Dial(ctx, *target, header, protocol)
	}
	ctx, cancel := context.WithTimeout(ctx, transport.timeout)
	defer cancel()
	err = transport.exchange(ctx, span, &result, http.MethodGet, target.RequestURI(), nil, send)
	transport.finalize(span, &result, err)
	return result
}

// Return the cookie store of the transport.
func (transport *HTTPTransport) Cookies() *rwscookies.Store {
	return transport.cookies
}

// Return the base URL of the robot web service.
func (transport *HTTPTransport) BaseURL() url.URL {
	return transport.base
}

// Close idle connections of the HTTP session.
func (transport *HTTPTransport) Close() {
	transport.mu.Lock()
	defer transport.mu.Unlock()
	transport.client.CloseIdleConnections()
}

/*************************************************************************************************/
/* INTERNALS                                                                                     */
/*************************************************************************************************/

// Run a request/response exchange with at most one Digest retry. requestURI is the escaped path
// and query as they appear on the request line.
func (transport *HTTPTransport) exchange(
	ctx context.Context,
	span trace.Span,
	result *rwsresult.HTTPResult,
	method string,
	requestURI string,
	body []byte,
	send sendFunc,
) error {
	resp, err := transport.roundTrip(ctx, result, "", send)
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		return err
	}
	challenge, cerr := rwsdigest.FindChallenge(resp.Header)
	if cerr != nil {
		transport.logger.Debug("401 response without usable digest challenge", zap.String("uri", requestURI), zap.Error(cerr))
		return err
	}
	authorization, aerr := transport.auth.AuthorizeChallenge(challenge, method, requestURI, body)
	if aerr != nil {
		return fmt.Errorf("failed to answer digest challenge: %w", aerr)
	}
	span.AddEvent(eventDigestRetry, trace.WithAttributes(attribute.String("realm", challenge.Realm)))
	_, err = transport.roundTrip(ctx, result, authorization, send)
	return err
}

// Send a request with stored cookies and the optional Authorization header, then record the
// response and store its cookies.
func (transport *HTTPTransport) roundTrip(
	ctx context.Context,
	result *rwsresult.HTTPResult,
	authorization string,
	send sendFunc,
) (*http.Response, error) {
	header := http.Header{}
	if cookie := transport.cookies.HeaderValue(); cookie != "" {
		header.Set("Cookie", cookie)
	}
	if authorization != "" {
		header.Set("Authorization", authorization)
	}
	resp, err := send(ctx, header)
	if resp == nil {
		return nil, err
	}
	transport.cookies.AbsorbHeader(resp.Header)
	content, rerr := io.ReadAll(resp.Body)
	resp.Body.Close()
	result.RecordResponse(resp, string(content))
	if err == nil && rerr != nil {
		err = fmt.Errorf("failed to read response body: %w", rerr)
	}
	return resp, err
}

// Set the result status from the error, trace and log the result.
func (transport *HTTPTransport) finalize(span trace.Span, result *rwsresult.HTTPResult, err error) {
	if err != nil {
		result.Fail(ClassifyError(err), err)
	} else {
		result.Succeed()
	}
	if result.Response.StatusCode != 0 {
		span.SetAttributes(attribute.Int(attrStatusCode, result.Response.StatusCode))
	}
	traceOutcome(span, result.Outcome)
	if result.Status.IsFailure() {
		transport.logger.Warn("http exchange failed", zap.String("result", result.Render(false, 0)))
	} else {
		transport.logger.Debug("http exchange", zap.String("result", result.Render(false, 0)))
	}
}

// Build the HTTP URL of a resource.
func (transport *HTTPTransport) target(uri string) string {
	return transport.base.String() + uri
}

// Build the WebSocket URL of a resource.
func (transport *HTTPTransport) websocketTarget(uri string) string {
	base := transport.base
	base.Scheme = "ws"
	return base.String() + uri
}

// Make sure the uri is an absolute path.
func normalizeURI(uri string) string {
	if !strings.HasPrefix(uri, "/") {
		return "/" + uri
	}
	return uri
}
