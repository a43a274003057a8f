package demorwsserver

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/gbdevw/gorwsclient/pkg/rwsdigest"
)

// Options used to configure the simulator.
type Options struct {
	// User name accepted by the server
	Username string
	// Password accepted by the server
	Password string
	// Realm used in Digest challenges
	Realm string
	// Digest algorithm: MD5, SHA-256, SHA-512, SHA-512-256 or their -sess variants
	Algorithm string
	// Digest qop offered in challenges: auth, auth-int or empty for none
	QOP string
	// WebSocket subprotocol accepted by the server
	Subprotocol string
}

// Return the default simulator options.
func NewDefaultOptions() Options {
	return Options{
		Username:    DefaultUsername,
		Password:    DefaultPassword,
		Realm:       DefaultRealm,
		Algorithm:   DefaultAlgorithm,
		QOP:         DefaultQOP,
		Subprotocol: DefaultSubprotocol,
	}
}

// Robot web service simulator.
type DemoRobotWebServiceServer struct {
	// Simulator options
	opts Options
	// Underlying http.Server. Can be nil when the simulator is used as a handler only.
	httpServer *http.Server
	// Upgrader used for WebSocket subscriptions
	upgrader websocket.Upgrader
	// Nonces issued in challenges
	nonces map[string]struct{}
	// Authenticated sessions: session ID -> creation time
	sessions map[string]time.Time
	// In-memory resources: path -> content
	resources map[string]string
	// Active WebSocket subscribers
	subscribers map[string]*subscriber
	// Number of challenges sent since the simulator has been created
	challenges int64
	// Indicates that server has started
	started bool
	// Internal mutex which protects the simulator state
	mu sync.Mutex
	// Tracer used to instrument server code
	tracer trace.Tracer
	// Reference to instruments used to record server metrics
	instruments *demoServerInstruments
	// Logger
	logger *zap.Logger
}

// Internal structure used to retain references to the instruments that record server metrics.
type demoServerInstruments struct {
	sessionsGauge     metric.Int64ObservableGauge
	subscribersGauge  metric.Int64ObservableGauge
	resourcesGauge    metric.Int64ObservableGauge
	challengesCounter metric.Int64ObservableCounter
}

// WebSocket subscriber
type subscriber struct {
	// Subscriber ID
	id string
	// Subscriber connection
	conn *websocket.Conn
	// Serializes writes. Gorilla supports one concurrent writer.
	writeMu sync.Mutex
}

// # Description
//
// Factory which creates a new, non-started DemoRobotWebServiceServer.
//
// # Inputs
//
//   - opts: Simulator options.
//   - httpServer: Optional HTTP server used by Start and Stop. Its handler is overridden. Can be
//     nil when the simulator is only used as a http.Handler (httptest).
//   - tracerProvider: Tracer provider. The global tracer provider is used if nil.
//   - meterProvider: Meter provider. The global meter provider is used if nil.
//   - logger: Logger. A no-op logger is used if nil.
//
// # Returns
//
// A new simulator or an error if the instruments could not be created.
func NewDemoRobotWebServiceServer(
	opts Options,
	httpServer *http.Server,
	tracerProvider trace.TracerProvider,
	meterProvider metric.MeterProvider,
	logger *zap.Logger,
) (*DemoRobotWebServiceServer, error) {
	if tracerProvider == nil {
		tracerProvider = otel.GetTracerProvider()
	}
	if meterProvider == nil {
		meterProvider = otel.GetMeterProvider()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	srv := &DemoRobotWebServiceServer{
		opts:        opts,
		httpServer:  httpServer,
		nonces:      map[string]struct{}{},
		sessions:    map[string]time.Time{},
		resources:   map[string]string{},
		subscribers: map[string]*subscriber{},
		tracer:      tracerProvider.Tracer(instrumentationId),
		logger:      logger,
	}
	srv.upgrader = websocket.Upgrader{
		Subprotocols: []string{opts.Subprotocol},
		CheckOrigin:  func(r *http.Request) bool { return true },
	}
	meter := meterProvider.Meter(instrumentationId)
	sessionsGauge, err := meter.Int64ObservableGauge(metricSessionsGauge, metric.WithInt64Callback(func(ctx context.Context, o metric.Int64Observer) error {
		srv.mu.Lock()
		defer srv.mu.Unlock()
		o.Observe(int64(len(srv.sessions)))
		return nil
	}))
	if err != nil {
		return nil, err
	}
	subscribersGauge, err := meter.Int64ObservableGauge(metricSubscribersGauge, metric.WithInt64Callback(func(ctx context.Context, o metric.Int64Observer) error {
		srv.mu.Lock()
		defer srv.mu.Unlock()
		o.Observe(int64(len(srv.subscribers)))
		return nil
	}))
	if err != nil {
		return nil, err
	}
	resourcesGauge, err := meter.Int64ObservableGauge(metricResourcesGauge, metric.WithInt64Callback(func(ctx context.Context, o metric.Int64Observer) error {
		srv.mu.Lock()
		defer srv.mu.Unlock()
		o.Observe(int64(len(srv.resources)))
		return nil
	}))
	if err != nil {
		return nil, err
	}
	challengesCounter, err := meter.Int64ObservableCounter(metricChallengesCounter, metric.WithInt64Callback(func(ctx context.Context, o metric.Int64Observer) error {
		srv.mu.Lock()
		defer srv.mu.Unlock()
		o.Observe(srv.challenges)
		return nil
	}))
	if err != nil {
		return nil, err
	}
	srv.instruments = &demoServerInstruments{
		sessionsGauge:     sessionsGauge,
		subscribersGauge:  subscribersGauge,
		resourcesGauge:    resourcesGauge,
		challengesCounter: challengesCounter,
	}
	if httpServer != nil {
		httpServer.Handler = srv
	}
	return srv, nil
}

/*************************************************************************************************/
/* LIFECYCLE                                                                                     */
/*************************************************************************************************/

// # Description
//
// Bind the listen address and serve requests in a separate goroutine.
func (srv *DemoRobotWebServiceServer) Start() error {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if srv.httpServer == nil {
		return fmt.Errorf("no http server to start")
	}
	if srv.started {
		return fmt.Errorf("server already started")
	}
	listener, err := net.Listen("tcp", srv.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("demo server failed to listen: %w", err)
	}
	srv.started = true
	go func() {
		if err := srv.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			srv.logger.Error("demo server stopped unexpectedly", zap.Error(err))
		}
	}()
	srv.logger.Info("demo server started", zap.String("addr", listener.Addr().String()))
	return nil
}

// # Description
//
// Close all WebSocket subscriptions and gracefully shutdown the underlying HTTP server.
func (srv *DemoRobotWebServiceServer) Stop(ctx context.Context) error {
	srv.mu.Lock()
	if !srv.started {
		srv.mu.Unlock()
		return fmt.Errorf("server not started")
	}
	srv.started = false
	srv.mu.Unlock()
	srv.CloseSessions(websocket.CloseGoingAway, "server shutdown")
	if err := srv.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("demo server shutdown failed: %w", err)
	}
	srv.logger.Info("demo server stopped")
	return nil
}

/*************************************************************************************************/
/* HANDLER                                                                                       */
/*************************************************************************************************/

// # Description
//
// Handle a request: optional delay, authentication, then WebSocket subscription or resource
// operation.
func (srv *DemoRobotWebServiceServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, span := srv.tracer.Start(r.Context(), spanRequest,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String(attrMethod, r.Method),
			attribute.String(attrPath, r.URL.Path),
		))
	defer span.End()
	r = r.WithContext(ctx)
	if delay := r.URL.Query().Get(DelayParameter); delay != "" {
		if ms, err := strconv.Atoi(delay); err == nil && ms > 0 {
			select {
			case <-time.After(time.Duration(ms) * time.Millisecond):
			case <-ctx.Done():
				return
			}
		}
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		srv.reply(w, span, http.StatusBadRequest, "failed to read request body")
		return
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	if !srv.authenticate(w, r, body) {
		span.SetAttributes(attribute.Bool(attrAuthenticated, false))
		srv.challenge(w, span)
		return
	}
	span.SetAttributes(attribute.Bool(attrAuthenticated, true))
	if r.URL.Path == SubscriptionPath && websocket.IsWebSocketUpgrade(r) {
		srv.subscribe(w, r)
		return
	}
	srv.serveResource(w, r, span, string(body))
}

// # Description
//
// Check the session cookie or the Digest Authorization header. A new session is created and its
// cookies are set when the Authorization header is valid.
func (srv *DemoRobotWebServiceServer) authenticate(w http.ResponseWriter, r *http.Request, body []byte) bool {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		if _, ok := srv.sessions[cookie.Value]; ok {
			return true
		}
	}
	header := r.Header.Get("Authorization")
	if header == "" {
		return false
	}
	authorization, err := rwsdigest.ParseAuthorization(header)
	if err != nil {
		srv.logger.Debug("malformed authorization", zap.Error(err))
		return false
	}
	if _, ok := srv.nonces[authorization.Nonce]; !ok ||
		authorization.Username != srv.opts.Username ||
		authorization.Realm != srv.opts.Realm ||
		authorization.URI != r.URL.RequestURI() ||
		!rwsdigest.Verify(authorization, srv.opts.Password, r.Method, body) {
		srv.logger.Info("authentication refused", zap.String("username", authorization.Username), zap.String("uri", authorization.URI))
		return false
	}
	session := uuid.NewString()
	srv.sessions[session] = time.Now()
	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: session, Path: "/", HttpOnly: true})
	http.SetCookie(w, &http.Cookie{Name: SessionCounterCookie, Value: strconv.Itoa(len(srv.sessions)), Path: "/"})
	srv.logger.Info("session created", zap.String("username", authorization.Username), zap.String("session", session))
	return true
}

// Reply with a 401 and a new Digest challenge.
func (srv *DemoRobotWebServiceServer) challenge(w http.ResponseWriter, span trace.Span) {
	nonce := strings.ReplaceAll(uuid.NewString(), "-", "")
	srv.mu.Lock()
	srv.nonces[nonce] = struct{}{}
	srv.challenges++
	srv.mu.Unlock()
	challenge := rwsdigest.Challenge{
		Realm:     srv.opts.Realm,
		Nonce:     nonce,
		Opaque:    strings.ReplaceAll(uuid.NewString(), "-", ""),
		Algorithm: srv.opts.Algorithm,
	}
	if srv.opts.QOP != "" {
		challenge.QOP = []string{srv.opts.QOP}
	}
	w.Header().Set("WWW-Authenticate", challenge.String())
	srv.reply(w, span, http.StatusUnauthorized, "authentication required")
}

// Serve the in-memory resource designated by the request path.
func (srv *DemoRobotWebServiceServer) serveResource(w http.ResponseWriter, r *http.Request, span trace.Span, content string) {
	path := r.URL.Path
	srv.mu.Lock()
	defer srv.mu.Unlock()
	switch r.Method {
	case http.MethodGet:
		value, ok := srv.resources[path]
		if !ok {
			srv.reply(w, span, http.StatusNotFound, "resource not found")
			return
		}
		srv.reply(w, span, http.StatusOK, value)
	case http.MethodPost:
		_, exists := srv.resources[path]
		srv.resources[path] = content
		if exists {
			srv.reply(w, span, http.StatusNoContent, "")
		} else {
			srv.reply(w, span, http.StatusCreated, "")
		}
	case http.MethodPut:
		srv.resources[path] = content
		srv.reply(w, span, http.StatusNoContent, "")
	case http.MethodDelete:
		if _, ok := srv.resources[path]; !ok {
			srv.reply(w, span, http.StatusNotFound, "resource not found")
			return
		}
		delete(srv.resources, path)
		srv.reply(w, span, http.StatusNoContent, "")
	default:
		srv.reply(w, span, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// Write a plain text response.
func (srv *DemoRobotWebServiceServer) reply(w http.ResponseWriter, span trace.Span, status int, content string) {
	span.SetAttributes(attribute.Int(attrStatusCode, status))
	if status >= http.StatusBadRequest {
		span.SetStatus(codes.Error, http.StatusText(status))
	}
	if content != "" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	}
	w.WriteHeader(status)
	if content != "" {
		w.Write([]byte(content))
	}
}

/*************************************************************************************************/
/* WEBSOCKET SUBSCRIPTIONS                                                                       */
/*************************************************************************************************/

// Upgrade the connection and keep reading until the subscriber leaves.
func (srv *DemoRobotWebServiceServer) subscribe(w http.ResponseWriter, r *http.Request) {
	_, span := srv.tracer.Start(r.Context(), spanUpgrade, trace.WithSpanKind(trace.SpanKindServer))
	// The connection is hijacked: session cookies must be part of the handshake response
	header := http.Header{}
	for _, cookie := range w.Header().Values("Set-Cookie") {
		header.Add("Set-Cookie", cookie)
	}
	conn, err := srv.upgrader.Upgrade(w, r, header)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, codes.Error.String())
		span.End()
		srv.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	span.End()
	sub := &subscriber{id: uuid.NewString(), conn: conn}
	srv.mu.Lock()
	srv.subscribers[sub.id] = sub
	srv.mu.Unlock()
	srv.logger.Info("subscriber connected", zap.String("id", sub.id), zap.String("protocol", conn.Subprotocol()))
	defer func() {
		srv.mu.Lock()
		delete(srv.subscribers, sub.id)
		srv.mu.Unlock()
		conn.Close()
		srv.logger.Info("subscriber disconnected", zap.String("id", sub.id))
	}()
	// Reading processes control frames: close replies and pongs
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Run the provided function for each subscriber and return the number of successful calls.
func (srv *DemoRobotWebServiceServer) forEachSubscriber(f func(sub *subscriber) error) int {
	srv.mu.Lock()
	subs := make([]*subscriber, 0, len(srv.subscribers))
	for _, sub := range srv.subscribers {
		subs = append(subs, sub)
	}
	srv.mu.Unlock()
	count := 0
	for _, sub := range subs {
		sub.writeMu.Lock()
		err := f(sub)
		sub.writeMu.Unlock()
		if err != nil {
			srv.logger.Debug("failed to write to subscriber", zap.String("id", sub.id), zap.Error(err))
			continue
		}
		count++
	}
	return count
}

// # Description
//
// Send a message to all subscribers.
//
// # Inputs
//
//   - messageType: websocket.TextMessage or websocket.BinaryMessage
//   - payload: Message content. Large messages are fragmented by the underlying library.
//
// # Returns
//
// The number of subscribers the message has been sent to.
func (srv *DemoRobotWebServiceServer) Publish(messageType int, payload []byte) int {
	_, span := srv.tracer.Start(context.Background(), spanPublish, trace.WithSpanKind(trace.SpanKindServer))
	defer span.End()
	count := srv.forEachSubscriber(func(sub *subscriber) error {
		return sub.conn.WriteMessage(messageType, payload)
	})
	span.SetAttributes(attribute.Int(attrSubscriberCount, count))
	return count
}

// Send a ping with the provided payload to all subscribers.
func (srv *DemoRobotWebServiceServer) Ping(payload []byte) int {
	return srv.forEachSubscriber(func(sub *subscriber) error {
		return sub.conn.WriteControl(websocket.PingMessage, payload, time.Now().Add(time.Second))
	})
}

// # Description
//
// Send a close message with the provided code and reason to all subscribers. Subscribers are
// dropped once they reply.
func (srv *DemoRobotWebServiceServer) CloseSessions(code int, reason string) int {
	_, span := srv.tracer.Start(context.Background(), spanCloseSessions, trace.WithSpanKind(trace.SpanKindServer))
	defer span.End()
	count := srv.forEachSubscriber(func(sub *subscriber) error {
		return sub.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(time.Second))
	})
	span.SetAttributes(attribute.Int(attrSubscriberCount, count))
	return count
}

/*************************************************************************************************/
/* STATE                                                                                         */
/*************************************************************************************************/

// Return the number of challenges sent.
func (srv *DemoRobotWebServiceServer) ChallengeCount() int64 {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	return srv.challenges
}

// Return the number of active subscribers.
func (srv *DemoRobotWebServiceServer) SubscriberCount() int {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	return len(srv.subscribers)
}

// Return the content of a resource.
func (srv *DemoRobotWebServiceServer) Resource(path string) (string, bool) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	value, ok := srv.resources[path]
	return value, ok
}

// Set the content of a resource.
func (srv *DemoRobotWebServiceServer) SetResource(path string, content string) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	srv.resources[path] = content
}

// Drop all sessions: next requests will be challenged again.
func (srv *DemoRobotWebServiceServer) ResetSessions() {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	srv.sessions = map[string]time.Time{}
}
