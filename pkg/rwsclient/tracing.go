package rwsclient

// Constants used for tracing and metrics purpose.
const (
	// Package name used by library tracer and meter
	pkgName = "gorwsclient.rwsclient"
	// Package version
	pkgVersion = "0.0.0"

	// Namespace used by spans, metrics and attributes
	namespace = "rwsclient"

	// Name of span used to trace the client shutdown
	spanClose = namespace + ".close"

	// Counter of HTTP exchanges (requests and upgrade handshakes)
	metricHTTPRequests = namespace + ".http.requests"
	// Counter of WebSocket frame receptions
	metricWebsocketFrames = namespace + ".websocket.frames"
	// Histogram of HTTP exchange durations
	metricHTTPDuration = namespace + ".http.duration"

	// Attribute used to store the general status of a result
	attrStatus = "status"
	// Attribute used to store the request method
	attrMethod = "method"
	// Attribute used to store the operation name
	attrOperation = "operation"
	// Attribute used to store the received frame opcode
	attrOpcode = "opcode"
)
