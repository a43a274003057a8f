package wsadapters

// Constants used for tracing purpose
const (
	// Instrumentation library package name
	pkgName = "gorwsclient.wsadapters"
	// Instrumentation library package version
	pkgVersion = "0.0.0"
	// Prefix of span, event and attribute names
	namespace = "websocket"

	// Upgrade handshake
	spanDial = namespace + ".dial"
	// Close handshake
	spanClose = namespace + ".close"
	// Frame read
	spanReadFrame = namespace + ".read_frame"

	// The server answered the handshake with a 401
	eventChallenged = namespace + ".challenged"
	// A frame has been read
	eventReceived = namespace + ".frame.received"

	attrUrl             = "url.full"
	attrHandshakeStatus = "http.response.status_code"
	attrSubprotocol     = namespace + ".subprotocol"
	// Whether the handshake carries an Authorization header
	attrAuthorized    = namespace + ".authorized"
	attrCloseCode     = namespace + ".close.code"
	attrCloseReason   = namespace + ".close.reason"
	attrFrameOpcode   = namespace + ".frame.opcode"
	attrFrameByteSize = namespace + ".frame.size"
	attrFrameState    = namespace + ".frame.state"
	attrMaxFrameSize  = namespace + ".frame.max_size"
)
