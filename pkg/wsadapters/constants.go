package wsadapters

/*************************************************************************************************/
/* WEBSOCKET RELATED CONSTANTS                                                                   */
/*************************************************************************************************/

// Constants for RFC6455 defined close status codes
//
// RFC: https://www.rfc-editor.org/rfc/rfc6455.html#section-7.4.1
type StatusCode int

const (
	// 1000 indicates a normal closure.
	NormalClosure StatusCode = 1000
	// 1001 indicates that an endpoint is "going away".
	GoingAway StatusCode = 1001
	// 1002 indicates a protocol error.
	ProtocolError StatusCode = 1002
	// 1003 indicates an endpoint received a type of data it cannot accept.
	UnsupportedData StatusCode = 1003
	// 1005 indicates that no status code was actually present. MUST NOT be sent.
	NoStatusReceived StatusCode = 1005
	// 1006 indicates the connection was closed abnormally, without close message. MUST NOT be sent.
	AbnormalClosure StatusCode = 1006
	// 1008 indicates an endpoint received a message that violates its policy.
	PolicyViolation StatusCode = 1008
	// 1009 indicates an endpoint received a message that is too big for it to process.
	MessageTooBig StatusCode = 1009
	// 1011 indicates the server encountered an unexpected condition.
	InternalError StatusCode = 1011
)
