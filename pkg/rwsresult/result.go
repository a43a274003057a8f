package rwsresult

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

/*************************************************************************************************/
/* RESULT INTERFACE                                                                              */
/*************************************************************************************************/

// Interface shared by the two result kinds: HTTPResult and WebSocketResult.
type Result interface {
	// Return the status envelope shared by all results.
	Envelope() Outcome
	// Return the human readable name of the general status.
	StatusText() string
	// Return a text representation of the result. See Render for details.
	Render(verbose bool, indent int) string
	// Return the non-verbose text representation of the result.
	String() string
}

/*************************************************************************************************/
/* OUTCOME                                                                                       */
/*************************************************************************************************/

// Status envelope shared by HTTP and WebSocket results.
type Outcome struct {
	// General status of the communication.
	Status GeneralStatus
	// Text of the error which caused the failure. Always empty when Status is Ok.
	ExceptionMessage string
}

// Return the envelope.
func (outcome Outcome) Envelope() Outcome {
	return outcome
}

// Return the human readable name of the general status.
func (outcome Outcome) StatusText() string {
	return outcome.Status.String()
}

// Set the status to Ok and clear any exception message.
func (outcome *Outcome) Succeed() {
	outcome.Status = Ok
	outcome.ExceptionMessage = ""
}

// # Description
//
// Set a failure status and the exception message derived from the provided error. If Ok is
// provided as status, the outcome is reset to Ok and the error is ignored so an Ok outcome never
// carries an exception message.
func (outcome *Outcome) Fail(status GeneralStatus, err error) {
	if status == Ok {
		outcome.Succeed()
		return
	}
	outcome.Status = status
	if err != nil {
		outcome.ExceptionMessage = err.Error()
	} else {
		outcome.ExceptionMessage = ""
	}
}

/*************************************************************************************************/
/* HTTP RESULT                                                                                   */
/*************************************************************************************************/

// Info about a HTTP request.
type HTTPRequestInfo struct {
	// Method used for the request.
	Method string
	// URI (path and query) used for the request.
	URI string
	// Content used for the request.
	Content string
}

// Info about a HTTP response.
type HTTPResponseInfo struct {
	// Response status code. 0 if no response has been received.
	StatusCode int
	// Response reason phrase.
	Reason string
	// Response headers, one "Name: value" per line.
	HeaderText string
	// Response content.
	BodyText string
}

// Result of a HTTP exchange. This includes plain requests and WebSocket upgrade handshakes.
type HTTPResult struct {
	Outcome
	// Info about the request which has been sent.
	Request HTTPRequestInfo
	// Info about the last response which has been received.
	Response HTTPResponseInfo
}

// Record info about the request.
func (result *HTTPResult) RecordRequest(method string, uri string, content string) {
	result.Request = HTTPRequestInfo{
		Method:  method,
		URI:     uri,
		Content: content,
	}
}

// # Description
//
// Record info about the response. The response body must already have been consumed by the
// caller and is provided as body. A nil response is ignored.
func (result *HTTPResult) RecordResponse(response *http.Response, body string) {
	if response == nil {
		return
	}
	headers := new(bytes.Buffer)
	// Header.Write only fails if the underlying writer fails
	_ = response.Header.Write(headers)
	result.Response = HTTPResponseInfo{
		StatusCode: response.StatusCode,
		Reason:     reasonPhrase(response),
		HeaderText: headers.String(),
		BodyText:   body,
	}
}

// Return the reason phrase sent by the server or the standard one if the status line has none.
func reasonPhrase(response *http.Response) string {
	reason := strings.TrimPrefix(response.Status, strconv.Itoa(response.StatusCode))
	if reason = strings.TrimSpace(reason); reason != "" {
		return reason
	}
	return http.StatusText(response.StatusCode)
}

// # Description
//
// Build a text representation of the result.
//
// # Inputs
//
//   - verbose: If false, a single summary line is produced. If true, one field per line is
//     produced, including request content, response headers and response content.
//   - indent: Number of spaces used to indent each line of the verbose form.
//
// # Returns
//
// The text representation. Missing fields are rendered empty.
func (result HTTPResult) Render(verbose bool, indent int) string {
	r := newRenderer(verbose, indent)
	r.field("General status", result.StatusText())
	if result.ExceptionMessage != "" {
		r.field("Exception message", result.ExceptionMessage)
	}
	if result.Request.Method != "" || result.Request.URI != "" {
		r.field("HTTP request", fmt.Sprintf("%s %s", result.Request.Method, result.Request.URI))
		r.block("HTTP request content", result.Request.Content)
	}
	if result.Response.StatusCode != 0 {
		r.field("HTTP response", fmt.Sprintf("%d %s", result.Response.StatusCode, result.Response.Reason))
		r.block("HTTP response header", result.Response.HeaderText)
		r.block("HTTP response content", result.Response.BodyText)
	}
	return r.String()
}

// Return the non-verbose text representation.
func (result HTTPResult) String() string {
	return result.Render(false, 0)
}

/*************************************************************************************************/
/* WEBSOCKET RESULT                                                                              */
/*************************************************************************************************/

// Info about a received WebSocket frame.
type WebSocketFrameInfo struct {
	// Frame flags: FIN bit and opcode as in the first byte of a RFC6455 frame header.
	Flags int
	// Frame content.
	FrameContent string
	// Frame assembly outcome.
	State FrameState
}

// Map the frame opcode to a human readable name.
func (info WebSocketFrameInfo) OpcodeText() string {
	return OpcodeText(info.Flags)
}

// Returns true if the FIN bit is set.
func (info WebSocketFrameInfo) Final() bool {
	return info.Flags&FlagFin != 0
}

// Result of a WebSocket frame reception.
type WebSocketResult struct {
	Outcome
	// Info about the received frame.
	Frame WebSocketFrameInfo
}

// Record info about a received frame.
func (result *WebSocketResult) RecordFrame(flags int, content string, state FrameState) {
	result.Frame = WebSocketFrameInfo{
		Flags:        flags,
		FrameContent: content,
		State:        state,
	}
}

// Map the opcode of the received frame to a human readable name.
func (result WebSocketResult) OpcodeText() string {
	return result.Frame.OpcodeText()
}

// # Description
//
// Build a text representation of the result.
//
// # Inputs
//
//   - verbose: If false, a single summary line is produced. If true, one field per line is
//     produced, including the frame content.
//   - indent: Number of spaces used to indent each line of the verbose form.
//
// # Returns
//
// The text representation. Missing fields are rendered empty.
func (result WebSocketResult) Render(verbose bool, indent int) string {
	r := newRenderer(verbose, indent)
	r.field("General status", result.StatusText())
	if result.ExceptionMessage != "" {
		r.field("Exception message", result.ExceptionMessage)
	}
	if result.Status != NoSocket && result.Status != Unknown {
		r.field("WebSocket frame", fmt.Sprintf("%s (%s)", result.OpcodeText(), result.Frame.State))
		if verbose {
			r.field("WebSocket flags", fmt.Sprintf("0x%02X", result.Frame.Flags))
		}
		r.block("WebSocket frame content", result.Frame.FrameContent)
	}
	return r.String()
}

// Return the non-verbose text representation.
func (result WebSocketResult) String() string {
	return result.Render(false, 0)
}
