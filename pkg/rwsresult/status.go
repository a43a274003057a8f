// Package rwsresult defines the result model returned by every operation of the robot web
// service transport: a shared status envelope plus either HTTP or WebSocket diagnostic info.
package rwsresult

/*************************************************************************************************/
/* GENERAL STATUS                                                                                */
/*************************************************************************************************/

// General status of a communication. The set is exhaustive: every low-level outcome of an HTTP
// or WebSocket operation maps onto exactly one of these values.
type GeneralStatus int

const (
	// Default status: the operation has not been executed.
	Unknown GeneralStatus = iota
	// The exchange has completed. For HTTP, this holds whatever the response status code is.
	Ok
	// A WebSocket operation was requested while no WebSocket connection exists.
	NoSocket
	// A timeout has occured while waiting on network I/O.
	TimeoutFailure
	// The connection could not be established or used.
	TransportFailure
	// The exchange occured but the expected message structure could not be honored.
	ProtocolFailure
)

// Text used for values outside of the GeneralStatus range.
const unrecognized = "UNRECOGNIZED"

// # Description
//
// Map the general status to a human readable name. The mapping is total: values outside of the
// enum range are mapped to "UNRECOGNIZED".
func (status GeneralStatus) String() string {
	switch status {
	case Unknown:
		return "UNKNOWN"
	case Ok:
		return "OK"
	case NoSocket:
		return "NO_SOCKET"
	case TimeoutFailure:
		return "TIMEOUT_FAILURE"
	case TransportFailure:
		return "TRANSPORT_FAILURE"
	case ProtocolFailure:
		return "PROTOCOL_FAILURE"
	default:
		return unrecognized
	}
}

// Returns true if the status denotes a failure.
func (status GeneralStatus) IsFailure() bool {
	return status == NoSocket ||
		status == TimeoutFailure ||
		status == TransportFailure ||
		status == ProtocolFailure
}

/*************************************************************************************************/
/* WEBSOCKET FRAME OPCODES                                                                       */
/*************************************************************************************************/

// RFC6455 frame opcodes and flag masks as they appear in the first byte of a frame header.
//
// https://datatracker.ietf.org/doc/html/rfc6455#section-5.2
const (
	// Bit set on the final fragment of a message.
	FlagFin = 0x80
	// Mask used to extract the opcode from frame flags.
	OpcodeMask = 0x0F

	OpContinuation = 0x0
	OpText         = 0x1
	OpBinary       = 0x2
	OpClose        = 0x8
	OpPing         = 0x9
	OpPong         = 0xA
)

// # Description
//
// Map the opcode carried by frame flags to a human readable name. The mapping is total: reserved
// opcodes are mapped to "UNKNOWN".
func OpcodeText(flags int) string {
	switch flags & OpcodeMask {
	case OpContinuation:
		return "CONTINUATION"
	case OpText:
		return "TEXT"
	case OpBinary:
		return "BINARY"
	case OpClose:
		return "CLOSE"
	case OpPing:
		return "PING"
	case OpPong:
		return "PONG"
	default:
		return "UNKNOWN"
	}
}

/*************************************************************************************************/
/* FRAME STATE                                                                                   */
/*************************************************************************************************/

// Outcome of the assembly of a received WebSocket frame.
type FrameState int

const (
	// The frame could not be fully read (connection failure, timeout, ...).
	FrameIncomplete FrameState = iota
	// The frame has been fully read.
	FrameComplete
	// The frame exceeds the maximum frame size. Content has been truncated to the limit.
	FrameTooLarge
)

func (state FrameState) String() string {
	switch state {
	case FrameIncomplete:
		return "INCOMPLETE"
	case FrameComplete:
		return "COMPLETE"
	case FrameTooLarge:
		return "TOO_LARGE"
	default:
		return unrecognized
	}
}
