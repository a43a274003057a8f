package wsadapters

import (
	"bytes"
	"encoding/binary"
	"io"
	"sync"

	"github.com/gbdevw/gorwsclient/pkg/rwsresult"
)

// A frame received from the websocket server.
type Frame struct {
	// FIN bit and opcode, as in the first byte of a RFC6455 frame header.
	Flags int
	// Frame content
	Payload []byte
	// Assembly outcome
	State rwsresult.FrameState
}

// Build a close frame from a close status code and reason.
func NewCloseFrame(code StatusCode, reason string) Frame {
	payload := []byte{}
	if code != NoStatusReceived && code != AbnormalClosure {
		payload = binary.BigEndian.AppendUint16(payload, uint16(code))
		payload = append(payload, reason...)
	}
	return Frame{
		Flags:   rwsresult.FlagFin | rwsresult.OpClose,
		Payload: payload,
		State:   rwsresult.FrameComplete,
	}
}

/*************************************************************************************************/
/* FRAME ACCUMULATOR                                                                             */
/*************************************************************************************************/

// Growable byte accumulator bounded by a maximum frame size.
type FrameAccumulator struct {
	max int
	buf bytes.Buffer
}

// Factory which creates a FrameAccumulator. A maximum lower than 1 is raised to 1.
func NewFrameAccumulator(maxFrameSize int) *FrameAccumulator {
	if maxFrameSize < 1 {
		maxFrameSize = 1
	}
	return &FrameAccumulator{max: maxFrameSize}
}

// # Description
//
// Read the provided message reader until EOF or until the maximum frame size is exceeded. Bytes
// read so far are kept in all cases and can be retrieved with Bytes.
//
// # Returns
//
//   - FrameComplete and nil if the whole message fits in the accumulator.
//   - FrameTooLarge and nil if the message exceeds the maximum frame size. Content is truncated
//     and the rest of the message is left unread in the reader.
//   - FrameIncomplete and the read error otherwise.
func (acc *FrameAccumulator) Accumulate(r io.Reader) (rwsresult.FrameState, error) {
	acc.buf.Reset()
	n, err := acc.buf.ReadFrom(io.LimitReader(r, int64(acc.max)+1))
	if n > int64(acc.max) {
		acc.buf.Truncate(acc.max)
		return rwsresult.FrameTooLarge, nil
	}
	if err != nil {
		return rwsresult.FrameIncomplete, err
	}
	return rwsresult.FrameComplete, nil
}

// Return a copy of the accumulated bytes.
func (acc *FrameAccumulator) Bytes() []byte {
	return bytes.Clone(acc.buf.Bytes())
}

/*************************************************************************************************/
/* CONTROL FRAME QUEUE                                                                           */
/*************************************************************************************************/

// Maximum number of control frames retained until they are read
const controlQueueCapacity = 16

// Bounded FIFO used by adapters to report control frames (ping/pong) observed by the underlying
// library while waiting for a data message. Oldest frames are dropped when the queue is full.
type ControlFrameQueue struct {
	frames []Frame
	mu     sync.Mutex
}

// Add a frame to the queue.
func (queue *ControlFrameQueue) Push(frame Frame) {
	queue.mu.Lock()
	defer queue.mu.Unlock()
	if len(queue.frames) >= controlQueueCapacity {
		queue.frames = queue.frames[1:]
	}
	queue.frames = append(queue.frames, frame)
}

// Remove and return the oldest frame if any.
func (queue *ControlFrameQueue) Pop() (Frame, bool) {
	queue.mu.Lock()
	defer queue.mu.Unlock()
	if len(queue.frames) == 0 {
		return Frame{}, false
	}
	frame := queue.frames[0]
	queue.frames = queue.frames[1:]
	return frame, true
}

// Drop all frames.
func (queue *ControlFrameQueue) Reset() {
	queue.mu.Lock()
	defer queue.mu.Unlock()
	queue.frames = nil
}
