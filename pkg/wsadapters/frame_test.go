package wsadapters

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/gbdevw/gorwsclient/pkg/rwsresult"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

/*************************************************************************************************/
/* TEST SUITE                                                                                    */
/*************************************************************************************************/

type FrameTestSuite struct {
	suite.Suite
}

// Run FrameTestSuite test suite
func TestFrameTestSuite(t *testing.T) {
	suite.Run(t, new(FrameTestSuite))
}

// Reader which fails after having returned its content
type failingReader struct {
	content io.Reader
	err     error
}

func (r *failingReader) Read(p []byte) (int, error) {
	n, err := r.content.Read(p)
	if err == io.EOF {
		return n, r.err
	}
	return n, err
}

/*************************************************************************************************/
/* TESTS                                                                                         */
/*************************************************************************************************/

// Test accumulation of messages up to, at and above the maximum frame size
func (suite *FrameTestSuite) TestAccumulate() {
	acc := NewFrameAccumulator(8)
	state, err := acc.Accumulate(strings.NewReader("hello"))
	require.NoError(suite.T(), err)
	require.Equal(suite.T(), rwsresult.FrameComplete, state)
	require.Equal(suite.T(), []byte("hello"), acc.Bytes())
	// Exactly the maximum
	state, err = acc.Accumulate(strings.NewReader("12345678"))
	require.NoError(suite.T(), err)
	require.Equal(suite.T(), rwsresult.FrameComplete, state)
	require.Equal(suite.T(), []byte("12345678"), acc.Bytes())
	// One byte more than the maximum
	r := strings.NewReader("123456789abc")
	state, err = acc.Accumulate(r)
	require.NoError(suite.T(), err)
	require.Equal(suite.T(), rwsresult.FrameTooLarge, state)
	require.Equal(suite.T(), []byte("12345678"), acc.Bytes())
	// Rest of the message is left in the reader
	rest, err := io.ReadAll(r)
	require.NoError(suite.T(), err)
	require.Equal(suite.T(), "abc", string(rest))
	// Empty message
	state, err = acc.Accumulate(bytes.NewReader(nil))
	require.NoError(suite.T(), err)
	require.Equal(suite.T(), rwsresult.FrameComplete, state)
	require.Empty(suite.T(), acc.Bytes())
}

// Test a read failure results in an incomplete frame with partial content
func (suite *FrameTestSuite) TestAccumulateFailure() {
	expected := errors.New("boom")
	acc := NewFrameAccumulator(1024)
	state, err := acc.Accumulate(&failingReader{content: strings.NewReader("part"), err: expected})
	require.ErrorIs(suite.T(), err, expected)
	require.Equal(suite.T(), rwsresult.FrameIncomplete, state)
	require.Equal(suite.T(), []byte("part"), acc.Bytes())
}

// Test maximum frame size is at least one byte
func (suite *FrameTestSuite) TestAccumulatorMinimumSize() {
	acc := NewFrameAccumulator(0)
	state, err := acc.Accumulate(strings.NewReader("ab"))
	require.NoError(suite.T(), err)
	require.Equal(suite.T(), rwsresult.FrameTooLarge, state)
	require.Equal(suite.T(), []byte("a"), acc.Bytes())
}

// Test close frames payload
func (suite *FrameTestSuite) TestNewCloseFrame() {
	frame := NewCloseFrame(NormalClosure, "bye")
	require.Equal(suite.T(), rwsresult.FlagFin|rwsresult.OpClose, frame.Flags)
	require.Equal(suite.T(), []byte{0x03, 0xE8, 'b', 'y', 'e'}, frame.Payload)
	require.Equal(suite.T(), rwsresult.FrameComplete, frame.State)
	require.Empty(suite.T(), NewCloseFrame(NoStatusReceived, "").Payload)
	require.Empty(suite.T(), NewCloseFrame(AbnormalClosure, "lost").Payload)
}

// Test control frame queue ordering and capacity
func (suite *FrameTestSuite) TestControlFrameQueue() {
	queue := ControlFrameQueue{}
	_, ok := queue.Pop()
	require.False(suite.T(), ok)
	for i := 0; i < controlQueueCapacity+2; i++ {
		queue.Push(Frame{Flags: rwsresult.FlagFin | rwsresult.OpPing, Payload: []byte{byte(i)}})
	}
	// Two oldest frames have been dropped
	frame, ok := queue.Pop()
	require.True(suite.T(), ok)
	require.Equal(suite.T(), []byte{2}, frame.Payload)
	queue.Reset()
	_, ok = queue.Pop()
	require.False(suite.T(), ok)
}

// Test close error message and unwrapping
func (suite *FrameTestSuite) TestWebsocketCloseError() {
	inner := errors.New("inner")
	err := WebsocketCloseError{Code: GoingAway, Reason: "later", Err: inner}
	require.Equal(suite.T(), "websocket closed with status 1001: later", err.Error())
	require.ErrorIs(suite.T(), err, inner)
	require.Equal(suite.T(), "websocket closed with status 1005", WebsocketCloseError{Code: NoStatusReceived}.Error())
}
