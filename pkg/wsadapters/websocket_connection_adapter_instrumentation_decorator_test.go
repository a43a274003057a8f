package wsadapters

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/gbdevw/gorwsclient/pkg/rwsresult"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.opentelemetry.io/otel/trace"
)

/*************************************************************************************************/
/* TEST SUITE                                                                                    */
/*************************************************************************************************/

type InstrumentationDecoratorTestSuite struct {
	suite.Suite
}

// Run InstrumentationDecoratorTestSuite test suite
func TestInstrumentationDecoratorTestSuite(t *testing.T) {
	suite.Run(t, new(InstrumentationDecoratorTestSuite))
}

/*************************************************************************************************/
/* TESTS                                                                                         */
/*************************************************************************************************/

// Test the decorator forwards calls and results to the decorated adapter
func (suite *InstrumentationDecoratorTestSuite) TestForwarding() {
	adapter := NewWebsocketConnectionAdapterInterfaceMock()
	decorator := NewWebsocketConnectionAdapterInstrumentationDecorator(adapter, trace.NewNoopTracerProvider())
	target, err := url.Parse("ws://localhost/ws")
	require.NoError(suite.T(), err)
	header := http.Header{"Cookie": []string{"a=b"}}
	resp := &http.Response{StatusCode: http.StatusSwitchingProtocols, Body: http.NoBody}
	frame := Frame{Flags: rwsresult.FlagFin | rwsresult.OpText, Payload: []byte("hi"), State: rwsresult.FrameComplete}
	readErr := errors.New("read failed")
	adapter.On("Dial", mock.Anything, *target, header, "proto").Return(resp, nil)
	adapter.On("ReadFrame", mock.Anything, 1024).Return(frame, nil).Once()
	adapter.On("ReadFrame", mock.Anything, 1024).Return(Frame{}, readErr).Once()
	adapter.On("Close", mock.Anything, NormalClosure, "bye").Return(nil)
	adapter.On("GetUnderlyingWebsocketConnection").Return("conn")
	// Dial
	actualResp, err := decorator.Dial(context.Background(), *target, header, "proto")
	require.NoError(suite.T(), err)
	require.Equal(suite.T(), resp, actualResp)
	// ReadFrame success then failure
	actualFrame, err := decorator.ReadFrame(context.Background(), 1024)
	require.NoError(suite.T(), err)
	require.Equal(suite.T(), frame, actualFrame)
	_, err = decorator.ReadFrame(context.Background(), 1024)
	require.ErrorIs(suite.T(), err, readErr)
	// Close
	require.NoError(suite.T(), decorator.Close(context.Background(), NormalClosure, "bye"))
	require.Equal(suite.T(), "conn", decorator.GetUnderlyingWebsocketConnection())
	adapter.AssertExpectations(suite.T())
}

// Test the decorator forwards a failed handshake response and error
func (suite *InstrumentationDecoratorTestSuite) TestDialFailure() {
	adapter := NewWebsocketConnectionAdapterInterfaceMock()
	decorator := NewWebsocketConnectionAdapterInstrumentationDecorator(adapter, nil)
	resp := &http.Response{StatusCode: http.StatusUnauthorized, Body: http.NoBody}
	dialErr := errors.New("bad handshake")
	adapter.On("Dial", mock.Anything, mock.Anything, mock.Anything, "").Return(resp, dialErr)
	actualResp, err := decorator.Dial(context.Background(), url.URL{Scheme: "ws", Host: "localhost"}, nil, "")
	require.ErrorIs(suite.T(), err, dialErr)
	require.Equal(suite.T(), http.StatusUnauthorized, actualResp.StatusCode)
}
