package wsadapters

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gbdevw/gorwsclient/pkg/rwsresult"
)

var (
	_ WebsocketConnectionAdapterInterface = (*WebsocketConnectionAdapterInterfaceMock)(nil)
	_ WebsocketConnectionAdapterInterface = (*WebsocketConnectionAdapterInstrumentationDecorator)(nil)
)

// A failed dial may come without handshake response.
func TestMockDialWithoutResponse(t *testing.T) {
	adapter := NewWebsocketConnectionAdapterInterfaceMock()
	adapter.On("Dial", mock.Anything, mock.Anything, mock.Anything, "rws").Return(nil, errors.New("refused"))
	resp, err := adapter.Dial(context.Background(), url.URL{Scheme: "ws", Host: "localhost"}, http.Header{}, "rws")
	require.Nil(t, resp)
	require.EqualError(t, err, "refused")
	adapter.AssertExpectations(t)
}

// A partial frame is returned along with the read error.
func TestMockReadPartialFrame(t *testing.T) {
	adapter := NewWebsocketConnectionAdapterInterfaceMock()
	partial := Frame{Flags: rwsresult.OpText, Payload: []byte("par"), State: rwsresult.FrameIncomplete}
	adapter.On("ReadFrame", mock.Anything, 8).Return(partial, WebsocketCloseError{Code: AbnormalClosure})
	frame, err := adapter.ReadFrame(context.Background(), 8)
	require.Equal(t, partial, frame)
	require.ErrorAs(t, err, new(WebsocketCloseError))
}
