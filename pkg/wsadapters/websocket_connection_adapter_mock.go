package wsadapters

import (
	"context"
	"net/http"
	"net/url"

	"github.com/stretchr/testify/mock"
)

// Mock for WebsocketConnectionAdapterInterface
type WebsocketConnectionAdapterInterfaceMock struct {
	mock.Mock
}

// Factory
func NewWebsocketConnectionAdapterInterfaceMock() *WebsocketConnectionAdapterInterfaceMock {
	return &WebsocketConnectionAdapterInterfaceMock{
		Mock: mock.Mock{},
	}
}

// Mocked Dial. First return value can be a nil *http.Response.
func (mock *WebsocketConnectionAdapterInterfaceMock) Dial(
	ctx context.Context,
	target url.URL,
	header http.Header,
	subprotocol string,
) (*http.Response, error) {
	args := mock.Called(ctx, target, header, subprotocol)
	resp, _ := args.Get(0).(*http.Response)
	return resp, args.Error(1)
}

// Mocked Close.
func (mock *WebsocketConnectionAdapterInterfaceMock) Close(ctx context.Context, code StatusCode, reason string) error {
	args := mock.Called(ctx, code, reason)
	return args.Error(0)
}

// Mocked ReadFrame.
func (mock *WebsocketConnectionAdapterInterfaceMock) ReadFrame(ctx context.Context, maxFrameSize int) (Frame, error) {
	args := mock.Called(ctx, maxFrameSize)
	return args.Get(0).(Frame), args.Error(1)
}

// Mocked GetUnderlyingWebsocketConnection.
func (mock *WebsocketConnectionAdapterInterfaceMock) GetUnderlyingWebsocketConnection() any {
	args := mock.Called()
	return args.Get(0)
}
