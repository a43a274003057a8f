package rwstransport

import (
	"fmt"

	"go.opentelemetry.io/otel/trace"

	"github.com/gbdevw/gorwsclient/pkg/wsadapters"
	wsadaptergorilla "github.com/gbdevw/gorwsclient/pkg/wsadapters/gorilla"
	wsadapternhooyr "github.com/gbdevw/gorwsclient/pkg/wsadapters/nhooyr"
)

// Supported websocket libraries
const (
	// gorilla/websocket
	LibraryGorilla = "gorilla"
	// nhooyr.io/websocket
	LibraryNhooyr = "nhooyr"
)

// # Description
//
// Build a factory which creates instrumented adapters for the provided websocket library.
//
// # Inputs
//
//   - library: LibraryGorilla or LibraryNhooyr. Empty string selects LibraryGorilla.
//   - tracerProvider: Tracer provider used by the adapter instrumentation decorator. Can be nil.
//
// # Returns
//
// The adapter factory or an error if the library is not supported.
func NewAdapterFactory(library string, tracerProvider trace.TracerProvider) (wsadapters.AdapterFactory, error) {
	switch library {
	case "", LibraryGorilla:
		return func() wsadapters.WebsocketConnectionAdapterInterface {
			return wsadapters.NewWebsocketConnectionAdapterInstrumentationDecorator(
				wsadaptergorilla.NewGorillaWebsocketConnectionAdapter(nil),
				tracerProvider)
		}, nil
	case LibraryNhooyr:
		return func() wsadapters.WebsocketConnectionAdapterInterface {
			return wsadapters.NewWebsocketConnectionAdapterInstrumentationDecorator(
				wsadapternhooyr.NewNhooyrWebsocketConnectionAdapter(nil),
				tracerProvider)
		}, nil
	default:
		return nil, fmt.Errorf("unsupported websocket library: %q", library)
	}
}
