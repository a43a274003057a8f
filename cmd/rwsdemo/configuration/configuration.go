package configuration

import (
	"os"
	"strconv"
)

type Configuration struct {
	// Address the demo robot web service listens on
	ListenAddress string
	// Websocket library used by the client: gorilla or nhooyr
	WebsocketLibrary string
	// Number of events published and received by the scenario
	EventCount int
	// Indicates whether tracing is enabled or not
	TracingEnabled string
	// Endpoint of the OTLP/HTTP tracing backend
	TracingEndpoint string
}

func LoadConfiguration() Configuration {
	config := Configuration{
		ListenAddress:    os.Getenv("RWSDEMO_LISTEN_ADDRESS"),
		WebsocketLibrary: os.Getenv("RWSDEMO_WEBSOCKET_LIBRARY"),
		TracingEnabled:   os.Getenv("RWSDEMO_TRACING_ENABLED"),
		TracingEndpoint:  os.Getenv("RWSDEMO_TRACING_OTLP_ENDPOINT"),
		EventCount:       5,
	}
	if config.ListenAddress == "" {
		config.ListenAddress = "127.0.0.1:8090"
	}
	if config.WebsocketLibrary == "" {
		config.WebsocketLibrary = "gorilla"
	}
	if count, err := strconv.Atoi(os.Getenv("RWSDEMO_EVENT_COUNT")); err == nil && count > 0 {
		config.EventCount = count
	}
	return config
}
