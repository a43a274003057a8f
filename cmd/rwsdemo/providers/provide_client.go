package providers

import (
	"context"
	"net"
	"strconv"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/gbdevw/gorwsclient/cmd/rwsdemo/configuration"
	"github.com/gbdevw/gorwsclient/pkg/demorwsserver"
	"github.com/gbdevw/gorwsclient/pkg/rwsclient"
)

// Provide a robot web service client which targets the demo server. The client is closed on stop.
func ProvideClient(
	lc fx.Lifecycle,
	config configuration.Configuration,
	tracerProvider trace.TracerProvider,
	logger *zap.Logger,
) (*rwsclient.Client, error) {
	host, rawPort, err := net.SplitHostPort(config.ListenAddress)
	if err != nil {
		return nil, err
	}
	port, err := strconv.Atoi(rawPort)
	if err != nil {
		return nil, err
	}
	opts := rwsclient.NewClientConfigurationOptions().
		WithHost(host).
		WithPort(port).
		WithCredentials(demorwsserver.DefaultUsername, demorwsserver.DefaultPassword).
		WithWebsocketLibrary(config.WebsocketLibrary)
	client, err := rwsclient.NewClient(opts, tracerProvider, nil, logger.Named("client"))
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Close(ctx)
		},
	})
	return client, nil
}
