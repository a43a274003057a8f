package providers

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/gbdevw/gorwsclient/cmd/rwsdemo/configuration"
	"github.com/gbdevw/gorwsclient/pkg/demorwsserver"
)

// Provide the demo robot web service and register start/stop hooks to start/stop the server
func ProvideDemoServer(
	lc fx.Lifecycle,
	config configuration.Configuration,
	tracerProvider trace.TracerProvider,
	logger *zap.Logger,
) (*demorwsserver.DemoRobotWebServiceServer, error) {
	srv, err := demorwsserver.NewDemoRobotWebServiceServer(
		demorwsserver.NewDefaultOptions(),
		&http.Server{Addr: config.ListenAddress},
		tracerProvider,
		nil,
		logger.Named("server"))
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return srv.Start()
		},
		OnStop: func(ctx context.Context) error {
			return srv.Stop(ctx)
		},
	})
	return srv, nil
}
