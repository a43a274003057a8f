package main

import (
	"go.uber.org/fx"

	"github.com/gbdevw/gorwsclient/cmd/rwsdemo/configuration"
	"github.com/gbdevw/gorwsclient/cmd/rwsdemo/providers"
)

func main() {
	fx.New(
		fx.Provide(configuration.LoadConfiguration),
		fx.Provide(providers.ProvideLogger),
		fx.Provide(providers.ProvideTracerProvider),
		fx.Provide(providers.ProvideDemoServer),
		fx.Provide(providers.ProvideClient),
		// Use invoke to force dependencies to be instantiated and hooks to be registered. The
		// scenario requires the server first so it starts before and stops after the client.
		fx.Invoke(providers.RunScenario),
	).Run()
}
