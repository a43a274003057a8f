package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/gbdevw/gorwsclient/cmd/rwsdemo/configuration"
	"github.com/gbdevw/gorwsclient/pkg/demorwsserver"
	"github.com/gbdevw/gorwsclient/pkg/rwsclient"
	"github.com/gbdevw/gorwsclient/pkg/rwsresult"
)

// Resource used by the scenario
const ctrlStatePath = "/rw/panel/ctrlstate"

// # Description
//
// Register a start hook which runs the demo scenario in a separate goroutine and shuts the
// application down once done:
//   - read a resource (Digest challenge then session cookie)
//   - update the resource
//   - subscribe and receive events published by the demo server
//   - close the subscription
func RunScenario(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	config configuration.Configuration,
	srv *demorwsserver.DemoRobotWebServiceServer,
	client *rwsclient.Client,
	logger *zap.Logger,
) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				if err := scenario(ctx, config, srv, client, logger.Named("scenario")); err != nil {
					logger.Error("scenario failed", zap.Error(err))
					shutdowner.Shutdown(fx.ExitCode(1))
					return
				}
				shutdowner.Shutdown()
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
}

func scenario(
	ctx context.Context,
	config configuration.Configuration,
	srv *demorwsserver.DemoRobotWebServiceServer,
	client *rwsclient.Client,
	logger *zap.Logger,
) error {
	srv.SetResource(ctrlStatePath, `<span class="ctrlstate">motoroff</span>`)
	// Read and update the resource
	result := client.HTTPGet(ctx, ctrlStatePath)
	logger.Info("read controller state", zap.String("result", result.Render(true, 2)))
	if result.Status != rwsresult.Ok {
		return fmt.Errorf("failed to read controller state: %s", result.ExceptionMessage)
	}
	logger.Info("controller state", zap.String("state",
		client.FindSubstringContent(result.Response.BodyText, `class="ctrlstate">`, "<")))
	result = client.HTTPPut(ctx, ctrlStatePath, `<span class="ctrlstate">motoron</span>`)
	logger.Info("update controller state", zap.String("result", result.Render(false, 0)))
	// Subscribe to events
	client.UseExtendedTimeout()
	defer client.UseDefaultTimeout()
	result = client.WebsocketConnect(ctx, demorwsserver.SubscriptionPath, demorwsserver.DefaultSubprotocol)
	logger.Info("subscription", zap.String("result", result.Render(true, 2)))
	if result.Status != rwsresult.Ok {
		return fmt.Errorf("failed to subscribe: %s", result.ExceptionMessage)
	}
	go publish(ctx, srv, config.EventCount)
	for i := 0; i < config.EventCount; i++ {
		frame := client.WebsocketReceiveFrame(ctx)
		logger.Info("event", zap.String("result", frame.Render(true, 2)))
		if frame.Status != rwsresult.Ok {
			return fmt.Errorf("failed to receive event: %s", frame.ExceptionMessage)
		}
	}
	return client.WebsocketClose(ctx)
}

// Publish events until the expected count is reached or the context is canceled.
func publish(ctx context.Context, srv *demorwsserver.DemoRobotWebServiceServer, count int) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for sent := 0; sent < count; {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			event := fmt.Sprintf(`<li class="pnl-ctrlstate-ev"><span class="ctrlstate">event-%d</span></li>`, sent)
			sent += srv.Publish(websocket.TextMessage, []byte(event))
		}
	}
}
