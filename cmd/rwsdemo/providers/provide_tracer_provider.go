package providers

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"

	"github.com/gbdevw/gorwsclient/cmd/rwsdemo/configuration"
)

// Provide a tracer provider which exports spans to an OTLP/HTTP backend when tracing is enabled.
// The global tracer provider is used otherwise.
func ProvideTracerProvider(lc fx.Lifecycle, config configuration.Configuration) (trace.TracerProvider, error) {
	if strings.ToLower(config.TracingEnabled) != "true" && config.TracingEnabled != "1" {
		return otel.GetTracerProvider(), nil
	}
	opts := []otlptracehttp.Option{otlptracehttp.WithInsecure()}
	if config.TracingEndpoint != "" {
		opts = append(opts, otlptracehttp.WithEndpoint(config.TracingEndpoint))
	}
	exp, err := otlptracehttp.New(context.Background(), opts...)
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String("gorwsclient.rwsdemo"),
		)),
	)
	otel.SetTracerProvider(tp)
	// Flush pending spans on shutdown
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return tp.Shutdown(ctx)
		},
	})
	return tp, nil
}
