package tracing

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-lambda-go/otellambda"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-sdk-go-v2/otelaws"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
)

func InitTracer(ctx context.Context, serviceName string, addr string) (*trace.TracerProvider, error) {
	exp, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(addr),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("create otlp exporter: %w", err)
	}

	tp := trace.NewTracerProvider(
		trace.WithBatcher(exp),
		trace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", serviceName),
		)),
	)
	otel.SetTracerProvider(tp)

	return tp, nil
}

// InstrumentAWS adds spans around every SDK call made with cfg.
func InstrumentAWS(cfg *aws.Config, tp *trace.TracerProvider) {
	otelaws.AppendMiddlewares(&cfg.APIOptions, otelaws.WithTracerProvider(tp))
}

// WrapHandler flushes tp at the end of every invocation; the Lambda sandbox
// may freeze before the batcher exports otherwise.
func WrapHandler(handler any, tp *trace.TracerProvider) any {
	if tp == nil {
		return handler
	}
	return otellambda.InstrumentHandler(handler,
		otellambda.WithTracerProvider(tp),
		otellambda.WithFlusher(tp),
	)
}
