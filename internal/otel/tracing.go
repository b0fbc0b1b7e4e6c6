// Package otel configures the OpenTelemetry tracer provider from the standard
// OTEL_* environment variables.
package otel

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

const defaultServiceName = "seepage"

// ShutdownFunc flushes and stops the tracer provider.
type ShutdownFunc func(context.Context) error

func noopShutdown(context.Context) error { return nil }

// settings is the subset of the OTEL_* environment this package honours.
type settings struct {
	disabled    bool
	serviceName string
	protocol    string
	endpoint    string
	sampler     string
	samplerArg  string
}

func settingsFromEnv() settings {
	return settings{
		disabled:    os.Getenv("OTEL_SDK_DISABLED") == "true",
		serviceName: envOr("OTEL_SERVICE_NAME", defaultServiceName),
		protocol:    envOr("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc"),
		endpoint:    envOr("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")),
		sampler:     envOr("OTEL_TRACES_SAMPLER", "parentbased_traceidratio"),
		samplerArg:  envOr("OTEL_TRACES_SAMPLER_ARG", "1.0"),
	}
}

// Init installs the global propagator and, unless disabled, a batching
// tracer provider. An exporter that cannot be built leaves tracing off
// rather than failing startup.
func Init(ctx context.Context, log zerolog.Logger) (ShutdownFunc, error) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))

	s := settingsFromEnv()
	if s.disabled {
		log.Info().Str("event", "tracing_configured").Bool("tracing_enabled", false).Msg("")
		return noopShutdown, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String(s.serviceName)),
		resource.WithFromEnv(),
		resource.WithProcess(),
		resource.WithTelemetrySDK(),
		resource.WithHost(),
	)
	if err != nil {
		return nil, fmt.Errorf("otel resource: %w", err)
	}

	exp, err := newExporter(ctx, s.protocol)
	if err != nil {
		log.Error().Err(err).Str("event", "tracing_init_failed").Str("otlp_protocol", s.protocol).Msg("")
		return noopShutdown, nil
	}

	tp := trace.NewTracerProvider(
		trace.WithBatcher(exp),
		trace.WithResource(res),
		trace.WithSampler(sampler(s.sampler, s.samplerArg)),
	)
	otel.SetTracerProvider(tp)

	log.Info().
		Str("event", "tracing_configured").
		Bool("tracing_enabled", true).
		Str("otlp_protocol", s.protocol).
		Str("otlp_endpoint", s.endpoint).
		Str("sampler", s.sampler).
		Str("sampler_arg", s.samplerArg).
		Msg("")
	return tp.Shutdown, nil
}

func newExporter(ctx context.Context, protocol string) (*otlptrace.Exporter, error) {
	switch protocol {
	case "grpc":
		return otlptracegrpc.New(ctx)
	case "http/protobuf":
		return otlptracehttp.New(ctx)
	}
	return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
}

// sampler maps OTEL_TRACES_SAMPLER names onto SDK samplers. Unknown names
// fall back to parentbased_always_on; a bad ratio counts as 1.
func sampler(kind, arg string) trace.Sampler {
	ratio, err := strconv.ParseFloat(arg, 64)
	if err != nil || ratio > 1 {
		ratio = 1
	} else if ratio < 0 {
		ratio = 0
	}

	root := map[string]trace.Sampler{
		"always_on":    trace.AlwaysSample(),
		"always_off":   trace.NeverSample(),
		"traceidratio": trace.TraceIDRatioBased(ratio),
	}
	if s, ok := root[kind]; ok {
		return s
	}
	if name, ok := strings.CutPrefix(kind, "parentbased_"); ok {
		if s, ok := root[name]; ok {
			return trace.ParentBased(s)
		}
	}
	return trace.ParentBased(trace.AlwaysSample())
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
