package observability

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/signalsfoundry/hive-simulator/core"
	"github.com/signalsfoundry/hive-simulator/internal/logging"
)

const instrumentationName = "github.com/signalsfoundry/hive-simulator"

// Span exporters understood by InitTracing.
const (
	ExporterStdout = "stdout"
	ExporterOTLP   = "otlp"
)

const defaultOTLPEndpoint = "localhost:4317"

// Attribute keys shared by simulation spans and the tracing resource.
const (
	AttrCommand    = attribute.Key("hive.command")
	AttrMap        = attribute.Key("hive.map")
	AttrNodes      = attribute.Key("hive.nodes")
	AttrAgents     = attribute.Key("hive.agents")
	AttrMoveCap    = attribute.Key("hive.move_cap")
	AttrSeed       = attribute.Key("hive.seed")
	AttrTrial      = attribute.Key("hive.trial")
	AttrEvents     = attribute.Key("hive.events")
	AttrSteps      = attribute.Key("hive.steps")
	AttrMoves      = attribute.Key("hive.moves")
	AttrDead       = attribute.Key("hive.agents.dead")
	AttrStranded   = attribute.Key("hive.agents.stranded")
	AttrFinished   = attribute.Key("hive.agents.finished")
	AttrStaleEdges = attribute.Key("hive.stale_edges")
)

// TracingConfig governs how tracing is initialised.
type TracingConfig struct {
	Enabled     bool
	ServiceName string
	Exporter    string // ExporterStdout | ExporterOTLP
	Endpoint    string // used by ExporterOTLP
	SampleRatio float64

	// Command names the binary producing spans; it becomes the
	// hive.command resource attribute.
	Command string
	// Output receives stdout-exporter spans; nil means os.Stderr.
	Output io.Writer
}

// TracingConfigFromEnv reads SIM_TRACING_* and SIM_OTLP_ENDPOINT. Unset or
// out-of-range values fall back to defaults.
func TracingConfigFromEnv() TracingConfig {
	cfg := TracingConfig{
		Enabled:     strings.EqualFold(os.Getenv("SIM_TRACING_ENABLED"), "true"),
		ServiceName: os.Getenv("SIM_TRACING_SERVICE_NAME"),
		Exporter:    strings.ToLower(os.Getenv("SIM_TRACING_EXPORTER")),
		Endpoint:    os.Getenv("SIM_OTLP_ENDPOINT"),
		SampleRatio: 1,
		Command:     filepath.Base(os.Args[0]),
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "hive-simulator"
	}
	if cfg.Exporter == "" {
		cfg.Exporter = ExporterStdout
	}
	if raw := os.Getenv("SIM_TRACING_SAMPLE_RATIO"); raw != "" {
		if ratio, err := strconv.ParseFloat(raw, 64); err == nil && ratio >= 0 && ratio <= 1 {
			cfg.SampleRatio = ratio
		}
	}
	return cfg
}

// Validate reports configuration that InitTracing cannot honour.
func (c TracingConfig) Validate() error {
	switch strings.ToLower(c.Exporter) {
	case ExporterStdout, ExporterOTLP, "otlpgrpc", "":
	default:
		return fmt.Errorf("unsupported tracing exporter: %s", c.Exporter)
	}
	if c.SampleRatio < 0 || c.SampleRatio > 1 {
		return fmt.Errorf("tracing sample ratio %v outside [0, 1]", c.SampleRatio)
	}
	return nil
}

// InitTracing installs the global tracer provider described by cfg and
// returns a function flushing pending spans. When tracing is disabled a
// noop provider is installed and the returned function does nothing.
// Invalid configuration is rejected before any global state changes.
func InitTracing(ctx context.Context, cfg TracingConfig, log logging.Logger) (func(context.Context) error, error) {
	if log == nil {
		log = logging.Noop()
	}

	if !cfg.Enabled {
		otel.SetTracerProvider(noop.NewTracerProvider())
		otel.SetTextMapPropagator(propagation.TraceContext{})
		log.Debug(ctx, "tracing disabled")
		return func(context.Context) error { return nil }, nil
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	exp, err := newExporter(ctx, cfg)
	if err != nil {
		return nil, err
	}
	res, err := newResource(ctx, cfg)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	log.Info(ctx, "tracing enabled",
		logging.String("exporter", cfg.Exporter),
		logging.String("service_name", cfg.ServiceName),
		logging.String("command", cfg.Command),
		logging.Any("sample_ratio", cfg.SampleRatio),
	)
	return tp.Shutdown, nil
}

// Tracer returns the module's tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// StartRunSpan opens a span for one simulation run on mapName and tags it
// with the run's inputs.
func StartRunSpan(ctx context.Context, name, mapName string, w *core.World, agents, moveCap int) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		AttrMap.String(mapName),
		AttrAgents.Int(agents),
		AttrMoveCap.Int(moveCap),
	}
	if w != nil {
		attrs = append(attrs, AttrNodes.Int(w.Len()))
	}
	return Tracer().Start(ctx, name, trace.WithAttributes(attrs...))
}

// RecordRun tags span with the outcome of a finished run.
func RecordRun(span trace.Span, stats core.RunStats, events int) {
	if span == nil {
		return
	}
	span.SetAttributes(RunAttributes(stats, events)...)
}

// RunAttributes renders run counters as span attributes.
func RunAttributes(stats core.RunStats, events int) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrEvents.Int(events),
		AttrSteps.Int(stats.Steps),
		AttrMoves.Int(stats.Moves),
		AttrDead.Int(stats.Dead),
		AttrStranded.Int(stats.Stranded),
		AttrFinished.Int(stats.CapFinished),
		AttrStaleEdges.Int(stats.StaleEdges),
	}
}

func newResource(ctx context.Context, cfg TracingConfig) (*resource.Resource, error) {
	attrs := []attribute.KeyValue{
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.namespace", "hive"),
	}
	if cfg.Command != "" {
		attrs = append(attrs, AttrCommand.String(cfg.Command))
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(attrs...),
		resource.WithProcessRuntimeVersion(),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}
	return res, nil
}

func newExporter(ctx context.Context, cfg TracingConfig) (sdktrace.SpanExporter, error) {
	switch strings.ToLower(cfg.Exporter) {
	case ExporterStdout, "":
		out := cfg.Output
		if out == nil {
			out = os.Stderr
		}
		return stdouttrace.New(
			stdouttrace.WithWriter(out),
			stdouttrace.WithPrettyPrint(),
			stdouttrace.WithoutTimestamps(),
		)
	default:
		endpoint := cfg.Endpoint
		if endpoint == "" {
			endpoint = defaultOTLPEndpoint
		}
		client := otlptracegrpc.NewClient(
			otlptracegrpc.WithEndpoint(endpoint),
			otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		)
		return otlptrace.New(ctx, client)
	}
}

// ShutdownWithTimeout flushes spans through shutdown within five seconds.
// Failures are logged, not returned.
func ShutdownWithTimeout(ctx context.Context, shutdown func(context.Context) error, log logging.Logger) {
	if shutdown == nil {
		return
	}
	if log == nil {
		log = logging.Noop()
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		log.Warn(ctx, "tracing shutdown failed", logging.Error(err))
	}
}
