// Command genai-replay replays a recorded model response stream through the
// GenAI instrumentation and prints the resulting spans, metrics and events
// to stdout.
//
// The input holds one JSON event per line: OpenAI chat completion chunks or
// Anthropic message stream events.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"goa.design/clue/clue"
	"goa.design/clue/log"

	"goa.design/genai-otel/runtime/genai/config"
	"goa.design/genai-otel/runtime/genai/instrument"
	"goa.design/genai-otel/runtime/genai/telemetry"
)

const (
	serviceName    = "genai-replay"
	serviceVersion = "v0.1.0"
)

type shutdowner interface {
	Shutdown(context.Context) error
}

func main() {
	var (
		providerF = flag.String("provider", "openai", "Event format of the input (openai or anthropic)")
		inputF    = flag.String("input", "-", "File holding one JSON event per line (- for stdin)")
		requestF  = flag.String("request", "", "File holding the recorded request body")
		configF   = flag.String("config", "", "YAML capture configuration, overridden by OTEL_INSTRUMENTATION_GENAI_* variables")
		replaceF  = flag.Bool("replace", false, "Treat text deltas as full snapshots")
		prettyF   = flag.Bool("pretty", true, "Pretty print exported telemetry")
		dbgF      = flag.Bool("debug", false, "Enable debug logs")
	)
	flag.Parse()

	format := log.FormatJSON
	if log.IsTerminal() {
		format = log.FormatTerminal
	}
	ctx := log.Context(context.Background(), log.WithFormat(format), log.WithOutput(os.Stderr))
	if *dbgF {
		ctx = log.Context(ctx, log.WithDebug())
		log.Debugf(ctx, "debug logs enabled")
	}

	cfg, err := loadConfig(*configF)
	if err != nil {
		log.Fatalf(ctx, err, "failed to load configuration")
	}
	log.Print(ctx,
		log.KV{K: "provider", V: *providerF},
		log.KV{K: "capture", V: cfg.CaptureMessageContent},
		log.KV{K: "strategy", V: cfg.CaptureMessageStrategy},
	)

	shutdown, err := setupTelemetry(ctx, os.Stdout, *prettyF)
	if err != nil {
		log.Fatalf(ctx, err, "failed to configure OpenTelemetry")
	}

	in, closeIn, err := openInput(*inputF)
	if err != nil {
		log.Fatalf(ctx, err, "failed to open input")
	}
	var body []byte
	if *requestF != "" {
		if body, err = os.ReadFile(*requestF); err != nil {
			log.Fatalf(ctx, err, "failed to read request")
		}
	}

	n, err := replay(ctx, in, replayOptions{
		Provider: *providerF,
		Request:  body,
		Replace:  *replaceF,
		Instrument: instrument.Options{
			Logger:  telemetry.NewClueLogger(),
			Capture: cfg.CaptureOptions(),
		},
	})
	closeIn()
	if err != nil {
		log.Errorf(ctx, err, "replay failed")
	}
	log.Print(ctx, log.KV{K: "events", V: n})

	for _, s := range shutdown {
		if serr := s.Shutdown(ctx); serr != nil {
			log.Errorf(ctx, serr, "telemetry shutdown failed")
		}
	}
	if err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the optional configuration file and applies environment
// overrides.
func loadConfig(path string) (config.Config, error) {
	cfg := config.Default()
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return cfg, err
		}
	}
	return cfg.WithEnv(os.LookupEnv)
}

// setupTelemetry installs global trace, metric and log providers exporting
// to w. The returned providers must be shut down to flush.
func setupTelemetry(ctx context.Context, w io.Writer, pretty bool) ([]shutdowner, error) {
	traceOpts := []stdouttrace.Option{stdouttrace.WithWriter(w)}
	metricOpts := []stdoutmetric.Option{stdoutmetric.WithWriter(w)}
	logOpts := []stdoutlog.Option{stdoutlog.WithWriter(w)}
	if pretty {
		traceOpts = append(traceOpts, stdouttrace.WithPrettyPrint())
		metricOpts = append(metricOpts, stdoutmetric.WithPrettyPrint())
		logOpts = append(logOpts, stdoutlog.WithPrettyPrint())
	}
	spanExporter, err := stdouttrace.New(traceOpts...)
	if err != nil {
		return nil, fmt.Errorf("trace exporter: %w", err)
	}
	metricExporter, err := stdoutmetric.New(metricOpts...)
	if err != nil {
		return nil, fmt.Errorf("metric exporter: %w", err)
	}
	logExporter, err := stdoutlog.New(logOpts...)
	if err != nil {
		return nil, fmt.Errorf("log exporter: %w", err)
	}

	cfg, err := clue.NewConfig(ctx, serviceName, serviceVersion, metricExporter, spanExporter)
	if err != nil {
		return nil, fmt.Errorf("clue config: %w", err)
	}
	clue.ConfigureOpenTelemetry(ctx, cfg)

	lp := sdklog.NewLoggerProvider(sdklog.WithProcessor(sdklog.NewSimpleProcessor(logExporter)))
	global.SetLoggerProvider(lp)

	// Shutdown order: traces, metrics, logs.
	var out []shutdowner
	if s, ok := cfg.TracerProvider.(shutdowner); ok {
		out = append(out, s)
	}
	if s, ok := cfg.MeterProvider.(shutdowner); ok {
		out = append(out, s)
	}
	return append(out, lp), nil
}

func openInput(path string) (io.Reader, func(), error) {
	if path == "" || path == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { _ = f.Close() }, nil
}
