package tensorpath

import (
	"log/slog"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/zero-day-ai/tensorpath/path"
)

// DefaultSubtreeSize is the reconfiguration window used when WithSubtreeSize
// is not given.
const DefaultSubtreeSize = 8

// instrumentationName names the tracer and meter scope.
const instrumentationName = "github.com/zero-day-ai/tensorpath"

// Option configures a Client.
type Option func(*clientConfig)

type clientConfig struct {
	logger        *slog.Logger
	tracer        trace.Tracer
	meterProvider metric.MeterProvider
	output        path.Encoding
	subtreeSize   int
}

func defaultConfig() clientConfig {
	return clientConfig{
		output:      path.SlotReuse,
		subtreeSize: DefaultSubtreeSize,
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *clientConfig) {
		c.logger = logger
	}
}

// WithTracer records a span around every optimizer call.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *clientConfig) {
		c.tracer = tracer
	}
}

// WithMeterProvider records optimizer call counts and durations.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(c *clientConfig) {
		c.meterProvider = mp
	}
}

// WithOutputEncoding selects the encoding of returned paths. Defaults to
// path.SlotReuse.
func WithOutputEncoding(enc path.Encoding) Option {
	return func(c *clientConfig) {
		c.output = enc
	}
}

// WithSubtreeSize sets the subtree reconfiguration window for FromPath and
// OptimizedGreedy. Defaults to DefaultSubtreeSize.
func WithSubtreeSize(size int) Option {
	return func(c *clientConfig) {
		c.subtreeSize = size
	}
}
