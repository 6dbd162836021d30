package tensorpath

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/zero-day-ai/tensorpath/label"
	"github.com/zero-day-ai/tensorpath/optimizer"
	"github.com/zero-day-ai/tensorpath/path"
)

// Client runs contraction path optimizers on canonical networks and
// translates paths between the caller's encoding and the assign encoding
// optimizers speak.
//
// Thread-safety: Client is safe for concurrent use if its Optimizer is.
type Client struct {
	opt         optimizer.Optimizer
	logger      *slog.Logger
	output      path.Encoding
	subtreeSize int
}

// AnnealOptions tunes Client.Anneal. Zero fields leave the optimizer
// defaults.
type AnnealOptions struct {
	Steps      int
	Iterations int
	Seed       *uint64
}

// TemperOptions tunes Client.Temper. Zero fields leave the optimizer
// defaults.
type TemperOptions struct {
	Iterations int
	Seed       *uint64
}

// HyperOptions tunes Client.HyperSearch.
type HyperOptions struct {
	// Methods lists the tree builders to sample. Empty leaves the optimizer
	// default.
	Methods []string

	// MaxTime bounds the search. Zero means no limit.
	MaxTime time.Duration

	// Parallel searches with multiple workers.
	Parallel bool

	Seed *uint64
}

// New returns a Client backed by opt.
func New(opt optimizer.Optimizer, opts ...Option) (*Client, error) {
	const op = "tensorpath.New"

	if opt == nil {
		return nil, NewConfigurationError(op, fmt.Errorf("%w: optimizer is nil", ErrInvalidConfig))
	}

	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	if cfg.output != path.SlotReuse && cfg.output != path.Assign {
		return nil, NewConfigurationError(op, fmt.Errorf("%w: unknown output encoding %s", ErrInvalidConfig, cfg.output))
	}
	if cfg.subtreeSize <= 0 {
		return nil, NewConfigurationError(op, fmt.Errorf("%w: subtree size must be positive, got %d", ErrInvalidConfig, cfg.subtreeSize))
	}

	if cfg.tracer != nil || cfg.meterProvider != nil {
		iopts := []optimizer.InstrumentOption{optimizer.WithLogger(cfg.logger)}
		if cfg.tracer != nil {
			iopts = append(iopts, optimizer.WithTracer(cfg.tracer))
		}
		if cfg.meterProvider != nil {
			iopts = append(iopts, optimizer.WithMeter(cfg.meterProvider.Meter(instrumentationName)))
		}
		var err error
		opt, err = optimizer.Instrument(opt, iopts...)
		if err != nil {
			return nil, NewConfigurationError(op, err)
		}
	}

	return &Client{
		opt:         opt,
		logger:      cfg.logger,
		output:      cfg.output,
		subtreeSize: cfg.subtreeSize,
	}, nil
}

// OutputEncoding returns the encoding of paths returned by the Client.
func (c *Client) OutputEncoding() path.Encoding {
	return c.output
}

// FromPath improves an existing path p, given in encoding enc, by subtree
// reconfiguration.
func (c *Client) FromPath(ctx context.Context, net label.Network, p path.Path, enc path.Encoding) (path.Path, error) {
	const op = "Client.FromPath"

	if err := net.Validate(); err != nil {
		return nil, NewValidationError(op, err)
	}
	ssa, err := path.Convert(p, net.Len(), enc, path.Assign)
	if err != nil {
		return nil, NewValidationError(op, err)
	}

	return c.run(ctx, op, &optimizer.Request{
		Op:          optimizer.OpFromPath,
		Network:     net,
		Path:        ssa,
		SubtreeSize: c.subtreeSize,
	})
}

// Greedy builds a path with cotengra's greedy heuristic.
func (c *Client) Greedy(ctx context.Context, net label.Network) (path.Path, error) {
	return c.run(ctx, "Client.Greedy", &optimizer.Request{
		Op:      optimizer.OpGreedy,
		Network: net,
	})
}

// OptimizedGreedy builds a greedy path and refines it by subtree
// reconfiguration.
func (c *Client) OptimizedGreedy(ctx context.Context, net label.Network) (path.Path, error) {
	return c.run(ctx, "Client.OptimizedGreedy", &optimizer.Request{
		Op:          optimizer.OpOptimizedGreedy,
		Network:     net,
		SubtreeSize: c.subtreeSize,
	})
}

// Anneal refines a greedy path by simulated annealing.
func (c *Client) Anneal(ctx context.Context, net label.Network, o AnnealOptions) (path.Path, error) {
	return c.run(ctx, "Client.Anneal", &optimizer.Request{
		Op:         optimizer.OpAnneal,
		Network:    net,
		Steps:      o.Steps,
		Iterations: o.Iterations,
		Seed:       o.Seed,
	})
}

// Temper refines a greedy path by parallel tempering.
func (c *Client) Temper(ctx context.Context, net label.Network, o TemperOptions) (path.Path, error) {
	return c.run(ctx, "Client.Temper", &optimizer.Request{
		Op:         optimizer.OpTemper,
		Network:    net,
		Iterations: o.Iterations,
		Seed:       o.Seed,
	})
}

// HyperSearch runs cotengra's hyper-optimizer.
func (c *Client) HyperSearch(ctx context.Context, net label.Network, o HyperOptions) (path.Path, error) {
	return c.run(ctx, "Client.HyperSearch", &optimizer.Request{
		Op:       optimizer.OpHyper,
		Network:  net,
		Methods:  o.Methods,
		MaxTime:  o.MaxTime,
		Parallel: o.Parallel,
		Seed:     o.Seed,
	})
}

// Optimize runs an arbitrary request. req.Path, when set, must already be
// assign-encoded.
func (c *Client) Optimize(ctx context.Context, req *optimizer.Request) (path.Path, error) {
	return c.run(ctx, "Client.Optimize", req)
}

// run validates req, calls the optimizer and converts its path to the
// output encoding. Optimizer errors are returned unchanged.
func (c *Client) run(ctx context.Context, op string, req *optimizer.Request) (path.Path, error) {
	if err := req.Validate(); err != nil {
		return nil, NewValidationError(op, err)
	}

	n := req.Network.Len()
	ssa, err := c.opt.Optimize(ctx, req)
	if err != nil {
		return nil, err
	}

	out, err := path.Convert(ssa, n, path.Assign, c.output)
	if err != nil {
		c.logger.Error("optimizer returned malformed path", "op", req.Op, "tensors", n, "error", err)
		return nil, NewInternalError(op, fmt.Errorf("optimizer %s result: %w", req.Op, err))
	}

	c.logger.Debug("optimized path", "op", req.Op, "tensors", n, "encoding", c.output)
	return out, nil
}

// NormalizeLegs canonicalizes a network whose legs are integers, rendering
// each leg as its decimal string.
func NormalizeLegs(inputs [][]int, output []int, sizes map[int]uint64) (label.Network, error) {
	return normalize("NormalizeLegs", label.Normalizer[int]{}, inputs, output, sizes)
}

// NormalizeSymbols canonicalizes a network with arbitrary comparable legs,
// minting the single-character symbols a-z, A-Z, then further Unicode
// characters in order of first appearance.
func NormalizeSymbols[K comparable](inputs [][]K, output []K, sizes map[K]uint64) (label.Network, error) {
	return normalize("NormalizeSymbols", label.Normalizer[K]{Mint: label.Symbols[K]}, inputs, output, sizes)
}

func normalize[K comparable](op string, n label.Normalizer[K], inputs [][]K, output []K, sizes map[K]uint64) (label.Network, error) {
	res, err := n.Normalize(inputs, output, sizes)
	if err != nil {
		if errors.Is(err, label.ErrUnknownIdentifier) {
			return label.Network{}, NewNotFoundError(op, err)
		}
		return label.Network{}, NewValidationError(op, err)
	}
	return res.Network, nil
}
