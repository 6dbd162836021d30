// Package cotengra implements optimizer.Optimizer on top of the cotengra
// Python library.
//
// Every call starts the configured interpreter with an embedded program,
// writes one JSON request to its stdin and reads one JSON response from its
// stdout. The interpreter is probed once, on first use, to confirm cotengra
// can be imported; later calls skip the probe.
package cotengra

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/zero-day-ai/tensorpath/interp"
	"github.com/zero-day-ai/tensorpath/optimizer"
	"github.com/zero-day-ai/tensorpath/path"
)

// Backend is the name reported in optimizer errors and telemetry.
const Backend = "cotengra"

//go:embed bridge.py
var program string

// runner is satisfied by *interp.Interpreter.
type runner interface {
	Run(ctx context.Context, program string, stdin []byte) (*interp.Result, error)
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bridge) {
		b.logger = logger
	}
}

// Bridge runs cotengra through an interpreter.
//
// Thread-safety: Bridge is safe for concurrent use. Each call runs in its own
// interpreter process.
type Bridge struct {
	run    runner
	logger *slog.Logger

	mu      sync.Mutex
	ready   bool
	version string
}

// New resolves the interpreter described by cfg and returns a Bridge. The
// interpreter is not started until Init or the first Optimize call.
func New(cfg interp.Config, opts ...Option) (*Bridge, error) {
	in, err := interp.New(cfg)
	if err != nil {
		return nil, &optimizer.Error{Backend: Backend, Err: optimizer.ErrUnavailable, Detail: err.Error()}
	}
	return newBridge(in, opts...), nil
}

func newBridge(r runner, opts ...Option) *Bridge {
	b := &Bridge{run: r}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	return b
}

// Init confirms that the interpreter can import cotengra. A successful probe
// is remembered for the lifetime of the Bridge; a failed one is repeated on
// the next call.
func (b *Bridge) Init(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.ready {
		return nil
	}

	resp, err := b.call(ctx, "check", &wireRequest{Op: "check"})
	if err != nil {
		return err
	}

	b.ready = true
	b.version = resp.Version
	b.logger.Info("cotengra bridge ready", "version", resp.Version)
	return nil
}

// Version returns the cotengra version reported by Init, or "" before a
// successful Init.
func (b *Bridge) Version() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.version
}

// Optimize runs one cotengra operation and returns its assign-encoded path.
func (b *Bridge) Optimize(ctx context.Context, req *optimizer.Request) (path.Path, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := b.Init(ctx); err != nil {
		return nil, err
	}

	resp, err := b.call(ctx, req.Op, toWire(req))
	if err != nil {
		return nil, err
	}
	if resp.SSAPath == nil {
		resp.SSAPath = path.Path{}
	}
	return resp.SSAPath, nil
}

func (b *Bridge) call(ctx context.Context, op optimizer.Op, w *wireRequest) (*wireResponse, error) {
	fail := func(sentinel error, detail string) error {
		return &optimizer.Error{Op: op, Backend: Backend, Err: sentinel, Detail: detail}
	}

	payload, err := json.Marshal(w)
	if err != nil {
		return nil, fail(optimizer.ErrRejected, err.Error())
	}

	res, err := b.run.Run(ctx, program, payload)
	if err != nil {
		if ctx.Err() != nil {
			return nil, &optimizer.Error{Op: op, Backend: Backend, Err: fmt.Errorf("%w: %w", optimizer.ErrFailed, ctx.Err())}
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &optimizer.Error{Op: op, Backend: Backend, Err: fmt.Errorf("%w: %w", optimizer.ErrFailed, err)}
		}
		return nil, fail(optimizer.ErrUnavailable, err.Error())
	}

	stderr := strings.TrimSpace(string(res.Stderr))
	if stderr != "" {
		b.logger.Debug("cotengra stderr", "op", op, "stderr", stderr)
	}

	var resp wireResponse
	if err := json.Unmarshal(bytes.TrimSpace(res.Stdout), &resp); err != nil {
		detail := stderr
		if detail == "" {
			detail = err.Error()
		}
		return nil, fail(optimizer.ErrFailed, fmt.Sprintf("exit code %d: %s", res.ExitCode, detail))
	}

	if resp.Error != "" {
		sentinel := optimizer.ErrFailed
		switch resp.Kind {
		case kindUnavailable:
			sentinel = optimizer.ErrUnavailable
		case kindRejected:
			sentinel = optimizer.ErrRejected
		}
		return nil, fail(sentinel, resp.Type+": "+resp.Error)
	}

	if res.ExitCode != 0 {
		return nil, fail(optimizer.ErrFailed, fmt.Sprintf("exit code %d: %s", res.ExitCode, stderr))
	}

	b.logger.Debug("cotengra call finished", "op", op, "duration", res.Duration)
	return &resp, nil
}
