package optimizer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/zero-day-ai/tensorpath/label"
	"github.com/zero-day-ai/tensorpath/path"
)

// Optimizer finds a contraction path for a canonical network. The returned
// path is assign-encoded.
type Optimizer interface {
	Optimize(ctx context.Context, req *Request) (path.Path, error)
}

// Func adapts a function to the Optimizer interface.
type Func func(ctx context.Context, req *Request) (path.Path, error)

// Optimize calls f(ctx, req).
func (f Func) Optimize(ctx context.Context, req *Request) (path.Path, error) {
	return f(ctx, req)
}

// Op is an optimizer operation.
type Op string

const (
	OpFromPath        Op = "from_path"
	OpGreedy          Op = "greedy"
	OpOptimizedGreedy Op = "optimized_greedy"
	OpAnneal          Op = "anneal"
	OpTemper          Op = "temper"
	OpHyper           Op = "hyper"
)

// Ops lists every supported operation.
var Ops = []Op{OpFromPath, OpGreedy, OpOptimizedGreedy, OpAnneal, OpTemper, OpHyper}

// Valid reports whether op is a supported operation.
func (op Op) Valid() bool {
	for _, o := range Ops {
		if o == op {
			return true
		}
	}
	return false
}

// ParseOp converts a string to an Op.
func ParseOp(s string) (Op, error) {
	op := Op(s)
	if !op.Valid() {
		return "", fmt.Errorf("unknown optimizer operation %q", s)
	}
	return op, nil
}

// Request describes one optimizer call. Fields that do not apply to Op are
// ignored.
type Request struct {
	// Op selects the operation.
	Op Op `json:"op"`

	// Network is the canonical tensor network.
	Network label.Network `json:"network"`

	// Path is the starting path for OpFromPath, assign-encoded.
	Path path.Path `json:"ssa_path,omitempty"`

	// SubtreeSize bounds subtree reconfiguration for OpFromPath and
	// OpOptimizedGreedy.
	SubtreeSize int `json:"subtree_size,omitempty"`

	// Steps is the number of temperature steps for OpAnneal. Zero leaves
	// the optimizer default.
	Steps int `json:"steps,omitempty"`

	// Iterations is the number of iterations for OpAnneal and OpTemper.
	// Zero leaves the optimizer default.
	Iterations int `json:"iterations,omitempty"`

	// Seed makes stochastic operations reproducible.
	Seed *uint64 `json:"seed,omitempty"`

	// Methods lists the tree builders OpHyper samples from. Empty leaves the
	// optimizer default.
	Methods []string `json:"methods,omitempty"`

	// MaxTime bounds the OpHyper search. Zero means no time limit.
	MaxTime time.Duration `json:"max_time,omitempty"`

	// Parallel lets OpHyper search with multiple workers.
	Parallel bool `json:"parallel,omitempty"`
}

// Validate checks the request before it is sent to a backend.
func (r *Request) Validate() error {
	if r == nil {
		return fmt.Errorf("%w: nil request", ErrInvalidRequest)
	}
	if !r.Op.Valid() {
		return fmt.Errorf("%w: unknown operation %q", ErrInvalidRequest, r.Op)
	}
	if err := r.Network.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	switch r.Op {
	case OpFromPath:
		if err := path.Validate(r.Path, r.Network.Len(), path.Assign); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
		if r.SubtreeSize <= 0 {
			return fmt.Errorf("%w: subtree size must be positive, got %d", ErrInvalidRequest, r.SubtreeSize)
		}
	case OpOptimizedGreedy:
		if r.SubtreeSize <= 0 {
			return fmt.Errorf("%w: subtree size must be positive, got %d", ErrInvalidRequest, r.SubtreeSize)
		}
	case OpAnneal, OpTemper:
		if r.Steps < 0 || r.Iterations < 0 {
			return fmt.Errorf("%w: steps and iterations must not be negative", ErrInvalidRequest)
		}
	case OpHyper:
		if r.MaxTime < 0 {
			return fmt.Errorf("%w: max time must not be negative", ErrInvalidRequest)
		}
	}
	return nil
}

// Stochastic reports whether the result may differ between identical calls:
// annealing, tempering and hyper searches without a seed, and hyper searches
// bounded by MaxTime or run in Parallel, whose trial count depends on timing
// even when seeded.
func (r *Request) Stochastic() bool {
	switch r.Op {
	case OpAnneal, OpTemper:
		return r.Seed == nil
	case OpHyper:
		return r.Seed == nil || r.MaxTime > 0 || r.Parallel
	default:
		return false
	}
}

// Key returns the canonical JSON form of the request, suitable for hashing.
// encoding/json sorts map keys, so equal requests produce equal keys.
func (r *Request) Key() ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	return data, nil
}

// Seed returns a pointer to s, for filling Request.Seed.
func Seed(s uint64) *uint64 {
	return &s
}
