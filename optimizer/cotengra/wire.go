package cotengra

import (
	"github.com/zero-day-ai/tensorpath/optimizer"
	"github.com/zero-day-ai/tensorpath/path"
)

// Failure kinds reported by bridge.py.
const (
	kindUnavailable = "unavailable"
	kindRejected    = "rejected"
)

// wireRequest is the JSON document bridge.py reads from stdin. Field names
// follow cotengra's keyword arguments.
type wireRequest struct {
	Op          optimizer.Op      `json:"op"`
	Inputs      [][]string        `json:"inputs,omitempty"`
	Output      []string          `json:"output"`
	SizeDict    map[string]uint64 `json:"size_dict,omitempty"`
	SSAPath     path.Path         `json:"ssa_path,omitempty"`
	SubtreeSize int               `json:"subtree_size,omitempty"`
	TSteps      *int              `json:"tsteps,omitempty"`
	NumIter     *int              `json:"numiter,omitempty"`
	Seed        *uint64           `json:"seed,omitempty"`
	Methods     []string          `json:"methods,omitempty"`
	MaxTime     *float64          `json:"max_time,omitempty"`
	Parallel    bool              `json:"parallel,omitempty"`
}

// wireResponse is the JSON document bridge.py writes to stdout.
type wireResponse struct {
	SSAPath path.Path `json:"ssa_path"`
	Version string    `json:"version"`
	Error   string    `json:"error"`
	Type    string    `json:"type"`
	Kind    string    `json:"kind"`
}

func toWire(req *optimizer.Request) *wireRequest {
	output := req.Network.Output
	if output == nil {
		output = []string{}
	}

	w := &wireRequest{
		Op:       req.Op,
		Inputs:   req.Network.Inputs,
		Output:   output,
		SizeDict: req.Network.Sizes,
	}

	switch req.Op {
	case optimizer.OpFromPath:
		w.SSAPath = req.Path
		w.SubtreeSize = req.SubtreeSize
	case optimizer.OpOptimizedGreedy:
		w.SubtreeSize = req.SubtreeSize
	case optimizer.OpAnneal:
		w.TSteps = positive(req.Steps)
		w.NumIter = positive(req.Iterations)
		w.Seed = req.Seed
	case optimizer.OpTemper:
		w.NumIter = positive(req.Iterations)
		w.Seed = req.Seed
	case optimizer.OpHyper:
		w.Methods = req.Methods
		w.Seed = req.Seed
		w.Parallel = req.Parallel
		if req.MaxTime > 0 {
			secs := req.MaxTime.Seconds()
			w.MaxTime = &secs
		}
	}
	return w
}

func positive(v int) *int {
	if v <= 0 {
		return nil
	}
	return &v
}
