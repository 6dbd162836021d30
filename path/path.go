package path

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Step merges the item currently known as Left with the item currently known
// as Right. Both inputs are retired and a single result is produced.
type Step struct {
	Left  int
	Right int
}

// String renders the step as "(left, right)".
func (s Step) String() string {
	return fmt.Sprintf("(%d, %d)", s.Left, s.Right)
}

// MarshalJSON encodes the step as a two element array, the tuple form used by
// cotengra and opt_einsum.
func (s Step) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{s.Left, s.Right})
}

// UnmarshalJSON decodes a two element array.
func (s *Step) UnmarshalJSON(data []byte) error {
	var pair []int
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("decode step: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("decode step: expected 2 identifiers, got %d", len(pair))
	}
	s.Left, s.Right = pair[0], pair[1]
	return nil
}

// Path is an ordered sequence of merge steps.
type Path []Step

// String renders the path as "[(0, 3), (4, 1)]".
func (p Path) String() string {
	parts := make([]string, len(p))
	for i, s := range p {
		parts[i] = s.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Clone returns a copy of the path that shares no memory with p.
func (p Path) Clone() Path {
	if p == nil {
		return nil
	}
	out := make(Path, len(p))
	copy(out, p)
	return out
}

// FromPairs builds a path from [left, right] pairs.
func FromPairs(pairs [][2]int) Path {
	out := make(Path, len(pairs))
	for i, pair := range pairs {
		out[i] = Step{Left: pair[0], Right: pair[1]}
	}
	return out
}

// Pairs returns the path as [left, right] pairs.
func (p Path) Pairs() [][2]int {
	out := make([][2]int, len(p))
	for i, s := range p {
		out[i] = [2]int{s.Left, s.Right}
	}
	return out
}

// Encoding identifies how a path names intermediate results.
type Encoding int

const (
	// SlotReuse stores each result under the left operand's identifier.
	SlotReuse Encoding = iota

	// Assign gives the result of step k the fresh identifier n+k.
	Assign
)

// String returns the canonical name of the encoding.
func (e Encoding) String() string {
	switch e {
	case SlotReuse:
		return "slot-reuse"
	case Assign:
		return "assign"
	default:
		return fmt.Sprintf("encoding(%d)", int(e))
	}
}

// ParseEncoding accepts "assign" or "ssa" for Assign and "slot-reuse",
// "slot" or "replace" for SlotReuse.
func ParseEncoding(s string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "assign", "ssa":
		return Assign, nil
	case "slot-reuse", "slot", "replace":
		return SlotReuse, nil
	default:
		return 0, fmt.Errorf("unknown path encoding %q", s)
	}
}

// Root returns the identifier that holds the final result of a well-formed
// path over n leaves.
func Root(p Path, n int, enc Encoding) int {
	if len(p) == 0 {
		return 0
	}
	if enc == Assign {
		return n + len(p) - 1
	}
	return p[len(p)-1].Left
}
