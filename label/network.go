package label

import (
	"errors"
	"fmt"
)

// Network is a tensor network written with canonical labels. It is the shape
// of data that crosses into the external optimizer.
type Network struct {
	// Inputs holds one group of labels per tensor, in tensor order.
	Inputs [][]string `json:"inputs"`

	// Output holds the exposed labels, order significant.
	Output []string `json:"output"`

	// Sizes maps every label to its dimension.
	Sizes map[string]uint64 `json:"size_dict"`
}

// Len returns the number of tensors (leaves) in the network.
func (n Network) Len() int {
	return len(n.Inputs)
}

// Validate checks that the network has at least one tensor and that every
// label used in Inputs or Output has a positive dimension.
func (n Network) Validate() error {
	if len(n.Inputs) == 0 {
		return errors.New("network has no tensors")
	}
	check := func(l string, group, pos int) error {
		size, ok := n.Sizes[l]
		if !ok {
			return &UnknownIdentifierError{Raw: l, Group: group, Position: pos}
		}
		if size == 0 {
			return fmt.Errorf("%w: label %q", ErrInvalidDimension, l)
		}
		return nil
	}
	for g, group := range n.Inputs {
		for p, l := range group {
			if err := check(l, g, p); err != nil {
				return err
			}
		}
	}
	for p, l := range n.Output {
		if err := check(l, -1, p); err != nil {
			return err
		}
	}
	return nil
}

// Clone returns a deep copy of the network.
func (n Network) Clone() Network {
	out := Network{
		Inputs: make([][]string, len(n.Inputs)),
		Output: append([]string(nil), n.Output...),
		Sizes:  make(map[string]uint64, len(n.Sizes)),
	}
	for i, g := range n.Inputs {
		out.Inputs[i] = append([]string(nil), g...)
	}
	for k, v := range n.Sizes {
		out.Sizes[k] = v
	}
	return out
}
