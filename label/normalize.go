package label

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownIdentifier is matched by *UnknownIdentifierError.
	ErrUnknownIdentifier = errors.New("unknown identifier")

	// ErrInvalidDimension indicates a dimension of zero.
	ErrInvalidDimension = errors.New("invalid dimension")

	// ErrLabelCollision indicates that two distinct identifiers were minted
	// to the same label.
	ErrLabelCollision = errors.New("label collision")
)

// UnknownIdentifierError reports an identifier that has no entry in the
// dimension source.
type UnknownIdentifierError struct {
	// Raw is the identifier that could not be resolved.
	Raw any

	// Group is the index of the tensor the identifier appeared in, or -1 for
	// the exposed list.
	Group int

	// Position is the identifier's index inside its group.
	Position int
}

// Error implements the error interface.
func (e *UnknownIdentifierError) Error() string {
	if e.Group < 0 {
		return fmt.Sprintf("unknown identifier %v at output position %d", e.Raw, e.Position)
	}
	return fmt.Sprintf("unknown identifier %v at tensor %d position %d", e.Raw, e.Group, e.Position)
}

// Is reports whether target is ErrUnknownIdentifier.
func (e *UnknownIdentifierError) Is(target error) bool {
	return target == ErrUnknownIdentifier
}

// MintFunc produces the canonical label for raw. ordinal is the number of
// distinct identifiers minted before raw.
type MintFunc[K comparable] func(raw K, ordinal int) string

// Render mints the direct string rendering of the identifier.
func Render[K comparable](raw K, _ int) string {
	return fmt.Sprint(raw)
}

// Table is the one-to-one mapping between raw identifiers and labels built by
// a normalization run.
type Table[K comparable] struct {
	labels map[K]string
	raws   map[string]K
	order  []K
}

func newTable[K comparable]() *Table[K] {
	return &Table[K]{
		labels: make(map[K]string),
		raws:   make(map[string]K),
	}
}

// Label returns the label minted for raw.
func (t *Table[K]) Label(raw K) (string, bool) {
	l, ok := t.labels[raw]
	return l, ok
}

// Raw returns the identifier a label was minted for.
func (t *Table[K]) Raw(label string) (K, bool) {
	r, ok := t.raws[label]
	return r, ok
}

// Len returns the number of distinct identifiers.
func (t *Table[K]) Len() int {
	return len(t.order)
}

// Raws returns the identifiers in the order they were first seen.
func (t *Table[K]) Raws() []K {
	return append([]K(nil), t.order...)
}

// Result is the outcome of a normalization run.
type Result[K comparable] struct {
	Network Network
	Table   *Table[K]
}

// Normalizer canonicalizes raw identifiers with a configurable mint function.
// The zero value uses Render.
type Normalizer[K comparable] struct {
	Mint MintFunc[K]
}

// Normalize canonicalizes a network using Render.
func Normalize[K comparable](inputs [][]K, output []K, sizes map[K]uint64) (*Result[K], error) {
	return Normalizer[K]{}.Normalize(inputs, output, sizes)
}

// Normalize rewrites every identifier in inputs and output to its canonical
// label. Identifiers are minted in order of first appearance, scanning groups
// in order and each group front to back, then the output list. Every minted
// identifier must have a positive entry in sizes.
func (n Normalizer[K]) Normalize(inputs [][]K, output []K, sizes map[K]uint64) (*Result[K], error) {
	mint := n.Mint
	if mint == nil {
		mint = Render[K]
	}

	table := newTable[K]()
	dims := make(map[string]uint64)

	lookup := func(raw K, group, pos int) (string, error) {
		if l, ok := table.labels[raw]; ok {
			return l, nil
		}
		size, ok := sizes[raw]
		if !ok {
			return "", &UnknownIdentifierError{Raw: raw, Group: group, Position: pos}
		}
		if size == 0 {
			return "", fmt.Errorf("%w: identifier %v has dimension 0", ErrInvalidDimension, raw)
		}
		l := mint(raw, len(table.order))
		if prev, taken := table.raws[l]; taken {
			return "", fmt.Errorf("%w: %v and %v both map to %q", ErrLabelCollision, prev, raw, l)
		}
		table.labels[raw] = l
		table.raws[l] = raw
		table.order = append(table.order, raw)
		dims[l] = size
		return l, nil
	}

	canonInputs := make([][]string, len(inputs))
	for g, group := range inputs {
		canon := make([]string, len(group))
		for p, raw := range group {
			l, err := lookup(raw, g, p)
			if err != nil {
				return nil, err
			}
			canon[p] = l
		}
		canonInputs[g] = canon
	}

	canonOutput := make([]string, len(output))
	for p, raw := range output {
		l, err := lookup(raw, -1, p)
		if err != nil {
			return nil, err
		}
		canonOutput[p] = l
	}

	return &Result[K]{
		Network: Network{
			Inputs: canonInputs,
			Output: canonOutput,
			Sizes:  dims,
		},
		Table: table,
	}, nil
}
