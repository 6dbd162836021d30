package path

import "fmt"

// ToSlotReuse converts an assign-encoded path over n leaves into the
// slot-reuse encoding. The input is validated first and never modified.
func ToSlotReuse(p Path, n int) (Path, error) {
	if err := Validate(p, n, Assign); err != nil {
		return nil, err
	}
	return assignToSlotReuse(p, n), nil
}

// ToAssign converts a slot-reuse path over n leaves into the assign encoding.
// The input is validated first and never modified.
func ToAssign(p Path, n int) (Path, error) {
	if err := Validate(p, n, SlotReuse); err != nil {
		return nil, err
	}
	return slotReuseToAssign(p, n), nil
}

// Convert translates p from one encoding to another. Converting to the same
// encoding validates p and returns a copy.
func Convert(p Path, n int, from, to Encoding) (Path, error) {
	switch {
	case from == to:
		if err := Validate(p, n, from); err != nil {
			return nil, err
		}
		return p.Clone(), nil
	case from == Assign && to == SlotReuse:
		return ToSlotReuse(p, n)
	case from == SlotReuse && to == Assign:
		return ToAssign(p, n)
	default:
		return nil, fmt.Errorf("convert path: unsupported encodings %s -> %s", from, to)
	}
}

// assignToSlotReuse maps every assign id n+k to the slot that holds the
// result of step k, which is the resolved left operand of that step.
func assignToSlotReuse(p Path, n int) Path {
	slot := make(map[int]int, len(p))
	out := make(Path, len(p))
	for k, s := range p {
		left := resolve(slot, s.Left)
		right := resolve(slot, s.Right)
		slot[n+k] = left
		out[k] = Step{Left: left, Right: right}
	}
	return out
}

// slotReuseToAssign tracks, per raw slot written as a left operand, the
// assign id of its latest occupant. The key is the unresolved left slot.
func slotReuseToAssign(p Path, n int) Path {
	occupant := make(map[int]int, len(p))
	out := make(Path, len(p))
	for k, s := range p {
		left := resolve(occupant, s.Left)
		right := resolve(occupant, s.Right)
		occupant[s.Left] = n + k
		out[k] = Step{Left: left, Right: right}
	}
	return out
}

func resolve(table map[int]int, id int) int {
	if v, ok := table[id]; ok {
		return v
	}
	return id
}
