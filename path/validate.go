package path

import (
	"errors"
	"fmt"
)

// ErrMalformed is matched by every *MalformedError.
var ErrMalformed = errors.New("malformed path")

// MalformedError describes the first violation found in a path.
type MalformedError struct {
	// Encoding is the encoding the path was validated against.
	Encoding Encoding

	// Step is the index of the offending step, or -1 when the path as a
	// whole is wrong (leaf count, length).
	Step int

	// Left and Right are the offending step's operands (zero when Step is -1).
	Left, Right int

	// Reason is a short description of the violation.
	Reason string
}

// Error implements the error interface.
func (e *MalformedError) Error() string {
	if e.Step < 0 {
		return fmt.Sprintf("malformed %s path: %s", e.Encoding, e.Reason)
	}
	return fmt.Sprintf("malformed %s path: step %d (%d, %d): %s",
		e.Encoding, e.Step, e.Left, e.Right, e.Reason)
}

// Is reports whether target is ErrMalformed.
func (e *MalformedError) Is(target error) bool {
	return target == ErrMalformed
}

// Validate checks that p is a well-formed path over n leaves in the given
// encoding: exactly n-1 steps, every operand produced strictly before it is
// used, and every node consumed at most once.
func Validate(p Path, n int, enc Encoding) error {
	if err := validateShape(p, n, enc); err != nil {
		return err
	}
	switch enc {
	case Assign:
		return validateAssign(p, n)
	case SlotReuse:
		return validateSlotReuse(p, n)
	default:
		return fmt.Errorf("validate path: unknown encoding %d", int(enc))
	}
}

func validateShape(p Path, n int, enc Encoding) error {
	if n < 1 {
		return &MalformedError{Encoding: enc, Step: -1,
			Reason: fmt.Sprintf("leaf count must be positive, got %d", n)}
	}
	if len(p) != n-1 {
		return &MalformedError{Encoding: enc, Step: -1,
			Reason: fmt.Sprintf("expected %d steps for %d leaves, got %d", n-1, n, len(p))}
	}
	return nil
}

// validateAssign walks an assign path. At step k the identifiers 0..n+k-1
// exist; each may be consumed once.
func validateAssign(p Path, n int) error {
	consumed := make([]bool, 2*n-1)
	for k, s := range p {
		bad := func(reason string) error {
			return &MalformedError{Encoding: Assign, Step: k, Left: s.Left, Right: s.Right, Reason: reason}
		}
		if s.Left == s.Right {
			return bad("operands are the same node")
		}
		for _, id := range [2]int{s.Left, s.Right} {
			if id < 0 || id >= n+k {
				return bad(fmt.Sprintf("identifier %d is not defined before step %d", id, k))
			}
			if consumed[id] {
				return bad(fmt.Sprintf("identifier %d was already consumed", id))
			}
		}
		consumed[s.Left] = true
		consumed[s.Right] = true
	}
	return nil
}

// validateSlotReuse walks a slot-reuse path. Slots 0..n-1 start live; the
// right operand of every step is retired.
func validateSlotReuse(p Path, n int) error {
	retired := make([]bool, n)
	for k, s := range p {
		bad := func(reason string) error {
			return &MalformedError{Encoding: SlotReuse, Step: k, Left: s.Left, Right: s.Right, Reason: reason}
		}
		if s.Left == s.Right {
			return bad("operands are the same slot")
		}
		for _, id := range [2]int{s.Left, s.Right} {
			if id < 0 || id >= n {
				return bad(fmt.Sprintf("slot %d is out of range [0, %d)", id, n))
			}
			if retired[id] {
				return bad(fmt.Sprintf("slot %d was already retired", id))
			}
		}
		retired[s.Right] = true
	}
	return nil
}
