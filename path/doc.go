// Package path converts binary merge paths between their two encodings.
//
// A merge path reduces n leaves to a single result through n-1 pairwise
// merge steps. The same path can be written in two ways:
//
//   - Assign encoding (SSA style): step k produces the fresh identifier n+k.
//     Identifiers are never reused.
//   - Slot-reuse encoding (replace style): step k stores its result under the
//     left operand's identifier and permanently retires the right one.
//
// External optimizers such as cotengra speak the assign encoding while the
// rest of the system uses slot-reuse paths, so every path crossing that
// boundary passes through ToAssign or ToSlotReuse.
//
// # Validation
//
// Both converters validate their input before transforming it. A path that
// references an identifier before it exists, consumes a node twice, merges a
// node with itself or has a length other than n-1 is rejected with a
// *MalformedError that matches ErrMalformed:
//
//	out, err := path.ToSlotReuse(ssa, n)
//	if errors.Is(err, path.ErrMalformed) {
//		// the optimizer or the caller produced an invalid path
//	}
//
// # Example
//
//	ssa := path.Path{{0, 3}, {4, 1}, {2, 5}}
//	replace, _ := path.ToSlotReuse(ssa, 4)
//	fmt.Println(replace) // [(0, 3), (0, 1), (2, 0)]
package path
