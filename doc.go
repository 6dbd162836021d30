// Package tensorpath plans tensor network contractions with cotengra.
//
// A contraction path is a sequence of pairwise merges that reduces n tensors
// to one. Paths come in two encodings (see package path): the assign
// encoding cotengra uses, where step k produces the new id n+k, and the
// slot-reuse encoding many einsum libraries use, where the result replaces
// the left operand. Client accepts and returns paths in the caller's
// encoding and talks to its optimizer in the assign encoding.
//
// Networks cross the optimizer boundary with canonical string labels (see
// package label). NormalizeLegs and NormalizeSymbols build them from raw
// identifiers.
//
// # Quick Start
//
//	bridge, err := cotengra.New(interp.Config{})
//	if err != nil {
//		return err
//	}
//	client, err := tensorpath.New(bridge)
//	if err != nil {
//		return err
//	}
//
//	net, err := tensorpath.NormalizeLegs(
//		[][]int{{0, 1}, {1, 2}, {2, 3}},
//		[]int{0, 3},
//		map[int]uint64{0: 2, 1: 8, 2: 8, 3: 2},
//	)
//	if err != nil {
//		return err
//	}
//	p, err := client.Greedy(ctx, net) // slot-reuse encoded
//
// # Optimizers
//
// Any optimizer.Optimizer can back a Client:
//
//   - optimizer/cotengra runs cotengra in a local Python interpreter
//   - optimizer/remote calls a tensorpath server over gRPC
//   - optimizer/cache memoizes another optimizer in Redis
//
// Errors reported by the optimizer are returned unchanged; check them with
// errors.Is against optimizer.ErrUnavailable, ErrRejected and ErrFailed.
// Malformed caller input is reported as *Error wrapping path.ErrMalformed or
// a label error.
package tensorpath
