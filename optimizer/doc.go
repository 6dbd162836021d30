// Package optimizer defines the boundary between tensorpath and the external
// contraction-order optimizer.
//
// The optimizer is an opaque collaborator: it receives a canonical network
// (see package label) plus operation parameters and returns a merge path in
// the assign encoding (see package path). Every backend implements the single
// Optimizer interface:
//
//   - cotengra.Bridge runs cotengra in a Python interpreter
//   - remote.Client forwards requests to a tensorpath gRPC server
//   - cache.Cache memoizes deterministic requests in Redis
//   - Instrument wraps any backend with OpenTelemetry spans and metrics
//
// # Operations
//
// Op selects what the optimizer does with the request:
//
//   - OpFromPath builds a tree from an existing path and reconfigures
//     subtrees of at most SubtreeSize leaves
//   - OpGreedy builds a tree greedily
//   - OpOptimizedGreedy builds greedily, then reconfigures subtrees
//   - OpAnneal runs simulated annealing over a greedy tree
//   - OpTemper runs parallel tempering over a greedy tree
//   - OpHyper runs a hyper-optimizer search
//
// # Errors
//
// Backends report failures as *Error values wrapping ErrUnavailable,
// ErrRejected or ErrFailed. Callers receive these errors unchanged; nothing
// in this module retries an optimizer call.
package optimizer
