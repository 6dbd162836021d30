// Package label canonicalizes tensor-network index labels before they are
// handed to an external contraction optimizer.
//
// Callers describe a network with arbitrary comparable identifiers: one group
// of identifiers per tensor (its legs), an ordered list of exposed (output)
// identifiers and a dimension for every identifier. Normalize rewrites every
// identifier to a canonical string label, the same raw identifier always
// receiving the same label, and builds the deduplicated dimension table keyed
// by those labels.
//
//	res, err := label.Normalize(
//		[][]int{{0, 1, 3, 2}, {5, 4, 3, 2}, {5, 4, 6, 7}},
//		[]int{6, 7},
//		map[int]uint64{0: 4, 1: 5, 2: 6, 3: 7, 4: 8, 5: 9, 6: 10, 7: 11},
//	)
//	// res.Network.Inputs == [["0" "1" "3" "2"] ["5" "4" "3" "2"] ["5" "4" "6" "7"]]
//	// res.Network.Output == ["6" "7"]
//
// The default minting scheme renders each identifier with fmt. Symbols mints
// single-rune einsum symbols instead.
package label
