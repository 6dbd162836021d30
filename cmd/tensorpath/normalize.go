package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zero-day-ai/tensorpath"
	"github.com/zero-day-ai/tensorpath/label"
)

// legsDocument is the input of the normalize command: tensor legs as
// integers, with dimensions keyed by leg.
type legsDocument struct {
	Inputs [][]int        `json:"inputs"`
	Output []int          `json:"output"`
	Sizes  map[int]uint64 `json:"sizes"`
}

func newNormalizeCmd(a *app) *cobra.Command {
	var symbols bool

	cmd := &cobra.Command{
		Use:   "normalize [file]",
		Short: "Canonicalize the labels of a tensor network",
		Long: `Reads a network with integer legs from a JSON file or stdin:

  {"inputs": [[0, 1], [1, 2]], "output": [0, 2], "sizes": {"0": 2, "1": 3, "2": 4}}

and prints the canonical network accepted by "tensorpath optimize". Legs are
rendered as decimal strings, or with --symbols as einsum characters minted in
order of first appearance.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			var doc legsDocument
			if err := json.Unmarshal(data, &doc); err != nil {
				return fmt.Errorf("failed to parse network: %w", err)
			}

			var net label.Network
			if symbols {
				net, err = tensorpath.NormalizeSymbols(doc.Inputs, doc.Output, doc.Sizes)
			} else {
				net, err = tensorpath.NormalizeLegs(doc.Inputs, doc.Output, doc.Sizes)
			}
			if err != nil {
				return err
			}
			a.logger.Debug("normalized network", "tensors", net.Len(), "labels", len(net.Sizes))
			return writeJSON(cmd.OutOrStdout(), net)
		},
	}

	cmd.Flags().BoolVar(&symbols, "symbols", false, "mint single-character einsum symbols instead of decimal labels")
	return cmd
}
