package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zero-day-ai/tensorpath/path"
)

func newConvertCmd(a *app) *cobra.Command {
	var (
		from   string
		to     string
		leaves int
	)

	cmd := &cobra.Command{
		Use:   "convert [path]",
		Short: "Convert a contraction path between encodings",
		Long: `Reads a path written as a JSON array of pairs, from the argument or stdin,
validates it and prints it in the target encoding.

The leaf count defaults to one more than the number of steps.

Example:
  tensorpath convert --from slot-reuse --to assign '[[0,3],[0,1],[2,0]]'
  [[0,3],[4,1],[2,5]]`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fromEnc, err := path.ParseEncoding(from)
			if err != nil {
				return err
			}
			toEnc, err := path.ParseEncoding(to)
			if err != nil {
				return err
			}

			var data []byte
			if len(args) == 1 && strings.HasPrefix(strings.TrimSpace(args[0]), "[") {
				data = []byte(args[0])
			} else if data, err = readInput(cmd, args); err != nil {
				return err
			}

			var p path.Path
			if err := json.Unmarshal(data, &p); err != nil {
				return fmt.Errorf("failed to parse path: %w", err)
			}

			n := leaves
			if n <= 0 {
				n = len(p) + 1
			}
			out, err := path.Convert(p, n, fromEnc, toEnc)
			if err != nil {
				return err
			}
			a.logger.Debug("converted path", "from", fromEnc, "to", toEnc, "leaves", n)
			if out == nil {
				out = path.Path{}
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}

	cmd.Flags().StringVar(&from, "from", "slot-reuse", "encoding of the input path: slot-reuse or assign")
	cmd.Flags().StringVar(&to, "to", "assign", "encoding of the output path: slot-reuse or assign")
	cmd.Flags().IntVarP(&leaves, "leaves", "n", 0, "number of input tensors (default: steps + 1)")
	return cmd
}
