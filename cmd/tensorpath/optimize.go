package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/zero-day-ai/tensorpath"
	"github.com/zero-day-ai/tensorpath/label"
	"github.com/zero-day-ai/tensorpath/optimizer"
	"github.com/zero-day-ai/tensorpath/path"
)

type optimizeFlags struct {
	op           string
	startPath    string
	pathEncoding string
	output       string
	subtreeSize  int
	steps        int
	iterations   int
	seed         uint64
	methods      []string
	maxTime      time.Duration
	parallel     bool
	remote       string
	discover     bool
}

func newOptimizeCmd(a *app) *cobra.Command {
	var f optimizeFlags

	cmd := &cobra.Command{
		Use:   "optimize [file]",
		Short: "Find a contraction path for a canonical network",
		Long: `Reads a canonical network from a JSON file or stdin, as printed by
"tensorpath normalize":

  {"inputs": [["a", "b"], ["b", "c"]], "output": ["a", "c"], "size_dict": {"a": 2, "b": 3, "c": 4}}

runs the selected optimizer and prints the path.

Operations:
  from_path         refine --path by subtree reconfiguration
  greedy            cotengra's greedy heuristic
  optimized_greedy  greedy followed by subtree reconfiguration
  anneal            simulated annealing from a greedy path
  temper            parallel tempering from a greedy path
  hyper             cotengra's hyper-optimizer

The optimizer runs locally through Python unless --remote, remote.endpoint or
--discover select an optimizer server.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			op, err := optimizer.ParseOp(f.op)
			if err != nil {
				return err
			}

			data, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			var net label.Network
			if err := json.Unmarshal(data, &net); err != nil {
				return fmt.Errorf("failed to parse network: %w", err)
			}

			outEnc := a.cfg.Defaults.GetOutputEncoding()
			if f.output != "" {
				if outEnc, err = path.ParseEncoding(f.output); err != nil {
					return err
				}
			}
			subtree := a.cfg.Defaults.GetSubtreeSize()
			if f.subtreeSize > 0 {
				subtree = f.subtreeSize
			}
			var seed *uint64
			if cmd.Flags().Changed("seed") {
				seed = optimizer.Seed(f.seed)
			}

			ctx := cmd.Context()
			b, err := a.openBackend(ctx, f.remote, f.discover)
			if err != nil {
				return err
			}
			defer b.Close()

			client, err := tensorpath.New(b.opt,
				tensorpath.WithLogger(a.logger),
				tensorpath.WithOutputEncoding(outEnc),
				tensorpath.WithSubtreeSize(subtree),
			)
			if err != nil {
				return err
			}

			var p path.Path
			switch op {
			case optimizer.OpFromPath:
				if f.startPath == "" {
					return errors.New("from_path requires --path")
				}
				inEnc, err := path.ParseEncoding(f.pathEncoding)
				if err != nil {
					return err
				}
				var start path.Path
				if err := json.Unmarshal([]byte(f.startPath), &start); err != nil {
					return fmt.Errorf("failed to parse --path: %w", err)
				}
				p, err = client.FromPath(ctx, net, start, inEnc)
				if err != nil {
					return err
				}
			case optimizer.OpGreedy:
				p, err = client.Greedy(ctx, net)
			case optimizer.OpOptimizedGreedy:
				p, err = client.OptimizedGreedy(ctx, net)
			case optimizer.OpAnneal:
				p, err = client.Anneal(ctx, net, tensorpath.AnnealOptions{Steps: f.steps, Iterations: f.iterations, Seed: seed})
			case optimizer.OpTemper:
				p, err = client.Temper(ctx, net, tensorpath.TemperOptions{Iterations: f.iterations, Seed: seed})
			case optimizer.OpHyper:
				p, err = client.HyperSearch(ctx, net, tensorpath.HyperOptions{
					Methods:  f.methods,
					MaxTime:  f.maxTime,
					Parallel: f.parallel,
					Seed:     seed,
				})
			}
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), p)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.op, "op", string(optimizer.OpGreedy), "optimizer operation")
	flags.StringVar(&f.startPath, "path", "", "starting path for from_path, as a JSON array of pairs")
	flags.StringVar(&f.pathEncoding, "path-encoding", "slot-reuse", "encoding of --path")
	flags.StringVarP(&f.output, "output-encoding", "o", "", "encoding of the printed path (default from configuration, else slot-reuse)")
	flags.IntVar(&f.subtreeSize, "subtree-size", 0, "subtree reconfiguration window (default from configuration, else 8)")
	flags.IntVar(&f.steps, "steps", 0, "temperature steps for anneal")
	flags.IntVar(&f.iterations, "iterations", 0, "iterations for anneal and temper")
	flags.Uint64Var(&f.seed, "seed", 0, "random seed for anneal, temper and hyper")
	flags.StringSliceVar(&f.methods, "methods", nil, "tree builders sampled by hyper")
	flags.DurationVar(&f.maxTime, "max-time", 0, "time limit for hyper")
	flags.BoolVar(&f.parallel, "parallel", false, "let hyper search with multiple workers")
	flags.StringVar(&f.remote, "remote", "", "optimizer server to use, host:port")
	flags.BoolVar(&f.discover, "discover", false, "find an optimizer server through the registry")
	return cmd
}
