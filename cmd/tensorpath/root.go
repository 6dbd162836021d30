package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/zero-day-ai/tensorpath/config"
)

// app holds state shared by every subcommand.
type app struct {
	configPath string
	logLevel   string

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "tensorpath",
		Short: "Contraction path encodings and cotengra optimizers",
		Long: `tensorpath translates tensor contraction paths between the slot-reuse and
assign encodings, canonicalizes tensor network labels, and drives the cotengra
path optimizers through a Python interpreter or a remote optimizer server.

Settings are read from tensorpath.yaml (searched from the working directory
upwards, or given with --config) and overridden by TENSORPATH_* variables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadConfig(cmd)
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "configuration file or directory")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn or error")

	root.AddCommand(
		newConvertCmd(a),
		newNormalizeCmd(a),
		newOptimizeCmd(a),
		newServeCmd(a),
		newHealthCmd(a),
	)
	return root
}

// loadConfig resolves the configuration and builds the logger. Without
// --config a missing file is not an error.
func (a *app) loadConfig(cmd *cobra.Command) error {
	var cfg *config.Config
	if a.configPath != "" {
		var err error
		if cfg, err = config.Load(a.configPath); err != nil {
			return err
		}
	} else {
		var err error
		if cfg, err = config.LoadFromDir("."); err != nil {
			cfg = &config.Config{}
		}
	}

	cfg.ApplyEnv()
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	a.cfg = cfg
	a.logger = cfg.Logger(cmd.ErrOrStderr())
	return nil
}

// readInput returns the contents of the file named by args[0], or stdin when
// there is no argument or it is "-".
func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return data, nil
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}
