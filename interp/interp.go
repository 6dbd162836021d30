// Package interp runs short programs in an external interpreter such as
// python3. It wraps os/exec with a context-aware API: the program text is
// passed with -c, input is written to stdin and stdout/stderr are captured.
package interp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// DefaultCommand is the interpreter used when Config.Command is empty.
const DefaultCommand = "python3"

const waitDelay = 500 * time.Millisecond

// Config holds the interpreter configuration.
type Config struct {
	// Command is the name or path of the interpreter (default python3)
	Command string

	// Args are passed before -c (optional, e.g. "-I" for isolated mode)
	Args []string

	// WorkDir is the working directory for the process (optional)
	WorkDir string

	// Env specifies the environment in "KEY=value" format (optional)
	// If nil, the process inherits the parent environment
	Env []string

	// Timeout bounds every run (optional)
	// If zero, only the caller's context applies
	Timeout time.Duration
}

// Result holds the outcome of one run.
type Result struct {
	// Stdout contains the captured stdout
	Stdout []byte

	// Stderr contains the captured stderr
	Stderr []byte

	// ExitCode is the process exit code
	ExitCode int

	// Duration is the wall time of the run
	Duration time.Duration
}

// Interpreter runs programs with a resolved interpreter binary.
type Interpreter struct {
	path string
	cfg  Config
}

// New resolves cfg.Command through PATH and returns an Interpreter.
func New(cfg Config) (*Interpreter, error) {
	if cfg.Command == "" {
		cfg.Command = DefaultCommand
	}
	p, err := LookPath(cfg.Command)
	if err != nil {
		return nil, err
	}
	return &Interpreter{path: p, cfg: cfg}, nil
}

// Path returns the resolved interpreter path.
func (i *Interpreter) Path() string {
	return i.path
}

// Run executes `<interpreter> [args] -c program` with stdin attached.
//
// A non-zero exit code is not an error: the Result is returned with ExitCode
// set so the caller can inspect stderr. Only failures to run the process,
// timeouts and cancellation return an error.
func (i *Interpreter) Run(ctx context.Context, program string, stdin []byte) (*Result, error) {
	if program == "" {
		return nil, errors.New("program is required")
	}

	if i.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.cfg.Timeout)
		defer cancel()
	}

	args := append(append([]string(nil), i.cfg.Args...), "-c", program)
	cmd := exec.CommandContext(ctx, i.path, args...)
	// Children of the interpreter can hold stdout open after it is killed.
	cmd.WaitDelay = waitDelay

	if i.cfg.WorkDir != "" {
		cmd.Dir = i.cfg.WorkDir
	}
	if i.cfg.Env != nil {
		cmd.Env = i.cfg.Env
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if len(stdin) > 0 {
		cmd.Stdin = bytes.NewReader(stdin)
	}

	start := time.Now()
	err := cmd.Run()

	result := &Result{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Duration: time.Since(start),
	}

	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return result, fmt.Errorf("interpreter timed out after %v: %w", result.Duration.Round(time.Millisecond), ctx.Err())
		}
		if errors.Is(ctx.Err(), context.Canceled) {
			return result, fmt.Errorf("interpreter cancelled: %w", ctx.Err())
		}

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}

		return result, fmt.Errorf("interpreter execution failed: %w", err)
	}

	return result, nil
}

// Version runs `<interpreter> --version` and returns its trimmed output.
// Python 2 printed the version on stderr, so both streams are read.
func (i *Interpreter) Version(ctx context.Context) (string, error) {
	cmd := exec.CommandContext(ctx, i.path, "--version")
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("get %s version: %w", i.cfg.Command, err)
	}
	return strings.TrimSpace(string(out)), nil
}

// LookPath returns the full path to an interpreter in PATH.
func LookPath(name string) (string, error) {
	p, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("interpreter %q not found in PATH: %w", name, err)
	}
	return p, nil
}
