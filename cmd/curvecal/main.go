package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/meenmo/mocurve/cmd/curvecal/internal/job"
	"github.com/meenmo/mocurve/config"
	"github.com/meenmo/mocurve/curve"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// exitCode is returned by a command that has already written its JSON result.
type exitCode int

func (e exitCode) Error() string { return fmt.Sprintf("exit status %d", int(e)) }

type options struct {
	configPath string
	logLevel   string
	inputPath  string
	plot       bool
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if args == nil {
		// cobra falls back to os.Args on a nil slice.
		args = []string{}
	}
	root := newRootCmd(stdin, stdout, stderr)
	root.SetArgs(args)
	if err := root.ExecuteContext(context.Background()); err != nil {
		var code exitCode
		if errors.As(err, &code) {
			return int(code)
		}
		fmt.Fprintln(stderr, "Error:", err)
		return 2
	}
	return 0
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "curvecal",
		Short:         "bootstrap interest rate and hazard rate curves from market quotes",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprint(cmd.ErrOrStderr(), cmd.UsageString())
			return exitCode(2)
		},
	}
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "solver config file (yaml or toml)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&opts.inputPath, "input", "", "JSON input path (optional; if set, ignores stdin)")

	buildCmd := &cobra.Command{
		Use:   "build",
		Short: "calibrate the base curve",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return execute(cmd, opts, func(j *job.Job) (any, error) {
				out, c, err := j.Build()
				if err != nil {
					return nil, err
				}
				if opts.plot {
					plot(cmd.ErrOrStderr(), c)
				}
				return out, nil
			})
		},
	}
	buildCmd.Flags().BoolVar(&opts.plot, "plot", false, "plot calibrated node values to stderr")

	bumpCmd := &cobra.Command{
		Use:   "bump",
		Short: "calibrate one curve per tenor with only that tenor's quote bumped",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return execute(cmd, opts, func(j *job.Job) (any, error) {
				return j.Bump(cmd.Context())
			})
		},
	}

	riskCmd := &cobra.Command{
		Use:   "risk",
		Short: "bucketed tenor sensitivities of an instrument measure",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return execute(cmd, opts, func(j *job.Job) (any, error) {
				return j.Risk(cmd.Context())
			})
		},
	}

	root.AddCommand(buildCmd, bumpCmd, riskCmd)
	return root
}

// execute reads the JSON input, runs fn and writes its result (or an error
// object) to stdout as JSON.
func execute(cmd *cobra.Command, opts *options, fn func(*job.Job) (any, error)) error {
	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return writeError(stdout, err.Error())
	}
	if opts.logLevel != "" {
		cfg.LogLevel = strings.ToLower(opts.logLevel)
	}
	if err := cfg.Validate(); err != nil {
		return writeError(stdout, err.Error())
	}
	logger, err := config.NewLogger(cfg.LogLevel, stderr)
	if err != nil {
		return writeError(stdout, err.Error())
	}

	path := strings.TrimSpace(opts.inputPath)
	stdin := cmd.InOrStdin()
	if path == "" {
		if f, ok := stdin.(*os.File); ok {
			if stat, err := f.Stat(); err == nil && (stat.Mode()&os.ModeCharDevice) != 0 {
				fmt.Fprint(stderr, cmd.UsageString())
				return exitCode(2)
			}
		}
	}
	inputBytes, err := readInput(stdin, path)
	if err != nil {
		return writeError(stdout, fmt.Sprintf("failed to read input: %v", err))
	}
	var input job.Input
	if err := json.Unmarshal(inputBytes, &input); err != nil {
		return writeError(stdout, fmt.Sprintf("failed to parse JSON input: %v", err))
	}

	j, err := job.Prepare(input, cfg, logger)
	if err != nil {
		return writeError(stdout, err.Error())
	}
	out, err := fn(j)
	if err != nil {
		logger.Error("curve calibration failed", slog.String("command", cmd.Name()), slog.Any("error", err))
		return writeError(stdout, err.Error())
	}

	outputBytes, _ := json.Marshal(out)
	fmt.Fprintln(stdout, string(outputBytes))
	return nil
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path != "" {
		return os.ReadFile(path)
	}
	return io.ReadAll(stdin)
}

func writeError(stdout io.Writer, msg string) error {
	outputBytes, _ := json.Marshal(struct {
		Error string `json:"error"`
	}{msg})
	fmt.Fprintln(stdout, string(outputBytes))
	return exitCode(1)
}

func plot(w io.Writer, c *curve.Curve) {
	data := c.NodeValues()
	for i := range data {
		data[i] *= 100
	}
	if len(data) == 1 {
		data = append(data, data[0])
	}
	caption := fmt.Sprintf("%s nodes (%%), %s .. %s", c.Kind(), c.NodeLabel(0), c.NodeLabel(c.NodeCount()-1))
	graph := asciigraph.Plot(data,
		asciigraph.Height(10),
		asciigraph.Width(60),
		asciigraph.Caption(caption),
	)
	fmt.Fprintln(w, graph)
}
