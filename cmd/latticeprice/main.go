package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/meenmo/molattice/config"
	"github.com/meenmo/molattice/internal/logging"
	"github.com/meenmo/molattice/pricing"
)

// Version is overridden at build time with -ldflags "-X main.Version=...".
var Version = "dev"

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// exitError carries a process exit code through cobra.
type exitError struct{ code int }

func (e exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	return runContext(context.Background(), args, stdin, stdout, stderr)
}

func runContext(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	root := newRootCmd(stdin, stdout, stderr)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		var exit exitError
		if errors.As(err, &exit) {
			return exit.code
		}
		fmt.Fprintln(stderr, err)
		return 2
	}
	return 0
}

type globalFlags struct {
	configPath string
	logLevel   string
	logFormat  string
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:           "latticeprice",
		Short:         "Price options and swaptions on lattices and finite difference grids",
		Long:          "latticeprice reads JSON valuation requests and prices them by backward induction on binomial, trinomial and Hull-White trees or on a Crank-Nicolson grid.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "YAML config file (optional)")
	pf.StringVar(&flags.logLevel, "log-level", "", "debug, info, warn, error (overrides config)")
	pf.StringVar(&flags.logFormat, "log-format", "", "json or console (overrides config)")

	root.AddCommand(
		newPriceCmd(flags),
		newServeCmd(flags),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of latticeprice",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "latticeprice version %s\n", Version)
		},
	}
}

// settings resolves the config file, the environment and the flags, and
// installs the numerical settings process-wide.
func (g *globalFlags) settings(stderr io.Writer) (config.File, zerolog.Logger, error) {
	f := config.DefaultFile()
	if g.configPath != "" {
		var err error
		if f, err = config.Load(g.configPath); err != nil {
			return f, zerolog.Nop(), err
		}
	}
	f, err := config.LoadEnv(f)
	if err != nil {
		return f, zerolog.Nop(), err
	}
	if g.logLevel != "" {
		f.Log.Level = g.logLevel
	}
	if g.logFormat != "" {
		f.Log.Format = g.logFormat
	}
	config.SetConfig(f.Numerics)
	return f, logging.New(stderr, f.Log.Level, f.Log.Format), nil
}

func limits(f config.File) pricing.Limits {
	return pricing.Limits{
		TreeSteps: f.Limits.MaxTreeSteps,
		FDPoints:  f.Limits.MaxFDPoints,
		FDSteps:   f.Limits.MaxFDSteps,
	}
}

func writeError(stdout io.Writer, msg string) error {
	outputBytes, _ := json.Marshal(map[string]string{"error": msg})
	fmt.Fprintln(stdout, string(outputBytes))
	return exitError{code: 1}
}
