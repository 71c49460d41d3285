package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/meenmo/molattice/pricing"
)

func newPriceCmd(flags *globalFlags) *cobra.Command {
	var inputPath string
	cmd := &cobra.Command{
		Use:   "price",
		Short: "Price JSON requests from stdin or a file",
		Long: `Read a JSON request (or an array of requests), price it and write JSON to stdout.

  latticeprice price < input.json
  latticeprice price --input /path/to/input.json

Rates, dividend yields and volatilities are in percent.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stdout := cmd.OutOrStdout()
			f, logger, err := flags.settings(cmd.ErrOrStderr())
			if err != nil {
				return writeError(stdout, err.Error())
			}

			path := strings.TrimSpace(inputPath)
			stdin := cmd.InOrStdin()
			if path == "" {
				if f, ok := stdin.(*os.File); ok {
					if stat, err := f.Stat(); err == nil && (stat.Mode()&os.ModeCharDevice) != 0 {
						return cmd.Help()
					}
				}
			}
			inputBytes, err := readInput(stdin, path)
			if err != nil {
				return writeError(stdout, fmt.Sprintf("failed to read input: %v", err))
			}

			svc := pricing.NewService(pricing.WithLogger(logger), pricing.WithLimits(limits(f)))
			return price(cmd.Context(), svc, inputBytes, stdout)
		},
	}
	cmd.Flags().StringVar(&inputPath, "input", "", "JSON input path (optional; if set, ignores stdin)")
	return cmd
}

func price(ctx context.Context, svc *pricing.Service, input []byte, stdout io.Writer) error {
	trimmed := bytes.TrimSpace(input)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var reqs []pricing.Request
		if err := json.Unmarshal(trimmed, &reqs); err != nil {
			return writeError(stdout, fmt.Sprintf("failed to parse JSON input: %v", err))
		}
		return writeJSON(stdout, svc.PriceBatch(ctx, reqs))
	}

	var req pricing.Request
	if err := json.Unmarshal(trimmed, &req); err != nil {
		return writeError(stdout, fmt.Sprintf("failed to parse JSON input: %v", err))
	}
	res, err := svc.Price(ctx, req)
	if err != nil {
		return writeError(stdout, err.Error())
	}
	return writeJSON(stdout, res)
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path != "" {
		return os.ReadFile(path)
	}
	return io.ReadAll(stdin)
}

func writeJSON(stdout io.Writer, v any) error {
	outputBytes, err := json.Marshal(v)
	if err != nil {
		return writeError(stdout, err.Error())
	}
	fmt.Fprintln(stdout, string(outputBytes))
	return nil
}
