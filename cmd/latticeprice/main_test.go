package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meenmo/molattice/config"
	"github.com/meenmo/molattice/pricing"
)

// These tests are sequential: run installs the numerical config process-wide.

const europeanCall = `{"instrument":"european","option_type":"CALL","spot":100,"strike":100,"maturity":1,"rate":5,"vol":20,"steps":400}`

func execute(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	t.Cleanup(func() { config.SetConfig(config.DefaultConfig) })
	var stdout, stderr bytes.Buffer
	code := run(args, strings.NewReader(stdin), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestPrice_Stdin(t *testing.T) {
	code, out, _ := execute(t, europeanCall, "price", "--log-level", "disabled")
	require.Equal(t, 0, code, out)

	var res pricing.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "european", res.Instrument)
	assert.InDelta(t, 10.45, res.NPV.InexactFloat64(), 0.02)
}

func TestPrice_InputFileBatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "batch.json")
	body := `[` + europeanCall + `,{"instrument":"asian"}]`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	code, out, _ := execute(t, "", "price", "--input", path, "--log-level", "disabled")
	require.Equal(t, 0, code, out)

	var res pricing.BatchResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Len(t, res.Results, 2)
	assert.Empty(t, res.Results[0].Error)
	assert.NotEmpty(t, res.Results[1].Error)
}

func TestPrice_Errors(t *testing.T) {
	cases := []struct {
		name   string
		stdin  string
		args   []string
		substr string
	}{
		{name: "bad json", stdin: `{"instrument":`, substr: "failed to parse JSON input"},
		{name: "bad batch", stdin: `[1,2]`, substr: "failed to parse JSON input"},
		{name: "unknown instrument", stdin: `{"instrument":"asian"}`, substr: "unknown instrument"},
		{name: "missing file", args: []string{"--input", "/nonexistent/input.json"}, substr: "failed to read input"},
		{name: "missing config", stdin: europeanCall, args: []string{"--config", "/nonexistent/config.yaml"}, substr: "config.Load"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			args := append([]string{"price", "--log-level", "disabled"}, tc.args...)
			code, out, _ := execute(t, tc.stdin, args...)
			assert.Equal(t, 1, code)

			var msg map[string]string
			require.NoError(t, json.Unmarshal([]byte(out), &msg))
			assert.Contains(t, msg["error"], tc.substr)
		})
	}
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := "numerics:\n  time_tolerance: 1e-8\n  probability_tolerance: 1e-9\n  state_price_tolerance: 1e-9\n  parallel_threshold: 16\nlog:\n  level: error\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	code, out, stderr := execute(t, europeanCall, "price", "--config", path)
	require.Equal(t, 0, code, out)
	assert.Empty(t, stderr)
	assert.Equal(t, 16, config.GetConfig().ParallelThreshold)
}

func TestVersionAndUsage(t *testing.T) {
	code, out, _ := execute(t, "", "version")
	assert.Equal(t, 0, code)
	assert.Equal(t, "latticeprice version dev\n", out)

	code, _, stderr := execute(t, "", "bogus")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "unknown command")
}

func TestServe_StopsOnCancel(t *testing.T) {
	t.Cleanup(func() { config.SetConfig(config.DefaultConfig) })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var stdout, stderr bytes.Buffer
	code := runContext(ctx, []string{"serve", "--addr", "127.0.0.1:0", "--log-level", "disabled"}, strings.NewReader(""), &stdout, &stderr)
	assert.Equal(t, 0, code, stderr.String())
}
