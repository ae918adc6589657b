package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var toyPath = filepath.Join("..", "..", "internal", "instance", "testdata", "toy.dat")

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out, _, err := runWithStderr(t, args...)
	return out, err
}

func runWithStderr(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

// twoDepotsDat places each customer one unit from its own depot and nine
// from the other.
const twoDepotsDat = `2
2
0 0
10 0
1 0
9 0
10
10
10
5
5
100
100
0
`

func writeTwoDepots(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "two.dat")
	require.NoError(t, os.WriteFile(path, []byte(twoDepotsDat), 0o644))
	return path
}

func TestBuildCommand(t *testing.T) {
	out, err := run(t, "build", "--variant", "scf-hub", toyPath)
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "scf-hub", got["variant"])
	assert.Equal(t, "toy", got["instance"])
}

func TestSolveCommand(t *testing.T) {
	out, err := run(t, "solve", "--variant", "scf-route", toyPath)
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "optimal", got["status"])
	assert.Contains(t, got, "objective_value")
	assert.Equal(t, true, got["integral"])
}

func TestSolveCommandFlagsFractionalRelaxation(t *testing.T) {
	out, stderr, err := runWithStderr(t, "solve", "--variant", "scf-route", writeTwoDepots(t))
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "optimal", got["status"])
	assert.Equal(t, false, got["integral"])
	assert.InDelta(t, 102.0, got["objective_value"], 1e-6)
	assert.Contains(t, stderr, "lower bound")
}

func TestSolveCommandSensitivity(t *testing.T) {
	out, err := run(t, "solve", "--sensitivity", "--variant", "scf-route", writeTwoDepots(t))
	require.NoError(t, err)
	var got struct {
		Metrics map[string]any     `json:"metrics"`
		Duals   map[string]float64 `json:"duals"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "optimal", got.Metrics["status"])
	assert.NotEmpty(t, got.Duals)
}

func TestSolveCommandMaxNodes(t *testing.T) {
	t.Setenv("SOLVER_MAX_NODES", "3")
	_, err := run(t, "solve", writeTwoDepots(t))
	assert.Error(t, err)
}

func TestExportCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "toy.lp")
	_, err := run(t, "export", "--variant", "cda", "-o", path, toyPath)
	require.NoError(t, err)
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(b), `\ Problem: cda`))
}

func TestCommandErrors(t *testing.T) {
	_, err := run(t, "build", "--variant", "tsp", toyPath)
	assert.Error(t, err)
	_, err = run(t, "solve", filepath.Join(t.TempDir(), "missing.dat"))
	assert.Error(t, err)
	_, err = run(t, "build")
	assert.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "cmdvrp "))
}
