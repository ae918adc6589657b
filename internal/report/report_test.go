package report

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cmdvrp/internal/model"
	"cmdvrp/internal/solver"
)

func tiny() *model.Model {
	b := model.NewBuilder("scf-route")
	x := b.Binary("x_0_1")
	f := b.NonNegative("f_0_1")
	y := b.Binary("y_0")
	b.AddConstraint("vehicle_cap_0_1", []model.Term{{Var: f, Coef: 1}, {Var: x, Coef: -10}}, model.LE, 0)
	b.AddConstraint("depot_cap_0", []model.Term{{Var: f, Coef: 1}, {Var: y, Coef: -10}}, model.LE, 0)
	b.AddConstraint("route_flow_1", []model.Term{{Var: f, Coef: 1}}, model.EQ, 3)
	b.AddConstraint("vehicle_cap_1_0", []model.Term{{Var: x, Coef: 1}}, model.LE, 1)
	return b.Build()
}

func TestSummarize(t *testing.T) {
	m := tiny()
	cases := []struct {
		name string
		sol  *solver.Solution
		want float64
	}{
		{"optimal", &solver.Solution{Status: solver.StatusOptimal, Objective: 7, Values: []float64{1, 3, 1}, Runtime: 1500 * time.Millisecond}, 7},
		{"timed out with incumbent", &solver.Solution{Status: solver.StatusTimedOut, Objective: 9, Values: []float64{1, 3, 1}}, 9},
		{"timed out without incumbent", &solver.Solution{Status: solver.StatusTimedOut, Objective: 9}, 0},
		{"infeasible", &solver.Solution{Status: solver.StatusInfeasible, Objective: 5}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Summarize(m, tc.sol)
			assert.Equal(t, 3, got.Variables)
			assert.Equal(t, 4, got.Constraints)
			assert.Equal(t, "scf-route", got.Variant)
			assert.Equal(t, tc.sol.Status, got.Status)
			assert.Equal(t, tc.want, got.Objective)
		})
	}
	assert.Equal(t, 1.5, Summarize(m, cases[0].sol).SolveSeconds)
	assert.Equal(t, solver.StatusError, Summarize(m, nil).Status)
	assert.True(t, Summarize(m, cases[0].sol).Integral)
	assert.False(t, Summarize(m, cases[2].sol).Integral)

	fractional := &solver.Solution{Status: solver.StatusOptimal, Objective: 3.5, Values: []float64{0.3, 3, 1}}
	got := Summarize(m, fractional)
	assert.Equal(t, solver.StatusOptimal, got.Status)
	assert.False(t, got.Integral)
}

func TestIntegral(t *testing.T) {
	m := tiny()
	assert.False(t, Integral(m, nil, IntegralTol))
	assert.False(t, Integral(m, &solver.Solution{Status: solver.StatusInfeasible}, IntegralTol))
	// f_0_1 is continuous and may take any value
	assert.True(t, Integral(m, &solver.Solution{Values: []float64{1, 2.5, 0}}, IntegralTol))
	assert.True(t, Integral(m, &solver.Solution{Values: []float64{1 - 1e-9, 2.5, 1e-9}}, IntegralTol))
	assert.False(t, Integral(m, &solver.Solution{Values: []float64{0.5, 2.5, 1}}, IntegralTol))
}

func TestDuals(t *testing.T) {
	m := tiny()
	got := Duals(m, &solver.Solution{Status: solver.StatusOptimal, Values: []float64{1, 3, 1}, Duals: []float64{0, -2, 1e-12, 0.5}}, 1e-9)
	assert.Equal(t, map[string]float64{"depot_cap_0": -2, "vehicle_cap_1_0": 0.5}, got)
	assert.Empty(t, Duals(m, &solver.Solution{Status: solver.StatusOptimal, Values: []float64{1, 3, 1}}, 1e-9))
}

func TestMetricsJSON(t *testing.T) {
	b, err := json.Marshal(Metrics{Variant: "cda", Status: solver.StatusOptimal, Variables: 3, Constraints: 2, Objective: 1.5, Integral: true, SolveSeconds: 0.25})
	require.NoError(t, err)
	assert.JSONEq(t, `{"variant":"cda","status":"optimal","n_variables":3,"n_constraints":2,"objective_value":1.5,"integral":true,"solve_time_seconds":0.25}`, string(b))
}

func TestFamilies(t *testing.T) {
	assert.Equal(t, []FamilyCount{
		{Family: "vehicle_cap", Rows: 2},
		{Family: "depot_cap", Rows: 1},
		{Family: "route_flow", Rows: 1},
	}, Families(tiny()))
	assert.Equal(t, "no_depot_arc", Family("no_depot_arc_0_1"))
	assert.Equal(t, "obj", Family("obj"))
	assert.Equal(t, "trailing_", Family("trailing_"))
	assert.Equal(t, map[string]int{"x": 1, "f": 1, "y": 1}, VarGroups(tiny()))
}

func TestNonzero(t *testing.T) {
	m := tiny()
	got := Nonzero(m, &solver.Solution{Status: solver.StatusOptimal, Values: []float64{1, 1e-12, 0.5}}, 1e-9)
	assert.Equal(t, map[string]float64{"x_0_1": 1, "y_0": 0.5}, got)
	assert.Empty(t, Nonzero(m, &solver.Solution{Status: solver.StatusInfeasible}, 1e-9))
}

func TestCaptureSysInfo(t *testing.T) {
	info := CaptureSysInfo()
	assert.NotEmpty(t, info.Platform)
	assert.NotEmpty(t, info.CPU)
	assert.Positive(t, info.Cores)
}
