// Package report summarises built models and finished solves.
package report

import (
	"math"
	"strings"
	"unicode"

	"cmdvrp/internal/model"
	"cmdvrp/internal/solver"
)

// Metrics is the per-solve summary handed to callers and persisted with runs.
// Integral is false whenever a binary variable ended fractional; the objective
// of such a solution is only a lower bound on the integer optimum.
type Metrics struct {
	Variant      string        `json:"variant"`
	Status       solver.Status `json:"status"`
	Variables    int           `json:"n_variables"`
	Constraints  int           `json:"n_constraints"`
	Objective    float64       `json:"objective_value"`
	Integral     bool          `json:"integral"`
	SolveSeconds float64       `json:"solve_time_seconds"`
}

// IntegralTol is how far a binary value may sit from 0 or 1 and still count
// as integral.
const IntegralTol = 1e-6

// Summarize reports model size and the solve outcome. The objective is 0
// unless the solve left an incumbent.
func Summarize(m *model.Model, sol *solver.Solution) Metrics {
	out := Metrics{Variant: m.Variant(), Variables: m.NumVars(), Constraints: m.NumConstraints(), Status: solver.StatusError}
	if sol == nil {
		return out
	}
	out.Status = sol.Status
	out.SolveSeconds = sol.Runtime.Seconds()
	if sol.Status == solver.StatusOptimal || (sol.Status == solver.StatusTimedOut && sol.HasIncumbent()) {
		out.Objective = sol.Objective
		out.Integral = Integral(m, sol, IntegralTol)
	}
	return out
}

// Integral reports whether every binary variable of m sits within tol of 0
// or 1 in sol. A solution without values is not integral.
func Integral(m *model.Model, sol *solver.Solution, tol float64) bool {
	if sol == nil || !sol.HasIncumbent() {
		return false
	}
	for i, v := range m.Variables() {
		if v.Kind != model.Binary {
			continue
		}
		x := sol.Values[i]
		if math.Min(math.Abs(x), math.Abs(x-1)) > tol {
			return false
		}
	}
	return true
}

// FamilyCount is the number of rows a constraint family contributed.
type FamilyCount struct {
	Family string `json:"family"`
	Rows   int    `json:"rows"`
}

// Families groups constraint rows by family, the name without its trailing
// numeric index segments, in order of first appearance.
func Families(m *model.Model) []FamilyCount {
	var out []FamilyCount
	at := map[string]int{}
	for _, c := range m.Constraints() {
		f := Family(c.Name)
		k, ok := at[f]
		if !ok {
			k = len(out)
			at[f] = k
			out = append(out, FamilyCount{Family: f})
		}
		out[k].Rows++
	}
	return out
}

// Family strips trailing "_<digits>" segments from a constraint name.
func Family(name string) string {
	for {
		i := strings.LastIndexByte(name, '_')
		if i < 0 || i == len(name)-1 || !allDigits(name[i+1:]) {
			return name
		}
		name = name[:i]
	}
}

func allDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// VarGroups counts variables by name prefix (x, f, y, ...).
func VarGroups(m *model.Model) map[string]int {
	out := map[string]int{}
	for _, v := range m.Variables() {
		out[Family(v.Name)]++
	}
	return out
}

// Duals maps constraint names to dual values whose magnitude exceeds tol. It
// is empty unless the solve collected duals.
func Duals(m *model.Model, sol *solver.Solution, tol float64) map[string]float64 {
	out := map[string]float64{}
	if sol == nil || len(sol.Duals) != m.NumConstraints() {
		return out
	}
	for i, c := range m.Constraints() {
		if d := sol.Duals[i]; math.Abs(d) > tol {
			out[c.Name] = d
		}
	}
	return out
}

// Nonzero maps variable names to values whose magnitude exceeds tol.
func Nonzero(m *model.Model, sol *solver.Solution, tol float64) map[string]float64 {
	out := map[string]float64{}
	if sol == nil || !sol.HasIncumbent() {
		return out
	}
	for i, v := range m.Variables() {
		if val := sol.Values[i]; math.Abs(val) > tol {
			out[v.Name] = val
		}
	}
	return out
}
