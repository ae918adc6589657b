package solver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"cmdvrp/internal/model"
)

// Options control Run.
type Options struct {
	// TimeLimit is forwarded to the adapter; zero means none.
	TimeLimit time.Duration
	// Sensitivity requests duals and ranges when the adapter supports them.
	Sensitivity bool
	Logger      logrus.FieldLogger
}

// Solution is the read-only result of Run. Values and Ranges are indexed by
// model.Var, Duals by constraint position.
type Solution struct {
	Status    Status
	Objective float64
	Values    []float64
	Duals     []float64
	Ranges    []Range
	Runtime   time.Duration
	err       error
}

// Err returns a *SolverError when the solve produced no usable solution.
func (s *Solution) Err() error { return s.err }

// HasIncumbent reports whether variable values are available.
func (s *Solution) HasIncumbent() bool { return s.Values != nil }

// Value returns the value of v, 0 without an incumbent.
func (s *Solution) Value(v model.Var) float64 {
	if s.Values == nil {
		return 0
	}
	return s.Values[v]
}

// Run loads m into a, optimises it and collects the solution. The returned
// Solution is never nil; the error is the Solution's Err.
func Run(ctx context.Context, a Adapter, m *model.Model, opts Options) (*Solution, error) {
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	log = log.WithField("variant", m.Variant())

	vars, cons, err := load(a, m)
	if err != nil {
		return fail(StatusError, fmt.Errorf("loading model: %w", err), 0)
	}
	log.WithFields(logrus.Fields{"variables": len(vars), "constraints": len(cons)}).Debug("model loaded")

	start := time.Now()
	status, err := a.Optimize(ctx, opts.TimeLimit)
	runtime := time.Since(start)
	if err != nil && status == StatusOptimal {
		status = StatusError
	}
	log = log.WithFields(logrus.Fields{"status": status, "runtime": runtime})

	switch {
	case status == StatusOptimal:
	case status == StatusTimedOut && a.HasIncumbent():
		log.Info("time limit reached, keeping incumbent")
	default:
		log.WithError(err).Info("no solution")
		return fail(status, err, runtime)
	}

	sol := &Solution{Status: status, Runtime: runtime, Values: make([]float64, len(vars))}
	for i, h := range vars {
		if sol.Values[i], err = a.Value(h); err != nil {
			return fail(StatusError, fmt.Errorf("reading %s: %w", m.Variable(model.Var(i)).Name, err), runtime)
		}
	}
	if sol.Objective, err = a.ObjectiveValue(); err != nil {
		return fail(StatusError, fmt.Errorf("reading objective: %w", err), runtime)
	}
	if opts.Sensitivity {
		sol.Duals = duals(a, cons, log)
		sol.Ranges = ranges(a, vars, log)
	}
	return sol, nil
}

func fail(status Status, err error, runtime time.Duration) (*Solution, error) {
	serr := &SolverError{Status: status, Err: err}
	return &Solution{Status: status, Runtime: runtime, err: serr}, serr
}

func load(a Adapter, m *model.Model) ([]VarHandle, []ConstrHandle, error) {
	vars := make([]VarHandle, m.NumVars())
	for i, v := range m.Variables() {
		h, err := a.DeclareVariable(v.Name, v.Kind, v.Lower, v.Upper)
		if err != nil {
			return nil, nil, fmt.Errorf("variable %s: %w", v.Name, err)
		}
		vars[i] = h
	}
	translate := func(terms []model.Term) []Term {
		out := make([]Term, len(terms))
		for k, t := range terms {
			out[k] = Term{Var: vars[t.Var], Coef: t.Coef}
		}
		return out
	}
	cons := make([]ConstrHandle, m.NumConstraints())
	for i, c := range m.Constraints() {
		h, err := a.AddLinearConstraint(translate(c.Terms), c.Sense, c.RHS, c.Name)
		if err != nil {
			return nil, nil, fmt.Errorf("constraint %s: %w", c.Name, err)
		}
		cons[i] = h
	}
	obj, constant := m.Objective()
	if err := a.SetObjective(translate(obj), constant); err != nil {
		return nil, nil, fmt.Errorf("objective: %w", err)
	}
	return vars, cons, nil
}

func duals(a Adapter, cons []ConstrHandle, log logrus.FieldLogger) []float64 {
	out := make([]float64, len(cons))
	for i, h := range cons {
		d, err := a.Dual(h)
		if err != nil {
			if !errors.Is(err, ErrUnsupported) {
				log.WithError(err).Warn("duals unavailable")
			}
			return nil
		}
		out[i] = d
	}
	return out
}

func ranges(a Adapter, vars []VarHandle, log logrus.FieldLogger) []Range {
	out := make([]Range, len(vars))
	for i, h := range vars {
		r, err := a.SensitivityRange(h)
		if err != nil {
			if !errors.Is(err, ErrUnsupported) {
				log.WithError(err).Warn("sensitivity ranges unavailable")
			}
			return nil
		}
		out[i] = r
	}
	return out
}
