// Package simplex solves the linear relaxation of a model with gonum's
// dense simplex method. Binary variables are relaxed to [0,1]; Integral
// reports whether the relaxation happened to land on a 0/1 point. Duals come
// from a second solve of the dual program.
package simplex

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"cmdvrp/internal/model"
	"cmdvrp/internal/solver"
)

const (
	// DefaultMaxCells bounds rows*columns of the dense standard-form matrix.
	DefaultMaxCells = 4_000_000
	feasTol         = 1e-9
	integralTol     = 1e-6
)

// ErrTooLarge is returned when the standard form exceeds MaxCells.
var ErrTooLarge = errors.New("simplex: model too large for dense simplex")

// slots bounds the dense solves running at once. A solve abandoned at its
// time limit keeps its slot until gonum returns.
var slots = make(chan struct{}, max(runtime.GOMAXPROCS(0), 1))

type variable struct {
	name   string
	kind   model.VarKind
	lb, ub float64
}

type row struct {
	name  string
	terms []solver.Term
	sense model.Sense
	rhs   float64
}

// Adapter implements solver.Adapter. It is not safe for concurrent use.
type Adapter struct {
	MaxCells int
	Tol      float64

	vars     []variable
	rows     []row
	obj      []solver.Term
	constant float64

	x        []float64
	objValue float64
	solved   bool

	sf      *standard
	duals   []float64
	dualErr error
}

var _ solver.Adapter = (*Adapter)(nil)

func New() *Adapter { return &Adapter{MaxCells: DefaultMaxCells, Tol: 1e-10} }

func (a *Adapter) DeclareVariable(name string, kind model.VarKind, lb, ub float64) (solver.VarHandle, error) {
	if kind == model.Binary {
		lb, ub = 0, 1
	}
	if math.IsInf(lb, -1) || math.IsNaN(lb) || math.IsNaN(ub) {
		return 0, fmt.Errorf("simplex: variable %s needs a finite lower bound", name)
	}
	if lb > ub {
		return 0, fmt.Errorf("simplex: variable %s has empty domain [%g,%g]", name, lb, ub)
	}
	a.vars = append(a.vars, variable{name: name, kind: kind, lb: lb, ub: ub})
	return solver.VarHandle(len(a.vars) - 1), nil
}

func (a *Adapter) AddLinearConstraint(terms []solver.Term, sense model.Sense, rhs float64, name string) (solver.ConstrHandle, error) {
	for _, t := range terms {
		if int(t.Var) < 0 || int(t.Var) >= len(a.vars) {
			return 0, fmt.Errorf("simplex: constraint %s references unknown variable %d", name, t.Var)
		}
	}
	a.rows = append(a.rows, row{name: name, terms: append([]solver.Term(nil), terms...), sense: sense, rhs: rhs})
	return solver.ConstrHandle(len(a.rows) - 1), nil
}

func (a *Adapter) SetObjective(terms []solver.Term, constant float64) error {
	for _, t := range terms {
		if int(t.Var) < 0 || int(t.Var) >= len(a.vars) {
			return fmt.Errorf("simplex: objective references unknown variable %d", t.Var)
		}
	}
	a.obj, a.constant = append([]solver.Term(nil), terms...), constant
	return nil
}

type result struct {
	status solver.Status
	x      []float64
	err    error
}

// Optimize solves the relaxation. The dense simplex cannot be interrupted, so
// when ctx or timeLimit expire first the solve is abandoned and StatusTimedOut
// is reported without an incumbent. Time spent waiting for a free solve slot
// counts against timeLimit.
func (a *Adapter) Optimize(ctx context.Context, timeLimit time.Duration) (solver.Status, error) {
	a.solved, a.x, a.sf, a.duals, a.dualErr = false, nil, nil, nil, nil
	if err := ctx.Err(); err != nil {
		return ctxStatus(err), err
	}
	sf, err := a.standardForm()
	if err != nil {
		return solver.StatusError, err
	}
	if sf.status != solver.StatusOptimal {
		return sf.status, nil
	}

	var timeout <-chan time.Time
	if timeLimit > 0 {
		timer := time.NewTimer(timeLimit)
		defer timer.Stop()
		timeout = timer.C
	}
	select {
	case slots <- struct{}{}:
	case <-timeout:
		return solver.StatusTimedOut, nil
	case <-ctx.Done():
		return ctxStatus(ctx.Err()), ctx.Err()
	}
	done := make(chan result, 1)
	go func() {
		defer func() { <-slots }()
		done <- sf.solve(a.Tol)
	}()

	select {
	case r := <-done:
		if r.status != solver.StatusOptimal {
			return r.status, r.err
		}
		a.x = sf.recover(r.x)
		a.objValue = a.evaluate(a.x)
		a.sf = sf
		a.solved = true
		return solver.StatusOptimal, nil
	case <-timeout:
		return solver.StatusTimedOut, nil
	case <-ctx.Done():
		return ctxStatus(ctx.Err()), ctx.Err()
	}
}

func ctxStatus(err error) solver.Status {
	if errors.Is(err, context.DeadlineExceeded) {
		return solver.StatusTimedOut
	}
	return solver.StatusError
}

func (a *Adapter) HasIncumbent() bool { return a.solved }

func (a *Adapter) Value(h solver.VarHandle) (float64, error) {
	if !a.solved {
		return 0, solver.ErrNoSolution
	}
	if int(h) < 0 || int(h) >= len(a.x) {
		return 0, fmt.Errorf("simplex: unknown variable %d", h)
	}
	return a.x[h], nil
}

func (a *Adapter) ObjectiveValue() (float64, error) {
	if !a.solved {
		return 0, solver.ErrNoSolution
	}
	return a.objValue, nil
}

// Dual returns the shadow price of constraint h in the last solution: the
// rate at which the optimal objective moves with the constraint's right-hand
// side. The first call solves the dual program.
func (a *Adapter) Dual(h solver.ConstrHandle) (float64, error) {
	if !a.solved {
		return 0, solver.ErrNoSolution
	}
	if int(h) < 0 || int(h) >= len(a.rows) {
		return 0, fmt.Errorf("simplex: unknown constraint %d", h)
	}
	if a.duals == nil && a.dualErr == nil {
		slots <- struct{}{}
		a.duals, a.dualErr = a.sf.dual(len(a.rows), a.Tol, a.MaxCells)
		<-slots
	}
	if a.dualErr != nil {
		return 0, a.dualErr
	}
	return a.duals[h], nil
}

// SensitivityRange is not available from the dense simplex, which exposes no
// final basis to range over.
func (a *Adapter) SensitivityRange(solver.VarHandle) (solver.Range, error) {
	return solver.Range{}, solver.ErrUnsupported
}

// Integral reports whether every binary variable is within 1e-6 of 0 or 1 in
// the last solution.
func (a *Adapter) Integral() bool {
	if !a.solved {
		return false
	}
	for i, v := range a.vars {
		if v.kind != model.Binary {
			continue
		}
		if f := a.x[i]; math.Abs(f-math.Round(f)) > integralTol {
			return false
		}
	}
	return true
}

func (a *Adapter) evaluate(x []float64) float64 {
	s := a.constant
	for _, t := range a.obj {
		s += t.Coef * x[t.Var]
	}
	return s
}

// standard is min c'z s.t. Az = b, z >= 0 over the columns that survive presolve.
type standard struct {
	status solver.Status
	c      []float64
	a      *mat.Dense
	b      []float64
	// col[i] is the column of variable i, or -1 when presolve fixed it at base[i].
	col  []int
	base []float64
	// origin[r] is the constraint behind row r, -1 for bound rows; flip[r] is
	// the sign the row was scaled by to keep b non-negative.
	origin []int
	flip   []float64
}

func (sf *standard) solve(tol float64) result {
	if sf.a == nil {
		return result{status: solver.StatusOptimal, x: nil}
	}
	_, z, err := lp.Simplex(sf.c, sf.a, sf.b, tol, nil)
	switch {
	case err == nil:
		return result{status: solver.StatusOptimal, x: z}
	case errors.Is(err, lp.ErrInfeasible):
		return result{status: solver.StatusInfeasible}
	case errors.Is(err, lp.ErrUnbounded):
		return result{status: solver.StatusUnbounded}
	}
	return result{status: solver.StatusError, err: fmt.Errorf("simplex: %w", err)}
}

func (sf *standard) recover(z []float64) []float64 {
	x := make([]float64, len(sf.col))
	for i, k := range sf.col {
		x[i] = sf.base[i]
		if k >= 0 && k < len(z) {
			x[i] += z[k]
		}
	}
	return x
}

// dual solves max b'p s.t. A'p <= c with p split into two non-negative parts
// and a slack per column, then sums the row prices of each of the nrows
// constraints. Rows presolve dropped get a price of zero.
func (sf *standard) dual(nrows int, tol float64, maxCells int) ([]float64, error) {
	out := make([]float64, nrows)
	if sf.a == nil {
		return out, nil
	}
	r, w := sf.a.Dims()
	width := 2*r + w
	if w*width > maxCells {
		return nil, fmt.Errorf("%w: dual %d x %d exceeds %d cells", ErrTooLarge, w, width, maxCells)
	}
	at := mat.NewDense(w, width, nil)
	rhs := make([]float64, w)
	for j := range w {
		sign := 1.0
		if sf.c[j] < 0 {
			sign = -1
		}
		for i := range r {
			if v := sf.a.At(i, j); v != 0 {
				at.Set(j, i, sign*v)
				at.Set(j, r+i, -sign*v)
			}
		}
		at.Set(j, 2*r+j, sign)
		rhs[j] = sign * sf.c[j]
	}
	cost := make([]float64, width)
	for i := range r {
		cost[i], cost[r+i] = -sf.b[i], sf.b[i]
	}
	_, z, err := lp.Simplex(cost, at, rhs, tol, nil)
	if err != nil {
		return nil, fmt.Errorf("simplex: dual: %w", err)
	}
	for i := range r {
		if o := sf.origin[i]; o >= 0 {
			out[o] += sf.flip[i] * (z[i] - z[r+i])
		}
	}
	return out, nil
}
