package simplex

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"cmdvrp/internal/model"
	"cmdvrp/internal/solver"
)

// stdRow is a row a'z + sign*s = b of the standard form, one slack per row.
// origin is the constraint it came from, -1 for bound rows.
type stdRow struct {
	coefs  map[int]float64
	sign   float64
	b      float64
	origin int
}

// standardForm shifts every variable by its lower bound, removes fixed
// variables and variables no row mentions, drops rows left empty, turns finite
// upper bounds into rows and gives every row its own slack column. Equality
// rows become a <= and a >= row so the matrix always has full row rank.
func (a *Adapter) standardForm() (*standard, error) {
	n := len(a.vars)
	sf := &standard{status: solver.StatusOptimal, col: make([]int, n), base: make([]float64, n)}

	cost := make([]float64, n)
	for _, t := range a.obj {
		cost[t.Var] += t.Coef
	}
	used := make([]bool, n)
	for _, r := range a.rows {
		for v, c := range merged(r.terms) {
			if c != 0 {
				used[v] = true
			}
		}
	}

	cols := 0
	for i, v := range a.vars {
		sf.base[i] = v.lb
		sf.col[i] = -1
		switch {
		case v.lb == v.ub:
		case !used[i] && !math.IsInf(v.ub, 1):
			// a bounded free-standing variable sits at whichever bound is cheaper
			if cost[i] < 0 {
				sf.base[i] = v.ub
			}
		case !used[i] && cost[i] < 0:
			sf.status = solver.StatusUnbounded
			return sf, nil
		case !used[i]:
		default:
			sf.col[i] = cols
			cols++
		}
	}

	var rows []stdRow
	add := func(coefs map[int]float64, sense model.Sense, rhs float64, origin int) {
		switch sense {
		case model.LE:
			rows = append(rows, stdRow{coefs: coefs, sign: 1, b: rhs, origin: origin})
		case model.GE:
			rows = append(rows, stdRow{coefs: coefs, sign: -1, b: rhs, origin: origin})
		default:
			rows = append(rows, stdRow{coefs: coefs, sign: 1, b: rhs, origin: origin}, stdRow{coefs: coefs, sign: -1, b: rhs, origin: origin})
		}
	}
	for ri, r := range a.rows {
		coefs := map[int]float64{}
		rhs := r.rhs
		for _, t := range r.terms {
			rhs -= t.Coef * sf.base[t.Var]
			if k := sf.col[t.Var]; k >= 0 {
				coefs[k] += t.Coef
			}
		}
		for k, c := range coefs {
			if c == 0 {
				delete(coefs, k)
			}
		}
		if len(coefs) == 0 {
			if !emptyRowHolds(r.sense, rhs) {
				sf.status = solver.StatusInfeasible
				return sf, nil
			}
			continue
		}
		add(coefs, r.sense, rhs, ri)
	}
	for i, v := range a.vars {
		if k := sf.col[i]; k >= 0 && !math.IsInf(v.ub, 1) {
			add(map[int]float64{k: 1}, model.LE, v.ub-v.lb, -1)
		}
	}
	if len(rows) == 0 {
		return sf, nil
	}

	width := cols + len(rows)
	if len(rows)*width > a.MaxCells {
		return nil, fmt.Errorf("%w: %d x %d exceeds %d cells", ErrTooLarge, len(rows), width, a.MaxCells)
	}
	sf.a = mat.NewDense(len(rows), width, nil)
	sf.b = make([]float64, len(rows))
	sf.c = make([]float64, width)
	sf.origin = make([]int, len(rows))
	sf.flip = make([]float64, len(rows))
	for i, v := range sf.col {
		if v >= 0 {
			sf.c[v] = cost[i]
		}
	}
	for r, sr := range rows {
		flip := 1.0
		if sr.b < 0 {
			flip = -1
		}
		for k, c := range sr.coefs {
			sf.a.Set(r, k, flip*c)
		}
		sf.a.Set(r, cols+r, flip*sr.sign)
		sf.b[r] = flip * sr.b
		sf.origin[r], sf.flip[r] = sr.origin, flip
	}
	return sf, nil
}

func merged(terms []solver.Term) map[solver.VarHandle]float64 {
	out := make(map[solver.VarHandle]float64, len(terms))
	for _, t := range terms {
		out[t.Var] += t.Coef
	}
	return out
}

func emptyRowHolds(sense model.Sense, rhs float64) bool {
	switch sense {
	case model.LE:
		return 0 <= rhs+feasTol
	case model.GE:
		return 0 >= rhs-feasTol
	}
	return math.Abs(rhs) <= feasTol
}
