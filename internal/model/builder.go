package model

import (
	"fmt"
	"math"
)

// Builder accumulates a model. Names must be unique; declaring a name twice is
// a programming error and panics.
type Builder struct {
	m      *Model
	frozen bool
}

func NewBuilder(variant string) *Builder {
	return &Builder{m: &Model{
		variant:   variant,
		varByName: make(map[string]Var),
		conByName: make(map[string]int),
	}}
}

func (b *Builder) mutable() {
	if b.frozen {
		panic("model: builder used after Build")
	}
}

// AddVar declares a variable. Binary variables always get bounds [0,1].
func (b *Builder) AddVar(name string, kind VarKind, lb, ub float64) Var {
	b.mutable()
	if _, dup := b.m.varByName[name]; dup {
		panic(fmt.Sprintf("model: duplicate variable %q", name))
	}
	if kind == Binary {
		lb, ub = 0, 1
	}
	if lb > ub {
		panic(fmt.Sprintf("model: variable %q has lower bound %g above upper bound %g", name, lb, ub))
	}
	v := Var(len(b.m.vars))
	b.m.vars = append(b.m.vars, Variable{Name: name, Kind: kind, Lower: lb, Upper: ub})
	b.m.varByName[name] = v
	return v
}

func (b *Builder) Binary(name string) Var { return b.AddVar(name, Binary, 0, 1) }

// NonNegative declares a continuous variable in [0, +inf).
func (b *Builder) NonNegative(name string) Var {
	return b.AddVar(name, Continuous, 0, math.Inf(1))
}

// Var looks up a variable declared earlier.
func (b *Builder) Var(name string) (Var, bool) {
	v, ok := b.m.varByName[name]
	return v, ok
}

// MustVar is Var for names the caller declared itself.
func (b *Builder) MustVar(name string) Var {
	v, ok := b.m.varByName[name]
	if !ok {
		panic(fmt.Sprintf("model: unknown variable %q", name))
	}
	return v
}

// AddConstraint appends a row. Repeated variables are merged into the first
// occurrence and zero coefficients are dropped, keeping term order stable.
func (b *Builder) AddConstraint(name string, terms []Term, sense Sense, rhs float64) {
	b.mutable()
	if _, dup := b.m.conByName[name]; dup {
		panic(fmt.Sprintf("model: duplicate constraint %q", name))
	}
	b.m.conByName[name] = len(b.m.cons)
	b.m.cons = append(b.m.cons, Constraint{Name: name, Terms: b.merge(terms), Sense: sense, RHS: rhs})
}

// AddObjective adds coef to the objective coefficient of v.
func (b *Builder) AddObjective(v Var, coef float64) {
	b.mutable()
	b.m.obj = append(b.m.obj, Term{Var: v, Coef: coef})
}

// AddObjectiveConstant shifts the objective by c.
func (b *Builder) AddObjectiveConstant(c float64) {
	b.mutable()
	b.m.objConst += c
}

func (b *Builder) merge(terms []Term) []Term {
	out := make([]Term, 0, len(terms))
	at := make(map[Var]int, len(terms))
	for _, t := range terms {
		if int(t.Var) < 0 || int(t.Var) >= len(b.m.vars) {
			panic(fmt.Sprintf("model: term references undeclared variable %d", t.Var))
		}
		if k, ok := at[t.Var]; ok {
			out[k].Coef += t.Coef
			continue
		}
		at[t.Var] = len(out)
		out = append(out, t)
	}
	kept := out[:0]
	for _, t := range out {
		if t.Coef != 0 {
			kept = append(kept, t)
		}
	}
	return kept
}

// Build freezes the builder and returns the model. The objective terms are
// merged the same way constraint terms are.
func (b *Builder) Build() *Model {
	b.mutable()
	b.m.obj = b.merge(b.m.obj)
	b.frozen = true
	return b.m
}
