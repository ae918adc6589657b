// Package model is the solver-independent representation of a linear
// optimisation model: variables, named linear constraints and a minimised
// objective. A Model is produced by a Builder and never changes afterwards.
package model

import (
	"fmt"
	"math"
)

// VarKind is the domain of a decision variable.
type VarKind int

const (
	Continuous VarKind = iota
	Binary
)

func (k VarKind) String() string {
	switch k {
	case Continuous:
		return "continuous"
	case Binary:
		return "binary"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Sense is the relation between a constraint's left-hand side and its rhs.
type Sense int

const (
	LE Sense = iota
	EQ
	GE
)

func (s Sense) String() string {
	switch s {
	case LE:
		return "<="
	case EQ:
		return "="
	case GE:
		return ">="
	}
	return fmt.Sprintf("sense(%d)", int(s))
}

// Var identifies a variable by its declaration order.
type Var int

// Term is coef * var.
type Term struct {
	Var  Var
	Coef float64
}

// Variable is a declared decision variable.
type Variable struct {
	Name  string
	Kind  VarKind
	Lower float64
	Upper float64
}

// Constraint is a named linear row sum(terms) <sense> RHS.
type Constraint struct {
	Name  string
	Terms []Term
	Sense Sense
	RHS   float64
}

// Activity evaluates the left-hand side at x.
func (c Constraint) Activity(x []float64) float64 {
	s := 0.0
	for _, t := range c.Terms {
		s += t.Coef * x[t.Var]
	}
	return s
}

// Satisfied reports whether x satisfies the row within tol.
func (c Constraint) Satisfied(x []float64, tol float64) bool {
	a := c.Activity(x)
	switch c.Sense {
	case LE:
		return a <= c.RHS+tol
	case GE:
		return a >= c.RHS-tol
	default:
		return math.Abs(a-c.RHS) <= tol
	}
}

// Coef returns the coefficient of v in the row, 0 when absent.
func (c Constraint) Coef(v Var) float64 {
	for _, t := range c.Terms {
		if t.Var == v {
			return t.Coef
		}
	}
	return 0
}

// Model is an immutable minimisation model.
type Model struct {
	variant   string
	vars      []Variable
	cons      []Constraint
	obj       []Term
	objConst  float64
	varByName map[string]Var
	conByName map[string]int
}

// Variant is the formulation tag the model was built for.
func (m *Model) Variant() string { return m.variant }

func (m *Model) NumVars() int { return len(m.vars) }

func (m *Model) NumConstraints() int { return len(m.cons) }

func (m *Model) Variable(v Var) Variable { return m.vars[v] }

// Variables returns a copy of every variable in declaration order.
func (m *Model) Variables() []Variable { return append([]Variable(nil), m.vars...) }

// Constraint returns row i; its term slice is a copy.
func (m *Model) Constraint(i int) Constraint {
	c := m.cons[i]
	c.Terms = append([]Term(nil), c.Terms...)
	return c
}

// Constraints returns a copy of every row in insertion order.
func (m *Model) Constraints() []Constraint {
	out := make([]Constraint, len(m.cons))
	for i := range m.cons {
		out[i] = m.Constraint(i)
	}
	return out
}

func (m *Model) VarByName(name string) (Var, bool) {
	v, ok := m.varByName[name]
	return v, ok
}

func (m *Model) ConstraintByName(name string) (Constraint, bool) {
	i, ok := m.conByName[name]
	if !ok {
		return Constraint{}, false
	}
	return m.Constraint(i), true
}

// Objective returns the objective terms (copy) and constant.
func (m *Model) Objective() ([]Term, float64) {
	return append([]Term(nil), m.obj...), m.objConst
}

// ObjectiveAt evaluates the objective at x.
func (m *Model) ObjectiveAt(x []float64) float64 {
	s := m.objConst
	for _, t := range m.obj {
		s += t.Coef * x[t.Var]
	}
	return s
}

// Violations lists the names of rows and variables that x breaks by more than tol.
func (m *Model) Violations(x []float64, tol float64) []string {
	var out []string
	for i, v := range m.vars {
		if x[i] < v.Lower-tol || x[i] > v.Upper+tol {
			out = append(out, v.Name)
		}
	}
	for _, c := range m.cons {
		if !c.Satisfied(x, tol) {
			out = append(out, c.Name)
		}
	}
	return out
}
