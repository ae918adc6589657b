// Package solver is the boundary between a built model and an optimisation
// engine. Engines implement Adapter; Run loads a model into one, optimises and
// collects the result into a Solution.
package solver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cmdvrp/internal/model"
)

// Status is the outcome of an optimisation.
type Status int

const (
	StatusOptimal Status = iota
	StatusInfeasible
	StatusUnbounded
	StatusTimedOut
	StatusError
)

var statusNames = map[Status]string{
	StatusOptimal:    "optimal",
	StatusInfeasible: "infeasible",
	StatusUnbounded:  "unbounded",
	StatusTimedOut:   "timed_out",
	StatusError:      "error",
}

func (s Status) String() string {
	if n, ok := statusNames[s]; ok {
		return n
	}
	return fmt.Sprintf("status(%d)", int(s))
}

func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Status) UnmarshalText(b []byte) error {
	for k, n := range statusNames {
		if n == string(b) {
			*s = k
			return nil
		}
	}
	return fmt.Errorf("solver: unknown status %q", b)
}

// VarHandle and ConstrHandle are adapter-issued identifiers.
type (
	VarHandle    int
	ConstrHandle int
)

// Term is coef * var in adapter handles.
type Term struct {
	Var  VarHandle
	Coef float64
}

// Range is a sensitivity interval.
type Range struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

var (
	// ErrUnsupported is returned by adapters that cannot provide duals or ranges.
	ErrUnsupported = errors.New("solver: not supported by adapter")
	// ErrNoSolution is wrapped by every *SolverError.
	ErrNoSolution = errors.New("solver: no solution")
)

// Adapter is an optimisation engine. The objective is always minimised.
// Value, ObjectiveValue, Dual and SensitivityRange are valid after Optimize
// reported StatusOptimal, or StatusTimedOut with HasIncumbent.
type Adapter interface {
	DeclareVariable(name string, kind model.VarKind, lb, ub float64) (VarHandle, error)
	AddLinearConstraint(terms []Term, sense model.Sense, rhs float64, name string) (ConstrHandle, error)
	SetObjective(terms []Term, constant float64) error
	Optimize(ctx context.Context, timeLimit time.Duration) (Status, error)
	HasIncumbent() bool
	Value(VarHandle) (float64, error)
	ObjectiveValue() (float64, error)
	Dual(ConstrHandle) (float64, error)
	SensitivityRange(VarHandle) (Range, error)
}

// SolverError reports a solve that ended without a usable solution.
type SolverError struct {
	Status Status
	Err    error
}

func (e *SolverError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v (%s): %v", ErrNoSolution, e.Status, e.Err)
	}
	return fmt.Sprintf("%v (%s)", ErrNoSolution, e.Status)
}

func (e *SolverError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrNoSolution}
	}
	return []error{ErrNoSolution, e.Err}
}
