package solver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cmdvrp/internal/model"
)

// fakeAdapter records what it is given and replays a scripted result.
type fakeAdapter struct {
	names     []string
	kinds     []model.VarKind
	rows      []string
	objective []Term
	constant  float64
	limit     time.Duration

	status    Status
	optErr    error
	incumbent bool
	values    []float64
	objVal    float64
	duals     bool
}

func (f *fakeAdapter) DeclareVariable(name string, kind model.VarKind, lb, ub float64) (VarHandle, error) {
	f.names = append(f.names, name)
	f.kinds = append(f.kinds, kind)
	return VarHandle(len(f.names) - 1), nil
}

func (f *fakeAdapter) AddLinearConstraint(terms []Term, sense model.Sense, rhs float64, name string) (ConstrHandle, error) {
	f.rows = append(f.rows, name)
	return ConstrHandle(len(f.rows) - 1), nil
}

func (f *fakeAdapter) SetObjective(terms []Term, constant float64) error {
	f.objective, f.constant = terms, constant
	return nil
}

func (f *fakeAdapter) Optimize(ctx context.Context, limit time.Duration) (Status, error) {
	f.limit = limit
	return f.status, f.optErr
}

func (f *fakeAdapter) HasIncumbent() bool { return f.incumbent }

func (f *fakeAdapter) Value(h VarHandle) (float64, error) { return f.values[h], nil }

func (f *fakeAdapter) ObjectiveValue() (float64, error) { return f.objVal, nil }

func (f *fakeAdapter) Dual(h ConstrHandle) (float64, error) {
	if !f.duals {
		return 0, ErrUnsupported
	}
	return float64(h) + 0.5, nil
}

func (f *fakeAdapter) SensitivityRange(h VarHandle) (Range, error) {
	if !f.duals {
		return Range{}, ErrUnsupported
	}
	return Range{Low: -float64(h), High: float64(h)}, nil
}

func smallModel() *model.Model {
	b := model.NewBuilder("test")
	x := b.Binary("x")
	y := b.NonNegative("y")
	b.AddConstraint("link", []model.Term{{Var: y, Coef: 1}, {Var: x, Coef: -4}}, model.LE, 0)
	b.AddConstraint("cover", []model.Term{{Var: y, Coef: 1}}, model.GE, 1)
	b.AddObjective(x, 3)
	b.AddObjective(y, 1)
	b.AddObjectiveConstant(2)
	return b.Build()
}

func TestRunOptimal(t *testing.T) {
	f := &fakeAdapter{status: StatusOptimal, incumbent: true, values: []float64{1, 1}, objVal: 6, duals: true}
	sol, err := Run(context.Background(), f, smallModel(), Options{TimeLimit: time.Second, Sensitivity: true})
	require.NoError(t, err)
	require.NoError(t, sol.Err())

	assert.Equal(t, []string{"x", "y"}, f.names)
	assert.Equal(t, []model.VarKind{model.Binary, model.Continuous}, f.kinds)
	assert.Equal(t, []string{"link", "cover"}, f.rows)
	assert.Equal(t, []Term{{Var: 0, Coef: 3}, {Var: 1, Coef: 1}}, f.objective)
	assert.Equal(t, 2.0, f.constant)
	assert.Equal(t, time.Second, f.limit)

	assert.Equal(t, StatusOptimal, sol.Status)
	assert.Equal(t, 6.0, sol.Objective)
	assert.True(t, sol.HasIncumbent())
	assert.Equal(t, 1.0, sol.Value(1))
	assert.Equal(t, []float64{0.5, 1.5}, sol.Duals)
	assert.Equal(t, []Range{{Low: 0, High: 0}, {Low: -1, High: 1}}, sol.Ranges)
}

func TestRunWithoutSensitivitySupport(t *testing.T) {
	f := &fakeAdapter{status: StatusOptimal, incumbent: true, values: []float64{0, 1}, objVal: 3}
	sol, err := Run(context.Background(), f, smallModel(), Options{Sensitivity: true})
	require.NoError(t, err)
	assert.Nil(t, sol.Duals)
	assert.Nil(t, sol.Ranges)
}

func TestRunNoSolution(t *testing.T) {
	for _, status := range []Status{StatusInfeasible, StatusUnbounded, StatusError} {
		t.Run(status.String(), func(t *testing.T) {
			f := &fakeAdapter{status: status, objVal: 99}
			sol, err := Run(context.Background(), f, smallModel(), Options{})
			require.Error(t, err)
			require.NotNil(t, sol)
			assert.Equal(t, status, sol.Status)
			assert.Zero(t, sol.Objective)
			assert.False(t, sol.HasIncumbent())
			assert.Zero(t, sol.Value(0))

			var serr *SolverError
			require.True(t, errors.As(sol.Err(), &serr))
			assert.Equal(t, status, serr.Status)
			assert.True(t, errors.Is(err, ErrNoSolution))
		})
	}
}

func TestRunTimedOutKeepsIncumbent(t *testing.T) {
	f := &fakeAdapter{status: StatusTimedOut, incumbent: true, values: []float64{1, 4}, objVal: 9}
	sol, err := Run(context.Background(), f, smallModel(), Options{TimeLimit: time.Millisecond})
	require.NoError(t, err)
	assert.Equal(t, StatusTimedOut, sol.Status)
	assert.Equal(t, 9.0, sol.Objective)
	assert.Equal(t, []float64{1, 4}, sol.Values)
}

func TestRunTimedOutWithoutIncumbent(t *testing.T) {
	f := &fakeAdapter{status: StatusTimedOut}
	sol, err := Run(context.Background(), f, smallModel(), Options{TimeLimit: time.Millisecond})
	require.Error(t, err)
	assert.Equal(t, StatusTimedOut, sol.Status)
	assert.Zero(t, sol.Objective)
}

func TestRunOptimizeErrorBecomesStatusError(t *testing.T) {
	boom := errors.New("engine crashed")
	f := &fakeAdapter{status: StatusOptimal, optErr: boom}
	sol, err := Run(context.Background(), f, smallModel(), Options{})
	require.Error(t, err)
	assert.Equal(t, StatusError, sol.Status)
	assert.True(t, errors.Is(err, boom))
}

func TestStatusText(t *testing.T) {
	b, err := StatusTimedOut.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "timed_out", string(b))
	var s Status
	require.NoError(t, s.UnmarshalText([]byte("infeasible")))
	assert.Equal(t, StatusInfeasible, s)
	assert.Error(t, s.UnmarshalText([]byte("maybe")))
}
