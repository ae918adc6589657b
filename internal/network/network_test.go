package network

import (
	"testing"

	"cmdvrp/internal/instance"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func grid(t *testing.T, m, n int) *instance.Instance {
	t.Helper()
	d := instance.Data{
		NumDepots:         m,
		NumCustomers:      n,
		DepotCapacities:   make([]float64, m),
		DepotOpeningCosts: make([]float64, m),
		CustomerDemands:   make([]float64, n),
		VehicleCapacity:   1,
	}
	for i := 0; i < m; i++ {
		d.DepotCoords = append(d.DepotCoords, instance.Point{X: float64(i)})
	}
	for j := 0; j < n; j++ {
		d.CustomerCoords = append(d.CustomerCoords, instance.Point{Y: float64(j + 1)})
	}
	in, err := instance.New(d)
	require.NoError(t, err)
	return in
}

func TestIndexPartition(t *testing.T) {
	in := grid(t, 2, 3)
	idx := NewIndex(in)
	assert.Equal(t, []int{0, 1}, idx.Depots())
	assert.Equal(t, []int{2, 3, 4}, idx.Customers())
	assert.Equal(t, 5, idx.NumNodes())
	assert.Equal(t, Depot, idx.Kind(1))
	assert.Equal(t, Customer, idx.Kind(2))
	assert.Equal(t, 0, idx.CustomerOffset(2))
	assert.Panics(t, func() { idx.Kind(5) })
}

func TestArcCounts(t *testing.T) {
	for _, tc := range []struct{ m, n int }{{1, 1}, {2, 3}, {3, 5}} {
		in := grid(t, tc.m, tc.n)
		idx := NewIndex(in)
		dc := Arcs(in, idx, ScopeDepotCustomer)
		assert.Equal(t, 2*tc.m*tc.n, dc.Len())
		full := Arcs(in, idx, ScopeFull)
		assert.Equal(t, 2*tc.m*tc.n+tc.n*(tc.n-1)+tc.m*(tc.m-1), full.Len())
	}
}

func TestArcsOrderedAndValid(t *testing.T) {
	in := grid(t, 2, 3)
	idx := NewIndex(in)
	arcs := Arcs(in, idx, ScopeFull)
	prev := [2]int{-1, -1}
	for k, a := range arcs.All() {
		require.NotEqual(t, a.From, a.To)
		require.True(t, a.From >= 0 && a.From < idx.NumNodes())
		require.True(t, a.To >= 0 && a.To < idx.NumNodes())
		cur := [2]int{a.From, a.To}
		require.True(t, prev[0] < cur[0] || (prev[0] == cur[0] && prev[1] < cur[1]))
		prev = cur
		pos, ok := arcs.Lookup(a.From, a.To)
		require.True(t, ok)
		require.Equal(t, k, pos)
		require.Equal(t, in.Distance(a.From, a.To), a.Cost)
	}
	assert.False(t, arcs.Has(1, 1))
	assert.Len(t, arcs.Out(2), 4)
	assert.Len(t, arcs.In(0), 4)

	dc := Arcs(in, idx, ScopeDepotCustomer)
	assert.False(t, dc.Has(2, 3))
	assert.False(t, dc.Has(0, 1))
	assert.True(t, dc.Has(0, 4))
}
