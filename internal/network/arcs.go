package network

import (
	"fmt"

	"cmdvrp/internal/instance"
)

// Scope selects which ordered node pairs become arcs.
type Scope int

const (
	// ScopeDepotCustomer keeps only depot->customer and customer->depot arcs.
	ScopeDepotCustomer Scope = iota
	// ScopeFull keeps every ordered pair of distinct nodes.
	ScopeFull
)

func (s Scope) String() string {
	switch s {
	case ScopeDepotCustomer:
		return "depot-customer"
	case ScopeFull:
		return "full"
	}
	return fmt.Sprintf("scope(%d)", int(s))
}

// Arc is an ordered node pair with its travel cost.
type Arc struct {
	From, To int
	Cost     float64
}

// ArcSet is an ordered arc list, sorted by (From, To).
type ArcSet struct {
	arcs    []Arc
	pos     map[[2]int]int
	out, in [][]int
}

// Arcs enumerates the arcs of scope in lexicographic (from, to) order.
func Arcs(in *instance.Instance, idx Index, scope Scope) *ArcSet {
	s := &ArcSet{
		pos: make(map[[2]int]int),
		out: make([][]int, idx.NumNodes()),
		in:  make([][]int, idx.NumNodes()),
	}
	for i := 0; i < idx.NumNodes(); i++ {
		for j := 0; j < idx.NumNodes(); j++ {
			if i == j || !keep(idx, scope, i, j) {
				continue
			}
			k := len(s.arcs)
			s.pos[[2]int{i, j}] = k
			s.out[i] = append(s.out[i], k)
			s.in[j] = append(s.in[j], k)
			s.arcs = append(s.arcs, Arc{From: i, To: j, Cost: in.Distance(i, j)})
		}
	}
	return s
}

func keep(idx Index, scope Scope, i, j int) bool {
	if scope == ScopeFull {
		return true
	}
	return idx.IsDepot(i) != idx.IsDepot(j)
}

func (s *ArcSet) Len() int { return len(s.arcs) }

// All returns a copy of the arcs.
func (s *ArcSet) All() []Arc { return append([]Arc(nil), s.arcs...) }

func (s *ArcSet) At(k int) Arc { return s.arcs[k] }

// Lookup returns the position of arc (i, j) and whether it exists.
func (s *ArcSet) Lookup(i, j int) (int, bool) {
	k, ok := s.pos[[2]int{i, j}]
	return k, ok
}

func (s *ArcSet) Has(i, j int) bool {
	_, ok := s.pos[[2]int{i, j}]
	return ok
}

// Out returns the arcs leaving node i, in order.
func (s *ArcSet) Out(i int) []Arc { return s.pick(s.out[i]) }

// In returns the arcs entering node j, in order.
func (s *ArcSet) In(j int) []Arc { return s.pick(s.in[j]) }

func (s *ArcSet) pick(ks []int) []Arc {
	out := make([]Arc, len(ks))
	for n, k := range ks {
		out[n] = s.arcs[k]
	}
	return out
}
