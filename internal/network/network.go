// Package network assigns node ids to an instance and enumerates its arcs.
package network

import (
	"fmt"

	"cmdvrp/internal/instance"
)

// Kind distinguishes depots from customers.
type Kind int

const (
	Depot Kind = iota
	Customer
)

func (k Kind) String() string {
	if k == Depot {
		return "depot"
	}
	return "customer"
}

// Index maps node ids to depots [0,m) and customers [m,m+n).
type Index struct {
	m, n int
}

func NewIndex(in *instance.Instance) Index {
	return Index{m: in.NumDepots(), n: in.NumCustomers()}
}

func (x Index) NumDepots() int { return x.m }
func (x Index) NumCustomers() int { return x.n }
func (x Index) NumNodes() int { return x.m + x.n }

// Depots returns the depot ids in ascending order.
func (x Index) Depots() []int { return seq(0, x.m) }

// Customers returns the customer ids in ascending order.
func (x Index) Customers() []int { return seq(x.m, x.m+x.n) }

// Nodes returns every node id in ascending order.
func (x Index) Nodes() []int { return seq(0, x.m+x.n) }

func (x Index) IsDepot(id int) bool { return id >= 0 && id < x.m }
func (x Index) IsCustomer(id int) bool { return id >= x.m && id < x.m+x.n }

// Kind panics on ids outside [0, NumNodes).
func (x Index) Kind(id int) Kind {
	switch {
	case x.IsDepot(id):
		return Depot
	case x.IsCustomer(id):
		return Customer
	}
	panic(fmt.Sprintf("network: node id %d out of range [0,%d)", id, x.m+x.n))
}

// CustomerOffset returns the position of customer id among customers, used to
// read per-customer data from the instance.
func (x Index) CustomerOffset(id int) int { return id - x.m }

func seq(from, to int) []int {
	out := make([]int, 0, to-from)
	for i := from; i < to; i++ {
		out = append(out, i)
	}
	return out
}
