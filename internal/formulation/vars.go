package formulation

import (
	"cmdvrp/internal/model"
)

func declareArcVars(b *model.Builder, c *catalog) {
	c.x = make([]model.Var, c.arcs.Len())
	for k, a := range c.arcs.All() {
		c.x[k] = b.Binary(name("x", a.From, a.To))
	}
}

func declareFlowVars(b *model.Builder, c *catalog) {
	c.f = make([]model.Var, c.arcs.Len())
	for k, a := range c.arcs.All() {
		c.f[k] = b.NonNegative(name("f", a.From, a.To))
	}
}

// fd[d][j] is the flow a depot sends towards customer j.
func declareHubVars(b *model.Builder, c *catalog) {
	c.fd = make([][]model.Var, c.idx.NumDepots())
	for _, d := range c.idx.Depots() {
		c.fd[d] = make([]model.Var, 0, c.idx.NumCustomers())
		for _, j := range c.idx.Customers() {
			c.fd[d] = append(c.fd[d], b.NonNegative(name("fd", d, j)))
		}
	}
}

func declareDepotVars(b *model.Builder, c *catalog) {
	c.y = make([]model.Var, c.idx.NumDepots())
	for _, d := range c.idx.Depots() {
		c.y[d] = b.Binary(name("y", d))
	}
}

func declareAssignVars(b *model.Builder, c *catalog) {
	c.v = make([][]model.Var, c.idx.NumCustomers())
	for _, i := range c.idx.Customers() {
		row := make([]model.Var, c.idx.NumDepots())
		for _, d := range c.idx.Depots() {
			row[d] = b.AddVar(name("v", i, d), model.Continuous, 0, 1)
		}
		c.v[c.idx.CustomerOffset(i)] = row
	}
}

// u[i] is the vehicle load after visiting customer i.
func declareLoadVars(b *model.Builder, c *catalog) {
	c.u = make([]model.Var, c.idx.NumCustomers())
	for _, i := range c.idx.Customers() {
		c.u[c.idx.CustomerOffset(i)] = b.AddVar(name("u", i), model.Continuous, c.demand(i), c.in.VehicleCapacity())
	}
}

// objective charges arc travel, depot opening and one route opening per
// departure from a depot.
func objective(b *model.Builder, c *catalog) {
	for k, a := range c.arcs.All() {
		b.AddObjective(c.x[k], a.Cost)
	}
	for _, d := range c.idx.Depots() {
		b.AddObjective(c.y[d], c.in.DepotOpeningCost(d))
	}
	r := c.in.RouteOpeningCost()
	if r == 0 {
		return
	}
	for _, d := range c.idx.Depots() {
		for _, j := range c.idx.Customers() {
			if x, ok := c.arcX(d, j); ok {
				b.AddObjective(x, r)
			}
		}
	}
}
