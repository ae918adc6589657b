package formulation

import (
	"math"

	"cmdvrp/internal/model"
)

// sum(fd[d,*]) = sum(x[d,*]): a depot emits one unit per customer it serves.
func depotTotalFlow(b *model.Builder, c *catalog) {
	for _, d := range c.idx.Depots() {
		var terms []model.Term
		for _, fd := range c.fd[d] {
			terms = append(terms, model.Term{Var: fd, Coef: 1})
		}
		terms = append(terms, c.depotOut(d, -1)...)
		b.AddConstraint(name("depot_total_flow", d), terms, model.EQ, 0)
	}
}

func depotCustomerFlow(b *model.Builder, c *catalog) {
	for _, d := range c.idx.Depots() {
		for k, j := range c.idx.Customers() {
			b.AddConstraint(name("depot_customer_flow", d, j), []model.Term{
				{Var: c.fd[d][k], Coef: 1},
				{Var: c.y[d], Coef: -c.in.DepotCapacity(d)},
			}, model.LE, 0)
		}
	}
}

// f[i,j] <= max(n-1,1) x[i,j] on every arc touching a customer.
func arcFlow(b *model.Builder, c *catalog) {
	bigM := math.Max(float64(c.idx.NumCustomers()-1), 1)
	for k, a := range c.arcs.All() {
		if c.idx.IsDepot(a.From) && c.idx.IsDepot(a.To) {
			continue
		}
		b.AddConstraint(name("arc_flow", a.From, a.To), []model.Term{
			{Var: c.f[k], Coef: 1},
			{Var: c.x[k], Coef: -bigM},
		}, model.LE, 0)
	}
}

func customerInflow(b *model.Builder, c *catalog) {
	for _, j := range c.idx.Customers() {
		var terms []model.Term
		for _, a := range c.arcs.In(j) {
			k, _ := c.arcs.Lookup(a.From, a.To)
			terms = append(terms, model.Term{Var: c.f[k], Coef: 1})
		}
		b.AddConstraint(name("customer_inflow", j), terms, model.EQ, 1)
	}
}

// An open depot leaves towards at least one customer.
func depotServes(b *model.Builder, c *catalog) {
	for _, d := range c.idx.Depots() {
		terms := c.depotOut(d, 1)
		terms = append(terms, model.Term{Var: c.y[d], Coef: -1})
		b.AddConstraint(name("depot_serves", d), terms, model.GE, 0)
	}
}

func noDepotArc(b *model.Builder, c *catalog) {
	for k, a := range c.arcs.All() {
		if c.idx.IsDepot(a.From) && c.idx.IsDepot(a.To) {
			b.AddConstraint(name("no_depot_arc", a.From, a.To), []model.Term{{Var: c.x[k], Coef: 1}}, model.EQ, 0)
		}
	}
}

func noCustomerArc(b *model.Builder, c *catalog) {
	for k, a := range c.arcs.All() {
		if c.idx.IsCustomer(a.From) && c.idx.IsCustomer(a.To) {
			b.AddConstraint(name("no_customer_arc", a.From, a.To), []model.Term{{Var: c.x[k], Coef: 1}}, model.EQ, 0)
		}
	}
}

// inflow - outflow = demand at every customer.
func routeFlow(b *model.Builder, c *catalog) {
	for _, j := range c.idx.Customers() {
		var terms []model.Term
		for _, a := range c.arcs.In(j) {
			k, _ := c.arcs.Lookup(a.From, a.To)
			terms = append(terms, model.Term{Var: c.f[k], Coef: 1})
		}
		for _, a := range c.arcs.Out(j) {
			k, _ := c.arcs.Lookup(a.From, a.To)
			terms = append(terms, model.Term{Var: c.f[k], Coef: -1})
		}
		b.AddConstraint(name("route_flow", j), terms, model.EQ, c.demand(j))
	}
}

func vehicleCapacity(b *model.Builder, c *catalog) {
	q := c.in.VehicleCapacity()
	for k, a := range c.arcs.All() {
		b.AddConstraint(name("vehicle_cap", a.From, a.To), []model.Term{
			{Var: c.f[k], Coef: 1},
			{Var: c.x[k], Coef: -q},
		}, model.LE, 0)
	}
}

// Outbound load of a depot is bounded by K_d when open and 0 when closed.
func depotLoadCapacity(b *model.Builder, c *catalog) {
	for _, d := range c.idx.Depots() {
		var terms []model.Term
		for _, j := range c.idx.Customers() {
			if k, ok := c.arcs.Lookup(d, j); ok {
				terms = append(terms, model.Term{Var: c.f[k], Coef: 1})
			}
		}
		terms = append(terms, model.Term{Var: c.y[d], Coef: -c.in.DepotCapacity(d)})
		b.AddConstraint(name("depot_cap", d), terms, model.LE, 0)
	}
}

func customerInDegree(b *model.Builder, c *catalog) {
	for _, j := range c.idx.Customers() {
		var terms []model.Term
		for _, a := range c.arcs.In(j) {
			x, _ := c.arcX(a.From, a.To)
			terms = append(terms, model.Term{Var: x, Coef: 1})
		}
		b.AddConstraint(name("customer_in_degree", j), terms, model.EQ, 1)
	}
}

func customerOutDegree(sense model.Sense) family {
	return func(b *model.Builder, c *catalog) {
		for _, i := range c.idx.Customers() {
			var terms []model.Term
			for _, a := range c.arcs.Out(i) {
				x, _ := c.arcX(a.From, a.To)
				terms = append(terms, model.Term{Var: x, Coef: 1})
			}
			b.AddConstraint(name("customer_out_degree", i), terms, sense, 1)
		}
	}
}

var (
	// Open routes may end at the last customer.
	customerOutDegreeAtMostOne = customerOutDegree(model.LE)
	// Closed tours leave every customer exactly once.
	customerOutDegreeExactlyOne = customerOutDegree(model.EQ)
)

// Returns into d compared against departures from d.
func depotDegreeBalance(sense model.Sense) family {
	return func(b *model.Builder, c *catalog) {
		for _, d := range c.idx.Depots() {
			var terms []model.Term
			for _, j := range c.idx.Customers() {
				if x, ok := c.arcX(j, d); ok {
					terms = append(terms, model.Term{Var: x, Coef: 1})
				}
			}
			terms = append(terms, c.depotOut(d, -1)...)
			b.AddConstraint(name("depot_degree_balance", d), terms, sense, 0)
		}
	}
}

// A closed depot has no departures; an open one at most n.
func depotOpenOut(b *model.Builder, c *catalog) {
	for _, d := range c.idx.Depots() {
		terms := c.depotOut(d, 1)
		terms = append(terms, model.Term{Var: c.y[d], Coef: -float64(c.idx.NumCustomers())})
		b.AddConstraint(name("depot_open_out", d), terms, model.LE, 0)
	}
}

func assign(b *model.Builder, c *catalog) {
	for _, i := range c.idx.Customers() {
		terms := make([]model.Term, 0, c.idx.NumDepots())
		for _, d := range c.idx.Depots() {
			terms = append(terms, model.Term{Var: c.assignV(i, d), Coef: 1})
		}
		b.AddConstraint(name("assign", i), terms, model.EQ, 1)
	}
}

// An arc between depot d and customer i is usable only as far as i is assigned to d.
func arcAssign(b *model.Builder, c *catalog) {
	for _, d := range c.idx.Depots() {
		for _, i := range c.idx.Customers() {
			v := c.assignV(i, d)
			if x, ok := c.arcX(d, i); ok {
				b.AddConstraint(name("arc_assign_out", d, i), []model.Term{{Var: x, Coef: 1}, {Var: v, Coef: -1}}, model.LE, 0)
			}
			if x, ok := c.arcX(i, d); ok {
				b.AddConstraint(name("arc_assign_in", i, d), []model.Term{{Var: x, Coef: 1}, {Var: v, Coef: -1}}, model.LE, 0)
			}
		}
	}
}

// v[i,d] + x[i,j] - v[j,d] <= 1: consecutive customers share their depot.
func assignConsistency(b *model.Builder, c *catalog) {
	for _, d := range c.idx.Depots() {
		for k, a := range c.arcs.All() {
			if !c.idx.IsCustomer(a.From) || !c.idx.IsCustomer(a.To) {
				continue
			}
			b.AddConstraint(name("assign_consistency", d, a.From, a.To), []model.Term{
				{Var: c.assignV(a.From, d), Coef: 1},
				{Var: c.x[k], Coef: 1},
				{Var: c.assignV(a.To, d), Coef: -1},
			}, model.LE, 1)
		}
	}
}

func depotAssignCapacity(b *model.Builder, c *catalog) {
	for _, d := range c.idx.Depots() {
		var terms []model.Term
		for _, i := range c.idx.Customers() {
			terms = append(terms, model.Term{Var: c.assignV(i, d), Coef: c.demand(i)})
		}
		terms = append(terms, model.Term{Var: c.y[d], Coef: -c.in.DepotCapacity(d)})
		b.AddConstraint(name("depot_cap", d), terms, model.LE, 0)
	}
}

// Demand of the customers visited first out of d fits a vehicle when d is open.
func depotVehicleCapacity(b *model.Builder, c *catalog) {
	for _, d := range c.idx.Depots() {
		var terms []model.Term
		for _, j := range c.idx.Customers() {
			if x, ok := c.arcX(d, j); ok {
				terms = append(terms, model.Term{Var: x, Coef: c.demand(j)})
			}
		}
		terms = append(terms, model.Term{Var: c.y[d], Coef: -c.in.VehicleCapacity()})
		b.AddConstraint(name("vehicle_cap", d), terms, model.LE, 0)
	}
}

func depotOpenAssign(b *model.Builder, c *catalog) {
	for _, i := range c.idx.Customers() {
		for _, d := range c.idx.Depots() {
			b.AddConstraint(name("depot_open_assign", i, d), []model.Term{
				{Var: c.assignV(i, d), Coef: 1},
				{Var: c.y[d], Coef: -1},
			}, model.LE, 0)
		}
	}
}

// u[i] - u[j] + Q x[i,j] <= Q - q[j] for customers i != j.
func mtz(b *model.Builder, c *catalog) {
	q := c.in.VehicleCapacity()
	for k, a := range c.arcs.All() {
		if !c.idx.IsCustomer(a.From) || !c.idx.IsCustomer(a.To) {
			continue
		}
		b.AddConstraint(name("mtz", a.From, a.To), []model.Term{
			{Var: c.u[c.idx.CustomerOffset(a.From)], Coef: 1},
			{Var: c.u[c.idx.CustomerOffset(a.To)], Coef: -1},
			{Var: c.x[k], Coef: q},
		}, model.LE, q-c.demand(a.To))
	}
}

// depotOut returns coef * x[d,j] for every customer j reachable from d.
func (c *catalog) depotOut(d int, coef float64) []model.Term {
	var terms []model.Term
	for _, j := range c.idx.Customers() {
		if x, ok := c.arcX(d, j); ok {
			terms = append(terms, model.Term{Var: x, Coef: coef})
		}
	}
	return terms
}
