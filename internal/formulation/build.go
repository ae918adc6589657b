// Package formulation turns an instance into a CMDVRP model for one of the
// supported formulations. Every constraint family is a standalone function
// over a shared catalog; variants differ only in which families they compose.
package formulation

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"cmdvrp/internal/instance"
	"cmdvrp/internal/model"
	"cmdvrp/internal/network"
)

// Build validates the instance and options and assembles the model for v.
// Nothing is declared when validation fails; the error is a *ConfigurationError.
func Build(in *instance.Instance, v Variant, opts ...Option) (*model.Model, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if err := validate(in, v, &o); err != nil {
		return nil, err
	}
	if o.log == nil {
		o.log = logrus.StandardLogger()
	}
	log := o.log.WithFields(logrus.Fields{"variant": v, "subtour": o.subtour, "depots": in.NumDepots(), "customers": in.NumCustomers()})

	scope := network.ScopeFull
	if o.pruned {
		scope = network.ScopeDepotCustomer
	}
	idx := network.NewIndex(in)
	c := &catalog{in: in, idx: idx, arcs: network.Arcs(in, idx, scope), subtour: o.subtour}
	b := model.NewBuilder(string(v))

	log.Debug("declaring variables")
	declareArcVars(b, c)
	switch v {
	case SCFHub:
		declareFlowVars(b, c)
		declareHubVars(b, c)
		declareDepotVars(b, c)
	case SCFRoute:
		declareFlowVars(b, c)
		declareDepotVars(b, c)
	case CDA:
		declareDepotVars(b, c)
		declareAssignVars(b, c)
	}
	if o.subtour == SubtourMTZ {
		declareLoadVars(b, c)
	}
	objective(b, c)

	log.Debug("creating and setting constraints")
	for _, family := range families(v, o.subtour) {
		family(b, c)
	}
	m := b.Build()
	log.WithFields(logrus.Fields{"variables": m.NumVars(), "constraints": m.NumConstraints()}).Debug("model built")
	return m, nil
}

type family func(*model.Builder, *catalog)

func families(v Variant, s Subtour) []family {
	var out []family
	switch v {
	case SCFHub:
		out = []family{depotTotalFlow, depotCustomerFlow, arcFlow, customerInflow, depotServes, noDepotArc}
	case SCFRoute:
		out = []family{routeFlow, vehicleCapacity, depotLoadCapacity, customerInDegree, customerOutDegreeAtMostOne,
			depotDegreeBalance(model.LE), depotOpenOut, depotServes, noDepotArc}
	case CDA:
		out = []family{assign, arcAssign, assignConsistency, depotAssignCapacity, depotVehicleCapacity,
			depotOpenAssign, customerInDegree, customerOutDegreeExactlyOne, depotDegreeBalance(model.EQ), noDepotArc}
	}
	switch s {
	case SubtourForbid:
		out = append(out, noCustomerArc)
	case SubtourMTZ:
		out = append(out, mtz)
	}
	return out
}

func validate(in *instance.Instance, v Variant, o *options) error {
	if in == nil {
		return configErr("instance", "no instance")
	}
	switch v {
	case SCFHub, SCFRoute, CDA:
	default:
		return configErr("variant", "unknown variant %q", v)
	}
	s, err := ParseSubtour(string(o.subtour))
	if err != nil {
		return err
	}
	if s == "" {
		s = DefaultSubtour(v)
	}
	o.subtour = s
	if o.pruned && o.subtour != SubtourForbid {
		return configErr("subtour", "pruned arcs require the %q strategy, got %q", SubtourForbid, o.subtour)
	}
	if err := in.Check(); err != nil {
		var viol *instance.Violation
		if errors.As(err, &viol) {
			return configErr(viol.Field, "%s", viol.Reason)
		}
		return configErr("instance", "%v", err)
	}
	return nil
}

// catalog carries the indices and variable handles shared by every family.
type catalog struct {
	in      *instance.Instance
	idx     network.Index
	arcs    *network.ArcSet
	subtour Subtour

	x  []model.Var // by arc position
	f  []model.Var // by arc position
	y  []model.Var // by depot
	fd [][]model.Var
	v  [][]model.Var // [customer offset][depot]
	u  []model.Var   // by customer offset
}

func (c *catalog) demand(node int) float64 { return c.in.Demand(c.idx.CustomerOffset(node)) }

func (c *catalog) arcX(i, j int) (model.Var, bool) {
	k, ok := c.arcs.Lookup(i, j)
	if !ok {
		return 0, false
	}
	return c.x[k], true
}

func (c *catalog) assignV(i, d int) model.Var { return c.v[c.idx.CustomerOffset(i)][d] }

func name(family string, ids ...int) string {
	s := family
	for _, id := range ids {
		s += fmt.Sprintf("_%d", id)
	}
	return s
}
