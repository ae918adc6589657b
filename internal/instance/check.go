package instance

import (
	"fmt"
	"math"
)

// Violation describes the first broken invariant found by Check.
type Violation struct {
	Field  string
	Index  int
	Reason string
}

func (v *Violation) Error() string {
	if v.Index < 0 {
		return fmt.Sprintf("instance: %s: %s", v.Field, v.Reason)
	}
	return fmt.Sprintf("instance: %s[%d]: %s", v.Field, v.Index, v.Reason)
}

// Check verifies the semantic invariants a model can be built on: at least one
// depot, finite non-negative capacities, costs, demands and distances, a
// positive vehicle capacity and no demand above it. It returns nil or a *Violation.
func (in *Instance) Check() error {
	d := in.d
	if d.NumDepots == 0 {
		return &Violation{Field: "numDepots", Index: -1, Reason: "at least one depot is required"}
	}
	if !finite(d.VehicleCapacity) || !(d.VehicleCapacity > 0) {
		return &Violation{Field: "vehicleCapacity", Index: -1, Reason: fmt.Sprintf("must be > 0, got %g", d.VehicleCapacity)}
	}
	if !finite(d.RouteOpeningCost) || d.RouteOpeningCost < 0 {
		return &Violation{Field: "routeOpeningCost", Index: -1, Reason: fmt.Sprintf("must be >= 0, got %g", d.RouteOpeningCost)}
	}
	for i, k := range d.DepotCapacities {
		if !finite(k) || k < 0 {
			return &Violation{Field: "depotCapacities", Index: i, Reason: fmt.Sprintf("capacity %g is not a finite non-negative number", k)}
		}
	}
	for i, c := range d.DepotOpeningCosts {
		if !finite(c) || c < 0 {
			return &Violation{Field: "depotOpeningCosts", Index: i, Reason: fmt.Sprintf("opening cost %g is not a finite non-negative number", c)}
		}
	}
	for i, q := range d.CustomerDemands {
		if !finite(q) || q < 0 {
			return &Violation{Field: "customerDemands", Index: i, Reason: fmt.Sprintf("demand %g is not a finite non-negative number", q)}
		}
		if q > d.VehicleCapacity {
			return &Violation{Field: "customerDemands", Index: i, Reason: fmt.Sprintf("demand %g exceeds vehicle capacity %g", q, d.VehicleCapacity)}
		}
	}
	for i, row := range d.DistanceMatrix {
		for j, c := range row {
			if !finite(c) || c < 0 {
				return &Violation{Field: "distanceMatrix", Index: i*len(row) + j, Reason: fmt.Sprintf("distance %g between %d and %d is not a finite non-negative number", c, i, j)}
			}
		}
	}
	return nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
