// Package instance holds the immutable snapshot of a parsed CMDVRP instance.
package instance

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

var (
	// ErrShape is returned when the raw data does not describe a consistent instance.
	ErrShape = errors.New("instance: inconsistent shape")
	// ErrTooLarge is returned when an instance has more nodes than allowed.
	ErrTooLarge = errors.New("instance: too many nodes")
)

// CheckSize fails with ErrTooLarge when depots plus customers exceed
// maxNodes. A maxNodes of zero or less disables the check.
func CheckSize(depots, customers, maxNodes int) error {
	if maxNodes > 0 && (depots > maxNodes || customers > maxNodes || depots+customers > maxNodes) {
		return fmt.Errorf("%w: %d depots and %d customers exceed %d nodes", ErrTooLarge, depots, customers, maxNodes)
	}
	return nil
}

// Point is a planar coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Data is the raw input contract handed over by a parser. Depots come first in
// DistanceMatrix, customers second.
type Data struct {
	Name              string      `json:"name,omitempty"`
	NumCustomers      int         `json:"numCustomers"`
	NumDepots         int         `json:"numDepots"`
	DepotCapacities   []float64   `json:"depotCapacities"`
	CustomerDemands   []float64   `json:"customerDemands"`
	DepotOpeningCosts []float64   `json:"depotOpeningCosts"`
	VehicleCapacity   float64     `json:"vehicleCapacity"`
	RouteOpeningCost  float64     `json:"routeOpeningCost"`
	DistanceMatrix    [][]float64 `json:"distanceMatrix,omitempty"`
	DepotCoords       []Point     `json:"depotCoords,omitempty"`
	CustomerCoords    []Point     `json:"customerCoords,omitempty"`
}

// Instance is read-only once constructed; every accessor returns values or copies.
type Instance struct {
	d Data
}

// New validates the shape of d and returns a deep copy wrapped as an Instance.
// When DistanceMatrix is empty but coordinates are present, Euclidean distances
// are derived from them.
func New(d Data) (*Instance, error) {
	if d.NumDepots < 0 || d.NumCustomers < 0 {
		return nil, fmt.Errorf("%w: negative node count (depots=%d customers=%d)", ErrShape, d.NumDepots, d.NumCustomers)
	}
	m, n := d.NumDepots, d.NumCustomers
	if len(d.DepotCapacities) != m {
		return nil, fmt.Errorf("%w: %d depot capacities for %d depots", ErrShape, len(d.DepotCapacities), m)
	}
	if len(d.DepotOpeningCosts) != m {
		return nil, fmt.Errorf("%w: %d depot opening costs for %d depots", ErrShape, len(d.DepotOpeningCosts), m)
	}
	if len(d.CustomerDemands) != n {
		return nil, fmt.Errorf("%w: %d demands for %d customers", ErrShape, len(d.CustomerDemands), n)
	}
	if len(d.DistanceMatrix) == 0 && (len(d.DepotCoords) > 0 || len(d.CustomerCoords) > 0) {
		if len(d.DepotCoords) != m || len(d.CustomerCoords) != n {
			return nil, fmt.Errorf("%w: coordinates for %d depots and %d customers", ErrShape, len(d.DepotCoords), len(d.CustomerCoords))
		}
		d.DistanceMatrix = EuclideanMatrix(append(append([]Point{}, d.DepotCoords...), d.CustomerCoords...))
	}
	if len(d.DistanceMatrix) != m+n {
		return nil, fmt.Errorf("%w: distance matrix has %d rows, want %d", ErrShape, len(d.DistanceMatrix), m+n)
	}
	for i, row := range d.DistanceMatrix {
		if len(row) != m+n {
			return nil, fmt.Errorf("%w: distance matrix row %d has %d columns, want %d", ErrShape, i, len(row), m+n)
		}
	}
	return &Instance{d: clone(d)}, nil
}

// NewLimit is New that first rejects d with ErrTooLarge when it announces
// more than maxNodes nodes, before any distances are derived.
func NewLimit(d Data, maxNodes int) (*Instance, error) {
	if err := CheckSize(d.NumDepots, d.NumCustomers, maxNodes); err != nil {
		return nil, err
	}
	return New(d)
}

// EuclideanMatrix returns the pairwise Euclidean distances between points.
func EuclideanMatrix(pts []Point) [][]float64 {
	out := make([][]float64, len(pts))
	for i := range pts {
		out[i] = make([]float64, len(pts))
		for j := range pts {
			if i == j {
				continue
			}
			out[i][j] = math.Hypot(pts[i].X-pts[j].X, pts[i].Y-pts[j].Y)
		}
	}
	return out
}

func (in *Instance) Name() string { return in.d.Name }
func (in *Instance) NumDepots() int { return in.d.NumDepots }
func (in *Instance) NumCustomers() int { return in.d.NumCustomers }
func (in *Instance) NumNodes() int { return in.d.NumDepots + in.d.NumCustomers }
func (in *Instance) VehicleCapacity() float64 { return in.d.VehicleCapacity }
func (in *Instance) RouteOpeningCost() float64 { return in.d.RouteOpeningCost }

// DepotCapacity returns the capacity of depot d, 0 <= d < NumDepots.
func (in *Instance) DepotCapacity(d int) float64 { return in.d.DepotCapacities[d] }

// DepotOpeningCost returns the fixed cost of opening depot d.
func (in *Instance) DepotOpeningCost(d int) float64 { return in.d.DepotOpeningCosts[d] }

// Demand returns the demand of the c-th customer, 0 <= c < NumCustomers.
func (in *Instance) Demand(c int) float64 { return in.d.CustomerDemands[c] }

// Distance returns the travel cost between node ids i and j (depots first).
func (in *Instance) Distance(i, j int) float64 { return in.d.DistanceMatrix[i][j] }

// TotalDemand sums every customer demand.
func (in *Instance) TotalDemand() float64 {
	total := 0.0
	for _, q := range in.d.CustomerDemands {
		total += q
	}
	return total
}

// Data returns a deep copy of the underlying raw data.
func (in *Instance) Data() Data { return clone(in.d) }

func (in *Instance) MarshalJSON() ([]byte, error) { return json.Marshal(in.d) }

func (in *Instance) UnmarshalJSON(b []byte) error {
	var d Data
	if err := json.Unmarshal(b, &d); err != nil {
		return err
	}
	parsed, err := New(d)
	if err != nil {
		return err
	}
	*in = *parsed
	return nil
}

func clone(d Data) Data {
	out := d
	out.DepotCapacities = append([]float64(nil), d.DepotCapacities...)
	out.CustomerDemands = append([]float64(nil), d.CustomerDemands...)
	out.DepotOpeningCosts = append([]float64(nil), d.DepotOpeningCosts...)
	out.DepotCoords = append([]Point(nil), d.DepotCoords...)
	out.CustomerCoords = append([]Point(nil), d.CustomerCoords...)
	out.DistanceMatrix = make([][]float64, len(d.DistanceMatrix))
	for i, row := range d.DistanceMatrix {
		out.DistanceMatrix[i] = append([]float64(nil), row...)
	}
	return out
}
