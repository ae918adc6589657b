package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"cmdvrp/internal/formulation"
	"cmdvrp/internal/instance"
	"cmdvrp/internal/runs"
)

// modelRequest is the body of /v1/solve, /v1/build and /v1/export. Exactly one
// of Instance, InstanceDat and InstanceRef names the instance.
type modelRequest struct {
	Variant     string          `json:"variant"`
	Subtour     string          `json:"subtour,omitempty"`
	PrunedArcs  bool            `json:"prunedArcs,omitempty"`
	TimeLimitMs int64           `json:"timeLimitMs,omitempty"`
	Instance    json.RawMessage `json:"instance,omitempty"`
	InstanceDat string          `json:"instanceDat,omitempty"`
	InstanceRef string          `json:"instanceRef,omitempty"`
	Sensitivity bool            `json:"sensitivity,omitempty"`
}

var errBadRequest = errors.New("bad request")

func (s *Server) toRunRequest(ctx context.Context, req modelRequest) (runs.Request, error) {
	out := runs.Request{PrunedArcs: req.PrunedArcs, Sensitivity: req.Sensitivity}
	variant := req.Variant
	if variant == "" {
		variant = s.Config.Solver.Variant
	}
	v, err := formulation.ParseVariant(variant)
	if err != nil {
		return out, err
	}
	out.Variant = v
	subtour := req.Subtour
	if subtour == "" {
		subtour = s.Config.Solver.Subtour
	}
	st, err := formulation.ParseSubtour(subtour)
	if err != nil {
		return out, err
	}
	out.Subtour = st

	if req.TimeLimitMs < 0 {
		return out, fmt.Errorf("%w: timeLimitMs must be >= 0", errBadRequest)
	}
	out.TimeLimit = time.Duration(req.TimeLimitMs) * time.Millisecond
	if limit := s.Config.Solver.MaxTimeLimit; limit > 0 && out.TimeLimit > limit {
		out.TimeLimit = limit
	}

	given := 0
	for _, ok := range []bool{len(req.Instance) > 0, req.InstanceDat != "", req.InstanceRef != ""} {
		if ok {
			given++
		}
	}
	if given != 1 {
		return out, fmt.Errorf("%w: exactly one of instance, instanceDat, instanceRef is required", errBadRequest)
	}
	switch {
	case len(req.Instance) > 0:
		var d instance.Data
		if err := json.Unmarshal(req.Instance, &d); err != nil {
			return out, fmt.Errorf("%w: instance: %v", errBadRequest, err)
		}
		in, err := instance.NewLimit(d, s.Config.Solver.MaxNodes)
		if err != nil {
			return out, err
		}
		out.Instance = in
	case req.InstanceDat != "":
		in, err := instance.ParseDATLimit(strings.NewReader(req.InstanceDat), s.Config.Solver.MaxNodes)
		if err != nil {
			return out, err
		}
		out.Instance = in
	default:
		if s.Sources == nil {
			return out, fmt.Errorf("%w: instanceRef requires an instance directory", errBadRequest)
		}
		in, err := s.Sources.Load(ctx, req.InstanceRef)
		if err != nil {
			return out, err
		}
		out.Instance = in
	}
	return out, nil
}
