// Package runs chains model construction, solving, reporting and
// persistence into one operation and announces the outcome.
package runs

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"cmdvrp/internal/formulation"
	"cmdvrp/internal/instance"
	"cmdvrp/internal/lpformat"
	"cmdvrp/internal/metrics"
	"cmdvrp/internal/model"
	"cmdvrp/internal/report"
	"cmdvrp/internal/solver"
	"cmdvrp/internal/solver/simplex"
	"cmdvrp/internal/store"
	"cmdvrp/internal/webhooks"
)

// Request describes one build.
type Request struct {
	Instance   *instance.Instance
	Variant    formulation.Variant
	Subtour    formulation.Subtour
	PrunedArcs bool
	TimeLimit  time.Duration
	// Sensitivity asks Solve to record constraint duals on the run.
	Sensitivity bool
}

// Emitter queues webhook notifications.
type Emitter interface {
	Emit(ctx context.Context, eventType string, data any) (int, error)
}

// Listener is told about every persisted run.
type Listener interface {
	RunFinished(ctx context.Context, eventType string, r store.Run)
}

// Service is safe for concurrent use when its Store, Emitter and Listener are.
type Service struct {
	Store    store.Store
	Emitter  Emitter
	Listener Listener
	Log      logrus.FieldLogger

	// NewAdapter returns a fresh engine per solve. Defaults to the dense simplex.
	NewAdapter func() solver.Adapter
	// DefaultTimeLimit applies when a Request carries none.
	DefaultTimeLimit time.Duration
	// MaxNodes refuses instances with more depots plus customers; zero means
	// no limit.
	MaxNodes int
	System   report.SysInfo
}

// NewService wires s with the simplex adapter and the host description.
func NewService(s store.Store, maxCells int) *Service {
	return &Service{
		Store: s,
		Log:   logrus.StandardLogger(),
		NewAdapter: func() solver.Adapter {
			a := simplex.New()
			if maxCells > 0 {
				a.MaxCells = maxCells
			}
			return a
		},
		System: report.CaptureSysInfo(),
	}
}

func (s *Service) logger() logrus.FieldLogger {
	if s.Log == nil {
		return logrus.StandardLogger()
	}
	return s.Log
}

func (s *Service) subtour(req Request) formulation.Subtour {
	if req.Subtour != "" {
		if st, err := formulation.ParseSubtour(string(req.Subtour)); err == nil {
			return st
		}
		return req.Subtour
	}
	return formulation.DefaultSubtour(req.Variant)
}

// Build constructs the model for req and records build metrics.
func (s *Service) Build(ctx context.Context, req Request) (*model.Model, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.Instance != nil {
		if err := instance.CheckSize(req.Instance.NumDepots(), req.Instance.NumCustomers(), s.MaxNodes); err != nil {
			return nil, err
		}
	}
	opts := []formulation.Option{formulation.WithSubtour(req.Subtour), formulation.WithLogger(s.logger())}
	if req.PrunedArcs {
		opts = append(opts, formulation.WithPrunedArcs())
	}
	start := time.Now()
	m, err := formulation.Build(req.Instance, req.Variant, opts...)
	if err != nil {
		metrics.ObserveBuild(string(req.Variant), 0, 0, 0, false)
		return nil, err
	}
	metrics.ObserveBuild(m.Variant(), time.Since(start).Seconds(), m.NumVars(), m.NumConstraints(), true)
	return m, nil
}

// Export builds req and writes it in LP format.
func (s *Service) Export(ctx context.Context, req Request, w io.Writer) error {
	m, err := s.Build(ctx, req)
	if err != nil {
		return err
	}
	return lpformat.Write(w, m)
}

// Solve builds, solves and persists req. Configuration and store failures
// are returned as errors; a solve without a solution is still recorded, with
// its status and error text on the run.
func (s *Service) Solve(ctx context.Context, req Request) (store.Run, error) {
	m, err := s.Build(ctx, req)
	if err != nil {
		return store.Run{}, err
	}
	limit := req.TimeLimit
	if limit <= 0 {
		limit = s.DefaultTimeLimit
	}
	newAdapter := s.NewAdapter
	if newAdapter == nil {
		newAdapter = func() solver.Adapter { return simplex.New() }
	}
	log := s.logger().WithFields(logrus.Fields{"instance": req.Instance.Name(), "variant": m.Variant()})

	sol, solveErr := solver.Run(ctx, newAdapter(), m, solver.Options{TimeLimit: limit, Sensitivity: req.Sensitivity, Logger: log})
	summary := report.Summarize(m, sol)
	metrics.ObserveSolve(summary.Variant, summary.Status.String(), summary.SolveSeconds)

	r := store.Run{
		Instance:  req.Instance.Name(),
		Depots:    req.Instance.NumDepots(),
		Customers: req.Instance.NumCustomers(),
		Subtour:   string(s.subtour(req)),
		Metrics:   summary,
		Families:  report.Families(m),
		Solution:  report.Nonzero(m, sol, 1e-9),
		System:    s.System,
	}
	if req.Sensitivity {
		r.Duals = report.Duals(m, sol, 1e-9)
	}
	if solveErr != nil {
		r.Error = solveErr.Error()
	}
	saved, err := s.Store.SaveRun(ctx, r)
	if err != nil {
		return r, fmt.Errorf("saving run: %w", err)
	}
	log.WithFields(logrus.Fields{"run": saved.ID, "status": summary.Status, "objective": summary.Objective, "integral": summary.Integral}).Info("run finished")

	event := webhooks.EventRunCompleted
	if !sol.HasIncumbent() {
		event = webhooks.EventRunFailed
	}
	if s.Listener != nil {
		s.Listener.RunFinished(ctx, event, saved)
	}
	if s.Emitter != nil {
		if _, err := s.Emitter.Emit(ctx, event, saved); err != nil {
			log.WithError(err).Warn("emit webhook")
		}
	}
	return saved, nil
}
