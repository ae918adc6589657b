package api

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"cmdvrp/internal/formulation"
	"cmdvrp/internal/instance"
	"cmdvrp/internal/integrations"
	"cmdvrp/internal/report"
	"cmdvrp/internal/store"
)

// writeError maps domain errors to problem responses.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, title string, err error) {
	var cfg *formulation.ConfigurationError
	switch {
	case errors.As(err, &cfg):
		writeJSON(w, http.StatusUnprocessableEntity, Problem{
			Type: "about:blank", Title: "Invalid model configuration", Status: http.StatusUnprocessableEntity,
			Detail: cfg.Reason, Instance: r.URL.Path, Field: cfg.Field,
		})
	case errors.Is(err, formulation.ErrConfiguration), errors.Is(err, instance.ErrFormat),
		errors.Is(err, instance.ErrShape), errors.Is(err, errBadRequest):
		writeProblem(w, http.StatusBadRequest, "Invalid request", err.Error(), r.URL.Path)
	case errors.Is(err, instance.ErrTooLarge):
		writeProblem(w, http.StatusRequestEntityTooLarge, "Instance too large", err.Error(), r.URL.Path)
	case errors.Is(err, integrations.ErrUnknownInstance), errors.Is(err, store.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", err.Error(), r.URL.Path)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeProblem(w, http.StatusServiceUnavailable, title, err.Error(), r.URL.Path)
	default:
		s.Log.WithError(err).WithField("path", r.URL.Path).Error(title)
		writeProblem(w, http.StatusInternalServerError, title, err.Error(), r.URL.Path)
	}
}

func queryLimit(r *http.Request) int {
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	return limit
}

// VariantsHandler lists the supported formulations and their default subtour strategy.
func (s *Server) VariantsHandler(w http.ResponseWriter, r *http.Request) {
	type variant struct {
		Name    formulation.Variant `json:"name"`
		Subtour formulation.Subtour `json:"defaultSubtour"`
	}
	out := []variant{}
	for _, v := range formulation.Variants() {
		out = append(out, variant{Name: v, Subtour: formulation.DefaultSubtour(v)})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out, "default": s.Config.Solver.Variant})
}

// SolveHandler handles POST /v1/solve.
func (s *Server) SolveHandler(w http.ResponseWriter, r *http.Request) {
	var body modelRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	req, err := s.toRunRequest(r.Context(), body)
	if err != nil {
		s.writeError(w, r, "Invalid solve request", err)
		return
	}
	run, err := s.Runs.Solve(r.Context(), req)
	if err != nil {
		s.writeError(w, r, "Solve failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, run)
}

// BuildHandler handles POST /v1/build: the model is built but not solved.
func (s *Server) BuildHandler(w http.ResponseWriter, r *http.Request) {
	var body modelRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	req, err := s.toRunRequest(r.Context(), body)
	if err != nil {
		s.writeError(w, r, "Invalid build request", err)
		return
	}
	start := time.Now()
	m, err := s.Runs.Build(r.Context(), req)
	if err != nil {
		s.writeError(w, r, "Build failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"variant":       m.Variant(),
		"instance":      req.Instance.Name(),
		"n_variables":   m.NumVars(),
		"n_constraints": m.NumConstraints(),
		"families":      report.Families(m),
		"varGroups":     report.VarGroups(m),
		"buildSeconds":  time.Since(start).Seconds(),
	})
}

// ExportHandler handles POST /v1/export and returns the model in LP format.
func (s *Server) ExportHandler(w http.ResponseWriter, r *http.Request) {
	var body modelRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	req, err := s.toRunRequest(r.Context(), body)
	if err != nil {
		s.writeError(w, r, "Invalid export request", err)
		return
	}
	var buf bytes.Buffer
	if err := s.Runs.Export(r.Context(), req, &buf); err != nil {
		s.writeError(w, r, "Export failed", err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// InstancesHandler lists the references accepted as instanceRef.
func (s *Server) InstancesHandler(w http.ResponseWriter, r *http.Request) {
	if s.Sources == nil {
		writeJSON(w, http.StatusOK, map[string]any{"items": []string{}})
		return
	}
	refs, err := s.Sources.List(r.Context())
	if err != nil {
		s.writeError(w, r, "List instances failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"source": s.Sources.Name(), "items": refs})
}

func (s *Server) RunsIndexHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items, next, err := s.Store.ListRuns(r.Context(), q.Get("variant"), q.Get("cursor"), queryLimit(r))
	if err != nil {
		s.writeError(w, r, "List runs failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
}

func (s *Server) RunByIDHandler(w http.ResponseWriter, r *http.Request) {
	run, err := s.Store.GetRun(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, "Get run failed", err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) RunStatsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := s.Store.RunStats(r.Context())
	if err != nil {
		s.writeError(w, r, "Run stats failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": stats})
}

type subscriptionRequest struct {
	URL    string   `json:"url"`
	Secret string   `json:"secret,omitempty"`
	Events []string `json:"events,omitempty"`
}

// SubscriptionsHandler handles GET and POST /v1/subscriptions.
func (s *Server) SubscriptionsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req subscriptionRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.URL == "" {
			writeProblem(w, http.StatusBadRequest, "Invalid subscription", "url is required", r.URL.Path)
			return
		}
		sub, err := s.Store.CreateSubscription(r.Context(), store.Subscription{URL: req.URL, Secret: req.Secret, Events: req.Events})
		if err != nil {
			s.writeError(w, r, "Create subscription failed", err)
			return
		}
		writeJSON(w, http.StatusCreated, sub)
	default:
		items, err := s.Store.ListSubscriptions(r.Context())
		if err != nil {
			s.writeError(w, r, "List subscriptions failed", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
	}
}

func (s *Server) SubscriptionByIDHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.Store.DeleteSubscription(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, "Delete subscription failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) WebhookDeliveriesHandler(w http.ResponseWriter, r *http.Request) {
	items, err := s.Store.ListWebhookDeliveries(r.Context(), r.URL.Query().Get("status"), queryLimit(r))
	if err != nil {
		s.writeError(w, r, "List deliveries failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ReadyHandler checks the database and Redis when they are configured.
func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	type pinger interface{ Ping(ctx context.Context) error }
	ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
	defer cancel()
	for _, dep := range []any{s.Store, s.Broker} {
		if p, ok := dep.(pinger); ok {
			if err := p.Ping(ctx); err != nil {
				writeProblem(w, http.StatusServiceUnavailable, "Not Ready", err.Error(), r.URL.Path)
				return
			}
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
