// Package api exposes model building, solving and run history over HTTP.
package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"cmdvrp/internal/config"
	"cmdvrp/internal/integrations"
	"cmdvrp/internal/logging"
	"cmdvrp/internal/metrics"
	"cmdvrp/internal/runs"
	"cmdvrp/internal/store"
	"cmdvrp/internal/webhooks"
)

type Server struct {
	Config  config.Config
	Store   store.Store
	Runs    *runs.Service
	Pub     *webhooks.Publisher
	Broker  EventBroker
	Sources integrations.Source
	Limiter *rate.Limiter
	Log     logrus.FieldLogger
}

// NewServer wires the store, broker and run service from cfg. Without a
// DATABASE_URL runs are kept in memory; without a REDIS_URL events stay in
// process.
func NewServer(ctx context.Context, cfg config.Config, log logrus.FieldLogger) (*Server, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	var s store.Store
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		s = store.NewMemory()
	} else {
		sp, err := store.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if cfg.DBMigrate {
			if err := sp.Migrate(ctx); err != nil {
				_ = sp.Close()
				return nil, err
			}
		}
		s = sp
	}

	var broker EventBroker = NewBroker()
	if cfg.RedisURL != "" {
		if rb, err := NewRedisBroker(cfg.RedisURL, log); err == nil {
			broker = rb
		} else {
			log.WithError(err).Warn("redis broker unavailable, using in-process broker")
		}
	}

	srv := &Server{
		Config: cfg,
		Store:  s,
		Pub:    webhooks.NewPublisher(s),
		Broker: broker,
		Log:    log,
	}
	if cfg.RateRPS > 0 {
		srv.Limiter = rate.NewLimiter(rate.Limit(cfg.RateRPS), max(cfg.RateBurst, 1))
	}
	if cfg.InstanceDir != "" {
		srv.Sources = integrations.DirSource{Dir: cfg.InstanceDir, MaxNodes: cfg.Solver.MaxNodes}
	}
	srv.Runs = runs.NewService(s, cfg.Solver.MaxCells)
	srv.Runs.Log = log
	srv.Runs.DefaultTimeLimit = cfg.Solver.TimeLimit
	srv.Runs.MaxNodes = cfg.Solver.MaxNodes
	srv.Runs.Emitter = srv.Pub
	srv.Runs.Listener = srv
	return srv, nil
}

// RunFinished publishes r to the stream topics.
func (s *Server) RunFinished(ctx context.Context, eventType string, r store.Run) {
	evt := Event{Type: eventType, Data: r}
	s.Broker.Publish(topicFor(""), evt)
	s.Broker.Publish(topicFor(r.Metrics.Variant), evt)
}

// Handler returns the routed, instrumented and rate limited API.
func (s *Server) Handler() http.Handler {
	metrics.RegisterDefault()
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/variants", s.VariantsHandler)
	mux.HandleFunc("POST /v1/solve", s.SolveHandler)
	mux.HandleFunc("POST /v1/build", s.BuildHandler)
	mux.HandleFunc("POST /v1/export", s.ExportHandler)
	mux.HandleFunc("GET /v1/instances", s.InstancesHandler)

	mux.HandleFunc("GET /v1/runs", s.RunsIndexHandler)
	mux.HandleFunc("GET /v1/runs/stats", s.RunStatsHandler)
	mux.HandleFunc("GET /v1/runs/stream", s.RunStreamHandler)
	mux.HandleFunc("GET /v1/runs/{id}", s.RunByIDHandler)

	mux.HandleFunc("GET /v1/subscriptions", s.SubscriptionsHandler)
	mux.HandleFunc("POST /v1/subscriptions", s.SubscriptionsHandler)
	mux.HandleFunc("DELETE /v1/subscriptions/{id}", s.SubscriptionByIDHandler)
	mux.HandleFunc("GET /v1/admin/webhook-deliveries", s.WebhookDeliveriesHandler)

	mux.HandleFunc("GET /healthz", s.HealthHandler)
	mux.HandleFunc("GET /readyz", s.ReadyHandler)
	mux.HandleFunc("GET /debug/vars", s.DebugJSON)
	mux.Handle("GET /metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	return logging.Middleware(s.Log, instrument(s.rateLimit(mux)))
}

// NewWebhookWorker creates a background worker for webhook deliveries.
func (s *Server) NewWebhookWorker() *webhooks.Worker {
	w := webhooks.NewWorker(s.Store)
	w.MaxAttempts = s.Config.WebhookMaxAttempts
	w.Log = s.Log
	return w
}

// Close releases the store and broker connections.
func (s *Server) Close() error {
	type closer interface{ Close() error }
	if c, ok := s.Broker.(closer); ok {
		_ = c.Close()
	}
	if c, ok := s.Store.(closer); ok {
		return c.Close()
	}
	return nil
}
